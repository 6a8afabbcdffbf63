package credential

import (
	"errors"
	"testing"

	"github.com/99designs/keyring"
)

func env(vals map[string]string) func(string) string {
	return func(k string) string { return vals[k] }
}

func TestSetGetDelete(t *testing.T) {
	s := NewWithKeyring(keyring.NewArrayKeyring(nil))

	if _, err := s.Get(OpenAIKey); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
	if err := s.Set(OpenAIKey, "sk-ring"); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := s.Get(OpenAIKey)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "sk-ring" {
		t.Fatalf("expected sk-ring, got %q", got)
	}
	if err := s.Delete(OpenAIKey); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(OpenAIKey); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting twice, got: %v", err)
	}
}

func TestAPIKeyPrefersEnvironment(t *testing.T) {
	s := NewWithKeyring(keyring.NewArrayKeyring([]keyring.Item{{Key: OpenAIKey, Data: []byte("sk-ring")}}))

	got, err := s.APIKey(env(map[string]string{OpenAIKeyEnv: " sk-env "}))
	if err != nil {
		t.Fatalf("api key: %v", err)
	}
	if got != "sk-env" {
		t.Fatalf("expected env key, got %q", got)
	}

	got, err = s.APIKey(env(nil))
	if err != nil {
		t.Fatalf("api key: %v", err)
	}
	if got != "sk-ring" {
		t.Fatalf("expected keyring fallback, got %q", got)
	}
}

func TestAPIKeyMissing(t *testing.T) {
	s := NewWithKeyring(keyring.NewArrayKeyring(nil))
	if _, err := s.APIKey(env(nil)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
}

func TestDeleteMissingKeepsOthers(t *testing.T) {
	s := NewWithKeyring(keyring.NewArrayKeyring([]keyring.Item{{Key: "other", Data: []byte("v")}}))

	if err := s.Delete(OpenAIKey); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
	if got, err := s.Get("other"); err != nil || got != "v" {
		t.Fatalf("other = %q, %v", got, err)
	}
}
