package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nhle/taskboard/internal/model"
)

// Open returns the backend selected by cfg.
func Open(cfg model.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case model.BackendJSON:
		return NewJSONFileStore(cfg.Path)
	case model.BackendSQLite, "":
		if cfg.Path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		return NewSQLiteStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
