// Package ai turns a free-text goal into draft tasks using an OpenAI-compatible
// chat completions endpoint.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nhle/taskboard/internal/model"
)

const (
	defaultModel     = "gpt-4o-mini"
	defaultBaseURL   = "https://api.openai.com/v1"
	defaultMaxTokens = 800
	defaultCount     = 5
	maxCount         = 10

	// fallbackTitleRunes caps the title of the synthesized task.
	fallbackTitleRunes = 80
)

// ErrNoAPIKey is returned when suggestions are requested without a key.
var ErrNoAPIKey = errors.New("ai: no API key configured")

// ErrEmptyGoal is returned for a blank goal.
var ErrEmptyGoal = errors.New("ai: goal is empty")

// Suggestion is one generated task.
type Suggestion struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Draft converts s into a To Do draft.
func (s Suggestion) Draft() model.Draft {
	return model.Draft{Title: s.Title, Description: s.Description, Status: model.StatusTodo}
}

// Result is the outcome of one Suggest call.
type Result struct {
	Suggestions []Suggestion
	// Fallback is set when the reply could not be parsed and a single task was
	// synthesized from the goal.
	Fallback bool
	Raw      string
}

// Drafts converts every suggestion into a draft.
func (r Result) Drafts() []model.Draft {
	out := make([]model.Draft, len(r.Suggestions))
	for i, s := range r.Suggestions {
		out[i] = s.Draft()
	}
	return out
}

// Suggester calls the chat completions API.
type Suggester struct {
	apiKey      string
	baseURL     string
	model       string
	maxTokens   int
	temperature float64
	count       int
	client      *http.Client
}

// New creates a Suggester from cfg. An empty apiKey yields a Suggester whose
// Suggest returns ErrNoAPIKey.
func New(apiKey string, cfg model.AIConfig) *Suggester {
	s := &Suggester{
		apiKey:      strings.TrimSpace(apiKey),
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		count:       cfg.Count,
		client:      &http.Client{Timeout: time.Duration(cfg.TimeoutSec) * time.Second},
	}
	if s.baseURL == "" {
		s.baseURL = defaultBaseURL
	}
	if s.model == "" {
		s.model = defaultModel
	}
	if s.maxTokens <= 0 {
		s.maxTokens = defaultMaxTokens
	}
	if s.count <= 0 {
		s.count = defaultCount
	}
	return s
}

// Enabled reports whether an API key is set.
func (s *Suggester) Enabled() bool {
	return s.apiKey != ""
}

// Count is the default number of suggestions requested.
func (s *Suggester) Count() int {
	return s.count
}

// Suggest asks for up to n tasks toward goal. n <= 0 uses the configured
// count. The request is made once; failures are returned to the caller.
func (s *Suggester) Suggest(ctx context.Context, goal string, n int) (Result, error) {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		return Result{}, ErrEmptyGoal
	}
	if !s.Enabled() {
		return Result{}, ErrNoAPIKey
	}
	if n <= 0 {
		n = s.count
	}
	n = min(n, maxCount)

	reply, err := s.complete(ctx, systemPrompt(n), goal)
	if err != nil {
		return Result{}, err
	}

	if suggestions := ParseSuggestions(reply, n); len(suggestions) > 0 {
		return Result{Suggestions: suggestions, Raw: reply}, nil
	}
	return Result{
		Suggestions: []Suggestion{fallback(goal, reply)},
		Fallback:    true,
		Raw:         reply,
	}, nil
}

func systemPrompt(n int) string {
	var sb strings.Builder
	sb.WriteString("You are a planning assistant for a personal Kanban board. ")
	sb.WriteString("Break the user's goal into concrete, actionable tasks.\n\n")
	fmt.Fprintf(&sb, "Return ONLY a JSON array with at most %d items. ", n)
	sb.WriteString(`Each item must be an object {"title": string, "description": string}. `)
	sb.WriteString("Titles are short imperative phrases under 80 characters. ")
	sb.WriteString("Descriptions are one or two sentences. ")
	sb.WriteString("Do not wrap the array in markdown or add any other text.")
	return sb.String()
}

// complete sends one chat completion request and returns the first choice.
func (s *Suggester) complete(ctx context.Context, system, user string) (string, error) {
	reqBody := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(bodyBytes),
	)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling completions API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Error.Message)
		}
		return "", fmt.Errorf("API error (%d): %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", errors.New("API returned no choices")
	}
	return result.Choices[0].Message.Content, nil
}

// ParseSuggestions extracts up to n suggestions from a model reply. It
// tolerates markdown code fences and prose around the array. Items without a
// title are dropped.
func ParseSuggestions(reply string, n int) []Suggestion {
	items, ok := firstJSONArray(stripFences(reply))
	if !ok {
		return nil
	}

	out := make([]Suggestion, 0, len(items))
	for _, it := range items {
		it.Title = strings.TrimSpace(it.Title)
		it.Description = strings.TrimSpace(it.Description)
		if it.Title == "" {
			continue
		}
		out = append(out, it)
		if n > 0 && len(out) == n {
			break
		}
	}
	return out
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	// Drop the opening fence line, which may carry a language tag.
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		return ""
	}
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// firstJSONArray decodes the first bracketed span in s that is a JSON array
// of suggestions. Spans that are not JSON, like "[note]" in prose, are skipped.
func firstJSONArray(s string) ([]Suggestion, bool) {
	for from := 0; from < len(s); {
		i := strings.IndexByte(s[from:], '[')
		if i < 0 {
			break
		}
		start := from + i
		if end := closingBracket(s, start); end > 0 {
			var items []Suggestion
			if json.Unmarshal([]byte(s[start:end+1]), &items) == nil {
				return items, true
			}
		}
		from = start + 1
	}
	return nil, false
}

// closingBracket returns the index of the ] balancing the [ at start,
// honoring strings, or -1.
func closingBracket(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func fallback(goal, reply string) Suggestion {
	title := goal
	if r := []rune(title); len(r) > fallbackTitleRunes {
		title = strings.TrimSpace(string(r[:fallbackTitleRunes-1])) + "…"
	}
	return Suggestion{Title: title, Description: strings.TrimSpace(reply)}
}

// --- chat completions API types ---

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int         `json:"index"`
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

type apiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}
