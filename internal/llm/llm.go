// Package llm defines the structured-JSON completion contract the Scout
// pipeline depends on, with Anthropic and OpenAI implementations.
package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrMalformedResponse is returned when a provider answers with something
// other than a single JSON object.
var ErrMalformedResponse = eris.New("malformed llm response")

// Request is one system+user prompt pair. Responses are always requested in
// JSON mode.
type Request struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
	// Phase labels the call in cost logs, e.g. "research" or "verify".
	Phase string
}

// Result is a parsed completion.
type Result struct {
	JSON  json.RawMessage
	Model string
}

// Completer sends a prompt and returns the JSON object the model produced.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Result, error)
}

// extractJSON pulls a JSON object out of model output that may be wrapped in
// markdown fences or surrounded by prose.
func extractJSON(text string) (json.RawMessage, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, eris.Wrap(ErrMalformedResponse, "no json object in response")
	}
	raw := json.RawMessage(text[start : end+1])

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, eris.Wrapf(ErrMalformedResponse, "decode json: %v", err)
	}
	return raw, nil
}
