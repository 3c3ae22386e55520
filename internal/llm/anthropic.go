package llm

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/jace/pkg/anthropic"
)

// jsonOnly is appended to system prompts since the Messages API has no JSON
// response mode.
const jsonOnly = "\n\nRespond with a single JSON object and nothing else."

// AnthropicCompleter implements Completer on the Anthropic Messages API.
type AnthropicCompleter struct {
	client    anthropic.Client
	model     string
	maxTokens int
}

// NewAnthropic creates an AnthropicCompleter.
func NewAnthropic(client anthropic.Client, model string, maxTokens int) *AnthropicCompleter {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &AnthropicCompleter{client: client, model: model, maxTokens: maxTokens}
}

// Complete implements Completer.
func (c *AnthropicCompleter) Complete(ctx context.Context, req Request) (*Result, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	temp := req.Temperature

	resp, err := c.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       c.model,
		MaxTokens:   int64(maxTokens),
		System:      req.System + jsonOnly,
		Messages:    []anthropic.Message{{Role: "user", Content: req.User}},
		Temperature: &temp,
	})
	if err != nil {
		return nil, eris.Wrap(err, "llm: anthropic complete")
	}
	resp.Usage.LogCost(c.model, req.Phase)

	if resp.StopReason == "max_tokens" {
		return nil, eris.Wrapf(ErrMalformedResponse, "anthropic response truncated at %d tokens", maxTokens)
	}
	raw, err := extractJSON(resp.Text())
	if err != nil {
		return nil, eris.Wrap(err, "llm: anthropic complete")
	}
	return &Result{JSON: raw, Model: c.model}, nil
}
