package llm

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/jace/pkg/openai"
)

// OpenAICompleter implements Completer on an OpenAI-compatible chat
// completions API using JSON object response mode.
type OpenAICompleter struct {
	client    openai.Client
	model     string
	maxTokens int
}

// NewOpenAI creates an OpenAICompleter.
func NewOpenAI(client openai.Client, model string, maxTokens int) *OpenAICompleter {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &OpenAICompleter{client: client, model: model, maxTokens: maxTokens}
}

// Complete implements Completer.
func (c *OpenAICompleter) Complete(ctx context.Context, req Request) (*Result, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	temp := req.Temperature

	resp, err := c.client.ChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.Message{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		Temperature:    &temp,
		MaxTokens:      &maxTokens,
		ResponseFormat: openai.JSONObject,
	})
	if err != nil {
		return nil, eris.Wrap(err, "llm: openai complete")
	}
	resp.Usage.LogCost(c.model, req.Phase)

	if len(resp.Choices) == 0 {
		return nil, eris.Wrap(ErrMalformedResponse, "llm: openai returned no choices")
	}
	if resp.Choices[0].FinishReason == "length" {
		return nil, eris.Wrapf(ErrMalformedResponse, "openai response truncated at %d tokens", maxTokens)
	}
	raw, err := extractJSON(resp.Content())
	if err != nil {
		return nil, eris.Wrap(err, "llm: openai complete")
	}
	model := resp.Model
	if model == "" {
		model = c.model
	}
	return &Result{JSON: raw, Model: model}, nil
}
