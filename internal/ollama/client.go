// Package ollama wraps the Ollama API client used as the external
// language-model collaborator for text simplification.
package ollama

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

const (
	DefaultModel = "llama3.2"

	// DefaultTimeout is the response budget for one simplification
	// call. Anything slower counts as a collaborator failure and the
	// caller falls back to the rule-based rewrite.
	DefaultTimeout = 5 * time.Second
)

// Client wraps the Ollama API client.
type Client struct {
	client  *api.Client
	model   string
	timeout time.Duration
}

// New creates a new Ollama client.
func New(ollamaURL, model string) (*Client, error) {
	if ollamaURL == "" {
		ollamaURL = "http://localhost:11434"
	}
	if model == "" {
		model = DefaultModel
	}

	baseURL, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL: %w", err)
	}

	return &Client{
		client:  api.NewClient(baseURL, http.DefaultClient),
		model:   model,
		timeout: DefaultTimeout,
	}, nil
}

// WithTimeout returns a copy of the client with a different response
// budget. Used by tests to force the timeout path.
func (c *Client) WithTimeout(d time.Duration) *Client {
	clone := *c
	clone.timeout = d
	return &clone
}

// generate runs one prompt against the model with the client's budget.
func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := &api.GenerateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: new(bool), // false
	}

	var response strings.Builder
	err := c.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		response.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}

	result := strings.TrimSpace(response.String())
	slog.Debug("ollama response received", "model", c.model, "chars", len(result))
	return result, nil
}

// Simplify asks the model for an accessibility rewrite of text. The
// prompt pins down the constraints that matter for the target
// population: short sentences, glossed jargon, untouched dosage and
// frequency directives.
func (c *Client) Simplify(ctx context.Context, text string) (string, error) {
	prompt := fmt.Sprintf(`Rewrite the following text so it is easy to read for someone with a reading disability.

Requirements:
- Use short sentences of at most 12 words
- Replace medical or technical jargon with everyday words, or add a short plain-language explanation in parentheses after the term
- Keep every number, dose amount, and frequency instruction (like "twice daily" or "with food") EXACTLY as written
- Do NOT remove, reorder, or change any safety instruction
- Do NOT add commentary, headings, or notes about what you changed
- Return ONLY the rewritten text

Text:
%s

Rewritten text:`, text)

	return c.generate(ctx, prompt)
}
