// LLMClient - per-exchange wrapper around providers.

package llm

import (
	"context"
)

// Client wraps a Provider and accounts for the calls made through it.
// A Client is meant to live for one exchange and is not safe for
// concurrent use.
type Client struct {
	provider Provider
	calls    int
	usage    TokenUsage
}

// NewClient creates a new LLM client from a provider.
func NewClient(provider Provider) *Client {
	return &Client{provider: provider}
}

// Complete forwards to the provider and records the call and its token usage.
// Failed calls are counted too.
func (c *Client) Complete(ctx context.Context, turns []Turn, tools []ToolDefinition) (Response, error) {
	c.calls++
	response, err := c.provider.Complete(ctx, turns, tools)
	if err != nil {
		return Response{}, err
	}
	c.usage.Add(response.Usage)
	return response, nil
}

// Calls returns how many provider requests were made.
func (c *Client) Calls() int {
	return c.calls
}

// Usage returns the accumulated token usage.
func (c *Client) Usage() TokenUsage {
	return c.usage
}

// Provider returns the underlying provider.
func (c *Client) Provider() Provider {
	return c.provider
}
