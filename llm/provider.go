// Package llm provides LLM provider abstractions.
//
// LLM Provider interface - the abstract interface for LLM providers.
// Each provider implementation hides:
// - API client initialization and authentication
// - Turn and tool schema conversion to the provider's wire format
// - Provider-specific error handling

package llm

import (
	"context"
)

// Provider defines the abstract interface for LLM providers.
// Implementations hide provider-specific details while exposing
// a single tool-aware completion call.
type Provider interface {
	// Name returns the provider name (for logging/debugging).
	Name() string

	// Model returns the current model being used.
	Model() string

	// Complete sends the turn sequence together with the tool definitions.
	// The LLM may respond with tool calls in Response.ToolCalls.
	Complete(ctx context.Context, turns []Turn, tools []ToolDefinition) (Response, error)
}

// ProviderConfig holds the settings shared by every provider constructor.
type ProviderConfig struct {
	APIKey      string
	Model       string
	MaxTokens   uint32
	Temperature float32
	// BaseURL overrides the provider endpoint. Empty means the SDK default.
	BaseURL string
}
