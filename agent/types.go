// Package agent provides the tool-calling exchange orchestrator.
//
// Contains the response types returned by an exchange.
package agent

import (
	"github.com/richinex/taskchat/llm"
	"github.com/richinex/taskchat/model"
)

// NoResponseText is returned when the final assistant turn has no text.
const NoResponseText = "No response generated"

// ToolCall is an alias for model.ToolCall for tool call metadata.
type ToolCall = model.ToolCall

// Metadata contains metadata about one exchange.
type Metadata struct {
	DurationMs    uint64
	Provider      string
	Model         string
	ProviderCalls int
	ToolCalls     []ToolCall
	TokenUsage    llm.TokenUsage
}

// Response is the result of one exchange. On failure Text is empty and
// Turns and Metadata hold what was gathered before the error.
type Response struct {
	Text     string
	Turns    []llm.Turn
	Metadata Metadata
}
