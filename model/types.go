// Package model provides domain types shared across packages.
package model

// ToolCall contains metrics about a tool invocation.
// Used by the agent for exchange metadata and by storage for transcripts.
type ToolCall struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Round      int    `json:"round"`
	InputSize  int    `json:"input_size"`
	OutputSize int    `json:"output_size"`
	DurationMs uint64 `json:"duration_ms"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

// SuccessCount returns how many calls in calls succeeded.
func SuccessCount(calls []ToolCall) int {
	n := 0
	for _, c := range calls {
		if c.Success {
			n++
		}
	}
	return n
}
