// Package tools provides the tool system for agents.
//
// Information Hiding:
// - Tool execution details hidden behind interface
// - Tool parameters and schemas hidden in implementations
// - Registry implementation details hidden from consumers
// - Argument parsing and validation internalized per tool
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/richinex/taskchat/llm"
)

// ErrInvalidArguments marks arguments that do not match a tool's schema.
var ErrInvalidArguments = errors.New("invalid tool arguments")

// ErrDuplicateTool is returned when two tools share a name.
var ErrDuplicateTool = errors.New("tool already registered")

// ToolParameter describes one parameter for human-readable listings.
type ToolParameter struct {
	Name        string `json:"name"`
	ParamType   string `json:"param_type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// ToolMetadata describes what a tool does and how to use it.
type ToolMetadata struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ToolParameter `json:"parameters"`
}

// String returns a string representation of the tool metadata.
func (m ToolMetadata) String() string {
	return fmt.Sprintf("%s: %s", m.Name, m.Description)
}

// ToolResult is the JSON payload produced by a successful execution.
type ToolResult struct {
	Output json.RawMessage
}

// String returns the payload as sent back to the model.
func (r ToolResult) String() string {
	return string(r.Output)
}

// JSONResult marshals v into a ToolResult.
func JSONResult(v interface{}) (ToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return ToolResult{}, fmt.Errorf("failed to serialize tool result: %w", err)
	}
	return ToolResult{Output: data}, nil
}

// Tool is the interface that all tools must implement.
//
// Information Hiding: Tool implementations hide their internal execution logic,
// data structures, and error handling strategies behind this interface.
type Tool interface {
	// Definition returns the static declaration sent to the model provider.
	Definition() llm.ToolDefinition

	// Validate checks arguments before execution. Failures wrap ErrInvalidArguments.
	Validate(args json.RawMessage) error

	// Execute runs the tool with given arguments.
	Execute(ctx context.Context, args json.RawMessage) (ToolResult, error)
}

// Metadata derives a human-readable description from a tool's definition.
func Metadata(t Tool) ToolMetadata {
	def := t.Definition()
	meta := ToolMetadata{Name: def.Name, Description: def.Description}

	props, _ := def.Parameters["properties"].(map[string]interface{})
	required := make(map[string]bool)
	if req, ok := def.Parameters["required"].([]string); ok {
		for _, r := range req {
			required[r] = true
		}
	}

	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		prop, _ := props[name].(map[string]interface{})
		paramType, _ := prop["type"].(string)
		desc, _ := prop["description"].(string)
		meta.Parameters = append(meta.Parameters, ToolParameter{
			Name:        name,
			ParamType:   paramType,
			Description: desc,
			Required:    required[name],
		})
	}
	return meta
}

// ToolConfig holds tool execution configuration.
// The zero value is safe: timeout defaults to 30s.
type ToolConfig struct {
	TimeoutSecs uint64
}

// Timeout returns the configured timeout, defaulting to 30 seconds if zero.
func (c *ToolConfig) Timeout() uint64 {
	if c == nil || c.TimeoutSecs == 0 {
		return 30
	}
	return c.TimeoutSecs
}

// DefaultToolConfig returns the default tool configuration.
// Note: The zero value of ToolConfig is also safe and provides the same defaults.
func DefaultToolConfig() ToolConfig {
	return ToolConfig{TimeoutSecs: 30}
}
