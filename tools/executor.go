// Tool Executor with timeout.
//
// Information Hiding:
// - Validation-before-execution ordering hidden
// - Timeout handling hidden

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Executor runs a tool exactly once: validate, then execute under a timeout.
type Executor struct {
	config ToolConfig
	logger *slog.Logger
}

// NewExecutor creates a new tool executor with the given configuration.
func NewExecutor(config ToolConfig) *Executor {
	return &Executor{config: config, logger: slog.Default()}
}

// NewDefaultExecutor creates an executor with default configuration.
func NewDefaultExecutor() *Executor {
	return NewExecutor(DefaultToolConfig())
}

// WithLogger sets the logger used for execution traces.
func (e *Executor) WithLogger(logger *slog.Logger) *Executor {
	e.logger = logger
	return e
}

// Execute validates args and runs the tool. Invalid arguments are never
// forwarded to the tool's backend.
func (e *Executor) Execute(ctx context.Context, tool Tool, args json.RawMessage) (ToolResult, error) {
	name := tool.Definition().Name

	if err := tool.Validate(args); err != nil {
		return ToolResult{}, fmt.Errorf("tool %q: %w", name, err)
	}

	timeout := time.Duration(e.config.Timeout()) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	result, err := tool.Execute(ctx, args)
	e.logger.Debug("tool executed",
		"tool", name,
		"duration", time.Since(start),
		"error", err,
	)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ToolResult{}, fmt.Errorf("tool %q timed out after %s: %w", name, timeout, err)
		}
		return ToolResult{}, fmt.Errorf("tool %q failed: %w", name, err)
	}
	return result, nil
}
