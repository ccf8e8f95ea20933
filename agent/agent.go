// Tool-calling exchange loop.
//
// All chat exchanges go through this module.
//
// Information Hiding:
// - Turn sequence construction hidden
// - Provider round bounding hidden
// - Tool execution and result correlation hidden
// - Metrics accounting hidden

package agent

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/richinex/taskchat/llm"
	"github.com/richinex/taskchat/model"
	"github.com/richinex/taskchat/tools"
)

// Agent answers one message per exchange, letting the model call tools.
// An Agent is safe for concurrent use; every exchange owns its own state.
type Agent struct {
	config      Config
	provider    llm.Provider
	registry    *tools.Registry
	definitions []llm.ToolDefinition
	executor    *tools.Executor
	logger      *slog.Logger
	now         func() time.Time
}

// New creates a new agent with the given configuration and provider.
// Two tools with the same name are rejected with tools.ErrDuplicateTool.
func New(config Config, provider llm.Provider) (*Agent, error) {
	config = config.withDefaults()

	registry := tools.NewRegistry()
	for _, tool := range config.Tools {
		if err := registry.Register(tool); err != nil {
			return nil, fmt.Errorf("agent %s: %w", config.Name, err)
		}
	}

	timeoutSecs := uint64(math.Ceil(config.RoundTimeout.Seconds()))

	return &Agent{
		config:      config,
		provider:    provider,
		registry:    registry,
		definitions: registry.Definitions(),
		executor:    tools.NewExecutor(tools.ToolConfig{TimeoutSecs: timeoutSecs}),
		logger:      slog.Default(),
		now:         time.Now,
	}, nil
}

// WithLogger sets the logger used for round and tool traces.
func (a *Agent) WithLogger(logger *slog.Logger) *Agent {
	a.logger = logger
	a.executor.WithLogger(logger)
	return a
}

// Name returns the agent's name.
func (a *Agent) Name() string {
	return a.config.Name
}

// Provider returns the model provider.
func (a *Agent) Provider() llm.Provider {
	return a.provider
}

// Tools returns metadata for the registered tools.
func (a *Agent) Tools() []tools.ToolMetadata {
	return a.registry.List()
}

// Respond runs one exchange for message. Any failure aborts the exchange.
func (a *Agent) Respond(ctx context.Context, message string) (Response, error) {
	startTime := time.Now()

	if strings.TrimSpace(message) == "" {
		return Response{}, ErrEmptyMessage
	}
	if name, missing := a.config.MissingCredential(); missing {
		return Response{}, fmt.Errorf("%w: %s is not set", ErrMissingCredential, name)
	}

	client := llm.NewClient(a.provider)
	turns := []llm.Turn{
		llm.SystemTurn(a.systemPrompt(a.now())),
		llm.UserTurn(message),
	}
	var toolCalls []model.ToolCall

	finish := func(text string, err error) (Response, error) {
		return Response{
			Text:  text,
			Turns: turns,
			Metadata: Metadata{
				DurationMs:    uint64(time.Since(startTime).Milliseconds()),
				Provider:      a.provider.Name(),
				Model:         a.provider.Model(),
				ProviderCalls: client.Calls(),
				ToolCalls:     toolCalls,
				TokenUsage:    client.Usage(),
			},
		}, err
	}

	for round := 1; ; round++ {
		if err := verifyToolResults(turns); err != nil {
			return finish("", err)
		}

		response, err := a.complete(ctx, client, turns)
		if err != nil {
			return finish("", fmt.Errorf("provider request %d failed: %w", round, err))
		}
		turns = append(turns, response.Turn())

		a.logger.Debug("provider round",
			"agent", a.config.Name,
			"round", round,
			"tool_calls", len(response.ToolCalls),
		)

		if !response.HasToolCalls() {
			text := response.Content
			if text == "" {
				text = NoResponseText
			}
			return finish(text, nil)
		}

		// Tool results would need another request, which the budget forbids.
		if round >= a.config.MaxRounds {
			return finish("", fmt.Errorf("%w: model still requested tools after %d provider requests",
				ErrExchangeLimit, a.config.MaxRounds))
		}

		for _, call := range response.ToolCalls {
			metric, output, err := a.runTool(ctx, round, call)
			toolCalls = append(toolCalls, metric)
			if err != nil {
				return finish("", err)
			}
			turns = append(turns, llm.ToolResultTurn(call.ID, output))
		}
	}
}

// complete makes one provider request under the round timeout.
func (a *Agent) complete(ctx context.Context, client *llm.Client, turns []llm.Turn) (llm.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, a.config.RoundTimeout)
	defer cancel()
	return client.Complete(ctx, turns, a.definitions)
}

// runTool executes a single tool call and reports its metrics.
func (a *Agent) runTool(ctx context.Context, round int, call llm.ToolCall) (model.ToolCall, string, error) {
	metric := model.ToolCall{
		ID:        call.ID,
		Name:      call.Name,
		Round:     round,
		InputSize: len(call.Arguments),
	}

	tool, exists := a.registry.Get(call.Name)
	if !exists {
		err := fmt.Errorf("%w: %q", ErrUnknownTool, call.Name)
		metric.Error = err.Error()
		return metric, "", err
	}

	startTime := time.Now()
	result, err := a.executor.Execute(ctx, tool, call.Arguments)
	metric.DurationMs = uint64(time.Since(startTime).Milliseconds())
	if err != nil {
		metric.Error = err.Error()
		return metric, "", err
	}

	metric.Success = true
	metric.OutputSize = len(result.Output)
	return metric, result.String(), nil
}

// verifyToolResults checks that every tool call of an assistant turn is
// answered by exactly one tool turn before the next assistant turn.
func verifyToolResults(turns []llm.Turn) error {
	pending := make(map[string]bool)
	for _, turn := range turns {
		switch turn.Role {
		case llm.RoleAssistant:
			if len(pending) > 0 {
				return fmt.Errorf("%w: %d call(s) unanswered", errToolResultMismatch, len(pending))
			}
			for _, call := range turn.ToolCalls {
				if pending[call.ID] {
					return fmt.Errorf("%w: duplicate call id %q", errToolResultMismatch, call.ID)
				}
				pending[call.ID] = true
			}
		case llm.RoleTool:
			if !pending[turn.ToolCallID] {
				return fmt.Errorf("%w: unexpected result for %q", errToolResultMismatch, turn.ToolCallID)
			}
			delete(pending, turn.ToolCallID)
		}
	}
	if len(pending) > 0 {
		return fmt.Errorf("%w: %d call(s) unanswered", errToolResultMismatch, len(pending))
	}
	return nil
}
