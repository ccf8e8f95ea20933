package agent

import "errors"

var (
	// ErrEmptyMessage is returned for a missing or whitespace-only message.
	// It is the only client fault.
	ErrEmptyMessage = errors.New("message is required")

	// ErrMissingCredential is returned when a provider key or the task
	// service token is not configured. No outbound call is made.
	ErrMissingCredential = errors.New("missing credential")

	// ErrExchangeLimit is returned when the model keeps asking for tools
	// past the configured number of provider requests.
	ErrExchangeLimit = errors.New("exchange round limit exceeded")

	// ErrUnknownTool is returned when the model calls a tool that is not registered.
	ErrUnknownTool = errors.New("unknown tool")

	errToolResultMismatch = errors.New("tool calls and tool results do not correlate")
)
