// Agent builder for fluent configuration.
//
// Information Hiding:
// - Builder state management hidden
// - Default value application hidden

package agent

import (
	"time"

	"github.com/richinex/taskchat/tools"
)

// Builder provides fluent configuration for creating agents.
// Usage: agent.NewBuilder("name") - no stutter.
type Builder struct {
	name         string
	systemPrompt string
	tools        []tools.Tool
	maxRounds    int
	roundTimeout time.Duration
	credentials  []Credential
}

// NewBuilder creates a new agent builder with the given name.
func NewBuilder(name string) *Builder {
	return &Builder{
		name:  name,
		tools: []tools.Tool{},
	}
}

// SystemPrompt sets the agent's persona.
func (b *Builder) SystemPrompt(prompt string) *Builder {
	b.systemPrompt = prompt
	return b
}

// Tool adds a tool to the agent.
func (b *Builder) Tool(tool tools.Tool) *Builder {
	b.tools = append(b.tools, tool)
	return b
}

// Tools adds multiple tools at once.
func (b *Builder) Tools(toolList []tools.Tool) *Builder {
	b.tools = append(b.tools, toolList...)
	return b
}

// MaxRounds caps provider requests per exchange.
func (b *Builder) MaxRounds(n int) *Builder {
	b.maxRounds = n
	return b
}

// RoundTimeout bounds each provider request and tool execution.
func (b *Builder) RoundTimeout(d time.Duration) *Builder {
	b.roundTimeout = d
	return b
}

// Credential requires a secret to be present before any outbound call.
func (b *Builder) Credential(name, value string) *Builder {
	b.credentials = append(b.credentials, Credential{Name: name, Value: value})
	return b
}

// Build creates the agent configuration.
func (b *Builder) Build() Config {
	return Config{
		Name:         b.name,
		SystemPrompt: b.systemPrompt,
		Tools:        b.tools,
		MaxRounds:    b.maxRounds,
		RoundTimeout: b.roundTimeout,
		Credentials:  b.credentials,
	}.withDefaults()
}
