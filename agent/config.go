// Agent configuration types.
//
// Information Hiding:
// - Default values hidden
// - Credential presence checks hidden

package agent

import (
	"strings"
	"time"

	"github.com/richinex/taskchat/tools"
)

// Exchange bounds used when Config leaves them zero.
const (
	DefaultMaxRounds    = 8
	DefaultRoundTimeout = 60 * time.Second
)

// Credential is a secret the exchange cannot run without.
// Name is the environment variable reported when Value is empty.
type Credential struct {
	Name  string
	Value string
}

// Config holds agent configuration.
type Config struct {
	// Name is a unique identifier for the agent.
	Name string

	// SystemPrompt is the persona. The current date and the tool
	// descriptions are appended per exchange.
	SystemPrompt string

	// Tools available to this agent.
	Tools []tools.Tool

	// MaxRounds caps provider requests per exchange.
	MaxRounds int

	// RoundTimeout bounds each provider request and each tool execution.
	RoundTimeout time.Duration

	// Credentials are checked before any outbound call.
	Credentials []Credential
}

// MissingCredential returns the name of the first credential without a value.
func (c *Config) MissingCredential() (string, bool) {
	for _, cred := range c.Credentials {
		if strings.TrimSpace(cred.Value) == "" {
			return cred.Name, true
		}
	}
	return "", false
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = "taskchat"
	}
	if c.SystemPrompt == "" {
		c.SystemPrompt = DefaultSystemPrompt
	}
	if c.MaxRounds <= 0 {
		c.MaxRounds = DefaultMaxRounds
	}
	if c.RoundTimeout <= 0 {
		c.RoundTimeout = DefaultRoundTimeout
	}
	return c
}
