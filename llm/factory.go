// Provider selection and configuration.
//
//	provider, err := llm.NewProviderBuilder(llm.ProviderAnthropic).
//	    Model(llm.ModelAnthropicClaudeSonnet4).
//	    MaxTokens(2048).
//	    BaseURL(gatewayURL).
//	    APIKey(key)
//
// Information Hiding:
// - Provider names and aliases hidden
// - Default model and token settings hidden
// - Constructor dispatch hidden

package llm

import (
	"fmt"
	"strings"
)

// Model identifiers used as provider defaults.
const (
	ModelOpenAIGPT4o            = "gpt-4o"
	ModelAnthropicClaudeSonnet4 = "claude-sonnet-4-20250514"
	ModelDeepSeekChat           = "deepseek-chat"
	ModelGeminiFlash25          = "gemini-2.5-flash"
)

const (
	defaultMaxTokens   = 4096
	defaultTemperature = 0.7
)

// ProviderType identifies a supported model provider.
type ProviderType int

const (
	// ProviderOpenAI uses the OpenAI chat completions API.
	ProviderOpenAI ProviderType = iota
	// ProviderAnthropic uses the Anthropic messages API.
	ProviderAnthropic
	// ProviderDeepSeek uses DeepSeek's OpenAI-compatible API.
	ProviderDeepSeek
	// ProviderGemini uses the Gemini API.
	ProviderGemini
)

type providerSpec struct {
	name         string
	aliases      []string
	defaultModel string
	build        func(ProviderConfig) Provider
}

// providerSpecs is ordered by ProviderType.
var providerSpecs = []providerSpec{
	ProviderOpenAI: {
		name: "openai", aliases: []string{"gpt"}, defaultModel: ModelOpenAIGPT4o,
		build: func(cfg ProviderConfig) Provider { return NewOpenAIProvider(cfg) },
	},
	ProviderAnthropic: {
		name: "anthropic", aliases: []string{"claude"}, defaultModel: ModelAnthropicClaudeSonnet4,
		build: func(cfg ProviderConfig) Provider { return NewAnthropicProvider(cfg) },
	},
	ProviderDeepSeek: {
		name: "deepseek", defaultModel: ModelDeepSeekChat,
		build: func(cfg ProviderConfig) Provider { return NewDeepSeekProvider(cfg) },
	},
	ProviderGemini: {
		name: "gemini", aliases: []string{"google"}, defaultModel: ModelGeminiFlash25,
		build: func(cfg ProviderConfig) Provider { return NewGeminiProvider(cfg) },
	},
}

func (p ProviderType) spec() (providerSpec, bool) {
	if p < 0 || int(p) >= len(providerSpecs) {
		return providerSpec{}, false
	}
	return providerSpecs[p], true
}

func (p ProviderType) String() string {
	if s, ok := p.spec(); ok {
		return s.name
	}
	return "unknown"
}

// ProviderNames returns the canonical provider names.
func ProviderNames() []string {
	names := make([]string, len(providerSpecs))
	for i, s := range providerSpecs {
		names[i] = s.name
	}
	return names
}

// ParseProviderType accepts a canonical name or alias, case-insensitively.
func ParseProviderType(s string) (ProviderType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, spec := range providerSpecs {
		if s == spec.name {
			return ProviderType(i), nil
		}
		for _, alias := range spec.aliases {
			if s == alias {
				return ProviderType(i), nil
			}
		}
	}
	return 0, fmt.Errorf("unknown provider %q (supported: %s)", s, strings.Join(ProviderNames(), ", "))
}

// ProviderBuilder configures a provider before it is built with APIKey.
type ProviderBuilder struct {
	providerType ProviderType
	cfg          ProviderConfig
	temperature  *float32
}

// NewProviderBuilder starts configuring a provider of the given type.
func NewProviderBuilder(providerType ProviderType) *ProviderBuilder {
	return &ProviderBuilder{providerType: providerType}
}

// Model sets the model. Empty keeps the provider default.
func (b *ProviderBuilder) Model(model string) *ProviderBuilder {
	b.cfg.Model = model
	return b
}

// MaxTokens caps the completion length. Zero keeps the default.
func (b *ProviderBuilder) MaxTokens(tokens uint32) *ProviderBuilder {
	b.cfg.MaxTokens = tokens
	return b
}

// Temperature sets the sampling temperature.
func (b *ProviderBuilder) Temperature(temp float32) *ProviderBuilder {
	b.temperature = &temp
	return b
}

// BaseURL points the provider at a compatible gateway. Empty keeps the SDK default.
func (b *ProviderBuilder) BaseURL(url string) *ProviderBuilder {
	b.cfg.BaseURL = url
	return b
}

// APIKey builds the provider with the given key.
func (b *ProviderBuilder) APIKey(key string) (Provider, error) {
	spec, ok := b.providerType.spec()
	if !ok {
		return nil, fmt.Errorf("unknown provider type: %d", int(b.providerType))
	}

	cfg := b.cfg
	cfg.APIKey = key
	if cfg.Model == "" {
		cfg.Model = spec.defaultModel
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	cfg.Temperature = defaultTemperature
	if b.temperature != nil {
		cfg.Temperature = *b.temperature
	}
	return spec.build(cfg), nil
}
