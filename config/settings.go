// Package config provides application settings loaded from environment variables.
//
// Settings are created via New() which handles:
// - Environment variable parsing with validation
// - Default value application
// - Provider-specific configuration lookup
//
// Secrets are read but never required here; the agent reports a missing
// secret per request.

package config

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/richinex/taskchat/llm"
)

// Environment variable names.
const (
	EnvProvider       = "LLM_PROVIDER"
	EnvMaxTokens      = "LLM_MAX_TOKENS"
	EnvTemperature    = "LLM_TEMPERATURE"
	EnvBaseURL        = "LLM_BASE_URL"
	EnvMaxRounds      = "EXCHANGE_MAX_ROUNDS"
	EnvRoundTimeout   = "EXCHANGE_ROUND_TIMEOUT"
	EnvTodoistToken   = "TODOIST_API_TOKEN"
	EnvTodoistBaseURL = "TODOIST_BASE_URL"
	EnvPort           = "PORT"
	EnvCORSOrigins    = "CORS_ORIGINS"
	EnvLogLevel       = "LOG_LEVEL"
)

// Defaults applied when the environment is silent.
const (
	DefaultProvider       = "openai"
	DefaultTodoistBaseURL = "https://api.todoist.com/api/v1"
	DefaultPort           = 3001
	DefaultLogLevel       = "info"
)

// DefaultCORSOrigins are the browser origins allowed by default.
var DefaultCORSOrigins = []string{"http://localhost:3000", "http://localhost:3001"}

// Settings holds all application configuration.
type Settings struct {
	LLM      LLMConfig
	Exchange ExchangeConfig
	Todoist  TodoistConfig
	Server   ServerConfig
	Log      LogConfig
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	Provider    string
	Model       string
	APIKeyEnv   string
	APIKey      string
	MaxTokens   uint32
	Temperature float64
	// BaseURL points the provider at a compatible gateway. Empty uses the SDK default.
	BaseURL string
}

// ExchangeConfig bounds a single chat exchange.
type ExchangeConfig struct {
	MaxRounds    int
	RoundTimeout time.Duration
}

// TodoistConfig holds task service access.
type TodoistConfig struct {
	TokenEnv string
	Token    string
	BaseURL  string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port        int
	CORSOrigins []string
}

// Addr returns the listen address for the configured port.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level slog.Level
}

// providerInfo holds configuration for a specific LLM provider.
type providerInfo struct {
	modelEnv     string
	defaultModel string
	apiKeyEnv    string
}

// Supported providers and their configuration.
var providers = map[string]providerInfo{
	"openai":    {"OPENAI_MODEL", llm.ModelOpenAIGPT4o, "OPENAI_API_KEY"},
	"anthropic": {"ANTHROPIC_MODEL", llm.ModelAnthropicClaudeSonnet4, "ANTHROPIC_API_KEY"},
	"deepseek":  {"DEEPSEEK_MODEL", llm.ModelDeepSeekChat, "DEEPSEEK_API_KEY"},
	"gemini":    {"GEMINI_MODEL", llm.ModelGeminiFlash25, "GEMINI_API_KEY"},
}

// Provider aliases map to canonical names.
var providerAliases = map[string]string{
	"claude": "anthropic",
	"google": "gemini",
	"gpt":    "openai",
}

// New creates settings for the specified provider, loading values from environment variables.
// An empty provider falls back to LLM_PROVIDER, then to openai.
// Returns an error if the provider is unknown or environment variables contain invalid values.
func New(provider string) (Settings, error) {
	if provider == "" {
		provider = getEnv(EnvProvider, DefaultProvider)
	}
	provider = normalizeProvider(provider)

	info, err := getProviderInfo(provider)
	if err != nil {
		return Settings{}, err
	}

	maxTokens, err := getEnvUint32(EnvMaxTokens, 4096)
	if err != nil {
		return Settings{}, err
	}

	temperature, err := getEnvFloat64(EnvTemperature, 0.7)
	if err != nil {
		return Settings{}, err
	}

	maxRounds, err := getEnvInt(EnvMaxRounds, 8)
	if err != nil {
		return Settings{}, err
	}
	if maxRounds < 1 {
		return Settings{}, fmt.Errorf("invalid value for %s: %d: must be at least 1", EnvMaxRounds, maxRounds)
	}

	roundTimeout, err := getEnvDuration(EnvRoundTimeout, 60*time.Second)
	if err != nil {
		return Settings{}, err
	}
	if roundTimeout <= 0 {
		return Settings{}, fmt.Errorf("invalid value for %s: %s: must be positive", EnvRoundTimeout, roundTimeout)
	}

	port, err := getEnvInt(EnvPort, DefaultPort)
	if err != nil {
		return Settings{}, err
	}

	level, err := ParseLogLevel(getEnv(EnvLogLevel, DefaultLogLevel))
	if err != nil {
		return Settings{}, fmt.Errorf("invalid value for %s: %w", EnvLogLevel, err)
	}

	// Get model from environment or use default
	model := os.Getenv(info.modelEnv)
	if model == "" {
		model = info.defaultModel
	}

	return Settings{
		LLM: LLMConfig{
			Provider:    provider,
			Model:       model,
			APIKeyEnv:   info.apiKeyEnv,
			APIKey:      os.Getenv(info.apiKeyEnv),
			MaxTokens:   maxTokens,
			Temperature: temperature,
			BaseURL:     os.Getenv(EnvBaseURL),
		},
		Exchange: ExchangeConfig{
			MaxRounds:    maxRounds,
			RoundTimeout: roundTimeout,
		},
		Todoist: TodoistConfig{
			TokenEnv: EnvTodoistToken,
			Token:    os.Getenv(EnvTodoistToken),
			BaseURL:  getEnv(EnvTodoistBaseURL, DefaultTodoistBaseURL),
		},
		Server: ServerConfig{
			Port:        port,
			CORSOrigins: getEnvList(EnvCORSOrigins, DefaultCORSOrigins),
		},
		Log: LogConfig{
			Level: level,
		},
	}, nil
}

// ParseLogLevel maps debug, info, warn and error to slog levels.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

// normalizeProvider converts provider aliases to canonical names.
func normalizeProvider(provider string) string {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if canonical, ok := providerAliases[provider]; ok {
		return canonical
	}
	return provider
}

// getProviderInfo returns configuration for a provider.
func getProviderInfo(provider string) (providerInfo, error) {
	info, ok := providers[provider]
	if !ok {
		return providerInfo{}, fmt.Errorf("unknown provider: %q (supported: %s)",
			provider, strings.Join(SupportedProviders(), ", "))
	}
	return info, nil
}

// SupportedProviders returns the sorted list of supported provider names.
func SupportedProviders() []string {
	result := make([]string, 0, len(providers))
	for name := range providers {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// Environment variable helpers with proper error handling

func getEnv(key, defaultVal string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return defaultVal
}

func getEnvList(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return append([]string(nil), defaultVal...)
	}
	var items []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}

func getEnvUint32(key string, defaultVal uint32) (uint32, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return uint32(i), nil
}

func getEnvFloat64(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return f, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return d, nil
}
