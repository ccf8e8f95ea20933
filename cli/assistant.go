// Task assistant assembly for CLI commands.
//
// Information Hiding:
// - Provider construction from settings hidden
// - Task service client and tool wiring hidden

package cli

import (
	"log/slog"

	"github.com/richinex/taskchat/agent"
	"github.com/richinex/taskchat/config"
	"github.com/richinex/taskchat/llm"
	"github.com/richinex/taskchat/todoist"
	"github.com/richinex/taskchat/tools"
)

const assistantName = "taskchat"

// NewAssistant creates the task assistant from settings. Missing secrets are
// not an error here; each exchange reports them.
func NewAssistant(settings config.Settings, logger *slog.Logger) (*agent.Agent, error) {
	provider, err := createProvider(settings)
	if err != nil {
		return nil, err
	}

	client := todoist.NewClient(settings.Todoist.Token,
		todoist.WithBaseURL(settings.Todoist.BaseURL),
		todoist.WithTimeout(settings.Exchange.RoundTimeout),
	)

	a, err := agent.New(assistantConfig(settings, client), provider)
	if err != nil {
		return nil, err
	}
	return a.WithLogger(logger), nil
}

func assistantConfig(settings config.Settings, searcher tools.TaskSearcher) agent.Config {
	return agent.NewBuilder(assistantName).
		SystemPrompt(agent.DefaultSystemPrompt).
		Tool(tools.NewFindTasksTool(searcher)).
		MaxRounds(settings.Exchange.MaxRounds).
		RoundTimeout(settings.Exchange.RoundTimeout).
		Credential(settings.LLM.APIKeyEnv, settings.LLM.APIKey).
		Credential(settings.Todoist.TokenEnv, settings.Todoist.Token).
		Build()
}

func createProvider(settings config.Settings) (llm.Provider, error) {
	providerType, err := llm.ParseProviderType(settings.LLM.Provider)
	if err != nil {
		return nil, err
	}

	return llm.NewProviderBuilder(providerType).
		Model(settings.LLM.Model).
		MaxTokens(settings.LLM.MaxTokens).
		Temperature(float32(settings.LLM.Temperature)).
		BaseURL(settings.LLM.BaseURL).
		APIKey(settings.LLM.APIKey)
}
