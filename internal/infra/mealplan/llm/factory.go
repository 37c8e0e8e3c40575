package llm

import (
	"log/slog"

	domain "github.com/yanqian/mealplan-ai/internal/domain/mealplan"
	"github.com/yanqian/mealplan-ai/internal/infra/config"
	"github.com/yanqian/mealplan-ai/internal/infra/llm/chatgpt"
)

// NewCompleter builds the completer for the configured provider.
// The credential is looked up on every call, never at construction.
func NewCompleter(cfg *config.Config, logger *slog.Logger) domain.Completer {
	logger.Info("completion provider configured",
		"provider", cfg.LLM.Provider,
		"model", cfg.LLM.Model,
		"credential_env", cfg.CredentialEnv(),
	)
	switch cfg.LLM.Provider {
	case config.ProviderGemini:
		return NewGeminiCompleter(cfg.CredentialSource(), cfg.LLM.Model, cfg.LLM.Temperature, cfg.LLM.BaseURL)
	default:
		client := chatgpt.NewClient(cfg.CredentialSource(), cfg.LLM.BaseURL, nil)
		return NewChatGPTCompleter(client, cfg.LLM.Model, cfg.LLM.Temperature, true)
	}
}
