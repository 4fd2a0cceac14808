package cmd

import (
	"fmt"

	"github.com/archflow/internal/ai"
	"github.com/archflow/internal/ai/langchain"
	"github.com/archflow/internal/config"
)

// buildProvider registers the langchain provider in the factory and creates
// the configured instance.
func buildProvider(cfg *config.Config) (ai.Provider, error) {
	factory := ai.NewDefaultFactory()
	factory.Register("langchain", langchain.New(langchain.Config{
		Backend:     cfg.LLM.Provider,
		APIKey:      cfg.LLM.APIKey,
		ModelName:   cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		TimeoutSecs: cfg.LLM.TimeoutSeconds,
	}))

	provider, err := factory.Create("langchain", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM provider: %w", err)
	}
	return provider, nil
}
