// Package diagram generates, modifies, and renders architecture diagrams in
// two formats: PlantUML source and Draw.io (mxGraph) XML. Generation prefers
// the LLM and falls back to a deterministic layout built directly from the
// extraction, so a valid diagram always comes back.
package diagram

import (
	"context"
	"fmt"
	"strings"

	"github.com/archflow/internal/ai"
	"github.com/archflow/internal/retry"
	"github.com/archflow/pkg/models"
)

// Generator produces both diagram formats from an architecture extraction.
type Generator struct {
	provider ai.Provider
	retryCfg retry.RetryConfig
}

// NewGenerator creates a generator backed by the given provider.
func NewGenerator(provider ai.Provider) *Generator {
	return &Generator{
		provider: provider,
		retryCfg: retry.LLMRetryConfig(),
	}
}

func (g *Generator) invoke(ctx context.Context, system, user string) (string, error) {
	messages := []ai.PromptMessage{
		{Role: ai.RoleSystem, Text: system},
		{Role: ai.RoleUser, Text: user},
	}
	var response string
	result := retry.RetryWithBackoff(ctx, g.retryCfg, func() error {
		var err error
		response, err = g.provider.Invoke(ctx, messages)
		return err
	})
	if !result.Success {
		return "", result.LastError
	}
	return response, nil
}

// formatExtraction renders components and relationships as the bullet lists
// both generation prompts expect.
func formatExtraction(arch models.ArchitectureExtraction) (string, string) {
	var comps strings.Builder
	for _, comp := range arch.Components {
		tech := "N/A"
		if len(comp.Technologies) > 0 {
			tech = strings.Join(comp.Technologies, ", ")
		}
		fmt.Fprintf(&comps, "- %s (%s): %s\n", comp.Name, comp.Type, tech)
	}

	var rels strings.Builder
	for _, rel := range arch.Relationships {
		label := rel.Label
		if label == "" {
			label = "N/A"
		}
		fmt.Fprintf(&rels, "- %s -> %s (%s): %s\n", rel.Source, rel.Target, rel.Type, label)
	}
	return comps.String(), rels.String()
}

func generationUserPrompt(arch models.ArchitectureExtraction, format string) string {
	components, relationships := formatExtraction(arch)
	return fmt.Sprintf("Architecture Context:\n%s\n\nComponents:\n%s\nRelationships:\n%s\nGenerate the %s diagram:", arch.Context, components, relationships, format)
}
