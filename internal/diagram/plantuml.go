package diagram

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/archflow/internal/llm"
	"github.com/archflow/pkg/models"
)

// GeneratePlantUML produces PlantUML source for the extraction. The LLM path
// is attempted first; markers are enforced on its output. Any failure falls
// back to FallbackPlantUML, so the returned source is always non-empty and
// marker-delimited.
func (g *Generator) GeneratePlantUML(ctx context.Context, arch models.ArchitectureExtraction) string {
	response, err := g.invoke(ctx, plantumlGenerationSystemPrompt, generationUserPrompt(arch, "PlantUML"))
	if err != nil {
		log.Warn().Err(err).Msg("plantuml generation failed, using fallback")
		return FallbackPlantUML(arch)
	}

	code := strings.TrimSpace(llm.StripCodeFence(response))
	if !strings.HasPrefix(code, "@startuml") {
		code = "@startuml\n" + code
	}
	if !strings.HasSuffix(strings.TrimSpace(code), "@enduml") {
		code = code + "\n@enduml"
	}

	if !ValidatePlantUML(code) {
		log.Warn().Msg("generated plantuml failed validation, using fallback")
		return FallbackPlantUML(arch)
	}
	return code
}

// FallbackPlantUML builds a deterministic component diagram straight from the
// extraction. Components map to the database, queue, or component keyword by
// type; relationships whose endpoints are not both present are dropped.
func FallbackPlantUML(arch models.ArchitectureExtraction) string {
	lines := []string{"@startuml", "skinparam componentStyle rectangle", ""}

	names := make(map[string]bool, len(arch.Components))
	for _, comp := range arch.Components {
		names[comp.Name] = true

		keyword := "component"
		switch comp.Type {
		case models.ComponentDatabase, models.ComponentCache, "storage":
			keyword = "database"
		case models.ComponentQueue:
			keyword = "queue"
		}

		techLabel := ""
		if len(comp.Technologies) > 0 {
			techLabel = fmt.Sprintf(" <<%s>>", comp.Technologies[0])
		}
		lines = append(lines, fmt.Sprintf("%s %q as %s%s", keyword, comp.Name, plantumlAlias(comp.Name), techLabel))
	}

	lines = append(lines, "")

	for _, rel := range arch.Relationships {
		if !names[rel.Source] || !names[rel.Target] {
			continue
		}
		label := ""
		if rel.Label != "" {
			label = " : " + rel.Label
		}
		lines = append(lines, fmt.Sprintf("%s --> %s%s", plantumlAlias(rel.Source), plantumlAlias(rel.Target), label))
	}

	lines = append(lines, "@enduml")
	return strings.Join(lines, "\n")
}

// ValidatePlantUML checks the minimal structural contract: the source starts
// with @startuml and ends with @enduml.
func ValidatePlantUML(code string) bool {
	trimmed := strings.TrimSpace(code)
	return strings.HasPrefix(trimmed, "@startuml") && strings.HasSuffix(trimmed, "@enduml")
}

func plantumlAlias(name string) string {
	return strings.ReplaceAll(name, " ", "_")
}
