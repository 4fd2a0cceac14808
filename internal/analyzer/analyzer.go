// Package analyzer turns raw chat messages into structured architectural
// signal: a per-message technical classification and, for a window of
// messages, an architecture extraction. Both operations are best-effort
// enrichment steps and never propagate collaborator failures to the caller.
package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/archflow/internal/ai"
	"github.com/archflow/internal/llm"
	"github.com/archflow/internal/retry"
	"github.com/archflow/pkg/models"
)

// maxContextMessages bounds how much trailing context the classification
// prompt carries.
const maxContextMessages = 5

// Analyzer classifies messages and extracts architecture via the LLM provider
type Analyzer struct {
	provider ai.Provider
	retryCfg retry.RetryConfig
}

// New creates an analyzer backed by the given provider
func New(provider ai.Provider) *Analyzer {
	return &Analyzer{
		provider: provider,
		retryCfg: retry.LLMRetryConfig(),
	}
}

type technicalResponse struct {
	IsTechnical     bool     `json:"is_technical"`
	ConfidenceScore float64  `json:"confidence_score"`
	Entities        []string `json:"entities"`
	Reasoning       string   `json:"reasoning"`
}

// AnalyzeMessage classifies a single message as technical or not, with a
// confidence score and extracted entities. It fails closed: any collaborator
// error yields IsTechnical=false, ConfidenceScore=0 and the error text in
// Reasoning, so message ingestion always succeeds even when analysis is
// degraded.
func (a *Analyzer) AnalyzeMessage(ctx context.Context, content string, recentContext []string) models.TechnicalAnalysis {
	contextStr := "No previous context"
	if len(recentContext) > 0 {
		start := len(recentContext) - maxContextMessages
		if start < 0 {
			start = 0
		}
		contextStr = strings.Join(recentContext[start:], "\n")
	}

	messages := []ai.PromptMessage{
		{Role: ai.RoleSystem, Text: technicalDetectionSystemPrompt},
		{Role: ai.RoleUser, Text: fmt.Sprintf("Analyze this message:\n\nMessage: %s\n\nPrevious context (last few messages):\n%s\n\nProvide your analysis:", content, contextStr)},
	}

	response, err := a.invoke(ctx, messages)
	if err != nil {
		log.Warn().Err(err).Msg("message classification failed, failing closed")
		return failedAnalysis(err)
	}

	var parsed technicalResponse
	if _, err := llm.ProcessLLMResponse(response, &parsed); err != nil {
		log.Warn().Err(err).Msg("classification response unparseable, failing closed")
		return failedAnalysis(err)
	}

	return models.TechnicalAnalysis{
		IsTechnical:     parsed.IsTechnical,
		ConfidenceScore: clamp01(parsed.ConfidenceScore),
		Entities:        parsed.Entities,
		Reasoning:       parsed.Reasoning,
	}
}

type extractionResponse struct {
	Components []struct {
		Type         string   `json:"type"`
		Name         string   `json:"name"`
		Technologies []string `json:"technologies"`
	} `json:"components"`
	Relationships []struct {
		Source string `json:"source"`
		Target string `json:"target"`
		Type   string `json:"relationship_type"`
		Label  string `json:"label"`
	} `json:"relationships"`
	Context string `json:"context"`
}

// ExtractArchitecture derives components and relationships from an ordered
// batch of messages. On any failure it returns an empty extraction with the
// error recorded in Context; the caller proceeds to diagram generation
// regardless, which handles the degenerate case.
func (a *Analyzer) ExtractArchitecture(ctx context.Context, msgs []models.ChatMessage) models.ArchitectureExtraction {
	var conversation strings.Builder
	for _, msg := range msgs {
		author := msg.Author
		if author == "" {
			author = "User"
		}
		fmt.Fprintf(&conversation, "%s: %s\n", author, msg.Content)
	}

	messages := []ai.PromptMessage{
		{Role: ai.RoleSystem, Text: architectureExtractionSystemPrompt},
		{Role: ai.RoleUser, Text: fmt.Sprintf("Extract architecture information from this conversation:\n\n%s\nProvide the architectural extraction:", conversation.String())},
	}

	response, err := a.invoke(ctx, messages)
	if err != nil {
		log.Warn().Err(err).Msg("architecture extraction failed, returning empty extraction")
		return emptyExtraction(err)
	}

	var parsed extractionResponse
	if _, err := llm.ProcessLLMResponse(response, &parsed); err != nil {
		log.Warn().Err(err).Msg("extraction response unparseable, returning empty extraction")
		return emptyExtraction(err)
	}

	extraction := models.ArchitectureExtraction{
		Components:    []models.Component{},
		Relationships: []models.Relationship{},
		Context:       parsed.Context,
	}

	// Component names are the relationship join key: drop empty names and
	// keep the first occurrence of duplicates.
	seen := make(map[string]bool)
	for _, comp := range parsed.Components {
		if comp.Name == "" || seen[comp.Name] {
			continue
		}
		seen[comp.Name] = true
		extraction.Components = append(extraction.Components, models.Component{
			Type:         models.ComponentType(comp.Type),
			Name:         comp.Name,
			Technologies: comp.Technologies,
		})
	}

	for _, rel := range parsed.Relationships {
		if rel.Source == "" || rel.Target == "" {
			continue
		}
		extraction.Relationships = append(extraction.Relationships, models.Relationship{
			Source: rel.Source,
			Target: rel.Target,
			Type:   models.RelationshipType(rel.Type),
			Label:  rel.Label,
		})
	}

	return extraction
}

func (a *Analyzer) invoke(ctx context.Context, messages []ai.PromptMessage) (string, error) {
	var response string
	result := retry.RetryWithBackoff(ctx, a.retryCfg, func() error {
		var err error
		response, err = a.provider.Invoke(ctx, messages)
		return err
	})
	if !result.Success {
		return "", result.LastError
	}
	return response, nil
}

func failedAnalysis(err error) models.TechnicalAnalysis {
	return models.TechnicalAnalysis{
		IsTechnical:     false,
		ConfidenceScore: 0.0,
		Entities:        []string{},
		Reasoning:       fmt.Sprintf("Error during analysis: %v", err),
	}
}

func emptyExtraction(err error) models.ArchitectureExtraction {
	return models.ArchitectureExtraction{
		Components:    []models.Component{},
		Relationships: []models.Relationship{},
		Context:       fmt.Sprintf("Error during extraction: %v", err),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
