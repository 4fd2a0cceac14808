package diagram

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/archflow/internal/llm"
)

// ModifyResult is the outcome of one single-format modification attempt. On
// failure Source carries the previous source unchanged.
type ModifyResult struct {
	Success bool
	Source  string
	Err     error
}

// ModifyPlantUML rewrites PlantUML source according to a natural-language
// request. The two formats are modified independently; this call never
// touches Draw.io state.
func (g *Generator) ModifyPlantUML(ctx context.Context, current, request string) ModifyResult {
	user := fmt.Sprintf("Current PlantUML code:\n%s\n\nUser request:\n%s\n\nOutput the modified PlantUML code:", current, request)
	response, err := g.invoke(ctx, plantumlModificationSystemPrompt, user)
	if err != nil {
		log.Warn().Err(err).Msg("plantuml modification failed")
		return ModifyResult{Success: false, Source: current, Err: err}
	}

	code := strings.TrimSpace(llm.StripCodeFence(response))
	if !ValidatePlantUML(code) {
		err := fmt.Errorf("modified plantuml failed validation")
		log.Warn().Err(err).Msg("rejecting plantuml modification")
		return ModifyResult{Success: false, Source: current, Err: err}
	}
	return ModifyResult{Success: true, Source: code}
}

// ModifyDrawio rewrites Draw.io XML according to a natural-language request.
func (g *Generator) ModifyDrawio(ctx context.Context, current, request string) ModifyResult {
	user := fmt.Sprintf("Current Draw.io XML:\n%s\n\nUser request:\n%s\n\nOutput the modified Draw.io XML:", current, request)
	response, err := g.invoke(ctx, drawioModificationSystemPrompt, user)
	if err != nil {
		log.Warn().Err(err).Msg("drawio modification failed")
		return ModifyResult{Success: false, Source: current, Err: err}
	}

	xmlStr := strings.TrimSpace(llm.StripCodeFence(response))
	if !ValidateDrawioXML(xmlStr) {
		err := fmt.Errorf("modified drawio xml failed validation")
		log.Warn().Err(err).Msg("rejecting drawio modification")
		return ModifyResult{Success: false, Source: current, Err: err}
	}
	return ModifyResult{Success: true, Source: xmlStr}
}
