package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// ProcessorResult contains the result of LLM response processing
type ProcessorResult struct {
	RepairStats  JsonRepairStats `json:"repair_stats"`
	OriginalText string          `json:"-"`
	RepairedJSON string          `json:"-"`
	Success      bool            `json:"success"`
	Error        string          `json:"error,omitempty"`
}

// ProcessLLMResponse extracts the JSON payload from a raw LLM response,
// repairs it if needed, and unmarshals it into target.
func ProcessLLMResponse(raw string, target interface{}) (ProcessorResult, error) {
	result := ProcessorResult{
		OriginalText: raw,
		Success:      false,
	}

	// Extract JSON from response (LLMs often add explanatory text or fences)
	jsonStr := ExtractJSON(raw)
	if jsonStr == "" {
		result.Error = "no JSON found in LLM response"
		return result, fmt.Errorf("no JSON found in response")
	}

	repairedJSON, repairStats, err := RepairJSON(jsonStr)
	result.RepairStats = repairStats
	result.RepairedJSON = repairedJSON

	if repairStats.WasRepaired {
		log.Debug().
			Int("errors_fixed", repairStats.ErrorsFixed).
			Str("strategies", strings.Join(repairStats.RepairStrategies, ",")).
			Dur("repair_time", repairStats.RepairTime).
			Msg("JSON repair applied to LLM response")
	}

	if err != nil {
		result.Error = fmt.Sprintf("JSON repair failed: %v", err)
		return result, err
	}

	if err := json.Unmarshal([]byte(repairedJSON), target); err != nil {
		result.Error = fmt.Sprintf("JSON parsing failed after repair: %v", err)
		return result, err
	}

	result.Success = true
	return result, nil
}

// ExtractJSON extracts JSON content from mixed text/JSON responses
func ExtractJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	// If it starts with { or [, assume it's pure JSON
	if strings.HasPrefix(raw, "{") || strings.HasPrefix(raw, "[") {
		return raw
	}

	// Look for JSON blocks marked with ```json or ```
	if strings.Contains(raw, "```") {
		lines := strings.Split(raw, "\n")
		var jsonLines []string
		inCodeBlock := false

		for _, line := range lines {
			if strings.HasPrefix(strings.TrimSpace(line), "```") {
				inCodeBlock = !inCodeBlock
				continue
			}
			if inCodeBlock {
				jsonLines = append(jsonLines, line)
			}
		}

		if len(jsonLines) > 0 {
			return strings.Join(jsonLines, "\n")
		}
	}

	// Look for the first { and try to find the matching }
	startIdx := strings.Index(raw, "{")
	if startIdx == -1 {
		startIdx = strings.Index(raw, "[")
		if startIdx == -1 {
			return ""
		}
	}

	openChar := raw[startIdx]
	closeChar := byte('}')
	if openChar == '[' {
		closeChar = ']'
	}

	count := 0
	for i := startIdx; i < len(raw); i++ {
		if raw[i] == openChar {
			count++
		} else if raw[i] == closeChar {
			count--
			if count == 0 {
				return raw[startIdx : i+1]
			}
		}
	}

	// No complete structure; return from start to end and let repair close it
	return raw[startIdx:]
}

// StripCodeFence removes a surrounding markdown code fence from an LLM
// response, if present. Used for diagram-source responses where the payload
// is not JSON.
func StripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return trimmed
	}

	// Drop the opening fence (with optional language tag) and a closing fence
	lines = lines[1:]
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		lines = lines[:len(lines)-1]
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}
