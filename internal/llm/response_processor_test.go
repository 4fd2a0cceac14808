package llm

import (
	"testing"
)

type analysisPayload struct {
	IsTechnical     bool     `json:"is_technical"`
	ConfidenceScore float64  `json:"confidence_score"`
	Entities        []string `json:"entities"`
}

func TestProcessLLMResponse_PureJSON(t *testing.T) {
	raw := `{"is_technical": true, "confidence_score": 0.9, "entities": ["Redis"]}`

	var payload analysisPayload
	result, err := ProcessLLMResponse(raw, &payload)

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !result.Success {
		t.Error("Expected Success to be true")
	}
	if !payload.IsTechnical || payload.ConfidenceScore != 0.9 {
		t.Errorf("Unexpected payload: %+v", payload)
	}
}

func TestProcessLLMResponse_FencedJSON(t *testing.T) {
	raw := "Here is my analysis:\n```json\n{\"is_technical\": true, \"confidence_score\": 0.8, \"entities\": []}\n```\nLet me know if you need more."

	var payload analysisPayload
	_, err := ProcessLLMResponse(raw, &payload)

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !payload.IsTechnical {
		t.Error("Expected is_technical to be parsed from fenced block")
	}
}

func TestProcessLLMResponse_TruncatedJSON(t *testing.T) {
	raw := `{"is_technical": true, "confidence_score": 0.75, "entities": ["Kafka"`

	var payload analysisPayload
	result, err := ProcessLLMResponse(raw, &payload)

	if err != nil {
		t.Fatalf("Expected repair to recover truncated JSON, got: %v", err)
	}
	if !result.RepairStats.WasRepaired {
		t.Error("Expected WasRepaired to be true")
	}
	if !payload.IsTechnical || payload.ConfidenceScore != 0.75 {
		t.Errorf("Unexpected payload: %+v", payload)
	}
}

func TestProcessLLMResponse_NoJSON(t *testing.T) {
	var payload analysisPayload
	_, err := ProcessLLMResponse("I cannot analyze this message.", &payload)

	if err == nil {
		t.Error("Expected error when response contains no JSON")
	}
}

func TestExtractJSON_SurroundingProse(t *testing.T) {
	raw := `Sure! The result is {"components": []} as requested.`
	got := ExtractJSON(raw)

	if got != `{"components": []}` {
		t.Errorf("Expected brace-matched JSON, got: %q", got)
	}
}

func TestExtractJSON_Array(t *testing.T) {
	raw := `[1, 2, 3]`
	if got := ExtractJSON(raw); got != raw {
		t.Errorf("Expected array passthrough, got: %q", got)
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"no fence", "@startuml\n@enduml", "@startuml\n@enduml"},
		{"plain fence", "```\n@startuml\n@enduml\n```", "@startuml\n@enduml"},
		{"language tag", "```plantuml\n@startuml\n@enduml\n```", "@startuml\n@enduml"},
		{"xml fence", "```xml\n<mxfile></mxfile>\n```", "<mxfile></mxfile>"},
		{"missing closing fence", "```\n@startuml\n@enduml", "@startuml\n@enduml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripCodeFence(tt.input); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}
