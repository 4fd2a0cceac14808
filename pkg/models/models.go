package models

import (
	"time"
)

// Platform identifies the chat surface a conversation originates from.
type Platform string

const (
	PlatformWeb   Platform = "web"
	PlatformTeams Platform = "teams"
	PlatformSlack Platform = "slack"
)

// DiagramFormat names one of the two supported diagram representations.
type DiagramFormat string

const (
	FormatPlantUML DiagramFormat = "plantuml"
	FormatDrawio   DiagramFormat = "drawio"
)

// ComponentType classifies an architectural component. Free-form values are
// tolerated; unrecognized types fall into the default rendering bucket.
type ComponentType string

const (
	ComponentService      ComponentType = "service"
	ComponentDatabase     ComponentType = "database"
	ComponentAPI          ComponentType = "api"
	ComponentQueue        ComponentType = "queue"
	ComponentCache        ComponentType = "cache"
	ComponentFrontend     ComponentType = "frontend"
	ComponentBackend      ComponentType = "backend"
	ComponentLoadBalancer ComponentType = "loadbalancer"
	ComponentGateway      ComponentType = "gateway"
)

// RelationshipType classifies how two components interact.
type RelationshipType string

const (
	RelAPICall        RelationshipType = "api_call"
	RelDataFlow       RelationshipType = "data_flow"
	RelDependency     RelationshipType = "dependency"
	RelAuthentication RelationshipType = "authentication"
	RelStorage        RelationshipType = "storage"
)

// Component is one architectural entity extracted from a conversation.
// Name is the join key for relationships within the same extraction and must
// be non-empty; uniqueness is enforced by the extraction step, not here.
type Component struct {
	Type         ComponentType `json:"type"`
	Name         string        `json:"name"`
	Technologies []string      `json:"technologies"`
}

// Relationship connects two components by name. Both endpoints must resolve
// to a Component in the same extraction to be renderable; unresolved
// references are dropped at generation time.
type Relationship struct {
	Source string           `json:"source"`
	Target string           `json:"target"`
	Type   RelationshipType `json:"relationship_type"`
	Label  string           `json:"label,omitempty"`
}

// ArchitectureExtraction is the sole contract between the extraction step and
// the diagram generators. It is immutable once produced.
type ArchitectureExtraction struct {
	Components    []Component    `json:"components"`
	Relationships []Relationship `json:"relationships"`
	Context       string         `json:"context"`
}

// Empty reports whether the extraction carries no architectural facts.
func (e ArchitectureExtraction) Empty() bool {
	return len(e.Components) == 0 && len(e.Relationships) == 0
}

// Component looks up a component by name. Returns nil when absent.
func (e ArchitectureExtraction) Component(name string) *Component {
	for i := range e.Components {
		if e.Components[i].Name == name {
			return &e.Components[i]
		}
	}
	return nil
}

// TechnicalAnalysis is the classification result for a single message.
// On collaborator failure the analyzer fails closed: IsTechnical=false,
// ConfidenceScore=0, with the error text in Reasoning.
type TechnicalAnalysis struct {
	IsTechnical     bool     `json:"is_technical"`
	ConfidenceScore float64  `json:"confidence_score"`
	Entities        []string `json:"entities"`
	Reasoning       string   `json:"reasoning"`
}

// ChatMessage is the minimal message view fed into architecture extraction.
type ChatMessage struct {
	Content string `json:"content"`
	Author  string `json:"author"`
}

// Conversation is the owning aggregate for messages and diagram versions.
// The (platform, channel_id, thread_id) tuple is a natural key with a unique
// constraint; get-or-create by this key is atomic.
type Conversation struct {
	ID        int64      `json:"id" db:"id"`
	Platform  Platform   `json:"platform" db:"platform"`
	ChannelID string     `json:"channel_id" db:"channel_id"`
	ThreadID  string     `json:"thread_id" db:"thread_id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// Message is one inbound chat event. Classification fields are set exactly
// once, at creation, by the analyzer; the row is never mutated afterwards.
type Message struct {
	ID              int64     `json:"id" db:"id"`
	ConversationID  int64     `json:"conversation_id" db:"conversation_id"`
	Content         string    `json:"content" db:"content"`
	UserID          string    `json:"user_id" db:"user_id"`
	UserName        *string   `json:"user_name,omitempty" db:"user_name"`
	Timestamp       time.Time `json:"timestamp" db:"timestamp"`
	IsTechnical     bool      `json:"is_technical" db:"is_technical"`
	ConfidenceScore float64   `json:"confidence_score" db:"confidence_score"`
	Entities        []string  `json:"entities" db:"entities"`
}

// Author returns the display name used for prompt attribution.
func (m Message) Author() string {
	if m.UserName != nil && *m.UserName != "" {
		return *m.UserName
	}
	return m.UserID
}

// Diagram is one immutable snapshot of both diagram formats. Versions are
// append-only and monotonically increasing per conversation, starting at 1.
type Diagram struct {
	ID                 int64     `json:"id" db:"id"`
	ConversationID     int64     `json:"conversation_id" db:"conversation_id"`
	PlantUMLCode       string    `json:"plantuml_code" db:"plantuml_code"`
	DrawioXML          string    `json:"drawio_xml" db:"drawio_xml"`
	PNGURL             *string   `json:"png_url,omitempty" db:"png_url"`
	Version            int       `json:"version" db:"version"`
	ComponentsCount    int       `json:"components_count" db:"components_count"`
	RelationshipsCount int       `json:"relationships_count" db:"relationships_count"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
}

// Source returns the stored source text for the given format.
func (d Diagram) Source(format DiagramFormat) (string, bool) {
	switch format {
	case FormatPlantUML:
		return d.PlantUMLCode, true
	case FormatDrawio:
		return d.DrawioXML, true
	default:
		return "", false
	}
}

// Modification is the audit record of one natural-language edit attempt,
// recorded for failed attempts too. DiagramID references the version the
// edit produced, or the version it targeted when the edit failed.
type Modification struct {
	ID           int64     `json:"id" db:"id"`
	DiagramID    int64     `json:"diagram_id" db:"diagram_id"`
	Request      string    `json:"request" db:"request"`
	UserID       *string   `json:"user_id,omitempty" db:"user_id"`
	Success      bool      `json:"success" db:"success"`
	ErrorMessage *string   `json:"error_message,omitempty" db:"error_message"`
	AppliedAt    time.Time `json:"applied_at" db:"applied_at"`
}

// ModificationResult is what the modification pipeline returns to callers.
// Failures are reported through Success/ErrorMessage, never as errors.
type ModificationResult struct {
	Success      bool     `json:"success"`
	Diagram      *Diagram `json:"new_diagram,omitempty"`
	ErrorMessage string   `json:"error_message,omitempty"`
}

// MessageResult is the response to message ingestion. Submission always
// succeeds; degraded analysis shows up as a non-technical zero-confidence
// classification.
type MessageResult struct {
	Message         *Message `json:"message"`
	IsTechnical     bool     `json:"is_technical"`
	ConfidenceScore float64  `json:"confidence_score"`
	Entities        []string `json:"entities"`
}
