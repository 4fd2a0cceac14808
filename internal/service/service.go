// Package service orchestrates the conversation-to-diagram pipeline on top
// of the stores, analyzer, trigger engine, diagram generators, and the
// broadcast hub.
package service

import (
	"context"

	"github.com/archflow/pkg/models"
)

// RenderDispatcher hands a diagram version off for best-effort PNG
// rendering. Implementations must not block the caller on render completion.
type RenderDispatcher interface {
	Dispatch(ctx context.Context, diagramID int64, format models.DiagramFormat)
}

// AddMessageRequest carries one inbound chat message. ConversationID takes
// precedence when set; otherwise the conversation is located (or created) by
// its (platform, channel_id, thread_id) natural key.
type AddMessageRequest struct {
	ConversationID int64           `json:"conversation_id,omitempty"`
	Platform       models.Platform `json:"platform"`
	ChannelID      string          `json:"channel_id"`
	ThreadID       string          `json:"thread_id"`
	Content        string          `json:"content"`
	UserID         string          `json:"user_id"`
	UserName       string          `json:"user_name,omitempty"`
}
