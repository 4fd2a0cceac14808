package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/archflow/pkg/models"
)

// ConversationStore provides methods to store and retrieve conversations
type ConversationStore struct {
	db *sql.DB
}

// NewConversationStore creates a new conversation store
func NewConversationStore(db *sql.DB) *ConversationStore {
	return &ConversationStore{db: db}
}

// GetOrCreate finds the conversation for the given natural key or creates it.
// The unique constraint on (platform, channel_id, thread_id) makes this
// atomic with respect to concurrent creators: the insert is a no-op on
// conflict and the follow-up select sees the winner's row.
func (s *ConversationStore) GetOrCreate(ctx context.Context, platform models.Platform, channelID, threadID string) (*models.Conversation, error) {
	insert := `
	INSERT INTO conversations (platform, channel_id, thread_id)
	VALUES ($1, $2, $3)
	ON CONFLICT (platform, channel_id, thread_id) DO NOTHING
	RETURNING id, platform, channel_id, thread_id, created_at, updated_at
	`

	var conv models.Conversation
	err := s.db.QueryRowContext(ctx, insert, platform, channelID, threadID).Scan(
		&conv.ID, &conv.Platform, &conv.ChannelID, &conv.ThreadID, &conv.CreatedAt, &conv.UpdatedAt,
	)
	if err == nil {
		log.Debug().
			Int64("conversation_id", conv.ID).
			Str("platform", string(platform)).
			Msg("created conversation")
		return &conv, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	// Conflict: another caller created the row first
	query := `
	SELECT id, platform, channel_id, thread_id, created_at, updated_at
	FROM conversations
	WHERE platform = $1 AND channel_id = $2 AND thread_id = $3
	`
	err = s.db.QueryRowContext(ctx, query, platform, channelID, threadID).Scan(
		&conv.ID, &conv.Platform, &conv.ChannelID, &conv.ThreadID, &conv.CreatedAt, &conv.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	return &conv, nil
}

// GetByID retrieves a conversation by ID
func (s *ConversationStore) GetByID(ctx context.Context, id int64) (*models.Conversation, error) {
	query := `
	SELECT id, platform, channel_id, thread_id, created_at, updated_at
	FROM conversations
	WHERE id = $1
	`

	var conv models.Conversation
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&conv.ID, &conv.Platform, &conv.ChannelID, &conv.ThreadID, &conv.CreatedAt, &conv.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	return &conv, nil
}

// Touch updates the conversation's updated_at timestamp
func (s *ConversationStore) Touch(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE conversations SET updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	return nil
}

// Delete removes a conversation; messages and diagrams cascade.
func (s *ConversationStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
