package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/archflow/pkg/models"
)

// MessageStore provides methods to store and retrieve messages
type MessageStore struct {
	db *sql.DB
}

// NewMessageStore creates a new message store
func NewMessageStore(db *sql.DB) *MessageStore {
	return &MessageStore{db: db}
}

// Insert stores a message. The classification fields are written once here
// and never updated afterwards.
func (s *MessageStore) Insert(ctx context.Context, msg *models.Message) error {
	entities, err := json.Marshal(msg.Entities)
	if err != nil {
		return fmt.Errorf("failed to marshal entities: %w", err)
	}

	query := `
	INSERT INTO messages (conversation_id, content, user_id, user_name, is_technical, confidence_score, entities)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING id, timestamp
	`

	err = s.db.QueryRowContext(
		ctx, query,
		msg.ConversationID, msg.Content, msg.UserID, msg.UserName,
		msg.IsTechnical, msg.ConfidenceScore, entities,
	).Scan(&msg.ID, &msg.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	return nil
}

// Recent retrieves the most recent messages of a conversation, newest first.
func (s *MessageStore) Recent(ctx context.Context, conversationID int64, limit int) ([]*models.Message, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
	SELECT id, conversation_id, content, user_id, user_name, timestamp, is_technical, confidence_score, entities
	FROM messages
	WHERE conversation_id = $1
	ORDER BY timestamp DESC
	LIMIT $2
	`

	return s.queryMessages(ctx, query, conversationID, limit)
}

// TechnicalSince retrieves technical messages newer than the cutoff, oldest
// first, preserving conversation order for prompt assembly.
func (s *MessageStore) TechnicalSince(ctx context.Context, conversationID int64, since time.Time) ([]*models.Message, error) {
	query := `
	SELECT id, conversation_id, content, user_id, user_name, timestamp, is_technical, confidence_score, entities
	FROM messages
	WHERE conversation_id = $1 AND is_technical = TRUE AND timestamp >= $2
	ORDER BY timestamp ASC
	`

	return s.queryMessages(ctx, query, conversationID, since)
}

// CountHighConfidenceSince counts technical messages in the trigger window
// at or above the confidence threshold. This is the trigger engine's input.
func (s *MessageStore) CountHighConfidenceSince(ctx context.Context, conversationID int64, since time.Time, threshold float64) (int, error) {
	query := `
	SELECT COUNT(*)
	FROM messages
	WHERE conversation_id = $1 AND is_technical = TRUE
	  AND timestamp >= $2 AND confidence_score >= $3
	`

	var count int
	err := s.db.QueryRowContext(ctx, query, conversationID, since, threshold).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count technical messages: %w", err)
	}
	return count, nil
}

func (s *MessageStore) queryMessages(ctx context.Context, query string, args ...interface{}) ([]*models.Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		var msg models.Message
		var entities []byte
		if err := rows.Scan(
			&msg.ID, &msg.ConversationID, &msg.Content, &msg.UserID, &msg.UserName,
			&msg.Timestamp, &msg.IsTechnical, &msg.ConfidenceScore, &entities,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if len(entities) > 0 {
			if err := json.Unmarshal(entities, &msg.Entities); err != nil {
				msg.Entities = nil
			}
		}
		messages = append(messages, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}
	return messages, nil
}
