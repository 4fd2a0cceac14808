package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/archflow/pkg/models"
)

// DiagramStore provides methods to store and retrieve diagram versions.
// Diagrams are append-only: a modification never updates an existing row.
type DiagramStore struct {
	db *sql.DB
}

// NewDiagramStore creates a new diagram store
func NewDiagramStore(db *sql.DB) *DiagramStore {
	return &DiagramStore{db: db}
}

const uniqueViolation = "23505"

// InsertVersion appends a new diagram version for the conversation. The
// version number is allocated inside the insert itself (max+1); concurrent
// writers that collide on the unique (conversation_id, version) constraint
// are retried, which keeps the counter monotonic and gap-free.
func (s *DiagramStore) InsertVersion(ctx context.Context, diagram *models.Diagram) error {
	query := `
	INSERT INTO diagrams (conversation_id, plantuml_code, drawio_xml, version, components_count, relationships_count)
	VALUES ($1, $2, $3,
		(SELECT COALESCE(MAX(version), 0) + 1 FROM diagrams WHERE conversation_id = $1),
		$4, $5)
	RETURNING id, version, created_at
	`

	for attempt := 0; ; attempt++ {
		err := s.db.QueryRowContext(
			ctx, query,
			diagram.ConversationID, diagram.PlantUMLCode, diagram.DrawioXML,
			diagram.ComponentsCount, diagram.RelationshipsCount,
		).Scan(&diagram.ID, &diagram.Version, &diagram.CreatedAt)
		if err == nil {
			log.Debug().
				Int64("diagram_id", diagram.ID).
				Int64("conversation_id", diagram.ConversationID).
				Int("version", diagram.Version).
				Msg("inserted diagram version")
			return nil
		}

		if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == uniqueViolation && attempt < 5 {
			continue
		}
		return fmt.Errorf("failed to insert diagram version: %w", err)
	}
}

// GetByID retrieves a diagram version by ID
func (s *DiagramStore) GetByID(ctx context.Context, id int64) (*models.Diagram, error) {
	query := `
	SELECT id, conversation_id, plantuml_code, drawio_xml, png_url, version, components_count, relationships_count, created_at
	FROM diagrams
	WHERE id = $1
	`

	var d models.Diagram
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&d.ID, &d.ConversationID, &d.PlantUMLCode, &d.DrawioXML, &d.PNGURL,
		&d.Version, &d.ComponentsCount, &d.RelationshipsCount, &d.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get diagram: %w", err)
	}
	return &d, nil
}

// Latest retrieves the highest version for a conversation, or ErrNotFound.
func (s *DiagramStore) Latest(ctx context.Context, conversationID int64) (*models.Diagram, error) {
	query := `
	SELECT id, conversation_id, plantuml_code, drawio_xml, png_url, version, components_count, relationships_count, created_at
	FROM diagrams
	WHERE conversation_id = $1
	ORDER BY version DESC
	LIMIT 1
	`

	var d models.Diagram
	err := s.db.QueryRowContext(ctx, query, conversationID).Scan(
		&d.ID, &d.ConversationID, &d.PlantUMLCode, &d.DrawioXML, &d.PNGURL,
		&d.Version, &d.ComponentsCount, &d.RelationshipsCount, &d.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get latest diagram: %w", err)
	}
	return &d, nil
}

// ListForConversation retrieves all versions for a conversation, newest first.
func (s *DiagramStore) ListForConversation(ctx context.Context, conversationID int64) ([]*models.Diagram, error) {
	query := `
	SELECT id, conversation_id, plantuml_code, drawio_xml, png_url, version, components_count, relationships_count, created_at
	FROM diagrams
	WHERE conversation_id = $1
	ORDER BY version DESC
	`

	rows, err := s.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list diagrams: %w", err)
	}
	defer rows.Close()

	var diagrams []*models.Diagram
	for rows.Next() {
		var d models.Diagram
		if err := rows.Scan(
			&d.ID, &d.ConversationID, &d.PlantUMLCode, &d.DrawioXML, &d.PNGURL,
			&d.Version, &d.ComponentsCount, &d.RelationshipsCount, &d.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan diagram: %w", err)
		}
		diagrams = append(diagrams, &d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read diagrams: %w", err)
	}
	return diagrams, nil
}

// SetPNGURL records the rendered artifact path for a version. This is the
// only post-insert update on a diagram row; the diagram sources themselves
// stay immutable.
func (s *DiagramStore) SetPNGURL(ctx context.Context, diagramID int64, url string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE diagrams SET png_url = $2 WHERE id = $1`, diagramID, url)
	if err != nil {
		return fmt.Errorf("failed to set png url: %w", err)
	}
	return nil
}
