package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/archflow/pkg/models"
)

// ModificationStore records every natural-language edit attempt, successful
// or not, for auditability.
type ModificationStore struct {
	db *sql.DB
}

// NewModificationStore creates a new modification store
func NewModificationStore(db *sql.DB) *ModificationStore {
	return &ModificationStore{db: db}
}

// Insert stores a modification audit record
func (s *ModificationStore) Insert(ctx context.Context, mod *models.Modification) error {
	query := `
	INSERT INTO modifications (diagram_id, request, user_id, success, error_message)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id, applied_at
	`

	err := s.db.QueryRowContext(
		ctx, query,
		mod.DiagramID, mod.Request, mod.UserID, mod.Success, mod.ErrorMessage,
	).Scan(&mod.ID, &mod.AppliedAt)
	if err != nil {
		return fmt.Errorf("failed to insert modification: %w", err)
	}
	return nil
}

// ListForDiagram retrieves the audit trail for one diagram version.
func (s *ModificationStore) ListForDiagram(ctx context.Context, diagramID int64) ([]*models.Modification, error) {
	query := `
	SELECT id, diagram_id, request, user_id, success, error_message, applied_at
	FROM modifications
	WHERE diagram_id = $1
	ORDER BY applied_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, diagramID)
	if err != nil {
		return nil, fmt.Errorf("failed to list modifications: %w", err)
	}
	defer rows.Close()

	var mods []*models.Modification
	for rows.Next() {
		var mod models.Modification
		if err := rows.Scan(
			&mod.ID, &mod.DiagramID, &mod.Request, &mod.UserID,
			&mod.Success, &mod.ErrorMessage, &mod.AppliedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan modification: %w", err)
		}
		mods = append(mods, &mod)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read modifications: %w", err)
	}
	return mods, nil
}
