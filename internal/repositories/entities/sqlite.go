package entities

import (
	"context"
	"fmt"

	"github.com/flitapp/flitsync/internal/dbx"
	"github.com/flitapp/flitsync/internal/models"
	"github.com/google/uuid"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) ReplaceForCapture(ctx context.Context, captureID string, ents []models.ExtractedEntity) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM extracted_entities WHERE capture_id = ?`, captureID); err != nil {
		return fmt.Errorf("failed to clear entities: %w", err)
	}

	query := `INSERT INTO extracted_entities (id, capture_id, type, value, normalized_value) VALUES (?, ?, ?, ?, ?)`
	for _, e := range ents {
		id := e.ID
		if id == "" {
			id = uuid.NewString()
		}
		if _, err := r.db.ExecContext(ctx, query, id, captureID, e.Type, e.Value, e.NormalizedValue); err != nil {
			return fmt.Errorf("failed to insert entity: %w", err)
		}
	}
	return nil
}

func (r *SQLiteRepository) GetByCaptureID(ctx context.Context, captureID string) ([]models.ExtractedEntity, error) {
	query := `SELECT id, capture_id, type, value, normalized_value
			FROM extracted_entities WHERE capture_id = ? ORDER BY rowid ASC`
	rows, err := r.db.QueryContext(ctx, query, captureID)
	if err != nil {
		return nil, fmt.Errorf("failed to select entities: %w", err)
	}
	defer rows.Close()

	var result []models.ExtractedEntity
	for rows.Next() {
		var e models.ExtractedEntity
		if err := rows.Scan(&e.ID, &e.CaptureID, &e.Type, &e.Value, &e.NormalizedValue); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
