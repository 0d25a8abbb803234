package captures

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/flitapp/flitsync/internal/common"
	"github.com/flitapp/flitsync/internal/dbx"
	"github.com/flitapp/flitsync/internal/models"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const captureColumns = `id, original_text, ai_title, classified_type, note_sub_type, confidence,
	source, parent_capture_id, is_confirmed, is_deleted, created_at, updated_at`

func (r *SQLiteRepository) Save(ctx context.Context, c *models.Capture) error {
	query := `INSERT INTO captures (` + captureColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.OriginalText, c.AiTitle, c.ClassifiedType, c.NoteSubType, c.Confidence,
		c.Source, c.ParentCaptureID, c.IsConfirmed, c.IsDeleted, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert capture: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Capture, error) {
	query := `SELECT ` + captureColumns + ` FROM captures WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)
	c, err := scanCapture(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) UpdateClassification(ctx context.Context, id string, t models.CaptureType,
	sub *models.NoteSubType, aiTitle *string, confidence models.Confidence) error {
	query := `UPDATE captures
			SET classified_type = ?, note_sub_type = ?, ai_title = ?, confidence = ?, updated_at = ?
			WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, t, sub, aiTitle, confidence, time.Now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("failed to update classification: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateTitle(ctx context.Context, id string, title string) error {
	query := `UPDATE captures SET ai_title = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, title, time.Now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("failed to update title: %w", err)
	}
	return nil
}

// Upsert inserts or replaces by id. On conflict all mutable columns are
// overwritten: the server copy wins during bulk pull.
func (r *SQLiteRepository) Upsert(ctx context.Context, c *models.Capture) error {
	query := `INSERT INTO captures (` + captureColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				original_text = excluded.original_text,
				ai_title = excluded.ai_title,
				classified_type = excluded.classified_type,
				note_sub_type = excluded.note_sub_type,
				confidence = excluded.confidence,
				source = excluded.source,
				parent_capture_id = excluded.parent_capture_id,
				is_confirmed = excluded.is_confirmed,
				is_deleted = excluded.is_deleted,
				updated_at = excluded.updated_at`
	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.OriginalText, c.AiTitle, c.ClassifiedType, c.NoteSubType, c.Confidence,
		c.Source, c.ParentCaptureID, c.IsConfirmed, c.IsDeleted, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert capture: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) SoftDelete(ctx context.Context, id string) error {
	query := `UPDATE captures SET is_deleted = 1, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, time.Now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("failed to soft-delete capture: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) HardDelete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM captures WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete capture: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetChangedSince(ctx context.Context, since int64) ([]models.Capture, error) {
	query := `SELECT ` + captureColumns + ` FROM captures WHERE updated_at > ? ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to select captures: %w", err)
	}
	defer rows.Close()

	var result []models.Capture
	for rows.Next() {
		c, err := scanCapture(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanCapture(scan func(dest ...any) error) (*models.Capture, error) {
	c := &models.Capture{}
	if err := scan(&c.ID, &c.OriginalText, &c.AiTitle, &c.ClassifiedType, &c.NoteSubType,
		&c.Confidence, &c.Source, &c.ParentCaptureID, &c.IsConfirmed, &c.IsDeleted,
		&c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return c, nil
}
