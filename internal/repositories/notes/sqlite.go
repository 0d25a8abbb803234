package notes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

const noteColumns = `id, capture_id, folder_id, body, created_at, updated_at`

func (r *SQLiteRepository) UpsertForCapture(ctx context.Context, n *models.Note) error {
	query := `INSERT INTO notes (` + noteColumns + `)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(capture_id) DO UPDATE SET
				folder_id = excluded.folder_id,
				updated_at = excluded.updated_at`
	_, err := r.db.ExecContext(ctx, query,
		n.ID, n.CaptureID, n.FolderID, n.Body, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert note: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByCaptureID(ctx context.Context, captureID string) (*models.Note, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+noteColumns+` FROM notes WHERE capture_id = ?`, captureID)
	n, err := scanNote(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, n *models.Note) error {
	query := `INSERT INTO notes (` + noteColumns + `)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				capture_id = excluded.capture_id,
				folder_id = excluded.folder_id,
				body = excluded.body,
				updated_at = excluded.updated_at`
	_, err := r.db.ExecContext(ctx, query,
		n.ID, n.CaptureID, n.FolderID, n.Body, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert note: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteByCaptureID(ctx context.Context, captureID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM notes WHERE capture_id = ?`, captureID)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetChangedSince(ctx context.Context, since int64) ([]models.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE updated_at > ? ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to select notes: %w", err)
	}
	defer rows.Close()

	var result []models.Note
	for rows.Next() {
		n, err := scanNote(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanNote(scan func(dest ...any) error) (*models.Note, error) {
	n := &models.Note{}
	if err := scan(&n.ID, &n.CaptureID, &n.FolderID, &n.Body, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	return n, nil
}
