package todos

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

const todoColumns = `id, capture_id, deadline, deadline_source, is_completed, sort_order, created_at, updated_at`

// UpsertForCapture keys on capture_id so a redelivered classification cannot
// create a second todo. Completion state and manual ordering survive the
// update.
func (r *SQLiteRepository) UpsertForCapture(ctx context.Context, t *models.Todo) error {
	query := `INSERT INTO todos (` + todoColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(capture_id) DO UPDATE SET
				deadline = excluded.deadline,
				deadline_source = excluded.deadline_source,
				updated_at = excluded.updated_at`
	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.CaptureID, t.Deadline, t.DeadlineSource, t.IsCompleted, t.SortOrder, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert todo: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByCaptureID(ctx context.Context, captureID string) (*models.Todo, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+todoColumns+` FROM todos WHERE capture_id = ?`, captureID)
	t, err := scanTodo(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return t, nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, t *models.Todo) error {
	query := `INSERT INTO todos (` + todoColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				capture_id = excluded.capture_id,
				deadline = excluded.deadline,
				deadline_source = excluded.deadline_source,
				is_completed = excluded.is_completed,
				sort_order = excluded.sort_order,
				updated_at = excluded.updated_at`
	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.CaptureID, t.Deadline, t.DeadlineSource, t.IsCompleted, t.SortOrder, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert todo: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM todos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete todo: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteByCaptureID(ctx context.Context, captureID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM todos WHERE capture_id = ?`, captureID)
	if err != nil {
		return fmt.Errorf("failed to delete todo: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetChangedSince(ctx context.Context, since int64) ([]models.Todo, error) {
	query := `SELECT ` + todoColumns + ` FROM todos WHERE updated_at > ? ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to select todos: %w", err)
	}
	defer rows.Close()

	var result []models.Todo
	for rows.Next() {
		t, err := scanTodo(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanTodo(scan func(dest ...any) error) (*models.Todo, error) {
	t := &models.Todo{}
	if err := scan(&t.ID, &t.CaptureID, &t.Deadline, &t.DeadlineSource, &t.IsCompleted,
		&t.SortOrder, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return t, nil
}
