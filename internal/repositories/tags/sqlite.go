package tags

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

func (r *SQLiteRepository) GetOrCreate(ctx context.Context, name string) (*models.Tag, error) {
	existing, err := r.GetByName(ctx, name)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	t := models.NewTag(name)
	// A concurrent writer may have taken the name; ON CONFLICT keeps the
	// existing row and the re-read below returns it.
	query := `INSERT INTO tags (id, name, created_at) VALUES (?, ?, ?)
			ON CONFLICT(name) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, t.ID, t.Name, t.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to insert tag: %w", err)
	}
	return r.GetByName(ctx, name)
}

func (r *SQLiteRepository) LinkToCapture(ctx context.Context, captureID, tagID string) error {
	query := `INSERT OR IGNORE INTO capture_tags (capture_id, tag_id) VALUES (?, ?)`
	if _, err := r.db.ExecContext(ctx, query, captureID, tagID); err != nil {
		return fmt.Errorf("failed to link tag: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByName(ctx context.Context, name string) (*models.Tag, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, name, created_at FROM tags WHERE name = ?`, name)
	t := &models.Tag{}
	err := row.Scan(&t.ID, &t.Name, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return t, nil
}

func (r *SQLiteRepository) GetForCapture(ctx context.Context, captureID string) ([]models.Tag, error) {
	query := `SELECT t.id, t.name, t.created_at FROM tags t
			JOIN capture_tags ct ON ct.tag_id = t.id
			WHERE ct.capture_id = ?
			ORDER BY t.name ASC`
	return r.list(ctx, query, captureID)
}

// Upsert applies a server-side tag. A name collision with a different local
// tag id is reported as not-applied rather than clobbering the local tag.
func (r *SQLiteRepository) Upsert(ctx context.Context, t *models.Tag) (bool, error) {
	byName, err := r.GetByName(ctx, t.Name)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return false, err
	}
	if byName != nil && byName.ID != t.ID {
		return false, nil
	}

	query := `INSERT INTO tags (id, name, created_at) VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET name = excluded.name`
	if _, err := r.db.ExecContext(ctx, query, t.ID, t.Name, t.CreatedAt); err != nil {
		return false, fmt.Errorf("failed to upsert tag: %w", err)
	}
	return true, nil
}

func (r *SQLiteRepository) DeleteByID(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetChangedSince(ctx context.Context, since int64) ([]models.Tag, error) {
	return r.list(ctx, `SELECT id, name, created_at FROM tags WHERE created_at > ? ORDER BY created_at ASC`, since)
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]models.Tag, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select tags: %w", err)
	}
	defer rows.Close()

	var result []models.Tag
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
