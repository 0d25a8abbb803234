package folders

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

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Folder, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, type, sort_order, created_at FROM folders WHERE id = ?`, id)
	f := &models.Folder{}
	err := row.Scan(&f.ID, &f.Name, &f.Type, &f.SortOrder, &f.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return f, nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, f *models.Folder) error {
	query := `INSERT INTO folders (id, name, type, sort_order, created_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				type = excluded.type,
				sort_order = excluded.sort_order`
	_, err := r.db.ExecContext(ctx, query, f.ID, f.Name, f.Type, f.SortOrder, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert folder: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM folders WHERE id = ? AND type != 'SYSTEM'`, id)
	if err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetChangedSince(ctx context.Context, since int64) ([]models.Folder, error) {
	query := `SELECT id, name, type, sort_order, created_at FROM folders
			WHERE created_at > ? ORDER BY sort_order ASC`
	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to select folders: %w", err)
	}
	defer rows.Close()

	var result []models.Folder
	for rows.Next() {
		var f models.Folder
		if err := rows.Scan(&f.ID, &f.Name, &f.Type, &f.SortOrder, &f.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
