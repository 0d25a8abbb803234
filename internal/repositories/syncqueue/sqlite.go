package syncqueue

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

func (r *SQLiteRepository) Enqueue(ctx context.Context, item *models.SyncQueueItem) error {
	query := `INSERT INTO sync_queue (id, action, payload, retry_count, max_retries, status, created_at, next_retry_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		item.ID, item.Action, []byte(item.Payload), item.RetryCount, item.MaxRetries,
		item.Status, item.CreatedAt, item.NextRetryAt)
	if err != nil {
		return fmt.Errorf("failed to enqueue item: %w", err)
	}
	return nil
}

// GetPendingItems orders never-attempted items before scheduled retries and
// filters out retries whose time has not come yet.
func (r *SQLiteRepository) GetPendingItems(ctx context.Context, now int64) ([]models.SyncQueueItem, error) {
	query := `SELECT id, action, payload, retry_count, max_retries, status, created_at, next_retry_at
			FROM sync_queue
			WHERE status = 'PENDING' AND (next_retry_at IS NULL OR next_retry_at <= ?)
			ORDER BY next_retry_at IS NOT NULL, next_retry_at ASC, created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to select pending items: %w", err)
	}
	defer rows.Close()

	var result []models.SyncQueueItem
	for rows.Next() {
		item, err := scanItem(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.SyncQueueItem, error) {
	query := `SELECT id, action, payload, retry_count, max_retries, status, created_at, next_retry_at
			FROM sync_queue WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)
	item, err := scanItem(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return item, nil
}

func (r *SQLiteRepository) UpdateStatus(ctx context.Context, id string, status models.SyncQueueStatus) error {
	_, err := r.db.ExecContext(ctx, `UPDATE sync_queue SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	return nil
}

// IncrementRetry performs the retry transition atomically: the item goes back
// to PENDING with a schedule, or to FAILED when the bumped count exhausts the
// budget. next_retry_at is cleared on the FAILED branch since the item will
// never be picked up again.
func (r *SQLiteRepository) IncrementRetry(ctx context.Context, id string, nextRetryAt int64) error {
	query := `UPDATE sync_queue
			SET retry_count = retry_count + 1,
				status = CASE WHEN retry_count + 1 >= max_retries THEN 'FAILED' ELSE 'PENDING' END,
				next_retry_at = CASE WHEN retry_count + 1 >= max_retries THEN NULL ELSE ? END
			WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, nextRetryAt, id)
	if err != nil {
		return fmt.Errorf("failed to increment retry: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteCompleted(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sync_queue WHERE status = 'COMPLETED'`)
	if err != nil {
		return fmt.Errorf("failed to delete completed items: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ResetProcessingToPending(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `UPDATE sync_queue SET status = 'PENDING' WHERE status = 'PROCESSING'`)
	if err != nil {
		return fmt.Errorf("failed to reset processing items: %w", err)
	}
	return nil
}

func scanItem(scan func(dest ...any) error) (*models.SyncQueueItem, error) {
	item := &models.SyncQueueItem{}
	var payload []byte
	if err := scan(&item.ID, &item.Action, &payload, &item.RetryCount, &item.MaxRetries,
		&item.Status, &item.CreatedAt, &item.NextRetryAt); err != nil {
		return nil, err
	}
	item.Payload = payload
	return item, nil
}
