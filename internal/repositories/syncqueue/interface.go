// Package syncqueue persists the durable outbound-operation queue.
package syncqueue

import (
	"context"

	"github.com/flitapp/flitsync/internal/models"
)

// Repository is the storage contract for sync queue items. Status transitions
// are performed here; deciding which transition applies is the processor's
// job.
type Repository interface {
	// Enqueue inserts a new PENDING item.
	Enqueue(ctx context.Context, item *models.SyncQueueItem) error

	// GetPendingItems returns PENDING items that are due at now (epoch ms):
	// never-attempted items first (next_retry_at NULL), then by scheduled
	// retry time, then arrival order. Items whose next_retry_at is in the
	// future are excluded.
	GetPendingItems(ctx context.Context, now int64) ([]models.SyncQueueItem, error)

	// GetByID returns a single item.
	GetByID(ctx context.Context, id string) (*models.SyncQueueItem, error)

	// UpdateStatus sets an item's status.
	UpdateStatus(ctx context.Context, id string, status models.SyncQueueStatus) error

	// IncrementRetry bumps retry_count and schedules the next attempt. If
	// the new retry_count has reached max_retries the item flips to FAILED
	// instead, in the same update.
	IncrementRetry(ctx context.Context, id string, nextRetryAt int64) error

	// DeleteCompleted prunes COMPLETED items.
	DeleteCompleted(ctx context.Context) error

	// ResetProcessingToPending moves every PROCESSING item back to PENDING.
	// Must run once at startup, before any processing, so a crash mid-attempt
	// cannot strand an item.
	ResetProcessingToPending(ctx context.Context) error
}
