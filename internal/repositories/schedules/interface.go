// Package schedules stores the derived records for SCHEDULE captures.
package schedules

import (
	"context"

	"github.com/flitapp/flitsync/internal/models"
)

// Repository is the storage contract for schedules.
type Repository interface {
	// UpsertForCapture inserts the schedule or, if the capture already has
	// one, overwrites its classified fields in place. The id of the row
	// that ends up holding the schedule is returned, so redelivered
	// classifications stay idempotent.
	UpsertForCapture(ctx context.Context, s *models.Schedule) (string, error)

	// GetByID returns one schedule or common.ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.Schedule, error)

	// GetByCaptureID returns the capture's schedule or common.ErrNotFound.
	GetByCaptureID(ctx context.Context, captureID string) (*models.Schedule, error)

	// GetSynced lists schedules that have an external calendar event.
	GetSynced(ctx context.Context) ([]models.Schedule, error)

	// UpdateCalendarSync sets the calendar sync status and, when non-nil,
	// the external event id.
	UpdateCalendarSync(ctx context.Context, id string, status models.CalendarSyncStatus, eventID *string) error

	// UpdateTimes rewrites start/end/location (conflict resolution pulls).
	UpdateTimes(ctx context.Context, id string, start, end *int64, location *string) error

	// Upsert inserts or fully replaces a schedule by id (bulk pull).
	Upsert(ctx context.Context, s *models.Schedule) error

	// DeleteByID removes a schedule row.
	DeleteByID(ctx context.Context, id string) error

	// DeleteByCaptureID removes the capture's schedule, if any.
	DeleteByCaptureID(ctx context.Context, captureID string) error

	// GetChangedSince lists schedules with updated_at > since.
	GetChangedSince(ctx context.Context, since int64) ([]models.Schedule, error)
}
