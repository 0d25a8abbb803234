// Package todos stores the derived records for TODO captures.
package todos

import (
	"context"

	"github.com/flitapp/flitsync/internal/models"
)

// Repository is the storage contract for todos.
type Repository interface {
	// UpsertForCapture inserts the todo or overwrites the classified
	// fields of the capture's existing todo (redelivery-safe).
	UpsertForCapture(ctx context.Context, t *models.Todo) error

	// GetByCaptureID returns the capture's todo or common.ErrNotFound.
	GetByCaptureID(ctx context.Context, captureID string) (*models.Todo, error)

	// Upsert inserts or fully replaces a todo by id (bulk pull).
	Upsert(ctx context.Context, t *models.Todo) error

	// DeleteByID removes a todo row.
	DeleteByID(ctx context.Context, id string) error

	// DeleteByCaptureID removes the capture's todo, if any.
	DeleteByCaptureID(ctx context.Context, captureID string) error

	// GetChangedSince lists todos with updated_at > since.
	GetChangedSince(ctx context.Context, since int64) ([]models.Todo, error)
}
