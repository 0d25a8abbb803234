// Package notes stores the derived records for NOTES captures.
package notes

import (
	"context"

	"github.com/flitapp/flitsync/internal/models"
)

// Repository is the storage contract for notes.
type Repository interface {
	// UpsertForCapture inserts the note or re-folders the capture's
	// existing note (redelivery-safe).
	UpsertForCapture(ctx context.Context, n *models.Note) error

	// GetByCaptureID returns the capture's note or common.ErrNotFound.
	GetByCaptureID(ctx context.Context, captureID string) (*models.Note, error)

	// Upsert inserts or fully replaces a note by id (bulk pull).
	Upsert(ctx context.Context, n *models.Note) error

	// DeleteByID removes a note row.
	DeleteByID(ctx context.Context, id string) error

	// DeleteByCaptureID removes the capture's note, if any.
	DeleteByCaptureID(ctx context.Context, captureID string) error

	// GetChangedSince lists notes with updated_at > since.
	GetChangedSince(ctx context.Context, since int64) ([]models.Note, error)
}
