// Package captures stores capture rows, the root entity of the local store.
package captures

import (
	"context"

	"github.com/flitapp/flitsync/internal/models"
)

// Repository is the storage contract for captures.
type Repository interface {
	// Save inserts a new capture.
	Save(ctx context.Context, c *models.Capture) error

	// GetByID returns one capture or common.ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.Capture, error)

	// UpdateClassification writes the classifier's verdict onto a capture.
	UpdateClassification(ctx context.Context, id string, t models.CaptureType,
		sub *models.NoteSubType, aiTitle *string, confidence models.Confidence) error

	// UpdateTitle overwrites the AI title (used when a calendar conflict is
	// resolved in favor of the external event).
	UpdateTitle(ctx context.Context, id string, title string) error

	// Upsert inserts or fully replaces a capture by id (bulk pull).
	Upsert(ctx context.Context, c *models.Capture) error

	// SoftDelete marks a capture deleted so the tombstone still reaches
	// the server on the next push. Returns common.ErrNotFound for an
	// unknown id.
	SoftDelete(ctx context.Context, id string) error

	// HardDelete removes a capture row (bulk pull deletions).
	HardDelete(ctx context.Context, id string) error

	// GetChangedSince lists captures with updated_at > since; since <= 0
	// returns everything.
	GetChangedSince(ctx context.Context, since int64) ([]models.Capture, error)
}
