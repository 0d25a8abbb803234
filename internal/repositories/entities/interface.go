// Package entities stores the entities the classifier extracted from captures.
package entities

import (
	"context"

	"github.com/flitapp/flitsync/internal/models"
)

// Repository is the storage contract for extracted entities.
type Repository interface {
	// ReplaceForCapture deletes the capture's entities and inserts the
	// given set. Replacement, not merge: a re-classification owns the
	// whole entity set.
	ReplaceForCapture(ctx context.Context, captureID string, ents []models.ExtractedEntity) error

	// GetByCaptureID lists a capture's entities.
	GetByCaptureID(ctx context.Context, captureID string) ([]models.ExtractedEntity, error)
}
