// Package tags stores tags and their n:m links to captures.
package tags

import (
	"context"

	"github.com/flitapp/flitsync/internal/models"
)

// Repository is the storage contract for tags.
type Repository interface {
	// GetOrCreate returns the tag with the given name, creating it first
	// if necessary.
	GetOrCreate(ctx context.Context, name string) (*models.Tag, error)

	// LinkToCapture attaches a tag to a capture. Linking an already-linked
	// pair is a no-op.
	LinkToCapture(ctx context.Context, captureID, tagID string) error

	// GetByName returns a tag by its unique name or common.ErrNotFound.
	GetByName(ctx context.Context, name string) (*models.Tag, error)

	// GetForCapture lists the tags linked to a capture.
	GetForCapture(ctx context.Context, captureID string) ([]models.Tag, error)

	// Upsert inserts or renames a tag by id (bulk pull). It fails with a
	// false return when the name is already taken by a different tag.
	Upsert(ctx context.Context, t *models.Tag) (bool, error)

	// DeleteByID removes a tag and its links.
	DeleteByID(ctx context.Context, id string) error

	// GetChangedSince lists tags with created_at > since.
	GetChangedSince(ctx context.Context, since int64) ([]models.Tag, error)
}
