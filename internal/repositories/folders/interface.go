// Package folders stores note folders, including the seeded system folders.
package folders

import (
	"context"

	"github.com/flitapp/flitsync/internal/models"
)

// Repository is the storage contract for folders.
type Repository interface {
	// GetByID returns one folder or common.ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.Folder, error)

	// Upsert inserts or fully replaces a folder by id (bulk pull).
	Upsert(ctx context.Context, f *models.Folder) error

	// DeleteByID removes a user folder. System folders are never deleted.
	DeleteByID(ctx context.Context, id string) error

	// GetChangedSince lists folders with created_at > since.
	GetChangedSince(ctx context.Context, since int64) ([]models.Folder, error)
}
