// Package metadata is a small key/value store for sync bookkeeping.
package metadata

import "context"

// Keys used by the sync layer.
const (
	KeyLastSyncAt     = "sync_last_sync_at"
	KeyLastSyncCursor = "sync_last_sync_cursor"
	KeyLastSyncUserID = "sync_last_sync_user_id"
	KeySessionToken   = "session_token"
	KeyDeviceID       = "device_id"
)

// Repository is the storage contract for sync metadata.
type Repository interface {
	// Get returns the value for key or common.ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set inserts or replaces the value for key.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
}
