package storage

import (
	"context"
	"testing"

	"github.com/flitapp/flitsync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDatabase_MigratesAndSeeds(t *testing.T) {
	ctx := context.Background()

	db, repos, err := InitDatabase(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	// The initial migration seeds the three system folders.
	for _, id := range []string{
		models.SystemFolderInbox,
		models.SystemFolderIdeas,
		models.SystemFolderBookmarks,
	} {
		f, err := repos.Folders.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.FolderTypeSystem, f.Type)
	}

	// The real schema accepts a full roundtrip.
	c := models.NewCapture("migrated schema smoke test", models.CaptureSourceApp)
	require.NoError(t, repos.Captures.Save(ctx, c))
	got, err := repos.Captures.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.OriginalText, got.OriginalText)
}

func TestRunMigrations_Idempotent(t *testing.T) {
	ctx := context.Background()

	db, _, err := InitDatabase(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, RunMigrations(ctx, db))
}
