package todos

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/flitapp/flitsync/internal/common"
	"github.com/flitapp/flitsync/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE todos (
  id TEXT PRIMARY KEY,
  capture_id TEXT NOT NULL UNIQUE,
  deadline INTEGER,
  deadline_source TEXT,
  is_completed INTEGER NOT NULL DEFAULT 0,
  sort_order INTEGER NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);
`)
	require.NoError(t, err)
	return db
}

func newTodo(captureID string) *models.Todo {
	now := time.Now().UnixMilli()
	return &models.Todo{
		ID:        uuid.NewString(),
		CaptureID: captureID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestUpsertForCapture_PreservesUserState(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	first := newTodo("cap-1")
	require.NoError(t, r.UpsertForCapture(ctx, first))

	// User completes and reorders the todo.
	_, err := db.Exec(`UPDATE todos SET is_completed = 1, sort_order = 5 WHERE id = ?`, first.ID)
	require.NoError(t, err)

	// A re-classification brings a new deadline but must not undo the user.
	second := newTodo("cap-1")
	deadline := time.Now().UnixMilli() + 86_400_000
	src := models.DeadlineSourceAIExtracted
	second.Deadline = &deadline
	second.DeadlineSource = &src
	require.NoError(t, r.UpsertForCapture(ctx, second))

	got, err := r.GetByCaptureID(ctx, "cap-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.True(t, got.IsCompleted)
	assert.Equal(t, 5, got.SortOrder)
	require.NotNil(t, got.Deadline)
	assert.Equal(t, deadline, *got.Deadline)
	require.NotNil(t, got.DeadlineSource)
	assert.Equal(t, models.DeadlineSourceAIExtracted, *got.DeadlineSource)
}

func TestGetByCaptureID_NotFound(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)

	_, err := r.GetByCaptureID(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUpsertAndDelete(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	todo := newTodo("cap-1")
	require.NoError(t, r.Upsert(ctx, todo))

	todo.IsCompleted = true
	todo.UpdatedAt = time.Now().UnixMilli() + 1
	require.NoError(t, r.Upsert(ctx, todo))

	got, err := r.GetByCaptureID(ctx, "cap-1")
	require.NoError(t, err)
	assert.True(t, got.IsCompleted)

	require.NoError(t, r.DeleteByID(ctx, todo.ID))
	_, err = r.GetByCaptureID(ctx, "cap-1")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGetChangedSince(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	old := newTodo("cap-old")
	old.CreatedAt = 1000
	old.UpdatedAt = 1000
	require.NoError(t, r.Upsert(ctx, old))

	recent := newTodo("cap-recent")
	recent.CreatedAt = 3000
	recent.UpdatedAt = 3000
	require.NoError(t, r.Upsert(ctx, recent))

	changed, err := r.GetChangedSince(ctx, 2000)
	require.NoError(t, err)
	require.Len(t, changed, 1)
	assert.Equal(t, recent.ID, changed[0].ID)
}
