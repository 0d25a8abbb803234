package schedules

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
CREATE TABLE schedules (
  id TEXT PRIMARY KEY,
  capture_id TEXT NOT NULL UNIQUE,
  start_time INTEGER,
  end_time INTEGER,
  location TEXT,
  is_all_day INTEGER NOT NULL DEFAULT 0,
  confidence TEXT NOT NULL DEFAULT 'MEDIUM',
  calendar_sync_status TEXT NOT NULL DEFAULT 'NONE',
  external_event_id TEXT,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);
`)
	require.NoError(t, err)
	return db
}

func newSchedule(captureID string) *models.Schedule {
	now := time.Now().UnixMilli()
	start := now + 3600_000
	return &models.Schedule{
		ID:                 uuid.NewString(),
		CaptureID:          captureID,
		StartTime:          &start,
		Confidence:         models.ConfidenceHigh,
		CalendarSyncStatus: models.CalendarSyncNone,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func TestUpsertForCapture_NoDuplicateRow(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	first := newSchedule("cap-1")
	id1, err := r.UpsertForCapture(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, first.ID, id1)

	// Redelivered classification for the same capture updates in place.
	second := newSchedule("cap-1")
	newStart := time.Now().UnixMilli() + 7200_000
	second.StartTime = &newStart
	id2, err := r.UpsertForCapture(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	got, err := r.GetByID(ctx, id1)
	require.NoError(t, err)
	require.NotNil(t, got.StartTime)
	assert.Equal(t, newStart, *got.StartTime)
}

func TestUpsertForCapture_PreservesCalendarSyncState(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	s := newSchedule("cap-1")
	id, err := r.UpsertForCapture(ctx, s)
	require.NoError(t, err)

	eventID := "gcal-evt-42"
	require.NoError(t, r.UpdateCalendarSync(ctx, id, models.CalendarSyncSynced, &eventID))

	// A re-classification must not detach the schedule from its event.
	again := newSchedule("cap-1")
	_, err = r.UpsertForCapture(ctx, again)
	require.NoError(t, err)

	got, err := r.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.CalendarSyncSynced, got.CalendarSyncStatus)
	require.NotNil(t, got.ExternalEventID)
	assert.Equal(t, eventID, *got.ExternalEventID)
}

func TestGetSynced(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	synced := newSchedule("cap-synced")
	idSynced, err := r.UpsertForCapture(ctx, synced)
	require.NoError(t, err)
	eventID := "evt-1"
	require.NoError(t, r.UpdateCalendarSync(ctx, idSynced, models.CalendarSyncSynced, &eventID))

	local := newSchedule("cap-local")
	_, err = r.UpsertForCapture(ctx, local)
	require.NoError(t, err)

	got, err := r.GetSynced(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, idSynced, got[0].ID)
}

func TestUpdateTimes(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	s := newSchedule("cap-1")
	id, err := r.UpsertForCapture(ctx, s)
	require.NoError(t, err)

	start := int64(5_000_000)
	end := int64(6_000_000)
	loc := "Office"
	require.NoError(t, r.UpdateTimes(ctx, id, &start, &end, &loc))

	got, err := r.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, start, *got.StartTime)
	assert.Equal(t, end, *got.EndTime)
	assert.Equal(t, loc, *got.Location)
}

func TestDeleteByID(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	s := newSchedule("cap-1")
	id, err := r.UpsertForCapture(ctx, s)
	require.NoError(t, err)
	require.NoError(t, r.DeleteByID(ctx, id))

	_, err = r.GetByID(ctx, id)
	assert.Error(t, err)
}

func TestGetByCaptureID(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	s := newSchedule("cap-7")
	_, err := r.UpsertForCapture(ctx, s)
	require.NoError(t, err)

	got, err := r.GetByCaptureID(ctx, "cap-7")
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)

	_, err = r.GetByCaptureID(ctx, "cap-none")
	assert.ErrorIs(t, err, common.ErrNotFound)
}
