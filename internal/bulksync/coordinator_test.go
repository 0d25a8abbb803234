package bulksync

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flitapp/flitsync/internal/common"
	"github.com/flitapp/flitsync/internal/logging"
	"github.com/flitapp/flitsync/internal/models"
	"github.com/flitapp/flitsync/internal/remote"
	"github.com/flitapp/flitsync/internal/repositories/metadata"
	"github.com/flitapp/flitsync/internal/storage"
)

// fakeAPI scripts push acknowledgements and pull pages.
type fakeAPI struct {
	pushReqs  []remote.SyncPushRequest
	pushErrs  []error
	pullPages []remote.SyncPullResponse
	pullReqs  []remote.SyncPullRequest
	pullErr   error
}

func (f *fakeAPI) Classify(context.Context, remote.ClassifyRequest) (*remote.ClassifyResponse, error) {
	panic("not used")
}

func (f *fakeAPI) CreateCalendarEvent(context.Context, remote.CalendarEvent) (*remote.CalendarEvent, error) {
	panic("not used")
}

func (f *fakeAPI) UpdateCalendarEvent(context.Context, remote.CalendarEvent) (*remote.CalendarEvent, error) {
	panic("not used")
}

func (f *fakeAPI) DeleteCalendarEvent(context.Context, string) error {
	panic("not used")
}

func (f *fakeAPI) GetCalendarEvent(context.Context, string) (*remote.CalendarEvent, error) {
	panic("not used")
}

func (f *fakeAPI) SyncPush(_ context.Context, req remote.SyncPushRequest) (*remote.SyncPushResponse, error) {
	f.pushReqs = append(f.pushReqs, req)
	if len(f.pushErrs) > 0 {
		err := f.pushErrs[0]
		f.pushErrs = f.pushErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &remote.SyncPushResponse{Acknowledged: len(req.Changes), UserID: "user-a"}, nil
}

func (f *fakeAPI) SyncPull(_ context.Context, req remote.SyncPullRequest) (*remote.SyncPullResponse, error) {
	f.pullReqs = append(f.pullReqs, req)
	if f.pullErr != nil {
		return nil, f.pullErr
	}
	if len(f.pullPages) == 0 {
		return &remote.SyncPullResponse{UserID: "user-a"}, nil
	}
	page := f.pullPages[0]
	f.pullPages = f.pullPages[1:]
	return &page, nil
}

func (f *fakeAPI) SendAnalytics(context.Context, remote.AnalyticsEventsRequest) error {
	panic("not used")
}

func setup(t *testing.T) (*sql.DB, *storage.Repositories, *fakeAPI, *Coordinator) {
	t.Helper()
	db, repos, err := storage.InitDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	api := &fakeAPI{}
	log := logging.NewTextLogger(io.Discard, slog.LevelDebug)
	return db, repos, api, NewCoordinator(db, repos, api, log)
}

func upsertItem(t *testing.T, entityType, id string, payload any) remote.SyncPullItem {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return remote.SyncPullItem{EntityType: entityType, Operation: "upsert", ServerID: id, Data: data}
}

func deleteItem(entityType, id string) remote.SyncPullItem {
	return remote.SyncPullItem{EntityType: entityType, Operation: "delete", ServerID: id}
}

func TestPushLocalData_NothingToPush(t *testing.T) {
	_, _, api, coord := setup(t)

	res, err := coord.PushLocalData(context.Background(), "user-a")
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Empty(t, api.pushReqs)
}

func TestPushLocalData_PushesChangedEntities(t *testing.T) {
	_, repos, api, coord := setup(t)
	ctx := context.Background()

	c := models.NewCapture("buy milk", models.CaptureSourceApp)
	require.NoError(t, repos.Captures.Save(ctx, c))

	res, err := coord.PushLocalData(ctx, "user-a")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.PushedCount)

	require.Len(t, api.pushReqs, 1)
	req := api.pushReqs[0]
	assert.NotEmpty(t, req.DeviceID)
	require.Len(t, req.Changes, 1)
	assert.Equal(t, "capture", req.Changes[0].EntityType)
	assert.Equal(t, "upsert", req.Changes[0].Operation)
	assert.Equal(t, c.ID, req.Changes[0].ClientID)

	var d captureDTO
	require.NoError(t, json.Unmarshal(req.Changes[0].Data, &d))
	assert.Equal(t, "buy milk", d.OriginalText)

	// Bookkeeping recorded for the watermark and the owning user.
	last, err := coord.GetLastSyncAt(ctx)
	require.NoError(t, err)
	assert.Greater(t, last, int64(0))
	uid, err := repos.Metadata.Get(ctx, metadata.KeyLastSyncUserID)
	require.NoError(t, err)
	assert.Equal(t, "user-a", uid)
}

func TestPushLocalData_SecondPushSkips(t *testing.T) {
	_, repos, api, coord := setup(t)
	ctx := context.Background()

	c := models.NewCapture("buy milk", models.CaptureSourceApp)
	require.NoError(t, repos.Captures.Save(ctx, c))

	_, err := coord.PushLocalData(ctx, "user-a")
	require.NoError(t, err)

	res, err := coord.PushLocalData(ctx, "user-a")
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Len(t, api.pushReqs, 1)
}

func TestPushLocalData_AccountSwitch(t *testing.T) {
	_, repos, api, coord := setup(t)
	ctx := context.Background()

	require.NoError(t, repos.Metadata.Set(ctx, metadata.KeyLastSyncUserID, "user-a"))
	c := models.NewCapture("buy milk", models.CaptureSourceApp)
	require.NoError(t, repos.Captures.Save(ctx, c))

	res, err := coord.PushLocalData(ctx, "user-b")
	require.NoError(t, err)
	assert.True(t, res.AccountSwitchRequired)
	assert.False(t, res.Success)
	assert.Empty(t, api.pushReqs)
}

func TestPushLocalData_RetriesTransientErrors(t *testing.T) {
	_, repos, api, coord := setup(t)
	ctx := context.Background()

	api.pushErrs = []error{common.ErrTransientNetwork, nil}
	c := models.NewCapture("flaky push", models.CaptureSourceApp)
	require.NoError(t, repos.Captures.Save(ctx, c))

	res, err := coord.PushLocalData(ctx, "user-a")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Len(t, api.pushReqs, 2)
}

func TestPushLocalData_NonRetryableFailsFast(t *testing.T) {
	_, repos, api, coord := setup(t)
	ctx := context.Background()

	api.pushErrs = []error{common.ErrUnauthorized}
	c := models.NewCapture("no session", models.CaptureSourceApp)
	require.NoError(t, repos.Captures.Save(ctx, c))

	_, err := coord.PushLocalData(ctx, "user-a")
	assert.ErrorIs(t, err, common.ErrUnauthorized)
	assert.Len(t, api.pushReqs, 1)

	// Failed pushes must not advance the watermark.
	last, err := coord.GetLastSyncAt(ctx)
	require.NoError(t, err)
	assert.Zero(t, last)
}

func TestPullServerData_AppliesUpsertsParentFirst(t *testing.T) {
	_, repos, api, coord := setup(t)
	ctx := context.Background()

	now := time.Now().UnixMilli()
	// The page lists the note before its folder and capture; ordering is
	// the coordinator's job.
	api.pullPages = []remote.SyncPullResponse{{
		Changes: []remote.SyncPullItem{
			upsertItem(t, "note", "n-1", noteDTO{
				ID: "n-1", CaptureID: "c-1", FolderID: "f-1", CreatedAt: now, UpdatedAt: now,
			}),
			upsertItem(t, "capture", "c-1", captureDTO{
				ID: "c-1", OriginalText: "remote note", ClassifiedType: "NOTES",
				Source: "APP", CreatedAt: now, UpdatedAt: now,
			}),
			upsertItem(t, "folder", "f-1", folderDTO{
				ID: "f-1", Name: "Work", Type: "USER", SortOrder: 10, CreatedAt: now,
			}),
		},
		UserID: "user-a",
	}}

	res, err := coord.PullServerData(ctx, "user-a")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 3, res.PulledCount)

	got, err := repos.Captures.GetByID(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, "remote note", got.OriginalText)
	f, err := repos.Folders.GetByID(ctx, "f-1")
	require.NoError(t, err)
	assert.Equal(t, "Work", f.Name)
	n, err := repos.Notes.GetByCaptureID(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, "f-1", n.FolderID)
}

func TestPullServerData_AppliesDeletionsChildFirst(t *testing.T) {
	_, repos, api, coord := setup(t)
	ctx := context.Background()

	c := models.NewCapture("done with this", models.CaptureSourceApp)
	require.NoError(t, repos.Captures.Save(ctx, c))
	now := time.Now().UnixMilli()
	require.NoError(t, repos.Todos.UpsertForCapture(ctx, &models.Todo{
		ID: "t-1", CaptureID: c.ID, CreatedAt: now, UpdatedAt: now,
	}))

	// Capture listed before its todo; the coordinator reorders.
	api.pullPages = []remote.SyncPullResponse{{
		Changes: []remote.SyncPullItem{
			deleteItem("capture", c.ID),
			deleteItem("todo", "t-1"),
		},
		UserID: "user-a",
	}}

	res, err := coord.PullServerData(ctx, "user-a")
	require.NoError(t, err)
	assert.Equal(t, 2, res.PulledCount)

	_, err = repos.Captures.GetByID(ctx, c.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = repos.Todos.GetByCaptureID(ctx, c.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestPullServerData_FollowsCursorPages(t *testing.T) {
	_, repos, api, coord := setup(t)
	ctx := context.Background()

	now := time.Now().UnixMilli()
	cursor := "page-2"
	api.pullPages = []remote.SyncPullResponse{
		{
			Changes: []remote.SyncPullItem{upsertItem(t, "capture", "c-1", captureDTO{
				ID: "c-1", OriginalText: "first", ClassifiedType: "TEMP",
				Source: "APP", CreatedAt: now, UpdatedAt: now,
			})},
			NextCursor: &cursor,
			UserID:     "user-a",
		},
		{
			Changes: []remote.SyncPullItem{upsertItem(t, "capture", "c-2", captureDTO{
				ID: "c-2", OriginalText: "second", ClassifiedType: "TEMP",
				Source: "APP", CreatedAt: now, UpdatedAt: now,
			})},
			UserID: "user-a",
		},
	}

	res, err := coord.PullServerData(ctx, "user-a")
	require.NoError(t, err)
	assert.Equal(t, 2, res.PulledCount)

	require.Len(t, api.pullReqs, 2)
	assert.Nil(t, api.pullReqs[0].Cursor)
	require.NotNil(t, api.pullReqs[1].Cursor)
	assert.Equal(t, "page-2", *api.pullReqs[1].Cursor)

	// The cursor survives for the next incremental pull.
	stored, err := repos.Metadata.Get(ctx, metadata.KeyLastSyncCursor)
	require.NoError(t, err)
	assert.Equal(t, "page-2", stored)
}

func TestPullServerData_AccountSwitchMergesNothing(t *testing.T) {
	_, repos, api, coord := setup(t)
	ctx := context.Background()

	require.NoError(t, repos.Metadata.Set(ctx, metadata.KeyLastSyncUserID, "user-a"))

	res, err := coord.PullServerData(ctx, "user-b")
	require.NoError(t, err)
	assert.True(t, res.AccountSwitchRequired)
	assert.Zero(t, res.PulledCount)
	assert.Empty(t, api.pullReqs)
}

func TestPullServerData_TagNameCollisionSkipped(t *testing.T) {
	_, repos, api, coord := setup(t)
	ctx := context.Background()

	local, err := repos.Tags.GetOrCreate(ctx, "work")
	require.NoError(t, err)

	api.pullPages = []remote.SyncPullResponse{{
		Changes: []remote.SyncPullItem{upsertItem(t, "tag", "srv-tag", tagDTO{
			ID: "srv-tag", Name: "work", CreatedAt: time.Now().UnixMilli(),
		})},
		UserID: "user-a",
	}}

	res, err := coord.PullServerData(ctx, "user-a")
	require.NoError(t, err)
	assert.Zero(t, res.PulledCount)

	// The local tag keeps its id.
	got, err := repos.Tags.GetByName(ctx, "work")
	require.NoError(t, err)
	assert.Equal(t, local.ID, got.ID)
}

func TestPullServerData_UnknownEntityTypeSkipped(t *testing.T) {
	_, _, api, coord := setup(t)
	ctx := context.Background()

	api.pullPages = []remote.SyncPullResponse{{
		Changes: []remote.SyncPullItem{upsertItem(t, "widget", "w-1", map[string]string{"id": "w-1"})},
		UserID:  "user-a",
	}}

	res, err := coord.PullServerData(ctx, "user-a")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Zero(t, res.PulledCount)
}

func TestGetLastSyncAt_ZeroBeforeFirstSync(t *testing.T) {
	_, _, _, coord := setup(t)
	last, err := coord.GetLastSyncAt(context.Background())
	require.NoError(t, err)
	assert.Zero(t, last)
}

func TestWipeLocalData_SparesSystemFolders(t *testing.T) {
	_, repos, _, coord := setup(t)
	ctx := context.Background()

	c := models.NewCapture("leftover", models.CaptureSourceApp)
	require.NoError(t, repos.Captures.Save(ctx, c))
	require.NoError(t, repos.Metadata.Set(ctx, metadata.KeyLastSyncUserID, "user-a"))
	require.NoError(t, repos.Folders.Upsert(ctx, &models.Folder{
		ID: "f-user", Name: "Mine", Type: models.FolderTypeUser, CreatedAt: 1,
	}))

	require.NoError(t, coord.WipeLocalData(ctx))

	_, err := repos.Captures.GetByID(ctx, c.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = repos.Folders.GetByID(ctx, "f-user")
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = repos.Metadata.Get(ctx, metadata.KeyLastSyncUserID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	// Seeded system folders survive a wipe.
	f, err := repos.Folders.GetByID(ctx, "system-inbox")
	require.NoError(t, err)
	assert.Equal(t, models.FolderTypeSystem, f.Type)
}
