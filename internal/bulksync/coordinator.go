// Package bulksync reconciles the whole local store with the server: push
// of locally changed entities, pull of server-side changes, account-switch
// protection and last-sync bookkeeping. It runs end to end, not through the
// sync queue.
package bulksync

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/flitapp/flitsync/internal/common"
	"github.com/flitapp/flitsync/internal/dbx"
	"github.com/flitapp/flitsync/internal/logging"
	"github.com/flitapp/flitsync/internal/models"
	"github.com/flitapp/flitsync/internal/remote"
	"github.com/flitapp/flitsync/internal/repositories/captures"
	"github.com/flitapp/flitsync/internal/repositories/folders"
	"github.com/flitapp/flitsync/internal/repositories/metadata"
	"github.com/flitapp/flitsync/internal/repositories/notes"
	"github.com/flitapp/flitsync/internal/repositories/schedules"
	"github.com/flitapp/flitsync/internal/repositories/tags"
	"github.com/flitapp/flitsync/internal/repositories/todos"
	"github.com/flitapp/flitsync/internal/storage"
)

// Wire entity type names shared by push and pull.
const (
	entityCapture  = "capture"
	entityTodo     = "todo"
	entitySchedule = "schedule"
	entityNote     = "note"
	entityTag      = "tag"
	entityFolder   = "folder"
)

// Coordinator performs bulk push/pull reconciliation.
type Coordinator struct {
	db    *sql.DB
	repos *storage.Repositories
	api   remote.API
	log   logging.Logger
}

// NewCoordinator wires a Coordinator.
func NewCoordinator(db *sql.DB, repos *storage.Repositories, api remote.API, log logging.Logger) *Coordinator {
	return &Coordinator{db: db, repos: repos, api: api, log: log.With("component", "bulksync")}
}

// GetLastSyncAt returns the timestamp of the last successful sync (epoch ms)
// or 0 when no sync has happened yet.
func (c *Coordinator) GetLastSyncAt(ctx context.Context) (int64, error) {
	raw, err := c.repos.Metadata.Get(ctx, metadata.KeyLastSyncAt)
	if errors.Is(err, common.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt last sync timestamp %q: %w", raw, err)
	}
	return v, nil
}

// PushLocalData uploads every local entity changed since the last sync.
// When the cached last-synced user differs from userID nothing is pushed and
// the result carries AccountSwitchRequired.
func (c *Coordinator) PushLocalData(ctx context.Context, userID string) (*models.SyncResult, error) {
	if switched, err := c.accountSwitched(ctx, userID); err != nil {
		return nil, err
	} else if switched {
		return &models.SyncResult{AccountSwitchRequired: true, Message: "account switch detected"}, nil
	}

	since, err := c.GetLastSyncAt(ctx)
	if err != nil {
		return nil, err
	}

	changes, err := c.collectChanges(ctx, since)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return &models.SyncResult{Success: true, Skipped: true, Message: "nothing to push"}, nil
	}

	deviceID, err := c.deviceID(ctx)
	if err != nil {
		return nil, err
	}

	var resp *remote.SyncPushResponse
	err = c.withRetry(ctx, func(ctx context.Context) error {
		var callErr error
		resp, callErr = c.api.SyncPush(ctx, remote.SyncPushRequest{DeviceID: deviceID, Changes: changes})
		return callErr
	})
	if err != nil {
		return nil, err
	}

	syncedAt := time.Now().UnixMilli()
	if resp.ServerTimestamp != nil {
		syncedAt = *resp.ServerTimestamp
	}
	if err := c.recordSync(ctx, userID, syncedAt); err != nil {
		return nil, err
	}

	c.log.Info(ctx, "push completed", "pushed", len(changes), "acknowledged", resp.Acknowledged)
	return &models.SyncResult{Success: true, PushedCount: len(changes)}, nil
}

// PullServerData downloads server-side changes after the stored cursor and
// merges them into the local store, one transaction per page. Deletions are
// applied child first, upserts parent first.
func (c *Coordinator) PullServerData(ctx context.Context, userID string) (*models.SyncResult, error) {
	if switched, err := c.accountSwitched(ctx, userID); err != nil {
		return nil, err
	} else if switched {
		return &models.SyncResult{AccountSwitchRequired: true, Message: "account switch detected"}, nil
	}

	deviceID, err := c.deviceID(ctx)
	if err != nil {
		return nil, err
	}

	cursor, err := c.loadCursor(ctx)
	if err != nil {
		return nil, err
	}

	pulled := 0
	for {
		var resp *remote.SyncPullResponse
		err = c.withRetry(ctx, func(ctx context.Context) error {
			var callErr error
			resp, callErr = c.api.SyncPull(ctx, remote.SyncPullRequest{DeviceID: deviceID, Cursor: cursor})
			return callErr
		})
		if err != nil {
			return nil, err
		}

		if len(resp.Changes) > 0 {
			applied, err := c.applyChanges(ctx, resp.Changes)
			if err != nil {
				return nil, err
			}
			pulled += applied
		}

		if resp.NextCursor != nil {
			if err := c.repos.Metadata.Set(ctx, metadata.KeyLastSyncCursor, *resp.NextCursor); err != nil {
				return nil, err
			}
		}
		if resp.NextCursor == nil || len(resp.Changes) == 0 {
			break
		}
		cursor = resp.NextCursor
	}

	if err := c.recordSync(ctx, userID, time.Now().UnixMilli()); err != nil {
		return nil, err
	}

	c.log.Info(ctx, "pull completed", "pulled", pulled)
	return &models.SyncResult{Success: true, PulledCount: pulled}, nil
}

// WipeLocalData removes all user-scoped rows, keeping only the seeded system
// folders. Used after an account switch before the first pull for the new
// user.
func (c *Coordinator) WipeLocalData(ctx context.Context) error {
	err := dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, stmt := range []string{
			`DELETE FROM capture_tags`,
			`DELETE FROM extracted_entities`,
			`DELETE FROM todos`,
			`DELETE FROM schedules`,
			`DELETE FROM notes`,
			`DELETE FROM tags`,
			`DELETE FROM captures`,
			`DELETE FROM folders WHERE type != 'SYSTEM'`,
			`DELETE FROM sync_queue`,
			`DELETE FROM metadata WHERE key IN (?, ?, ?)`,
		} {
			var args []any
			if stmt == `DELETE FROM metadata WHERE key IN (?, ?, ?)` {
				args = []any{metadata.KeyLastSyncAt, metadata.KeyLastSyncCursor, metadata.KeyLastSyncUserID}
			}
			if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
				return fmt.Errorf("wipe failed: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	c.log.Info(ctx, "local data wiped")
	return nil
}

func (c *Coordinator) accountSwitched(ctx context.Context, userID string) (bool, error) {
	last, err := c.repos.Metadata.Get(ctx, metadata.KeyLastSyncUserID)
	if errors.Is(err, common.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return last != userID, nil
}

func (c *Coordinator) deviceID(ctx context.Context) (string, error) {
	id, err := c.repos.Metadata.Get(ctx, metadata.KeyDeviceID)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return "", err
	}
	id = uuid.NewString()
	if err := c.repos.Metadata.Set(ctx, metadata.KeyDeviceID, id); err != nil {
		return "", err
	}
	return id, nil
}

func (c *Coordinator) loadCursor(ctx context.Context) (*string, error) {
	v, err := c.repos.Metadata.Get(ctx, metadata.KeyLastSyncCursor)
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *Coordinator) recordSync(ctx context.Context, userID string, at int64) error {
	if err := c.repos.Metadata.Set(ctx, metadata.KeyLastSyncAt, strconv.FormatInt(at, 10)); err != nil {
		return err
	}
	return c.repos.Metadata.Set(ctx, metadata.KeyLastSyncUserID, userID)
}

// withRetry runs fn, retrying transient failures with exponential backoff.
// Terminal failures surface immediately.
func (c *Coordinator) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	b := retry.WithMaxRetries(2, retry.NewExponential(500*time.Millisecond))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if common.IsRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// collectChanges gathers every entity changed since the given timestamp,
// parents before children so the server can apply in order.
func (c *Coordinator) collectChanges(ctx context.Context, since int64) ([]remote.SyncPushItem, error) {
	var items []remote.SyncPushItem

	push := func(entityType, id string, updatedAt int64, payload any) error {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		items = append(items, remote.SyncPushItem{
			EntityType:      entityType,
			Operation:       "upsert",
			ClientID:        id,
			Data:            data,
			ClientUpdatedAt: updatedAt,
		})
		return nil
	}

	folderRows, err := c.repos.Folders.GetChangedSince(ctx, since)
	if err != nil {
		return nil, err
	}
	for i := range folderRows {
		if err := push(entityFolder, folderRows[i].ID, folderRows[i].CreatedAt, toFolderDTO(&folderRows[i])); err != nil {
			return nil, err
		}
	}

	captureRows, err := c.repos.Captures.GetChangedSince(ctx, since)
	if err != nil {
		return nil, err
	}
	for i := range captureRows {
		if err := push(entityCapture, captureRows[i].ID, captureRows[i].UpdatedAt, toCaptureDTO(&captureRows[i])); err != nil {
			return nil, err
		}
	}

	todoRows, err := c.repos.Todos.GetChangedSince(ctx, since)
	if err != nil {
		return nil, err
	}
	for i := range todoRows {
		if err := push(entityTodo, todoRows[i].ID, todoRows[i].UpdatedAt, toTodoDTO(&todoRows[i])); err != nil {
			return nil, err
		}
	}

	scheduleRows, err := c.repos.Schedules.GetChangedSince(ctx, since)
	if err != nil {
		return nil, err
	}
	for i := range scheduleRows {
		if err := push(entitySchedule, scheduleRows[i].ID, scheduleRows[i].UpdatedAt, toScheduleDTO(&scheduleRows[i])); err != nil {
			return nil, err
		}
	}

	noteRows, err := c.repos.Notes.GetChangedSince(ctx, since)
	if err != nil {
		return nil, err
	}
	for i := range noteRows {
		if err := push(entityNote, noteRows[i].ID, noteRows[i].UpdatedAt, toNoteDTO(&noteRows[i])); err != nil {
			return nil, err
		}
	}

	tagRows, err := c.repos.Tags.GetChangedSince(ctx, since)
	if err != nil {
		return nil, err
	}
	for i := range tagRows {
		if err := push(entityTag, tagRows[i].ID, tagRows[i].CreatedAt, toTagDTO(&tagRows[i])); err != nil {
			return nil, err
		}
	}

	return items, nil
}

// applyChanges merges one page of server changes into the local store in a
// single transaction. Unknown entity types are skipped and logged, never
// fatal: an old client must survive new server entities.
func (c *Coordinator) applyChanges(ctx context.Context, changes []remote.SyncPullItem) (int, error) {
	applied := 0

	err := dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		captureRepo := captures.NewSQLiteRepository(tx)
		todoRepo := todos.NewSQLiteRepository(tx)
		scheduleRepo := schedules.NewSQLiteRepository(tx)
		noteRepo := notes.NewSQLiteRepository(tx)
		tagRepo := tags.NewSQLiteRepository(tx)
		folderRepo := folders.NewSQLiteRepository(tx)

		// Deletions first, derived records before their captures.
		deleteRank := func(entityType string) int {
			switch entityType {
			case entityTodo, entitySchedule, entityNote, entityTag:
				return 0
			case entityCapture:
				return 1
			default:
				return 2
			}
		}
		for rank := 0; rank <= 2; rank++ {
			for _, ch := range changes {
				if ch.Operation != "delete" || deleteRank(ch.EntityType) != rank {
					continue
				}
				var err error
				switch ch.EntityType {
				case entityTodo:
					err = todoRepo.DeleteByID(ctx, ch.ServerID)
				case entitySchedule:
					err = scheduleRepo.DeleteByID(ctx, ch.ServerID)
				case entityNote:
					err = noteRepo.DeleteByID(ctx, ch.ServerID)
				case entityTag:
					err = tagRepo.DeleteByID(ctx, ch.ServerID)
				case entityCapture:
					err = captureRepo.HardDelete(ctx, ch.ServerID)
				case entityFolder:
					err = folderRepo.DeleteByID(ctx, ch.ServerID)
				default:
					c.log.Warn(ctx, "skipping unknown entity type", "entity_type", ch.EntityType)
					continue
				}
				if err != nil {
					return err
				}
				applied++
			}
		}

		// Upserts, parents before children.
		upsertRank := func(entityType string) int {
			switch entityType {
			case entityFolder:
				return 0
			case entityCapture:
				return 1
			default:
				return 2
			}
		}
		for rank := 0; rank <= 2; rank++ {
			for _, ch := range changes {
				if ch.Operation != "upsert" || upsertRank(ch.EntityType) != rank {
					continue
				}
				ok, err := applyUpsert(ctx, c.log, ch,
					captureRepo, todoRepo, scheduleRepo, noteRepo, tagRepo, folderRepo)
				if err != nil {
					return err
				}
				if ok {
					applied++
				}
			}
		}
		return nil
	})
	if err != nil {
		applied = 0
	}
	return applied, err
}

func applyUpsert(ctx context.Context, log logging.Logger, ch remote.SyncPullItem,
	captureRepo *captures.SQLiteRepository, todoRepo *todos.SQLiteRepository,
	scheduleRepo *schedules.SQLiteRepository, noteRepo *notes.SQLiteRepository,
	tagRepo *tags.SQLiteRepository, folderRepo *folders.SQLiteRepository) (bool, error) {

	switch ch.EntityType {
	case entityCapture:
		var d captureDTO
		if err := json.Unmarshal(ch.Data, &d); err != nil {
			return false, fmt.Errorf("bad capture payload: %w", err)
		}
		return true, captureRepo.Upsert(ctx, d.toModel())
	case entityTodo:
		var d todoDTO
		if err := json.Unmarshal(ch.Data, &d); err != nil {
			return false, fmt.Errorf("bad todo payload: %w", err)
		}
		return true, todoRepo.Upsert(ctx, d.toModel())
	case entitySchedule:
		var d scheduleDTO
		if err := json.Unmarshal(ch.Data, &d); err != nil {
			return false, fmt.Errorf("bad schedule payload: %w", err)
		}
		return true, scheduleRepo.Upsert(ctx, d.toModel())
	case entityNote:
		var d noteDTO
		if err := json.Unmarshal(ch.Data, &d); err != nil {
			return false, fmt.Errorf("bad note payload: %w", err)
		}
		return true, noteRepo.Upsert(ctx, d.toModel())
	case entityTag:
		var d tagDTO
		if err := json.Unmarshal(ch.Data, &d); err != nil {
			return false, fmt.Errorf("bad tag payload: %w", err)
		}
		ok, err := tagRepo.Upsert(ctx, d.toModel())
		if err != nil {
			return false, err
		}
		if !ok {
			log.Warn(ctx, "tag name taken locally, server copy skipped", "tag", d.Name)
		}
		return ok, nil
	case entityFolder:
		var d folderDTO
		if err := json.Unmarshal(ch.Data, &d); err != nil {
			return false, fmt.Errorf("bad folder payload: %w", err)
		}
		return true, folderRepo.Upsert(ctx, d.toModel())
	default:
		log.Warn(ctx, "skipping unknown entity type", "entity_type", ch.EntityType)
		return false, nil
	}
}
