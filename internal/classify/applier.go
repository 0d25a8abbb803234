// Package classify applies classification results to the local store.
//
// Apply runs in one transaction: capture fields, extracted entities, tag
// links and the derived record all land together or not at all. External
// side effects (calendar sync, analytics delivery) are returned as plain
// data and belong to the caller, strictly after commit.
package classify

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/flitapp/flitsync/internal/dbx"
	"github.com/flitapp/flitsync/internal/logging"
	"github.com/flitapp/flitsync/internal/models"
	"github.com/flitapp/flitsync/internal/repositories/captures"
	"github.com/flitapp/flitsync/internal/repositories/entities"
	"github.com/flitapp/flitsync/internal/repositories/notes"
	"github.com/flitapp/flitsync/internal/repositories/schedules"
	"github.com/flitapp/flitsync/internal/repositories/tags"
	"github.com/flitapp/flitsync/internal/repositories/todos"
)

// Effects is what Apply defers past the commit: schedules that need a
// calendar event and analytics events awaiting delivery. Plain data, no
// callbacks, so nothing external can run inside the transaction.
type Effects struct {
	ScheduleIDs []string
	Events      []models.AnalyticsEvent
}

// Applier rewrites local state from classification results.
type Applier struct {
	db  *sql.DB
	log logging.Logger
}

// NewApplier returns an Applier working on db.
func NewApplier(db *sql.DB, log logging.Logger) *Applier {
	return &Applier{db: db, log: log.With("component", "classify")}
}

// txRepos bundles the repositories bound to one transaction.
type txRepos struct {
	captures  *captures.SQLiteRepository
	todos     *todos.SQLiteRepository
	schedules *schedules.SQLiteRepository
	notes     *notes.SQLiteRepository
	tags      *tags.SQLiteRepository
	entities  *entities.SQLiteRepository
}

func newTxRepos(tx dbx.DBTX) *txRepos {
	return &txRepos{
		captures:  captures.NewSQLiteRepository(tx),
		todos:     todos.NewSQLiteRepository(tx),
		schedules: schedules.NewSQLiteRepository(tx),
		notes:     notes.NewSQLiteRepository(tx),
		tags:      tags.NewSQLiteRepository(tx),
		entities:  entities.NewSQLiteRepository(tx),
	}
}

// Apply atomically materializes a classification onto the capture. Returns
// common.ErrNotFound (wrapped) when the capture does not exist. Redelivery of
// the same classification is safe: derived records are keyed by capture id.
func (a *Applier) Apply(ctx context.Context, captureID string, c *models.Classification) (*Effects, error) {
	effects := &Effects{}

	err := dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		r := newTxRepos(tx)

		if _, err := r.captures.GetByID(ctx, captureID); err != nil {
			return fmt.Errorf("capture %s: %w", captureID, err)
		}

		if len(c.SplitItems) > 0 {
			return a.applySplit(ctx, r, captureID, c, effects)
		}

		return a.applySingle(ctx, r, captureID, c, effects)
	})
	if err != nil {
		return nil, err
	}

	a.log.Debug(ctx, "classification applied",
		"capture_id", captureID, "type", c.Type, "splits", len(c.SplitItems))
	return effects, nil
}

// applySplit handles a multi-intent result. The parent keeps the classified
// type but gets no derived record: it is a container referencing its
// children. Each split item becomes a child capture with source=SPLIT and
// runs through the single-intent path.
func (a *Applier) applySplit(ctx context.Context, r *txRepos, parentID string,
	c *models.Classification, effects *Effects) error {

	if err := r.captures.UpdateClassification(ctx, parentID, c.Type, c.SubType, c.AiTitle, c.Confidence); err != nil {
		return err
	}
	setCaptureID(c.Entities, parentID)
	if err := r.entities.ReplaceForCapture(ctx, parentID, c.Entities); err != nil {
		return err
	}
	// The parent owns no derived record, including one left by an earlier
	// single-intent classification.
	if err := a.clearStaleDerived(ctx, r, parentID, models.CaptureTypeTemp); err != nil {
		return err
	}

	for _, item := range c.SplitItems {
		child := models.NewCapture(item.SplitText, models.CaptureSourceSplit)
		child.ParentCaptureID = &parentID
		if err := r.captures.Save(ctx, child); err != nil {
			return err
		}
		if err := a.applySingle(ctx, r, child.ID, item.Classification(), effects); err != nil {
			return err
		}
	}

	effects.Events = append(effects.Events, splitEvent(parentID, len(c.SplitItems)))
	return nil
}

// applySingle handles one single-intent classification for one capture.
func (a *Applier) applySingle(ctx context.Context, r *txRepos, captureID string,
	c *models.Classification, effects *Effects) error {

	if err := r.captures.UpdateClassification(ctx, captureID, c.Type, c.SubType, c.AiTitle, c.Confidence); err != nil {
		return err
	}

	setCaptureID(c.Entities, captureID)
	if err := r.entities.ReplaceForCapture(ctx, captureID, c.Entities); err != nil {
		return err
	}

	for _, name := range c.Tags {
		tag, err := r.tags.GetOrCreate(ctx, name)
		if err != nil {
			return err
		}
		if err := r.tags.LinkToCapture(ctx, captureID, tag.ID); err != nil {
			return err
		}
	}

	if err := a.createDerived(ctx, r, captureID, c, effects); err != nil {
		return err
	}

	effects.Events = append(effects.Events, completedEvent(c))
	return nil
}

// clearStaleDerived removes derived records of every type except keep. A
// reclassification that changes the capture's type must not leave the old
// type's record behind; the matching type is spared so schedule calendar
// sync state survives a same-type redelivery.
func (a *Applier) clearStaleDerived(ctx context.Context, r *txRepos, captureID string,
	keep models.CaptureType) error {

	if keep != models.CaptureTypeTodo {
		if err := r.todos.DeleteByCaptureID(ctx, captureID); err != nil {
			return err
		}
	}
	if keep != models.CaptureTypeSchedule {
		if err := r.schedules.DeleteByCaptureID(ctx, captureID); err != nil {
			return err
		}
	}
	if keep != models.CaptureTypeNotes {
		if err := r.notes.DeleteByCaptureID(ctx, captureID); err != nil {
			return err
		}
	}
	return nil
}

// createDerived writes the one derived record matching the classified type,
// dropping whatever a previous classification left under another type.
// TEMP gets none.
func (a *Applier) createDerived(ctx context.Context, r *txRepos, captureID string,
	c *models.Classification, effects *Effects) error {

	if err := a.clearStaleDerived(ctx, r, captureID, c.Type); err != nil {
		return err
	}

	now := time.Now().UnixMilli()

	switch c.Type {
	case models.CaptureTypeTodo:
		todo := &models.Todo{
			ID:        uuid.NewString(),
			CaptureID: captureID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if c.TodoInfo != nil {
			todo.Deadline = c.TodoInfo.Deadline
			todo.DeadlineSource = c.TodoInfo.DeadlineSource
		}
		return r.todos.UpsertForCapture(ctx, todo)

	case models.CaptureTypeSchedule:
		s := &models.Schedule{
			ID:                 uuid.NewString(),
			CaptureID:          captureID,
			Confidence:         c.Confidence,
			CalendarSyncStatus: models.CalendarSyncPending,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if c.ScheduleInfo != nil {
			s.StartTime = c.ScheduleInfo.StartTime
			s.EndTime = c.ScheduleInfo.EndTime
			s.Location = c.ScheduleInfo.Location
			s.IsAllDay = c.ScheduleInfo.IsAllDay
		}
		id, err := r.schedules.UpsertForCapture(ctx, s)
		if err != nil {
			return err
		}
		effects.ScheduleIDs = append(effects.ScheduleIDs, id)
		return nil

	case models.CaptureTypeNotes:
		note := &models.Note{
			ID:        uuid.NewString(),
			CaptureID: captureID,
			FolderID:  models.FolderForNoteSubType(c.SubType),
			CreatedAt: now,
			UpdatedAt: now,
		}
		return r.notes.UpsertForCapture(ctx, note)

	default:
		return nil
	}
}

func setCaptureID(ents []models.ExtractedEntity, captureID string) {
	for i := range ents {
		ents[i].CaptureID = captureID
	}
}

func completedEvent(c *models.Classification) models.AnalyticsEvent {
	data, _ := json.Marshal(map[string]string{
		"type":       string(c.Type),
		"confidence": string(c.Confidence),
	})
	return models.AnalyticsEvent{Type: "classification_completed", Data: string(data)}
}

func splitEvent(parentID string, count int) models.AnalyticsEvent {
	data, _ := json.Marshal(map[string]any{
		"parent_id":   parentID,
		"split_count": count,
	})
	return models.AnalyticsEvent{Type: "split_capture_created", Data: string(data)}
}
