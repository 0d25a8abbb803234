// Package calendar keeps synced schedules and their external calendar events
// consistent: best-effort event creation, conflict detection and explicit
// conflict resolution.
package calendar

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/flitapp/flitsync/internal/common"
	"github.com/flitapp/flitsync/internal/dbx"
	"github.com/flitapp/flitsync/internal/logging"
	"github.com/flitapp/flitsync/internal/models"
	"github.com/flitapp/flitsync/internal/remote"
	"github.com/flitapp/flitsync/internal/repositories/captures"
	"github.com/flitapp/flitsync/internal/repositories/schedules"
)

// Coordinator bridges local schedules and the external calendar.
type Coordinator struct {
	db        *sql.DB
	schedules schedules.Repository
	captures  captures.Repository
	api       remote.API
	log       logging.Logger
}

// NewCoordinator wires a Coordinator.
func NewCoordinator(db *sql.DB, schedules schedules.Repository, captures captures.Repository,
	api remote.API, log logging.Logger) *Coordinator {
	return &Coordinator{
		db:        db,
		schedules: schedules,
		captures:  captures,
		api:       api,
		log:       log.With("component", "calendar"),
	}
}

// Sync creates the external event for a schedule that does not have one yet.
// Already-synced schedules are left alone. Returns common.ErrNotFound
// (wrapped) when the schedule is gone.
func (c *Coordinator) Sync(ctx context.Context, scheduleID string) error {
	s, err := c.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return fmt.Errorf("schedule %s: %w", scheduleID, err)
	}
	if s.ExternalEventID != nil {
		return nil
	}

	capture, err := c.captures.GetByID(ctx, s.CaptureID)
	if err != nil {
		return fmt.Errorf("capture %s: %w", s.CaptureID, err)
	}

	created, err := c.api.CreateCalendarEvent(ctx, remote.CalendarEvent{
		Title:     capture.Title(),
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		Location:  s.Location,
		IsAllDay:  s.IsAllDay,
	})
	if err != nil {
		if updErr := c.schedules.UpdateCalendarSync(ctx, s.ID, models.CalendarSyncFailed, nil); updErr != nil {
			c.log.Warn(ctx, "failed to mark schedule as failed", "schedule_id", s.ID, "error", updErr)
		}
		return err
	}

	if err := c.schedules.UpdateCalendarSync(ctx, s.ID, models.CalendarSyncSynced, &created.ID); err != nil {
		return err
	}
	c.log.Info(ctx, "calendar event created", "schedule_id", s.ID, "event_id", created.ID)
	return nil
}

// DetectConflicts compares every synced schedule against its external event
// and marks diverged ones CONFLICT. Schedules whose event cannot be fetched
// are skipped and logged; detection is a scan, not a transaction.
func (c *Coordinator) DetectConflicts(ctx context.Context) ([]models.CalendarConflict, error) {
	synced, err := c.schedules.GetSynced(ctx)
	if err != nil {
		return nil, err
	}

	var conflicts []models.CalendarConflict
	for i := range synced {
		s := &synced[i]

		ev, err := c.api.GetCalendarEvent(ctx, *s.ExternalEventID)
		if err != nil {
			c.log.Warn(ctx, "failed to fetch calendar event",
				"schedule_id", s.ID, "event_id", *s.ExternalEventID, "error", err)
			continue
		}

		capture, err := c.captures.GetByID(ctx, s.CaptureID)
		if err != nil {
			c.log.Warn(ctx, "schedule without capture", "schedule_id", s.ID, "error", err)
			continue
		}

		localTitle := capture.Title()
		if localTitle == ev.Title &&
			int64PtrEqual(s.StartTime, ev.StartTime) &&
			int64PtrEqual(s.EndTime, ev.EndTime) &&
			strPtrEqual(s.Location, ev.Location) {
			continue
		}

		if err := c.schedules.UpdateCalendarSync(ctx, s.ID, models.CalendarSyncConflict, nil); err != nil {
			return nil, err
		}
		conflicts = append(conflicts, models.CalendarConflict{
			ScheduleID:      s.ID,
			ExternalEventID: *s.ExternalEventID,
			LocalTitle:      localTitle,
			GoogleTitle:     ev.Title,
			LocalStartTime:  s.StartTime,
			GoogleStartTime: ev.StartTime,
			LocalEndTime:    s.EndTime,
			GoogleEndTime:   ev.EndTime,
			LocalLocation:   s.Location,
			GoogleLocation:  ev.Location,
		})
	}
	return conflicts, nil
}

// Resolve settles one conflict. OVERRIDE_GOOGLE pushes the local fields over
// the external event; OVERRIDE_LOCAL pulls the external fields into the
// schedule and its capture title, atomically. MERGE is not supported.
func (c *Coordinator) Resolve(ctx context.Context, conflict models.CalendarConflict,
	resolution models.ConflictResolution) error {

	switch resolution {
	case models.ResolutionOverrideGoogle:
		return c.resolveOverrideGoogle(ctx, conflict)
	case models.ResolutionOverrideLocal:
		return c.resolveOverrideLocal(ctx, conflict)
	default:
		return fmt.Errorf("%w: %s", common.ErrUnsupportedResolution, resolution)
	}
}

func (c *Coordinator) resolveOverrideGoogle(ctx context.Context, conflict models.CalendarConflict) error {
	_, err := c.api.UpdateCalendarEvent(ctx, remote.CalendarEvent{
		ID:        conflict.ExternalEventID,
		Title:     conflict.LocalTitle,
		StartTime: conflict.LocalStartTime,
		EndTime:   conflict.LocalEndTime,
		Location:  conflict.LocalLocation,
	})
	if err != nil {
		return err
	}
	return c.schedules.UpdateCalendarSync(ctx, conflict.ScheduleID, models.CalendarSyncSynced, nil)
}

func (c *Coordinator) resolveOverrideLocal(ctx context.Context, conflict models.CalendarConflict) error {
	return dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		scheduleRepo := schedules.NewSQLiteRepository(tx)
		captureRepo := captures.NewSQLiteRepository(tx)

		s, err := scheduleRepo.GetByID(ctx, conflict.ScheduleID)
		if err != nil {
			return err
		}
		if err := scheduleRepo.UpdateTimes(ctx, s.ID,
			conflict.GoogleStartTime, conflict.GoogleEndTime, conflict.GoogleLocation); err != nil {
			return err
		}
		if err := captureRepo.UpdateTitle(ctx, s.CaptureID, conflict.GoogleTitle); err != nil {
			return err
		}
		return scheduleRepo.UpdateCalendarSync(ctx, s.ID, models.CalendarSyncSynced, nil)
	})
}

func int64PtrEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
