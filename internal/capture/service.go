// Package capture is the write-side entry point for user input: saving a
// capture and enqueueing its classification happen in one transaction, so a
// crash between the two can never produce a capture that nobody classifies.
package capture

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/flitapp/flitsync/internal/common"
	"github.com/flitapp/flitsync/internal/dbx"
	"github.com/flitapp/flitsync/internal/logging"
	"github.com/flitapp/flitsync/internal/models"
	"github.com/flitapp/flitsync/internal/repositories/captures"
	"github.com/flitapp/flitsync/internal/repositories/schedules"
	"github.com/flitapp/flitsync/internal/repositories/syncqueue"
)

// maxTextLen mirrors the server-side limit so obviously oversized input is
// rejected before it ever hits the queue.
const maxTextLen = 5000

// Service saves captures and schedules their classification.
type Service struct {
	db        *sql.DB
	captures  captures.Repository
	schedules schedules.Repository
	queue     syncqueue.Repository
	notify    func()
	log       logging.Logger
}

// NewService wires a Service. notify is called after every enqueue to wake a
// running queue processor; pass nil when no processor is running.
func NewService(db *sql.DB, captures captures.Repository, schedules schedules.Repository,
	queue syncqueue.Repository, notify func(), log logging.Logger) *Service {
	if notify == nil {
		notify = func() {}
	}
	return &Service{
		db:        db,
		captures:  captures,
		schedules: schedules,
		queue:     queue,
		notify:    notify,
		log:       log.With("component", "capture"),
	}
}

// Submit stores a new TEMP capture and enqueues its classification, both in
// the same transaction.
func (s *Service) Submit(ctx context.Context, text string, source models.CaptureSource) (*models.Capture, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty capture text", common.ErrInvalidRequest)
	}
	if utf8.RuneCountInString(text) > maxTextLen {
		return nil, fmt.Errorf("%w: capture text exceeds %d characters", common.ErrInvalidRequest, maxTextLen)
	}

	c := models.NewCapture(text, source)
	item, err := models.NewSyncQueueItem(models.ActionClassify, models.ClassifyPayload{CaptureID: c.ID})
	if err != nil {
		return nil, err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := captures.NewSQLiteRepository(tx).Save(ctx, c); err != nil {
			return err
		}
		return syncqueue.NewSQLiteRepository(tx).Enqueue(ctx, item)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "capture submitted", "capture_id", c.ID, "source", source)
	s.notify()
	return c, nil
}

// Reclassify enqueues a fresh classification for an existing capture, for
// example after the user edits its text upstream or rejects the verdict.
func (s *Service) Reclassify(ctx context.Context, captureID string) error {
	c, err := s.captures.GetByID(ctx, captureID)
	if err != nil {
		return fmt.Errorf("capture %s: %w", captureID, err)
	}
	if c.IsDeleted {
		return fmt.Errorf("%w: capture %s is deleted", common.ErrInvalidRequest, captureID)
	}

	item, err := models.NewSyncQueueItem(models.ActionReclassify, models.ClassifyPayload{CaptureID: captureID})
	if err != nil {
		return err
	}
	if err := s.queue.Enqueue(ctx, item); err != nil {
		return err
	}

	s.log.Info(ctx, "reclassification requested", "capture_id", captureID)
	s.notify()
	return nil
}

// Delete soft-deletes a capture. If its schedule was synced to the external
// calendar, a CALENDAR_DELETE item is enqueued in the same transaction; the
// event id travels in the payload because the schedule row may be gone by
// the time the item runs.
func (s *Service) Delete(ctx context.Context, captureID string) error {
	enqueued := false

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		captureRepo := captures.NewSQLiteRepository(tx)
		scheduleRepo := schedules.NewSQLiteRepository(tx)

		if err := captureRepo.SoftDelete(ctx, captureID); err != nil {
			return fmt.Errorf("capture %s: %w", captureID, err)
		}

		sched, err := scheduleRepo.GetByCaptureID(ctx, captureID)
		if errors.Is(err, common.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if sched.ExternalEventID == nil {
			return nil
		}

		item, err := models.NewSyncQueueItem(models.ActionCalendarDelete, models.CalendarDeletePayload{
			ScheduleID: sched.ID,
			EventID:    *sched.ExternalEventID,
		})
		if err != nil {
			return err
		}
		if err := syncqueue.NewSQLiteRepository(tx).Enqueue(ctx, item); err != nil {
			return err
		}
		enqueued = true
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info(ctx, "capture deleted", "capture_id", captureID, "calendar_delete", enqueued)
	if enqueued {
		s.notify()
	}
	return nil
}
