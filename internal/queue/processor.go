// Package queue drains the durable sync queue: one item at a time, with
// exponential backoff on retryable failures and a bounded retry budget.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/flitapp/flitsync/internal/classify"
	"github.com/flitapp/flitsync/internal/common"
	"github.com/flitapp/flitsync/internal/logging"
	"github.com/flitapp/flitsync/internal/models"
	"github.com/flitapp/flitsync/internal/remote"
	"github.com/flitapp/flitsync/internal/repositories/captures"
	"github.com/flitapp/flitsync/internal/repositories/syncqueue"
)

// Applier is the transactional classification-apply step.
type Applier interface {
	Apply(ctx context.Context, captureID string, c *models.Classification) (*classify.Effects, error)
}

// CalendarSyncer pushes one schedule into the external calendar.
type CalendarSyncer interface {
	Sync(ctx context.Context, scheduleID string) error
}

// Processor drains PENDING queue items sequentially. Remote failures never
// propagate past it; they are absorbed into queue-item status transitions.
type Processor struct {
	queue    syncqueue.Repository
	captures captures.Repository
	api      remote.API
	applier  Applier
	calendar CalendarSyncer
	log      logging.Logger

	trigger chan struct{}
}

// NewProcessor wires a Processor.
func NewProcessor(queue syncqueue.Repository, captures captures.Repository,
	api remote.API, applier Applier, calendar CalendarSyncer, log logging.Logger) *Processor {
	return &Processor{
		queue:    queue,
		captures: captures,
		api:      api,
		applier:  applier,
		calendar: calendar,
		log:      log.With("component", "queue"),
		trigger:  make(chan struct{}, 1),
	}
}

// Recover moves items stranded in PROCESSING by a previous crash back to
// PENDING. Must run once at startup, before any processing.
func (p *Processor) Recover(ctx context.Context) error {
	return p.queue.ResetProcessingToPending(ctx)
}

// TriggerProcessing requests an immediate drain from a running Run loop.
// Non-blocking; coalesces with a pending trigger.
func (p *Processor) TriggerProcessing() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

// Run drains the queue at interval (and on TriggerProcessing) until ctx is
// cancelled.
func (p *Processor) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := p.ProcessPending(ctx); err != nil {
			p.log.Error(ctx, "drain failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-p.trigger:
		}
	}
}

// ProcessPending drains every currently due item, sequentially, then prunes
// COMPLETED items. Only storage errors are returned; per-item remote
// failures end up as status transitions.
func (p *Processor) ProcessPending(ctx context.Context) error {
	items, err := p.queue.GetPendingItems(ctx, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to load pending items: %w", err)
	}

	for i := range items {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := p.processItem(ctx, &items[i]); err != nil {
			return err
		}
	}

	return p.queue.DeleteCompleted(ctx)
}

func (p *Processor) processItem(ctx context.Context, item *models.SyncQueueItem) error {
	if err := p.queue.UpdateStatus(ctx, item.ID, models.StatusProcessing); err != nil {
		return err
	}

	opErr := p.dispatch(ctx, item)
	if opErr == nil {
		return p.queue.UpdateStatus(ctx, item.ID, models.StatusCompleted)
	}

	if common.IsRetryable(opErr) {
		next := time.Now().UnixMilli() + backoff(item.RetryCount).Milliseconds()
		p.log.Warn(ctx, "queue item failed, will retry",
			"item_id", item.ID, "action", item.Action, "retry_count", item.RetryCount, "error", opErr)
		return p.queue.IncrementRetry(ctx, item.ID, next)
	}

	p.log.Error(ctx, "queue item failed permanently",
		"item_id", item.ID, "action", item.Action, "error", opErr)
	return p.queue.UpdateStatus(ctx, item.ID, models.StatusFailed)
}

// dispatch runs the remote operation matching the item's action. A nil
// return completes the item.
func (p *Processor) dispatch(ctx context.Context, item *models.SyncQueueItem) error {
	switch item.Action {
	case models.ActionClassify, models.ActionReclassify:
		return p.runClassify(ctx, item)
	case models.ActionCalendarCreate:
		return p.runCalendarCreate(ctx, item)
	case models.ActionCalendarDelete:
		return p.runCalendarDelete(ctx, item)
	case models.ActionAnalyticsBatch:
		return p.runAnalyticsBatch(ctx, item)
	default:
		return fmt.Errorf("%w: %s", common.ErrUnknownAction, item.Action)
	}
}

func (p *Processor) runClassify(ctx context.Context, item *models.SyncQueueItem) error {
	var payload models.ClassifyPayload
	if err := json.Unmarshal(item.Payload, &payload); err != nil {
		return fmt.Errorf("%w: bad classify payload: %v", common.ErrInvalidRequest, err)
	}

	capture, err := p.captures.GetByID(ctx, payload.CaptureID)
	if errors.Is(err, common.ErrNotFound) {
		// The capture was deleted while the item waited. Nothing to do.
		p.log.Info(ctx, "capture gone before classification", "capture_id", payload.CaptureID)
		return nil
	}
	if err != nil {
		return err
	}

	resp, err := p.api.Classify(ctx, remote.ClassifyRequest{Text: capture.OriginalText})
	if err != nil {
		return err
	}

	effects, err := p.applier.Apply(ctx, capture.ID, resp.ToClassification())
	if errors.Is(err, common.ErrNotFound) {
		p.log.Info(ctx, "capture gone before apply", "capture_id", capture.ID)
		return nil
	}
	if err != nil {
		return err
	}

	// Post-commit side effects. Their failure must not fail the item: the
	// classification is already durably applied.
	p.runEffects(ctx, effects)
	return nil
}

// runEffects triggers calendar sync for new schedules and re-enqueues
// analytics events for durable batched delivery. Best effort, log only.
func (p *Processor) runEffects(ctx context.Context, effects *classify.Effects) {
	for _, scheduleID := range effects.ScheduleIDs {
		if err := p.calendar.Sync(ctx, scheduleID); err != nil {
			p.log.Warn(ctx, "calendar sync after classification failed",
				"schedule_id", scheduleID, "error", err)
		}
	}

	if len(effects.Events) == 0 {
		return
	}
	batch, err := models.NewSyncQueueItem(models.ActionAnalyticsBatch,
		models.AnalyticsBatchPayload{Events: effects.Events})
	if err != nil {
		p.log.Warn(ctx, "failed to build analytics batch", "error", err)
		return
	}
	if err := p.queue.Enqueue(ctx, batch); err != nil {
		p.log.Warn(ctx, "failed to enqueue analytics batch", "error", err)
	}
}

func (p *Processor) runCalendarCreate(ctx context.Context, item *models.SyncQueueItem) error {
	var payload models.CalendarCreatePayload
	if err := json.Unmarshal(item.Payload, &payload); err != nil {
		return fmt.Errorf("%w: bad calendar payload: %v", common.ErrInvalidRequest, err)
	}

	err := p.calendar.Sync(ctx, payload.ScheduleID)
	if errors.Is(err, common.ErrNotFound) {
		// Schedule deleted before the event was created.
		return nil
	}
	return err
}

func (p *Processor) runCalendarDelete(ctx context.Context, item *models.SyncQueueItem) error {
	var payload models.CalendarDeletePayload
	if err := json.Unmarshal(item.Payload, &payload); err != nil {
		return fmt.Errorf("%w: bad calendar payload: %v", common.ErrInvalidRequest, err)
	}
	return p.api.DeleteCalendarEvent(ctx, payload.EventID)
}

func (p *Processor) runAnalyticsBatch(ctx context.Context, item *models.SyncQueueItem) error {
	var payload models.AnalyticsBatchPayload
	if err := json.Unmarshal(item.Payload, &payload); err != nil {
		return fmt.Errorf("%w: bad analytics payload: %v", common.ErrInvalidRequest, err)
	}

	req := remote.AnalyticsEventsRequest{}
	for _, ev := range payload.Events {
		dto := remote.AnalyticsEventDTO{EventType: ev.Type, Timestamp: item.CreatedAt}
		if ev.Data != "" {
			dto.EventData = json.RawMessage(ev.Data)
		}
		req.Events = append(req.Events, dto)
	}
	return p.api.SendAnalytics(ctx, req)
}
