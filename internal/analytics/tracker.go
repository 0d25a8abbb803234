// Package analytics buffers usage events and hands them to the sync queue as
// durable batches, so events survive restarts and ride the queue's retry
// machinery instead of being fired and forgotten.
package analytics

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/flitapp/flitsync/internal/logging"
	"github.com/flitapp/flitsync/internal/models"
	"github.com/flitapp/flitsync/internal/repositories/syncqueue"
)

// flushThreshold bounds how many events accumulate before Track flushes on
// its own.
const flushThreshold = 20

// Tracker buffers analytics events. Safe for concurrent use.
type Tracker struct {
	queue  syncqueue.Repository
	notify func()
	log    logging.Logger

	mu     sync.Mutex
	buffer []models.AnalyticsEvent
}

// NewTracker wires a Tracker. notify wakes a running queue processor after a
// flush; pass nil when no processor is running.
func NewTracker(queue syncqueue.Repository, notify func(), log logging.Logger) *Tracker {
	if notify == nil {
		notify = func() {}
	}
	return &Tracker{
		queue:  queue,
		notify: notify,
		log:    log.With("component", "analytics"),
	}
}

// Track buffers one event. data is marshalled to JSON; a value that cannot be
// marshalled drops the event with a warning rather than failing the caller,
// analytics must never break a user-facing flow.
func (t *Tracker) Track(ctx context.Context, eventType string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		t.log.Warn(ctx, "dropping unmarshallable analytics event", "event_type", eventType, "error", err)
		return
	}

	t.mu.Lock()
	t.buffer = append(t.buffer, models.AnalyticsEvent{Type: eventType, Data: string(raw)})
	full := len(t.buffer) >= flushThreshold
	t.mu.Unlock()

	if full {
		if err := t.Flush(ctx); err != nil {
			t.log.Warn(ctx, "analytics auto-flush failed", "error", err)
		}
	}
}

// Flush moves the buffered events into a durable queue batch. A failed
// enqueue keeps the events buffered for the next flush.
func (t *Tracker) Flush(ctx context.Context) error {
	t.mu.Lock()
	events := t.buffer
	t.buffer = nil
	t.mu.Unlock()

	if len(events) == 0 {
		return nil
	}

	item, err := models.NewSyncQueueItem(models.ActionAnalyticsBatch, models.AnalyticsBatchPayload{Events: events})
	if err == nil {
		err = t.queue.Enqueue(ctx, item)
	}
	if err != nil {
		t.mu.Lock()
		t.buffer = append(events, t.buffer...)
		t.mu.Unlock()
		return err
	}

	t.log.Debug(ctx, "analytics batch enqueued", "events", len(events))
	t.notify()
	return nil
}

// Pending reports the number of buffered events, for tests and shutdown
// decisions.
func (t *Tracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.buffer)
}
