package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SyncAction identifies the remote operation a queue item defers.
type SyncAction string

const (
	ActionClassify       SyncAction = "CLASSIFY"
	ActionReclassify     SyncAction = "RECLASSIFY"
	ActionCalendarCreate SyncAction = "CALENDAR_CREATE"
	ActionCalendarDelete SyncAction = "CALENDAR_DELETE"
	ActionAnalyticsBatch SyncAction = "ANALYTICS_BATCH"
)

// SyncQueueStatus is the persisted state of a queue item. Transitions within
// one attempt are monotonic: PENDING → PROCESSING → COMPLETED, back to
// PENDING with retry_count+1, or FAILED once retries are exhausted. FAILED is
// terminal; COMPLETED items are pruned.
type SyncQueueStatus string

const (
	StatusPending    SyncQueueStatus = "PENDING"
	StatusProcessing SyncQueueStatus = "PROCESSING"
	StatusCompleted  SyncQueueStatus = "COMPLETED"
	StatusFailed     SyncQueueStatus = "FAILED"
)

// DefaultMaxRetries bounds automatic retries per item.
const DefaultMaxRetries = 3

// SyncQueueItem is one durable outbound operation. Payload is opaque to the
// store; the processor decodes it according to Action.
type SyncQueueItem struct {
	ID         string
	Action     SyncAction
	Payload    json.RawMessage
	RetryCount int
	MaxRetries int
	Status     SyncQueueStatus
	CreatedAt  int64

	// NextRetryAt is nil until the first retryable failure. Items whose
	// NextRetryAt lies in the future are not handed out by the store.
	NextRetryAt *int64
}

// NewSyncQueueItem builds a PENDING item with default retry budget.
func NewSyncQueueItem(action SyncAction, payload any) (*SyncQueueItem, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &SyncQueueItem{
		ID:         uuid.NewString(),
		Action:     action,
		Payload:    raw,
		MaxRetries: DefaultMaxRetries,
		Status:     StatusPending,
		CreatedAt:  time.Now().UnixMilli(),
	}, nil
}

// ClassifyPayload is the payload for CLASSIFY and RECLASSIFY items.
type ClassifyPayload struct {
	CaptureID string `json:"capture_id"`
}

// CalendarCreatePayload is the payload for CALENDAR_CREATE items.
type CalendarCreatePayload struct {
	ScheduleID string `json:"schedule_id"`
}

// CalendarDeletePayload is the payload for CALENDAR_DELETE items. The event
// id is carried in the payload because the local schedule row may already be
// gone by the time the item runs.
type CalendarDeletePayload struct {
	ScheduleID string `json:"schedule_id"`
	EventID    string `json:"event_id"`
}

// AnalyticsEvent is one usage event awaiting batched delivery.
type AnalyticsEvent struct {
	Type string `json:"event_type"`
	Data string `json:"event_data"`
}

// AnalyticsBatchPayload is the payload for ANALYTICS_BATCH items.
type AnalyticsBatchPayload struct {
	Events []AnalyticsEvent `json:"events"`
}
