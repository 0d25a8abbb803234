// Package remote talks to the flitsync backend over HTTP/JSON: the text
// classifier, the calendar bridge, bulk sync and analytics delivery.
package remote

import "context"

// API is the backend surface consumed by the sync core. Implementations map
// transport and protocol failures onto the sentinel errors in
// internal/common so callers can decide retryability with errors.Is.
type API interface {
	// Classify submits text for classification.
	Classify(ctx context.Context, req ClassifyRequest) (*ClassifyResponse, error)

	// CreateCalendarEvent creates an event and returns it with its id set.
	CreateCalendarEvent(ctx context.Context, ev CalendarEvent) (*CalendarEvent, error)

	// UpdateCalendarEvent overwrites the event identified by ev.ID.
	UpdateCalendarEvent(ctx context.Context, ev CalendarEvent) (*CalendarEvent, error)

	// DeleteCalendarEvent removes an event by id.
	DeleteCalendarEvent(ctx context.Context, eventID string) error

	// GetCalendarEvent fetches an event by id.
	GetCalendarEvent(ctx context.Context, eventID string) (*CalendarEvent, error)

	// SyncPush uploads local changes.
	SyncPush(ctx context.Context, req SyncPushRequest) (*SyncPushResponse, error)

	// SyncPull downloads server-side changes after the given cursor.
	SyncPull(ctx context.Context, req SyncPullRequest) (*SyncPullResponse, error)

	// SendAnalytics delivers a batch of analytics events.
	SendAnalytics(ctx context.Context, req AnalyticsEventsRequest) error
}
