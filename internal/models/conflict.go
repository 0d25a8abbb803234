package models

// ConflictResolution selects how a calendar conflict is settled.
type ConflictResolution string

const (
	// ResolutionOverrideGoogle pushes the local title/time over the
	// external event.
	ResolutionOverrideGoogle ConflictResolution = "OVERRIDE_GOOGLE"
	// ResolutionOverrideLocal pulls the external title/time into the local
	// schedule and its capture.
	ResolutionOverrideLocal ConflictResolution = "OVERRIDE_LOCAL"
	// ResolutionMerge is reserved; its field-level policy is an open
	// product decision and resolving with it returns an error.
	ResolutionMerge ConflictResolution = "MERGE"
)

// CalendarConflict is a detected divergence between a local schedule and its
// external calendar event. Transient: produced by detection, consumed by
// resolution. Times are epoch milliseconds.
type CalendarConflict struct {
	ScheduleID      string
	ExternalEventID string

	LocalTitle  string
	GoogleTitle string

	LocalStartTime  *int64
	GoogleStartTime *int64

	LocalEndTime  *int64
	GoogleEndTime *int64

	LocalLocation  *string
	GoogleLocation *string
}
