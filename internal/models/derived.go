package models

import (
	"time"

	"github.com/google/uuid"
)

// CalendarSyncStatus tracks a schedule's relation to the external calendar.
type CalendarSyncStatus string

const (
	CalendarSyncNone     CalendarSyncStatus = "NONE"
	CalendarSyncPending  CalendarSyncStatus = "PENDING"
	CalendarSyncSynced   CalendarSyncStatus = "SYNCED"
	CalendarSyncConflict CalendarSyncStatus = "CONFLICT"
	CalendarSyncFailed   CalendarSyncStatus = "FAILED"
)

// Schedule is the derived record for a SCHEDULE capture (1:1 by capture id).
type Schedule struct {
	ID                 string
	CaptureID          string
	StartTime          *int64
	EndTime            *int64
	Location           *string
	IsAllDay           bool
	Confidence         Confidence
	CalendarSyncStatus CalendarSyncStatus
	ExternalEventID    *string
	CreatedAt          int64
	UpdatedAt          int64
}

// Todo is the derived record for a TODO capture (1:1 by capture id).
type Todo struct {
	ID             string
	CaptureID      string
	Deadline       *int64
	DeadlineSource *DeadlineSource
	IsCompleted    bool
	SortOrder      int
	CreatedAt      int64
	UpdatedAt      int64
}

// Note is the derived record for a NOTES capture (1:1 by capture id).
// FolderID points at one of the seeded system folders unless the user moved
// the note.
type Note struct {
	ID        string
	CaptureID string
	FolderID  string
	Body      *string
	CreatedAt int64
	UpdatedAt int64
}

// Tag is a user-visible label, unique by name, linked to captures n:m.
type Tag struct {
	ID        string
	Name      string
	CreatedAt int64
}

// NewTag builds a tag for the given name.
func NewTag(name string) *Tag {
	return &Tag{ID: uuid.NewString(), Name: name, CreatedAt: time.Now().UnixMilli()}
}

// FolderType distinguishes seeded system folders from user folders.
type FolderType string

const (
	FolderTypeSystem FolderType = "SYSTEM"
	FolderTypeUser   FolderType = "USER"
)

// Fixed ids of the system folders seeded by the initial migration.
const (
	SystemFolderInbox     = "system-inbox"
	SystemFolderIdeas     = "system-ideas"
	SystemFolderBookmarks = "system-bookmarks"
)

// Folder groups notes.
type Folder struct {
	ID        string
	Name      string
	Type      FolderType
	SortOrder int
	CreatedAt int64
}

// FolderForNoteSubType maps a note subtype onto the system folder its note
// lands in: ideas and bookmarks get their own folders, everything else the
// inbox.
func FolderForNoteSubType(sub *NoteSubType) string {
	if sub == nil {
		return SystemFolderInbox
	}
	switch *sub {
	case NoteSubTypeIdea:
		return SystemFolderIdeas
	case NoteSubTypeBookmark:
		return SystemFolderBookmarks
	default:
		return SystemFolderInbox
	}
}
