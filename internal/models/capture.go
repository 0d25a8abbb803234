// Package models defines the domain types shared by the flitsync core:
// captures, their classification results, derived records and sync state.
package models

import (
	"time"

	"github.com/google/uuid"
)

// CaptureType is the classification assigned to a capture.
type CaptureType string

const (
	CaptureTypeTemp     CaptureType = "TEMP"
	CaptureTypeTodo     CaptureType = "TODO"
	CaptureTypeSchedule CaptureType = "SCHEDULE"
	CaptureTypeNotes    CaptureType = "NOTES"
)

// ParseCaptureType maps a wire value onto a CaptureType. Unknown values fall
// back to TEMP so a misbehaving classifier cannot wedge a capture.
func ParseCaptureType(s string) CaptureType {
	switch CaptureType(normalizeEnum(s)) {
	case CaptureTypeTodo:
		return CaptureTypeTodo
	case CaptureTypeSchedule:
		return CaptureTypeSchedule
	case CaptureTypeNotes:
		return CaptureTypeNotes
	default:
		return CaptureTypeTemp
	}
}

// NoteSubType refines NOTES captures.
type NoteSubType string

const (
	NoteSubTypeInbox      NoteSubType = "INBOX"
	NoteSubTypeIdea       NoteSubType = "IDEA"
	NoteSubTypeBookmark   NoteSubType = "BOOKMARK"
	NoteSubTypeUserFolder NoteSubType = "USER_FOLDER"
)

// ParseNoteSubType falls back to INBOX for unknown values.
func ParseNoteSubType(s string) NoteSubType {
	switch NoteSubType(normalizeEnum(s)) {
	case NoteSubTypeIdea:
		return NoteSubTypeIdea
	case NoteSubTypeBookmark:
		return NoteSubTypeBookmark
	case NoteSubTypeUserFolder:
		return NoteSubTypeUserFolder
	default:
		return NoteSubTypeInbox
	}
}

// Confidence is the classifier's self-reported certainty.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// ParseConfidence falls back to MEDIUM for unknown values.
func ParseConfidence(s string) Confidence {
	switch Confidence(normalizeEnum(s)) {
	case ConfidenceHigh:
		return ConfidenceHigh
	case ConfidenceLow:
		return ConfidenceLow
	default:
		return ConfidenceMedium
	}
}

// CaptureSource records where a capture came from.
type CaptureSource string

const (
	CaptureSourceApp    CaptureSource = "APP"
	CaptureSourceWidget CaptureSource = "WIDGET"
	CaptureSourceShare  CaptureSource = "SHARE"
	CaptureSourceSplit  CaptureSource = "SPLIT"
)

// Capture is a single piece of user input. It starts as TEMP and receives a
// classified type plus, except for split parents, exactly one derived record
// (Todo/Schedule/Note) matching that type.
type Capture struct {
	ID             string
	OriginalText   string
	AiTitle        *string
	ClassifiedType CaptureType
	NoteSubType    *NoteSubType
	Confidence     *Confidence
	Source         CaptureSource

	// ParentCaptureID is set only on captures created by split expansion.
	// A capture whose classification contained splitItems keeps its
	// classified type but owns no derived record; it is just a container
	// for its children.
	ParentCaptureID *string

	IsConfirmed bool
	IsDeleted   bool

	// Epoch milliseconds, matching the wire format of the sync API.
	CreatedAt int64
	UpdatedAt int64
}

// NewCapture builds a TEMP capture from raw input.
func NewCapture(text string, source CaptureSource) *Capture {
	now := time.Now().UnixMilli()
	return &Capture{
		ID:             uuid.NewString(),
		OriginalText:   text,
		ClassifiedType: CaptureTypeTemp,
		Source:         source,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Title returns the display title: the AI summary if present, otherwise a
// prefix of the original text (30 runes, matching the capture UI).
func (c *Capture) Title() string {
	if c.AiTitle != nil && *c.AiTitle != "" {
		return *c.AiTitle
	}
	runes := []rune(c.OriginalText)
	if len(runes) > 30 {
		runes = runes[:30]
	}
	return string(runes)
}
