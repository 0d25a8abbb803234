package models

import "strings"

// Classification is the structured result of one classify call. It is
// transient: the applier materializes it into capture fields and derived
// records but never persists it as-is.
type Classification struct {
	Type       CaptureType
	SubType    *NoteSubType
	Confidence Confidence
	AiTitle    *string
	Tags       []string
	Entities   []ExtractedEntity

	ScheduleInfo *ScheduleInfo
	TodoInfo     *TodoInfo

	// SplitItems is non-empty when the classifier detected multiple
	// intents in one capture. Items never nest further.
	SplitItems []SplitItem
}

// SplitItem is one fragment of a multi-intent classification. Each fragment
// is self-contained and expands into its own child capture.
type SplitItem struct {
	SplitText    string
	Type         CaptureType
	SubType      *NoteSubType
	Confidence   Confidence
	AiTitle      *string
	Tags         []string
	ScheduleInfo *ScheduleInfo
	TodoInfo     *TodoInfo
}

// Classification returns the fragment as a standalone single-intent
// classification, ready for the applier's single-intent path.
func (s SplitItem) Classification() *Classification {
	return &Classification{
		Type:         s.Type,
		SubType:      s.SubType,
		Confidence:   s.Confidence,
		AiTitle:      s.AiTitle,
		Tags:         s.Tags,
		ScheduleInfo: s.ScheduleInfo,
		TodoInfo:     s.TodoInfo,
	}
}

// ScheduleInfo carries the schedule fields extracted by the classifier.
// Times are epoch milliseconds.
type ScheduleInfo struct {
	StartTime *int64
	EndTime   *int64
	Location  *string
	IsAllDay  bool
}

// TodoInfo carries the todo fields extracted by the classifier.
type TodoInfo struct {
	Deadline       *int64
	DeadlineSource *DeadlineSource
}

// DeadlineSource says where a todo deadline came from.
type DeadlineSource string

const (
	DeadlineSourceAIExtracted DeadlineSource = "AI_EXTRACTED"
	DeadlineSourceAISuggested DeadlineSource = "AI_SUGGESTED"
	DeadlineSourceUser        DeadlineSource = "USER"
)

// ParseDeadlineSource falls back to AI_EXTRACTED ("AI" is a legacy alias).
func ParseDeadlineSource(s string) DeadlineSource {
	switch normalizeEnum(s) {
	case "AI_SUGGESTED":
		return DeadlineSourceAISuggested
	case "USER":
		return DeadlineSourceUser
	default:
		return DeadlineSourceAIExtracted
	}
}

// EntityType categorizes an extracted entity.
type EntityType string

const (
	EntityTypeDate   EntityType = "DATE"
	EntityTypeTime   EntityType = "TIME"
	EntityTypePlace  EntityType = "PLACE"
	EntityTypePerson EntityType = "PERSON"
	EntityTypeURL    EntityType = "URL"
	EntityTypeOther  EntityType = "OTHER"
)

// ParseEntityType maps wire values, aliasing LOCATION to PLACE; anything
// unrecognized becomes OTHER.
func ParseEntityType(s string) EntityType {
	switch normalizeEnum(s) {
	case "DATE":
		return EntityTypeDate
	case "TIME":
		return EntityTypeTime
	case "PLACE", "LOCATION":
		return EntityTypePlace
	case "PERSON":
		return EntityTypePerson
	case "URL":
		return EntityTypeURL
	default:
		return EntityTypeOther
	}
}

// ExtractedEntity is a typed value the classifier pulled out of the text.
type ExtractedEntity struct {
	ID              string
	CaptureID       string
	Type            EntityType
	Value           string
	NormalizedValue *string
}

func normalizeEnum(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
