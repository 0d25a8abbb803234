package remote

import "encoding/json"

// envelope is the common wrapper around every backend response.
type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *apiError       `json:"error"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ClassifyRequest asks the backend to classify one piece of text.
type ClassifyRequest struct {
	Text              string  `json:"text"`
	CustomInstruction *string `json:"custom_instruction,omitempty"`
}

// ClassifyResponse is the classifier's structured verdict. Times are epoch
// milliseconds.
type ClassifyResponse struct {
	ClassifiedType string           `json:"classified_type"`
	NoteSubType    *string          `json:"note_sub_type"`
	Confidence     string           `json:"confidence"`
	AiTitle        string           `json:"ai_title"`
	Tags           []string         `json:"tags"`
	Entities       []EntityDTO      `json:"entities"`
	ScheduleInfo   *ScheduleInfoDTO `json:"schedule_info"`
	TodoInfo       *TodoInfoDTO     `json:"todo_info"`
	SplitItems     []SplitItemDTO   `json:"split_items"`
}

// EntityDTO is one extracted entity on the wire.
type EntityDTO struct {
	Type            string  `json:"type"`
	Value           string  `json:"value"`
	NormalizedValue *string `json:"normalized_value"`
}

// ScheduleInfoDTO carries schedule fields on the wire.
type ScheduleInfoDTO struct {
	StartTime *int64  `json:"start_time"`
	EndTime   *int64  `json:"end_time"`
	Location  *string `json:"location"`
	IsAllDay  bool    `json:"is_all_day"`
}

// TodoInfoDTO carries todo fields on the wire.
type TodoInfoDTO struct {
	Deadline       *int64  `json:"deadline"`
	DeadlineSource *string `json:"deadline_source"`
}

// SplitItemDTO is one fragment of a multi-intent classification.
type SplitItemDTO struct {
	SplitText    string           `json:"split_text"`
	Type         string           `json:"type"`
	SubType      *string          `json:"sub_type"`
	Confidence   string           `json:"confidence"`
	AiTitle      *string          `json:"ai_title"`
	Tags         []string         `json:"tags"`
	ScheduleInfo *ScheduleInfoDTO `json:"schedule_info"`
	TodoInfo     *TodoInfoDTO     `json:"todo_info"`
}

// CalendarEvent is an event in the external calendar.
type CalendarEvent struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	StartTime *int64  `json:"start_time"`
	EndTime   *int64  `json:"end_time"`
	Location  *string `json:"location"`
	IsAllDay  bool    `json:"is_all_day"`
}

// SyncPushRequest uploads local changes accumulated since the last sync.
type SyncPushRequest struct {
	DeviceID string         `json:"device_id"`
	Changes  []SyncPushItem `json:"changes"`
}

// SyncPushItem is one changed local entity.
type SyncPushItem struct {
	EntityType      string          `json:"entity_type"`
	Operation       string          `json:"operation"`
	ClientID        string          `json:"client_id"`
	Data            json.RawMessage `json:"data"`
	ClientUpdatedAt int64           `json:"client_updated_at"`
}

// SyncPushResponse acknowledges a push.
type SyncPushResponse struct {
	Acknowledged    int    `json:"acknowledged"`
	ServerTimestamp *int64 `json:"server_timestamp"`
	UserID          string `json:"user_id"`
}

// SyncPullRequest asks for server-side changes after cursor.
type SyncPullRequest struct {
	DeviceID string  `json:"device_id"`
	Cursor   *string `json:"cursor"`
}

// SyncPullResponse carries server-side changes plus the next cursor.
type SyncPullResponse struct {
	Changes    []SyncPullItem `json:"changes"`
	NextCursor *string        `json:"next_cursor"`
	UserID     string         `json:"user_id"`
}

// SyncPullItem is one changed server entity. Operation is "upsert" or
// "delete".
type SyncPullItem struct {
	EntityType      string          `json:"entity_type"`
	Operation       string          `json:"operation"`
	ServerID        string          `json:"server_id"`
	Data            json.RawMessage `json:"data"`
	ServerUpdatedAt *int64          `json:"server_updated_at"`
}

// AnalyticsEventsRequest delivers a batch of analytics events.
type AnalyticsEventsRequest struct {
	Events []AnalyticsEventDTO `json:"events"`
}

// AnalyticsEventDTO is one analytics event on the wire.
type AnalyticsEventDTO struct {
	EventType string          `json:"event_type"`
	EventData json.RawMessage `json:"event_data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}
