package bulksync

import "github.com/flitapp/flitsync/internal/models"

// Wire representations of the synced entities. Kept separate from the domain
// types so the sync protocol can evolve without touching local storage.

type captureDTO struct {
	ID              string  `json:"id"`
	OriginalText    string  `json:"original_text"`
	AiTitle         *string `json:"ai_title"`
	ClassifiedType  string  `json:"classified_type"`
	NoteSubType     *string `json:"note_sub_type"`
	Confidence      *string `json:"confidence"`
	Source          string  `json:"source"`
	ParentCaptureID *string `json:"parent_capture_id"`
	IsConfirmed     bool    `json:"is_confirmed"`
	IsDeleted       bool    `json:"is_deleted"`
	CreatedAt       int64   `json:"created_at"`
	UpdatedAt       int64   `json:"updated_at"`
}

func toCaptureDTO(c *models.Capture) captureDTO {
	d := captureDTO{
		ID:              c.ID,
		OriginalText:    c.OriginalText,
		AiTitle:         c.AiTitle,
		ClassifiedType:  string(c.ClassifiedType),
		Source:          string(c.Source),
		ParentCaptureID: c.ParentCaptureID,
		IsConfirmed:     c.IsConfirmed,
		IsDeleted:       c.IsDeleted,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
	if c.NoteSubType != nil {
		s := string(*c.NoteSubType)
		d.NoteSubType = &s
	}
	if c.Confidence != nil {
		s := string(*c.Confidence)
		d.Confidence = &s
	}
	return d
}

func (d captureDTO) toModel() *models.Capture {
	c := &models.Capture{
		ID:              d.ID,
		OriginalText:    d.OriginalText,
		AiTitle:         d.AiTitle,
		ClassifiedType:  models.ParseCaptureType(d.ClassifiedType),
		Source:          models.CaptureSource(d.Source),
		ParentCaptureID: d.ParentCaptureID,
		IsConfirmed:     d.IsConfirmed,
		IsDeleted:       d.IsDeleted,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
	if d.NoteSubType != nil {
		sub := models.ParseNoteSubType(*d.NoteSubType)
		c.NoteSubType = &sub
	}
	if d.Confidence != nil {
		conf := models.ParseConfidence(*d.Confidence)
		c.Confidence = &conf
	}
	return c
}

type todoDTO struct {
	ID             string  `json:"id"`
	CaptureID      string  `json:"capture_id"`
	Deadline       *int64  `json:"deadline"`
	DeadlineSource *string `json:"deadline_source"`
	IsCompleted    bool    `json:"is_completed"`
	SortOrder      int     `json:"sort_order"`
	CreatedAt      int64   `json:"created_at"`
	UpdatedAt      int64   `json:"updated_at"`
}

func toTodoDTO(t *models.Todo) todoDTO {
	d := todoDTO{
		ID:          t.ID,
		CaptureID:   t.CaptureID,
		Deadline:    t.Deadline,
		IsCompleted: t.IsCompleted,
		SortOrder:   t.SortOrder,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.DeadlineSource != nil {
		s := string(*t.DeadlineSource)
		d.DeadlineSource = &s
	}
	return d
}

func (d todoDTO) toModel() *models.Todo {
	t := &models.Todo{
		ID:          d.ID,
		CaptureID:   d.CaptureID,
		Deadline:    d.Deadline,
		IsCompleted: d.IsCompleted,
		SortOrder:   d.SortOrder,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	if d.DeadlineSource != nil {
		src := models.ParseDeadlineSource(*d.DeadlineSource)
		t.DeadlineSource = &src
	}
	return t
}

type scheduleDTO struct {
	ID                 string  `json:"id"`
	CaptureID          string  `json:"capture_id"`
	StartTime          *int64  `json:"start_time"`
	EndTime            *int64  `json:"end_time"`
	Location           *string `json:"location"`
	IsAllDay           bool    `json:"is_all_day"`
	Confidence         string  `json:"confidence"`
	CalendarSyncStatus string  `json:"calendar_sync_status"`
	ExternalEventID    *string `json:"external_event_id"`
	CreatedAt          int64   `json:"created_at"`
	UpdatedAt          int64   `json:"updated_at"`
}

func toScheduleDTO(s *models.Schedule) scheduleDTO {
	return scheduleDTO{
		ID:                 s.ID,
		CaptureID:          s.CaptureID,
		StartTime:          s.StartTime,
		EndTime:            s.EndTime,
		Location:           s.Location,
		IsAllDay:           s.IsAllDay,
		Confidence:         string(s.Confidence),
		CalendarSyncStatus: string(s.CalendarSyncStatus),
		ExternalEventID:    s.ExternalEventID,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
}

func (d scheduleDTO) toModel() *models.Schedule {
	return &models.Schedule{
		ID:                 d.ID,
		CaptureID:          d.CaptureID,
		StartTime:          d.StartTime,
		EndTime:            d.EndTime,
		Location:           d.Location,
		IsAllDay:           d.IsAllDay,
		Confidence:         models.ParseConfidence(d.Confidence),
		CalendarSyncStatus: models.CalendarSyncStatus(d.CalendarSyncStatus),
		ExternalEventID:    d.ExternalEventID,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
}

type noteDTO struct {
	ID        string  `json:"id"`
	CaptureID string  `json:"capture_id"`
	FolderID  string  `json:"folder_id"`
	Body      *string `json:"body"`
	CreatedAt int64   `json:"created_at"`
	UpdatedAt int64   `json:"updated_at"`
}

func toNoteDTO(n *models.Note) noteDTO {
	return noteDTO{
		ID:        n.ID,
		CaptureID: n.CaptureID,
		FolderID:  n.FolderID,
		Body:      n.Body,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

func (d noteDTO) toModel() *models.Note {
	return &models.Note{
		ID:        d.ID,
		CaptureID: d.CaptureID,
		FolderID:  d.FolderID,
		Body:      d.Body,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type tagDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"created_at"`
}

func toTagDTO(t *models.Tag) tagDTO {
	return tagDTO{ID: t.ID, Name: t.Name, CreatedAt: t.CreatedAt}
}

func (d tagDTO) toModel() *models.Tag {
	return &models.Tag{ID: d.ID, Name: d.Name, CreatedAt: d.CreatedAt}
}

type folderDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	SortOrder int    `json:"sort_order"`
	CreatedAt int64  `json:"created_at"`
}

func toFolderDTO(f *models.Folder) folderDTO {
	return folderDTO{
		ID:        f.ID,
		Name:      f.Name,
		Type:      string(f.Type),
		SortOrder: f.SortOrder,
		CreatedAt: f.CreatedAt,
	}
}

func (d folderDTO) toModel() *models.Folder {
	return &models.Folder{
		ID:        d.ID,
		Name:      d.Name,
		Type:      models.FolderType(d.Type),
		SortOrder: d.SortOrder,
		CreatedAt: d.CreatedAt,
	}
}
