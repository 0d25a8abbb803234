package remote

import "github.com/flitapp/flitsync/internal/models"

// ToClassification converts the wire response into the domain type, applying
// the lenient enum parsing so a drifting backend degrades instead of failing.
func (r *ClassifyResponse) ToClassification() *models.Classification {
	c := &models.Classification{
		Type:       models.ParseCaptureType(r.ClassifiedType),
		Confidence: models.ParseConfidence(r.Confidence),
		Tags:       r.Tags,
	}
	if r.AiTitle != "" {
		title := r.AiTitle
		c.AiTitle = &title
	}
	if r.NoteSubType != nil {
		sub := models.ParseNoteSubType(*r.NoteSubType)
		c.SubType = &sub
	}
	for _, e := range r.Entities {
		c.Entities = append(c.Entities, models.ExtractedEntity{
			Type:            models.ParseEntityType(e.Type),
			Value:           e.Value,
			NormalizedValue: e.NormalizedValue,
		})
	}
	c.ScheduleInfo = toScheduleInfo(r.ScheduleInfo)
	c.TodoInfo = toTodoInfo(r.TodoInfo)
	for _, s := range r.SplitItems {
		c.SplitItems = append(c.SplitItems, toSplitItem(s))
	}
	return c
}

func toSplitItem(s SplitItemDTO) models.SplitItem {
	item := models.SplitItem{
		SplitText:    s.SplitText,
		Type:         models.ParseCaptureType(s.Type),
		Confidence:   models.ParseConfidence(s.Confidence),
		AiTitle:      s.AiTitle,
		Tags:         s.Tags,
		ScheduleInfo: toScheduleInfo(s.ScheduleInfo),
		TodoInfo:     toTodoInfo(s.TodoInfo),
	}
	if s.SubType != nil {
		sub := models.ParseNoteSubType(*s.SubType)
		item.SubType = &sub
	}
	return item
}

func toScheduleInfo(d *ScheduleInfoDTO) *models.ScheduleInfo {
	if d == nil {
		return nil
	}
	return &models.ScheduleInfo{
		StartTime: d.StartTime,
		EndTime:   d.EndTime,
		Location:  d.Location,
		IsAllDay:  d.IsAllDay,
	}
}

func toTodoInfo(d *TodoInfoDTO) *models.TodoInfo {
	if d == nil {
		return nil
	}
	info := &models.TodoInfo{Deadline: d.Deadline}
	if d.DeadlineSource != nil {
		src := models.ParseDeadlineSource(*d.DeadlineSource)
		info.DeadlineSource = &src
	}
	return info
}
