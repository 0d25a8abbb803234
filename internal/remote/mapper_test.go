package remote

import (
	"testing"

	"github.com/flitapp/flitsync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToClassification_SingleIntent(t *testing.T) {
	sub := "IDEA"
	norm := "2026-09-02T10:00"
	start := int64(1_760_000_000_000)
	r := &ClassifyResponse{
		ClassifiedType: "notes",
		NoteSubType:    &sub,
		Confidence:     "high",
		AiTitle:        "Startup idea",
		Tags:           []string{"ideas"},
		Entities: []EntityDTO{
			{Type: "LOCATION", Value: "cafe", NormalizedValue: &norm},
		},
		ScheduleInfo: &ScheduleInfoDTO{StartTime: &start, IsAllDay: true},
	}

	c := r.ToClassification()
	assert.Equal(t, models.CaptureTypeNotes, c.Type)
	require.NotNil(t, c.SubType)
	assert.Equal(t, models.NoteSubTypeIdea, *c.SubType)
	assert.Equal(t, models.ConfidenceHigh, c.Confidence)
	require.NotNil(t, c.AiTitle)
	assert.Equal(t, "Startup idea", *c.AiTitle)
	require.Len(t, c.Entities, 1)
	// LOCATION is a legacy alias for PLACE.
	assert.Equal(t, models.EntityTypePlace, c.Entities[0].Type)
	require.NotNil(t, c.ScheduleInfo)
	assert.True(t, c.ScheduleInfo.IsAllDay)
}

func TestToClassification_UnknownEnumsDegrade(t *testing.T) {
	r := &ClassifyResponse{ClassifiedType: "GIBBERISH", Confidence: "???"}

	c := r.ToClassification()
	assert.Equal(t, models.CaptureTypeTemp, c.Type)
	assert.Equal(t, models.ConfidenceMedium, c.Confidence)
	assert.Nil(t, c.AiTitle)
}

func TestToClassification_SplitItems(t *testing.T) {
	title := "Dentist"
	deadline := int64(1_760_000_000_000)
	src := "AI"
	r := &ClassifyResponse{
		ClassifiedType: "TODO",
		Confidence:     "MEDIUM",
		SplitItems: []SplitItemDTO{
			{SplitText: "dentist at 3pm", Type: "SCHEDULE", Confidence: "HIGH", AiTitle: &title},
			{SplitText: "buy floss", Type: "TODO", Confidence: "MEDIUM",
				TodoInfo: &TodoInfoDTO{Deadline: &deadline, DeadlineSource: &src}},
		},
	}

	c := r.ToClassification()
	require.Len(t, c.SplitItems, 2)
	assert.Equal(t, models.CaptureTypeSchedule, c.SplitItems[0].Type)
	assert.Equal(t, "dentist at 3pm", c.SplitItems[0].SplitText)
	require.NotNil(t, c.SplitItems[1].TodoInfo)
	require.NotNil(t, c.SplitItems[1].TodoInfo.DeadlineSource)
	// "AI" is a legacy alias for AI_EXTRACTED.
	assert.Equal(t, models.DeadlineSourceAIExtracted, *c.SplitItems[1].TodoInfo.DeadlineSource)
}
