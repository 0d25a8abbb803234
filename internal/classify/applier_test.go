package classify

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"

	"github.com/flitapp/flitsync/internal/common"
	"github.com/flitapp/flitsync/internal/logging"
	"github.com/flitapp/flitsync/internal/models"
	"github.com/flitapp/flitsync/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*sql.DB, *storage.Repositories, *Applier) {
	t.Helper()
	db, repos, err := storage.InitDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := logging.NewTextLogger(io.Discard, slog.LevelDebug)
	return db, repos, NewApplier(db, log)
}

func saveCapture(t *testing.T, repos *storage.Repositories, text string) *models.Capture {
	t.Helper()
	c := models.NewCapture(text, models.CaptureSourceApp)
	require.NoError(t, repos.Captures.Save(context.Background(), c))
	return c
}

func strPtr(s string) *string { return &s }

func TestApply_Todo(t *testing.T) {
	_, repos, applier := setup(t)
	ctx := context.Background()

	c := saveCapture(t, repos, "buy milk tomorrow")
	deadline := int64(1_760_000_000_000)
	src := models.DeadlineSourceAIExtracted

	effects, err := applier.Apply(ctx, c.ID, &models.Classification{
		Type:       models.CaptureTypeTodo,
		Confidence: models.ConfidenceHigh,
		AiTitle:    strPtr("Buy milk"),
		Tags:       []string{"errands"},
		Entities: []models.ExtractedEntity{
			{Type: models.EntityTypeDate, Value: "tomorrow"},
		},
		TodoInfo: &models.TodoInfo{Deadline: &deadline, DeadlineSource: &src},
	})
	require.NoError(t, err)
	assert.Empty(t, effects.ScheduleIDs)
	require.Len(t, effects.Events, 1)
	assert.Equal(t, "classification_completed", effects.Events[0].Type)

	got, err := repos.Captures.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CaptureTypeTodo, got.ClassifiedType)
	assert.Equal(t, "Buy milk", *got.AiTitle)

	todo, err := repos.Todos.GetByCaptureID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, deadline, *todo.Deadline)

	linked, err := repos.Tags.GetForCapture(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, linked, 1)
	assert.Equal(t, "errands", linked[0].Name)

	ents, err := repos.Entities.GetByCaptureID(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, ents, 1)
	assert.Equal(t, c.ID, ents[0].CaptureID)
}

func TestApply_NoteIdeaLandsInIdeasFolder(t *testing.T) {
	_, repos, applier := setup(t)
	ctx := context.Background()

	c := saveCapture(t, repos, "app that waters plants automatically")
	sub := models.NoteSubTypeIdea

	_, err := applier.Apply(ctx, c.ID, &models.Classification{
		Type:       models.CaptureTypeNotes,
		SubType:    &sub,
		Confidence: models.ConfidenceMedium,
	})
	require.NoError(t, err)

	note, err := repos.Notes.GetByCaptureID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SystemFolderIdeas, note.FolderID)
}

func TestApply_ScheduleCollectsEffect(t *testing.T) {
	_, repos, applier := setup(t)
	ctx := context.Background()

	c := saveCapture(t, repos, "dentist friday 3pm")
	start := int64(1_760_000_000_000)

	effects, err := applier.Apply(ctx, c.ID, &models.Classification{
		Type:         models.CaptureTypeSchedule,
		Confidence:   models.ConfidenceHigh,
		ScheduleInfo: &models.ScheduleInfo{StartTime: &start},
	})
	require.NoError(t, err)
	require.Len(t, effects.ScheduleIDs, 1)

	s, err := repos.Schedules.GetByID(ctx, effects.ScheduleIDs[0])
	require.NoError(t, err)
	assert.Equal(t, c.ID, s.CaptureID)
	assert.Equal(t, models.CalendarSyncPending, s.CalendarSyncStatus)
	assert.Equal(t, start, *s.StartTime)
}

func TestApply_TempCreatesNoDerivedRecord(t *testing.T) {
	_, repos, applier := setup(t)
	ctx := context.Background()

	c := saveCapture(t, repos, "???")
	_, err := applier.Apply(ctx, c.ID, &models.Classification{
		Type:       models.CaptureTypeTemp,
		Confidence: models.ConfidenceLow,
	})
	require.NoError(t, err)

	_, err = repos.Todos.GetByCaptureID(ctx, c.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = repos.Notes.GetByCaptureID(ctx, c.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestApply_SplitExpandsChildren(t *testing.T) {
	_, repos, applier := setup(t)
	ctx := context.Background()

	c := saveCapture(t, repos, "dentist friday 3pm and buy floss")
	start := int64(1_760_000_000_000)

	effects, err := applier.Apply(ctx, c.ID, &models.Classification{
		Type:       models.CaptureTypeTodo,
		Confidence: models.ConfidenceMedium,
		SplitItems: []models.SplitItem{
			{
				SplitText:    "dentist friday 3pm",
				Type:         models.CaptureTypeSchedule,
				Confidence:   models.ConfidenceHigh,
				ScheduleInfo: &models.ScheduleInfo{StartTime: &start},
			},
			{
				SplitText:  "buy floss",
				Type:       models.CaptureTypeTodo,
				Confidence: models.ConfidenceMedium,
			},
		},
	})
	require.NoError(t, err)

	// The parent is a container: classified, but without a derived record.
	_, err = repos.Todos.GetByCaptureID(ctx, c.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	children, err := repos.Captures.GetChangedSince(ctx, 0)
	require.NoError(t, err)
	var split []models.Capture
	for _, ch := range children {
		if ch.ParentCaptureID != nil && *ch.ParentCaptureID == c.ID {
			split = append(split, ch)
		}
	}
	require.Len(t, split, 2)
	for _, ch := range split {
		assert.Equal(t, models.CaptureSourceSplit, ch.Source)
	}

	// One child became a schedule, the other a todo.
	require.Len(t, effects.ScheduleIDs, 1)
	s, err := repos.Schedules.GetByID(ctx, effects.ScheduleIDs[0])
	require.NoError(t, err)
	assert.NotEqual(t, c.ID, s.CaptureID)

	// Two completions plus one split event, split last.
	require.Len(t, effects.Events, 3)
	assert.Equal(t, "classification_completed", effects.Events[0].Type)
	assert.Equal(t, "split_capture_created", effects.Events[2].Type)
}

func TestApply_MissingCaptureRollsBack(t *testing.T) {
	_, repos, applier := setup(t)
	ctx := context.Background()

	_, err := applier.Apply(ctx, "missing", &models.Classification{
		Type:       models.CaptureTypeTodo,
		Confidence: models.ConfidenceHigh,
		Tags:       []string{"never-created"},
	})
	assert.ErrorIs(t, err, common.ErrNotFound)

	// Nothing from the aborted transaction leaked.
	_, err = repos.Tags.GetByName(ctx, "never-created")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestApply_TypeChangeDropsOldDerivedRecord(t *testing.T) {
	_, repos, applier := setup(t)
	ctx := context.Background()

	c := saveCapture(t, repos, "read the tax letter")
	_, err := applier.Apply(ctx, c.ID, &models.Classification{
		Type:       models.CaptureTypeTodo,
		Confidence: models.ConfidenceHigh,
	})
	require.NoError(t, err)
	_, err = repos.Todos.GetByCaptureID(ctx, c.ID)
	require.NoError(t, err)

	// Reclassified as a note: the todo must not survive.
	sub := models.NoteSubTypeInbox
	_, err = applier.Apply(ctx, c.ID, &models.Classification{
		Type:       models.CaptureTypeNotes,
		SubType:    &sub,
		Confidence: models.ConfidenceMedium,
	})
	require.NoError(t, err)

	_, err = repos.Todos.GetByCaptureID(ctx, c.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
	note, err := repos.Notes.GetByCaptureID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SystemFolderInbox, note.FolderID)
}

func TestApply_TypeChangeDropsOldSchedule(t *testing.T) {
	_, repos, applier := setup(t)
	ctx := context.Background()

	c := saveCapture(t, repos, "dentist friday 3pm")
	start := int64(1_760_000_000_000)
	effects, err := applier.Apply(ctx, c.ID, &models.Classification{
		Type:         models.CaptureTypeSchedule,
		Confidence:   models.ConfidenceHigh,
		ScheduleInfo: &models.ScheduleInfo{StartTime: &start},
	})
	require.NoError(t, err)
	require.Len(t, effects.ScheduleIDs, 1)

	_, err = applier.Apply(ctx, c.ID, &models.Classification{
		Type:       models.CaptureTypeTodo,
		Confidence: models.ConfidenceMedium,
	})
	require.NoError(t, err)

	_, err = repos.Schedules.GetByID(ctx, effects.ScheduleIDs[0])
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = repos.Todos.GetByCaptureID(ctx, c.ID)
	require.NoError(t, err)
}

func TestApply_SplitAfterSingleDropsParentDerived(t *testing.T) {
	_, repos, applier := setup(t)
	ctx := context.Background()

	c := saveCapture(t, repos, "dentist friday 3pm and buy floss")
	_, err := applier.Apply(ctx, c.ID, &models.Classification{
		Type:       models.CaptureTypeTodo,
		Confidence: models.ConfidenceMedium,
	})
	require.NoError(t, err)

	// The same capture comes back as a split: the parent becomes a pure
	// container and its earlier todo must go.
	_, err = applier.Apply(ctx, c.ID, &models.Classification{
		Type:       models.CaptureTypeTodo,
		Confidence: models.ConfidenceMedium,
		SplitItems: []models.SplitItem{
			{SplitText: "dentist friday 3pm", Type: models.CaptureTypeTodo, Confidence: models.ConfidenceMedium},
			{SplitText: "buy floss", Type: models.CaptureTypeTodo, Confidence: models.ConfidenceMedium},
		},
	})
	require.NoError(t, err)

	_, err = repos.Todos.GetByCaptureID(ctx, c.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestApply_RedeliveryIsIdempotent(t *testing.T) {
	_, repos, applier := setup(t)
	ctx := context.Background()

	c := saveCapture(t, repos, "dentist friday 3pm")
	start := int64(1_760_000_000_000)
	classification := &models.Classification{
		Type:         models.CaptureTypeSchedule,
		Confidence:   models.ConfidenceHigh,
		ScheduleInfo: &models.ScheduleInfo{StartTime: &start},
	}

	first, err := applier.Apply(ctx, c.ID, classification)
	require.NoError(t, err)
	second, err := applier.Apply(ctx, c.ID, classification)
	require.NoError(t, err)

	// Same schedule row on redelivery, not a duplicate.
	require.Len(t, first.ScheduleIDs, 1)
	require.Len(t, second.ScheduleIDs, 1)
	assert.Equal(t, first.ScheduleIDs[0], second.ScheduleIDs[0])

	all, err := repos.Schedules.GetChangedSince(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
