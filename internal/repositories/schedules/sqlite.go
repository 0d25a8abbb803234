package schedules

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/flitapp/flitsync/internal/common"
	"github.com/flitapp/flitsync/internal/dbx"
	"github.com/flitapp/flitsync/internal/models"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const scheduleColumns = `id, capture_id, start_time, end_time, location, is_all_day, confidence,
	calendar_sync_status, external_event_id, created_at, updated_at`

// UpsertForCapture keys on capture_id: a redelivered classification updates
// the existing row instead of inserting a duplicate. Calendar sync state is
// left untouched on the update path so an already-synced event is not
// detached from its external id.
func (r *SQLiteRepository) UpsertForCapture(ctx context.Context, s *models.Schedule) (string, error) {
	query := `INSERT INTO schedules (` + scheduleColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(capture_id) DO UPDATE SET
				start_time = excluded.start_time,
				end_time = excluded.end_time,
				location = excluded.location,
				is_all_day = excluded.is_all_day,
				confidence = excluded.confidence,
				updated_at = excluded.updated_at`
	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.CaptureID, s.StartTime, s.EndTime, s.Location, s.IsAllDay, s.Confidence,
		s.CalendarSyncStatus, s.ExternalEventID, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return "", fmt.Errorf("failed to upsert schedule: %w", err)
	}

	var id string
	if err := r.db.QueryRowContext(ctx, `SELECT id FROM schedules WHERE capture_id = ?`, s.CaptureID).Scan(&id); err != nil {
		return "", fmt.Errorf("failed to resolve schedule id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Schedule, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE id = ?`, id)
	s, err := scanSchedule(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return s, nil
}

func (r *SQLiteRepository) GetByCaptureID(ctx context.Context, captureID string) (*models.Schedule, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE capture_id = ?`, captureID)
	s, err := scanSchedule(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return s, nil
}

func (r *SQLiteRepository) GetSynced(ctx context.Context) ([]models.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE external_event_id IS NOT NULL`
	return r.list(ctx, query)
}

func (r *SQLiteRepository) UpdateCalendarSync(ctx context.Context, id string, status models.CalendarSyncStatus, eventID *string) error {
	var err error
	if eventID != nil {
		_, err = r.db.ExecContext(ctx,
			`UPDATE schedules SET calendar_sync_status = ?, external_event_id = ?, updated_at = ? WHERE id = ?`,
			status, *eventID, time.Now().UnixMilli(), id)
	} else {
		_, err = r.db.ExecContext(ctx,
			`UPDATE schedules SET calendar_sync_status = ?, updated_at = ? WHERE id = ?`,
			status, time.Now().UnixMilli(), id)
	}
	if err != nil {
		return fmt.Errorf("failed to update calendar sync: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateTimes(ctx context.Context, id string, start, end *int64, location *string) error {
	query := `UPDATE schedules SET start_time = ?, end_time = ?, location = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, start, end, location, time.Now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("failed to update schedule times: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, s *models.Schedule) error {
	query := `INSERT INTO schedules (` + scheduleColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				capture_id = excluded.capture_id,
				start_time = excluded.start_time,
				end_time = excluded.end_time,
				location = excluded.location,
				is_all_day = excluded.is_all_day,
				confidence = excluded.confidence,
				calendar_sync_status = excluded.calendar_sync_status,
				external_event_id = excluded.external_event_id,
				updated_at = excluded.updated_at`
	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.CaptureID, s.StartTime, s.EndTime, s.Location, s.IsAllDay, s.Confidence,
		s.CalendarSyncStatus, s.ExternalEventID, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert schedule: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteByCaptureID(ctx context.Context, captureID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE capture_id = ?`, captureID)
	if err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetChangedSince(ctx context.Context, since int64) ([]models.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE updated_at > ? ORDER BY created_at ASC`
	return r.list(ctx, query, since)
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]models.Schedule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select schedules: %w", err)
	}
	defer rows.Close()

	var result []models.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanSchedule(scan func(dest ...any) error) (*models.Schedule, error) {
	s := &models.Schedule{}
	if err := scan(&s.ID, &s.CaptureID, &s.StartTime, &s.EndTime, &s.Location, &s.IsAllDay,
		&s.Confidence, &s.CalendarSyncStatus, &s.ExternalEventID, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return s, nil
}
