package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hedaas-code/neoagent/internal/kernel/errs"
	"github.com/hedaas-code/neoagent/internal/store"
)

func (d *DB) CreateSchedule(ctx context.Context, s *store.Schedule) error {
	if !s.EndTime.After(s.StartTime) {
		return errs.ErrBadInput
	}
	var weekday sql.NullInt64
	if s.Kind == store.ScheduleRecurring {
		if s.Weekday == nil || *s.Weekday < 0 || *s.Weekday > 6 {
			return errs.ErrBadInput
		}
		weekday = sql.NullInt64{Int64: int64(*s.Weekday), Valid: true}
	}

	involves := 0
	if s.InvolvesUser {
		involves = 1
	}
	queryable := 0
	if s.IsQueryable {
		queryable = 1
	}
	active := 0
	if s.IsActive {
		active = 1
	}

	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO `+tableSchedules+`
		 (schedule_id, title, description, kind, start_time, end_time, priority, weekday,
		  recurrence_pattern, generated_reason, involves_user, collaboration_status,
		  is_queryable, is_active, source, created)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ScheduleID, s.Title, s.Description, string(s.Kind), unixOf(s.StartTime), unixOf(s.EndTime),
		int(s.Priority), weekday, s.RecurrencePattern, s.GeneratedReason, involves,
		string(s.CollaborationStatus), queryable, active, s.Source, unixOf(s.Created))
	if err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}
	return nil
}

func (d *DB) GetSchedule(ctx context.Context, id string) (*store.Schedule, error) {
	row := d.sql.QueryRowContext(ctx, scheduleSelect+` WHERE schedule_id = ?`, id)
	return scanSchedule(row)
}

const scheduleSelect = `SELECT schedule_id, title, description, kind, start_time, end_time, priority, weekday,
	recurrence_pattern, generated_reason, involves_user, collaboration_status, is_queryable, is_active, source, created
	FROM ` + tableSchedules

func scanSchedule(row *sql.Row) (*store.Schedule, error) {
	var s store.Schedule
	var kind, collab string
	var start, end, created int64
	var weekday sql.NullInt64
	var involves, queryable, active int
	err := row.Scan(&s.ScheduleID, &s.Title, &s.Description, &kind, &start, &end, &s.Priority, &weekday,
		&s.RecurrencePattern, &s.GeneratedReason, &involves, &collab, &queryable, &active, &s.Source, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("scan schedule: %w", err)
	}
	s.Kind = store.ScheduleKind(kind)
	s.StartTime, s.EndTime, s.Created = timeOf(start), timeOf(end), timeOf(created)
	if weekday.Valid {
		wd := int(weekday.Int64)
		s.Weekday = &wd
	}
	s.InvolvesUser, s.IsQueryable, s.IsActive = involves != 0, queryable != 0, active != 0
	s.CollaborationStatus = store.CollaborationStatus(collab)
	return &s, nil
}

func (d *DB) UpdateSchedule(ctx context.Context, s *store.Schedule) error {
	involves, queryable, active := 0, 0, 0
	if s.InvolvesUser {
		involves = 1
	}
	if s.IsQueryable {
		queryable = 1
	}
	if s.IsActive {
		active = 1
	}
	var weekday sql.NullInt64
	if s.Weekday != nil {
		weekday = sql.NullInt64{Int64: int64(*s.Weekday), Valid: true}
	}
	res, err := d.sql.ExecContext(ctx,
		`UPDATE `+tableSchedules+` SET title=?, description=?, kind=?, start_time=?, end_time=?, priority=?,
		 weekday=?, recurrence_pattern=?, generated_reason=?, involves_user=?, collaboration_status=?,
		 is_queryable=?, is_active=?, source=? WHERE schedule_id=?`,
		s.Title, s.Description, string(s.Kind), unixOf(s.StartTime), unixOf(s.EndTime), int(s.Priority),
		weekday, s.RecurrencePattern, s.GeneratedReason, involves, string(s.CollaborationStatus),
		queryable, active, s.Source, s.ScheduleID)
	if err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// SoftDeleteSchedule marks a schedule inactive, used by both conflict
// resolution and similarity resolution.
func (d *DB) SoftDeleteSchedule(ctx context.Context, id string) error {
	res, err := d.sql.ExecContext(ctx, `UPDATE `+tableSchedules+` SET is_active = 0 WHERE schedule_id = ?`, id)
	if err != nil {
		return fmt.Errorf("soft delete schedule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// OverlappingSchedules returns active schedules (any collaboration state)
// strictly overlapping [start,end), materialising recurring occurrences.
func (d *DB) OverlappingSchedules(ctx context.Context, start, end time.Time) ([]*store.Schedule, error) {
	all, err := d.allActiveSchedules(ctx)
	if err != nil {
		return nil, err
	}
	var out []*store.Schedule
	for _, s := range all {
		for _, occ := range materialize(s, start, end) {
			if strictOverlap(occ.StartTime, occ.EndTime, start, end) {
				out = append(out, occ)
				break
			}
		}
	}
	return out, nil
}

// SameDaySchedules returns non-recurring schedules on the given calendar
// date (system timezone), the candidate set for the similarity check.
func (d *DB) SameDaySchedules(ctx context.Context, date time.Time) ([]*store.Schedule, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	rows, err := d.sql.QueryContext(ctx, scheduleSelect+` WHERE kind != ? AND is_active = 1 AND start_time < ? AND end_time > ?`,
		string(store.ScheduleRecurring), unixOf(dayEnd), unixOf(dayStart))
	if err != nil {
		return nil, fmt.Errorf("same day schedules: %w", err)
	}
	defer rows.Close()
	return scanSchedules(rows)
}

// InRange returns schedules strictly overlapping [start,end), filtered by
// ScheduleFilter, materialising recurring schedules by weekday.
func (d *DB) InRange(ctx context.Context, start, end time.Time, filter store.ScheduleFilter) ([]*store.Schedule, error) {
	all, err := d.allSchedules(ctx, filter)
	if err != nil {
		return nil, err
	}
	var out []*store.Schedule
	for _, s := range all {
		for _, occ := range materialize(s, start, end) {
			if strictOverlap(occ.StartTime, occ.EndTime, start, end) {
				out = append(out, occ)
			}
		}
	}
	return out, nil
}

// DayActiveQueryableSchedules returns the day's active, queryable
// schedules for FreeSlots computation.
func (d *DB) DayActiveQueryableSchedules(ctx context.Context, date time.Time) ([]*store.Schedule, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.Add(24 * time.Hour)
	return d.InRange(ctx, dayStart, dayEnd, store.ScheduleFilter{QueryableOnly: true, ActiveOnly: true})
}

// PendingCollaborationSchedules returns active, user-involving schedules
// still awaiting confirmation, most recently created first, so a caller
// can treat index 0 as the most recent pending entry.
func (d *DB) PendingCollaborationSchedules(ctx context.Context) ([]*store.Schedule, error) {
	rows, err := d.sql.QueryContext(ctx,
		scheduleSelect+` WHERE is_active = 1 AND involves_user = 1 AND collaboration_status = ? ORDER BY created DESC`,
		string(store.CollaborationPending))
	if err != nil {
		return nil, fmt.Errorf("pending collaboration schedules: %w", err)
	}
	defer rows.Close()
	return scanSchedules(rows)
}

func (d *DB) allActiveSchedules(ctx context.Context) ([]*store.Schedule, error) {
	rows, err := d.sql.QueryContext(ctx, scheduleSelect+` WHERE is_active = 1`)
	if err != nil {
		return nil, fmt.Errorf("all active schedules: %w", err)
	}
	defer rows.Close()
	return scanSchedules(rows)
}

func (d *DB) allSchedules(ctx context.Context, filter store.ScheduleFilter) ([]*store.Schedule, error) {
	query := scheduleSelect + ` WHERE 1=1`
	if filter.ActiveOnly {
		query += ` AND is_active = 1`
	}
	if filter.QueryableOnly {
		query += ` AND collaboration_status IN ('none', 'accepted')`
	}
	rows, err := d.sql.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("all schedules: %w", err)
	}
	defer rows.Close()
	return scanSchedules(rows)
}

func scanSchedules(rows *sql.Rows) ([]*store.Schedule, error) {
	var out []*store.Schedule
	for rows.Next() {
		var s store.Schedule
		var kind, collab string
		var start, end, created int64
		var weekday sql.NullInt64
		var involves, queryable, active int
		err := rows.Scan(&s.ScheduleID, &s.Title, &s.Description, &kind, &start, &end, &s.Priority, &weekday,
			&s.RecurrencePattern, &s.GeneratedReason, &involves, &collab, &queryable, &active, &s.Source, &created)
		if err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		s.Kind = store.ScheduleKind(kind)
		s.StartTime, s.EndTime, s.Created = timeOf(start), timeOf(end), timeOf(created)
		if weekday.Valid {
			wd := int(weekday.Int64)
			s.Weekday = &wd
		}
		s.InvolvesUser, s.IsQueryable, s.IsActive = involves != 0, queryable != 0, active != 0
		s.CollaborationStatus = store.CollaborationStatus(collab)
		out = append(out, &s)
	}
	return out, rows.Err()
}

// strictOverlap: aStart < bEnd && bStart < aEnd. Touching intervals do
// not overlap.
func strictOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// materialize expands a schedule into its occurrences within [rangeStart,
// rangeEnd). Non-recurring schedules occur exactly once (themselves);
// recurring schedules occur on every date within the range matching
// Weekday, using the stored StartTime/EndTime as the reference time-of-day.
func materialize(s *store.Schedule, rangeStart, rangeEnd time.Time) []*store.Schedule {
	if s.Kind != store.ScheduleRecurring || s.Weekday == nil {
		return []*store.Schedule{s}
	}

	var out []*store.Schedule
	loc := rangeStart.Location()
	dur := s.EndTime.Sub(s.StartTime)
	timeOfDay := s.StartTime.Sub(time.Date(s.StartTime.Year(), s.StartTime.Month(), s.StartTime.Day(), 0, 0, 0, 0, s.StartTime.Location()))

	day := time.Date(rangeStart.Year(), rangeStart.Month(), rangeStart.Day(), 0, 0, 0, 0, loc)
	for !day.After(rangeEnd) {
		if int(day.Weekday()) == *s.Weekday {
			occStart := day.Add(timeOfDay)
			occ := *s
			occ.StartTime = occStart
			occ.EndTime = occStart.Add(dur)
			out = append(out, &occ)
		}
		day = day.Add(24 * time.Hour)
	}
	return out
}
