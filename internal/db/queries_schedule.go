package db

import (
	"database/sql"
	"fmt"
)

// ListSchedules returns all schedules, optionally only enabled ones.
func (d *DB) ListSchedules(enabledOnly bool) ([]Schedule, error) {
	q := "SELECT id, name, cron_expr, enabled, COALESCE(last_run,''), created_at FROM schedules"
	if enabledOnly {
		q += " WHERE enabled = 1"
	}
	q += " ORDER BY created_at ASC, id ASC"
	rows, err := d.conn.Query(q)
	if err != nil {
		return nil, fmt.Errorf("listing schedules: %w", err)
	}
	defer rows.Close()
	var out []Schedule
	for rows.Next() {
		var s Schedule
		var enabled int
		if err := rows.Scan(&s.ID, &s.Name, &s.CronExpr, &enabled, &s.LastRun, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning schedule: %w", err)
		}
		s.Enabled = enabled == 1
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetSchedule returns the schedule with the given name, or nil.
func (d *DB) GetSchedule(name string) (*Schedule, error) {
	var s Schedule
	var enabled int
	err := d.conn.QueryRow(
		"SELECT id, name, cron_expr, enabled, COALESCE(last_run,''), created_at FROM schedules WHERE name = ?", name,
	).Scan(&s.ID, &s.Name, &s.CronExpr, &enabled, &s.LastRun, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting schedule %q: %w", name, err)
	}
	s.Enabled = enabled == 1
	return &s, nil
}

// CreateSchedule creates a new schedule and returns its ID.
func (d *DB) CreateSchedule(name, cronExpr string) (int64, error) {
	res, err := d.conn.Exec(
		"INSERT INTO schedules (name, cron_expr) VALUES (?, ?)",
		name, cronExpr,
	)
	if err != nil {
		return 0, fmt.Errorf("creating schedule: %w", err)
	}
	return res.LastInsertId()
}

// UpdateSchedule updates fields on a schedule by ID.
func (d *DB) UpdateSchedule(id int64, fields map[string]any) error {
	return d.updateRow("schedules", id, fields)
}

// RecordScheduleRun updates last_run to now for a schedule.
func (d *DB) RecordScheduleRun(id int64) error {
	_, err := d.conn.Exec(
		"UPDATE schedules SET last_run = datetime('now') WHERE id = ?", id,
	)
	if err != nil {
		return fmt.Errorf("recording schedule run: %w", err)
	}
	return nil
}
