package db

import (
	"database/sql"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// SaveRound stores a planning round and returns its ID. The plan date is
// stamped into plan_json when the model left it out.
func (d *DB) SaveRound(r Round) (int64, error) {
	planJSON, err := stampDate(r.PlanJSON, r.PlanDate)
	if err != nil {
		return 0, fmt.Errorf("saving round: %w", err)
	}
	res, err := d.conn.Exec(
		`INSERT INTO rounds (user_id, day, plan_date, instruction, reply, plan_json, outcome, status, conflicts)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.UserID, r.Day, r.PlanDate, r.Instruction, r.Reply, planJSON, r.Outcome, r.Status, r.Conflicts,
	)
	if err != nil {
		return 0, fmt.Errorf("saving round: %w", err)
	}
	return res.LastInsertId()
}

// ListRounds returns the user's most recent rounds, newest first.
func (d *DB) ListRounds(userID string, limit int) ([]Round, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.conn.Query(
		`SELECT id, user_id, day, plan_date, instruction, reply, plan_json, outcome, status, conflicts, created_at
		 FROM rounds WHERE user_id = ? ORDER BY id DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing rounds: %w", err)
	}
	defer rows.Close()

	var out []Round
	for rows.Next() {
		r, err := scanRound(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LastRound returns the user's latest round, or nil when there is none.
func (d *DB) LastRound(userID string) (*Round, error) {
	row := d.conn.QueryRow(
		`SELECT id, user_id, day, plan_date, instruction, reply, plan_json, outcome, status, conflicts, created_at
		 FROM rounds WHERE user_id = ? ORDER BY id DESC LIMIT 1`,
		userID,
	)
	r, err := scanRound(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRound(s scanner) (Round, error) {
	var r Round
	err := s.Scan(&r.ID, &r.UserID, &r.Day, &r.PlanDate, &r.Instruction, &r.Reply,
		&r.PlanJSON, &r.Outcome, &r.Status, &r.Conflicts, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return r, err
	}
	if err != nil {
		return r, fmt.Errorf("scanning round: %w", err)
	}
	return r, nil
}

func stampDate(planJSON, date string) (string, error) {
	if planJSON == "" || !gjson.Valid(planJSON) || !gjson.Parse(planJSON).IsObject() {
		planJSON = "{}"
	}
	if date == "" || gjson.Get(planJSON, "date").String() != "" {
		return planJSON, nil
	}
	return sjson.Set(planJSON, "date", date)
}
