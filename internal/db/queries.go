package db

import "time"

// sqliteTime is the layout produced by datetime('now').
const sqliteTime = "2006-01-02 15:04:05"

// Round is one stored planning exchange.
type Round struct {
	ID          int64  `json:"id"`
	UserID      string `json:"user_id"`
	Day         string `json:"day,omitempty"`
	PlanDate    string `json:"plan_date,omitempty"`
	Instruction string `json:"instruction"`
	Reply       string `json:"reply"`
	PlanJSON    string `json:"plan_json"`
	Outcome     string `json:"outcome"`
	Status      string `json:"status"`
	Conflicts   int    `json:"conflicts"`
	CreatedAt   string `json:"created_at"`
}

// CreatedTime parses CreatedAt, which SQLite stores in UTC.
func (r Round) CreatedTime() (time.Time, error) {
	return time.ParseInLocation(sqliteTime, r.CreatedAt, time.UTC)
}

// Message is one persisted chat message.
type Message struct {
	ID        int64  `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

type Schedule struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CronExpr  string `json:"cron_expr"`
	Enabled   bool   `json:"enabled"`
	LastRun   string `json:"last_run,omitempty"`
	CreatedAt string `json:"created_at"`
}
