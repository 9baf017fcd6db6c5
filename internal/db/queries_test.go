package db

import (
	"testing"

	"github.com/tidwall/gjson"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

// --- Rounds ---

func TestSaveAndListRounds(t *testing.T) {
	d := openTestDB(t)

	for _, day := range []string{"周一", "周二", "周三"} {
		_, err := d.SaveRound(Round{
			UserID:      "u1",
			Day:         day,
			PlanDate:    "2025-11-03",
			Instruction: "今天是" + day,
			Reply:       "reply " + day,
			PlanJSON:    `{"today":{"tasks":[]}}`,
			Outcome:     "parsed",
			Status:      "clear",
		})
		if err != nil {
			t.Fatalf("SaveRound(%s): %v", day, err)
		}
	}
	d.SaveRound(Round{UserID: "u2", Instruction: "other", Reply: "x", Outcome: "parsed", Status: "skipped"})

	rounds, err := d.ListRounds("u1", 2)
	if err != nil {
		t.Fatalf("ListRounds: %v", err)
	}
	if len(rounds) != 2 {
		t.Fatalf("expected 2 rounds, got %d", len(rounds))
	}
	if rounds[0].Day != "周三" || rounds[1].Day != "周二" {
		t.Errorf("expected newest first, got %q then %q", rounds[0].Day, rounds[1].Day)
	}
	if _, err := rounds[0].CreatedTime(); err != nil {
		t.Errorf("CreatedTime: %v", err)
	}
}

func TestSaveRound_StampsDate(t *testing.T) {
	d := openTestDB(t)

	d.SaveRound(Round{UserID: "u1", PlanDate: "2025-11-07", Instruction: "i", Reply: "r", PlanJSON: `{"today":{}}`, Outcome: "parsed", Status: "skipped"})
	r, err := d.LastRound("u1")
	if err != nil || r == nil {
		t.Fatalf("LastRound: %v %v", r, err)
	}
	if got := gjson.Get(r.PlanJSON, "date").String(); got != "2025-11-07" {
		t.Errorf("expected stamped date, got %q in %s", got, r.PlanJSON)
	}
	if !gjson.Get(r.PlanJSON, "today").IsObject() {
		t.Errorf("existing fields should survive stamping: %s", r.PlanJSON)
	}
}

func TestSaveRound_KeepsModelDate(t *testing.T) {
	d := openTestDB(t)

	d.SaveRound(Round{UserID: "u1", PlanDate: "2025-11-07", Instruction: "i", Reply: "r", PlanJSON: `{"date":"2025-11-08"}`, Outcome: "parsed", Status: "skipped"})
	r, _ := d.LastRound("u1")
	if got := gjson.Get(r.PlanJSON, "date").String(); got != "2025-11-08" {
		t.Errorf("model date should win, got %q", got)
	}
}

func TestSaveRound_EmptyPlan(t *testing.T) {
	d := openTestDB(t)

	d.SaveRound(Round{UserID: "u1", Instruction: "i", Reply: "r", PlanJSON: "not json", Outcome: "malformed_json", Status: "skipped"})
	r, _ := d.LastRound("u1")
	if r.PlanJSON != "{}" {
		t.Errorf("expected {}, got %s", r.PlanJSON)
	}
}

func TestLastRound_None(t *testing.T) {
	d := openTestDB(t)

	r, err := d.LastRound("nobody")
	if err != nil {
		t.Fatalf("LastRound: %v", err)
	}
	if r != nil {
		t.Errorf("expected nil round, got %+v", r)
	}
}

// --- Messages ---

func TestAppendAndLoadHistory(t *testing.T) {
	d := openTestDB(t)

	err := d.AppendMessages("u1", []Message{
		{Role: "user", Content: "q1"},
		{Role: "assistant", Content: "a1"},
		{Role: "user", Content: "q2"},
		{Role: "assistant", Content: "a2"},
	})
	if err != nil {
		t.Fatalf("AppendMessages: %v", err)
	}

	got, err := d.LoadHistory("u1", 3)
	if err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(got))
	}
	if got[0].Content != "a1" || got[2].Content != "a2" {
		t.Errorf("expected latest three oldest-first, got %q..%q", got[0].Content, got[2].Content)
	}

	other, _ := d.LoadHistory("u2", 10)
	if len(other) != 0 {
		t.Errorf("history should be per user, got %d", len(other))
	}
}

func TestAppendMessages_RejectsUnknownRoleAtomically(t *testing.T) {
	d := openTestDB(t)

	err := d.AppendMessages("u1", []Message{
		{Role: "user", Content: "ok"},
		{Role: "tool", Content: "bad"},
	})
	if err == nil {
		t.Fatal("expected error for invalid role")
	}
	got, _ := d.LoadHistory("u1", 10)
	if len(got) != 0 {
		t.Errorf("failed append should roll back, got %d messages", len(got))
	}
}

func TestClearHistory(t *testing.T) {
	d := openTestDB(t)

	d.AppendMessages("u1", []Message{{Role: "user", Content: "q"}})
	if err := d.ClearHistory("u1"); err != nil {
		t.Fatalf("ClearHistory: %v", err)
	}
	got, _ := d.LoadHistory("u1", 10)
	if len(got) != 0 {
		t.Errorf("expected empty history, got %d", len(got))
	}
}

// --- Notes ---

func TestNotes(t *testing.T) {
	d := openTestDB(t)

	v, err := d.GetNote(NoteDiscordUserID)
	if err != nil || v != "" {
		t.Fatalf("missing note should read empty, got %q %v", v, err)
	}

	d.SetNote(NoteDiscordUserID, "123")
	d.SetNote(NoteDiscordUserID, "456")

	v, _ = d.GetNote(NoteDiscordUserID)
	if v != "456" {
		t.Errorf("expected updated note 456, got %q", v)
	}
}

// --- Schedules ---

func TestSchedules(t *testing.T) {
	d := openTestDB(t)

	id, err := d.CreateSchedule("daily-plan", "0 8 * * 1-5")
	if err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}
	if _, err := d.CreateSchedule("daily-plan", "0 9 * * *"); err == nil {
		t.Error("expected duplicate name to fail")
	}

	if err := d.UpdateSchedule(id, map[string]any{"cron_expr": "30 7 * * *"}); err != nil {
		t.Fatalf("UpdateSchedule: %v", err)
	}
	if err := d.UpdateSchedule(id, map[string]any{"name": "x"}); err == nil {
		t.Error("expected disallowed column error")
	}
	if err := d.UpdateSchedule(999, map[string]any{"enabled": 0}); err == nil {
		t.Error("expected not found error")
	}

	s, err := d.GetSchedule("daily-plan")
	if err != nil || s == nil {
		t.Fatalf("GetSchedule: %v %v", s, err)
	}
	if s.CronExpr != "30 7 * * *" || !s.Enabled {
		t.Errorf("unexpected schedule %+v", s)
	}

	if err := d.RecordScheduleRun(id); err != nil {
		t.Fatalf("RecordScheduleRun: %v", err)
	}
	d.UpdateSchedule(id, map[string]any{"enabled": 0})

	enabled, _ := d.ListSchedules(true)
	if len(enabled) != 0 {
		t.Errorf("expected no enabled schedules, got %d", len(enabled))
	}
	all, _ := d.ListSchedules(false)
	if len(all) != 1 || all[0].LastRun == "" {
		t.Errorf("expected one schedule with last_run set, got %+v", all)
	}

	missing, err := d.GetSchedule("nope")
	if err != nil || missing != nil {
		t.Errorf("expected nil for missing schedule, got %+v %v", missing, err)
	}
}
