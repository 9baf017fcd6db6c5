package scheduler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/tidwall/sjson"

	"github.com/chris/dayplan/internal/agent"
	"github.com/chris/dayplan/internal/db"
	"github.com/chris/dayplan/internal/discord"
	"github.com/chris/dayplan/internal/logger"
	"github.com/chris/dayplan/internal/scenario"
)

// DailyPlan is the name of the schedule that runs the unattended planning round.
const DailyPlan = "daily-plan"

type Scheduler struct {
	cron       *cron.Cron
	webhookURL string
	db         *db.DB
	planner    *agent.Planner
	scenario   *scenario.Scenario
	dmSend     func(userID, content string) error
	httpClient *http.Client
	now        func() time.Time
	mu         sync.Mutex
	entryIDs   map[int64]cron.EntryID // scheduleID -> cron entry
}

func New(database *db.DB, planner *agent.Planner, sc *scenario.Scenario, webhookURL string, dmSend func(userID, content string) error) *Scheduler {
	return &Scheduler{
		cron:       cron.New(),
		webhookURL: webhookURL,
		db:         database,
		planner:    planner,
		scenario:   sc,
		dmSend:     dmSend,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		now:        time.Now,
		entryIDs:   make(map[int64]cron.EntryID),
	}
}

func (s *Scheduler) Start() {
	s.loadSchedules()
	s.cron.Start()

	// Reload every 5 minutes to pick up edits made outside the process
	go func() {
		t := time.NewTicker(5 * time.Minute)
		defer t.Stop()
		for range t.C {
			s.loadSchedules()
		}
	}()

	logger.Info("scheduler started")
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// SeedDefaultSchedule makes sure the daily planning schedule exists and runs on cronExpr.
func (s *Scheduler) SeedDefaultSchedule(cronExpr string) error {
	if cronExpr == "" {
		return nil
	}
	if _, err := cron.ParseStandard(cronExpr); err != nil {
		return fmt.Errorf("invalid plan cron %q: %w", cronExpr, err)
	}
	existing, err := s.db.GetSchedule(DailyPlan)
	if err != nil {
		return err
	}
	if existing == nil {
		if _, err := s.db.CreateSchedule(DailyPlan, cronExpr); err != nil {
			return err
		}
		logger.Info("seeded default schedule", "cron", cronExpr)
		return nil
	}
	if existing.CronExpr != cronExpr {
		if err := s.db.UpdateSchedule(existing.ID, map[string]any{"cron_expr": cronExpr}); err != nil {
			return err
		}
		logger.Info("updated default schedule", "cron", cronExpr)
	}
	return nil
}

func (s *Scheduler) loadSchedules() {
	schedules, err := s.db.ListSchedules(true)
	if err != nil {
		logger.Error("loading schedules", "err", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Remove all existing entries and re-register
	for _, entryID := range s.entryIDs {
		s.cron.Remove(entryID)
	}
	s.entryIDs = make(map[int64]cron.EntryID)

	for _, sched := range schedules {
		entryID, err := s.cron.AddFunc(sched.CronExpr, func() {
			s.runSchedule(context.Background(), sched)
		})
		if err != nil {
			logger.Warn("invalid cron", "schedule", sched.Name, "cron", sched.CronExpr, "err", err)
			continue
		}
		s.entryIDs[sched.ID] = entryID
	}

	logger.Debug("schedules loaded", "count", len(s.entryIDs))
}

func (s *Scheduler) runSchedule(ctx context.Context, sched db.Schedule) {
	now := s.now()
	day, instruction := agent.ScheduledInstruction(s.db, s.planner.UserID(), s.scenario, now)

	round, err := s.planner.RunDay(ctx, day, instruction, now.Format(agent.DateFormat))
	if err != nil {
		logger.Error("scheduled round failed", "schedule", sched.Name, "err", err)
		return
	}

	if err := s.db.RecordScheduleRun(sched.ID); err != nil {
		logger.Warn("recording schedule run", "schedule", sched.Name, "err", err)
	}

	s.deliver(ctx, sched.Name, agent.FormatRound(round))
	logger.Info("scheduled round complete", "schedule", sched.Name, "day", day)
}

// deliver prefers a DM to the last Discord user seen and falls back to the webhook.
func (s *Scheduler) deliver(ctx context.Context, label, content string) {
	if s.dmSend != nil {
		userID, err := s.db.GetNote(db.NoteDiscordUserID)
		if err == nil && userID != "" {
			if err := s.dmSend(userID, content); err != nil {
				logger.Warn("DM send failed", "schedule", label, "err", err)
			} else {
				return
			}
		}
	}
	if s.webhookURL != "" {
		if err := s.postWebhook(ctx, content); err != nil {
			logger.Error("webhook failed", "schedule", label, "err", err)
		}
		return
	}
	logger.Warn("no delivery method available (no DM user and no webhook)", "schedule", label)
}

func (s *Scheduler) postWebhook(ctx context.Context, content string) error {
	for _, chunk := range discord.SplitMessage(content, discord.MaxMessageLen) {
		body, err := sjson.Set(`{}`, "content", chunk)
		if err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader([]byte(body)))
		if err != nil {
			return fmt.Errorf("building webhook request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := s.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("posting webhook: %w", err)
		}
		resp.Body.Close()
		if resp.StatusCode >= 400 {
			return fmt.Errorf("webhook returned status %d", resp.StatusCode)
		}
	}
	return nil
}
