package main

import (
	"fmt"
	"os"

	"github.com/chris/dayplan/config"
	"github.com/chris/dayplan/internal/agent"
	"github.com/chris/dayplan/internal/db"
	"github.com/chris/dayplan/internal/llm"
	"github.com/chris/dayplan/internal/logger"
	"github.com/chris/dayplan/internal/memos"
	"github.com/chris/dayplan/internal/plan"
	"github.com/chris/dayplan/internal/scenario"
)

// app holds the wired dependencies shared by the subcommands.
type app struct {
	db       *db.DB
	client   llm.Client
	memory   *memos.Client // nil when MEMOS_BASE_URL is unset
	planner  *agent.Planner
	scenario *scenario.Scenario
	userID   string
}

func newApp(cfg *config.Config) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	database, err := db.Open(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	sc, err := scenario.Load(cfg.ScenarioPath)
	if err != nil {
		database.Close()
		return nil, err
	}

	client, err := newLLMClient(cfg)
	if err != nil {
		database.Close()
		return nil, err
	}

	a := &app{db: database, client: client, scenario: sc, userID: resolveUserID(cfg, database)}

	var memory agent.Memory
	if cfg.MemosBaseURL != "" {
		a.memory = memos.New(memos.Config{
			BaseURL:    cfg.MemosBaseURL,
			APIKey:     cfg.MemosKey,
			UserID:     a.userID,
			VerifySSL:  cfg.MemosVerifySSL,
			Timeout:    cfg.MemosTimeout,
			MaxRetries: cfg.MemosMaxRetries,
		})
		memory = a.memory
	} else {
		logger.Warn("MEMOS_BASE_URL not set, planning without long-term memory")
	}

	a.planner = agent.New(client, memory, database, agent.Options{
		Goal:             sc.Goal,
		UserID:           a.userID,
		Parse:            parseOptions(cfg),
		MaxContextTokens: cfg.MaxContextTokens,
	})
	logger.Debug("app ready", "provider", cfg.LLMProvider, "user", a.userID, "memory", a.memory != nil)
	return a, nil
}

func newLLMClient(cfg *config.Config) (llm.Client, error) {
	client, err := llm.NewClient(llm.ProviderConfig{
		Provider: cfg.LLMProvider,
		APIKey:   cfg.APIKey(),
		Model:    cfg.LLMModel,
		BaseURL:  cfg.BaseURL(),
	})
	if err != nil {
		return nil, fmt.Errorf("creating LLM client: %w", err)
	}
	return client, nil
}

func (a *app) Close() {
	a.db.Close()
}

// resolveUserID keeps a generated user id stable across runs so stored
// history and memories line up. USER_ID always wins.
func resolveUserID(cfg *config.Config, database *db.DB) string {
	if os.Getenv("USER_ID") != "" {
		return cfg.UserID
	}
	stored, err := database.GetNote(db.NoteUserID)
	if err != nil {
		logger.Warn("reading stored user id", "err", err)
		return cfg.UserID
	}
	if stored != "" {
		return stored
	}
	if err := database.SetNote(db.NoteUserID, cfg.UserID); err != nil {
		logger.Warn("storing user id", "err", err)
	}
	return cfg.UserID
}

func parseOptions(cfg *config.Config) plan.Options {
	return plan.Options{LegacyMarkers: cfg.LegacyMarkers, AllDates: cfg.AllCommitments}
}
