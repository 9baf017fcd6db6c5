package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chris/dayplan/internal/db"
	"github.com/chris/dayplan/internal/llm"
	"github.com/chris/dayplan/internal/logger"
	"github.com/chris/dayplan/internal/memos"
	"github.com/chris/dayplan/internal/plan"
	"github.com/chris/dayplan/internal/scenario"
)

// DateFormat is the layout of plan dates.
const DateFormat = "2006-01-02"

// memoryValueChars caps each memory line in the planning prompt.
const memoryValueChars = 300

var ErrMemoryDisabled = errors.New("memory service not configured")

// Memory is the long-term memory the planner reads from and writes back to.
type Memory interface {
	AddConversation(ctx context.Context, messages []llm.Message) (memos.Result, error)
	SearchMemory(ctx context.Context, query string) (memos.Result, error)
}

type Options struct {
	Goal             string
	UserID           string
	Parse            plan.Options
	MaxContextTokens int
}

// Planner runs planning rounds. Rounds and chats are serialized; the weekly
// history accumulates across rounds and is trimmed to the context budget.
type Planner struct {
	client llm.Client
	memory Memory // nil when no memory service is configured
	db     *db.DB
	opts   Options

	mu      sync.Mutex
	history []llm.Message
}

func New(client llm.Client, memory Memory, database *db.DB, opts Options) *Planner {
	if opts.MaxContextTokens <= 0 {
		opts.MaxContextTokens = 24000
	}
	return &Planner{client: client, memory: memory, db: database, opts: opts}
}

// Round is the outcome of one planning round.
type Round struct {
	ID            int64       `json:"id"`
	Day           string      `json:"day"`
	Date          string      `json:"date"`
	Instruction   string      `json:"instruction"`
	MemoryContext string      `json:"memory_context"`
	Reply         string      `json:"reply"`
	Model         string      `json:"model"`
	Result        plan.Result `json:"result"`
}

// UserID returns the user the planner reads and writes memories for.
func (p *Planner) UserID() string { return p.opts.UserID }

// MaxContextTokens returns the context budget used to trim history.
func (p *Planner) MaxContextTokens() int { return p.opts.MaxContextTokens }

// History returns a copy of the accumulated planning history.
func (p *Planner) History() []llm.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]llm.Message(nil), p.history...)
}

// Seed writes the scenario's seed memories to the memory service.
func (p *Planner) Seed(ctx context.Context, sc *scenario.Scenario) error {
	if p.memory == nil {
		return ErrMemoryDisabled
	}
	seed := sc.SeedMessages()
	if len(seed) == 0 {
		return nil
	}
	msgs := make([]llm.Message, len(seed))
	for i, s := range seed {
		msgs[i] = llm.UserMessage(s)
	}
	if _, err := p.memory.AddConversation(ctx, msgs); err != nil {
		return fmt.Errorf("seeding memories: %w", err)
	}
	logger.Info("seeded memories", "count", len(msgs), "user", p.opts.UserID)
	return nil
}

// RunDay plans one day: retrieve memories for the instruction, ask the model,
// check the reply, then write the exchange back to memory and history.
func (p *Planner) RunDay(ctx context.Context, day, instruction, date string) (*Round, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	memCtx := p.memoryContext(ctx, instruction)
	system := llm.PlanningSystemPrompt(date)
	turn := []llm.Message{
		llm.UserMessage(llm.BuildPlanningPrompt(p.opts.Goal, date, memCtx)),
		llm.UserMessage(instruction),
	}
	messages := p.trim(system, append(append([]llm.Message(nil), p.history...), turn...))

	resp, err := p.client.Chat(ctx, system, messages)
	if err != nil {
		return nil, fmt.Errorf("planning %s: %w", day, err)
	}

	round := &Round{
		Day:           day,
		Date:          date,
		Instruction:   instruction,
		MemoryContext: memCtx,
		Reply:         resp.Content,
		Model:         resp.Model,
		Result:        plan.Check(resp.Content, date, p.opts.Parse),
	}

	exchange := []llm.Message{llm.UserMessage(instruction), llm.AssistantMessage(resp.Content)}
	p.writeBack(ctx, exchange)
	p.history = append(p.history, exchange...)

	if p.db != nil {
		id, err := p.db.SaveRound(db.Round{
			UserID:      p.opts.UserID,
			Day:         day,
			PlanDate:    date,
			Instruction: instruction,
			Reply:       resp.Content,
			PlanJSON:    round.Result.Extraction.Document.Raw(),
			Outcome:     round.Result.Extraction.Outcome.String(),
			Status:      round.Result.Report.Status.String(),
			Conflicts:   len(round.Result.Report.Conflicts),
		})
		if err != nil {
			logger.Error("storing round", "day", day, "err", err)
		}
		round.ID = id
	}

	logger.Info("round complete",
		"day", day,
		"date", date,
		"outcome", round.Result.Extraction.Outcome,
		"tasks", len(round.Result.Tasks),
		"conflicts", len(round.Result.Report.Conflicts),
	)
	logger.Debug("round reply", "day", day, "reply", truncate(resp.Content, 200))
	return round, nil
}

// RunWeek runs every scenario day in order. A day with a weekday is planned
// for that weekday in the week beginning at start; other days advance one
// day per entry. Rounds finished before an error are returned.
func (p *Planner) RunWeek(ctx context.Context, sc *scenario.Scenario, start time.Time, onRound func(*Round)) ([]*Round, error) {
	var rounds []*Round
	for i, d := range sc.Days {
		if err := ctx.Err(); err != nil {
			return rounds, err
		}
		date := dayDate(start, i, d).Format(DateFormat)
		r, err := p.RunDay(ctx, d.Day, d.Instruction, date)
		if err != nil {
			return rounds, err
		}
		rounds = append(rounds, r)
		if onRound != nil {
			onRound(r)
		}
	}
	return rounds, nil
}

func dayDate(start time.Time, i int, d scenario.Day) time.Time {
	if wd, ok := d.ScheduledOn(); ok {
		return start.AddDate(0, 0, (int(wd)-int(start.Weekday())+7)%7)
	}
	return start.AddDate(0, 0, i)
}

// ChatReply is the answer to a free-form chat turn.
type ChatReply struct {
	Content string `json:"content"`
	Model   string `json:"model"`
	// Summary holds the memory digest when the user asked for one.
	Summary string `json:"summary,omitempty"`
}

// Chat answers a free-form message with the given history and returns the
// history extended with this exchange.
func (p *Planner) Chat(ctx context.Context, history []llm.Message, input string) (*ChatReply, []llm.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	messages := append(append([]llm.Message(nil), history...), llm.UserMessage(input))
	resp, err := p.client.Chat(ctx, llm.ChatSystemPrompt, p.trim(llm.ChatSystemPrompt, messages))
	if err != nil {
		return nil, history, fmt.Errorf("llm chat: %w", err)
	}

	exchange := []llm.Message{llm.UserMessage(input), llm.AssistantMessage(resp.Content)}
	p.writeBack(ctx, exchange)
	if p.db != nil {
		stored := []db.Message{{Role: "user", Content: input}, {Role: "assistant", Content: resp.Content}}
		if err := p.db.AppendMessages(p.opts.UserID, stored); err != nil {
			logger.Error("storing chat", "err", err)
		}
	}

	reply := &ChatReply{Content: resp.Content, Model: resp.Model}
	if WantsSummary(input) && p.memory != nil {
		res, err := p.memory.SearchMemory(ctx, input)
		if err != nil {
			logger.Warn("memory summary unavailable", "err", err)
		} else {
			reply.Summary = res.Summary()
		}
	}
	return reply, append(messages, llm.AssistantMessage(resp.Content)), nil
}

// LoadHistory returns the user's stored chat history, oldest first.
func (p *Planner) LoadHistory(limit int) ([]llm.Message, error) {
	if p.db == nil {
		return nil, nil
	}
	stored, err := p.db.LoadHistory(p.opts.UserID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]llm.Message, len(stored))
	for i, m := range stored {
		out[i] = llm.Message{Role: m.Role, Content: m.Content}
	}
	return out, nil
}

// WantsSummary reports whether a chat message asks for a memory summary.
func WantsSummary(input string) bool {
	return strings.Contains(strings.ToLower(input), "summary") || strings.Contains(input, "摘要")
}

// memoryContext searches memory with query. Failures degrade to no context.
func (p *Planner) memoryContext(ctx context.Context, query string) string {
	if p.memory == nil {
		return ""
	}
	res, err := p.memory.SearchMemory(ctx, query)
	if err != nil {
		logger.Warn("memory search failed, planning without context", "err", err)
		return ""
	}
	return res.ContextLines(memoryValueChars)
}

func (p *Planner) writeBack(ctx context.Context, exchange []llm.Message) {
	if p.memory == nil {
		return
	}
	if _, err := p.memory.AddConversation(ctx, exchange); err != nil {
		logger.Warn("memory write-back failed", "err", err)
	}
}

// trim fits messages into the context budget left after the system prompt.
func (p *Planner) trim(systemPrompt string, messages []llm.Message) []llm.Message {
	budget := p.opts.MaxContextTokens - llm.EstimateTokens(systemPrompt)
	if budget < 1000 {
		budget = 1000 // floor so we always have room for at least the current turn
	}
	trimmed := llm.TrimMessages(messages, budget)
	if len(trimmed) < len(messages) {
		logger.Debug("context trimmed", "from", len(messages), "to", len(trimmed))
	}
	return trimmed
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
