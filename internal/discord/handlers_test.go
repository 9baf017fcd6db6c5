package discord

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/chris/dayplan/internal/agent"
	"github.com/chris/dayplan/internal/db"
	"github.com/chris/dayplan/internal/llm"
	"github.com/chris/dayplan/internal/plan"
	"github.com/chris/dayplan/internal/scenario"
)

// --- stripMention ---

func TestStripMention_Standard(t *testing.T) {
	got := stripMention("<@123456> hello", "123456")
	want := " hello"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestStripMention_Nickname(t *testing.T) {
	got := stripMention("<@!123456> hello", "123456")
	want := " hello"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestStripMention_Both(t *testing.T) {
	got := stripMention("<@123> and <@!123>", "123")
	want := " and "
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestStripMention_NoMention(t *testing.T) {
	got := stripMention("just text", "123")
	if got != "just text" {
		t.Errorf("got %q, want %q", got, "just text")
	}
}

func TestStripMention_WrongUser(t *testing.T) {
	input := "<@999> hello"
	got := stripMention(input, "123")
	if got != input {
		t.Errorf("got %q, want %q", got, input)
	}
}

func TestStripMention_Empty(t *testing.T) {
	got := stripMention("", "123")
	if got != "" {
		t.Errorf("got %q, want %q", got, "")
	}
}

// --- SplitMessage ---

func TestSplitMessage_Short(t *testing.T) {
	chunks := SplitMessage("hello", 2000)
	if len(chunks) != 1 || chunks[0] != "hello" {
		t.Errorf("expected single chunk 'hello', got %v", chunks)
	}
}

func TestSplitMessage_ExactLimit(t *testing.T) {
	s := strings.Repeat("a", 2000)
	chunks := SplitMessage(s, 2000)
	if len(chunks) != 1 {
		t.Errorf("expected 1 chunk, got %d", len(chunks))
	}
}

func TestSplitMessage_SplitsAtNewline(t *testing.T) {
	// 15 chars of "a", then newline, then 15 chars of "b" = 31 chars total
	s := strings.Repeat("a", 15) + "\n" + strings.Repeat("b", 15)
	chunks := SplitMessage(s, 20)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %v", len(chunks), chunks)
	}
	// First chunk should split at the newline (16 chars: 15 a's + newline)
	if chunks[0] != strings.Repeat("a", 15)+"\n" {
		t.Errorf("chunk[0] = %q", chunks[0])
	}
	if chunks[1] != strings.Repeat("b", 15) {
		t.Errorf("chunk[1] = %q", chunks[1])
	}
}

func TestSplitMessage_NoNewlineFallback(t *testing.T) {
	// No newlines, hard split at maxLen
	s := strings.Repeat("x", 50)
	chunks := SplitMessage(s, 20)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if chunks[0] != strings.Repeat("x", 20) {
		t.Errorf("chunk[0] length = %d, want 20", len(chunks[0]))
	}
	if chunks[1] != strings.Repeat("x", 20) {
		t.Errorf("chunk[1] length = %d, want 20", len(chunks[1]))
	}
	if chunks[2] != strings.Repeat("x", 10) {
		t.Errorf("chunk[2] length = %d, want 10", len(chunks[2]))
	}
}

func TestSplitMessage_Empty(t *testing.T) {
	chunks := SplitMessage("", 2000)
	if len(chunks) != 1 || chunks[0] != "" {
		t.Errorf("expected single empty chunk, got %v", chunks)
	}
}

func TestSplitMessage_MultipleNewlines(t *testing.T) {
	// Should prefer the LAST newline before the limit
	s := "line1\nline2\nline3\nline4"
	chunks := SplitMessage(s, 12)

	// "line1\nline2\n" is 12 chars, should split right there
	if chunks[0] != "line1\nline2\n" {
		t.Errorf("chunk[0] = %q, want %q", chunks[0], "line1\nline2\n")
	}
}

func TestSplitMessage_CountsCharacters(t *testing.T) {
	s := strings.Repeat("学", 25)
	chunks := SplitMessage(s, 10)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if !utf8.ValidString(c) {
			t.Errorf("chunk[%d] is not valid UTF-8", i)
		}
	}
	if utf8.RuneCountInString(chunks[2]) != 5 {
		t.Errorf("chunk[2] has %d runes, want 5", utf8.RuneCountInString(chunks[2]))
	}
}

// --- parseCommand ---

func TestParseCommand(t *testing.T) {
	cases := []struct {
		in   string
		cmd  command
		rest string
	}{
		{"规划 今天下午要看牙医", cmdPlan, "今天下午要看牙医"},
		{"PLAN", cmdPlan, ""},
		{"清空", cmdReset, ""},
		{"明天几点开会？", cmdChat, "明天几点开会？"},
		{"planning tips", cmdChat, "planning tips"},
	}
	for _, c := range cases {
		cmd, rest := parseCommand(c.in)
		if cmd != c.cmd || rest != c.rest {
			t.Errorf("parseCommand(%q) = (%v, %q), want (%v, %q)", c.in, cmd, rest, c.cmd, c.rest)
		}
	}
}

// --- handle ---

type stubLLM struct {
	reply string
	last  []llm.Message
}

func (s *stubLLM) Chat(ctx context.Context, systemPrompt string, messages []llm.Message) (*llm.Response, error) {
	s.last = messages
	return &llm.Response{Content: s.reply, Model: "stub"}, nil
}

func newTestBot(t *testing.T, client llm.Client) *Bot {
	t.Helper()
	d, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	p := agent.New(client, nil, d, agent.Options{Goal: "g", UserID: "u1", Parse: plan.DefaultOptions()})
	return &Bot{planner: p, db: d, scenario: scenario.Default(), chats: newChatStore(p.MaxContextTokens())}
}

func TestHandle_ChatKeepsChannelHistory(t *testing.T) {
	client := &stubLLM{reply: "好的"}
	b := newTestBot(t, client)
	ctx := context.Background()

	b.handle(ctx, "c1", "你好", time.Now())
	got := b.handle(ctx, "c1", "明天呢？", time.Now())

	if got != "好的" {
		t.Errorf("reply = %q", got)
	}
	if len(client.last) != 3 {
		t.Errorf("expected 3 messages sent on second turn, got %d", len(client.last))
	}
	if len(b.chats.get("c2")) != 0 {
		t.Error("history leaked into another channel")
	}

	b.handle(ctx, "c1", "清空", time.Now())
	if len(b.chats.get("c1")) != 0 {
		t.Error("expected history cleared")
	}
}

func TestHandle_PlanUsesScriptedDay(t *testing.T) {
	client := &stubLLM{reply: "08:00-09:00 学习政治"}
	b := newTestBot(t, client)
	monday := time.Date(2025, 11, 3, 8, 0, 0, 0, time.UTC)

	got := b.handle(context.Background(), "c1", "规划", monday)

	if !strings.HasPrefix(got, "📅 周一 日程规划（2025-11-03）") {
		t.Errorf("unexpected header: %q", got)
	}
	if !strings.Contains(got, "学习政治") {
		t.Errorf("expected task in report: %q", got)
	}
	instr := client.last[len(client.last)-1].Content
	if !strings.HasPrefix(instr, "📅 今天是周一。") {
		t.Errorf("instruction = %q", instr)
	}
}

func TestHandle_PlanWithExplicitInstruction(t *testing.T) {
	client := &stubLLM{reply: "ok"}
	b := newTestBot(t, client)

	b.handle(context.Background(), "c1", "plan 下午三点去看牙医", time.Now())

	if got := client.last[len(client.last)-1].Content; got != "下午三点去看牙医" {
		t.Errorf("instruction = %q", got)
	}
}
