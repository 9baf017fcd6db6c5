package llm

import (
	"strings"
	"testing"
)

func TestTrimMessages_UnderBudget(t *testing.T) {
	msgs := []Message{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi"},
	}
	got := TrimMessages(msgs, 100000)
	if len(got) != 2 {
		t.Errorf("expected 2 messages unchanged, got %d", len(got))
	}
}

func TestTrimMessages_Empty(t *testing.T) {
	got := TrimMessages(nil, 100)
	if len(got) != 0 {
		t.Errorf("expected 0 messages, got %d", len(got))
	}
}

func TestTrimMessages_DropsOldestFirst(t *testing.T) {
	msgs := []Message{
		{Role: "user", Content: "first question"},
		{Role: "assistant", Content: "first answer"},
		{Role: "user", Content: "second question"},
		{Role: "assistant", Content: "second answer"},
		{Role: "user", Content: "third question"},
		{Role: "assistant", Content: "third answer"},
	}

	// Budget enough for ~2 groups only (the last 2 messages).
	// Each message is roughly 4 (overhead) + content tokens.
	// Use a budget that forces at least the first pair to be dropped.
	budget := EstimateMessagesTokens(msgs[2:])
	got := TrimMessages(msgs, budget)

	if len(got) < 2 {
		t.Fatalf("expected at least 2 messages, got %d", len(got))
	}
	// The oldest messages should have been dropped.
	if got[0].Content == "first question" {
		t.Error("expected oldest messages to be trimmed, but 'first question' is still present")
	}
	// The newest messages should be preserved.
	last := got[len(got)-1]
	if last.Content != "third answer" {
		t.Errorf("expected last message to be 'third answer', got %q", last.Content)
	}
}

func TestTrimMessages_KeepsExchangesTogether(t *testing.T) {
	msgs := []Message{
		{Role: "user", Content: "old question"},
		{Role: "assistant", Content: "old answer"},
		// A planning prompt plus instruction answered by one reply.
		{Role: "user", Content: "学习目标：每天学习2小时"},
		{Role: "user", Content: "今天是周二。"},
		{Role: "assistant", Content: "08:00-09:00 学习政治"},
	}

	// The budget leaves out the old question, so its whole exchange goes.
	budget := EstimateMessagesTokens(msgs[1:])
	got := TrimMessages(msgs, budget)

	for _, m := range got {
		if m.Content == "old question" || m.Content == "old answer" {
			t.Errorf("expected old messages to be trimmed, found %q", m.Content)
		}
	}
	if len(got) != 3 {
		t.Fatalf("expected the last exchange (3 messages), got %d", len(got))
	}
	if got[0].Role != "user" {
		t.Errorf("trimmed history must start with a user message, got %q", got[0].Role)
	}
}

func TestTrimMessages_AlwaysKeepsLastGroup(t *testing.T) {
	// Even if the last group alone exceeds the budget, we still keep it
	// (the caller should handle the truly-too-large case).
	msgs := []Message{
		{Role: "user", Content: strings.Repeat("x", 10000)},
	}
	got := TrimMessages(msgs, 1)
	if len(got) != 1 {
		t.Errorf("expected last group to be preserved even over budget, got %d messages", len(got))
	}
}

func TestGroupMessages(t *testing.T) {
	msgs := []Message{
		{Role: "user", Content: "q1"},
		{Role: "assistant", Content: "a1"},
		{Role: "system", Content: "note"},
		{Role: "user", Content: "prompt"},
		{Role: "user", Content: "q2"},
		{Role: "assistant", Content: "a2"},
		{Role: "user", Content: "pending"},
	}

	groups := groupMessages(msgs)

	// q1+a1 | system | prompt+q2+a2 | pending
	if len(groups) != 4 {
		t.Fatalf("expected 4 groups, got %d", len(groups))
	}
	if len(groups[2].messages) != 3 {
		t.Errorf("exchange group should have 3 messages, got %d", len(groups[2].messages))
	}
	if groups[3].messages[0].Content != "pending" {
		t.Errorf("unanswered user message should form the last group, got %q", groups[3].messages[0].Content)
	}
}
