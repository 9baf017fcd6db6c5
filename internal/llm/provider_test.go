package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewClient(t *testing.T) {
	for _, p := range []string{"openai", "ollama", "anthropic"} {
		c, err := NewClient(ProviderConfig{Provider: p, APIKey: "k"})
		if err != nil {
			t.Fatalf("NewClient(%q): %v", p, err)
		}
		if c == nil {
			t.Fatalf("NewClient(%q) returned nil client", p)
		}
	}
	if _, err := NewClient(ProviderConfig{Provider: "gemini"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestAnthropicChat(t *testing.T) {
	var got anthRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != "secret" {
			t.Errorf("missing api key header")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Write([]byte(`{"model":"claude-test","content":[{"type":"text","text":"08:00-09:00 "},{"type":"text","text":"学习政治"}],"usage":{"input_tokens":10,"output_tokens":5}}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient("secret", "")
	c.endpoint = srv.URL

	resp, err := c.Chat(context.Background(), SystemPrompt, []Message{
		{Role: "system", Content: "extra rule"},
		UserMessage("今天是周一。"),
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "08:00-09:00 学习政治" {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 15 || resp.Model != "claude-test" {
		t.Errorf("unexpected usage/model: %+v", resp)
	}
	if len(got.System) != 2 || got.System[1].Text != "extra rule" {
		t.Errorf("system messages should be folded into system blocks, got %+v", got.System)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" {
		t.Errorf("expected a single user message, got %+v", got.Messages)
	}
}

func TestAnthropicChat_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "empty") {
			w.Write([]byte(`{"content":[]}`))
			return
		}
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"type":"rate_limit_error"}}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient("", "m")
	c.endpoint = srv.URL + "/limited"
	if _, err := c.Chat(context.Background(), "", []Message{UserMessage("hi")}); err == nil || !strings.Contains(err.Error(), "429") {
		t.Errorf("expected status error, got %v", err)
	}

	c.endpoint = srv.URL + "/empty"
	if _, err := c.Chat(context.Background(), "", []Message{UserMessage("hi")}); !errors.Is(err, ErrNoChoices) {
		t.Errorf("expected ErrNoChoices, got %v", err)
	}
}

func TestBuildPlanningPrompt(t *testing.T) {
	p := BuildPlanningPrompt("每天学习2小时", "2026-10-18", "1: 喜欢早上学习\n")
	if !strings.HasPrefix(p, "学习目标：每天学习2小时\n今天日期：2026-10-18\n") {
		t.Errorf("prompt should open with the goal and date, got %q", p)
	}
	if !strings.Contains(p, "2026-10-18THH:MM-HH:MM") {
		t.Error("prompt should show the commitment time_range shape for the date")
	}
	if !strings.Contains(p, "1: 喜欢早上学习") {
		t.Error("prompt should include memory context")
	}

	empty := BuildPlanningPrompt("g", "", "  ")
	if !strings.Contains(empty, NoMemoryContext) {
		t.Errorf("empty context should use placeholder, got %q", empty)
	}
	if strings.Contains(empty, "今天日期") {
		t.Errorf("no date line expected without a date, got %q", empty)
	}
	if !strings.Contains(SystemPrompt, "BEGIN_PLAN_UPDATE") || !strings.Contains(SystemPrompt, "END_PLAN_UPDATE") {
		t.Error("system prompt must describe the plan markers")
	}
}

func TestPlanningSystemPrompt(t *testing.T) {
	got := PlanningSystemPrompt("2026-10-18")
	if strings.Contains(got, exampleDate) {
		t.Errorf("sample date should be replaced, got %q", got)
	}
	if !strings.Contains(got, `"date": "2026-10-18"`) || !strings.Contains(got, `"time_range": "2026-10-18T09:30-10:00"`) {
		t.Error("sample plan should use the plan date")
	}
	if PlanningSystemPrompt("") != SystemPrompt {
		t.Error("empty date should leave the prompt unchanged")
	}
}

func TestOpenAIChat(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"收到"}}],
			"usage":{"prompt_tokens":7,"completion_tokens":2,"total_tokens":9}}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-test", "", srv.URL+"/v1")
	resp, err := c.Chat(context.Background(), ChatSystemPrompt, []Message{
		UserMessage("q"), AssistantMessage("a"), UserMessage("q2"),
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "收到" || resp.Model != "gpt-4o-mini" || resp.Usage.TotalTokens != 9 {
		t.Errorf("unexpected response: %+v", resp)
	}
	msgs, _ := body["messages"].([]any)
	if len(msgs) != 4 {
		t.Errorf("expected system + 3 messages, got %d", len(msgs))
	}
}
