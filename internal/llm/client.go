package llm

import (
	"context"
	"errors"
)

// ErrNoChoices is returned when a provider answers without any completion.
var ErrNoChoices = errors.New("llm returned no choices")

type Message struct {
	Role    string `json:"role"` // user, assistant, system
	Content string `json:"content"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type Response struct {
	Content string `json:"content"`
	Model   string `json:"model"`
	Usage   Usage  `json:"usage"`
}

type Client interface {
	Chat(ctx context.Context, systemPrompt string, messages []Message) (*Response, error)
}

// UserMessage and AssistantMessage are shorthands for building histories.
func UserMessage(content string) Message { return Message{Role: "user", Content: content} }

func AssistantMessage(content string) Message { return Message{Role: "assistant", Content: content} }
