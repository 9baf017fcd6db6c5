package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const anthropicAPI = "https://api.anthropic.com/v1/messages"

type AnthropicClient struct {
	apiKey   string
	model    string
	endpoint string
	http     *http.Client
}

func NewAnthropicClient(apiKey, model string) *AnthropicClient {
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	return &AnthropicClient{
		apiKey:   apiKey,
		model:    model,
		endpoint: anthropicAPI,
		http:     &http.Client{},
	}
}

// Raw API request/response types

type anthRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    []anthText    `json:"system,omitempty"`
	Messages  []anthMessage `json:"messages"`
}

type anthText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthResponse struct {
	Model   string     `json:"model"`
	Content []anthText `json:"content"`
	Usage   struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (c *AnthropicClient) Chat(ctx context.Context, systemPrompt string, messages []Message) (*Response, error) {
	var system []anthText
	if systemPrompt != "" {
		system = append(system, anthText{Type: "text", Text: systemPrompt})
	}

	// The messages API has no system role; fold those into the system blocks.
	var anthMsgs []anthMessage
	for _, m := range messages {
		switch m.Role {
		case "system":
			system = append(system, anthText{Type: "text", Text: m.Content})
		case "user", "assistant":
			anthMsgs = append(anthMsgs, anthMessage{Role: m.Role, Content: m.Content})
		}
	}

	body, err := json.Marshal(anthRequest{
		Model:     c.model,
		MaxTokens: 4096,
		System:    system,
		Messages:  anthMsgs,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("anthropic-version", "2023-06-01")
	req.Header.Set("User-Agent", "dayplan/1.0")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("anthropic request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("anthropic chat: %s %s", resp.Status, string(respBody))
	}

	var anthResp anthResponse
	if err := json.Unmarshal(respBody, &anthResp); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	if len(anthResp.Content) == 0 {
		return nil, fmt.Errorf("anthropic chat: %w", ErrNoChoices)
	}

	result := &Response{
		Model: anthResp.Model,
		Usage: Usage{
			PromptTokens:     anthResp.Usage.InputTokens,
			CompletionTokens: anthResp.Usage.OutputTokens,
			TotalTokens:      anthResp.Usage.InputTokens + anthResp.Usage.OutputTokens,
		},
	}
	for _, block := range anthResp.Content {
		if block.Type == "text" {
			result.Content += block.Text
		}
	}
	return result, nil
}
