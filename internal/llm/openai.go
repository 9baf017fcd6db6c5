package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIClient talks to the OpenAI chat completions API or any compatible
// endpoint (Ollama, self-hosted proxies) selected through baseURL.
type OpenAIClient struct {
	client openai.Client
	model  string
}

func NewOpenAIClient(apiKey, model, baseURL string) *OpenAIClient {
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	if model == "" {
		model = string(openai.ChatModelGPT4oMini)
	}
	return &OpenAIClient{client: client, model: model}
}

func (c *OpenAIClient) Chat(ctx context.Context, systemPrompt string, messages []Message) (*Response, error) {
	var oaiMsgs []openai.ChatCompletionMessageParamUnion
	if systemPrompt != "" {
		oaiMsgs = append(oaiMsgs, openai.SystemMessage(systemPrompt))
	}
	for _, m := range messages {
		switch m.Role {
		case "system":
			oaiMsgs = append(oaiMsgs, openai.SystemMessage(m.Content))
		case "user":
			oaiMsgs = append(oaiMsgs, openai.UserMessage(m.Content))
		case "assistant":
			oaiMsgs = append(oaiMsgs, openai.AssistantMessage(m.Content))
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: oaiMsgs,
	})
	if err != nil {
		return nil, fmt.Errorf("openai chat: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai chat: %w", ErrNoChoices)
	}

	model := resp.Model
	if model == "" {
		model = c.model
	}
	return &Response{
		Content: resp.Choices[0].Message.Content,
		Model:   model,
		Usage: Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}
