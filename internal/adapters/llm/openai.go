package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/PabloGalante/analyst-agent/internal/domain"
)

// OpenAIConfig targets any OpenAI-compatible chat completions endpoint.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
}

type OpenAIClient struct {
	client *openai.Client
	cfg    OpenAIConfig
}

func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.Model == "" {
		return nil, errors.New("openai: model must be set")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
	}, nil
}

func (c *OpenAIClient) GenerateReply(ctx context.Context, prompt string, convCtx domain.ConversationContext) (string, error) {
	return c.complete(ctx, c.request(prompt, convCtx))
}

// GenerateStructured requests a JSON-schema response format. Strict mode is
// off: the caller validates the output anyway.
func (c *OpenAIClient) GenerateStructured(ctx context.Context, prompt string, convCtx domain.ConversationContext, schema domain.Schema) (string, error) {
	req := c.request(prompt, convCtx)
	if len(schema.JSON) > 0 {
		name := schema.Name
		if name == "" {
			name = "output"
		}
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   name,
				Schema: json.RawMessage(schema.JSON),
			},
		}
	} else {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	return c.complete(ctx, req)
}

func (c *OpenAIClient) request(prompt string, convCtx domain.ConversationContext) openai.ChatCompletionRequest {
	msgs := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: prompt},
	}
	for _, t := range BuildTurns(convCtx) {
		role := openai.ChatMessageRoleUser
		if t.Assistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: t.Text})
	}

	return openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    msgs,
		Temperature: c.cfg.Temperature,
	}
}

func (c *OpenAIClient) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", domain.NewCapabilityError("openai chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return "", domain.NewCapabilityError("openai chat completion", errors.New("no choices"))
	}

	text := resp.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return "", domain.NewCapabilityError("openai chat completion", errors.New("empty text"))
	}
	return text, nil
}
