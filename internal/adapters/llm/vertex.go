package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/PabloGalante/analyst-agent/internal/domain"
)

// VertexConfig selects the Gemini model and its sampling parameters.
type VertexConfig struct {
	Project         string
	Location        string
	Model           string
	Temperature     float32
	TopP            float32
	MaxOutputTokens int32
}

type VertexClient struct {
	client *genai.Client
	cfg    VertexConfig
}

// NewVertexClient creates an LLMClient based on Vertex AI (Gemini).
func NewVertexClient(ctx context.Context, cfg VertexConfig) (*VertexClient, error) {
	if cfg.Project == "" || cfg.Location == "" {
		return nil, errors.New("vertex: project and location must be set")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.TopP == 0 {
		cfg.TopP = 0.9
	}
	if cfg.MaxOutputTokens == 0 {
		cfg.MaxOutputTokens = 8192
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  cfg.Project,
		Location: cfg.Location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Vertex AI client: %w", err)
	}

	return &VertexClient{client: client, cfg: cfg}, nil
}

// GenerateReply implements domain.LLMClient using Vertex AI.
func (v *VertexClient) GenerateReply(
	ctx context.Context,
	prompt string,
	convCtx domain.ConversationContext,
) (string, error) {
	return v.generate(ctx, convCtx, v.config(prompt))
}

// GenerateStructured asks Gemini for JSON constrained by schema.
func (v *VertexClient) GenerateStructured(
	ctx context.Context,
	prompt string,
	convCtx domain.ConversationContext,
	schema domain.Schema,
) (string, error) {
	cfg := v.config(prompt)
	cfg.ResponseMIMEType = "application/json"
	if len(schema.JSON) > 0 {
		cfg.ResponseJsonSchema = json.RawMessage(schema.JSON)
	}
	return v.generate(ctx, convCtx, cfg)
}

func (v *VertexClient) config(prompt string) *genai.GenerateContentConfig {
	temp := v.cfg.Temperature
	topP := v.cfg.TopP

	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(prompt, genai.RoleUser),
		Temperature:       &temp,
		TopP:              &topP,
		MaxOutputTokens:   v.cfg.MaxOutputTokens,
	}
}

func (v *VertexClient) generate(
	ctx context.Context,
	convCtx domain.ConversationContext,
	cfg *genai.GenerateContentConfig,
) (string, error) {
	var contents []*genai.Content
	for _, t := range BuildTurns(convCtx) {
		role := genai.Role(genai.RoleUser)
		if t.Assistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Text, role))
	}

	res, err := v.client.Models.GenerateContent(ctx, v.cfg.Model, contents, cfg)
	if err != nil {
		return "", domain.NewCapabilityError("vertex generate content", err)
	}

	text := res.Text()
	if text == "" {
		return "", domain.NewCapabilityError("vertex generate content", errors.New("empty text"))
	}

	return text, nil
}
