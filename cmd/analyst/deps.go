package main

import (
	"context"
	"fmt"

	"github.com/PabloGalante/analyst-agent/internal/adapters/llm"
	firestorestore "github.com/PabloGalante/analyst-agent/internal/adapters/storage/firestore"
	memstore "github.com/PabloGalante/analyst-agent/internal/adapters/storage/memory"
	"github.com/PabloGalante/analyst-agent/internal/app/conversation"
	"github.com/PabloGalante/analyst-agent/internal/app/report"
	"github.com/PabloGalante/analyst-agent/internal/app/tools"
	"github.com/PabloGalante/analyst-agent/internal/app/workflow"
	"github.com/PabloGalante/analyst-agent/internal/config"
	"github.com/PabloGalante/analyst-agent/internal/domain"
	"github.com/PabloGalante/analyst-agent/internal/observability"
)

// services is everything a command needs, built once from the config.
type services struct {
	conversation *conversation.Service
	reports      *report.Service
	close        func() error
}

func buildServices(ctx context.Context, cfg *config.Config) (*services, error) {
	log := observability.Logger()

	brain, fast, err := buildLLMs(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var (
		sessionStore domain.SessionStore
		closeStore   = func() error { return nil }
	)

	switch cfg.Storage.Backend {
	case config.StorageFirestore:
		log.Info("using firestore storage", "project", cfg.GCPProjectID)
		fsStore, err := firestorestore.NewStore(ctx, cfg.GCPProjectID)
		if err != nil {
			return nil, fmt.Errorf("initializing firestore store: %w", err)
		}
		sessionStore = fsStore
		closeStore = fsStore.Close
	default:
		log.Info("using in-memory storage")
		sessionStore = memstore.NewSessionStore()
	}

	kb := workflow.DefaultKnowledgeBase()
	if cfg.Knowledge.TechStack != "" {
		kb.TechStack = cfg.Knowledge.TechStack
	}
	if cfg.Knowledge.Compliance != "" {
		kb.Compliance = cfg.Knowledge.Compliance
	}

	engine, err := workflow.NewEngine(workflow.Deps{
		Brain:          brain,
		Fast:           fast,
		Preparer:       tools.NewPrepareTool(cfg.Workflow.PublishBaseURL),
		Knowledge:      kb,
		TriggerTokens:  cfg.Workflow.TriggerTokens,
		ClosingMessage: cfg.Workflow.ClosingMessage,
		CallTimeout:    cfg.LLM.CallTimeout,
	})
	if err != nil {
		_ = closeStore()
		return nil, fmt.Errorf("building workflow engine: %w", err)
	}

	return &services{
		conversation: conversation.NewService(engine, sessionStore, conversation.WithGreeting(cfg.Workflow.Greeting)),
		reports:      report.NewService(sessionStore),
		close:        closeStore,
	}, nil
}

// buildLLMs returns the brain and fast tier clients for the configured provider.
func buildLLMs(ctx context.Context, cfg *config.Config) (domain.LLMClient, domain.LLMClient, error) {
	log := observability.Logger()

	switch cfg.LLM.Provider {
	case config.ProviderVertex:
		log.Info("using vertex llm", "brain", cfg.LLM.Brain.Model, "fast", cfg.LLM.Fast.Model)
		brain, err := llm.NewVertexClient(ctx, vertexConfig(cfg, cfg.LLM.Brain))
		if err != nil {
			return nil, nil, fmt.Errorf("initializing vertex brain client: %w", err)
		}
		fast, err := llm.NewVertexClient(ctx, vertexConfig(cfg, cfg.LLM.Fast))
		if err != nil {
			return nil, nil, fmt.Errorf("initializing vertex fast client: %w", err)
		}
		return brain, fast, nil

	case config.ProviderOpenAI:
		log.Info("using openai-compatible llm", "base_url", cfg.LLM.OpenAIBaseURL, "brain", cfg.LLM.Brain.Model, "fast", cfg.LLM.Fast.Model)
		brain, err := llm.NewOpenAIClient(openAIConfig(cfg, cfg.LLM.Brain))
		if err != nil {
			return nil, nil, fmt.Errorf("initializing openai brain client: %w", err)
		}
		fast, err := llm.NewOpenAIClient(openAIConfig(cfg, cfg.LLM.Fast))
		if err != nil {
			return nil, nil, fmt.Errorf("initializing openai fast client: %w", err)
		}
		return brain, fast, nil

	default:
		log.Info("using mock llm")
		mock := llm.NewMockLLM()
		return mock, mock, nil
	}
}

func vertexConfig(cfg *config.Config, tier config.ModelConfig) llm.VertexConfig {
	return llm.VertexConfig{
		Project:     cfg.GCPProjectID,
		Location:    cfg.GCPLocation,
		Model:       tier.Model,
		Temperature: float32(tier.Temperature),
	}
}

func openAIConfig(cfg *config.Config, tier config.ModelConfig) llm.OpenAIConfig {
	return llm.OpenAIConfig{
		APIKey:      cfg.LLM.OpenAIAPIKey,
		BaseURL:     cfg.LLM.OpenAIBaseURL,
		Model:       tier.Model,
		Temperature: float32(tier.Temperature),
	}
}
