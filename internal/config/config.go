package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Mode string

const (
	ModeLocal Mode = "local"
	ModeGCP   Mode = "gcp"
)

// LLM providers.
const (
	ProviderMock   = "mock"
	ProviderVertex = "vertex"
	ProviderOpenAI = "openai"
)

// Storage backends.
const (
	StorageMemory    = "memory"
	StorageFirestore = "firestore"
)

// EnvPrefix prefixes every environment override, e.g. ANALYST_LLM_PROVIDER.
const EnvPrefix = "ANALYST"

type Config struct {
	Mode     Mode
	Port     string
	LogLevel string

	GCPProjectID string
	GCPLocation  string

	LLM       LLMConfig
	Storage   StorageConfig
	Workflow  WorkflowConfig
	Knowledge KnowledgeConfig
}

type LLMConfig struct {
	Provider string // "mock", "vertex" or "openai"

	// Brain serves extraction and documentation, Fast serves clarification
	// and diagrams.
	Brain ModelConfig
	Fast  ModelConfig

	CallTimeout time.Duration

	OpenAIBaseURL string
	OpenAIAPIKey  string
}

type ModelConfig struct {
	Model       string
	Temperature float64
}

type StorageConfig struct {
	Backend string // "memory" or "firestore"
}

type WorkflowConfig struct {
	TriggerTokens  []string
	ClosingMessage string
	Greeting       string
	PublishBaseURL string
}

// KnowledgeConfig overrides the built-in company knowledge base. Empty
// fields keep the built-in text.
type KnowledgeConfig struct {
	TechStack  string
	Compliance string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", string(ModeLocal))
	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")

	v.SetDefault("gcp.project", "")
	v.SetDefault("gcp.location", "us-central1")

	v.SetDefault("llm.provider", "")
	v.SetDefault("llm.brain.model", "gemini-2.5-pro")
	v.SetDefault("llm.brain.temperature", 0.3)
	v.SetDefault("llm.fast.model", "gemini-2.5-flash")
	v.SetDefault("llm.fast.temperature", 0.1)
	v.SetDefault("llm.call_timeout", "90s")
	v.SetDefault("llm.openai.base_url", "")
	v.SetDefault("llm.openai.api_key", "")

	v.SetDefault("storage.backend", StorageMemory)

	v.SetDefault("workflow.trigger_tokens", []string{})
	v.SetDefault("workflow.closing_message", "Documentation is ready.")
	v.SetDefault("workflow.greeting", "I'm ready to work. What system are we designing?")
	v.SetDefault("workflow.publish_base_url", "https://wiki.example.com/display/ARCH")

	v.SetDefault("knowledge.tech_stack", "")
	v.SetDefault("knowledge.compliance", "")
}

// Load builds the config from defaults, the optional YAML file at path and
// ANALYST_* environment variables, in increasing priority.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &Config{
		Mode:     parseMode(v.GetString("mode")),
		Port:     v.GetString("port"),
		LogLevel: v.GetString("log_level"),

		GCPProjectID: v.GetString("gcp.project"),
		GCPLocation:  v.GetString("gcp.location"),

		LLM: LLMConfig{
			Provider: strings.ToLower(strings.TrimSpace(v.GetString("llm.provider"))),
			Brain: ModelConfig{
				Model:       v.GetString("llm.brain.model"),
				Temperature: v.GetFloat64("llm.brain.temperature"),
			},
			Fast: ModelConfig{
				Model:       v.GetString("llm.fast.model"),
				Temperature: v.GetFloat64("llm.fast.temperature"),
			},
			CallTimeout:   v.GetDuration("llm.call_timeout"),
			OpenAIBaseURL: v.GetString("llm.openai.base_url"),
			OpenAIAPIKey:  v.GetString("llm.openai.api_key"),
		},
		Storage: StorageConfig{
			Backend: strings.ToLower(strings.TrimSpace(v.GetString("storage.backend"))),
		},
		Workflow: WorkflowConfig{
			TriggerTokens:  stringList(v, "workflow.trigger_tokens"),
			ClosingMessage: v.GetString("workflow.closing_message"),
			Greeting:       v.GetString("workflow.greeting"),
			PublishBaseURL: v.GetString("workflow.publish_base_url"),
		},
		Knowledge: KnowledgeConfig{
			TechStack:  v.GetString("knowledge.tech_stack"),
			Compliance: v.GetString("knowledge.compliance"),
		},
	}

	// The mock model is the local default, as Vertex is in gcp mode.
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = ProviderMock
		if cfg.Mode == ModeGCP {
			cfg.LLM.Provider = ProviderVertex
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var errs []error

	if c.Port == "" {
		errs = append(errs, errors.New("port must be set"))
	}

	switch c.LLM.Provider {
	case ProviderMock, ProviderOpenAI:
	case ProviderVertex:
		if c.GCPProjectID == "" {
			errs = append(errs, errors.New("gcp.project must be set for the vertex provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown llm.provider %q (want mock, vertex or openai)", c.LLM.Provider))
	}

	if c.LLM.Provider != ProviderMock {
		if c.LLM.Brain.Model == "" {
			errs = append(errs, errors.New("llm.brain.model must be set"))
		}
		if c.LLM.Fast.Model == "" {
			errs = append(errs, errors.New("llm.fast.model must be set"))
		}
	}

	for name, t := range map[string]float64{"llm.brain.temperature": c.LLM.Brain.Temperature, "llm.fast.temperature": c.LLM.Fast.Temperature} {
		if t < 0 || t > 2 {
			errs = append(errs, fmt.Errorf("%s must be within [0, 2], got %v", name, t))
		}
	}

	if c.LLM.CallTimeout < 0 {
		errs = append(errs, errors.New("llm.call_timeout must not be negative"))
	}

	switch c.Storage.Backend {
	case StorageMemory:
	case StorageFirestore:
		if c.GCPProjectID == "" {
			errs = append(errs, errors.New("gcp.project must be set for the firestore backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.backend %q (want memory or firestore)", c.Storage.Backend))
	}

	if c.Mode == ModeGCP && c.GCPProjectID == "" {
		errs = append(errs, errors.New("gcp.project must be set in gcp mode"))
	}

	return errors.Join(errs...)
}

func parseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gcp":
		return ModeGCP
	default:
		return ModeLocal
	}
}

// stringList reads a list from YAML or a comma separated environment value.
// Viper would split a plain string on whitespace, which breaks multi-word
// tokens such as "go ahead".
func stringList(v *viper.Viper, key string) []string {
	raw, ok := v.Get(key).(string)
	if !ok {
		list := v.GetStringSlice(key)
		if len(list) == 0 {
			return nil
		}
		return list
	}

	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
