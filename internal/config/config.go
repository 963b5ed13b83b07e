package config

import (
	"fmt"
)

// Config represents the kevin daemon configuration
type Config struct {
	Server  ServerConfig  `json:"server"`
	AI      AIConfig      `json:"ai"`
	Models  ModelsConfig  `json:"models"`
	Agent   AgentConfig   `json:"agent"`
	Session SessionConfig `json:"session"`
	Logging LoggingConfig `json:"logging"`
}

// ServerConfig holds HTTP/WebSocket server settings
type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// AIConfig holds provider credentials
type AIConfig struct {
	OpenAIAPIKey    string `json:"openai_api_key"`
	AnthropicAPIKey string `json:"anthropic_api_key"`
	DefaultProvider string `json:"default_provider"` // openai, anthropic
}

// ModelsConfig maps tiers to concrete provider models
type ModelsConfig struct {
	OpenAI    TierModels `json:"openai"`
	Anthropic TierModels `json:"anthropic"`

	// Per-tier output token ceilings
	FastMaxTokens     int `json:"fast_max_tokens"`
	StandardMaxTokens int `json:"standard_max_tokens"`
	PremiumMaxTokens  int `json:"premium_max_tokens"`
}

// TierModels names one provider's model per tier
type TierModels struct {
	Fast     string `json:"fast"`
	Standard string `json:"standard"`
	Premium  string `json:"premium"`
}

// AgentConfig holds orchestration loop settings
type AgentConfig struct {
	MaxIterations int     `json:"max_iterations"`
	MaxTokens     int     `json:"max_tokens"`
	Temperature   float64 `json:"temperature"`
	ToolTimeoutMs int     `json:"tool_timeout_ms"`
}

// SessionConfig holds session store settings
type SessionConfig struct {
	// Optional SQLite database path; empty keeps sessions in memory only
	DatabasePath string `json:"database_path"`

	// Cron spec for the idle-session cleanup job; empty disables cleanup
	CleanupSchedule string `json:"cleanup_schedule"`

	// Sessions idle longer than this many minutes are pruned
	MaxIdleMinutes int `json:"max_idle_minutes"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level     string `json:"level"`
	File      string `json:"file"`
	Pretty    bool   `json:"pretty"`
	Redaction bool   `json:"redaction"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8000,
		},
		AI: AIConfig{
			DefaultProvider: "openai",
		},
		Models: ModelsConfig{
			OpenAI: TierModels{
				Fast:     "gpt-4o-mini",
				Standard: "gpt-4o",
				Premium:  "gpt-4-turbo-preview",
			},
			Anthropic: TierModels{
				Fast:     "claude-3-haiku-20240307",
				Standard: "claude-3-5-sonnet-20241022",
				Premium:  "claude-3-opus-20240229",
			},
			FastMaxTokens:     1024,
			StandardMaxTokens: 4096,
			PremiumMaxTokens:  8192,
		},
		Agent: AgentConfig{
			MaxIterations: 10,
			MaxTokens:     4096,
			Temperature:   0.7,
			ToolTimeoutMs: 30000,
		},
		Session: SessionConfig{
			CleanupSchedule: "",
			MaxIdleMinutes:  24 * 60,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Pretty:    true,
			Redaction: true,
		},
	}
}

// Validate checks the configuration for obvious mistakes
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Agent.MaxIterations <= 0 {
		return fmt.Errorf("max iterations must be positive")
	}
	if c.Agent.Temperature < 0 || c.Agent.Temperature > 1 {
		return fmt.Errorf("temperature must be between 0 and 1")
	}
	switch c.AI.DefaultProvider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unknown default provider: %s", c.AI.DefaultProvider)
	}
	return nil
}
