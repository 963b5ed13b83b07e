package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// Load reads configuration from an optional JSON file and applies
// environment overrides. A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("KEVIN_OPENAI_API_KEY"); v != "" {
		cfg.AI.OpenAIAPIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && cfg.AI.OpenAIAPIKey == "" {
		cfg.AI.OpenAIAPIKey = v
	}
	if v := os.Getenv("KEVIN_ANTHROPIC_API_KEY"); v != "" {
		cfg.AI.AnthropicAPIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" && cfg.AI.AnthropicAPIKey == "" {
		cfg.AI.AnthropicAPIKey = v
	}
	if v := os.Getenv("KEVIN_PROVIDER"); v != "" {
		cfg.AI.DefaultProvider = v
	}
	if v := os.Getenv("KEVIN_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("KEVIN_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("KEVIN_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("KEVIN_DB_PATH"); v != "" {
		cfg.Session.DatabasePath = v
	}
	if v := os.Getenv("KEVIN_MAX_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Agent.MaxIterations = n
		}
	}
}

// Save writes the configuration to a JSON file
func Save(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
