// Package config loads the YAML configuration file, expanding ${VAR}
// references from the environment before parsing.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the main configuration structure for the search agent.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Agent   AgentConfig   `yaml:"agent"`
	OpenAI  OpenAIConfig  `yaml:"openai"`
	SerpAPI SerpAPIConfig `yaml:"serpapi"`
	Secrets SecretsConfig `yaml:"secrets"`
	History HistoryConfig `yaml:"history"`
	Logging LoggingConfig `yaml:"logging"`
	Tracing TracingConfig `yaml:"tracing"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type AgentConfig struct {
	Model         string `yaml:"model"`
	MaxIterations int    `yaml:"max_iterations"`
	MaxTokens     int    `yaml:"max_tokens"`
	SystemPrompt  string `yaml:"system_prompt"`
}

type OpenAIConfig struct {
	APIKey     string `yaml:"api_key"`
	MaxRetries int    `yaml:"max_retries"`
}

type SerpAPIConfig struct {
	APIKey      string `yaml:"api_key"`
	Engine      string `yaml:"engine"`
	ResultLimit int    `yaml:"result_limit"`
	CacheTTL    int    `yaml:"cache_ttl"`
}

// SecretsConfig controls bootstrap from SSM Parameter Store. When enabled,
// parameters under Prefix override the API keys from file or environment.
type SecretsConfig struct {
	SSMEnabled bool   `yaml:"ssm_enabled"`
	SSMPrefix  string `yaml:"ssm_prefix"`
}

type HistoryConfig struct {
	// Path is the SQLite database file for conversation transcripts.
	// Empty disables persistence.
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type TracingConfig struct {
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
	Environment  string  `yaml:"environment"`
	Insecure     bool    `yaml:"insecure"`
}

// Load reads and parses the configuration file. An empty path yields the
// default configuration, with API keys taken from the environment.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// Expand environment variables
		expanded := os.ExpandEnv(string(data))

		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Agent.Model == "" {
		cfg.Agent.Model = "gpt-4o-mini"
	}
	if cfg.Agent.MaxIterations == 0 {
		cfg.Agent.MaxIterations = 3
	}
	if cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.OpenAI.MaxRetries == 0 {
		cfg.OpenAI.MaxRetries = 3
	}
	if cfg.SerpAPI.APIKey == "" {
		cfg.SerpAPI.APIKey = os.Getenv("SERPAPI_API_KEY")
	}
	if cfg.Secrets.SSMPrefix == "" {
		cfg.Secrets.SSMPrefix = "/streaming-agent"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}
