// Package config loads runtime configuration from a file, environment
// variables, and defaults using viper. Environment variables use the
// AGENTHUB_ prefix with underscores, e.g. AGENTHUB_HTTP_ADDR.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "AGENTHUB"

// Config is the fully resolved configuration of the agenthubd process.
type Config struct {
	HTTPAddr string `mapstructure:"http_addr"`
	DBPath   string `mapstructure:"db_path"`

	AgentProfile string `mapstructure:"agent_profile"`

	ModelProvider string `mapstructure:"model_provider"`
	ModelName     string `mapstructure:"model_name"`
	APIKey        string `mapstructure:"api_key"`

	MaxRoundCount    int           `mapstructure:"max_round_count"`
	MaxStallCount    int           `mapstructure:"max_stall_count"`
	MaxResetCount    int           `mapstructure:"max_reset_count"`
	EnablePlanReview bool          `mapstructure:"enable_plan_review"`
	RoundTimeout     time.Duration `mapstructure:"round_timeout"`

	ContextTransferTurns int `mapstructure:"context_transfer_turns"`

	WorkflowEventLoggingEnabled bool `mapstructure:"workflow_event_logging_enabled"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("db_path", "")
	v.SetDefault("agent_profile", "assistant")
	v.SetDefault("model_provider", "openai")
	v.SetDefault("model_name", "")
	v.SetDefault("api_key", "")
	v.SetDefault("max_round_count", 20)
	v.SetDefault("max_stall_count", 3)
	v.SetDefault("max_reset_count", 2)
	v.SetDefault("enable_plan_review", false)
	v.SetDefault("round_timeout", 2*time.Minute)
	v.SetDefault("context_transfer_turns", 10)
	v.SetDefault("workflow_event_logging_enabled", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// Load reads configuration from the given file path (optional) merged over
// environment variables and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("agenthub")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/agenthub")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.MaxRoundCount < 1 {
		return errors.New("max_round_count must be at least 1")
	}
	if c.MaxStallCount < 0 {
		return errors.New("max_stall_count must not be negative")
	}
	if c.MaxResetCount < 0 {
		return errors.New("max_reset_count must not be negative")
	}
	if c.ContextTransferTurns < -1 {
		return errors.New("context_transfer_turns must be -1, 0, or positive")
	}
	switch c.ModelProvider {
	case "openai", "anthropic", "static":
	default:
		return fmt.Errorf("unknown model_provider %q", c.ModelProvider)
	}
	return nil
}
