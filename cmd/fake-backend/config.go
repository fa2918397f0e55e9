// ABOUTME: Scenario configuration for the fake widget backend
// ABOUTME: Loads TOML config with environment variable expansion and duration parsing

package main

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Widget   WidgetConfig   `toml:"widget"`
	Behavior BehaviorConfig `toml:"behavior"`
	Logging  LoggingConfig  `toml:"logging"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

// WidgetConfig is what GET /api/v1/widget/config/{key} publishes.
type WidgetConfig struct {
	Key              string `toml:"key"`
	PlanType         string `toml:"plan_type"`
	WelcomeMessage   string `toml:"welcome_message"`
	DefaultLanguage  string `toml:"default_language"`
	MaxMessageLength int    `toml:"max_message_length"`
}

// BehaviorConfig scripts how the backend answers.
type BehaviorConfig struct {
	// Streaming answers the webhook with an SSE token stream when the
	// client asks for one; otherwise every reply is single-shot JSON.
	Streaming bool `toml:"streaming"`
	// QuotaLimit caps successful exchanges per session before the
	// limit-reached response; zero means unlimited.
	QuotaLimit int `toml:"quota_limit"`
	// ErrorEvery fails every Nth message per session (an SSE error event
	// when streaming, a 500 otherwise); zero disables injection.
	ErrorEvery int `toml:"error_every"`
	// Replies are served round-robin per session.
	Replies []string `toml:"replies"`

	TokenDelay time.Duration `toml:"-"`

	// Raw string value for TOML unmarshaling
	TokenDelayRaw string `toml:"token_delay"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

// Load reads config from the given path, expanding environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables (${VAR} syntax)
	expanded := expandEnvVars(string(data))

	var cfg Config
	if _, err := toml.Decode(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyDefaults()

	if cfg.Behavior.TokenDelayRaw != "" {
		cfg.Behavior.TokenDelay, err = time.ParseDuration(cfg.Behavior.TokenDelayRaw)
		if err != nil {
			return nil, fmt.Errorf("parsing token_delay %q: %w", cfg.Behavior.TokenDelayRaw, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR} with environment variable values.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		return os.Getenv(varName)
	})
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8091"
	}
	if c.Widget.PlanType == "" {
		c.Widget.PlanType = "basic"
	}
	if len(c.Behavior.Replies) == 0 {
		c.Behavior.Replies = []string{
			"Thanks for reaching out! This is a scripted reply.",
			"Here is **another** scripted reply with some *markdown*.",
		}
	}
}

// Validate checks that required config fields are present and valid.
func (c *Config) Validate() error {
	if c.Widget.Key == "" {
		return fmt.Errorf("widget.key is required")
	}
	if c.Behavior.QuotaLimit < 0 {
		return fmt.Errorf("behavior.quota_limit must not be negative")
	}
	if c.Behavior.ErrorEvery < 0 {
		return fmt.Errorf("behavior.error_every must not be negative")
	}
	return nil
}
