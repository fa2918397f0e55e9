// ABOUTME: Configuration loading and parsing for the widget engine
// ABOUTME: Supports YAML files with environment variable expansion and server-side overrides

package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/konvoq/widget-engine/internal/transport"
)

// Config represents the complete widget-engine configuration
type Config struct {
	Widget   WidgetConfig   `yaml:"widget"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// WidgetConfig holds the deployment settings for one widget instance
type WidgetConfig struct {
	// Endpoint is the message webhook URL. When empty the engine refuses
	// to send and surfaces an inline error instead.
	Endpoint string `yaml:"endpoint"`
	// BaseURL is the API origin for the config, rating, and contact
	// endpoints. Defaults to Endpoint with its webhook path stripped.
	BaseURL string `yaml:"base_url"`
	// Key identifies the deployment and namespaces persisted state.
	Key string `yaml:"key"`
	// PlanType gates the rating prompt and the quota fallback. Usually
	// supplied by the server-side widget settings.
	PlanType string `yaml:"plan_type"`
	// DefaultLanguage is the operator-configured language code. A nil
	// pointer means unset, which is distinct from an explicit value for
	// the resolution order.
	DefaultLanguage *string `yaml:"default_language"`
	// MaxMessageLength bounds user input; zero means the engine default.
	MaxMessageLength int    `yaml:"max_message_length"`
	WelcomeMessage   string `yaml:"welcome_message"`
}

// DatabaseConfig holds local persistence configuration
type DatabaseConfig struct {
	// Path to the SQLite file. Empty means in-memory state only.
	Path string `yaml:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data)
}

// Parse parses raw YAML configuration bytes, expanding environment
// variables and applying defaults.
func Parse(data []byte) (*Config, error) {
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func (c *Config) applyDefaults() {
	if c.Widget.BaseURL == "" {
		c.Widget.BaseURL = deriveBaseURL(c.Widget.Endpoint)
	}
}

// deriveBaseURL strips the conventional webhook path so the secondary
// endpoints share the webhook's origin when base_url is not given.
func deriveBaseURL(endpoint string) string {
	return strings.TrimSuffix(strings.TrimRight(endpoint, "/"), "/api/v1/webhook")
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Widget.Key == "" {
		return fmt.Errorf("widget.key is required")
	}
	if c.Widget.MaxMessageLength < 0 {
		return fmt.Errorf("widget.max_message_length must not be negative")
	}
	return nil
}

// HasDefaultLanguage reports whether the operator set a language
// explicitly, even if to an empty string.
func (w WidgetConfig) HasDefaultLanguage() bool {
	return w.DefaultLanguage != nil
}

// DefaultLanguageValue returns the configured language code, or "" when unset.
func (w WidgetConfig) DefaultLanguageValue() string {
	if w.DefaultLanguage == nil {
		return ""
	}
	return *w.DefaultLanguage
}

// Merge folds server-side widget settings into the local configuration.
// Local values win where present; server settings fill the gaps.
func (c *Config) Merge(s transport.WidgetSettings) {
	if c.Widget.PlanType == "" {
		c.Widget.PlanType = s.PlanType
	}
	if c.Widget.WelcomeMessage == "" {
		c.Widget.WelcomeMessage = s.WelcomeMessage
	}
	if c.Widget.DefaultLanguage == nil && s.DefaultLanguage != "" {
		lang := s.DefaultLanguage
		c.Widget.DefaultLanguage = &lang
	}
	if c.Widget.MaxMessageLength == 0 && s.MaxMessageLength > 0 {
		c.Widget.MaxMessageLength = s.MaxMessageLength
	}
}
