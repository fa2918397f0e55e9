// Package config handles configuration loading for the widget engine.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults, plus a merge step
// that folds server-published widget settings into the local file.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from KONVOQ_CONFIG environment variable
//  2. ./config.yaml (current directory)
//  3. ~/.config/konvoq/widget.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	widget:
//	  key: "${KONVOQ_WIDGET_KEY}"
//
// Unset variables expand to the empty string.
//
// # Configuration Sections
//
// Widget deployment:
//
//	widget:
//	  endpoint: "https://api.example.com/api/v1/webhook"
//	  key: "${KONVOQ_WIDGET_KEY}"
//	  plan_type: "basic"
//	  default_language: "en"
//	  max_message_length: 1000
//	  welcome_message: "Hi! How can we help?"
//
// Local persistence:
//
//	database:
//	  path: "~/.local/state/konvoq/widget.db"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Precedence
//
// Values set in the local file always win. Server-side widget settings
// fetched at startup only fill fields the file left empty, so an operator
// can pin the plan type, welcome message, or language locally.
package config
