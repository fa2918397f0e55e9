// ABOUTME: Language preference resolution with a fixed supported-code allow-list
// ABOUTME: Explicit deployment config wins over a stored per-widget user choice

// Package language resolves the widget's active language from the
// deployment configuration, the visitor's stored choice, and a built-in
// fallback, in that order of precedence.
package language

import (
	"strings"

	"github.com/konvoq/widget-engine/internal/storage"
)

// Fallback is used whenever no supported code can be resolved.
const Fallback = "en"

// supported maps language codes to display labels.
var supported = map[string]string{
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"hi": "Hindi",
	"ar": "Arabic",
	"pt": "Portuguese",
	"ru": "Russian",
	"ja": "Japanese",
	"zh": "Chinese",
	"it": "Italian",
	"nl": "Dutch",
	"ko": "Korean",
	"tr": "Turkish",
	"pl": "Polish",
}

// Normalize trims and lowercases code and validates it against the
// supported set. Unsupported or empty input yields "".
func Normalize(code string) string {
	normalized := strings.ToLower(strings.TrimSpace(code))
	if normalized == "" {
		return ""
	}
	if _, ok := supported[normalized]; !ok {
		return ""
	}
	return normalized
}

// Label returns the display label for a supported code, or "" otherwise.
func Label(code string) string {
	return supported[code]
}

// StorageKey returns the per-widget-namespace key under which the active
// language is persisted. Two deployments on the same page do not collide.
func StorageKey(widgetKey string) string {
	if widgetKey == "" {
		widgetKey = "default"
	}
	return "konvoq_chat_language_" + widgetKey
}

// Resolve determines the active language. When the deployment explicitly
// configured a default (hasExplicit), that value wins and overwrites any
// stored user choice. Otherwise a previously stored choice wins, then the
// configured value, then the fallback. The resolution is always written
// back to storage.
func Resolve(kv storage.KV, widgetKey, configured string, hasExplicit bool) string {
	configuredCode := Normalize(configured)
	if configuredCode == "" {
		configuredCode = Fallback
	}

	if kv == nil {
		return configuredCode
	}

	stored := ""
	if raw, ok := kv.Get(StorageKey(widgetKey)); ok {
		stored = Normalize(raw)
	}

	selected := configuredCode
	if !hasExplicit && stored != "" {
		selected = stored
	}

	kv.Set(StorageKey(widgetKey), selected)
	return selected
}

// Save persists a user-selected language for the widget namespace.
// Unsupported codes are discarded in favor of the fallback.
func Save(kv storage.KV, widgetKey, code string) string {
	selected := Normalize(code)
	if selected == "" {
		selected = Fallback
	}
	if kv != nil {
		kv.Set(StorageKey(widgetKey), selected)
	}
	return selected
}
