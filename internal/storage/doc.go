// Package storage provides the key-value persistence adapter used for
// widget state: session identity, activity timestamps, counters, rating
// flags, and language preferences.
package storage
