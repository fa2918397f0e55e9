// ABOUTME: KV interface for scoped key-value persistence of widget state
// ABOUTME: Implementations must never surface errors to callers

package storage

// KV is the persistence adapter for widget state. Implementations are
// synchronous and side-effect-only: a failed read reports absence, a
// failed write is absorbed by the implementation. Callers never handle
// storage errors.
type KV interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool)
	// Set stores value under key, replacing any previous value.
	Set(key, value string)
}
