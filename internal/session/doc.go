// Package session owns session identity and per-conversation bookkeeping:
// the session token, the first-activity timestamp, the successful-exchange
// counter, and the per-session rating flags. All state lives in a KV
// adapter namespaced by the deployment's widget key, and every operation
// tolerates an unavailable medium by degrading to in-memory defaults.
package session
