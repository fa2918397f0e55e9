// Package conversation implements the session engine's state machine.
//
// # Overview
//
// The Engine owns everything that happens between a visitor pressing
// send and the bot's reply settling on screen:
//
//	Idle → Sending → {Streaming | AwaitingReply} → Idle
//
// with two cross-cutting side effects entered after a bot turn
// completes: the one-shot rating prompt and the quota contact-form
// fallback (which is terminal until the visitor acts).
//
// # Send
//
// Send validates locally (configuration, length, emptiness), applies the
// two-minute inactivity reset, renders the user message, evaluates the
// end-of-conversation heuristic, and dispatches through the transport.
// Streamed replies are assembled token by token and re-rendered in place
// through the same content renderer as the final message; single-shot
// replies arrive as a closed set of parsed kinds.
//
// # Ownership
//
// Counters, rating flags, and the session id are owned exclusively by
// the Engine and mutated only on its own call path. One exchange may be
// in flight at a time; a concurrent Send returns ErrBusy. All
// collaborators (persistence, transport, presentation, clock, id
// generation) are injected, so the engine is testable with fakes.
package conversation
