// Package feedback holds the two one-shot side effects a conversation
// can trigger: the rating prompt workflow and the contact-form fallback
// shown when a usage quota is exhausted. Each persists a has-occurred
// flag so it never repeats within a session, and network reporting is an
// explicit best-effort policy that never fails the caller.
package feedback
