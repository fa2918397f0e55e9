// ABOUTME: Named swallow-on-purpose policy for fire-and-forget calls
// ABOUTME: Failures are debug-logged, never retried, never surfaced

package feedback

import "log/slog"

// bestEffort runs fn and absorbs its error. Analytics-style calls must
// not fail the caller; making the swallow a named policy keeps the
// distinction from genuinely unchecked errors visible.
func bestEffort(logger *slog.Logger, op string, fn func() error) {
	if err := fn(); err != nil {
		logger.Debug("best-effort call failed", "op", op, "error", err)
	}
}
