// ABOUTME: RatingWorkflow reports a binary conversation rating
// ABOUTME: Marks submitted immediately; the network report is best-effort

package feedback

import (
	"context"
	"log/slog"
)

// RatingReporter posts a rating to the feedback endpoint.
type RatingReporter interface {
	PostRating(ctx context.Context, sessionID, rating string) error
}

// RatingFlags persists the per-session submitted flag.
type RatingFlags interface {
	SetRatingSubmitted(sessionID string, value bool)
}

// Rating is the one-shot rating workflow.
type Rating struct {
	reporter RatingReporter
	flags    RatingFlags
	logger   *slog.Logger
}

// NewRating creates the rating workflow.
func NewRating(reporter RatingReporter, flags RatingFlags, logger *slog.Logger) *Rating {
	if logger == nil {
		logger = slog.Default()
	}
	return &Rating{
		reporter: reporter,
		flags:    flags,
		logger:   logger.With("component", "rating"),
	}
}

// Submit records the visitor's choice. The submitted flag is persisted
// immediately regardless of the network outcome; the report itself is
// fire-and-forget. Values other than "up" or "down" are ignored.
func (r *Rating) Submit(ctx context.Context, sessionID, rating string) {
	if rating != "up" && rating != "down" {
		r.logger.Debug("ignoring unknown rating value", "rating", rating)
		return
	}

	r.flags.SetRatingSubmitted(sessionID, true)

	bestEffort(r.logger, "rating", func() error {
		return r.reporter.PostRating(ctx, sessionID, rating)
	})
}
