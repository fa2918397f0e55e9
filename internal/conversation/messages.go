// ABOUTME: Fixed user-facing strings and engine constants
// ABOUTME: Error texts must stay stable; tests assert on them

package conversation

import "time"

const (
	// msgNotConfigured is the local validation error when no endpoint
	// was configured.
	msgNotConfigured = "Widget is not configured with an API URL."
	// msgTooLongFmt is the local validation error for over-length input.
	msgTooLongFmt = "Message is too long. Maximum %d characters."
	// msgFallbackReply replaces an empty or unintelligible bot reply.
	msgFallbackReply = "Sorry, did not get that."
	// msgNetworkError replaces the typing indicator on transport failure.
	msgNetworkError = "Sorry, network error occurred."
	// msgLimitReached precedes the contact-form fallback.
	msgLimitReached = "You've reached the conversation limit. Please use the form below to get in touch."
)

const (
	// planBasic is the tier that enables the rating prompt and the
	// quota fallback.
	planBasic = "basic"

	// inactivityWindow is the gap after which the logical conversation
	// resets: counters zeroed, activity date renewed, rating state
	// cleared.
	inactivityWindow = 2 * time.Minute

	// defaultMaxMessageLength bounds user input when the deployment did
	// not configure a limit.
	defaultMaxMessageLength = 1000
)

const (
	// RatingUp and RatingDown are the accepted rating values.
	RatingUp   = "up"
	RatingDown = "down"
)
