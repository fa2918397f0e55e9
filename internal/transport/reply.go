// ABOUTME: Sum type for single-shot backend replies
// ABOUTME: One parsing function so callers match kinds instead of probing fields

package transport

import "encoding/json"

// Reply is the closed set of single-shot response kinds.
type Reply interface {
	isReply()
}

// Success carries the bot's reply text. Text may be empty when the
// backend answered 2xx without a recognizable reply field; SessionID is
// set when the backend reassigned the session.
type Success struct {
	Text      string
	SessionID string
}

// QuotaExceeded signals that the deployment's usage limit was reached.
type QuotaExceeded struct {
	PlanType string
	Message  string
}

// ServerError is an application-level failure reported by the backend.
// Message may be empty when the error body carried none.
type ServerError struct {
	Message string
}

// Unrecognized marks a successful HTTP response whose body was not JSON.
type Unrecognized struct{}

func (Success) isReply()       {}
func (QuotaExceeded) isReply() {}
func (ServerError) isReply()   {}
func (Unrecognized) isReply()  {}

// ParseReply interprets a single-shot response body. ok reports whether
// the HTTP status was successful; the body is parsed as JSON regardless
// of status.
func ParseReply(ok bool, body []byte) Reply {
	if ok {
		var parsed struct {
			Response  string `json:"response"`
			Output    string `json:"output"`
			Message   string `json:"message"`
			SessionID string `json:"sessionId"`
		}
		if err := json.Unmarshal(body, &parsed); err != nil {
			return Unrecognized{}
		}
		text := parsed.Response
		if text == "" {
			text = parsed.Output
		}
		if text == "" {
			text = parsed.Message
		}
		return Success{Text: text, SessionID: parsed.SessionID}
	}

	var parsed struct {
		Message      string `json:"message"`
		LimitReached bool   `json:"limitReached"`
		Data         struct {
			PlanType string `json:"planType"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ServerError{}
	}
	if parsed.LimitReached {
		return QuotaExceeded{PlanType: parsed.Data.PlanType, Message: parsed.Message}
	}
	return ServerError{Message: parsed.Message}
}
