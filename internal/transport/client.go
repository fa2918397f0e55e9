// ABOUTME: HTTP client for the widget backend message endpoint
// ABOUTME: Detects streaming vs single-shot responses and wraps both as an Exchange

package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// OutboundMessage is one user message headed for the backend.
type OutboundMessage struct {
	Text      string
	SessionID string
	Language  string
}

// Event is one decoded payload from a streamed exchange. Type is one of
// "token", "done", or "error"; other values pass through and are ignored
// by callers.
type Event struct {
	Type      string `json:"type"`
	Token     string `json:"token,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

// Exchange is the outcome of one Dispatch call. Streaming exchanges must
// be consumed with Stream; single-shot exchanges carry a parsed Reply.
type Exchange struct {
	Streaming bool
	Reply     Reply

	body   io.ReadCloser
	logger *slog.Logger
}

// Client talks to the widget backend.
type Client struct {
	httpClient *http.Client
	endpoint   string
	baseURL    string
	widgetKey  string
	logger     *slog.Logger
}

// New creates a Client for the given message endpoint. baseURL hosts the
// auxiliary widget endpoints (rating, contact, remote settings).
func New(endpoint, baseURL, widgetKey string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{},
		endpoint:   endpoint,
		baseURL:    strings.TrimRight(baseURL, "/"),
		widgetKey:  widgetKey,
		logger:     logger.With("component", "transport"),
	}
}

// streamURL appends the stream-request marker to the endpoint, honoring
// an existing query string.
func streamURL(endpoint string) string {
	if strings.Contains(endpoint, "?") {
		return endpoint + "&stream=1"
	}
	return endpoint + "?stream=1"
}

// Dispatch sends one message. A transport-level failure (connection
// refused, DNS, timeout) returns an error; application-level failures
// come back as Reply values on the Exchange.
func (c *Client) Dispatch(ctx context.Context, msg OutboundMessage) (*Exchange, error) {
	payload := struct {
		WidgetKey string `json:"widgetKey"`
		Message   string `json:"message"`
		SessionID string `json:"sessionId"`
		Language  string `json:"language"`
	}{
		WidgetKey: c.widgetKey,
		Message:   msg.Text,
		SessionID: msg.SessionID,
		Language:  msg.Language,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, streamURL(c.endpoint), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending message: %w", err)
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if ok && strings.Contains(contentType, "text/event-stream") {
		return &Exchange{Streaming: true, body: resp.Body, logger: c.logger}, nil
	}

	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	return &Exchange{Reply: ParseReply(ok, data)}, nil
}

// Stream consumes a streaming exchange, invoking fn for every decoded
// event in order. The body is closed before returning. A read failure
// mid-stream is returned after any already-buffered events were
// delivered; malformed payloads are dropped silently.
func (e *Exchange) Stream(fn func(Event)) error {
	if !e.Streaming || e.body == nil {
		return fmt.Errorf("exchange is not streaming")
	}
	defer e.body.Close()

	return decodeEventStream(e.body, func(raw []byte) {
		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			if e.logger != nil {
				e.logger.Debug("dropping malformed stream payload", "error", err)
			}
			return
		}
		if ev.Type == "" {
			return
		}
		fn(ev)
	})
}
