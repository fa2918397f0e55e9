// ABOUTME: Auxiliary widget endpoints: rating, contact form, remote settings
// ABOUTME: All keyed by the deployment widget key against the base URL

package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// WidgetSettings are the server-published deployment settings merged over
// the local configuration at startup.
type WidgetSettings struct {
	PlanType         string `json:"planType"`
	WelcomeMessage   string `json:"welcomeMessage"`
	DefaultLanguage  string `json:"defaultLanguage"`
	MaxMessageLength int    `json:"maxMessageLength"`
}

func (c *Client) postJSON(ctx context.Context, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	return nil
}

// PostRating reports a conversation rating ("up" or "down"). Callers
// treat failures as best-effort.
func (c *Client) PostRating(ctx context.Context, sessionID, rating string) error {
	payload := struct {
		WidgetKey string `json:"widgetKey"`
		SessionID string `json:"sessionId"`
		Rating    string `json:"rating"`
	}{c.widgetKey, sessionID, rating}

	return c.postJSON(ctx, c.baseURL+"/api/v1/widget/rating", payload)
}

// PostContact submits the contact fallback form. Name and message are
// sent as null when empty, matching the backend contract.
func (c *Client) PostContact(ctx context.Context, sessionID, name, email, message string) error {
	payload := struct {
		WidgetKey string  `json:"widgetKey"`
		SessionID string  `json:"sessionId"`
		Name      *string `json:"name"`
		Email     string  `json:"email"`
		Message   *string `json:"message"`
	}{c.widgetKey, sessionID, nullable(name), email, nullable(message)}

	return c.postJSON(ctx, c.baseURL+"/api/v1/widget/contact", payload)
}

// FetchWidgetSettings retrieves the server-published settings for this
// deployment. Any failure returns an error; callers keep local defaults.
func (c *Client) FetchWidgetSettings(ctx context.Context) (*WidgetSettings, error) {
	if c.baseURL == "" || c.widgetKey == "" {
		return nil, fmt.Errorf("base URL and widget key required")
	}

	endpoint := c.baseURL + "/api/v1/widget/config/" + url.PathEscape(c.widgetKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching widget settings: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	var payload struct {
		Widget struct {
			Settings WidgetSettings `json:"settings"`
		} `json:"widget"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding widget settings: %w", err)
	}
	return &payload.Widget.Settings, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
