package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/flitapp/flitsync/internal/common"
)

// TokenProvider supplies the current session token. An empty string means
// unauthenticated.
type TokenProvider func(ctx context.Context) string

// Client is the HTTP implementation of API.
type Client struct {
	baseURL string
	http    *http.Client
	token   TokenProvider
}

// NewClient builds a Client against baseURL. A nil token provider sends no
// Authorization header.
func NewClient(baseURL string, timeout time.Duration, token TokenProvider) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		token:   token,
	}
}

func (c *Client) Classify(ctx context.Context, req ClassifyRequest) (*ClassifyResponse, error) {
	var resp ClassifyResponse
	if err := c.call(ctx, http.MethodPost, "/classify", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) CreateCalendarEvent(ctx context.Context, ev CalendarEvent) (*CalendarEvent, error) {
	var resp CalendarEvent
	if err := c.call(ctx, http.MethodPost, "/calendar/events", ev, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) UpdateCalendarEvent(ctx context.Context, ev CalendarEvent) (*CalendarEvent, error) {
	var resp CalendarEvent
	path := "/calendar/events/" + url.PathEscape(ev.ID)
	if err := c.call(ctx, http.MethodPut, path, ev, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) DeleteCalendarEvent(ctx context.Context, eventID string) error {
	path := "/calendar/events/" + url.PathEscape(eventID)
	return c.call(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) GetCalendarEvent(ctx context.Context, eventID string) (*CalendarEvent, error) {
	var resp CalendarEvent
	path := "/calendar/events/" + url.PathEscape(eventID)
	if err := c.call(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) SyncPush(ctx context.Context, req SyncPushRequest) (*SyncPushResponse, error) {
	var resp SyncPushResponse
	if err := c.call(ctx, http.MethodPost, "/sync/push", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) SyncPull(ctx context.Context, req SyncPullRequest) (*SyncPullResponse, error) {
	var resp SyncPullResponse
	if err := c.call(ctx, http.MethodPost, "/sync/pull", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) SendAnalytics(ctx context.Context, req AnalyticsEventsRequest) error {
	return c.call(ctx, http.MethodPost, "/analytics/events", req, nil)
}

// call performs one request and decodes the enveloped response into out.
// A nil out discards the data section.
func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != nil {
		if token := c.token(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrTransientNetwork, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrTransientNetwork, err)
	}

	var env envelope
	// An unparsable body still maps onto the status code below.
	_ = json.Unmarshal(data, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || env.Status != "ok" {
		return mapError(resp.StatusCode, env.Error)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// mapError turns an error response into one of the sentinel errors. The
// backend error code takes precedence over the HTTP status.
func mapError(httpCode int, apiErr *apiError) error {
	code := ""
	message := ""
	if apiErr != nil {
		code = apiErr.Code
		message = apiErr.Message
	}

	var base error
	switch {
	case code == "RATE_LIMITED":
		base = common.ErrRateLimited
	case code == "AI_SERVICE_UNAVAILABLE":
		base = common.ErrServerUnavailable
	case code == "CLASSIFICATION_TIMEOUT":
		base = common.ErrClassificationTimeout
	case code == "TEXT_EMPTY" || code == "TEXT_TOO_LONG" || code == "INVALID_REQUEST":
		base = common.ErrInvalidRequest
	case httpCode == http.StatusUnauthorized:
		base = common.ErrUnauthorized
	case httpCode == http.StatusForbidden:
		base = common.ErrSubscriptionRequired
	case httpCode == http.StatusTooManyRequests:
		base = common.ErrRateLimited
	case httpCode == http.StatusGatewayTimeout:
		base = common.ErrClassificationTimeout
	case httpCode >= 400 && httpCode < 500:
		base = common.ErrInvalidRequest
	default:
		base = common.ErrServerUnavailable
	}

	if message == "" {
		return fmt.Errorf("%w (http %d)", base, httpCode)
	}
	return fmt.Errorf("%w (http %d): %s", base, httpCode, message)
}
