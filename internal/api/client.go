package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"songline/internal/services"
)

// Error is a non-2xx daemon response.
type Error struct {
	Status  int
	Message string
	Kind    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("daemon returned %d", e.Status)
	}
	return fmt.Sprintf("daemon returned %d: %s", e.Status, e.Message)
}

// Unwrap maps the error kind back to its services marker so callers can use
// errors.Is(err, services.ErrNotFound).
func (e *Error) Unwrap() error {
	switch e.Kind {
	case "validation":
		return services.ErrValidation
	case "policy":
		return services.ErrPolicy
	case "not_found":
		return services.ErrNotFound
	case "persistence":
		return services.ErrPersistence
	case "configuration":
		return services.ErrConfiguration
	case "timeout":
		return services.ErrTimeout
	case "transient":
		return services.ErrTransient
	}
	if e.Status == http.StatusNotFound {
		return services.ErrNotFound
	}
	return nil
}

// Client calls the daemon HTTP API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithToken sets the bearer token sent on every call.
func WithToken(token string) ClientOption {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithTimeout sets the per-call timeout of the default HTTP client.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d}
		}
	}
}

// NewClient builds a client for the daemon at baseURL, for example
// http://127.0.0.1:7491.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the daemon address.
func (c *Client) BaseURL() string { return c.baseURL }

// Status returns daemon runtime information.
func (c *Client) Status(ctx context.Context) (*DaemonStatus, error) {
	return call[DaemonStatus](ctx, c, http.MethodGet, "/api/status", nil)
}

// State returns the live queue, active slot and admin lists.
func (c *Client) State(ctx context.Context) (*StateResponse, error) {
	return call[StateResponse](ctx, c, http.MethodGet, "/api/state", nil)
}

// Submit sends a song request. Declines are returned as a response with
// Accepted false, not as an error.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (*SubmitResponse, error) {
	return c.submit(ctx, "/api/requests", req)
}

// Donate forwards a donation callback.
func (c *Client) Donate(ctx context.Context, req DonationRequest) (*SubmitResponse, error) {
	return c.submit(ctx, "/api/donations", req)
}

func (c *Client) submit(ctx context.Context, path string, body any) (*SubmitResponse, error) {
	var out SubmitResponse
	err := c.do(ctx, http.MethodPost, path, body, &out)
	var apiErr *Error
	if errors.As(err, &apiErr) && out.Reason != "" {
		return &out, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Remove deletes a queued request.
func (c *Client) Remove(ctx context.Context, id string) (*CommandResponse, error) {
	return c.command(ctx, http.MethodDelete, "/api/requests/"+url.PathEscape(id), nil)
}

// MoveToFront moves a queued request to the head of the queue.
func (c *Client) MoveToFront(ctx context.Context, id string) (*CommandResponse, error) {
	return c.command(ctx, http.MethodPost, "/api/requests/"+url.PathEscape(id)+"/front", nil)
}

// EditLink overrides a request's catalog match. An empty link clears it.
func (c *Client) EditLink(ctx context.Context, id, link string) (*CommandResponse, error) {
	return c.command(ctx, http.MethodPut, "/api/requests/"+url.PathEscape(id)+"/link", LinkRequest{URL: link})
}

// Clear removes every queued request.
func (c *Client) Clear(ctx context.Context) (*CommandResponse, error) {
	return c.command(ctx, http.MethodPost, "/api/queue/clear", nil)
}

// Reorder replaces the queue order.
func (c *Client) Reorder(ctx context.Context, ids []string) (*CommandResponse, error) {
	return c.command(ctx, http.MethodPut, "/api/queue/order", ReorderRequest{IDs: ids})
}

// SetActive promotes a queued request. An empty id finishes the active one.
func (c *Client) SetActive(ctx context.Context, id string) (*CommandResponse, error) {
	body := ActiveRequest{}
	if id != "" {
		body.ID = &id
	}
	return c.command(ctx, http.MethodPut, "/api/active", body)
}

// FinishActive archives the active request.
func (c *Client) FinishActive(ctx context.Context) (*CommandResponse, error) {
	return c.command(ctx, http.MethodPost, "/api/active/finish", nil)
}

// Archive lists archived requests, most recent first.
func (c *Client) Archive(ctx context.Context, limit, offset int) (*ArchiveResponse, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	path := "/api/archive"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	return call[ArchiveResponse](ctx, c, http.MethodGet, path, nil)
}

// Requeue copies an archived request back to the head of the queue.
func (c *Client) Requeue(ctx context.Context, id string) (*SubmitResponse, error) {
	return call[SubmitResponse](ctx, c, http.MethodPost, "/api/archive/"+url.PathEscape(id)+"/requeue", nil)
}

// DeleteArchived removes an archive entry.
func (c *Client) DeleteArchived(ctx context.Context, id string) (*CommandResponse, error) {
	return c.command(ctx, http.MethodDelete, "/api/archive/"+url.PathEscape(id), nil)
}

// Blocklist lists blocked logins.
func (c *Client) Blocklist(ctx context.Context) (*BlocklistResponse, error) {
	return call[BlocklistResponse](ctx, c, http.MethodGet, "/api/blocklist", nil)
}

// Block adds a login to the blocklist.
func (c *Client) Block(ctx context.Context, login string) (*CommandResponse, error) {
	return c.command(ctx, http.MethodPost, "/api/blocklist/"+url.PathEscape(login), nil)
}

// Unblock removes a login from the blocklist.
func (c *Client) Unblock(ctx context.Context, login string) (*CommandResponse, error) {
	return c.command(ctx, http.MethodDelete, "/api/blocklist/"+url.PathEscape(login), nil)
}

// Filters lists content filters.
func (c *Client) Filters(ctx context.Context) (*FiltersResponse, error) {
	return call[FiltersResponse](ctx, c, http.MethodGet, "/api/filters", nil)
}

// AddFilter adds a content filter.
func (c *Client) AddFilter(ctx context.Context, f ContentFilter) (*CommandResponse, error) {
	return c.command(ctx, http.MethodPost, "/api/filters", f)
}

// RemoveFilter removes a content filter.
func (c *Client) RemoveFilter(ctx context.Context, f ContentFilter) (*CommandResponse, error) {
	return c.command(ctx, http.MethodDelete, "/api/filters", f)
}

// SetCeiling changes the duration ceiling for a priority class.
func (c *Client) SetCeiling(ctx context.Context, class string, seconds int) (*CommandResponse, error) {
	return c.command(ctx, http.MethodPut, "/api/settings/ceilings/"+url.PathEscape(class), CeilingRequest{Seconds: seconds})
}

// Match runs a dry-run resolve and catalog match.
func (c *Client) Match(ctx context.Context, reference string) (*MatchPreview, error) {
	return call[MatchPreview](ctx, c, http.MethodPost, "/api/match", MatchRequest{Reference: reference})
}

// TestNotify sends a test event through the configured sinks.
func (c *Client) TestNotify(ctx context.Context) (*TestNotifyResponse, error) {
	return call[TestNotifyResponse](ctx, c, http.MethodPost, "/api/test-notify", nil)
}

// Logs fetches retained log events after since. With follow set the daemon
// holds the call open until an event arrives.
func (c *Client) Logs(ctx context.Context, since uint64, limit int, follow bool) (*LogStreamResponse, error) {
	q := url.Values{}
	q.Set("since", strconv.FormatUint(since, 10))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if follow {
		q.Set("follow", "1")
	}
	return call[LogStreamResponse](ctx, c, http.MethodGet, "/api/logs?"+q.Encode(), nil)
}

func (c *Client) command(ctx context.Context, method, path string, body any) (*CommandResponse, error) {
	return call[CommandResponse](ctx, c, method, path, body)
}

func call[T any](ctx context.Context, c *Client, method, path string, body any) (*T, error) {
	var out T
	if err := c.do(ctx, method, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do performs one call. On a non-2xx status the body is decoded into out as
// well as into the returned *Error, so callers can inspect structured
// declines.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Status: resp.StatusCode}
		var payload ErrorResponse
		if json.Unmarshal(data, &payload) == nil {
			apiErr.Message = payload.Error
			apiErr.Kind = payload.Kind
		}
		if apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		if out != nil {
			_ = json.Unmarshal(data, out)
		}
		return apiErr
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
