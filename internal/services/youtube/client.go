package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"songline/internal/services"
)

// Thumbnail is one rendition of a video thumbnail.
type Thumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Video is the subset of a videos.list item songline consumes.
type Video struct {
	ID                   string
	Title                string
	ChannelID            string
	ChannelTitle         string
	Duration             string
	LiveBroadcastContent string
	Thumbnails           map[string]Thumbnail
}

type videoListResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title                string               `json:"title"`
			ChannelID            string               `json:"channelId"`
			ChannelTitle         string               `json:"channelTitle"`
			LiveBroadcastContent string               `json:"liveBroadcastContent"`
			Thumbnails           map[string]Thumbnail `json:"thumbnails"`
		} `json:"snippet"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

// Client queries the YouTube Data API v3.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// New creates a YouTube client.
func New(apiKey, baseURL string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("youtube api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("youtube base url required")
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Video fetches snippet and contentDetails for a single video id. An unknown,
// private, or deleted video yields an error matching services.ErrNotFound.
func (c *Client) Video(ctx context.Context, id string) (*Video, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, services.Wrap(services.ErrValidation, "youtube", "videos.list", "video id must not be empty", nil)
	}
	endpoint, err := url.Parse(c.baseURL + "/videos")
	if err != nil {
		return nil, fmt.Errorf("parse youtube url: %w", err)
	}
	params := url.Values{}
	params.Set("id", id)
	params.Set("part", "snippet,contentDetails")
	params.Set("key", c.apiKey)
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "youtube", "videos.list", fmt.Sprintf("request failed (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp, latency)
	}

	var payload videoListResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, services.Wrap(services.ErrTransient, "youtube", "videos.list", "decode response", err)
	}
	if len(payload.Items) == 0 {
		return nil, services.Wrap(services.ErrNotFound, "youtube", "videos.list", fmt.Sprintf("video %s unavailable", id), nil)
	}
	item := payload.Items[0]
	return &Video{
		ID:                   item.ID,
		Title:                item.Snippet.Title,
		ChannelID:            item.Snippet.ChannelID,
		ChannelTitle:         item.Snippet.ChannelTitle,
		Duration:             item.ContentDetails.Duration,
		LiveBroadcastContent: item.Snippet.LiveBroadcastContent,
		Thumbnails:           item.Snippet.Thumbnails,
	}, nil
}

func statusError(resp *http.Response, latency time.Duration) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var parsed errorResponse
	detail := fmt.Sprintf("status %d (latency=%v)", resp.StatusCode, latency)
	if json.Unmarshal(body, &parsed) == nil && parsed.Error.Message != "" {
		detail += ": " + parsed.Error.Message
	}
	marker := services.ErrTransient
	switch resp.StatusCode {
	case http.StatusBadRequest, http.StatusUnauthorized:
		marker = services.ErrConfiguration
	case http.StatusForbidden:
		for _, e := range parsed.Error.Errors {
			if e.Reason == "keyInvalid" || e.Reason == "accessNotConfigured" {
				marker = services.ErrConfiguration
			}
		}
	case http.StatusNotFound:
		marker = services.ErrNotFound
	}
	return services.Wrap(marker, "youtube", "videos.list", detail, nil)
}

// BestThumbnail returns the highest resolution thumbnail URL available.
func (v *Video) BestThumbnail() string {
	if v == nil {
		return ""
	}
	for _, key := range []string{"maxres", "standard", "high", "medium", "default"} {
		if t, ok := v.Thumbnails[key]; ok && t.URL != "" {
			return t.URL
		}
	}
	best := Thumbnail{}
	for _, t := range v.Thumbnails {
		if t.Width*t.Height > best.Width*best.Height {
			best = t
		}
	}
	return best.URL
}
