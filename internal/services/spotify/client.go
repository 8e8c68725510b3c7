package spotify

import (
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

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"songline/internal/services"
)

const (
	DefaultBaseURL  = "https://api.spotify.com/v1"
	DefaultTokenURL = "https://accounts.spotify.com/api/token"
)

// Artist is a track performer.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Image is album artwork.
type Image struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Album is the album a track belongs to.
type Album struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	ReleaseDate string  `json:"release_date"`
	Images      []Image `json:"images"`
}

// Track is a catalog search result.
type Track struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Artists      []Artist          `json:"artists"`
	Album        Album             `json:"album"`
	DurationMS   int               `json:"duration_ms"`
	PreviewURL   string            `json:"preview_url"`
	ExternalURLs map[string]string `json:"external_urls"`
}

// ArtistNames returns performer names in catalog order.
func (t Track) ArtistNames() []string {
	out := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		if name := strings.TrimSpace(a.Name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// URL returns the public track link.
func (t Track) URL() string {
	if link := t.ExternalURLs["spotify"]; link != "" {
		return link
	}
	if t.ID == "" {
		return ""
	}
	return "https://open.spotify.com/track/" + t.ID
}

// LargestImage returns the widest album image URL.
func (a Album) LargestImage() string {
	best := Image{}
	for _, img := range a.Images {
		if img.Width >= best.Width {
			best = img
		}
	}
	return best.URL
}

type searchResponse struct {
	Tracks struct {
		Items []Track `json:"items"`
	} `json:"tracks"`
}

// Client calls the Spotify Web API using the client-credentials flow.
type Client struct {
	baseURL    string
	tokenURL   string
	market     string
	timeout    time.Duration
	base       *http.Client
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the transport used for token and API calls.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.base = client
		}
	}
}

// WithBaseURL overrides the API origin (used in tests).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithTokenURL overrides the accounts token endpoint (used in tests).
func WithTokenURL(tokenURL string) Option {
	return func(c *Client) {
		if tokenURL = strings.TrimSpace(tokenURL); tokenURL != "" {
			c.tokenURL = tokenURL
		}
	}
}

// WithMarket restricts search results to a country market.
func WithMarket(market string) Option {
	return func(c *Client) {
		c.market = strings.ToUpper(strings.TrimSpace(market))
	}
}

// New creates a Spotify client. Tokens are fetched lazily and refreshed by
// the oauth2 transport when they expire.
func New(clientID, clientSecret string, opts ...Option) (*Client, error) {
	clientID = strings.TrimSpace(clientID)
	clientSecret = strings.TrimSpace(clientSecret)
	if clientID == "" || clientSecret == "" {
		return nil, errors.New("spotify client id and secret required")
	}
	c := &Client{
		baseURL:  DefaultBaseURL,
		tokenURL: DefaultTokenURL,
		timeout:  10 * time.Second,
		base:     &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}

	creds := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     c.tokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, c.base)
	c.httpClient = creds.Client(tokenCtx)
	c.httpClient.Timeout = c.timeout
	return c, nil
}

// SearchTracks runs a track search and returns up to limit results.
func (c *Client) SearchTracks(ctx context.Context, query string, limit int) ([]Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, services.Wrap(services.ErrValidation, "spotify", "search", "query must not be empty", nil)
	}
	if limit <= 0 {
		limit = 5
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "track")
	params.Set("limit", strconv.Itoa(min(limit, 50)))
	if c.market != "" {
		params.Set("market", c.market)
	}

	var payload searchResponse
	if err := c.get(ctx, "search", "/search?"+params.Encode(), &payload); err != nil {
		return nil, err
	}
	return payload.Tracks.Items, nil
}

// Track fetches a single track by catalog id.
func (c *Client) Track(ctx context.Context, id string) (*Track, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, services.Wrap(services.ErrValidation, "spotify", "track", "id must not be empty", nil)
	}
	path := "/tracks/" + url.PathEscape(id)
	if c.market != "" {
		path += "?market=" + url.QueryEscape(c.market)
	}
	var track Track
	if err := c.get(ctx, "track", path, &track); err != nil {
		return nil, err
	}
	return &track, nil
}

// Ping fetches a token to prove the credentials work.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.SearchTracks(ctx, "test", 1)
	return err
}

func (c *Client) get(ctx context.Context, operation, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil &&
			(retrieveErr.Response.StatusCode == http.StatusBadRequest || retrieveErr.Response.StatusCode == http.StatusUnauthorized) {
			return services.Wrap(services.ErrConfiguration, "spotify", operation, "token request rejected", err)
		}
		return services.Wrap(services.ErrTransient, "spotify", operation, fmt.Sprintf("request failed (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return services.Wrap(services.ErrNotFound, "spotify", operation, "not found", nil)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return services.Wrap(services.ErrConfiguration, "spotify", operation, fmt.Sprintf("status %d", resp.StatusCode), nil)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		detail := fmt.Sprintf("status %d (latency=%v)", resp.StatusCode, latency)
		if retry := resp.Header.Get("Retry-After"); retry != "" {
			detail += " retry-after=" + retry
		}
		if len(body) > 0 {
			detail += ": " + strings.TrimSpace(string(body))
		}
		return services.Wrap(services.ErrTransient, "spotify", operation, detail, nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrTransient, "spotify", operation, "decode response", err)
	}
	return nil
}

// TrackIDFromLink extracts a track id from an open.spotify.com link, a
// spotify:track: URI, or a bare 22-character id.
func TrackIDFromLink(link string) (string, bool) {
	link = strings.TrimSpace(link)
	if link == "" {
		return "", false
	}
	if rest, ok := strings.CutPrefix(link, "spotify:track:"); ok {
		return rest, validID(rest)
	}
	if validID(link) {
		return link, true
	}
	u, err := url.Parse(link)
	if err != nil || !strings.HasSuffix(strings.ToLower(u.Hostname()), "spotify.com") {
		return "", false
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+1 < len(segments); i++ {
		if segments[i] == "track" && validID(segments[i+1]) {
			return segments[i+1], true
		}
	}
	return "", false
}

func validID(id string) bool {
	if len(id) != 22 {
		return false
	}
	for _, r := range id {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}
