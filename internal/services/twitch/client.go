package twitch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"songline/internal/services"
)

const (
	DefaultBaseURL  = "https://api.twitch.tv/helix"
	DefaultTokenURL = "https://id.twitch.tv/oauth2/token"
)

// User is a Helix user record.
type User struct {
	ID              string `json:"id"`
	Login           string `json:"login"`
	DisplayName     string `json:"display_name"`
	ProfileImageURL string `json:"profile_image_url"`
}

// Client looks up viewer identities through the Helix API with an app
// access token.
type Client struct {
	clientID   string
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*options)

type options struct {
	baseURL  string
	tokenURL string
	base     *http.Client
}

// WithHTTPClient overrides the transport used for token and API calls.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		if client != nil {
			o.base = client
		}
	}
}

// WithBaseURL overrides the Helix origin (used in tests).
func WithBaseURL(baseURL string) Option {
	return func(o *options) {
		if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
			o.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithTokenURL overrides the OAuth token endpoint (used in tests).
func WithTokenURL(tokenURL string) Option {
	return func(o *options) {
		if tokenURL = strings.TrimSpace(tokenURL); tokenURL != "" {
			o.tokenURL = tokenURL
		}
	}
}

// New creates a Twitch client.
func New(clientID, clientSecret string, opts ...Option) (*Client, error) {
	clientID = strings.TrimSpace(clientID)
	clientSecret = strings.TrimSpace(clientSecret)
	if clientID == "" || clientSecret == "" {
		return nil, errors.New("twitch client id and secret required")
	}
	o := options{
		baseURL:  DefaultBaseURL,
		tokenURL: DefaultTokenURL,
		base:     &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(&o)
	}
	creds := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     o.tokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	httpClient := creds.Client(context.WithValue(context.Background(), oauth2.HTTPClient, o.base))
	httpClient.Timeout = 10 * time.Second
	return &Client{clientID: clientID, baseURL: o.baseURL, httpClient: httpClient}, nil
}

// User returns the identity for login. Unknown logins yield an error matching
// services.ErrNotFound.
func (c *Client) User(ctx context.Context, login string) (*User, error) {
	login = strings.ToLower(strings.TrimSpace(login))
	if login == "" {
		return nil, services.Wrap(services.ErrValidation, "twitch", "users", "login must not be empty", nil)
	}
	endpoint := c.baseURL + "/users?" + url.Values{"login": {login}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Client-Id", c.clientID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "twitch", "users", "request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		marker := services.ErrTransient
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest {
			marker = services.ErrConfiguration
		}
		return nil, services.Wrap(marker, "twitch", "users", fmt.Sprintf("status %d", resp.StatusCode), nil)
	}

	var payload struct {
		Data []User `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, services.Wrap(services.ErrTransient, "twitch", "users", "decode response", err)
	}
	if len(payload.Data) == 0 {
		return nil, services.Wrap(services.ErrNotFound, "twitch", "users", fmt.Sprintf("login %s not found", login), nil)
	}
	return &payload.Data[0], nil
}
