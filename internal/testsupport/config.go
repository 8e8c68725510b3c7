package testsupport

import (
	"path/filepath"
	"testing"

	"songline/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test and
// credentials that pass validation. Outbound integrations point nowhere until
// a test overrides them.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.YouTube.APIKey = "test"
	cfg.Spotify.ClientID = "test-client"
	cfg.Spotify.ClientSecret = "test-secret"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithYouTubeBaseURL points the resolver at a test server.
func WithYouTubeBaseURL(url string) ConfigOption {
	return func(c *config.Config) {
		c.YouTube.BaseURL = url
	}
}

// WithSpotifyURLs points the matcher at a test server.
func WithSpotifyURLs(baseURL, tokenURL string) ConfigOption {
	return func(c *config.Config) {
		c.Spotify.Enabled = true
		c.Spotify.BaseURL = baseURL
		c.Spotify.TokenURL = tokenURL
	}
}

// WithoutSpotify disables catalog matching.
func WithoutSpotify() ConfigOption {
	return func(c *config.Config) {
		c.Spotify.Enabled = false
	}
}

// WithAPIToken sets the bearer token required by the daemon API.
func WithAPIToken(token string) ConfigOption {
	return func(c *config.Config) {
		c.Paths.APIToken = token
	}
}

// WithRedisURL enables the realtime publisher.
func WithRedisURL(url string) ConfigOption {
	return func(c *config.Config) {
		c.Realtime.RedisURL = url
	}
}

// WithCeilings overrides the seed duration ceilings.
func WithCeilings(standard, elevated int) ConfigOption {
	return func(c *config.Config) {
		c.Limits.StandardMaxSeconds = standard
		c.Limits.ElevatedMaxSeconds = elevated
	}
}
