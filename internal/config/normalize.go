package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeYouTube()
	c.normalizeSpotify()
	c.normalizeTwitch()
	c.normalizeRealtime()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = envFallback(c.Paths.APIToken, "SONGLINE_API_TOKEN")
	return nil
}

func (c *Config) normalizeYouTube() {
	c.YouTube.APIKey = envFallback(c.YouTube.APIKey, "YOUTUBE_API_KEY")
	c.YouTube.BaseURL = strings.TrimRight(strings.TrimSpace(c.YouTube.BaseURL), "/")
	if c.YouTube.BaseURL == "" {
		c.YouTube.BaseURL = defaultYouTubeBaseURL
	}
	if c.YouTube.TimeoutSeconds == 0 {
		c.YouTube.TimeoutSeconds = defaultYouTubeTimeout
	}
}

func (c *Config) normalizeSpotify() {
	c.Spotify.ClientID = envFallback(c.Spotify.ClientID, "SPOTIFY_CLIENT_ID")
	c.Spotify.ClientSecret = envFallback(c.Spotify.ClientSecret, "SPOTIFY_CLIENT_SECRET")
	c.Spotify.BaseURL = strings.TrimRight(strings.TrimSpace(c.Spotify.BaseURL), "/")
	if c.Spotify.BaseURL == "" {
		c.Spotify.BaseURL = defaultSpotifyBaseURL
	}
	c.Spotify.TokenURL = strings.TrimSpace(c.Spotify.TokenURL)
	if c.Spotify.TokenURL == "" {
		c.Spotify.TokenURL = defaultSpotifyTokenURL
	}
	c.Spotify.Market = strings.ToUpper(strings.TrimSpace(c.Spotify.Market))
	if c.Spotify.ResultsPerQuery == 0 {
		c.Spotify.ResultsPerQuery = defaultSpotifyResults
	}
	if c.Spotify.SearchConcurrency == 0 {
		c.Spotify.SearchConcurrency = defaultSpotifyConcurrency
	}
	if c.Spotify.MatchTimeoutSeconds == 0 {
		c.Spotify.MatchTimeoutSeconds = defaultSpotifyMatchTimeout
	}
}

func (c *Config) normalizeTwitch() {
	c.Twitch.ClientID = envFallback(c.Twitch.ClientID, "TWITCH_CLIENT_ID")
	c.Twitch.ClientSecret = envFallback(c.Twitch.ClientSecret, "TWITCH_CLIENT_SECRET")
	c.Twitch.BaseURL = strings.TrimRight(strings.TrimSpace(c.Twitch.BaseURL), "/")
	if c.Twitch.BaseURL == "" {
		c.Twitch.BaseURL = defaultTwitchBaseURL
	}
	c.Twitch.TokenURL = strings.TrimSpace(c.Twitch.TokenURL)
	if c.Twitch.TokenURL == "" {
		c.Twitch.TokenURL = defaultTwitchTokenURL
	}
}

func (c *Config) normalizeRealtime() {
	c.Realtime.RedisURL = envFallback(c.Realtime.RedisURL, "REDIS_URL")
	c.Realtime.ChannelPrefix = strings.Trim(strings.TrimSpace(c.Realtime.ChannelPrefix), ":")
	if c.Realtime.ChannelPrefix == "" {
		c.Realtime.ChannelPrefix = defaultRealtimeChannelPrefix
	}
	if c.Realtime.PublishTimeoutSeconds == 0 {
		c.Realtime.PublishTimeoutSeconds = defaultRealtimePublish
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func envFallback(current, key string) string {
	current = strings.TrimSpace(current)
	if current != "" {
		return current
	}
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return ""
}
