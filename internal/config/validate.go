package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateYouTube(); err != nil {
		return err
	}
	if err := c.validateSpotify(); err != nil {
		return err
	}
	if err := c.validateTwitch(); err != nil {
		return err
	}
	if err := c.validateLimits(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return ensurePositiveMap(map[string]int{
		"youtube.timeout_seconds":          c.YouTube.TimeoutSeconds,
		"notifications.request_timeout":    c.Notifications.RequestTimeout,
		"realtime.publish_timeout_seconds": c.Realtime.PublishTimeoutSeconds,
	})
}

func (c *Config) validateYouTube() error {
	if c.YouTube.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("youtube.api_key is required. Set YOUTUBE_API_KEY env var or edit %s (create with 'songline config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateSpotify() error {
	if !c.Spotify.Enabled {
		return nil
	}
	if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" {
		return errors.New("spotify.client_id and spotify.client_secret must be set when spotify.enabled is true (or set SPOTIFY_CLIENT_ID/SPOTIFY_CLIENT_SECRET)")
	}
	if c.Spotify.ResultsPerQuery < 1 || c.Spotify.ResultsPerQuery > 50 {
		return errors.New("spotify.results_per_query must be between 1 and 50")
	}
	return ensurePositiveMap(map[string]int{
		"spotify.search_concurrency":    c.Spotify.SearchConcurrency,
		"spotify.match_timeout_seconds": c.Spotify.MatchTimeoutSeconds,
	})
}

func (c *Config) validateTwitch() error {
	if !c.Twitch.Enabled {
		return nil
	}
	if c.Twitch.ClientID == "" || c.Twitch.ClientSecret == "" {
		return errors.New("twitch.client_id and twitch.client_secret must be set when twitch.enabled is true")
	}
	return nil
}

func (c *Config) validateLimits() error {
	if c.Limits.StandardMaxSeconds <= 0 {
		return errors.New("limits.standard_max_seconds must be positive")
	}
	if c.Limits.ElevatedMaxSeconds <= 0 {
		return errors.New("limits.elevated_max_seconds must be positive")
	}
	if c.Limits.ElevatedMinAmount < 0 {
		return errors.New("limits.elevated_min_amount must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

// RealtimeEnabled reports whether overlay events should be published to Redis.
func (c *Config) RealtimeEnabled() bool {
	return strings.TrimSpace(c.Realtime.RedisURL) != ""
}
