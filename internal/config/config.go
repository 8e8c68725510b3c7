package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// YouTube contains configuration for the YouTube Data API used to resolve links.
type YouTube struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Spotify contains configuration for catalog matching.
type Spotify struct {
	Enabled             bool   `toml:"enabled"`
	ClientID            string `toml:"client_id"`
	ClientSecret        string `toml:"client_secret"`
	BaseURL             string `toml:"base_url"`
	TokenURL            string `toml:"token_url"`
	Market              string `toml:"market"`
	ResultsPerQuery     int    `toml:"results_per_query"`
	SearchConcurrency   int    `toml:"search_concurrency"`
	MatchTimeoutSeconds int    `toml:"match_timeout_seconds"`
}

// Twitch contains configuration for the viewer identity directory.
type Twitch struct {
	Enabled      bool   `toml:"enabled"`
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	BaseURL      string `toml:"base_url"`
	TokenURL     string `toml:"token_url"`
}

// Limits contains request admission limits. Ceilings stored by operators at
// runtime take precedence over these seed values.
type Limits struct {
	StandardMaxSeconds int     `toml:"standard_max_seconds"`
	ElevatedMaxSeconds int     `toml:"elevated_max_seconds"`
	ElevatedMinAmount  float64 `toml:"elevated_min_amount"`
}

// Notifications contains configuration for ntfy operator alerts.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Declines       bool   `toml:"declines"`
	Errors         bool   `toml:"errors"`
}

// Realtime contains configuration for the pub/sub channel overlays subscribe to.
type Realtime struct {
	RedisURL              string `toml:"redis_url"`
	ChannelPrefix         string `toml:"channel_prefix"`
	PublishTimeoutSeconds int    `toml:"publish_timeout_seconds"`
}

// Metrics toggles the Prometheus endpoint on the API server.
type Metrics struct {
	Enabled bool `toml:"enabled"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for songline.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories, API bind address and token
//   - YouTube: link resolution
//   - Spotify: best-effort catalog matching
//   - Twitch: requester display names and avatars
//   - Limits: duration ceilings and the donation threshold for elevated requests
//   - Notifications: ntfy operator alerts
//   - Realtime: Redis pub/sub fanout for overlays
//   - Metrics: Prometheus endpoint
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	YouTube       YouTube       `toml:"youtube"`
	Spotify       Spotify       `toml:"spotify"`
	Twitch        Twitch        `toml:"twitch"`
	Limits        Limits        `toml:"limits"`
	Notifications Notifications `toml:"notifications"`
	Realtime      Realtime      `toml:"realtime"`
	Metrics       Metrics       `toml:"metrics"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("songline.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite file backing the request queue.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "songline.db")
}

// LockPath returns the single-instance lock file used by the daemon.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "songline.lock")
}

// PIDPath returns the file where the running daemon records its process id.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.DataDir, "songline.pid")
}

// APIBaseURL returns the HTTP origin clients use to reach the daemon.
func (c *Config) APIBaseURL() string {
	bind := strings.TrimSpace(c.Paths.APIBind)
	if strings.HasPrefix(bind, ":") {
		bind = "127.0.0.1" + bind
	}
	return "http://" + bind
}

// RealtimePublishTimeout bounds a single pub/sub publish.
func (c *Config) RealtimePublishTimeout() time.Duration {
	return time.Duration(c.Realtime.PublishTimeoutSeconds) * time.Second
}

// MatchTimeout bounds a whole track-matching attempt.
func (c *Config) MatchTimeout() time.Duration {
	return time.Duration(c.Spotify.MatchTimeoutSeconds) * time.Second
}

// YouTubeTimeout bounds a single metadata lookup.
func (c *Config) YouTubeTimeout() time.Duration {
	return time.Duration(c.YouTube.TimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the configuration as TOML. Secrets are masked so the output
// is safe to paste into bug reports.
func (c *Config) Encode() (string, error) {
	masked := *c
	masked.Paths.APIToken = mask(masked.Paths.APIToken)
	masked.YouTube.APIKey = mask(masked.YouTube.APIKey)
	masked.Spotify.ClientSecret = mask(masked.Spotify.ClientSecret)
	masked.Twitch.ClientSecret = mask(masked.Twitch.ClientSecret)
	data, err := toml.Marshal(masked)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return string(data), nil
}

func mask(value string) string {
	if value == "" {
		return ""
	}
	return "********"
}
