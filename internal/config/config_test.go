package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"songline/internal/config"
)

func setCredentialEnv(t *testing.T) {
	t.Helper()
	t.Setenv("YOUTUBE_API_KEY", "yt-key")
	t.Setenv("SPOTIFY_CLIENT_ID", "sp-id")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "sp-secret")
}

func TestLoadDefaultConfigUsesEnvKeysAndExpandsPaths(t *testing.T) {
	setCredentialEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "songline")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "songline.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.Paths.APIBind != "127.0.0.1:7491" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.YouTube.APIKey != "yt-key" {
		t.Fatalf("expected YouTube key from env, got %q", cfg.YouTube.APIKey)
	}
	if cfg.Spotify.ClientID != "sp-id" || cfg.Spotify.ClientSecret != "sp-secret" {
		t.Fatalf("expected Spotify credentials from env, got %q/%q", cfg.Spotify.ClientID, cfg.Spotify.ClientSecret)
	}
	if cfg.Limits.StandardMaxSeconds != 300 || cfg.Limits.ElevatedMaxSeconds != 600 {
		t.Fatalf("unexpected default ceilings: %+v", cfg.Limits)
	}
	if cfg.RealtimeEnabled() {
		t.Fatal("expected realtime fanout disabled without redis_url")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "songline.toml")

	type payload struct {
		YouTube struct {
			APIKey  string `toml:"api_key"`
			BaseURL string `toml:"base_url"`
		} `toml:"youtube"`
		Spotify struct {
			Enabled bool `toml:"enabled"`
		} `toml:"spotify"`
		Limits struct {
			StandardMaxSeconds int `toml:"standard_max_seconds"`
		} `toml:"limits"`
		Realtime struct {
			RedisURL      string `toml:"redis_url"`
			ChannelPrefix string `toml:"channel_prefix"`
		} `toml:"realtime"`
	}
	custom := payload{}
	custom.YouTube.APIKey = "abc123"
	custom.YouTube.BaseURL = "https://example.com/yt/"
	custom.Limits.StandardMaxSeconds = 240
	custom.Realtime.RedisURL = "redis://localhost:6379/1"
	custom.Realtime.ChannelPrefix = "stream:"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.YouTube.APIKey != "abc123" {
		t.Fatalf("expected YouTube key from file, got %q", cfg.YouTube.APIKey)
	}
	if cfg.YouTube.BaseURL != "https://example.com/yt" {
		t.Fatalf("expected trimmed base url, got %q", cfg.YouTube.BaseURL)
	}
	if cfg.Limits.StandardMaxSeconds != 240 {
		t.Fatalf("expected standard ceiling 240, got %d", cfg.Limits.StandardMaxSeconds)
	}
	if cfg.Spotify.Enabled {
		t.Fatal("expected spotify disabled by file")
	}
	if !cfg.RealtimeEnabled() || cfg.Realtime.ChannelPrefix != "stream" {
		t.Fatalf("unexpected realtime config: %+v", cfg.Realtime)
	}
}

func TestConfigFileTakesPrecedenceOverEnv(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "songline.toml")
	contents := "[youtube]\napi_key = \"file-key\"\n[spotify]\nenabled = false\n"
	if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("YOUTUBE_API_KEY", "env-key")
	t.Setenv("SONGLINE_API_TOKEN", "env-token")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.YouTube.APIKey != "file-key" {
		t.Errorf("expected file key to win, got %q", cfg.YouTube.APIKey)
	}
	if cfg.Paths.APIToken != "env-token" {
		t.Errorf("expected API token from env, got %q", cfg.Paths.APIToken)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "YOUTUBE_API_KEY") {
		t.Fatalf("sample config missing YouTube key hint: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if !strings.Contains(cfg.Paths.DataDir, "songline") {
		t.Fatalf("expected data dir to contain songline, got %q", cfg.Paths.DataDir)
	}
	if cfg.Limits.ElevatedMaxSeconds != 600 {
		t.Fatalf("unexpected elevated ceiling in sample: %d", cfg.Limits.ElevatedMaxSeconds)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	valid := func() config.Config {
		cfg := config.Default()
		cfg.YouTube.APIKey = "key"
		cfg.Spotify.ClientID = "id"
		cfg.Spotify.ClientSecret = "secret"
		return cfg
	}

	cfg := valid()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults with credentials to validate, got %v", err)
	}

	cfg = valid()
	cfg.YouTube.APIKey = ""
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "youtube.api_key") {
		t.Fatalf("expected youtube key error, got %v", err)
	}

	cfg = valid()
	cfg.Spotify.ClientSecret = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when spotify enabled without secret")
	}

	cfg = valid()
	cfg.Spotify.ResultsPerQuery = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for results_per_query")
	}

	cfg = valid()
	cfg.Limits.StandardMaxSeconds = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero ceiling")
	}

	cfg = valid()
	cfg.Twitch.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when twitch enabled without credentials")
	}

	cfg = valid()
	cfg.Logging.Format = "xml"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unsupported log format")
	}

	cfg = valid()
	cfg.Notifications.RequestTimeout = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-positive request timeout")
	}
}

func TestEncodeMasksSecrets(t *testing.T) {
	cfg := config.Default()
	cfg.YouTube.APIKey = "super-secret"
	cfg.Paths.APIToken = "token"
	out, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if strings.Contains(out, "super-secret") || strings.Contains(out, "= 'token'") {
		t.Fatalf("expected secrets masked, got:\n%s", out)
	}
	if !strings.Contains(out, "standard_max_seconds") {
		t.Fatalf("expected limits in output, got:\n%s", out)
	}
}

func TestAPIBaseURL(t *testing.T) {
	cfg := config.Default()
	if got := cfg.APIBaseURL(); got != "http://127.0.0.1:7491" {
		t.Fatalf("unexpected base url %q", got)
	}
	cfg.Paths.APIBind = ":8080"
	if got := cfg.APIBaseURL(); got != "http://127.0.0.1:8080" {
		t.Fatalf("unexpected base url %q", got)
	}
}
