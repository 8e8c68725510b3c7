package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"songline/internal/config"
	"songline/internal/notifications"
	"songline/internal/services"
	"songline/internal/services/spotify"
	"songline/internal/services/twitch"
	"songline/internal/services/youtube"
)

const checkTimeout = 10 * time.Second

// probeVideoID is looked up to prove the API key works. Whether the video
// exists does not matter; a not-found answer still means the key was accepted.
const probeVideoID = "aaaaaaaaaaa"

// CheckYouTube verifies that the Data API accepts the configured key.
func CheckYouTube(ctx context.Context, cfg *config.Config) Result {
	const name = "YouTube Data API"
	if cfg.YouTube.APIKey == "" {
		return Result{Name: name, Detail: "API key missing"}
	}
	client, err := youtube.New(cfg.YouTube.APIKey, cfg.YouTube.BaseURL,
		youtube.WithTimeout(time.Duration(cfg.YouTube.TimeoutSeconds)*time.Second))
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}

	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	if _, err := client.Video(checkCtx, probeVideoID); err != nil && !errors.Is(err, services.ErrNotFound) {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API key accepted"}
}

// CheckSpotify verifies the client credentials by running a one-result search.
func CheckSpotify(ctx context.Context, cfg *config.Config) Result {
	const name = "Spotify catalog"
	client, err := spotify.New(cfg.Spotify.ClientID, cfg.Spotify.ClientSecret,
		spotify.WithBaseURL(cfg.Spotify.BaseURL),
		spotify.WithTokenURL(cfg.Spotify.TokenURL),
		spotify.WithMarket(cfg.Spotify.Market),
	)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}

	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	if err := client.Ping(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "credentials accepted"}
}

// CheckTwitch verifies the Helix app credentials with a known login.
func CheckTwitch(ctx context.Context, cfg *config.Config) Result {
	const name = "Twitch directory"
	client, err := twitch.New(cfg.Twitch.ClientID, cfg.Twitch.ClientSecret,
		twitch.WithBaseURL(cfg.Twitch.BaseURL),
		twitch.WithTokenURL(cfg.Twitch.TokenURL),
	)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}

	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	if _, err := client.User(checkCtx, "twitch"); err != nil && !errors.Is(err, services.ErrNotFound) {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "credentials accepted"}
}

// CheckRedis verifies the realtime pub/sub endpoint answers PING.
func CheckRedis(ctx context.Context, cfg *config.Config) Result {
	const name = "Realtime (Redis)"
	publisher, err := notifications.NewRedisPublisher(cfg.Realtime.RedisURL, cfg.Realtime.ChannelPrefix, cfg.RealtimePublishTimeout())
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	defer publisher.Close()

	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	if err := publisher.Ping(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "PING ok"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (service unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (service unreachable)"
	}
	if errors.Is(err, services.ErrConfiguration) {
		return "credentials rejected: " + err.Error()
	}
	return err.Error()
}
