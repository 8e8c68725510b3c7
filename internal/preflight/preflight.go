package preflight

import (
	"context"

	"songline/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}

	if cfg.YouTube.APIKey != "" {
		results = append(results, CheckYouTube(ctx, cfg))
	}
	if cfg.Spotify.Enabled {
		results = append(results, CheckSpotify(ctx, cfg))
	}
	if cfg.Twitch.Enabled {
		results = append(results, CheckTwitch(ctx, cfg))
	}
	if cfg.RealtimeEnabled() {
		results = append(results, CheckRedis(ctx, cfg))
	}
	return results
}

// Failed returns the checks that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
