package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"songline/internal/config"
	"songline/internal/daemon"
	"songline/internal/lifecycle"
	"songline/internal/logging"
	"songline/internal/matching"
	"songline/internal/metadata"
	"songline/internal/metrics"
	"songline/internal/notifications"
	"songline/internal/preflight"
	"songline/internal/queue"
	"songline/internal/services/spotify"
	"songline/internal/services/twitch"
	"songline/internal/services/youtube"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the songline daemon and blocks until SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("songline-%s.log", runID))
	logHub := logging.NewStreamHub(4096)

	logger, err := logging.NewFromConfig(cfg, logging.Options{
		Level:       opts.LogLevel,
		OutputPaths: []string{"stdout", logPath},
		Development: opts.Development,
		Stream:      logHub,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update songline.log link: %v\n", err)
	}
	logging.PruneRunLogs(logger, cfg.Paths.LogDir, "songline-*.log", logPath, cfg.Logging.RetentionDays, time.Now())

	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	for _, result := range preflight.Failed(preflight.RunAll(signalCtx, cfg)) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldImpact, "dependent features degrade until fixed"),
		)
	}

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open request store", logging.Error(err))
		return err
	}

	notifier, err := notifications.NewService(cfg, logger)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("init notifications: %w", err)
	}

	recorder := metrics.New()
	recorder.Registry().MustRegister(metrics.NewStoreCollector(store, logger))

	coord, wired, err := buildCoordinator(cfg, store, notifier, recorder, logger)
	if err != nil {
		_ = notifier.Close()
		_ = store.Close()
		return err
	}

	d, err := daemon.New(cfg, daemon.Deps{
		Store:       store,
		Coordinator: coord,
		Notifier:    notifier,
		Metrics:     recorder,
		Stream:      logHub,
		Logger:      logger,
		Matching:    wired.matching,
		Directory:   wired.directory,
	})
	if err != nil {
		_ = notifier.Close()
		_ = store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the lock file, api bind address, and database access"),
		)
		return err
	}

	<-signalCtx.Done()
	logger.Info("songline daemon shutting down")
	return nil
}

type integrations struct {
	matching  bool
	directory bool
}

func buildCoordinator(cfg *config.Config, store *queue.Store, notifier notifications.Service, recorder *metrics.Recorder, logger *slog.Logger) (*lifecycle.Coordinator, integrations, error) {
	var wired integrations

	videos, err := youtube.New(cfg.YouTube.APIKey, cfg.YouTube.BaseURL,
		youtube.WithTimeout(time.Duration(cfg.YouTube.TimeoutSeconds)*time.Second))
	if err != nil {
		return nil, wired, fmt.Errorf("init youtube client: %w", err)
	}

	opts := []lifecycle.Option{
		lifecycle.WithNotifier(notifier),
		lifecycle.WithMetrics(recorder),
		lifecycle.WithLogger(logger),
		lifecycle.WithCeilings(queue.Ceilings{
			Standard: cfg.Limits.StandardMaxSeconds,
			Elevated: cfg.Limits.ElevatedMaxSeconds,
		}),
	}

	if cfg.Spotify.Enabled {
		catalog, err := spotify.New(cfg.Spotify.ClientID, cfg.Spotify.ClientSecret,
			spotify.WithBaseURL(cfg.Spotify.BaseURL),
			spotify.WithTokenURL(cfg.Spotify.TokenURL),
			spotify.WithMarket(cfg.Spotify.Market),
		)
		if err != nil {
			return nil, wired, fmt.Errorf("init spotify client: %w", err)
		}
		matcher := matching.New(catalog,
			matching.WithResultsPerQuery(cfg.Spotify.ResultsPerQuery),
			matching.WithConcurrency(cfg.Spotify.SearchConcurrency),
			matching.WithTimeout(time.Duration(cfg.Spotify.MatchTimeoutSeconds)*time.Second),
			matching.WithLogger(logger),
		)
		opts = append(opts, lifecycle.WithMatcher(matcher), lifecycle.WithTrackLookup(catalog))
		wired.matching = true
	}

	if cfg.Twitch.Enabled {
		directory, err := twitch.New(cfg.Twitch.ClientID, cfg.Twitch.ClientSecret,
			twitch.WithBaseURL(cfg.Twitch.BaseURL),
			twitch.WithTokenURL(cfg.Twitch.TokenURL),
		)
		if err != nil {
			return nil, wired, fmt.Errorf("init twitch client: %w", err)
		}
		opts = append(opts, lifecycle.WithDirectory(directory))
		wired.directory = true
	}

	logger.Info("integrations configured",
		logging.String(logging.FieldEventType, "integrations_snapshot"),
		logging.Bool("catalog_matching", wired.matching),
		logging.Bool("viewer_directory", wired.directory),
		logging.Bool("realtime", cfg.RealtimeEnabled()),
		logging.Bool("ntfy", cfg.Notifications.NtfyTopic != ""),
		logging.Bool("metrics", cfg.Metrics.Enabled),
		logging.Bool("api_token_set", cfg.Paths.APIToken != ""),
	)

	resolver := metadata.NewResolver(videos, logger)
	return lifecycle.New(store, resolver, opts...), wired, nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "songline.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
