package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"songline/internal/api"
	"songline/internal/config"
	"songline/internal/preflight"
	"songline/internal/queue"
)

const pollInterval = 200 * time.Millisecond

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	ConfigPath string
	LogLevel   string
}

type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
)

// StartResult captures daemon start orchestration state.
type StartResult struct {
	State  StartState
	PID    int
	Status *api.DaemonStatus
}

// ErrDaemonNotRunning indicates the daemon API is unreachable and no pid is
// recorded.
var ErrDaemonNotRunning = errors.New("daemon not running")

// Client returns an API client for the daemon described by cfg.
func Client(cfg *config.Config) *api.Client {
	return api.NewClient(cfg.APIBaseURL(),
		api.WithToken(cfg.Paths.APIToken),
		api.WithTimeout(5*time.Second),
	)
}

// Launch starts a detached songline daemon process.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}

	args := []string{"daemon"}
	if cfg := strings.TrimSpace(opts.ConfigPath); cfg != "" {
		args = append(args, "--config", cfg)
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		args = append(args, "--log-level", level)
	}

	proc := exec.Command(executablePath, args...)
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

// WaitForReady polls the status endpoint until the daemon reports running.
func WaitForReady(ctx context.Context, client *api.Client, timeout time.Duration) (*api.DaemonStatus, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		status, err := client.Status(ctx)
		if err == nil && status.Running {
			return status, nil
		}
		if err != nil {
			lastErr = err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for daemon")
	}
	return nil, fmt.Errorf("daemon failed to start: %w", lastErr)
}

// EnsureStarted launches the daemon unless one already answers on the
// configured API address.
func EnsureStarted(ctx context.Context, cfg *config.Config, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	client := Client(cfg)
	if status, err := client.Status(ctx); err == nil && status.Running {
		return StartResult{State: StartStateAlreadyRunning, PID: status.PID, Status: status}, nil
	}
	if err := Launch(executablePath, opts); err != nil {
		return StartResult{}, err
	}
	status, err := WaitForReady(ctx, client, waitTimeout)
	if err != nil {
		return StartResult{}, err
	}
	return StartResult{State: StartStateStarted, PID: status.PID, Status: status}, nil
}

// WaitForShutdown waits for the daemon API to stop answering.
func WaitForShutdown(ctx context.Context, client *api.Client, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if _, err := client.Status(ctx); err != nil && isDaemonUnavailable(err) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
	return fmt.Errorf("daemon did not stop within %s", timeout)
}

// ReadPID returns the pid recorded by a running daemon.
func ReadPID(cfg *config.Config) (int, error) {
	data, err := os.ReadFile(cfg.PIDPath())
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid file %s", cfg.PIDPath())
	}
	return pid, nil
}

// StopResult captures daemon stop/termination outcome.
type StopResult struct {
	PID        int
	ForcedKill bool
}

// RestartResult captures stop/start outcomes for daemon restart.
type RestartResult struct {
	WasRunning bool
	Stop       StopResult
	Start      StartResult
}

// Stop sends SIGTERM to the daemon and force-kills it if the API still
// answers after gracePeriod.
func Stop(ctx context.Context, cfg *config.Config, gracePeriod time.Duration) (StopResult, error) {
	client := Client(cfg)
	pid := 0
	if status, err := client.Status(ctx); err == nil {
		pid = status.PID
	} else if !isDaemonUnavailable(err) {
		return StopResult{}, err
	}
	if pid == 0 {
		recorded, err := ReadPID(cfg)
		if err != nil {
			return StopResult{}, ErrDaemonNotRunning
		}
		pid = recorded
	}
	if pid == os.Getpid() {
		return StopResult{}, fmt.Errorf("refusing to signal current process (pid %d)", pid)
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return StopResult{}, fmt.Errorf("locate daemon process %d: %w", pid, err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			_ = os.Remove(cfg.PIDPath())
			return StopResult{}, ErrDaemonNotRunning
		}
		return StopResult{}, fmt.Errorf("signal daemon process %d: %w", pid, err)
	}

	result := StopResult{PID: pid}
	if err := WaitForShutdown(ctx, client, gracePeriod); err == nil {
		return result, nil
	}
	killed, err := ForceKillProcess(cfg, pid)
	if err != nil {
		return result, fmt.Errorf("failed to stop daemon process: %w", err)
	}
	result.ForcedKill = true
	result.PID = killed
	return result, nil
}

// ForceKillProcess sends SIGKILL to the daemon and cleans its pid and lock
// files.
func ForceKillProcess(cfg *config.Config, pid int) (int, error) {
	if pid <= 0 {
		return 0, fmt.Errorf("unable to determine daemon pid (pid file: %s)", cfg.PIDPath())
	}
	if pid == os.Getpid() {
		return 0, fmt.Errorf("refusing to kill current process (pid %d)", pid)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, fmt.Errorf("locate daemon process %d: %w", pid, err)
	}
	if err := proc.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return 0, fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	if err := os.Remove(cfg.PIDPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("remove pid file %q: %w", cfg.PIDPath(), err)
	}
	_ = os.Remove(cfg.LockPath())
	return pid, nil
}

// Restart stops the daemon if running, then ensures it is started.
func Restart(ctx context.Context, cfg *config.Config, executablePath string, opts LaunchOptions, stopGracePeriod, startWaitTimeout time.Duration) (RestartResult, error) {
	stopResult, stopErr := Stop(ctx, cfg, stopGracePeriod)
	if stopErr != nil && !errors.Is(stopErr, ErrDaemonNotRunning) {
		return RestartResult{}, stopErr
	}
	startResult, err := EnsureStarted(ctx, cfg, executablePath, opts, startWaitTimeout)
	if err != nil {
		return RestartResult{}, err
	}
	return RestartResult{WasRunning: stopErr == nil, Stop: stopResult, Start: startResult}, nil
}

// StatusLine is one rendered row of the status report.
type StatusLine struct {
	Label    string
	Severity string
	Detail   string
}

// Snapshot is the status report the CLI renders.
type Snapshot struct {
	Running bool
	Remote  *api.DaemonStatus
	Counts  map[string]int
	Lines   []StatusLine
	Checks  []preflight.Result
}

// BuildStatusSnapshot asks the daemon for its status and falls back to the
// database for request counts when it is not running.
func BuildStatusSnapshot(ctx context.Context, cfg *config.Config, withPreflight bool) (*Snapshot, error) {
	if cfg == nil {
		return nil, errors.New("configuration not available")
	}
	snap := &Snapshot{Counts: map[string]int{}}

	if status, err := Client(cfg).Status(ctx); err == nil {
		snap.Running = status.Running
		snap.Remote = status
		snap.Counts = status.Counts
	} else if !isDaemonUnavailable(err) && !errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}

	if !snap.Running {
		queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if store, err := queue.Open(cfg); err == nil {
			if counts, err := store.Counts(queryCtx); err == nil {
				snap.Counts = api.MergeQueueStats(counts)
			}
			_ = store.Close()
		}
	}

	snap.Lines = BuildSystemChecks(cfg, snap.Remote)
	if withPreflight {
		snap.Checks = preflight.RunAll(ctx, cfg)
	}
	return snap, nil
}

// BuildSystemChecks resolves status lines that combine runtime state and
// config.
func BuildSystemChecks(cfg *config.Config, remote *api.DaemonStatus) []StatusLine {
	lines := make([]StatusLine, 0, 6)
	if remote != nil && remote.Running {
		lines = append(lines, StatusLine{Label: "Songline", Severity: "ok", Detail: fmt.Sprintf("Running (pid %d, %s)", remote.PID, cfg.APIBaseURL())})
		active := "None"
		if remote.Active != nil {
			active = fmt.Sprintf("%s - %s", remote.Active.Artist, remote.Active.Title)
		}
		lines = append(lines, StatusLine{Label: "Now Playing", Severity: "info", Detail: active})
		lines = append(lines, StatusLine{Label: "Queue", Severity: "info", Detail: fmt.Sprintf("%d waiting", remote.QueueLength)})
	} else {
		lines = append(lines, StatusLine{Label: "Songline", Severity: "warn", Detail: "Not running (run `songline start`)"})
	}

	lines = append(lines, toggleLine("Catalog Matching", cfg.Spotify.Enabled))
	lines = append(lines, toggleLine("Viewer Directory", cfg.Twitch.Enabled))
	lines = append(lines, toggleLine("Realtime", cfg.RealtimeEnabled()))

	if strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
		lines = append(lines, StatusLine{Label: "Notifications", Severity: "ok", Detail: "Configured"})
	} else {
		lines = append(lines, StatusLine{Label: "Notifications", Severity: "info", Detail: "Not configured"})
	}
	if cfg.Paths.APIToken == "" {
		lines = append(lines, StatusLine{Label: "API Auth", Severity: "warn", Detail: "No token (api is open to anyone who can reach the bind address)"})
	} else {
		lines = append(lines, StatusLine{Label: "API Auth", Severity: "ok", Detail: "Bearer token required"})
	}
	return lines
}

func toggleLine(label string, enabled bool) StatusLine {
	if enabled {
		return StatusLine{Label: label, Severity: "ok", Detail: "Enabled"}
	}
	return StatusLine{Label: label, Severity: "info", Detail: "Disabled"}
}

func isDaemonUnavailable(err error) bool {
	return os.IsNotExist(err) ||
		errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, syscall.ENOENT) ||
		errors.Is(err, syscall.ECONNREFUSED)
}
