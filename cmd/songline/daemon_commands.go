package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"songline/internal/daemonctl"
)

const (
	startWaitTimeout = 10 * time.Second
	stopGracePeriod  = 5 * time.Second
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	var startLogLevel string
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the songline daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}
			result, err := daemonctl.EnsureStarted(cmd.Context(), ctx.configValue(), exe,
				daemonLaunchOptions(ctx, startLogLevel), startWaitTimeout)
			if err != nil {
				return err
			}
			switch result.State {
			case daemonctl.StartStateStarted:
				fmt.Fprintf(stdout, "Daemon started (pid %d)\n", result.PID)
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintf(stdout, "Daemon already running (pid %d)\n", result.PID)
			}
			return nil
		},
	}
	startCmd.Flags().StringVar(&startLogLevel, "log-level", "", "Override logging.level for the launched daemon")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the songline daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.Stop(cmd.Context(), ctx.configValue(), stopGracePeriod)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill {
				fmt.Fprintf(stdout, "Daemon did not exit in time; killed pid %d\n", result.PID)
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	var restartLogLevel string
	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the songline daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}
			result, err := daemonctl.Restart(cmd.Context(), ctx.configValue(), exe,
				daemonLaunchOptions(ctx, restartLogLevel), stopGracePeriod, startWaitTimeout)
			if err != nil {
				return err
			}
			if result.WasRunning {
				if result.Stop.ForcedKill {
					fmt.Fprintf(stdout, "Killed unresponsive daemon (pid %d)\n", result.Stop.PID)
				}
				fmt.Fprintln(stdout, "Daemon stopped")
			}
			fmt.Fprintf(stdout, "Daemon restarted (pid %d)\n", result.Start.PID)
			return nil
		},
	}
	restartCmd.Flags().StringVar(&restartLogLevel, "log-level", "", "Override logging.level for the launched daemon")

	var withPreflight bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, integration and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := daemonctl.BuildStatusSnapshot(cmd.Context(), ctx.configValue(), withPreflight)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, snap)
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("System Status", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range snap.Lines {
				fmt.Fprintln(stdout, renderStatusLine(line.Label, statusKindFromSeverity(line.Severity), line.Detail, colorize))
			}

			if len(snap.Checks) > 0 {
				fmt.Fprintln(stdout)
				for _, line := range renderSectionHeader("Preflight", colorize) {
					fmt.Fprintln(stdout, line)
				}
				for _, check := range snap.Checks {
					kind := statusOK
					if !check.Passed {
						kind = statusError
					}
					fmt.Fprintln(stdout, renderStatusLine(check.Name, kind, check.Detail, colorize))
				}
			}

			fmt.Fprintln(stdout)
			for _, line := range renderSectionHeader("Requests", colorize) {
				fmt.Fprintln(stdout, line)
			}
			rows := buildCountRows(snap.Counts)
			if len(rows) == 0 {
				fmt.Fprintln(stdout, "No requests recorded")
				return nil
			}
			fmt.Fprint(stdout, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
	statusCmd.Flags().BoolVar(&withPreflight, "preflight", false, "Also probe external services and directories")

	return []*cobra.Command{startCmd, stopCmd, restartCmd, statusCmd}
}

func buildCountRows(counts map[string]int) [][]string {
	keys := make([]string, 0, len(counts))
	for key, count := range counts {
		if count > 0 {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{key, strconv.Itoa(counts[key])})
	}
	return rows
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return exe, nil
}

func daemonLaunchOptions(ctx *commandContext, logLevel string) daemonctl.LaunchOptions {
	return daemonctl.LaunchOptions{
		ConfigPath: ctx.configPath(),
		LogLevel:   logLevel,
	}
}
