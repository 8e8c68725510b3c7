package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"songline/internal/api"
	"songline/internal/logs"
)

// followTimeout must exceed the daemon's long-poll window.
const followTimeout = 40 * time.Second

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var since uint64
	var limit int
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print recent daemon log events",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client := api.NewClient(cfg.APIBaseURL(),
				api.WithToken(cfg.Paths.APIToken),
				api.WithTimeout(followTimeout),
			)
			cursor := since
			wait := false
			for {
				resp, err := client.Logs(cmd.Context(), cursor, limit, wait)
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return nil
					}
					if !wait && errors.Is(err, syscall.ECONNREFUSED) {
						return tailLogFile(cmd, filepath.Join(cfg.Paths.LogDir, "songline.log"), limit, follow)
					}
					return wrapDialError(err, client.BaseURL())
				}
				for _, evt := range resp.Events {
					if err := printLogEvent(cmd, ctx.jsonOutput(), evt); err != nil {
						return err
					}
				}
				if resp.Next > cursor {
					cursor = resp.Next
				}
				if !follow {
					return nil
				}
				wait = true
			}
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep waiting for new events")
	cmd.Flags().Uint64Var(&since, "since", 0, "Only show events after this sequence number")
	cmd.Flags().IntVarP(&limit, "limit", "n", 200, "Maximum events per fetch")
	return cmd
}

// tailLogFile prints the current run log when the daemon API is down.
func tailLogFile(cmd *cobra.Command, path string, limit int, follow bool) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(cmd.ErrOrStderr(), "daemon not reachable; reading %s\n", path)
	lines, pos, err := logs.Last(path, limit)
	if err != nil {
		return err
	}
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
	if !follow {
		return nil
	}
	return logs.Follow(cmd.Context(), path, pos, 500*time.Millisecond, func(line string) {
		fmt.Fprintln(out, line)
	})
}

func printLogEvent(cmd *cobra.Command, asJSON bool, evt api.LogEvent) error {
	if asJSON {
		return writeJSON(cmd, evt)
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), formatLogEvent(evt))
	return err
}

func formatLogEvent(evt api.LogEvent) string {
	var b strings.Builder
	b.WriteString(evt.Timestamp)
	b.WriteByte(' ')
	b.WriteString(strings.ToUpper(evt.Level))
	if evt.Component != "" {
		fmt.Fprintf(&b, " [%s]", evt.Component)
	}
	b.WriteByte(' ')
	b.WriteString(evt.Message)
	writeLogField(&b, "request", evt.RequestID)
	writeLogField(&b, "requester", evt.Requester)
	writeLogField(&b, "correlation", evt.CorrelationID)
	keys := make([]string, 0, len(evt.Fields))
	for key := range evt.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		writeLogField(&b, key, evt.Fields[key])
	}
	return b.String()
}

func writeLogField(w io.StringWriter, key, value string) {
	if value == "" {
		return
	}
	_, _ = w.WriteString(" " + key + "=" + value)
}
