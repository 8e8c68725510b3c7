package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"songline/internal/api"
	"songline/internal/textutil"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the request queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(&cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a queued request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runCommand(cmd, func(client *api.Client) (*api.CommandResponse, error) {
				return client.Remove(cmd.Context(), args[0])
			}, "Removed "+args[0])
		},
	})
	queueCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every queued request",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				resp, err := client.Clear(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d request(s)\n", resp.Removed)
				return nil
			})
		},
	})
	queueCmd.AddCommand(&cobra.Command{
		Use:   "reorder <id>...",
		Short: "Replace the queue order with the given ids",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runCommand(cmd, func(client *api.Client) (*api.CommandResponse, error) {
				return client.Reorder(cmd.Context(), args)
			}, "Queue reordered")
		},
	})
	queueCmd.AddCommand(&cobra.Command{
		Use:   "front <id>",
		Short: "Move a queued request to the head of the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runCommand(cmd, func(client *api.Client) (*api.CommandResponse, error) {
				return client.MoveToFront(cmd.Context(), args[0])
			}, "Moved "+args[0]+" to the front")
		},
	})
	queueCmd.AddCommand(&cobra.Command{
		Use:   "link <id> [catalog-url]",
		Short: "Override or clear a request's catalog match",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			link := ""
			if len(args) == 2 {
				link = args[1]
			}
			message := "Match cleared"
			if link != "" {
				message = "Match updated"
			}
			return ctx.runCommand(cmd, func(client *api.Client) (*api.CommandResponse, error) {
				return client.EditLink(cmd.Context(), args[0], link)
			}, message)
		},
	})

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show the active request and the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				state, err := client.State(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, state)
				}
				out := cmd.OutOrStdout()
				if state.Active != nil {
					fmt.Fprintf(out, "Now playing: %s - %s (%s, requested by %s)\n",
						state.Active.Artist, state.Active.Title, state.Active.Duration, state.Active.Requester.Login)
				} else {
					fmt.Fprintln(out, "Now playing: nothing")
				}
				if len(state.Queue) == 0 {
					fmt.Fprintln(out, "Queue is empty")
					return nil
				}
				fmt.Fprint(out, renderTable(requestHeaders(), requestRows(state.Queue), requestAligns()))
				return nil
			})
		},
	}
}

func requestHeaders() []string {
	return []string{"#", "ID", "Title", "Artist", "Length", "Requester", "Priority", "Match"}
}

func requestAligns() []columnAlignment {
	return []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft}
}

func requestRows(items []api.Request) [][]string {
	rows := make([][]string, 0, len(items))
	for i, item := range items {
		position := item.Position
		if position == 0 {
			position = i + 1
		}
		priority := textutil.Title(item.Priority)
		if item.Bypass {
			priority += " (bypass)"
		}
		rows = append(rows, []string{
			strconv.Itoa(position),
			item.ID,
			item.Title,
			item.Artist,
			item.Duration,
			requesterLabel(item.Requester),
			priority,
			yesNo(item.Match != nil),
		})
	}
	return rows
}

func requesterLabel(id api.Identity) string {
	if id.DisplayName != "" && !strings.EqualFold(id.DisplayName, id.Login) {
		return fmt.Sprintf("%s (%s)", id.DisplayName, id.Login)
	}
	return id.Login
}

// runCommand calls an operator command and prints success unless --json is
// set, in which case the raw response is written.
func (c *commandContext) runCommand(cmd *cobra.Command, fn func(*api.Client) (*api.CommandResponse, error), success string) error {
	return c.withClient(func(client *api.Client) error {
		resp, err := fn(client)
		if err != nil {
			return err
		}
		if c.jsonOutput() {
			return writeJSON(cmd, resp)
		}
		out := cmd.OutOrStdout()
		if resp.Changed {
			fmt.Fprintln(out, success)
		} else {
			fmt.Fprintln(out, "Nothing changed")
		}
		if resp.Warning != "" {
			fmt.Fprintf(out, "Warning: %s\n", resp.Warning)
		}
		return nil
	})
}
