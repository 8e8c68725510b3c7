package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"songline/internal/api"
)

func newActiveCommand(ctx *commandContext) *cobra.Command {
	activeCmd := &cobra.Command{
		Use:   "active",
		Short: "Control the now-playing slot",
	}
	activeCmd.AddCommand(&cobra.Command{
		Use:   "set <id>",
		Short: "Promote a queued request to now playing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runCommand(cmd, func(client *api.Client) (*api.CommandResponse, error) {
				return client.SetActive(cmd.Context(), args[0])
			}, "Now playing "+args[0])
		},
	})
	activeCmd.AddCommand(&cobra.Command{
		Use:   "finish",
		Short: "Archive the now-playing request",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runCommand(cmd, func(client *api.Client) (*api.CommandResponse, error) {
				return client.FinishActive(cmd.Context())
			}, "Finished the active request")
		},
	})
	return activeCmd
}

func newArchiveCommand(ctx *commandContext) *cobra.Command {
	archiveCmd := &cobra.Command{
		Use:   "archive",
		Short: "Browse and manage played requests",
	}

	var limit, offset int
	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List archived requests, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				resp, err := client.Archive(cmd.Context(), limit, offset)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}
				if len(resp.Items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Archive is empty")
					return nil
				}
				rows := make([][]string, 0, len(resp.Items))
				for _, item := range resp.Items {
					rows = append(rows, []string{item.ID, item.Title, item.Artist, requesterLabel(item.Requester), item.ArchivedAt})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Title", "Artist", "Requester", "Archived"}, rows, nil))
				return nil
			})
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 25, "Maximum entries to show")
	listCmd.Flags().IntVar(&offset, "offset", 0, "Entries to skip")
	archiveCmd.AddCommand(listCmd)

	archiveCmd.AddCommand(&cobra.Command{
		Use:   "requeue <id>",
		Short: "Copy an archived request back to the head of the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				resp, err := client.Requeue(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}
				printSubmitResponse(cmd, resp)
				return nil
			})
		},
	})
	archiveCmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an archive entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runCommand(cmd, func(client *api.Client) (*api.CommandResponse, error) {
				return client.DeleteArchived(cmd.Context(), args[0])
			}, "Deleted "+args[0])
		},
	})
	return archiveCmd
}

func newBlocklistCommand(ctx *commandContext) *cobra.Command {
	blockCmd := &cobra.Command{
		Use:   "blocklist",
		Short: "Manage logins that may not submit requests",
	}
	blockCmd.AddCommand(&cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List blocked logins",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				resp, err := client.Blocklist(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}
				if len(resp.Logins) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No blocked logins")
					return nil
				}
				for _, login := range resp.Logins {
					fmt.Fprintln(cmd.OutOrStdout(), login)
				}
				return nil
			})
		},
	})
	blockCmd.AddCommand(&cobra.Command{
		Use:   "add <login>",
		Short: "Block a login",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runCommand(cmd, func(client *api.Client) (*api.CommandResponse, error) {
				return client.Block(cmd.Context(), args[0])
			}, "Blocked "+strings.ToLower(args[0]))
		},
	})
	blockCmd.AddCommand(&cobra.Command{
		Use:   "remove <login>",
		Short: "Unblock a login",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runCommand(cmd, func(client *api.Client) (*api.CommandResponse, error) {
				return client.Unblock(cmd.Context(), args[0])
			}, "Unblocked "+strings.ToLower(args[0]))
		},
	})
	return blockCmd
}

func newFiltersCommand(ctx *commandContext) *cobra.Command {
	filtersCmd := &cobra.Command{
		Use:   "filters",
		Short: "Manage title, artist and keyword filters",
	}
	filtersCmd.AddCommand(&cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List content filters",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				resp, err := client.Filters(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}
				if len(resp.Filters) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No content filters")
					return nil
				}
				rows := make([][]string, 0, len(resp.Filters))
				for _, f := range resp.Filters {
					rows = append(rows, []string{f.Category, f.Term})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"Category", "Term"}, rows, nil))
				return nil
			})
		},
	})
	filtersCmd.AddCommand(&cobra.Command{
		Use:   "add <title|artist|keyword> <term>",
		Short: "Add a content filter",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := api.ContentFilter{Category: args[0], Term: args[1]}
			return ctx.runCommand(cmd, func(client *api.Client) (*api.CommandResponse, error) {
				return client.AddFilter(cmd.Context(), filter)
			}, fmt.Sprintf("Added %s filter %q", args[0], args[1]))
		},
	})
	filtersCmd.AddCommand(&cobra.Command{
		Use:   "remove <title|artist|keyword> <term>",
		Short: "Remove a content filter",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := api.ContentFilter{Category: args[0], Term: args[1]}
			return ctx.runCommand(cmd, func(client *api.Client) (*api.CommandResponse, error) {
				return client.RemoveFilter(cmd.Context(), filter)
			}, fmt.Sprintf("Removed %s filter %q", args[0], args[1]))
		},
	})
	return filtersCmd
}

func newCeilingCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ceiling <standard|elevated> <seconds>",
		Short: "Set the maximum song length for a priority class",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			seconds, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("seconds must be an integer: %w", err)
			}
			return ctx.runCommand(cmd, func(client *api.Client) (*api.CommandResponse, error) {
				return client.SetCeiling(cmd.Context(), args[0], seconds)
			}, fmt.Sprintf("%s ceiling set to %ds", args[0], seconds))
		},
	}
}

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification through the configured sinks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				resp, err := client.TestNotify(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				switch {
				case resp.Message != "":
					fmt.Fprintln(out, resp.Message)
				case resp.Sent:
					fmt.Fprintln(out, "Test notification sent")
				default:
					fmt.Fprintln(out, "Notification not sent")
				}
				return nil
			})
		},
	}
}
