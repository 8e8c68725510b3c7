package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"songline/internal/api"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var login, displayName, priority string
	var bypass bool
	cmd := &cobra.Command{
		Use:   "submit <link>",
		Short: "Submit a song request on behalf of a viewer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(login) == "" {
				return fmt.Errorf("--login is required")
			}
			return ctx.withClient(func(client *api.Client) error {
				resp, err := client.Submit(cmd.Context(), api.SubmitRequest{
					Reference:   args[0],
					Login:       login,
					DisplayName: displayName,
					Priority:    priority,
					Bypass:      bypass,
				})
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
	}
	cmd.Flags().StringVarP(&login, "login", "l", "", "Requester login")
	cmd.Flags().StringVar(&displayName, "display-name", "", "Requester display name")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "Priority class (standard or elevated)")
	cmd.Flags().BoolVar(&bypass, "bypass", false, "Skip the outstanding-request and duration checks")
	return cmd
}

func printSubmitResponse(cmd *cobra.Command, resp *api.SubmitResponse) {
	out := cmd.OutOrStdout()
	if !resp.Accepted {
		fmt.Fprintf(out, "Declined (%s): %s\n", resp.Reason, resp.Message)
		return
	}
	if resp.Request != nil {
		fmt.Fprintf(out, "Queued #%d: %s - %s [%s] for %s\n",
			resp.Position, resp.Request.Artist, resp.Request.Title, resp.Request.Duration, resp.Request.Requester.Login)
		fmt.Fprintf(out, "Request id: %s\n", resp.Request.ID)
	} else {
		fmt.Fprintf(out, "Queued #%d\n", resp.Position)
	}
	if resp.Warning != "" {
		fmt.Fprintf(out, "Warning: %s\n", resp.Warning)
	}
}

func newMatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "match <link>",
		Short: "Resolve a link and preview its catalog match without queueing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				preview, err := client.Match(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, preview)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Video:    %s\n", preview.VideoID)
				fmt.Fprintf(out, "Title:    %s\n", preview.Title)
				fmt.Fprintf(out, "Artist:   %s\n", preview.Artist)
				fmt.Fprintf(out, "Duration: %s\n", preview.Duration)
				if len(preview.Queries) > 0 {
					fmt.Fprintln(out, "Queries:")
					for _, q := range preview.Queries {
						fmt.Fprintf(out, "  %s\n", q)
					}
				}
				if preview.Match == nil {
					fmt.Fprintln(out, "Match:    none")
					return nil
				}
				fmt.Fprintf(out, "Match:    %s - %s (score %.2f)\n",
					strings.Join(preview.Match.Performers, ", "), preview.Match.Name, preview.Match.Score)
				if preview.Match.URL != "" {
					fmt.Fprintf(out, "Link:     %s\n", preview.Match.URL)
				}
				return nil
			})
		},
	}
}
