package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shopeasly/easly/internal/easly/app"
)

func newAskCmd() *cobra.Command {
	var (
		clientID string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "ask <text>",
		Short: "Answer one request without starting the server",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(loadConfig())
			if err != nil {
				return err
			}
			defer a.Stop()

			resp, err := a.Ask(context.Background(), clientID, strings.Join(args, " "))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}
			fmt.Fprintln(out, resp.Text)
			for i, opt := range resp.Options {
				fmt.Fprintf(out, "  %d. %s\n", i+1, opt.Label)
			}
			fmt.Fprintf(out, "(source: %s)\n", resp.Source)
			return nil
		},
	}

	cmd.Flags().StringVar(&clientID, "client", "cli", "Client ID whose session and history to use")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full response as JSON")
	return cmd
}
