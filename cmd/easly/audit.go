package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/shopeasly/easly/internal/easly/app"
	"github.com/shopeasly/easly/internal/easly/store"
)

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the audit log",
	}
	cmd.AddCommand(newAuditTailCmd())
	return cmd
}

func newAuditTailCmd() *cobra.Command {
	var (
		limit   int
		traceID string
	)

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print the most recent audit entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(loadConfig())
			if err != nil {
				return err
			}
			defer a.Stop()

			ctx := context.Background()
			var entries []*store.AuditEntry
			if traceID != "" {
				entries, err = a.Store().GetAuditByTrace(ctx, traceID)
			} else {
				entries, err = a.Store().GetAuditLog(ctx, limit)
			}
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tTRACE\tACTOR\tACTION\tTARGET\tRESULT\tERROR")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					e.Timestamp.Local().Format(time.DateTime),
					e.TraceID, e.Actor, e.Action,
					e.Target.String, e.Result, e.ErrorMessage.String,
				)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of entries to show")
	cmd.Flags().StringVar(&traceID, "trace", "", "Show only the entries of one trace")
	return cmd
}
