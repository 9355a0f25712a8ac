package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shopeasly/easly/common/version"
	"github.com/shopeasly/easly/internal/easly/app"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if addr != "" {
				cfg.HTTPAddr = addr
			}
			slog.Info("starting easly", "version", version.Version, "commit", version.GitCommit)

			a, err := app.New(cfg)
			if err != nil {
				return err
			}
			defer a.Stop()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides EASLY_HTTP_ADDR)")
	return cmd
}
