// Package main is the entry point for the easly shop assistant.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shopeasly/easly/common/environment"
	"github.com/shopeasly/easly/internal/easly/app"
	"github.com/shopeasly/easly/internal/easly/observability"
)

// Global flags.
var (
	envFile string
	dbPath  string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "easly",
		Short: "Shop admin assistant for inventory and orders",
		Long: `Easly answers shop-admin requests in plain language. Deterministic
commands ("add 10 black t-shirts", "mark order ORD-... as shipped") run
directly against the catalog; anything else goes to a bounded tool-using
agent over the configured model providers.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return environment.LoadDotEnv(envFile)
		},
	}

	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional .env file to load")
	root.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (overrides EASLY_DB_PATH)")

	root.AddCommand(newServeCmd())
	root.AddCommand(newAskCmd())
	root.AddCommand(newAuditCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// loadConfig reads the environment, applies flag overrides and configures
// logging.
func loadConfig() *app.Config {
	cfg := app.LoadConfig()
	if dbPath != "" {
		cfg.DatabasePath = dbPath
	}
	observability.Setup(cfg.LogLevel, cfg.LogFormat)
	return cfg
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
