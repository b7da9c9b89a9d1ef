package main

import (
	"fmt"
	"os"

	"routedesk-service/internal/config"
	"routedesk-service/internal/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "routedesk",
	Short: "Delivery routes and telesales back office",
	Long: `Routedesk tracks bottled-gas customers, their consumption cycles and debts,
and plans delivery routes and sales calls around them.

Without a subcommand it starts the HTTP server.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "failed to read .env: %v\n", err)
		}
	},
	RunE: runServe,
}

// setup loads configuration and builds the process logger.
func setup() (config.AppConfig, *zap.Logger, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return cfg, nil, err
	}
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return cfg, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return cfg, log, nil
}
