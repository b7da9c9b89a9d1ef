package main

import (
	"routedesk-service/internal/app"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// runServe serves until SIGINT or SIGTERM.
func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx := cmd.Context()
	srv, err := app.NewServer(ctx, cfg, log)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}
