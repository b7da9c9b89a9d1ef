package main

import (
	"fmt"
	"os"

	"routedesk-service/internal/app"
	"routedesk-service/internal/config"
	"routedesk-service/internal/service/importer"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	importFile     string
	importGrouping int64
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import customers from a CSV file",
	Long: `Upsert customers from a CSV file, keyed by name. With --grouping the imported
customers are also added to that grouping.`,
	Example: `  routedesk import --file clients.csv
  routedesk import --file north.csv --grouping 3`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer log.Sync()

		if cfg.StorageDriver == config.StorageMemory {
			return fmt.Errorf("import needs STORAGE_DRIVER=%s", config.StoragePostgres)
		}

		f, err := os.Open(importFile)
		if err != nil {
			return err
		}
		defer f.Close()

		ctx := cmd.Context()
		store, closeStore, err := app.OpenStore(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer closeStore()

		var groupingID *int64
		if importGrouping > 0 {
			groupingID = &importGrouping
		}

		rep, err := importer.NewService(store, nil, log).Import(ctx, f, groupingID)
		if err != nil {
			return err
		}

		log.Info(rep.Result.Summary,
			zap.String("run_id", rep.RunID),
			zap.Int("created", rep.Created),
			zap.Int("existing", rep.Existing),
			zap.Int("skipped", rep.Skipped),
			zap.Int("failed", rep.Failed),
			zap.Strings("warnings", rep.Result.Warnings),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVarP(&importFile, "file", "f", "", "CSV file to import")
	importCmd.Flags().Int64VarP(&importGrouping, "grouping", "g", 0, "grouping id to add the customers to")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
