package cmd

import (
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/chrisdamba/foodatrack/internal/migration"
	"github.com/chrisdamba/foodatrack/internal/models"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Copy orders from one store into another",
	Long: `migrate streams every order from the source store into the destination, normalising
legacy statuses and filling in missing totals and tracking on the way. Orders that
already exist in the destination are skipped, so the command can be re-run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		flags := cmd.Flags()
		fromDriver, _ := flags.GetString("from-driver")
		fromDSN, _ := flags.GetString("from-dsn")
		toDriver, _ := flags.GetString("to-driver")
		toDSN, _ := flags.GetString("to-dsn")
		if toDSN == "" {
			toDriver, toDSN = cfg.Store.Driver, cfg.Store.DSN
		}

		src, err := openStore(ctx, models.StoreConfig{Driver: fromDriver, DSN: fromDSN}, logger)
		if err != nil {
			return err
		}
		defer src.repo.Close()
		dst, err := openStore(ctx, models.StoreConfig{Driver: toDriver, DSN: toDSN}, logger)
		if err != nil {
			return err
		}
		defer dst.repo.Close()

		total, err := src.repo.Count(ctx)
		if err != nil {
			return err
		}
		bar := progressbar.Default(int64(total), "migrating orders")
		res, err := migration.Copy(ctx, src.repo, dst.repo, migration.Options{
			Pricing:  cfg.Pricing,
			Logger:   logger,
			Progress: func() { _ = bar.Add(1) },
		})
		_ = bar.Finish()
		if err != nil {
			return err
		}
		logger.Info("migration finished",
			"copied", res.Copied,
			"duplicates", res.Duplicates,
			"rejected", res.Rejected,
			"coerced", res.Coerced,
		)
		return nil
	},
}

func init() {
	migrateCmd.Flags().String("from-driver", "sqlite", "source store driver")
	migrateCmd.Flags().String("from-dsn", "", "source store connection string")
	migrateCmd.Flags().String("to-driver", "postgres", "destination store driver")
	migrateCmd.Flags().String("to-dsn", "", "destination connection string (default is the configured store)")
	cobra.CheckErr(migrateCmd.MarkFlagRequired("from-dsn"))
}
