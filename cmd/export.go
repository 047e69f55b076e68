package cmd

import (
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/chrisdamba/foodatrack/internal/archive"
	"github.com/chrisdamba/foodatrack/internal/cloudwriter"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write orders and their status history to parquet",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sinceFlag, _ := cmd.Flags().GetString("since")
		since, err := parseSince(sinceFlag)
		if err != nil {
			return err
		}

		st, err := openStore(ctx, cfg.Store, logger)
		if err != nil {
			return err
		}
		defer st.repo.Close()

		bar := progressbar.Default(-1, "exporting orders")
		opts := []archive.ExporterOption{archive.WithProgress(func() { _ = bar.Add(1) })}
		if cfg.Archive.Destination == archive.DestinationS3 {
			factory, err := cloudwriter.NewS3WriterFactory(ctx, cfg.Archive.Region)
			if err != nil {
				return err
			}
			opts = append(opts, archive.WithCloudWriterFactory(factory))
		}

		res, err := archive.NewExporter(st.repo, cfg.Archive, logger, opts...).Export(ctx, since)
		_ = bar.Finish()
		if err != nil {
			return err
		}
		logger.Info("export finished", "orders", res.Orders, "status_rows", res.StatusRows)
		for _, f := range res.Files {
			fmt.Println(f)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().String("since", "", "only export orders created after this time (RFC3339 or YYYY-MM-DD)")
	exportCmd.Flags().String("destination", "local", "local or s3")
	exportCmd.Flags().String("path", "archive", "output directory or object prefix")
	exportCmd.Flags().String("bucket", "", "s3 bucket name")
	exportCmd.Flags().String("region", "", "s3 region")
	cobra.CheckErr(v.BindPFlag("archive.destination", exportCmd.Flags().Lookup("destination")))
	cobra.CheckErr(v.BindPFlag("archive.path", exportCmd.Flags().Lookup("path")))
	cobra.CheckErr(v.BindPFlag("archive.bucket_name", exportCmd.Flags().Lookup("bucket")))
	cobra.CheckErr(v.BindPFlag("archive.region", exportCmd.Flags().Lookup("region")))
}

func parseSince(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --since %q: want RFC3339 or YYYY-MM-DD", s)
	}
	return t, nil
}
