package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chrisdamba/foodatrack/internal/models"
)

var (
	cfgFile string
	v       = viper.New()
	cfg     *models.Config
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "foodatrack",
	Short: "Tracks food delivery orders from placement to doorstep",
	Long: `foodatrack records every status change, courier position and customer request of a
food delivery order, notifies customers as the order moves, and streams changes
to restaurant dashboards and customer apps.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = models.LoadConfig(v, cfgFile)
		if err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}
		logger = newLogger(cfg.LogLevel, cfg.LogFormat)
		slog.SetDefault(logger)
		logger.Debug("configuration loaded", "config", cfg.String())
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./foodatrack.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "debug, info, warn or error")
	rootCmd.PersistentFlags().String("store-driver", "sqlite", "order store: sqlite or postgres")
	rootCmd.PersistentFlags().String("store-dsn", "", "order store connection string")

	cobra.CheckErr(v.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level")))
	cobra.CheckErr(v.BindPFlag("store.driver", rootCmd.PersistentFlags().Lookup("store-driver")))
	cobra.CheckErr(v.BindPFlag("store.dsn", rootCmd.PersistentFlags().Lookup("store-dsn")))

	rootCmd.AddCommand(serveCmd, simulateCmd, migrateCmd, exportCmd)
}

func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
