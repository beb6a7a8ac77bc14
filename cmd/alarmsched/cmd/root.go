package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/workclock/alarmsched/internal/config"
	"github.com/workclock/alarmsched/internal/service/daemon"
	"github.com/workclock/alarmsched/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// databasePath overrides the configured SQLite database file.
	databasePath string

	// rootCmd represents the base command for running the alarm daemon.
	rootCmd = &cobra.Command{
		Use:   "alarmsched",
		Short: "Run the alarm scheduling daemon.",
		Long: `Starts the alarm scheduling daemon that materializes alarm occurrences,
drives them through their notification and firing lifecycle, and keeps the
holiday calendar current from the configured feed.

Alarms, occurrences and fetched holiday years are persisted to a SQLite
database for recovery across restarts. Holiday data is re-evaluated right
before an alarm fires, so feeds ingested after scheduling still suppress
rings that land on a holiday.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &daemon.Options{
				ConfigPath:   configPath,
				DatabasePath: databasePath,
			}

			return daemon.Run(ctx, options)
		},
	}
)

// Execute runs the alarmsched CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().
		StringVarP(&databasePath, "database", "d", "", "path to the SQLite database (overrides config)")
}
