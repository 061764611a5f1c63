package commands

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var (
	flagVerbose bool
	flagJSONLog bool
)

var rootCmd = &cobra.Command{
	Use:           "sonigo",
	Short:         "Audio near-duplicate detection tooling",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagJSONLog, "json-log", false, "emit logs as JSON")

	rootCmd.AddCommand(similarCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(planCmd)
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func logLevel() slog.Level {
	if flagVerbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
