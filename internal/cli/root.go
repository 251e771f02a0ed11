// Package cli implements the coldtrace command-line interface.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/coldtrace/coldtrace/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Database string
	Config   string
	Caller   string // identity performing the operation
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the coldtrace CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "coldtrace",
		Short: "Cold-chain temperature compliance tracker",
		Long: `coldtrace tracks vaccine batches against per-type temperature thresholds.

Readings append to an immutable per-batch ledger; repeated temperature
excursions flag a batch permanently non-compliant.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			cfg, err := config.Load(opts.Config)
			if err != nil {
				return err
			}
			return configureLogging(opts.Verbose, cfg.LogLevel)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Caller, "as", "", "identity performing the operation")

	// Subcommands
	cmd.AddCommand(NewAdminCommand(opts))
	cmd.AddCommand(NewThresholdsCommand(opts))
	cmd.AddCommand(NewBatchCommand(opts))
	cmd.AddCommand(NewReadingCommand(opts))
	cmd.AddCommand(NewProfilesCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// configureLogging routes slog to stderr so JSON output on stdout stays
// machine-readable. The configured level applies unless --verbose forces
// debug.
func configureLogging(verbose bool, levelName string) error {
	level, err := parseLogLevel(levelName)
	if err != nil {
		return err
	}
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
	return nil
}

func parseLogLevel(name string) (slog.Level, error) {
	switch name {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", name)
}
