// Package cli implements the samples command line.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/makeasinger/samples/internal/config"
	"github.com/makeasinger/samples/internal/logging"
)

// globals are filled by the root command before any subcommand runs
type globals struct {
	cfg       *config.Config
	logLevel  string
	logFormat string
}

// RootCommand creates and returns the root command
func RootCommand() *cobra.Command {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:           "samples",
		Short:         "Sample ingestion and preview pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if g.logLevel != "" {
				cfg.Server.LogLevel = g.logLevel
			}
			if g.logFormat != "" {
				cfg.Server.LogFormat = g.logFormat
			}
			logging.Setup(cfg.Server.LogLevel, cfg.Server.LogFormat)
			g.cfg = cfg
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level (overrides LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&g.logFormat, "log-format", "", "Log format: text, json (overrides LOG_FORMAT)")

	rootCmd.AddCommand(
		ingestCommand(g),
		serveCommand(g),
		workerCommand(g),
		configCommand(g),
	)

	return rootCmd
}

// Execute runs the root command and exits on error
func Execute() {
	if err := RootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}
