package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"

	"github.com/ankunstudio/backoffice/internal/pkg/config"
	"github.com/ankunstudio/backoffice/pkg/logger"
)

// commandContext is shared by every subcommand once the root pre-run has
// loaded the environment.
type commandContext struct {
	cfg      *config.Config
	log      zerolog.Logger
	logLevel string
	lookuper envconfig.Lookuper
}

func newRootCommand() *cobra.Command {
	cc := &commandContext{lookuper: envconfig.OsLookuper()}
	return newRootCommandWith(cc)
}

func newRootCommandWith(cc *commandContext) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "backoffice",
		Short:         "Label back-office credential service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cc.load(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&cc.logLevel, "log-level", "", "Override LOG_LEVEL")

	rootCmd.AddCommand(newServeCommand(cc))
	rootCmd.AddCommand(newMigrateCommand(cc))
	rootCmd.AddCommand(newProbeCommand(cc))
	rootCmd.AddCommand(newLoginCommand(cc))

	return rootCmd
}

func (cc *commandContext) load(cmd *cobra.Command) error {
	cfg, err := config.LoadFrom(cmd.Context(), cc.lookuper)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cc.logLevel != "" {
		cfg.LogLevel = cc.logLevel
	}
	cc.cfg = cfg

	// Logs go to stderr so table and JSON output on stdout stay clean.
	cc.log = logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  logger.PrettyFor(cfg.Env, os.Stderr),
		Output:  os.Stderr,
		Service: "backoffice",
	})
	return nil
}
