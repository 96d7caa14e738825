package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bargain-backend/config"
	"bargain-backend/pkg/logging"
)

type rootOptions struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:          "bargain",
		Short:        "Price negotiation agent for product listings",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			level := cfg.Log.Level
			if opts.verbose {
				level = "debug"
			}
			logger, err := logging.New(level, cfg.Log.Development)
			if err != nil {
				return err
			}
			opts.cfg, opts.logger = cfg, logger
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(
		newServeCmd(opts),
		newTrainCmd(opts),
		newMigrateCmd(opts),
	)
	return rootCmd
}

func (o *rootOptions) mustLoaded() error {
	if o.cfg == nil || o.logger == nil {
		return fmt.Errorf("configuration not loaded")
	}
	return nil
}
