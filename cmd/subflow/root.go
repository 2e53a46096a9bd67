package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var envFileFlag string
	var logLevelFlag string

	ctx := newCommandContext(&configFlag, &envFileFlag, &logLevelFlag)

	rootCmd := &cobra.Command{
		Use:           "subflow",
		Short:         "Transcribe, translate, and burn subtitles into videos",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.loadEnvFile(); err != nil {
				return err
			}
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&envFileFlag, "env-file", "", "Load environment variables from a .env file before reading configuration")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Override the configured log level (debug, info, warn, error)")

	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newVideoCommand(ctx))
	rootCmd.AddCommand(newCheckCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newTestNotifyCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
