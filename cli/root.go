// Package cli holds the goodhabits command tree.
package cli

import (
	"fmt"
	"os"

	"goodhabits/config"
	"goodhabits/logger"

	"github.com/spf13/cobra"
)

const defaultConfigFile = "config.json"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "goodhabits",
	Short: "Good Habits - track habits, streaks and milestones",
	Long: `Good Habits is a small habit tracker. Each habit keeps a streak that
grows every time you track it, with a milestone every five days.

Run "goodhabits serve" to start the web application.`,
	PersistentPreRunE: setup,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setup(_ *cobra.Command, _ []string) error {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}
	if err := config.LoadConfig(path); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	return logger.Init(logger.Config{
		Level: config.AppConfig.LogLevel,
		File:  config.AppConfig.LogFile,
	})
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./config.json when present)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(userCmd)
}
