package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chris/dayplan/config"
	"github.com/chris/dayplan/internal/logger"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "dayplan",
	Short: "Memory-backed daily planning assistant",
	Long: `dayplan asks a language model for a daily study and work plan, using
long-term memories about your goals, preferences and fixed commitments, and
checks the proposed time slots against those commitments.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		return logger.Init(logger.Config{Level: cfg.LogLevel, File: cfg.LogFile})
	},
}

var logLevel string

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides LOG_LEVEL")

	rootCmd.AddCommand(weekCmd, dayCmd, seedCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(serveCmd, botCmd)
	rootCmd.AddCommand(historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
