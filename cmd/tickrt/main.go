package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tickrt",
	Short: "Deferred call queue and software timer demo host",
	Long: `tickrt hosts the deferred call runtime on a wall-clock tick source:
timers declared in a TOML scenario file are multiplexed onto a single
ticker, and their callbacks are dispatched from the drain loop.`,
}

func main() {
	rootCmd.Version = version

	rootCmd.AddCommand(demoCmd)

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to a scenario TOML file")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug|info|warn|err)")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colorized output")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
