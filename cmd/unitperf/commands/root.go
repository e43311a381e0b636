// Package commands wires the CLI surface: one-off recomputes, the scheduler
// daemon, the ops server, and a connectivity check.
package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	env     string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "unitperf",
	Short: "Unit trading-performance diagnostics engine",
	Long: `unitperf computes trading-performance diagnostics for investment units
holding A-share and Hong Kong equities: buy/sell turnover, swing-trade
returns, and trade efficiency.

Usage:
  go run ./cmd/unitperf [command]

Examples:
  go run ./cmd/unitperf update turnover --units 1,2 --begin 2024-01-01
  go run ./cmd/unitperf scheduler start
  go run ./cmd/unitperf serve
  go run ./cmd/unitperf check`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&env, "env", "development", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
