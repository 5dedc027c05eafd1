package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	logLevel string
	verbose  bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quant",
	Short: "valuepool - 밸류 랭킹 종목풀 백테스터",
	Long: `valuepool Unified CLI

일봉 수집부터 PER 랭킹 종목풀 백테스트, 리포트 출력까지.

Usage:
  go run ./cmd/quant [command]

Examples:
  go run ./cmd/quant db migrate
  go run ./cmd/quant collect all
  go run ./cmd/quant backtest run --strategy strategies/low_pe.yaml
  go run ./cmd/quant backtest run --csv bars.csv --benchmark KPI200
  go run ./cmd/quant api`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug|info|warn|error)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (same as --log-level debug)")
}
