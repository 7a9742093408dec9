package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

var (
	cfgPath string
	verbose bool
)

// rootCmd is the base command for the tradeaudit CLI
var rootCmd = &cobra.Command{
	Use:   "tradeaudit",
	Short: "Self-health auditor for the trading pipeline",
	Long: `tradeaudit periodically audits the trading pipeline's own health:
upstream provider reachability, monitoring-loop freshness, recurring
data-gap detection, and model-catalog updates.

Examples:
  tradeaudit run
  tradeaudit run --force --format json
  tradeaudit serve --addr :8087`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("tradeaudit - trading pipeline health auditor")
		fmt.Println("Use 'tradeaudit run' for a single pass or 'tradeaudit serve' for periodic audits")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to YAML config (defaults apply when omitted)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	// Accept underscores in flag names; scheduler entries written for the
	// old scripts use them.
	rootCmd.SetGlobalNormalizationFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
}

// setupLogging configures zerolog: pretty console output on a terminal,
// JSON lines otherwise.
func setupLogging() {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Setup failures only; degraded checks never reach here.
		log.Error().Err(err).Msg("tradeaudit failed")
		os.Exit(1)
	}
}
