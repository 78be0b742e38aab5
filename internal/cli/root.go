// Package cli implements the rensa command line.
package cli

import (
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/brensch/rensa/executor/policy"
	"github.com/brensch/rensa/logging"
)

var (
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:     "rensa",
	Version: "dev",
	Short:   "Chain-puzzle decision engine",
	Long: `rensa plays a two-player falling-block chain puzzle.

"rensa play" speaks the match runner's stdin/stdout protocol.
"rensa selfplay" plays the engine against itself and records every turn to Parquet.
"rensa stats" summarises recorded games.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

func SetVersion(v string) {
	if v == "" {
		return
	}
	rootCmd.Version = v
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", getEnvOrDefault("LOG_LEVEL", "info"), "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", getEnvOrDefault("LOG_FORMAT", string(logging.Auto)), "Log format (auto, json, pretty)")

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(selfplayCmd)
}

func newLogger(w io.Writer) (zerolog.Logger, error) {
	return logging.New(w, logLevel, logging.Format(logFormat))
}

// agentConfig applies the shared strategy flags to the default config.
func agentConfig(think time.Duration, workers int, strategy string) (policy.Config, error) {
	cfg := policy.DefaultConfig()
	s, err := policy.ParseStrategy(strategy)
	if err != nil {
		return cfg, err
	}
	cfg.Strategy = s
	if think > 0 {
		cfg = cfg.WithThinkTime(think)
	}
	cfg.Workers = workers
	return cfg, nil
}

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}
