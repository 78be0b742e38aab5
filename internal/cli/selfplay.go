package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/brensch/rensa/executor/policy"
	"github.com/brensch/rensa/executor/selfplay"
	"github.com/brensch/rensa/rules"
	"github.com/brensch/rensa/store"
)

var (
	spWorkers       int
	spGames         int
	spOutDir        string
	spGamesPerFlush int
	spThink         time.Duration
	spMaxTurns      int
	spSeed          int64
	spTUI           bool
	spTrace         bool
	spWrittenLog    string
	spStrategy      string
	spOpponent      string
)

var selfplayCmd = &cobra.Command{
	Use:   "selfplay",
	Short: "Play the engine against itself and record the games",
	Long: `Play games between two copies of the engine and write every turn to
Parquet batches under --out-dir.

Games are numbered from 0 and seeded from --seed, so rerunning with the same
seed skips games already listed in the written log.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		logOut := cmd.ErrOrStderr()
		if spTUI {
			if err := os.MkdirAll(spOutDir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
			f, err := os.OpenFile(filepath.Join(spOutDir, "selfplay.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			defer f.Close()
			logOut = f
		}
		log, err := newLogger(logOut)
		if err != nil {
			return err
		}

		logPath := spWrittenLog
		if logPath == "" {
			logPath = filepath.Join(spOutDir, "written_games.log")
		}
		written, err := store.OpenWrittenLog(logPath)
		if err != nil {
			return err
		}
		defer written.Close()

		cfg, err := agentConfig(spThink, 1, spStrategy)
		if err != nil {
			return err
		}
		opponent, err := agentConfig(spThink, 1, spOpponent)
		if err != nil {
			return err
		}
		ro := selfplay.RunOptions{
			Workers: spWorkers,
			Games:   spGames,
			Game: selfplay.Options{
				Seed:     spSeed,
				MaxTurns: spMaxTurns,
				Configs:  [2]policy.Config{cfg, opponent},
				Pieces:   rules.DefaultPieceSettings,
				Log:      log,
			},
			Skip:        written.Has,
			TraceWorker: spTrace,
		}
		log.Info().
			Int("workers", spWorkers).
			Int("games", spGames).
			Int64("seed", spSeed).
			Stringer("strategy", cfg.Strategy).
			Stringer("opponent", opponent.Strategy).
			Str("out-dir", spOutDir).
			Int("already-written", written.Count()).
			Msg("selfplay-start")

		var counters selfplay.Counters
		updates := make(chan selfplay.GameResult, spWorkers)

		var program *tea.Program
		if spTUI {
			program = tea.NewProgram(newProgressModel(&counters, spGames, updates), tea.WithContext(ctx))
		}

		done := make(chan error, 1)
		go func() {
			done <- runSelfplay(ctx, ro, &counters, written, updates, log)
			close(updates)
		}()

		if program != nil {
			if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				cancel()
				<-done
				return fmt.Errorf("tui: %w", err)
			}
			// Quitting the UI stops the run; finished games are still flushed.
			cancel()
		}

		var logged <-chan struct{}
		if program == nil {
			logged = logFinished(updates, log)
		}
		err = <-done
		if logged != nil {
			<-logged
		}
		if errors.Is(err, context.Canceled) {
			log.Info().Int64("games", counters.Games.Load()).Msg("selfplay-stopped")
			return nil
		}
		return err
	},
}

func init() {
	selfplayCmd.Flags().IntVar(&spWorkers, "workers", getEnvIntOrDefault("WORKERS", 4), "Number of concurrent games")
	selfplayCmd.Flags().IntVar(&spGames, "games", getEnvIntOrDefault("GAMES", 100), "Number of games to play")
	selfplayCmd.Flags().StringVar(&spOutDir, "out-dir", getEnvOrDefault("OUT_DIR", "data/selfplay"), "Directory for parquet batches")
	selfplayCmd.Flags().IntVar(&spGamesPerFlush, "games-per-flush", getEnvIntOrDefault("GAMES_PER_FLUSH", 50), "Games buffered per parquet file")
	selfplayCmd.Flags().DurationVar(&spThink, "think", getEnvDurationOrDefault("THINK", 200*time.Millisecond), "Main chain search time per move")
	selfplayCmd.Flags().IntVar(&spMaxTurns, "max-turns", getEnvIntOrDefault("MAX_TURNS", 200), "Turns before a game is called a draw")
	selfplayCmd.Flags().Int64Var(&spSeed, "seed", getEnvInt64OrDefault("SEED", 1), "Run seed")
	selfplayCmd.Flags().BoolVar(&spTUI, "tui", getEnvBoolOrDefault("TUI", false), "Show a progress UI; logs go to <out-dir>/selfplay.log")
	selfplayCmd.Flags().BoolVar(&spTrace, "trace", getEnvBoolOrDefault("TRACE", false), "Trace boards of the first worker at debug level")
	selfplayCmd.Flags().StringVar(&spStrategy, "strategy", getEnvOrDefault("STRATEGY", policy.ChainStrategy.String()), "Strategy of side 0 (chain, charge)")
	selfplayCmd.Flags().StringVar(&spOpponent, "opponent", getEnvOrDefault("OPPONENT", policy.ChainStrategy.String()), "Strategy of side 1 (chain, charge)")
	selfplayCmd.Flags().StringVar(&spWrittenLog, "written-log", getEnvOrDefault("WRITTEN_LOG", ""), "Log of written game IDs (default <out-dir>/written_games.log)")
}

// logFinished logs every result from updates. The returned channel closes
// once updates is closed and drained.
func logFinished(updates <-chan selfplay.GameResult, log zerolog.Logger) <-chan struct{} {
	logged := make(chan struct{})
	go func() {
		defer close(logged)
		for res := range updates {
			log.Info().Str("game", res.GameID).Int("winner", res.Winner).Int("turns", res.Turns).Msg("game-finished")
		}
	}()
	return logged
}

// runSelfplay plays the games and owns the single parquet writer.
func runSelfplay(ctx context.Context, ro selfplay.RunOptions, counters *selfplay.Counters, written *store.WrittenLog, updates chan<- selfplay.GameResult, log zerolog.Logger) error {
	finished := make(chan selfplay.Finished, ro.Workers)
	toWriter := make(chan selfplay.Finished, ro.Workers*2)

	writeDone := make(chan error, 1)
	go func() {
		stats, err := selfplay.WriteLoop(spOutDir, spGamesPerFlush, toWriter, written, log)
		log.Info().Int("files", stats.Files).Int("games", stats.Games).Int("rows", stats.Rows).Msg("writer-done")
		writeDone <- err
	}()

	go func() {
		for f := range finished {
			toWriter <- f
			select {
			case updates <- f.Result:
			default:
			}
		}
		close(toWriter)
	}()

	runErr := selfplay.Run(ctx, ro, counters, finished)
	close(finished)
	if err := <-writeDone; err != nil {
		return fmt.Errorf("write batches: %w", err)
	}
	return runErr
}
