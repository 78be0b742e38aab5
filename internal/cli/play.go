package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/brensch/rensa/executor/policy"
	"github.com/brensch/rensa/protocol"
)

var (
	playName     string
	playSeed     int64
	playThink    time.Duration
	playWorkers  int
	playTurns    int
	playStrategy string
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play one match over stdin/stdout",
	Long: `Play one match against the match runner.

The bot name is printed first. The piece queue is then read once, followed by
one state message per turn, each answered with "<col> <rot>" or "S".
Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := newLogger(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, err := agentConfig(playThink, playWorkers, playStrategy)
		if err != nil {
			return err
		}
		return playMatch(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), cfg, log)
	},
}

func init() {
	playCmd.Flags().StringVar(&playName, "name", getEnvOrDefault("NAME", "rensa"), "Bot name printed before the match")
	playCmd.Flags().Int64Var(&playSeed, "seed", getEnvInt64OrDefault("SEED", 0), "Planner tie-break seed (0 = time based)")
	playCmd.Flags().DurationVar(&playThink, "think", getEnvDurationOrDefault("THINK", 0), "Main chain search time; other searches scale with it (0 = defaults)")
	playCmd.Flags().IntVar(&playWorkers, "workers", getEnvIntOrDefault("WORKERS", 0), "Goroutines per node expansion (0 = GOMAXPROCS)")
	playCmd.Flags().StringVar(&playStrategy, "strategy", getEnvOrDefault("STRATEGY", policy.ChainStrategy.String()), "Strategy outside the forced modes (chain, charge)")
	playCmd.Flags().IntVar(&playTurns, "max-turn", getEnvIntOrDefault("MAX_TURN", protocol.MaxTurn), "Length of the piece queue")
}

func playMatch(ctx context.Context, in io.Reader, out io.Writer, cfg policy.Config, log zerolog.Logger) error {
	if err := protocol.WriteName(out, playName); err != nil {
		return fmt.Errorf("write name: %w", err)
	}

	r := protocol.NewReader(in)
	pieces, err := r.ReadPieces(playTurns)
	if err != nil {
		return fmt.Errorf("read pieces: %w", err)
	}

	seed := playSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	agent := policy.NewAgent(cfg, pieces, rand.New(rand.NewSource(seed)), log)
	log.Info().Int("pieces", len(pieces)).Int64("seed", seed).Msg("match-start")

	for {
		turn, err := r.ReadTurn()
		if errors.Is(err, io.EOF) {
			log.Info().Msg("match-end")
			return nil
		}
		if err != nil {
			return fmt.Errorf("read turn: %w", err)
		}

		act := agent.Decide(ctx, policy.TurnState{
			Turn:      turn.Index,
			Remaining: turn.Remaining(),
			Self:      turn.Self,
			Enemy:     turn.Enemy,
		})
		if err := protocol.WriteAction(out, act); err != nil {
			return err
		}
		log.Debug().
			Int("turn", turn.Index).
			Int("remaining-ms", turn.RemainingMs).
			Stringer("mode", agent.Mode()).
			Stringer("action", act).
			Msg("turn")

		if err := ctx.Err(); err != nil {
			return err
		}
	}
}
