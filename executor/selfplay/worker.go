// Package selfplay pits two policy agents against each other on a shared
// piece queue and records every turn for offline analysis.
package selfplay

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/brensch/rensa/executor/policy"
	"github.com/brensch/rensa/game"
	"github.com/brensch/rensa/internal/clock"
	"github.com/brensch/rensa/rules"
	"github.com/brensch/rensa/store"
)

// Source tags rows written by this package.
const Source = "selfplay"

// DefaultTimeBank matches the match runner's per-player clock.
const DefaultTimeBank = 180 * time.Second

var idSpace = uuid.MustParse("5b0f3c52-6b8e-4a59-9d7e-0d6f4a3c2e11")

// GameID names game index of a run. The same seed and index always give the
// same ID, which lets a restarted run skip finished games.
func GameID(seed int64, index int) string {
	return uuid.NewSHA1(idSpace, fmt.Appendf(nil, "%d/%d", seed, index)).String()
}

// Options configures one game.
type Options struct {
	Seed  int64
	Index int
	// MaxTurns ends the game as a draw when both boards survive.
	MaxTurns int
	// Configs holds one agent configuration per side. Sides must not share a
	// fake clock if their results are expected to be reproducible.
	Configs  [2]policy.Config
	Pieces   rules.PieceSettings
	TimeBank time.Duration
	Log      zerolog.Logger
	// Verbose traces both boards after every turn at debug level.
	Verbose bool
	OnStep  func()
}

// GameResult summarises a finished game.
type GameResult struct {
	GameID string
	// Winner is the winning side, or -1 for a draw.
	Winner    int
	Turns     int
	MaxChains [2]int
	Attack    [2]int
	Replans   [2]int
}

type side struct {
	agent    *policy.Agent
	player   game.Player
	clock    clock.Clock
	timeBank time.Duration
}

func salt(index, stream int) uint64 {
	return uint64(index)<<2 | uint64(stream)
}

// PlayGame plays one game to completion. On cancellation it returns the
// context's error and no rows.
func PlayGame(ctx context.Context, opts Options) ([]store.TurnRow, GameResult, error) {
	gameID := GameID(opts.Seed, opts.Index)
	res := GameResult{GameID: gameID, Winner: -1}
	if opts.MaxTurns <= 0 {
		return nil, res, fmt.Errorf("max turns must be positive, got %d", opts.MaxTurns)
	}
	timeBank := opts.TimeBank
	if timeBank <= 0 {
		timeBank = DefaultTimeBank
	}
	log := opts.Log.With().Str("game", gameID).Logger()

	pieceRNG := rand.New(rand.NewSource(rules.PieceSeed(opts.Seed, salt(opts.Index, 0))))
	pieces := rules.GeneratePieces(pieceRNG, opts.MaxTurns+game.MaxSequence, opts.Pieces)

	var sides [2]*side
	for i := range sides {
		cfg := opts.Configs[i]
		clk := cfg.Clock
		if clk == nil {
			clk = clock.Real{}
		}
		rng := rand.New(rand.NewSource(rules.PieceSeed(opts.Seed, salt(opts.Index, i+1))))
		sides[i] = &side{
			agent:    policy.NewAgent(cfg, pieces, rng, log.With().Int("side", i).Logger()),
			player:   game.NewPlayer(game.Board{}, 0, 0),
			clock:    clk,
			timeBank: timeBank,
		}
	}

	rows := make([]store.TurnRow, 0, opts.MaxTurns+1)
	turn := 0
	for ; turn < opts.MaxTurns; turn++ {
		if err := ctx.Err(); err != nil {
			return nil, res, err
		}
		if rules.IsGameOver(&sides[0].player, &sides[1].player) {
			break
		}

		row := newRow(gameID, opts.Seed, turn, pieces[turn])
		for i, s := range sides {
			row.Players = append(row.Players, playerRow(i, &s.player))
		}

		var actions [2]game.Action
		g, gctx := errgroup.WithContext(ctx)
		for i, s := range sides {
			enemy := sides[1-i].player
			g.Go(func() error {
				start := s.clock.Now()
				actions[i] = s.agent.Decide(gctx, policy.TurnState{
					Turn:      turn,
					Remaining: s.timeBank,
					Self:      s.player,
					Enemy:     enemy,
				})
				s.timeBank = max(0, s.timeBank-s.clock.Now().Sub(start))
				return nil
			})
		}
		_ = g.Wait()
		if err := ctx.Err(); err != nil {
			return nil, res, err
		}

		var results [2]game.ActionResult
		for i, s := range sides {
			a := actions[i]
			if !legal(&s.player, a) {
				log.Warn().Int("turn", turn).Int("side", i).Stringer("action", a).Msg("illegal-action")
				a = policy.SafeDefault
			}
			results[i] = rules.Step(&s.player, pieces[turn], a, 0)

			pr := &row.Players[i]
			pr.Mode = s.agent.Mode().String()
			pr.Action = int32(a)
			pr.Chains = int32(results[i].Chains)
			pr.Attack = int32(results[i].Obstacle)
			res.MaxChains[i] = max(res.MaxChains[i], results[i].Chains)
			res.Attack[i] += results[i].Obstacle
		}
		rules.DeliverAttack(&sides[0].player, &sides[1].player, results[0])
		rules.DeliverAttack(&sides[1].player, &sides[0].player, results[1])
		rows = append(rows, row)

		if opts.Verbose {
			PrintBoard(log, turn, &sides[0].player, &sides[1].player)
		}
		if opts.OnStep != nil {
			opts.OnStep()
		}
	}

	// The terminal position closes every game so readers see how it ended.
	final := newRow(gameID, opts.Seed, turn, game.Piece{})
	for i, s := range sides {
		pr := playerRow(i, &s.player)
		pr.Mode = s.agent.Mode().String()
		pr.Action = -1
		final.Players = append(final.Players, pr)
		res.Replans[i] = s.agent.Replans()
	}
	rows = append(rows, final)

	value := rules.GetResult(&sides[0].player, &sides[1].player)
	switch {
	case value > 0:
		res.Winner = 0
	case value < 0:
		res.Winner = 1
	}
	for i := range rows {
		rows[i].Players[0].Value = value
		rows[i].Players[1].Value = -value
	}
	res.Turns = turn

	log.Info().
		Int("turns", res.Turns).
		Int("winner", res.Winner).
		Ints("max-chains", res.MaxChains[:]).
		Ints("attack", res.Attack[:]).
		Msg("game-done")
	return rows, res, nil
}

func legal(p *game.Player, a game.Action) bool {
	if !a.Valid() {
		return false
	}
	return !a.IsAbility() || p.CanUseAbility()
}

func newRow(gameID string, seed int64, turn int, piece game.Piece) store.TurnRow {
	return store.TurnRow{
		GameID:  gameID,
		Seed:    seed,
		Turn:    int32(turn),
		Width:   game.W,
		Height:  game.H,
		Piece:   []byte{piece[0][0], piece[0][1], piece[1][0], piece[1][1]},
		Players: make([]store.PlayerRow, 0, 2),
		Source:  Source,
	}
}

func playerRow(i int, p *game.Player) store.PlayerRow {
	return store.PlayerRow{
		Side:       int32(i),
		Cells:      p.Board.Grid(),
		Obstacle:   int32(p.Obstacle),
		SkillGauge: int32(p.SkillGauge),
		Dead:       p.IsDead(),
	}
}
