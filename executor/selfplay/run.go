package selfplay

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/brensch/rensa/store"
)

// Finished is one completed game handed from a worker to the writer.
type Finished struct {
	Worker int
	Rows   []store.TurnRow
	Result GameResult
}

// RunOptions configures a batch of games.
type RunOptions struct {
	Workers int
	// Games is the number of game indices to play, starting at 0.
	Games int
	// Game is the template for every game; Index is overwritten.
	Game Options
	// Skip reports game IDs that were already written by an earlier run.
	Skip func(gameID string) bool
	// TraceWorker enables Verbose on the first worker only.
	TraceWorker bool
}

// Counters are updated while a run is in progress.
type Counters struct {
	Turns   atomic.Int64
	Games   atomic.Int64
	Skipped atomic.Int64
}

// Run plays ro.Games games on ro.Workers goroutines and sends each finished
// game to out. It returns once every game is played or ctx is cancelled;
// games cut short by cancellation are dropped. out is not closed.
func Run(ctx context.Context, ro RunOptions, counters *Counters, out chan<- Finished) error {
	if ro.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", ro.Workers)
	}
	if counters == nil {
		counters = &Counters{}
	}

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan int)
	g.Go(func() error {
		defer close(jobs)
		for i := 0; i < ro.Games; i++ {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})

	for w := 0; w < ro.Workers; w++ {
		g.Go(func() error {
			log := ro.Game.Log.With().Int("worker", w).Logger()
			for index := range jobs {
				if ro.Skip != nil && ro.Skip(GameID(ro.Game.Seed, index)) {
					counters.Skipped.Add(1)
					continue
				}
				opts := ro.Game
				opts.Index = index
				opts.Log = log
				opts.Verbose = opts.Verbose || (ro.TraceWorker && w == 0)
				step := opts.OnStep
				opts.OnStep = func() {
					counters.Turns.Add(1)
					if step != nil {
						step()
					}
				}

				rows, res, err := PlayGame(gctx, opts)
				if err != nil {
					if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
						return nil
					}
					return fmt.Errorf("game %d: %w", index, err)
				}
				counters.Games.Add(1)
				select {
				case out <- Finished{Worker: w, Rows: rows, Result: res}:
				case <-gctx.Done():
					return nil
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// WriteStats summarises a writer loop.
type WriteStats struct {
	Files int
	Games int
	Rows  int
}

// WriteLoop buffers finished games from in and flushes them to outDir every
// gamesPerFlush games and once more when in is closed. Written game IDs are
// appended to written when it is non-nil.
func WriteLoop(outDir string, gamesPerFlush int, in <-chan Finished, written *store.WrittenLog, log zerolog.Logger) (WriteStats, error) {
	if gamesPerFlush <= 0 {
		gamesPerFlush = 50
	}

	var (
		stats   WriteStats
		rows    = make([]store.TurnRow, 0, 256*gamesPerFlush)
		ids     = make([]string, 0, gamesPerFlush)
		lastErr error
	)
	flush := func() {
		if len(ids) == 0 {
			return
		}
		path, err := store.WriteBatchParquetAtomic(outDir, rows)
		if err != nil {
			log.Error().Err(err).Int("games", len(ids)).Int("rows", len(rows)).Msg("parquet-flush-failed")
			lastErr = err
		} else {
			if written != nil {
				if err := written.Add(ids...); err != nil {
					log.Error().Err(err).Msg("written-log-failed")
					lastErr = err
				}
			}
			stats.Files++
			stats.Games += len(ids)
			stats.Rows += len(rows)
			log.Info().Str("path", path).Int("games", len(ids)).Int("rows", len(rows)).Msg("parquet-flush")
		}
		rows = rows[:0]
		ids = ids[:0]
	}

	for f := range in {
		if len(f.Rows) == 0 {
			continue
		}
		rows = append(rows, f.Rows...)
		ids = append(ids, f.Result.GameID)
		if len(ids) >= gamesPerFlush {
			flush()
		}
	}
	flush()
	return stats, lastErr
}
