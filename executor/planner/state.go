// Package planner searches several turns ahead over the known piece queue
// and returns the best plan it found for every depth.
//
// The search keeps one max-heap per depth. A round pops the best node of a
// depth, expands it with every legal action and files the children under the
// next depth, so shallow and deep plans improve side by side until the think
// time runs out.
package planner

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/brensch/rensa/executor/replay"
	"github.com/brensch/rensa/game"
	"github.com/brensch/rensa/internal/clock"
)

// ScoreFunc rates the state reached by an action. Bigger is better.
// It is called from several goroutines at once and must not keep state.
type ScoreFunc func(result game.ActionResult, p *game.Player, f game.Feature) int64

// Context describes one planning call.
type Context struct {
	// StartTurn indexes Pieces for the first planned action.
	StartTurn int
	// MaxDepth is the longest plan considered, at most game.MaxSequence.
	MaxDepth int
	// ThinkTime bounds the wall-clock time. Zero searches until every heap
	// is exhausted.
	ThinkTime time.Duration

	Player game.Player
	// Pieces is the whole known queue, indexed by turn.
	Pieces []game.Piece
	// ObstacleSchedule[d] is the garbage injected before the action at depth d.
	ObstacleSchedule []int
	Score            ScoreFunc

	// StopChains, when positive, keeps the search from extending a plan
	// whose last action already chained this many times.
	StopChains int
	// Workers bounds the goroutines expanding one node. Zero uses GOMAXPROCS.
	Workers int
	// Clock defaults to the system clock.
	Clock clock.Clock
	// Log receives progress events. The zero value discards them.
	Log zerolog.Logger
	// OnImprove, when set, is called on the planning goroutine every time
	// the best plan of a depth changes.
	OnImprove func(depth int, score int64)
}

// Stats summarises a planning call.
type Stats struct {
	Rounds     int
	Children   int
	Duplicates int
	Dead       int
	Elapsed    time.Duration
	TimedOut   bool
	Cancelled  bool
}

// Result holds one candidate per depth. Candidates[d] plans d+1 actions and
// is nil when nothing reached that depth.
type Result struct {
	Candidates []*replay.Replay
	Scores     []int64
	Stats      Stats
}

// Best returns the highest scoring candidate, preferring the shorter plan on
// equal scores. It is nil when there is no candidate. The returned replay is
// the same value held in Candidates, not a copy: replaying it advances both.
func (r Result) Best() *replay.Replay {
	var best *replay.Replay
	var bestScore int64
	for d, c := range r.Candidates {
		if c == nil {
			continue
		}
		if best == nil || r.Scores[d] > bestScore {
			best, bestScore = c, r.Scores[d]
		}
	}
	return best
}

// BeamState is a node of the search: the actions taken so far, the player
// they lead to and the priority the node is popped by.
type BeamState struct {
	Actions  game.Sequence
	Priority int64
	Player   game.Player
}

// beam is a max-heap of nodes ordered by priority.
type beam []*BeamState

func (b beam) Len() int           { return len(b) }
func (b beam) Less(i, j int) bool { return b[i].Priority > b[j].Priority }
func (b beam) Swap(i, j int)      { b[i], b[j] = b[j], b[i] }

func (b *beam) Push(x any) { *b = append(*b, x.(*BeamState)) }

func (b *beam) Pop() any {
	old := *b
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*b = old[:n-1]
	return x
}

// best is the recorded winner of one depth. draw breaks score ties.
type best struct {
	found   bool
	score   int64
	draw    uint64
	actions game.Sequence
}

func (b *best) offer(score int64, draw uint64, actions game.Sequence) bool {
	if b.found && (score < b.score || score == b.score && draw <= b.draw) {
		return false
	}
	*b = best{found: true, score: score, draw: draw, actions: actions}
	return true
}
