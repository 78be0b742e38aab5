package planner

import (
	"container/heap"
	"context"
	"math"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/brensch/rensa/executor/replay"
	"github.com/brensch/rensa/game"
	"github.com/brensch/rensa/internal/clock"
	"github.com/brensch/rensa/rules"
)

// child is the outcome of one action applied to a popped node.
type child struct {
	action   game.Action
	result   game.ActionResult
	player   game.Player
	hash     uint64
	score    int64
	priority int64
	dead     bool
}

func (pc *Context) depthLimit() int {
	d := min(pc.MaxDepth, game.MaxSequence, len(pc.Pieces)-pc.StartTurn)
	return max(d, 0)
}

func (pc *Context) injection(d int) int {
	if d < len(pc.ObstacleSchedule) {
		return pc.ObstacleSchedule[d]
	}
	return 0
}

// Plan runs the beam search described by pc. rng only breaks ties between
// equal scores, so a fixed seed and an exhausted search give the same
// result on every run.
//
// Plan checks the clock and ctx between rounds. A round that has started
// always finishes, so Plan can overrun ThinkTime by one round.
func Plan(ctx context.Context, pc Context, rng *rand.Rand) Result {
	clk := pc.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	start := clk.Now()

	depth := pc.depthLimit()
	res := Result{
		Candidates: make([]*replay.Replay, depth),
		Scores:     make([]int64, depth),
	}
	if depth == 0 || pc.Score == nil || pc.Player.IsDead() {
		res.Stats.Elapsed = clk.Now().Sub(start)
		return res
	}

	workers := pc.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	heaps := make([]beam, depth)
	heap.Push(&heaps[0], &BeamState{Player: pc.Player})
	bests := make([]best, depth)
	visited := make(map[uint64]struct{}, 1<<12)

search:
	for active := true; active; {
		active = false
		for d := 0; d < depth; d++ {
			select {
			case <-ctx.Done():
				res.Stats.Cancelled = true
				break search
			default:
			}
			if pc.ThinkTime > 0 && clk.Now().Sub(start) >= pc.ThinkTime {
				res.Stats.TimedOut = true
				break search
			}
			if heaps[d].Len() == 0 {
				continue
			}
			active = true

			node := heap.Pop(&heaps[d]).(*BeamState)
			children := expand(&pc, node, d, d+1 < depth, workers)
			res.Stats.Rounds++

			for i := range children {
				c := &children[i]
				res.Stats.Children++
				if c.dead {
					res.Stats.Dead++
					continue
				}
				if _, ok := visited[c.hash]; ok {
					res.Stats.Duplicates++
					continue
				}
				visited[c.hash] = struct{}{}

				actions := node.Actions.Push(c.action)
				if bests[d].offer(c.score, rng.Uint64(), actions) && pc.OnImprove != nil {
					pc.OnImprove(d, c.score)
				}
				if pc.StopChains > 0 && c.result.Chains >= pc.StopChains {
					continue
				}
				if d+1 < depth {
					heap.Push(&heaps[d+1], &BeamState{
						Actions:  actions,
						Priority: c.priority,
						Player:   c.player,
					})
				}
			}
		}
	}

	for d := range bests {
		b := &bests[d]
		if !b.found {
			continue
		}
		pieces := pc.Pieces[pc.StartTurn : pc.StartTurn+d+1]
		res.Candidates[d] = replay.New(pc.Player, pieces, pc.ObstacleSchedule, b.actions.Actions())
		res.Scores[d] = b.score
	}
	res.Stats.Elapsed = clk.Now().Sub(start)

	pc.Log.Debug().
		Int("start-turn", pc.StartTurn).
		Int("depth", depth).
		Int("rounds", res.Stats.Rounds).
		Int("children", res.Stats.Children).
		Int("duplicates", res.Stats.Duplicates).
		Bool("timed-out", res.Stats.TimedOut).
		Dur("elapsed", res.Stats.Elapsed).
		Msg("plan-done")
	return res
}

// expand applies every legal action to a private copy of node's player.
// Children come back in action order whatever order the workers finish in.
func expand(pc *Context, node *BeamState, d int, extend bool, workers int) []child {
	piece := pc.Pieces[pc.StartTurn+d]
	base := node.Player
	if inj := pc.injection(d); inj > 0 {
		base.AddObstacles(inj)
	}
	actions := rules.LegalActions(&base)
	out := make([]child, len(actions))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, a := range actions {
		g.Go(func() error {
			c := &out[i]
			c.action = a
			c.player = base
			c.result = c.player.Put(piece, a)
			if c.player.IsDead() {
				c.dead = true
				return nil
			}
			c.hash = c.player.Hash()
			c.score = pc.Score(c.result, &c.player, c.player.Board.CalcFeature())
			if extend && !(pc.StopChains > 0 && c.result.Chains >= pc.StopChains) {
				c.priority = probePriority(pc.Score, &c.player)
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// probePriority is the best score reachable by dropping any single value
// into any column of p. It rewards boards that are one block away from a
// strong chain.
func probePriority(score ScoreFunc, p *game.Player) int64 {
	top := int64(math.MinInt64)
	for x := 0; x < game.W; x++ {
		for v := uint8(1); v <= 9; v++ {
			probe := *p
			r := probe.PutOne(v, x)
			if probe.IsDead() {
				continue
			}
			top = max(top, score(r, &probe, probe.Board.CalcFeature()))
		}
	}
	return top
}
