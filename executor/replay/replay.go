// Package replay holds a planned action sequence together with the pieces it
// was planned for and the exact results it produced when it was planned.
// A replay is only followed while re-simulating it on the live player still
// reproduces those results.
package replay

import (
	"github.com/brensch/rensa/game"
	"github.com/brensch/rensa/rules"
)

// Replay is owned by a single caller and is not safe for concurrent use.
type Replay struct {
	pieces   []game.Piece
	actions  []game.Action
	expected []game.ActionResult
	hashes   []uint64
	pos      int
}

// New simulates actions from player using one piece and one scheduled
// injection per step, and records every step's result and resulting player
// hash. Missing schedule entries mean no injection. pieces must cover every
// action.
func New(player game.Player, pieces []game.Piece, schedule []int, actions []game.Action) *Replay {
	r := &Replay{
		pieces:   append([]game.Piece(nil), pieces[:len(actions)]...),
		actions:  append([]game.Action(nil), actions...),
		expected: make([]game.ActionResult, len(actions)),
		hashes:   make([]uint64, len(actions)),
	}
	p := player
	for i, a := range actions {
		r.expected[i] = rules.Step(&p, r.pieces[i], a, at(schedule, i))
		r.hashes[i] = p.Hash()
	}
	return r
}

func at(schedule []int, i int) int {
	if i < len(schedule) {
		return schedule[i]
	}
	return 0
}

// CanReplay re-simulates the remaining steps from player with schedule,
// whose first entry applies to the next step. It fails when nothing is
// left, when a step would use an uncharged ability, or when any step's
// result or resulting player differs from what was recorded.
func (r *Replay) CanReplay(player game.Player, schedule []int) bool {
	if r == nil || r.Len() == 0 {
		return false
	}
	p := player
	for i := r.pos; i < len(r.actions); i++ {
		a := r.actions[i]
		step := i - r.pos
		injected := at(schedule, step)
		if a.IsAbility() && !p.CanUseAbility() {
			return false
		}
		if rules.Step(&p, r.pieces[i], a, injected) != r.expected[i] {
			return false
		}
		if p.Hash() != r.hashes[i] {
			return false
		}
	}
	return true
}

// Replay pops the next action. ok is false once the replay is exhausted.
func (r *Replay) Replay() (a game.Action, ok bool) {
	if r == nil || r.pos >= len(r.actions) {
		return game.NoAction, false
	}
	a = r.actions[r.pos]
	r.pos++
	return a, true
}

// Clear drops every remaining step.
func (r *Replay) Clear() {
	if r == nil {
		return
	}
	r.pieces = nil
	r.actions = nil
	r.expected = nil
	r.hashes = nil
	r.pos = 0
}

// Len is the number of steps not yet replayed.
func (r *Replay) Len() int {
	if r == nil {
		return 0
	}
	return len(r.actions) - r.pos
}

// Actions returns the remaining actions.
func (r *Replay) Actions() []game.Action {
	if r == nil {
		return nil
	}
	return append([]game.Action(nil), r.actions[r.pos:]...)
}

// Expected returns the recorded results of the remaining steps.
func (r *Replay) Expected() []game.ActionResult {
	if r == nil {
		return nil
	}
	return append([]game.ActionResult(nil), r.expected[r.pos:]...)
}

// Final is the recorded result of the last step.
func (r *Replay) Final() game.ActionResult {
	if r.Len() == 0 {
		return game.ActionResult{}
	}
	return r.expected[len(r.expected)-1]
}

// Chains is the longest chain among the remaining steps.
func (r *Replay) Chains() int {
	best := 0
	for _, e := range r.Expected() {
		best = max(best, e.Chains)
	}
	return best
}

// Obstacle is the garbage generated by the remaining steps.
func (r *Replay) Obstacle() int {
	total := 0
	for _, e := range r.Expected() {
		total += e.Obstacle
	}
	return total
}

// Obstacles is the garbage that would reach the opponent once player's own
// pending garbage has been cancelled.
func (r *Replay) Obstacles(player game.Player) int {
	return max(0, r.Obstacle()-max(0, player.Obstacle))
}
