// Package policy decides one move per turn. An Agent runs a small state
// machine over its modes and drives the planner from whichever mode is
// active, following the resulting plan until it goes stale.
package policy

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/brensch/rensa/executor/planner"
	"github.com/brensch/rensa/executor/replay"
	"github.com/brensch/rensa/game"
	"github.com/brensch/rensa/rules"
)

// Mode is the strategic state of an Agent.
type Mode int

const (
	// Chaining builds the largest chain the time allows.
	Chaining Mode = iota
	// Bombing fires the ability while it deals enough damage.
	Bombing
	// CounterKilling answers an opponent that rushes its ability by firing
	// small chains early. It is never left once entered.
	CounterKilling
	// Charging builds the ability gauge under ChargeStrategy.
	Charging
)

func (m Mode) String() string {
	switch m {
	case Chaining:
		return "chaining"
	case Bombing:
		return "bombing"
	case CounterKilling:
		return "counter-killing"
	case Charging:
		return "charging"
	}
	return "unknown"
}

// SafeDefault is played when no plan exists at all.
var SafeDefault = game.Place(0, 0)

// TurnState is everything the agent learns at the start of a turn.
type TurnState struct {
	Turn      int
	Remaining time.Duration
	Self      game.Player
	Enemy     game.Player
}

// Agent plays one side of a game. It is not safe for concurrent use.
type Agent struct {
	cfg    Config
	pieces []game.Piece
	rng    *rand.Rand
	log    zerolog.Logger

	mode      Mode
	current   *replay.Replay
	enemyFire []int
	replans   int
	lastStats planner.Stats
}

// NewAgent returns an agent for a game with the given piece queue. rng is
// only used to break ties inside the planner.
func NewAgent(cfg Config, pieces []game.Piece, rng *rand.Rand, log zerolog.Logger) *Agent {
	return &Agent{
		cfg:    cfg,
		pieces: pieces,
		rng:    rng,
		log:    log,
	}
}

// Mode returns the current mode.
func (a *Agent) Mode() Mode { return a.mode }

// Replans counts how often the agent replaced its plan.
func (a *Agent) Replans() int { return a.replans }

// PlanStats returns the statistics of the most recent search.
func (a *Agent) PlanStats() planner.Stats { return a.lastStats }

// Decide returns the action for this turn.
func (a *Agent) Decide(ctx context.Context, ts TurnState) game.Action {
	if ts.Self.IsDead() || ts.Turn >= len(a.pieces) {
		return SafeDefault
	}
	prev := a.mode
	a.mode = a.transition(ts)
	if a.mode != prev {
		a.log.Info().Int("turn", ts.Turn).Stringer("from", prev).Stringer("to", a.mode).Msg("mode-change")
	}

	switch a.mode {
	case Bombing:
		a.current.Clear()
		return game.UseAbility
	case CounterKilling:
		return a.killBomber(ctx, ts)
	case Charging:
		return a.charge(ctx, ts)
	}
	return a.chain(ctx, ts)
}

func (a *Agent) transition(ts TurnState) Mode {
	if a.mode == CounterKilling {
		return CounterKilling
	}
	if ts.Turn == a.cfg.BomberTurn && ts.Enemy.SkillGauge >= a.cfg.BomberGauge {
		return CounterKilling
	}
	if ts.Self.CanUseAbility() && a.cfg.BombDamage > 0 {
		p := ts.Self
		if r := p.Put(game.Piece{}, game.UseAbility); r.Obstacle >= a.cfg.BombDamage {
			return Bombing
		}
	}
	if a.cfg.Strategy == ChargeStrategy {
		return Charging
	}
	return Chaining
}

func (a *Agent) emergency(ts TurnState) bool {
	return ts.Remaining < a.cfg.EmergencyRemaining
}

func (a *Agent) chain(ctx context.Context, ts TurnState) game.Action {
	_, _, attack := a.fire(ts.Turn, ts.Enemy)
	a.enemyFire = append(a.enemyFire, attack)
	if len(a.enemyFire) > a.cfg.CounterHistory {
		a.enemyFire = a.enemyFire[1:]
	}

	switch {
	case a.counter(ctx, ts):
	case a.rensa(ctx, ts):
	case a.antiCounter(ctx, ts):
	case a.latentCounter(ctx, ts):
	}

	if act, ok := a.current.Replay(); ok {
		return act
	}
	return SafeDefault
}

// counter replans to absorb and return an enemy attack that just grew
// past the threshold.
func (a *Agent) counter(ctx context.Context, ts TurnState) bool {
	if a.emergency(ts) || len(a.enemyFire) == 0 {
		return false
	}
	n := len(a.enemyFire)
	attack := a.enemyFire[n-1]
	peak := 0
	for _, v := range a.enemyFire[:n-1] {
		peak = max(peak, v)
	}
	threshold := a.cfg.CounterThreshold
	if ts.Turn < a.cfg.CounterEarlyTurns {
		threshold = a.cfg.CounterThresholdEarly
	}
	if attack < threshold || peak >= attack {
		return false
	}

	schedule := []int{attack}
	res := a.search(ctx, ts.Turn, ts.Self, a.cfg.CounterDepth, a.cfg.CounterThink, schedule)
	a.adopt(ts.Turn, "counter", selectBest(res, attack*3/2))
	return true
}

// rensa keeps a valid plan and otherwise searches for a new one.
func (a *Agent) rensa(ctx context.Context, ts TurnState) bool {
	if a.current.CanReplay(ts.Self, nil) {
		return false
	}
	a.current.Clear()
	depth, think := a.cfg.ChainDepth, a.cfg.ChainThink
	if ts.Turn <= a.cfg.EarlyTurns {
		depth, think = a.cfg.EarlyChainDepth, a.cfg.EarlyChainThink
	}
	if a.emergency(ts) {
		think = a.cfg.EmergencyThink
	}
	res := a.search(ctx, ts.Turn, ts.Self, depth, think, nil)
	a.adopt(ts.Turn, "rensa", selectBest(res, a.cfg.ChainLimit))
	return true
}

// antiCounter runs just before firing: if the enemy could answer with a
// longer chain, keep building instead.
func (a *Agent) antiCounter(ctx context.Context, ts TurnState) bool {
	if a.emergency(ts) || a.current.Len() != 1 {
		return false
	}
	_, mine, attack := a.fire(ts.Turn, ts.Self)
	schedule := []int{attack}
	res := a.search(ctx, ts.Turn, ts.Enemy, a.cfg.AntiCounterDepth, a.cfg.AntiCounterThink, schedule)
	if answer := selectBest(res, a.cfg.ExtendLimit); answer != nil && answer.Chains() >= mine.Chains+1 {
		res := a.search(ctx, ts.Turn, ts.Self, a.cfg.ExtendDepth, a.cfg.ExtendThink, nil)
		a.adopt(ts.Turn, "extend", selectBest(res, a.cfg.ExtendLimit))
	}
	return true
}

// latentCounter looks for a chain the enemy could start by clearing a single
// exposed block a few rows above its skyline. If that chain outgrows ours
// the plan is rebuilt with a shorter horizon.
func (a *Agent) latentCounter(ctx context.Context, ts TurnState) bool {
	best, x, y := ts.Enemy.Board.CalcMaxChainByEraseBlock()
	if x < 0 {
		return false
	}
	dy := y - ts.Enemy.Board.AdjustHeightMin(x)
	if dy < a.cfg.LatentRowsMin || dy > a.cfg.LatentRowsMax {
		return false
	}
	if a.current.Chains() >= best.Chains+a.cfg.LatentMargin || a.emergency(ts) {
		return false
	}
	a.current.Clear()
	res := a.search(ctx, ts.Turn, ts.Self, a.cfg.LatentDepth, a.cfg.LatentThink, nil)
	a.adopt(ts.Turn, "latent-counter", selectBest(res, a.cfg.ExtendLimit))
	return true
}

// killBomber fires modest chains quickly against an ability rush.
func (a *Agent) killBomber(ctx context.Context, ts TurnState) game.Action {
	if ts.Turn != a.cfg.BomberTurn && a.current.CanReplay(ts.Self, nil) {
		if act, ok := a.current.Replay(); ok {
			return act
		}
	}
	depth := a.cfg.KillerDepth
	if ts.Turn <= a.cfg.BomberTurn {
		depth = a.cfg.KillerEarlyDepth
	}
	think := a.cfg.KillerThink
	if a.emergency(ts) {
		think = a.cfg.EmergencyThink
	}
	schedule := make([]int, depth)
	res := a.search(ctx, ts.Turn, ts.Self, depth, think, schedule)
	plan := selectBest(res, a.cfg.KillerLimit)
	if plan == nil {
		return SafeDefault
	}
	a.adopt(ts.Turn, "kill-bomber", plan)
	act, _ := a.current.Replay()
	return act
}

// charge follows a short plan scored by Charge that fills the gauge and
// fires the ability once it deals BombDamage.
func (a *Agent) charge(ctx context.Context, ts TurnState) game.Action {
	if a.current.CanReplay(ts.Self, nil) {
		if act, ok := a.current.Replay(); ok {
			return act
		}
	}
	a.current.Clear()
	think := a.cfg.ChargeThink
	if a.emergency(ts) {
		think = a.cfg.EmergencyThink
	}
	res := a.searchWith(ctx, planner.Context{
		StartTurn:  ts.Turn,
		MaxDepth:   a.cfg.ChargeDepth,
		ThinkTime:  think,
		Player:     ts.Self,
		Score:      Charge{BombDamage: a.cfg.BombDamage}.Score,
		StopChains: a.cfg.ChargeStopChains,
	})
	a.adopt(ts.Turn, "charge", res.Best())
	if act, ok := a.current.Replay(); ok {
		return act
	}
	return SafeDefault
}

func (a *Agent) search(ctx context.Context, turn int, p game.Player, depth int, think time.Duration, schedule []int) planner.Result {
	return a.searchWith(ctx, planner.Context{
		StartTurn:        turn,
		MaxDepth:         depth,
		ThinkTime:        think,
		Player:           p,
		ObstacleSchedule: schedule,
		Score:            a.cfg.Weights.Score,
	})
}

// searchWith fills in the agent's pieces and resources and runs the planner.
func (a *Agent) searchWith(ctx context.Context, pc planner.Context) planner.Result {
	pc.Pieces = a.pieces
	pc.Workers = a.cfg.Workers
	pc.Clock = a.cfg.Clock
	pc.Log = a.log
	res := planner.Plan(ctx, pc, a.rng)
	a.lastStats = res.Stats
	return res
}

// adopt replaces the current plan. A nil plan keeps the old one.
func (a *Agent) adopt(turn int, reason string, r *replay.Replay) {
	if r == nil {
		return
	}
	a.current = r
	a.replans++
	a.log.Debug().
		Int("turn", turn).
		Str("reason", reason).
		Int("len", r.Len()).
		Int("chains", r.Chains()).
		Int("obstacle", r.Obstacle()).
		Msg("plan-adopted")
}

// selectBest picks the candidate dealing the most damage up to limit. The
// shallowest candidate wins ties.
func selectBest(res planner.Result, limit int) *replay.Replay {
	var chosen *replay.Replay
	top := -1
	for _, c := range res.Candidates {
		if c == nil {
			continue
		}
		if v := min(limit, c.Obstacle()); v > top {
			top, chosen = v, c
		}
	}
	return chosen
}

// fire tries every action p could play this turn and returns the one
// generating the most garbage with its result and the attack that would
// actually leave p after cancelling its own pending garbage.
func (a *Agent) fire(turn int, p game.Player) (game.Action, game.ActionResult, int) {
	piece := a.pieces[turn]
	var (
		bestAction game.Action
		bestResult game.ActionResult
		attack     int
		found      bool
	)
	for _, act := range rules.AllActions() {
		if act.IsAbility() && !p.CanUseAbility() {
			continue
		}
		q := p
		r := q.Put(piece, act)
		if !found || r.Obstacle > bestResult.Obstacle {
			bestAction, bestResult, attack, found = act, r, -q.Obstacle, true
		}
	}
	return bestAction, bestResult, attack
}
