package policy

import (
	"fmt"
	"time"

	"github.com/brensch/rensa/game"
	"github.com/brensch/rensa/internal/clock"
)

// Weights turn a search state into a score. Damage dominates; the feature
// terms only order states that deal the same damage.
type Weights struct {
	ObstacleCap int
	Obstacle    int64
	FireHeight  int64
	// OverHeight penalises every row above game.H-2.
	OverHeight int64
	Keima      int64
	Tate       int64
	Keima2     int64
	Tate2      int64
	NumBlock   int64
	// DecreaseSkillGauge rewards draining the opponent's ability gauge with
	// long chains. It orders lines that deal the same damage.
	DecreaseSkillGauge int64
}

// Score implements planner.ScoreFunc.
func (w Weights) Score(r game.ActionResult, p *game.Player, f game.Feature) int64 {
	over := int64(max(game.H-2, p.Board.MaxHeight()) - (game.H - 2))
	feature := int64(r.FireHeight)*w.FireHeight -
		over*w.OverHeight +
		int64(f.Keima)*w.Keima +
		int64(f.Tate)*w.Tate +
		int64(f.Keima2)*w.Keima2 +
		int64(f.Tate2)*w.Tate2 +
		int64(f.NumBlock)*w.NumBlock +
		int64(p.DecreaseSkillGauge)*w.DecreaseSkillGauge
	return int64(min(r.Obstacle, w.ObstacleCap))*w.Obstacle + feature
}

// chargeFired is the score of every state whose move dealt the bomb damage.
const chargeFired = 1 << 40

// Charge scores states while building the ability gauge. Until a move deals
// BombDamage the gauge counts most, then the damage the ability would deal if
// fired now, then a low skyline. All firing states score the same, so the
// shallowest firing plan is the best one.
type Charge struct {
	BombDamage int
}

// Score implements planner.ScoreFunc.
func (c Charge) Score(r game.ActionResult, p *game.Player, _ game.Feature) int64 {
	if r.Obstacle >= c.BombDamage {
		return chargeFired
	}
	gauge := int64(min(p.SkillGauge, game.AbilityThreshold))
	b := p.Board
	bomb := int64(b.UseAbility().Obstacle)
	return gauge*10_000 + bomb*1_000 - int64(p.Board.MaxHeight())*100
}

// Strategy selects what an Agent plays for outside the forced modes.
type Strategy int

const (
	// ChainStrategy builds long chains.
	ChainStrategy Strategy = iota
	// ChargeStrategy charges the ability with short chains and fires it.
	ChargeStrategy
)

func (s Strategy) String() string {
	switch s {
	case ChainStrategy:
		return "chain"
	case ChargeStrategy:
		return "charge"
	}
	return "unknown"
}

// ParseStrategy is the inverse of Strategy.String.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "chain":
		return ChainStrategy, nil
	case "charge":
		return ChargeStrategy, nil
	}
	return 0, fmt.Errorf("unknown strategy %q", s)
}

// Config holds the strategy knobs of an Agent.
type Config struct {
	Strategy Strategy
	Weights  Weights

	// Chaining.
	EarlyTurns      int
	EarlyChainDepth int
	ChainDepth      int
	EarlyChainThink time.Duration
	ChainThink      time.Duration
	ChainLimit      int

	// Countering a rising enemy attack.
	CounterHistory        int
	CounterEarlyTurns     int
	CounterThresholdEarly int
	CounterThreshold      int
	CounterDepth          int
	CounterThink          time.Duration

	// Checking whether the enemy can answer our next fire.
	AntiCounterDepth int
	AntiCounterThink time.Duration
	ExtendDepth      int
	ExtendThink      time.Duration
	ExtendLimit      int

	// Latent enemy counters found by erasing a single block.
	LatentRowsMin int
	LatentRowsMax int
	LatentMargin  int
	LatentDepth   int
	LatentThink   time.Duration

	// Bombing.
	BombDamage int

	// Charging. Chains of ChargeStopChains or more end a charge plan.
	ChargeDepth      int
	ChargeThink      time.Duration
	ChargeStopChains int

	// CounterKilling.
	BomberTurn       int
	BomberGauge      int
	KillerEarlyDepth int
	KillerDepth      int
	KillerThink      time.Duration
	KillerLimit      int

	// Below EmergencyRemaining the agent skips optional searches and plans
	// with EmergencyThink.
	EmergencyRemaining time.Duration
	EmergencyThink     time.Duration

	Workers int
	Clock   clock.Clock
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			ObstacleCap: 200,
			Obstacle:    1_000_000,
			FireHeight:  1000,
			OverHeight:  10000,
			Keima:       50,
			Tate:        40,
			Keima2:      1,
			Tate2:       1,
			NumBlock:    2000,

			DecreaseSkillGauge: 20_000,
		},

		EarlyTurns:      10,
		EarlyChainDepth: 13,
		ChainDepth:      10,
		EarlyChainThink: 1800 * time.Millisecond,
		ChainThink:      1500 * time.Millisecond,
		ChainLimit:      60,

		CounterHistory:        5,
		CounterEarlyTurns:     15,
		CounterThresholdEarly: 40,
		CounterThreshold:      30,
		CounterDepth:          10,
		CounterThink:          1500 * time.Millisecond,

		AntiCounterDepth: 7,
		AntiCounterThink: 500 * time.Millisecond,
		ExtendDepth:      8,
		ExtendThink:      1300 * time.Millisecond,
		ExtendLimit:      10000,

		LatentRowsMin: 5,
		LatentRowsMax: 8,
		LatentMargin:  2,
		LatentDepth:   8,
		LatentThink:   1500 * time.Millisecond,

		BombDamage: 40,

		ChargeDepth:      3,
		ChargeThink:      1000 * time.Millisecond,
		ChargeStopChains: game.GaugeBreakChains,

		BomberTurn:       10,
		BomberGauge:      30,
		KillerEarlyDepth: 8,
		KillerDepth:      11,
		KillerThink:      1500 * time.Millisecond,
		KillerLimit:      200,

		EmergencyRemaining: 30 * time.Second,
		EmergencyThink:     100 * time.Millisecond,
	}
}

// WithThinkTime rescales every think time so the main chain search gets d.
func (c Config) WithThinkTime(d time.Duration) Config {
	base := c.ChainThink.Microseconds()
	if base <= 0 {
		c.ChainThink = d
		return c
	}
	scale := func(v time.Duration) time.Duration {
		return time.Duration(v.Microseconds()*d.Microseconds()/base) * time.Microsecond
	}
	c.EarlyChainThink = scale(c.EarlyChainThink)
	c.CounterThink = scale(c.CounterThink)
	c.AntiCounterThink = scale(c.AntiCounterThink)
	c.ExtendThink = scale(c.ExtendThink)
	c.LatentThink = scale(c.LatentThink)
	c.KillerThink = scale(c.KillerThink)
	c.ChargeThink = scale(c.ChargeThink)
	c.EmergencyThink = scale(c.EmergencyThink)
	c.ChainThink = d
	return c
}
