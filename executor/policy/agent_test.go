package policy

import (
	"bytes"
	"context"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/brensch/rensa/executor/planner"
	"github.com/brensch/rensa/executor/replay"
	"github.com/brensch/rensa/game"
	"github.com/brensch/rensa/internal/clock"
	"github.com/brensch/rensa/rules"
)

const plenty = 10 * time.Minute

func testConfig() Config {
	cfg := DefaultConfig().WithThinkTime(40 * time.Millisecond)
	cfg.Clock = clock.NewTicking(time.Unix(0, 0), time.Millisecond)
	cfg.Workers = 2
	return cfg
}

// stacked leaves 1,2,4,8,9 in column 0 and a 3 in column 1; a 6 landing on
// the 3 sets off three chains.
func stacked(t *testing.T) game.Player {
	t.Helper()
	p := game.NewPlayer(game.Board{}, 0, 0)
	for _, piece := range []game.Piece{
		{{2, 0}, {1, 3}},
		{{8, 0}, {4, 0}},
		{{0, 0}, {9, 0}},
	} {
		if r := p.Put(piece, game.Place(0, 0)); r.Chains != 0 {
			t.Fatalf("seeding chained: %+v", r)
		}
	}
	return p
}

// bomber has a 5 on top of every even column of 1s. Firing the ability
// removes 15 blocks without setting off a chain.
func bomber(gauge int) game.Player {
	var cols [game.W]uint64
	for x := range cols {
		cols[x] = 0x1111
		if x%2 == 0 {
			cols[x] = 0x51111
		}
	}
	return game.NewPlayer(game.FromColumns(cols), 0, gauge)
}

var (
	trigger = game.Piece{{0, 0}, {0, 6}}
	filler  = game.Piece{{0, 0}, {1, 1}}
)

func randomPieces(seed int64, n int) []game.Piece {
	return rules.GeneratePieces(rand.New(rand.NewSource(seed)), n, rules.DefaultPieceSettings)
}

func TestWeightsScore(t *testing.T) {
	w := DefaultConfig().Weights
	tall := game.FromColumns([game.W]uint64{0x1111111111111111})

	tests := []struct {
		name   string
		result game.ActionResult
		player game.Player
		f      game.Feature
		want   int64
	}{
		{
			name:   "damage and features",
			result: game.ActionResult{Obstacle: 3, FireHeight: 2},
			f:      game.Feature{Keima: 1, Tate: 2, Keima2: 3, Tate2: 4, NumBlock: 5},
			want:   3_000_000 + 2000 + 50 + 80 + 3 + 4 + 10000,
		},
		{
			name:   "damage is capped",
			result: game.ActionResult{Obstacle: 500},
			want:   200 * 1_000_000,
		},
		{
			name:   "gauge drain",
			result: game.ActionResult{Obstacle: 2, Chains: 3, SkillGauge: 18},
			player: game.Player{DecreaseSkillGauge: 18},
			want:   2_000_000 + 18*20_000,
		},
		{
			name:   "over height",
			player: game.NewPlayer(tall, 0, 0),
			want:   -2 * 10000,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.Score(tt.result, &tt.player, tt.f); got != tt.want {
				t.Fatalf("Score=%d want=%d", got, tt.want)
			}
		})
	}
}

func TestWithThinkTime(t *testing.T) {
	cfg := DefaultConfig().WithThinkTime(150 * time.Millisecond)
	if cfg.ChainThink != 150*time.Millisecond {
		t.Fatalf("chain=%v", cfg.ChainThink)
	}
	if cfg.EarlyChainThink != 180*time.Millisecond || cfg.AntiCounterThink != 50*time.Millisecond {
		t.Fatalf("early=%v anti=%v", cfg.EarlyChainThink, cfg.AntiCounterThink)
	}
	if cfg.ChargeThink != 100*time.Millisecond {
		t.Fatalf("charge=%v", cfg.ChargeThink)
	}
}

func TestParseStrategy(t *testing.T) {
	for _, s := range []Strategy{ChainStrategy, ChargeStrategy} {
		got, err := ParseStrategy(s.String())
		if err != nil || got != s {
			t.Fatalf("ParseStrategy(%q)=%v, %v", s.String(), got, err)
		}
	}
	if _, err := ParseStrategy("bomb"); err == nil {
		t.Fatal("unknown strategy accepted")
	}
}

// With damage capped to zero the only difference between lines is how much
// gauge they drain, so the plan must fire the long cascade.
func TestWeights_DrainBreaksDamageTies(t *testing.T) {
	w := Weights{ObstacleCap: 0, Obstacle: 1_000_000, DecreaseSkillGauge: 1}
	res := planner.Plan(context.Background(), planner.Context{
		MaxDepth: 1,
		Player:   stacked(t),
		Pieces:   []game.Piece{trigger},
		Score:    w.Score,
		Workers:  2,
	}, rand.New(rand.NewSource(1)))

	plan := res.Candidates[0]
	if plan == nil {
		t.Fatal("no candidate")
	}
	first := plan.Expected()[0]
	t.Logf("score %d result %+v", res.Scores[0], first)
	if first.Chains < game.GaugeBreakChains || first.SkillGauge == 0 {
		t.Fatalf("picked a line that does not drain: %+v", first)
	}
	if res.Scores[0] != int64(game.GaugeBreak(first.Chains)) {
		t.Fatalf("score=%d want %d", res.Scores[0], game.GaugeBreak(first.Chains))
	}
}

func TestChargeScore(t *testing.T) {
	c := Charge{BombDamage: 40}
	empty := func(gauge int) game.Player { return game.NewPlayer(game.Board{}, 0, gauge) }

	tests := []struct {
		name   string
		result game.ActionResult
		player game.Player
		want   int64
	}{
		{"fired", game.ActionResult{Obstacle: 40}, empty(0), chargeFired},
		{"weak fire", game.ActionResult{Obstacle: 39}, empty(8), 8 * 10_000},
		{"gauge", game.ActionResult{}, empty(16), 16 * 10_000},
		{"gauge is capped", game.ActionResult{}, empty(game.AbilityThreshold + 40), game.AbilityThreshold * 10_000},
		{"bomb potential", game.ActionResult{}, bomber(0), int64(game.BombObstacle(15))*1_000 - 5*100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Score(tt.result, &tt.player, game.Feature{}); got != tt.want {
				t.Fatalf("Score=%d want=%d", got, tt.want)
			}
		})
	}
}

func TestDecide_FollowsPlanAcrossTurns(t *testing.T) {
	self := stacked(t)
	pieces := []game.Piece{filler, trigger}
	a := NewAgent(testConfig(), pieces, rand.New(rand.NewSource(1)), zerolog.Nop())

	var results []game.ActionResult
	for turn := range pieces {
		act := a.Decide(context.Background(), TurnState{Turn: turn, Remaining: plenty, Self: self})
		r := rules.Step(&self, pieces[turn], act, 0)
		results = append(results, r)
		t.Logf("turn %d mode %v action %v result %+v\n%s", turn, a.Mode(), act, r, self.Board.String())
	}

	if a.Mode() != Chaining {
		t.Fatalf("mode=%v", a.Mode())
	}
	if a.Replans() != 1 {
		t.Fatalf("replans=%d want=1", a.Replans())
	}
	if results[1].Chains < 2 {
		t.Fatalf("planned cascade did not fire: %+v", results)
	}
}

func TestDecide_Bombing(t *testing.T) {
	cfg := testConfig()
	cfg.BombDamage = 20
	a := NewAgent(cfg, randomPieces(1, 10), rand.New(rand.NewSource(1)), zerolog.Nop())

	act := a.Decide(context.Background(), TurnState{Turn: 1, Remaining: plenty, Self: bomber(game.AbilityThreshold)})
	if act != game.UseAbility || a.Mode() != Bombing {
		t.Fatalf("action=%v mode=%v", act, a.Mode())
	}

	// An uncharged gauge returns to chaining.
	act = a.Decide(context.Background(), TurnState{Turn: 2, Remaining: plenty, Self: bomber(0)})
	if act.IsAbility() || a.Mode() != Chaining {
		t.Fatalf("action=%v mode=%v", act, a.Mode())
	}
}

func TestDecide_WeakBombKeepsChaining(t *testing.T) {
	cfg := testConfig()
	cfg.BombDamage = 40
	a := NewAgent(cfg, randomPieces(2, 10), rand.New(rand.NewSource(1)), zerolog.Nop())
	act := a.Decide(context.Background(), TurnState{Turn: 1, Remaining: plenty, Self: bomber(game.AbilityThreshold)})
	if a.Mode() != Chaining {
		t.Fatalf("mode=%v action=%v", a.Mode(), act)
	}
}

func TestDecide_CounterKillingIsSticky(t *testing.T) {
	cfg := testConfig()
	pieces := randomPieces(3, 40)
	a := NewAgent(cfg, pieces, rand.New(rand.NewSource(1)), zerolog.Nop())
	self := stacked(t)

	enemy := game.NewPlayer(game.Board{}, 0, cfg.BomberGauge)
	act := a.Decide(context.Background(), TurnState{Turn: cfg.BomberTurn, Remaining: plenty, Self: self, Enemy: enemy})
	if a.Mode() != CounterKilling {
		t.Fatalf("mode=%v", a.Mode())
	}
	if !act.Valid() {
		t.Fatalf("invalid action %v", act)
	}
	rules.Step(&self, pieces[cfg.BomberTurn], act, 0)

	enemy.SkillGauge = 0
	a.Decide(context.Background(), TurnState{Turn: cfg.BomberTurn + 1, Remaining: plenty, Self: self, Enemy: enemy})
	if a.Mode() != CounterKilling {
		t.Fatalf("left counter killing: mode=%v", a.Mode())
	}
}

func TestDecide_BomberCheckOnlyOnBomberTurn(t *testing.T) {
	cfg := testConfig()
	a := NewAgent(cfg, randomPieces(4, 40), rand.New(rand.NewSource(1)), zerolog.Nop())
	enemy := game.NewPlayer(game.Board{}, 0, game.AbilityThreshold)
	a.Decide(context.Background(), TurnState{Turn: cfg.BomberTurn + 1, Remaining: plenty, Self: stacked(t), Enemy: enemy})
	if a.Mode() != Chaining {
		t.Fatalf("mode=%v", a.Mode())
	}
}

func TestDecide_Charging(t *testing.T) {
	cfg := testConfig()
	cfg.Strategy = ChargeStrategy
	a := NewAgent(cfg, randomPieces(9, 20), rand.New(rand.NewSource(1)), zerolog.Nop())

	act := a.Decide(context.Background(), TurnState{Remaining: plenty, Self: game.NewPlayer(game.Board{}, 0, 0)})
	if a.Mode() != Charging || a.Replans() != 1 {
		t.Fatalf("mode=%v replans=%d", a.Mode(), a.Replans())
	}
	if act.Column() != rules.CenterColumn {
		t.Fatalf("opening %v not in the centre column", act)
	}

	// A charged ability that deals enough damage is fired whatever the strategy.
	cfg.BombDamage = 20
	a = NewAgent(cfg, randomPieces(9, 20), rand.New(rand.NewSource(1)), zerolog.Nop())
	act = a.Decide(context.Background(), TurnState{Turn: 1, Remaining: plenty, Self: bomber(game.AbilityThreshold)})
	if act != game.UseAbility || a.Mode() != Bombing {
		t.Fatalf("action=%v mode=%v", act, a.Mode())
	}
}

func TestDecide_SafeDefault(t *testing.T) {
	a := NewAgent(testConfig(), nil, rand.New(rand.NewSource(1)), zerolog.Nop())
	if act := a.Decide(context.Background(), TurnState{Remaining: plenty}); act != SafeDefault {
		t.Fatalf("action=%v want %v", act, SafeDefault)
	}

	dead := game.NewPlayer(game.FromColumns([game.W]uint64{0xBBBBBBBBBBBBBBBB}), 0, 0)
	dead.Board.FallObstacle()
	a = NewAgent(testConfig(), randomPieces(5, 4), rand.New(rand.NewSource(1)), zerolog.Nop())
	if act := a.Decide(context.Background(), TurnState{Remaining: plenty, Self: dead}); act != SafeDefault {
		t.Fatalf("dead player action=%v", act)
	}
}

func TestCounter_ReplansAgainstRisingAttack(t *testing.T) {
	var buf bytes.Buffer
	cfg := testConfig()
	a := NewAgent(cfg, randomPieces(6, 40), rand.New(rand.NewSource(1)), zerolog.New(&buf))
	ts := TurnState{Turn: 3, Remaining: plenty, Self: stacked(t)}

	a.enemyFire = []int{0, 5, cfg.CounterThresholdEarly - 1}
	if a.counter(context.Background(), ts) {
		t.Fatal("counter below threshold")
	}
	a.enemyFire = []int{cfg.CounterThresholdEarly + 10, cfg.CounterThresholdEarly}
	if a.counter(context.Background(), ts) {
		t.Fatal("counter against a shrinking attack")
	}
	a.enemyFire = []int{0, cfg.CounterThresholdEarly}
	if !a.counter(context.Background(), ts) {
		t.Fatal("no counter against a rising attack")
	}
	if a.Replans() != 1 || !strings.Contains(buf.String(), `"reason":"counter"`) {
		t.Fatalf("replans=%d log=%s", a.Replans(), buf.String())
	}

	ts.Remaining = time.Second
	if a.counter(context.Background(), ts) {
		t.Fatal("counter searched in an emergency")
	}
}

func TestFire_SeesEnemyAbility(t *testing.T) {
	a := NewAgent(testConfig(), randomPieces(7, 4), rand.New(rand.NewSource(1)), zerolog.Nop())
	act, result, attack := a.fire(0, bomber(game.AbilityThreshold))
	if act != game.UseAbility || result.Obstacle != game.BombObstacle(15) || attack != result.Obstacle {
		t.Fatalf("fire=%v %+v %d", act, result, attack)
	}
}

func TestLatentCounter(t *testing.T) {
	a := NewAgent(testConfig(), randomPieces(8, 40), rand.New(rand.NewSource(1)), zerolog.Nop())
	ts := TurnState{Turn: 2, Remaining: plenty, Self: stacked(t)}

	if a.latentCounter(context.Background(), ts) {
		t.Fatal("latent counter on an empty enemy board")
	}

	// Column 0 holds six 1s under 2,4,8,9. Erasing the 4 seven rows above
	// the empty neighbour clears 2+8 and then 1+9.
	ts.Enemy = game.NewPlayer(game.FromColumns([game.W]uint64{0x9842111111}), 0, 0)
	best, x, y := ts.Enemy.Board.CalcMaxChainByEraseBlock()
	if best.Chains != 2 || x != 0 || y != 7 {
		t.Fatalf("probe=%+v at (%d,%d)", best, x, y)
	}
	if !a.latentCounter(context.Background(), ts) {
		t.Fatal("latent counter not detected")
	}
	if a.Replans() != 1 || a.current == nil {
		t.Fatalf("replans=%d", a.Replans())
	}
}

func TestSelectBest(t *testing.T) {
	chain := replay.New(stacked(t), []game.Piece{trigger}, nil, []game.Action{game.Place(0, 0)})
	bomb := replay.New(bomber(game.AbilityThreshold), []game.Piece{{}}, nil, []game.Action{game.UseAbility})
	res := planner.Result{Candidates: []*replay.Replay{nil, chain, bomb}}

	if got := selectBest(res, 10); got != bomb {
		t.Fatal("limit 10 should prefer the bomb")
	}
	if got := selectBest(res, chain.Obstacle()); got != chain {
		t.Fatal("capped tie should prefer the shallower plan")
	}
	if got := selectBest(planner.Result{Candidates: make([]*replay.Replay, 3)}, 10); got != nil {
		t.Fatal("empty result selected a plan")
	}
}
