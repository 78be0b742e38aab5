package game

import "math"

// Board geometry and cell values.
const (
	W = 10
	H = 16

	Empty     = 0
	Obstacle  = 11
	VanishSum = 10
	// Bomb is the self-complementary value targeted by the ability.
	Bomb = 5
)

// Resource rules.
const (
	GaugePerChain    = 8
	AbilityThreshold = 80
	// GaugeBreakChains is the chain length from which a chain also drains
	// the opponent's ability gauge.
	GaugeBreakChains = 3
)

const maxChains = H * W / 2

// chainObstacle[n] is the garbage sent for an n-chain: half of the chain
// score, where link i scores floor(1.3^i).
var chainObstacle [maxChains + 1]int

func init() {
	score := 0
	for n := 1; n <= maxChains; n++ {
		score += int(math.Floor(math.Pow(1.3, float64(n))))
		chainObstacle[n] = score / 2
	}
}

// ChainObstacle returns the garbage generated by an n-chain.
func ChainObstacle(chains int) int {
	if chains <= 0 {
		return 0
	}
	if chains > maxChains {
		chains = maxChains
	}
	return chainObstacle[chains]
}

// BombObstacle returns the garbage generated by removing n blocks with the
// ability: half of floor(25 * 2^(n/12)).
func BombObstacle(blocks int) int {
	if blocks <= 0 {
		return 0
	}
	return int(math.Floor(25*math.Pow(2, float64(blocks)/12))) / 2
}

// GaugeBreak returns how much ability gauge an n-chain drains from the
// opponent.
func GaugeBreak(chains int) int {
	if chains < GaugeBreakChains {
		return 0
	}
	return 12 + 2*chains
}

func chainResult(chains int, fireHeight int8) ActionResult {
	return ActionResult{
		Chains:     chains,
		Obstacle:   ChainObstacle(chains),
		SkillGauge: GaugeBreak(chains),
		FireHeight: fireHeight,
	}
}

func bombResult(blocks, chains int, fireHeight int8) ActionResult {
	return ActionResult{
		Chains:     chains,
		Obstacle:   BombObstacle(blocks) + ChainObstacle(chains),
		SkillGauge: GaugeBreak(chains),
		FireHeight: fireHeight,
	}
}
