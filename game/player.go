package game

// Player is a board plus the resources the rules track for one side.
// It is a plain value: assignment clones it.
type Player struct {
	Board Board
	// Obstacle is pending incoming garbage. A negative value is surplus attack
	// not yet delivered to the opponent.
	Obstacle   int
	SkillGauge int
	// DecreaseSkillGauge accumulates ability charge removed from the opponent.
	// It is only read as a search objective.
	DecreaseSkillGauge int
}

// NewPlayer returns a player for an existing board.
func NewPlayer(board Board, obstacle, skillGauge int) Player {
	return Player{Board: board, Obstacle: obstacle, SkillGauge: skillGauge}
}

// Put applies one action with the given piece. A full row of pending
// garbage lands first; the action's generated damage then cancels this
// player's own pending garbage.
func (p *Player) Put(piece Piece, a Action) ActionResult {
	if p.Obstacle >= W {
		p.Board.FallObstacle()
		p.Obstacle -= W
	}

	var result ActionResult
	if a.IsAbility() {
		result = p.Board.UseAbility()
		p.SkillGauge = 0
	} else {
		result = p.Board.Put(piece, a.Column(), a.Rotation())
		if result.Chains > 0 {
			p.SkillGauge += GaugePerChain
		}
	}
	p.DecreaseSkillGauge += result.SkillGauge
	p.Obstacle -= result.Obstacle
	return result
}

// PutOne probes a single value in column x without consuming a piece.
func (p *Player) PutOne(v uint8, x int) ActionResult {
	return p.Board.PutOne(v, x)
}

// CanUseAbility reports whether the gauge is charged.
func (p *Player) CanUseAbility() bool { return p.SkillGauge >= AbilityThreshold }

// AddObstacles queues incoming garbage.
func (p *Player) AddObstacles(n int) { p.Obstacle += n }

// IsDead reports whether the board has overflowed.
func (p *Player) IsDead() bool { return p.Board.IsDead() }
