package rules

import (
	"github.com/brensch/rensa/game"
)

// CenterColumn is the only column tried on an empty board. Every column is
// equivalent there, so one is enough.
const CenterColumn = game.W / 2

var allActions = func() []game.Action {
	out := make([]game.Action, 0, game.NumActions)
	for a := game.Action(1); a <= game.UseAbility; a++ {
		out = append(out, a)
	}
	return out
}()

// AllActions returns every action in code order. The slice is shared and must
// not be modified.
func AllActions() []game.Action {
	return allActions
}

// LegalActions returns the actions worth trying for p, in code order.
// The ability is only included when it is charged, and an empty board only
// gets the placements at CenterColumn.
func LegalActions(p *game.Player) []game.Action {
	if p.IsDead() {
		return nil
	}
	if p.Board.IsEmpty() {
		moves := make([]game.Action, 0, 4)
		for rot := 0; rot < 4; rot++ {
			moves = append(moves, game.Place(CenterColumn, rot))
		}
		return moves
	}
	if p.CanUseAbility() {
		return allActions
	}
	return allActions[:len(allActions)-1]
}

// Step queues injected garbage on p and applies the action with the piece.
func Step(p *game.Player, piece game.Piece, a game.Action, injected int) game.ActionResult {
	if injected > 0 {
		p.AddObstacles(injected)
	}
	return p.Put(piece, a)
}

// DeliverAttack moves surplus attack from attacker to defender and drains the
// defender's gauge by what the attacker's last result broke.
func DeliverAttack(attacker, defender *game.Player, result game.ActionResult) {
	if attacker.Obstacle < 0 {
		defender.AddObstacles(-attacker.Obstacle)
		attacker.Obstacle = 0
	}
	if result.SkillGauge > 0 {
		defender.SkillGauge = max(0, defender.SkillGauge-result.SkillGauge)
	}
}

// IsGameOver reports whether either board has overflowed.
func IsGameOver(a, b *game.Player) bool {
	return a.IsDead() || b.IsDead()
}

// GetResult scores the game from a's side: +1 when only b died, -1 when only
// a died, 0 otherwise.
func GetResult(a, b *game.Player) float32 {
	switch {
	case a.IsDead() && !b.IsDead():
		return -1.0
	case b.IsDead() && !a.IsDead():
		return 1.0
	}
	return 0.0
}
