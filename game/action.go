package game

import "fmt"

// Action is a move encoded as its 1-based byte code.
//
// Place(col, rot) encodes to col*4+rot+1 and UseAbility to 37.
// The zero value means "unset" so packed sequences can be zero-terminated.
type Action uint8

const (
	// NoAction is the unset code.
	NoAction Action = 0
	// UseAbility triggers the board-wide ability.
	UseAbility Action = Action((W-1)*4 + 1)
	// NumActions is the number of distinct non-zero codes.
	NumActions = int(UseAbility)
)

// Place returns the action dropping the current piece at column col
// (occupying col and col+1) after rot clockwise quarter turns.
func Place(col, rot int) Action {
	if col < 0 || col >= W-1 || rot < 0 || rot >= 4 {
		panic(fmt.Sprintf("game: invalid placement col=%d rot=%d", col, rot))
	}
	return Action(col*4 + rot + 1)
}

// IsAbility reports whether a is UseAbility.
func (a Action) IsAbility() bool { return a == UseAbility }

// Valid reports whether a is a real move.
func (a Action) Valid() bool { return a != NoAction && a <= UseAbility }

// Column is the left column of a placement.
func (a Action) Column() int { return int(a-1) / 4 }

// Rotation is the number of clockwise quarter turns of a placement.
func (a Action) Rotation() int { return int(a-1) % 4 }

// String formats the action the way the turn protocol expects it.
func (a Action) String() string {
	switch {
	case a == NoAction:
		return "-"
	case a.IsAbility():
		return "S"
	case a.Valid():
		return fmt.Sprintf("%d %d", a.Column(), a.Rotation())
	default:
		return fmt.Sprintf("invalid(%d)", uint8(a))
	}
}

// ActionResult is the outcome of applying one action to a board.
type ActionResult struct {
	Chains int
	// Obstacle is the garbage generated for the opponent.
	Obstacle int
	// SkillGauge is the ability charge removed from the opponent.
	SkillGauge int
	// FireHeight is the first-round height delta between columns outside
	// and inside the initially touched set.
	FireHeight int8
}

// MaxSequence is the capacity of a Sequence.
const MaxSequence = 16

// Sequence packs up to MaxSequence actions, one byte each, into 128 bits.
// It is a value type: copying a Sequence copies the whole plan.
type Sequence [2]uint64

// Len returns the number of actions stored.
func (s Sequence) Len() int {
	n := 0
	for n < MaxSequence && s.At(n) != NoAction {
		n++
	}
	return n
}

// At returns the i-th action, NoAction past the end.
func (s Sequence) At(i int) Action {
	return Action(s[i/8] >> (8 * uint(i%8)))
}

// Push returns s with a appended. Pushing onto a full sequence is a
// programming error and panics.
func (s Sequence) Push(a Action) Sequence {
	if !a.Valid() {
		panic(fmt.Sprintf("game: cannot push action %d", uint8(a)))
	}
	n := s.Len()
	if n >= MaxSequence {
		panic("game: sequence capacity exceeded")
	}
	s[n/8] |= uint64(a) << (8 * uint(n%8))
	return s
}

// Actions expands the sequence.
func (s Sequence) Actions() []Action {
	n := s.Len()
	out := make([]Action, n)
	for i := range out {
		out[i] = s.At(i)
	}
	return out
}

// SequenceOf packs actions into a Sequence.
func SequenceOf(actions ...Action) Sequence {
	var s Sequence
	for _, a := range actions {
		s = s.Push(a)
	}
	return s
}
