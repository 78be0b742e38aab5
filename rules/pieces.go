package rules

import (
	"encoding/binary"
	"hash/fnv"
	"math/rand"

	"github.com/brensch/rensa/game"
)

// PieceSettings controls the generated piece queue.
// - EmptyChance: percentage chance (0-100) that a cell of a piece is blank.
//   At least one cell of every piece is always filled.
// - BombChance: percentage chance (0-100) that a filled cell is forced to
//   game.Bomb, which keeps the ability useful in self-play.
type PieceSettings struct {
	EmptyChance int
	BombChance  int
}

var DefaultPieceSettings = PieceSettings{EmptyChance: 10, BombChance: 4}

func clampPercent(v int) int {
	return min(max(v, 0), 100)
}

// GeneratePieces returns n pieces drawn from rng. A nil rng falls back to a
// generator seeded from PieceSeed(0, 0).
func GeneratePieces(rng *rand.Rand, n int, settings PieceSettings) []game.Piece {
	if rng == nil {
		rng = rand.New(rand.NewSource(PieceSeed(0, 0)))
	}
	settings.EmptyChance = clampPercent(settings.EmptyChance)
	settings.BombChance = clampPercent(settings.BombChance)

	pieces := make([]game.Piece, n)
	for i := range pieces {
		var p game.Piece
		filled := 0
		for cell := 0; cell < 4; cell++ {
			if rng.Intn(100) < settings.EmptyChance {
				continue
			}
			v := uint8(1 + rng.Intn(9))
			if rng.Intn(100) < settings.BombChance {
				v = game.Bomb
			}
			p[cell/2][cell%2] = v
			filled++
		}
		if filled == 0 {
			p[1][0] = uint8(1 + rng.Intn(9))
		}
		pieces[i] = p
	}
	return pieces
}

// PieceSeed derives a stable generator seed from a game seed and a salt, so
// workers that share a base seed still get distinct queues.
func PieceSeed(seed int64, salt uint64) int64 {
	h := fnv.New64a()
	var buf [8]byte

	binary.LittleEndian.PutUint64(buf[:], uint64(seed))
	_, _ = h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], salt)
	_, _ = h.Write(buf[:])

	s := int64(h.Sum64() >> 1)
	if s == 0 {
		s = 1
	}
	return s
}
