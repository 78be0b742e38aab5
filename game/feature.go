package game

import "math/bits"

// Feature is a set of structural counts taken from a board snapshot. It only
// guides scoring and never affects rules.
type Feature struct {
	// Keima counts pairs summing to 10 in adjacent columns two rows apart.
	Keima int
	// Keima2 is the same three rows apart.
	Keima2 int
	// Tate counts pairs summing to 10 in one column two rows apart.
	Tate int
	// Tate2 is the same three rows apart.
	Tate2          int
	NumBlock       int
	HeightVariance int
}

func pairs(c1, c2 uint64) int {
	return bits.OnesCount64(calcRemove(c1, c2)) / 4
}

// CalcFeature extracts the structural counts of b.
func (b *Board) CalcFeature() Feature {
	var f Feature
	for x := 0; x < W; x++ {
		c := b.column[x]
		f.Tate += pairs(c, c<<8)
		f.Tate2 += pairs(c, c<<12)
		f.NumBlock += bits.OnesCount64((^emptyMask(c))&^obstacleMask(c)) / 4
		if x == W-1 {
			continue
		}
		n := b.column[x+1]
		f.Keima += pairs(c, n<<8) + pairs(c, n>>8)
		f.Keima2 += pairs(c, n<<12) + pairs(c, n>>12)
		d := b.Height(x) - b.Height(x+1)
		f.HeightVariance += d * d
	}
	return f
}

// CalcMaxChainByEraseBlock simulates deleting each exposed block in turn and
// returns the strongest chain found with the column and row that triggered it.
// A block is exposed when it sits at or above the lower neighbouring column.
// x and y are -1 when no deletion starts a chain.
func (b *Board) CalcMaxChainByEraseBlock() (best ActionResult, bx, by int) {
	bx, by = -1, -1
	for x := 0; x < W; x++ {
		top := b.Height(x)
		for y := b.AdjustHeightMin(x); y < top; y++ {
			v := b.Cell(x, y)
			if v == Obstacle || v == Empty {
				continue
			}
			probe := *b
			probe.column[x] = compact(probe.column[x], 0xF<<(4*uint(y)))
			chains, fire := probe.vanish(1 << x)
			if chains > best.Chains {
				best = chainResult(chains, fire)
				bx, by = x, y
			}
		}
	}
	return best, bx, by
}
