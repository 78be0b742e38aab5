package game

import "math/bits"

// Lane arithmetic over packed columns. A column is 16 lanes of 4 bits.
// The helpers below return lane-replicated masks: 0xF in every lane that
// matches and 0 elsewhere.

const (
	laneLow  = 0x1111111111111111
	byteLow  = 0x0101010101010101
	evenLane = 0x0F0F0F0F0F0F0F0F
)

// sumIsTen flags the bytes of a+b whose low 5 bits equal 0b01010. Each input
// byte holds one 4-bit value, so the sum never carries across bytes.
func sumIsTen(a, b uint64) uint64 {
	c := a + b
	d := ^c
	v := d & (c >> 1) & (d >> 2) & (c >> 3) & (d >> 4) & byteLow
	return v * 0x0F
}

// calcRemove flags the lanes where c1 and c2 sum to exactly VanishSum.
// Even and odd lanes are spread into separate bytes so they can be added
// without carries, then recombined.
func calcRemove(c1, c2 uint64) uint64 {
	even := sumIsTen(c1&evenLane, c2&evenLane)
	odd := sumIsTen(c1>>4&evenLane, c2>>4&evenLane) << 4
	return even | odd
}

// laneEquals flags lanes holding exactly v (0..15).
func laneEquals(c uint64, v uint) uint64 {
	d := ^c
	pick := func(bit uint) uint64 {
		if v>>bit&1 == 1 {
			return c >> bit
		}
		return d >> bit
	}
	return (pick(0) & pick(1) & pick(2) & pick(3) & laneLow) * 0x0F
}

func bombMask(c uint64) uint64 { return laneEquals(c, Bomb) }

func obstacleMask(c uint64) uint64 { return laneEquals(c, Obstacle) }

func emptyMask(c uint64) uint64 { return laneEquals(c, Empty) }

// heightOf is the number of occupied lanes of a packed column, or of the
// highest flagged lane of a mask.
func heightOf(c uint64) int {
	return (64 - bits.LeadingZeros64(c) + 3) / 4
}

// compact deletes the lanes flagged in mask and shifts every lane above
// a deleted one down. Lanes are removed from the top so lower indices stay
// valid while iterating.
func compact(c, mask uint64) uint64 {
	for mask != 0 {
		lane := uint(63-bits.LeadingZeros64(mask)) / 4
		low := uint64(1)<<(4*lane) - 1
		c = c&low | (c>>4)&^low
		mask &^= 0xF << (4 * lane)
	}
	return c
}

// fallByMask compacts every column by its mask and returns the set of
// columns that changed.
func (b *Board) fallByMask(mask *[W]uint64) uint16 {
	var changed uint16
	for x := 0; x < W; x++ {
		if mask[x] == 0 {
			continue
		}
		changed |= 1 << x
		b.column[x] = compact(b.column[x], mask[x])
	}
	return changed
}

// vanish resolves the cascade starting from the columns in changed and
// returns the chain count and the first-round fire height.
func (b *Board) vanish(changed uint16) (int, int8) {
	chains := 0
	var fire int8
	touched := changed

	for {
		scan := changed | changed>>1
		var remove [W]uint64

		for x := 0; x < W-1; x++ {
			if scan&(1<<x) == 0 {
				continue
			}
			c, n := b.column[x], b.column[x+1]

			r := calcRemove(c, c<<4)
			remove[x] |= r | r>>4

			r = calcRemove(c, n)
			remove[x] |= r
			remove[x+1] |= r

			r = calcRemove(c, n<<4)
			remove[x] |= r
			remove[x+1] |= r >> 4

			r = calcRemove(c, n>>4)
			remove[x] |= r
			remove[x+1] |= r << 4
		}
		if scan&(1<<(W-1)) != 0 {
			c := b.column[W-1]
			r := calcRemove(c, c<<4)
			remove[W-1] |= r | r>>4
		}

		if chains == 0 {
			fire = fireHeight(&remove, touched)
		}

		changed = b.fallByMask(&remove)
		if changed == 0 {
			return chains, fire
		}
		chains++
	}
}

// fireHeight is the tallest removal among columns outside touched minus the
// tallest removal among touched columns.
func fireHeight(remove *[W]uint64, touched uint16) int8 {
	in, out := 0, 0
	for x := 0; x < W; x++ {
		h := heightOf(remove[x])
		if touched&(1<<x) != 0 {
			in = max(in, h)
		} else {
			out = max(out, h)
		}
	}
	return int8(out - in)
}
