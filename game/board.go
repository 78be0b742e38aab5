// Package game defines the board, pieces and player state of the chain puzzle.
//
// The board is bit-packed: each column is a uint64 holding H cells of 4 bits,
// cell 0 at the bottom. Chain resolution works on whole columns at once, so a
// Board is a small value that is cheap to copy during search.
package game

import (
	"math/bits"
	"strings"
)

// Piece is the 2x2 block pattern for one turn, indexed [row][col] with row 0
// on top. Zero cells are empty.
type Piece [2][2]uint8

// Rotate returns the piece turned clockwise rot times.
func (p Piece) Rotate(rot int) Piece {
	for ; rot > 0; rot-- {
		p = Piece{
			{p[1][0], p[0][0]},
			{p[1][1], p[0][1]},
		}
	}
	return p
}

// Board is the packed playing field of one player.
type Board struct {
	column [W]uint64
	dead   bool
}

// FromGrid builds a board from H*W cells in row-major order with the top
// row first, the layout used by the turn protocol.
func FromGrid(grid []uint8) Board {
	var b Board
	for y := 0; y < H; y++ {
		for x := 0; x < W; x++ {
			b.column[x] |= uint64(grid[(H-1-y)*W+x]&0xF) << (4 * y)
		}
	}
	return b
}

// Grid is the inverse of FromGrid.
func (b *Board) Grid() []uint8 {
	grid := make([]uint8, W*H)
	for y := 0; y < H; y++ {
		for x := 0; x < W; x++ {
			grid[(H-1-y)*W+x] = b.Cell(x, y)
		}
	}
	return grid
}

// FromColumns builds a board from packed columns.
func FromColumns(columns [W]uint64) Board {
	return Board{column: columns}
}

// Columns returns the packed columns.
func (b *Board) Columns() [W]uint64 { return b.column }

// Cell returns the value at column x, row y (row 0 is the bottom).
func (b *Board) Cell(x, y int) uint8 {
	return uint8(b.column[x] >> (4 * uint(y)) & 0xF)
}

// Height is the number of occupied cells in column x.
func (b *Board) Height(x int) int { return heightOf(b.column[x]) }

// MaxHeight is the tallest column height.
func (b *Board) MaxHeight() int {
	h := 0
	for x := 0; x < W; x++ {
		h = max(h, b.Height(x))
	}
	return h
}

// AdjustHeightMin is the lowest neighbouring column height of x, the skyline
// a block in column x has to stand above to be exposed.
func (b *Board) AdjustHeightMin(x int) int {
	h := H
	if x > 0 {
		h = min(h, b.Height(x-1))
	}
	if x < W-1 {
		h = min(h, b.Height(x+1))
	}
	return h
}

// IsEmpty reports whether no cell is occupied.
func (b *Board) IsEmpty() bool {
	for _, c := range b.column {
		if c != 0 {
			return false
		}
	}
	return true
}

// IsDead reports whether a column has overflowed.
func (b *Board) IsDead() bool { return b.dead }

func (b *Board) fall(x int, v uint64) {
	h := b.Height(x)
	if h >= H {
		b.dead = true
		return
	}
	b.column[x] |= v << (4 * uint(h))
}

// Put drops the piece rotated rot times into columns pos and pos+1 and
// resolves the resulting cascade.
func (b *Board) Put(p Piece, pos, rot int) ActionResult {
	if b.dead {
		return ActionResult{}
	}
	p = p.Rotate(rot)
	var changed uint16
	for d := 0; d < 2; d++ {
		for row := 1; row >= 0; row-- {
			v := p[row][d]
			if v == 0 {
				continue
			}
			b.fall(pos+d, uint64(v))
			changed |= 1 << (pos + d)
		}
	}
	if b.dead {
		return ActionResult{}
	}
	chains, fire := b.vanish(changed)
	return chainResult(chains, fire)
}

// PutOne drops a single value into column x. It is a search probe, not a
// legal move.
func (b *Board) PutOne(v uint8, x int) ActionResult {
	if b.dead {
		return ActionResult{}
	}
	b.fall(x, uint64(v))
	if b.dead {
		return ActionResult{}
	}
	chains, fire := b.vanish(1 << x)
	return chainResult(chains, fire)
}

// UseAbility removes every 5 together with its surrounding cells, except
// obstacles, and resolves the cascade that follows.
func (b *Board) UseAbility() ActionResult {
	if b.dead {
		return ActionResult{}
	}
	var bombed [W]uint64
	for x := 0; x < W; x++ {
		fives := bombMask(b.column[x])
		if fives == 0 {
			continue
		}
		m := fives<<4 | fives | fives>>4
		bombed[x] |= m
		if x > 0 {
			bombed[x-1] |= m
		}
		if x < W-1 {
			bombed[x+1] |= m
		}
	}

	blocks := 0
	for x := 0; x < W; x++ {
		c := b.column[x]
		bombed[x] &^= obstacleMask(c) | emptyMask(c)
		blocks += bits.OnesCount64(bombed[x]) / 4
	}

	changed := b.fallByMask(&bombed)
	chains, fire := b.vanish(changed)
	return bombResult(blocks, chains, fire)
}

// FallObstacle adds one obstacle cell on top of every column.
func (b *Board) FallObstacle() {
	for x := 0; x < W; x++ {
		b.fall(x, Obstacle)
	}
}

// String renders the board top row first, obstacles as X and empty cells as '.'.
func (b *Board) String() string {
	var sb strings.Builder
	for y := H - 1; y >= 0; y-- {
		for x := 0; x < W; x++ {
			switch v := b.Cell(x, y); {
			case v == Empty:
				sb.WriteByte('.')
			case v > VanishSum:
				sb.WriteByte('X')
			default:
				sb.WriteByte('0' + v)
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
