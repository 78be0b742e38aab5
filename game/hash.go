package game

import (
	"encoding/binary"

	"github.com/zeebo/xxh3"
)

const columnBytes = W * 8

func (b *Board) putColumns(buf []byte) {
	for x, c := range b.column {
		binary.LittleEndian.PutUint64(buf[x*8:], c)
	}
}

// Hash is the xxh3 digest of the packed columns.
func (b *Board) Hash() uint64 {
	var buf [columnBytes]byte
	b.putColumns(buf[:])
	return xxh3.Hash(buf[:])
}

// Hash covers the board and the resources that influence future moves.
func (p *Player) Hash() uint64 {
	var buf [columnBytes + 16]byte
	p.Board.putColumns(buf[:])
	binary.LittleEndian.PutUint64(buf[columnBytes:], uint64(int64(p.Obstacle)))
	binary.LittleEndian.PutUint64(buf[columnBytes+8:], uint64(int64(p.SkillGauge)))
	return xxh3.Hash(buf[:])
}
