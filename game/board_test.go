package game

import (
	"testing"
)

func logPut(t *testing.T, label string, before *Board, piece Piece, pos, rot int, after *Board, result ActionResult) {
	t.Logf("%s\n  BEFORE (piece=%v pos=%d rot=%d):\n%s  AFTER (%+v):\n%s",
		label, piece, pos, rot, before.String(), result, after.String())
}

func TestPieceRotate(t *testing.T) {
	p := Piece{{1, 2}, {3, 4}}
	tests := []struct {
		rot  int
		want Piece
	}{
		{0, Piece{{1, 2}, {3, 4}}},
		{1, Piece{{3, 1}, {4, 2}}},
		{2, Piece{{4, 3}, {2, 1}}},
		{3, Piece{{2, 4}, {1, 3}}},
		{4, Piece{{1, 2}, {3, 4}}},
	}
	for _, tt := range tests {
		if got := p.Rotate(tt.rot); got != tt.want {
			t.Fatalf("Rotate(%d)=%v want %v", tt.rot, got, tt.want)
		}
	}
}

func TestPut_TwoChainFromDiagonalPair(t *testing.T) {
	before := FromColumns([W]uint64{0x07B1819, 0x0008832})
	after := before
	piece := Piece{{1, 9}, {0, 0}}

	result := after.Put(piece, 0, 0)
	logPut(t, "two chain", &before, piece, 0, 0, &after, result)

	want := [W]uint64{27, 136}
	if after.Columns() != want {
		t.Fatalf("columns=%v want %v", after.Columns(), want)
	}
	if result.Chains != 2 {
		t.Fatalf("chains=%d want 2", result.Chains)
	}
	if result.Obstacle != ChainObstacle(2) {
		t.Fatalf("obstacle=%d want %d", result.Obstacle, ChainObstacle(2))
	}
}

func TestPut_RotatedPieceAcrossThreeColumns(t *testing.T) {
	before := FromColumns([W]uint64{0x17B1819, 0x0098832})
	after := before
	piece := Piece{{9, 5}, {0, 3}}

	result := after.Put(piece, 1, 3)
	logPut(t, "rotated", &before, piece, 1, 3, &after, result)

	want := [W]uint64{11, 1416, 3}
	if after.Columns() != want {
		t.Fatalf("columns=%v want %v", after.Columns(), want)
	}
	if result.Chains != 2 {
		t.Fatalf("chains=%d want 2", result.Chains)
	}
}

// stackedPairs drops three pieces that leave 1,2,4,8,9 in column 0 and a 3
// in column 1. A 6 landing beside the 4 then clears 4+6, 2+8 and 1+9.
func stackedPairs(t *testing.T) Board {
	t.Helper()
	var b Board
	for _, p := range []Piece{
		{{2, 0}, {1, 3}},
		{{8, 0}, {4, 0}},
		{{0, 0}, {9, 0}},
	} {
		if r := b.Put(p, 0, 0); r.Chains != 0 {
			t.Fatalf("seeding piece %v chained: %+v\n%s", p, r, b.String())
		}
	}
	return b
}

var triggerPiece = Piece{{0, 0}, {0, 6}}

func TestPut_StackedPairsCascade(t *testing.T) {
	before := stackedPairs(t)
	after := before
	result := after.Put(triggerPiece, 0, 0)
	logPut(t, "stacked pairs", &before, triggerPiece, 0, 0, &after, result)

	if result.Chains != 3 {
		t.Fatalf("chains=%d want 3", result.Chains)
	}
	if result.Obstacle != ChainObstacle(3) {
		t.Fatalf("obstacle=%d want %d", result.Obstacle, ChainObstacle(3))
	}
	if result.SkillGauge != GaugeBreak(3) {
		t.Fatalf("skill gauge=%d want %d", result.SkillGauge, GaugeBreak(3))
	}
	// First round removes up to row 3 in column 0, only touched column is 1.
	if result.FireHeight != 1 {
		t.Fatalf("fire height=%d want 1", result.FireHeight)
	}
	if after.Height(0) != 0 || after.Cell(1, 0) != 3 || after.Height(1) != 1 {
		t.Fatalf("unexpected board after cascade:\n%s", after.String())
	}
}

func TestPut_Deterministic(t *testing.T) {
	base := stackedPairs(t)
	for a := Action(1); a < UseAbility; a++ {
		b1, b2 := base, base
		r1 := b1.Put(triggerPiece, a.Column(), a.Rotation())
		r2 := b2.Put(triggerPiece, a.Column(), a.Rotation())
		if r1 != r2 || b1 != b2 {
			t.Fatalf("action %v is not deterministic", a)
		}
	}
}

func TestPut_OverflowKillsBoard(t *testing.T) {
	full := uint64(0xBBBBBBBBBBBBBBBB)
	b := FromColumns([W]uint64{full})
	if b.IsDead() {
		t.Fatal("full board should not be dead before a drop")
	}
	if r := b.Put(Piece{{1, 1}, {1, 1}}, 0, 0); r != (ActionResult{}) {
		t.Fatalf("overflow produced result %+v", r)
	}
	if !b.IsDead() {
		t.Fatal("board should be dead after overflowing column 0")
	}
	snapshot := b
	if r := b.Put(Piece{{9, 1}, {1, 9}}, 4, 0); r != (ActionResult{}) || b != snapshot {
		t.Fatalf("dead board changed: %+v", r)
	}
}

func TestUseAbility_RemovesNeighbourhoodButNotObstacles(t *testing.T) {
	before := FromColumns([W]uint64{
		0x251, // 1,5,2 from the bottom
		0x3B,  // obstacle, 3
		0x8B,  // obstacle, 8
	})
	after := before
	result := after.UseAbility()
	t.Logf("ability %+v\nBEFORE:\n%sAFTER:\n%s", result, before.String(), after.String())

	if result.Obstacle != BombObstacle(4) {
		t.Fatalf("obstacle=%d want %d", result.Obstacle, BombObstacle(4))
	}
	if result.Chains != 0 {
		t.Fatalf("chains=%d want 0", result.Chains)
	}
	want := [W]uint64{0, 0xB, 0x8B}
	if after.Columns() != want {
		t.Fatalf("columns=%x want %x", after.Columns(), want)
	}
}

func TestUseAbility_EmptyBoard(t *testing.T) {
	var b Board
	if r := b.UseAbility(); r != (ActionResult{}) {
		t.Fatalf("ability on empty board = %+v", r)
	}
}

func TestFallObstacle(t *testing.T) {
	var b Board
	b.FallObstacle()
	for x := 0; x < W; x++ {
		if b.Height(x) != 1 || b.Cell(x, 0) != Obstacle {
			t.Fatalf("column %d after obstacle fall:\n%s", x, b.String())
		}
	}
	if b.IsEmpty() {
		t.Fatal("board reported empty")
	}
}

func TestFromGrid_TopRowFirst(t *testing.T) {
	grid := make([]uint8, W*H)
	grid[(H-1)*W] = 7 // bottom-left
	grid[W-1] = Obstacle
	b := FromGrid(grid)
	if b.Cell(0, 0) != 7 {
		t.Fatalf("bottom-left=%d want 7", b.Cell(0, 0))
	}
	if b.Cell(W-1, H-1) != Obstacle {
		t.Fatalf("top-right=%d want %d", b.Cell(W-1, H-1), Obstacle)
	}
	if b.MaxHeight() != H {
		t.Fatalf("max height=%d want %d", b.MaxHeight(), H)
	}
	back := b.Grid()
	for i := range grid {
		if back[i] != grid[i] {
			t.Fatalf("Grid()[%d]=%d want %d", i, back[i], grid[i])
		}
	}
}

func TestHeightsAndSkyline(t *testing.T) {
	b := FromColumns([W]uint64{0x111, 0x1, 0x11111})
	if got := b.AdjustHeightMin(0); got != 1 {
		t.Fatalf("AdjustHeightMin(0)=%d want 1", got)
	}
	if got := b.AdjustHeightMin(1); got != 3 {
		t.Fatalf("AdjustHeightMin(1)=%d want 3", got)
	}
	if got := b.AdjustHeightMin(2); got != 0 {
		t.Fatalf("AdjustHeightMin(2)=%d want 0", got)
	}
	if got := b.MaxHeight(); got != 5 {
		t.Fatalf("MaxHeight=%d want 5", got)
	}
}

func TestHash_DistinguishesCells(t *testing.T) {
	a := FromColumns([W]uint64{0x12})
	b := FromColumns([W]uint64{0x21})
	c := FromColumns([W]uint64{0x12})
	if a.Hash() == b.Hash() {
		t.Fatal("different boards share a hash")
	}
	if a.Hash() != c.Hash() {
		t.Fatal("equal boards hash differently")
	}
	if d := FromColumns([W]uint64{0, 0x12}); a.Hash() == d.Hash() {
		t.Fatal("shifted column shares a hash")
	}
}

func TestScoringTable(t *testing.T) {
	chains := []struct{ n, obstacle, gauge int }{
		{0, 0, 0},
		{1, 0, 0},
		{2, 1, 0},
		{3, 2, 18},
		{4, 3, 20},
		{5, 4, 22},
	}
	for _, tt := range chains {
		if got := ChainObstacle(tt.n); got != tt.obstacle {
			t.Fatalf("ChainObstacle(%d)=%d want %d", tt.n, got, tt.obstacle)
		}
		if got := GaugeBreak(tt.n); got != tt.gauge {
			t.Fatalf("GaugeBreak(%d)=%d want %d", tt.n, got, tt.gauge)
		}
	}
	for n := 2; n <= 40; n++ {
		if ChainObstacle(n) < ChainObstacle(n-1) {
			t.Fatalf("ChainObstacle not monotonic at %d", n)
		}
	}

	bombs := []struct{ n, want int }{{0, 0}, {12, 25}, {24, 50}}
	for _, tt := range bombs {
		if got := BombObstacle(tt.n); got != tt.want {
			t.Fatalf("BombObstacle(%d)=%d want %d", tt.n, got, tt.want)
		}
	}
}

func BenchmarkPut(b *testing.B) {
	base := FromColumns([W]uint64{0x07B1819, 0x0008832})
	piece := Piece{{1, 9}, {0, 0}}
	for i := 0; i < b.N; i++ {
		bd := base
		bd.Put(piece, 0, 0)
	}
}
