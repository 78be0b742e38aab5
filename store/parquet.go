package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

// Schema is written into every file's key/value metadata.
const Schema = "rensa_turn_v1"

// ErrNoRows is returned when a file holds no turn rows.
var ErrNoRows = errors.New("store: no rows")

// TurnRow is a single (game, turn) snapshot of a self-play game.
//
// Rows are recorded before the turn's actions are applied, plus one terminal
// row per game whose players carry Action = -1.
type TurnRow struct {
	GameID string `parquet:"game_id,dict"`
	Seed   int64  `parquet:"seed"`
	Turn   int32  `parquet:"turn"`
	Width  int32  `parquet:"width"`
	Height int32  `parquet:"height"`

	// Piece is the piece both players receive this turn, row-major, top row first.
	Piece []byte `parquet:"piece"`

	Players []PlayerRow `parquet:"players"`

	Source string `parquet:"source,dict"`
}

// PlayerRow is one side of a TurnRow.
type PlayerRow struct {
	Side int32 `parquet:"side"`
	// Cells is the board, Width*Height values top row first.
	Cells      []byte `parquet:"cells"`
	Obstacle   int32  `parquet:"obstacle"`
	SkillGauge int32  `parquet:"skill_gauge"`
	Dead       bool   `parquet:"dead"`

	Mode   string `parquet:"mode,dict"`
	Action int32  `parquet:"action"`
	Chains int32  `parquet:"chains"`
	Attack int32  `parquet:"attack"`

	// Value is the final outcome from this side: 1 win, -1 loss, 0 draw.
	Value float32 `parquet:"value"`
}

func writerOptions() []parquet.WriterOption {
	return []parquet.WriterOption{
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", Schema),
	}
}

// WriteBatchParquetAtomic writes rows into outDir/tmp and then renames the
// file into outDir, so readers never observe a partially written file.
// The returned path is the final parquet file path.
func WriteBatchParquetAtomic(outDir string, rows []TurnRow) (string, error) {
	if len(rows) == 0 {
		return "", ErrNoRows
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	tmpDir := filepath.Join(outDir, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return "", fmt.Errorf("create tmp dir: %w", err)
	}

	name := fmt.Sprintf("batch_%d.parquet", time.Now().UnixNano())
	finalPath := filepath.Join(outDir, name)
	tmpPath := filepath.Join(tmpDir, name+".tmp")
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, rows, writerOptions()...); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("write parquet: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("rename parquet: %w", err)
	}
	return finalPath, nil
}

// ReadRows loads every row of a batch file.
func ReadRows(path string) ([]TurnRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat parquet: %w", err)
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet %s: %w", path, err)
	}

	reader := parquet.NewGenericReader[TurnRow](pf)
	defer reader.Close()

	out := make([]TurnRow, 0, reader.NumRows())
	for {
		// Fresh buffer per read: decoded rows may alias the buffer's slices.
		buf := make([]TurnRow, 256)
		n, err := reader.Read(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read parquet %s: %w", path, err)
		}
		if n == 0 {
			break
		}
	}
	if len(out) == 0 {
		return nil, ErrNoRows
	}
	return out, nil
}
