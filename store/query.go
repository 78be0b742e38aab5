package store

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
)

// Summary aggregates every game found under a set of output directories.
type Summary struct {
	Games     int64
	Rows      int64
	Wins      [2]int64
	Draws     int64
	MeanTurns float64
	MaxChains int64
	// Modes counts recorded actions by the mode that chose them.
	Modes map[string]int64
}

// Summarize reads every finished batch directly under roots with DuckDB.
// The glob is not recursive, so files still being written to tmp/ are never
// read. ErrNoRows is returned when no batch file exists.
func Summarize(ctx context.Context, roots []string) (Summary, error) {
	globs := make([]string, 0, len(roots))
	for _, root := range roots {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		glob := filepath.Join(root, "*.parquet")
		if matches, _ := filepath.Glob(glob); len(matches) == 0 {
			continue
		}
		globs = append(globs, "'"+escapeSQLString(glob)+"'")
	}
	if len(globs) == 0 {
		return Summary{}, ErrNoRows
	}

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return Summary{}, fmt.Errorf("open duckdb: %w", err)
	}
	defer db.Close()

	view := `CREATE OR REPLACE VIEW turns AS
		SELECT * FROM read_parquet([` + strings.Join(globs, ",") + `], union_by_name=true)`
	if _, err := db.ExecContext(ctx, view); err != nil {
		return Summary{}, fmt.Errorf("create view: %w", err)
	}

	var s Summary
	err = db.QueryRowContext(ctx, `
		WITH per_game AS (
			SELECT game_id, max(turn) AS turns, any_value(players[1].value) AS v0
			FROM turns GROUP BY game_id
		)
		SELECT
			count(*),
			CAST(coalesce(sum(CASE WHEN v0 > 0 THEN 1 ELSE 0 END), 0) AS BIGINT),
			CAST(coalesce(sum(CASE WHEN v0 < 0 THEN 1 ELSE 0 END), 0) AS BIGINT),
			coalesce(avg(turns), 0)
		FROM per_game`).Scan(&s.Games, &s.Wins[0], &s.Wins[1], &s.MeanTurns)
	if err != nil {
		return Summary{}, fmt.Errorf("query games: %w", err)
	}
	s.Draws = s.Games - s.Wins[0] - s.Wins[1]

	err = db.QueryRowContext(ctx, `
		SELECT (SELECT count(*) FROM turns), CAST(coalesce(max(p.chains), 0) AS BIGINT)
		FROM (SELECT unnest(players) AS p FROM turns)`).Scan(&s.Rows, &s.MaxChains)
	if err != nil {
		return Summary{}, fmt.Errorf("query players: %w", err)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT p.mode, count(*)
		FROM (SELECT unnest(players) AS p FROM turns)
		WHERE p.action >= 0
		GROUP BY p.mode ORDER BY p.mode`)
	if err != nil {
		return Summary{}, fmt.Errorf("query modes: %w", err)
	}
	defer rows.Close()
	s.Modes = make(map[string]int64)
	for rows.Next() {
		var (
			mode string
			n    int64
		)
		if err := rows.Scan(&mode, &n); err != nil {
			return Summary{}, fmt.Errorf("scan modes: %w", err)
		}
		s.Modes[mode] = n
	}
	if err := rows.Err(); err != nil {
		return Summary{}, fmt.Errorf("query modes: %w", err)
	}
	return s, nil
}

func escapeSQLString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
