// Package protocol speaks the line-oriented turn protocol of the match
// runner: the bot prints its name, reads the whole piece queue, then for
// every turn reads both players' state and prints one action.
package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/brensch/rensa/game"
)

// MaxTurn is the length of the piece queue sent before the first turn.
const MaxTurn = 500

const endToken = "END"

// ErrUnexpectedEOF is returned when the input ends inside a message.
var ErrUnexpectedEOF = errors.New("protocol: unexpected end of input")

// Turn is one turn's input.
type Turn struct {
	Index       int
	RemainingMs int
	Self        game.Player
	SelfScore   int
	Enemy       game.Player
	EnemyScore  int
	// EnemyRemainingMs is the opponent's clock, informational only.
	EnemyRemainingMs int
}

// Remaining returns the own clock as a duration.
func (t Turn) Remaining() time.Duration {
	return time.Duration(t.RemainingMs) * time.Millisecond
}

// Reader reads whitespace separated tokens from the runner.
type Reader struct {
	sc *bufio.Scanner
}

func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)
	return &Reader{sc: sc}
}

func (r *Reader) token() (string, error) {
	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return "", fmt.Errorf("read token: %w", err)
		}
		return "", ErrUnexpectedEOF
	}
	return r.sc.Text(), nil
}

func (r *Reader) number() (int, error) {
	tok, err := r.token()
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(tok)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", tok, err)
	}
	return v, nil
}

func (r *Reader) end() error {
	tok, err := r.token()
	if err != nil {
		return err
	}
	if tok != endToken {
		return fmt.Errorf("expected %s, got %q", endToken, tok)
	}
	return nil
}

func (r *Reader) cell() (uint8, error) {
	v, err := r.number()
	if err != nil {
		return 0, err
	}
	if v < 0 || v > game.Obstacle {
		return 0, fmt.Errorf("cell value %d out of range", v)
	}
	return uint8(v), nil
}

// ReadPieces reads n packs of four cells, each followed by END. A pack
// lists the top row first.
func (r *Reader) ReadPieces(n int) ([]game.Piece, error) {
	pieces := make([]game.Piece, n)
	for i := range pieces {
		for cell := 0; cell < 4; cell++ {
			v, err := r.cell()
			if err != nil {
				return nil, fmt.Errorf("pack %d: %w", i, err)
			}
			pieces[i][cell/2][cell%2] = v
		}
		if err := r.end(); err != nil {
			return nil, fmt.Errorf("pack %d: %w", i, err)
		}
	}
	return pieces, nil
}

func (r *Reader) readBoard() (game.Board, error) {
	grid := make([]uint8, game.W*game.H)
	for i := range grid {
		v, err := r.cell()
		if err != nil {
			return game.Board{}, err
		}
		grid[i] = v
	}
	return game.FromGrid(grid), nil
}

// readPlayer reads "obstacle gauge score board... END".
func (r *Reader) readPlayer() (game.Player, int, error) {
	obstacle, err := r.number()
	if err != nil {
		return game.Player{}, 0, err
	}
	gauge, err := r.number()
	if err != nil {
		return game.Player{}, 0, err
	}
	score, err := r.number()
	if err != nil {
		return game.Player{}, 0, err
	}
	board, err := r.readBoard()
	if err != nil {
		return game.Player{}, 0, err
	}
	if err := r.end(); err != nil {
		return game.Player{}, 0, err
	}
	return game.NewPlayer(board, obstacle, gauge), score, nil
}

// ReadTurn reads one turn. io.EOF is returned when the input ends cleanly
// before the turn starts.
func (r *Reader) ReadTurn() (Turn, error) {
	var t Turn
	var err error
	if t.Index, err = r.number(); err != nil {
		if errors.Is(err, ErrUnexpectedEOF) {
			return t, io.EOF
		}
		return t, fmt.Errorf("turn: %w", err)
	}
	if t.RemainingMs, err = r.number(); err != nil {
		return t, fmt.Errorf("turn %d: %w", t.Index, err)
	}
	if t.Self, t.SelfScore, err = r.readPlayer(); err != nil {
		return t, fmt.Errorf("turn %d self: %w", t.Index, err)
	}
	if t.EnemyRemainingMs, err = r.number(); err != nil {
		return t, fmt.Errorf("turn %d enemy: %w", t.Index, err)
	}
	if t.Enemy, t.EnemyScore, err = r.readPlayer(); err != nil {
		return t, fmt.Errorf("turn %d enemy: %w", t.Index, err)
	}
	return t, nil
}

// WriteName prints the bot name line.
func WriteName(w io.Writer, name string) error {
	_, err := fmt.Fprintln(w, name)
	return err
}

// WriteAction prints "<col> <rot>" or "S".
func WriteAction(w io.Writer, a game.Action) error {
	if !a.Valid() {
		return fmt.Errorf("write action: invalid action %d", uint8(a))
	}
	_, err := fmt.Fprintln(w, a.String())
	return err
}
