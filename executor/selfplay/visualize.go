package selfplay

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/brensch/rensa/game"
)

// PrintBoard traces both boards side by side at debug level.
func PrintBoard(log zerolog.Logger, turn int, a, b *game.Player) {
	if log.GetLevel() > zerolog.DebugLevel {
		return
	}
	log.Debug().Int("turn", turn).Msg("\n" + RenderBoards(a, b))
}

// RenderBoards draws two players next to each other with their pending
// garbage and gauge underneath.
func RenderBoards(a, b *game.Player) string {
	left := strings.Split(strings.TrimRight(a.Board.String(), "\n"), "\n")
	right := strings.Split(strings.TrimRight(b.Board.String(), "\n"), "\n")

	var sb strings.Builder
	for y := range left {
		sb.WriteString(left[y])
		sb.WriteString(" | ")
		sb.WriteString(right[y])
		sb.WriteByte('\n')
	}
	status := func(p *game.Player) string {
		s := fmt.Sprintf("o%d g%d", p.Obstacle, p.SkillGauge)
		if p.IsDead() {
			s = "dead"
		}
		return fmt.Sprintf("%-*.*s", game.W, game.W, s)
	}
	sb.WriteString(status(a))
	sb.WriteString(" | ")
	sb.WriteString(status(b))
	sb.WriteByte('\n')
	return sb.String()
}
