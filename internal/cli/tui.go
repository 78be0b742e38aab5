package cli

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/brensch/rensa/executor/selfplay"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Width(16)
	doneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

const recentGames = 10

type tickMsg time.Time

type gameMsg selfplay.GameResult

type doneMsg struct{}

func tickCmd() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForGame(updates <-chan selfplay.GameResult) tea.Cmd {
	return func() tea.Msg {
		res, ok := <-updates
		if !ok {
			return doneMsg{}
		}
		return gameMsg(res)
	}
}

// progressModel shows self-play throughput and the latest results.
type progressModel struct {
	start    time.Time
	now      time.Time
	counters *selfplay.Counters
	target   int
	updates  <-chan selfplay.GameResult

	finished  int
	wins      [2]int
	draws     int
	bestChain int
	recent    []string
	done      bool
}

func newProgressModel(counters *selfplay.Counters, target int, updates <-chan selfplay.GameResult) progressModel {
	now := time.Now()
	return progressModel{
		start:    now,
		now:      now,
		counters: counters,
		target:   target,
		updates:  updates,
	}
}

func (m progressModel) Init() tea.Cmd {
	return tea.Batch(waitForGame(m.updates), tickCmd())
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case tickMsg:
		m.now = time.Time(msg)
		return m, tickCmd()
	case gameMsg:
		res := selfplay.GameResult(msg)
		m.finished++
		if res.Winner >= 0 {
			m.wins[res.Winner]++
		} else {
			m.draws++
		}
		m.bestChain = max(m.bestChain, res.MaxChains[0], res.MaxChains[1])
		id := res.GameID
		if len(id) > 8 {
			id = id[:8]
		}
		line := fmt.Sprintf("%s  winner %2d  turns %3d  chains %d/%d  attack %d/%d",
			id, res.Winner, res.Turns, res.MaxChains[0], res.MaxChains[1], res.Attack[0], res.Attack[1])
		m.recent = append([]string{line}, m.recent...)
		if len(m.recent) > recentGames {
			m.recent = m.recent[:recentGames]
		}
		return m, waitForGame(m.updates)
	case doneMsg:
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m progressModel) View() string {
	elapsed := m.now.Sub(m.start)
	turns := m.counters.Turns.Load()
	rate := func(n int64) float64 {
		if elapsed < time.Second {
			return 0
		}
		return float64(n) / elapsed.Seconds()
	}
	row := func(label, value string) string {
		return labelStyle.Render(label) + value + "\n"
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("rensa selfplay"))
	sb.WriteString("\n\n")
	sb.WriteString(row("Games", fmt.Sprintf("%d / %d (skipped %d)", m.counters.Games.Load(), m.target, m.counters.Skipped.Load())))
	sb.WriteString(row("Wins", fmt.Sprintf("%d - %d (draws %d)", m.wins[0], m.wins[1], m.draws)))
	sb.WriteString(row("Best chain", fmt.Sprintf("%d", m.bestChain)))
	sb.WriteString(row("Turns", fmt.Sprintf("%d (%.1f/s)", turns, rate(turns))))
	sb.WriteString(row("Elapsed", elapsed.Round(time.Second).String()))

	sb.WriteString("\nRecent games:\n")
	for _, g := range m.recent {
		sb.WriteString("  " + g + "\n")
	}
	if m.done {
		sb.WriteString("\n" + doneStyle.Render("done") + "\n")
	} else {
		sb.WriteString("\nPress q to stop.\n")
	}
	return sb.String()
}
