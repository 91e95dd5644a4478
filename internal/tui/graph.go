// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"strings"
	"time"

	"audio/internal/pv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// tickMsg drives the periodic geometry refresh.
type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// GraphModel is the Bubble Tea model for the live PV graph dashboard: FFT
// size, overlap count, hop size, and the active transformer chain. It
// reads the Analyzer's Geometry on every tick rather than caching it,
// since AutoTune may rebuild it between ticks.
type GraphModel struct {
	analyzer   *pv.Analyzer
	stageNames []string
	playing    bool
}

// NewGraphModel builds a dashboard for the given Analyzer and the names
// of the transformer stages wired after it in source order.
func NewGraphModel(analyzer *pv.Analyzer, stageNames []string) GraphModel {
	return GraphModel{analyzer: analyzer, stageNames: stageNames}
}

func (m GraphModel) Init() tea.Cmd {
	return tick()
}

func (m GraphModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case tickMsg:
		m.playing = m.analyzer.Playing()
		return m, tick()
	}
	return m, nil
}

func (m GraphModel) View() string {
	g := m.analyzer.Geometry()

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Phase Vocoder Graph"))
	sb.WriteString("\n\n")

	state := "stopped"
	if m.playing {
		state = highlightStyle.Render("running")
	}
	sb.WriteString(infoStyle.Render(fmt.Sprintf("Analyzer: %s\n", state)))
	sb.WriteString(fmt.Sprintf("  FFT size (N):     %d\n", g.N))
	sb.WriteString(fmt.Sprintf("  Overlap count (O): %d\n", g.O))
	sb.WriteString(fmt.Sprintf("  Hop size (P):      %d\n", g.P))
	sb.WriteString(fmt.Sprintf("  Latency (L):       %d\n", g.L))
	sb.WriteString(fmt.Sprintf("  Bins (H+1):        %d\n", g.H+1))
	sb.WriteString("\n")

	sb.WriteString(infoStyle.Render("Transformer chain:\n"))
	if len(m.stageNames) == 0 {
		sb.WriteString("  (none)\n")
	} else {
		for i, name := range m.stageNames {
			sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, name))
		}
	}
	sb.WriteString("  -> Synthesizer\n")

	sb.WriteString("\n")
	sb.WriteString(lipgloss.NewStyle().Faint(true).Render("press q to quit"))
	sb.WriteString("\n")

	return sb.String()
}

// StartGraphUI launches the Bubble Tea TUI for the live PV graph
// dashboard.
func StartGraphUI(analyzer *pv.Analyzer, stageNames []string) error {
	p := tea.NewProgram(
		NewGraphModel(analyzer, stageNames),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}
