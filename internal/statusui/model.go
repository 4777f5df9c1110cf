// Package statusui implements a live terminal dashboard over a hermes
// status snapshot, for `hermes watch`. Adapted from
// runforge/internal/sentinel/tui.go's MissionControlModel: the same
// tea.Tick-driven polling loop and single-screen layout, trimmed down
// from that model's three-tab run history browser since a routing/
// dispatch tick has no per-task result list to drill into, only rolling
// counters.
package statusui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hermes-router/hermes/internal/status"
)

type tickMsg time.Time

// Model is the Bubbletea model for the `hermes watch` dashboard. It polls
// a persisted status.Snapshot from disk rather than holding a live
// reference to a Tracker, since the dashboard is always a separate
// process from the running service (§5 "External interfaces").
type Model struct {
	path     string
	snapshot status.Snapshot
	readErr  error
	frame    int
	width    int
	height   int
}

// New creates a watch dashboard model polling the snapshot at path.
func New(path string) Model {
	return Model{path: path}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case tickMsg:
		m.frame++
		snap, err := status.Read(m.path)
		m.snapshot = snap
		m.readErr = err
		return m, tickCmd()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	if m.readErr != nil {
		b.WriteString(errStyle.Render("no status snapshot: " + m.readErr.Error()))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("q: quit"))
		return b.String()
	}

	b.WriteString(m.renderCounters())
	b.WriteString("\n")
	if m.snapshot.LastError != "" {
		b.WriteString("\n")
		b.WriteString(errStyle.Render("last error: " + m.snapshot.LastError))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("q: quit"))

	return b.String()
}

func (m Model) renderHeader() string {
	snap := m.snapshot
	uptime := time.Since(snap.StartedAt).Round(time.Second)

	spinner := ""
	if snap.Phase != status.PhaseIdle {
		spinner = spinnerChars[m.frame%len(spinnerChars)] + " "
	}

	return headerStyle.Render("hermes") +
		dimStyle.Render(fmt.Sprintf(" — uptime %s", uptime)) +
		"\n" + spinner + phaseStyle.Render(string(snap.Phase))
}

func (m Model) renderCounters() string {
	snap := m.snapshot
	var b strings.Builder

	b.WriteString(fmt.Sprintf("  Router ticks:       %s  (last %s)\n",
		activeStyle.Render(fmt.Sprintf("%d", snap.RouterTicks)), relative(snap.LastRouterTickAt)))
	b.WriteString(fmt.Sprintf("  Series routed:      %s\n", okStyle.Render(fmt.Sprintf("%d", snap.SeriesRouted))))
	b.WriteString(fmt.Sprintf("  Dispatcher ticks:   %s  (last %s)\n",
		activeStyle.Render(fmt.Sprintf("%d", snap.DispatcherTicks)), relative(snap.LastDispatcherTickAt)))
	b.WriteString(fmt.Sprintf("  Folders dispatched: %s\n", fmt.Sprintf("%d", snap.FoldersDispatched)))
	b.WriteString(fmt.Sprintf("  Folders succeeded:  %s\n", okStyle.Render(fmt.Sprintf("%d", snap.FoldersSucceeded))))
	b.WriteString(fmt.Sprintf("  Folders failed:     %s\n", errStyle.Render(fmt.Sprintf("%d", snap.FoldersFailed))))

	return b.String()
}

func relative(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return time.Since(t).Round(time.Second).String() + " ago"
}
