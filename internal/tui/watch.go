// Package tui holds the interactive terminal views: a live window table fed
// by the daemon's event stream and a form for window descriptors.
package tui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/1broseidon/winstate/internal/event"
	"github.com/1broseidon/winstate/internal/ipc"
	"github.com/1broseidon/winstate/internal/lifecycle"
)

// maxLogLines bounds the recent-event pane.
const maxLogLines = 8

// Source is the daemon surface the watcher reads from. *ipc.Client
// satisfies it.
type Source interface {
	ListWindows() ([]lifecycle.Record, error)
	GetStatus() (*ipc.StatusData, error)
	CloseWindow(id event.WindowID) error
	Subscribe(ctx context.Context, filter ipc.SubscribePayload, fn func(event.Event) error) error
}

type (
	eventMsg   struct{ ev event.Event }
	streamMsg  struct{ err error }
	refreshMsg struct {
		records []lifecycle.Record
		status  *ipc.StatusData
		err     error
	}
)

type watchModel struct {
	src   Source
	table table.Model

	records []lifecycle.Record
	status  *ipc.StatusData
	log     []string
	err     error
	ended   bool

	width  int
	height int
}

func newWatchModel(src Source) watchModel {
	t := table.New(
		table.WithColumns(columns()),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	t.SetStyles(tableStyles())
	return watchModel{src: src, table: t}
}

func columns() []table.Column {
	return []table.Column{
		{Title: "ID", Width: 5},
		{Title: "State", Width: 16},
		{Title: "Title", Width: 20},
		{Title: "Size", Width: 13},
		{Title: "Position", Width: 11},
		{Title: "Focus", Width: 5},
		{Title: "Scale", Width: 5},
		{Title: "Chars", Width: 6},
	}
}

func row(rec lifecycle.Record) table.Row {
	focus := ""
	if rec.Focused {
		focus = "*"
	}
	return table.Row{
		fmt.Sprintf("%d", rec.ID),
		rec.State.String(),
		rec.Descriptor.Title,
		fmt.Sprintf("%gx%g", rec.Size.Width, rec.Size.Height),
		fmt.Sprintf("%d,%d", rec.Position.X, rec.Position.Y),
		focus,
		fmt.Sprintf("%g", rec.EffectiveScaleFactor()),
		fmt.Sprintf("%d", rec.Chars),
	}
}

func (m watchModel) refresh() tea.Msg {
	records, err := m.src.ListWindows()
	if err != nil {
		return refreshMsg{err: err}
	}
	status, err := m.src.GetStatus()
	return refreshMsg{records: records, status: status, err: err}
}

func (m watchModel) selected() (event.WindowID, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.records) {
		return 0, false
	}
	return m.records[i].ID, true
}

// Init implements tea.Model.
func (m watchModel) Init() tea.Cmd {
	return m.refresh
}

// Update implements tea.Model.
func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			return m, m.refresh
		case "x":
			id, ok := m.selected()
			if !ok {
				return m, nil
			}
			src := m.src
			return m, func() tea.Msg {
				if err := src.CloseWindow(id); err != nil {
					return refreshMsg{err: err}
				}
				return nil
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		h := m.height - maxLogLines - 5
		if h < 3 {
			h = 3
		}
		m.table.SetHeight(h)
		return m, nil

	case eventMsg:
		m.log = append(m.log, describe(msg.ev))
		if len(m.log) > maxLogLines {
			m.log = m.log[len(m.log)-maxLogLines:]
		}
		return m, m.refresh

	case streamMsg:
		m.ended = true
		m.err = msg.err
		return m, nil

	case refreshMsg:
		m.err = msg.err
		if msg.err != nil {
			return m, nil
		}
		m.records = msg.records
		m.status = msg.status
		rows := make([]table.Row, 0, len(m.records))
		for _, rec := range m.records {
			rows = append(rows, row(rec))
		}
		m.table.SetRows(rows)
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func describe(ev event.Event) string {
	line := ev.Kind().String()
	if id, ok := event.Window(ev); ok {
		line = fmt.Sprintf("#%d %s", id, line)
	}
	switch e := ev.(type) {
	case event.WindowResized:
		line += fmt.Sprintf(" %gx%g", e.Width, e.Height)
	case event.WindowMoved:
		line += fmt.Sprintf(" %d,%d", e.Position.X, e.Position.Y)
	case event.WindowFocused:
		line += fmt.Sprintf(" %t", e.Focused)
	case event.ReceivedCharacter:
		line += fmt.Sprintf(" %q", e.Char)
	}
	return time.Now().Format("15:04:05") + " " + line
}

// View implements tea.Model.
func (m watchModel) View() string {
	var status string
	switch {
	case m.ended:
		status = disconnectedDot + " event stream ended"
	case m.status != nil:
		status = fmt.Sprintf("%s %s  windows:%d  live:%d  violations:%d  events:%d",
			connectedDot, m.status.Backend, m.status.Windows, m.status.States["live"],
			m.status.Violations, m.status.Events)
	default:
		status = disconnectedDot + " connecting"
	}

	var b strings.Builder
	b.WriteString(logTitleStyle.Render("Recent events"))
	b.WriteString("\n")
	b.WriteString(logStyle.Render(strings.Join(m.log, "\n")))

	parts := []string{
		statusBarStyle.Width(m.width).Render(status),
		m.table.View(),
		b.String(),
	}
	if m.err != nil {
		parts = append(parts, errorStyle.Render(m.err.Error()))
	}
	parts = append(parts, helpStyle.Render("↑/↓: select  x: close window  r: refresh  q: quit"))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// Watch shows the live window table until the user quits.
func Watch(src Source, filter ipc.SubscribePayload) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("watch requires an interactive terminal (stdin/stdout must be TTYs)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := tea.NewProgram(newWatchModel(src), tea.WithAltScreen())
	go func() {
		err := src.Subscribe(ctx, filter, func(ev event.Event) error {
			p.Send(eventMsg{ev: ev})
			return nil
		})
		if ctx.Err() == nil {
			p.Send(streamMsg{err: err})
		}
	}()

	_, err := p.Run()
	return err
}
