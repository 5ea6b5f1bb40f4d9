// Package tui shows both graph views side by side in a terminal.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/recera/dualgraph/pkg/layout"
	"github.com/recera/dualgraph/pkg/render"
	"github.com/recera/dualgraph/pkg/shell"
)

// Controller is the part of the shell the terminal UI drives
type Controller interface {
	Frame2D() render.Frame2D
	Frame3D() render.Frame3D
	Snapshot(kind shell.ViewKind) layout.Snapshot
	Flags() shell.Flags
	SetFlags(shell.Flags)
	Split() shell.Split
	RequestResize(width, height float64)
	RequestDivider(x float64)
	ToggleFullscreen(kind shell.ViewKind)
	Zoom2D(x, y, factor float64)
	Zoom3D(factor float64) bool
}

// Pixel size of one terminal cell. The shell works in pixels; the
// canvases scale back down to cells.
const (
	CellWidth  = 8
	CellHeight = 16
)

const (
	historyCapacity = 60
	plotHeight      = 3
	dividerStep     = 0.05
	zoomStep        = 1.2
)

var (
	primaryColor = lipgloss.Color("#3b82f6")
	mutedColor   = lipgloss.Color("#94a3b8")
	onColor      = lipgloss.Color("#10b981")
	errorColor   = lipgloss.Color("#ef4444")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	focusTitleStyle = titleStyle.
			Underline(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	onStyle = lipgloss.NewStyle().
		Foreground(onColor).
		Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	separatorStyle = lipgloss.NewStyle().
			Foreground(mutedColor)
)

type tickMsg time.Time

// Options configures the model
type Options struct {
	// Refresh is the redraw interval
	Refresh time.Duration
	// Color enables lipgloss colours inside the canvases
	Color bool
}

// Model represents the TUI application state
type Model struct {
	ctl   Controller
	opts  Options
	keys  KeyMap
	help  help.Model
	focus shell.ViewKind

	// Window dimensions
	width  int
	height int

	energy2D []float64
	energy3D []float64

	quitting bool
}

// NewModel creates a new TUI model
func NewModel(ctl Controller, opts Options) Model {
	if opts.Refresh <= 0 {
		opts.Refresh = 50 * time.Millisecond
	}
	return Model{
		ctl:   ctl,
		opts:  opts,
		keys:  DefaultKeyMap,
		help:  help.New(),
		focus: shell.View2D,
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.opts.Refresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return m.tick()
}

// chromeRows is what the title, plots, status and help take up
func (m Model) chromeRows() int {
	rows := 1 + plotHeight + 1 + 1
	if m.help.ShowAll {
		rows += 4
	}
	return rows
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.resize()
		return m, nil

	case tickMsg:
		m.energy2D = push(m.energy2D, m.ctl.Snapshot(shell.View2D).Energy)
		m.energy3D = push(m.energy3D, m.ctl.Snapshot(shell.View3D).Energy)
		return m, m.tick()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) resize() {
	rows := max(m.height-m.chromeRows(), 1)
	m.ctl.RequestResize(float64(m.width*CellWidth), float64(rows*CellHeight))
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	flags := m.ctl.Flags()
	toggle := func(f *bool) {
		*f = !*f
		m.ctl.SetFlags(flags)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.resize()
	case key.Matches(msg, m.keys.Bidirectional):
		toggle(&flags.Bidirectional)
	case key.Matches(msg, m.keys.AltShapes):
		toggle(&flags.AltShapes)
	case key.Matches(msg, m.keys.LinkTexts):
		toggle(&flags.ShowLinkTexts)
	case key.Matches(msg, m.keys.MainValues):
		toggle(&flags.ShowMainValues)
	case key.Matches(msg, m.keys.InOutValues):
		toggle(&flags.ShowInOutValues)
	case key.Matches(msg, m.keys.Rotate):
		toggle(&flags.Rotating)
	case key.Matches(msg, m.keys.LinkMode):
		if flags.LinkMode == render.LinkOffset {
			flags.LinkMode = render.LinkCurved
		} else {
			flags.LinkMode = render.LinkOffset
		}
		m.ctl.SetFlags(flags)
	case key.Matches(msg, m.keys.DividerLeft):
		sp := m.ctl.Split()
		m.ctl.RequestDivider(sp.Divider() - dividerStep*sp.Width)
	case key.Matches(msg, m.keys.DividerRight):
		sp := m.ctl.Split()
		m.ctl.RequestDivider(sp.Divider() + dividerStep*sp.Width)
	case key.Matches(msg, m.keys.Fullscreen):
		m.ctl.ToggleFullscreen(m.focus)
	case key.Matches(msg, m.keys.Focus):
		if m.focus == shell.View2D {
			m.focus = shell.View3D
		} else {
			m.focus = shell.View2D
		}
	case key.Matches(msg, m.keys.ZoomIn):
		m.zoom(zoomStep)
	case key.Matches(msg, m.keys.ZoomOut):
		m.zoom(1 / zoomStep)
	}
	return m, nil
}

// zoom scales the focused view; factor > 1 brings the graph closer
func (m Model) zoom(factor float64) {
	if m.focus == shell.View3D {
		m.ctl.Zoom3D(1 / factor)
		return
	}
	pane := m.ctl.Split().Pane(shell.View2D)
	c := pane.Center()
	m.ctl.Zoom2D(c.X, c.Y, factor)
}

func push(hist []float64, v float64) []float64 {
	hist = append(hist, v)
	if len(hist) > historyCapacity {
		hist = hist[len(hist)-historyCapacity:]
	}
	return hist
}

// View renders the UI
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "starting..."
	}

	rows := max(m.height-m.chromeRows(), 1)
	sp := m.ctl.Split()
	var panes []string

	if box := sp.Pane(shell.View2D); !box.Empty() {
		cols := max(int(box.Size().X/CellWidth), 1)
		c := NewCanvas(cols, rows, box.Size().X, box.Size().Y)
		render.Paint2D(c, m.ctl.Frame2D())
		panes = append(panes, m.pane(shell.View2D, "2D", cols, c))
	}
	if box := sp.Pane(shell.View3D); !box.Empty() {
		cols := max(int(box.Size().X/CellWidth)-1, 1)
		c := NewCanvas(cols, rows, box.Size().X, box.Size().Y)
		f := m.ctl.Frame3D()
		render.Paint3D(c, f)
		title := "3D"
		if f.Degraded {
			title = errorStyle.Render("3D unavailable")
		}
		panes = append(panes, m.pane(shell.View3D, title, cols, c))
	}

	var body string
	switch len(panes) {
	case 0:
		body = mutedStyle.Render("waiting for layout...")
	case 1:
		body = panes[0]
	default:
		sep := separatorStyle.Render(strings.TrimSuffix(strings.Repeat("│\n", rows+1), "\n"))
		body = lipgloss.JoinHorizontal(lipgloss.Top, panes[0], sep, panes[1])
	}

	var s strings.Builder
	s.WriteString(body + "\n")
	s.WriteString(m.plots() + "\n")
	s.WriteString(m.status() + "\n")
	s.WriteString(m.help.View(m.keys))
	return s.String()
}

func (m Model) pane(kind shell.ViewKind, title string, cols int, c *Canvas) string {
	style := titleStyle
	if kind == m.focus {
		style = focusTitleStyle
	}
	content := c.Plain()
	if m.opts.Color {
		content = c.String()
	}
	return lipgloss.NewStyle().Width(cols).Render(style.Render(title) + "\n" + content)
}

func (m Model) plots() string {
	w := max(m.width/2-12, 10)
	plot := func(hist []float64, caption string) string {
		if len(hist) < 2 {
			return mutedStyle.Render(caption + ": waiting for ticks")
		}
		return asciigraph.Plot(hist, asciigraph.Height(plotHeight-1), asciigraph.Width(w), asciigraph.Caption(caption))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		plot(m.energy2D, "2D energy"), "  ", plot(m.energy3D, "3D energy"))
}

func (m Model) status() string {
	f := m.ctl.Flags()
	items := []struct {
		label string
		on    bool
	}{
		{"bidir", f.Bidirectional},
		{"alt", f.AltShapes},
		{"texts", f.ShowLinkTexts},
		{"values", f.ShowMainValues},
		{"in/out", f.ShowInOutValues},
		{"rotate", f.Rotating},
	}
	parts := make([]string, 0, len(items)+1)
	for _, it := range items {
		if it.on {
			parts = append(parts, onStyle.Render(it.label))
		} else {
			parts = append(parts, mutedStyle.Render(it.label))
		}
	}
	mode := f.LinkMode
	if mode == "" {
		mode = render.LinkCurved
	}
	parts = append(parts, mutedStyle.Render(fmt.Sprintf("links:%s focus:%s", mode, m.focus)))
	return strings.Join(parts, " ")
}
