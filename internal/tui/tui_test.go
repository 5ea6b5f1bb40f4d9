package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/recera/dualgraph/pkg/graph"
	"github.com/recera/dualgraph/pkg/render"
	"github.com/recera/dualgraph/pkg/shell"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestCanvasLine(t *testing.T) {
	c := NewCanvas(2, 1, 4, 4)
	c.Line([]r2.Vec{{X: 0, Y: 0}, {X: 3, Y: 0}}, "#ff0000", 1)
	assert.Equal(t, "⠉⠉", c.Plain())

	c.Fill("#000000")
	assert.Equal(t, "  ", c.Plain())
}

func TestCanvasDotAndText(t *testing.T) {
	c := NewCanvas(2, 1, 4, 4)
	c.Circle(r2.Vec{X: 0, Y: 3}, 0.2, "#00ff00", "", 0)
	assert.Equal(t, "⡀ ", c.Plain())

	c.Text(r2.Vec{X: 2, Y: 0}, "hi", 12, "#ffffff")
	assert.Equal(t, "hi", c.Plain())
}

func TestCanvasClipsAndSkipsBadPoints(t *testing.T) {
	c := NewCanvas(3, 2, 30, 40)
	c.Line([]r2.Vec{{X: -1e9, Y: 5}, {X: 1e9, Y: 5}}, "", 1)
	c.Circle(r2.Vec{X: 1e12, Y: 1e12}, 5, "", "", 0)
	assert.Equal(t, "   \n   ", c.Plain())

	c.Polygon([]r2.Vec{{X: 0, Y: 0}, {X: 29, Y: 0}, {X: 29, Y: 39}}, "#123456", "none", 1)
	top := strings.Split(c.Plain(), "\n")[0]
	assert.NotContains(t, top, " ")
}

func TestCanvasString(t *testing.T) {
	c := NewCanvas(2, 1, 4, 4)
	c.Line([]r2.Vec{{X: 0, Y: 0}, {X: 3, Y: 0}}, "#ff0000", 1)
	assert.Contains(t, c.String(), "⠉⠉")
}

func newShell(t *testing.T) *shell.Shell {
	t.Helper()
	ds := graph.Dataset{
		Nodes: []graph.Node{
			{ID: "A", Type: graph.Environment, Label: "Alpha"},
			{ID: "B", Type: graph.Boundary},
			{ID: "C", Type: graph.System},
		},
		Links: []graph.Link{
			{Source: "A", Target: "B", Weight: 1},
			{Source: "B", Target: "C", Weight: 2},
		},
	}
	s := shell.New(ds, 800, 400, shell.Flags{}, shell.Options{}, shell.Hooks{})
	t.Cleanup(s.Close)
	s.Step(t0)
	s.Refresh()
	return s
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		var ok bool
		m, ok = next.(Model)
		require.True(t, ok)
	}
	return m
}

func TestFlagKeys(t *testing.T) {
	s := newShell(t)
	m := NewModel(s, Options{})

	m = press(t, m, runes("b"), runes("a"), runes("t"), runes("v"), runes("i"))
	f := s.Flags()
	assert.True(t, f.Bidirectional)
	assert.True(t, f.AltShapes)
	assert.True(t, f.ShowLinkTexts)
	assert.True(t, f.ShowMainValues)
	assert.True(t, f.ShowInOutValues)
	assert.False(t, f.Rotating)

	m = press(t, m, runes("o"))
	assert.Equal(t, render.LinkOffset, s.Flags().LinkMode)
	m = press(t, m, runes("o"), runes("b"))
	assert.Equal(t, render.LinkCurved, s.Flags().LinkMode)
	assert.False(t, s.Flags().Bidirectional)

	press(t, m, runes("r"))
	assert.True(t, s.Flags().Rotating)
	assert.True(t, s.TaskActive(shell.TaskOrbit))
}

func TestResizeAndDivider(t *testing.T) {
	s := newShell(t)
	m := NewModel(s, Options{})

	m = press(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	s.Step(t0.Add(40 * time.Millisecond))
	sp := s.Split()
	assert.Equal(t, 800.0, sp.Width)
	assert.Equal(t, float64((40-m.chromeRows())*CellHeight), sp.Height)
	assert.Equal(t, 400.0, sp.Divider())

	press(t, m, runes(">"))
	s.Step(t0.Add(80 * time.Millisecond))
	assert.InDelta(t, 440.0, s.Split().Divider(), 1e-9)
}

func TestFocusFullscreenAndZoom(t *testing.T) {
	s := newShell(t)
	m := NewModel(s, Options{})

	scale := s.Camera2D().Scale
	m = press(t, m, runes("+"))
	assert.Greater(t, s.Camera2D().Scale, scale)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	dist := r3.Norm(r3.Sub(s.Camera3D().Position, s.Camera3D().Target))
	m = press(t, m, runes("+"))
	assert.Less(t, r3.Norm(r3.Sub(s.Camera3D().Position, s.Camera3D().Target)), dist)

	press(t, m, runes("f"))
	assert.Equal(t, shell.View3D, s.Split().Fullscreen)
}

func TestEnergyHistory(t *testing.T) {
	s := newShell(t)
	m := NewModel(s, Options{})
	for i := 0; i < historyCapacity+5; i++ {
		m = press(t, m, tickMsg(t0))
	}
	assert.Len(t, m.energy2D, historyCapacity)
	assert.Len(t, m.energy3D, historyCapacity)
}

func TestView(t *testing.T) {
	s := newShell(t)
	m := NewModel(s, Options{})
	assert.Equal(t, "starting...", m.View())

	m = press(t, m, tea.WindowSizeMsg{Width: 100, Height: 30}, tickMsg(t0), tickMsg(t0))
	out := m.View()
	assert.Contains(t, out, "2D")
	assert.Contains(t, out, "3D")
	assert.Contains(t, out, "energy")
	assert.Contains(t, out, "focus:2d")

	m = press(t, m, runes("q"))
	assert.True(t, m.quitting)
	assert.Empty(t, m.View())
}
