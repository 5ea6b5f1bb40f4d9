package tui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/recera/dualgraph/pkg/render"
)

// Each terminal cell holds a 2x4 braille dot matrix
const (
	dotsX = 2
	dotsY = 4
)

var dotBits = [dotsY][dotsX]rune{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

type cell struct {
	dots  rune
	text  rune
	color string
}

// Canvas is a render.Surface that draws into terminal cells using braille
// dots. Frame coordinates are scaled from the frame size onto the cell
// grid.
type Canvas struct {
	cols, rows int
	sx, sy     float64
	cells      []cell
}

// NewCanvas creates a cols x rows canvas showing a frame of the given pixel
// size
func NewCanvas(cols, rows int, frameWidth, frameHeight float64) *Canvas {
	cols, rows = max(cols, 1), max(rows, 1)
	c := &Canvas{cols: cols, rows: rows, cells: make([]cell, cols*rows)}
	c.sx, c.sy = 1, 1
	if frameWidth > 0 {
		c.sx = float64(cols*dotsX) / frameWidth
	}
	if frameHeight > 0 {
		c.sy = float64(rows*dotsY) / frameHeight
	}
	return c
}

// Size returns the canvas size in cells
func (c *Canvas) Size() (cols, rows int) { return c.cols, c.rows }

// maxSpan bounds how far off the canvas a line is walked
const maxSpan = 1 << 14

func (c *Canvas) toDots(p r2.Vec) (int, int, bool) {
	x, y := math.Floor(p.X*c.sx), math.Floor(p.Y*c.sy)
	if math.IsNaN(x) || math.IsNaN(y) || math.Abs(x) > maxSpan || math.Abs(y) > maxSpan {
		return 0, 0, false
	}
	return int(x), int(y), true
}

func (c *Canvas) set(x, y int, color string) {
	if x < 0 || y < 0 || x >= c.cols*dotsX || y >= c.rows*dotsY {
		return
	}
	cl := &c.cells[(y/dotsY)*c.cols+x/dotsX]
	cl.dots |= dotBits[y%dotsY][x%dotsX]
	if color != "" {
		cl.color = color
	}
}

// Fill clears the canvas. The terminal background stays as it is.
func (c *Canvas) Fill(string) {
	for i := range c.cells {
		c.cells[i] = cell{}
	}
}

func (c *Canvas) line(a, b r2.Vec, color string) {
	x0, y0, ok0 := c.toDots(a)
	x1, y1, ok1 := c.toDots(b)
	if !ok0 || !ok1 {
		return
	}
	dx, dy := abs(x1-x0), -abs(y1-y0)
	stepX, stepY := 1, 1
	if x0 > x1 {
		stepX = -1
	}
	if y0 > y1 {
		stepY = -1
	}
	e := dx + dy
	for i := 0; i <= dx-dy; i++ {
		c.set(x0, y0, color)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += stepX
		}
		if e2 <= dx {
			e += dx
			y0 += stepY
		}
	}
}

func (c *Canvas) Line(pts []r2.Vec, color string, width float64) {
	for i := 1; i < len(pts); i++ {
		c.line(pts[i-1], pts[i], color)
	}
}

// Polygon draws the outline, or the fill colour's outline when there is
// no stroke
func (c *Canvas) Polygon(pts []r2.Vec, fill, stroke string, strokeWidth float64) {
	if len(pts) < 2 {
		return
	}
	col := stroke
	if col == "" || col == "none" {
		col = fill
	}
	closed := append(append([]r2.Vec(nil), pts...), pts[0])
	c.Line(closed, col, strokeWidth)
}

func (c *Canvas) Circle(center r2.Vec, r float64, fill, stroke string, strokeWidth float64) {
	cx, cy, ok := c.toDots(center)
	if !ok {
		return
	}
	rx, ry := math.Min(r*c.sx, maxSpan), math.Min(r*c.sy, maxSpan)
	if rx < 1 && ry < 1 {
		c.set(cx, cy, fill)
		return
	}
	// filled disc
	for y := -int(math.Ceil(ry)); y <= int(math.Ceil(ry)); y++ {
		for x := -int(math.Ceil(rx)); x <= int(math.Ceil(rx)); x++ {
			fx, fy := float64(x)/math.Max(rx, 0.5), float64(y)/math.Max(ry, 0.5)
			if fx*fx+fy*fy <= 1 {
				c.set(cx+x, cy+y, fill)
			}
		}
	}
}

// Text writes s into whole cells centred on p
func (c *Canvas) Text(p r2.Vec, s string, size float64, color string) {
	if math.IsNaN(p.X) || math.IsNaN(p.Y) {
		return
	}
	runes := []rune(s)
	col := int(math.Floor(p.X*c.sx/dotsX)) - len(runes)/2
	row := int(math.Floor(p.Y * c.sy / dotsY))
	if row < 0 || row >= c.rows {
		return
	}
	for i, r := range runes {
		x := col + i
		if x < 0 || x >= c.cols {
			continue
		}
		cl := &c.cells[row*c.cols+x]
		cl.text = r
		cl.color = color
	}
}

// Plain returns the canvas without colour, one line per row
func (c *Canvas) Plain() string {
	var b strings.Builder
	for y := 0; y < c.rows; y++ {
		if y > 0 {
			b.WriteByte('\n')
		}
		for x := 0; x < c.cols; x++ {
			b.WriteRune(c.cells[y*c.cols+x].glyph())
		}
	}
	return b.String()
}

// String renders the canvas with lipgloss colours. Runs of cells sharing a
// colour are styled together.
func (c *Canvas) String() string {
	var b strings.Builder
	for y := 0; y < c.rows; y++ {
		if y > 0 {
			b.WriteByte('\n')
		}
		var run strings.Builder
		runColor := ""
		flush := func() {
			if run.Len() == 0 {
				return
			}
			if runColor == "" {
				b.WriteString(run.String())
			} else {
				b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(render.Hex(runColor))).Render(run.String()))
			}
			run.Reset()
		}
		for x := 0; x < c.cols; x++ {
			cl := c.cells[y*c.cols+x]
			if cl.color != runColor {
				flush()
				runColor = cl.color
			}
			run.WriteRune(cl.glyph())
		}
		flush()
	}
	return b.String()
}

func (cl cell) glyph() rune {
	if cl.text != 0 {
		return cl.text
	}
	if cl.dots == 0 {
		return ' '
	}
	return 0x2800 + cl.dots
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
