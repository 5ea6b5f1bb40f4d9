//go:build js && wasm
// +build js,wasm

package render

import (
	"fmt"
	"math"
	"syscall/js"

	"gonum.org/v1/gonum/spatial/r2"
)

// CanvasSurface draws onto a browser 2D canvas context
type CanvasSurface struct {
	ctx           js.Value
	width, height float64
}

// NewCanvasSurface wraps the 2d context of a canvas element. It returns
// false when the element has no 2d context.
func NewCanvasSurface(canvas js.Value) (*CanvasSurface, bool) {
	if canvas.IsUndefined() || canvas.IsNull() {
		return nil, false
	}
	ctx := canvas.Call("getContext", "2d")
	if !ctx.Truthy() {
		return nil, false
	}
	return &CanvasSurface{
		ctx:    ctx,
		width:  canvas.Get("width").Float(),
		height: canvas.Get("height").Float(),
	}, true
}

func (s *CanvasSurface) Fill(color string) {
	s.ctx.Set("fillStyle", color)
	s.ctx.Call("fillRect", 0, 0, s.width, s.height)
}

func (s *CanvasSurface) Line(pts []r2.Vec, color string, width float64) {
	if len(pts) < 2 {
		return
	}
	s.ctx.Set("strokeStyle", color)
	s.ctx.Set("lineWidth", width)
	s.path(pts, false)
	s.ctx.Call("stroke")
}

func (s *CanvasSurface) Polygon(pts []r2.Vec, fill, stroke string, strokeWidth float64) {
	if len(pts) < 3 {
		return
	}
	s.path(pts, true)
	if fill != "" {
		s.ctx.Set("fillStyle", fill)
		s.ctx.Call("fill")
	}
	if stroke != "" && strokeWidth > 0 {
		s.ctx.Set("strokeStyle", stroke)
		s.ctx.Set("lineWidth", strokeWidth)
		s.ctx.Call("stroke")
	}
}

func (s *CanvasSurface) Circle(c r2.Vec, r float64, fill, stroke string, strokeWidth float64) {
	s.ctx.Call("beginPath")
	s.ctx.Call("arc", c.X, c.Y, r, 0, math.Pi*2)
	if fill != "" {
		s.ctx.Set("fillStyle", fill)
		s.ctx.Call("fill")
	}
	if stroke != "" && strokeWidth > 0 {
		s.ctx.Set("strokeStyle", stroke)
		s.ctx.Set("lineWidth", strokeWidth)
		s.ctx.Call("stroke")
	}
}

func (s *CanvasSurface) Text(p r2.Vec, text string, size float64, color string) {
	s.ctx.Set("font", fmt.Sprintf("%fpx sans-serif", size))
	s.ctx.Set("textAlign", "center")
	s.ctx.Set("textBaseline", "middle")
	s.ctx.Set("fillStyle", color)
	s.ctx.Call("fillText", text, p.X, p.Y)
}

func (s *CanvasSurface) path(pts []r2.Vec, closed bool) {
	s.ctx.Call("beginPath")
	s.ctx.Call("moveTo", pts[0].X, pts[0].Y)
	for _, p := range pts[1:] {
		s.ctx.Call("lineTo", p.X, p.Y)
	}
	if closed {
		s.ctx.Call("closePath")
	}
}
