// Package projector maps layout coordinates onto the screen and keeps the
// label overlays of each view in step with its camera.
package projector

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// ScreenPoint is a projected position in CSS pixels. Scale is the number of
// pixels one world unit covers at that depth.
type ScreenPoint struct {
	X, Y  float64
	Depth float64
	Scale float64
}

// Vec returns the point as a 2D vector
func (p ScreenPoint) Vec() r2.Vec { return r2.Vec{X: p.X, Y: p.Y} }

// Transform projects world positions into screen space. ok is false for
// points the camera cannot see.
type Transform interface {
	Project(p r3.Vec) (pt ScreenPoint, ok bool)
	Viewport() (width, height float64)
}

// Camera2D is a pan/zoom viewport: screen = world*Scale + Offset
type Camera2D struct {
	Width, Height    float64
	OffsetX, OffsetY float64
	Scale            float64
	MinScale         float64
	MaxScale         float64
}

// NewCamera2D returns a camera with the world origin in the middle of the
// viewport.
func NewCamera2D(width, height float64) Camera2D {
	return Camera2D{
		Width:    width,
		Height:   height,
		OffsetX:  width / 2,
		OffsetY:  height / 2,
		Scale:    1,
		MinScale: 0.2,
		MaxScale: 5,
	}
}

// Project implements Transform. The z coordinate is ignored.
func (c Camera2D) Project(p r3.Vec) (ScreenPoint, bool) {
	x, y := c.GraphToScreen(p.X, p.Y)
	return ScreenPoint{X: x, Y: y, Scale: c.Scale}, true
}

// Viewport implements Transform
func (c Camera2D) Viewport() (float64, float64) { return c.Width, c.Height }

// GraphToScreen maps world coordinates to screen coordinates
func (c Camera2D) GraphToScreen(x, y float64) (float64, float64) {
	return x*c.Scale + c.OffsetX, y*c.Scale + c.OffsetY
}

// ScreenToGraph is the inverse of GraphToScreen
func (c Camera2D) ScreenToGraph(x, y float64) (float64, float64) {
	return (x - c.OffsetX) / c.Scale, (y - c.OffsetY) / c.Scale
}

// ZoomAt scales by factor keeping the world point under (sx, sy) fixed
func (c *Camera2D) ZoomAt(sx, sy, factor float64) {
	wx, wy := c.ScreenToGraph(sx, sy)
	s := c.Scale * factor
	if c.MinScale > 0 && s < c.MinScale {
		s = c.MinScale
	}
	if c.MaxScale > 0 && s > c.MaxScale {
		s = c.MaxScale
	}
	c.Scale = s
	c.OffsetX = sx - wx*s
	c.OffsetY = sy - wy*s
}

// Pan moves the viewport by a screen delta
func (c *Camera2D) Pan(dx, dy float64) {
	c.OffsetX += dx
	c.OffsetY += dy
}

// Resize changes the viewport keeping the world point at its centre fixed
func (c *Camera2D) Resize(width, height float64) {
	cx, cy := c.ScreenToGraph(c.Width/2, c.Height/2)
	c.Width, c.Height = width, height
	c.OffsetX = width/2 - cx*c.Scale
	c.OffsetY = height/2 - cy*c.Scale
}

// Fit frames bounds inside the viewport with padding pixels on each side
func (c *Camera2D) Fit(bounds r2.Box, padding float64) {
	if bounds.Min == bounds.Max {
		c.Focus(bounds.Min, c.Scale)
		return
	}
	size := bounds.Size()
	gw, gh := math.Max(size.X, 1), math.Max(size.Y, 1)
	s := math.Min((c.Width-2*padding)/gw, (c.Height-2*padding)/gh)
	if s <= 0 {
		s = 1
	}
	center := bounds.Center()
	c.Scale = s
	c.OffsetX = c.Width/2 - center.X*s
	c.OffsetY = c.Height/2 - center.Y*s
}

// Focus centres the viewport on p at the given scale
func (c *Camera2D) Focus(p r2.Vec, scale float64) {
	c.Scale = scale
	c.OffsetX = c.Width/2 - p.X*scale
	c.OffsetY = c.Height/2 - p.Y*scale
}

// Camera3D is a perspective camera looking from Position at Target
type Camera3D struct {
	Position r3.Vec
	Target   r3.Vec
	Up       r3.Vec
	FOV      float64 // vertical, degrees
	Near     float64
	Width    float64
	Height   float64
}

// NewCamera3D places the camera on the +z axis at distance
func NewCamera3D(width, height, distance float64) Camera3D {
	return Camera3D{
		Position: r3.Vec{Z: distance},
		Up:       r3.Vec{Y: 1},
		FOV:      40,
		Near:     0.1,
		Width:    width,
		Height:   height,
	}
}

// Viewport implements Transform
func (c Camera3D) Viewport() (float64, float64) { return c.Width, c.Height }

// basis returns the camera's right, up and forward unit vectors
func (c Camera3D) basis() (right, up, fwd r3.Vec) {
	fwd = r3.Unit(r3.Sub(c.Target, c.Position))
	worldUp := c.Up
	if r3.Norm2(worldUp) == 0 {
		worldUp = r3.Vec{Y: 1}
	}
	right = r3.Cross(fwd, worldUp)
	if r3.Norm2(right) < 1e-12 {
		right = r3.Cross(fwd, r3.Vec{Z: 1})
	}
	right = r3.Unit(right)
	up = r3.Cross(right, fwd)
	return right, up, fwd
}

// Project implements Transform. Points at or behind the near plane are not
// visible.
func (c Camera3D) Project(p r3.Vec) (ScreenPoint, bool) {
	if c.Width <= 0 || c.Height <= 0 || c.Position == c.Target {
		return ScreenPoint{}, false
	}
	right, up, fwd := c.basis()
	d := r3.Sub(p, c.Position)
	z := r3.Dot(d, fwd)
	if z <= c.Near {
		return ScreenPoint{}, false
	}
	f := 1 / math.Tan(c.FOV*math.Pi/360)
	aspect := c.Width / c.Height
	nx := r3.Dot(d, right) * f / (aspect * z)
	ny := r3.Dot(d, up) * f / z
	return ScreenPoint{
		X:     (nx + 1) / 2 * c.Width,
		Y:     (1 - ny) / 2 * c.Height,
		Depth: z,
		Scale: f * c.Height / 2 / z,
	}, true
}

// Distance from the camera to its target
func (c Camera3D) Distance() float64 {
	return r3.Norm(r3.Sub(c.Position, c.Target))
}

// Dolly moves the camera toward (factor < 1) or away from the target
func (c *Camera3D) Dolly(factor float64) {
	if factor <= 0 {
		return
	}
	c.Position = r3.Add(c.Target, r3.Scale(factor, r3.Sub(c.Position, c.Target)))
}

// Unproject returns the world point under screen (x, y) at view depth z,
// the inverse of Project for that depth.
func (c Camera3D) Unproject(x, y, z float64) r3.Vec {
	right, up, fwd := c.basis()
	f := 1 / math.Tan(c.FOV*math.Pi/360)
	aspect := c.Width / c.Height
	nx := 2*x/c.Width - 1
	ny := 1 - 2*y/c.Height
	p := r3.Add(c.Position, r3.Scale(z, fwd))
	p = r3.Add(p, r3.Scale(nx*aspect*z/f, right))
	return r3.Add(p, r3.Scale(ny*z/f, up))
}
