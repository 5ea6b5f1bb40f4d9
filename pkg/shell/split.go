package shell

import (
	"gonum.org/v1/gonum/spatial/r2"
)

// ViewKind names one of the two views
type ViewKind string

const (
	View2D ViewKind = "2d"
	View3D ViewKind = "3d"
)

// Split lays the 2D view out on the left and the 3D view on the right of a
// shared surface. With Fullscreen set, that view takes the whole surface.
type Split struct {
	Width      float64  `json:"width"`
	Height     float64  `json:"height"`
	Ratio      float64  `json:"ratio"`
	MinPane    float64  `json:"minPane"`
	Fullscreen ViewKind `json:"fullscreen,omitempty"`
}

// NewSplit returns an even split of a width x height surface
func NewSplit(width, height, minPane float64) Split {
	s := Split{Width: width, Height: height, Ratio: 0.5, MinPane: minPane}
	s.clamp()
	return s
}

// Divider is the x coordinate between the panes
func (s Split) Divider() float64 { return s.Width * s.Ratio }

// Pane returns the screen rectangle of a view. A view hidden by the other
// one's fullscreen gets an empty box.
func (s Split) Pane(v ViewKind) r2.Box {
	full := r2.Box{Max: r2.Vec{X: s.Width, Y: s.Height}}
	switch s.Fullscreen {
	case v:
		return full
	case View2D, View3D:
		return r2.Box{}
	}
	d := s.Divider()
	if v == View2D {
		return r2.Box{Max: r2.Vec{X: d, Y: s.Height}}
	}
	return r2.Box{Min: r2.Vec{X: d}, Max: r2.Vec{X: s.Width, Y: s.Height}}
}

// ViewAt returns the view under screen x
func (s Split) ViewAt(x float64) ViewKind {
	if s.Fullscreen != "" {
		return s.Fullscreen
	}
	if x < s.Divider() {
		return View2D
	}
	return View3D
}

// SetDivider moves the divider to x, keeping both panes at least MinPane
// wide.
func (s *Split) SetDivider(x float64) {
	if s.Width <= 0 {
		return
	}
	s.Ratio = x / s.Width
	s.clamp()
}

// Resize changes the surface keeping the ratio
func (s *Split) Resize(width, height float64) {
	s.Width, s.Height = width, height
	s.clamp()
}

// ToggleFullscreen switches v in or out of fullscreen
func (s *Split) ToggleFullscreen(v ViewKind) {
	if s.Fullscreen == v {
		s.Fullscreen = ""
		return
	}
	s.Fullscreen = v
}

func (s *Split) clamp() {
	if s.Width <= 0 {
		return
	}
	lo := s.MinPane / s.Width
	if lo > 0.5 {
		lo = 0.5
	}
	if s.Ratio < lo {
		s.Ratio = lo
	}
	if s.Ratio > 1-lo {
		s.Ratio = 1 - lo
	}
}
