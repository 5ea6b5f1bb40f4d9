package projector

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Placement is the outcome of placing one label
type Placement struct {
	Center      r2.Vec
	Box         r2.Box
	Attempts    int
	Overlapping bool
}

// LabelPlacer greedily places fixed-size labels around anchors, avoiding
// labels placed earlier in the same frame. Each placement tries at most
// MaxAttempts candidates; when all collide the last candidate is kept.
type LabelPlacer struct {
	opts   Options
	placed []r2.Box
}

// NewLabelPlacer creates a placer with the geometry in opts
func NewLabelPlacer(opts Options) *LabelPlacer {
	return &LabelPlacer{opts: opts.withDefaults()}
}

// Reset forgets every label placed so far. Call once per frame.
func (p *LabelPlacer) Reset() {
	p.placed = p.placed[:0]
}

// Placed returns the boxes accepted since the last Reset
func (p *LabelPlacer) Placed() []r2.Box {
	return p.placed
}

// Place positions a label around anchor. index spreads the starting angle
// so labels of neighbouring links fan out.
func (p *LabelPlacer) Place(anchor r2.Vec, index int) Placement {
	base := float64(index) * p.opts.BaseAngleStep
	limit := p.opts.MaxAttempts
	if limit < 1 {
		limit = 1
	}

	var res Placement
	for a := 0; a < limit; a++ {
		angle := base + float64(a)*p.opts.RetryAngleStep
		dist := p.opts.LabelDistance + float64(a)*p.opts.RetryDistanceStep
		c := r2.Add(anchor, r2.Vec{X: math.Cos(angle) * dist, Y: math.Sin(angle) * dist})
		res = Placement{Center: c, Box: p.box(c), Attempts: a + 1}
		if !p.collides(res.Box) {
			p.placed = append(p.placed, res.Box)
			return res
		}
	}
	res.Overlapping = true
	p.placed = append(p.placed, res.Box)
	return res
}

func (p *LabelPlacer) box(c r2.Vec) r2.Box {
	half := r2.Vec{X: p.opts.LabelWidth / 2, Y: p.opts.LabelHeight / 2}
	return r2.Box{Min: r2.Sub(c, half), Max: r2.Add(c, half)}
}

func (p *LabelPlacer) collides(b r2.Box) bool {
	for _, o := range p.placed {
		if Overlaps(b, o) {
			return true
		}
	}
	return false
}

// Overlaps reports whether two boxes share interior area
func Overlaps(a, b r2.Box) bool {
	return a.Min.X < b.Max.X && a.Max.X > b.Min.X &&
		a.Min.Y < b.Max.Y && a.Max.Y > b.Min.Y
}
