package render

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/recera/dualgraph/pkg/graph"
)

func quadPoint(a, c, b r2.Vec, t float64) r2.Vec {
	u := 1 - t
	return r2.Add(r2.Add(r2.Scale(u*u, a), r2.Scale(2*u*t, c)), r2.Scale(t*t, b))
}

func quadTangent(a, c, b r2.Vec, t float64) r2.Vec {
	return r2.Add(r2.Scale(2*(1-t), r2.Sub(c, a)), r2.Scale(2*t, r2.Sub(b, c)))
}

func quadPoint3(a, c, b r3.Vec, t float64) r3.Vec {
	u := 1 - t
	return r3.Add(r3.Add(r3.Scale(u*u, a), r3.Scale(2*u*t, c)), r3.Scale(t*t, b))
}

func quadTangent3(a, c, b r3.Vec, t float64) r3.Vec {
	return r3.Add(r3.Scale(2*(1-t), r3.Sub(c, a)), r3.Scale(2*t, r3.Sub(b, c)))
}

// canonicalNormal is the unit normal of the pair's direction taken from the
// smaller id to the larger one, so both directions of a pair agree on it.
func canonicalNormal(l graph.Link, from, to r2.Vec) (r2.Vec, float64) {
	d := r2.Sub(to, from)
	if l.Source > l.Target {
		d = r2.Scale(-1, d)
	}
	n := r2.Norm(d)
	if n == 0 {
		return r2.Vec{}, 0
	}
	return r2.Vec{X: -d.Y / n, Y: d.X / n}, n
}

// canonicalAxis3 is the 3D counterpart of canonicalNormal: it returns the
// unit pair axis and a unit vector perpendicular to it.
func canonicalAxis3(l graph.Link, from, to r3.Vec) (axis, perp r3.Vec, length float64) {
	d := r3.Sub(to, from)
	if l.Source > l.Target {
		d = r3.Scale(-1, d)
	}
	length = r3.Norm(d)
	if length == 0 {
		return r3.Vec{}, r3.Vec{}, 0
	}
	axis = r3.Scale(1/length, d)
	perp = r3.Cross(axis, r3.Vec{Y: 1})
	if r3.Norm2(perp) < 1e-12 {
		perp = r3.Cross(axis, r3.Vec{X: 1})
	}
	return axis, r3.Unit(perp), length
}

// fract returns the fractional part in [0, 1)
func fract(v float64) float64 {
	return v - math.Floor(v)
}

func to2(v r3.Vec) r2.Vec { return r2.Vec{X: v.X, Y: v.Y} }
