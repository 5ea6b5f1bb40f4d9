package render

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/recera/dualgraph/pkg/graph"
)

// Shape is a 2D node glyph
type Shape string

const (
	Circle   Shape = "circle"
	Triangle Shape = "triangle"
	Diamond  Shape = "diamond"
	Square   Shape = "square"
)

// ShapeFor picks the glyph of a node type. The alternate set draws
// environment nodes as triangles and everything else as squares.
func ShapeFor(t graph.NodeType, alt bool) Shape {
	if alt {
		if t == graph.Environment {
			return Triangle
		}
		return Square
	}
	switch t {
	case graph.Boundary:
		return Triangle
	case graph.System:
		return Diamond
	default:
		return Circle
	}
}

// Outline returns the polygon of a shape centred on c. Circles return nil;
// surfaces draw them natively.
func (s Shape) Outline(c r2.Vec, r float64) []r2.Vec {
	switch s {
	case Triangle:
		return []r2.Vec{
			{X: c.X, Y: c.Y - r},
			{X: c.X - r*0.866, Y: c.Y + r*0.5},
			{X: c.X + r*0.866, Y: c.Y + r*0.5},
		}
	case Diamond:
		return []r2.Vec{
			{X: c.X, Y: c.Y - r},
			{X: c.X + r, Y: c.Y},
			{X: c.X, Y: c.Y + r},
			{X: c.X - r, Y: c.Y},
		}
	case Square:
		h := r / 2
		return []r2.Vec{
			{X: c.X - h, Y: c.Y - h},
			{X: c.X + h, Y: c.Y - h},
			{X: c.X + h, Y: c.Y + h},
			{X: c.X - h, Y: c.Y + h},
		}
	}
	return nil
}

// GeometryKind names a 3D mesh primitive
type GeometryKind string

const (
	Sphere     GeometryKind = "sphere"
	Cone       GeometryKind = "cone"
	Octahedron GeometryKind = "octahedron"
	Box        GeometryKind = "box"
)

// Geometry describes the mesh of a 3D node
type Geometry struct {
	Kind     GeometryKind `json:"kind"`
	Radius   float64      `json:"radius"`
	Height   float64      `json:"height,omitempty"`
	Segments int          `json:"segments,omitempty"`
	Rings    int          `json:"rings,omitempty"`
}

// GeometryFor returns the mesh of a node type for a node radius r
func GeometryFor(t graph.NodeType, alt bool, r float64) Geometry {
	if alt {
		if t == graph.Environment {
			return Geometry{Kind: Cone, Radius: r / 2, Height: r, Segments: 4}
		}
		return Geometry{Kind: Box, Radius: r / 2, Height: r}
	}
	switch t {
	case graph.Boundary:
		return Geometry{Kind: Cone, Radius: r / 2, Height: r, Segments: 6}
	case graph.System:
		return Geometry{Kind: Octahedron, Radius: r / 2}
	default:
		return Geometry{Kind: Sphere, Radius: r / 2, Segments: 16, Rings: 16}
	}
}

// Silhouette is the 2D glyph used when a mesh is drawn flat
func (g Geometry) Silhouette() Shape {
	switch g.Kind {
	case Cone:
		return Triangle
	case Octahedron:
		return Diamond
	case Box:
		return Square
	default:
		return Circle
	}
}

// Extent is the largest distance from the mesh centre to its surface
func (g Geometry) Extent() float64 {
	switch g.Kind {
	case Cone:
		return math.Max(g.Radius, g.Height/2)
	case Box:
		return g.Height / 2 * math.Sqrt2
	default:
		return g.Radius
	}
}

// GlyphRadius is the radius to pass to Silhouette().Outline
func (g Geometry) GlyphRadius() float64 {
	switch g.Kind {
	case Box:
		return g.Height
	case Cone:
		return g.Height / 2
	default:
		return g.Radius
	}
}
