package render

import (
	"sort"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/recera/dualgraph/pkg/projector"
)

// Surface is a 2D drawing target. All coordinates are screen pixels.
type Surface interface {
	Fill(color string)
	Line(pts []r2.Vec, color string, width float64)
	Polygon(pts []r2.Vec, fill, stroke string, strokeWidth float64)
	Circle(c r2.Vec, r float64, fill, stroke string, strokeWidth float64)
	// Text draws s centred horizontally on p
	Text(p r2.Vec, s string, size float64, color string)
}

const curveSegments = 16

// Paint2D draws a 2D frame: links, particles, nodes, then the overlay with
// node labels above link labels.
func Paint2D(s Surface, f Frame2D) {
	cam := f.Camera
	toScreen := func(v r2.Vec) r2.Vec {
		x, y := cam.GraphToScreen(v.X, v.Y)
		return r2.Vec{X: x, Y: y}
	}
	s.Fill(f.Background)

	for _, l := range f.Links {
		n := 1
		if l.Control != nil {
			n = curveSegments
		}
		pts := make([]r2.Vec, 0, n+1)
		for i := 0; i <= n; i++ {
			pts = append(pts, toScreen(l.Point(float64(i)/float64(n))))
		}
		s.Line(pts, l.Color, l.Width)
		if l.Arrow != nil {
			a := *l.Arrow
			a.Length *= cam.Scale
			a.Tip = toScreen(a.Tip)
			s.Polygon(a.Outline(), a.Color, "", 0)
		}
	}
	for _, p := range f.Particles {
		s.Circle(toScreen(p.Pos), p.Radius, p.Color, "", 0)
	}
	for _, n := range f.Nodes {
		c := toScreen(n.Center)
		r := n.Radius * cam.Scale
		if n.Shape == Circle {
			s.Circle(c, r, n.Fill, n.Stroke, n.StrokeWidth)
			continue
		}
		s.Polygon(n.Shape.Outline(c, r), n.Fill, n.Stroke, n.StrokeWidth)
	}
	paintOverlay(s, f.Overlay, f.FontSize, f.TextColor, f.ValueColor)
}

func paintOverlay(s Surface, ov projector.Overlay, size float64, text, value string) {
	for _, l := range ov.Links {
		s.Text(r2.Vec{X: l.X, Y: l.Y}, l.Text, size-2, text)
	}
	for _, n := range ov.Nodes {
		s.Text(r2.Vec{X: n.X, Y: n.Y}, n.Text, size, text)
		for i, v := range n.Values {
			s.Text(r2.Vec{X: n.ValueX, Y: n.ValueY + float64(i)*size}, v, size-2, value)
		}
	}
}

type drawItem struct {
	depth float64
	draw  func()
}

// Paint3D projects a scene through its camera and draws it back to front.
// Sprites are drawn after all geometry.
func Paint3D(s Surface, f Frame3D) {
	s.Fill(f.Background)
	if f.Degraded {
		s.Text(r2.Vec{X: f.Width / 2, Y: f.Height / 2}, f.Notice, 14, "#ef4444")
		return
	}
	cam := f.Camera
	var items, sprites []drawItem

	for _, l := range f.Links {
		n := 1
		if l.Control != nil {
			n = curveSegments
		}
		pts := make([]r2.Vec, 0, n+1)
		var depth float64
		visible := true
		for i := 0; i <= n; i++ {
			pt, ok := cam.Project(l.Point(float64(i) / float64(n)))
			if !ok {
				visible = false
				break
			}
			depth += pt.Depth
			pts = append(pts, pt.Vec())
		}
		if !visible {
			continue
		}
		depth /= float64(len(pts))
		items = append(items, drawItem{depth, func() {
			mid, _ := cam.Project(l.Point(0.5))
			s.Line(pts, l.Color, l.Width*mid.Scale)
		}})
		if l.Arrow != nil {
			if outline, d, ok := projectArrow(cam, *l.Arrow); ok {
				color := l.Arrow.Color
				items = append(items, drawItem{d, func() { s.Polygon(outline, color, "", 0) }})
			}
		}
		for _, p := range l.Particles {
			pt, ok := cam.Project(p.Pos)
			if !ok {
				continue
			}
			items = append(items, drawItem{pt.Depth, func() {
				s.Circle(pt.Vec(), p.Radius*pt.Scale, p.Color, "", 0)
			}})
		}
		if l.Label != nil {
			sprites = appendSprite(sprites, s, cam, *l.Label)
		}
	}

	for _, n := range f.Nodes {
		pt, ok := cam.Project(n.Position)
		if !ok {
			continue
		}
		items = append(items, drawItem{pt.Depth, func() {
			fill := n.Material.Color
			if c, ok := ParseColor(fill); ok && n.Material.Transparent {
				c.A = uint8(float64(c.A) * n.Material.Opacity)
				fill = rgba(c)
			}
			r := n.Geometry.GlyphRadius() * pt.Scale
			shape := n.Geometry.Silhouette()
			if shape == Circle {
				s.Circle(pt.Vec(), r, fill, "", 0)
				return
			}
			s.Polygon(shape.Outline(pt.Vec(), r), fill, "", 0)
		}})
		sprites = appendSprite(sprites, s, cam, n.Label)
		if n.Value != nil {
			sprites = appendSprite(sprites, s, cam, *n.Value)
		}
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].depth > items[j].depth })
	for _, it := range items {
		it.draw()
	}
	sort.SliceStable(sprites, func(i, j int) bool { return sprites[i].depth > sprites[j].depth })
	for _, it := range sprites {
		it.draw()
	}
}

func appendSprite(items []drawItem, s Surface, cam projector.Camera3D, sp Sprite) []drawItem {
	pt, ok := cam.Project(sp.Position)
	if !ok {
		return items
	}
	size := sp.Height * pt.Scale
	if size < 6 {
		size = 6
	}
	return append(items, drawItem{pt.Depth, func() {
		for i, line := range sp.Lines {
			s.Text(r2.Vec{X: pt.X, Y: pt.Y + float64(i)*size}, line, size, sp.Color)
		}
	}})
}

func projectArrow(cam projector.Camera3D, a Arrow3D) ([]r2.Vec, float64, bool) {
	tip, ok1 := cam.Project(a.Tip)
	back, ok2 := cam.Project(r3.Sub(a.Tip, r3.Scale(a.Length, a.Dir)))
	if !ok1 || !ok2 {
		return nil, 0, false
	}
	d := r2.Sub(tip.Vec(), back.Vec())
	if r2.Norm2(d) == 0 {
		return nil, 0, false
	}
	side := r2.Scale(0.5, r2.Vec{X: -d.Y, Y: d.X})
	return []r2.Vec{tip.Vec(), r2.Add(back.Vec(), side), r2.Sub(back.Vec(), side)}, tip.Depth, true
}
