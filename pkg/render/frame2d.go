package render

import (
	"math"
	"strconv"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/recera/dualgraph/pkg/graph"
	"github.com/recera/dualgraph/pkg/layout"
	"github.com/recera/dualgraph/pkg/projector"
)

// Arrow is an arrowhead in world coordinates
type Arrow struct {
	Tip    r2.Vec  `json:"tip"`
	Angle  float64 `json:"angle"`
	Length float64 `json:"length"`
	Color  string  `json:"color"`
}

// LinkStroke is one drawn link. Control is set for curved links. Width is
// in screen pixels.
type LinkStroke struct {
	ID        string  `json:"id"`
	Source    string  `json:"source"`
	Target    string  `json:"target"`
	From      r2.Vec  `json:"from"`
	To        r2.Vec  `json:"to"`
	Control   *r2.Vec `json:"control,omitempty"`
	Color     string  `json:"color"`
	Width     float64 `json:"width"`
	IsReverse bool    `json:"isReverse,omitempty"`
	Arrow     *Arrow  `json:"arrow,omitempty"`
}

// Point returns the point at t in [0, 1] along the stroke
func (l LinkStroke) Point(t float64) r2.Vec {
	if l.Control == nil {
		return r2.Add(l.From, r2.Scale(t, r2.Sub(l.To, l.From)))
	}
	return quadPoint(l.From, *l.Control, l.To, t)
}

func (l LinkStroke) tangent(t float64) r2.Vec {
	if l.Control == nil {
		return r2.Sub(l.To, l.From)
	}
	return quadTangent(l.From, *l.Control, l.To, t)
}

// Particle is a moving dot along a link. Radius is in screen pixels.
type Particle struct {
	LinkID string  `json:"linkId"`
	Pos    r2.Vec  `json:"pos"`
	Radius float64 `json:"radius"`
	Color  string  `json:"color"`
}

// NodeGlyph is one drawn node in world coordinates
type NodeGlyph struct {
	ID          string         `json:"id"`
	Type        graph.NodeType `json:"type"`
	Shape       Shape          `json:"shape"`
	Center      r2.Vec         `json:"center"`
	Radius      float64        `json:"radius"`
	Fill        string         `json:"fill"`
	Stroke      string         `json:"stroke"`
	StrokeWidth float64        `json:"strokeWidth"`
}

// Frame2D describes everything the 2D view draws for one frame
type Frame2D struct {
	Width      float64            `json:"width"`
	Height     float64            `json:"height"`
	Background string             `json:"background"`
	Camera     projector.Camera2D `json:"camera"`
	Links      []LinkStroke       `json:"links"`
	Particles  []Particle         `json:"particles"`
	Nodes      []NodeGlyph        `json:"nodes"`
	Overlay    projector.Overlay  `json:"overlay"`
	TextColor  string             `json:"textColor"`
	ValueColor string             `json:"valueColor"`
	FontSize   float64            `json:"fontSize"`
	Skipped    int                `json:"skipped"`
	Tick       uint64             `json:"tick"`
}

// Builder turns snapshots into frames for one view
type Builder struct {
	Style Style
	Flags Flags
}

// Build2D lays out the 2D frame. phase advances particles; callers pass a
// monotonically increasing frame counter.
func (b Builder) Build2D(snap layout.Snapshot, cam projector.Camera2D, ov projector.Overlay, phase float64) Frame2D {
	st := b.Style
	f := Frame2D{
		Width:      cam.Width,
		Height:     cam.Height,
		Background: st.Background,
		Camera:     cam,
		Links:      make([]LinkStroke, 0, len(snap.Links)),
		Particles:  []Particle{},
		Nodes:      make([]NodeGlyph, 0, len(snap.Nodes)),
		Overlay:    ov,
		TextColor:  st.TextColor,
		ValueColor: st.ValueColor,
		FontSize:   st.FontSize,
		Tick:       snap.Ticks,
	}

	pos := make(map[string]r2.Vec, len(snap.Nodes))
	for _, n := range snap.Nodes {
		if n.Pos == nil {
			f.Skipped++
			continue
		}
		p := to2(*n.Pos)
		pos[n.ID] = p
		f.Nodes = append(f.Nodes, NodeGlyph{
			ID:          n.ID,
			Type:        n.Type,
			Shape:       ShapeFor(n.Type, b.Flags.AltShapes),
			Center:      p,
			Radius:      st.nodeRadius(n.Size),
			Fill:        graph.NodeColor(n.Type, b.Flags.AltShapes),
			Stroke:      st.NodeStroke,
			StrokeWidth: 1,
		})
	}

	scale := cam.Scale
	if scale <= 0 {
		scale = 1
	}
	for i, l := range snap.Links {
		from, ok1 := pos[l.Source]
		to, ok2 := pos[l.Target]
		if !ok1 || !ok2 {
			f.Skipped++
			continue
		}
		s := LinkStroke{
			ID:        linkID(l, i),
			Source:    l.Source,
			Target:    l.Target,
			From:      from,
			To:        to,
			Color:     st.LinkColor,
			Width:     st.linkWidth(l.Weight),
			IsReverse: l.IsReverse,
		}
		if b.Flags.Bidirectional {
			s.Color = st.ForwardColor
			if l.IsReverse {
				s.Color = st.ReverseColor
			}
		}

		sign := float64(l.ParallelSign)
		if sign != 0 {
			normal, length := canonicalNormal(l, from, to)
			if b.Flags.LinkMode == LinkOffset {
				off := r2.Scale(st.OffsetDistance/scale*sign, normal)
				s.From, s.To = r2.Add(from, off), r2.Add(to, off)
			} else if length > 0 {
				mid := r2.Scale(0.5, r2.Add(from, to))
				c := r2.Add(mid, r2.Scale(st.Curvature*length*sign, normal))
				s.Control = &c
			}
		}

		s.Arrow = b.arrow2D(l, s)
		f.Links = append(f.Links, s)

		for k := 0; k < st.ParticleCount; k++ {
			t := fract(phase*st.ParticleSpeed + float64(k)/float64(st.ParticleCount))
			f.Particles = append(f.Particles, Particle{
				LinkID: s.ID,
				Pos:    s.Point(t),
				Radius: st.ParticleWidth / 2,
				Color:  st.ParticleColor,
			})
		}
	}
	return f
}

func (b Builder) arrow2D(l graph.Link, s LinkStroke) *Arrow {
	length := b.Style.ArrowLength
	color := s.Color
	if l.ShowArrow {
		if l.ArrowLength > 0 {
			length = l.ArrowLength
		}
		if l.ArrowColor != "" {
			color = l.ArrowColor
		}
	}
	if length <= 0 {
		return nil
	}
	t := b.Style.ArrowRelPos
	tan := s.tangent(t)
	if l.ShowArrow && l.ArrowPosition == graph.ArrowAtSource {
		tan = r2.Scale(-1, tan)
	}
	if r2.Norm2(tan) == 0 {
		return nil
	}
	return &Arrow{
		Tip:    s.Point(t),
		Angle:  math.Atan2(tan.Y, tan.X),
		Length: length,
		Color:  color,
	}
}

// Outline returns the arrowhead triangle
func (a Arrow) Outline() []r2.Vec {
	back := a.Angle + math.Pi
	spread := math.Pi / 6
	return []r2.Vec{
		a.Tip,
		{X: a.Tip.X + a.Length*math.Cos(back-spread), Y: a.Tip.Y + a.Length*math.Sin(back-spread)},
		{X: a.Tip.X + a.Length*math.Cos(back+spread), Y: a.Tip.Y + a.Length*math.Sin(back+spread)},
	}
}

func linkID(l graph.Link, i int) string {
	if l.ID != "" {
		return l.ID
	}
	return l.Source + "-" + l.Target + "-" + strconv.Itoa(i)
}
