package render

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/recera/dualgraph/pkg/bidir"
	"github.com/recera/dualgraph/pkg/graph"
	"github.com/recera/dualgraph/pkg/layout"
	"github.com/recera/dualgraph/pkg/projector"
)

// DegradedNotice is shown in place of the scene when 3D is unavailable
const DegradedNotice = "3D view unavailable"

// Sprite is camera-facing text anchored in world space
type Sprite struct {
	Lines    []string `json:"lines"`
	Position r3.Vec   `json:"position"`
	Height   float64  `json:"height"`
	Color    string   `json:"color"`
}

// Material is the surface of a node mesh
type Material struct {
	Color       string  `json:"color"`
	Opacity     float64 `json:"opacity"`
	Transparent bool    `json:"transparent"`
	DoubleSide  bool    `json:"doubleSide"`
}

// NodeObject is one node in the scene
type NodeObject struct {
	ID       string         `json:"id"`
	Type     graph.NodeType `json:"type"`
	Position r3.Vec         `json:"position"`
	Geometry Geometry       `json:"geometry"`
	Material Material       `json:"material"`
	Label    Sprite         `json:"label"`
	Value    *Sprite        `json:"value,omitempty"`
}

// Arrow3D is a cone-shaped arrowhead
type Arrow3D struct {
	Tip    r3.Vec  `json:"tip"`
	Dir    r3.Vec  `json:"dir"`
	Length float64 `json:"length"`
	Color  string  `json:"color"`
}

// Particle3D is a moving dot along a link
type Particle3D struct {
	Pos    r3.Vec  `json:"pos"`
	Radius float64 `json:"radius"`
	Color  string  `json:"color"`
}

// LinkObject is one link in the scene
type LinkObject struct {
	ID        string       `json:"id"`
	Source    string       `json:"source"`
	Target    string       `json:"target"`
	From      r3.Vec       `json:"from"`
	To        r3.Vec       `json:"to"`
	Control   *r3.Vec      `json:"control,omitempty"`
	Curvature float64      `json:"curvature"`
	Rotation  float64      `json:"rotation"`
	Width     float64      `json:"width"`
	Color     string       `json:"color"`
	IsReverse bool         `json:"isReverse,omitempty"`
	Label     *Sprite      `json:"label,omitempty"`
	Arrow     *Arrow3D     `json:"arrow,omitempty"`
	Particles []Particle3D `json:"particles"`
}

// Point returns the point at t in [0, 1] along the link
func (l LinkObject) Point(t float64) r3.Vec {
	if l.Control == nil {
		return r3.Add(l.From, r3.Scale(t, r3.Sub(l.To, l.From)))
	}
	return quadPoint3(l.From, *l.Control, l.To, t)
}

func (l LinkObject) tangent(t float64) r3.Vec {
	if l.Control == nil {
		return r3.Sub(l.To, l.From)
	}
	return quadTangent3(l.From, *l.Control, l.To, t)
}

// Light is a scene light
type Light struct {
	Kind      string  `json:"kind"`
	Color     string  `json:"color"`
	Intensity float64 `json:"intensity"`
	Position  r3.Vec  `json:"position"`
}

// AutoNode describes the renderer's built-in node object. The scene draws
// its own meshes, so it is always suppressed.
type AutoNode struct {
	Size    float64 `json:"size"`
	Color   string  `json:"color"`
	Opacity float64 `json:"opacity"`
}

// Frame3D describes everything the 3D view draws for one frame
type Frame3D struct {
	Width      float64            `json:"width"`
	Height     float64            `json:"height"`
	Background string             `json:"background"`
	Camera     projector.Camera3D `json:"camera"`
	Nodes      []NodeObject       `json:"nodes"`
	Links      []LinkObject       `json:"links"`
	Lights     []Light            `json:"lights"`
	AutoNode   AutoNode           `json:"autoNode"`
	Degraded   bool               `json:"degraded,omitempty"`
	Notice     string             `json:"notice,omitempty"`
	Skipped    int                `json:"skipped"`
	Tick       uint64             `json:"tick"`
}

// DegradedFrame3D is the frame shown when no 3D context is available
func DegradedFrame3D(width, height float64, st Style) Frame3D {
	return Frame3D{
		Width:      width,
		Height:     height,
		Background: st.Background,
		Nodes:      []NodeObject{},
		Links:      []LinkObject{},
		Degraded:   true,
		Notice:     DegradedNotice,
	}
}

// Build3D lays out the scene for one frame
func (b Builder) Build3D(snap layout.Snapshot, cam projector.Camera3D, phase float64) Frame3D {
	st := b.Style
	f := Frame3D{
		Width:      cam.Width,
		Height:     cam.Height,
		Background: st.Background,
		Camera:     cam,
		Nodes:      make([]NodeObject, 0, len(snap.Nodes)),
		Links:      make([]LinkObject, 0, len(snap.Links)),
		Lights: []Light{
			{Kind: "ambient", Color: "#888888", Intensity: 0.4},
			{Kind: "directional", Color: "#ffffff", Intensity: 0.6, Position: r3.Vec{X: 1, Y: 1, Z: 1}},
		},
		AutoNode: AutoNode{Size: 0, Color: "transparent", Opacity: 0},
		Tick:     snap.Ticks,
	}

	valueOpts := graph.DisplayOptions{ShowMain: b.Flags.ShowMainValues, ShowInOut: b.Flags.ShowInOutValues}
	pos := make(map[string]r3.Vec, len(snap.Nodes))
	for _, n := range snap.Nodes {
		if n.Pos == nil {
			f.Skipped++
			continue
		}
		p := *n.Pos
		pos[n.ID] = p
		label := n.Label
		if label == "" {
			label = n.ID
		}
		obj := NodeObject{
			ID:       n.ID,
			Type:     n.Type,
			Position: p,
			Geometry: GeometryFor(n.Type, b.Flags.AltShapes, st.nodeRadius(n.Size)),
			Material: Material{
				Color:       graph.NodeColor(n.Type, b.Flags.AltShapes),
				Opacity:     st.NodeOpacity,
				Transparent: st.NodeOpacity < 1,
				DoubleSide:  true,
			},
			Label: Sprite{
				Lines:    []string{label},
				Position: r3.Add(p, r3.Vec{Y: n.Size + st.LabelOffset}),
				Height:   st.TextHeight,
				Color:    st.TextColor,
			},
		}
		if lines := graph.DisplayValue(n, valueOpts); len(lines) > 0 {
			obj.Value = &Sprite{
				Lines:    lines,
				Position: r3.Sub(p, r3.Vec{Y: n.Size + st.ValueOffset}),
				Height:   st.ValueTextHeight,
				Color:    st.ValueColor,
			}
		}
		f.Nodes = append(f.Nodes, obj)
	}

	for i, l := range snap.Links {
		from, ok1 := pos[l.Source]
		to, ok2 := pos[l.Target]
		if !ok1 || !ok2 {
			f.Skipped++
			continue
		}
		o := LinkObject{
			ID:        linkID(l, i),
			Source:    l.Source,
			Target:    l.Target,
			From:      from,
			To:        to,
			Width:     st.linkWidth(l.Weight),
			Color:     st.LinkColor,
			IsReverse: l.IsReverse,
			Particles: []Particle3D{},
		}
		if b.Flags.Bidirectional {
			o.Color = st.ForwardColor
			if l.IsReverse {
				o.Color = st.ReverseColor
			}
		}
		if l.ParallelSign != 0 {
			axis, perp, length := canonicalAxis3(l, from, to)
			if length > 0 {
				o.Curvature = st.Curvature * float64(l.ParallelSign)
				o.Rotation = bidir.PairHashAngle(l)
				bend := r3.Rotate(perp, o.Rotation, axis)
				mid := r3.Scale(0.5, r3.Add(from, to))
				c := r3.Add(mid, r3.Scale(o.Curvature*length, bend))
				o.Control = &c
			}
		}
		if b.Flags.ShowLinkTexts {
			o.Label = &Sprite{
				Lines:    []string{projector.LinkText(l)},
				Position: r3.Scale(0.5, r3.Add(from, to)),
				Height:   st.LinkTextHeight,
				Color:    st.TextColor,
			}
		}
		if l.ShowArrow {
			o.Arrow = arrow3D(l, o, st)
		}
		for k := 0; k < st.ParticleCount; k++ {
			t := fract(phase*st.ParticleSpeed + float64(k)/float64(st.ParticleCount))
			o.Particles = append(o.Particles, Particle3D{
				Pos:    o.Point(t),
				Radius: st.ParticleWidth / 2,
				Color:  st.ParticleColor,
			})
		}
		f.Links = append(f.Links, o)
	}
	return f
}

func arrow3D(l graph.Link, o LinkObject, st Style) *Arrow3D {
	length := l.ArrowLength
	if length <= 0 {
		length = st.ArrowLength
	}
	color := l.ArrowColor
	if color == "" {
		color = o.Color
	}
	// stop short of the node mesh at either end
	t := 0.9
	dir := o.tangent(t)
	if l.ArrowPosition == graph.ArrowAtSource {
		t = 0.1
		dir = r3.Scale(-1, o.tangent(t))
	}
	if r3.Norm2(dir) == 0 {
		return nil
	}
	return &Arrow3D{Tip: o.Point(t), Dir: r3.Unit(dir), Length: length, Color: color}
}
