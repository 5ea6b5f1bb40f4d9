package projector

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/recera/dualgraph/pkg/graph"
)

// Layer orders overlay elements; higher layers paint on top
type Layer int

const (
	LinkLayer Layer = 50
	NodeLayer Layer = 200
)

// Options configures overlay placement
type Options struct {
	ShowLinkTexts   bool `yaml:"showLinkTexts" toml:"show_link_texts"`
	ShowMainValues  bool `yaml:"showMainValues" toml:"show_main_values"`
	ShowInOutValues bool `yaml:"showInOutValues" toml:"show_in_out_values"`

	// Node radius in world units is Size*SizeScale
	SizeScale float64 `yaml:"sizeScale" toml:"size_scale"`
	LabelGap  float64 `yaml:"labelGap" toml:"label_gap"`
	ValueGap  float64 `yaml:"valueGap" toml:"value_gap"`

	LabelWidth        float64 `yaml:"labelWidth" toml:"label_width"`
	LabelHeight       float64 `yaml:"labelHeight" toml:"label_height"`
	LabelDistance     float64 `yaml:"labelDistance" toml:"label_distance"`
	BaseAngleStep     float64 `yaml:"baseAngleStep" toml:"base_angle_step"`
	RetryAngleStep    float64 `yaml:"retryAngleStep" toml:"retry_angle_step"`
	RetryDistanceStep float64 `yaml:"retryDistanceStep" toml:"retry_distance_step"`
	MaxAttempts       int     `yaml:"maxAttempts" toml:"max_attempts" validate:"gte=0,lte=64"`
}

// DefaultOptions returns the standard overlay geometry with all texts off
func DefaultOptions() Options {
	return Options{
		SizeScale:         1.8,
		LabelGap:          20,
		ValueGap:          15,
		LabelWidth:        44,
		LabelHeight:       12,
		LabelDistance:     15,
		BaseAngleStep:     math.Pi / 8,
		RetryAngleStep:    math.Pi / 6,
		RetryDistanceStep: 5,
		MaxAttempts:       8,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	d.ShowLinkTexts = o.ShowLinkTexts
	d.ShowMainValues = o.ShowMainValues
	d.ShowInOutValues = o.ShowInOutValues
	if o.SizeScale != 0 {
		d.SizeScale = o.SizeScale
	}
	if o.LabelGap != 0 {
		d.LabelGap = o.LabelGap
	}
	if o.ValueGap != 0 {
		d.ValueGap = o.ValueGap
	}
	if o.LabelWidth != 0 {
		d.LabelWidth = o.LabelWidth
	}
	if o.LabelHeight != 0 {
		d.LabelHeight = o.LabelHeight
	}
	if o.LabelDistance != 0 {
		d.LabelDistance = o.LabelDistance
	}
	if o.BaseAngleStep != 0 {
		d.BaseAngleStep = o.BaseAngleStep
	}
	if o.RetryAngleStep != 0 {
		d.RetryAngleStep = o.RetryAngleStep
	}
	if o.RetryDistanceStep != 0 {
		d.RetryDistanceStep = o.RetryDistanceStep
	}
	if o.MaxAttempts != 0 {
		d.MaxAttempts = o.MaxAttempts
	}
	return d
}

// NodeLabel is the screen placement of a node's label and value lines
type NodeLabel struct {
	ID     string   `json:"id"`
	Text   string   `json:"text"`
	X      float64  `json:"x"`
	Y      float64  `json:"y"`
	Values []string `json:"values,omitempty"`
	ValueX float64  `json:"valueX"`
	ValueY float64  `json:"valueY"`
	Depth  float64  `json:"depth"`
	Layer  Layer    `json:"layer"`
}

// LinkLabel is the screen placement of a link's text
type LinkLabel struct {
	ID          string  `json:"id"`
	Text        string  `json:"text"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Box         r2.Box  `json:"-"`
	Attempts    int     `json:"attempts"`
	Overlapping bool    `json:"overlapping,omitempty"`
	Layer       Layer   `json:"layer"`
}

// Skips counts elements left out of an overlay this frame
type Skips struct {
	Unplaced        int `json:"unplaced,omitempty"`
	MissingEndpoint int `json:"missingEndpoint,omitempty"`
	Hidden          int `json:"hidden,omitempty"`
}

// Total returns the number of skipped elements
func (s Skips) Total() int { return s.Unplaced + s.MissingEndpoint + s.Hidden }

// Overlay is one frame's worth of label placements
type Overlay struct {
	Nodes      []NodeLabel `json:"nodes"`
	Links      []LinkLabel `json:"links"`
	Skipped    Skips       `json:"skipped"`
	Collisions int         `json:"collisions"`
}

// Projector turns layout snapshots into overlays for one view
type Projector struct {
	opts   Options
	placer *LabelPlacer
}

// New creates a projector
func New(opts Options) *Projector {
	opts = opts.withDefaults()
	return &Projector{opts: opts, placer: NewLabelPlacer(opts)}
}

// Options returns the effective options
func (p *Projector) Options() Options { return p.opts }

// SetOptions replaces the display toggles and geometry
func (p *Projector) SetOptions(opts Options) {
	p.opts = opts.withDefaults()
	p.placer = NewLabelPlacer(p.opts)
}

// Sync projects every placed node and, when link texts are on, every link
// midpoint. Elements that cannot be positioned this frame are skipped and
// counted, never drawn at the origin.
func (p *Projector) Sync(nodes []graph.Node, links []graph.Link, t Transform) Overlay {
	ov := Overlay{
		Nodes: make([]NodeLabel, 0, len(nodes)),
		Links: []LinkLabel{},
	}
	byID := make(map[string]*graph.Node, len(nodes))
	for i := range nodes {
		n := &nodes[i]
		byID[n.ID] = n
		if n.Pos == nil {
			ov.Skipped.Unplaced++
			continue
		}
		pt, ok := t.Project(*n.Pos)
		if !ok {
			ov.Skipped.Hidden++
			continue
		}
		r := n.Size * p.opts.SizeScale * pt.Scale
		label := NodeLabel{
			ID:     n.ID,
			Text:   n.Label,
			X:      pt.X,
			Y:      pt.Y - r - p.opts.LabelGap,
			ValueX: pt.X,
			ValueY: pt.Y + r + p.opts.ValueGap,
			Depth:  pt.Depth,
			Layer:  NodeLayer,
		}
		if label.Text == "" {
			label.Text = n.ID
		}
		label.Values = graph.DisplayValue(*n, graph.DisplayOptions{
			ShowMain:  p.opts.ShowMainValues,
			ShowInOut: p.opts.ShowInOutValues,
		})
		ov.Nodes = append(ov.Nodes, label)
	}

	if !p.opts.ShowLinkTexts {
		return ov
	}
	p.placer.Reset()
	for i, l := range links {
		src, ok1 := byID[l.Source]
		tgt, ok2 := byID[l.Target]
		if !ok1 || !ok2 {
			ov.Skipped.MissingEndpoint++
			continue
		}
		if src.Pos == nil || tgt.Pos == nil {
			ov.Skipped.Unplaced++
			continue
		}
		mid := r3.Scale(0.5, r3.Add(*src.Pos, *tgt.Pos))
		pt, ok := t.Project(mid)
		if !ok {
			ov.Skipped.Hidden++
			continue
		}
		res := p.placer.Place(pt.Vec(), i)
		if res.Overlapping {
			ov.Collisions++
		}
		id := l.ID
		if id == "" {
			id = fmt.Sprintf("%s-%s-%d", l.Source, l.Target, i)
		}
		ov.Links = append(ov.Links, LinkLabel{
			ID:          id,
			Text:        LinkText(l),
			X:           res.Center.X,
			Y:           res.Center.Y,
			Box:         res.Box,
			Attempts:    res.Attempts,
			Overlapping: res.Overlapping,
			Layer:       LinkLayer,
		})
	}
	return ov
}

// LinkText is the label shown next to a link
func LinkText(l graph.Link) string {
	kind := l.InfluenceType
	if kind == "" {
		kind = "Connection"
	}
	return fmt.Sprintf("%s (%.2f)", kind, l.Weight)
}
