// Package render turns layout snapshots into frame descriptions and paints
// them onto drawing surfaces.
//
// Building a frame is pure: it reads a snapshot and a camera and returns
// plain data. Painting walks that data and issues primitives to a Surface.
package render

// LinkMode selects how the 2D view separates the two directions of a pair
type LinkMode string

const (
	// LinkCurved bends each direction onto its own side of the pair
	LinkCurved LinkMode = "curved"
	// LinkOffset draws each direction as a parallel straight stroke
	LinkOffset LinkMode = "offset"
)

// Flags are the display toggles shared by both views
type Flags struct {
	Bidirectional   bool     `json:"bidirectional" yaml:"bidirectional" toml:"bidirectional"`
	AltShapes       bool     `json:"altShapes" yaml:"altShapes" toml:"alt_shapes"`
	ShowLinkTexts   bool     `json:"showLinkTexts" yaml:"showLinkTexts" toml:"show_link_texts"`
	ShowMainValues  bool     `json:"showMainValues" yaml:"showMainValues" toml:"show_main_values"`
	ShowInOutValues bool     `json:"showInOutValues" yaml:"showInOutValues" toml:"show_in_out_values"`
	LinkMode        LinkMode `json:"linkMode" yaml:"linkMode" toml:"link_mode" validate:"omitempty,oneof=curved offset"`
}

// Style holds the colours and sizes used when building frames
type Style struct {
	Background    string  `yaml:"background" toml:"background"`
	TextColor     string  `yaml:"textColor" toml:"text_color"`
	ValueColor    string  `yaml:"valueColor" toml:"value_color"`
	NodeStroke    string  `yaml:"nodeStroke" toml:"node_stroke"`
	LinkColor     string  `yaml:"linkColor" toml:"link_color"`
	ForwardColor  string  `yaml:"forwardColor" toml:"forward_color"`
	ReverseColor  string  `yaml:"reverseColor" toml:"reverse_color"`
	ParticleColor string  `yaml:"particleColor" toml:"particle_color"`
	FontSize      float64 `yaml:"fontSize" toml:"font_size"`
	ValueFontSize float64 `yaml:"valueFontSize" toml:"value_font_size"`

	// Node radius is Size*SizeScale unless FixedRadius is set
	SizeScale   float64 `yaml:"sizeScale" toml:"size_scale"`
	FixedRadius float64 `yaml:"fixedRadius" toml:"fixed_radius"`

	LinkWidthMultiplier float64 `yaml:"linkWidthMultiplier" toml:"link_width_multiplier"`
	MinLinkWidth        float64 `yaml:"minLinkWidth" toml:"min_link_width"`
	Curvature           float64 `yaml:"curvature" toml:"curvature"`
	OffsetDistance      float64 `yaml:"offsetDistance" toml:"offset_distance"`
	ArrowLength         float64 `yaml:"arrowLength" toml:"arrow_length"`
	ArrowRelPos         float64 `yaml:"arrowRelPos" toml:"arrow_rel_pos"`

	ParticleCount int     `yaml:"particleCount" toml:"particle_count"`
	ParticleWidth float64 `yaml:"particleWidth" toml:"particle_width"`
	ParticleSpeed float64 `yaml:"particleSpeed" toml:"particle_speed"`

	// 3D sprites and materials
	NodeOpacity     float64 `yaml:"nodeOpacity" toml:"node_opacity"`
	TextHeight      float64 `yaml:"textHeight" toml:"text_height"`
	ValueTextHeight float64 `yaml:"valueTextHeight" toml:"value_text_height"`
	LinkTextHeight  float64 `yaml:"linkTextHeight" toml:"link_text_height"`
	LabelOffset     float64 `yaml:"labelOffset" toml:"label_offset"`
	ValueOffset     float64 `yaml:"valueOffset" toml:"value_offset"`
}

const (
	ForwardColor = "#ff4d4d"
	ReverseColor = "#2b6cff"
)

// Default2DStyle is the canvas view style
func Default2DStyle() Style {
	return Style{
		Background:          "#000000",
		TextColor:           "#ffffff",
		ValueColor:          "#FFD700",
		NodeStroke:          "rgba(255,255,255,0.3)",
		LinkColor:           "rgba(255,255,255,0.8)",
		ForwardColor:        ForwardColor,
		ReverseColor:        ReverseColor,
		ParticleColor:       "rgba(255,0,0,0.5)",
		FontSize:            12,
		ValueFontSize:       10,
		SizeScale:           1.8,
		LinkWidthMultiplier: 2,
		MinLinkWidth:        1,
		Curvature:           0.3,
		OffsetDistance:      12,
		ArrowLength:         4,
		ArrowRelPos:         0.5,
		ParticleCount:       3,
		ParticleWidth:       6,
		ParticleSpeed:       0.005,
	}
}

// Default3DStyle is the scene view style
func Default3DStyle() Style {
	s := Default2DStyle()
	s.LinkWidthMultiplier = 3
	s.MinLinkWidth = 0.5
	s.ArrowLength = 6
	s.ParticleCount = 2
	s.ParticleWidth = 2
	s.ParticleSpeed = 0.008
	s.NodeOpacity = 0.8
	s.TextHeight = 8
	s.ValueTextHeight = 6
	s.LinkTextHeight = 4
	s.LabelOffset = 4
	s.ValueOffset = 8
	return s
}

func (s Style) nodeRadius(size float64) float64 {
	if s.FixedRadius > 0 {
		return s.FixedRadius
	}
	return size * s.SizeScale
}

func (s Style) linkWidth(weight float64) float64 {
	if weight == 0 {
		weight = 0.5
	}
	w := weight * s.LinkWidthMultiplier
	if w < s.MinLinkWidth {
		return s.MinLinkWidth
	}
	return w
}
