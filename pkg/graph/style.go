package graph

// Palette colours
const (
	ColorEnvironment = "#10B981"
	ColorBoundary    = "#8B5CF6"
	ColorSystem      = "#F97316"
	ColorFallback    = "#6B7280"

	AltColorEnvironment = "#ff4d4d"
	AltColorOther       = "#10b981"
)

// NodeColor returns the fill colour for a node type. The alternate palette is
// two-colour: environment nodes against everything else.
func NodeColor(t NodeType, alt bool) string {
	if alt {
		if t == Environment {
			return AltColorEnvironment
		}
		return AltColorOther
	}
	switch t {
	case Environment:
		return ColorEnvironment
	case Boundary:
		return ColorBoundary
	case System:
		return ColorSystem
	default:
		return ColorFallback
	}
}

// ArrowPosition is the end of a link an arrowhead points at
type ArrowPosition string

const (
	ArrowAtTarget ArrowPosition = "target"
	ArrowAtSource ArrowPosition = "source"
)

// ArrowConfig describes the arrow on one source/target pair
type ArrowConfig struct {
	Source    string        `json:"source" yaml:"source" toml:"source" validate:"required"`
	Target    string        `json:"target" yaml:"target" toml:"target" validate:"required"`
	ShowArrow bool          `json:"showArrow" yaml:"showArrow" toml:"show_arrow"`
	Position  ArrowPosition `json:"position,omitempty" yaml:"position,omitempty" toml:"position,omitempty" validate:"omitempty,oneof=source target"`
	Color     string        `json:"color,omitempty" yaml:"color,omitempty" toml:"color,omitempty"`
	Length    float64       `json:"length,omitempty" yaml:"length,omitempty" toml:"length,omitempty" validate:"gte=0"`
}

const (
	DefaultArrowColor  = "#ff4d4d"
	DefaultArrowLength = 6.0
)

// ConfigureArrows returns copies of links with the arrow settings of every
// config matching them in either direction. Unmatched links keep their own.
func ConfigureArrows(links []Link, configs []ArrowConfig) []Link {
	byPair := make(map[[2]string]ArrowConfig, len(configs))
	for _, c := range configs {
		byPair[[2]string{c.Source, c.Target}] = c
	}
	out := append([]Link(nil), links...)
	for i := range out {
		l := &out[i]
		c, ok := byPair[[2]string{l.Source, l.Target}]
		if !ok {
			c, ok = byPair[[2]string{l.Target, l.Source}]
		}
		if !ok {
			continue
		}
		l.ShowArrow = c.ShowArrow
		l.ArrowPosition = c.Position
		if l.ArrowPosition == "" {
			l.ArrowPosition = ArrowAtTarget
		}
		l.ArrowColor = c.Color
		if l.ArrowColor == "" {
			l.ArrowColor = DefaultArrowColor
		}
		l.ArrowLength = c.Length
		if l.ArrowLength == 0 {
			l.ArrowLength = DefaultArrowLength
		}
	}
	return out
}
