package layout

import (
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/recera/dualgraph/pkg/graph"
)

// Config holds the force parameters of one simulation.
//
// Zero values are replaced by the defaults of the configured dimension
// when the simulation is created, except where noted.
type Config struct {
	Dimensions int `yaml:"dimensions" toml:"dimensions" validate:"omitempty,oneof=2 3"`

	// Many-body. Negative strength repels.
	ChargeStrength    float64 `yaml:"chargeStrength" toml:"charge_strength"`
	ChargeDistanceMin float64 `yaml:"chargeDistanceMin" toml:"charge_distance_min" validate:"gte=0"`

	// Link distance is LinkDistanceBase + weight*LinkDistanceMultiplier
	LinkDistanceBase       float64 `yaml:"linkDistanceBase" toml:"link_distance_base" validate:"gte=0"`
	LinkDistanceMultiplier float64 `yaml:"linkDistanceMultiplier" toml:"link_distance_multiplier"`

	// Center is the anchor the centering force pulls the centroid toward
	Center         r3.Vec  `yaml:"center" toml:"center"`
	CenterStrength float64 `yaml:"centerStrength" toml:"center_strength" validate:"gte=0,lte=1"`

	// 3D only. ZStrength pulls nodes back toward z=0; Strata seeds the initial
	// z of each node type.
	ZStrength    float64                    `yaml:"zStrength" toml:"z_strength" validate:"gte=0"`
	Strata       map[graph.NodeType]float64 `yaml:"strata,omitempty" toml:"strata,omitempty"`
	StrataJitter float64                    `yaml:"strataJitter" toml:"strata_jitter" validate:"gte=0"`

	AlphaStart    float64 `yaml:"alphaStart" toml:"alpha_start" validate:"gte=0,lte=1"`
	AlphaMin      float64 `yaml:"alphaMin" toml:"alpha_min" validate:"gte=0"`
	AlphaDecay    float64 `yaml:"alphaDecay" toml:"alpha_decay" validate:"gte=0,lte=1"`
	AlphaTarget   float64 `yaml:"alphaTarget" toml:"alpha_target" validate:"gte=0,lte=1"`
	VelocityDecay float64 `yaml:"velocityDecay" toml:"velocity_decay" validate:"gte=0,lte=1"`

	TickInterval       time.Duration `yaml:"tickInterval" toml:"tick_interval"`
	MaxTicksPerAdvance int           `yaml:"maxTicksPerAdvance" toml:"max_ticks_per_advance" validate:"gte=0"`
	WarmupTicks        int           `yaml:"warmupTicks" toml:"warmup_ticks" validate:"gte=0"`

	Seed int64 `yaml:"seed" toml:"seed"`
}

// Default2D returns the planar layout parameters
func Default2D() Config {
	return Config{
		Dimensions:             2,
		ChargeStrength:         -600,
		ChargeDistanceMin:      1,
		LinkDistanceBase:       80,
		LinkDistanceMultiplier: 40,
		CenterStrength:         1,
		AlphaStart:             1,
		AlphaMin:               0.001,
		AlphaDecay:             1 - math.Pow(0.001, 1.0/300),
		VelocityDecay:          0.4,
		TickInterval:           16 * time.Millisecond,
		MaxTicksPerAdvance:     4,
		Seed:                   42,
	}
}

// Default3D returns the spatial layout parameters. Node types start on
// separate z strata.
func Default3D() Config {
	c := Default2D()
	c.Dimensions = 3
	c.ChargeStrength = -120
	c.LinkDistanceBase = 30
	c.LinkDistanceMultiplier = 20
	c.ZStrength = 0.05
	c.Strata = map[graph.NodeType]float64{
		graph.Environment: 100,
		graph.Boundary:    0,
		graph.System:      -100,
	}
	c.StrataJitter = 50
	return c
}

func (c Config) withDefaults() Config {
	var d Config
	if c.Dimensions == 3 {
		d = Default3D()
	} else {
		d = Default2D()
	}
	if c.ChargeStrength != 0 {
		d.ChargeStrength = c.ChargeStrength
	}
	if c.ChargeDistanceMin != 0 {
		d.ChargeDistanceMin = c.ChargeDistanceMin
	}
	if c.LinkDistanceBase != 0 {
		d.LinkDistanceBase = c.LinkDistanceBase
	}
	if c.LinkDistanceMultiplier != 0 {
		d.LinkDistanceMultiplier = c.LinkDistanceMultiplier
	}
	d.Center = c.Center
	if c.CenterStrength != 0 {
		d.CenterStrength = c.CenterStrength
	}
	if c.ZStrength != 0 {
		d.ZStrength = c.ZStrength
	}
	if c.Strata != nil {
		d.Strata = c.Strata
	}
	if c.StrataJitter != 0 {
		d.StrataJitter = c.StrataJitter
	}
	if c.AlphaStart != 0 {
		d.AlphaStart = c.AlphaStart
	}
	if c.AlphaMin != 0 {
		d.AlphaMin = c.AlphaMin
	}
	if c.AlphaDecay != 0 {
		d.AlphaDecay = c.AlphaDecay
	}
	// zero is a meaningful target
	d.AlphaTarget = c.AlphaTarget
	if c.VelocityDecay != 0 {
		d.VelocityDecay = c.VelocityDecay
	}
	if c.TickInterval != 0 {
		d.TickInterval = c.TickInterval
	}
	if c.MaxTicksPerAdvance != 0 {
		d.MaxTicksPerAdvance = c.MaxTicksPerAdvance
	}
	d.WarmupTicks = c.WarmupTicks
	if c.Seed != 0 {
		d.Seed = c.Seed
	}
	return d
}
