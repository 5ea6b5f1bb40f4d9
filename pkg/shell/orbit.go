package shell

import (
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/recera/dualgraph/pkg/projector"
)

// OrbitOptions configures the 3D camera auto-rotation
type OrbitOptions struct {
	Distance float64       `yaml:"distance" toml:"distance" validate:"gte=0"`
	Step     float64       `yaml:"step" toml:"step"`
	Interval time.Duration `yaml:"interval" toml:"interval"`
}

// DefaultOrbit turns the camera π/1000 every 10ms at distance 700
func DefaultOrbit() OrbitOptions {
	return OrbitOptions{
		Distance: 700,
		Step:     math.Pi / 1000,
		Interval: 10 * time.Millisecond,
	}
}

func (o OrbitOptions) withDefaults() OrbitOptions {
	d := DefaultOrbit()
	if o.Distance > 0 {
		d.Distance = o.Distance
	}
	if o.Step != 0 {
		d.Step = o.Step
	}
	if o.Interval > 0 {
		d.Interval = o.Interval
	}
	return d
}

// Orbit rotates a camera around the y axis. The angle survives stop and
// start so resuming never jumps.
type Orbit struct {
	opts  OrbitOptions
	angle float64
}

// Angle returns the current orbit angle
func (o *Orbit) Angle() float64 { return o.angle }

// Apply places cam on the orbit at the current angle. The camera height is
// kept.
func (o *Orbit) Apply(cam *projector.Camera3D) {
	d := o.opts.Distance
	cam.Position = r3.Vec{
		X: d * math.Sin(o.angle),
		Y: cam.Position.Y,
		Z: d * math.Cos(o.angle),
	}
	cam.Target = r3.Vec{}
}

// Step applies the current angle then advances it
func (o *Orbit) Step(cam *projector.Camera3D) {
	o.Apply(cam)
	o.angle = math.Mod(o.angle+o.opts.Step, 2*math.Pi)
}
