// Package layout runs force-directed graph layouts in two or three
// dimensions. Each Simulation owns a private copy of its nodes.
package layout

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/recera/dualgraph/pkg/graph"
)

var (
	initialRadius    = 10.0
	initialAngleRoll = math.Pi * (3 - math.Sqrt(5))
	initialAngleYaw  = math.Pi * 20 / (9 + math.Sqrt(221))
)

type spring struct {
	src, tgt int
	distance float64
	strength float64
	bias     float64
}

// Simulation is a continuously running force layout.
//
// Nodes are placed on the first tick, so a freshly created simulation
// reports no positions. Links whose endpoints are unknown take no part in
// the physics.
type Simulation struct {
	mu sync.RWMutex

	cfg     Config
	nodes   []graph.Node
	links   []graph.Link
	index   map[string]int
	springs []spring
	vel     []r3.Vec
	fixed   map[int]r3.Vec

	alpha   float64
	ticks   uint64
	placed  bool
	last    time.Time
	backlog time.Duration
	rng     *rand.Rand
}

// Snapshot is a consistent, deep-copied view of a simulation
type Snapshot struct {
	Nodes  []graph.Node
	Links  []graph.Link
	Ticks  uint64
	Alpha  float64
	Energy float64
}

// New creates a simulation over a deep copy of ds
func New(cfg Config, ds graph.Dataset) *Simulation {
	cfg = cfg.withDefaults()
	c := ds.Clone()
	s := &Simulation{
		cfg:   cfg,
		nodes: c.Nodes,
		index: c.Index(),
		vel:   make([]r3.Vec, len(c.Nodes)),
		fixed: make(map[int]r3.Vec),
		alpha: cfg.AlphaStart,
		rng:   rand.New(rand.NewSource(cfg.Seed)),
	}
	s.setLinks(c.Links)
	return s
}

// Config returns the effective configuration
func (s *Simulation) Config() Config {
	return s.cfg
}

// SetLinks replaces the link set and reheats the layout
func (s *Simulation) SetLinks(links []graph.Link) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLinks(append([]graph.Link(nil), links...))
	s.alpha = math.Max(s.alpha, s.cfg.AlphaStart*0.3)
}

// SetNodeValues copies derived values onto the simulation's nodes without
// touching positions.
func (s *Simulation) SetNodeValues(nodes []graph.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range nodes {
		i, ok := s.index[n.ID]
		if !ok {
			continue
		}
		pos := s.nodes[i].Pos
		s.nodes[i] = n.Clone()
		s.nodes[i].Pos = pos
	}
}

func (s *Simulation) setLinks(links []graph.Link) {
	s.links = links
	s.springs = s.springs[:0]

	degree := make([]int, len(s.nodes))
	for _, l := range links {
		si, ok1 := s.index[l.Source]
		ti, ok2 := s.index[l.Target]
		if !ok1 || !ok2 {
			continue
		}
		degree[si]++
		degree[ti]++
		s.springs = append(s.springs, spring{
			src:      si,
			tgt:      ti,
			distance: s.cfg.LinkDistanceBase + l.Weight*s.cfg.LinkDistanceMultiplier,
		})
	}
	for i := range s.springs {
		sp := &s.springs[i]
		ds, dt := float64(degree[sp.src]), float64(degree[sp.tgt])
		sp.strength = 1 / math.Min(ds, dt)
		sp.bias = ds / (ds + dt)
	}
}

// Warmup runs the configured number of warm-up ticks
func (s *Simulation) Warmup() {
	for i := 0; i < s.cfg.WarmupTicks; i++ {
		s.Tick()
	}
}

// Advance runs however many fixed-size ticks have elapsed since the last
// call. Repeated calls with the same time run nothing.
func (s *Simulation) Advance(now time.Time) int {
	s.mu.Lock()
	if s.last.IsZero() {
		s.last = now
		s.mu.Unlock()
		s.Tick()
		return 1
	}
	if !now.After(s.last) {
		s.mu.Unlock()
		return 0
	}
	s.backlog += now.Sub(s.last)
	s.last = now
	n := int(s.backlog / s.cfg.TickInterval)
	s.backlog -= time.Duration(n) * s.cfg.TickInterval
	if n > s.cfg.MaxTicksPerAdvance {
		n = s.cfg.MaxTicksPerAdvance
	}
	s.mu.Unlock()

	for i := 0; i < n; i++ {
		s.Tick()
	}
	return n
}

// Tick advances the layout by one step
func (s *Simulation) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.placed {
		s.place()
	}
	s.alpha += (s.cfg.AlphaTarget - s.alpha) * s.cfg.AlphaDecay
	if s.alpha < s.cfg.AlphaMin {
		// never stops
		s.alpha = s.cfg.AlphaMin
	}

	s.applyLinks()
	s.applyCharge()
	if s.cfg.Dimensions == 3 && s.cfg.ZStrength > 0 {
		s.applyZ()
	}

	decay := 1 - s.cfg.VelocityDecay
	for i := range s.nodes {
		if p, ok := s.fixed[i]; ok {
			*s.nodes[i].Pos = p
			s.vel[i] = r3.Vec{}
			continue
		}
		s.vel[i] = r3.Scale(decay, s.vel[i])
		*s.nodes[i].Pos = r3.Add(*s.nodes[i].Pos, s.vel[i])
	}
	s.applyCenter()
	s.ticks++
}

// place seeds positions on a phyllotaxis spiral. In 3D each node type
// starts on its own z stratum.
func (s *Simulation) place() {
	for i := range s.nodes {
		if s.nodes[i].Pos != nil {
			continue
		}
		fi := float64(i)
		var p r3.Vec
		if s.cfg.Dimensions == 3 {
			r := initialRadius * math.Cbrt(0.5+fi)
			roll, yaw := fi*initialAngleRoll, fi*initialAngleYaw
			p = r3.Vec{
				X: r * math.Sin(roll) * math.Cos(yaw),
				Y: r * math.Cos(roll),
				Z: r * math.Sin(roll) * math.Sin(yaw),
			}
			if z, ok := s.cfg.Strata[s.nodes[i].Type]; ok {
				p.Z = z + (s.rng.Float64()-0.5)*s.cfg.StrataJitter
			}
		} else {
			r := initialRadius * math.Sqrt(0.5+fi)
			a := fi * initialAngleRoll
			p = r3.Vec{X: r * math.Cos(a), Y: r * math.Sin(a)}
		}
		p = r3.Add(p, s.cfg.Center)
		s.nodes[i].Pos = &p
	}
	s.placed = true
}

func (s *Simulation) applyLinks() {
	for _, sp := range s.springs {
		src, tgt := s.nodes[sp.src].Pos, s.nodes[sp.tgt].Pos
		d := r3.Sub(r3.Add(*tgt, s.vel[sp.tgt]), r3.Add(*src, s.vel[sp.src]))
		if d.X == 0 {
			d.X = s.jiggle()
		}
		if d.Y == 0 {
			d.Y = s.jiggle()
		}
		if s.cfg.Dimensions == 3 && d.Z == 0 {
			d.Z = s.jiggle()
		}
		l := r3.Norm(d)
		k := (l - sp.distance) / l * s.alpha * sp.strength
		d = r3.Scale(k, d)
		s.vel[sp.tgt] = r3.Sub(s.vel[sp.tgt], r3.Scale(sp.bias, d))
		s.vel[sp.src] = r3.Add(s.vel[sp.src], r3.Scale(1-sp.bias, d))
	}
}

// applyCharge is the exact pairwise many-body force
func (s *Simulation) applyCharge() {
	minSq := s.cfg.ChargeDistanceMin * s.cfg.ChargeDistanceMin
	w := s.cfg.ChargeStrength * s.alpha
	for i := range s.nodes {
		pi := *s.nodes[i].Pos
		for j := range s.nodes {
			if i == j {
				continue
			}
			d := r3.Sub(*s.nodes[j].Pos, pi)
			if d.X == 0 {
				d.X = s.jiggle()
			}
			if d.Y == 0 {
				d.Y = s.jiggle()
			}
			l := r3.Norm2(d)
			if l < minSq {
				l = math.Sqrt(minSq * l)
			}
			s.vel[i] = r3.Add(s.vel[i], r3.Scale(w/l, d))
		}
	}
}

func (s *Simulation) applyZ() {
	k := s.cfg.ZStrength * s.alpha
	for i := range s.nodes {
		s.vel[i].Z += (0 - s.nodes[i].Pos.Z) * k
	}
}

// applyCenter translates the centroid toward the anchor
func (s *Simulation) applyCenter() {
	if len(s.nodes) == 0 {
		return
	}
	var sum r3.Vec
	for _, n := range s.nodes {
		sum = r3.Add(sum, *n.Pos)
	}
	mean := r3.Scale(1/float64(len(s.nodes)), sum)
	shift := r3.Scale(s.cfg.CenterStrength, r3.Sub(mean, s.cfg.Center))
	if s.cfg.Dimensions != 3 {
		shift.Z = 0
	}
	for i := range s.nodes {
		if _, ok := s.fixed[i]; ok {
			continue
		}
		*s.nodes[i].Pos = r3.Sub(*s.nodes[i].Pos, shift)
	}
}

func (s *Simulation) jiggle() float64 {
	return (s.rng.Float64() - 0.5) * 1e-6
}

// Pin holds a node at pos until Unpin. Used for drag repositioning.
func (s *Simulation) Pin(id string, pos r3.Vec) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return false
	}
	if s.cfg.Dimensions != 3 {
		pos.Z = 0
	}
	s.fixed[i] = pos
	if s.nodes[i].Pos != nil {
		*s.nodes[i].Pos = pos
	}
	s.alpha = math.Max(s.alpha, 0.3)
	return true
}

// Unpin releases a pinned node back to the forces
func (s *Simulation) Unpin(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.index[id]; ok {
		delete(s.fixed, i)
	}
}

// Reheat raises alpha so the layout moves again
func (s *Simulation) Reheat(alpha float64) {
	s.mu.Lock()
	s.alpha = math.Max(s.alpha, alpha)
	s.mu.Unlock()
}

// Position returns a node's current position. ok is false before the node
// has been placed or when the id is unknown.
func (s *Simulation) Position(id string) (r3.Vec, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok || s.nodes[i].Pos == nil {
		return r3.Vec{}, false
	}
	return *s.nodes[i].Pos, true
}

// Alpha returns the current cooling factor
func (s *Simulation) Alpha() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.alpha
}

// Ticks returns the number of steps taken
func (s *Simulation) Ticks() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ticks
}

// Energy is the total kinetic energy
func (s *Simulation) Energy() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.energy()
}

func (s *Simulation) energy() float64 {
	var e float64
	for _, v := range s.vel {
		e += r3.Norm2(v)
	}
	return e
}

// Snapshot copies the simulation state for readers on other goroutines
func (s *Simulation) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Nodes:  graph.CloneNodes(s.nodes),
		Links:  append([]graph.Link(nil), s.links...),
		Ticks:  s.ticks,
		Alpha:  s.alpha,
		Energy: s.energy(),
	}
}
