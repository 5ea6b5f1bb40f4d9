// Package shell composes the 2D and 3D views side by side and drives them.
//
// Each view owns a deep copy of the dataset, its own simulation, camera and
// projector. All periodic work runs as named scheduler tasks whose lifecycle
// the shell controls.
package shell

import (
	"context"
	"math"
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/recera/dualgraph/pkg/bidir"
	"github.com/recera/dualgraph/pkg/graph"
	"github.com/recera/dualgraph/pkg/layout"
	"github.com/recera/dualgraph/pkg/projector"
	"github.com/recera/dualgraph/pkg/render"
	"github.com/recera/dualgraph/pkg/scheduler"
)

// Task names
const (
	TaskSim2D     = "sim-2d"
	TaskSim3D     = "sim-3d"
	TaskProject2D = "project-2d"
	TaskProject3D = "project-3d"
	TaskOrbit     = "orbit"
	TaskResize    = "resize"
)

// Flags are the display toggles plus the 3D auto-rotation switch
type Flags struct {
	render.Flags `yaml:",inline"`
	Rotating     bool `json:"rotating" yaml:"rotating" toml:"rotating"`
}

// Options configures a shell
type Options struct {
	Layout2D layout.Config
	Layout3D layout.Config
	Overlay  projector.Options
	Style2D  render.Style
	Style3D  render.Style
	Orbit    OrbitOptions
	Arrows   []graph.ArrowConfig

	CameraDistance  float64
	MinPane         float64
	SplitRatio      float64
	ProjectInterval time.Duration
	ResizeInterval  time.Duration

	// Supports3D probes for a 3D drawing context. nil means supported.
	Supports3D func() bool
}

// DefaultOptions returns the standard shell setup
func DefaultOptions() Options {
	return Options{
		Layout2D:        layout.Default2D(),
		Layout3D:        layout.Default3D(),
		Overlay:         projector.DefaultOptions(),
		Style2D:         render.Default2DStyle(),
		Style3D:         render.Default3DStyle(),
		Orbit:           DefaultOrbit(),
		CameraDistance:  700,
		MinPane:         200,
		SplitRatio:      0.5,
		ProjectInterval: 16 * time.Millisecond,
		ResizeInterval:  33 * time.Millisecond,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	o.Layout2D.Dimensions = 2
	o.Layout3D.Dimensions = 3
	if o.Style2D == (render.Style{}) {
		o.Style2D = d.Style2D
	}
	if o.Style3D == (render.Style{}) {
		o.Style3D = d.Style3D
	}
	o.Orbit = o.Orbit.withDefaults()
	if o.CameraDistance <= 0 {
		o.CameraDistance = d.CameraDistance
	}
	if o.MinPane <= 0 {
		o.MinPane = d.MinPane
	}
	if o.SplitRatio <= 0 || o.SplitRatio >= 1 {
		o.SplitRatio = d.SplitRatio
	}
	if o.ProjectInterval <= 0 {
		o.ProjectInterval = d.ProjectInterval
	}
	if o.ResizeInterval <= 0 {
		o.ResizeInterval = d.ResizeInterval
	}
	return o
}

// Hooks are callbacks out of the shell. They run without the shell's lock
// held and may call back into it.
type Hooks struct {
	OnNodeClick func(view ViewKind, n graph.Node)
	OnFrame     func(view ViewKind, stats FrameStats)
	OnTicks     func(view ViewKind, ticks int)
	OnTaskPanic func(task string, err interface{})
}

// FrameStats describes one projected frame
type FrameStats struct {
	Build      time.Duration
	Skipped    projector.Skips
	Collisions int
}

type view struct {
	kind    ViewKind
	sim     *layout.Simulation
	proj    *projector.Projector
	builder render.Builder
	cam2    projector.Camera2D
	cam3    projector.Camera3D
	snap    layout.Snapshot
	overlay projector.Overlay
	frame2  render.Frame2D
	frame3  render.Frame3D
	phase   float64
}

// Shell owns both views, the split and the task schedule
type Shell struct {
	mu     sync.RWMutex
	opts   Options
	hooks  Hooks
	sched  *scheduler.Scheduler
	base   graph.Dataset
	flags  Flags
	split  Split
	orbit  Orbit
	v2, v3 *view
	has3D  bool

	divider  scheduler.FrameToken[float64]
	viewport scheduler.FrameToken[r2.Vec]
}

// New builds both views over deep copies of ds. Tasks are scheduled but
// the loop only runs after Start; Step drives it by hand.
func New(ds graph.Dataset, width, height float64, flags Flags, opts Options, hooks Hooks) *Shell {
	opts = opts.withDefaults()
	s := &Shell{
		opts:  opts,
		hooks: hooks,
		sched: scheduler.NewScheduler(),
		base:  ds.Clone(),
		flags: flags,
		split: NewSplit(width, height, opts.MinPane),
		orbit: Orbit{opts: opts.Orbit},
		has3D: opts.Supports3D == nil || opts.Supports3D(),
	}
	s.split.SetDivider(width * opts.SplitRatio)
	s.sched.SetDefaultErrorHandler(func(t *scheduler.Task, err interface{}) bool {
		if s.hooks.OnTaskPanic != nil {
			s.hooks.OnTaskPanic(t.Name(), err)
		}
		return true
	})

	s.buildViews()
	s.layoutPanes()
	s.registerTasks()
	return s
}

func (s *Shell) overlayOptions() projector.Options {
	o := s.opts.Overlay
	o.ShowLinkTexts = s.flags.ShowLinkTexts
	o.ShowMainValues = s.flags.ShowMainValues
	o.ShowInOutValues = s.flags.ShowInOutValues
	return o
}

// viewLinks is the link set both simulations run on
func (s *Shell) viewLinks(links []graph.Link) []graph.Link {
	if len(s.opts.Arrows) > 0 {
		links = graph.ConfigureArrows(links, s.opts.Arrows)
	}
	if s.flags.Bidirectional {
		return bidir.Expand(links)
	}
	return append([]graph.Link(nil), links...)
}

// buildViews creates fresh simulations from s.base, keeping existing
// cameras.
func (s *Shell) buildViews() {
	prepared := graph.Prepare(s.base, s.flags.AltShapes)
	ds := graph.Dataset{Nodes: prepared.Nodes, Links: s.viewLinks(prepared.Links)}

	if s.v2 == nil {
		w, h := s.split.Width*s.split.Ratio, s.split.Height
		s.v2 = &view{kind: View2D, cam2: projector.NewCamera2D(w, h)}
		s.v3 = &view{kind: View3D, cam3: projector.NewCamera3D(s.split.Width-w, h, s.opts.CameraDistance)}
		if s.flags.Rotating {
			s.orbit.Apply(&s.v3.cam3)
		}
	}
	s.v2.sim = layout.New(s.opts.Layout2D, ds)
	s.v2.builder = render.Builder{Style: s.opts.Style2D, Flags: s.flags.Flags}
	s.v2.proj = projector.New(s.overlayOptions())
	s.v2.snap = layout.Snapshot{}

	// each simulation clones ds, so the views share nothing
	s.v3.sim = layout.New(s.opts.Layout3D, ds)
	s.v3.builder = render.Builder{Style: s.opts.Style3D, Flags: s.flags.Flags}
	s.v3.proj = projector.New(s.overlayOptions())
	s.v3.snap = layout.Snapshot{}
}

func (s *Shell) registerTasks() {
	s.sched.Every(TaskSim2D, s.v2.sim.Config().TickInterval, func(now time.Time) { s.advance(View2D, now) })
	s.sched.Every(TaskProject2D, s.opts.ProjectInterval, func(time.Time) { s.project(View2D) })
	s.sched.Every(TaskResize, s.opts.ResizeInterval, func(time.Time) { s.flushResize() })
	s.sched.StartTask(TaskSim2D)
	s.sched.StartTask(TaskProject2D)
	s.sched.StartTask(TaskResize)
	if !s.has3D {
		return
	}
	s.sched.Every(TaskSim3D, s.v3.sim.Config().TickInterval, func(now time.Time) { s.advance(View3D, now) })
	s.sched.Every(TaskProject3D, s.opts.ProjectInterval, func(time.Time) { s.project(View3D) })
	s.sched.Every(TaskOrbit, s.opts.Orbit.Interval, func(time.Time) { s.stepOrbit() })
	s.sched.StartTask(TaskSim3D)
	s.sched.StartTask(TaskProject3D)
	if s.flags.Rotating {
		s.sched.StartTask(TaskOrbit)
	}
}

// Start runs the task loop until ctx is done or Close is called
func (s *Shell) Start(ctx context.Context) {
	s.sched.Start(ctx)
}

// Step runs every task due at now. Used to drive the shell without the
// background loop.
func (s *Shell) Step(now time.Time) int {
	return s.sched.RunDue(now)
}

// Close removes every task and stops the loop
func (s *Shell) Close() {
	s.sched.Close()
}

// TaskActive reports whether a named task is scheduled
func (s *Shell) TaskActive(name string) bool {
	return s.sched.Active(name)
}

func (s *Shell) view(kind ViewKind) *view {
	if kind == View3D {
		return s.v3
	}
	return s.v2
}

func (s *Shell) advance(kind ViewKind, now time.Time) {
	s.mu.RLock()
	sim := s.view(kind).sim
	s.mu.RUnlock()

	n := sim.Advance(now)
	if n > 0 && s.hooks.OnTicks != nil {
		s.hooks.OnTicks(kind, n)
	}
}

func (s *Shell) project(kind ViewKind) {
	start := time.Now()
	s.mu.Lock()
	v := s.view(kind)
	snap := v.sim.Snapshot()
	v.snap = snap
	if kind == View2D {
		v.overlay = v.proj.Sync(snap.Nodes, snap.Links, v.cam2)
		v.frame2 = v.builder.Build2D(snap, v.cam2, v.overlay, v.phase)
	} else {
		v.overlay = v.proj.Sync(snap.Nodes, snap.Links, v.cam3)
		v.frame3 = v.builder.Build3D(snap, v.cam3, v.phase)
	}
	v.phase++
	stats := FrameStats{
		Build:      time.Since(start),
		Skipped:    v.overlay.Skipped,
		Collisions: v.overlay.Collisions,
	}
	s.mu.Unlock()

	if s.hooks.OnFrame != nil {
		s.hooks.OnFrame(kind, stats)
	}
}

// Refresh projects both views immediately
func (s *Shell) Refresh() {
	s.project(View2D)
	if s.has3D {
		s.project(View3D)
	}
}

// WarmUp runs the configured warm-up ticks on both simulations
func (s *Shell) WarmUp() {
	s.mu.RLock()
	sims := []*layout.Simulation{s.v2.sim, s.v3.sim}
	s.mu.RUnlock()
	for _, sim := range sims {
		sim.Warmup()
	}
}

func (s *Shell) stepOrbit() {
	s.mu.Lock()
	s.orbit.Step(&s.v3.cam3)
	s.mu.Unlock()
}

// SetFlags applies new display toggles. Switching bidirectional mode or the
// shape set relinks both simulations without resetting positions; toggling
// rotation starts or stops the orbit task.
func (s *Shell) SetFlags(f Flags) {
	s.mu.Lock()
	old := s.flags
	s.flags = f
	if old.Bidirectional != f.Bidirectional || old.AltShapes != f.AltShapes {
		prepared := graph.Prepare(s.base, f.AltShapes)
		links := s.viewLinks(prepared.Links)
		for _, v := range []*view{s.v2, s.v3} {
			v.sim.SetNodeValues(prepared.Nodes)
			v.sim.SetLinks(links)
		}
	}
	for _, v := range []*view{s.v2, s.v3} {
		v.builder.Flags = f.Flags
		v.proj.SetOptions(s.overlayOptions())
	}
	s.mu.Unlock()

	if !s.has3D || old.Rotating == f.Rotating {
		return
	}
	if f.Rotating {
		s.sched.StartTask(TaskOrbit)
	} else {
		s.sched.StopTask(TaskOrbit)
	}
}

// Flags returns the current toggles
func (s *Shell) Flags() Flags {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flags
}

// Reload swaps in a new dataset. Cameras and the split are kept.
func (s *Shell) Reload(ds graph.Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.base = ds.Clone()
	s.buildViews()
}

// RequestDivider asks for the split divider to move to x. Requests are
// coalesced and committed by the resize task.
func (s *Shell) RequestDivider(x float64) {
	s.divider.Request(x)
}

// RequestResize asks for a new surface size, committed like RequestDivider
func (s *Shell) RequestResize(width, height float64) {
	s.viewport.Request(r2.Vec{X: width, Y: height})
}

func (s *Shell) flushResize() {
	s.viewport.Flush(func(sz r2.Vec) {
		s.mu.Lock()
		s.split.Resize(sz.X, sz.Y)
		s.layoutPanes()
		s.mu.Unlock()
	})
	s.divider.Flush(func(x float64) {
		s.mu.Lock()
		s.split.SetDivider(x)
		s.layoutPanes()
		s.mu.Unlock()
	})
}

// ToggleFullscreen switches a view in or out of fullscreen
func (s *Shell) ToggleFullscreen(kind ViewKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.split.ToggleFullscreen(kind)
	s.layoutPanes()
}

// layoutPanes sizes each camera to its pane. Hidden panes keep their last
// size.
func (s *Shell) layoutPanes() {
	if b := s.split.Pane(View2D); !b.Empty() {
		sz := b.Size()
		s.v2.cam2.Resize(sz.X, sz.Y)
	}
	if b := s.split.Pane(View3D); !b.Empty() {
		sz := b.Size()
		s.v3.cam3.Width, s.v3.cam3.Height = sz.X, sz.Y
	}
}

// Split returns the current pane layout
func (s *Shell) Split() Split {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.split
}

// Supports3D reports whether the 3D view is live
func (s *Shell) Supports3D() bool { return s.has3D }

// local converts surface coordinates to coordinates within kind's pane
func (s *Shell) local(kind ViewKind, x, y float64) (float64, float64) {
	b := s.split.Pane(kind)
	return x - b.Min.X, y - b.Min.Y
}

// Click hit-tests surface coordinates against the view under them and
// reports the node, firing OnNodeClick when one is hit.
func (s *Shell) Click(x, y float64) (graph.Node, ViewKind, bool) {
	s.mu.RLock()
	kind := s.split.ViewAt(x)
	if kind == View3D && !s.has3D {
		s.mu.RUnlock()
		return graph.Node{}, kind, false
	}
	lx, ly := s.local(kind, x, y)
	v := s.view(kind)
	var id string
	if kind == View2D {
		id = hit2D(v, lx, ly)
	} else {
		id = hit3D(v, lx, ly)
	}
	var n graph.Node
	found := false
	if id != "" {
		for _, c := range v.snap.Nodes {
			if c.ID == id {
				n, found = c.Clone(), true
				break
			}
		}
	}
	s.mu.RUnlock()

	if found && s.hooks.OnNodeClick != nil {
		s.hooks.OnNodeClick(kind, n)
	}
	return n, kind, found
}

// hit2D returns the topmost node under pane point (x, y)
func hit2D(v *view, x, y float64) string {
	wx, wy := v.cam2.ScreenToGraph(x, y)
	p := r2.Vec{X: wx, Y: wy}
	nodes := v.frame2.Nodes
	for i := len(nodes) - 1; i >= 0; i-- {
		if r2.Norm(r2.Sub(p, nodes[i].Center)) <= nodes[i].Radius {
			return nodes[i].ID
		}
	}
	return ""
}

// minHitRadius keeps far-away nodes clickable
const minHitRadius = 4

// hit3D returns the nearest node whose projected extent covers (x, y)
func hit3D(v *view, x, y float64) string {
	best, bestDepth := "", math.Inf(1)
	p := r2.Vec{X: x, Y: y}
	for _, n := range v.frame3.Nodes {
		pt, ok := v.cam3.Project(n.Position)
		if !ok {
			continue
		}
		r := math.Max(n.Geometry.Extent()*pt.Scale, minHitRadius)
		if r2.Norm(r2.Sub(p, pt.Vec())) <= r && pt.Depth < bestDepth {
			best, bestDepth = n.ID, pt.Depth
		}
	}
	return best
}

// Drag pins node id of one view under surface point (x, y). The other
// view is untouched.
func (s *Shell) Drag(kind ViewKind, id string, x, y float64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if kind == View3D && !s.has3D {
		return false
	}
	lx, ly := s.local(kind, x, y)
	v := s.view(kind)
	if kind == View2D {
		wx, wy := v.cam2.ScreenToGraph(lx, ly)
		return v.sim.Pin(id, r3.Vec{X: wx, Y: wy})
	}
	pos, ok := v.sim.Position(id)
	if !ok {
		return false
	}
	pt, ok := v.cam3.Project(pos)
	if !ok {
		return false
	}
	return v.sim.Pin(id, v.cam3.Unproject(lx, ly, pt.Depth))
}

// Release unpins a dragged node
func (s *Shell) Release(kind ViewKind, id string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.view(kind).sim.Unpin(id)
}

// Zoom2D zooms the 2D camera about surface point (x, y)
func (s *Shell) Zoom2D(x, y, factor float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lx, ly := s.local(View2D, x, y)
	s.v2.cam2.ZoomAt(lx, ly, factor)
}

// Pan2D moves the 2D camera by a screen delta
func (s *Shell) Pan2D(dx, dy float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v2.cam2.Pan(dx, dy)
}

// Zoom3D dollies the 3D camera. Manual navigation is refused while the
// camera orbits.
func (s *Shell) Zoom3D(factor float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flags.Rotating || !s.has3D {
		return false
	}
	s.v3.cam3.Dolly(factor)
	return true
}

// OrbitAngle returns the persisted orbit angle
func (s *Shell) OrbitAngle() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.orbit.Angle()
}

// Camera2D returns the 2D camera
func (s *Shell) Camera2D() projector.Camera2D {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v2.cam2
}

// Camera3D returns the 3D camera
func (s *Shell) Camera3D() projector.Camera3D {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v3.cam3
}

// Frame2D returns the latest 2D frame
func (s *Shell) Frame2D() render.Frame2D {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v2.frame2
}

// Frame3D returns the latest 3D frame, or the degraded frame when 3D is
// unavailable.
func (s *Shell) Frame3D() render.Frame3D {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.has3D {
		b := s.split.Pane(View3D)
		sz := b.Size()
		return render.DegradedFrame3D(sz.X, sz.Y, s.opts.Style3D)
	}
	return s.v3.frame3
}

// Overlay returns a view's latest label overlay
func (s *Shell) Overlay(kind ViewKind) projector.Overlay {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view(kind).overlay
}

// Snapshot returns a fresh copy of a view's simulation state
func (s *Shell) Snapshot(kind ViewKind) layout.Snapshot {
	s.mu.RLock()
	sim := s.view(kind).sim
	s.mu.RUnlock()
	return sim.Snapshot()
}

// Dataset returns a copy of the dataset the shell was built from
func (s *Shell) Dataset() graph.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.base.Clone()
}
