package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/recera/dualgraph/internal/config"
	"github.com/recera/dualgraph/internal/logging"
	"github.com/recera/dualgraph/internal/metrics"
	"github.com/recera/dualgraph/pkg/graph"
	"github.com/recera/dualgraph/pkg/scheduler"
	"github.com/recera/dualgraph/pkg/shell"
)

type globalFlags struct {
	configPath    string
	dataset       string
	logLevel      string
	logFormat     string
	bidirectional bool
	altShapes     bool
	rotating      bool
}

// app is the loaded config plus the logger every command shares
type app struct {
	cfg *config.Config
	log logging.Logger
}

// overrides collects the persistent flags the user actually set
func (g *globalFlags) overrides(cmd *cobra.Command) config.Overrides {
	var o config.Overrides
	changed := cmd.Flags().Changed
	if changed("dataset") {
		o.Dataset = &g.dataset
	}
	if changed("log-level") {
		o.LogLevel = &g.logLevel
	}
	if changed("log-format") {
		o.LogFormat = &g.logFormat
	}
	if changed("bidirectional") {
		o.Bidirectional = &g.bidirectional
	}
	if changed("alt-shapes") {
		o.AltShapes = &g.altShapes
	}
	if changed("rotate") {
		o.Rotating = &g.rotating
	}
	return o
}

// load reads the config file, applies o on top and builds the logger
func (g *globalFlags) load(cmd *cobra.Command, o config.Overrides) (*app, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Apply(o); err != nil {
		return nil, err
	}
	log := newLogger(cmd.ErrOrStderr(), cfg.Log)
	scheduler.SetDebugLog(logging.DebugFunc(log))
	log.Debug("config loaded", logging.Path(g.configPath))
	return &app{cfg: cfg, log: log}, nil
}

func newLogger(w io.Writer, lc config.LogConfig) logging.Logger {
	if w == nil {
		w = os.Stderr
	}
	return logging.New(w, logging.ParseLevel(lc.Level), logging.Format(lc.Format))
}

// newShell builds the shell for ds with its hooks reporting to log and,
// when reg is set, to metrics
func (a *app) newShell(ds graph.Dataset, reg *metrics.Registry, hooks shell.Hooks) *shell.Shell {
	log := a.log
	hooks.OnTaskPanic = func(task string, err interface{}) {
		log.Error("task panicked", logging.Task(task), logging.Any("panic", err))
		if reg != nil {
			reg.RecordTaskPanic(task)
		}
	}
	if hooks.OnNodeClick == nil {
		hooks.OnNodeClick = func(view shell.ViewKind, n graph.Node) {
			log.Info("node clicked", logging.View(string(view)), logging.String("id", n.ID), logging.String("label", n.Label))
		}
	}
	if reg != nil {
		hooks.OnTicks = func(view shell.ViewKind, n int) {
			reg.RecordTicks(string(view), n)
		}
		hooks.OnFrame = func(view shell.ViewKind, st shell.FrameStats) {
			reg.RecordFrame(string(view), st.Build,
				st.Skipped.Unplaced, st.Skipped.MissingEndpoint, st.Skipped.Hidden, st.Collisions)
		}
	}

	d := a.cfg.Dimensions
	s := shell.New(ds, float64(d.Width), float64(d.Height), a.cfg.Flags, a.cfg.ShellOptions(), hooks)
	log.Debug("shell ready",
		logging.Int("nodes", len(ds.Nodes)),
		logging.Int("links", len(ds.Links)),
		logging.Bool("3d", s.Supports3D()))
	return s
}
