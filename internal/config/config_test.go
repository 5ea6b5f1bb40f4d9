package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/recera/dualgraph/pkg/graph"
	"github.com/recera/dualgraph/pkg/render"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "dualgraph.yaml", `
dataset: graph.json
dimensions:
  width: 800
flags:
  bidirectional: true
  linkMode: offset
  rotating: true
layout2d:
  chargeStrength: -90
orbit:
  interval: 20ms
serve:
  frameRate: 10
log:
  level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "graph.json", cfg.Dataset)
	assert.Equal(t, 800, cfg.Dimensions.Width)
	assert.Equal(t, 700, cfg.Dimensions.Height)
	assert.True(t, cfg.Flags.Bidirectional)
	assert.True(t, cfg.Flags.Rotating)
	assert.Equal(t, render.LinkOffset, cfg.Flags.LinkMode)
	assert.Equal(t, -90.0, cfg.Layout2D.ChargeStrength)
	assert.Equal(t, Default().Layout2D.LinkDistanceBase, cfg.Layout2D.LinkDistanceBase)
	assert.Equal(t, 20*time.Millisecond, cfg.Orbit.Interval)
	assert.Equal(t, 100*time.Millisecond, cfg.FrameInterval())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "dualgraph.toml", `
dataset = "g.json"

[flags]
alt_shapes = true

[split]
min_pane = 150.0
ratio = 0.25

[serve]
addr = ":9000"
compression = "snappy"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "g.json", cfg.Dataset)
	assert.True(t, cfg.Flags.AltShapes)
	assert.Equal(t, render.LinkCurved, cfg.Flags.LinkMode)
	assert.Equal(t, ":9000", cfg.Serve.Addr)
	assert.Equal(t, "snappy", cfg.Serve.Compression)

	opts := cfg.ShellOptions()
	assert.Equal(t, 150.0, opts.MinPane)
	assert.Equal(t, 0.25, opts.SplitRatio)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"frame rate", "serve:\n  frameRate: 500\n"},
		{"compression", "serve:\n  compression: gzip\n"},
		{"link mode", "flags:\n  linkMode: wavy\n"},
		{"log format", "log:\n  format: xml\n"},
		{"ratio", "split:\n  ratio: 1.5\n"},
		{"arrow without target", "arrows:\n  - source: a\n"},
		{"arrow position", "arrows:\n  - source: a\n    target: b\n    position: middle\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "c.yaml", tt.body))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestLoadArrowsAndCenter(t *testing.T) {
	path := writeFile(t, "dualgraph.yaml", `
layout3d:
  center: {x: 50, y: -20, z: 5}
arrows:
  - source: S2
    target: B1
    showArrow: true
    position: source
  - source: S2
    target: B2
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, r3.Vec{X: 50, Y: -20, Z: 5}, cfg.Layout3D.Center)
	assert.Equal(t, r3.Vec{}, cfg.Layout2D.Center)
	require.Len(t, cfg.Arrows, 2)
	assert.True(t, cfg.Arrows[0].ShowArrow)
	assert.Equal(t, graph.ArrowAtSource, cfg.Arrows[0].Position)
	assert.False(t, cfg.Arrows[1].ShowArrow)

	opts := cfg.ShellOptions()
	assert.Equal(t, cfg.Arrows, opts.Arrows)
	assert.Equal(t, cfg.Layout3D.Center, opts.Layout3D.Center)
}

func TestLoadTOMLArrowsAndCenter(t *testing.T) {
	path := writeFile(t, "dualgraph.toml", `
[layout2d.center]
x = 10.0
y = 4.0

[[arrows]]
source = "a"
target = "b"
show_arrow = true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, r3.Vec{X: 10, Y: 4}, cfg.Layout2D.Center)
	require.Len(t, cfg.Arrows, 1)
	assert.True(t, cfg.Arrows[0].ShowArrow)
}

func TestLoadParseError(t *testing.T) {
	_, err := Load(writeFile(t, "c.yaml", "flags: [unclosed"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalid)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Dataset = "data/g.json"
	cfg.Flags.ShowLinkTexts = true
	cfg.Orbit.Interval = 15 * time.Millisecond

	path := filepath.Join(t.TempDir(), "out", "dualgraph.yaml")
	require.NoError(t, Save(cfg, path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestApplyOverrides(t *testing.T) {
	cfg := Default()
	ds, w, on, lvl := "x.json", 640, true, "WARN"
	require.NoError(t, cfg.Apply(Overrides{Dataset: &ds, Width: &w, Bidirectional: &on, LogLevel: &lvl}))

	assert.Equal(t, "x.json", cfg.Dataset)
	assert.Equal(t, 640, cfg.Dimensions.Width)
	assert.Equal(t, 700, cfg.Dimensions.Height)
	assert.True(t, cfg.Flags.Bidirectional)
	assert.False(t, cfg.Flags.Rotating)
	assert.Equal(t, "warn", cfg.Log.Level)

	bad := "yaml"
	assert.ErrorIs(t, cfg.Apply(Overrides{LogFormat: &bad}), ErrInvalid)
}
