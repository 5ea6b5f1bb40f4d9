// Package config loads dualgraph.yaml / dualgraph.toml.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/recera/dualgraph/pkg/graph"
	"github.com/recera/dualgraph/pkg/layout"
	"github.com/recera/dualgraph/pkg/projector"
	"github.com/recera/dualgraph/pkg/render"
	"github.com/recera/dualgraph/pkg/shell"
)

// ErrInvalid is returned when a config file parses but fails validation
var ErrInvalid = errors.New("config: invalid")

// DefaultFile is looked up when no path is given
const DefaultFile = "dualgraph.yaml"

// Config represents the dualgraph configuration file
type Config struct {
	// Path to the dataset JSON
	Dataset string `yaml:"dataset" toml:"dataset"`

	Dimensions DimensionsConfig `yaml:"dimensions" toml:"dimensions"`
	Flags      shell.Flags      `yaml:"flags" toml:"flags"`

	Layout2D layout.Config      `yaml:"layout2d" toml:"layout2d"`
	Layout3D layout.Config      `yaml:"layout3d" toml:"layout3d"`
	Overlay  projector.Options  `yaml:"overlay" toml:"overlay"`
	Style2D  render.Style       `yaml:"style2d" toml:"style2d"`
	Style3D  render.Style       `yaml:"style3d" toml:"style3d"`
	Orbit    shell.OrbitOptions `yaml:"orbit" toml:"orbit"`
	Split    SplitConfig        `yaml:"split" toml:"split"`

	// Arrows turns on arrowheads for chosen source/target pairs
	Arrows []graph.ArrowConfig `yaml:"arrows,omitempty" toml:"arrows,omitempty" validate:"dive"`

	Serve ServeConfig `yaml:"serve" toml:"serve"`
	Log   LogConfig   `yaml:"log" toml:"log"`
}

// DimensionsConfig is the size of the whole canvas in pixels
type DimensionsConfig struct {
	Width  int `yaml:"width" toml:"width" validate:"gte=0"`
	Height int `yaml:"height" toml:"height" validate:"gte=0"`
}

// SplitConfig controls the divider between the two views
type SplitConfig struct {
	MinPane float64 `yaml:"minPane" toml:"min_pane" validate:"gte=0"`
	// Ratio is the initial share of the width given to the 2D view
	Ratio float64 `yaml:"ratio" toml:"ratio" validate:"gt=0,lt=1"`
}

// ServeConfig contains live preview server configuration
type ServeConfig struct {
	Addr string `yaml:"addr" toml:"addr" validate:"required"`
	// Frames per second pushed to each client
	FrameRate int `yaml:"frameRate" toml:"frame_rate" validate:"gte=1,lte=120"`
	// Compression is "none" or "snappy". Clients may still ask for snappy
	// per connection.
	Compression string `yaml:"compression" toml:"compression" validate:"oneof=none snappy"`
	// Watch reloads the dataset when the file changes
	Watch bool `yaml:"watch" toml:"watch"`
}

// LogConfig selects log level and output format
type LogConfig struct {
	Level  string `yaml:"level" toml:"level" validate:"oneof=debug info warn warning error"`
	Format string `yaml:"format" toml:"format" validate:"oneof=json text"`
}

// Default returns the default configuration.
func Default() *Config {
	opts := shell.DefaultOptions()
	return &Config{
		Dimensions: DimensionsConfig{Width: 1200, Height: 700},
		Flags: shell.Flags{
			Flags: render.Flags{LinkMode: render.LinkCurved},
		},
		Layout2D: opts.Layout2D,
		Layout3D: opts.Layout3D,
		Overlay:  opts.Overlay,
		Style2D:  opts.Style2D,
		Style3D:  opts.Style3D,
		Orbit:    opts.Orbit,
		Split:    SplitConfig{MinPane: opts.MinPane, Ratio: 0.5},
		Serve:    ServeConfig{Addr: "localhost:7070", FrameRate: 30, Compression: "none"},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults. A missing file is not an error.
// The format is picked from the extension: .toml for TOML, anything else
// is read as YAML.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultFile
	}
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	if isTOML(path) {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path in the format matching its extension
func Save(cfg *Config, path string) error {
	var buf bytes.Buffer
	if isTOML(path) {
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return err
		}
	} else {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return err
		}
		enc.Close()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// applyDefaults fills values a partial file left zero
func (c *Config) applyDefaults() {
	d := Default()
	if c.Dimensions.Width == 0 {
		c.Dimensions.Width = d.Dimensions.Width
	}
	if c.Dimensions.Height == 0 {
		c.Dimensions.Height = d.Dimensions.Height
	}
	if c.Flags.LinkMode == "" {
		c.Flags.LinkMode = render.LinkCurved
	}
	if c.Split.Ratio == 0 {
		c.Split.Ratio = d.Split.Ratio
	}
	if c.Serve.Addr == "" {
		c.Serve.Addr = d.Serve.Addr
	}
	if c.Serve.FrameRate == 0 {
		c.Serve.FrameRate = d.Serve.FrameRate
	}
	if c.Serve.Compression == "" {
		c.Serve.Compression = d.Serve.Compression
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every section's constraints
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s: failed %q (got %v)", fe.Namespace(), fe.Tag(), fe.Value()))
		}
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
	}
	return fmt.Errorf("%w: %v", ErrInvalid, err)
}

// ShellOptions converts the file sections to shell options
func (c *Config) ShellOptions() shell.Options {
	opts := shell.DefaultOptions()
	opts.Layout2D = c.Layout2D
	opts.Layout3D = c.Layout3D
	opts.Overlay = c.Overlay
	opts.Style2D = c.Style2D
	opts.Style3D = c.Style3D
	opts.Orbit = c.Orbit
	opts.Arrows = append([]graph.ArrowConfig(nil), c.Arrows...)
	if c.Split.MinPane > 0 {
		opts.MinPane = c.Split.MinPane
	}
	if c.Split.Ratio > 0 {
		opts.SplitRatio = c.Split.Ratio
	}
	if c.Orbit.Distance > 0 {
		opts.CameraDistance = c.Orbit.Distance
	}
	return opts
}

// FrameInterval is the live broadcast period
func (c *Config) FrameInterval() time.Duration {
	if c.Serve.FrameRate <= 0 {
		return time.Second / 30
	}
	return time.Second / time.Duration(c.Serve.FrameRate)
}

// Overrides are command line values. nil fields leave the file value alone.
type Overrides struct {
	Dataset       *string
	Width         *int
	Height        *int
	Addr          *string
	Bidirectional *bool
	AltShapes     *bool
	Rotating      *bool
	LogLevel      *string
	LogFormat     *string
}

// Apply writes the set overrides into c and revalidates
func (c *Config) Apply(o Overrides) error {
	if o.Dataset != nil {
		c.Dataset = *o.Dataset
	}
	if o.Width != nil {
		c.Dimensions.Width = *o.Width
	}
	if o.Height != nil {
		c.Dimensions.Height = *o.Height
	}
	if o.Addr != nil {
		c.Serve.Addr = *o.Addr
	}
	if o.Bidirectional != nil {
		c.Flags.Bidirectional = *o.Bidirectional
	}
	if o.AltShapes != nil {
		c.Flags.AltShapes = *o.AltShapes
	}
	if o.Rotating != nil {
		c.Flags.Rotating = *o.Rotating
	}
	if o.LogLevel != nil {
		c.Log.Level = strings.ToLower(*o.LogLevel)
	}
	if o.LogFormat != nil {
		c.Log.Format = strings.ToLower(*o.LogFormat)
	}
	return c.Validate()
}
