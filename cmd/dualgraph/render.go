package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/recera/dualgraph/internal/cache"
	"github.com/recera/dualgraph/internal/config"
	"github.com/recera/dualgraph/internal/dataset"
	"github.com/recera/dualgraph/internal/logging"
	"github.com/recera/dualgraph/pkg/graph"
	"github.com/recera/dualgraph/pkg/layout"
	"github.com/recera/dualgraph/pkg/projector"
	"github.com/recera/dualgraph/pkg/render"
	"github.com/recera/dualgraph/pkg/shell"
)

type renderOptions struct {
	output   string
	prefix   string
	formats  []string
	views    []string
	width    int
	height   int
	cacheDir string
}

func newRenderCommand(g *globalFlags) *cobra.Command {
	opts := renderOptions{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render both views to image files",
		Long: `Lays the dataset out headlessly, runs the warm-up ticks and writes one
file per view and format. Formats: ` + strings.Join(render.Formats(), ", ") + `.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			o := g.overrides(cmd)
			if cmd.Flags().Changed("width") {
				o.Width = &opts.width
			}
			if cmd.Flags().Changed("height") {
				o.Height = &opts.height
			}
			a, err := g.load(cmd, o)
			if err != nil {
				return err
			}
			return runRender(cmd, a, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", ".", "Output directory")
	cmd.Flags().StringVar(&opts.prefix, "prefix", "dualgraph", "File name prefix")
	cmd.Flags().StringSliceVarP(&opts.formats, "format", "f", []string{"svg"}, "Output formats")
	cmd.Flags().StringSliceVar(&opts.views, "views", []string{"2d", "3d"}, "Views to render")
	cmd.Flags().IntVar(&opts.width, "width", 0, "Canvas width in pixels")
	cmd.Flags().IntVar(&opts.height, "height", 0, "Canvas height in pixels")
	cmd.Flags().StringVar(&opts.cacheDir, "cache-dir", "", "Reuse frames rendered earlier from this directory")

	return cmd
}

func runRender(cmd *cobra.Command, a *app, opts renderOptions) error {
	if a.cfg.Dataset == "" {
		return errors.New("no dataset: set dataset in the config file or pass --dataset")
	}
	raw, err := os.ReadFile(a.cfg.Dataset)
	if err != nil {
		return fmt.Errorf("failed to read dataset: %w", err)
	}
	ds, err := dataset.Load(cmd.Context(), a.cfg.Dataset)
	if err != nil {
		return err
	}

	encoders := make([]render.Encoder, 0, len(opts.formats))
	for _, f := range opts.formats {
		enc, err := render.EncoderFor(f)
		if err != nil {
			return err
		}
		encoders = append(encoders, enc)
	}
	views := make([]shell.ViewKind, 0, len(opts.views))
	for _, v := range opts.views {
		switch k := shell.ViewKind(strings.ToLower(v)); k {
		case shell.View2D, shell.View3D:
			views = append(views, k)
		default:
			return fmt.Errorf("unknown view %q (available: 2d, 3d)", v)
		}
	}

	var frames *cache.Cache
	if opts.cacheDir != "" {
		if frames, err = cache.New(cache.Config{Dir: opts.cacheDir, MaxSize: 256 << 20, Logger: a.log}); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(opts.output, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// the shell is only built when some frame is not cached
	var s *shell.Shell
	defer func() {
		if s != nil {
			s.Close()
		}
	}()
	settled := func() *shell.Shell {
		if s == nil {
			s = a.newShell(ds, nil, shell.Hooks{})
			s.WarmUp()
			s.Refresh()
		}
		return s
	}

	for _, kind := range views {
		for _, enc := range encoders {
			path := filepath.Join(opts.output, fmt.Sprintf("%s-%s.%s", opts.prefix, kind, enc.Name()))

			var key string
			if frames != nil {
				if key, err = cache.FrameKey(raw, renderSettings(a), string(kind), enc.Name()); err != nil {
					return err
				}
				if data, ok := frames.Get(key); ok {
					if err := os.WriteFile(path, data, 0644); err != nil {
						return fmt.Errorf("failed to write %s: %w", path, err)
					}
					a.log.Info("wrote cached frame", logging.View(string(kind)), logging.Path(path))
					continue
				}
			}

			var buf bytes.Buffer
			if err := encodeFrame(&buf, settled(), kind, enc); err != nil {
				return fmt.Errorf("failed to encode %s: %w", path, err)
			}
			if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			if frames != nil {
				if err := frames.Put(key, buf.Bytes()); err != nil {
					a.log.Warn("failed to cache frame", logging.Err(err))
				}
			}
			a.log.Info("wrote frame", logging.View(string(kind)), logging.Path(path))
		}
	}
	return nil
}

// renderSettings is every config section that changes a rendered frame
func renderSettings(a *app) any {
	c := a.cfg
	return struct {
		Version    string
		Dimensions config.DimensionsConfig
		Flags      shell.Flags
		Layout2D   layout.Config
		Layout3D   layout.Config
		Overlay    projector.Options
		Style2D    render.Style
		Style3D    render.Style
		Orbit      shell.OrbitOptions
		Split      config.SplitConfig
		Arrows     []graph.ArrowConfig
	}{version, c.Dimensions, c.Flags, c.Layout2D, c.Layout3D, c.Overlay, c.Style2D, c.Style3D, c.Orbit, c.Split, c.Arrows}
}

func encodeFrame(w io.Writer, s *shell.Shell, kind shell.ViewKind, enc render.Encoder) error {
	if kind == shell.View3D {
		return enc.Encode3D(w, s.Frame3D())
	}
	return enc.Encode2D(w, s.Frame2D())
}
