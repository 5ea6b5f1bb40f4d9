package render

import (
	"encoding/json"
	"fmt"
	"image/png"
	"io"
	"sort"
	"strings"
)

// Encoder writes a frame in one output format
type Encoder interface {
	Encode2D(w io.Writer, f Frame2D) error
	Encode3D(w io.Writer, f Frame3D) error
	Name() string
	ContentType() string
}

var encoders = map[string]Encoder{
	"svg":  svgEncoder{},
	"png":  pngEncoder{},
	"json": jsonEncoder{},
}

// EncoderFor returns the encoder for a format name
func EncoderFor(format string) (Encoder, error) {
	e, ok := encoders[strings.ToLower(format)]
	if !ok {
		return nil, fmt.Errorf("unknown format %q (available: %s)", format, strings.Join(Formats(), ", "))
	}
	return e, nil
}

// Formats lists the supported format names
func Formats() []string {
	names := make([]string, 0, len(encoders))
	for k := range encoders {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

type svgEncoder struct{}

func (svgEncoder) Name() string        { return "svg" }
func (svgEncoder) ContentType() string { return "image/svg+xml" }

func (svgEncoder) Encode2D(w io.Writer, f Frame2D) error {
	s := NewSVGSurface(f.Width, f.Height)
	Paint2D(s, f)
	_, err := w.Write(s.Bytes())
	return err
}

func (svgEncoder) Encode3D(w io.Writer, f Frame3D) error {
	s := NewSVGSurface(f.Width, f.Height)
	Paint3D(s, f)
	_, err := w.Write(s.Bytes())
	return err
}

type pngEncoder struct{}

func (pngEncoder) Name() string        { return "png" }
func (pngEncoder) ContentType() string { return "image/png" }

func (pngEncoder) Encode2D(w io.Writer, f Frame2D) error {
	s := NewPNGSurface(f.Width, f.Height)
	Paint2D(s, f)
	return png.Encode(w, s.Image())
}

func (pngEncoder) Encode3D(w io.Writer, f Frame3D) error {
	s := NewPNGSurface(f.Width, f.Height)
	Paint3D(s, f)
	return png.Encode(w, s.Image())
}

type jsonEncoder struct{}

func (jsonEncoder) Name() string        { return "json" }
func (jsonEncoder) ContentType() string { return "application/json" }

func (jsonEncoder) Encode2D(w io.Writer, f Frame2D) error {
	return json.NewEncoder(w).Encode(f)
}

func (jsonEncoder) Encode3D(w io.Writer, f Frame3D) error {
	return json.NewEncoder(w).Encode(f)
}
