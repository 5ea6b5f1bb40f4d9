package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
	"gonum.org/v1/gonum/spatial/r2"
)

var (
	fontOnce sync.Once
	fontData *opentype.Font
	fontErr  error

	facesMu sync.Mutex
	faces   = map[int]font.Face{}
)

func loadFont() (*opentype.Font, error) {
	fontOnce.Do(func() {
		fontData, fontErr = opentype.Parse(goregular.TTF)
	})
	return fontData, fontErr
}

// faceFor caches one face per integer pixel size
func faceFor(size float64) font.Face {
	px := int(math.Round(size))
	if px < 6 {
		px = 6
	}
	facesMu.Lock()
	defer facesMu.Unlock()
	if f, ok := faces[px]; ok {
		return f
	}
	f, err := loadFont()
	if err != nil {
		return nil
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    float64(px),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil
	}
	faces[px] = face
	return face
}

// PNGSurface rasterizes primitives into an RGBA image
type PNGSurface struct {
	img *image.RGBA
}

// NewPNGSurface creates a transparent image of the given size
func NewPNGSurface(width, height float64) *PNGSurface {
	w, h := int(math.Ceil(width)), int(math.Ceil(height))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return &PNGSurface{img: image.NewRGBA(image.Rect(0, 0, w, h))}
}

// Image returns the raster
func (s *PNGSurface) Image() *image.RGBA { return s.img }

func (s *PNGSurface) Fill(c string) {
	col, ok := ParseColor(c)
	if !ok {
		return
	}
	draw.Draw(s.img, s.img.Bounds(), image.NewUniform(col), image.Point{}, draw.Src)
}

func (s *PNGSurface) Line(pts []r2.Vec, c string, width float64) {
	col, ok := ParseColor(c)
	if !ok || len(pts) < 2 {
		return
	}
	if width < 1 {
		width = 1
	}
	z := s.rasterizer()
	for i := 1; i < len(pts); i++ {
		segment(z, pts[i-1], pts[i], width/2)
	}
	s.draw(z, col)
}

func (s *PNGSurface) Polygon(pts []r2.Vec, fill, stroke string, strokeWidth float64) {
	if len(pts) < 3 {
		return
	}
	if col, ok := ParseColor(fill); ok {
		z := s.rasterizer()
		path(z, pts)
		s.draw(z, col)
	}
	if stroke != "" && strokeWidth > 0 {
		s.Line(append(append([]r2.Vec(nil), pts...), pts[0]), stroke, strokeWidth)
	}
}

func (s *PNGSurface) Circle(c r2.Vec, r float64, fill, stroke string, strokeWidth float64) {
	if r <= 0 {
		return
	}
	n := int(math.Max(12, math.Min(64, r*2)))
	pts := make([]r2.Vec, n)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = r2.Vec{X: c.X + r*math.Cos(a), Y: c.Y + r*math.Sin(a)}
	}
	s.Polygon(pts, fill, stroke, strokeWidth)
}

func (s *PNGSurface) Text(p r2.Vec, text string, size float64, c string) {
	col, ok := ParseColor(c)
	if !ok || text == "" {
		return
	}
	face := faceFor(size)
	if face == nil {
		return
	}
	w := font.MeasureString(face, text)
	m := face.Metrics()
	d := font.Drawer{
		Dst:  s.img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.Int26_6(p.X*64) - w/2,
			Y: fixed.Int26_6(p.Y*64) + (m.Ascent-m.Descent)/2,
		},
	}
	d.DrawString(text)
}

func (s *PNGSurface) rasterizer() *vector.Rasterizer {
	b := s.img.Bounds()
	return vector.NewRasterizer(b.Dx(), b.Dy())
}

func (s *PNGSurface) draw(z *vector.Rasterizer, col color.NRGBA) {
	z.Draw(s.img, s.img.Bounds(), image.NewUniform(col), image.Point{})
}

func path(z *vector.Rasterizer, pts []r2.Vec) {
	z.MoveTo(float32(pts[0].X), float32(pts[0].Y))
	for _, p := range pts[1:] {
		z.LineTo(float32(p.X), float32(p.Y))
	}
	z.ClosePath()
}

// segment adds a stroked line segment as a quad of half-width hw
func segment(z *vector.Rasterizer, a, b r2.Vec, hw float64) {
	d := r2.Sub(b, a)
	l := r2.Norm(d)
	if l == 0 {
		return
	}
	n := r2.Scale(hw/l, r2.Vec{X: -d.Y, Y: d.X})
	path(z, []r2.Vec{r2.Add(a, n), r2.Add(b, n), r2.Sub(b, n), r2.Sub(a, n)})
}
