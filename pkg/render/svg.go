package render

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"
)

// SVGSurface records primitives as an SVG document
type SVGSurface struct {
	width, height float64
	buf           bytes.Buffer
}

// NewSVGSurface creates an empty document of the given size
func NewSVGSurface(width, height float64) *SVGSurface {
	return &SVGSurface{width: width, height: height}
}

func (s *SVGSurface) Fill(color string) {
	fmt.Fprintf(&s.buf, `<rect width="%.0f" height="%.0f" fill="%s"/>`+"\n", s.width, s.height, attr(color))
}

func (s *SVGSurface) Line(pts []r2.Vec, color string, width float64) {
	if len(pts) < 2 {
		return
	}
	fmt.Fprintf(&s.buf, `<polyline points="%s" fill="none" stroke="%s" stroke-width="%.2f" stroke-linecap="round"/>`+"\n",
		points(pts), attr(color), width)
}

func (s *SVGSurface) Polygon(pts []r2.Vec, fill, stroke string, strokeWidth float64) {
	if len(pts) < 3 {
		return
	}
	fmt.Fprintf(&s.buf, `<polygon points="%s" fill="%s"%s/>`+"\n", points(pts), attr(fill), strokeAttr(stroke, strokeWidth))
}

func (s *SVGSurface) Circle(c r2.Vec, r float64, fill, stroke string, strokeWidth float64) {
	fmt.Fprintf(&s.buf, `<circle cx="%.2f" cy="%.2f" r="%.2f" fill="%s"%s/>`+"\n", c.X, c.Y, r, attr(fill), strokeAttr(stroke, strokeWidth))
}

func (s *SVGSurface) Text(p r2.Vec, text string, size float64, color string) {
	if text == "" {
		return
	}
	fmt.Fprintf(&s.buf, `<text x="%.2f" y="%.2f" font-size="%.1f" font-family="sans-serif" text-anchor="middle" dominant-baseline="middle" fill="%s">%s</text>`+"\n",
		p.X, p.Y, size, attr(color), html.EscapeString(text))
}

// Bytes returns the finished document
func (s *SVGSurface) Bytes() []byte {
	var out bytes.Buffer
	fmt.Fprintf(&out, `<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">`+"\n",
		s.width, s.height, s.width, s.height)
	out.Write(s.buf.Bytes())
	out.WriteString("</svg>\n")
	return out.Bytes()
}

func points(pts []r2.Vec) string {
	var b strings.Builder
	for i, p := range pts {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%.2f,%.2f", p.X, p.Y)
	}
	return b.String()
}

func attr(color string) string {
	if color == "" {
		return "none"
	}
	return html.EscapeString(color)
}

func strokeAttr(stroke string, width float64) string {
	if stroke == "" || width <= 0 {
		return ""
	}
	return fmt.Sprintf(` stroke="%s" stroke-width="%.2f"`, attr(stroke), width)
}
