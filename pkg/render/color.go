package render

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// ParseColor understands "#rgb", "#rrggbb", "rgb(...)", "rgba(...)" and
// "transparent". Unknown strings yield ok=false.
func ParseColor(s string) (c color.NRGBA, ok bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch {
	case s == "" || s == "transparent" || s == "none":
		return color.NRGBA{}, s != ""
	case strings.HasPrefix(s, "#"):
		cf, err := colorful.Hex(s)
		if err != nil {
			return color.NRGBA{}, false
		}
		r, g, b := cf.RGB255()
		return color.NRGBA{R: r, G: g, B: b, A: 255}, true
	case strings.HasPrefix(s, "rgb"):
		open, end := strings.IndexByte(s, '('), strings.IndexByte(s, ')')
		if open < 0 || end < open {
			return color.NRGBA{}, false
		}
		parts := strings.Split(s[open+1:end], ",")
		if len(parts) != 3 && len(parts) != 4 {
			return color.NRGBA{}, false
		}
		var ch [3]uint8
		for i := 0; i < 3; i++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
			if err != nil {
				return color.NRGBA{}, false
			}
			ch[i] = clampByte(v)
		}
		a := uint8(255)
		if len(parts) == 4 {
			v, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
			if err != nil {
				return color.NRGBA{}, false
			}
			a = clampByte(v * 255)
		}
		return color.NRGBA{R: ch[0], G: ch[1], B: ch[2], A: a}, true
	}
	return color.NRGBA{}, false
}

// Hex formats a colour as #rrggbb, dropping alpha
func Hex(s string) string {
	c, ok := ParseColor(s)
	if !ok {
		return s
	}
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}

func rgba(c color.NRGBA) string {
	return fmt.Sprintf("rgba(%d,%d,%d,%.3f)", c.R, c.G, c.B, float64(c.A)/255)
}
