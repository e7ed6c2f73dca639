package dmx

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ColorRGB holds 8-bit color components.
type ColorRGB struct {
	R, G, B int
}

// HSVToRGB converts hue, saturation and value in [0,1]. Hue wraps.
func HSVToRGB(h, s, v float64) ColorRGB {
	if s == 0 {
		c := round8(v)
		return ColorRGB{c, c, c}
	}

	h = h - math.Floor(h)
	h *= 6
	sector := int(h)
	f := h - float64(sector)
	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))

	var r, g, b float64
	switch sector {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	default:
		r, g, b = v, p, q
	}
	return ColorRGB{round8(r), round8(g), round8(b)}
}

func round8(x float64) int { return int(math.Round(x * 255)) }

// ParseHSV parses an "h;s;v" triple.
func ParseHSV(text string) (ColorRGB, error) {
	parts := strings.Split(text, ";")
	if len(parts) != 3 {
		return ColorRGB{}, fmt.Errorf("hsv %q: want h;s;v", text)
	}
	var hsv [3]float64
	for i, p := range parts {
		x, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return ColorRGB{}, fmt.Errorf("hsv %q: %w", text, err)
		}
		hsv[i] = x
	}
	return HSVToRGB(hsv[0], hsv[1], hsv[2]), nil
}
