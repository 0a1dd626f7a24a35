package raster

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// ParseColor parses "#rgb", "#rgba", "#rrggbb", "#rrggbbaa" or "rgb(r, g, b)".
func ParseColor(s string) (color.NRGBA, error) {
	s = strings.TrimSpace(strings.ToLower(s))

	switch {
	case strings.HasPrefix(s, "#"):
		return parseHex(s[1:])
	case strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")"):
		return parseRGB(s[len("rgb(") : len(s)-1])
	default:
		return color.NRGBA{}, fmt.Errorf("unsupported color %q", s)
	}
}

// MustParseColor is like ParseColor but panics on malformed input.
func MustParseColor(s string) color.NRGBA {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

func parseHex(h string) (color.NRGBA, error) {
	switch len(h) {
	case 3, 4:
		// Short form: every digit is doubled ("#f80" == "#ff8800").
		var expanded strings.Builder
		for _, r := range h {
			expanded.WriteRune(r)
			expanded.WriteRune(r)
		}
		return parseHex(expanded.String())
	case 6:
		h += "ff"
	case 8:
	default:
		return color.NRGBA{}, fmt.Errorf("invalid hex color length %d", len(h))
	}

	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q: %w", h, err)
	}

	return color.NRGBA{
		R: uint8(v >> 24),
		G: uint8(v >> 16),
		B: uint8(v >> 8),
		A: uint8(v),
	}, nil
}

func parseRGB(body string) (color.NRGBA, error) {
	parts := strings.Split(body, ",")
	if len(parts) != 3 {
		return color.NRGBA{}, fmt.Errorf("rgb() needs 3 components, got %d", len(parts))
	}

	var ch [3]uint8
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 || n > 255 {
			return color.NRGBA{}, fmt.Errorf("invalid rgb component %q", strings.TrimSpace(p))
		}
		ch[i] = uint8(n)
	}

	return color.NRGBA{R: ch[0], G: ch[1], B: ch[2], A: 255}, nil
}
