// color.go — Hex color parsing for text and glyph ink.
package glyph

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// White is the default ink.
var White = color.NRGBA{R: 255, G: 255, B: 255, A: 255}

// ParseColor parses "#rrggbb" or "#rrggbbaa". Empty means White.
func ParseColor(s string) (color.NRGBA, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return White, nil
	}

	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 && len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: expected #rrggbb or #rrggbbaa", s)
	}

	var ch [4]uint8
	ch[3] = 255
	for i := 0; i < len(hex)/2; i++ {
		v, err := strconv.ParseUint(hex[2*i:2*i+2], 16, 8)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("invalid channel %d in %q: %w", i, s, err)
		}
		ch[i] = uint8(v)
	}
	return color.NRGBA{R: ch[0], G: ch[1], B: ch[2], A: ch[3]}, nil
}

// HexColor formats c as "#rrggbb", appending alpha only when it is not opaque.
func HexColor(c color.NRGBA) string {
	if c.A == 255 {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}
