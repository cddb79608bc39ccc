package composite

import (
	"image/color"
	"strconv"
	"strings"
)

var (
	White = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	Black = color.NRGBA{A: 255}
)

// ParseColor accepts "white", "black" (any case) or "#RRGGBB".
// Anything else yields white.
func ParseColor(s string) color.NRGBA {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "white":
		return White
	case s == "black":
		return Black
	case len(s) == 7 && s[0] == '#':
		v, err := strconv.ParseUint(s[1:], 16, 32)
		if err != nil {
			return White
		}
		return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
	}
	return White
}
