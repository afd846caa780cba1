package params

import (
	"regexp"
	"strconv"
)

var sizeRe = regexp.MustCompile(`^\s*(\d+)[xX](\d+)\s*$`)

// ParseSize parses "WIDTHxHEIGHT" (case-insensitive x, surrounding spaces
// allowed). Both sides must be positive.
func ParseSize(s string) (width, height int, err error) {
	m := sizeRe.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, Invalid(`size must be "WxH", e.g. "768x1024", got %q`, s)
	}
	width, werr := strconv.Atoi(m[1])
	height, herr := strconv.Atoi(m[2])
	if werr != nil || herr != nil || width <= 0 || height <= 0 {
		return 0, 0, Invalid("size %q must have positive width and height", s)
	}
	return width, height, nil
}
