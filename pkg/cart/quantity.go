package cart

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ParseQuantity converts free-text quantity input the way a browser number
// field handler does with parseInt(text) || 0: leading whitespace is
// skipped, an optional sign and the longest run of digits that follows are
// used, and anything without leading digits yields 0. "0x"-prefixed input is
// read as hexadecimal. Values beyond the int32 range saturate.
func ParseQuantity(text string) int {
	s := strings.TrimLeftFunc(text, unicode.IsSpace)

	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}

	base := 10
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		base = 16
		s = s[2:]
	}

	end := 0
	for end < len(s) && isDigit(s[end], base) {
		end++
	}
	if end == 0 {
		return 0
	}

	n, err := strconv.ParseInt(s[:end], base, 64)
	if err != nil || n > math.MaxInt32 {
		n = math.MaxInt32
	}
	if neg {
		n = -n
	}
	return int(n)
}

func isDigit(c byte, base int) bool {
	if c >= '0' && c <= '9' {
		return true
	}
	if base == 16 {
		return (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
	}
	return false
}
