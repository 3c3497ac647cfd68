package domain

import (
	"strconv"
	"strings"
)

// FloatOrNil parses s as a float and returns nil when parsing fails or
// the value is exactly zero. The export and the detail API both emit
// "0"/"0.0" for absent statistics, so zero means "no value" at this
// boundary.
func FloatOrNil(s string) *float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f == 0 {
		return nil
	}
	return &f
}

// IntOrNil parses s as an int and returns nil when parsing fails or the
// value is zero.
func IntOrNil(s string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n == 0 {
		return nil
	}
	return &n
}

// LeadingInt parses the leading decimal digits of s ("21 and up" → 21).
// Returns 0, false when s does not start with a digit.
func LeadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil {
		return 0, false
	}
	return n, true
}
