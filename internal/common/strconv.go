package common

import "strconv"

// AtoiDefault converts the provided string to an integer falling back to the default when parsing fails.
func AtoiDefault(value string, def int) int {
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

// BoundedInt parses a positive integer, falling back to def when absent or
// invalid and capping the result at max.
func BoundedInt(value string, def, max int) int {
	n := AtoiDefault(value, def)
	if n <= 0 {
		n = def
	}
	if max > 0 && n > max {
		n = max
	}
	return n
}
