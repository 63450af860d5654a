package config

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseIntList parses a comma or space separated list of integers, as used
// by the fixed-quota command-line flags.
func ParseIntList(s string) ([]int, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", ErrInvalidConfig, f)
		}
		out = append(out, n)
	}
	return out, nil
}
