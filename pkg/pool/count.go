package pool

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidCount is returned when a quota count is neither "*" nor a
// non-negative integer.
var ErrInvalidCount = errors.New("invalid quota count")

// Count is a quota size: either every available entry or at most N.
type Count struct {
	all bool
	n   int
}

// All takes every entry of a ranking.
var All = Count{all: true}

// N takes at most n entries.
func N(n int) Count {
	return Count{n: max(n, 0)}
}

// ParseCount parses "*" (or "all") as All and anything else as N.
func ParseCount(s string) (Count, error) {
	s = strings.TrimSpace(s)
	if s == "*" || strings.EqualFold(s, "all") {
		return All, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return Count{}, fmt.Errorf("%w: %q", ErrInvalidCount, s)
	}
	return N(n), nil
}

// IsAll reports whether c is All.
func (c Count) IsAll() bool { return c.all }

// Take returns how many of available entries c selects.
func (c Count) Take(available int) int {
	if c.all {
		return available
	}
	return min(c.n, available)
}

// Bound returns the count as an upper bound, or available when c is All.
func (c Count) Bound(available int) int {
	if c.all {
		return available
	}
	return c.n
}

func (c Count) String() string {
	if c.all {
		return "*"
	}
	return strconv.Itoa(c.n)
}

// MarshalText implements encoding.TextMarshaler.
func (c Count) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Count) UnmarshalText(b []byte) error {
	parsed, err := ParseCount(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
