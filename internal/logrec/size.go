package logrec

import (
	"math"
	"strconv"
)

// maxFiniteHexDigits is the widest hex size field that is still parsed as a
// finite value. Anything wider is the infinity sentinel, independent of the
// host word size.
const maxFiniteHexDigits = 15

// Size is the numeric form of a record's size field: either a finite
// unsigned value or the infinity sentinel used for fields too wide to be
// finite (hex width > 15 digits, i.e. values >= 2^60).
type Size struct {
	value uint64
	inf   bool
}

// Infinite reports whether s is the infinity sentinel.
func (s Size) Infinite() bool { return s.inf }

// Value returns the finite value of s. It is zero when s is infinite.
func (s Size) Value() uint64 { return s.value }

// Float64 returns s as a float64, using math.Inf(1) for the sentinel.
func (s Size) Float64() float64 {
	if s.inf {
		return math.Inf(1)
	}
	return float64(s.value)
}

// Cmp compares s against a finite search value x, returning -1, 0 or 1.
// The infinity sentinel compares greater than every finite x and equal to
// itself; it never compares less than any x.
func (s Size) Cmp(x float64) int {
	sf := s.Float64()
	switch {
	case sf < x:
		return -1
	case sf > x:
		return 1
	default:
		return 0
	}
}

// ParseSize parses a hex-digit size field, applying the width-based
// infinity sentinel rule.
func ParseSize(hex []byte) (Size, error) {
	if len(hex) > maxFiniteHexDigits {
		return Size{inf: true}, nil
	}
	v, err := strconv.ParseUint(string(hex), 16, 64)
	if err != nil {
		return Size{}, err
	}
	return Size{value: v}, nil
}
