// Package rules holds the small numeric and error primitives shared by every
// part of the rules engine.
package rules

import (
	"math"
	"strconv"
	"strings"
)

// Skill point budget constants.
const (
	// SkillPointPool is the total number of raw skill points a character may allocate.
	SkillPointPool = 400
	// MaxSkillValue is the largest raw value a single skill may hold.
	MaxSkillValue = 100
	// MinSkillValue is the smallest raw value a single skill may hold.
	MinSkillValue = 0
)

// RoundCommercial rounds x to the nearest integer with exact halves rounded
// away from zero (0.5 -> 1, 2.5 -> 3, -0.5 -> -1).
//
// The value is first quantised to three decimal places so binary
// representation noise (2.4999999 for 2.5) cannot flip the result.
// Precondition: x must be finite.
// Postcondition: RoundCommercial(float64(n)) == n for every integer n.
func RoundCommercial(x float64) int {
	// Quantise through the decimal string form: strconv rounds the shortest
	// representation correctly, which float multiplication does not.
	s := strconv.FormatFloat(x, 'f', 3, 64)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, fracPart, _ := strings.Cut(s, ".")
	n, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		// Out of int64 range; fall back to the float path.
		if neg {
			return -int(math.Floor(-x + 0.5))
		}
		return int(math.Floor(x + 0.5))
	}
	if fracPart != "" && fracPart[0] >= '5' {
		n++
	}
	if neg {
		n = -n
	}
	return int(n)
}

// SoftInt coerces a loosely typed value read from persisted data to an int.
// Integral numbers pass through, floats are truncated, numeric strings are
// parsed and everything else yields 0.
func SoftInt(v any) int {
	switch n := v.(type) {
	case nil:
		return 0
	case int:
		return n
	case int8:
		return int(n)
	case int16:
		return int(n)
	case int32:
		return int(n)
	case int64:
		return int(n)
	case uint8:
		return int(n)
	case uint16:
		return int(n)
	case uint32:
		return int(n)
	case uint64:
		return int(n)
	case float32:
		return softFloat(float64(n))
	case float64:
		return softFloat(n)
	case bool:
		return 0
	case string:
		return SoftIntString(n)
	case interface{ Int64() (int64, error) }:
		i, err := n.Int64()
		if err != nil {
			if f, ok := v.(interface{ Float64() (float64, error) }); ok {
				if ff, ferr := f.Float64(); ferr == nil {
					return softFloat(ff)
				}
			}
			return 0
		}
		return int(i)
	default:
		return 0
	}
}

// SoftIntString parses s as an integer, tolerating surrounding whitespace and
// a decimal fraction. Unparseable input yields 0.
func SoftIntString(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return softFloat(f)
	}
	return 0
}

func softFloat(f float64) int {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(f)
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
