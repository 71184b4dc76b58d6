package cassowary

import (
	"fmt"
	"strconv"
	"strings"
)

// Strength orders constraints by preference. Larger values win when
// constraints conflict. The scale is open: any value between 0 and
// [Required] is valid, and the named strengths are reference points.
type Strength float64

// Named reference strengths.
var (
	Weak     = NewStrength(0, 0, 1, 1)
	Medium   = NewStrength(0, 1, 0, 1)
	Strong   = NewStrength(1, 0, 0, 1)
	Required = NewStrength(1000, 1000, 1000, 1)
)

// NewStrength composes a strength from strong, medium and weak components,
// each scaled by w and clamped to [0, 1000].
func NewStrength(a, b, c, w float64) Strength {
	var s float64
	s += clamp(a*w, 0, 1000) * 1_000_000
	s += clamp(b*w, 0, 1000) * 1_000
	s += clamp(c*w, 0, 1000)
	return Strength(s)
}

// Clip clamps s into [0, Required].
func (s Strength) Clip() Strength {
	return Strength(clamp(float64(s), 0, float64(Required)))
}

// IsRequired reports whether s is at least [Required].
func (s Strength) IsRequired() bool {
	return s >= Required
}

// String returns the name of a reference strength, or the numeric value.
func (s Strength) String() string {
	switch s {
	case Required:
		return "required"
	case Strong:
		return "strong"
	case Medium:
		return "medium"
	case Weak:
		return "weak"
	}
	return strconv.FormatFloat(float64(s), 'g', -1, 64)
}

// ParseStrength parses a reference strength name or a number.
func ParseStrength(s string) (Strength, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "required":
		return Required, nil
	case "strong":
		return Strong, nil
	case "medium":
		return Medium, nil
	case "weak":
		return Weak, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidStrength, s)
	}
	if f < 0 {
		return 0, fmt.Errorf("%w: %q is negative", ErrInvalidStrength, s)
	}
	return Strength(f).Clip(), nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
