package valueobjects

import (
	"fmt"
	"math"
)

// Score is a weight, ratio or similarity in the closed interval [0,1].
// Value objects are immutable and have no identity beyond their value.
type Score struct {
	value float64
}

// NewScore creates a Score, rejecting values outside [0,1] and NaN
func NewScore(v float64) (Score, error) {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return Score{}, fmt.Errorf("score must be within [0,1], got %v", v)
	}
	return Score{value: v}, nil
}

// ClampScore forces a locally computed value into [0,1]
func ClampScore(v float64) Score {
	switch {
	case math.IsNaN(v), v < 0:
		return Score{value: 0}
	case v > 1:
		return Score{value: 1}
	default:
		return Score{value: v}
	}
}

// Float64 returns the underlying value
func (s Score) Float64() float64 {
	return s.value
}

// AtLeast reports whether the score meets an inclusive minimum threshold
func (s Score) AtLeast(threshold float64) bool {
	return s.value >= threshold
}
