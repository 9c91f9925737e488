package valueobjects

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScore(t *testing.T) {
	tests := []struct {
		name    string
		value   float64
		wantErr bool
	}{
		{"zero", 0, false},
		{"one", 1, false},
		{"middle", 0.6, false},
		{"negative", -0.01, true},
		{"above one", 1.01, true},
		{"nan", math.NaN(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewScore(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0.0, ClampScore(-3).Float64())
	assert.Equal(t, 1.0, ClampScore(1.2).Float64())
	assert.Equal(t, 0.4, ClampScore(0.4).Float64())
}

func TestScore_AtLeastIsInclusive(t *testing.T) {
	s, err := NewScore(0.6)
	require.NoError(t, err)

	assert.True(t, s.AtLeast(0.6))
	assert.False(t, s.AtLeast(0.61))
}
