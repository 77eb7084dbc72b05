package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompareTotalOrder(t *testing.T) {
	tests := []struct {
		name string
		a, b float64
		want int
	}{
		{"equal", 10.0, 10.0, 0},
		{"a_less", 9.9, 10.0, -1},
		{"a_greater", 10.0, 9.9, 1},
		{"negative_vs_positive", -1.0, 1.0, -1},
		{"neg_zero_before_pos_zero", math.Copysign(0, -1), 0, -1},
		{"neg_infinity_smallest", math.Inf(-1), -1e300, -1},
		{"pos_infinity_largest", math.Inf(1), 1e300, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CompareTotalOrder(tt.a, tt.b))
		})
	}
}

func TestIsFiniteNonNegative(t *testing.T) {
	assert.True(t, IsFiniteNonNegative(0))
	assert.True(t, IsFiniteNonNegative(10.5))
	assert.False(t, IsFiniteNonNegative(-0.01))
	assert.False(t, IsFiniteNonNegative(math.NaN()))
	assert.False(t, IsFiniteNonNegative(math.Inf(1)))
	assert.False(t, IsFiniteNonNegative(math.Inf(-1)))
}
