package state

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSaturatingArithmetic(t *testing.T) {
	testCases := []struct {
		name string
		got  int
		want int
	}{
		{"add", SaturatingAdd(50, 25), 75},
		{"add max", SaturatingAdd(50, math.MaxInt), math.MaxInt},
		{"add min", SaturatingAdd(-50, math.MinInt), math.MinInt},
		{"sub", SaturatingSub(50, 75), -25},
		{"sub max", SaturatingSub(50, math.MinInt), math.MaxInt},
		{"sub min", SaturatingSub(-50, math.MaxInt), math.MinInt},
		{"mul", SaturatingMul(-6, 7), -42},
		{"mul zero", SaturatingMul(0, math.MaxInt), 0},
		{"mul max", SaturatingMul(50, math.MaxInt), math.MaxInt},
		{"mul negative", SaturatingMul(-50, math.MaxInt), math.MinInt},
		{"mul both negative", SaturatingMul(-2, math.MinInt), math.MaxInt},
		{"mul min by minus one", SaturatingMul(math.MinInt, -1), math.MaxInt},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.got)
		})
	}
}
