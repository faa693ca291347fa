package state

import "math"

// SaturatingAdd returns a+b, pinned to math.MaxInt or math.MinInt instead of
// wrapping.
func SaturatingAdd(a, b int) int {
	s := a + b
	if b > 0 && s < a {
		return math.MaxInt
	}
	if b < 0 && s > a {
		return math.MinInt
	}
	return s
}

// SaturatingSub returns a-b, pinned to math.MaxInt or math.MinInt instead of
// wrapping.
func SaturatingSub(a, b int) int {
	s := a - b
	if b < 0 && s < a {
		return math.MaxInt
	}
	if b > 0 && s > a {
		return math.MinInt
	}
	return s
}

// SaturatingMul returns a*b, pinned to math.MaxInt or math.MinInt instead of
// wrapping.
func SaturatingMul(a, b int) int {
	if a == 0 || b == 0 {
		return 0
	}
	p := a * b
	overflow := p/b != a ||
		(a == -1 && b == math.MinInt) ||
		(b == -1 && a == math.MinInt)
	if !overflow {
		return p
	}
	if (a < 0) == (b < 0) {
		return math.MaxInt
	}
	return math.MinInt
}
