package cerebro

import "math"

// roundToPrecision truncates qty to at most `precision` decimal places. A
// precision of 0 yields an integer, per spec.md §8's precision law.
func roundToPrecision(qty float64, precision int) float64 {
	if precision <= 0 {
		return math.Floor(qty)
	}
	scale := math.Pow(10, float64(precision))
	return math.Floor(qty*scale) / scale
}
