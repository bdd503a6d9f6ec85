package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Basic statistical helpers shared across the library, backed by gonum

// Mean calculates the arithmetic mean of a slice
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// Variance calculates the sample variance (T-1 denominator) of a slice
func Variance(data []float64) float64 {
	if len(data) < 2 {
		return 0.0
	}
	return stat.Variance(data, nil)
}

// StdDev calculates the sample standard deviation of a slice
func StdDev(data []float64) float64 {
	return math.Sqrt(Variance(data))
}
