package common

import (
	"math"
	"time"
)

// https://stackoverflow.com/questions/18390266/how-can-we-truncate-float64-type-to-a-particular-precision
func Round(num float64) int {
	return int(num + math.Copysign(0.5, num))
}

func DecimalToFixed(num float64, precision int) float64 {
	output := math.Pow(10, float64(precision))
	return float64(Round(num*output)) / output
}

// FloorSeconds returns the whole number of seconds in d.
// Location fixes are only trusted at 1-second granularity.
func FloorSeconds(d time.Duration) float64 {
	return math.Floor(d.Seconds())
}
