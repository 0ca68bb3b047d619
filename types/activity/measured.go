package activity

import (
	"math"
	"time"
)

// DistanceEpsilon is the distance tolerance (meters) of MeasuredActivity equality.
const DistanceEpsilon = 0.001

// TimeEpsilon is the timestamp tolerance of MeasuredActivity equality.
const TimeEpsilon = time.Second

// MeasuredActivity is a motion type sustained over a distance and a time span.
// It is what the estimator finalizes and hands to storage.
type MeasuredActivity struct {
	Motion   MotionType `json:"motion"`
	Distance float64    `json:"distance"` // meters
	Start    time.Time  `json:"start"`
	End      time.Time  `json:"end"`
}

// Duration returns the time span of the activity.
func (a MeasuredActivity) Duration() time.Duration {
	return a.End.Sub(a.Start)
}

// Speed returns the mean speed over the activity, in m/s.
// It is zero for zero-length activities.
func (a MeasuredActivity) Speed() float64 {
	secs := a.Duration().Seconds()
	if secs <= 0 {
		return 0
	}
	return a.Distance / secs
}

// Equal is a tolerant comparison: same motion type, distance within DistanceEpsilon,
// start and end each within TimeEpsilon.
func (a MeasuredActivity) Equal(b MeasuredActivity) bool {
	if a.Motion != b.Motion {
		return false
	}
	if math.Abs(a.Distance-b.Distance) >= DistanceEpsilon {
		return false
	}
	return absDuration(a.Start.Sub(b.Start)) < TimeEpsilon &&
		absDuration(a.End.Sub(b.End)) < TimeEpsilon
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
