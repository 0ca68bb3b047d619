/*
Package validate decides whether a raw location fix is worth believing.
*/
package validate

import (
	"errors"

	"github.com/rotblauer/catmotion/common"
	"github.com/rotblauer/catmotion/params"
	"github.com/rotblauer/catmotion/types/geosample"
)

var (
	ErrInaccurate = errors.New("inaccurate")
	ErrTooClose   = errors.New("too close to previous")
	ErrTooHigh    = errors.New("implausible altitude")
	ErrNotAfter   = errors.New("not after previous")
)

// Validator accepts or rejects candidate fixes against the previously accepted one.
// It has no state of its own.
type Validator struct {
	AccuracyThreshold float64
	MinUpdateDistance float64
	DistanceTolerance float64
	MaxAltitude       float64
}

func NewValidator(config *params.EstimatorConfig) *Validator {
	if config == nil {
		config = params.DefaultEstimatorConfig()
	}
	return &Validator{
		AccuracyThreshold: config.AccuracyThreshold,
		MinUpdateDistance: config.MinUpdateDistance,
		DistanceTolerance: config.DistanceTolerance,
		MaxAltitude:       config.MaxAltitude,
	}
}

// Accept reports whether candidate passes every check. Previous may be nil.
func (v *Validator) Accept(candidate geosample.LocationSample, previous *geosample.LocationSample) bool {
	return v.Check(candidate, previous) == nil
}

// Check returns the first failed check, or nil.
// The first fix of a session (nil previous) skips the spatial and temporal checks;
// otherwise there is no exemption.
func (v *Validator) Check(candidate geosample.LocationSample, previous *geosample.LocationSample) error {
	if !v.accurate(candidate) {
		return ErrInaccurate
	}
	if previous != nil && candidate.DistanceTo(*previous)+v.DistanceTolerance < v.MinUpdateDistance {
		return ErrTooClose
	}
	if candidate.Altitude > v.MaxAltitude {
		return ErrTooHigh
	}
	if previous != nil && common.FloorSeconds(candidate.Since(*previous)) <= 0 {
		return ErrNotAfter
	}
	return nil
}

// accurate rejects negative accuracies too; devices report those for invalid fixes.
func (v *Validator) accurate(candidate geosample.LocationSample) bool {
	return candidate.Accuracy >= 0 && candidate.Accuracy <= v.AccuracyThreshold
}
