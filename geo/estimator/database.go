package estimator

import (
	"github.com/rotblauer/catmotion/types/activity"
)

// Database receives finalized activities. It owns durability; the estimator
// never reads back what it wrote.
// Both methods are called once per finalized activity, Append first,
// in the order activities are finalized.
type Database interface {
	Append(a activity.MeasuredActivity) error
	UpdateScore(a activity.MeasuredActivity) error
}

// Databases fans writes out to every member.
// All members are tried; the first error is returned.
type Databases []Database

func (ds Databases) Append(a activity.MeasuredActivity) error {
	var first error
	for _, d := range ds {
		if err := d.Append(a); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (ds Databases) UpdateScore(a activity.MeasuredActivity) error {
	var first error
	for _, d := range ds {
		if err := d.UpdateScore(a); err != nil && first == nil {
			first = err
		}
	}
	return first
}
