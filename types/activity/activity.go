package activity

import (
	"fmt"
	"regexp"
	"strings"
)

// MotionType is the mode of transportation a cat is inferred to be using.
type MotionType int

const (
	Walking MotionType = iota
	Car
	Train
	Plane
	Unknown MotionType = -1
)

// AllMotionTypes lists the known motion types in vote order.
var AllMotionTypes = []MotionType{Walking, Car, Train, Plane}

var (
	motionWalking = regexp.MustCompile(`(?i)walk|foot`)
	motionCar     = regexp.MustCompile(`(?i)car|drive|driving|automotive`)
	motionTrain   = regexp.MustCompile(`(?i)train|tube|rail|metro`)
	motionPlane   = regexp.MustCompile(`(?i)plane|fly|flight|^air`)
)

// IsKnown returns true if the motion type is not Unknown.
func (m MotionType) IsKnown() bool {
	return m >= Walking && m <= Plane
}

// IsRegional returns true for motion types only ever inferred from
// transitions between regions of interest (stations, airports),
// never from speed alone.
func (m MotionType) IsRegional() bool {
	return m == Train || m == Plane
}

// String implements the Stringer interface.
func (m MotionType) String() string {
	switch m {
	case Walking:
		return "Walking"
	case Car:
		return "Car"
	case Train:
		return "Train"
	case Plane:
		return "Plane"
	}
	return "Unknown"
}

// Emoji returns a single emoji representation of the motion type.
func (m MotionType) Emoji() string {
	switch m {
	case Walking:
		return "🚶"
	case Car:
		return "🚗"
	case Train:
		return "🚆"
	case Plane:
		return "✈️"
	}
	return "❓"
}

// WeightKey is the key for the motion type in a vote weights map.
func (m MotionType) WeightKey() string {
	return strings.ToLower(m.String())
}

// MarshalText implements encoding.TextMarshaler.
func (m MotionType) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
// Unrecognized names are an error; the literal "Unknown" is not.
func (m *MotionType) UnmarshalText(text []byte) error {
	got := FromString(string(text))
	if got == Unknown && !strings.EqualFold(string(text), Unknown.String()) {
		return fmt.Errorf("unknown motion type %q", string(text))
	}
	*m = got
	return nil
}

func FromString(str string) MotionType {
	switch {
	case motionWalking.MatchString(str):
		return Walking
	case motionTrain.MatchString(str):
		return Train
	case motionPlane.MatchString(str):
		return Plane
	case motionCar.MatchString(str):
		return Car
	}
	return Unknown
}
