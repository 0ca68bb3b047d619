package activity

import (
	"errors"
	"time"
)

var (
	// ErrImplausibleSpeed marks a derived speed above the configured ceiling.
	// The sample is a GPS glitch and must be discarded, never classified.
	ErrImplausibleSpeed = errors.New("implausible speed")

	ErrNoElapsedTime = errors.New("no elapsed time")
)

// ClassifySpeed infers a motion type from a distance (meters) covered over an elapsed time.
// Speeds above automotive (m/s) are Car, everything else Walking.
// Speeds above ceiling return ErrImplausibleSpeed.
func ClassifySpeed(distance float64, elapsed time.Duration, automotive, ceiling float64) (MotionType, error) {
	if elapsed <= 0 {
		return Unknown, ErrNoElapsedTime
	}
	speed := distance / elapsed.Seconds()
	if speed > ceiling {
		return Unknown, ErrImplausibleSpeed
	}
	if speed > automotive {
		return Car, nil
	}
	return Walking, nil
}
