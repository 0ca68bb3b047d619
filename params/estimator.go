package params

import (
	"time"

	"github.com/rotblauer/catmotion/common"
)

// EstimatorConfig holds every threshold the activity estimator consults.
// None of these are hardcoded in the geo packages; they all flow from here.
type EstimatorConfig struct {
	// AccuracyThreshold is the maximum reported horizontal error (meters)
	// of a location fix we are willing to believe.
	AccuracyThreshold float64

	// MinUpdateDistance is the minimum distance (meters) between two accepted fixes.
	// DistanceTolerance is added to the measured distance before the comparison,
	// giving fixes that fall just short the benefit of the doubt.
	MinUpdateDistance float64
	DistanceTolerance float64

	// MaxAltitude rejects fixes reporting implausible altitudes (bad fixes).
	MaxAltitude float64

	// StationRadius and AirportRadius are the proximity radii (meters) for occupancy.
	// Airports are large and signal drift is worse there, so the radius is much wider.
	StationRadius float64
	AirportRadius float64

	// StationTimeout and AirportTimeout are how long a visit flag lives
	// without being refreshed by another in-region update.
	StationTimeout time.Duration
	AirportTimeout time.Duration

	// WalkNumForTrainFlagOff is the number of trailing Walking samples, all started
	// after the station flag was last seen, that invalidates the station flag.
	WalkNumForTrainFlagOff int

	// CarNumForPlaneFlagOff is likewise the number of trailing Car samples
	// that invalidates the airport flag.
	CarNumForPlaneFlagOff int

	// NumChangeActivity is the significant-change window size.
	NumChangeActivity int

	// NumMeasurementsToDetermineActivity is the streak length which confirms
	// a single activity early, flushing the buffer without waiting for expiry.
	NumMeasurementsToDetermineActivity int

	// ExpiredTimeout is the idle interval after which the unresolved buffer is flushed.
	ExpiredTimeout time.Duration

	// AutomotiveSpeed separates Walking from Car (m/s).
	AutomotiveSpeed float64

	// ImplausibleSpeed is the ceiling above which a derived speed is a GPS glitch
	// and the sample is discarded.
	ImplausibleSpeed float64

	// TubeSpeed and PlaneSpeed are the average travel speeds (m/s) used to
	// extrapolate the distance of a trip between two regions.
	TubeSpeed  float64
	PlaneSpeed float64

	// MinTrainTripDistance and MinPlaneTripDistance are the minimum distances (meters)
	// between two regions of the same kind for the move to count as a trip.
	// Stations can be meters apart; a flight leg needs kilometers.
	MinTrainTripDistance float64
	MinPlaneTripDistance float64

	// MotionWeights are the integer vote weights used when a buffered range
	// is synthesized into one activity. Keys are lowercase motion type names,
	// matching the keys viper produces.
	MotionWeights map[string]int
}

func DefaultEstimatorConfig() *EstimatorConfig {
	return &EstimatorConfig{
		AccuracyThreshold: 65,
		MinUpdateDistance: 50,
		DistanceTolerance: 5,
		MaxAltitude:       common.ElevationCommercialFlightCruising * 1.2,

		StationRadius: 150,
		AirportRadius: 2_500,

		StationTimeout: 30 * time.Minute,
		AirportTimeout: 12 * time.Hour,

		WalkNumForTrainFlagOff: 5,
		CarNumForPlaneFlagOff:  5,

		NumChangeActivity:                  3,
		NumMeasurementsToDetermineActivity: 10,

		ExpiredTimeout: 10 * time.Minute,

		AutomotiveSpeed:  common.SpeedOfDrivingMin,
		ImplausibleSpeed: common.SpeedOfSound,

		TubeSpeed:  common.SpeedOfTubeMean,
		PlaneSpeed: common.SpeedOfCommercialFlight,

		MinTrainTripDistance: 300,
		MinPlaneTripDistance: 50_000,

		MotionWeights: map[string]int{
			"walking": 1,
			"car":     2,
			"train":   1,
			"plane":   1,
		},
	}
}
