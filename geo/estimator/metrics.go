package estimator

import "github.com/ethereum/go-ethereum/metrics"

// params, imported by the estimator, enables metrics before these are registered.
var (
	SamplesRejected    = metrics.NewRegisteredCounter("catmotion/samples/rejected", nil)
	SamplesImplausible = metrics.NewRegisteredCounter("catmotion/samples/implausible", nil)
	SamplesBuffered    = metrics.NewRegisteredCounter("catmotion/samples/buffered", nil)
	ActivitiesWritten  = metrics.NewRegisteredCounter("catmotion/activities/written", nil)
	DBFailures         = metrics.NewRegisteredCounter("catmotion/db/failures", nil)
	CountdownsFired    = metrics.NewRegisteredCounter("catmotion/countdowns/fired", nil)
)
