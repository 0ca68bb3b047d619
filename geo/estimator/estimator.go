/*
Package estimator turns a cat's stream of location fixes into finalized activities.

An Estimator validates each fix, checks it against the known stations and airports,
buffers a speed-derived sample for it, and then decides whether anything in the
buffer, or any region visit, has become a finished activity worth writing.
Countdowns expire region visits and flush idle buffers.
*/
package estimator

import (
	"log/slog"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/rotblauer/catmotion/countdown"
	"github.com/rotblauer/catmotion/events"
	"github.com/rotblauer/catmotion/geo/buffer"
	"github.com/rotblauer/catmotion/geo/roi"
	"github.com/rotblauer/catmotion/geo/validate"
	"github.com/rotblauer/catmotion/params"
	"github.com/rotblauer/catmotion/types/activity"
	"github.com/rotblauer/catmotion/types/geosample"
)

// Countdown keys.
const (
	KeyStation = "station"
	KeyAirport = "airport"
	KeyExpired = "expired"
)

type Estimator struct {
	cat       string
	config    *params.EstimatorConfig
	validator *validate.Validator
	db        Database
	scheduler countdown.Scheduler
	logger    *slog.Logger

	// mu serializes location updates and countdown callbacks.
	mu sync.Mutex

	stations *roi.Set
	airports *roi.Set

	previous *geosample.LocationSample
	station  *roi.VisitFlag
	airport  *roi.VisitFlag
	buffer   buffer.ActivityBuffer

	// generations invalidates countdown callbacks that were stopped or replaced
	// after firing but before they got the lock.
	generations map[string]uint64

	// Notifications are collected under the lock and sent after it is released.
	visits    []events.RegionVisit
	finalized []activity.MeasuredActivity
}

// New creates an estimator for one cat.
// A nil config uses the defaults.
func New(cat string, config *params.EstimatorConfig, db Database, scheduler countdown.Scheduler) *Estimator {
	if config == nil {
		config = params.DefaultEstimatorConfig()
	}
	return &Estimator{
		cat:         cat,
		config:      config,
		validator:   validate.NewValidator(config),
		db:          db,
		scheduler:   scheduler,
		logger:      slog.Default().With("estimator", cat),
		stations:    roi.NewSet(),
		airports:    roi.NewSet(),
		buffer:      buffer.NewSlice(config.MotionWeights),
		generations: make(map[string]uint64),
	}
}

// SetRegions replaces the station and airport snapshots consulted on each update.
// Nil sets are treated as empty.
func (e *Estimator) SetRegions(stations, airports *roi.Set) {
	if stations == nil {
		stations = roi.NewSet()
	}
	if airports == nil {
		airports = roi.NewSet()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stations = stations
	e.airports = airports
	e.logger.Debug("Regions updated", "stations", stations.Len(), "airports", airports.Len())
}

// ProcessLocation handles one location update and reports whether it was accepted.
// A rejected update changes nothing.
func (e *Estimator) ProcessLocation(sample geosample.LocationSample) bool {
	e.mu.Lock()
	accepted := e.process(sample)
	visits, finalized := e.drain()
	e.mu.Unlock()

	e.publish(visits, finalized)
	return accepted
}

func (e *Estimator) process(sample geosample.LocationSample) bool {
	if err := e.validator.Check(sample, e.previous); err != nil {
		SamplesRejected.Inc(1)
		e.logger.Debug("Rejected location", "reason", err, "time", sample.Time)
		return false
	}

	// New evidence arrived.
	e.stopCountdown(KeyExpired)

	station, inStation := roi.NearestOccupied(sample.Point, e.stations, e.config.StationRadius)
	airport, inAirport := roi.NearestOccupied(sample.Point, e.airports, e.config.AirportRadius)

	// Region activities are layered over a continuous speed-based substrate,
	// so the speed sample is buffered whatever happens next.
	if e.previous != nil {
		e.bufferSpeedSample(*e.previous, sample)
	}

	reset := false
	switch {
	case inStation:
		e.station = e.transition(activity.Train, e.station, station, sample.Time)
		e.startCountdown(KeyStation, e.config.StationTimeout, e.expireStation)
		e.visits = append(e.visits, events.RegionVisit{Cat: e.cat, Kind: roi.Station, Region: station, Sample: sample})

	case inAirport:
		e.airport = e.transition(activity.Plane, e.airport, airport, sample.Time)
		e.startCountdown(KeyAirport, e.config.AirportTimeout, e.expireAirport)
		e.visits = append(e.visits, events.RegionVisit{Cat: e.cat, Kind: roi.Airport, Region: airport, Sample: sample})

	case e.station != nil && e.buffer.Len() >= e.config.WalkNumForTrainFlagOff:
		if e.stale(e.station, activity.Walking, e.config.WalkNumForTrainFlagOff) {
			e.logger.Info("Left station", "station", e.station.Point, "seen", e.station.Seen)
			e.station = nil
			e.stopCountdown(KeyStation)
			e.endSession()
			reset = true
		}

	case e.airport != nil && e.buffer.Len() >= e.config.CarNumForPlaneFlagOff:
		if e.stale(e.airport, activity.Car, e.config.CarNumForPlaneFlagOff) {
			e.logger.Info("Left airport", "airport", e.airport.Point, "seen", e.airport.Seen)
			e.airport = nil
			e.stopCountdown(KeyAirport)
			e.endSession()
			reset = true
		}

	case e.previous != nil:
		if e.buffer.SignificantChange(e.config.NumChangeActivity) {
			e.finalizeSignificant()
		}
		if e.station == nil && e.airport == nil {
			if _, ok := e.buffer.TrailingStreak(e.config.NumMeasurementsToDetermineActivity); ok {
				e.flush()
			}
		}
		e.startCountdown(KeyExpired, e.config.ExpiredTimeout, e.expireIdle)
	}

	if !reset {
		e.previous = &sample
	}
	return true
}

func (e *Estimator) bufferSpeedSample(previous, current geosample.LocationSample) {
	distance := current.DistanceTo(previous)
	motion, err := activity.ClassifySpeed(distance, current.Since(previous),
		e.config.AutomotiveSpeed, e.config.ImplausibleSpeed)
	if err != nil {
		SamplesImplausible.Inc(1)
		e.logger.Debug("Discarded speed sample", "reason", err, "distance", distance, "time", current.Time)
		return
	}
	e.buffer.Add(activity.MeasuredActivity{
		Motion:   motion,
		Distance: distance,
		Start:    previous.Time,
		End:      current.Time,
	})
	SamplesBuffered.Inc(1)
}

// transition handles an update inside a region of the kind that motion travels between.
// Arriving at a region far enough from the flagged one completes a trip, written
// straight to the database with a distance extrapolated from the kind's average speed.
// It returns the new flag, which always points at the current region.
func (e *Estimator) transition(motion activity.MotionType, flag *roi.VisitFlag, region orb.Point, now time.Time) *roi.VisitFlag {
	minTrip, speed := e.config.MinTrainTripDistance, e.config.TubeSpeed
	if motion == activity.Plane {
		minTrip, speed = e.config.MinPlaneTripDistance, e.config.PlaneSpeed
	}
	if flag != nil && flag.DistanceTo(region) >= minTrip {
		e.write(activity.MeasuredActivity{
			Motion:   motion,
			Distance: speed * now.Sub(flag.Seen).Seconds(),
			Start:    flag.Seen,
			End:      now,
		})
	}
	return roi.Refreshed(region, now)
}

// stale reports whether the trailing n buffered samples all have the given motion
// and all started at or after the flag was last seen.
func (e *Estimator) stale(flag *roi.VisitFlag, motion activity.MotionType, n int) bool {
	return e.buffer.TrailingMatch(n, motion, flag.Seen.UnixNano())
}

// endSession writes everything buffered and forgets the previous location.
func (e *Estimator) endSession() {
	e.finalizeSignificant()
	e.flush()
	e.previous = nil
}

// finalizeSignificant writes the spans ended by significant changes
// and drops them from the buffer, leaving the unresolved tail.
func (e *Estimator) finalizeSignificant() {
	spans := e.buffer.SignificantSpans(e.config.NumChangeActivity)
	if len(spans) == 0 {
		return
	}
	for _, span := range spans {
		if a, ok := e.buffer.Synthesize(span[0], span[1]); ok {
			e.write(a)
		}
	}
	e.buffer.Remove(0, spans[len(spans)-1][1])
}

// flush writes the whole buffer as one activity and empties it.
func (e *Estimator) flush() {
	if e.buffer.Len() == 0 {
		return
	}
	if a, ok := e.buffer.Synthesize(0, e.buffer.Len()-1); ok {
		e.write(a)
	}
	e.buffer.RemoveAll()
}

// write hands a finalized activity to the database.
// Failures are logged and counted, never propagated.
func (e *Estimator) write(a activity.MeasuredActivity) {
	if err := e.db.Append(a); err != nil {
		DBFailures.Inc(1)
		e.logger.Warn("Failed to append activity", "motion", a.Motion, "error", err)
	}
	if err := e.db.UpdateScore(a); err != nil {
		DBFailures.Inc(1)
		e.logger.Warn("Failed to update score", "motion", a.Motion, "error", err)
	}
	ActivitiesWritten.Inc(1)
	e.finalized = append(e.finalized, a)
	e.logger.Info("Activity", "motion", a.Motion,
		"distance", a.Distance, "start", a.Start, "duration", a.Duration().Round(time.Second))
}

func (e *Estimator) startCountdown(key string, interval time.Duration, fn func()) {
	e.generations[key]++
	gen := e.generations[key]
	e.scheduler.Start(key, interval, func() {
		e.mu.Lock()
		if e.generations[key] != gen {
			e.mu.Unlock()
			return
		}
		e.generations[key]++
		CountdownsFired.Inc(1)
		fn()
		visits, finalized := e.drain()
		e.mu.Unlock()
		e.publish(visits, finalized)
	})
}

func (e *Estimator) stopCountdown(key string) {
	e.generations[key]++
	e.scheduler.Stop(key)
}

func (e *Estimator) expireStation() {
	e.logger.Debug("Station visit expired")
	e.station = nil
}

func (e *Estimator) expireAirport() {
	e.logger.Debug("Airport visit expired")
	e.airport = nil
}

func (e *Estimator) expireIdle() {
	if e.station != nil || e.airport != nil {
		return
	}
	e.logger.Debug("Idle, flushing", "buffered", e.buffer.Len())
	e.flush()
	e.previous = nil
}

// Flush writes the whole buffer and ends the session, as if the idle countdown had fired.
// Region flags are left alone.
func (e *Estimator) Flush() {
	e.mu.Lock()
	e.stopCountdown(KeyExpired)
	e.flush()
	e.previous = nil
	visits, finalized := e.drain()
	e.mu.Unlock()
	e.publish(visits, finalized)
}

func (e *Estimator) drain() ([]events.RegionVisit, []activity.MeasuredActivity) {
	visits, finalized := e.visits, e.finalized
	e.visits, e.finalized = nil, nil
	return visits, finalized
}

func (e *Estimator) publish(visits []events.RegionVisit, finalized []activity.MeasuredActivity) {
	for _, v := range visits {
		events.RegionVisitFeed.Send(v)
	}
	for _, a := range finalized {
		events.ActivityFeed.Send(events.Activity{Cat: e.cat, Activity: a})
	}
}

// Status is a point-in-time view of an estimator's state.
type Status struct {
	Cat      string                    `json:"cat"`
	Previous *geosample.LocationSample `json:"previous,omitempty"`
	Station  *roi.VisitFlag            `json:"station,omitempty"`
	Airport  *roi.VisitFlag            `json:"airport,omitempty"`
	Buffered int                       `json:"buffered"`
	Stations int                       `json:"stations"`
	Airports int                       `json:"airports"`
}

// Snapshot returns copies of the estimator's state.
func (e *Estimator) Snapshot() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := Status{
		Cat:      e.cat,
		Buffered: e.buffer.Len(),
		Stations: e.stations.Len(),
		Airports: e.airports.Len(),
	}
	if e.previous != nil {
		p := *e.previous
		s.Previous = &p
	}
	if e.station != nil {
		f := *e.station
		s.Station = &f
	}
	if e.airport != nil {
		f := *e.airport
		s.Airport = &f
	}
	return s
}
