/*
Package app routes location samples to per-cat estimators.

It owns what the estimators share: the station and airport snapshot, the countdown
scheduler, the database handles and the dedupe cache.
*/
package app

import (
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rotblauer/catmotion/catdb/cache"
	"github.com/rotblauer/catmotion/countdown"
	"github.com/rotblauer/catmotion/geo/estimator"
	"github.com/rotblauer/catmotion/geo/roi"
	"github.com/rotblauer/catmotion/metrics/influxdb"
	"github.com/rotblauer/catmotion/params"
	"github.com/rotblauer/catmotion/state"
	"github.com/rotblauer/catmotion/types/geosample"
)

var ErrClosed = errors.New("app closed")

type Config struct {
	Estimator *params.EstimatorConfig

	// Store is required. Influx is optional.
	Store  *state.Store
	Influx *influxdb.Writer

	// Scheduler is shared by every estimator, keys prefixed by cat.
	// A *countdown.Manual scheduler is driven by sample time (replay),
	// anything else by the wall clock. Nil means a wall clock TTL scheduler.
	Scheduler countdown.Scheduler

	// CacheSize is the number of estimators kept in memory.
	// The least recently used estimator is flushed when another cat needs room.
	CacheSize int

	// DedupeSize is the size of the repeated-sample LRU. Negative disables deduping.
	DedupeSize int
}

type App struct {
	config    Config
	logger    *slog.Logger
	scheduler countdown.Scheduler
	ownsTTL   *countdown.TTL

	// replay is set when countdowns follow sample time.
	replay   *countdown.Manual
	replayAt time.Time

	mu         sync.Mutex
	closed     bool
	stations   *roi.Set
	airports   *roi.Set
	estimators *lru.Cache[string, *estimator.Estimator]
	dedupe     func(geosample.LocationSample) bool
}

func New(config Config) (*App, error) {
	if config.Store == nil {
		return nil, errors.New("app: nil store")
	}
	if config.Estimator == nil {
		config.Estimator = params.DefaultEstimatorConfig()
	}
	if err := config.Estimator.Validate(); err != nil {
		return nil, err
	}
	if config.CacheSize <= 0 {
		config.CacheSize = params.DefaultEstimatorCacheSize
	}
	a := &App{
		config:   config,
		logger:   slog.With("d", "app"),
		stations: roi.NewSet(),
		airports: roi.NewSet(),
	}
	switch s := config.Scheduler.(type) {
	case nil:
		a.ownsTTL = countdown.NewTTL()
		a.scheduler = a.ownsTTL
	case *countdown.Manual:
		a.replay = s
		a.scheduler = s
	default:
		a.scheduler = s
	}
	if config.DedupeSize >= 0 {
		a.dedupe = cache.NewDedupePassLRUFunc(config.DedupeSize)
	}

	estimators, err := lru.NewWithEvict[string, *estimator.Estimator](config.CacheSize,
		func(cat string, e *estimator.Estimator) {
			a.logger.Debug("Evicting estimator", "cat", cat)
			e.Flush()
		})
	if err != nil {
		return nil, err
	}
	a.estimators = estimators
	return a, nil
}

func (a *App) database(cat string) estimator.Database {
	dbs := estimator.Databases{a.config.Store.ForCat(cat)}
	if a.config.Influx != nil {
		dbs = append(dbs, a.config.Influx.ForCat(cat))
	}
	return dbs
}

// Cat returns the cat's estimator, creating it if need be.
func (a *App) Cat(cat string) *estimator.Estimator {
	if cat == "" {
		cat = state.DefaultCat
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if e, ok := a.estimators.Get(cat); ok {
		return e
	}
	e := estimator.New(cat, a.config.Estimator, a.database(cat),
		countdown.WithPrefix(a.scheduler, cat+"/"))
	e.SetRegions(a.stations, a.airports)
	a.estimators.Add(cat, e)
	return e
}

// Push routes a sample to its cat's estimator and reports whether it was accepted.
// Repeated samples are dropped before they get there.
func (a *App) Push(sample geosample.LocationSample) (bool, error) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return false, ErrClosed
	}
	a.mu.Unlock()

	if a.dedupe != nil && !a.dedupe(sample) {
		a.logger.Debug("Dropped repeated sample", "cat", sample.Cat, "time", sample.Time)
		return false, nil
	}
	a.advanceReplay(sample.Time)
	return a.Cat(sample.Cat).ProcessLocation(sample), nil
}

// advanceReplay moves replayed countdowns up to t, before the sample at t is processed.
// Countdowns never go backwards.
func (a *App) advanceReplay(t time.Time) {
	if a.replay == nil {
		return
	}
	a.mu.Lock()
	last := a.replayAt
	if t.After(last) {
		a.replayAt = t
	}
	a.mu.Unlock()
	if !last.IsZero() && t.After(last) {
		a.replay.Advance(t.Sub(last))
	}
}

// SetRegions replaces the station and airport snapshot for every cat, current and future.
func (a *App) SetRegions(stations, airports *roi.Set) {
	if stations == nil {
		stations = roi.NewSet()
	}
	if airports == nil {
		airports = roi.NewSet()
	}
	a.mu.Lock()
	a.stations, a.airports = stations, airports
	ests := a.estimators.Values()
	a.mu.Unlock()
	for _, e := range ests {
		e.SetRegions(stations, airports)
	}
	a.logger.Info("Regions updated", "stations", stations.Len(), "airports", airports.Len())
}

// Regions returns the current snapshot.
func (a *App) Regions() (stations, airports *roi.Set) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stations, a.airports
}

// Statuses returns a snapshot of every cached estimator, sorted by cat.
func (a *App) Statuses() []estimator.Status {
	a.mu.Lock()
	ests := a.estimators.Values()
	a.mu.Unlock()
	out := make([]estimator.Status, 0, len(ests))
	for _, e := range ests {
		out = append(out, e.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cat < out[j].Cat })
	return out
}

func (a *App) Store() *state.Store {
	return a.config.Store
}

// Close flushes every estimator and stops the countdowns it started.
// The store and the influx writer are the caller's to close.
func (a *App) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.mu.Unlock()

	if a.ownsTTL != nil {
		a.ownsTTL.Close()
	}
	// Purge calls the eviction callback, which flushes.
	a.estimators.Purge()
}
