package events

import (
	"github.com/ethereum/go-ethereum/event"
	"github.com/paulmach/orb"
	"github.com/rotblauer/catmotion/geo/roi"
	"github.com/rotblauer/catmotion/types/activity"
	"github.com/rotblauer/catmotion/types/geosample"
)

// RegionVisit is an in-station or in-airport notification.
type RegionVisit struct {
	Cat    string                   `json:"cat"`
	Kind   roi.Kind                 `json:"kind"`
	Region orb.Point                `json:"region"` // center of the occupied region
	Sample geosample.LocationSample `json:"sample"`
}

// Activity is a finalized activity, as handed to storage.
type Activity struct {
	Cat      string                    `json:"cat"`
	Activity activity.MeasuredActivity `json:"activity"`
}

// RegionVisitFeed is emitted once per accepted update while the cat occupies a station
// or, failing that, an airport.
// Sends happen outside the estimator lock, but Send blocks until every subscriber
// has received, so subscribers should buffer or drain promptly.
var RegionVisitFeed = event.FeedOf[RegionVisit]{}

// ActivityFeed is emitted for every finalized activity, in finalization order,
// after it has been handed to the database (whether or not the write succeeded).
var ActivityFeed = event.FeedOf[Activity]{}
