/*
Package roi holds the regions of interest (train stations, airports)
a cat may be found inside, and decides which one, if any, it occupies.
*/
package roi

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

type Kind int

const (
	Station Kind = iota
	Airport
)

func (k Kind) String() string {
	switch k {
	case Station:
		return "station"
	case Airport:
		return "airport"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	got, ok := KindFromString(string(text))
	if !ok {
		return fmt.Errorf("unknown region kind %q", string(text))
	}
	*k = got
	return nil
}

// KindFromString parses a kind, accepting a few OSM-ish synonyms.
func KindFromString(s string) (Kind, bool) {
	switch strings.ToLower(s) {
	case "station", "train_station", "railway_station", "subway_entrance", "halt":
		return Station, true
	case "airport", "aerodrome":
		return Airport, true
	}
	return 0, false
}

// Region is a known station or airport.
type Region struct {
	Point orb.Point // [lon, lat]
	Kind  Kind
	Name  string
}

// CellID is the leaf s2 cell of the region's point. Regions are identified by location alone.
func (r Region) CellID() s2.CellID {
	return s2.CellIDFromLatLng(s2.LatLngFromDegrees(r.Point.Lat(), r.Point.Lon()))
}

// Set is a collection of regions of one kind, identified by location.
// Sets are snapshots: build one, hand it to the estimator, and build a new one to refresh.
type Set struct {
	regions map[s2.CellID]Region
}

func NewSet(regions ...Region) *Set {
	s := &Set{regions: make(map[s2.CellID]Region, len(regions))}
	for _, r := range regions {
		s.Add(r)
	}
	return s
}

// Add adds a region. A region at an already known location replaces the old one.
func (s *Set) Add(r Region) {
	s.regions[r.CellID()] = r
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.regions)
}

// Regions returns the regions ordered by cell ID.
func (s *Set) Regions() []Region {
	if s == nil {
		return nil
	}
	ids := s.sortedIDs()
	out := make([]Region, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.regions[id])
	}
	return out
}

func (s *Set) sortedIDs() []s2.CellID {
	ids := make([]s2.CellID, 0, len(s.regions))
	for id := range s.regions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// NearestOccupied returns the center of the region nearest to pt within radius meters.
// Overlapping regions are resolved by distance, and equal distances by ascending cell ID,
// so the answer never depends on map iteration order.
func NearestOccupied(pt orb.Point, set *Set, radius float64) (orb.Point, bool) {
	if set.Len() == 0 {
		return orb.Point{}, false
	}
	var best orb.Point
	var bestID s2.CellID
	bestDist := -1.0
	for id, r := range set.regions {
		d := geo.Distance(pt, r.Point)
		if d > radius {
			continue
		}
		if bestDist < 0 || d < bestDist || (d == bestDist && id < bestID) {
			best, bestID, bestDist = r.Point, id, d
		}
	}
	return best, bestDist >= 0
}

// VisitFlag records that a cat is considered inside a region of some kind,
// centered at Point, last seen there at Seen.
// A nil *VisitFlag means no active visit.
type VisitFlag struct {
	Point orb.Point `json:"point"`
	Seen  time.Time `json:"seen"`
}

// Refreshed returns a new flag for pt seen at t.
func Refreshed(pt orb.Point, t time.Time) *VisitFlag {
	return &VisitFlag{Point: pt, Seen: t}
}

// DistanceTo returns the distance in meters from the flagged region to pt.
func (f *VisitFlag) DistanceTo(pt orb.Point) float64 {
	return geo.Distance(f.Point, pt)
}
