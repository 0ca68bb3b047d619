package geosample

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
)

var (
	ErrNotPoint        = errors.New("geometry is not a point")
	ErrMissingTime     = errors.New("missing Time or UnixTime property")
	ErrMissingAccuracy = errors.New("missing Accuracy property")
)

// LocationSample is a single raw location fix as reported by a device.
// It arrives one at a time, pushed, and is judged by the validator before anything else sees it.
type LocationSample struct {
	// Point is the fix position; orb convention, [lon, lat].
	Point orb.Point
	// Accuracy is the reported horizontal error in meters.
	Accuracy float64
	// Altitude is meters above sea level.
	Altitude float64
	Time     time.Time

	// Cat names the device or person the sample belongs to. Optional.
	Cat string
}

// DistanceTo returns the geodesic distance in meters between two samples.
func (s LocationSample) DistanceTo(o LocationSample) float64 {
	return geo.Distance(s.Point, o.Point)
}

// Since returns the time elapsed from o to s.
func (s LocationSample) Since(o LocationSample) time.Duration {
	return s.Time.Sub(o.Time)
}

// FromFeature decodes a sample from a GeoJSON point feature.
// Properties follow cat tracker conventions: Accuracy, Elevation (or Altitude),
// UnixTime (preferred) or RFC3339 Time, and Name.
func FromFeature(f *geojson.Feature) (LocationSample, error) {
	s := LocationSample{}
	pt, ok := f.Geometry.(orb.Point)
	if !ok {
		return s, ErrNotPoint
	}
	s.Point = pt

	t, err := featureTime(f)
	if err != nil {
		return s, err
	}
	s.Time = t

	acc, ok := f.Properties["Accuracy"]
	if !ok {
		return s, ErrMissingAccuracy
	}
	accuracy, ok := acc.(float64)
	if !ok || math.IsNaN(accuracy) {
		return s, fmt.Errorf("%w: Accuracy is not a number", ErrMissingAccuracy)
	}
	s.Accuracy = accuracy

	if v, ok := f.Properties["Elevation"]; ok {
		s.Altitude, _ = v.(float64)
	} else if v, ok := f.Properties["Altitude"]; ok {
		s.Altitude, _ = v.(float64)
	}
	s.Cat = f.Properties.MustString("Name", "")
	return s, nil
}

func featureTime(f *geojson.Feature) (time.Time, error) {
	if unix, ok := f.Properties["UnixTime"]; ok {
		switch v := unix.(type) {
		case int64:
			return time.Unix(v, 0), nil
		case float64:
			return time.Unix(int64(v), 0), nil
		}
	}
	raw, ok := f.Properties["Time"]
	if !ok {
		return time.Time{}, ErrMissingTime
	}
	if v, ok := raw.(time.Time); ok {
		return v, nil
	}
	str, ok := raw.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: Time is not a string", ErrMissingTime)
	}
	t, err := time.Parse(time.RFC3339, str)
	if err != nil {
		return time.Time{}, err
	}
	if t.IsZero() {
		return time.Time{}, fmt.Errorf("%w: zero time", ErrMissingTime)
	}
	return t, nil
}

// Feature encodes the sample as a GeoJSON point feature.
func (s LocationSample) Feature() *geojson.Feature {
	f := geojson.NewFeature(s.Point)
	f.Properties["Accuracy"] = s.Accuracy
	f.Properties["Elevation"] = s.Altitude
	f.Properties["Time"] = s.Time.UTC().Format(time.RFC3339)
	f.Properties["UnixTime"] = s.Time.Unix()
	if s.Cat != "" {
		f.Properties["Name"] = s.Cat
	}
	return f
}

// MarshalJSON implements the json.Marshaler interface.
func (s LocationSample) MarshalJSON() ([]byte, error) {
	return s.Feature().MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (s *LocationSample) UnmarshalJSON(data []byte) error {
	f, err := geojson.UnmarshalFeature(data)
	if err != nil {
		return err
	}
	got, err := FromFeature(f)
	if err != nil {
		return err
	}
	*s = got
	return nil
}
