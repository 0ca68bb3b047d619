package geosample

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/paulmach/orb"
)

func TestLocationSample_UnmarshalJSON(t *testing.T) {
	cases := []struct {
		name    string
		data    string
		want    LocationSample
		wantErr error
	}{
		{
			name: "unix time",
			data: `{"type":"Feature","geometry":{"type":"Point","coordinates":[-114.0877518,46.9292804]},"properties":{"Accuracy":3,"Elevation":965.6,"UnixTime":1731952467,"Name":"ia"}}`,
			want: LocationSample{
				Point:    orb.Point{-114.0877518, 46.9292804},
				Accuracy: 3,
				Altitude: 965.6,
				Time:     time.Unix(1731952467, 0),
				Cat:      "ia",
			},
		},
		{
			name: "rfc3339 time and altitude",
			data: `{"type":"Feature","geometry":{"type":"Point","coordinates":[-0.1246,51.5308]},"properties":{"Accuracy":10,"Altitude":20,"Time":"2024-11-18T17:54:27Z"}}`,
			want: LocationSample{
				Point:    orb.Point{-0.1246, 51.5308},
				Accuracy: 10,
				Altitude: 20,
				Time:     time.Date(2024, 11, 18, 17, 54, 27, 0, time.UTC),
			},
		},
		{
			name:    "no time",
			data:    `{"type":"Feature","geometry":{"type":"Point","coordinates":[0,0]},"properties":{"Accuracy":10}}`,
			wantErr: ErrMissingTime,
		},
		{
			name:    "no accuracy",
			data:    `{"type":"Feature","geometry":{"type":"Point","coordinates":[0,0]},"properties":{"UnixTime":1}}`,
			wantErr: ErrMissingAccuracy,
		},
		{
			name:    "linestring",
			data:    `{"type":"Feature","geometry":{"type":"LineString","coordinates":[[0,0],[1,1]]},"properties":{"UnixTime":1,"Accuracy":1}}`,
			wantErr: ErrNotPoint,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var got LocationSample
			err := json.Unmarshal([]byte(c.data), &got)
			if !errors.Is(err, c.wantErr) {
				t.Fatalf("have %v want %v", err, c.wantErr)
			}
			if c.wantErr != nil {
				return
			}
			if got.Point != c.want.Point || got.Accuracy != c.want.Accuracy ||
				got.Altitude != c.want.Altitude || got.Cat != c.want.Cat || !got.Time.Equal(c.want.Time) {
				t.Errorf("have %+v want %+v", got, c.want)
			}
		})
	}
}

func TestLocationSample_MarshalJSON(t *testing.T) {
	s := LocationSample{
		Point:    orb.Point{13.3777, 52.5163},
		Accuracy: 5,
		Altitude: 34,
		Time:     time.Unix(1700000000, 0),
		Cat:      "rye",
	}
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	var got LocationSample
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	if got.Point != s.Point || !got.Time.Equal(s.Time) || got.Cat != s.Cat {
		t.Errorf("have %+v want %+v", got, s)
	}
}

func TestLocationSample_DistanceTo(t *testing.T) {
	a := LocationSample{Point: orb.Point{0, 0}}
	b := LocationSample{Point: orb.Point{0, 0.001}}
	d := a.DistanceTo(b)
	// A thousandth of a degree of latitude is about 111 meters.
	if d < 110 || d > 112 {
		t.Errorf("have %v want ~111", d)
	}
}
