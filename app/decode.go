package app

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/paulmach/orb/geojson"
	"github.com/rotblauer/catmotion/geo/roi"
	"github.com/rotblauer/catmotion/types/geosample"
	"github.com/tidwall/gjson"
)

var ErrUnknownInput = errors.New("unknown input type")

// Input is one decoded NDJSON line: either a location sample
// or a snapshot of regions of interest.
type Input struct {
	Sample   *geosample.LocationSample
	Stations *roi.Set
	Airports *roi.Set
}

func (in Input) IsRegions() bool {
	return in.Sample == nil
}

// DecodeLine sniffs the GeoJSON type of a line before decoding it:
// a Feature is a location sample, a FeatureCollection is a region snapshot.
func DecodeLine(line []byte) (Input, error) {
	switch t := gjson.GetBytes(line, "type").String(); t {
	case "Feature":
		f, err := geojson.UnmarshalFeature(line)
		if err != nil {
			return Input{}, err
		}
		s, err := geosample.FromFeature(f)
		if err != nil {
			return Input{}, err
		}
		return Input{Sample: &s}, nil
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(line)
		if err != nil {
			return Input{}, err
		}
		stations, airports, err := roi.FromFeatureCollection(fc)
		if err != nil {
			return Input{}, err
		}
		return Input{Stations: stations, Airports: airports}, nil
	default:
		return Input{}, fmt.Errorf("%w: %q", ErrUnknownInput, t)
	}
}

// SplitBody splits a request body holding either a JSON array of features
// or newline-delimited features into raw lines.
func SplitBody(body []byte) [][]byte {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}
	out := [][]byte{}
	if trimmed[0] == '[' {
		gjson.ParseBytes(trimmed).ForEach(func(_, value gjson.Result) bool {
			out = append(out, []byte(value.Raw))
			return true
		})
		return out
	}
	for _, line := range bytes.Split(trimmed, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			out = append(out, line)
		}
	}
	return out
}
