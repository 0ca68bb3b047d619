package roi

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mitchellh/go-homedir"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// LoadGeoJSON reads a FeatureCollection of point features into station and airport sets.
// The kind of each feature comes from its "kind" (or "Kind") property.
// Features of unknown kind or non-point geometry are skipped with a warning.
func LoadGeoJSON(r io.Reader) (stations, airports *Set, err error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, nil, fmt.Errorf("decode regions: %w", err)
	}
	return FromFeatureCollection(fc)
}

// LoadGeoJSONFile is LoadGeoJSON for a file path; "~" is expanded.
func LoadGeoJSONFile(path string) (stations, airports *Set, err error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(expanded)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return LoadGeoJSON(f)
}

func FromFeatureCollection(fc *geojson.FeatureCollection) (stations, airports *Set, err error) {
	stations, airports = NewSet(), NewSet()
	for i, f := range fc.Features {
		pt, ok := f.Geometry.(orb.Point)
		if !ok {
			slog.Warn("Skipping region, not a point", "index", i, "geometry", f.Geometry.GeoJSONType())
			continue
		}
		kindStr := f.Properties.MustString("kind", f.Properties.MustString("Kind", ""))
		kind, ok := KindFromString(kindStr)
		if !ok {
			slog.Warn("Skipping region, unknown kind", "index", i, "kind", kindStr)
			continue
		}
		region := Region{
			Point: pt,
			Kind:  kind,
			Name:  f.Properties.MustString("name", f.Properties.MustString("Name", "")),
		}
		switch kind {
		case Station:
			stations.Add(region)
		case Airport:
			airports.Add(region)
		}
	}
	return stations, airports, nil
}

// FeatureCollection encodes the stations and airports as GeoJSON.
func FeatureCollection(sets ...*Set) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, s := range sets {
		for _, r := range s.Regions() {
			f := geojson.NewFeature(r.Point)
			f.Properties["kind"] = r.Kind.String()
			if r.Name != "" {
				f.Properties["name"] = r.Name
			}
			fc.Append(f)
		}
	}
	return fc
}
