package app

import (
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/rotblauer/catmotion/common"
	"github.com/rotblauer/catmotion/countdown"
	"github.com/rotblauer/catmotion/state"
	"github.com/rotblauer/catmotion/types/activity"
	"github.com/rotblauer/catmotion/types/geosample"
)

var t0 = time.Date(2024, 12, 17, 8, 0, 0, 0, time.UTC)

func north(meters float64) orb.Point {
	return orb.Point{0, meters / 111_320}
}

func sample(cat string, meters float64, after time.Duration) geosample.LocationSample {
	return geosample.LocationSample{Point: north(meters), Accuracy: 10, Time: t0.Add(after), Cat: cat}
}

func newTestApp(t *testing.T, config Config) *App {
	t.Helper()
	store, err := state.Open(filepath.Join(t.TempDir(), "activities.db"), false)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	config.Store = store
	if config.Scheduler == nil {
		config.Scheduler = countdown.NewManual()
	}
	a, err := New(config)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(a.Close)
	return a
}

func stored(t *testing.T, a *App, cat string) []activity.MeasuredActivity {
	t.Helper()
	acts, err := a.Store().ForCat(cat).Activities(state.Filter{})
	if errors.Is(err, state.ErrNoActivities) {
		return nil
	}
	if err != nil {
		t.Fatal(err)
	}
	return acts
}

func TestApp_RoutesByCat(t *testing.T) {
	defer common.SlogResetLevel(slog.LevelError + 1)()
	a := newTestApp(t, Config{})
	for i := 0; i < 3; i++ {
		for _, cat := range []string{"rye", "ia"} {
			if ok, err := a.Push(sample(cat, float64(100*i), time.Duration(i)*time.Minute)); !ok || err != nil {
				t.Fatalf("%s %d: have %v %v", cat, i, ok, err)
			}
		}
	}
	statuses := a.Statuses()
	if len(statuses) != 2 {
		t.Fatalf("have %d estimators want 2", len(statuses))
	}
	if statuses[0].Cat != "ia" || statuses[0].Buffered != 2 || statuses[1].Buffered != 2 {
		t.Errorf("have %+v", statuses)
	}
}

func TestApp_DropsRepeats(t *testing.T) {
	defer common.SlogResetLevel(slog.LevelError + 1)()
	a := newTestApp(t, Config{})
	s := sample("rye", 0, 0)
	if ok, _ := a.Push(s); !ok {
		t.Fatal("first push rejected")
	}
	if ok, _ := a.Push(s); ok {
		t.Error("repeat accepted")
	}
}

func TestApp_ReplayExpiry(t *testing.T) {
	defer common.SlogResetLevel(slog.LevelError + 1)()
	a := newTestApp(t, Config{})
	a.Push(sample("rye", 0, 0))
	a.Push(sample("rye", 100, time.Minute))
	a.Push(sample("rye", 200, 2*time.Minute))
	if got := stored(t, a, "rye"); len(got) != 0 {
		t.Fatalf("have %d stored want 0", len(got))
	}

	// Half an hour later by sample time: the idle countdown fired in between.
	a.Push(sample("rye", 5_000, 30*time.Minute))
	got := stored(t, a, "rye")
	if len(got) != 1 {
		t.Fatalf("have %d stored want 1", len(got))
	}
	if !got[0].End.Equal(t0.Add(2 * time.Minute)) {
		t.Errorf("have end %v want %v", got[0].End, t0.Add(2*time.Minute))
	}
	if s := a.Cat("rye").Snapshot(); s.Previous == nil || s.Buffered != 0 {
		t.Errorf("new session not started: %+v", s)
	}
}

func TestApp_EvictionFlushes(t *testing.T) {
	defer common.SlogResetLevel(slog.LevelError + 1)()
	a := newTestApp(t, Config{CacheSize: 1})
	a.Push(sample("rye", 0, 0))
	a.Push(sample("rye", 100, time.Minute))
	a.Push(sample("ia", 0, 2*time.Minute))
	if got := stored(t, a, "rye"); len(got) != 1 {
		t.Errorf("have %d stored want 1", len(got))
	}
	if got := a.Statuses(); len(got) != 1 || got[0].Cat != "ia" {
		t.Errorf("have %+v", got)
	}
}

func TestApp_Close(t *testing.T) {
	defer common.SlogResetLevel(slog.LevelError + 1)()
	a := newTestApp(t, Config{Scheduler: countdown.NewManual()})
	a.Push(sample("", 0, 0))
	a.Push(sample("", 100, time.Minute))
	a.Close()
	if got := stored(t, a, state.DefaultCat); len(got) != 1 {
		t.Errorf("have %d stored want 1", len(got))
	}
	if _, err := a.Push(sample("", 200, 2*time.Minute)); !errors.Is(err, ErrClosed) {
		t.Errorf("have %v want %v", err, ErrClosed)
	}
}

func TestDecodeLine(t *testing.T) {
	feature := `{"type":"Feature","geometry":{"type":"Point","coordinates":[13.4,52.5]},"properties":{"Name":"rye","Accuracy":5,"UnixTime":1734422400}}`
	in, err := DecodeLine([]byte(feature))
	if err != nil {
		t.Fatal(err)
	}
	if in.IsRegions() || in.Sample.Cat != "rye" || in.Sample.Time.Unix() != 1734422400 {
		t.Errorf("have %+v", in)
	}

	collection := `{"type":"FeatureCollection","features":[
		{"type":"Feature","geometry":{"type":"Point","coordinates":[-0.124,51.532]},"properties":{"kind":"station","name":"King's Cross"}},
		{"type":"Feature","geometry":{"type":"Point","coordinates":[-0.4543,51.47]},"properties":{"kind":"airport"}}]}`
	in, err = DecodeLine([]byte(collection))
	if err != nil {
		t.Fatal(err)
	}
	if !in.IsRegions() || in.Stations.Len() != 1 || in.Airports.Len() != 1 {
		t.Errorf("have %+v", in)
	}

	if _, err := DecodeLine([]byte(`{"type":"Point","coordinates":[0,0]}`)); !errors.Is(err, ErrUnknownInput) {
		t.Errorf("have %v want %v", err, ErrUnknownInput)
	}
}

func TestSplitBody(t *testing.T) {
	cases := []struct {
		name string
		body string
		want int
	}{
		{"empty", "  \n", 0},
		{"ndjson", "{\"a\":1}\n\n{\"b\":2}\n", 2},
		{"array", `[{"a":1}, {"b":{"c":[1,2]}}, {"d":3}]`, 3},
	}
	for _, c := range cases {
		if got := SplitBody([]byte(c.body)); len(got) != c.want {
			t.Errorf("%s: have %d want %d", c.name, len(got), c.want)
		}
	}
}
