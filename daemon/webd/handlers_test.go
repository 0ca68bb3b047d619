package webd

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/rotblauer/catmotion/common"
	"github.com/rotblauer/catmotion/state"
	"github.com/rotblauer/catmotion/types/activity"
	"github.com/rotblauer/catmotion/types/geosample"
	"github.com/tidwall/gjson"
)

var t0 = time.Date(2024, 12, 17, 8, 0, 0, 0, time.UTC)

// walkBody is n fixes 100 m and one minute apart, newline delimited.
func walkBody(t *testing.T, cat string, n int) []byte {
	t.Helper()
	buf := bytes.Buffer{}
	for i := 0; i < n; i++ {
		s := geosample.LocationSample{
			Point:    orb.Point{0, float64(100*i) / 111_320},
			Accuracy: 10,
			Time:     t0.Add(time.Duration(i) * time.Minute),
			Cat:      cat,
		}
		b, err := s.MarshalJSON()
		if err != nil {
			t.Fatal(err)
		}
		buf.Write(b)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func serve(h http.Handler, req *http.Request) (*http.Response, []byte) {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)
	return resp, body
}

func TestWebDaemon_ping(t *testing.T) {
	req := httptest.NewRequest("GET", "http://catsonmaps.org/ping", nil)
	w := httptest.NewRecorder()
	pingPong(w, req)
	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != 200 {
		t.Fatalf("status code not 200")
	}
	if string(body) != "pong" {
		t.Errorf("body is not pong: %s", string(body))
	}
}

func TestWebDaemon_locations(t *testing.T) {
	defer common.SlogResetLevel(slog.LevelError + 1)()
	d := newTestWebDaemon(t)
	h := d.NewRouter()

	req := httptest.NewRequest("POST", "http://catsonmaps.org/locations", bytes.NewReader(walkBody(t, "rye", 3)))
	resp, body := serve(h, req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("have status %d want 200: %s", resp.StatusCode, body)
	}
	res := locationsResult{}
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatal(err)
	}
	if res.Accepted != 3 || res.Rejected != 0 || res.Invalid != 0 {
		t.Errorf("have %+v", res)
	}

	resp, body = serve(h, httptest.NewRequest("GET", "http://catsonmaps.org/status", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("have status %d", resp.StatusCode)
	}
	if got := gjson.GetBytes(body, "cats.0.cat").String(); got != "rye" {
		t.Errorf("have cat %q want rye", got)
	}
	if got := gjson.GetBytes(body, "cats.0.buffered").Int(); got != 2 {
		t.Errorf("have buffered %d want 2", got)
	}

	d.app.Cat("rye").Flush()

	resp, body = serve(h, httptest.NewRequest("GET", "http://catsonmaps.org/rye/activities", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("have status %d: %s", resp.StatusCode, body)
	}
	acts := []activity.MeasuredActivity{}
	if err := json.Unmarshal(body, &acts); err != nil {
		t.Fatal(err)
	}
	if len(acts) != 1 || acts[0].Motion != activity.Walking {
		t.Fatalf("have %+v want one walking activity", acts)
	}
	if acts[0].Distance < 199 || acts[0].Distance > 201 {
		t.Errorf("have distance %v want ~200", acts[0].Distance)
	}

	resp, body = serve(h, httptest.NewRequest("GET", "http://catsonmaps.org/rye/scores", nil))
	scores := []state.Score{}
	if err := json.Unmarshal(body, &scores); err != nil {
		t.Fatal(err)
	}
	if len(scores) != 1 || scores[0].Count != 1 {
		t.Errorf("have %+v", scores)
	}

	_, body = serve(h, httptest.NewRequest("GET", "http://catsonmaps.org/cats", nil))
	if gjson.GetBytes(body, "#").Int() != 1 || gjson.GetBytes(body, "0").String() != "rye" {
		t.Errorf("have cats %s", body)
	}
}

func TestWebDaemon_locations_catOverride(t *testing.T) {
	defer common.SlogResetLevel(slog.LevelError + 1)()
	d := newTestWebDaemon(t)
	h := d.NewRouter()
	req := httptest.NewRequest("POST", "http://catsonmaps.org/locations?cat=ia", bytes.NewReader(walkBody(t, "rye", 2)))
	if resp, body := serve(h, req); resp.StatusCode != http.StatusOK {
		t.Fatalf("have status %d: %s", resp.StatusCode, body)
	}
	statuses := d.app.Statuses()
	if len(statuses) != 1 || statuses[0].Cat != "ia" {
		t.Errorf("have %+v", statuses)
	}
}

func TestWebDaemon_locations_invalid(t *testing.T) {
	defer common.SlogResetLevel(slog.LevelError + 1)()
	d := newTestWebDaemon(t)
	h := d.NewRouter()
	body := []byte(`[{"type":"Feature","geometry":{"type":"Point","coordinates":[0,0]},"properties":{}}]`)
	resp, _ := serve(h, httptest.NewRequest("POST", "http://catsonmaps.org/locations", bytes.NewReader(body)))
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("have status %d want 422", resp.StatusCode)
	}
	resp, _ = serve(h, httptest.NewRequest("POST", "http://catsonmaps.org/locations", bytes.NewReader(nil)))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("have status %d want 400", resp.StatusCode)
	}
}

func TestWebDaemon_token(t *testing.T) {
	defer common.SlogResetLevel(slog.LevelError + 1)()
	t.Setenv(TokenEnv, "meow")
	d := newTestWebDaemon(t)
	h := d.NewRouter()

	resp, _ := serve(h, httptest.NewRequest("POST", "http://catsonmaps.org/locations", bytes.NewReader(walkBody(t, "rye", 1))))
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("have status %d want 403", resp.StatusCode)
	}
	req := httptest.NewRequest("POST", "http://catsonmaps.org/locations", bytes.NewReader(walkBody(t, "rye", 1)))
	req.Header.Set("Authorization", "meow")
	if resp, body := serve(h, req); resp.StatusCode != http.StatusOK {
		t.Errorf("have status %d want 200: %s", resp.StatusCode, body)
	}
	// Reads are open.
	if resp, _ := serve(h, httptest.NewRequest("GET", "http://catsonmaps.org/regions", nil)); resp.StatusCode != http.StatusOK {
		t.Errorf("have status %d want 200", resp.StatusCode)
	}
}

func TestWebDaemon_regions(t *testing.T) {
	defer common.SlogResetLevel(slog.LevelError + 1)()
	d := newTestWebDaemon(t)
	h := d.NewRouter()
	fc := []byte(`{"type":"FeatureCollection","features":[
{"type":"Feature","geometry":{"type":"Point","coordinates":[-0.1246,51.5308]},"properties":{"kind":"station","name":"St Pancras"}},
{"type":"Feature","geometry":{"type":"Point","coordinates":[-0.4543,51.4700]},"properties":{"kind":"airport","name":"Heathrow"}},
{"type":"Feature","geometry":{"type":"Point","coordinates":[0,0]},"properties":{"kind":"harbor"}}
]}`)
	resp, body := serve(h, httptest.NewRequest("PUT", "http://catsonmaps.org/regions", bytes.NewReader(fc)))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("have status %d: %s", resp.StatusCode, body)
	}
	if gjson.GetBytes(body, "stations").Int() != 1 || gjson.GetBytes(body, "airports").Int() != 1 {
		t.Errorf("have %s", body)
	}
	_, body = serve(h, httptest.NewRequest("GET", "http://catsonmaps.org/regions", nil))
	if got := gjson.GetBytes(body, "features.#").Int(); got != 2 {
		t.Errorf("have %d features want 2", got)
	}
	resp, _ = serve(h, httptest.NewRequest("PUT", "http://catsonmaps.org/regions", bytes.NewReader([]byte("nope"))))
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("have status %d want 422", resp.StatusCode)
	}
}

func TestWebDaemon_activities_errors(t *testing.T) {
	defer common.SlogResetLevel(slog.LevelError + 1)()
	d := newTestWebDaemon(t)
	h := d.NewRouter()
	resp, body := serve(h, httptest.NewRequest("GET", "http://catsonmaps.org/kitty/activities", nil))
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("have status %d want 404", resp.StatusCode)
	}
	if !bytes.Contains(body, []byte("no cat that")) {
		t.Errorf("have body %s", body)
	}
	resp, _ = serve(h, httptest.NewRequest("GET", "http://catsonmaps.org/kitty/activities?since=yesterday", nil))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("have status %d want 400", resp.StatusCode)
	}
}

func TestActivityFilter(t *testing.T) {
	req := httptest.NewRequest("GET", "http://catsonmaps.org/rye/activities?motion=car,Train&since=2024-12-17T08:00:00Z&limit=5", nil)
	f, err := activityFilter(req)
	if err != nil {
		t.Fatal(err)
	}
	if len(f.Motions) != 2 || f.Motions[0] != activity.Car || f.Motions[1] != activity.Train {
		t.Errorf("have motions %v", f.Motions)
	}
	if !f.Since.Equal(t0) || !f.Until.IsZero() || f.Limit != 5 {
		t.Errorf("have %+v", f)
	}
}
