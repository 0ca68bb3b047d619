package webd

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rotblauer/catmotion/app"
	"github.com/rotblauer/catmotion/geo/estimator"
	"github.com/rotblauer/catmotion/geo/roi"
	"github.com/rotblauer/catmotion/state"
	"github.com/rotblauer/catmotion/stream"
	"github.com/rotblauer/catmotion/types/activity"
)

// maxBodySize bounds location and region uploads.
const maxBodySize = 32 << 20

func pingPong(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}

func writeJSON(w http.ResponseWriter, v any) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to write response", "error", err)
	}
}

type webDaemonStatus struct {
	StartedAt time.Time          `json:"started_at"`
	Uptime    string             `json:"uptime"`
	WSConns   int                `json:"ws_conns"`
	Cats      []estimator.Status `json:"cats"`
}

func (s *WebDaemon) statusReport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, webDaemonStatus{
		StartedAt: s.started,
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		WSConns:   s.melodyInstance.Len(),
		Cats:      s.app.Statuses(),
	})
}

func (s *WebDaemon) handleCats(w http.ResponseWriter, r *http.Request) {
	cats, err := s.store.Cats()
	if err != nil {
		s.logger.Error("Failed to list cats", "error", err)
		http.Error(w, "Failed to list cats", http.StatusInternalServerError)
		return
	}
	writeJSON(w, cats)
}

type locationsResult struct {
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
	Invalid  int `json:"invalid"`
	Regions  int `json:"regions"`
}

type decodedFeature struct {
	input app.Input
	err   error
}

func decodeFeature(raw []byte) decodedFeature {
	input, err := app.DecodeLine(raw)
	return decodedFeature{input: input, err: err}
}

// handleLocations takes a JSON array or newline-delimited stream of GeoJSON features.
// Point features are location samples; a FeatureCollection among them replaces the regions.
// The cat query param, if set, overrides the cat named by each sample.
// Samples are processed in body order.
func (s *WebDaemon) handleLocations(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		s.logger.Error("Failed to read request body", "error", err)
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	lines := app.SplitBody(body)
	if len(lines) == 0 {
		http.Error(w, "Empty body", http.StatusBadRequest)
		return
	}

	// Decode the whole body before any sample reaches a cat.
	ctx := r.Context()
	decoded := stream.Collect(ctx, stream.Transform(ctx, decodeFeature, stream.Slice(ctx, lines)))
	if ctx.Err() != nil {
		return
	}

	cat := r.URL.Query().Get("cat")
	res := locationsResult{}
	for _, d := range decoded {
		if d.err != nil {
			res.Invalid++
			s.logger.Debug("Skipping feature", "error", d.err)
			continue
		}
		if d.input.IsRegions() {
			res.Regions++
			s.app.SetRegions(d.input.Stations, d.input.Airports)
			continue
		}
		if cat != "" {
			d.input.Sample.Cat = cat
		}
		accepted, err := s.app.Push(*d.input.Sample)
		if err != nil {
			s.logger.Error("Failed to push sample", "error", err)
			http.Error(w, "Failed to push sample", http.StatusServiceUnavailable)
			return
		}
		if accepted {
			res.Accepted++
		} else {
			res.Rejected++
		}
	}
	if res.Invalid == len(lines) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}
	writeJSON(w, res)
}

func (s *WebDaemon) handleGetRegions(w http.ResponseWriter, r *http.Request) {
	stations, airports := s.app.Regions()
	writeJSON(w, roi.FeatureCollection(stations, airports))
}

// handlePutRegions replaces the stations and airports of every cat.
func (s *WebDaemon) handlePutRegions(w http.ResponseWriter, r *http.Request) {
	stations, airports, err := roi.LoadGeoJSON(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		s.logger.Warn("Failed to decode regions", "error", err)
		http.Error(w, "Failed to decode regions", http.StatusUnprocessableEntity)
		return
	}
	s.app.SetRegions(stations, airports)
	writeJSON(w, map[string]int{"stations": stations.Len(), "airports": airports.Len()})
}

// activityFilter reads motion (comma separated), since, until (RFC3339) and limit query params.
func activityFilter(r *http.Request) (state.Filter, error) {
	q := r.URL.Query()
	f := state.Filter{}
	if motions := q.Get("motion"); motions != "" {
		for _, name := range strings.Split(motions, ",") {
			f.Motions = append(f.Motions, activity.FromString(strings.TrimSpace(name)))
		}
	}
	for _, bound := range []struct {
		key string
		t   *time.Time
	}{{"since", &f.Since}, {"until", &f.Until}} {
		v := q.Get(bound.key)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, err
		}
		*bound.t = t
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return f, err
		}
		f.Limit = limit
	}
	return f, nil
}

func (s *WebDaemon) handleActivities(w http.ResponseWriter, r *http.Request) {
	filter, err := activityFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	acts, err := s.store.ForCat(mux.Vars(r)["cat"]).Activities(filter)
	if errors.Is(err, state.ErrNoActivities) {
		http.Error(w, "no cat that", http.StatusNotFound)
		return
	} else if err != nil {
		s.logger.Error("Failed to read activities", "error", err)
		http.Error(w, "Failed to read activities", http.StatusInternalServerError)
		return
	}
	writeJSON(w, acts)
}

func (s *WebDaemon) handleScores(w http.ResponseWriter, r *http.Request) {
	scores, err := s.store.ForCat(mux.Vars(r)["cat"]).Scores()
	if err != nil {
		s.logger.Error("Failed to read scores", "error", err)
		http.Error(w, "Failed to read scores", http.StatusInternalServerError)
		return
	}
	writeJSON(w, scores)
}
