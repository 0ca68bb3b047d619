package webd

import (
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/paulmach/orb"
	"github.com/rotblauer/catmotion/common"
	"github.com/rotblauer/catmotion/events"
	"github.com/rotblauer/catmotion/geo/roi"
	"github.com/rotblauer/catmotion/types/activity"
	"github.com/rotblauer/catmotion/types/geosample"
	"github.com/tidwall/gjson"
)

func TestWebDaemon_socket(t *testing.T) {
	defer common.SlogResetLevel(slog.LevelError + 1)()
	d := newTestWebDaemon(t)
	srv := httptest.NewServer(d.NewRouter())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/socket", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	read := func() []byte {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatal(err)
		}
		return msg
	}

	if got := gjson.GetBytes(read(), "action").String(); got != "status" {
		t.Fatalf("have action %q want status", got)
	}

	stPancras := orb.Point{-0.1246, 51.5308}
	events.RegionVisitFeed.Send(events.RegionVisit{
		Cat:    "rye",
		Kind:   roi.Station,
		Region: stPancras,
		Sample: geosample.LocationSample{Point: stPancras, Accuracy: 10, Time: t0, Cat: "rye"},
	})
	msg := read()
	if got := gjson.GetBytes(msg, "action").String(); got != "visit" {
		t.Errorf("have action %q want visit", got)
	}
	if got := gjson.GetBytes(msg, "payload.kind").String(); got != "station" {
		t.Errorf("have kind %q want station", got)
	}
	if got := gjson.GetBytes(msg, "payload.cat").String(); got != "rye" {
		t.Errorf("have cat %q want rye", got)
	}

	events.ActivityFeed.Send(events.Activity{Cat: "rye", Activity: activity.MeasuredActivity{
		Motion: activity.Train, Distance: 5520, Start: t0, End: t0.Add(10 * time.Minute),
	}})
	msg = read()
	if got := gjson.GetBytes(msg, "action").String(); got != "activity" {
		t.Errorf("have action %q want activity", got)
	}
	if got := gjson.GetBytes(msg, "payload.activity.motion").String(); got != "Train" {
		t.Errorf("have motion %q want Train", got)
	}
}

func TestWebDaemon_Close_unsubscribes(t *testing.T) {
	defer common.SlogResetLevel(slog.LevelError + 1)()
	d := newTestWebDaemon(t)
	d.NewRouter()
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	// Sends return at once with no subscriber left.
	done := make(chan int)
	go func() {
		done <- events.RegionVisitFeed.Send(events.RegionVisit{Cat: "rye"})
	}()
	select {
	case n := <-done:
		if n != 0 {
			t.Errorf("have %d subscribers want 0", n)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("send blocked after close")
	}
}
