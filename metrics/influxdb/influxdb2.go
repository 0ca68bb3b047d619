package influxdb

import (
	"context"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rotblauer/catmotion/params"
	"github.com/rotblauer/catmotion/types/activity"
)

// Writer exports finalized activities to an InfluxDB bucket, one point per activity.
// Writes are blocking; the estimator hands activities over one at a time
// and wants to know if one failed.
type Writer struct {
	client  influxdb2.Client
	api     api.WriteAPIBlocking
	timeout time.Duration
	cat     string
}

func NewWriter(config *params.InfluxConfig) *Writer {
	opts := influxdb2.DefaultOptions()
	opts.SetPrecision(time.Second)
	client := influxdb2.NewClientWithOptions(config.URL, config.Token, opts)
	timeout := config.WriteTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Writer{
		client:  client,
		api:     client.WriteAPIBlocking(config.Org, config.Bucket),
		timeout: timeout,
	}
}

// ForCat returns a writer tagging its points with cat. It shares the client.
func (w *Writer) ForCat(cat string) *Writer {
	cp := *w
	cp.cat = cat
	return &cp
}

// ActivityPoint builds the point for one activity:
// measurement "activity", tags cat and motion, fields distance (m), duration (s) and speed (m/s).
func ActivityPoint(cat string, a activity.MeasuredActivity) *write.Point {
	p := influxdb2.NewPointWithMeasurement("activity").
		SetTime(a.Start).
		AddTag("motion", a.Motion.String()).
		AddField("distance", a.Distance).
		AddField("duration", a.Duration().Seconds()).
		AddField("speed", a.Speed())
	if cat != "" {
		p.AddTag("cat", cat)
	}
	return p
}

func (w *Writer) Append(a activity.MeasuredActivity) error {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	return w.api.WritePoint(ctx, ActivityPoint(w.cat, a))
}

// UpdateScore writes nothing; scores are derived from the activity points at query time.
func (w *Writer) UpdateScore(activity.MeasuredActivity) error {
	return nil
}

// Close closes the shared client.
func (w *Writer) Close() {
	w.client.Close()
}
