/*
Copyright © 2024 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rotblauer/catmotion/app"
	"github.com/rotblauer/catmotion/catz"
	"github.com/rotblauer/catmotion/common"
	"github.com/rotblauer/catmotion/countdown"
	"github.com/rotblauer/catmotion/geo/estimator"
	"github.com/rotblauer/catmotion/geo/roi"
	"github.com/rotblauer/catmotion/metrics/influxdb"
	"github.com/rotblauer/catmotion/params"
	"github.com/rotblauer/catmotion/state"
	"github.com/rotblauer/catmotion/stream"
	"github.com/spf13/cobra"
)

var optEstimateInput string
var optEstimateRegions string
var optEstimateClock string
var optEstimateInflux bool
var optEstimateCacheSize int
var optEstimateProgress time.Duration

// estimateCmd represents the estimate command
var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Estimate activities from a stream of location samples",
	Long: `Reads newline-delimited GeoJSON from stdin (or --input, gzipped or not) and
estimates activities for every cat found in it.

Each line is either
  - a point Feature, a location sample, with properties Name (the cat), Accuracy,
    Elevation, and UnixTime or Time (RFC3339); or
  - a FeatureCollection of stations and airports (property kind), replacing the
    current regions for every cat from that line on.

Countdowns (region visit expiry, idle expiry) follow sample time by default,
so that replaying old tracks gives the same activities as live ones did.
Use --clock wall to follow the wall clock instead.

The buffers of every cat are flushed on EOF and on interrupt.

Examples:

  zcat master.json.gz | catmotion estimate --regions ~/regions.geojson
  catmotion estimate --input tracks.ndjson.gz --influx
`,
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			select {
			case <-common.Interrupted():
				slog.Warn("Interrupted, flushing")
				cancel()
			case <-ctx.Done():
			}
		}()

		config, err := loadEstimatorConfig()
		if err != nil {
			log.Fatalln(err)
		}
		store, err := state.Open(stateDBPath(), false)
		if err != nil {
			log.Fatalln(err)
		}
		defer store.Close()

		appConfig := app.Config{
			Estimator: config,
			Store:     store,
			CacheSize: optEstimateCacheSize,
		}
		switch optEstimateClock {
		case "sample":
			appConfig.Scheduler = countdown.NewManual()
		case "wall":
		default:
			log.Fatalf("unknown clock %q", optEstimateClock)
		}
		if optEstimateInflux {
			influxConfig := params.InfluxConfigFromEnv()
			if influxConfig == nil {
				log.Fatalln("--influx requires INFLUXDB_URL")
			}
			w := influxdb.NewWriter(influxConfig)
			defer w.Close()
			appConfig.Influx = w
		}
		a, err := app.New(appConfig)
		if err != nil {
			log.Fatalln(err)
		}
		defer a.Close()

		if optEstimateRegions != "" {
			stations, airports, err := roi.LoadGeoJSONFile(optEstimateRegions)
			if err != nil {
				log.Fatalln(err)
			}
			a.SetRegions(stations, airports)
		}

		in, err := catz.OpenInput(optEstimateInput)
		if err != nil {
			log.Fatalln(err)
		}
		defer in.Close()

		meter := stream.NewTickMeter("Read samples", optEstimateProgress)
		defer meter.Stop()

		n, err := estimate(ctx, a, meter, in)
		a.Close()
		meter.Stop()
		if err != nil {
			slog.Error("Read failed", "error", err)
		}

		slog.Info("Estimate done",
			"lines", humanize.Comma(n.lines),
			"accepted", humanize.Comma(n.accepted),
			"invalid", humanize.Comma(n.invalid),
			"activities", humanize.Comma(estimator.ActivitiesWritten.Snapshot().Count()),
			"db.failures", humanize.Comma(estimator.DBFailures.Snapshot().Count()))
	},
}

type estimateCounts struct {
	lines, accepted, invalid int64
}

// decodedLine is one input line after decoding; n counts lines from 1.
type decodedLine struct {
	n     int64
	raw   []byte
	input app.Input
	err   error
}

// estimate feeds every line of in to the app until EOF or ctx is done.
// Lines are decoded ahead of the app; undecodable lines are counted and skipped.
func estimate(ctx context.Context, a *app.App, meter *stream.TickMeter, in io.Reader) (estimateCounts, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var lineCount, invalid atomic.Int64
	lines, errs := stream.ScanLines(ctx, in)
	decoded := stream.Transform(ctx, func(line []byte) decodedLine {
		input, err := app.DecodeLine(line)
		return decodedLine{n: lineCount.Add(1), raw: line, input: input, err: err}
	}, lines)
	valid := stream.Filter(ctx, func(d decodedLine) bool {
		if d.err != nil {
			invalid.Add(1)
			slog.Warn("Skipping line", "line", humanize.Comma(d.n), "error", d.err)
			return false
		}
		return true
	}, decoded)

	n := estimateCounts{}
	counts := func() estimateCounts {
		n.lines, n.invalid = lineCount.Load(), invalid.Load()
		return n
	}
	for d := range valid {
		if d.input.IsRegions() {
			a.SetRegions(d.input.Stations, d.input.Airports)
			continue
		}
		meter.Mark(d.input.Sample.Time, d.raw)
		accepted, err := a.Push(*d.input.Sample)
		if errors.Is(err, app.ErrClosed) {
			return counts(), err
		} else if err != nil {
			return counts(), fmt.Errorf("line %d: %w", d.n, err)
		}
		if accepted {
			n.accepted++
		}
	}
	if ctx.Err() != nil {
		return counts(), nil
	}
	return counts(), <-errs
}

func init() {
	rootCmd.AddCommand(estimateCmd)

	flags := estimateCmd.Flags()
	flags.StringVarP(&optEstimateInput, "input", "i", "-", "NDJSON input file, gzipped or not; - for stdin")
	flags.StringVar(&optEstimateRegions, "regions", "", "GeoJSON FeatureCollection of stations and airports")
	flags.StringVar(&optEstimateClock, "clock", "sample", "Countdown clock: sample or wall")
	flags.BoolVar(&optEstimateInflux, "influx", false, "Also export activities to InfluxDB (INFLUXDB_URL, _TOKEN, _ORG, _BUCKET)")
	flags.IntVar(&optEstimateCacheSize, "cache-size", params.DefaultEstimatorCacheSize, "Number of cats kept in memory")
	flags.DurationVar(&optEstimateProgress, "progress", 10*time.Second, "Progress log interval")
}
