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
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/montanaflynn/stats"
	"github.com/rotblauer/catmotion/catz"
	"github.com/rotblauer/catmotion/events"
	"github.com/rotblauer/catmotion/state"
	"github.com/rotblauer/catmotion/types/activity"
	"github.com/spf13/cobra"
)

var optActivitiesCat string
var optActivitiesMotions []string
var optActivitiesSince time.Duration
var optActivitiesLimit int
var optActivitiesStats bool
var optActivitiesExport string

// activitiesCmd represents the activities command
var activitiesCmd = &cobra.Command{
	Use:   "activities",
	Short: "List, summarize or export stored activities",
	Long: `Reads finalized activities from the activities database.

With no --cat, every cat with stored activities is listed.

Examples:

  catmotion activities --cat rye --since 168h
  catmotion activities --cat rye --motion train,plane --stats
  catmotion activities --cat rye --export rye-activities.ndjson.gz
`,
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)

		store, err := state.Open(stateDBPath(), true)
		if err != nil {
			log.Fatalln(err)
		}
		defer store.Close()

		if optActivitiesCat == "" {
			cats, err := store.Cats()
			if err != nil {
				log.Fatalln(err)
			}
			for _, cat := range cats {
				fmt.Println(cat)
			}
			return
		}

		filter := state.Filter{Limit: optActivitiesLimit}
		for _, m := range optActivitiesMotions {
			filter.Motions = append(filter.Motions, activity.FromString(m))
		}
		if optActivitiesSince > 0 {
			filter.Since = time.Now().Add(-optActivitiesSince)
		}
		cat := store.ForCat(optActivitiesCat)
		acts, err := cat.Activities(filter)
		if errors.Is(err, state.ErrNoActivities) {
			log.Fatalf("no activities for cat %q", optActivitiesCat)
		} else if err != nil {
			log.Fatalln(err)
		}

		switch {
		case optActivitiesExport != "":
			if err := exportActivities(optActivitiesExport, cat.Cat(), acts); err != nil {
				log.Fatalln(err)
			}
			fmt.Printf("Exported %s activities to %s\n", humanize.Comma(int64(len(acts))), optActivitiesExport)
		case optActivitiesStats:
			scores, err := cat.Scores()
			if err != nil {
				log.Fatalln(err)
			}
			printActivityStats(acts, scores)
		default:
			printActivities(acts)
		}
	},
}

func printActivities(acts []activity.MeasuredActivity) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer tw.Flush()
	for _, a := range acts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%.1f m/s\n",
			a.Motion.Emoji(), a.Motion,
			a.Start.Local().Format(time.DateTime),
			a.Duration().Round(time.Second),
			humanize.SIWithDigits(a.Distance, 1, "m"),
			a.Speed())
	}
}

// printActivityStats prints distance statistics for the listed activities per motion type,
// then the all-time scores.
func printActivityStats(acts []activity.MeasuredActivity, scores []state.Score) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	distances := map[activity.MotionType]stats.Float64Data{}
	for _, a := range acts {
		distances[a.Motion] = append(distances[a.Motion], a.Distance)
	}
	fmt.Fprintln(tw, "\tmotion\tcount\tmean\tmedian\tmax")
	motions := append([]activity.MotionType{}, activity.AllMotionTypes...)
	for _, m := range append(motions, activity.Unknown) {
		d, ok := distances[m]
		if !ok {
			continue
		}
		mean, _ := d.Mean()
		median, _ := d.Median()
		longest, _ := d.Max()
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n", m.Emoji(), m, d.Len(),
			humanize.SIWithDigits(mean, 1, "m"),
			humanize.SIWithDigits(median, 1, "m"),
			humanize.SIWithDigits(longest, 1, "m"))
	}

	fmt.Fprintln(tw, "\nall time\t\t\t\t\t")
	for _, s := range scores {
		distance, _ := s.Distance.Float64()
		seconds := s.Duration.IntPart()
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n", s.Motion.Emoji(), s.Motion,
			humanize.Comma(s.Count),
			humanize.SIWithDigits(distance, 1, "m"),
			(time.Duration(seconds) * time.Second).String())
	}
}

// exportActivities writes the activities as gzipped NDJSON, one events.Activity per line.
func exportActivities(path, cat string, acts []activity.MeasuredActivity) error {
	w, err := catz.NewGZFileWriter(path, nil)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	for _, a := range acts {
		if err := enc.Encode(events.Activity{Cat: cat, Activity: a}); err != nil {
			_ = w.Close()
			return err
		}
	}
	return w.Close()
}

func init() {
	rootCmd.AddCommand(activitiesCmd)

	flags := activitiesCmd.Flags()
	flags.StringVar(&optActivitiesCat, "cat", "", "Cat to read; lists cats when empty")
	flags.StringSliceVar(&optActivitiesMotions, "motion", nil, "Only these motion types, eg. train,plane")
	flags.DurationVar(&optActivitiesSince, "since", 0, "Only activities started within this long ago")
	flags.IntVar(&optActivitiesLimit, "limit", 0, "Only the most recent N activities")
	flags.BoolVar(&optActivitiesStats, "stats", false, "Print distance statistics and all-time scores instead")
	flags.StringVar(&optActivitiesExport, "export", "", "Export to a gzipped NDJSON file instead")
}

