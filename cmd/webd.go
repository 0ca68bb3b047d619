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
	"log"
	"log/slog"

	"github.com/rotblauer/catmotion/common"
	"github.com/rotblauer/catmotion/daemon/webd"
	"github.com/rotblauer/catmotion/params"
	"github.com/spf13/cobra"
)

var optHTTPAddr string
var optHTTPNetwork string
var optWebdRegions string
var optWebdInflux bool

// webdCmd represents the serve command
var webdCmd = &cobra.Command{
	Use:   "webd",
	Short: "Start the webserver",
	Long: `Takes location samples over HTTP and serves the activities estimated from them.

Routes:
  POST /locations          GeoJSON point features, JSON array or NDJSON; ?cat= overrides the cat
  PUT  /regions            FeatureCollection of stations and airports
  GET  /regions
  GET  /cats
  GET  /{cat}/activities   ?motion=car,train&since=RFC3339&until=RFC3339&limit=N
  GET  /{cat}/scores
  GET  /status
  GET  /ping
  /socket                  websocket of finalized activities

Write routes require $CATMOTION_TOKEN, when set, in the Authorization header
or the api_token query param.

Countdowns follow the wall clock. Every cat is flushed on interrupt.`,
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)

		estimatorConfig, err := loadEstimatorConfig()
		if err != nil {
			log.Fatalln(err)
		}
		config := params.DefaultWebDaemonConfig()
		config.DataDir = datadir()
		config.Address = optHTTPAddr
		config.Network = optHTTPNetwork
		config.Estimator = estimatorConfig
		config.RegionsPath = optWebdRegions
		if optWebdInflux {
			config.Influx = params.InfluxConfigFromEnv()
			if config.Influx == nil {
				log.Fatalln("--influx requires INFLUXDB_URL")
			}
		}

		server, err := webd.NewWebDaemon(config)
		if err != nil {
			log.Fatalln(err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			select {
			case <-common.Interrupted():
				slog.Warn("Interrupted, shutting down")
				cancel()
			case <-ctx.Done():
			}
		}()

		if err := server.Run(ctx); err != nil {
			log.Fatalln(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(webdCmd)

	defaults := params.DefaultWebDaemonConfig()

	flags := webdCmd.Flags()
	flags.StringVar(&optHTTPAddr, "address", defaults.Address, "Address to listen on")
	flags.StringVar(&optHTTPNetwork, "network", defaults.Network, "Network to listen on: tcp, tcp4, tcp6 or unix")
	flags.StringVar(&optWebdRegions, "regions", "", "GeoJSON FeatureCollection of stations and airports loaded on start")
	flags.BoolVar(&optWebdInflux, "influx", false, "Also export activities to InfluxDB (INFLUXDB_URL, _TOKEN, _ORG, _BUCKET)")
}
