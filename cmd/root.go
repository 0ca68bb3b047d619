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
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/rotblauer/catmotion/common"
	"github.com/rotblauer/catmotion/params"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "catmotion",
	Short: "Tell walking from driving, trains from planes",
	Long: `catmotion infers how cats get around from their location tracks.

Location samples are filtered, checked against known stations and airports,
and buffered as speed-derived walking or driving samples until a stable
activity can be told apart. Finalized activities are stored in a bbolt database
(and optionally InfluxDB) with running per-motion scores.

Every persistent flag can also be set from the environment, eg. CATMOTION_DATADIR.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// setDefaultSlog installs the default logger from the --verbosity and --log-json flags.
func setDefaultSlog(cmd *cobra.Command, args []string) {
	level := slog.Level(viper.GetInt("verbosity"))
	slog.SetDefault(slog.New(common.NewSlogHandler(os.Stderr, level, viper.GetBool("log-json"))))
}

func datadir() string {
	d, err := homedir.Expand(viper.GetString("datadir"))
	if err != nil {
		slog.Warn("Failed to expand datadir", "error", err)
		return params.DatadirRoot
	}
	return d
}

func stateDBPath() string {
	return filepath.Join(datadir(), params.StateDBName)
}

func loadEstimatorConfig() (*params.EstimatorConfig, error) {
	return params.LoadEstimatorConfig(viper.GetString("config"))
}

// normalizeFlagName accepts --log_json and --log.json for --log-json.
func normalizeFlagName(f *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.NewReplacer("_", "-", ".", "-").Replace(name))
}

func init() {
	rootCmd.SetGlobalNormalizationFunc(normalizeFlagName)

	pFlags := rootCmd.PersistentFlags()
	pFlags.Int("verbosity", int(slog.LevelInfo), "Log level; -4 debug, 0 info, 4 warn, 8 error")
	pFlags.Bool("log-json", false, "Log JSON instead of text")
	pFlags.String("datadir", params.DatadirRoot, "Data directory, holding the activities database")
	pFlags.String("config", "", "Estimator configuration file (YAML, TOML, JSON); defaults when empty")

	viper.SetEnvPrefix("CATMOTION")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
	if err := viper.BindPFlags(pFlags); err != nil {
		panic(err)
	}
}
