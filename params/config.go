package params

import (
	"errors"
	"fmt"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var (
	ErrInvalidThreshold = errors.New("invalid threshold")
	ErrInvalidWindow    = errors.New("invalid window")
)

// LoadEstimatorConfig reads an estimator configuration file (YAML, TOML, JSON; anything viper reads)
// over the defaults. Keys are the EstimatorConfig field names, case-insensitive, eg.
//
//	StationRadius: 200
//	StationTimeout: 45m
//	MotionWeights:
//	  Car: 3
//
// An empty path returns the defaults.
func LoadEstimatorConfig(path string) (*EstimatorConfig, error) {
	config := DefaultEstimatorConfig()
	if path == "" {
		return config, nil
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetConfigFile(expanded)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read estimator config: %w", err)
	}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("decode estimator config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks that thresholds are positive and windows are usable.
func (c *EstimatorConfig) Validate() error {
	positives := []struct {
		name string
		v    float64
	}{
		{"AccuracyThreshold", c.AccuracyThreshold},
		{"StationRadius", c.StationRadius},
		{"AirportRadius", c.AirportRadius},
		{"AutomotiveSpeed", c.AutomotiveSpeed},
		{"ImplausibleSpeed", c.ImplausibleSpeed},
		{"TubeSpeed", c.TubeSpeed},
		{"PlaneSpeed", c.PlaneSpeed},
		{"StationTimeout", c.StationTimeout.Seconds()},
		{"AirportTimeout", c.AirportTimeout.Seconds()},
		{"ExpiredTimeout", c.ExpiredTimeout.Seconds()},
	}
	for _, p := range positives {
		if p.v <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %v", ErrInvalidThreshold, p.name, p.v)
		}
	}
	if c.MinUpdateDistance < 0 || c.DistanceTolerance < 0 {
		return fmt.Errorf("%w: update distance and tolerance must not be negative", ErrInvalidThreshold)
	}
	if c.AutomotiveSpeed >= c.ImplausibleSpeed {
		return fmt.Errorf("%w: AutomotiveSpeed %v must be below ImplausibleSpeed %v",
			ErrInvalidThreshold, c.AutomotiveSpeed, c.ImplausibleSpeed)
	}
	windows := []struct {
		name string
		v    int
	}{
		{"WalkNumForTrainFlagOff", c.WalkNumForTrainFlagOff},
		{"CarNumForPlaneFlagOff", c.CarNumForPlaneFlagOff},
		{"NumChangeActivity", c.NumChangeActivity},
		{"NumMeasurementsToDetermineActivity", c.NumMeasurementsToDetermineActivity},
	}
	for _, w := range windows {
		if w.v < 1 {
			return fmt.Errorf("%w: %s must be at least 1, got %d", ErrInvalidWindow, w.name, w.v)
		}
	}
	for name, weight := range c.MotionWeights {
		if weight < 0 {
			return fmt.Errorf("%w: weight for %s must not be negative", ErrInvalidThreshold, name)
		}
	}
	return nil
}
