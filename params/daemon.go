package params

import (
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/metrics"
)

func init() {
	metrics.Enabled = true
}

var DatadirRoot = func() string {
	home, err := os.UserHomeDir()
	if err != nil {
		panic(err)
	}
	return filepath.Join(home, ".catmotion")
}()

var StateDBName = "activities.db"

// DefaultEstimatorCacheSize is the number of per-cat estimators a daemon keeps in memory.
// An evicted estimator flushes its buffer before it goes.
var DefaultEstimatorCacheSize = 1_000

// DefaultDedupeCacheSize is the size of the LRU used to drop repeated location samples.
var DefaultDedupeCacheSize = 10_000

type ListenerConfig struct {
	// Network is the network to listen on.
	// The network must be "tcp", "tcp4", "tcp6", "unix" or "unixpacket".
	Network string
	// Address is the address to listen on.
	Address string
}

type WebDaemonConfig struct {
	ListenerConfig
	DataDir string

	// Estimator configures every per-cat estimator the daemon creates.
	Estimator *EstimatorConfig

	// Influx, if set, exports finalized activities to InfluxDB as well.
	Influx *InfluxConfig

	// RegionsPath is an optional GeoJSON file of stations and airports loaded on start.
	RegionsPath string
}

func DefaultWebDaemonConfig() *WebDaemonConfig {
	return &WebDaemonConfig{
		ListenerConfig: ListenerConfig{
			Network: "tcp",
			Address: "localhost:3000",
		},
		DataDir:   DatadirRoot,
		Estimator: DefaultEstimatorConfig(),
	}
}

type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string

	// WriteTimeout bounds each blocking write.
	WriteTimeout time.Duration
}

// InfluxConfigFromEnv returns an InfluxConfig from the INFLUXDB_* environment,
// or nil when no URL is set.
func InfluxConfigFromEnv() *InfluxConfig {
	url := os.Getenv("INFLUXDB_URL")
	if url == "" {
		return nil
	}
	return &InfluxConfig{
		URL:          url,
		Token:        os.Getenv("INFLUXDB_TOKEN"),
		Org:          os.Getenv("INFLUXDB_ORG"),
		Bucket:       os.Getenv("INFLUXDB_BUCKET"),
		WriteTimeout: 5 * time.Second,
	}
}
