package stream

import (
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/rotblauer/catmotion/common"
)

// TickMeter logs read progress (lines, bytes and rates) on an interval.
type TickMeter struct {
	name     string
	interval time.Duration
	started  time.Time
	ticker   *time.Ticker
	done     chan struct{}
	once     sync.Once

	mu    sync.Mutex
	label time.Time // eg. the time of the last sample read

	reg        metrics.Registry
	countMeter metrics.Meter
	sizeMeter  metrics.Meter
}

// NewTickMeter starts logging every interval until Stop.
func NewTickMeter(name string, interval time.Duration) *TickMeter {
	// The meters are nil meters otherwise.
	metrics.Enabled = true

	reg := metrics.NewRegistry()
	tm := &TickMeter{
		name:       name,
		interval:   interval,
		started:    time.Now(),
		done:       make(chan struct{}),
		reg:        reg,
		countMeter: metrics.NewMeter(),
		sizeMeter:  metrics.NewMeter(),
	}
	if err := reg.Register("line.meter", tm.countMeter); err != nil {
		panic(err)
	}
	if err := reg.Register("size.meter", tm.sizeMeter); err != nil {
		panic(err)
	}
	tm.ticker = time.NewTicker(interval)
	go tm.run()
	return tm
}

// Mark records one line read.
func (tm *TickMeter) Mark(label time.Time, data []byte) {
	tm.mu.Lock()
	if label.After(tm.label) {
		tm.label = label
	}
	tm.mu.Unlock()
	tm.countMeter.Mark(1)
	tm.sizeMeter.Mark(int64(len(data)))
}

// Count returns the number of lines marked.
func (tm *TickMeter) Count() int64 {
	return tm.countMeter.Snapshot().Count()
}

func (tm *TickMeter) run() {
	for {
		select {
		case <-tm.done:
			return
		case <-tm.ticker.C:
			tm.log()
		}
	}
}

func (tm *TickMeter) log() {
	countSnap := tm.countMeter.Snapshot()
	sizeSnap := tm.sizeMeter.Snapshot()
	tm.mu.Lock()
	label := tm.label
	tm.mu.Unlock()

	slog.Info(tm.name, "n", humanize.Comma(countSnap.Count()),
		"read.last", label.Format(time.DateTime),
		"lps", common.DecimalToFixed(countSnap.Rate1(), 0),
		"bps", humanize.Bytes(uint64(sizeSnap.Rate1())),
		"total.bytes", humanize.Bytes(uint64(sizeSnap.Count())),
		"running", time.Since(tm.started).Round(time.Second))
}

// Stop logs a final line and stops the ticker. It is safe to call more than once.
func (tm *TickMeter) Stop() {
	if tm == nil {
		return
	}
	tm.once.Do(func() {
		tm.ticker.Stop()
		close(tm.done)
		tm.log()
		tm.countMeter.Stop()
		tm.sizeMeter.Stop()
	})
}
