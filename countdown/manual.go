package countdown

import (
	"sort"
	"sync"
	"time"
)

type manualEntry struct {
	deadline time.Duration
	interval time.Duration
	seq      uint64
	fn       func()
}

// Manual is a Scheduler driven by hand, for deterministic tests.
// Its clock only moves on Advance.
type Manual struct {
	mu      sync.Mutex
	now     time.Duration
	seq     uint64
	pending map[string]*manualEntry
	starts  map[string]int
}

func NewManual() *Manual {
	return &Manual{
		pending: make(map[string]*manualEntry),
		starts:  make(map[string]int),
	}
}

func (m *Manual) Start(key string, interval time.Duration, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.pending[key] = &manualEntry{
		deadline: m.now + interval,
		interval: interval,
		seq:      m.seq,
		fn:       fn,
	}
	m.starts[key]++
}

func (m *Manual) Stop(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, key)
}

// Pending returns the interval the countdown under key was armed with.
func (m *Manual) Pending(key string) (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.pending[key]
	if !ok {
		return 0, false
	}
	return e.interval, true
}

// Starts returns how many times a countdown was started under key.
func (m *Manual) Starts(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts[key]
}

// next pops the earliest countdown due at or before limit.
func (m *Manual) next(limit time.Duration) (*manualEntry, bool) {
	keys := make([]string, 0, len(m.pending))
	for k, e := range m.pending {
		if e.deadline <= limit {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, false
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := m.pending[keys[i]], m.pending[keys[j]]
		if a.deadline != b.deadline {
			return a.deadline < b.deadline
		}
		return a.seq < b.seq
	})
	e := m.pending[keys[0]]
	delete(m.pending, keys[0])
	return e, true
}

// Advance moves the clock forward by d, firing due countdowns in deadline order
// on the calling goroutine. Countdowns armed by a firing callback fire too if they
// fall due within d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	limit := m.now + d
	for {
		e, ok := m.next(limit)
		if !ok {
			break
		}
		m.now = e.deadline
		m.mu.Unlock()
		e.fn()
		m.mu.Lock()
	}
	m.now = limit
	m.mu.Unlock()
}
