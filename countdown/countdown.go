/*
Package countdown provides keyed, replaceable one-shot timers.

A countdown is started under a key and fires its callback once after its interval
unless stopped or replaced first. Keys are independent of each other.
*/
package countdown

import (
	"time"
)

// Scheduler starts and stops named countdowns.
type Scheduler interface {
	// Start arms a countdown under key, replacing any countdown already armed
	// under the same key. fn runs at most once.
	Start(key string, interval time.Duration, fn func())
	// Stop disarms the countdown under key, if any.
	Stop(key string)
}

type prefixed struct {
	prefix string
	s      Scheduler
}

// WithPrefix namespaces the keys of s, so that several owners can share one scheduler.
func WithPrefix(s Scheduler, prefix string) Scheduler {
	return &prefixed{prefix: prefix, s: s}
}

func (p *prefixed) Start(key string, interval time.Duration, fn func()) {
	p.s.Start(p.prefix+key, interval, fn)
}

func (p *prefixed) Stop(key string) {
	p.s.Stop(p.prefix + key)
}
