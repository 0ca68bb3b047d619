package countdown

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// TTL is a Scheduler backed by a ttlcache expiry loop.
// Each armed countdown is a cache item whose TTL is the countdown interval;
// expiry fires the callback, deletion or replacement does not.
type TTL struct {
	cache      *ttlcache.Cache[string, func()]
	unregister func()
}

// NewTTL starts the expiry loop. Close stops it.
func NewTTL() *TTL {
	cache := ttlcache.New[string, func()](
		ttlcache.WithDisableTouchOnHit[string, func()](),
	)
	t := &TTL{cache: cache}
	t.unregister = cache.OnEviction(func(ctx context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, func()]) {
		if reason != ttlcache.EvictionReasonExpired {
			return
		}
		// The cache may hold its lock while evicting.
		// The callback is free to start and stop countdowns.
		go item.Value()()
	})
	go cache.Start()
	return t
}

func (t *TTL) Start(key string, interval time.Duration, fn func()) {
	t.cache.Set(key, fn, interval)
}

func (t *TTL) Stop(key string) {
	t.cache.Delete(key)
}

// Armed returns the number of countdowns currently armed.
func (t *TTL) Armed() int {
	return t.cache.Len()
}

// Close stops the expiry loop. Armed countdowns never fire after Close.
func (t *TTL) Close() {
	t.unregister()
	t.cache.Stop()
}
