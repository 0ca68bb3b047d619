package cache

import (
	"fmt"
	"sync"

	"github.com/golang/groupcache/lru"
	"github.com/mitchellh/hashstructure/v2"
	"github.com/rotblauer/catmotion/params"
	"github.com/rotblauer/catmotion/types/geosample"
)

// NewDedupePassLRUFunc returns a predicate that is true for samples it has not
// seen recently, and false for repeats of any of the last size samples.
// Devices resend batches they think failed; repeats would otherwise be rejected
// by the validator only after costing a log line each.
// The predicate is safe for concurrent use.
func NewDedupePassLRUFunc(size int) func(geosample.LocationSample) bool {
	if size <= 0 {
		size = params.DefaultDedupeCacheSize
	}
	var mu sync.Mutex
	dedupeCache := lru.New(size)
	return func(sample geosample.LocationSample) bool {
		// The hash of the sample is used to deduplicate.
		hash, err := hashstructure.Hash(sample, hashstructure.FormatV2, nil)
		if err != nil {
			return false
		}
		key := fmt.Sprintf("%d", hash)
		mu.Lock()
		defer mu.Unlock()
		if _, ok := dedupeCache.Get(key); ok {
			return false
		}
		dedupeCache.Add(key, true)
		return true
	}
}
