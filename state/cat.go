package state

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/rotblauer/catmotion/types/activity"
	"github.com/shopspring/decimal"
	"go.etcd.io/bbolt"
)

// CatStore is one cat's view of the Store.
// It is the database an estimator writes finalized activities to.
type CatStore struct {
	store *Store
	cat   string
}

func (c *CatStore) Cat() string {
	return c.cat
}

// Start times an activity key can hold: the range of UnixNano.
var (
	minKeyTime = time.Unix(0, math.MinInt64)
	maxKeyTime = time.Unix(0, math.MaxInt64)
)

// activityKey sorts chronologically by start time, before and after 1970 alike:
// flipping the sign bit orders signed nanoseconds as unsigned bytes.
// The bucket sequence breaks ties between activities starting together.
// Starts outside [minKeyTime, maxKeyTime] are clamped.
func activityKey(start time.Time, seq uint64) []byte {
	if start.Before(minKeyTime) {
		start = minKeyTime
	} else if start.After(maxKeyTime) {
		start = maxKeyTime
	}
	k := make([]byte, 16)
	binary.BigEndian.PutUint64(k[:8], uint64(start.UnixNano())^(1<<63))
	binary.BigEndian.PutUint64(k[8:], seq)
	return k
}

func (c *CatStore) update(fn func(b *bbolt.Bucket) error) error {
	if c.store.rOnly {
		return ErrReadOnly
	}
	return c.store.DB.Update(func(tx *bbolt.Tx) error {
		b, err := catBucket(tx, c.cat)
		if err != nil {
			return err
		}
		return fn(b)
	})
}

// Append stores a finalized activity.
// Activities with a zero start, or one outside the years 1678 to 2262, are refused.
func (c *CatStore) Append(a activity.MeasuredActivity) error {
	if a.Start.IsZero() || a.Start.Before(minKeyTime) || a.Start.After(maxKeyTime) {
		return fmt.Errorf("%w: %v", ErrInvalidStart, a.Start)
	}
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return c.update(func(b *bbolt.Bucket) error {
		acts := b.Bucket(activitiesBucket)
		seq, err := acts.NextSequence()
		if err != nil {
			return err
		}
		return acts.Put(activityKey(a.Start, seq), data)
	})
}

// Score is the running total of one motion type.
// Totals are decimals so that long sums of float distances don't drift.
type Score struct {
	Motion   activity.MotionType `json:"motion"`
	Count    int64               `json:"count"`
	Distance decimal.Decimal     `json:"distance"` // meters
	Duration decimal.Decimal     `json:"duration"` // seconds
}

// Add returns the score with a added to it.
func (s Score) Add(a activity.MeasuredActivity) Score {
	s.Motion = a.Motion
	s.Count++
	s.Distance = s.Distance.Add(decimal.NewFromFloat(a.Distance))
	s.Duration = s.Duration.Add(decimal.NewFromFloat(a.Duration().Seconds()))
	return s
}

// UpdateScore adds a to the running total of its motion type.
func (c *CatStore) UpdateScore(a activity.MeasuredActivity) error {
	return c.update(func(b *bbolt.Bucket) error {
		scores := b.Bucket(scoresBucket)
		key := []byte(a.Motion.String())
		score := Score{Motion: a.Motion}
		if got := scores.Get(key); got != nil {
			if err := json.Unmarshal(got, &score); err != nil {
				return fmt.Errorf("decode score %s: %w", key, err)
			}
		}
		data, err := json.Marshal(score.Add(a))
		if err != nil {
			return err
		}
		return scores.Put(key, data)
	})
}

// Scores returns the running totals in motion type order.
// Motion types never scored are omitted.
func (c *CatStore) Scores() ([]Score, error) {
	out := []Score{}
	err := c.store.DB.View(func(tx *bbolt.Tx) error {
		b, err := catBucket(tx, c.cat)
		if err != nil || b == nil {
			return err
		}
		scores := b.Bucket(scoresBucket)
		motions := make([]activity.MotionType, 0, len(activity.AllMotionTypes)+1)
		motions = append(motions, activity.AllMotionTypes...)
		for _, m := range append(motions, activity.Unknown) {
			got := scores.Get([]byte(m.String()))
			if got == nil {
				continue
			}
			s := Score{}
			if err := json.Unmarshal(got, &s); err != nil {
				return err
			}
			out = append(out, s)
		}
		return nil
	})
	return out, err
}

// Filter selects stored activities. Zero values select everything.
type Filter struct {
	Motions []activity.MotionType
	// Since and Until bound activity start times, inclusive and exclusive.
	Since time.Time
	Until time.Time
	// Limit keeps only the most recent Limit matches.
	Limit int
}

func (f Filter) match(a activity.MeasuredActivity) bool {
	if len(f.Motions) > 0 {
		ok := false
		for _, m := range f.Motions {
			if m == a.Motion {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if !f.Until.IsZero() && !a.Start.Before(f.Until) {
		return false
	}
	return true
}

// Activities returns the cat's stored activities matching filter, in start order.
// It returns ErrNoActivities when nothing was ever stored for the cat.
func (c *CatStore) Activities(filter Filter) ([]activity.MeasuredActivity, error) {
	out := []activity.MeasuredActivity{}
	err := c.store.DB.View(func(tx *bbolt.Tx) error {
		b, err := catBucket(tx, c.cat)
		if err != nil {
			return err
		}
		if b == nil {
			return ErrNoActivities
		}
		cur := b.Bucket(activitiesBucket).Cursor()
		var k, v []byte
		if filter.Since.IsZero() {
			k, v = cur.First()
		} else {
			k, v = cur.Seek(activityKey(filter.Since, 0))
		}
		for ; k != nil; k, v = cur.Next() {
			a := activity.MeasuredActivity{}
			if err := json.Unmarshal(v, &a); err != nil {
				return fmt.Errorf("decode activity %x: %w", k, err)
			}
			if filter.match(a) {
				out = append(out, a)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[len(out)-filter.Limit:]
	}
	return out, nil
}
