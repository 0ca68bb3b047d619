/*
Package buffer holds the unresolved, speed-derived activity samples a cat has made
since its last finalized activity, and knows how to collapse ranges of them into one.
*/
package buffer

import (
	"github.com/rotblauer/catmotion/types/activity"
)

// ActivityBuffer is an ordered, chronological sequence of measured activities.
// Callers work in ranges; individual entries are never handed out.
type ActivityBuffer interface {
	// Add appends an activity. Nothing is ever dropped implicitly.
	Add(a activity.MeasuredActivity)
	Len() int

	// Synthesize collapses the inclusive range [from, to] into a single activity.
	// It returns false for an invalid range.
	Synthesize(from, to int) (activity.MeasuredActivity, bool)

	// Remove deletes the inclusive range [from, to].
	// Reversed or out of bounds ranges are ignored.
	Remove(from, to int)
	RemoveAll()

	// SignificantChange reports whether the trailing n entries share one motion type
	// that differs from the type of the first entry.
	SignificantChange(n int) bool

	// SignificantSpans returns, in order, the inclusive ranges a significant-change
	// sweep with window n would finalize. It does not mutate the buffer.
	SignificantSpans(n int) [][2]int

	// TrailingStreak returns the motion type of the trailing n entries if they all share one.
	TrailingStreak(n int) (activity.MotionType, bool)

	// TrailingMatch reports whether each of the trailing n entries has the given motion type
	// and started at or after since (Unix nanoseconds).
	TrailingMatch(n int, motion activity.MotionType, since int64) bool
}

// Slice is the ActivityBuffer backed by a slice.
// It is not safe for concurrent use; the estimator owns it.
type Slice struct {
	acts    []activity.MeasuredActivity
	weights map[activity.MotionType]int
}

// NewSlice creates a buffer voting with the given weights,
// keyed by lowercase motion type name as they appear in configuration.
// Motion types without a weight vote with weight 1.
func NewSlice(weights map[string]int) *Slice {
	w := make(map[activity.MotionType]int, len(activity.AllMotionTypes))
	for _, m := range activity.AllMotionTypes {
		w[m] = 1
		if v, ok := weights[m.WeightKey()]; ok {
			w[m] = v
		}
	}
	return &Slice{
		acts:    []activity.MeasuredActivity{},
		weights: w,
	}
}

func (s *Slice) Add(a activity.MeasuredActivity) {
	s.acts = append(s.acts, a)
}

func (s *Slice) Len() int {
	return len(s.acts)
}

func (s *Slice) validRange(from, to int) bool {
	return from >= 0 && from <= to && to < len(s.acts)
}

func (s *Slice) Synthesize(from, to int) (activity.MeasuredActivity, bool) {
	if !s.validRange(from, to) {
		return activity.MeasuredActivity{}, false
	}
	span := s.acts[from : to+1]
	out := activity.MeasuredActivity{
		Motion: s.vote(span),
		Start:  span[0].Start,
		End:    span[len(span)-1].End,
	}
	for _, a := range span {
		out.Distance += a.Distance
	}
	return out, true
}

// vote picks the motion type of a span.
// Motion types are visited in order; the incumbent starts as Walking, and a challenger
// takes over when its weighted count beats the incumbent's plain, unweighted count.
// The asymmetry (only the challenger is weighted) is deliberate and order-sensitive;
// stored scores were computed with it.
func (s *Slice) vote(span []activity.MeasuredActivity) activity.MotionType {
	if len(span) == 0 {
		return activity.Unknown
	}
	counts := make(map[activity.MotionType]int, len(activity.AllMotionTypes))
	for _, a := range span {
		counts[a.Motion]++
	}
	best := activity.AllMotionTypes[0]
	for _, challenger := range activity.AllMotionTypes[1:] {
		if counts[challenger]*s.weights[challenger] > counts[best] {
			best = challenger
		}
	}
	if counts[best] == 0 {
		// Only unknowns in the span.
		return activity.Unknown
	}
	return best
}

func (s *Slice) Remove(from, to int) {
	if !s.validRange(from, to) {
		return
	}
	s.acts = append(s.acts[:from], s.acts[to+1:]...)
}

func (s *Slice) RemoveAll() {
	s.acts = []activity.MeasuredActivity{}
}

func (s *Slice) SignificantChange(n int) bool {
	if n < 1 || len(s.acts) <= n {
		return false
	}
	motion, ok := s.TrailingStreak(n)
	return ok && motion != s.acts[0].Motion
}

func (s *Slice) TrailingStreak(n int) (activity.MotionType, bool) {
	if n < 1 || len(s.acts) < n {
		return activity.Unknown, false
	}
	tail := s.acts[len(s.acts)-n:]
	for _, a := range tail[1:] {
		if a.Motion != tail[0].Motion {
			return activity.Unknown, false
		}
	}
	return tail[0].Motion, true
}

func (s *Slice) TrailingMatch(n int, motion activity.MotionType, since int64) bool {
	if n < 1 || len(s.acts) < n {
		return false
	}
	for _, a := range s.acts[len(s.acts)-n:] {
		if a.Motion != motion || a.Start.UnixNano() < since {
			return false
		}
	}
	return true
}

// run is a maximal stretch of consecutive same-motion entries, inclusive.
type run struct {
	from, to int
}

func (r run) len() int { return r.to - r.from + 1 }

func (s *Slice) runs() []run {
	if len(s.acts) == 0 {
		return nil
	}
	out := []run{{from: 0}}
	for i := 1; i < len(s.acts); i++ {
		if s.acts[i].Motion != s.acts[i-1].Motion {
			out[len(out)-1].to = i - 1
			out = append(out, run{from: i})
		}
	}
	out[len(out)-1].to = len(s.acts) - 1
	return out
}

// SignificantSpans walks the change points of the buffer once.
// A change point is significant when the run it ends and the run it starts
// are both at least n long. Each significant change point finalizes everything
// from the end of the last finalized span up to the change point; short runs
// (flapping) in between are absorbed into that span and settled by the vote.
// The final run is never finalized here: it is the unresolved tail.
func (s *Slice) SignificantSpans(n int) [][2]int {
	if n < 1 {
		return nil
	}
	runs := s.runs()
	var spans [][2]int
	start := 0
	for i := 0; i < len(runs)-1; i++ {
		if runs[i].len() >= n && runs[i+1].len() >= n {
			spans = append(spans, [2]int{start, runs[i].to})
			start = runs[i].to + 1
		}
	}
	return spans
}
