package history

import (
	"math"
	"sort"
)

// level aggregates samples into fixed-duration buckets. Finalized buckets
// live in a ring bounded by capacity; zero capacity keeps them all.
type level struct {
	duration float64
	// span is the number of update intervals per bucket when a bucket holds
	// a whole number of them, else 0. Edges are then k*span/rate, the same
	// arithmetic that timestamps samples.
	span int64
	rate float64

	capacity int

	buckets []Bucket
	head    int
	evicted bool

	current    Bucket
	currentIdx int64
	open       bool
}

func newLevel(duration float64, span int64, rate float64, capacity int) *level {
	return &level{duration: duration, span: span, rate: rate, capacity: capacity}
}

// edge returns the start of bucket k.
func (l *level) edge(k int64) float64 {
	if l.span > 0 {
		return float64(k*l.span) / l.rate
	}
	return float64(k) * l.duration
}

// index returns the bucket whose [edge(k), edge(k+1)) holds t. The
// quotient only estimates k; the edges decide.
func (l *level) index(t float64) int64 {
	k := int64(math.Floor(t / l.duration))
	for k > 0 && l.edge(k) > t {
		k--
	}
	for l.edge(k+1) <= t {
		k++
	}
	return k
}

func (l *level) bounds(k int64) (start, end float64) {
	return l.edge(k), l.edge(k + 1)
}

func (l *level) reset() {
	l.buckets = l.buckets[:0]
	l.head = 0
	l.evicted = false
	l.open = false
	l.currentIdx = 0
}

// add folds s into the current bucket, finalizing it and any skipped
// buckets when s lands past its end. Timestamps are non-decreasing, so a
// sample never lands before the current bucket.
func (l *level) add(s Sample) {
	k := l.index(s.Timestamp)

	switch {
	case !l.open:
		l.openAt(k)
	case k > l.currentIdx:
		l.finalize(l.current)
		for gap := l.currentIdx + 1; gap < k; gap++ {
			l.finalize(emptyBucket(l.bounds(gap)))
		}
		l.openAt(k)
	}

	l.current.add(s)
}

func (l *level) openAt(k int64) {
	l.current = emptyBucket(l.bounds(k))
	l.currentIdx = k
	l.open = true
}

func (l *level) finalize(b Bucket) {
	if l.capacity > 0 && len(l.buckets) == l.capacity {
		l.buckets[l.head] = b
		l.head = (l.head + 1) % l.capacity
		l.evicted = true
		return
	}
	l.buckets = append(l.buckets, b)
}

// len returns the number of finalized buckets retained.
func (l *level) len() int {
	return len(l.buckets)
}

// at returns the i-th retained finalized bucket, oldest first.
func (l *level) at(i int) Bucket {
	return l.buckets[(l.head+i)%len(l.buckets)]
}

// oldestStart returns the start of the oldest bucket this level still holds.
func (l *level) oldestStart() (float64, bool) {
	if l.len() > 0 {
		return l.at(0).StartTime, true
	}
	if l.open {
		return l.current.StartTime, true
	}
	return 0, false
}

// covers reports whether the level still holds everything it ever saw
// from start onward.
func (l *level) covers(start float64) bool {
	if !l.evicted {
		return true
	}
	oldest, _ := l.oldestStart()
	return oldest <= start
}

// collect appends every bucket overlapping [start, end), current bucket
// included, to dst in time order.
func (l *level) collect(start, end float64, dst []Bucket) []Bucket {
	n := l.len()
	i := sort.Search(n, func(i int) bool { return l.at(i).EndTime > start })

	for ; i < n; i++ {
		b := l.at(i)
		if b.StartTime >= end {
			break
		}
		dst = append(dst, b)
	}

	if l.open && l.current.Overlaps(start, end) {
		dst = append(dst, l.current)
	}

	return dst
}
