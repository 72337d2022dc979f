package history

import (
	"sort"
	"sync"
)

// ring holds the most recent raw samples. It has its own lock so readers of
// the recent window never wait on the level-of-detail lock.
type ring struct {
	mu      sync.RWMutex
	samples []Sample
	written uint64
}

func newRing(capacity int) *ring {
	return &ring{samples: make([]Sample, capacity)}
}

func (r *ring) push(s Sample) {
	r.mu.Lock()
	r.samples[r.written%uint64(len(r.samples))] = s
	r.written++
	r.mu.Unlock()
}

func (r *ring) reset() {
	r.mu.Lock()
	r.written = 0
	r.mu.Unlock()
}

// retained and at expect r.mu to be held.
func (r *ring) retained() int {
	return int(min(r.written, uint64(len(r.samples))))
}

func (r *ring) at(i int) Sample {
	first := r.written - uint64(r.retained())
	return r.samples[(first+uint64(i))%uint64(len(r.samples))]
}

func (r *ring) size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.retained()
}

func (r *ring) latest() (Sample, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := r.retained()
	if n == 0 {
		return Sample{}, false
	}
	return r.at(n - 1), true
}

// slice copies the samples with timestamps in [start, end). When complete
// is set and the ring has dropped samples at or after start, it reports
// false instead.
func (r *ring) slice(start, end float64, complete bool) ([]Sample, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := r.retained()
	if complete && r.written > uint64(n) && (n == 0 || r.at(0).Timestamp > start) {
		return nil, false
	}

	lo := sort.Search(n, func(i int) bool { return r.at(i).Timestamp >= start })
	hi := sort.Search(n, func(i int) bool { return r.at(i).Timestamp >= end })
	if hi <= lo {
		return nil, true
	}

	out := make([]Sample, 0, hi-lo)
	for i := lo; i < hi; i++ {
		out = append(out, r.at(i))
	}
	return out, true
}

// since copies the samples with timestamps strictly after t.
func (r *ring) since(t float64) []Sample {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := r.retained()
	lo := sort.Search(n, func(i int) bool { return r.at(i).Timestamp > t })

	out := make([]Sample, 0, n-lo)
	for i := lo; i < n; i++ {
		out = append(out, r.at(i))
	}
	return out
}
