package history

import "math"

// Query asks for the buckets overlapping [Start, End) at a resolution of
// roughly TargetPoints buckets.
type Query struct {
	Start        float64
	End          float64
	TargetPoints int
	// PreviousLevel is the level returned for the previous frame of the
	// same view, or NoLevel.
	PreviousLevel int
}

func (q Query) degenerate() bool {
	return !(q.End > q.Start) || math.IsInf(q.Start, 0) || math.IsInf(q.End, 0) || q.TargetPoints <= 0
}

// Result is the answer to a Query. Callers feed Level back as the next
// query's PreviousLevel.
type Result struct {
	Buckets        []Bucket `json:"buckets"`
	Level          int      `json:"level"`
	BucketDuration float64  `json:"bucket_duration"`
}

// Query returns the buckets of the selected level that overlap the window,
// including the level's unfinished bucket. A degenerate query (empty or
// inverted window, non-finite bounds, no point budget) yields no buckets
// and carries PreviousLevel through unchanged.
func (s *Store) Query(q Query) Result {
	if q.degenerate() {
		return Result{Level: q.PreviousLevel}
	}

	ideal := (q.End - q.Start) / float64(q.TargetPoints)
	idx := SelectLevel(s.durations, ideal, q.PreviousLevel, s.opts.Hysteresis)

	s.mu.RLock()
	defer s.mu.RUnlock()

	// A level that has aged out the window start hands over to a coarser one.
	for idx < len(s.levels)-1 && !s.levels[idx].covers(q.Start) {
		idx++
	}

	l := s.levels[idx]
	estimate := int(math.Min((q.End-q.Start)/l.duration, float64(l.len()))) + 2

	return Result{
		Buckets:        l.collect(q.Start, q.End, make([]Bucket, 0, estimate)),
		Level:          idx,
		BucketDuration: l.duration,
	}
}

// DataForTimeRange is Query without a previous level.
func (s *Store) DataForTimeRange(start, end float64, targetPoints int) Result {
	return s.Query(Query{
		Start:         start,
		End:           end,
		TargetPoints:  targetPoints,
		PreviousLevel: NoLevel,
	})
}
