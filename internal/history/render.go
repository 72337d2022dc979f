package history

// RenderData is what a timeline view draws for one frame: raw samples when
// the window is short enough, min/max buckets otherwise.
type RenderData struct {
	Points         []Sample
	Buckets        []Bucket
	UseMinMax      bool
	Level          int
	BucketDuration float64
}

// Render answers q with raw samples from the ring when the window holds no
// more than q.TargetPoints updates and the ring still has all of them.
// Otherwise it falls back to Query and sets UseMinMax.
func (s *Store) Render(q Query) RenderData {
	if q.degenerate() {
		return RenderData{Level: q.PreviousLevel}
	}

	if (q.End-q.Start)*s.opts.UpdateRate <= float64(q.TargetPoints) {
		if points, ok := s.ring.slice(q.Start, q.End, true); ok {
			return RenderData{
				Points:         points,
				Level:          q.PreviousLevel,
				BucketDuration: 1 / s.opts.UpdateRate,
			}
		}
	}

	r := s.Query(q)
	return RenderData{
		Buckets:        r.Buckets,
		UseMinMax:      true,
		Level:          r.Level,
		BucketDuration: r.BucketDuration,
	}
}
