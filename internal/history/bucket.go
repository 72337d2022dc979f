package history

import "math"

// Sample is one loudness reading as produced by the metering tick.
type Sample struct {
	Momentary float64 `json:"momentary"`
	ShortTerm float64 `json:"short_term"`
	Timestamp float64 `json:"timestamp"`
}

// Bucket is the min/max envelope of every sample whose timestamp falls in
// [StartTime, EndTime). A bucket without samples has min > max; use Valid
// before reading its levels.
type Bucket struct {
	MinMomentary float64 `json:"min_momentary"`
	MaxMomentary float64 `json:"max_momentary"`
	MinShortTerm float64 `json:"min_short_term"`
	MaxShortTerm float64 `json:"max_short_term"`
	StartTime    float64 `json:"start_time"`
	EndTime      float64 `json:"end_time"`
}

func emptyBucket(start, end float64) Bucket {
	return Bucket{
		MinMomentary: math.MaxFloat64,
		MaxMomentary: -math.MaxFloat64,
		MinShortTerm: math.MaxFloat64,
		MaxShortTerm: -math.MaxFloat64,
		StartTime:    start,
		EndTime:      end,
	}
}

// Valid reports whether at least one sample contributed to b.
func (b Bucket) Valid() bool {
	return b.MinMomentary <= b.MaxMomentary
}

// Duration returns EndTime - StartTime.
func (b Bucket) Duration() float64 {
	return b.EndTime - b.StartTime
}

// Overlaps reports whether b intersects [start, end).
func (b Bucket) Overlaps(start, end float64) bool {
	return b.StartTime < end && b.EndTime > start
}

func (b *Bucket) add(s Sample) {
	b.MinMomentary = min(b.MinMomentary, s.Momentary)
	b.MaxMomentary = max(b.MaxMomentary, s.Momentary)
	b.MinShortTerm = min(b.MinShortTerm, s.ShortTerm)
	b.MaxShortTerm = max(b.MaxShortTerm, s.ShortTerm)
}
