package silence

import (
	"fmt"

	"lufs-timeline/internal/history"
)

// durationEpsilon lets a span made of bucket boundaries meet a minimum
// duration it equals up to rounding.
const durationEpsilon = 1e-9

// Span represents a detected quiet region of the loudness history
type Span struct {
	StartTime float64 `json:"start_time"` // Start time in seconds
	EndTime   float64 `json:"end_time"`   // End time in seconds
	Duration  float64 `json:"duration"`   // Duration in seconds
	Loudest   float64 `json:"loudest"`    // Highest short-term loudness inside the span, LUFS
}

// Config holds parameters for quiet span detection
type Config struct {
	ThresholdLUFS float64 // Short-term loudness below this is quiet
	MinDuration   float64 // Minimum span duration in seconds
}

// DefaultConfig returns default quiet span detection configuration
func DefaultConfig() Config {
	return Config{
		ThresholdLUFS: -50.0,
		MinDuration:   2.0,
	}
}

// DetectQuiet finds the spans where every bucket's maximum short-term
// loudness stays below the threshold for at least MinDuration. Buckets must
// be time-ordered as returned by a history query. Empty buckets and gaps
// between buckets end a span.
func DetectQuiet(buckets []history.Bucket, cfg Config) []Span {
	var spans []Span
	var current *Span

	closeSpan := func() {
		if current != nil && current.Duration+durationEpsilon >= cfg.MinDuration {
			spans = append(spans, *current)
		}
		current = nil
	}

	for _, b := range buckets {
		quiet := b.Valid() && b.MaxShortTerm < cfg.ThresholdLUFS
		if !quiet || (current != nil && b.StartTime != current.EndTime) {
			closeSpan()
		}
		if !quiet {
			continue
		}

		if current == nil {
			current = &Span{StartTime: b.StartTime, Loudest: b.MaxShortTerm}
		}
		current.EndTime = b.EndTime
		current.Duration = current.EndTime - current.StartTime
		current.Loudest = max(current.Loudest, b.MaxShortTerm)
	}
	closeSpan()

	return spans
}

// Intersect returns the spans quiet in both a and b that last at least
// minDuration. Both inputs must be sorted and non-overlapping.
func Intersect(a, b []Span, minDuration float64) []Span {
	var out []Span

	for i, j := 0, 0; i < len(a) && j < len(b); {
		start := max(a[i].StartTime, b[j].StartTime)
		end := min(a[i].EndTime, b[j].EndTime)
		if end-start+durationEpsilon >= minDuration && end > start {
			out = append(out, Span{
				StartTime: start,
				EndTime:   end,
				Duration:  end - start,
				Loudest:   max(a[i].Loudest, b[j].Loudest),
			})
		}

		if a[i].EndTime < b[j].EndTime {
			i++
		} else {
			j++
		}
	}

	return out
}

// DetectCommon finds the quiet spans shared by every track. Tracks must be
// queried over the same window at the same level.
func DetectCommon(tracks [][]history.Bucket, cfg Config) []Span {
	if len(tracks) == 0 {
		return nil
	}

	common := DetectQuiet(tracks[0], cfg)
	for _, buckets := range tracks[1:] {
		common = Intersect(common, DetectQuiet(buckets, cfg), cfg.MinDuration)
	}

	return common
}

// Report contains the results of quiet span detection
type Report struct {
	Spans    []Span
	Total    float64 // Total quiet duration in seconds
	Analyzed float64 // Seconds of history examined
	Config   Config
}

// NewReport totals spans found over analyzed seconds of history.
func NewReport(spans []Span, analyzed float64, cfg Config) *Report {
	total := 0.0
	for _, span := range spans {
		total += span.Duration
	}

	return &Report{
		Spans:    spans,
		Total:    total,
		Analyzed: analyzed,
		Config:   cfg,
	}
}

// Print displays the detection results
func (r *Report) Print() {
	fmt.Printf("\nQuiet Span Detection Results:\n")
	fmt.Printf("Threshold: %.1f LUFS short-term\n", r.Config.ThresholdLUFS)
	fmt.Printf("Min Duration: %.1f s\n", r.Config.MinDuration)
	fmt.Printf("\nQuiet Spans: %d\n", len(r.Spans))

	if len(r.Spans) == 0 {
		fmt.Printf("No quiet spans found with current settings.\n")
		return
	}

	for i, span := range r.Spans {
		fmt.Printf("[%d] %.2fs - %.2fs (%.2fs duration, loudest %.1f LUFS)\n",
			i+1, span.StartTime, span.EndTime, span.Duration, span.Loudest)
	}

	if r.Analyzed > 0 {
		fmt.Printf("\nTotal quiet: %.2fs (%.1f%% of audio)\n", r.Total, r.Total/r.Analyzed*100)
	}
}
