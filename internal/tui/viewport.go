package tui

import (
	"math"

	"lufs-timeline/internal/history"
	"lufs-timeline/internal/loudness"
)

// View limits
const (
	MinTimeRange = 0.5     // seconds
	MaxTimeRange = 18000.0 // five hours
	MinLUFSRange = 6.0
	MaxLUFSRange = 80.0

	// followRatio places "now" this far across the view while following.
	followRatio = 0.9
	// scrollSmoothing is the share of the distance to the follow target
	// covered per frame.
	scrollSmoothing = 0.25
	// scrollSnap ends the approach once the remaining distance is this small.
	scrollSnap = 1e-4
)

// Viewport is the visible window of the timeline.
type Viewport struct {
	Start   float64 // seconds
	Range   float64 // seconds
	MinLUFS float64
	MaxLUFS float64
	Follow  bool
	// Level is the level of detail used for the last frame, fed back into
	// the next query.
	Level int
}

// NewViewport shows the last ten seconds between -60 and 0 LUFS.
func NewViewport() Viewport {
	return Viewport{
		Start:   -10,
		Range:   10,
		MinLUFS: -60,
		MaxLUFS: 0,
		Follow:  true,
		Level:   history.NoLevel,
	}
}

// End returns the end of the visible window.
func (v Viewport) End() float64 {
	return v.Start + v.Range
}

// Query builds the range query for a chart of the given width.
func (v Viewport) Query(columns int) history.Query {
	return history.Query{
		Start:         v.Start,
		End:           v.End(),
		TargetPoints:  columns,
		PreviousLevel: v.Level,
	}
}

// Advance moves a following view one frame closer to keeping now at
// followRatio of the width.
func (v *Viewport) Advance(now float64) {
	if !v.Follow {
		return
	}

	target := now - v.Range*followRatio
	step := (target - v.Start) * scrollSmoothing
	if math.Abs(target-v.Start) <= scrollSnap {
		v.Start = target
		return
	}
	v.Start += step
}

// ZoomTime scales the time range by factor (<1 zooms in), keeping the
// point at anchor (0 = left edge, 1 = right edge) in place.
func (v *Viewport) ZoomTime(factor, anchor float64) {
	anchorTime := v.Start + anchor*v.Range
	v.Range = clamp(v.Range*factor, MinTimeRange, MaxTimeRange)
	v.Start = anchorTime - anchor*v.Range
}

// ZoomLUFS scales the loudness range by factor around its centre, kept
// within [loudness.FloorLUFS, 0].
func (v *Viewport) ZoomLUFS(factor float64) {
	span := clamp((v.MaxLUFS-v.MinLUFS)*factor, MinLUFSRange, MaxLUFSRange)
	centre := (v.MaxLUFS + v.MinLUFS) / 2

	v.MaxLUFS = centre + span/2
	v.MinLUFS = centre - span/2

	if v.MaxLUFS > 0 {
		v.MaxLUFS = 0
		v.MinLUFS = -span
	}
	if v.MinLUFS < loudness.FloorLUFS {
		v.MinLUFS = loudness.FloorLUFS
		v.MaxLUFS = loudness.FloorLUFS + span
	}
}

// Pan shifts the view by fraction of its range and stops following.
func (v *Viewport) Pan(fraction float64) {
	v.Start += fraction * v.Range
	v.Follow = false
}

// ResumeFollow jumps back to following now.
func (v *Viewport) ResumeFollow(now float64) {
	v.Follow = true
	v.Start = now - v.Range*followRatio
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
