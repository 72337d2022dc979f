package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"lufs-timeline/internal/history"
)

type cell uint8

const (
	cellEmpty cell = iota
	cellGrid
	cellMomentary
	cellShortTerm
)

var cellRunes = [...]string{
	cellEmpty:     " ",
	cellGrid:      "·",
	cellMomentary: "░",
	cellShortTerm: "█",
}

// labelWidth is the width of the LUFS axis on the left of the chart.
const labelWidth = 5

// envelope is the loudness range drawn in one chart column.
type envelope struct {
	minMomentary, maxMomentary float64
	minShortTerm, maxShortTerm float64
	ok                         bool
}

func (e *envelope) add(b history.Bucket) {
	if !e.ok {
		e.minMomentary, e.maxMomentary = b.MinMomentary, b.MaxMomentary
		e.minShortTerm, e.maxShortTerm = b.MinShortTerm, b.MaxShortTerm
		e.ok = true
		return
	}
	e.minMomentary = min(e.minMomentary, b.MinMomentary)
	e.maxMomentary = max(e.maxMomentary, b.MaxMomentary)
	e.minShortTerm = min(e.minShortTerm, b.MinShortTerm)
	e.maxShortTerm = max(e.maxShortTerm, b.MaxShortTerm)
}

// spans turns render data into time-ordered buckets; a raw sample covers
// the interval until the next update.
func spans(data history.RenderData) []history.Bucket {
	if data.UseMinMax {
		return data.Buckets
	}

	out := make([]history.Bucket, len(data.Points))
	for i, p := range data.Points {
		out[i] = history.Bucket{
			MinMomentary: p.Momentary,
			MaxMomentary: p.Momentary,
			MinShortTerm: p.ShortTerm,
			MaxShortTerm: p.ShortTerm,
			StartTime:    p.Timestamp,
			EndTime:      p.Timestamp + data.BucketDuration,
		}
	}
	return out
}

// columns folds render data into one envelope per chart column.
func columns(data history.RenderData, v Viewport, width int) []envelope {
	out := make([]envelope, width)
	if width <= 0 || v.Range <= 0 {
		return out
	}

	scale := float64(width) / v.Range
	for _, b := range spans(data) {
		if !b.Valid() || b.EndTime <= v.Start || b.StartTime >= v.End() {
			continue
		}

		x0 := int(math.Floor((b.StartTime - v.Start) * scale))
		x1 := int(math.Ceil((b.EndTime-v.Start)*scale)) - 1
		x0 = max(x0, 0)
		x1 = min(max(x1, x0), width-1)

		for x := x0; x <= x1; x++ {
			out[x].add(b)
		}
	}

	return out
}

// row maps a loudness to a chart row, 0 at the top.
func row(lufs float64, v Viewport, height int) int {
	frac := (v.MaxLUFS - lufs) / (v.MaxLUFS - v.MinLUFS)
	r := int(math.Round(frac * float64(height-1)))
	return min(max(r, 0), height-1)
}

// gridStep picks the spacing of the horizontal grid lines.
func gridStep(v Viewport) float64 {
	switch span := v.MaxLUFS - v.MinLUFS; {
	case span >= 40:
		return 10
	case span >= 16:
		return 5
	default:
		return 2
	}
}

// plot rasterizes data into height rows of width cells. Short-term is
// drawn over momentary.
func plot(data history.RenderData, v Viewport, width, height int) [][]cell {
	grid := make([][]cell, height)
	for y := range grid {
		grid[y] = make([]cell, width)
	}
	if width <= 0 || height <= 0 {
		return grid
	}

	step := gridStep(v)
	for l := math.Ceil(v.MinLUFS/step) * step; l <= v.MaxLUFS; l += step {
		y := row(l, v, height)
		for x := range grid[y] {
			grid[y][x] = cellGrid
		}
	}

	fill := func(x int, lo, hi float64, c cell) {
		if hi < v.MinLUFS || lo > v.MaxLUFS {
			return
		}
		for y := row(hi, v, height); y <= row(lo, v, height); y++ {
			grid[y][x] = c
		}
	}

	for x, e := range columns(data, v, width) {
		if !e.ok {
			continue
		}
		fill(x, e.minMomentary, e.maxMomentary, cellMomentary)
		fill(x, e.minShortTerm, e.maxShortTerm, cellShortTerm)
	}

	return grid
}

// renderChart draws the plot with a LUFS axis on the left.
func renderChart(data history.RenderData, v Viewport, width, height int) string {
	plotWidth := width - labelWidth
	if plotWidth <= 0 || height <= 0 {
		return ""
	}

	grid := plot(data, v, plotWidth, height)

	labels := make([]string, height)
	step := gridStep(v)
	for l := math.Ceil(v.MinLUFS/step) * step; l <= v.MaxLUFS; l += step {
		labels[row(l, v, height)] = fmt.Sprintf("%*.0f ", labelWidth-1, l)
	}

	var b strings.Builder
	for y, cells := range grid {
		label := labels[y]
		if label == "" {
			label = strings.Repeat(" ", labelWidth)
		}
		b.WriteString(axisStyle.Render(label))

		// Style runs of equal cells together.
		for start := 0; start < len(cells); {
			end := start + 1
			for end < len(cells) && cells[end] == cells[start] {
				end++
			}
			run := strings.Repeat(cellRunes[cells[start]], end-start)
			b.WriteString(cellStyles[cells[start]].Render(run))
			start = end
		}

		if y < len(grid)-1 {
			b.WriteByte('\n')
		}
	}

	return b.String()
}

// timeAxis labels both ends of the visible window under the plot.
func timeAxis(v Viewport, width int) string {
	left := formatTime(v.Start)
	right := formatTime(v.End())
	gap := width - labelWidth - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return ""
	}
	return axisStyle.Render(strings.Repeat(" ", labelWidth) + left + strings.Repeat(" ", gap) + right)
}

// formatTime renders seconds as [-]h:mm:ss.t, dropping the hours under an hour.
func formatTime(seconds float64) string {
	sign := ""
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}

	tenths := int64(math.Round(seconds * 10))
	h := tenths / 36000
	m := tenths / 600 % 60
	s := float64(tenths%600) / 10

	if h > 0 {
		return fmt.Sprintf("%s%d:%02d:%04.1f", sign, h, m, s)
	}
	return fmt.Sprintf("%s%d:%04.1f", sign, m, s)
}
