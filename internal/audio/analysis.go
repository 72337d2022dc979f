package audio

import (
	"fmt"
	"math"
)

// Analysis passes a Source through unchanged while tracking the sample
// peak, RMS level and digital silence of everything read.
type Analysis struct {
	Source

	frames     int64
	samples    int64
	zeros      int64
	peak       float64
	sumSquares float64
}

// Analyze wraps src.
func Analyze(src Source) *Analysis {
	return &Analysis{Source: src}
}

func (a *Analysis) ReadBlock(dst [][]float64) (int, error) {
	n, err := a.Source.ReadBlock(dst)
	if n == 0 {
		return n, err
	}

	for ch := range a.Format().Channels {
		for _, sample := range dst[ch][:n] {
			if sample == 0 {
				a.zeros++
			}
			a.peak = max(a.peak, math.Abs(sample))
			a.sumSquares += sample * sample
		}
	}
	a.frames += int64(n)
	a.samples += int64(n * a.Format().Channels)

	return n, err
}

// Frames returns the number of frames read so far.
func (a *Analysis) Frames() int64 {
	return a.frames
}

// Duration returns the seconds of audio read so far.
func (a *Analysis) Duration() float64 {
	return float64(a.frames) / float64(a.Format().SampleRate)
}

// PeakDBFS returns the sample peak, -Inf for digital silence.
func (a *Analysis) PeakDBFS() float64 {
	return dbfs(a.peak)
}

// RMSDBFS returns the RMS level over all channels, -Inf for silence.
func (a *Analysis) RMSDBFS() float64 {
	if a.samples == 0 {
		return math.Inf(-1)
	}
	return dbfs(math.Sqrt(a.sumSquares / float64(a.samples)))
}

// SilentFraction returns the share of samples that were exactly zero.
func (a *Analysis) SilentFraction() float64 {
	if a.samples == 0 {
		return 0
	}
	return float64(a.zeros) / float64(a.samples)
}

func dbfs(v float64) float64 {
	if v <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(v)
}

// PrintReport provides a summary of the audio content
func (a *Analysis) PrintReport(name string) {
	format := a.Format()

	fmt.Printf("\n=== Audio Content: %s ===\n", name)
	fmt.Printf("  Duration: %.2f seconds\n", a.Duration())
	fmt.Printf("  Format: %s\n", format)
	fmt.Printf("  Sample Peak: %.1f dBFS\n", a.PeakDBFS())
	fmt.Printf("  RMS Level: %.1f dBFS\n", a.RMSDBFS())

	if a.samples == 0 {
		fmt.Printf("  ⚠️  No audio samples found!\n")
		return
	}

	// Check if file is mostly silent
	silencePercent := a.SilentFraction() * 100
	if silencePercent > 95 {
		fmt.Printf("  🔇 WARNING: File is %.1f%% silent - may be empty or very quiet recording\n", silencePercent)
	} else if silencePercent > 80 {
		fmt.Printf("  ⚠️  File has %.1f%% silence - possibly a quiet recording\n", silencePercent)
	} else {
		fmt.Printf("  ✓ File contains %.1f%% audio content\n", 100-silencePercent)
	}
}
