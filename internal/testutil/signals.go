// Package testutil holds deterministic signal generators and numeric
// assertions shared by the package tests.
package testutil

import (
	"math"
	"math/rand"
)

// DeterministicSine generates a sine wave starting at phase zero.
func DeterministicSine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out
}

// DeterministicNoise generates white noise with a fixed seed.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// Planar builds a planar multichannel buffer. Channels listed in active
// carry sig, all others are silent.
func Planar(sig []float64, channels int, active ...int) [][]float64 {
	out := make([][]float64, channels)
	for ch := range out {
		out[ch] = make([]float64, len(sig))
	}
	for _, ch := range active {
		if ch >= 0 && ch < channels {
			copy(out[ch], sig)
		}
	}
	return out
}

// Chunks splits a planar buffer into consecutive blocks of at most size
// frames, mimicking a host delivering audio callbacks.
func Chunks(buf [][]float64, size int) [][][]float64 {
	if len(buf) == 0 || size <= 0 {
		return nil
	}
	frames := len(buf[0])
	var out [][][]float64
	for start := 0; start < frames; start += size {
		end := min(start+size, frames)
		block := make([][]float64, len(buf))
		for ch := range buf {
			block[ch] = buf[ch][start:end]
		}
		out = append(out, block)
	}
	return out
}
