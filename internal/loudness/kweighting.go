// Package loudness implements the ITU-R BS.1770 K-weighting filter bank and
// the gated momentary / short-term loudness accumulator.
package loudness

import "math"

// MaxChannels is the number of channels the filter bank can hold state for.
const MaxChannels = 8

// K-weighting analog prototype parameters from ITU-R BS.1770-4.
const (
	shelfFreq  = 1681.974450955533
	shelfGain  = 3.999843853973347 // dB
	shelfQ     = 0.7071752369554196
	shelfVbExp = 0.4996667741545416

	rlbFreq = 38.13547087602444
	rlbQ    = 0.5003270373238773
)

// Coefficients holds one second-order section normalized so that a0 == 1.
//
// Processing follows the transposed direct form:
//
//	y  = B0*x + z1
//	z1 = B1*x - A1*y + z2
//	z2 = B2*x - A2*y
type Coefficients struct {
	B0, B1, B2 float64 // feedforward
	A1, A2     float64 // feedback
}

// identity is the pass-through section used when a sample rate is unusable.
var identity = Coefficients{B0: 1}

type biquadState struct {
	z1, z2 float64
}

func (s *biquadState) process(c *Coefficients, x float64) float64 {
	y := c.B0*x + s.z1
	s.z1 = c.B1*x - c.A1*y + s.z2
	s.z2 = c.B2*x - c.A2*y
	return y
}

// ShelfCoefficients returns the BS.1770 pre-filter: a high shelf of roughly
// +4 dB above 1.5 kHz modelling the acoustic effect of the head.
func ShelfCoefficients(sampleRate float64) Coefficients {
	if !usableRate(sampleRate, shelfFreq) {
		return identity
	}

	k := math.Tan(math.Pi * shelfFreq / sampleRate)
	k2 := k * k
	vh := math.Pow(10, shelfGain/20)
	vb := math.Pow(vh, shelfVbExp)
	a0 := 1 + k/shelfQ + k2

	return Coefficients{
		B0: (vh + vb*k/shelfQ + k2) / a0,
		B1: 2 * (k2 - vh) / a0,
		B2: (vh - vb*k/shelfQ + k2) / a0,
		A1: 2 * (k2 - 1) / a0,
		A2: (1 - k/shelfQ + k2) / a0,
	}
}

// HighpassCoefficients returns the BS.1770 RLB weighting: a second-order
// high-pass near 38 Hz. The numerator is left unnormalized (1, -2, 1) as in
// the tabulated BS.1770 coefficients.
func HighpassCoefficients(sampleRate float64) Coefficients {
	if !usableRate(sampleRate, rlbFreq) {
		return identity
	}

	k := math.Tan(math.Pi * rlbFreq / sampleRate)
	k2 := k * k
	a0 := 1 + k/rlbQ + k2

	return Coefficients{
		B0: 1,
		B1: -2,
		B2: 1,
		A1: 2 * (k2 - 1) / a0,
		A2: (1 - k/rlbQ + k2) / a0,
	}
}

// usableRate reports whether the bilinear transform of a prototype at f0 is
// defined for sampleRate.
func usableRate(sampleRate, f0 float64) bool {
	if math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return false
	}
	return sampleRate > 2*f0
}

// FilterBank applies the two-stage K-weighting cascade to up to MaxChannels
// independent channels. State lives in fixed arrays indexed by channel so
// the processing path never allocates.
type FilterBank struct {
	shelf    Coefficients
	highpass Coefficients
	channels int

	shelfState    [MaxChannels]biquadState
	highpassState [MaxChannels]biquadState
}

// Prepare computes coefficients for sampleRate and resets all channel state.
// Channel counts above MaxChannels are clamped.
func (fb *FilterBank) Prepare(sampleRate float64, channels int) {
	fb.shelf = ShelfCoefficients(sampleRate)
	fb.highpass = HighpassCoefficients(sampleRate)
	fb.channels = min(max(channels, 0), MaxChannels)
	fb.Reset()
}

// Channels returns the number of prepared channels.
func (fb *FilterBank) Channels() int {
	return fb.channels
}

// Reset clears the delay registers of every channel.
func (fb *FilterBank) Reset() {
	fb.shelfState = [MaxChannels]biquadState{}
	fb.highpassState = [MaxChannels]biquadState{}
}

// ProcessSample K-weights one sample of channel ch. Channels outside the
// prepared range pass through unchanged.
func (fb *FilterBank) ProcessSample(ch int, x float64) float64 {
	if ch < 0 || ch >= fb.channels {
		return x
	}
	y := fb.shelfState[ch].process(&fb.shelf, x)
	return fb.highpassState[ch].process(&fb.highpass, y)
}

// ProcessBlock K-weights buf in place for channel ch.
func (fb *FilterBank) ProcessBlock(ch int, buf []float64) {
	if ch < 0 || ch >= fb.channels {
		return
	}

	s, h := fb.shelf, fb.highpass
	ss, hs := fb.shelfState[ch], fb.highpassState[ch]

	for i, x := range buf {
		y := s.B0*x + ss.z1
		ss.z1 = s.B1*x - s.A1*y + ss.z2
		ss.z2 = s.B2*x - s.A2*y

		out := h.B0*y + hs.z1
		hs.z1 = h.B1*y - h.A1*out + hs.z2
		hs.z2 = h.B2*y - h.A2*out

		buf[i] = out
	}

	fb.shelfState[ch], fb.highpassState[ch] = ss, hs
}
