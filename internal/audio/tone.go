package audio

import (
	"io"
	"math"
)

// CalibrationFrequency is the EBU reference tone frequency. It is not a
// divisor of common sample rates, so every sample phase gets exercised.
const CalibrationFrequency = 997.0

// Tone describes a steady sine in every channel.
type Tone struct {
	Frequency float64 // Hz
	LevelDBFS float64 // peak level
	Duration  float64 // seconds
	Format    Format
}

// ToneSource generates a Tone block by block.
type ToneSource struct {
	tone      Tone
	amplitude float64
	step      float64
	pos       int64
	total     int64
}

// Source returns a generator for t.
func (t Tone) Source() *ToneSource {
	rate := float64(t.Format.SampleRate)
	return &ToneSource{
		tone:      t,
		amplitude: math.Pow(10, t.LevelDBFS/20),
		step:      2 * math.Pi * t.Frequency / rate,
		total:     int64(math.Round(t.Duration * rate)),
	}
}

func (s *ToneSource) Format() Format {
	return s.tone.Format
}

func (s *ToneSource) ReadBlock(dst [][]float64) (int, error) {
	if s.pos >= s.total {
		return 0, io.EOF
	}

	n := int(min(int64(len(dst[0])), s.total-s.pos))
	first := dst[0][:n]
	for i := range first {
		first[i] = s.amplitude * math.Sin(s.step*float64(s.pos+int64(i)))
	}
	for ch := 1; ch < s.tone.Format.Channels; ch++ {
		copy(dst[ch][:n], first)
	}
	s.pos += int64(n)

	return n, nil
}
