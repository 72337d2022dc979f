package audio

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Format describes a PCM stream
type Format struct {
	SampleRate int // Sample rate in Hz
	Channels   int // Number of channels
	BitDepth   int // Bit depth of the stored samples
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz, %dch, %d-bit", f.SampleRate, f.Channels, f.BitDepth)
}

// Source yields audio as planar float blocks in [-1, 1).
type Source interface {
	Format() Format
	// ReadBlock fills dst[ch][:n] for every channel and returns n, the
	// number of frames read, at most len(dst[0]). It returns 0, io.EOF
	// once the stream is exhausted.
	ReadBlock(dst [][]float64) (int, error)
}

// NewBlock allocates a planar block for f with the given number of frames.
func NewBlock(f Format, frames int) [][]float64 {
	block := make([][]float64, f.Channels)
	for ch := range block {
		block[ch] = make([]float64, frames)
	}
	return block
}

// fullScale returns 2^(bitDepth-1), the magnitude of the most negative sample.
func fullScale(bitDepth int) float64 {
	switch bitDepth {
	case 24:
		return 8388608
	case 32:
		return 2147483648
	default:
		return 32768
	}
}

// WAVSource streams a PCM WAV file.
type WAVSource struct {
	Filename string

	file    *os.File
	decoder *wav.Decoder
	format  Format
	frames  int64
	scale   float64
	buf     *audio.IntBuffer
}

// OpenWAV opens filename for streaming. The caller must Close it.
func OpenWAV(filename string) (*WAVSource, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", filename, err)
	}

	src, err := newWAVSource(filename, file)
	if err != nil {
		file.Close()
		return nil, err
	}

	return src, nil
}

func newWAVSource(filename string, file *os.File) (*WAVSource, error) {
	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file: %s", filename)
	}

	// 1 is integer PCM, 0xFFFE the extensible header multichannel files use.
	if decoder.WavAudioFormat != 1 && decoder.WavAudioFormat != 0xFFFE {
		return nil, fmt.Errorf("%w: %s uses WAV format tag %d", ErrUnsupportedFormat, filename, decoder.WavAudioFormat)
	}

	format := Format{
		SampleRate: int(decoder.SampleRate),
		Channels:   int(decoder.NumChans),
		BitDepth:   int(decoder.BitDepth),
	}
	if err := ValidateFormat(format); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	if err := decoder.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("failed to find PCM data in %s: %w", filename, err)
	}

	bytesPerFrame := int64(format.Channels * format.BitDepth / 8)

	return &WAVSource{
		Filename: filename,
		file:     file,
		decoder:  decoder,
		format:   format,
		frames:   decoder.PCMLen() / bytesPerFrame,
		scale:    1 / fullScale(format.BitDepth),
		buf: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: format.Channels,
				SampleRate:  format.SampleRate,
			},
			SourceBitDepth: format.BitDepth,
		},
	}, nil
}

// Format returns the stream format.
func (s *WAVSource) Format() Format {
	return s.format
}

// Frames returns the number of frames the data chunk declares.
func (s *WAVSource) Frames() int64 {
	return s.frames
}

// Duration returns the declared length in seconds.
func (s *WAVSource) Duration() float64 {
	return float64(s.frames) / float64(s.format.SampleRate)
}

// ReadBlock decodes up to len(dst[0]) frames into dst.
func (s *WAVSource) ReadBlock(dst [][]float64) (int, error) {
	channels := s.format.Channels
	if len(dst) < channels {
		return 0, fmt.Errorf("block has %d channels, %s has %d", len(dst), s.Filename, channels)
	}

	want := len(dst[0]) * channels
	if cap(s.buf.Data) < want {
		s.buf.Data = make([]int, want)
	}
	s.buf.Data = s.buf.Data[:want]

	n, err := s.decoder.PCMBuffer(s.buf)
	if err != nil {
		return 0, fmt.Errorf("failed to decode PCM data from %s: %w", s.Filename, err)
	}

	frames := n / channels
	if frames == 0 {
		return 0, io.EOF
	}

	for i := range frames {
		frame := s.buf.Data[i*channels : (i+1)*channels]
		for ch, sample := range frame {
			dst[ch][i] = float64(sample) * s.scale
		}
	}

	return frames, nil
}

// Close closes the underlying file.
func (s *WAVSource) Close() error {
	return s.file.Close()
}

// MemorySource serves planar samples held in memory.
type MemorySource struct {
	format  Format
	samples [][]float64
	pos     int
}

// NewMemorySource wraps samples[ch][frame]. The channel count of f is
// taken from samples.
func NewMemorySource(f Format, samples [][]float64) *MemorySource {
	f.Channels = len(samples)
	return &MemorySource{format: f, samples: samples}
}

func (m *MemorySource) Format() Format {
	return m.format
}

func (m *MemorySource) ReadBlock(dst [][]float64) (int, error) {
	if len(m.samples) == 0 || m.pos >= len(m.samples[0]) {
		return 0, io.EOF
	}

	n := min(len(dst[0]), len(m.samples[0])-m.pos)
	for ch, in := range m.samples {
		copy(dst[ch][:n], in[m.pos:m.pos+n])
	}
	m.pos += n

	return n, nil
}

// WriteWAV drains src into a WAV file at src's bit depth (16-bit when
// unset). Samples outside [-1, 1) are clipped; the clipped count is
// returned.
func WriteWAV(filename string, src Source) (int, error) {
	format := src.Format()
	if format.BitDepth == 0 {
		format.BitDepth = 16
	}
	if err := ValidateFormat(format); err != nil {
		return 0, err
	}

	file, err := os.Create(filename)
	if err != nil {
		return 0, fmt.Errorf("failed to create file %s: %w", filename, err)
	}
	defer file.Close()

	// Create encoder with the audio format
	encoder := wav.NewEncoder(file, format.SampleRate, format.BitDepth, format.Channels, 1)

	const blockFrames = 4096
	block := NewBlock(format, blockFrames)
	intBuf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: format.Channels,
			SampleRate:  format.SampleRate,
		},
		Data:           make([]int, blockFrames*format.Channels),
		SourceBitDepth: format.BitDepth,
	}

	scale := fullScale(format.BitDepth)
	maxValue := scale - 1
	minValue := -scale

	clipped := 0
	for {
		n, err := src.ReadBlock(block)
		if err == io.EOF {
			break
		}
		if err != nil {
			return clipped, err
		}

		intBuf.Data = intBuf.Data[:n*format.Channels]
		for i := range n {
			for ch := range format.Channels {
				v := math.Round(block[ch][i] * scale)
				// Clamp to prevent overflow based on actual bit depth
				switch {
				case v > maxValue:
					v = maxValue
					clipped++
				case v < minValue:
					v = minValue
					clipped++
				}
				intBuf.Data[i*format.Channels+ch] = int(v)
			}
		}

		if err := encoder.Write(intBuf); err != nil {
			return clipped, fmt.Errorf("failed to write audio data to %s: %w", filename, err)
		}
	}

	if err := encoder.Close(); err != nil {
		return clipped, fmt.Errorf("failed to close encoder for %s: %w", filename, err)
	}

	return clipped, nil
}
