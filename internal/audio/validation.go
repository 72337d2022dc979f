package audio

import (
	"errors"
	"fmt"

	"lufs-timeline/internal/loudness"
)

var (
	// ErrUnsupportedFormat is returned for streams the meter cannot read.
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	// ErrTooManyChannels is returned for layouts wider than the meter.
	ErrTooManyChannels = errors.New("too many channels")
)

// ValidateFormat checks that f can be decoded and metered
func ValidateFormat(f Format) error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d Hz", ErrUnsupportedFormat, f.SampleRate)
	}

	if f.Channels < 1 {
		return fmt.Errorf("%w: %d channels", ErrUnsupportedFormat, f.Channels)
	}

	if f.Channels > loudness.MaxChannels {
		return fmt.Errorf("%w: %d channels, at most %d supported", ErrTooManyChannels, f.Channels, loudness.MaxChannels)
	}

	switch f.BitDepth {
	case 16, 24, 32:
	default:
		return fmt.Errorf("%w: %d-bit samples", ErrUnsupportedFormat, f.BitDepth)
	}

	return nil
}

// PrintInfo displays information about an audio file
func (s *WAVSource) PrintInfo() {
	fmt.Printf("Audio File: %s\n", s.Filename)
	fmt.Printf("  Duration: %.2f seconds\n", s.Duration())
	fmt.Printf("  Sample Rate: %d Hz\n", s.format.SampleRate)
	fmt.Printf("  Channels: %d\n", s.format.Channels)
	fmt.Printf("  Bit Depth: %d bits\n", s.format.BitDepth)
	fmt.Printf("  Frames: %d\n", s.frames)
}
