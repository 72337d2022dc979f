package audio

import (
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"lufs-timeline/internal/testutil"
)

func readAll(t *testing.T, src Source, blockFrames int) [][]float64 {
	t.Helper()

	format := src.Format()
	out := make([][]float64, format.Channels)
	block := NewBlock(format, blockFrames)

	for {
		n, err := src.ReadBlock(block)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("ReadBlock() error = %v", err)
		}
		for ch := range out {
			out[ch] = append(out[ch], block[ch][:n]...)
		}
	}

	return out
}

func TestWriteWAV_RoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		bitDepth int
		channels int
	}{
		{"16-bit mono", 16, 1},
		{"24-bit stereo", 24, 2},
		{"32-bit 5.1", 32, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "tone.wav")
			tone := Tone{
				Frequency: CalibrationFrequency,
				LevelDBFS: -6,
				Duration:  0.5,
				Format:    Format{SampleRate: 48000, Channels: tt.channels, BitDepth: tt.bitDepth},
			}

			clipped, err := WriteWAV(path, tone.Source())
			if err != nil {
				t.Fatalf("WriteWAV() error = %v", err)
			}
			if clipped != 0 {
				t.Errorf("clipped %d samples of a -6 dBFS tone", clipped)
			}

			src, err := OpenWAV(path)
			if err != nil {
				t.Fatalf("OpenWAV() error = %v", err)
			}
			defer src.Close()

			if src.Format() != tone.Format {
				t.Fatalf("Format() = %v, want %v", src.Format(), tone.Format)
			}
			if src.Frames() != 24000 {
				t.Errorf("Frames() = %d, want 24000", src.Frames())
			}
			testutil.RequireNear(t, "Duration", src.Duration(), 0.5, 1e-9)

			got := readAll(t, src, 1000)
			want := readAll(t, tone.Source(), 4096)

			quantum := 1 / fullScale(tt.bitDepth)
			for ch := range want {
				if len(got[ch]) != len(want[ch]) {
					t.Fatalf("channel %d: read %d frames, want %d", ch, len(got[ch]), len(want[ch]))
				}
				for i := range want[ch] {
					if math.Abs(got[ch][i]-want[ch][i]) > quantum {
						t.Fatalf("channel %d frame %d: got %v, want %v", ch, i, got[ch][i], want[ch][i])
					}
				}
			}
		})
	}
}

func TestWriteWAV_Clips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hot.wav")
	src := NewMemorySource(Format{SampleRate: 8000, BitDepth: 16}, [][]float64{{0, 1.5, -2, 0.5}})

	clipped, err := WriteWAV(path, src)
	if err != nil {
		t.Fatalf("WriteWAV() error = %v", err)
	}
	if clipped != 2 {
		t.Errorf("clipped = %d, want 2", clipped)
	}

	decoded, err := OpenWAV(path)
	if err != nil {
		t.Fatalf("OpenWAV() error = %v", err)
	}
	defer decoded.Close()

	got := readAll(t, decoded, 16)[0]
	want := []float64{0, 32767.0 / 32768, -1, 0.5}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestOpenWAV_Errors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		if _, err := OpenWAV(filepath.Join(dir, "nope.wav")); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("OpenWAV() error = %v, want not-exist", err)
		}
	})

	t.Run("not a wav file", func(t *testing.T) {
		path := filepath.Join(dir, "text.wav")
		if err := os.WriteFile(path, []byte("definitely not RIFF data"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := OpenWAV(path); err == nil {
			t.Error("OpenWAV() accepted a text file")
		}
	})

	t.Run("8-bit", func(t *testing.T) {
		path := filepath.Join(dir, "8bit.wav")
		writeRawWAV(t, path, 8000, 8, 1, []int{128, 140, 120, 128})

		_, err := OpenWAV(path)
		if !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("OpenWAV() error = %v, want ErrUnsupportedFormat", err)
		}
	})
}

func writeRawWAV(t *testing.T, path string, rate, bitDepth, channels int, data []int) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, rate, bitDepth, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		want   error
	}{
		{"cd stereo", Format{44100, 2, 16}, nil},
		{"broadcast 5.1", Format{48000, 6, 24}, nil},
		{"7.1 float-range ints", Format{96000, 8, 32}, nil},
		{"no rate", Format{0, 2, 16}, ErrUnsupportedFormat},
		{"no channels", Format{48000, 0, 16}, ErrUnsupportedFormat},
		{"nine channels", Format{48000, 9, 16}, ErrTooManyChannels},
		{"8-bit", Format{48000, 2, 8}, ErrUnsupportedFormat},
		{"20-bit", Format{48000, 2, 20}, ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFormat(tt.format)
			if tt.want == nil {
				if err != nil {
					t.Errorf("ValidateFormat() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("ValidateFormat() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestMemorySource(t *testing.T) {
	samples := testutil.Planar(testutil.DeterministicNoise(3, 0.5, 1000), 2, 0, 1)
	src := NewMemorySource(Format{SampleRate: 48000, BitDepth: 24}, samples)

	if got := src.Format().Channels; got != 2 {
		t.Fatalf("Channels = %d, want 2", got)
	}

	got := readAll(t, src, 300)
	for ch := range samples {
		if len(got[ch]) != 1000 {
			t.Fatalf("channel %d: %d frames, want 1000", ch, len(got[ch]))
		}
		for i := range samples[ch] {
			if got[ch][i] != samples[ch][i] {
				t.Fatalf("channel %d frame %d differs", ch, i)
			}
		}
	}

	if n, err := src.ReadBlock(NewBlock(src.Format(), 10)); n != 0 || err != io.EOF {
		t.Errorf("ReadBlock after end = %d, %v", n, err)
	}
}

func TestToneSource(t *testing.T) {
	tone := Tone{
		Frequency: 1000,
		LevelDBFS: -20,
		Duration:  1,
		Format:    Format{SampleRate: 48000, Channels: 2, BitDepth: 16},
	}

	got := readAll(t, tone.Source(), 777)
	if len(got[0]) != 48000 || len(got[1]) != 48000 {
		t.Fatalf("frames = %d/%d, want 48000", len(got[0]), len(got[1]))
	}

	want := testutil.DeterministicSine(1000, 48000, 0.1, 48000)
	for i := range want {
		if math.Abs(got[0][i]-want[i]) > 1e-9 || got[1][i] != got[0][i] {
			t.Fatalf("frame %d: got %v/%v, want %v", i, got[0][i], got[1][i], want[i])
		}
	}
}

func TestAnalysis(t *testing.T) {
	tone := Tone{
		Frequency: CalibrationFrequency,
		LevelDBFS: -12,
		Duration:  2,
		Format:    Format{SampleRate: 48000, Channels: 2, BitDepth: 16},
	}

	a := Analyze(tone.Source())
	readAll(t, a, 512)

	if a.Frames() != 96000 {
		t.Errorf("Frames() = %d, want 96000", a.Frames())
	}
	testutil.RequireNear(t, "Duration", a.Duration(), 2, 1e-12)
	testutil.RequireNear(t, "PeakDBFS", a.PeakDBFS(), -12, 0.01)
	testutil.RequireNear(t, "RMSDBFS", a.RMSDBFS(), -12-3.0103, 0.01)
	if a.SilentFraction() > 0.001 {
		t.Errorf("SilentFraction() = %v for a tone", a.SilentFraction())
	}

	silence := Analyze(NewMemorySource(Format{SampleRate: 48000}, [][]float64{make([]float64, 480)}))
	readAll(t, silence, 100)

	if !math.IsInf(silence.PeakDBFS(), -1) || !math.IsInf(silence.RMSDBFS(), -1) {
		t.Errorf("silence peak/rms = %v/%v, want -Inf", silence.PeakDBFS(), silence.RMSDBFS())
	}
	if silence.SilentFraction() != 1 {
		t.Errorf("SilentFraction() = %v, want 1", silence.SilentFraction())
	}
}
