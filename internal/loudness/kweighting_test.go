package loudness

import (
	"math"
	"testing"

	"lufs-timeline/internal/testutil"
)

func TestCoefficients_48kTable(t *testing.T) {
	// Reference values tabulated in ITU-R BS.1770-4 for 48 kHz.
	shelf := ShelfCoefficients(48000)
	hp := HighpassCoefficients(48000)

	tests := []struct {
		name      string
		got, want float64
	}{
		{"shelf b0", shelf.B0, 1.53512485958697},
		{"shelf b1", shelf.B1, -2.69169618940638},
		{"shelf b2", shelf.B2, 1.19839281085285},
		{"shelf a1", shelf.A1, -1.69065929318241},
		{"shelf a2", shelf.A2, 0.73248077421585},
		{"rlb b0", hp.B0, 1},
		{"rlb b1", hp.B1, -2},
		{"rlb b2", hp.B2, 1},
		{"rlb a1", hp.A1, -1.99004745483398},
		{"rlb a2", hp.A2, 0.99007225036621},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.RequireNear(t, tt.name, tt.got, tt.want, 1e-9)
		})
	}
}

func TestCoefficients_UnusableRate(t *testing.T) {
	for _, fs := range []float64{0, -44100, math.NaN(), math.Inf(1), 1000} {
		if c := ShelfCoefficients(fs); c != identity {
			t.Errorf("ShelfCoefficients(%v) = %+v, want identity", fs, c)
		}
	}
	for _, fs := range []float64{0, -1, math.NaN(), 50} {
		if c := HighpassCoefficients(fs); c != identity {
			t.Errorf("HighpassCoefficients(%v) = %+v, want identity", fs, c)
		}
	}
}

func TestFilterBank_ZeroRatePassesThrough(t *testing.T) {
	var fb FilterBank
	fb.Prepare(0, 2)

	for i, x := range []float64{0.5, -0.25, 1, 0} {
		if y := fb.ProcessSample(i%2, x); y != x {
			t.Fatalf("sample %d: got %v, want %v", i, y, x)
		}
	}
}

func TestFilterBank_BlocksDC(t *testing.T) {
	var fb FilterBank
	fb.Prepare(48000, 1)

	var y float64
	for range 48000 {
		y = fb.ProcessSample(0, 1)
	}

	if math.Abs(y) > 1e-6 {
		t.Fatalf("DC not removed after 1 s: %v", y)
	}
}

func TestFilterBank_HighFrequencyBoost(t *testing.T) {
	const fs = 48000.0

	var fb FilterBank
	fb.Prepare(fs, 1)

	sig := testutil.DeterministicSine(10000, fs, 1, int(fs))
	fb.ProcessBlock(0, sig)

	// Skip the first half to let the filters settle.
	var sum float64
	tail := sig[len(sig)/2:]
	for _, v := range tail {
		sum += v * v
	}

	gainDB := 10 * math.Log10(sum/float64(len(tail))/0.5)
	if gainDB < 3.8 || gainDB > 4.3 {
		t.Fatalf("10 kHz gain = %.3f dB, want about +4 dB", gainDB)
	}
}

func TestFilterBank_SampleAndBlockAgree(t *testing.T) {
	const fs = 44100.0

	var a, b FilterBank
	a.Prepare(fs, 2)
	b.Prepare(fs, 2)

	sig := testutil.DeterministicNoise(7, 0.8, 2048)
	block := append([]float64(nil), sig...)
	b.ProcessBlock(1, block)

	for i, x := range sig {
		y := a.ProcessSample(1, x)
		if y != block[i] {
			t.Fatalf("index %d: sample path %v, block path %v", i, y, block[i])
		}
	}
}

func TestFilterBank_ClampsChannels(t *testing.T) {
	var fb FilterBank
	fb.Prepare(48000, MaxChannels+4)

	if fb.Channels() != MaxChannels {
		t.Fatalf("Channels() = %d, want %d", fb.Channels(), MaxChannels)
	}
	if y := fb.ProcessSample(MaxChannels, 0.5); y != 0.5 {
		t.Fatalf("out-of-range channel should pass through, got %v", y)
	}
}
