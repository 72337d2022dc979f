package cmd

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"lufs-timeline/internal/audio"
	"lufs-timeline/internal/config"
	"lufs-timeline/internal/loudness"
	"lufs-timeline/internal/silence"
	"lufs-timeline/internal/testutil"
)

func TestExpectedLoudness(t *testing.T) {
	tests := []struct {
		name     string
		level    float64
		channels int
		want     float64
	}{
		{"full-scale mono", 0, 1, -3.0103},
		{"EBU stereo", -18, 2, -18},
		{"5.1 ignores LFE", -20, 6, -20 + 10*math.Log10(0.5*(3+2*1.41))},
		{"quieter than the silence floor", -115, 1, -118.0103},
		{"no channels", 0, 0, loudness.FloorLUFS},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.RequireNear(t, "loudness", expectedLoudness(tt.level, tt.channels), tt.want, 1e-3)
		})
	}
}

func TestApplyAnalyzeFlags(t *testing.T) {
	saved := cfg
	t.Cleanup(func() { cfg = saved })

	cfg = config.DefaultConfig()
	cfg.TargetPoints = 42
	cfg.QuietThreshold = -45

	applyAnalyzeFlags(analyzeCmd)
	if cfg.TargetPoints != 42 || cfg.QuietThreshold != -45 {
		t.Fatalf("unset flags overrode the file: points %d, threshold %v", cfg.TargetPoints, cfg.QuietThreshold)
	}

	if err := analyzeCmd.Flags().Set("points", "7"); err != nil {
		t.Fatal(err)
	}
	applyAnalyzeFlags(analyzeCmd)
	if cfg.TargetPoints != 7 {
		t.Errorf("TargetPoints = %d after --points 7", cfg.TargetPoints)
	}
	if cfg.QuietThreshold != -45 {
		t.Errorf("QuietThreshold = %v, want the file value", cfg.QuietThreshold)
	}
}

func TestCheckInputFiles(t *testing.T) {
	dir := t.TempDir()
	wav := filepath.Join(dir, "take.WAV")
	txt := filepath.Join(dir, "notes.txt")
	for _, f := range []string{wav, txt} {
		if err := os.WriteFile(f, nil, 0644); err != nil {
			t.Fatal(err)
		}
	}

	if err := checkInputFiles([]string{wav}); err != nil {
		t.Errorf("checkInputFiles(wav) error = %v", err)
	}
	if err := checkInputFiles([]string{wav, txt}); err == nil {
		t.Error("checkInputFiles accepted a text file")
	}
	if err := checkInputFiles([]string{filepath.Join(dir, "missing.wav")}); err == nil {
		t.Error("checkInputFiles accepted a missing file")
	}
}

func TestAnalyzeFile(t *testing.T) {
	const fs = 48000

	// Three seconds of tone at -18 dBFS, then eight seconds of silence.
	sig := testutil.DeterministicSine(audio.CalibrationFrequency, fs, math.Pow(10, -18.0/20), 11*fs)
	clear(sig[3*fs:])

	file := filepath.Join(t.TempDir(), "tone.wav")
	src := audio.NewMemorySource(audio.Format{SampleRate: fs, BitDepth: 24}, testutil.Planar(sig, 2, 0, 1))
	if _, err := audio.WriteWAV(file, src); err != nil {
		t.Fatalf("WriteWAV() error = %v", err)
	}

	result, analysis, err := analyzeFile(context.Background(), file, 11, silence.DefaultConfig())
	if err != nil {
		t.Fatalf("analyzeFile() error = %v", err)
	}

	testutil.RequireNear(t, "duration", analysis.Duration(), 11, 1e-9)
	testutil.RequireNear(t, "peak", analysis.PeakDBFS(), -18, 0.01)

	if result.Momentary != loudness.FloorLUFS {
		t.Errorf("final momentary = %v, want floor after silence", result.Momentary)
	}
	if result.Stats.TotalPoints != 110 {
		t.Errorf("TotalPoints = %d, want 110", result.Stats.TotalPoints)
	}

	// 11 rows over 11 s select the 0.4 s level.
	if result.History.Level != 1 || len(result.History.Buckets) != 28 {
		t.Fatalf("history = level %d with %d buckets, want level 1 with 28",
			result.History.Level, len(result.History.Buckets))
	}
	first := result.History.Buckets[1]
	testutil.RequireNear(t, "tone momentary", first.MaxMomentary, expectedLoudness(-18, 2), 0.1)

	if len(result.Quiet) != 1 {
		t.Fatalf("quiet spans = %+v, want one", result.Quiet)
	}
	span := result.Quiet[0]
	if span.StartTime < 5.5 || span.StartTime > 6.5 {
		t.Errorf("quiet span starts at %.2fs, want about 6s", span.StartTime)
	}
	testutil.RequireNear(t, "quiet end", span.EndTime, 11, 0.11)
}
