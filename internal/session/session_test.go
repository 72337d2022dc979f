package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"lufs-timeline/internal/audio"
	"lufs-timeline/internal/history"
	"lufs-timeline/internal/loudness"
	"lufs-timeline/internal/testutil"
)

func newTestSession(t *testing.T, updateRate float64, opts ...Option) *Session {
	t.Helper()

	storeOpts := history.DefaultOptions()
	storeOpts.UpdateRate = updateRate

	store, err := history.New(storeOpts)
	if err != nil {
		t.Fatalf("history.New() error = %v", err)
	}

	return New(loudness.NewMeter(), store, nil, opts...)
}

func sineSource(seconds float64, amplitude float64, channels int) audio.Source {
	const fs = 48000
	sig := testutil.DeterministicSine(997, fs, amplitude, int(seconds*fs))

	active := make([]int, channels)
	for i := range active {
		active[i] = i
	}

	return audio.NewMemorySource(audio.Format{SampleRate: fs, BitDepth: 24}, testutil.Planar(sig, channels, active...))
}

func TestTick(t *testing.T) {
	s := newTestSession(t, 10)

	s.Tick()
	s.Tick()

	if got := s.Store().TotalPoints(); got != 2 {
		t.Fatalf("TotalPoints() = %d, want 2", got)
	}

	latest, _ := s.Store().Latest()
	if latest.Momentary != loudness.FloorLUFS || latest.ShortTerm != loudness.FloorLUFS {
		t.Errorf("latest = %+v, want floor readings", latest)
	}
	testutil.RequireNear(t, "CurrentTime", s.Store().CurrentTime(), 0.1, 1e-12)
}

func TestReplay_RecordsAtUpdateRate(t *testing.T) {
	s := newTestSession(t, 10)

	stats, err := s.Replay(context.Background(), sineSource(2, 0.1, 2), PaceFast)
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}

	if stats.Frames != 96000 {
		t.Errorf("Frames = %d, want 96000", stats.Frames)
	}
	if stats.Points != 20 {
		t.Fatalf("Points = %d, want 20", stats.Points)
	}
	testutil.RequireNear(t, "Duration", stats.Duration, 2, 1e-12)

	points := s.Store().PointsSince(-1)
	for i, p := range points {
		testutil.RequireFinite(t, p.Momentary, p.ShortTerm)
		// From the fourth tick on the momentary window is full.
		if i >= 4 {
			testutil.RequireNear(t, "momentary", p.Momentary, -20, 0.1)
		}
	}

	if got := s.Meter().BlocksProcessed(); got != 20 {
		t.Errorf("BlocksProcessed() = %d, want 20", got)
	}
}

func TestReplay_BlockSizeIndependent(t *testing.T) {
	sizes := []int{37, 512, 4800, 10000}

	var reference []history.Sample
	for _, size := range sizes {
		s := newTestSession(t, 10, WithBlockSize(size))
		if _, err := s.Replay(context.Background(), sineSource(1.5, 0.3, 1), PaceFast); err != nil {
			t.Fatalf("block %d: Replay() error = %v", size, err)
		}

		points := s.Store().PointsSince(-1)
		if reference == nil {
			reference = points
			continue
		}

		if len(points) != len(reference) {
			t.Fatalf("block %d: %d points, want %d", size, len(points), len(reference))
		}
		for i := range points {
			testutil.RequireNear(t, "momentary", points[i].Momentary, reference[i].Momentary, 1e-9)
			testutil.RequireNear(t, "short-term", points[i].ShortTerm, reference[i].ShortTerm, 1e-9)
		}
	}
}

func TestReplay_AppendsToHistory(t *testing.T) {
	s := newTestSession(t, 10)

	if _, err := s.Replay(context.Background(), sineSource(1, 0.5, 2), PaceFast); err != nil {
		t.Fatal(err)
	}
	stats, err := s.Replay(context.Background(), sineSource(0.5, 0.5, 1), PaceFast)
	if err != nil {
		t.Fatal(err)
	}

	if stats.Points != 5 {
		t.Errorf("second replay added %d points, want 5", stats.Points)
	}
	if got := s.Store().TotalPoints(); got != 15 {
		t.Errorf("TotalPoints() = %d after two replays, want 15", got)
	}
	if got := s.Meter().Channels(); got != 1 {
		t.Errorf("meter channels = %d, want 1", got)
	}
}

func TestReplay_Canceled(t *testing.T) {
	s := newTestSession(t, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Replay(ctx, sineSource(1, 0.1, 1), PaceFast)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Replay() error = %v, want context.Canceled", err)
	}
}

func TestReplay_InvalidFormat(t *testing.T) {
	s := newTestSession(t, 10)

	src := audio.NewMemorySource(audio.Format{SampleRate: 0}, [][]float64{{0, 0}})
	if _, err := s.Replay(context.Background(), src, PaceFast); !errors.Is(err, audio.ErrUnsupportedFormat) {
		t.Errorf("Replay() error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestReplay_Realtime(t *testing.T) {
	if testing.Short() {
		t.Skip("waits on the wall clock")
	}

	s := newTestSession(t, 20)

	stats, err := s.Replay(context.Background(), sineSource(0.25, 0.1, 1), PaceRealtime)
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	if stats.Points != 5 {
		t.Errorf("Points = %d, want 5", stats.Points)
	}
	if stats.Elapsed < 200*time.Millisecond {
		t.Errorf("realtime replay of 250 ms took %v", stats.Elapsed)
	}
}

func TestRun(t *testing.T) {
	s := newTestSession(t, 50)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := s.Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run() error = %v, want DeadlineExceeded", err)
	}
	if got := s.Store().TotalPoints(); got == 0 {
		t.Error("Run() recorded no points")
	}
}

func TestRestart(t *testing.T) {
	s := newTestSession(t, 10)
	if _, err := s.Replay(context.Background(), sineSource(1, 0.5, 2), PaceFast); err != nil {
		t.Fatal(err)
	}

	s.Restart()

	if s.Store().TotalPoints() != 0 {
		t.Errorf("TotalPoints() = %d after Restart", s.Store().TotalPoints())
	}
	if s.Meter().Momentary() != loudness.FloorLUFS || s.Meter().BlocksProcessed() != 0 {
		t.Errorf("meter not reset: momentary %v, blocks %d", s.Meter().Momentary(), s.Meter().BlocksProcessed())
	}
}
