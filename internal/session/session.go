// Package session drives a loudness meter and a history store as one
// measurement: audio goes through the meter, and a periodic tick copies the
// meter readings into the store at the store's update rate.
package session

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/charmbracelet/log"

	"lufs-timeline/internal/audio"
	"lufs-timeline/internal/history"
	"lufs-timeline/internal/loudness"
)

// Pace controls how fast Replay feeds audio.
type Pace int

const (
	// PaceFast replays as fast as the meter can process.
	PaceFast Pace = iota
	// PaceRealtime holds every tick back to wall-clock time.
	PaceRealtime
)

func (p Pace) String() string {
	if p == PaceRealtime {
		return "realtime"
	}
	return "fast"
}

// Option configures a Session.
type Option func(*Session)

// WithBlockSize sets the number of frames Replay reads per block.
func WithBlockSize(frames int) Option {
	return func(s *Session) {
		if frames > 0 {
			s.blockSize = frames
		}
	}
}

// Session owns the producer side of a measurement.
type Session struct {
	meter     *loudness.Meter
	store     *history.Store
	logger    *log.Logger
	interval  time.Duration
	blockSize int
}

// New wires meter to store. A nil logger discards output.
func New(meter *loudness.Meter, store *history.Store, logger *log.Logger, opts ...Option) *Session {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	s := &Session{
		meter:     meter,
		store:     store,
		logger:    logger,
		interval:  time.Duration(float64(time.Second) / store.UpdateRate()),
		blockSize: 512,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Meter returns the session's meter.
func (s *Session) Meter() *loudness.Meter {
	return s.meter
}

// Store returns the session's history.
func (s *Session) Store() *history.Store {
	return s.store
}

// Tick records the current meter readings as the next history point.
func (s *Session) Tick() {
	s.store.AddPoint(s.meter.Momentary(), s.meter.ShortTerm())
}

// Run ticks at the store's update rate until ctx is done. It is the
// producer for a meter fed by some other goroutine.
func (s *Session) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Debug("producer started", "interval", s.interval)

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("producer stopped", "points", s.store.TotalPoints())
			return ctx.Err()
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Restart starts a new measurement: meter and history are cleared. It must
// not run concurrently with Tick, Run, Replay or store readers.
func (s *Session) Restart() {
	s.meter.Reset()
	s.store.Reset()
	s.logger.Info("session restarted")
}

// ReplayStats summarizes a replay. Points counts the history points it added.
type ReplayStats struct {
	Frames   int64
	Points   uint64
	Duration float64 // seconds of audio
	Elapsed  time.Duration
}

// Replay prepares the meter for src's format and streams src through it,
// ticking the store every sampleRate/updateRate frames of audio. Ticks land
// on exact frame boundaries, so the history does not depend on the block
// size. A trailing partial tick interval is not recorded. The store is not
// cleared; call Restart first to begin a new measurement.
func (s *Session) Replay(ctx context.Context, src audio.Source, pace Pace) (ReplayStats, error) {
	format := src.Format()
	if format.SampleRate <= 0 || format.Channels < 1 {
		return ReplayStats{}, fmt.Errorf("%w: %s", audio.ErrUnsupportedFormat, format)
	}

	s.meter.Prepare(float64(format.SampleRate), s.blockSize, format.Channels)
	startPoints := s.store.TotalPoints()

	framesPerTick := float64(format.SampleRate) / s.store.UpdateRate()
	block := audio.NewBlock(format, s.blockSize)
	views := make([][]float64, format.Channels)

	s.logger.Info("replay started",
		"format", format.String(),
		"pace", pace,
		"frames_per_tick", framesPerTick)

	var (
		frames   int64
		ticks    int64
		nextTick = tickBoundary(framesPerTick, 1)
		started  = time.Now()
	)

	for {
		select {
		case <-ctx.Done():
			return s.stats(frames, startPoints, format, started), ctx.Err()
		default:
		}

		n, err := src.ReadBlock(block)
		if err == io.EOF {
			break
		}
		if err != nil {
			return s.stats(frames, startPoints, format, started), fmt.Errorf("replay: %w", err)
		}

		for offset := 0; offset < n; {
			size := int(min(int64(n-offset), nextTick-frames))
			for ch := range views {
				views[ch] = block[ch][offset : offset+size]
			}
			s.meter.ProcessBlock(views)

			offset += size
			frames += int64(size)
			if frames < nextTick {
				continue
			}

			s.Tick()
			ticks++
			nextTick = tickBoundary(framesPerTick, ticks+1)

			if pace == PaceRealtime {
				if err := sleepUntil(ctx, started.Add(time.Duration(ticks)*s.interval)); err != nil {
					return s.stats(frames, startPoints, format, started), err
				}
			}
		}
	}

	stats := s.stats(frames, startPoints, format, started)
	s.logger.Info("replay finished",
		"frames", stats.Frames,
		"points", stats.Points,
		"audio", fmt.Sprintf("%.1fs", stats.Duration),
		"elapsed", stats.Elapsed.Round(time.Millisecond))

	return stats, nil
}

// tickBoundary returns the frame count at which tick k (1-based) fires.
func tickBoundary(framesPerTick float64, k int64) int64 {
	return max(int64(math.Round(framesPerTick*float64(k))), k)
}

func (s *Session) stats(frames int64, startPoints uint64, format audio.Format, started time.Time) ReplayStats {
	return ReplayStats{
		Frames:   frames,
		Points:   s.store.TotalPoints() - startPoints,
		Duration: float64(frames) / float64(format.SampleRate),
		Elapsed:  time.Since(started),
	}
}

func sleepUntil(ctx context.Context, deadline time.Time) error {
	wait := time.Until(deadline)
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
