package history

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"lufs-timeline/internal/loudness"
)

// ErrInvalidOptions is returned by New for an unusable configuration.
var ErrInvalidOptions = errors.New("history: invalid options")

// maxBucketsPerPoint bounds how many finest-level buckets a single sample
// interval may span, which bounds the gap filling AddPoint does.
const maxBucketsPerPoint = 1024

// Options configures a Store.
type Options struct {
	// UpdateRate is the number of AddPoint calls per second of timeline.
	UpdateRate float64
	// RingCapacity is the number of raw samples kept for recent queries.
	RingCapacity int
	// Levels is the number of levels of detail.
	Levels int
	// LevelFactor is the duration ratio between consecutive levels.
	LevelFactor int
	// BaseDuration is the bucket duration of the finest level. Zero means
	// one update interval.
	BaseDuration float64
	// LevelCapacity bounds the finalized buckets kept per level. Zero keeps
	// every bucket for the life of the session.
	LevelCapacity int
	// Hysteresis is the relative margin a query's previous level is kept
	// within before a neighbouring level is chosen.
	Hysteresis float64
	Logger     *log.Logger
}

// DefaultOptions returns the configuration used by the meter session: 10
// updates per second, 8 levels growing by 4x from 100 ms, and 16384
// buckets per level.
func DefaultOptions() Options {
	return Options{
		UpdateRate:    10,
		RingCapacity:  4096,
		Levels:        8,
		LevelFactor:   4,
		LevelCapacity: 16384,
		Hysteresis:    0.5,
	}
}

func (o Options) validate() error {
	if !(o.UpdateRate > 0) || math.IsInf(o.UpdateRate, 0) {
		return fmt.Errorf("%w: update rate %v", ErrInvalidOptions, o.UpdateRate)
	}
	if o.RingCapacity < 1 {
		return fmt.Errorf("%w: ring capacity %d", ErrInvalidOptions, o.RingCapacity)
	}
	if o.Levels < 1 {
		return fmt.Errorf("%w: %d levels", ErrInvalidOptions, o.Levels)
	}
	if o.LevelFactor < 2 {
		return fmt.Errorf("%w: level factor %d", ErrInvalidOptions, o.LevelFactor)
	}
	if o.BaseDuration < 0 || math.IsNaN(o.BaseDuration) || math.IsInf(o.BaseDuration, 0) {
		return fmt.Errorf("%w: base duration %v", ErrInvalidOptions, o.BaseDuration)
	}
	if o.BaseDuration > 0 && 1/(o.UpdateRate*o.BaseDuration) > maxBucketsPerPoint {
		return fmt.Errorf("%w: base duration %v too fine for %v updates/s",
			ErrInvalidOptions, o.BaseDuration, o.UpdateRate)
	}
	if o.LevelCapacity < 0 {
		return fmt.Errorf("%w: level capacity %d", ErrInvalidOptions, o.LevelCapacity)
	}
	if o.Hysteresis < 0 || math.IsNaN(o.Hysteresis) {
		return fmt.Errorf("%w: hysteresis %v", ErrInvalidOptions, o.Hysteresis)
	}
	return nil
}

// Store is the loudness timeline of one metering session.
type Store struct {
	opts      Options
	logger    *log.Logger
	durations []float64

	ring *ring

	// mu guards levels. AddPoint takes mu before the ring lock; nothing
	// takes them in the other order.
	mu     sync.RWMutex
	levels []*level

	total   atomic.Uint64
	current atomic.Uint64
}

// New creates an empty store.
func New(opts Options) (*Store, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	if opts.BaseDuration == 0 {
		opts.BaseDuration = 1 / opts.UpdateRate
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	s := &Store{
		opts:      opts,
		logger:    logger,
		durations: make([]float64, opts.Levels),
		ring:      newRing(opts.RingCapacity),
		levels:    make([]*level, opts.Levels),
	}

	d := opts.BaseDuration
	span := updatesPerBucket(opts.BaseDuration, opts.UpdateRate)
	for i := range s.levels {
		if span > 0 {
			d = float64(span) / opts.UpdateRate
		}
		s.durations[i] = d
		s.levels[i] = newLevel(d, span, opts.UpdateRate, opts.LevelCapacity)

		d *= float64(opts.LevelFactor)
		if span > math.MaxInt32/int64(opts.LevelFactor) {
			span = 0
		} else {
			span *= int64(opts.LevelFactor)
		}
	}

	logger.Debug("history store created",
		"update_rate", opts.UpdateRate,
		"ring", opts.RingCapacity,
		"levels", s.durations,
		"level_capacity", opts.LevelCapacity)

	return s, nil
}

// updatesPerBucket returns how many update intervals fill a bucket of
// duration d, or 0 when that is not a whole number.
func updatesPerBucket(d, rate float64) int64 {
	ratio := d * rate
	n := math.Round(ratio)
	if n < 1 || n > math.MaxInt32 || math.Abs(ratio-n) > 1e-9*n {
		return 0
	}
	return int64(n)
}

// AddPoint appends one reading, timestamped at TotalPoints/UpdateRate.
// Non-finite readings are stored as loudness.FloorLUFS.
func (s *Store) AddPoint(momentary, shortTerm float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.total.Load()
	sample := Sample{
		Momentary: sanitize(momentary),
		ShortTerm: sanitize(shortTerm),
		Timestamp: float64(n) / s.opts.UpdateRate,
	}

	s.ring.push(sample)

	for i, l := range s.levels {
		evicted := l.evicted
		l.add(sample)
		if l.evicted && !evicted {
			s.logger.Debug("level reached capacity, dropping oldest buckets",
				"level", i, "duration", l.duration, "capacity", l.capacity)
		}
	}

	s.current.Store(math.Float64bits(sample.Timestamp))
	s.total.Store(n + 1)
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return loudness.FloorLUFS
	}
	return v
}

// Reset discards every sample and bucket. It must not run concurrently
// with any other method.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ring.reset()
	for _, l := range s.levels {
		l.reset()
	}
	s.total.Store(0)
	s.current.Store(0)

	s.logger.Debug("history store reset")
}

// CurrentTime returns the timestamp of the newest sample, or 0 when empty.
func (s *Store) CurrentTime() float64 {
	return math.Float64frombits(s.current.Load())
}

// TotalPoints returns the number of samples added since the last Reset.
func (s *Store) TotalPoints() uint64 {
	return s.total.Load()
}

// UpdateRate returns the number of samples per second of timeline.
func (s *Store) UpdateRate() float64 {
	return s.opts.UpdateRate
}

// LevelDurations returns the bucket duration of every level, finest first.
func (s *Store) LevelDurations() []float64 {
	return append([]float64(nil), s.durations...)
}

// Latest returns the newest sample.
func (s *Store) Latest() (Sample, bool) {
	return s.ring.latest()
}

// PointsInRange returns the retained raw samples with timestamps in
// [start, end), oldest first.
func (s *Store) PointsInRange(start, end float64) []Sample {
	points, _ := s.ring.slice(start, end, false)
	return points
}

// PointsSince returns the retained raw samples newer than t.
func (s *Store) PointsSince(t float64) []Sample {
	return s.ring.since(t)
}

// LevelStats describes one level of detail.
type LevelStats struct {
	Level    int     `json:"level"`
	Duration float64 `json:"duration"`
	Buckets  int     `json:"buckets"`
	Oldest   float64 `json:"oldest"`
	Evicted  bool    `json:"evicted"`
}

// Stats is a snapshot of the store's occupancy.
type Stats struct {
	TotalPoints    uint64       `json:"total_points"`
	RetainedPoints int          `json:"retained_points"`
	CurrentTime    float64      `json:"current_time"`
	Levels         []LevelStats `json:"levels"`
}

// Stats returns a snapshot of the store's occupancy.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		TotalPoints:    s.total.Load(),
		RetainedPoints: s.ring.size(),
		CurrentTime:    s.CurrentTime(),
		Levels:         make([]LevelStats, len(s.levels)),
	}

	for i, l := range s.levels {
		oldest, _ := l.oldestStart()
		buckets := l.len()
		if l.open {
			buckets++
		}
		st.Levels[i] = LevelStats{
			Level:    i,
			Duration: l.duration,
			Buckets:  buckets,
			Oldest:   oldest,
			Evicted:  l.evicted,
		}
	}

	return st
}
