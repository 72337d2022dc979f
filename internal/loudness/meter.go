package loudness

import (
	"io"
	"math"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/cwbudde/algo-vecmath"
)

const (
	// FloorLUFS is reported when the mean square is not positive. Quiet
	// but non-silent audio reads below it.
	FloorLUFS = -100.0

	lufsOffset = -0.691

	// Gating blocks are 100 ms; momentary spans 4 of them, short-term 30.
	blockDuration      = 0.1
	blocksPerMomentary = 4
	blocksPerShortTerm = 30

	lfeChannel     = 3
	surroundWeight = 1.41
)

// ChannelWeight returns the BS.1770 weight of channel ch in a layout of
// the given size: L, R, C = 1.0, LFE = 0.0, Ls, Rs = 1.41.
func ChannelWeight(ch, channels int) float64 {
	switch {
	case ch == lfeChannel && channels >= 4:
		return 0
	case (ch == 4 || ch == 5) && channels > ch:
		return surroundWeight
	default:
		return 1
	}
}

// Meter measures momentary and short-term loudness of a live multichannel
// stream. ProcessBlock runs on the audio thread; Momentary and ShortTerm may
// be read from any goroutine. Prepare and Reset must not run concurrently
// with ProcessBlock.
type Meter struct {
	bank       FilterBank
	sampleRate float64
	channels   int
	weights    [MaxChannels]float64

	samplesPerBlock int
	blockSum        float64
	blockCount      int

	history    [blocksPerShortTerm]float64
	historyIdx int

	// Scratch sized to the max block; chunks never exceed it.
	scratch []float64
	squares []float64
	energy  []float64
	planar  [MaxChannels][]float64

	momentary atomic.Uint64
	shortTerm atomic.Uint64
	blocks    atomic.Uint64

	logger *log.Logger
}

// NewMeter creates a meter prepared with the given options.
func NewMeter(opts ...MeterOption) *Meter {
	cfg := ApplyMeterOptions(opts...)

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	m := &Meter{logger: logger}
	m.Prepare(cfg.SampleRate, cfg.MaxBlockSize, cfg.Channels)

	return m
}

// Prepare configures the meter for a new stream format and resets it.
// An unusable sample rate leaves the meter inert: blocks are ignored and
// both readings stay at FloorLUFS.
func (m *Meter) Prepare(sampleRate float64, maxBlockSize, channels int) {
	m.sampleRate = sampleRate
	m.bank.Prepare(sampleRate, channels)
	m.channels = m.bank.Channels()

	if channels > MaxChannels {
		m.logger.Warn("channel count clamped", "requested", channels, "max", MaxChannels)
	}

	for ch := range m.weights {
		m.weights[ch] = ChannelWeight(ch, m.channels)
	}

	m.samplesPerBlock = 0
	if sampleRate > 0 && !math.IsInf(sampleRate, 0) {
		m.samplesPerBlock = int(sampleRate * blockDuration)
	}

	maxBlockSize = max(maxBlockSize, 1)
	m.scratch = make([]float64, maxBlockSize)
	m.squares = make([]float64, maxBlockSize)
	m.energy = make([]float64, maxBlockSize)
	for ch := range m.planar {
		m.planar[ch] = nil
		if ch < m.channels {
			m.planar[ch] = make([]float64, maxBlockSize)
		}
	}

	m.logger.Debug("meter prepared",
		"sample_rate", sampleRate,
		"channels", m.channels,
		"block_samples", m.samplesPerBlock,
		"max_block", maxBlockSize)

	m.Reset()
}

// Reset clears filter state, block history and the published readings.
func (m *Meter) Reset() {
	m.bank.Reset()
	m.history = [blocksPerShortTerm]float64{}
	m.historyIdx = 0
	m.blockSum = 0
	m.blockCount = 0

	m.momentary.Store(math.Float64bits(FloorLUFS))
	m.shortTerm.Store(math.Float64bits(FloorLUFS))
	m.blocks.Store(0)
}

// SampleRate returns the prepared sample rate.
func (m *Meter) SampleRate() float64 {
	return m.sampleRate
}

// Channels returns the number of channels being measured.
func (m *Meter) Channels() int {
	return m.channels
}

// Momentary returns the loudness of the last 400 ms in LUFS.
func (m *Meter) Momentary() float64 {
	return math.Float64frombits(m.momentary.Load())
}

// ShortTerm returns the loudness of the last 3 s in LUFS.
func (m *Meter) ShortTerm() float64 {
	return math.Float64frombits(m.shortTerm.Load())
}

// BlocksProcessed returns the number of completed 100 ms blocks since Reset.
func (m *Meter) BlocksProcessed() uint64 {
	return m.blocks.Load()
}

// ProcessBlock measures one planar block: channels[ch][frame]. Channels
// beyond the prepared count are ignored, and so are frames beyond the
// shortest channel. The input is not modified.
func (m *Meter) ProcessBlock(channels [][]float64) {
	used := min(len(channels), m.channels)
	if used == 0 || m.samplesPerBlock <= 0 {
		return
	}

	frames := len(channels[0])
	for ch := 1; ch < used; ch++ {
		frames = min(frames, len(channels[ch]))
	}

	chunk := len(m.scratch)
	for start := 0; start < frames; start += chunk {
		end := min(start+chunk, frames)
		m.accumulate(channels[:used], start, end)
	}
}

// ProcessInterleaved measures frames of interleaved samples laid out with
// the prepared channel count. A trailing partial frame is ignored.
func (m *Meter) ProcessInterleaved(samples []float64) {
	if m.channels == 0 || m.samplesPerBlock <= 0 {
		return
	}

	frames := len(samples) / m.channels
	chunk := len(m.scratch)
	views := m.planar[:m.channels]

	for start := 0; start < frames; start += chunk {
		size := min(chunk, frames-start)
		for i := range size {
			frame := samples[(start+i)*m.channels:]
			for ch := range m.channels {
				m.planar[ch][i] = frame[ch]
			}
		}
		m.accumulate(views, 0, size)
	}
}

// accumulate adds the weighted K-filtered energy of frames [start, end) to
// the running 100 ms block, publishing new readings on every completed
// block. end-start never exceeds the scratch length.
func (m *Meter) accumulate(channels [][]float64, start, end int) {
	size := end - start
	energy := m.energy[:size]
	scratch := m.scratch[:size]
	squares := m.squares[:size]

	clear(energy)

	for ch, in := range channels {
		w := m.weights[ch]
		if w == 0 {
			continue
		}

		copy(scratch, in[start:end])
		m.bank.ProcessBlock(ch, scratch)
		vecmath.MulBlock(squares, scratch, scratch)

		if w == 1 {
			vecmath.AddBlockInPlace(energy, squares)
			continue
		}

		vecmath.ScaleBlock(scratch, squares, w)
		vecmath.AddBlockInPlace(energy, scratch)
	}

	for _, e := range energy {
		m.blockSum += e
		m.blockCount++

		if m.blockCount >= m.samplesPerBlock {
			m.completeBlock()
		}
	}
}

func (m *Meter) completeBlock() {
	meanSquare := m.blockSum / float64(m.blockCount)
	if math.IsNaN(meanSquare) || math.IsInf(meanSquare, 0) {
		// A non-finite input poisons the filter registers; start clean.
		meanSquare = 0
		m.bank.Reset()
	}

	m.history[m.historyIdx] = meanSquare
	m.historyIdx = (m.historyIdx + 1) % blocksPerShortTerm
	m.blockSum = 0
	m.blockCount = 0

	var momentarySum float64
	for i := 1; i <= blocksPerMomentary; i++ {
		momentarySum += m.history[(m.historyIdx-i+blocksPerShortTerm)%blocksPerShortTerm]
	}

	var shortTermSum float64
	for _, ms := range m.history {
		shortTermSum += ms
	}

	m.momentary.Store(math.Float64bits(toLUFS(momentarySum / blocksPerMomentary)))
	m.shortTerm.Store(math.Float64bits(toLUFS(shortTermSum / blocksPerShortTerm)))
	m.blocks.Add(1)
}

func toLUFS(meanSquare float64) float64 {
	if !(meanSquare > 0) || math.IsInf(meanSquare, 0) {
		return FloorLUFS
	}

	return lufsOffset + 10*math.Log10(meanSquare)
}
