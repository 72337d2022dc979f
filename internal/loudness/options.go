package loudness

import "github.com/charmbracelet/log"

// MeterConfig defines configuration for the loudness meter.
type MeterConfig struct {
	SampleRate   float64
	Channels     int
	MaxBlockSize int
	Logger       *log.Logger
}

// MeterOption mutates a MeterConfig.
type MeterOption func(*MeterConfig)

// DefaultMeterConfig returns sensible defaults.
func DefaultMeterConfig() MeterConfig {
	return MeterConfig{
		SampleRate:   48000,
		Channels:     2,
		MaxBlockSize: 1024,
	}
}

// WithSampleRate sets the processing sample rate.
func WithSampleRate(sampleRate float64) MeterOption {
	return func(cfg *MeterConfig) {
		cfg.SampleRate = sampleRate
	}
}

// WithChannels sets the number of input channels.
func WithChannels(channels int) MeterOption {
	return func(cfg *MeterConfig) {
		if channels > 0 {
			cfg.Channels = channels
		}
	}
}

// WithMaxBlockSize sets the largest host block, in frames, processed without
// splitting. Larger blocks are still accepted and processed in chunks.
func WithMaxBlockSize(frames int) MeterOption {
	return func(cfg *MeterConfig) {
		if frames > 0 {
			cfg.MaxBlockSize = frames
		}
	}
}

// WithLogger sets the logger used outside the processing path.
func WithLogger(logger *log.Logger) MeterOption {
	return func(cfg *MeterConfig) {
		cfg.Logger = logger
	}
}

// ApplyMeterOptions applies zero or more options to the default config.
func ApplyMeterOptions(opts ...MeterOption) MeterConfig {
	cfg := DefaultMeterConfig()

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return cfg
}
