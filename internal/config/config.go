package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"lufs-timeline/internal/history"
)

const (
	DefaultConfigDir = ".config/lufs-timeline"
	ConfigFileName   = "config.json"
)

// Config holds all configuration parameters for lufs-timeline
type Config struct {
	// Input files
	InputFiles []string `json:"-"`

	// History store settings
	UpdateRate    float64 `json:"update_rate"` // points per second
	RingCapacity  int     `json:"ring_capacity"`
	Levels        int     `json:"levels"`
	LevelFactor   int     `json:"level_factor"`
	LevelCapacity int     `json:"level_capacity"` // buckets per level, 0 keeps all

	// Query settings
	TargetPoints int     `json:"target_points"` // history rows per report
	Hysteresis   float64 `json:"hysteresis"`

	// Metering settings
	BlockSize int `json:"block_size"` // frames per processed block

	// Quiet span detection settings
	QuietThreshold   float64 `json:"quiet_threshold"`    // LUFS
	QuietMinDuration float64 `json:"quiet_min_duration"` // seconds

	LogLevel string `json:"log_level"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	store := history.DefaultOptions()

	return &Config{
		UpdateRate:       store.UpdateRate,
		RingCapacity:     store.RingCapacity,
		Levels:           store.Levels,
		LevelFactor:      store.LevelFactor,
		LevelCapacity:    store.LevelCapacity,
		TargetPoints:     20,
		Hysteresis:       store.Hysteresis,
		BlockSize:        512,
		QuietThreshold:   -50.0,
		QuietMinDuration: 2.0,
		LogLevel:         "info",
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if len(c.InputFiles) == 0 {
		return fmt.Errorf("no input files specified")
	}

	return c.ValidateSettings()
}

// ValidateSettings checks everything except the input files.
func (c *Config) ValidateSettings() error {
	if c.UpdateRate <= 0 || c.UpdateRate > 100 {
		return fmt.Errorf("update rate must be between 0 and 100 points per second")
	}

	if c.RingCapacity <= 0 {
		return fmt.Errorf("ring capacity must be positive")
	}

	if c.Levels < 1 || c.Levels > 16 {
		return fmt.Errorf("levels must be between 1 and 16")
	}

	if c.LevelFactor < 2 {
		return fmt.Errorf("level factor must be at least 2")
	}

	if c.LevelCapacity < 0 {
		return fmt.Errorf("level capacity must be non-negative")
	}

	if c.TargetPoints <= 0 {
		return fmt.Errorf("target points must be positive")
	}

	if c.Hysteresis < 0 || c.Hysteresis > 4 {
		return fmt.Errorf("hysteresis must be between 0 and 4")
	}

	if c.BlockSize <= 0 {
		return fmt.Errorf("block size must be positive")
	}

	if c.QuietThreshold < -100.0 || c.QuietThreshold > 0.0 {
		return fmt.Errorf("quiet threshold must be between -100.0 and 0.0 LUFS")
	}

	if c.QuietMinDuration <= 0 {
		return fmt.Errorf("minimum quiet duration must be positive")
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}

	return nil
}

// StoreOptions returns the history store options described by c.
func (c *Config) StoreOptions(logger *log.Logger) history.Options {
	opts := history.DefaultOptions()
	opts.UpdateRate = c.UpdateRate
	opts.RingCapacity = c.RingCapacity
	opts.Levels = c.Levels
	opts.LevelFactor = c.LevelFactor
	opts.LevelCapacity = c.LevelCapacity
	opts.Hysteresis = c.Hysteresis
	opts.Logger = logger
	return opts
}

// DefaultPath returns ~/.config/lufs-timeline/config.json.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(DefaultConfigDir, ConfigFileName)
	}
	return filepath.Join(home, DefaultConfigDir, ConfigFileName)
}

// Load reads the configuration at path. Fields missing from the file keep
// their defaults, and a missing file yields DefaultConfig.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes cfg to path, creating its directory if needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
