package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"lufs-timeline/internal/config"
)

var (
	cfg        *config.Config
	configPath string
	logger     *log.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "lufs-timeline",
	Short: "Loudness meter with a zoomable loudness history",
	Long: `lufs-timeline measures momentary and short-term loudness (ITU-R BS.1770, K-weighted)
of WAV recordings and keeps the readings in a multi-resolution history that can be
queried at any zoom level, from the last few seconds up to hours of audio.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cfg = config.DefaultConfig()

	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(),
		"Path to the JSON configuration file")
	rootCmd.PersistentFlags().String("log-level", cfg.LogLevel,
		"Log level (debug, info, warn, error)")

	// History flags override the configuration file
	rootCmd.PersistentFlags().Float64("update-rate", cfg.UpdateRate,
		"History points per second")
	rootCmd.PersistentFlags().Int("levels", cfg.Levels,
		"Number of history levels of detail")
	rootCmd.PersistentFlags().Int("level-capacity", cfg.LevelCapacity,
		"Buckets kept per level (0 keeps all)")
	rootCmd.PersistentFlags().Int("block-size", cfg.BlockSize,
		"Frames per processed audio block")

	rootCmd.AddCommand(analyzeCmd, watchCmd, toneCmd, configCmd)
}

// setup loads the configuration file, applies flags on top and creates the
// logger.
func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg = loaded
	cfg.InputFiles = args

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("update-rate") {
		cfg.UpdateRate, _ = flags.GetFloat64("update-rate")
	}
	if flags.Changed("levels") {
		cfg.Levels, _ = flags.GetInt("levels")
	}
	if flags.Changed("level-capacity") {
		cfg.LevelCapacity, _ = flags.GetInt("level-capacity")
	}
	if flags.Changed("block-size") {
		cfg.BlockSize, _ = flags.GetInt("block-size")
	}

	if err := cfg.ValidateSettings(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	level, _ := log.ParseLevel(cfg.LogLevel)
	logger = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           level,
	})
	logger.Debug("configuration loaded", "path", configPath, "update_rate", cfg.UpdateRate, "levels", cfg.Levels)

	return nil
}

// checkInputFiles validates that every input exists and is a WAV file.
func checkInputFiles(files []string) error {
	for _, file := range files {
		if _, err := os.Stat(file); os.IsNotExist(err) {
			return fmt.Errorf("input file not found: %s", file)
		}

		if !strings.HasSuffix(strings.ToLower(file), ".wav") {
			return fmt.Errorf("input file must be a WAV file: %s", file)
		}
	}
	return nil
}
