package cmd

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"lufs-timeline/internal/audio"
	"lufs-timeline/internal/loudness"
)

var toneCmd = &cobra.Command{
	Use:   "tone <output.wav>",
	Short: "Write a 997 Hz calibration tone",
	Long: `tone writes a steady 997 Hz sine to every channel of a WAV file. A full-scale
mono tone measures -3.01 LUFS, so the file is a quick check of the meter.`,
	Args: cobra.ExactArgs(1),
	RunE: runTone,
}

func init() {
	toneCmd.Flags().Float64P("level", "l", -18,
		"Peak level in dBFS")
	toneCmd.Flags().IntP("channels", "c", 2,
		"Number of channels")
	toneCmd.Flags().Float64P("duration", "d", 10,
		"Duration in seconds")
	toneCmd.Flags().IntP("rate", "r", 48000,
		"Sample rate in Hz")
	toneCmd.Flags().IntP("bits", "b", 24,
		"Bit depth (16, 24 or 32)")
}

func runTone(cmd *cobra.Command, args []string) error {
	level, _ := cmd.Flags().GetFloat64("level")
	channels, _ := cmd.Flags().GetInt("channels")
	duration, _ := cmd.Flags().GetFloat64("duration")
	rate, _ := cmd.Flags().GetInt("rate")
	bits, _ := cmd.Flags().GetInt("bits")

	if duration <= 0 {
		return fmt.Errorf("duration must be positive")
	}

	tone := audio.Tone{
		Frequency: audio.CalibrationFrequency,
		LevelDBFS: level,
		Duration:  duration,
		Format: audio.Format{
			SampleRate: rate,
			Channels:   channels,
			BitDepth:   bits,
		},
	}
	if err := audio.ValidateFormat(tone.Format); err != nil {
		return err
	}

	output := args[0]
	fmt.Printf("Writing: %s", output)

	clipped, err := audio.WriteWAV(output, tone.Source())
	if err != nil {
		fmt.Println()
		return fmt.Errorf("failed to write %s: %w", output, err)
	}

	fmt.Printf(" ✓ (%.2fs, %s)\n", duration, tone.Format)
	if clipped > 0 {
		fmt.Printf("  ⚠️  %d samples clipped\n", clipped)
	}
	fmt.Printf("  Expected reading: %.2f LUFS momentary and short-term\n", expectedLoudness(level, channels))

	logger.Debug("tone written", "file", output, "level", level, "channels", channels)
	return nil
}

// expectedLoudness is the reading of a steady 997 Hz sine at level dBFS in
// every channel. K-weighting gain at 997 Hz cancels the -0.691 dB offset.
func expectedLoudness(level float64, channels int) float64 {
	weight := 0.0
	for ch := range channels {
		weight += loudness.ChannelWeight(ch, channels)
	}
	if weight == 0 {
		return loudness.FloorLUFS
	}
	return level + 10*math.Log10(0.5*weight)
}
