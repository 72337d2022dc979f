package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"lufs-timeline/internal/audio"
	"lufs-timeline/internal/config"
	"lufs-timeline/internal/history"
	"lufs-timeline/internal/loudness"
	"lufs-timeline/internal/session"
	"lufs-timeline/internal/silence"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <input1.wav> [input2.wav ...]",
	Short: "Measure files and print their loudness history",
	Long: `analyze replays every input through the loudness meter as fast as possible and
prints the final readings, the loudness history at the requested resolution, the
state of every history level and the quiet spans found in the history. With more
than one input the quiet spans common to all of them are reported as well.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

var headingStyle = lipgloss.NewStyle().Bold(true)

func init() {
	defaults := config.DefaultConfig()
	analyzeCmd.Flags().IntP("points", "p", defaults.TargetPoints,
		"Number of history rows to print per file")
	analyzeCmd.Flags().Bool("json", false,
		"Print the history query result as JSON")
	analyzeCmd.Flags().Float64P("quiet-threshold", "t", defaults.QuietThreshold,
		"Short-term loudness below which audio counts as quiet, LUFS")
	analyzeCmd.Flags().Float64P("quiet-min-duration", "m", defaults.QuietMinDuration,
		"Minimum quiet span in seconds")
	analyzeCmd.Flags().Bool("debug-info", false,
		"Show detailed information about the audio files")
}

// fileResult is what analyze keeps per input.
type fileResult struct {
	File      string         `json:"file"`
	Momentary float64        `json:"momentary"`
	ShortTerm float64        `json:"short_term"`
	History   history.Result `json:"history"`
	Stats     history.Stats  `json:"stats"`
	Quiet     []silence.Span `json:"quiet"`

	fine []history.Bucket
}

// applyAnalyzeFlags lets explicitly set flags override the configuration file.
func applyAnalyzeFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("points") {
		cfg.TargetPoints, _ = flags.GetInt("points")
	}
	if flags.Changed("quiet-threshold") {
		cfg.QuietThreshold, _ = flags.GetFloat64("quiet-threshold")
	}
	if flags.Changed("quiet-min-duration") {
		cfg.QuietMinDuration, _ = flags.GetFloat64("quiet-min-duration")
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	applyAnalyzeFlags(cmd)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if err := checkInputFiles(cfg.InputFiles); err != nil {
		return err
	}

	points := cfg.TargetPoints
	asJSON, _ := cmd.Flags().GetBool("json")
	debugInfo, _ := cmd.Flags().GetBool("debug-info")

	quietCfg := silence.Config{
		ThresholdLUFS: cfg.QuietThreshold,
		MinDuration:   cfg.QuietMinDuration,
	}

	if !asJSON {
		fmt.Printf("lufs-timeline analyzing %d input files\n", len(cfg.InputFiles))
		fmt.Printf("Configuration:\n")
		fmt.Printf("  Update Rate: %g points/s\n", cfg.UpdateRate)
		fmt.Printf("  Levels: %d (factor %d)\n", cfg.Levels, cfg.LevelFactor)
		fmt.Printf("  Quiet Threshold: %.1f LUFS\n", cfg.QuietThreshold)
		fmt.Printf("  Min Quiet Duration: %.1f s\n", cfg.QuietMinDuration)
		fmt.Println()
		fmt.Println("Measuring loudness...")
	}

	var results []*fileResult
	for i, file := range cfg.InputFiles {
		if !asJSON {
			fmt.Printf("[%d/%d] Measuring: %s", i+1, len(cfg.InputFiles), file)
		}

		result, analysis, err := analyzeFile(cmd.Context(), file, points, quietCfg)
		if err != nil {
			if !asJSON {
				fmt.Println()
			}
			return fmt.Errorf("failed to analyze %s: %w", file, err)
		}
		results = append(results, result)

		if asJSON {
			continue
		}
		fmt.Printf(" ✓ (%.2fs, M %.1f, S %.1f LUFS)\n", analysis.Duration(), result.Momentary, result.ShortTerm)
		if debugInfo {
			analysis.PrintReport(file)
		}
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	for _, result := range results {
		printResult(result, quietCfg)
	}

	if len(results) > 1 {
		tracks := make([][]history.Bucket, len(results))
		longest := 0.0
		for i, result := range results {
			tracks[i] = result.fine
			longest = max(longest, result.Stats.CurrentTime)
		}

		fmt.Println()
		fmt.Println(headingStyle.Render("=== Common quiet spans ==="))
		silence.NewReport(silence.DetectCommon(tracks, quietCfg), longest, quietCfg).Print()
	}

	fmt.Printf("\n✅ Analysis completed successfully!\n")
	return nil
}

// analyzeFile replays file into a fresh meter and history.
func analyzeFile(ctx context.Context, file string, points int, quietCfg silence.Config) (*fileResult, *audio.Analysis, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	src, err := audio.OpenWAV(file)
	if err != nil {
		return nil, nil, err
	}
	defer src.Close()

	store, err := history.New(cfg.StoreOptions(logger))
	if err != nil {
		return nil, nil, err
	}
	meter := loudness.NewMeter(loudness.WithLogger(logger))
	sess := session.New(meter, store, logger, session.WithBlockSize(cfg.BlockSize))

	analysis := audio.Analyze(src)
	if _, err := sess.Replay(ctx, analysis, session.PaceFast); err != nil {
		return nil, nil, err
	}

	end := store.CurrentTime() + 1/store.UpdateRate()

	// Quiet spans are searched at the finest resolution the levels still hold.
	fine := store.DataForTimeRange(0, end, max(int(math.Ceil(end*store.UpdateRate())), 1))

	return &fileResult{
		File:      file,
		Momentary: meter.Momentary(),
		ShortTerm: meter.ShortTerm(),
		History:   store.DataForTimeRange(0, end, points),
		Stats:     store.Stats(),
		Quiet:     silence.DetectQuiet(fine.Buckets, quietCfg),
		fine:      fine.Buckets,
	}, analysis, nil
}

func printResult(r *fileResult, quietCfg silence.Config) {
	fmt.Println()
	fmt.Println(headingStyle.Render(fmt.Sprintf("=== %s ===", r.File)))
	fmt.Printf("Final readings: momentary %.1f LUFS, short-term %.1f LUFS\n", r.Momentary, r.ShortTerm)

	fmt.Printf("\nHistory (level %d, %gs buckets):\n", r.History.Level, r.History.BucketDuration)
	fmt.Printf("  %-20s %-16s %-16s\n", "Time", "Momentary", "Short-term")
	for _, b := range r.History.Buckets {
		span := fmt.Sprintf("%.1f - %.1f s", b.StartTime, b.EndTime)
		if !b.Valid() {
			fmt.Printf("  %-20s %-16s %-16s\n", span, "-", "-")
			continue
		}
		fmt.Printf("  %-20s %-16s %-16s\n", span,
			fmt.Sprintf("%.1f..%.1f", b.MinMomentary, b.MaxMomentary),
			fmt.Sprintf("%.1f..%.1f", b.MinShortTerm, b.MaxShortTerm))
	}

	fmt.Printf("\nLevels (%d points, %d retained raw):\n", r.Stats.TotalPoints, r.Stats.RetainedPoints)
	for _, l := range r.Stats.Levels {
		status := ""
		if l.Evicted {
			status = " (oldest aged out)"
		}
		fmt.Printf("  [%d] %8gs buckets: %6d kept from %.1fs%s\n", l.Level, l.Duration, l.Buckets, l.Oldest, status)
	}

	silence.NewReport(r.Quiet, r.Stats.CurrentTime, quietCfg).Print()
}
