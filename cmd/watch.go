package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"lufs-timeline/internal/audio"
	"lufs-timeline/internal/history"
	"lufs-timeline/internal/loudness"
	"lufs-timeline/internal/session"
	"lufs-timeline/internal/tui"
)

var watchCmd = &cobra.Command{
	Use:   "watch <input.wav>",
	Short: "Play a file through the meter in real time with a live history view",
	Long: `watch replays the input at real-time speed and shows the momentary and short-term
loudness history in the terminal while it grows. The view follows the newest audio
until you pan away; zooming out switches to coarser history levels.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().String("log-file", "",
		"Write logs to this file while the view is open")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if err := checkInputFiles(cfg.InputFiles); err != nil {
		return err
	}
	file := cfg.InputFiles[0]

	// The view owns the terminal, so logs go to a file or nowhere.
	var viewLogger *log.Logger
	if logFile, _ := cmd.Flags().GetString("log-file"); logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()

		viewLogger = log.NewWithOptions(f, log.Options{
			ReportTimestamp: true,
			Level:           logger.GetLevel(),
		})
	}

	src, err := audio.OpenWAV(file)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", file, err)
	}
	defer src.Close()

	store, err := history.New(cfg.StoreOptions(viewLogger))
	if err != nil {
		return err
	}
	meter := loudness.NewMeter(loudness.WithLogger(viewLogger))
	sess := session.New(meter, store, viewLogger, session.WithBlockSize(cfg.BlockSize))

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	done := make(chan error, 1)
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		_, err := sess.Replay(ctx, src, session.PaceRealtime)
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		done <- err
	}()

	model := tui.NewModel(filepath.Base(file), store, meter, done)
	err = tui.Run(model)

	cancel()
	<-stopped

	if err != nil {
		return fmt.Errorf("view failed: %w", err)
	}

	fmt.Printf("✓ %s: %.1fs watched, last short-term %.1f LUFS\n", file, store.CurrentTime(), meter.ShortTerm())
	return nil
}
