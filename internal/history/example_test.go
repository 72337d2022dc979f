package history_test

import (
	"fmt"

	"lufs-timeline/internal/history"
)

func ExampleStore_DataForTimeRange() {
	opts := history.DefaultOptions()
	opts.UpdateRate = 1

	store, err := history.New(opts)
	if err != nil {
		panic(err)
	}

	// One hour of readings, one per second.
	for i := range 3600 {
		store.AddPoint(-23+float64(i%7), -23)
	}

	res := store.DataForTimeRange(1800, 1810, 100)
	fmt.Printf("level %d, %d buckets of %.0f s\n", res.Level, len(res.Buckets), res.BucketDuration)
	fmt.Printf("first bucket: [%.0f, %.0f) momentary %.0f..%.0f LUFS\n",
		res.Buckets[0].StartTime, res.Buckets[0].EndTime,
		res.Buckets[0].MinMomentary, res.Buckets[0].MaxMomentary)

	overview := store.DataForTimeRange(0, 3600, 200)
	fmt.Printf("overview: level %d, %d buckets of %.1f s\n",
		overview.Level, len(overview.Buckets), overview.BucketDuration)

	// Output:
	// level 0, 10 buckets of 1 s
	// first bucket: [1800, 1801) momentary -22..-22 LUFS
	// overview: level 2, 225 buckets of 16.0 s
}

func ExampleSelectLevel() {
	durations := []float64{0.1, 0.4, 1.6, 6.4}

	level := history.SelectLevel(durations, 0.5, history.NoLevel, 0.5)
	fmt.Println("fresh:", level)

	// A slightly finer view keeps the previous level.
	level = history.SelectLevel(durations, 0.35, level, 0.5)
	fmt.Println("zoomed in a little:", level)

	level = history.SelectLevel(durations, 0.2, level, 0.5)
	fmt.Println("zoomed in further:", level)

	// Output:
	// fresh: 1
	// zoomed in a little: 1
	// zoomed in further: 0
}
