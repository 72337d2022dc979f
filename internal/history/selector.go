package history

import "math"

// NoLevel is passed as the previous level when a query has no history.
const NoLevel = -1

const selectEpsilon = 1e-9

// SelectLevel picks the level of detail for a query whose ideal bucket
// duration is ideal, given the bucket durations of every level (finest
// first) and the level chosen for the previous frame.
//
// Without a previous level it returns the coarsest level whose duration
// does not exceed ideal, or the finest level if all of them do. A valid
// previous level p is kept while ideal stays within
// [durations[p]/(1+hysteresis), durations[p+1]*(1+hysteresis)); the band
// is open below for the finest level and above for the coarsest.
func SelectLevel(durations []float64, ideal float64, previous int, hysteresis float64) int {
	if len(durations) == 0 {
		return NoLevel
	}

	chosen := coarsestWithin(durations, ideal)
	if previous < 0 || previous >= len(durations) || previous == chosen || !(hysteresis > 0) {
		return chosen
	}

	lo := 0.0
	if previous > 0 {
		lo = durations[previous] / (1 + hysteresis)
	}

	hi := math.Inf(1)
	if previous+1 < len(durations) {
		hi = durations[previous+1] * (1 + hysteresis)
	}

	if ideal >= lo && ideal < hi {
		return previous
	}

	return chosen
}

func coarsestWithin(durations []float64, ideal float64) int {
	chosen := 0
	for i, d := range durations {
		if d > ideal*(1+selectEpsilon) {
			break
		}
		chosen = i
	}
	return chosen
}
