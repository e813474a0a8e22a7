package score

import "math"

// onsetResult summarises one reference-onsets-vs-gestures matching pass.
type onsetResult struct {
	hitRate   float64
	meanAbsMs float64
	percent   float64
}

// matchOnsets matches each reference onset to its nearest unconsumed gesture
// event. A gesture within maxAlignMs counts as a hit; per-onset credit is
// full within graceMs and scales linearly to zero at maxAlignMs, so a hit
// that is imprecise scores less than a precise one. Each gesture can satisfy
// at most one onset (greedy, in onset order, which preserves the first-match
// tie-break for equidistant candidates).
func matchOnsets(onsetsSec []float64, gesturesSec []float64, graceMs, maxAlignMs float64) onsetResult {
	if len(onsetsSec) == 0 {
		return onsetResult{}
	}
	maxSec := maxAlignMs / 1000

	consumed := make([]bool, len(gesturesSec))
	hits := 0
	sumAbsMs := 0.0
	sumCredit := 0.0

	for _, onset := range onsetsSec {
		best := -1
		bestAbs := math.Inf(1)
		for i, g := range gesturesSec {
			if consumed[i] {
				continue
			}
			d := math.Abs(g - onset)
			if d < bestAbs {
				bestAbs = d
				best = i
			}
		}
		if best < 0 || bestAbs > maxSec {
			continue
		}
		consumed[best] = true
		hits++
		errMs := bestAbs * 1000
		sumAbsMs += errMs
		sumCredit += alignCredit(errMs, graceMs, maxAlignMs)
	}

	res := onsetResult{
		hitRate: float64(hits) / float64(len(onsetsSec)),
		percent: 100 * sumCredit / float64(len(onsetsSec)),
	}
	if hits > 0 {
		res.meanAbsMs = sumAbsMs / float64(hits)
	}
	return res
}

// alignCredit is the two-tier tolerance: full credit within graceMs, linear
// falloff to zero at maxAlignMs.
func alignCredit(errMs, graceMs, maxAlignMs float64) float64 {
	if errMs <= graceMs {
		return 1
	}
	if errMs >= maxAlignMs {
		return 0
	}
	return 1 - (errMs-graceMs)/(maxAlignMs-graceMs)
}
