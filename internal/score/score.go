// Package score turns aligned capture streams and a reference phrase into a
// multi-dimensional take score, and reduces the takes of one session into the
// single aggregate submitted for persistence.
//
// All scorer outputs are finite numbers in documented ranges: percents in
// [0, 100], ratios and rates in [0, 1]. Dimensions that do not apply to an
// exercise are zeroed and excluded from the final weighted blend rather than
// omitted.
package score

import "math"

// FinalScore is the headline result of a take.
type FinalScore struct {
	Percent float64 `json:"percent"`
	Letter  string  `json:"letter"`
}

// PitchScore grades intonation over the reference note windows.
type PitchScore struct {
	Percent          float64 `json:"percent"`
	TimeOnPitchRatio float64 `json:"timeOnPitchRatio"`
	CentsMae         float64 `json:"centsMae"`
}

// RhythmScore grades gesture timing against the melody onsets and, when the
// exercise requests it, against the independent rhythm-line fabric. When
// LineEvaluated is false the Line* fields are zeroed and carry no meaning.
type RhythmScore struct {
	MelodyPercent   float64 `json:"melodyPercent"`
	MelodyHitRate   float64 `json:"melodyHitRate"`
	MelodyMeanAbsMs float64 `json:"melodyMeanAbsMs"`
	LineEvaluated   bool    `json:"lineEvaluated"`
	LinePercent     float64 `json:"linePercent"`
	LineHitRate     float64 `json:"lineHitRate"`
	LineMeanAbsMs   float64 `json:"lineMeanAbsMs"`
}

// IntervalScore grades interval-drill note pairs. Total is zero for
// non-interval exercises, which excludes the dimension from the blend.
type IntervalScore struct {
	Correct      int     `json:"correct"`
	Total        int     `json:"total"`
	CorrectRatio float64 `json:"correctRatio"`
}

// TakeScore is the aggregate result of one take. Created once at the
// record-to-rest transition and read-only afterward.
type TakeScore struct {
	Final     FinalScore    `json:"final"`
	Pitch     PitchScore    `json:"pitch"`
	Rhythm    RhythmScore   `json:"rhythm"`
	Intervals IntervalScore `json:"intervals"`
}

// Letter maps a percent to the coarse five-letter grade persisted with
// aggregate results.
func Letter(percent float64) string {
	switch {
	case percent >= 90:
		return "A"
	case percent >= 80:
		return "B"
	case percent >= 70:
		return "C"
	case percent >= 60:
		return "D"
	default:
		return "F"
	}
}

// FineLetter maps a percent to a graded band with +/- modifiers for display.
// The band boundaries collapse onto the same five letters as [Letter].
func FineLetter(percent float64) string {
	base := Letter(percent)
	if base == "F" {
		return base
	}
	switch rem := math.Mod(percent, 10); {
	case percent >= 97:
		return "A+"
	case rem >= 7:
		return base + "+"
	case rem < 3:
		return base + "-"
	default:
		return base
	}
}

// RoundPercent rounds to the 2-decimal precision the results store expects.
func RoundPercent(v float64) float64 {
	return math.Round(v*100) / 100
}

// RoundRatio rounds to the 5-decimal precision the results store expects.
func RoundRatio(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}

// Rounded returns a copy of s with every field rounded to persistence
// precision: percents to 2 decimals, ratios and rates to 5.
func (s TakeScore) Rounded() TakeScore {
	s.Final.Percent = RoundPercent(s.Final.Percent)
	s.Pitch.Percent = RoundPercent(s.Pitch.Percent)
	s.Pitch.TimeOnPitchRatio = RoundRatio(s.Pitch.TimeOnPitchRatio)
	s.Pitch.CentsMae = RoundPercent(s.Pitch.CentsMae)
	s.Rhythm.MelodyPercent = RoundPercent(s.Rhythm.MelodyPercent)
	s.Rhythm.MelodyHitRate = RoundRatio(s.Rhythm.MelodyHitRate)
	s.Rhythm.MelodyMeanAbsMs = RoundPercent(s.Rhythm.MelodyMeanAbsMs)
	s.Rhythm.LinePercent = RoundPercent(s.Rhythm.LinePercent)
	s.Rhythm.LineHitRate = RoundRatio(s.Rhythm.LineHitRate)
	s.Rhythm.LineMeanAbsMs = RoundPercent(s.Rhythm.LineMeanAbsMs)
	s.Intervals.CorrectRatio = RoundRatio(s.Intervals.CorrectRatio)
	return s
}

// Valid reports whether every field of s lies in its documented range.
// Used by the submission handler to reject malformed payloads.
func (s TakeScore) Valid() bool {
	percents := []float64{
		s.Final.Percent, s.Pitch.Percent,
		s.Rhythm.MelodyPercent, s.Rhythm.LinePercent,
	}
	for _, p := range percents {
		if !finite(p) || p < 0 || p > 100 {
			return false
		}
	}
	ratios := []float64{
		s.Pitch.TimeOnPitchRatio, s.Rhythm.MelodyHitRate,
		s.Rhythm.LineHitRate, s.Intervals.CorrectRatio,
	}
	for _, r := range ratios {
		if !finite(r) || r < 0 || r > 1 {
			return false
		}
	}
	if !finite(s.Pitch.CentsMae) || s.Pitch.CentsMae < 0 {
		return false
	}
	if !finite(s.Rhythm.MelodyMeanAbsMs) || s.Rhythm.MelodyMeanAbsMs < 0 {
		return false
	}
	if !finite(s.Rhythm.LineMeanAbsMs) || s.Rhythm.LineMeanAbsMs < 0 {
		return false
	}
	if s.Intervals.Correct < 0 || s.Intervals.Total < 0 || s.Intervals.Correct > s.Intervals.Total {
		return false
	}
	return true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
