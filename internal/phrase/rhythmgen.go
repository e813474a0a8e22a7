package phrase

import (
	"math"

	"github.com/ThetaZillaClub/smSynth-sub002/internal/music"
)

// RhythmParams describes one rhythm fabric request. Exactly one of Bars or
// NoteQuota should be set; when both are set Bars wins.
type RhythmParams struct {
	BPM float64
	Num int
	Den int

	// Values is the palette of note values to draw from. Empty means
	// quarters and eighths.
	Values []music.NoteValue

	// RestProb is the probability in [0, 1] that a cell becomes a rest.
	// Forced to 0 when AllowRests is false, regardless of input.
	RestProb   float64
	AllowRests bool

	// Bars requests a fabric filling exactly this many measures.
	Bars int

	// NoteQuota requests exactly this many sounded notes, padded with rests
	// to land on a measure boundary.
	NoteQuota int

	Seed uint64
}

// BuildRhythm emits a rhythm fabric per p. The total duration sums exactly to
// whole measures: Bars measures in bars mode, or the smallest measure count
// that fits NoteQuota notes in quota mode. Returns nil for invalid params.
func BuildRhythm(p RhythmParams) []music.RhythmEvent {
	if p.BPM <= 0 || p.Num <= 0 || p.Den <= 0 {
		return nil
	}
	values := p.Values
	if len(values) == 0 {
		values = []music.NoteValue{music.Quarter, music.Eighth}
	}
	for _, v := range values {
		if !v.IsValid() {
			return nil
		}
	}
	restProb := p.RestProb
	if !p.AllowRests {
		restProb = 0
	}

	r := newRNG(p.Seed)
	if p.Bars > 0 {
		return fillBars(r, values, restProb, p.Num, p.Den, p.Bars)
	}
	if p.NoteQuota > 0 {
		return fillQuota(r, values, restProb, p.Num, p.Den, p.NoteQuota)
	}
	return nil
}

// fillBars packs cells measure by measure. Each measure is filled greedily
// with random values that still fit its remaining beats, falling back to the
// smallest value; the final gap is closed with the exact-fit value when one
// exists, so every measure sums exactly to Num beats.
func fillBars(r *rng, values []music.NoteValue, restProb float64, num, den, bars int) []music.RhythmEvent {
	var out []music.RhythmEvent
	for b := 0; b < bars; b++ {
		events := fillMeasure(r, values, restProb, num, den)
		if events == nil {
			return nil
		}
		out = append(out, events...)
	}
	return out
}

func fillMeasure(r *rng, values []music.NoteValue, restProb float64, num, den int) []music.RhythmEvent {
	const eps = 1e-9
	var out []music.RhythmEvent
	remaining := float64(num)
	for remaining > eps {
		var fitting []music.NoteValue
		for _, v := range values {
			if v.Beats(den) <= remaining+eps {
				fitting = append(fitting, v)
			}
		}
		if len(fitting) == 0 {
			// No palette value fits the gap; close it with plain subdivisions.
			v, ok := exactFit(remaining, den)
			if !ok {
				return nil
			}
			fitting = []music.NoteValue{v}
		}
		v := fitting[r.Intn(len(fitting))]
		kind := music.KindNote
		if restProb > 0 && r.Float64() < restProb {
			kind = music.KindRest
		}
		out = append(out, music.RhythmEvent{Kind: kind, Value: v})
		remaining -= v.Beats(den)
	}
	return out
}

// exactFit returns the plain note value lasting exactly beats, if one exists.
func exactFit(beats float64, den int) (music.NoteValue, bool) {
	const eps = 1e-9
	for _, v := range []music.NoteValue{music.Whole, music.Half, music.Quarter, music.Eighth, music.Sixteenth, music.ThirtySecond} {
		if diff := v.Beats(den) - beats; diff < eps && diff > -eps {
			return v, true
		}
	}
	return "", false
}

// fillQuota emits exactly quota sounded notes, then pads with rests to the
// next measure boundary. Returns nil when no rest combination closes the
// final gap exactly; the total otherwise always sums to whole measures.
func fillQuota(r *rng, values []music.NoteValue, restProb float64, num, den, quota int) []music.RhythmEvent {
	const eps = 1e-9
	var out []music.RhythmEvent
	notes := 0
	beats := 0.0
	for notes < quota {
		v := values[r.Intn(len(values))]
		kind := music.KindNote
		if restProb > 0 && r.Float64() < restProb {
			kind = music.KindRest
		}
		if kind == music.KindNote {
			notes++
		}
		out = append(out, music.RhythmEvent{Kind: kind, Value: v})
		beats += v.Beats(den)
	}
	// Pad the final partial measure with rests.
	measure := float64(num)
	rem := math.Mod(beats, measure)
	gap := 0.0
	if rem > eps && measure-rem > eps {
		gap = measure - rem
	}
	rests, ok := padRests(gap, den)
	if !ok {
		return nil
	}
	return append(out, rests...)
}

// padValues is the rest-padding palette in descending length order. Triplet
// values are included so gaps left by tuplet rhythms close exactly.
var padValues = []music.NoteValue{
	music.Whole, music.Half, music.TripletHalf,
	music.Quarter, music.TripletQuarter,
	music.Eighth, music.TripletEighth,
	music.Sixteenth, music.TripletSixteenth,
	music.ThirtySecond, music.TripletThirtySecond,
}

// padRests closes gap with the largest rests whose remainder stays reachable:
// a candidate is skipped when it would strand a sliver shorter than the
// smallest padding value.
func padRests(gap float64, den int) ([]music.RhythmEvent, bool) {
	const eps = 1e-9
	minPad := music.TripletThirtySecond.Beats(den)
	var out []music.RhythmEvent
	for gap > eps {
		picked := false
		for _, v := range padValues {
			b := v.Beats(den)
			if b > gap+eps {
				continue
			}
			if rem := gap - b; rem > eps && rem < minPad-eps {
				continue
			}
			out = append(out, music.RhythmEvent{Kind: music.KindRest, Value: v})
			gap -= b
			picked = true
			break
		}
		if !picked {
			return nil, false
		}
	}
	return out, true
}
