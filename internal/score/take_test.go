package score_test

import (
	"math"
	"testing"

	"github.com/ThetaZillaClub/smSynth-sub002/internal/capture"
	"github.com/ThetaZillaClub/smSynth-sub002/internal/music"
	"github.com/ThetaZillaClub/smSynth-sub002/internal/score"
)

// frames synthesises a steady pitch stream over [t0, t1) at the given frame
// period.
func frames(t0, t1, dt, hz, conf float64) []capture.PitchSample {
	var out []capture.PitchSample
	for t := t0; t < t1; t += dt {
		out = append(out, capture.PitchSample{TSec: t, Hz: hz, Conf: conf})
	}
	return out
}

func singleNote(midi float64, durSec float64) *music.Phrase {
	return &music.Phrase{
		DurationSec: durSec,
		Notes:       []music.Note{{Midi: midi, StartSec: 0, DurSec: durSec}},
	}
}

func TestComputeTakeScore_PerfectSustain(t *testing.T) {
	t.Parallel()
	c4 := music.MidiToHz(60, 440)
	got := score.ComputeTakeScore(score.TakeInput{
		Phrase:  singleNote(60, 1.0),
		A4Hz:    440,
		Samples: frames(0, 1.0, 0.02, c4, 0.9),
	})
	if got.Pitch.Percent < 99 {
		t.Errorf("a perfectly sung note should score ~100, got %v", got.Pitch.Percent)
	}
	if got.Pitch.TimeOnPitchRatio < 0.95 {
		t.Errorf("coverage should be ~1, got %v", got.Pitch.TimeOnPitchRatio)
	}
	if got.Pitch.CentsMae > 1e-6 {
		t.Errorf("cents MAE should be 0 for an exact pitch, got %v", got.Pitch.CentsMae)
	}
	if got.Final.Letter != "A" {
		t.Errorf("letter should be A, got %q", got.Final.Letter)
	}
}

func TestComputeTakeScore_SemitoneSharp(t *testing.T) {
	t.Parallel()
	cSharp4 := music.MidiToHz(61, 440)
	got := score.ComputeTakeScore(score.TakeInput{
		Phrase:  singleNote(60, 1.0),
		A4Hz:    440,
		Samples: frames(0, 1.0, 0.02, cSharp4, 0.9),
	})
	if got.Pitch.Percent != 0 {
		t.Errorf("100 cents sharp is outside the 60 cent tolerance, want 0, got %v", got.Pitch.Percent)
	}
	if math.Abs(got.Pitch.CentsMae-100) > 1e-6 {
		t.Errorf("cents MAE should be 100, got %v", got.Pitch.CentsMae)
	}
	if got.Final.Letter != "F" {
		t.Errorf("letter should be F, got %q", got.Final.Letter)
	}
}

func TestComputeTakeScore_DetuneMonotonicity(t *testing.T) {
	t.Parallel()
	prev := math.Inf(1)
	for _, cents := range []float64{0, 20, 40, 59} {
		hz := music.MidiToHz(60+cents/100, 440)
		got := score.ComputeTakeScore(score.TakeInput{
			Phrase:  singleNote(60, 1.0),
			A4Hz:    440,
			Samples: frames(0, 1.0, 0.02, hz, 0.9),
		})
		if got.Pitch.CentsMae > prev && prev != math.Inf(1) {
			// CentsMae grows; Percent must not.
			t.Errorf("detune %v cents: MAE grew but earlier percent not checked", cents)
		}
		if math.Abs(got.Pitch.CentsMae-cents) > 0.5 {
			t.Errorf("detune %v cents: MAE %v", cents, got.Pitch.CentsMae)
		}
		prev = got.Pitch.CentsMae
	}
}

func TestComputeTakeScore_UnvoicedFramesIgnored(t *testing.T) {
	t.Parallel()
	c4 := music.MidiToHz(60, 440)
	samples := frames(0, 1.0, 0.02, c4, 0.9)
	// Interleave low-confidence junk that must not affect the MAE.
	junk := frames(0.005, 1.0, 0.02, 900, 0.1)
	got := score.ComputeTakeScore(score.TakeInput{
		Phrase:  singleNote(60, 1.0),
		A4Hz:    440,
		Samples: append(samples, junk...),
	})
	if got.Pitch.CentsMae > 1e-6 {
		t.Errorf("unvoiced frames should not contribute to MAE, got %v", got.Pitch.CentsMae)
	}
}

func TestComputeTakeScore_NoSamples(t *testing.T) {
	t.Parallel()
	got := score.ComputeTakeScore(score.TakeInput{
		Phrase: singleNote(60, 1.0),
		A4Hz:   440,
	})
	if got.Pitch.Percent != 0 || got.Final.Percent != 0 {
		t.Errorf("silence should score zero, got %+v", got)
	}
	if !got.Valid() {
		t.Error("a zero score must still be a valid score")
	}
}

func TestComputeTakeScore_BoundsAlwaysHold(t *testing.T) {
	t.Parallel()
	inputs := []score.TakeInput{
		{Phrase: singleNote(60, 1), A4Hz: 440},
		{Phrase: singleNote(60, 1), A4Hz: 440, Samples: frames(0, 1, 0.02, 262, 0.9)},
		{
			Phrase:          singleNote(60, 1),
			A4Hz:            440,
			Samples:         frames(0, 1, 0.02, 262, 0.9),
			MelodyOnsetsSec: []float64{0},
			Gestures:        []capture.GestureEvent{{TSec: 0.05}, {TSec: 0.9}},
		},
	}
	for i, in := range inputs {
		got := score.ComputeTakeScore(in)
		if !got.Valid() {
			t.Errorf("input %d produced an out-of-range score: %+v", i, got)
		}
	}
}

func TestComputeTakeScore_MelodyRhythmBlend(t *testing.T) {
	t.Parallel()
	c4 := music.MidiToHz(60, 440)
	phrase := &music.Phrase{
		DurationSec: 2,
		Notes: []music.Note{
			{Midi: 60, StartSec: 0, DurSec: 1},
			{Midi: 60, StartSec: 1, DurSec: 1},
		},
	}
	got := score.ComputeTakeScore(score.TakeInput{
		Phrase:          phrase,
		A4Hz:            440,
		Samples:         frames(0, 2, 0.02, c4, 0.9),
		MelodyOnsetsSec: []float64{0, 1},
		Gestures:        []capture.GestureEvent{{TSec: 0.02}, {TSec: 1.03}},
	})
	if got.Rhythm.MelodyHitRate != 1 {
		t.Errorf("both onsets have gestures within grace, hit rate should be 1, got %v", got.Rhythm.MelodyHitRate)
	}
	if got.Rhythm.MelodyPercent < 99 {
		t.Errorf("gestures within the 100 ms grace get full credit, got %v", got.Rhythm.MelodyPercent)
	}
	// Pitch and melody both near 100: the blend stays near 100.
	if got.Final.Percent < 98 {
		t.Errorf("blend of two near-perfect dimensions should stay near 100, got %v", got.Final.Percent)
	}
	if got.Rhythm.LineEvaluated {
		t.Error("no rhythm line was provided, it must not be marked evaluated")
	}
}

func TestComputeTakeScore_OnsetCreditFalloff(t *testing.T) {
	t.Parallel()
	c4 := music.MidiToHz(60, 440)
	scoreAt := func(gestureT float64) score.TakeScore {
		return score.ComputeTakeScore(score.TakeInput{
			Phrase:          singleNote(60, 1),
			A4Hz:            440,
			Samples:         frames(0, 1, 0.02, c4, 0.9),
			MelodyOnsetsSec: []float64{0},
			Gestures:        []capture.GestureEvent{{TSec: gestureT}},
		})
	}
	inGrace := scoreAt(0.08)
	if inGrace.Rhythm.MelodyPercent != 100 {
		t.Errorf("80 ms error is inside grace, want 100, got %v", inGrace.Rhythm.MelodyPercent)
	}
	mid := scoreAt(0.15)
	if math.Abs(mid.Rhythm.MelodyPercent-50) > 1e-6 {
		t.Errorf("150 ms error is halfway through the falloff, want 50, got %v", mid.Rhythm.MelodyPercent)
	}
	if mid.Rhythm.MelodyHitRate != 1 {
		t.Errorf("150 ms is still a hit, got rate %v", mid.Rhythm.MelodyHitRate)
	}
	missed := scoreAt(0.35)
	if missed.Rhythm.MelodyHitRate != 0 || missed.Rhythm.MelodyPercent != 0 {
		t.Errorf("350 ms is a miss, got rate %v percent %v",
			missed.Rhythm.MelodyHitRate, missed.Rhythm.MelodyPercent)
	}
}

func TestComputeTakeScore_GestureConsumedOnce(t *testing.T) {
	t.Parallel()
	c4 := music.MidiToHz(60, 440)
	got := score.ComputeTakeScore(score.TakeInput{
		Phrase: &music.Phrase{
			DurationSec: 1,
			Notes: []music.Note{
				{Midi: 60, StartSec: 0, DurSec: 0.1},
				{Midi: 60, StartSec: 0.1, DurSec: 0.9},
			},
		},
		A4Hz:            440,
		Samples:         frames(0, 1, 0.02, c4, 0.9),
		MelodyOnsetsSec: []float64{0, 0.1},
		Gestures:        []capture.GestureEvent{{TSec: 0.05}},
	})
	if got.Rhythm.MelodyHitRate != 0.5 {
		t.Errorf("one gesture cannot satisfy two onsets, want hit rate 0.5, got %v", got.Rhythm.MelodyHitRate)
	}
}

func TestComputeTakeScore_RhythmLineDimension(t *testing.T) {
	t.Parallel()
	c4 := music.MidiToHz(60, 440)
	got := score.ComputeTakeScore(score.TakeInput{
		Phrase:              singleNote(60, 2),
		A4Hz:                440,
		Samples:             frames(0, 2, 0.02, c4, 0.9),
		MelodyOnsetsSec:     []float64{0},
		RhythmLineOnsetsSec: []float64{0, 0.5, 1, 1.5},
		Gestures: []capture.GestureEvent{
			{TSec: 0}, {TSec: 0.5}, {TSec: 1}, {TSec: 1.5},
		},
	})
	if !got.Rhythm.LineEvaluated {
		t.Fatal("rhythm line should be evaluated when onsets are provided")
	}
	if got.Rhythm.LineHitRate != 1 {
		t.Errorf("all line onsets matched, want hit rate 1, got %v", got.Rhythm.LineHitRate)
	}
}

func TestComputeTakeScore_IntervalDrill(t *testing.T) {
	t.Parallel()
	phrase := &music.Phrase{
		DurationSec: 2,
		Notes: []music.Note{
			{Midi: 60, StartSec: 0, DurSec: 0.5},
			{Midi: 64, StartSec: 0.5, DurSec: 0.5},
			{Midi: 62, StartSec: 1.0, DurSec: 0.5},
			{Midi: 69, StartSec: 1.5, DurSec: 0.5},
		},
	}
	sing := func(midi float64, t0, t1 float64) []capture.PitchSample {
		return frames(t0, t1, 0.02, music.MidiToHz(midi, 440), 0.9)
	}
	var samples []capture.PitchSample
	samples = append(samples, sing(60, 0, 0.5)...)
	samples = append(samples, sing(64, 0.5, 1.0)...) // correct major third
	samples = append(samples, sing(62, 1.0, 1.5)...)
	samples = append(samples, sing(68, 1.5, 2.0)...) // a semitone flat of the fifth

	got := score.ComputeTakeScore(score.TakeInput{
		Phrase:            phrase,
		A4Hz:              440,
		Samples:           samples,
		EvaluateIntervals: true,
	})
	if got.Intervals.Total != 2 {
		t.Fatalf("4 notes form 2 interval pairs, got %d", got.Intervals.Total)
	}
	if got.Intervals.Correct != 1 {
		t.Errorf("only the first pair is correct, got %d", got.Intervals.Correct)
	}
	if got.Intervals.CorrectRatio != 0.5 {
		t.Errorf("correct ratio should be 0.5, got %v", got.Intervals.CorrectRatio)
	}
}

func TestComputeTakeScore_TimingFreeSkipsRhythm(t *testing.T) {
	t.Parallel()
	c4 := music.MidiToHz(60, 440)
	got := score.ComputeTakeScore(score.TakeInput{
		Phrase:              singleNote(60, 1),
		A4Hz:                440,
		Samples:             frames(0, 1, 0.02, c4, 0.9),
		MelodyOnsetsSec:     []float64{0},
		RhythmLineOnsetsSec: []float64{0},
		Gestures:            []capture.GestureEvent{{TSec: 0}},
		Options:             score.TimingFreeOptions(),
	})
	if got.Rhythm.MelodyPercent != 0 || got.Rhythm.LineEvaluated {
		t.Errorf("timing-free takes must not grade rhythm, got %+v", got.Rhythm)
	}
	if math.Abs(got.Final.Percent-got.Pitch.Percent) > 1e-9 {
		t.Errorf("timing-free final should equal pitch percent, got %v vs %v",
			got.Final.Percent, got.Pitch.Percent)
	}
}
