package music_test

import (
	"math"
	"testing"

	"github.com/ThetaZillaClub/smSynth-sub002/internal/music"
)

func TestBeats_TimeSignatureDenominator(t *testing.T) {
	t.Parallel()
	if got := music.Quarter.Beats(4); got != 1 {
		t.Errorf("quarter in x/4 should be 1 beat, got %v", got)
	}
	if got := music.Quarter.Beats(2); got != 0.5 {
		t.Errorf("quarter in x/2 should be 0.5 beats, got %v", got)
	}
	if got := music.Eighth.Beats(8); got != 1 {
		t.Errorf("eighth in x/8 should be 1 beat, got %v", got)
	}
	if got := music.DottedQuarter.Beats(4); got != 1.5 {
		t.Errorf("dotted quarter in x/4 should be 1.5 beats, got %v", got)
	}
	tq := music.TripletQuarter.Beats(4)
	if math.Abs(tq-2.0/3.0) > 1e-12 {
		t.Errorf("triplet quarter in x/4 should be 2/3 beats, got %v", tq)
	}
}

func TestSeconds_Tempo(t *testing.T) {
	t.Parallel()
	// At 60 BPM in x/4 a quarter is exactly one second.
	if got := music.Quarter.Seconds(60, 4); got != 1 {
		t.Errorf("quarter at 60 BPM should be 1 s, got %v", got)
	}
	if got := music.Half.Seconds(120, 4); got != 1 {
		t.Errorf("half at 120 BPM should be 1 s, got %v", got)
	}
	if got := music.Quarter.Seconds(0, 4); got != 0 {
		t.Errorf("zero BPM should give 0 s, got %v", got)
	}
}

func TestTripletTriple_SumsToPlainValue(t *testing.T) {
	t.Parallel()
	three := 3 * music.TripletEighth.Seconds(90, 4)
	plain := music.Quarter.Seconds(90, 4)
	if math.Abs(three-plain) > 1e-9 {
		t.Errorf("three triplet eighths (%v) should equal a quarter (%v)", three, plain)
	}
}

func TestSegments_ConsecutiveLayout(t *testing.T) {
	t.Parallel()
	events := []music.RhythmEvent{
		{Kind: music.KindNote, Value: music.Quarter},
		{Kind: music.KindRest, Value: music.Eighth},
		{Kind: music.KindNote, Value: music.Eighth},
	}
	segs, err := music.Segments(events, 120, 4)
	if err != nil {
		t.Fatalf("Segments: %v", err)
	}
	if len(segs) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segs))
	}
	if segs[0].T0 != 0 || math.Abs(segs[0].T1-0.5) > 1e-9 {
		t.Errorf("first segment should span [0, 0.5], got [%v, %v]", segs[0].T0, segs[0].T1)
	}
	if segs[1].IsNote {
		t.Error("second segment should be a rest")
	}
	if math.Abs(segs[2].T0-0.75) > 1e-9 {
		t.Errorf("third segment should start at 0.75, got %v", segs[2].T0)
	}

	onsets := music.Onsets(segs)
	if len(onsets) != 2 {
		t.Fatalf("expected 2 onsets, got %d", len(onsets))
	}
	if onsets[0] != 0 || math.Abs(onsets[1]-0.75) > 1e-9 {
		t.Errorf("onsets = %v, want [0, 0.75]", onsets)
	}
}

func TestSegments_UnknownValue(t *testing.T) {
	t.Parallel()
	events := []music.RhythmEvent{{Kind: music.KindNote, Value: "breve"}}
	if _, err := music.Segments(events, 120, 4); err == nil {
		t.Error("unknown note value should fail")
	}
}

func TestTotalSeconds_MatchesSegments(t *testing.T) {
	t.Parallel()
	events := []music.RhythmEvent{
		{Kind: music.KindNote, Value: music.DottedEighth},
		{Kind: music.KindNote, Value: music.Sixteenth},
		{Kind: music.KindRest, Value: music.Quarter},
		{Kind: music.KindNote, Value: music.Half},
	}
	segs, err := music.Segments(events, 77, 4)
	if err != nil {
		t.Fatalf("Segments: %v", err)
	}
	total := music.TotalSeconds(events, 77, 4)
	if math.Abs(segs[len(segs)-1].T1-total) > 1e-9 {
		t.Errorf("segment end %v should match total %v", segs[len(segs)-1].T1, total)
	}
}

func TestPhraseValidate(t *testing.T) {
	t.Parallel()
	good := &music.Phrase{
		DurationSec: 2,
		Notes: []music.Note{
			{Midi: 60, StartSec: 0, DurSec: 1},
			{Midi: 62, StartSec: 1, DurSec: 1},
		},
	}
	if err := good.Validate(); err != nil {
		t.Errorf("valid phrase rejected: %v", err)
	}

	unsorted := &music.Phrase{
		DurationSec: 2,
		Notes: []music.Note{
			{Midi: 62, StartSec: 1, DurSec: 0.5},
			{Midi: 60, StartSec: 0, DurSec: 1},
		},
	}
	if err := unsorted.Validate(); err == nil {
		t.Error("unsorted notes should fail validation")
	}

	overrun := &music.Phrase{
		DurationSec: 1,
		Notes:       []music.Note{{Midi: 60, StartSec: 0.5, DurSec: 1}},
	}
	if err := overrun.Validate(); err == nil {
		t.Error("note past phrase duration should fail validation")
	}

	var nilPhrase *music.Phrase
	if err := nilPhrase.Validate(); err == nil {
		t.Error("nil phrase should fail validation")
	}
}
