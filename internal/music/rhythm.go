package music

import "fmt"

// NoteValue is a symbolic note duration. Dotted values last 1.5× their plain
// counterpart; triplet values last 2/3.
type NoteValue string

const (
	Whole               NoteValue = "whole"
	Half                NoteValue = "half"
	Quarter             NoteValue = "quarter"
	Eighth              NoteValue = "eighth"
	Sixteenth           NoteValue = "sixteenth"
	ThirtySecond        NoteValue = "thirty_second"
	DottedHalf          NoteValue = "dotted_half"
	DottedQuarter       NoteValue = "dotted_quarter"
	DottedEighth        NoteValue = "dotted_eighth"
	DottedSixteenth     NoteValue = "dotted_sixteenth"
	TripletHalf         NoteValue = "triplet_half"
	TripletQuarter      NoteValue = "triplet_quarter"
	TripletEighth       NoteValue = "triplet_eighth"
	TripletSixteenth    NoteValue = "triplet_sixteenth"
	TripletThirtySecond NoteValue = "triplet_thirty_second"
)

// noteValueDef holds the reciprocal duration (denominator of the note
// fraction: whole=1, quarter=4, ...) and the length multiplier applied for
// dotted/triplet variants.
type noteValueDef struct {
	denom float64
	mult  float64
}

var noteValues = map[NoteValue]noteValueDef{
	Whole:               {1, 1},
	Half:                {2, 1},
	Quarter:             {4, 1},
	Eighth:              {8, 1},
	Sixteenth:           {16, 1},
	ThirtySecond:        {32, 1},
	DottedHalf:          {2, 1.5},
	DottedQuarter:       {4, 1.5},
	DottedEighth:        {8, 1.5},
	DottedSixteenth:     {16, 1.5},
	TripletHalf:         {2, 2.0 / 3.0},
	TripletQuarter:      {4, 2.0 / 3.0},
	TripletEighth:       {8, 2.0 / 3.0},
	TripletSixteenth:    {16, 2.0 / 3.0},
	TripletThirtySecond: {32, 2.0 / 3.0},
}

// IsValid reports whether v is a recognised note value.
func (v NoteValue) IsValid() bool {
	_, ok := noteValues[v]
	return ok
}

// Beats returns the length of v in beats for a time signature whose
// denominator is den (e.g. a quarter note is 1 beat in 4/4, 2 beats in 2/2).
func (v NoteValue) Beats(den int) float64 {
	def, ok := noteValues[v]
	if !ok || den <= 0 {
		return 0
	}
	return float64(den) / def.denom * def.mult
}

// Seconds returns the length of v in seconds at the given tempo. bpm counts
// beats as defined by the time-signature denominator den.
func (v NoteValue) Seconds(bpm float64, den int) float64 {
	if bpm <= 0 {
		return 0
	}
	return v.Beats(den) * 60 / bpm
}

// RhythmEventKind distinguishes sounded notes from rests in a rhythm fabric.
type RhythmEventKind string

const (
	KindNote RhythmEventKind = "note"
	KindRest RhythmEventKind = "rest"
)

// RhythmEvent is one symbolic note-or-rest cell of a rhythm fabric.
type RhythmEvent struct {
	Kind  RhythmEventKind
	Value NoteValue
}

// Segment is the concrete time span a [RhythmEvent] occupies at a tempo.
type Segment struct {
	T0     float64
	T1     float64
	IsNote bool
}

// Segments lays out events consecutively from t=0 at the given tempo and
// returns one [Segment] per event.
func Segments(events []RhythmEvent, bpm float64, den int) ([]Segment, error) {
	if bpm <= 0 {
		return nil, fmt.Errorf("music: bpm %v must be positive", bpm)
	}
	segs := make([]Segment, 0, len(events))
	t := 0.0
	for i, ev := range events {
		d := ev.Value.Seconds(bpm, den)
		if d <= 0 {
			return nil, fmt.Errorf("music: event %d has invalid value %q", i, ev.Value)
		}
		segs = append(segs, Segment{T0: t, T1: t + d, IsNote: ev.Kind == KindNote})
		t += d
	}
	return segs, nil
}

// TotalSeconds returns the summed duration of events at the given tempo.
func TotalSeconds(events []RhythmEvent, bpm float64, den int) float64 {
	total := 0.0
	for _, ev := range events {
		total += ev.Value.Seconds(bpm, den)
	}
	return total
}

// Onsets returns the start time of every sounded note among segs, ascending.
func Onsets(segs []Segment) []float64 {
	var out []float64
	for _, s := range segs {
		if s.IsNote {
			out = append(out, s.T0)
		}
	}
	return out
}
