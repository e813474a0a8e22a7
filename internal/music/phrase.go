package music

import "fmt"

// Note is one melody note of a reference phrase. Midi may be fractional
// during generation; playback rounds to the nearest semitone.
type Note struct {
	Midi     float64 `json:"midi"`
	StartSec float64 `json:"startSec"`
	DurSec   float64 `json:"durSec"`
}

// EndSec returns the time at which the note stops sounding.
func (n Note) EndSec() float64 { return n.StartSec + n.DurSec }

// Phrase is a generated reference melody. Notes are sorted ascending by
// StartSec and DurationSec covers every note. A phrase is frozen at lead-in
// and never mutated for the lifetime of a take.
type Phrase struct {
	DurationSec float64 `json:"durationSec"`
	Notes       []Note  `json:"notes"`
}

// Validate checks the phrase invariants: at least one note, notes sorted by
// start time, positive durations, and DurationSec covering every note end.
func (p *Phrase) Validate() error {
	if p == nil {
		return fmt.Errorf("music: nil phrase")
	}
	if len(p.Notes) == 0 {
		return fmt.Errorf("music: phrase has no notes")
	}
	prev := -1.0
	for i, n := range p.Notes {
		if n.StartSec < 0 {
			return fmt.Errorf("music: note %d starts at %v before zero", i, n.StartSec)
		}
		if n.DurSec <= 0 {
			return fmt.Errorf("music: note %d has non-positive duration %v", i, n.DurSec)
		}
		if n.StartSec < prev {
			return fmt.Errorf("music: note %d starts at %v before note %d", i, n.StartSec, i-1)
		}
		if n.EndSec() > p.DurationSec+1e-9 {
			return fmt.Errorf("music: note %d ends at %v beyond phrase duration %v", i, n.EndSec(), p.DurationSec)
		}
		prev = n.StartSec
	}
	return nil
}

// Onsets returns the start times of all notes, ascending.
func (p *Phrase) Onsets() []float64 {
	out := make([]float64, len(p.Notes))
	for i, n := range p.Notes {
		out[i] = n.StartSec
	}
	return out
}
