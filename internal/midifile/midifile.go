// Package midifile renders a generated reference phrase as a standard MIDI
// file so it can be auditioned in a DAW or fed to an external synth.
package midifile

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/ThetaZillaClub/smSynth-sub002/internal/music"
)

// ticksPerQuarter is the SMF resolution used for exported phrases.
const ticksPerQuarter = 960

const (
	channel  = 0
	velocity = 96
)

// Encode renders phrase as a single-track SMF at the given tempo (quarter
// notes per minute) and returns the encoded bytes.
func Encode(phrase *music.Phrase, bpm float64) ([]byte, error) {
	if err := phrase.Validate(); err != nil {
		return nil, fmt.Errorf("midifile: %w", err)
	}
	if bpm <= 0 {
		return nil, fmt.Errorf("midifile: bpm %v must be positive", bpm)
	}

	secPerTick := 60 / bpm / ticksPerQuarter

	// Flatten note boundaries into absolute-tick on/off events.
	type boundary struct {
		tick uint64
		on   bool
		key  uint8
	}
	var bounds []boundary
	for _, n := range phrase.Notes {
		key := uint8(math.Round(n.Midi))
		bounds = append(bounds,
			boundary{tick: uint64(n.StartSec / secPerTick), on: true, key: key},
			boundary{tick: uint64(n.EndSec() / secPerTick), on: false, key: key},
		)
	}
	sort.SliceStable(bounds, func(i, j int) bool {
		if bounds[i].tick != bounds[j].tick {
			return bounds[i].tick < bounds[j].tick
		}
		// Note-off before note-on at the same tick so repeated pitches retrigger.
		return !bounds[i].on && bounds[j].on
	})

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(ticksPerQuarter)

	var tr smf.Track
	tr.Add(0, smf.MetaTempo(bpm))

	var cursor uint64
	for _, b := range bounds {
		delta := uint32(b.tick - cursor)
		cursor = b.tick
		if b.on {
			tr.Add(delta, smf.Message(midi.NoteOn(channel, b.key, velocity)))
		} else {
			tr.Add(delta, smf.Message(midi.NoteOff(channel, b.key)))
		}
	}
	tr.Close(0)
	if err := s.Add(tr); err != nil {
		return nil, fmt.Errorf("midifile: add track: %w", err)
	}

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("midifile: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile encodes phrase and writes it to path.
func WriteFile(path string, phrase *music.Phrase, bpm float64) error {
	data, err := Encode(phrase, bpm)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("midifile: write %q: %w", path, err)
	}
	return nil
}
