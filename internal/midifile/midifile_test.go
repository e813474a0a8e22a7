package midifile_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/ThetaZillaClub/smSynth-sub002/internal/midifile"
	"github.com/ThetaZillaClub/smSynth-sub002/internal/music"
)

func testPhrase() *music.Phrase {
	return &music.Phrase{
		DurationSec: 2,
		Notes: []music.Note{
			{Midi: 60, StartSec: 0, DurSec: 0.5},
			{Midi: 62, StartSec: 0.5, DurSec: 0.5},
			{Midi: 64, StartSec: 1.0, DurSec: 1.0},
		},
	}
}

func TestEncode_ProducesStandardMidiFile(t *testing.T) {
	t.Parallel()
	data, err := midifile.Encode(testPhrase(), 120)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("MThd")) {
		t.Fatalf("output does not start with an SMF header, got % x", data[:8])
	}

	parsed, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("re-reading the SMF failed: %v", err)
	}
	if got := len(parsed.Tracks); got != 1 {
		t.Fatalf("expected 1 track, got %d", got)
	}

	noteOns := 0
	for _, ev := range parsed.Tracks[0] {
		var ch, key, vel uint8
		if ev.Message.GetNoteStart(&ch, &key, &vel) {
			noteOns++
		}
	}
	if noteOns != 3 {
		t.Errorf("expected 3 note-on events, got %d", noteOns)
	}
}

func TestEncode_RepeatedPitchRetriggers(t *testing.T) {
	t.Parallel()
	phrase := &music.Phrase{
		DurationSec: 1,
		Notes: []music.Note{
			{Midi: 60, StartSec: 0, DurSec: 0.5},
			{Midi: 60, StartSec: 0.5, DurSec: 0.5},
		},
	}
	data, err := midifile.Encode(phrase, 120)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	parsed, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("re-reading the SMF failed: %v", err)
	}

	// At the shared boundary the off for the first note must precede the on
	// for the second, or the second note is swallowed.
	var kinds []string
	for _, ev := range parsed.Tracks[0] {
		var ch, key, vel uint8
		switch {
		case ev.Message.GetNoteStart(&ch, &key, &vel):
			kinds = append(kinds, "on")
		case ev.Message.GetNoteEnd(&ch, &key):
			kinds = append(kinds, "off")
		}
	}
	want := []string{"on", "off", "on", "off"}
	if len(kinds) != len(want) {
		t.Fatalf("expected %d note events, got %d (%v)", len(want), len(kinds), kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("event order %v, want %v", kinds, want)
		}
	}
}

func TestEncode_InvalidInput(t *testing.T) {
	t.Parallel()
	if _, err := midifile.Encode(&music.Phrase{}, 120); err == nil {
		t.Error("an empty phrase should fail")
	}
	if _, err := midifile.Encode(testPhrase(), 0); err == nil {
		t.Error("zero bpm should fail")
	}
}

func TestWriteFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "phrase.mid")
	if err := midifile.WriteFile(path, testPhrase(), 100); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("MThd")) {
		t.Error("written file is not an SMF")
	}
}
