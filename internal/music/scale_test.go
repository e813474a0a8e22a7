package music_test

import (
	"testing"

	"github.com/ThetaZillaClub/smSynth-sub002/internal/music"
)

func TestNewScale_CMajorMembership(t *testing.T) {
	t.Parallel()
	s, err := music.NewScale(music.ScaleMajor, 0)
	if err != nil {
		t.Fatalf("NewScale: %v", err)
	}
	inScale := []int{60, 62, 64, 65, 67, 69, 71, 72}
	for _, midi := range inScale {
		if !s.Contains(midi) {
			t.Errorf("C major should contain midi %d", midi)
		}
	}
	outOfScale := []int{61, 63, 66, 68, 70}
	for _, midi := range outOfScale {
		if s.Contains(midi) {
			t.Errorf("C major should not contain midi %d", midi)
		}
	}
}

func TestNewScale_TransposedTonic(t *testing.T) {
	t.Parallel()
	// D dorian shares its pitch set with C major.
	dorian, err := music.NewScale(music.ScaleDorian, 2)
	if err != nil {
		t.Fatalf("NewScale: %v", err)
	}
	major, err := music.NewScale(music.ScaleMajor, 0)
	if err != nil {
		t.Fatalf("NewScale: %v", err)
	}
	for midi := 60; midi < 72; midi++ {
		if dorian.Contains(midi) != major.Contains(midi) {
			t.Errorf("D dorian and C major disagree at midi %d", midi)
		}
	}
}

func TestNewScale_Invalid(t *testing.T) {
	t.Parallel()
	if _, err := music.NewScale("locrian_nonsense", 0); err == nil {
		t.Error("unknown scale should fail")
	}
	if _, err := music.NewScale(music.ScaleMajor, 12); err == nil {
		t.Error("tonic out of range should fail")
	}
}

func TestDegreeOffset_OctaveWrap(t *testing.T) {
	t.Parallel()
	s, err := music.NewScale(music.ScaleMajorPentatonic, 0)
	if err != nil {
		t.Fatalf("NewScale: %v", err)
	}
	if got := s.Degrees(); got != 5 {
		t.Fatalf("pentatonic should have 5 degrees, got %d", got)
	}
	// Degree 5 of a pentatonic is the tonic one octave up.
	if got := s.DegreeOffset(5); got != 12 {
		t.Errorf("DegreeOffset(5) = %d, want 12", got)
	}
	if got := s.DegreeOffset(6); got != 14 {
		t.Errorf("DegreeOffset(6) = %d, want 14", got)
	}
}
