package music

import "fmt"

// ScaleName identifies one of the built-in scales.
type ScaleName string

const (
	ScaleMajor           ScaleName = "major"
	ScaleNaturalMinor    ScaleName = "natural_minor"
	ScaleHarmonicMinor   ScaleName = "harmonic_minor"
	ScaleDorian          ScaleName = "dorian"
	ScaleMixolydian      ScaleName = "mixolydian"
	ScaleMajorPentatonic ScaleName = "major_pentatonic"
	ScaleMinorPentatonic ScaleName = "minor_pentatonic"
	ScaleBlues           ScaleName = "blues"
	ScaleChromatic       ScaleName = "chromatic"
)

// scaleOffsets maps each scale to its semitone offsets from the tonic.
var scaleOffsets = map[ScaleName][]int{
	ScaleMajor:           {0, 2, 4, 5, 7, 9, 11},
	ScaleNaturalMinor:    {0, 2, 3, 5, 7, 8, 10},
	ScaleHarmonicMinor:   {0, 2, 3, 5, 7, 8, 11},
	ScaleDorian:          {0, 2, 3, 5, 7, 9, 10},
	ScaleMixolydian:      {0, 2, 4, 5, 7, 9, 10},
	ScaleMajorPentatonic: {0, 2, 4, 7, 9},
	ScaleMinorPentatonic: {0, 3, 5, 7, 10},
	ScaleBlues:           {0, 3, 5, 6, 7, 10},
	ScaleChromatic:       {0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
}

// IsValid reports whether s is a recognised scale name.
func (s ScaleName) IsValid() bool {
	_, ok := scaleOffsets[s]
	return ok
}

// Scale is a named scale rooted at a tonic pitch class. The zero value is not
// usable; construct with [NewScale].
type Scale struct {
	Name    ScaleName
	TonicPC int

	// mask[pc] reports whether absolute pitch class pc belongs to the scale.
	mask [12]bool

	// offsets are the semitone offsets from the tonic, ascending.
	offsets []int
}

// NewScale builds a Scale for the given name and tonic pitch class (0–11, C=0).
func NewScale(name ScaleName, tonicPC int) (Scale, error) {
	offs, ok := scaleOffsets[name]
	if !ok {
		return Scale{}, fmt.Errorf("music: unknown scale %q", name)
	}
	if tonicPC < 0 || tonicPC > 11 {
		return Scale{}, fmt.Errorf("music: tonic pitch class %d out of range [0, 11]", tonicPC)
	}
	s := Scale{Name: name, TonicPC: tonicPC, offsets: offs}
	for _, off := range offs {
		s.mask[(tonicPC+off)%12] = true
	}
	return s, nil
}

// Contains reports whether the rounded MIDI note number belongs to the scale.
func (s Scale) Contains(midi int) bool {
	return s.mask[PitchClass(midi)]
}

// Degrees returns the number of scale degrees per octave.
func (s Scale) Degrees() int {
	return len(s.offsets)
}

// DegreeOffset returns the semitone offset from the tonic for degree index i.
// Indices beyond one octave wrap upward: degree Degrees() is the octave tonic.
func (s Scale) DegreeOffset(i int) int {
	n := len(s.offsets)
	octave := i / n
	idx := i % n
	if idx < 0 {
		idx += n
		octave--
	}
	return 12*octave + s.offsets[idx]
}

// DegreeIndex returns the degree index (0-based, within one octave) of midi,
// or -1 when midi is not a scale member. Used to enforce per-degree repeat caps.
func (s Scale) DegreeIndex(midi int) int {
	rel := PitchClass(midi - s.TonicPC)
	for i, off := range s.offsets {
		if off == rel {
			return i
		}
	}
	return -1
}
