// Package phrase generates reference melodies and rhythm fabrics from a
// student's vocal range, a key/scale, and rhythm parameters. All generation
// is deterministic for a fixed seed.
//
// A nil phrase result is not an error: it means the inputs (typically the
// vocal range) are not ready yet, and the caller should retry once a valid
// range is available.
package phrase

import (
	"math"

	"github.com/ThetaZillaClub/smSynth-sub002/internal/music"
)

// Mode selects the melodic generation strategy.
type Mode string

const (
	// ModeFree is a random walk over the allowed pitch pool.
	ModeFree Mode = "free"

	// ModeSequence emits a fixed scale-degree pattern (ascending or
	// ascending-descending) sized by the scale cardinality.
	ModeSequence Mode = "sequence"

	// ModeInterval emits note pairs separated by requested semitone
	// intervals, for ear-training drills.
	ModeInterval Mode = "interval"
)

// SequencePattern selects the degree pattern used by [ModeSequence].
type SequencePattern string

const (
	PatternAscending     SequencePattern = "ascending"
	PatternAscendingDesc SequencePattern = "ascending_descending"
)

// Params describes one phrase generation request.
type Params struct {
	// LowHz and HighHz bound the student's vocal range. When either is
	// non-finite or non-positive, generation returns nil (not ready).
	LowHz  float64
	HighHz float64

	// A4Hz is the reference tuning. Zero means [music.DefaultA4Hz].
	A4Hz float64

	// BPM and the time signature drive the melody rhythm layout.
	BPM     float64
	TimeNum int
	TimeDen int

	TonicPC int
	Scale   music.ScaleName

	// Rhythm is the melody rhythm fabric the notes are laid onto. Required:
	// the number of note segments determines how many pitches are generated.
	Rhythm []music.RhythmEvent

	// MaxPerDegree caps consecutive repeats of the same scale degree.
	// Zero means no cap.
	MaxPerDegree int

	// OctaveWindow is the size of the tonic window in octaves. Zero means 1.
	OctaveWindow int

	// IncludeUnder and IncludeOver admit pool notes below/above the tonic
	// window.
	IncludeUnder bool
	IncludeOver  bool

	// AllowedDegreeIndices optionally restricts the pool to these scale
	// degree indices (0-based within one octave). Nil means all degrees.
	AllowedDegreeIndices []int

	// AllowedMidis optionally restricts the pool to these MIDI notes.
	// Nil means no restriction.
	AllowedMidis []int

	// TonicMidis lists explicit candidate tonic pitches. When non-empty the
	// tonic nearest PreferredOctaveMidi is chosen instead of a random one.
	TonicMidis []int

	// PreferredOctaveMidi is the anchor used to choose among TonicMidis.
	// Zero means the middle of the clamped range.
	PreferredOctaveMidi int

	Mode            Mode
	SequencePattern SequencePattern

	// Intervals lists the semitone intervals used by [ModeInterval].
	Intervals []int

	Seed uint64
}

// Generate builds a reference phrase from p. It returns nil when the vocal
// range is absent or invalid; callers must treat nil as "not ready".
func Generate(p Params) *music.Phrase {
	pool, tonic, ok := buildPool(p)
	if !ok || len(pool) == 0 {
		return nil
	}

	a4 := p.A4Hz
	if a4 <= 0 {
		a4 = music.DefaultA4Hz
	}
	den := p.TimeDen
	if den <= 0 {
		den = 4
	}
	segs, err := music.Segments(p.Rhythm, p.BPM, den)
	if err != nil {
		return nil
	}
	noteSegs := make([]music.Segment, 0, len(segs))
	for _, s := range segs {
		if s.IsNote {
			noteSegs = append(noteSegs, s)
		}
	}
	if len(noteSegs) == 0 {
		return nil
	}

	scale, err := music.NewScale(p.Scale, p.TonicPC)
	if err != nil {
		return nil
	}

	r := newRNG(p.Seed)
	var midis []int
	switch p.Mode {
	case ModeSequence:
		midis = sequenceWalk(p, scale, pool, tonic, len(noteSegs))
	case ModeInterval:
		midis = intervalWalk(p, pool, r, len(noteSegs))
	default:
		midis = freeWalk(p, scale, pool, r, len(noteSegs))
	}
	if len(midis) == 0 {
		return nil
	}

	notes := make([]music.Note, 0, len(noteSegs))
	for i, seg := range noteSegs {
		notes = append(notes, music.Note{
			Midi:     float64(midis[i%len(midis)]),
			StartSec: seg.T0,
			DurSec:   seg.T1 - seg.T0,
		})
	}
	total := segs[len(segs)-1].T1
	return &music.Phrase{DurationSec: total, Notes: notes}
}

// buildPool clamps the Hz range to MIDI, intersects the scale mask and the
// optional whitelists, and applies the tonic-window filters. The second
// return value is the chosen tonic MIDI note.
func buildPool(p Params) (pool []int, tonic int, ok bool) {
	a4 := p.A4Hz
	if a4 <= 0 {
		a4 = music.DefaultA4Hz
	}
	low, high := p.LowHz, p.HighHz
	if !isFinitePositive(low) || !isFinitePositive(high) {
		return nil, 0, false
	}
	if high < low {
		low, high = high, low
	}

	lowMidi := int(math.Round(music.HzToMidi(low, a4)))
	highMidi := int(math.Round(music.HzToMidi(high, a4)))
	if highMidi < lowMidi {
		return nil, 0, false
	}

	scale, err := music.NewScale(p.Scale, p.TonicPC)
	if err != nil {
		return nil, 0, false
	}

	allowedDegree := intSet(p.AllowedDegreeIndices)
	allowedMidi := intSet(p.AllowedMidis)

	for m := lowMidi; m <= highMidi; m++ {
		if !scale.Contains(m) {
			continue
		}
		if allowedDegree != nil {
			if _, ok := allowedDegree[scale.DegreeIndex(m)]; !ok {
				continue
			}
		}
		if allowedMidi != nil {
			if _, ok := allowedMidi[m]; !ok {
				continue
			}
		}
		pool = append(pool, m)
	}
	if len(pool) == 0 {
		return nil, 0, false
	}

	tonic = chooseTonic(p, scale, pool, lowMidi, highMidi)

	window := p.OctaveWindow
	if window <= 0 {
		window = 1
	}
	lowBound, highBound := tonic, tonic+12*window
	filtered := pool[:0]
	for _, m := range pool {
		if m < lowBound && !p.IncludeUnder {
			continue
		}
		if m > highBound && !p.IncludeOver {
			continue
		}
		filtered = append(filtered, m)
	}
	if len(filtered) == 0 {
		return nil, 0, false
	}
	return filtered, tonic, true
}

// chooseTonic picks the tonic MIDI note: the explicit candidate nearest the
// preferred octave when TonicMidis is set, otherwise the lowest in-range
// pitch whose class is the tonic.
func chooseTonic(p Params, scale music.Scale, pool []int, lowMidi, highMidi int) int {
	anchor := p.PreferredOctaveMidi
	if anchor == 0 {
		anchor = (lowMidi + highMidi) / 2
	}
	if len(p.TonicMidis) > 0 {
		best := p.TonicMidis[0]
		for _, m := range p.TonicMidis[1:] {
			if abs(m-anchor) < abs(best-anchor) {
				best = m
			}
		}
		return best
	}
	for _, m := range pool {
		if music.PitchClass(m) == scale.TonicPC {
			return m
		}
	}
	return pool[0]
}

// freeWalk draws count pitches uniformly from the pool, skipping candidates
// that would exceed the consecutive-repeat cap for their scale degree.
func freeWalk(p Params, scale music.Scale, pool []int, r *rng, count int) []int {
	out := make([]int, 0, count)
	lastDegree, run := -2, 0
	for len(out) < count {
		m := pool[r.Intn(len(pool))]
		deg := scale.DegreeIndex(m)
		if p.MaxPerDegree > 0 && deg == lastDegree && run >= p.MaxPerDegree {
			if allSameDegree(scale, pool) {
				// Cap is unsatisfiable; emit anyway rather than spin.
				out = append(out, m)
				run++
				continue
			}
			continue
		}
		if deg == lastDegree {
			run++
		} else {
			lastDegree, run = deg, 1
		}
		out = append(out, m)
	}
	return out
}

// sequenceWalk emits a fixed degree pattern starting at the tonic. The
// pattern covers the scale cardinality plus the octave; pitches outside the
// pool are clamped to the nearest pool member.
func sequenceWalk(p Params, scale music.Scale, pool []int, tonic, count int) []int {
	n := scale.Degrees()
	var degrees []int
	switch p.SequencePattern {
	case PatternAscendingDesc:
		for i := 0; i <= n; i++ {
			degrees = append(degrees, i)
		}
		for i := n - 1; i >= 0; i-- {
			degrees = append(degrees, i)
		}
	default:
		for i := 0; i <= n; i++ {
			degrees = append(degrees, i)
		}
	}

	out := make([]int, 0, count)
	for i := 0; i < count; i++ {
		deg := degrees[i%len(degrees)]
		out = append(out, nearestInPool(pool, tonic+scale.DegreeOffset(deg)))
	}
	return out
}

// intervalWalk emits root/target note pairs for each requested interval,
// cycling through the interval list. Roots are drawn at random from the pool
// such that the target also stays within range.
func intervalWalk(p Params, pool []int, r *rng, count int) []int {
	intervals := p.Intervals
	if len(intervals) == 0 {
		intervals = []int{4} // major third default drill
	}
	lo, hi := pool[0], pool[len(pool)-1]

	out := make([]int, 0, count)
	for pair := 0; len(out) < count; pair++ {
		iv := intervals[pair%len(intervals)]
		root := pool[r.Intn(len(pool))]
		if root+iv > hi {
			if root-iv >= lo {
				iv = -iv
			} else {
				root = lo
			}
		}
		out = append(out, root)
		if len(out) < count {
			out = append(out, nearestInPool(pool, root+iv))
		}
	}
	return out
}

func nearestInPool(pool []int, target int) int {
	best := pool[0]
	for _, m := range pool[1:] {
		if abs(m-target) < abs(best-target) {
			best = m
		}
	}
	return best
}

func allSameDegree(scale music.Scale, pool []int) bool {
	first := scale.DegreeIndex(pool[0])
	for _, m := range pool[1:] {
		if scale.DegreeIndex(m) != first {
			return false
		}
	}
	return true
}

func intSet(vals []int) map[int]struct{} {
	if vals == nil {
		return nil
	}
	set := make(map[int]struct{}, len(vals))
	for _, v := range vals {
		set[v] = struct{}{}
	}
	return set
}

func isFinitePositive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
