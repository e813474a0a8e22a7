package score

import (
	"math"
	"sort"

	"github.com/ThetaZillaClub/smSynth-sub002/internal/capture"
	"github.com/ThetaZillaClub/smSynth-sub002/internal/music"
)

// Options are the scorer tunables. The zero value selects the defaults; use
// [TimingFreeOptions] for sustain-style exercises.
type Options struct {
	// ConfMin is the minimum detection confidence for a voiced frame.
	// Zero means 0.5.
	ConfMin float64

	// CentsOk is the on-pitch tolerance in cents. Zero means 60.
	CentsOk float64

	// OnsetGraceMs is the full-credit alignment window. Zero means 100.
	OnsetGraceMs float64

	// MaxAlignMs is the miss threshold. Zero means 200.
	MaxAlignMs float64

	// TimingFree relaxes the pitch thresholds and scores only the pitch
	// dimension; rhythm and interval dimensions are excluded from the blend.
	TimingFree bool
}

const (
	defaultConfMin      = 0.5
	defaultCentsOk      = 60.0
	defaultOnsetGraceMs = 100.0
	defaultMaxAlignMs   = 200.0

	timingFreeConfMin = 0.45
	timingFreeCentsOk = 80.0
)

// TimingFreeOptions returns the relaxed option set used by sustain exercises.
func TimingFreeOptions() Options {
	return Options{ConfMin: timingFreeConfMin, CentsOk: timingFreeCentsOk, TimingFree: true}
}

func (o Options) confMin() float64 {
	if o.ConfMin > 0 {
		return o.ConfMin
	}
	if o.TimingFree {
		return timingFreeConfMin
	}
	return defaultConfMin
}

func (o Options) centsOk() float64 {
	if o.CentsOk > 0 {
		return o.CentsOk
	}
	if o.TimingFree {
		return timingFreeCentsOk
	}
	return defaultCentsOk
}

func (o Options) onsetGraceMs() float64 {
	if o.OnsetGraceMs > 0 {
		return o.OnsetGraceMs
	}
	return defaultOnsetGraceMs
}

func (o Options) maxAlignMs() float64 {
	if o.MaxAlignMs > 0 {
		return o.MaxAlignMs
	}
	return defaultMaxAlignMs
}

// Blend weights before renormalisation over applicable dimensions.
const (
	weightPitch     = 0.5
	weightMelody    = 0.3
	weightLine      = 0.1
	weightIntervals = 0.1
)

// TakeInput bundles everything one take scoring pass consumes. Samples and
// gestures must already be aligned into phrase-relative time.
//
// Precondition: Phrase must have at least one note; the session layer never
// hands a scoreless phrase to the scorer.
type TakeInput struct {
	Phrase *music.Phrase
	A4Hz   float64

	Samples  []capture.PitchSample
	Gestures []capture.GestureEvent

	// MelodyOnsetsSec are the reference melody onset times. Empty disables
	// the melody-rhythm dimension (e.g. timing-free sustain exercises).
	MelodyOnsetsSec []float64

	// RhythmLineOnsetsSec are the independent rhythm-line fabric onsets.
	// Nil disables the rhythm-line dimension entirely.
	RhythmLineOnsetsSec []float64

	// EvaluateIntervals treats the phrase notes as interval-drill pairs.
	EvaluateIntervals bool

	Options Options
}

// ComputeTakeScore scores one take. Every field of the result is finite; a
// take with zero voiced samples scores pitch 0, never NaN.
func ComputeTakeScore(in TakeInput) TakeScore {
	opts := in.Options
	a4 := in.A4Hz
	if a4 <= 0 {
		a4 = music.DefaultA4Hz
	}

	var out TakeScore
	out.Pitch = scorePitch(in.Phrase, in.Samples, a4, opts)

	gestures := make([]float64, len(in.Gestures))
	for i, g := range in.Gestures {
		gestures[i] = g.TSec
	}

	melodyApplies := len(in.MelodyOnsetsSec) > 0 && !opts.TimingFree
	if melodyApplies {
		res := matchOnsets(in.MelodyOnsetsSec, gestures, opts.onsetGraceMs(), opts.maxAlignMs())
		out.Rhythm.MelodyPercent = res.percent
		out.Rhythm.MelodyHitRate = res.hitRate
		out.Rhythm.MelodyMeanAbsMs = res.meanAbsMs
	}

	lineApplies := in.RhythmLineOnsetsSec != nil && !opts.TimingFree
	if lineApplies {
		res := matchOnsets(in.RhythmLineOnsetsSec, gestures, opts.onsetGraceMs(), opts.maxAlignMs())
		out.Rhythm.LineEvaluated = true
		out.Rhythm.LinePercent = res.percent
		out.Rhythm.LineHitRate = res.hitRate
		out.Rhythm.LineMeanAbsMs = res.meanAbsMs
	}

	if in.EvaluateIntervals && !opts.TimingFree {
		out.Intervals = scoreIntervals(in.Phrase, in.Samples, a4, opts)
	}

	out.Final.Percent = blend(out, melodyApplies)
	out.Final.Letter = Letter(out.Final.Percent)
	return out
}

// blend combines the applicable dimensions with weights renormalised over
// what actually applies. Pitch always applies.
func blend(s TakeScore, melodyApplies bool) float64 {
	sum := weightPitch * s.Pitch.Percent
	wTotal := weightPitch
	if melodyApplies {
		sum += weightMelody * s.Rhythm.MelodyPercent
		wTotal += weightMelody
	}
	if s.Rhythm.LineEvaluated {
		sum += weightLine * s.Rhythm.LinePercent
		wTotal += weightLine
	}
	if s.Intervals.Total > 0 {
		sum += weightIntervals * 100 * s.Intervals.CorrectRatio
		wTotal += weightIntervals
	}
	return sum / wTotal
}

// scorePitch computes the duration-weighted on-pitch coverage and cents MAE
// across all reference note windows.
func scorePitch(p *music.Phrase, samples []capture.PitchSample, a4 float64, opts Options) PitchScore {
	if p == nil || len(p.Notes) == 0 {
		return PitchScore{}
	}
	confMin := opts.confMin()
	centsOk := opts.centsOk()
	dt := medianFrameDt(samples)

	totalDur := 0.0
	coveredDur := 0.0
	voicedCount := 0
	onPitchCount := 0
	sumAbsCents := 0.0

	for _, note := range p.Notes {
		targetHz := music.MidiToHz(math.Round(note.Midi), a4)
		onPitchInNote := 0
		for _, s := range samples {
			if s.TSec < note.StartSec || s.TSec > note.EndSec() {
				continue
			}
			if !s.Voiced(confMin) {
				continue
			}
			cents := music.Cents(s.Hz, targetHz)
			if math.IsNaN(cents) {
				continue
			}
			voicedCount++
			sumAbsCents += math.Abs(cents)
			if math.Abs(cents) <= centsOk {
				onPitchCount++
				onPitchInNote++
			}
		}
		cover := float64(onPitchInNote) * dt / note.DurSec
		if cover > 1 {
			cover = 1
		}
		coveredDur += cover * note.DurSec
		totalDur += note.DurSec
	}

	var out PitchScore
	if totalDur > 0 {
		out.TimeOnPitchRatio = coveredDur / totalDur
	}
	if voicedCount > 0 {
		out.CentsMae = sumAbsCents / float64(voicedCount)
		tolShare := float64(onPitchCount) / float64(voicedCount)
		out.Percent = 100 * (0.7*out.TimeOnPitchRatio + 0.3*tolShare)
	}
	return out
}

// medianFrameDt estimates the detector frame period from the aligned stream.
// Falls back to 20 ms when the stream is too short to estimate.
const fallbackFrameDt = 0.02

func medianFrameDt(samples []capture.PitchSample) float64 {
	if len(samples) < 2 {
		return fallbackFrameDt
	}
	dts := make([]float64, 0, len(samples)-1)
	for i := 1; i < len(samples); i++ {
		d := samples[i].TSec - samples[i-1].TSec
		if d > 0 {
			dts = append(dts, d)
		}
	}
	if len(dts) == 0 {
		return fallbackFrameDt
	}
	sort.Float64s(dts)
	return dts[len(dts)/2]
}

// scoreIntervals grades consecutive note pairs: the rounded measured interval
// (from the median detected pitch in each note window) must equal the
// intended semitone interval. Pairs with an unvoiced window count as
// incorrect.
func scoreIntervals(p *music.Phrase, samples []capture.PitchSample, a4 float64, opts Options) IntervalScore {
	if p == nil || len(p.Notes) < 2 {
		return IntervalScore{}
	}
	confMin := opts.confMin()

	var out IntervalScore
	for i := 0; i+1 < len(p.Notes); i += 2 {
		a, b := p.Notes[i], p.Notes[i+1]
		out.Total++

		midiA, okA := medianMidi(samples, a, a4, confMin)
		midiB, okB := medianMidi(samples, b, a4, confMin)
		if !okA || !okB {
			continue
		}
		intended := int(math.Round(b.Midi - a.Midi))
		measured := int(math.Round(midiB - midiA))
		if measured == intended {
			out.Correct++
		}
	}
	if out.Total > 0 {
		out.CorrectRatio = float64(out.Correct) / float64(out.Total)
	}
	return out
}

// medianMidi returns the median detected MIDI pitch over a note window.
func medianMidi(samples []capture.PitchSample, note music.Note, a4, confMin float64) (float64, bool) {
	var midis []float64
	for _, s := range samples {
		if s.TSec < note.StartSec || s.TSec > note.EndSec() {
			continue
		}
		if !s.Voiced(confMin) {
			continue
		}
		m := music.HzToMidi(s.Hz, a4)
		if !math.IsNaN(m) {
			midis = append(midis, m)
		}
	}
	if len(midis) == 0 {
		return 0, false
	}
	sort.Float64s(midis)
	return midis[len(midis)/2], true
}
