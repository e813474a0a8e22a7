package capture

import (
	"math"
	"sort"
)

// LagUnit declares how lag values in [AlignOptions] are expressed.
//
// UnitAuto reproduces the legacy heuristic (|v| > 3 means milliseconds) for
// callers migrating from measurements of unknown provenance. New callers
// should always pass UnitSeconds or UnitMillis explicitly.
type LagUnit string

const (
	UnitSeconds LagUnit = "seconds"
	UnitMillis  LagUnit = "millis"
	UnitAuto    LagUnit = "auto"
)

// toSeconds normalises a lag value to seconds per the declared unit.
func (u LagUnit) toSeconds(v float64) float64 {
	switch u {
	case UnitMillis:
		return v / 1000
	case UnitAuto:
		if math.Abs(v) > 3 {
			return v / 1000
		}
		return v
	default:
		return v
	}
}

// AlignOptions configures [Align].
type AlignOptions struct {
	// PitchLag and GestureLag are the measured pipeline latencies for each
	// stream, expressed in Unit.
	PitchLag   float64
	GestureLag float64
	Unit       LagUnit

	// ExtraOffsetSec is an additional caller-supplied shift in seconds.
	ExtraOffsetSec float64

	// KeepPreRollSec controls how much negative time before the phrase start
	// is retained. Zero means the 0.5 s default; negative keeps nothing.
	KeepPreRollSec float64

	// ClipAboveSec is the upper bound of the valid window. When zero,
	// PhraseLengthSec + TailGuardSec is used instead.
	ClipAboveSec    float64
	PhraseLengthSec float64
	TailGuardSec    float64
}

// defaultPreRollSec is how much pre-phrase time is kept when the caller does
// not say otherwise.
const defaultPreRollSec = 0.5

func (o AlignOptions) preRoll() float64 {
	if o.KeepPreRollSec < 0 {
		return 0
	}
	if o.KeepPreRollSec == 0 {
		return defaultPreRollSec
	}
	return o.KeepPreRollSec
}

func (o AlignOptions) clipAbove() float64 {
	if o.ClipAboveSec > 0 {
		return o.ClipAboveSec
	}
	return o.PhraseLengthSec + o.TailGuardSec
}

// Align rebases raw capture streams into phrase-relative time: every
// timestamp t becomes t - leadInSec - lag - extraOffset, so the first phrase
// note lands at t'=0 even though capture starts during the count-in. Both
// streams are then sorted ascending (raw producer order is not guaranteed
// monotonic across buffer boundaries) and clipped to
// [-KeepPreRollSec, ClipAboveSec]. Samples with non-finite timestamps or
// confidence outside [0, 1] are dropped silently.
func Align(samples []PitchSample, events []GestureEvent, leadInSec float64, opts AlignOptions) ([]PitchSample, []GestureEvent) {
	pitchShift := leadInSec + opts.Unit.toSeconds(opts.PitchLag) + opts.ExtraOffsetSec
	gestureShift := leadInSec + opts.Unit.toSeconds(opts.GestureLag) + opts.ExtraOffsetSec

	lo := -opts.preRoll()
	hi := opts.clipAbove()

	outSamples := make([]PitchSample, 0, len(samples))
	for _, s := range samples {
		if !isFinite(s.TSec) || !isFinite(s.Conf) || s.Conf < 0 || s.Conf > 1 {
			continue
		}
		t := s.TSec - pitchShift
		if t < lo || t > hi {
			continue
		}
		s.TSec = t
		outSamples = append(outSamples, s)
	}
	sort.SliceStable(outSamples, func(i, j int) bool { return outSamples[i].TSec < outSamples[j].TSec })

	outEvents := make([]GestureEvent, 0, len(events))
	for _, e := range events {
		if !isFinite(e.TSec) {
			continue
		}
		t := e.TSec - gestureShift
		if t < lo || t > hi {
			continue
		}
		outEvents = append(outEvents, GestureEvent{TSec: t})
	}
	sort.SliceStable(outEvents, func(i, j int) bool { return outEvents[i].TSec < outEvents[j].TSec })

	return outSamples, outEvents
}

// VoicedWindow is the evaluation window produced by [AlignTimingFree].
type VoicedWindow struct {
	StartSec float64
	EndSec   float64
}

// Timing-free window clamps.
const (
	minVoicedWindowSec = 0.5
	maxVoicedWindowSec = 15.0
)

// AlignTimingFree rebases samples for sustain-style exercises with no
// rhythmic target: the first voiced sample (conf >= confMin) lands at t'=0
// and the window is the voiced span, clamped to [0.5 s, 15 s]. When no voiced
// samples exist, the fallback is an empty stream with a fixed 0.5 s window.
func AlignTimingFree(samples []PitchSample, confMin float64) ([]PitchSample, VoicedWindow) {
	first, last := -1, -1
	for i, s := range samples {
		if !isFinite(s.TSec) {
			continue
		}
		if s.Voiced(confMin) {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return nil, VoicedWindow{StartSec: 0, EndSec: minVoicedWindowSec}
	}

	base := samples[first].TSec
	span := samples[last].TSec - base
	if span < minVoicedWindowSec {
		span = minVoicedWindowSec
	}
	if span > maxVoicedWindowSec {
		span = maxVoicedWindowSec
	}

	out := make([]PitchSample, 0, len(samples))
	for _, s := range samples {
		if !isFinite(s.TSec) || !isFinite(s.Conf) || s.Conf < 0 || s.Conf > 1 {
			continue
		}
		t := s.TSec - base
		if t < 0 || t > span {
			continue
		}
		s.TSec = t
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TSec < out[j].TSec })
	return out, VoicedWindow{StartSec: 0, EndSec: span}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
