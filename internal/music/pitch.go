// Package music provides the pitch, scale, and rhythm primitives shared by
// the phrase generator and the take scorer: MIDI/frequency conversion, cents
// arithmetic, named scales with per-tonic membership masks, and symbolic note
// values that map deterministically onto seconds at a given tempo.
package music

import "math"

// DefaultA4Hz is the concert pitch used when a caller does not supply one.
const DefaultA4Hz = 440.0

// MidiToHz converts a (possibly fractional) MIDI note number to a frequency
// in Hz using the given A4 reference frequency.
func MidiToHz(midi, a4Hz float64) float64 {
	return a4Hz * math.Pow(2, (midi-69)/12)
}

// HzToMidi converts a frequency in Hz to a fractional MIDI note number using
// the given A4 reference frequency. Returns NaN for non-positive frequencies.
func HzToMidi(hz, a4Hz float64) float64 {
	if hz <= 0 || a4Hz <= 0 {
		return math.NaN()
	}
	return 69 + 12*math.Log2(hz/a4Hz)
}

// Cents returns the signed deviation of hz from refHz in cents. A positive
// result means hz is sharp relative to refHz.
func Cents(hz, refHz float64) float64 {
	if hz <= 0 || refHz <= 0 {
		return math.NaN()
	}
	return 1200 * math.Log2(hz/refHz)
}

// PitchClass returns the pitch class (0–11, C=0) of a rounded MIDI note number.
func PitchClass(midi int) int {
	pc := midi % 12
	if pc < 0 {
		pc += 12
	}
	return pc
}
