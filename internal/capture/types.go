// Package capture holds the in-memory buffers fed by the pitch-detection and
// hand-gesture producers, and the alignment layer that rebases raw capture
// timestamps into phrase-relative time.
//
// Producers append concurrently; the scoring pipeline takes an immutable
// snapshot at the record-to-rest transition and works on the copy. The core
// algorithms downstream are pure functions over those snapshots.
package capture

import "math"

// PitchSample is one pitch-detection frame. Hz <= 0 or NaN marks an unvoiced
// frame, as does a confidence below the caller's threshold.
type PitchSample struct {
	TSec float64 `json:"tSec"`
	Hz   float64 `json:"hz"`
	Conf float64 `json:"conf"`
}

// Voiced reports whether the sample carries a usable pitch at the given
// confidence threshold.
func (s PitchSample) Voiced(confMin float64) bool {
	return s.Hz > 0 && !math.IsNaN(s.Hz) && !math.IsInf(s.Hz, 0) && s.Conf >= confMin
}

// GestureEvent marks one detected beat (e.g. a clap onset). The producer has
// already compensated for its own detection latency.
type GestureEvent struct {
	TSec float64 `json:"tSec"`
}
