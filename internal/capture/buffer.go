package capture

import "sync"

// defaultMaxSamples bounds a sample buffer to roughly two minutes of frames
// at a 50 Hz detection rate.
const defaultMaxSamples = 6000

// defaultMaxEvents bounds a gesture buffer generously; gestures arrive at
// human tapping rates.
const defaultMaxEvents = 2048

// SampleBuffer accumulates pitch samples from the detection producer. It is
// safe for concurrent use. When full, the oldest samples are evicted so the
// buffer always holds the most recent window.
type SampleBuffer struct {
	mu      sync.Mutex
	samples []PitchSample
	max     int
}

// NewSampleBuffer creates a buffer retaining at most max samples. max <= 0
// selects the default bound.
func NewSampleBuffer(max int) *SampleBuffer {
	if max <= 0 {
		max = defaultMaxSamples
	}
	return &SampleBuffer{samples: make([]PitchSample, 0, max), max: max}
}

// Append adds a sample, evicting from the front when the bound is exceeded.
func (b *SampleBuffer) Append(s PitchSample) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.samples = append(b.samples, s)
	if len(b.samples) > b.max {
		over := len(b.samples) - b.max
		b.samples = append(b.samples[:0], b.samples[over:]...)
	}
}

// Snapshot returns an immutable copy of the current contents. The producer
// may keep appending after the call without affecting the returned slice.
func (b *SampleBuffer) Snapshot() []PitchSample {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]PitchSample, len(b.samples))
	copy(out, b.samples)
	return out
}

// Reset discards all buffered samples, starting a fresh take.
func (b *SampleBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.samples = b.samples[:0]
}

// Len returns the current number of buffered samples.
func (b *SampleBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.samples)
}

// EventBuffer accumulates gesture events from the hand-tracking producer.
// Same discipline as [SampleBuffer].
type EventBuffer struct {
	mu     sync.Mutex
	events []GestureEvent
	max    int
}

// NewEventBuffer creates a buffer retaining at most max events. max <= 0
// selects the default bound.
func NewEventBuffer(max int) *EventBuffer {
	if max <= 0 {
		max = defaultMaxEvents
	}
	return &EventBuffer{events: make([]GestureEvent, 0, max), max: max}
}

// Append adds an event, evicting from the front when the bound is exceeded.
func (b *EventBuffer) Append(e GestureEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
	if len(b.events) > b.max {
		over := len(b.events) - b.max
		b.events = append(b.events[:0], b.events[over:]...)
	}
}

// Snapshot returns an immutable copy of the current contents.
func (b *EventBuffer) Snapshot() []GestureEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]GestureEvent, len(b.events))
	copy(out, b.events)
	return out
}

// Reset discards all buffered events.
func (b *EventBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = b.events[:0]
}

// Len returns the current number of buffered events.
func (b *EventBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}
