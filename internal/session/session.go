// Package session owns the take lifecycle for one exercise session: phrase
// content freezes at lead-in, capture buffers accumulate during the record
// window, the scorer consumes a buffer snapshot at the record-to-rest
// transition, and the session aggregate is handed to a submitter when the
// session ends.
//
// A submission failure never fails the session: the aggregate stays
// available in memory and the error is surfaced as a warning.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThetaZillaClub/smSynth-sub002/internal/capture"
	"github.com/ThetaZillaClub/smSynth-sub002/internal/music"
	"github.com/ThetaZillaClub/smSynth-sub002/internal/score"
)

// Phase is the take state machine position.
type Phase string

const (
	PhaseIdle   Phase = "idle"
	PhaseLeadIn Phase = "lead_in"
	PhaseRecord Phase = "record"
	PhaseRest   Phase = "rest"
)

// ErrBadTransition is returned when a lifecycle call arrives in the wrong phase.
var ErrBadTransition = errors.New("session: invalid phase transition")

// ErrNoPhrase is returned when recording starts without frozen phrase content.
var ErrNoPhrase = errors.New("session: no phrase frozen")

// Submitter persists one session aggregate. Implemented by the server layer
// over the results store.
type Submitter interface {
	Submit(ctx context.Context, aggregate score.TakeScore) (resultID string, err error)
}

// Config holds the per-session scoring setup, fixed at session creation.
type Config struct {
	LeadInSec  float64
	A4Hz       float64
	AlignOpts  capture.AlignOptions
	ScoreOpts  score.Options
	MaxSamples int
	MaxEvents  int

	// EvaluateIntervals treats phrase notes as interval-drill pairs.
	EvaluateIntervals bool
}

// Session drives one student's exercise session through its takes.
// All exported methods are safe for concurrent use.
type Session struct {
	mu    sync.Mutex
	phase Phase
	cfg   Config

	// Content frozen at lead-in; immutable for the lifetime of a take.
	phrase       *music.Phrase
	melodyOnsets []float64
	lineOnsets   []float64

	samples *capture.SampleBuffer
	events  *capture.EventBuffer

	takes []score.TakeScore
}

// New creates an idle session with empty capture buffers.
func New(cfg Config) *Session {
	return &Session{
		phase:   PhaseIdle,
		cfg:     cfg,
		samples: capture.NewSampleBuffer(cfg.MaxSamples),
		events:  capture.NewEventBuffer(cfg.MaxEvents),
	}
}

// Phase returns the current lifecycle phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Samples returns the live pitch-sample buffer for producers to append to.
func (s *Session) Samples() *capture.SampleBuffer { return s.samples }

// Events returns the live gesture-event buffer for producers to append to.
func (s *Session) Events() *capture.EventBuffer { return s.events }

// StartLeadIn freezes the phrase content for the next take and enters the
// lead-in count. melodyOnsets may be nil, in which case the phrase's own
// note onsets are used. lineOnsets may be nil when the exercise has no
// rhythm line. Valid from idle or rest.
func (s *Session) StartLeadIn(phrase *music.Phrase, melodyOnsets, lineOnsets []float64) error {
	if phrase == nil {
		return ErrNoPhrase
	}
	if err := phrase.Validate(); err != nil {
		return fmt.Errorf("session: freeze phrase: %w", err)
	}
	if len(melodyOnsets) == 0 {
		melodyOnsets = phrase.Onsets()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseIdle && s.phase != PhaseRest {
		return fmt.Errorf("%w: lead-in from %q", ErrBadTransition, s.phase)
	}
	s.phrase = phrase
	s.melodyOnsets = melodyOnsets
	s.lineOnsets = lineOnsets
	s.phase = PhaseLeadIn

	// Fresh buffers for the new take; the producers keep writing into these.
	s.samples.Reset()
	s.events.Reset()
	return nil
}

// BeginRecord transitions lead-in to record.
func (s *Session) BeginRecord() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseLeadIn {
		return fmt.Errorf("%w: record from %q", ErrBadTransition, s.phase)
	}
	s.phase = PhaseRecord
	return nil
}

// EndRecord transitions record to rest and scores the take from a snapshot of
// the capture buffers. The returned TakeScore is read-only from here on.
func (s *Session) EndRecord() (score.TakeScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseRecord {
		return score.TakeScore{}, fmt.Errorf("%w: rest from %q", ErrBadTransition, s.phase)
	}

	rawSamples := s.samples.Snapshot()
	rawEvents := s.events.Snapshot()

	var ts score.TakeScore
	if s.cfg.ScoreOpts.TimingFree {
		aligned, window := capture.AlignTimingFree(rawSamples, s.cfg.ScoreOpts.ConfMin)
		sustain := sustainPhrase(s.phrase, window)
		ts = score.ComputeTakeScore(score.TakeInput{
			Phrase:  sustain,
			A4Hz:    s.cfg.A4Hz,
			Samples: aligned,
			Options: s.cfg.ScoreOpts,
		})
	} else {
		alignOpts := s.cfg.AlignOpts
		if alignOpts.ClipAboveSec == 0 && alignOpts.PhraseLengthSec == 0 {
			alignOpts.PhraseLengthSec = s.phrase.DurationSec
		}
		samples, events := capture.Align(rawSamples, rawEvents, s.cfg.LeadInSec, alignOpts)
		ts = score.ComputeTakeScore(score.TakeInput{
			Phrase:              s.phrase,
			A4Hz:                s.cfg.A4Hz,
			Samples:             samples,
			Gestures:            events,
			MelodyOnsetsSec:     s.melodyOnsets,
			RhythmLineOnsetsSec: s.lineOnsets,
			EvaluateIntervals:   s.cfg.EvaluateIntervals,
			Options:             s.cfg.ScoreOpts,
		})
	}

	s.takes = append(s.takes, ts)
	s.phase = PhaseRest
	return ts, nil
}

// sustainPhrase restretches a single-note phrase over the voiced window so a
// sustain exercise is graded over what the student actually held.
func sustainPhrase(p *music.Phrase, w capture.VoicedWindow) *music.Phrase {
	if p == nil || len(p.Notes) == 0 {
		return p
	}
	dur := w.EndSec - w.StartSec
	return &music.Phrase{
		DurationSec: dur,
		Notes: []music.Note{{
			Midi:     p.Notes[0].Midi,
			StartSec: 0,
			DurSec:   dur,
		}},
	}
}

// Takes returns a copy of all scored takes so far.
func (s *Session) Takes() []score.TakeScore {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]score.TakeScore, len(s.takes))
	copy(out, s.takes)
	return out
}

// Aggregate reduces the session's takes to the submission aggregate.
// Returns false when no takes have been scored.
func (s *Session) Aggregate() (score.TakeScore, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return score.AggregateForSubmission(s.takes)
}

// Submit aggregates and hands the result to sub. A persistence failure is
// logged and returned, but the aggregate remains valid and available; the
// caller should still show the score to the user.
func (s *Session) Submit(ctx context.Context, sub Submitter) (score.TakeScore, string, error) {
	agg, ok := s.Aggregate()
	if !ok {
		return score.TakeScore{}, "", errors.New("session: no takes to submit")
	}
	id, err := sub.Submit(ctx, agg.Rounded())
	if err != nil {
		slog.Warn("session: submission failed; score retained in memory", "err", err)
		return agg, "", fmt.Errorf("session: submit: %w", err)
	}
	return agg, id, nil
}
