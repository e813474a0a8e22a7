package session_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ThetaZillaClub/smSynth-sub002/internal/capture"
	"github.com/ThetaZillaClub/smSynth-sub002/internal/music"
	"github.com/ThetaZillaClub/smSynth-sub002/internal/score"
	"github.com/ThetaZillaClub/smSynth-sub002/internal/session"
)

func testPhrase() *music.Phrase {
	return &music.Phrase{
		DurationSec: 1,
		Notes:       []music.Note{{Midi: 69, StartSec: 0, DurSec: 1}},
	}
}

// feed streams a clean A4 into the session's pitch buffer over the phrase
// window, offset by the lead-in.
func feed(s *session.Session, leadIn float64) {
	for t := 0.0; t < 1.0; t += 0.02 {
		s.Samples().Append(capture.PitchSample{TSec: leadIn + t, Hz: 440, Conf: 0.9})
	}
}

func newSession() *session.Session {
	return session.New(session.Config{LeadInSec: 2, A4Hz: 440})
}

func TestSession_FullTakeLifecycle(t *testing.T) {
	t.Parallel()
	s := newSession()
	if got := s.Phase(); got != session.PhaseIdle {
		t.Fatalf("new session should be idle, got %q", got)
	}

	if err := s.StartLeadIn(testPhrase(), []float64{0}, nil); err != nil {
		t.Fatalf("StartLeadIn: %v", err)
	}
	if got := s.Phase(); got != session.PhaseLeadIn {
		t.Fatalf("phase = %q, want lead_in", got)
	}

	if err := s.BeginRecord(); err != nil {
		t.Fatalf("BeginRecord: %v", err)
	}
	feed(s, 2)
	s.Events().Append(capture.GestureEvent{TSec: 2.02})

	ts, err := s.EndRecord()
	if err != nil {
		t.Fatalf("EndRecord: %v", err)
	}
	if got := s.Phase(); got != session.PhaseRest {
		t.Fatalf("phase after scoring = %q, want rest", got)
	}
	if ts.Pitch.Percent < 99 {
		t.Errorf("clean A4 should score ~100 pitch, got %v", ts.Pitch.Percent)
	}
	if ts.Rhythm.MelodyHitRate != 1 {
		t.Errorf("gesture near the onset should hit, got %v", ts.Rhythm.MelodyHitRate)
	}
	if len(s.Takes()) != 1 {
		t.Errorf("session should hold 1 take, got %d", len(s.Takes()))
	}
}

func TestSession_MelodyOnsetsDefaultToPhrase(t *testing.T) {
	t.Parallel()
	s := newSession()
	p := &music.Phrase{
		DurationSec: 1,
		Notes: []music.Note{
			{Midi: 69, StartSec: 0, DurSec: 0.5},
			{Midi: 69, StartSec: 0.5, DurSec: 0.5},
		},
	}
	if err := s.StartLeadIn(p, nil, nil); err != nil {
		t.Fatalf("StartLeadIn: %v", err)
	}
	if err := s.BeginRecord(); err != nil {
		t.Fatalf("BeginRecord: %v", err)
	}
	feed(s, 2)
	s.Events().Append(capture.GestureEvent{TSec: 2.01})
	s.Events().Append(capture.GestureEvent{TSec: 2.51})

	ts, err := s.EndRecord()
	if err != nil {
		t.Fatalf("EndRecord: %v", err)
	}
	if ts.Rhythm.MelodyHitRate != 1 {
		t.Errorf("gestures at both note starts should hit the derived onsets, got %v", ts.Rhythm.MelodyHitRate)
	}
	if ts.Rhythm.MelodyPercent < 99 {
		t.Errorf("near-perfect taps should score ~100 melody rhythm, got %v", ts.Rhythm.MelodyPercent)
	}
}

func TestSession_BadTransitions(t *testing.T) {
	t.Parallel()
	s := newSession()
	if err := s.BeginRecord(); !errors.Is(err, session.ErrBadTransition) {
		t.Errorf("record from idle should fail with ErrBadTransition, got %v", err)
	}
	if _, err := s.EndRecord(); !errors.Is(err, session.ErrBadTransition) {
		t.Errorf("rest from idle should fail with ErrBadTransition, got %v", err)
	}
	if err := s.StartLeadIn(nil, nil, nil); !errors.Is(err, session.ErrNoPhrase) {
		t.Errorf("nil phrase should fail with ErrNoPhrase, got %v", err)
	}

	if err := s.StartLeadIn(testPhrase(), []float64{0}, nil); err != nil {
		t.Fatalf("StartLeadIn: %v", err)
	}
	if err := s.StartLeadIn(testPhrase(), []float64{0}, nil); !errors.Is(err, session.ErrBadTransition) {
		t.Errorf("lead-in from lead-in should fail, got %v", err)
	}
}

func TestSession_BuffersResetBetweenTakes(t *testing.T) {
	t.Parallel()
	s := newSession()
	if err := s.StartLeadIn(testPhrase(), []float64{0}, nil); err != nil {
		t.Fatalf("StartLeadIn: %v", err)
	}
	if err := s.BeginRecord(); err != nil {
		t.Fatalf("BeginRecord: %v", err)
	}
	feed(s, 2)
	if _, err := s.EndRecord(); err != nil {
		t.Fatalf("EndRecord: %v", err)
	}

	// Second take from rest; old samples must not leak in.
	if err := s.StartLeadIn(testPhrase(), []float64{0}, nil); err != nil {
		t.Fatalf("second StartLeadIn: %v", err)
	}
	if got := s.Samples().Len(); got != 0 {
		t.Errorf("samples should be reset at lead-in, got %d", got)
	}
	if err := s.BeginRecord(); err != nil {
		t.Fatalf("second BeginRecord: %v", err)
	}
	if _, err := s.EndRecord(); err != nil {
		t.Fatalf("second EndRecord: %v", err)
	}
	if got := len(s.Takes()); got != 2 {
		t.Errorf("session should hold 2 takes, got %d", got)
	}
}

func TestSession_AggregatePicksBestTake(t *testing.T) {
	t.Parallel()
	s := newSession()

	run := func(sing bool) {
		if err := s.StartLeadIn(testPhrase(), []float64{0}, nil); err != nil {
			t.Fatalf("StartLeadIn: %v", err)
		}
		if err := s.BeginRecord(); err != nil {
			t.Fatalf("BeginRecord: %v", err)
		}
		if sing {
			feed(s, 2)
		}
		if _, err := s.EndRecord(); err != nil {
			t.Fatalf("EndRecord: %v", err)
		}
	}
	run(false) // silent take
	run(true)  // good take

	agg, ok := s.Aggregate()
	if !ok {
		t.Fatal("aggregate should exist after two takes")
	}
	takes := s.Takes()
	if agg.Final.Percent != takes[1].Final.Percent {
		t.Errorf("aggregate should carry the better take, got %v want %v",
			agg.Final.Percent, takes[1].Final.Percent)
	}
}

type fakeSubmitter struct {
	got  *score.TakeScore
	fail bool
}

func (f *fakeSubmitter) Submit(_ context.Context, agg score.TakeScore) (string, error) {
	if f.fail {
		return "", errors.New("database down")
	}
	f.got = &agg
	return "result-1", nil
}

func TestSession_Submit(t *testing.T) {
	t.Parallel()
	s := newSession()
	if err := s.StartLeadIn(testPhrase(), []float64{0}, nil); err != nil {
		t.Fatalf("StartLeadIn: %v", err)
	}
	if err := s.BeginRecord(); err != nil {
		t.Fatalf("BeginRecord: %v", err)
	}
	feed(s, 2)
	if _, err := s.EndRecord(); err != nil {
		t.Fatalf("EndRecord: %v", err)
	}

	sub := &fakeSubmitter{}
	_, id, err := s.Submit(context.Background(), sub)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if id != "result-1" {
		t.Errorf("result ID = %q, want result-1", id)
	}
	if sub.got == nil {
		t.Fatal("submitter never received the aggregate")
	}
}

func TestSession_SubmitFailureRetainsScore(t *testing.T) {
	t.Parallel()
	s := newSession()
	if err := s.StartLeadIn(testPhrase(), []float64{0}, nil); err != nil {
		t.Fatalf("StartLeadIn: %v", err)
	}
	if err := s.BeginRecord(); err != nil {
		t.Fatalf("BeginRecord: %v", err)
	}
	feed(s, 2)
	if _, err := s.EndRecord(); err != nil {
		t.Fatalf("EndRecord: %v", err)
	}

	agg, _, err := s.Submit(context.Background(), &fakeSubmitter{fail: true})
	if err == nil {
		t.Fatal("a failing submitter should surface the error")
	}
	if agg.Pitch.Percent < 99 {
		t.Errorf("the aggregate must stay available after a failed submit, got %+v", agg.Final)
	}

	// The session still holds the takes for a retry.
	if _, ok := s.Aggregate(); !ok {
		t.Error("aggregate should remain after a failed submit")
	}
}

func TestSession_SubmitWithoutTakes(t *testing.T) {
	t.Parallel()
	s := newSession()
	if _, _, err := s.Submit(context.Background(), &fakeSubmitter{}); err == nil {
		t.Error("submitting with no takes should fail")
	}
}
