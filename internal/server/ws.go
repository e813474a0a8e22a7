package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/coder/websocket"
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/ThetaZillaClub/smSynth-sub002/internal/capture"
	"github.com/ThetaZillaClub/smSynth-sub002/internal/music"
	"github.com/ThetaZillaClub/smSynth-sub002/internal/observe"
	"github.com/ThetaZillaClub/smSynth-sub002/internal/score"
	"github.com/ThetaZillaClub/smSynth-sub002/internal/session"
	"github.com/ThetaZillaClub/smSynth-sub002/internal/store"
)

// wsFrame is the envelope for every capture websocket message, both
// directions. Type selects which fields are meaningful.
type wsFrame struct {
	Type string `json:"type"`

	// pitch / gesture frames
	T    float64 `json:"t,omitempty"`
	Hz   float64 `json:"hz,omitempty"`
	Conf float64 `json:"conf,omitempty"`

	// start frame
	Phrase            *music.Phrase `json:"phrase,omitempty"`
	MelodyOnsets      []float64     `json:"melodyOnsets,omitempty"`
	LineOnsets        []float64     `json:"lineOnsets,omitempty"`
	TimingFree        bool          `json:"timingFree,omitempty"`
	EvaluateIntervals bool          `json:"evaluateIntervals,omitempty"`
	LeadInSec         float64       `json:"leadInSec,omitempty"`
	A4Hz              float64       `json:"a4Hz,omitempty"`
	PitchLagMs        float64       `json:"pitchLagMs,omitempty"`
	GestureLagMs      float64       `json:"gestureLagMs,omitempty"`

	// submit frame
	SessionID string `json:"sessionId,omitempty"`
	Course    string `json:"course,omitempty"`
	Lesson    string `json:"lesson,omitempty"`

	// server to client
	OK       bool             `json:"ok,omitempty"`
	Phase    string           `json:"phase,omitempty"`
	Score    *score.TakeScore `json:"score,omitempty"`
	ResultID string           `json:"resultId,omitempty"`
	Error    string           `json:"error,omitempty"`
}

const wsSessionTimeout = 30 * time.Minute

// handleCaptureWS runs the live capture protocol for one session: the client
// streams pitch and gesture frames and drives the take lifecycle with
// start / record / stop / submit control frames.
func (s *Server) handleCaptureWS(c echo.Context) error {
	uid := userID(c)
	log := observe.Logger(c.Request().Context()).With(slog.String("uid", uid))

	conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusInternalError, "capture session aborted")

	ctx, cancel := context.WithTimeout(c.Request().Context(), wsSessionTimeout)
	defer cancel()

	s.metrics.ActiveCaptures.Add(ctx, 1)
	defer s.metrics.ActiveCaptures.Add(context.Background(), -1)

	var (
		sess       *session.Session
		timingFree bool
	)
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			log.Debug("capture socket closed", slog.String("reason", err.Error()))
			return nil
		}
		var frame wsFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			s.wsReply(ctx, conn, wsFrame{Type: "error", Error: "malformed frame"})
			continue
		}

		switch frame.Type {
		case "pitch":
			if sess == nil {
				continue
			}
			sess.Samples().Append(capture.PitchSample{TSec: frame.T, Hz: frame.Hz, Conf: frame.Conf})
			s.metrics.CaptureFrames.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", "pitch")))

		case "gesture":
			if sess == nil {
				continue
			}
			sess.Events().Append(capture.GestureEvent{TSec: frame.T})
			s.metrics.CaptureFrames.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", "gesture")))

		case "start":
			var startErr error
			sess, startErr = s.startTake(sess, uid, frame)
			if startErr != nil {
				s.wsReply(ctx, conn, wsFrame{Type: "error", Error: startErr.Error()})
				continue
			}
			timingFree = frame.TimingFree
			s.wsReply(ctx, conn, wsFrame{Type: "phase", OK: true, Phase: string(session.PhaseLeadIn)})

		case "record":
			if sess == nil {
				s.wsReply(ctx, conn, wsFrame{Type: "error", Error: "no active session"})
				continue
			}
			if err := sess.BeginRecord(); err != nil {
				s.wsReply(ctx, conn, wsFrame{Type: "error", Error: err.Error()})
				continue
			}
			s.wsReply(ctx, conn, wsFrame{Type: "phase", OK: true, Phase: string(session.PhaseRecord)})

		case "stop":
			if sess == nil {
				s.wsReply(ctx, conn, wsFrame{Type: "error", Error: "no active session"})
				continue
			}
			start := time.Now()
			ts, err := sess.EndRecord()
			if err != nil {
				s.wsReply(ctx, conn, wsFrame{Type: "error", Error: err.Error()})
				continue
			}
			s.metrics.ScoreDuration.Record(ctx, time.Since(start).Seconds())
			mode := "timed"
			if timingFree {
				mode = "timing_free"
			}
			s.metrics.TakesScored.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", mode)))
			rounded := ts.Rounded()
			s.wsReply(ctx, conn, wsFrame{Type: "take", OK: true, Score: &rounded})

		case "submit":
			if sess == nil {
				s.wsReply(ctx, conn, wsFrame{Type: "error", Error: "no active session"})
				continue
			}
			if s.store == nil {
				s.wsReply(ctx, conn, wsFrame{Type: "error", Error: "persistence disabled"})
				continue
			}
			if uid == "" {
				s.wsReply(ctx, conn, wsFrame{Type: "error", Error: "missing user identity"})
				continue
			}
			sub := &storeSubmitter{
				store:     s.store,
				uid:       uid,
				course:    frame.Course,
				lesson:    frame.Lesson,
				sessionID: frame.SessionID,
			}
			agg, id, err := sess.Submit(ctx, sub)
			if err != nil {
				rounded := agg.Rounded()
				s.wsReply(ctx, conn, wsFrame{Type: "submitted", Score: &rounded, Error: err.Error()})
				continue
			}
			if frame.SessionID != "" {
				s.sessions.Release(frame.SessionID)
			}
			rounded := agg.Rounded()
			s.wsReply(ctx, conn, wsFrame{Type: "submitted", OK: true, Score: &rounded, ResultID: id})

		case "close":
			conn.Close(websocket.StatusNormalClosure, "session closed")
			return nil

		default:
			s.wsReply(ctx, conn, wsFrame{Type: "error", Error: "unknown frame type"})
		}
	}
}

// startTake builds the session on the first start frame and reuses it for
// later takes so the aggregate spans the whole exercise. When the frame
// carries a session ID the session is registered with the manager, so a
// reconnecting socket reattaches instead of losing its takes. Scoring
// options are read from the tunables registry when the session is created.
func (s *Server) startTake(sess *session.Session, uid string, frame wsFrame) (*session.Session, error) {
	opts := score.Options{}
	if s.tunables != nil {
		sc := s.tunables.Get()
		opts = score.Options{
			ConfMin:      sc.ConfMin,
			CentsOk:      sc.CentsOk,
			OnsetGraceMs: sc.OnsetGraceMs,
			MaxAlignMs:   sc.MaxAlignMs,
		}
	}
	if frame.TimingFree {
		opts = score.TimingFreeOptions()
	}

	if sess == nil {
		cfg := session.Config{
			LeadInSec: frame.LeadInSec,
			A4Hz:      frame.A4Hz,
			AlignOpts: capture.AlignOptions{
				PitchLag:       frame.PitchLagMs,
				GestureLag:     frame.GestureLagMs,
				Unit:           capture.UnitMillis,
				KeepPreRollSec: s.cfg.Capture.KeepPreRollSec,
				TailGuardSec:   s.cfg.Capture.TailGuardSec,
			},
			ScoreOpts:         opts,
			MaxSamples:        s.cfg.Capture.MaxBufferSamples,
			MaxEvents:         s.cfg.Capture.MaxBufferEvents,
			EvaluateIntervals: frame.EvaluateIntervals,
		}
		if frame.SessionID != "" {
			var err error
			if sess, err = s.sessions.Create(frame.SessionID, uid, cfg); err != nil {
				return nil, err
			}
		} else {
			sess = session.New(cfg)
		}
	}
	if err := sess.StartLeadIn(frame.Phrase, frame.MelodyOnsets, frame.LineOnsets); err != nil {
		return sess, err
	}
	return sess, nil
}

func (s *Server) wsReply(ctx context.Context, conn *websocket.Conn, frame wsFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		slog.Debug("capture reply write failed", slog.String("error", err.Error()))
	}
}

// storeSubmitter adapts the store to the session submission interface.
type storeSubmitter struct {
	store     *store.Store
	uid       string
	course    string
	lesson    string
	sessionID string
}

func (ss *storeSubmitter) Submit(ctx context.Context, aggregate score.TakeScore) (string, error) {
	id, err := ss.store.InsertResult(ctx, store.Result{
		UID:         ss.uid,
		Course:      ss.course,
		Lesson:      ss.lesson,
		SessionID:   ss.sessionID,
		IsAggregate: true,
		Score:       aggregate,
	})
	if err != nil {
		return "", err
	}
	day := time.Now().UTC().Truncate(24 * time.Hour)
	if err := ss.store.UpsertBest(ctx, ss.uid, poolKey(ss.course, ss.lesson), day, aggregate); err != nil {
		return id, err
	}
	return id, nil
}
