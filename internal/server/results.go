package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/ThetaZillaClub/smSynth-sub002/internal/observe"
	"github.com/ThetaZillaClub/smSynth-sub002/internal/rating"
	"github.com/ThetaZillaClub/smSynth-sub002/internal/score"
	"github.com/ThetaZillaClub/smSynth-sub002/internal/store"
)

type submitRequest struct {
	SessionID   string          `json:"sessionId"`
	IsAggregate bool            `json:"isAggregate"`
	Score       score.TakeScore `json:"score"`
	Snapshots   json.RawMessage `json:"snapshots,omitempty"`
}

type submitResponse struct {
	OK       bool   `json:"ok"`
	ResultID string `json:"resultId,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (s *Server) handleSubmitResults(c echo.Context) error {
	ctx := c.Request().Context()
	log := observe.Logger(ctx)

	if s.store == nil {
		return c.JSON(http.StatusServiceUnavailable, submitResponse{Error: "persistence disabled"})
	}
	uid := userID(c)
	if uid == "" {
		s.metrics.Submissions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "invalid")))
		return c.JSON(http.StatusUnauthorized, submitResponse{Error: "missing user identity"})
	}

	var req submitRequest
	if err := c.Bind(&req); err != nil {
		s.metrics.Submissions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "invalid")))
		return c.JSON(http.StatusBadRequest, submitResponse{Error: "malformed body"})
	}
	if !req.Score.Valid() {
		s.metrics.Submissions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "invalid")))
		return c.JSON(http.StatusUnprocessableEntity, submitResponse{Error: "score out of range"})
	}

	course := c.Param("course")
	lesson := c.Param("lesson")
	rounded := req.Score.Rounded()

	id, err := s.store.InsertResult(ctx, store.Result{
		UID:         uid,
		Course:      course,
		Lesson:      lesson,
		SessionID:   req.SessionID,
		IsAggregate: req.IsAggregate,
		Score:       rounded,
		Snapshots:   req.Snapshots,
	})
	if err != nil {
		log.Error("insert result failed", slog.String("error", err.Error()))
		s.metrics.Submissions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "error")))
		return c.JSON(http.StatusInternalServerError, submitResponse{Error: "storage failure"})
	}

	// Only full-session aggregates feed the daily best pool.
	if req.IsAggregate {
		day := time.Now().UTC().Truncate(24 * time.Hour)
		if err := s.store.UpsertBest(ctx, uid, poolKey(course, lesson), day, rounded); err != nil {
			log.Error("upsert daily best failed", slog.String("error", err.Error()))
			s.metrics.Submissions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "error")))
			return c.JSON(http.StatusInternalServerError, submitResponse{Error: "storage failure"})
		}
	}

	s.metrics.Submissions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "ok")))
	log.Info("result stored",
		slog.String("uid", uid),
		slog.String("course", course),
		slog.String("lesson", lesson),
		slog.Bool("aggregate", req.IsAggregate),
		slog.Float64("percent", rounded.Final.Percent))
	return c.JSON(http.StatusOK, submitResponse{OK: true, ResultID: id})
}

type leaderboardResponse struct {
	Pool    string       `json:"pool"`
	Day     string       `json:"day"`
	Entries []store.Best `json:"entries"`
}

func (s *Server) handleLeaderboard(c echo.Context) error {
	ctx := c.Request().Context()
	if s.store == nil {
		return c.JSON(http.StatusServiceUnavailable, submitResponse{Error: "persistence disabled"})
	}

	day := time.Now().UTC().Truncate(24 * time.Hour)
	if q := c.QueryParam("day"); q != "" {
		parsed, err := time.Parse("2006-01-02", q)
		if err != nil {
			return c.JSON(http.StatusBadRequest, submitResponse{Error: "day must be YYYY-MM-DD"})
		}
		day = parsed
	}

	pool := poolKey(c.Param("course"), c.Param("lesson"))
	bests, err := s.store.BestScoresForDay(ctx, pool, day)
	if err != nil {
		observe.Logger(ctx).Error("leaderboard query failed", slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, submitResponse{Error: "storage failure"})
	}
	if bests == nil {
		bests = []store.Best{}
	}
	return c.JSON(http.StatusOK, leaderboardResponse{
		Pool:    pool,
		Day:     day.Format("2006-01-02"),
		Entries: bests,
	})
}

type ratingResponse struct {
	OK        bool          `json:"ok"`
	Pool      string        `json:"pool"`
	Before    rating.Rating `json:"before"`
	After     rating.Rating `json:"after"`
	Opponents int           `json:"opponents"`
	Error     string        `json:"error,omitempty"`
}

// handleRatingUpdate recomputes the caller's Glicko-2 rating from the day's
// best-score pool. The update is one-sided: only the caller's row changes.
func (s *Server) handleRatingUpdate(c echo.Context) error {
	ctx := c.Request().Context()
	log := observe.Logger(ctx)
	start := time.Now()

	if s.store == nil {
		return c.JSON(http.StatusServiceUnavailable, ratingResponse{Error: "persistence disabled"})
	}
	uid := userID(c)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, ratingResponse{Error: "missing user identity"})
	}

	pool := poolKey(c.Param("course"), c.Param("lesson"))
	day := time.Now().UTC().Truncate(24 * time.Hour)

	bests, err := s.store.BestScoresForDay(ctx, pool, day)
	if err != nil {
		log.Error("rating pool query failed", slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, ratingResponse{Error: "storage failure"})
	}
	byUID := make(map[string]float64, len(bests))
	for _, b := range bests {
		byUID[b.UID] = b.FinalPercent
	}
	if _, ok := byUID[uid]; !ok {
		return c.JSON(http.StatusConflict, ratingResponse{Error: "no score in today's pool"})
	}

	var own []rating.PairOutcome
	for _, p := range rating.PairwiseFromScores(byUID) {
		if p.UID == uid {
			own = p.Opponents
			break
		}
	}

	before, err := s.store.GetRating(ctx, uid, pool)
	if err != nil {
		log.Error("rating lookup failed", slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, ratingResponse{Error: "storage failure"})
	}

	opponents := make([]rating.Opponent, 0, len(own))
	for _, o := range own {
		oppRating, err := s.store.GetRating(ctx, o.OppUID, pool)
		if err != nil {
			log.Error("opponent rating lookup failed",
				slog.String("opponent", o.OppUID), slog.String("error", err.Error()))
			return c.JSON(http.StatusInternalServerError, ratingResponse{Error: "storage failure"})
		}
		opponents = append(opponents, rating.Opponent{
			Rating:  oppRating.Rating,
			RD:      oppRating.RD,
			Outcome: o.Outcome,
		})
	}

	tau := s.cfg.Rating.Tau
	if tau <= 0 {
		tau = rating.DefaultTau
	}
	after := rating.UpdateTau(before, opponents, tau)
	if err := s.store.PutRating(ctx, uid, pool, after); err != nil {
		log.Error("rating write failed", slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, ratingResponse{Error: "storage failure"})
	}
	ev := rating.Event{
		Pool:        pool,
		PeriodStart: day,
		PeriodEnd:   day.Add(24 * time.Hour),
		UID:         uid,
		Before:      before,
		After:       after,
		Opponents:   own,
	}
	if err := s.store.AppendRatingEvent(ctx, ev); err != nil {
		// Audit trail only; the rating itself is already committed.
		log.Warn("rating event append failed", slog.String("error", err.Error()))
	}

	s.metrics.RatingUpdates.Add(ctx, 1)
	s.metrics.RatingDuration.Record(ctx, time.Since(start).Seconds())
	log.Info("rating updated",
		slog.String("uid", uid),
		slog.String("pool", pool),
		slog.Float64("before", before.Rating),
		slog.Float64("after", after.Rating),
		slog.Int("opponents", len(opponents)))
	return c.JSON(http.StatusOK, ratingResponse{
		OK:        true,
		Pool:      pool,
		Before:    before,
		After:     after,
		Opponents: len(opponents),
	})
}
