package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ThetaZillaClub/smSynth-sub002/internal/rating"
	"github.com/ThetaZillaClub/smSynth-sub002/internal/resilience"
	"github.com/ThetaZillaClub/smSynth-sub002/internal/score"
)

// Store is the PostgreSQL-backed results store. It holds a single
// [pgxpool.Pool]; all operations are safe for concurrent use.
//
// Queries run behind a circuit breaker so that a down database makes
// requests fail fast instead of queuing on the pool. [Store.Ping] bypasses
// the breaker; the readiness probe should always see the real state.
type Store struct {
	pool    *pgxpool.Pool
	breaker *resilience.Breaker
}

// New creates a Store, establishes a connection pool to the database at dsn,
// and runs [Migrate] to ensure all required tables exist.
func New(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("store: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &Store{
		pool:    pool,
		breaker: resilience.NewBreaker(resilience.BreakerConfig{Name: "postgres"}),
	}, nil
}

// Close releases all connections held by the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping verifies database connectivity. Used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Result is one submitted lesson result row.
type Result struct {
	UID         string
	Course      string
	Lesson      string
	SessionID   string
	IsAggregate bool
	Score       score.TakeScore
	Snapshots   json.RawMessage
}

// InsertResult persists r and returns the generated result ID.
func (s *Store) InsertResult(ctx context.Context, r Result) (string, error) {
	id := uuid.NewString()
	scoreJSON, err := json.Marshal(r.Score)
	if err != nil {
		return "", fmt.Errorf("store: marshal score: %w", err)
	}

	var snapshots any
	if len(r.Snapshots) > 0 {
		snapshots = r.Snapshots
	}

	err = s.breaker.Do(ctx, func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO lesson_results
				(id, uid, course, lesson, session_id, is_aggregate, final_percent, final_letter, score, snapshots)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			id, r.UID, r.Course, r.Lesson, r.SessionID, r.IsAggregate,
			r.Score.Final.Percent, r.Score.Final.Letter, scoreJSON, snapshots,
		)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("store: insert result: %w", err)
	}
	return id, nil
}

// UpsertBest records ts as the player's best for (uid, pool, day) when it
// beats the stored one. Earlier equal or better rows win ties, matching the
// aggregator's first-occurrence rule.
func (s *Store) UpsertBest(ctx context.Context, uid, pool string, day time.Time, ts score.TakeScore) error {
	scoreJSON, err := json.Marshal(ts)
	if err != nil {
		return fmt.Errorf("store: marshal score: %w", err)
	}

	err = s.breaker.Do(ctx, func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO lesson_bests (uid, pool, day, final_percent, score)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (uid, pool, day) DO UPDATE
				SET final_percent = EXCLUDED.final_percent,
				    score         = EXCLUDED.score,
				    updated_at    = now()
				WHERE EXCLUDED.final_percent > lesson_bests.final_percent`,
			uid, pool, day.UTC().Truncate(24*time.Hour), ts.Final.Percent, scoreJSON,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("store: upsert best: %w", err)
	}
	return nil
}

// Best is one row of a day's best-score pool.
type Best struct {
	UID          string  `json:"uid"`
	FinalPercent float64 `json:"finalPercent"`
}

// BestScoresForDay returns every player's best final percent in the pool for
// the given day, ordered by percent descending then UID.
func (s *Store) BestScoresForDay(ctx context.Context, pool string, day time.Time) ([]Best, error) {
	var out []Best
	err := s.breaker.Do(ctx, func(ctx context.Context) error {
		rows, err := s.pool.Query(ctx, `
			SELECT uid, final_percent
			FROM lesson_bests
			WHERE pool = $1 AND day = $2
			ORDER BY final_percent DESC, uid`,
			pool, day.UTC().Truncate(24*time.Hour),
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var b Best
			if err := rows.Scan(&b.UID, &b.FinalPercent); err != nil {
				return err
			}
			out = append(out, b)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("store: best scores: %w", err)
	}
	return out, nil
}

// GetRating returns the player's rating in the pool, or the baseline when
// the player has never been rated there.
func (s *Store) GetRating(ctx context.Context, uid, pool string) (rating.Rating, error) {
	var r rating.Rating
	err := s.breaker.Do(ctx, func(ctx context.Context) error {
		err := s.pool.QueryRow(ctx, `
			SELECT rating, rd, vol FROM player_ratings WHERE uid = $1 AND pool = $2`,
			uid, pool,
		).Scan(&r.Rating, &r.RD, &r.Vol)
		if isNoRows(err) {
			// An unrated player starts at the baseline.
			r = rating.Baseline()
			return nil
		}
		return err
	})
	if err != nil {
		return rating.Rating{}, fmt.Errorf("store: get rating: %w", err)
	}
	return r, nil
}

// PutRating upserts the player's rating row for the pool.
func (s *Store) PutRating(ctx context.Context, uid, pool string, r rating.Rating) error {
	err := s.breaker.Do(ctx, func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO player_ratings (uid, pool, rating, rd, vol)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (uid, pool) DO UPDATE
				SET rating = EXCLUDED.rating,
				    rd = EXCLUDED.rd,
				    vol = EXCLUDED.vol,
				    updated_at = now()`,
			uid, pool, r.Rating, r.RD, r.Vol,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("store: put rating: %w", err)
	}
	return nil
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// AppendRatingEvent writes one audit row for a completed rating update.
func (s *Store) AppendRatingEvent(ctx context.Context, ev rating.Event) error {
	opponents, err := json.Marshal(ev.Opponents)
	if err != nil {
		return fmt.Errorf("store: marshal opponents: %w", err)
	}

	err = s.breaker.Do(ctx, func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO rating_events
				(pool, period_start, period_end, uid,
				 rating_before, rd_before, vol_before,
				 rating_after, rd_after, vol_after, opponents)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			ev.Pool, ev.PeriodStart, ev.PeriodEnd, ev.UID,
			ev.Before.Rating, ev.Before.RD, ev.Before.Vol,
			ev.After.Rating, ev.After.RD, ev.After.Vol, opponents,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("store: append rating event: %w", err)
	}
	return nil
}
