// Package store provides the PostgreSQL persistence layer for lesson
// results, per-day bests, player ratings, and the append-only rating audit
// log. All tables are created idempotently by [Migrate] on startup.
//
// The scoring pipeline never depends on this package succeeding: submission
// failures are logged and surfaced as non-fatal warnings, and the in-session
// score stays available to the caller.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlLessonResults = `
CREATE TABLE IF NOT EXISTS lesson_results (
    id            TEXT         PRIMARY KEY,
    uid           TEXT         NOT NULL,
    course        TEXT         NOT NULL,
    lesson        TEXT         NOT NULL,
    session_id    TEXT         NOT NULL DEFAULT '',
    is_aggregate  BOOLEAN      NOT NULL DEFAULT FALSE,
    final_percent NUMERIC(5,2) NOT NULL,
    final_letter  TEXT         NOT NULL,
    score         JSONB        NOT NULL,
    snapshots     JSONB,
    created_at    TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_lesson_results_uid
    ON lesson_results (uid);

CREATE INDEX IF NOT EXISTS idx_lesson_results_lesson
    ON lesson_results (course, lesson, created_at);
`

const ddlLessonBests = `
CREATE TABLE IF NOT EXISTS lesson_bests (
    uid           TEXT         NOT NULL,
    pool          TEXT         NOT NULL,
    day           DATE         NOT NULL,
    final_percent NUMERIC(5,2) NOT NULL,
    score         JSONB        NOT NULL,
    updated_at    TIMESTAMPTZ  NOT NULL DEFAULT now(),
    PRIMARY KEY (uid, pool, day)
);

CREATE INDEX IF NOT EXISTS idx_lesson_bests_pool_day
    ON lesson_bests (pool, day);
`

const ddlPlayerRatings = `
CREATE TABLE IF NOT EXISTS player_ratings (
    uid        TEXT             NOT NULL,
    pool       TEXT             NOT NULL,
    rating     DOUBLE PRECISION NOT NULL,
    rd         DOUBLE PRECISION NOT NULL,
    vol        DOUBLE PRECISION NOT NULL,
    updated_at TIMESTAMPTZ      NOT NULL DEFAULT now(),
    PRIMARY KEY (uid, pool)
);
`

const ddlRatingEvents = `
CREATE TABLE IF NOT EXISTS rating_events (
    id            BIGSERIAL        PRIMARY KEY,
    pool          TEXT             NOT NULL,
    period_start  TIMESTAMPTZ      NOT NULL,
    period_end    TIMESTAMPTZ      NOT NULL,
    uid           TEXT             NOT NULL,
    rating_before DOUBLE PRECISION NOT NULL,
    rd_before     DOUBLE PRECISION NOT NULL,
    vol_before    DOUBLE PRECISION NOT NULL,
    rating_after  DOUBLE PRECISION NOT NULL,
    rd_after      DOUBLE PRECISION NOT NULL,
    vol_after     DOUBLE PRECISION NOT NULL,
    opponents     JSONB            NOT NULL,
    created_at    TIMESTAMPTZ      NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_rating_events_pool_uid
    ON rating_events (pool, uid, created_at);
`

// Migrate creates all required tables and indexes. Safe to run repeatedly.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, ddl := range []string{ddlLessonResults, ddlLessonBests, ddlPlayerRatings, ddlRatingEvents} {
		if _, err := pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("store: migrate: %w", err)
		}
	}
	return nil
}
