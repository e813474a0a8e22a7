// Package server exposes the HTTP API of the scoring service: result
// submission, the daily leaderboard, rating recomputes, phrase generation,
// and the websocket capture ingest that drives live take scoring.
package server

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ThetaZillaClub/smSynth-sub002/internal/config"
	"github.com/ThetaZillaClub/smSynth-sub002/internal/health"
	"github.com/ThetaZillaClub/smSynth-sub002/internal/observe"
	"github.com/ThetaZillaClub/smSynth-sub002/internal/session"
	"github.com/ThetaZillaClub/smSynth-sub002/internal/store"
)

// Server wires the HTTP API over the store and the scoring pipeline.
type Server struct {
	echo     *echo.Echo
	cfg      *config.Config
	store    *store.Store
	metrics  *observe.Metrics
	tunables *config.Tunables

	sessions *session.Manager
}

// New creates a Server with all routes mounted. store may be nil when
// persistence is disabled; submission endpoints then return 503.
func New(cfg *config.Config, st *store.Store, m *observe.Metrics, tun *config.Tunables) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(observe.Middleware(m))

	s := &Server{
		echo:     e,
		cfg:      cfg,
		store:    st,
		metrics:  m,
		tunables: tun,
		sessions: session.NewManager(0),
	}

	checkers := []health.Checker{}
	if st != nil {
		checkers = append(checkers, health.Checker{Name: "database", Check: st.Ping})
	}
	health.New(checkers...).Register(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.POST("/lessons/:course/:lesson/results", s.handleSubmitResults)
	e.GET("/lessons/:course/:lesson/leaderboard", s.handleLeaderboard)
	e.POST("/lessons/:course/:lesson/rating", s.handleRatingUpdate)
	e.POST("/phrases", s.handleGeneratePhrase)
	e.GET("/capture/ws", s.handleCaptureWS)

	return s
}

// Start begins serving on the configured address. Blocks until the listener
// fails or Shutdown is called.
func (s *Server) Start() error {
	addr := s.cfg.Server.ListenAddr
	if addr == "" {
		addr = ":8080"
	}
	if tls := s.cfg.Server.TLS; tls != nil {
		return s.echo.StartTLS(addr, tls.CertFile, tls.KeyFile)
	}
	return s.echo.Start(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler returns the underlying HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// poolKey namespaces ratings and daily bests per exercise.
func poolKey(course, lesson string) string {
	return "lesson:" + course + "/" + lesson
}

// userID resolves the caller identity. Authentication itself is handled by
// an upstream gateway; only the forwarded identity header is consumed here.
func userID(c echo.Context) string {
	return c.Request().Header.Get("X-User-ID")
}
