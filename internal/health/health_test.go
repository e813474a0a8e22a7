package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/ThetaZillaClub/smSynth-sub002/internal/health"
)

func get(t *testing.T, h *health.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	h.Register(e)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthz_AlwaysOK(t *testing.T) {
	t.Parallel()
	h := health.New(health.Checker{
		Name:  "database",
		Check: func(context.Context) error { return errors.New("down") },
	})
	rec := get(t, h, "/healthz")
	if rec.Code != http.StatusOK {
		t.Errorf("healthz = %d, want 200 even with failing checkers", rec.Code)
	}
}

func TestReadyz_AllPassing(t *testing.T) {
	t.Parallel()
	h := health.New(health.Checker{
		Name:  "database",
		Check: func(context.Context) error { return nil },
	})
	rec := get(t, h, "/readyz")
	if rec.Code != http.StatusOK {
		t.Fatalf("readyz = %d, want 200", rec.Code)
	}

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("status = %q, want ok", body.Status)
	}
	if body.Checks["database"] != "ok" {
		t.Errorf("checks[database] = %q, want ok", body.Checks["database"])
	}
}

func TestReadyz_FailingChecker(t *testing.T) {
	t.Parallel()
	h := health.New(
		health.Checker{Name: "database", Check: func(context.Context) error { return errors.New("connection refused") }},
		health.Checker{Name: "config", Check: func(context.Context) error { return nil }},
	)
	rec := get(t, h, "/readyz")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz = %d, want 503", rec.Code)
	}

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "fail" {
		t.Errorf("status = %q, want fail", body.Status)
	}
	if body.Checks["database"] != "fail: connection refused" {
		t.Errorf("checks[database] = %q, want failure detail", body.Checks["database"])
	}
	if body.Checks["config"] != "ok" {
		t.Errorf("checks[config] = %q, want ok", body.Checks["config"])
	}
}

func TestReadyz_NoCheckers(t *testing.T) {
	t.Parallel()
	rec := get(t, health.New(), "/readyz")
	if rec.Code != http.StatusOK {
		t.Errorf("readyz with no checkers = %d, want 200", rec.Code)
	}
}
