package config_test

import (
	"strings"
	"testing"

	"github.com/ThetaZillaClub/smSynth-sub002/internal/config"
)

func TestLoadFromReader_FullConfig(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  listen_addr: ":9090"
  log_level: debug
database:
  postgres_dsn: "postgres://localhost/smsynth"
scoring:
  conf_min: 0.6
  cents_ok: 50
  onset_grace_ms: 80
  max_align_ms: 180
capture:
  keep_pre_roll_sec: 0.3
  tail_guard_sec: 0.4
rating:
  tau: 0.3
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.ListenAddr != ":9090" {
		t.Errorf("listen_addr = %q, want :9090", cfg.Server.ListenAddr)
	}
	if cfg.Scoring.CentsOk != 50 {
		t.Errorf("cents_ok = %v, want 50", cfg.Scoring.CentsOk)
	}
	if cfg.Rating.Tau != 0.3 {
		t.Errorf("tau = %v, want 0.3", cfg.Rating.Tau)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  listen_addr: ":8080"
  listne_addr_typo: ":8081"
`
	if _, err := config.LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Error("unknown field should be rejected")
	}
}

func TestValidate_BadLogLevel(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: verbose
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid log level, got nil")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
}

func TestValidate_TLSRequiresBothFiles(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  tls:
    cert_file: /etc/certs/cert.pem
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for TLS without key_file, got nil")
	}
	if !strings.Contains(err.Error(), "key_file") {
		t.Errorf("error should mention key_file, got: %v", err)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: loud
scoring:
  conf_min: 1.5
rating:
  tau: 5
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected joined validation errors, got nil")
	}
	for _, want := range []string{"log_level", "conf_min", "tau"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("joined error should mention %s, got: %v", want, err)
		}
	}
}

func TestValidate_GraceAboveMaxAlign(t *testing.T) {
	t.Parallel()
	yaml := `
scoring:
  onset_grace_ms: 250
  max_align_ms: 200
`
	if _, err := config.LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Error("grace above max align should be rejected")
	}
}

func TestValidate_ZeroConfigIsValid(t *testing.T) {
	t.Parallel()
	if err := config.Validate(&config.Config{}); err != nil {
		t.Errorf("the zero config should validate (defaults apply downstream): %v", err)
	}
}
