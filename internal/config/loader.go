package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	if v := cfg.Scoring.ConfMin; v < 0 || v > 1 {
		errs = append(errs, fmt.Errorf("scoring.conf_min %v is out of range [0, 1]", v))
	}
	if v := cfg.Scoring.CentsOk; v < 0 || v > 600 {
		errs = append(errs, fmt.Errorf("scoring.cents_ok %v is out of range [0, 600]", v))
	}
	if v := cfg.Scoring.OnsetGraceMs; v < 0 {
		errs = append(errs, fmt.Errorf("scoring.onset_grace_ms %v must not be negative", v))
	}
	if v := cfg.Scoring.MaxAlignMs; v < 0 {
		errs = append(errs, fmt.Errorf("scoring.max_align_ms %v must not be negative", v))
	}
	if g, m := cfg.Scoring.OnsetGraceMs, cfg.Scoring.MaxAlignMs; g > 0 && m > 0 && m < g {
		errs = append(errs, fmt.Errorf("scoring.max_align_ms %v must not be below onset_grace_ms %v", m, g))
	}

	if v := cfg.Capture.KeepPreRollSec; v < 0 {
		errs = append(errs, fmt.Errorf("capture.keep_pre_roll_sec %v must not be negative", v))
	}
	if v := cfg.Capture.TailGuardSec; v < 0 {
		errs = append(errs, fmt.Errorf("capture.tail_guard_sec %v must not be negative", v))
	}

	if v := cfg.Rating.Tau; v < 0 || v > 2 {
		errs = append(errs, fmt.Errorf("rating.tau %v is out of range [0, 2]", v))
	}

	return errors.Join(errs...)
}
