package config

import "sync"

// Tunables is the injected settings service for the scoring pipeline: the
// live values of the scorer's tolerances, readable and updatable at runtime
// with change notification. The scoring core itself never reads this;
// callers snapshot the current values and pass them as explicit parameters.
//
// Safe for concurrent use.
type Tunables struct {
	mu      sync.RWMutex
	current ScoringConfig
	subs    []func(ScoringConfig)
}

// NewTunables creates a registry seeded with the given scoring config.
func NewTunables(initial ScoringConfig) *Tunables {
	return &Tunables{current: initial}
}

// Get returns the current tunable values.
func (t *Tunables) Get() ScoringConfig {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

// Set replaces the current values and notifies all subscribers. Subscribers
// are invoked synchronously, outside the lock.
func (t *Tunables) Set(next ScoringConfig) {
	t.mu.Lock()
	t.current = next
	subs := make([]func(ScoringConfig), len(t.subs))
	copy(subs, t.subs)
	t.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
}

// OnChange registers a callback invoked on every [Tunables.Set]. The returned
// function removes the subscription.
func (t *Tunables) OnChange(fn func(ScoringConfig)) (cancel func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subs = append(t.subs, fn)
	idx := len(t.subs) - 1
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if idx < len(t.subs) {
			t.subs[idx] = func(ScoringConfig) {}
		}
	}
}

// BindWatcher seeds the registry from the watcher's current config, so a
// file that changed after the service config was loaded takes effect
// immediately. It does not subscribe to later edits; those reach the
// registry through [Tunables.WatchOnChange] passed to [NewWatcher] as the
// onChange handler.
func (t *Tunables) BindWatcher(w *Watcher) {
	cfg := w.Current()
	if cfg != nil {
		t.Set(cfg.Scoring)
	}
}

// WatchOnChange is the watcher callback form of [Tunables.BindWatcher]:
// pass to [NewWatcher] as the onChange handler.
func (t *Tunables) WatchOnChange(_, next *Config) {
	if next != nil {
		t.Set(next.Scoring)
	}
}
