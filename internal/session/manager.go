package session

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// defaultIdleExpiry is how long a detached session survives before sweep.
const defaultIdleExpiry = 30 * time.Minute

// Info holds metadata about an active session.
type Info struct {
	// SessionID is the unique identifier for this session.
	SessionID string

	// UID is the student the session belongs to.
	UID string

	// StartedAt is when the session was created.
	StartedAt time.Time

	// LastSeen is updated on every attach.
	LastSeen time.Time
}

type entry struct {
	info Info
	sess *Session
}

// Manager tracks live exercise sessions by ID so a dropped capture socket can
// reattach to its session and keep its scored takes. All exported methods are
// safe for concurrent use.
type Manager struct {
	mu      sync.Mutex
	entries map[string]*entry
	expiry  time.Duration
}

// NewManager creates a Manager. idleExpiry zero means 30 minutes.
func NewManager(idleExpiry time.Duration) *Manager {
	if idleExpiry <= 0 {
		idleExpiry = defaultIdleExpiry
	}
	return &Manager{
		entries: make(map[string]*entry),
		expiry:  idleExpiry,
	}
}

// Create registers a new session under id. Returns an error when the ID is
// already in use by another student.
func (m *Manager) Create(id, uid string, cfg Config) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked(time.Now())

	if e, ok := m.entries[id]; ok {
		if e.info.UID != uid {
			return nil, fmt.Errorf("session: id %q belongs to another user", id)
		}
		e.info.LastSeen = time.Now().UTC()
		return e.sess, nil
	}

	now := time.Now().UTC()
	e := &entry{
		info: Info{SessionID: id, UID: uid, StartedAt: now, LastSeen: now},
		sess: New(cfg),
	}
	m.entries[id] = e
	slog.Debug("session created", "id", id, "uid", uid)
	return e.sess, nil
}

// Attach returns the session registered under id, or false when it expired
// or never existed. The caller's uid must match the creator.
func (m *Manager) Attach(id, uid string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked(time.Now())

	e, ok := m.entries[id]
	if !ok || e.info.UID != uid {
		return nil, false
	}
	e.info.LastSeen = time.Now().UTC()
	return e.sess, true
}

// Release drops the session after submission.
func (m *Manager) Release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
}

// Active returns metadata for every live session, for diagnostics.
func (m *Manager) Active() []Info {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Info, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.info)
	}
	return out
}

// sweepLocked evicts sessions idle past the expiry. Caller holds mu.
func (m *Manager) sweepLocked(now time.Time) {
	for id, e := range m.entries {
		if now.Sub(e.info.LastSeen) > m.expiry {
			slog.Debug("session expired", "id", id, "uid", e.info.UID)
			delete(m.entries, id)
		}
	}
}
