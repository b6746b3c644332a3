// Package lease guarantees that at most one validation run per installation
// session is in flight. Leases are held in process; when a directory is
// configured each lease is also backed by a file lock so that several service
// instances sharing a disk exclude each other.
package lease

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"meter_reading/internal/logger"
)

// ErrBusy is returned when the session already has a live lease.
var ErrBusy = errors.New("session lease already held")

type entry struct {
	token  string
	cancel context.CancelFunc
	lock   *flock.Flock
}

// Manager hands out per-session leases.
type Manager struct {
	mu   sync.Mutex
	held map[int64]*entry
	dir  string
	log  *logger.Logger
}

// NewManager returns a manager. dir may be empty to disable file locks.
func NewManager(dir string, log *logger.Logger) (*Manager, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create lease dir: %w", err)
		}
	}
	return &Manager{held: make(map[int64]*entry), dir: dir, log: log}, nil
}

// Lease is a held session lease. Ctx is canceled by Cancel or Release.
type Lease struct {
	SessionID int64
	Token     string
	Ctx       context.Context

	m *Manager
}

// Acquire takes the lease for sessionID or fails with ErrBusy.
func (m *Manager) Acquire(parent context.Context, sessionID int64) (*Lease, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.held[sessionID]; ok {
		return nil, ErrBusy
	}

	var fl *flock.Flock
	if m.dir != "" {
		fl = flock.New(filepath.Join(m.dir, fmt.Sprintf("session-%d.lock", sessionID)))
		ok, err := fl.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire session %d lock: %w", sessionID, err)
		}
		if !ok {
			return nil, ErrBusy
		}
	}

	ctx, cancel := context.WithCancel(parent)
	e := &entry{token: uuid.NewString(), cancel: cancel, lock: fl}
	m.held[sessionID] = e
	return &Lease{SessionID: sessionID, Token: e.token, Ctx: ctx, m: m}, nil
}

// Release frees the lease. Releasing twice, or after a newer lease replaced
// this one, is a no-op.
func (l *Lease) Release() {
	if l == nil || l.m == nil {
		return
	}
	m := l.m
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.held[l.SessionID]
	if !ok || e.token != l.Token {
		return
	}
	delete(m.held, l.SessionID)
	e.cancel()
	if e.lock != nil {
		if err := e.lock.Unlock(); err != nil && m.log != nil {
			m.log.Warnw("lease_unlock_failed", "session_id", l.SessionID, "error", err)
		}
	}
}

// Cancel interrupts the run holding the session's lease. It reports whether a
// lease was held. The holder still releases the lease itself.
func (m *Manager) Cancel(sessionID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.held[sessionID]
	if !ok {
		return false
	}
	e.cancel()
	return true
}

// Held reports whether sessionID currently has a lease.
func (m *Manager) Held(sessionID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.held[sessionID]
	return ok
}
