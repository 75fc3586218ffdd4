package draft

import (
	"context"
	"sync"
	"time"

	"github.com/aquamarinepk/aqm"
)

const DefaultSessionIdle = 12 * time.Hour

type registryEntry struct {
	session  *Session
	lastUsed time.Time
}

// Registry holds one live Session per (restaurant, table, user). Each
// terminal keeps its own snapshot, exactly as a client would. Sessions not
// opened for longer than the idle window are dropped; the store keeps
// whatever was last saved.
type Registry struct {
	deps   SessionDeps
	idle   time.Duration
	now    func() time.Time
	logger aqm.Logger

	mu       sync.Mutex
	sessions map[Key]*registryEntry

	cancel context.CancelFunc
	done   chan struct{}
}

func NewRegistry(deps SessionDeps) *Registry {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &Registry{
		deps:     deps,
		idle:     DefaultSessionIdle,
		now:      now,
		logger:   logger,
		sessions: make(map[Key]*registryEntry),
	}
}

// SetIdle changes the idle window. Non-positive values keep the default.
func (r *Registry) SetIdle(d time.Duration) {
	if d > 0 {
		r.idle = d
	}
}

// Open returns the live session for key, restoring it from the store on
// first use.
func (r *Registry) Open(ctx context.Context, key Key, tableName string) (*Session, error) {
	r.mu.Lock()
	e, ok := r.sessions[key]
	if ok {
		e.lastUsed = r.now()
	}
	r.mu.Unlock()
	if ok {
		return e.session, nil
	}

	s := NewSession(key, tableName, r.deps)
	if err := s.Restore(ctx); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[key]; ok {
		existing.lastUsed = r.now()
		return existing.session, nil
	}
	r.sessions[key] = &registryEntry{session: s, lastUsed: r.now()}
	return s, nil
}

// Restore discards any live session for key and rebuilds it from the store.
// Unsaved changes of the discarded session are lost.
func (r *Registry) Restore(ctx context.Context, key Key, tableName string) (*Session, error) {
	s := NewSession(key, tableName, r.deps)
	if err := s.Restore(ctx); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.sessions[key] = &registryEntry{session: s, lastUsed: r.now()}
	r.mu.Unlock()
	return s, nil
}

// EvictTable drops every session for the table except keep, so other
// terminals restore fresh state on their next request. A zero keep drops
// them all.
func (r *Registry) EvictTable(restaurantID, tableID string, keep Key) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for k := range r.sessions {
		if k.RestaurantID == restaurantID && k.TableID == tableID && k != keep {
			delete(r.sessions, k)
			n++
		}
	}
	return n
}

// EvictIdle drops sessions not opened within the idle window.
func (r *Registry) EvictIdle() int {
	cutoff := r.now().Add(-r.idle)

	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for k, e := range r.sessions {
		if e.lastUsed.Before(cutoff) {
			if e.session.HasUnsavedChanges() {
				r.logger.Info("dropping idle session with unsaved changes", "restaurant_id", k.RestaurantID, "table_id", k.TableID, "user_id", k.UserID)
			}
			delete(r.sessions, k)
			n++
		}
	}
	return n
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Start launches the idle sweep, running a few times per idle window.
func (r *Registry) Start(ctx context.Context) error {
	loopCtx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})

	interval := r.idle / 4
	if interval < time.Minute {
		interval = time.Minute
	}

	go func() {
		defer close(r.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				if n := r.EvictIdle(); n > 0 {
					r.logger.Info("evicted idle sessions", "count", n, "live", r.Len())
				}
			}
		}
	}()

	r.logger.Info("session sweep started", "idle", r.idle.String(), "interval", interval.String())
	return nil
}

func (r *Registry) Stop(ctx context.Context) error {
	if r.cancel == nil {
		return nil
	}
	r.cancel()
	select {
	case <-r.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}
