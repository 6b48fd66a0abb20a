// Package session keeps per-conversation state in memory.
//
// Sessions live in lock-striped shards. A shard lock only guards its map;
// each session has its own mutex, so requests for different sessions never
// wait on each other while requests for the same session run one at a time.
package session

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/cespare/xxhash/v2"

	"case-assistant/internal/common/logger"
)

const (
	// DefaultID is used when a caller supplies no usable session id.
	DefaultID = "default"

	maxIDLength = 128
	shardCount  = 32
)

type entry struct {
	mu      sync.Mutex
	state   *State
	removed bool
}

type shard struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// Store is the in-memory session store. The zero value is not usable; call NewStore.
type Store struct {
	shards [shardCount]*shard
	now    func() time.Time
	logger logger.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger used by the janitor.
func WithLogger(log logger.Logger) Option {
	return func(s *Store) {
		s.logger = log.WithFields(map[string]interface{}{"component": "session-store"})
	}
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		now:    time.Now,
		logger: logger.NewNoOpLogger(),
	}
	for i := range s.shards {
		s.shards[i] = &shard{entries: make(map[string]*entry)}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NormalizeID maps blank or malformed ids to DefaultID.
func NormalizeID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || len(id) > maxIDLength {
		return DefaultID
	}
	for _, r := range id {
		if unicode.IsControl(r) {
			return DefaultID
		}
	}
	return id
}

func (s *Store) shardFor(id string) *shard {
	return s.shards[xxhash.Sum64String(id)%shardCount]
}

// Acquire returns the session's state, creating it on first access, and
// holds the session until release is called. release is safe to call twice.
func (s *Store) Acquire(id string) (*State, func()) {
	id = NormalizeID(id)
	sh := s.shardFor(id)

	for {
		sh.mu.Lock()
		e, ok := sh.entries[id]
		if !ok {
			e = &entry{state: newState(id, s.now())}
			sh.entries[id] = e
		}
		sh.mu.Unlock()

		e.mu.Lock()
		if e.removed {
			// reset or swept while we waited; start over with a fresh entry
			e.mu.Unlock()
			continue
		}
		e.state.LastAccess = s.now()

		var once sync.Once
		return e.state, func() { once.Do(e.mu.Unlock) }
	}
}

// Get returns a snapshot of the session, creating it on first access.
func (s *Store) Get(id string) State {
	st, release := s.Acquire(id)
	defer release()
	return st.Snapshot()
}

// Reset deletes the session. Missing sessions are ignored.
func (s *Store) Reset(id string) {
	id = NormalizeID(id)
	sh := s.shardFor(id)

	sh.mu.Lock()
	e, ok := sh.entries[id]
	delete(sh.entries, id)
	sh.mu.Unlock()

	if ok {
		// waits for an in-flight request on this session to finish
		e.mu.Lock()
		e.removed = true
		e.mu.Unlock()
	}
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		n += len(sh.entries)
		sh.mu.Unlock()
	}
	return n
}

// Sweep removes sessions idle for longer than idle. Sessions currently held
// by a request are skipped. It returns the number removed.
func (s *Store) Sweep(idle time.Duration) int {
	cutoff := s.now().Add(-idle)
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for id, e := range sh.entries {
			if !e.mu.TryLock() {
				continue
			}
			if e.state.LastAccess.Before(cutoff) {
				e.removed = true
				delete(sh.entries, id)
				removed++
			}
			e.mu.Unlock()
		}
		sh.mu.Unlock()
	}
	return removed
}

// StartJanitor sweeps idle sessions every interval until ctx is done or stop is called.
// stop blocks until the janitor goroutine has exited.
func (s *Store) StartJanitor(ctx context.Context, interval, idle time.Duration) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.Sweep(idle); n > 0 {
					s.logger.Info("swept idle sessions", map[string]interface{}{
						"removed":   n,
						"remaining": s.Len(),
					})
				}
			}
		}
	}()

	return func() {
		cancel()
		wg.Wait()
	}
}
