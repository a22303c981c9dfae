package session

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"mediadash/internal/metrics"
	"mediadash/internal/narrator"
	"mediadash/internal/storage"
)

// Options are shared by every session of a Store.
type Options struct {
	Ingest IngestOptions

	Narrator narrator.Narrator
	// Provider labels summary metrics.
	Provider string

	// Auditor may be nil.
	Auditor *storage.Auditor

	// TTL evicts sessions idle for longer; zero disables eviction.
	TTL time.Duration
}

// Store holds live sessions by ID.
type Store struct {
	opt Options
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewStore returns an empty store.
func NewStore(opt Options) *Store {
	if opt.Narrator == nil {
		opt.Narrator = narrator.Disabled{Reason: "no summarization provider configured"}
	}
	if opt.Provider == "" {
		opt.Provider = narrator.ProviderNone
	}
	return &Store{opt: opt, now: time.Now, sessions: make(map[string]*Session)}
}

// Create starts a new session.
func (st *Store) Create() *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	s := newSession(&st.opt, st.now())
	st.sessions[s.ID] = s
	return s
}

// Get returns the session with id and marks it as used.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if ok {
		s.lastSeen = st.now()
	}
	return s, ok
}

// GetOrCreate returns the session with id, or a new one when id is unknown.
func (st *Store) GetOrCreate(id string) (s *Session, created bool) {
	if s, ok := st.Get(id); ok {
		return s, false
	}
	return st.Create(), true
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Evict drops sessions idle for longer than the TTL and returns how many were
// removed.
func (st *Store) Evict() int {
	if st.opt.TTL <= 0 {
		return 0
	}
	cutoff := st.now().Add(-st.opt.TTL)

	st.mu.Lock()
	n := 0
	for id, s := range st.sessions {
		if s.lastSeen.Before(cutoff) {
			delete(st.sessions, id)
			n++
		}
	}
	st.mu.Unlock()

	metrics.RecordEvictions(n)
	if n > 0 {
		logrus.WithField("evicted", n).Debug("idle sessions evicted")
	}
	return n
}

// Janitor calls Evict every interval until ctx is done.
func (st *Store) Janitor(ctx context.Context, every time.Duration) {
	if st.opt.TTL <= 0 || every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			st.Evict()
		}
	}
}
