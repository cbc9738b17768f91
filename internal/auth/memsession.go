package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCheckPeriod is how often expired in-memory sessions are pruned.
const DefaultCheckPeriod = 24 * time.Hour

type memSession struct {
	userID  int64
	expires time.Time
}

// MemorySessionStore keeps sessions in process memory. Expired entries are
// invisible to Get immediately and removed from the map on each prune.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]memSession
	ttl      time.Duration
	now      func() time.Time

	stop chan struct{}
	once sync.Once
}

// NewMemorySessionStore starts a store that prunes expired sessions every
// checkPeriod. Call Close to stop the pruner.
func NewMemorySessionStore(ttl, checkPeriod time.Duration) *MemorySessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if checkPeriod <= 0 {
		checkPeriod = DefaultCheckPeriod
	}
	s := &MemorySessionStore{
		sessions: make(map[string]memSession),
		ttl:      ttl,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go s.pruneLoop(checkPeriod)
	return s
}

func (s *MemorySessionStore) Create(_ context.Context, userID int64) (string, error) {
	sid := uuid.New().String()
	s.mu.Lock()
	s.sessions[sid] = memSession{userID: userID, expires: s.now().Add(s.ttl)}
	s.mu.Unlock()
	return sid, nil
}

func (s *MemorySessionStore) Get(_ context.Context, sessionID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok || !s.now().Before(sess.expires) {
		return 0, nil
	}
	return sess.userID, nil
}

func (s *MemorySessionStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return nil
}

// Prune drops expired sessions and returns how many were removed.
func (s *MemorySessionStore) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for sid, sess := range s.sessions {
		if !now.Before(sess.expires) {
			delete(s.sessions, sid)
			n++
		}
	}
	return n
}

func (s *MemorySessionStore) Close() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}

func (s *MemorySessionStore) pruneLoop(period time.Duration) {
	t := time.NewTicker(period)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			s.Prune()
		case <-s.stop:
			return
		}
	}
}
