package billing

import (
	"context"
	"sync"
	"time"
)

// SeenStore records which message ids have already been processed.
type SeenStore interface {
	// MarkSeen records id and reports whether this is the first time it was seen.
	MarkSeen(ctx context.Context, id string) (bool, error)
	// Forget removes id so a later delivery is processed again.
	Forget(ctx context.Context, id string) error
	Close() error
}

// InMemorySeenStore is a process-local SeenStore. Expired ids are evicted lazily.
type InMemorySeenStore struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

func NewInMemorySeenStore(ttl time.Duration) *InMemorySeenStore {
	return &InMemorySeenStore{
		seen: make(map[string]time.Time),
		ttl:  ttl,
		now:  time.Now,
	}
}

func (s *InMemorySeenStore) MarkSeen(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if expiry, ok := s.seen[id]; ok && now.Before(expiry) {
		return false, nil
	}
	s.seen[id] = now.Add(s.ttl)
	s.evictExpired(now)
	return true, nil
}

func (s *InMemorySeenStore) Forget(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seen, id)
	return nil
}

func (s *InMemorySeenStore) Close() error { return nil }

// Len returns the number of ids currently held, expired or not.
func (s *InMemorySeenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

// must be called with mu held
func (s *InMemorySeenStore) evictExpired(now time.Time) {
	for id, expiry := range s.seen {
		if !now.Before(expiry) {
			delete(s.seen, id)
		}
	}
}
