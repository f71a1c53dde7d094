package testutils

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrLockTimeout mirrors the Redis lock's timeout error.
var ErrLockTimeout = errors.New("lock wait timed out")

// Locker is an in-process named lock with the same contract as the Redis lock.
type Locker struct {
	mu    sync.Mutex
	held  map[string]chan struct{}
	taken int
}

// NewLocker creates an empty lock table.
func NewLocker() *Locker {
	return &Locker{held: map[string]chan struct{}{}}
}

// Acquire blocks until name is free or ctx ends. ttl is ignored.
func (l *Locker) Acquire(ctx context.Context, name string, _ time.Duration) (func(), error) {
	for {
		l.mu.Lock()
		wait, busy := l.held[name]
		if !busy {
			done := make(chan struct{})
			l.held[name] = done
			l.taken++
			l.mu.Unlock()

			var once sync.Once
			return func() {
				once.Do(func() {
					l.mu.Lock()
					delete(l.held, name)
					l.mu.Unlock()
					close(done)
				})
			}, nil
		}
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ErrLockTimeout
		case <-wait:
		}
	}
}

// Acquisitions reports how many times a lock was granted.
func (l *Locker) Acquisitions() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.taken
}

// RevocationStore keeps revoked token ids in memory.
type RevocationStore struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

// NewRevocationStore creates an empty store.
func NewRevocationStore() *RevocationStore {
	return &RevocationStore{revoked: map[string]time.Time{}}
}

func (s *RevocationStore) Revoke(_ context.Context, tokenID string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[tokenID] = until
	return nil
}

func (s *RevocationStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	until, ok := s.revoked[tokenID]
	return ok && time.Now().Before(until), nil
}
