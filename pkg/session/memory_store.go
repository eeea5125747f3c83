package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store in process memory.
// Suitable for single-instance deployments and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// NewMemoryStore creates an in-memory store. A background sweeper removes
// expired sessions every cleanupInterval; pass 0 to disable it.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	ms := &MemoryStore{
		sessions:    make(map[string]*Session),
		stopCleanup: make(chan struct{}),
	}

	if cleanupInterval > 0 {
		go ms.cleanup(cleanupInterval)
	}

	return ms
}

func (ms *MemoryStore) Create(ctx context.Context, session *Session) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	clone := *session
	ms.sessions[session.Token] = &clone
	return nil
}

func (ms *MemoryStore) Get(ctx context.Context, token string) (*Session, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	session, ok := ms.sessions[token]
	if !ok {
		return nil, ErrSessionNotFound
	}

	clone := *session
	return &clone, nil
}

func (ms *MemoryStore) Delete(ctx context.Context, token string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.sessions, token)
	return nil
}

func (ms *MemoryStore) DeleteByUserID(ctx context.Context, userID string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	for token, s := range ms.sessions {
		if s.UserID != nil && s.UserID.String() == userID {
			delete(ms.sessions, token)
		}
	}
	return nil
}

// Close stops the background sweeper.
func (ms *MemoryStore) Close() {
	ms.stopOnce.Do(func() { close(ms.stopCleanup) })
}

func (ms *MemoryStore) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			ms.mu.Lock()
			for token, s := range ms.sessions {
				if now.After(s.ExpiresAt) {
					delete(ms.sessions, token)
				}
			}
			ms.mu.Unlock()
		case <-ms.stopCleanup:
			return
		}
	}
}
