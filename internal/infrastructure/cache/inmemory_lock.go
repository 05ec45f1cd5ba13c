package cache

import (
	"context"
	"sync"
	"time"

	"github.com/coopay/backend/internal/domain/settlement"
)

type lockEntry struct {
	token     uint64
	expiresAt time.Time
}

// InMemoryReferenceLock implements settlement.ReferenceLock with a map.
// This is suitable for single-instance deployments and testing.
type InMemoryReferenceLock struct {
	mu        sync.Mutex
	entries   map[string]lockEntry
	nextToken uint64
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryReferenceLock creates a lock and starts its expiry sweeper
func NewInMemoryReferenceLock() *InMemoryReferenceLock {
	l := &InMemoryReferenceLock{
		entries:  make(map[string]lockEntry),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	l.wg.Add(1)
	go l.cleanupLoop()
	return l
}

// TryLock acquires key for ttl. An expired holder is replaced.
func (l *InMemoryReferenceLock) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if e, held := l.entries[key]; held && now.Before(e.expiresAt) {
		return nil, false, nil
	}

	l.nextToken++
	token := l.nextToken
	l.entries[key] = lockEntry{token: token, expiresAt: now.Add(ttl)}

	unlock := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if e, held := l.entries[key]; held && e.token == token {
			delete(l.entries, key)
		}
	}
	return unlock, true, nil
}

// Held returns the number of unexpired locks
func (l *InMemoryReferenceLock) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	n := 0
	for _, e := range l.entries {
		if now.Before(e.expiresAt) {
			n++
		}
	}
	return n
}

func (l *InMemoryReferenceLock) cleanupLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			return
		case <-ticker.C:
			l.cleanup()
		}
	}
}

func (l *InMemoryReferenceLock) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for key, e := range l.entries {
		if !now.Before(e.expiresAt) {
			delete(l.entries, key)
		}
	}
}

// Close stops the sweeper
func (l *InMemoryReferenceLock) Close() error {
	l.closeOnce.Do(func() {
		close(l.stopChan)
		l.wg.Wait()
	})
	return nil
}

var _ settlement.ReferenceLock = (*InMemoryReferenceLock)(nil)
