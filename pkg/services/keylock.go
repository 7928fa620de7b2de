package services

import (
	"sync"
	"time"
)

// KeyLock provides per-key single-flight locking with a TTL safety valve.
// A sync that dies without releasing its key (process crash mid-goroutine)
// would otherwise wedge the project forever; expired holds are treated as
// released.
type KeyLock struct {
	mu   sync.Mutex
	held map[int64]time.Time
	ttl  time.Duration
}

// NewKeyLock creates a KeyLock whose holds expire after ttl.
func NewKeyLock(ttl time.Duration) *KeyLock {
	return &KeyLock{
		held: make(map[int64]time.Time),
		ttl:  ttl,
	}
}

// TryAcquire attempts to take the key. It returns false if the key is held
// and the hold has not expired.
func (l *KeyLock) TryAcquire(key int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if acquired, ok := l.held[key]; ok && now.Sub(acquired) < l.ttl {
		return false
	}
	l.held[key] = now
	return true
}

// Release frees the key. Releasing an unheld key is a no-op.
func (l *KeyLock) Release(key int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
}

// Held reports whether the key is currently held and unexpired.
func (l *KeyLock) Held(key int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	acquired, ok := l.held[key]
	return ok && time.Since(acquired) < l.ttl
}
