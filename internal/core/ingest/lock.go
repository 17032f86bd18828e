package ingest

import (
	"context"
	"sync"
	"time"
)

// LockCoordinator is a TTL-based, auto-expiring mutex that lets an external
// operator pause ChunkEnrich (e.g. to protect a shared LLM rate-limit
// budget during some other batch job) without restarting the pipeline.
//
// Grounded on the original ingestor's LLMLockManager: a lock set with no
// explicit release call simply expires after its TTL elapses.
type LockCoordinator struct {
	mu      sync.Mutex
	locked  bool
	reason  string
	lockAt  time.Time
	expires time.Time
}

// NewLockCoordinator returns an initially-unlocked coordinator.
func NewLockCoordinator() *LockCoordinator {
	return &LockCoordinator{}
}

// SetLock locks the coordinator for the given duration. A duration <= 0
// clears the lock immediately.
func (l *LockCoordinator) SetLock(reason string, ttl time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ttl <= 0 {
		l.locked = false
		l.reason = ""
		return
	}

	now := time.Now()
	l.locked = true
	l.reason = reason
	l.lockAt = now
	l.expires = now.Add(ttl)
}

// Clear releases the lock before its TTL would naturally expire.
func (l *LockCoordinator) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.locked = false
	l.reason = ""
}

// IsLocked reports whether the coordinator is currently locked, expiring
// the lock in place if its TTL has elapsed.
func (l *LockCoordinator) IsLocked() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.isLockedLocked()
}

func (l *LockCoordinator) isLockedLocked() bool {
	if !l.locked {
		return false
	}
	if time.Now().After(l.expires) {
		l.locked = false
		l.reason = ""
		return false
	}
	return true
}

// Status reports the lock state, the reason it was set, and the remaining
// TTL (zero if unlocked).
func (l *LockCoordinator) Status() (locked bool, reason string, remaining time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.isLockedLocked() {
		return false, "", 0
	}
	return true, l.reason, time.Until(l.expires)
}

// WaitUnlocked blocks the calling goroutine, polling at the given interval,
// until the lock clears or ctx is done. ChunkEnrich calls this immediately
// before every LLM call.
func (l *LockCoordinator) WaitUnlocked(ctx context.Context, pollInterval time.Duration) error {
	if !l.IsLocked() {
		return nil
	}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !l.IsLocked() {
				return nil
			}
		}
	}
}
