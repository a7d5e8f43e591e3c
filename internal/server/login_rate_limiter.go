package server

import (
	"sync"
	"time"
)

// loginRateLimiter locks a key out after maxFailures failed logins within
// window. Keys combine client address and username.
type loginRateLimiter struct {
	mu          sync.Mutex
	keys        map[string]*loginAttempts
	maxFailures int
	window      time.Duration
	lockout     time.Duration
	sweepEvery  int
	ops         int
}

type loginAttempts struct {
	failures    []time.Time
	lockedUntil time.Time
	touched     time.Time
}

func newLoginRateLimiter(maxFailures int, window, lockout time.Duration) *loginRateLimiter {
	if maxFailures <= 0 || window <= 0 || lockout <= 0 {
		return nil
	}
	return &loginRateLimiter{
		keys:        make(map[string]*loginAttempts),
		maxFailures: maxFailures,
		window:      window,
		lockout:     lockout,
		sweepEvery:  64,
	}
}

// Allow reports whether key may attempt a login at now.
func (l *loginRateLimiter) Allow(key string, now time.Time) bool {
	if l == nil || key == "" {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sweepLocked(now)

	attempts, ok := l.keys[key]
	if !ok {
		return true
	}
	attempts.touched = now
	return !now.Before(attempts.lockedUntil)
}

// RegisterFailure records a failed login and starts a lockout once the
// window holds maxFailures failures.
func (l *loginRateLimiter) RegisterFailure(key string, now time.Time) {
	if l == nil || key == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sweepLocked(now)

	attempts, ok := l.keys[key]
	if !ok {
		attempts = &loginAttempts{}
		l.keys[key] = attempts
	}
	attempts.touched = now
	attempts.failures = append(pruneBefore(attempts.failures, now.Add(-l.window)), now)
	if len(attempts.failures) >= l.maxFailures {
		attempts.lockedUntil = now.Add(l.lockout)
		attempts.failures = attempts.failures[:0]
	}
}

// Reset forgets key, typically after a successful login.
func (l *loginRateLimiter) Reset(key string) {
	if l == nil || key == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.keys, key)
}

func (l *loginRateLimiter) sweepLocked(now time.Time) {
	l.ops++
	if l.ops%l.sweepEvery != 0 {
		return
	}
	idle := max(l.window, l.lockout) * 2
	for key, attempts := range l.keys {
		if now.Before(attempts.lockedUntil) {
			continue
		}
		if now.Sub(attempts.touched) > idle {
			delete(l.keys, key)
		}
	}
}

func pruneBefore(times []time.Time, cutoff time.Time) []time.Time {
	kept := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}
