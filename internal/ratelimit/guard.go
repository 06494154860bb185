// Package ratelimit holds the per-account request guard. It replaces the
// ambient last-attempt cache of the original system with an explicit
// component that gets injected into the ledger engine.
package ratelimit

import (
	"sync"
	"time"
)

// Guard rejects an attempt arriving within Interval of the previous
// accepted attempt for the same account, regardless of operation kind.
type Guard struct {
	mu       sync.Mutex
	last     map[string]time.Time
	interval time.Duration
	now      func() time.Time
}

func NewGuard(interval time.Duration) *Guard {
	return &Guard{
		last:     make(map[string]time.Time),
		interval: interval,
		now:      time.Now,
	}
}

// Allow records the attempt and reports whether it may proceed. Rejected
// attempts do not push the window forward.
func (g *Guard) Allow(accountNumber string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if prev, ok := g.last[accountNumber]; ok && now.Sub(prev) < g.interval {
		return false
	}
	g.last[accountNumber] = now
	return true
}

// Forget drops the account's window, e.g. after the account is deleted.
func (g *Guard) Forget(accountNumber string) {
	g.mu.Lock()
	delete(g.last, accountNumber)
	g.mu.Unlock()
}
