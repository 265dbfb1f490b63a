package ai

import (
	"sync"

	"golang.org/x/time/rate"
)

// Limiter applies a per-owner request budget to the AI endpoints.
type Limiter struct {
	perMinute int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewLimiter allows perMinute requests per owner, with bursts up to the same
// amount.
func NewLimiter(perMinute int) *Limiter {
	return &Limiter{perMinute: perMinute, limiters: make(map[string]*rate.Limiter)}
}

// Allow reports whether owner may make another request now.
func (l *Limiter) Allow(owner string) bool {
	if l == nil || l.perMinute <= 0 {
		return true
	}
	l.mu.Lock()
	lim, ok := l.limiters[owner]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(float64(l.perMinute)/60), l.perMinute)
		l.limiters[owner] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}
