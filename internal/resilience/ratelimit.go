package resilience

import (
	"sync"

	"golang.org/x/time/rate"
)

// LimiterSet holds one token-bucket limiter per upstream collaborator,
// shared process-wide so concurrent imports cannot collectively burst
// through a provider's rate limit. A collaborator with no configured
// limiter is unrestricted.
type LimiterSet struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewLimiterSet creates an empty limiter set.
func NewLimiterSet() *LimiterSet {
	return &LimiterSet{limiters: make(map[string]*rate.Limiter)}
}

// Configure installs a limiter for a collaborator. requestsPerSec <= 0
// removes any limit.
func (s *LimiterSet) Configure(service string, requestsPerSec float64, burst int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if requestsPerSec <= 0 {
		delete(s.limiters, service)
		return
	}
	if burst < 1 {
		burst = 1
	}
	s.limiters[service] = rate.NewLimiter(rate.Limit(requestsPerSec), burst)
}

// Acquire takes one token for the collaborator. When the bucket is empty it
// does not wait: it cancels the reservation and returns a RateLimitError
// carrying the delay as the retry-after hint, so the caller decides whether
// to retry rather than the limiter silently sleeping.
func (s *LimiterSet) Acquire(service string) error {
	s.mu.Lock()
	l := s.limiters[service]
	s.mu.Unlock()
	if l == nil {
		return nil
	}

	res := l.Reserve()
	if !res.OK() {
		return NewRateLimitError(service, 0)
	}
	if delay := res.Delay(); delay > 0 {
		res.Cancel()
		return NewRateLimitError(service, delay)
	}
	return nil
}
