package resilience

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitError is a provider telling us to back off. RetryAfter is the
// provider's hint, zero when it gave none.
type RateLimitError struct {
	Provider   string
	Message    string
	RetryAfter time.Duration
}

func (e RateLimitError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "rate limit"
	}
	if e.RetryAfter > 0 {
		msg += " (retry after " + e.RetryAfter.String() + ")"
	}
	return e.Provider + ": " + msg
}

// IsRateLimit reports whether err wraps a RateLimitError.
func IsRateLimit(err error) bool {
	var rl RateLimitError
	return errors.As(err, &rl)
}

// RateLimitFromResponse builds a RateLimitError from a 429 response,
// honouring a Retry-After header given in seconds or as an HTTP date.
func RateLimitFromResponse(provider string, resp *http.Response, message string) RateLimitError {
	rl := RateLimitError{Provider: provider, Message: strings.TrimSpace(message)}
	if resp == nil {
		return rl
	}
	v := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if v == "" {
		return rl
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		rl.RetryAfter = time.Duration(secs) * time.Second
	} else if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			rl.RetryAfter = d
		}
	}
	return rl
}

// CircuitBreaker stops calling a provider after repeated rate limits. It
// never retries: while open, callers skip the request and fail open.
// Errors other than rate limits do not count.
type CircuitBreaker struct {
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	mu        sync.Mutex
	strikes   int
	openUntil time.Time
}

func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	cb := &CircuitBreaker{threshold: threshold, cooldown: cooldown, now: time.Now}
	if cb.threshold <= 0 {
		cb.threshold = 3
	}
	if cb.cooldown <= 0 {
		cb.cooldown = 30 * time.Second
	}
	return cb
}

// Allow reports whether a request may go out now. A nil breaker always
// allows.
func (c *CircuitBreaker) Allow() bool {
	if c == nil {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.now().Before(c.openUntil)
}

// OpenUntil returns when the breaker closes again, or the zero time.
func (c *CircuitBreaker) OpenUntil() time.Time {
	if c == nil {
		return time.Time{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.now().Before(c.openUntil) {
		return time.Time{}
	}
	return c.openUntil
}

func (c *CircuitBreaker) OnSuccess() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.strikes, c.openUntil = 0, time.Time{}
	c.mu.Unlock()
}

// OnError counts rate limits. Reaching the threshold opens the breaker for
// the cooldown; a provider Retry-After longer than that opens it at once
// for the hinted duration.
func (c *CircuitBreaker) OnError(err error) {
	var rl RateLimitError
	if c == nil || !errors.As(err, &rl) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if rl.RetryAfter > c.cooldown {
		c.open(now.Add(rl.RetryAfter))
		return
	}
	c.strikes++
	if c.strikes >= c.threshold {
		c.open(now.Add(c.cooldown))
	}
}

func (c *CircuitBreaker) open(until time.Time) {
	if until.After(c.openUntil) {
		c.openUntil = until
	}
	c.strikes = 0
}
