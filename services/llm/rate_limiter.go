package llm

import (
	"context"
	"sync"
	"time"
)

// RateLimiter implements a token bucket rate limiter for inference requests.
// It keeps bursts of chunk jobs from tripping the external service's 429s.
type RateLimiter struct {
	mu sync.Mutex

	tokens         float64       // Current number of tokens
	maxTokens      float64       // Maximum tokens (bucket size)
	refillRate     float64       // Tokens added per second
	lastRefillTime time.Time     // Last time tokens were refilled
	minInterval    time.Duration // Minimum interval between requests
	lastRequest    time.Time
}

// RateLimiterConfig holds configuration for the rate limiter
type RateLimiterConfig struct {
	MaxTokens   float64       // Max burst capacity (default: 3)
	RefillRate  float64       // Tokens per second (default: 0.5)
	MinInterval time.Duration // Minimum time between requests (default: 500ms)
}

// DefaultRateLimiterConfig returns conservative defaults for LLM APIs
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		MaxTokens:   3,
		RefillRate:  0.5,
		MinInterval: 500 * time.Millisecond,
	}
}

// NewRateLimiter creates a new rate limiter with the given config
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.MaxTokens <= 0 {
		config.MaxTokens = 3
	}
	if config.RefillRate <= 0 {
		config.RefillRate = 0.5
	}
	if config.MinInterval <= 0 {
		config.MinInterval = 500 * time.Millisecond
	}

	return &RateLimiter{
		tokens:         config.MaxTokens,
		maxTokens:      config.MaxTokens,
		refillRate:     config.RefillRate,
		lastRefillTime: time.Now(),
		minInterval:    config.MinInterval,
	}
}

// Wait blocks until a token is available or the context is cancelled
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		wait := r.reserve()
		if wait <= 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// reserve takes a token if one is available, otherwise returns how long to
// wait before trying again.
func (r *RateLimiter) reserve() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()

	// Refill tokens based on elapsed time
	elapsed := now.Sub(r.lastRefillTime).Seconds()
	r.tokens += elapsed * r.refillRate
	if r.tokens > r.maxTokens {
		r.tokens = r.maxTokens
	}
	r.lastRefillTime = now

	// Honor the minimum spacing between requests
	if sinceLast := now.Sub(r.lastRequest); sinceLast < r.minInterval {
		return r.minInterval - sinceLast
	}

	if r.tokens >= 1 {
		r.tokens--
		r.lastRequest = now
		return 0
	}

	// Time until the next whole token
	deficit := 1 - r.tokens
	return time.Duration(deficit / r.refillRate * float64(time.Second))
}
