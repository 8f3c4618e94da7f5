package llm

import (
	"errors"
	"fmt"
	"math/rand"
	"net"
	"time"
)

// ErrNoChoices is returned when the inference API responds without choices
var ErrNoChoices = errors.New("no choices returned from inference API")

// GatewayError is a failure from the inference gateway. Transient errors
// (timeouts, connection failures, rate limits) may be retried; all others
// are final.
type GatewayError struct {
	Op         string
	StatusCode int
	Transient  bool
	Err        error
}

func (e *GatewayError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("inference %s failed (status %d): %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("inference %s failed: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is worth retrying. Only timeout,
// connection, and rate-limit failures qualify; a malformed request or
// response will not fix itself on retry. Caller cancellation is
// classified as final where the request is sent, since the HTTP client's
// own timeout also surfaces as context.DeadlineExceeded.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Transient
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return false
}

// RetryConfig bounds the retry loop for transient gateway failures
type RetryConfig struct {
	MaxAttempts int           // total attempts including the first
	MinBackoff  time.Duration // lower bound of the randomized backoff window
	MaxBackoff  time.Duration // upper bound of the backoff window
}

func (r RetryConfig) withDefaults() RetryConfig {
	if r.MaxAttempts <= 0 {
		r.MaxAttempts = 2
	}
	if r.MinBackoff <= 0 {
		r.MinBackoff = 5 * time.Second
	}
	if r.MaxBackoff <= 0 {
		r.MaxBackoff = 60 * time.Second
	}
	return r
}

// backoff returns a randomized exponential delay for the given attempt,
// clamped to [MinBackoff, MaxBackoff].
func (r RetryConfig) backoff(attempt int) time.Duration {
	d := r.MinBackoff * time.Duration(1<<(attempt-1))
	if d > r.MaxBackoff {
		d = r.MaxBackoff
	}
	// Full jitter within the window
	jittered := r.MinBackoff + time.Duration(rand.Int63n(int64(d-r.MinBackoff)+1))
	return jittered
}
