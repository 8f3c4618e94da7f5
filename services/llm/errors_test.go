package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), false},
		{"transient gateway error", &GatewayError{Op: "chat", Transient: true, Err: errors.New("connection refused")}, true},
		{"rate limit", &GatewayError{Op: "chat", StatusCode: 429, Transient: true, Err: errors.New("rate limited")}, true},
		{"bad request", &GatewayError{Op: "chat", StatusCode: 400, Err: errors.New("invalid body")}, false},
		{"server error not marked transient", &GatewayError{Op: "chat", StatusCode: 500, Err: errors.New("oops")}, false},
		{"caller cancellation marked final at send", &GatewayError{Op: "request", Err: context.Canceled}, false},
		{"client timeout marked transient at send", &GatewayError{Op: "request", Transient: true, Err: context.DeadlineExceeded}, true},
		{"wrapped transient", fmt.Errorf("call failed: %w", &GatewayError{Op: "chat", Transient: true, Err: errors.New("timeout")}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGatewayErrorMessage(t *testing.T) {
	err := &GatewayError{Op: "chat completion", StatusCode: 429, Err: errors.New("rate limited")}
	want := "inference chat completion failed (status 429): rate limited"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	noStatus := &GatewayError{Op: "chat completion", Err: errors.New("connection reset")}
	if noStatus.Error() != "inference chat completion failed: connection reset" {
		t.Errorf("unexpected message: %q", noStatus.Error())
	}
}

func TestGatewayErrorUnwrap(t *testing.T) {
	inner := errors.New("inner")
	err := &GatewayError{Op: "chat", Err: inner}
	if !errors.Is(err, inner) {
		t.Error("expected errors.Is to reach the wrapped error")
	}
}

func TestRetryConfigDefaults(t *testing.T) {
	cfg := RetryConfig{}.withDefaults()
	if cfg.MaxAttempts != 2 {
		t.Errorf("MaxAttempts = %d, want 2", cfg.MaxAttempts)
	}
	if cfg.MinBackoff != 5*time.Second {
		t.Errorf("MinBackoff = %s, want 5s", cfg.MinBackoff)
	}
	if cfg.MaxBackoff != 60*time.Second {
		t.Errorf("MaxBackoff = %s, want 60s", cfg.MaxBackoff)
	}

	custom := RetryConfig{MaxAttempts: 5, MinBackoff: time.Second, MaxBackoff: 10 * time.Second}.withDefaults()
	if custom.MaxAttempts != 5 || custom.MinBackoff != time.Second || custom.MaxBackoff != 10*time.Second {
		t.Error("withDefaults should not override explicit values")
	}
}

func TestBackoffStaysWithinWindow(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 4, MinBackoff: time.Second, MaxBackoff: 8 * time.Second}

	for attempt := 1; attempt <= 6; attempt++ {
		for i := 0; i < 50; i++ {
			d := cfg.backoff(attempt)
			if d < cfg.MinBackoff || d > cfg.MaxBackoff {
				t.Fatalf("backoff(%d) = %s, outside [%s, %s]", attempt, d, cfg.MinBackoff, cfg.MaxBackoff)
			}
		}
	}
}
