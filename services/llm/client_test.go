package llm

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func hangingServer(t *testing.T, attempts *int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(attempts, 1)
		// Drain the body so the server starts its background read and
		// notices the client disconnect; otherwise Done() never fires
		// and Close hangs in cleanup.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	t.Cleanup(server.Close)
	return server
}

func TestClientRetriesOwnTimeout(t *testing.T) {
	var attempts int32
	server := hangingServer(t, &attempts)

	client := NewClient(Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Timeout: 50 * time.Millisecond,
		Retry: RetryConfig{
			MaxAttempts: 2,
			MinBackoff:  time.Millisecond,
			MaxBackoff:  2 * time.Millisecond,
		},
	})

	_, err := client.ChatCompletion(context.Background(), []Message{{Role: "user", Content: "hi"}})
	if err == nil {
		t.Fatal("expected the call to fail")
	}
	if got := atomic.LoadInt32(&attempts); got != 2 {
		t.Errorf("server saw %d attempts, want 2", got)
	}
}

func TestClientDoesNotRetryCallerCancellation(t *testing.T) {
	var attempts int32
	server := hangingServer(t, &attempts)

	client := NewClient(Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Timeout: 10 * time.Second,
		Retry: RetryConfig{
			MaxAttempts: 3,
			MinBackoff:  time.Millisecond,
			MaxBackoff:  2 * time.Millisecond,
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.ChatCompletion(ctx, []Message{{Role: "user", Content: "hi"}})
	if err == nil {
		t.Fatal("expected the call to fail")
	}
	if IsTransient(err) {
		t.Errorf("caller cancellation classified transient: %v", err)
	}
	if got := atomic.LoadInt32(&attempts); got != 1 {
		t.Errorf("server saw %d attempts, want 1", got)
	}
}
