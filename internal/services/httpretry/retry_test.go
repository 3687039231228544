package httpretry

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestDoRetriesRetryableStatus(t *testing.T) {
	var slept []time.Duration
	policy := Policy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 5 * time.Second, Sleeper: func(d time.Duration) { slept = append(slept, d) }}
	calls := 0
	err := policy.Do(context.Background(), "synthesize", func(context.Context) error {
		calls++
		if calls < 3 {
			return &StatusError{StatusCode: http.StatusServiceUnavailable}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
	if len(slept) != 2 || slept[0] != time.Second || slept[1] != 2*time.Second {
		t.Fatalf("unexpected backoff %v", slept)
	}
}

func TestDoStopsOnClientError(t *testing.T) {
	policy := Policy{MaxAttempts: 5, Sleeper: func(time.Duration) {}}
	calls := 0
	err := policy.Do(context.Background(), "synthesize", func(context.Context) error {
		calls++
		return &StatusError{StatusCode: http.StatusUnauthorized, Body: "bad key"}
	})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected status error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
}

func TestDoHonorsRetryAfterAndReportsAttempts(t *testing.T) {
	var slept []time.Duration
	policy := Policy{MaxAttempts: 2, BaseDelay: time.Second, MaxDelay: 30 * time.Second, Sleeper: func(d time.Duration) { slept = append(slept, d) }}
	err := policy.Do(context.Background(), "transcribe", func(context.Context) error {
		return &StatusError{StatusCode: http.StatusTooManyRequests, RetryAfter: 7 * time.Second}
	})
	if err == nil || !strings.Contains(err.Error(), "failed after 2 attempts") {
		t.Fatalf("unexpected error %v", err)
	}
	if len(slept) != 1 || slept[0] != 7*time.Second {
		t.Fatalf("unexpected sleeps %v", slept)
	}
}

func TestParseRetryAfter(t *testing.T) {
	if d, ok := ParseRetryAfter("3"); !ok || d != 3*time.Second {
		t.Fatalf("got %v %v", d, ok)
	}
	if _, ok := ParseRetryAfter("-1"); ok {
		t.Fatal("negative value accepted")
	}
	if _, ok := ParseRetryAfter("soon"); ok {
		t.Fatal("garbage accepted")
	}
}
