package upstream

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

var fastPolicy = RetryPolicy{MaxRetries: 3, Base: time.Millisecond}

func TestErrorTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"transport failure", &Error{Op: "ladder", Err: errors.New("connection reset")}, true},
		{"rate limited", &Error{Op: "ladder", StatusCode: 429, Err: errors.New("slow down")}, true},
		{"server error", &Error{Op: "ladder", StatusCode: 503, Err: errors.New("unavailable")}, true},
		{"not found", &Error{Op: "ladder", StatusCode: 404, Err: errors.New("missing")}, false},
		{"malformed", &Error{Op: "ladder", Err: fmt.Errorf("decode: %w", ErrMalformed)}, false},
		{"wrapped", fmt.Errorf("resolve: %w", &Error{Op: "profile", StatusCode: 500, Err: errors.New("boom")}), true},
		{"plain error", errors.New("other"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResultOrElse(t *testing.T) {
	ok := Capture([]int{1, 2}, nil)
	if got := ok.OrElse(nil); len(got) != 2 {
		t.Errorf("OrElse on success = %v", got)
	}

	failed := Capture([]int{9}, errors.New("boom"))
	if got := failed.OrElse([]int{}); len(got) != 0 {
		t.Errorf("OrElse on failure = %v, want default", got)
	}
	if _, err := failed.Get(); err == nil {
		t.Error("Get should propagate the failure")
	}
	if failed.Ok() {
		t.Error("Ok() should be false")
	}
}

func TestRetryPolicy_RetriesTransient(t *testing.T) {
	calls := 0
	err := fastPolicy.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return &Error{Op: "ladder", StatusCode: 503, Err: errors.New("unavailable")}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryPolicy_BoundedAttempts(t *testing.T) {
	calls := 0
	err := fastPolicy.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return &Error{Op: "ladder", StatusCode: 500, Err: errors.New("boom")}
	})
	if err == nil {
		t.Fatal("expected failure once retries are spent")
	}
	if calls != 4 {
		t.Errorf("calls = %d, want 1 initial + 3 retries", calls)
	}
	if StatusCode(err) != 500 {
		t.Errorf("StatusCode = %d, want last failure's 500", StatusCode(err))
	}
}

func TestRetryPolicy_PermanentNotRetried(t *testing.T) {
	calls := 0
	err := fastPolicy.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return &Error{Op: "ladder", StatusCode: 404, Err: errors.New("missing")}
	})
	if err == nil || calls != 1 {
		t.Errorf("calls = %d, err = %v; want a single call and an error", calls, err)
	}
}

func TestCall(t *testing.T) {
	calls := 0
	res := Call(context.Background(), fastPolicy, func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", &Error{Op: "season", StatusCode: 429, RetryAfter: time.Millisecond, Err: errors.New("rate limited")}
		}
		return "ok", nil
	})
	v, err := res.Get()
	if err != nil || v != "ok" {
		t.Errorf("Call = (%q, %v), want (ok, nil)", v, err)
	}
}
