package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig() Config {
	return Config{MaxAttempts: 3, InitialDelay: time.Millisecond, BackoffFactor: 2, MaxDelay: 5 * time.Millisecond}
}

func TestDo_Success(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), func(ctx context.Context, attempt int) error {
		attempts++
		return nil
	}, fastConfig())

	if err != nil {
		t.Fatalf("Expected success, got error: %v", err)
	}
	if attempts != 1 {
		t.Fatalf("Expected 1 attempt, got %d", attempts)
	}
}

func TestDo_RetryAndSuccess(t *testing.T) {
	var seen []int
	err := Do(context.Background(), func(ctx context.Context, attempt int) error {
		seen = append(seen, attempt)
		if attempt < 3 {
			return errors.New("temporary error")
		}
		return nil
	}, fastConfig())

	if err != nil {
		t.Fatalf("Expected success after retry, got error: %v", err)
	}
	if len(seen) != 3 || seen[0] != 1 || seen[2] != 3 {
		t.Fatalf("unexpected attempts: %v", seen)
	}
}

func TestDo_AllFail(t *testing.T) {
	want := errors.New("persistent")
	retries := 0
	cfg := fastConfig()
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) { retries++ }

	err := Do(context.Background(), func(ctx context.Context, attempt int) error {
		return want
	}, cfg)

	if !errors.Is(err, want) {
		t.Fatalf("Expected last error, got %v", err)
	}
	if retries != 2 {
		t.Fatalf("Expected 2 retries, got %d", retries)
	}
}

func TestDo_NotRetryable(t *testing.T) {
	permanent := errors.New("permanent")
	cfg := fastConfig()
	cfg.Retryable = func(err error) bool { return !errors.Is(err, permanent) }

	attempts := 0
	err := Do(context.Background(), func(ctx context.Context, attempt int) error {
		attempts++
		return permanent
	}, cfg)

	if !errors.Is(err, permanent) || attempts != 1 {
		t.Fatalf("Expected single attempt with permanent error, got %d / %v", attempts, err)
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, func(ctx context.Context, attempt int) error {
		t.Fatal("operation must not run")
		return nil
	}, fastConfig())

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
}

func TestBackoff(t *testing.T) {
	cfg := Config{InitialDelay: 10 * time.Millisecond, BackoffFactor: 2, MaxDelay: 30 * time.Millisecond}

	if d := Backoff(cfg, 1); d != 10*time.Millisecond {
		t.Fatalf("attempt 1: %v", d)
	}
	if d := Backoff(cfg, 2); d != 20*time.Millisecond {
		t.Fatalf("attempt 2: %v", d)
	}
	if d := Backoff(cfg, 3); d != 30*time.Millisecond {
		t.Fatalf("attempt 3 should be capped: %v", d)
	}
}
