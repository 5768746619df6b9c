package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		Multiplier:     2.0,
		BreakerEnabled: false,
	}
}

func TestExecuteRetriesUntilSuccess(t *testing.T) {
	exec := NewExecutor(fastConfig())

	calls := 0
	err := exec.Execute(context.Background(), "llm_extract", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, func(error) Outcome { return Outcome{Retry: true, CountFailure: true} })
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestExecuteStopsOnNonRetryable(t *testing.T) {
	exec := NewExecutor(fastConfig())

	calls := 0
	wantErr := errors.New("bad request")
	err := exec.Execute(context.Background(), "llm_extract", func(context.Context) error {
		calls++
		return wantErr
	}, func(error) Outcome { return Outcome{Retry: false, CountFailure: true} })
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
	if calls != 1 {
		t.Fatalf("non-retryable error must not be retried, got %d attempts", calls)
	}
}

func TestExecuteExhaustsAttempts(t *testing.T) {
	exec := NewExecutor(fastConfig())

	calls := 0
	err := exec.Execute(context.Background(), "llm_extract", func(context.Context) error {
		calls++
		return errors.New("still failing")
	}, func(error) Outcome { return Outcome{Retry: true, CountFailure: true} })
	if err == nil {
		t.Fatal("expected error after exhausted attempts")
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestExecuteRespectsContextCancellation(t *testing.T) {
	exec := NewExecutor(Config{
		MaxAttempts:    5,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     50 * time.Millisecond,
		Multiplier:     1.0,
		BreakerEnabled: false,
	})

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := exec.Execute(ctx, "llm_extract", func(context.Context) error {
		calls++
		return errors.New("transient")
	}, func(error) Outcome { return Outcome{Retry: true, CountFailure: true} })
	if err == nil {
		t.Fatal("expected error")
	}
	if calls > 2 {
		t.Fatalf("cancellation must stop the retry loop, got %d attempts", calls)
	}
}

func TestBreakerOpensAfterFailureRatio(t *testing.T) {
	cfg := fastConfig()
	cfg.BreakerEnabled = true
	cfg.BreakerMinRequests = 3
	cfg.BreakerFailureRatio = 0.5
	cfg.MaxAttempts = 1
	exec := NewExecutor(cfg)

	classify := func(error) Outcome { return Outcome{Retry: false, CountFailure: true} }
	for i := 0; i < 3; i++ {
		_ = exec.Execute(context.Background(), "token_issue", func(context.Context) error {
			return errors.New("down")
		}, classify)
	}

	err := exec.Execute(context.Background(), "token_issue", func(context.Context) error {
		return nil
	}, classify)
	if !IsCircuitOpen(err) {
		t.Fatalf("expected open circuit, got %v", err)
	}
}

func TestBreakerIgnoresNonCountedFailures(t *testing.T) {
	cfg := fastConfig()
	cfg.BreakerEnabled = true
	cfg.BreakerMinRequests = 3
	cfg.MaxAttempts = 1
	exec := NewExecutor(cfg)

	classify := func(error) Outcome { return Outcome{Retry: false, CountFailure: false} }
	for i := 0; i < 10; i++ {
		_ = exec.Execute(context.Background(), "llm_extract", func(context.Context) error {
			return errors.New("caller error")
		}, classify)
	}

	err := exec.Execute(context.Background(), "llm_extract", func(context.Context) error {
		return nil
	}, classify)
	if err != nil {
		t.Fatalf("breaker must stay closed for non-counted failures: %v", err)
	}
}
