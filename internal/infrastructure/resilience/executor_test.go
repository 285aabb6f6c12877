package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/kirillkom/sme-health/internal/core/domain"
)

func TestExecuteRetriesTemporaryFailure(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 1 * time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	})

	attempts := 0
	errTemp := errors.New("temporary")
	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errTemp
		}
		return nil
	}, func(err error) ErrorClassification {
		return ErrorClassification{
			Retryable:     errors.Is(err, errTemp),
			RecordFailure: true,
		}
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestExecuteDoesNotRetryPermanentFailure(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 1 * time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	})

	attempts := 0
	errPermanent := errors.New("permanent")
	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		attempts++
		return errPermanent
	}, func(error) ErrorClassification {
		return ErrorClassification{
			Retryable:     false,
			RecordFailure: false,
		}
	})
	if !errors.Is(err, errPermanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestExecuteOpensCircuitAfterFailures(t *testing.T) {
	var transitions []string
	exec := NewExecutor(Config{
		OnStateChange: func(operation, from, to string) {
			transitions = append(transitions, operation+":"+from+"->"+to)
		},
		RetryMaxAttempts:        1,
		RetryInitialBackoff:     1 * time.Millisecond,
		RetryMaxBackoff:         1 * time.Millisecond,
		RetryMultiplier:         2,
		BreakerEnabled:          true,
		BreakerMinRequests:      2,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      50 * time.Millisecond,
		BreakerHalfOpenMaxCalls: 1,
	})

	errTemp := errors.New("temporary")
	classifier := func(error) ErrorClassification {
		return ErrorClassification{
			Retryable:     false,
			RecordFailure: true,
		}
	}

	for i := 0; i < 2; i++ {
		err := exec.Execute(context.Background(), "op", func(context.Context) error {
			return errTemp
		}, classifier)
		if !errors.Is(err, errTemp) {
			t.Fatalf("expected temporary error on iteration %d, got %v", i, err)
		}
	}

	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		t.Fatalf("circuit should be open and must not call operation")
		return nil
	}, classifier)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open state error, got %v", err)
	}
	if !IsCircuitOpen(err) || !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("open breaker must surface as temporary, got %v", err)
	}
	if len(transitions) != 1 || transitions[0] != "op:closed->open" {
		t.Fatalf("unexpected transitions %v", transitions)
	}
}

func TestExecuteStopsWhenContextCancelled(t *testing.T) {
	exec := NewExecutor(Config{RetryMaxAttempts: 3, BreakerEnabled: false})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := exec.Execute(ctx, "llm.generate", func(context.Context) error {
		called = true
		return nil
	}, nil)
	if !errors.Is(err, context.Canceled) || called {
		t.Fatalf("expected cancellation before the call, got err=%v called=%v", err, called)
	}
}

func breakerConfig() Config {
	return Config{
		RetryMaxAttempts:        1,
		RetryInitialBackoff:     time.Millisecond,
		RetryMaxBackoff:         time.Millisecond,
		BreakerEnabled:          true,
		BreakerMinRequests:      2,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      time.Minute,
		BreakerHalfOpenMaxCalls: 1,
	}
}

func TestExecuteSharesBreakerPerDependency(t *testing.T) {
	exec := NewExecutor(breakerConfig())
	errDown := errors.New("connection refused")
	failing := func(context.Context) error { return errDown }

	for i := 0; i < 2; i++ {
		_ = exec.Execute(context.Background(), "ollama.generate_json", failing, nil)
	}

	called := false
	err := exec.Execute(context.Background(), "ollama.generate_text", func(context.Context) error {
		called = true
		return nil
	}, nil)
	if called || !IsCircuitOpen(err) {
		t.Fatalf("expected ollama.generate_text to be rejected, got err=%v called=%v", err, called)
	}

	if err := exec.Execute(context.Background(), "nats.publish", func(context.Context) error { return nil }, nil); err != nil {
		t.Fatalf("other dependencies must keep their own breaker, got %v", err)
	}
}

func TestExecuteNeverCountsCancellation(t *testing.T) {
	exec := NewExecutor(breakerConfig())
	recordEverything := func(error) ErrorClassification {
		return ErrorClassification{Retryable: true, RecordFailure: true}
	}

	attempts := 0
	for i := 0; i < 4; i++ {
		err := exec.Execute(context.Background(), "gemini.generate_text", func(context.Context) error {
			attempts++
			return context.Canceled
		}, recordEverything)
		if !errors.Is(err, context.Canceled) || domain.IsKind(err, domain.ErrTemporary) {
			t.Fatalf("cancellation must come back unchanged, got %v", err)
		}
	}
	if attempts != 4 {
		t.Fatalf("breaker must stay closed and cancellation must not be retried, got %d attempts", attempts)
	}
}

func TestExecuteReportsExhaustedOutageAsTemporary(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
	})
	errBusy := errors.New("503")
	errBadPrompt := errors.New("400")
	classifier := func(err error) ErrorClassification {
		return ErrorClassification{Retryable: errors.Is(err, errBusy), RecordFailure: true}
	}

	err := exec.Execute(context.Background(), "ollama.generate_text", func(context.Context) error { return errBusy }, classifier)
	if !errors.Is(err, errBusy) || !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary outage, got %v", err)
	}

	err = exec.Execute(context.Background(), "ollama.generate_text", func(context.Context) error { return errBadPrompt }, classifier)
	if !errors.Is(err, errBadPrompt) || domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("permanent failure must not be temporary, got %v", err)
	}
}

func TestExecuteSkipsRetryPastDeadline(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:    5,
		RetryInitialBackoff: time.Second,
		RetryMaxBackoff:     time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	attempts := 0
	start := time.Now()
	err := exec.Execute(ctx, "ollama.generate_json", func(context.Context) error {
		attempts++
		return errors.New("502")
	}, func(error) ErrorClassification {
		return ErrorClassification{Retryable: true, RecordFailure: true}
	})
	if err == nil || attempts != 1 {
		t.Fatalf("expected one attempt, got %d (err=%v)", attempts, err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("executor slept past the deadline: %s", elapsed)
	}
}

func TestDependency(t *testing.T) {
	for op, want := range map[string]string{
		"ollama.generate_json": "ollama",
		"nats.publish":         "nats",
		"unknown":              "unknown",
	} {
		if got := Dependency(op); got != want {
			t.Fatalf("Dependency(%q)=%q, want %q", op, got, want)
		}
	}
}
