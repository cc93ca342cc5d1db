package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b := NewBreaker(Config{Threshold: 3, ResetTimeout: time.Minute})

	for i := 0; i < 3; i++ {
		b.Failure()
	}

	if b.State() != Open {
		t.Errorf("state = %v, want Open", b.State())
	}
	if err := b.Allow(); !errors.Is(err, ErrOpen) {
		t.Errorf("Allow() = %v, want ErrOpen", err)
	}
}

func TestBreakerStaysClosedUnderThreshold(t *testing.T) {
	b := NewBreaker(Config{Threshold: 3, ResetTimeout: time.Minute})

	b.Failure()
	b.Failure()
	b.Success() // resets failure count in closed state
	b.Failure()
	b.Failure()

	if b.State() != Closed {
		t.Errorf("state = %v, want Closed", b.State())
	}
}

func TestBreakerHalfOpenAfterReset(t *testing.T) {
	b := NewBreaker(Config{Threshold: 1, ResetTimeout: 10 * time.Millisecond, HalfOpenSuccesses: 2})

	b.Failure()
	if b.State() != Open {
		t.Fatalf("state = %v, want Open", b.State())
	}

	time.Sleep(20 * time.Millisecond)

	if err := b.Allow(); err != nil {
		t.Fatalf("Allow() after reset timeout = %v, want nil", err)
	}
	if b.State() != HalfOpen {
		t.Errorf("state = %v, want HalfOpen", b.State())
	}

	b.Success()
	b.Success()
	if b.State() != Closed {
		t.Errorf("state = %v, want Closed after half-open successes", b.State())
	}
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b := NewBreaker(Config{Threshold: 1, ResetTimeout: 10 * time.Millisecond})

	b.Failure()
	time.Sleep(20 * time.Millisecond)
	_ = b.Allow() // transitions to half-open
	b.Failure()

	if b.State() != Open {
		t.Errorf("state = %v, want Open after half-open failure", b.State())
	}
}

func TestExecuteWithResult(t *testing.T) {
	b := NewBreaker(DefaultConfig())

	v, err := ExecuteWithResult(b, func() (string, error) {
		return "ok", nil
	})
	if err != nil || v != "ok" {
		t.Errorf("ExecuteWithResult = (%q, %v), want (ok, nil)", v, err)
	}

	boom := errors.New("boom")
	_, err = ExecuteWithResult(b, func() (string, error) {
		return "", boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("ExecuteWithResult err = %v, want boom", err)
	}
}

func TestBreakerHook(t *testing.T) {
	var transitions []State
	b := NewBreaker(Config{Threshold: 1, ResetTimeout: time.Minute}).WithHook(func(from, to State) {
		transitions = append(transitions, to)
	})

	b.Failure()
	b.Reset()

	if len(transitions) != 2 || transitions[0] != Open || transitions[1] != Closed {
		t.Errorf("transitions = %v, want [open closed]", transitions)
	}
}
