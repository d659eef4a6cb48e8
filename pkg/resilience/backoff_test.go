package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPublishBackoff(t *testing.T) {
	b := PublishBackoff()

	if b.BaseDelay != 100*time.Millisecond {
		t.Errorf("Expected BaseDelay = 100ms, got %v", b.BaseDelay)
	}
	if b.MaxDelay != 2*time.Second {
		t.Errorf("Expected MaxDelay = 2s, got %v", b.MaxDelay)
	}
}

func TestExponentialBackoff_NextDelay(t *testing.T) {
	b := &ExponentialBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   time.Second,
		Multiplier: 2.0,
		Jitter:     0,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{4, time.Second},
		{10, time.Second},
		{-1, 100 * time.Millisecond},
	}

	for _, tt := range tests {
		if got := b.NextDelay(tt.attempt); got != tt.expected {
			t.Errorf("attempt %d: expected %v, got %v", tt.attempt, tt.expected, got)
		}
	}
}

func TestExponentialBackoff_WithJitter(t *testing.T) {
	b := &ExponentialBackoff{
		BaseDelay:  time.Second,
		MaxDelay:   10 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.1,
	}

	for i := 0; i < 100; i++ {
		d := b.NextDelay(0)
		if d < 900*time.Millisecond || d > 1100*time.Millisecond {
			t.Fatalf("delay %v outside ±10%% of 1s", d)
		}
	}
}

func TestFixedBackoff(t *testing.T) {
	b := &FixedBackoff{Delay: 5 * time.Millisecond}
	for i := 0; i < 3; i++ {
		if got := b.NextDelay(i); got != 5*time.Millisecond {
			t.Errorf("attempt %d: expected 5ms, got %v", i, got)
		}
	}
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, &FixedBackoff{Delay: time.Millisecond}, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("broker unavailable")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetry_ReturnsLastError(t *testing.T) {
	calls := 0
	want := errors.New("still down")
	err := Retry(context.Background(), 2, &FixedBackoff{Delay: time.Millisecond}, func(context.Context) error {
		calls++
		return want
	})

	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestRetry_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, 5, &FixedBackoff{Delay: time.Hour}, func(context.Context) error {
		calls++
		cancel()
		return errors.New("fail")
	})

	if err == nil {
		t.Fatal("expected an error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call before cancellation, got %d", calls)
	}
}
