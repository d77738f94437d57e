package external

import (
	"context"
	"testing"
	"time"
)

func newTestRetry(retries int, sleeps *[]time.Duration) Retry {
	r := DefaultRetry(retries, 1000*time.Millisecond, 60*time.Second, 2)
	r.sleep = func(d time.Duration) { *sleeps = append(*sleeps, d) }
	return r
}

func TestRetryBackoffCurve(t *testing.T) {
	var sleeps []time.Duration
	r := newTestRetry(3, &sleeps)

	calls := 0
	err := r.Do(context.Background(), "brokerage", "complete-transaction", func() error {
		calls++
		return ClassifyStatus("brokerage", 500, "", nil)
	})

	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	ce := AsError(err)
	if ce == nil || ce.Kind != KindServerError {
		t.Fatalf("expected classified server error, got %v", err)
	}
	if calls != 4 {
		t.Errorf("calls = %d, want 4 (1 attempt + 3 retries)", calls)
	}
	if ce.Attempts != 4 {
		t.Errorf("attempts tag = %d, want 4", ce.Attempts)
	}

	want := []time.Duration{1000 * time.Millisecond, 2000 * time.Millisecond, 4000 * time.Millisecond}
	if len(sleeps) != len(want) {
		t.Fatalf("sleeps = %v, want %v", sleeps, want)
	}
	for i := range want {
		if sleeps[i] != want[i] {
			t.Errorf("sleep %d = %s, want %s", i, sleeps[i], want[i])
		}
	}
}

func TestRetryBackoffCap(t *testing.T) {
	r := Retry{Retries: 10, MinTimeout: time.Second, MaxTimeout: 5 * time.Second, Factor: 2}
	if d := r.backoff(1); d != time.Second {
		t.Errorf("backoff(1) = %s, want 1s", d)
	}
	if d := r.backoff(3); d != 4*time.Second {
		t.Errorf("backoff(3) = %s, want 4s", d)
	}
	if d := r.backoff(4); d != 5*time.Second {
		t.Errorf("backoff(4) = %s, want cap of 5s", d)
	}
	if d := r.backoff(10); d != 5*time.Second {
		t.Errorf("backoff(10) = %s, want cap of 5s", d)
	}
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	var sleeps []time.Duration
	r := newTestRetry(3, &sleeps)

	calls := 0
	err := r.Do(context.Background(), "brokerage", "create-group", func() error {
		calls++
		return ClassifyStatus("brokerage", 400, "", nil)
	})

	if calls != 1 {
		t.Errorf("calls = %d, want 1 for a non-retryable failure", calls)
	}
	if len(sleeps) != 0 {
		t.Errorf("slept %v before failing fast", sleeps)
	}
	ce := AsError(err)
	if ce == nil || ce.Kind != KindBadRequest {
		t.Fatalf("expected bad request, got %v", err)
	}
	if ce.Attempts != 1 {
		t.Errorf("attempts tag = %d, want 1", ce.Attempts)
	}
}

func TestRetryCustomPredicate(t *testing.T) {
	var sleeps []time.Duration
	r := newTestRetry(2, &sleeps)
	r.Retryable = func(e *Error) bool {
		return e.Kind == KindRateLimit
	}

	calls := 0
	_ = r.Do(context.Background(), "brokerage", "get-summary", func() error {
		calls++
		return ClassifyStatus("brokerage", 429, "", nil)
	})

	if calls != 3 {
		t.Errorf("calls = %d, want 3 with rate-limit marked retryable", calls)
	}
}

func TestRetrySucceedsMidway(t *testing.T) {
	var sleeps []time.Duration
	r := newTestRetry(3, &sleeps)

	calls := 0
	err := r.Do(context.Background(), "brokerage", "complete-transaction", func() error {
		calls++
		if calls < 3 {
			return ClassifyStatus("brokerage", 503, "", nil)
		}
		return nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if len(sleeps) != 2 {
		t.Errorf("sleeps = %v, want 2 entries", sleeps)
	}
}

func TestRetryHonoursCancelledContext(t *testing.T) {
	var sleeps []time.Duration
	r := newTestRetry(5, &sleeps)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := r.Do(ctx, "brokerage", "get-summary", func() error {
		calls++
		cancel()
		return ClassifyStatus("brokerage", 500, "", nil)
	})

	if calls != 1 {
		t.Errorf("calls = %d, want 1 after cancellation", calls)
	}
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
}

func TestRetryCancellationInterruptsBackoff(t *testing.T) {
	// No injected sleep: exercise the real timer-based wait with a backoff
	// far longer than the test should ever run.
	r := DefaultRetry(3, time.Hour, time.Hour, 2)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	calls := 0
	start := time.Now()
	err := r.Do(ctx, "brokerage", "get-summary", func() error {
		calls++
		return ClassifyStatus("brokerage", 503, "", nil)
	})

	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("backoff ignored cancellation, Do took %s", elapsed)
	}
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
