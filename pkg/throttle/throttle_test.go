package throttle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeClock advances only when the throttle sleeps.
type fakeClock struct {
	mu    sync.Mutex
	t     time.Time
	slept []time.Duration
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) sleep(_ context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slept = append(c.slept, d)
	c.t = c.t.Add(d)
	return nil
}

func newFakeThrottle(budgets map[string]int) (*Throttle, *fakeClock) {
	clk := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	th := New(budgets)
	th.now = clk.now
	th.sleep = clk.sleep
	return th, clk
}

func TestInterval(t *testing.T) {
	if got := Interval(15); got != 4*time.Second {
		t.Errorf("expected 4s for 15 rpm, got %v", got)
	}
	if got := Interval(30); got != 2*time.Second {
		t.Errorf("expected 2s for 30 rpm, got %v", got)
	}
	if got := Interval(0); got != 0 {
		t.Errorf("expected 0 for disabled budget, got %v", got)
	}
}

func TestFirstCallDoesNotWait(t *testing.T) {
	th, clk := newFakeThrottle(map[string]int{"steps": 15})
	if err := th.Acquire(context.Background(), "steps"); err != nil {
		t.Fatal(err)
	}
	if len(clk.slept) != 0 {
		t.Errorf("expected no sleep, got %v", clk.slept)
	}
}

func TestFloorBetweenCalls(t *testing.T) {
	const rpm = 15
	th, clk := newFakeThrottle(map[string]int{"steps": rpm})
	ctx := context.Background()

	var returns []time.Time
	for range rpm + 1 {
		if err := th.Acquire(ctx, "steps"); err != nil {
			t.Fatal(err)
		}
		returns = append(returns, clk.now())
	}

	floor := time.Minute / rpm
	for i := 1; i < len(returns); i++ {
		if gap := returns[i].Sub(returns[i-1]); gap < floor {
			t.Errorf("call %d returned %v after previous, want >= %v", i+1, gap, floor)
		}
	}
}

func TestPartialElapsedSleepsRemainder(t *testing.T) {
	th, clk := newFakeThrottle(map[string]int{"code": 30})
	ctx := context.Background()

	_ = th.Acquire(ctx, "code")
	clk.t = clk.t.Add(500 * time.Millisecond)
	_ = th.Acquire(ctx, "code")

	if len(clk.slept) != 1 || clk.slept[0] != 1500*time.Millisecond {
		t.Errorf("expected one 1.5s sleep, got %v", clk.slept)
	}
}

func TestServicesIndependent(t *testing.T) {
	th, clk := newFakeThrottle(map[string]int{"steps": 1, "code": 1})
	ctx := context.Background()

	_ = th.Acquire(ctx, "steps")
	_ = th.Acquire(ctx, "code")

	if len(clk.slept) != 0 {
		t.Errorf("different services should not delay each other, slept %v", clk.slept)
	}
}

func TestUnknownServiceNotThrottled(t *testing.T) {
	th, clk := newFakeThrottle(map[string]int{"steps": 1})
	for range 3 {
		if err := th.Acquire(context.Background(), "other"); err != nil {
			t.Fatal(err)
		}
	}
	if len(clk.slept) != 0 {
		t.Errorf("unknown service should not sleep, got %v", clk.slept)
	}
}

func TestCancelledWaitDoesNotRecord(t *testing.T) {
	th := New(map[string]int{"steps": 1}) // 60s spacing, real clock
	if err := th.Acquire(context.Background(), "steps"); err != nil {
		t.Fatal(err)
	}
	first := th.services["steps"].last

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := th.Acquire(ctx, "steps")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if !th.services["steps"].last.Equal(first) {
		t.Error("cancelled acquire must not update the timestamp")
	}
}

func TestConcurrentCallersKeepFloor(t *testing.T) {
	const rpm = 1200 // 50ms spacing
	th := New(map[string]int{"steps": rpm, "code": rpm})
	floor := Interval(rpm)

	var (
		mu      sync.Mutex
		returns []time.Time
		wg      sync.WaitGroup
	)
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := th.Acquire(context.Background(), "steps"); err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			returns = append(returns, time.Now())
			mu.Unlock()
		}()
	}

	// A different service is admitted immediately while steps callers queue.
	start := time.Now()
	if err := th.Acquire(context.Background(), "code"); err != nil {
		t.Fatal(err)
	}
	if d := time.Since(start); d > floor {
		t.Errorf("code acquire took %v, expected no wait", d)
	}

	wg.Wait()
	if len(returns) != 4 {
		t.Fatalf("expected 4 returns, got %d", len(returns))
	}
	first, last := returns[0], returns[0]
	for _, r := range returns {
		if r.Before(first) {
			first = r
		}
		if r.After(last) {
			last = r
		}
	}
	// Four admissions need at least three full intervals between them.
	if span := last.Sub(first); span < 3*floor-20*time.Millisecond {
		t.Errorf("4 concurrent callers admitted within %v, want >= %v", span, 3*floor)
	}
}
