// Package throttle spaces outbound calls to each generative service so that
// consecutive calls to one service are never closer than 60s/rpm.
package throttle

import (
	"context"
	"sync"
	"time"

	"github.com/researchrender/researchrender/pkg/logger"
)

// serviceState is the per-service rate state. mu is held across the whole
// check-sleep-update sequence so concurrent callers queue behind it.
type serviceState struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

// Throttle is a leaky bucket of size one per service id.
type Throttle struct {
	services map[string]*serviceState

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Throttle from requests-per-minute budgets keyed by service
// id. A budget of zero or less disables throttling for that id.
func New(budgets map[string]int) *Throttle {
	services := make(map[string]*serviceState, len(budgets))
	for id, rpm := range budgets {
		services[id] = &serviceState{interval: Interval(rpm)}
	}
	return &Throttle{
		services: services,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// Interval converts a requests-per-minute budget into the minimum spacing
// between calls.
func Interval(rpm int) time.Duration {
	if rpm <= 0 {
		return 0
	}
	return time.Minute / time.Duration(rpm)
}

// Interval returns the configured spacing for a service id.
func (t *Throttle) Interval(serviceID string) time.Duration {
	if st, ok := t.services[serviceID]; ok {
		return st.interval
	}
	return 0
}

// Acquire blocks until a call to serviceID is permitted and records the
// call. It only fails when ctx ends while waiting, in which case the call is
// not recorded.
func (t *Throttle) Acquire(ctx context.Context, serviceID string) error {
	st, ok := t.services[serviceID]
	if !ok {
		logger.Warn(ctx, "unknown service for rate limiting", "service", serviceID)
		return nil
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if !st.last.IsZero() {
		elapsed := t.now().Sub(st.last)
		if wait := st.interval - elapsed; wait > 0 {
			logger.Debug(ctx, "rate limiting service",
				"service", serviceID,
				"sleep", wait.Round(time.Millisecond),
			)
			if err := t.sleep(ctx, wait); err != nil {
				return err
			}
		}
	}

	st.last = t.now()
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
