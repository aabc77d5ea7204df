package budget

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/researchrender/researchrender/pkg/models"
	"github.com/researchrender/researchrender/pkg/tracker"
)

// ErrBudgetExceeded is returned when a service has used up its call budget.
var ErrBudgetExceeded = errors.New("budget exceeded")

// Enforcer checks outbound call counts against budget policies.
type Enforcer struct {
	policies []models.BudgetPolicy
	tracker  tracker.Tracker
	now      func() time.Time
}

// New creates an Enforcer with the given policies and tracker.
func New(policies []models.BudgetPolicy, t tracker.Tracker) *Enforcer {
	return &Enforcer{policies: policies, tracker: t, now: time.Now}
}

// Check returns ErrBudgetExceeded if service has exhausted any applicable policy.
func (e *Enforcer) Check(ctx context.Context, service string) error {
	if e == nil {
		return nil
	}
	for _, p := range e.applicablePolicies(service) {
		used, err := e.tracker.CountByService(ctx, service, periodStart(e.now(), p.Period))
		if err != nil {
			return fmt.Errorf("budget check: %w", err)
		}
		if used >= p.MaxCalls {
			return fmt.Errorf("%w: %s used %d of %d %s calls", ErrBudgetExceeded, service, used, p.MaxCalls, p.Period)
		}
	}
	return nil
}

// Status returns usage against every policy that applies to service, or
// every policy when service is empty.
func (e *Enforcer) Status(ctx context.Context, service string) ([]models.BudgetStatus, error) {
	policies := e.policies
	if service != "" {
		policies = e.applicablePolicies(service)
	}
	statuses := make([]models.BudgetStatus, 0, len(policies))

	for _, p := range policies {
		used, err := e.tracker.CountByService(ctx, p.Service, periodStart(e.now(), p.Period))
		if err != nil {
			return nil, fmt.Errorf("budget status: %w", err)
		}
		remaining := p.MaxCalls - used
		if remaining < 0 {
			remaining = 0
		}
		statuses = append(statuses, models.BudgetStatus{
			Policy:    p,
			Used:      used,
			Remaining: remaining,
		})
	}
	return statuses, nil
}

func (e *Enforcer) applicablePolicies(service string) []models.BudgetPolicy {
	var result []models.BudgetPolicy
	for _, p := range e.policies {
		if p.Service == service {
			result = append(result, p)
		}
	}
	return result
}

func periodStart(now time.Time, period models.BudgetPeriod) time.Time {
	now = now.UTC()
	switch period {
	case models.BudgetMonthly:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	default: // daily
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
}
