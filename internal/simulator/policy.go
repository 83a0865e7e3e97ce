package simulator

import (
	"fmt"

	"github.com/lox/flip7odds/internal/odds"
)

// Policy decides whether to draw another card from the current table state.
type Policy interface {
	// Name identifies the policy in logs and summaries.
	Name() string

	// Hit returns true to draw another card, false to stay and bank.
	Hit(d *odds.Decision) bool
}

// EVPolicy hits while one more draw has positive expected value.
type EVPolicy struct{}

func (EVPolicy) Name() string { return "ev" }

func (EVPolicy) Hit(d *odds.Decision) bool {
	return d.ExpectedValue > 0
}

// BustLimitPolicy hits while the bust probability stays at or below a
// fixed limit.
type BustLimitPolicy struct {
	Limit float64
}

func (p BustLimitPolicy) Name() string { return "bust" }

func (p BustLimitPolicy) Hit(d *odds.Decision) bool {
	return d.BustProbability <= p.Limit
}

// BankTargetPolicy hits until the banked score reaches a target.
type BankTargetPolicy struct {
	Target int
}

func (p BankTargetPolicy) Name() string { return "bank" }

func (p BankTargetPolicy) Hit(d *odds.Decision) bool {
	return d.Bank < p.Target
}

// AlwaysHitPolicy never stays. Rounds end only by bust, freeze or flip 7,
// which makes it a useful worst-case baseline.
type AlwaysHitPolicy struct{}

func (AlwaysHitPolicy) Name() string { return "always" }

func (AlwaysHitPolicy) Hit(d *odds.Decision) bool { return true }

// CreatePolicy creates a drawing policy by name. The bust limit applies to
// the "bust" policy and the bank target to the "bank" policy.
func CreatePolicy(name string, bustLimit float64, bankTarget int) (Policy, error) {
	switch name {
	case "ev":
		return EVPolicy{}, nil
	case "bust":
		if bustLimit < 0 || bustLimit > 1 {
			return nil, fmt.Errorf("bust limit must be between 0 and 1, got %f", bustLimit)
		}
		return BustLimitPolicy{Limit: bustLimit}, nil
	case "bank":
		if bankTarget <= 0 {
			return nil, fmt.Errorf("bank target must be positive, got %d", bankTarget)
		}
		return BankTargetPolicy{Target: bankTarget}, nil
	case "always":
		return AlwaysHitPolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown policy %q", name)
	}
}
