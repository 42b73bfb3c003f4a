// AngelaMos | 2026
// budget.go

package access

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/carterperez-dev/playvault/internal/core"
	"github.com/carterperez-dev/playvault/internal/middleware"
)

// Tier feature keys read by RequestBudgets.
const (
	RequestsPerMinuteKey = "api_requests_per_minute"
	RequestBurstKey      = "api_burst"
)

// RequestBudgets turns a user's current tier into an API rate budget. A
// tier that sets api_requests_per_minute overrides the name-keyed
// fallback; null or a negative value lifts the tiered limit.
type RequestBudgets struct {
	tiers    TierSource
	fallback middleware.StaticBudgets
}

func NewRequestBudgets(tiers TierSource, fallback middleware.StaticBudgets) *RequestBudgets {
	return &RequestBudgets{tiers: tiers, fallback: fallback}
}

func (b *RequestBudgets) Budget(
	ctx context.Context,
	userID, claimedTier string,
) (middleware.TierBudget, error) {
	if userID == "" {
		return b.fallback.ForTier(claimedTier), nil
	}

	t, err := b.tiers.ForUser(ctx, userID)
	if errors.Is(err, core.ErrNotFound) {
		return b.fallback.ForTier(""), nil
	}
	if err != nil {
		return middleware.TierBudget{}, fmt.Errorf("load tier: %w", err)
	}

	budget := b.fallback.ForTier(t.Name)
	budget.Tier = strings.ToLower(t.Name)

	v, ok := t.Features[RequestsPerMinuteKey]
	if !ok {
		return budget, nil
	}
	if v.IsUnlimited() {
		budget.Limit = middleware.TierLimit{Unlimited: true}
		return budget, nil
	}
	perMinute, ok := v.Number()
	if !ok {
		return budget, nil
	}

	rpm := max(int(perMinute), 1)
	budget.Limit = middleware.TierLimit{
		RequestsPerMinute: rpm,
		BurstSize:         max(rpm/6, 1),
	}
	if burst, ok := t.Features[RequestBurstKey].Number(); ok && burst >= 1 {
		budget.Limit.BurstSize = int(burst)
	}
	return budget, nil
}

var _ middleware.BudgetSource = (*RequestBudgets)(nil)
