// AngelaMos | 2026
// tierlimit.go

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// TierLimit is the per-minute request budget of one tier. Unlimited skips
// the tiered limiter entirely; the global per-IP limit still applies.
type TierLimit struct {
	RequestsPerMinute int
	BurstSize         int
	Unlimited         bool
}

// TierBudget is the budget that applies to one user and the tier it came
// from.
type TierBudget struct {
	Tier  string
	Limit TierLimit
}

// BudgetSource resolves a user's budget. claimedTier is the tier name in
// the access token, which may be stale.
type BudgetSource interface {
	Budget(ctx context.Context, userID, claimedTier string) (TierBudget, error)
}

// StaticBudgets keys budgets by lowercased tier name. Unknown tiers get the
// "free" budget.
type StaticBudgets map[string]TierLimit

func (s StaticBudgets) Budget(_ context.Context, _, claimedTier string) (TierBudget, error) {
	return s.ForTier(claimedTier), nil
}

func (s StaticBudgets) ForTier(name string) TierBudget {
	key := strings.ToLower(name)
	if limit, ok := s[key]; ok {
		return TierBudget{Tier: key, Limit: limit}
	}
	return TierBudget{Tier: "free", Limit: s["free"]}
}

// DefaultTierLimits matches the seeded tiers.
var DefaultTierLimits = StaticBudgets{
	"free":       {RequestsPerMinute: 60, BurstSize: 10},
	"pro":        {RequestsPerMinute: 600, BurstSize: 100},
	"enterprise": {RequestsPerMinute: 6000, BurstSize: 1000},
}

const budgetTTL = 30 * time.Second

type cachedBudget struct {
	budget  TierBudget
	expires time.Time
}

// budgetCache keeps resolved budgets briefly so the limiter does not read
// the tier store on every request. A tier change takes effect within
// budgetTTL.
type budgetCache struct {
	source BudgetSource
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]cachedBudget
}

func newBudgetCache(source BudgetSource, now func() time.Time) *budgetCache {
	return &budgetCache{source: source, now: now, entries: map[string]cachedBudget{}}
}

func (c *budgetCache) get(ctx context.Context, userID, claimedTier string) (TierBudget, error) {
	key := userID + "|" + claimedTier
	now := c.now()

	c.mu.Lock()
	entry, ok := c.entries[key]
	c.mu.Unlock()
	if ok && now.Before(entry.expires) {
		return entry.budget, nil
	}

	budget, err := c.source.Budget(ctx, userID, claimedTier)
	if err != nil {
		return TierBudget{}, err
	}

	c.mu.Lock()
	if len(c.entries) > 10_000 {
		clear(c.entries)
	}
	c.entries[key] = cachedBudget{budget: budget, expires: now.Add(budgetTTL)}
	c.mu.Unlock()
	return budget, nil
}

// TieredRateLimiter must run after Authenticator. Anonymous requests are
// keyed by IP under the claimed (empty) tier's budget. When the source
// fails the budget of the claimed tier from fallback is used.
func TieredRateLimiter(
	source BudgetSource,
	store Allower,
	fallback StaticBudgets,
) func(http.Handler) http.Handler {
	budgets := newBudgetCache(source, time.Now)
	limits := newLimitStore(store)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			claimed := GetUserTier(ctx)

			budget, err := budgets.get(ctx, GetUserID(ctx), claimed)
			if err != nil {
				slog.WarnContext(ctx, "tier budget lookup failed", "error", err)
				budget = fallback.ForTier(claimed)
			}

			w.Header().Set("X-RateLimit-Tier", budget.Tier)
			if budget.Limit.Unlimited {
				next.ServeHTTP(w, r)
				return
			}

			limit := PerMinute(budget.Limit.RequestsPerMinute, budget.Limit.BurstSize)
			res, err := limits.allow(ctx, KeyByUser(r)+":tier:"+budget.Tier, limit)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			if admit(w, res, limit) {
				next.ServeHTTP(w, r)
			}
		})
	}
}
