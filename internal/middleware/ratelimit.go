// AngelaMos | 2026
// ratelimit.go

package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/carterperez-dev/playvault/internal/core"
)

// RateLimitConfig configures a fixed-budget limiter. FailOpen only matters
// when both Redis and the in-process buckets fail, which in practice means
// a misconfigured limit.
type RateLimitConfig struct {
	Limit    redis_rate.Limit
	KeyFunc  func(*http.Request) string
	FailOpen bool
}

type RateLimiter struct {
	store  *limitStore
	config RateLimitConfig
}

func NewRateLimiter(rdb *redis.Client, cfg RateLimitConfig) *RateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = KeyByIP
	}

	return &RateLimiter{
		store:  newLimitStore(redis_rate.NewLimiter(rdb)),
		config: cfg,
	}
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rl.config.KeyFunc(r)

		res, err := rl.store.allow(r.Context(), key, rl.config.Limit)
		if err != nil {
			if !rl.config.FailOpen {
				core.JSONError(w, core.NewAppError(err,
					"rate limiter unavailable", http.StatusServiceUnavailable, "UNAVAILABLE"))
				return
			}
			slog.WarnContext(r.Context(), "rate limiter failed open",
				"key", key,
				"error", err,
			)
			next.ServeHTTP(w, r)
			return
		}

		if !admit(w, res, rl.config.Limit) {
			return
		}
		next.ServeHTTP(w, r)
	})
}

// admit writes the limit headers and, for a denied request, the 429 body.
func admit(w http.ResponseWriter, res *redis_rate.Result, limit redis_rate.Limit) bool {
	h := w.Header()
	window := int(limit.Period / time.Second)
	resetSecs := int(math.Ceil(res.ResetAfter.Seconds()))

	h.Set("X-RateLimit-Limit", strconv.Itoa(limit.Rate))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(res.ResetAfter).Unix(), 10))
	h.Set("RateLimit-Policy", fmt.Sprintf("%d;w=%d", limit.Rate, window))
	h.Set("RateLimit", fmt.Sprintf("%d;t=%d", res.Remaining, resetSecs))

	if res.Allowed > 0 {
		return true
	}

	retry := max(int(math.Ceil(res.RetryAfter.Seconds())), 1)
	h.Set("Retry-After", strconv.Itoa(retry))
	core.JSONError(w, core.NewAppError(core.ErrRateLimited,
		fmt.Sprintf("rate limit exceeded, retry after %d seconds", retry),
		http.StatusTooManyRequests, "RATE_LIMITED"))
	return false
}

// Allower is satisfied by *redis_rate.Limiter.
type Allower interface {
	Allow(ctx context.Context, key string, limit redis_rate.Limit) (*redis_rate.Result, error)
}

// limitStore counts in Redis and drops to per-process token buckets while
// Redis is failing. Budgets are then enforced per replica, not globally.
type limitStore struct {
	shared Allower
	local  *bucketSet
}

func newLimitStore(shared Allower) *limitStore {
	return &limitStore{shared: shared, local: newBucketSet(time.Now)}
}

func (s *limitStore) allow(
	ctx context.Context,
	key string,
	limit redis_rate.Limit,
) (*redis_rate.Result, error) {
	res, err := s.shared.Allow(ctx, key, limit)
	if err == nil {
		return res, nil
	}

	slog.DebugContext(ctx, "redis rate limit failed, using local buckets",
		"key", key,
		"error", err,
	)
	return s.local.allow(key, limit)
}

const (
	bucketIdle  = 10 * time.Minute
	sweepPeriod = 5 * time.Minute
)

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// bucketSet sweeps idle buckets on access rather than from a goroutine.
type bucketSet struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
	now       func() time.Time
}

func newBucketSet(now func() time.Time) *bucketSet {
	return &bucketSet{buckets: map[string]*bucket{}, lastSweep: now(), now: now}
}

func (b *bucketSet) allow(key string, limit redis_rate.Limit) (*redis_rate.Result, error) {
	if limit.Rate <= 0 || limit.Period <= 0 {
		return nil, fmt.Errorf("rate limit %q: invalid limit %+v", key, limit)
	}
	perSec := float64(limit.Rate) / limit.Period.Seconds()
	burst := max(limit.Burst, 1)

	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	if now.Sub(b.lastSweep) >= sweepPeriod {
		for k, bk := range b.buckets {
			if now.Sub(bk.seen) > bucketIdle {
				delete(b.buckets, k)
			}
		}
		b.lastSweep = now
	}

	bk, ok := b.buckets[key]
	if !ok {
		bk = &bucket{lim: rate.NewLimiter(rate.Limit(perSec), burst)}
		b.buckets[key] = bk
	}
	bk.seen = now

	res := &redis_rate.Result{Limit: limit, RetryAfter: -1}
	if bk.lim.AllowN(now, 1) {
		res.Allowed = 1
	}

	tokens := bk.lim.TokensAt(now)
	res.Remaining = max(int(tokens), 0)
	res.ResetAfter = secondsToDuration((float64(burst) - tokens) / perSec)
	if res.Allowed == 0 {
		res.RetryAfter = secondsToDuration((1 - tokens) / perSec)
	}
	return res, nil
}

func secondsToDuration(s float64) time.Duration {
	if s <= 0 {
		return 0
	}
	return time.Duration(s * float64(time.Second))
}

// KeyByIP trusts the last X-Forwarded-For hop, which is the one appended
// by our own proxy.
func KeyByIP(r *http.Request) string {
	return "ratelimit:ip:" + clientIP(r)
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		return strings.TrimSpace(hops[len(hops)-1])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func KeyByUser(r *http.Request) string {
	if userID := GetUserID(r.Context()); userID != "" {
		return "ratelimit:user:" + userID
	}
	return KeyByIP(r)
}

// KeyByUserAndEndpoint collapses id segments so /documents/{id} shares one
// budget across documents.
func KeyByUserAndEndpoint(r *http.Request) string {
	return KeyByUser(r) + ":endpoint:" + routeShape(r.URL.Path)
}

func routeShape(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, seg := range segments {
		if looksLikeID(seg) {
			segments[i] = "{id}"
		}
	}
	return "/" + strings.Join(segments, "/")
}

// looksLikeID matches UUIDs, 27 character base62 KSUIDs (game sessions)
// and plain integers.
func looksLikeID(seg string) bool {
	switch len(seg) {
	case 0:
		return false
	case 36:
		return seg[8] == '-' && seg[13] == '-' && seg[18] == '-' && seg[23] == '-'
	case 27:
		return strings.IndexFunc(seg, func(c rune) bool {
			return !('0' <= c && c <= '9' || 'A' <= c && c <= 'Z' || 'a' <= c && c <= 'z')
		}) < 0
	}
	return strings.IndexFunc(seg, func(c rune) bool { return c < '0' || c > '9' }) < 0
}

func PerMinute(rate, burst int) redis_rate.Limit {
	return redis_rate.Limit{Rate: rate, Burst: burst, Period: time.Minute}
}

func PerHour(rate, burst int) redis_rate.Limit {
	return redis_rate.Limit{Rate: rate, Burst: burst, Period: time.Hour}
}
