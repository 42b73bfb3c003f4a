// AngelaMos | 2026
// tasks.go

package jobs

import (
	"context"
	"log/slog"
	"time"
)

type TokenPurger interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

type DocumentRequeuer interface {
	RequeueStale(ctx context.Context, stuckAfter time.Duration) (int, error)
}

type SessionSweeper interface {
	Sweep(ctx context.Context) int
}

// TokenCleanup deletes expired and revoked refresh tokens.
func TokenCleanup(tokens TokenPurger, logger *slog.Logger) Task {
	return func(ctx context.Context) error {
		n, err := tokens.DeleteExpired(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			logger.Info("purged refresh tokens", "count", n)
		}
		return nil
	}
}

// DocumentRequeue puts stalled documents back on the processing stream.
func DocumentRequeue(docs DocumentRequeuer, stuckAfter time.Duration) Task {
	return func(ctx context.Context) error {
		_, err := docs.RequeueStale(ctx, stuckAfter)
		return err
	}
}

// SessionSweep closes game sessions nobody has touched within their idle TTL.
func SessionSweep(sessions SessionSweeper, logger *slog.Logger) Task {
	return func(ctx context.Context) error {
		if n := sessions.Sweep(ctx); n > 0 {
			logger.Info("swept idle game sessions", "count", n)
		}
		return nil
	}
}
