// AngelaMos | 2026
// service.go

package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/playvault/internal/core"
	"github.com/carterperez-dev/playvault/internal/feature"
	"github.com/carterperez-dev/playvault/internal/tier"
)

// ErrNoTier is returned by Ceiling when the user has no assigned tier.
var ErrNoTier = errors.New("user has no tier assigned")

type TierSource interface {
	ForUser(ctx context.Context, userID string) (*tier.Tier, error)
}

type FlagSource interface {
	Flags(ctx context.Context) (feature.FlagSet, error)
}

// Service re-validates access on the server for every gated request. It
// always reads the current tier, never a tier carried in a token.
type Service struct {
	tiers TierSource
	flags FlagSource
}

func NewService(tiers TierSource, flags FlagSource) *Service {
	return &Service{tiers: tiers, flags: flags}
}

// Snapshot is one consistent read of a user's tier and the flag set, used
// when many capabilities are resolved for the same request.
type Snapshot struct {
	Tier  *tier.Tier
	Flags feature.FlagSet
}

func (s Snapshot) Resolve(c Capability) Decision {
	return Resolve(s.Tier, c, s.Flags)
}

func (s *Service) Snapshot(ctx context.Context, userID string) (Snapshot, error) {
	var t *tier.Tier
	if userID != "" {
		found, err := s.tiers.ForUser(ctx, userID)
		switch {
		case err == nil:
			t = found
		case errors.Is(err, core.ErrNotFound):
		default:
			return Snapshot{}, fmt.Errorf("load tier: %w", err)
		}
	}

	flags, err := s.flags.Flags(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load flags: %w", err)
	}

	return Snapshot{Tier: t, Flags: flags}, nil
}

func (s *Service) Check(ctx context.Context, userID string, c Capability) (Decision, error) {
	snap, err := s.Snapshot(ctx, userID)
	if err != nil {
		return Decision{}, err
	}

	d := snap.Resolve(c)
	record(ctx, userID, c, d)
	return d, nil
}

// Ceiling resolves the numeric entitlement c for userID. ok is false when
// the tier has no numeric entry for c; a user without a tier gets ErrNoTier.
func (s *Service) Ceiling(ctx context.Context, userID string, c Capability) (Ceiling, bool, error) {
	t, err := s.tiers.ForUser(ctx, userID)
	if errors.Is(err, core.ErrNotFound) {
		return Ceiling{}, false, ErrNoTier
	}
	if err != nil {
		return Ceiling{}, false, fmt.Errorf("load tier: %w", err)
	}

	ceiling, ok := ResolveCeiling(t, c)
	return ceiling, ok, nil
}

func record(ctx context.Context, userID string, c Capability, d Decision) {
	if d.Granted {
		return
	}

	core.AddSpanEvent(ctx, "access.denied",
		attribute.String("capability", string(c)),
		attribute.String("reason", string(d.Reason)),
	)
	slog.DebugContext(ctx, "access denied",
		"user_id", userID,
		"capability", c,
		"reason", d.Reason,
	)
}
