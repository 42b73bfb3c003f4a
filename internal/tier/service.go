// AngelaMos | 2026
// service.go

package tier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/carterperez-dev/playvault/internal/core"
)

// UserTierAssigner overwrites a user's tier. Implementations must also
// invalidate tokens that carry the old tier.
type UserTierAssigner interface {
	AssignTier(ctx context.Context, userID, tierID string) error
}

type Service struct {
	repo     Repository
	assigner UserTierAssigner
}

func NewService(repo Repository, assigner UserTierAssigner) *Service {
	return &Service{repo: repo, assigner: assigner}
}

func (s *Service) List(ctx context.Context) ([]Tier, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*Tier, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByName(ctx context.Context, name string) (*Tier, error) {
	return s.repo.GetByName(ctx, name)
}

// ForUser is the tier lookup used by access checks.
func (s *Service) ForUser(ctx context.Context, userID string) (*Tier, error) {
	return s.repo.GetForUser(ctx, userID)
}

func (s *Service) Create(ctx context.Context, req CreateTierRequest) (*Tier, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("create tier: name is empty: %w", core.ErrInvalidInput)
	}

	features := req.Features
	if features == nil {
		features = Features{}
	}

	t := &Tier{
		ID:         uuid.New().String(),
		Name:       name,
		PriceCents: *req.PriceCents,
		Features:   features,
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "tier created", "tier_id", t.ID, "name", t.Name)
	return t, nil
}

func (s *Service) Update(
	ctx context.Context,
	id string,
	req UpdateTierRequest,
) (*Tier, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("update tier: name is empty: %w", core.ErrInvalidInput)
		}
		t.Name = name
	}
	if req.PriceCents != nil {
		t.PriceCents = *req.PriceCents
	}
	if req.Features != nil {
		t.Features = *req.Features
	}

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}

	return t, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "tier deleted", "tier_id", id)
	return nil
}

// AssignToUser replaces whatever tier the user had. Entitlements are never
// merged across tiers.
func (s *Service) AssignToUser(ctx context.Context, userID, tierID string) (*Tier, error) {
	t, err := s.repo.GetByID(ctx, tierID)
	if err != nil {
		return nil, err
	}

	if s.assigner == nil {
		return nil, errors.New("assign tier: no user assigner configured")
	}

	if err := s.assigner.AssignTier(ctx, userID, t.ID); err != nil {
		return nil, fmt.Errorf("assign tier: %w", err)
	}

	slog.InfoContext(ctx, "tier assigned", "user_id", userID, "tier", t.Name)
	return t, nil
}
