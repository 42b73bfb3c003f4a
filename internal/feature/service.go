// AngelaMos | 2026
// service.go

package feature

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

type Service struct {
	repo  Repository
	cache Cache
}

func NewService(repo Repository, cache Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// Flags returns the current flag set. Cache failures fall through to the
// database so a Redis outage never changes an access decision.
func (s *Service) Flags(ctx context.Context) (FlagSet, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx)
		if err != nil {
			slog.WarnContext(ctx, "feature flag cache read failed", "error", err)
		} else if cached != nil {
			return NewFlagSet(cached), nil
		}
	}

	flags, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, flags); err != nil {
			slog.WarnContext(ctx, "feature flag cache write failed", "error", err)
		}
	}

	return NewFlagSet(flags), nil
}

func (s *Service) List(ctx context.Context) ([]Flag, error) {
	return s.repo.List(ctx)
}

func (s *Service) Create(ctx context.Context, req CreateFlagRequest) (*Flag, error) {
	f := &Flag{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Enabled:     req.Enabled,
		Description: req.Description,
	}

	if err := s.repo.Create(ctx, f); err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	slog.InfoContext(ctx, "feature flag created", "name", f.Name, "enabled", f.Enabled)
	return f, nil
}

func (s *Service) SetEnabled(ctx context.Context, name string, enabled bool) (*Flag, error) {
	f, err := s.repo.SetEnabled(ctx, name, enabled)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	slog.InfoContext(ctx, "feature flag toggled", "name", name, "enabled", enabled)
	return f, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		slog.WarnContext(ctx, "feature flag cache invalidate failed", "error", err)
	}
}
