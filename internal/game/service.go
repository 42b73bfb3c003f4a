// AngelaMos | 2026
// service.go

package game

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/carterperez-dev/playvault/internal/access"
	"github.com/carterperez-dev/playvault/internal/core"
)

// Access is the slice of the access service the catalogue needs.
type Access interface {
	Snapshot(ctx context.Context, userID string) (access.Snapshot, error)
}

type Service struct {
	repo   Repository
	access Access
}

func NewService(repo Repository, checker Access) *Service {
	return &Service{repo: repo, access: checker}
}

// MakeSlug derives a slug from a display name. Words are joined with
// underscores so slugs double as capability keys in tier feature maps.
func MakeSlug(name string) string {
	return strings.ReplaceAll(slug.Make(name), "-", "_")
}

// List returns the active catalogue with one access decision per game, all
// resolved against the same tier and flag snapshot.
func (s *Service) List(ctx context.Context, userID string) ([]Listing, error) {
	games, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	snap, err := s.access.Snapshot(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}

	out := make([]Listing, 0, len(games))
	for _, g := range games {
		out = append(out, Listing{
			Game:     g,
			Decision: snap.Resolve(access.Capability(g.Slug)),
		})
	}
	return out, nil
}

// Get returns an active game the user may open. A denial comes back as the
// decision's 403 error.
func (s *Service) Get(ctx context.Context, userID, gameSlug string) (*Listing, error) {
	g, err := s.GetActive(ctx, gameSlug)
	if err != nil {
		return nil, err
	}

	snap, err := s.access.Snapshot(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get game: %w", err)
	}

	d := snap.Resolve(access.Capability(g.Slug))
	if !d.Granted {
		return nil, d.Err()
	}

	return &Listing{Game: *g, Decision: d}, nil
}

// GetActive finds a game by slug, treating deactivated games as missing.
func (s *Service) GetActive(ctx context.Context, gameSlug string) (*Game, error) {
	g, err := s.repo.GetBySlug(ctx, gameSlug)
	if err != nil {
		return nil, err
	}
	if !g.IsActive {
		return nil, fmt.Errorf("get game %s: inactive: %w", gameSlug, core.ErrNotFound)
	}
	return g, nil
}

func (s *Service) ListAll(ctx context.Context) ([]Game, error) {
	return s.repo.ListAll(ctx)
}

func (s *Service) Create(ctx context.Context, req CreateGameRequest) (*Game, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("create game: name is empty: %w", core.ErrInvalidInput)
	}

	gameSlug := MakeSlug(req.Slug)
	if req.Slug == "" {
		gameSlug = MakeSlug(name)
	}
	if gameSlug == "" {
		return nil, fmt.Errorf("create game: empty slug: %w", core.ErrInvalidInput)
	}

	g := &Game{
		ID:             uuid.New().String(),
		Name:           name,
		Slug:           gameSlug,
		Description:    req.Description,
		ThumbnailURL:   req.ThumbnailURL,
		GamePath:       req.GamePath,
		RequiredTierID: req.RequiredTierID,
		IsActive:       true,
	}

	if err := s.repo.Create(ctx, g); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "game created", "game_id", g.ID, "slug", g.Slug)

	return s.repo.GetBySlug(ctx, g.Slug)
}

func (s *Service) Update(
	ctx context.Context,
	gameSlug string,
	req UpdateGameRequest,
) (*Game, error) {
	g, err := s.repo.GetBySlug(ctx, gameSlug)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("update game: name is empty: %w", core.ErrInvalidInput)
		}
		g.Name = name
	}
	if req.Description != nil {
		g.Description = *req.Description
	}
	if req.ThumbnailURL != nil {
		g.ThumbnailURL = *req.ThumbnailURL
	}
	if req.GamePath != nil {
		g.GamePath = *req.GamePath
	}
	if req.RequiredTierID != nil {
		g.RequiredTierID = *req.RequiredTierID
	}
	if req.IsActive != nil {
		g.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, g); err != nil {
		return nil, err
	}

	return s.repo.GetBySlug(ctx, gameSlug)
}

// Deactivate hides a game from the catalogue. Its scores are kept.
func (s *Service) Deactivate(ctx context.Context, gameSlug string) error {
	g, err := s.repo.GetBySlug(ctx, gameSlug)
	if err != nil {
		return err
	}

	g.IsActive = false
	if err := s.repo.Update(ctx, g); err != nil {
		return err
	}

	slog.InfoContext(ctx, "game deactivated", "slug", gameSlug)
	return nil
}
