// AngelaMos | 2026
// service.go

package score

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/playvault/internal/access"
	"github.com/carterperez-dev/playvault/internal/core"
	"github.com/carterperez-dev/playvault/internal/game"
	"github.com/carterperez-dev/playvault/internal/protocol"
)

type GameFinder interface {
	GetActive(ctx context.Context, slug string) (*game.Game, error)
}

type AccessChecker interface {
	Check(ctx context.Context, userID string, c access.Capability) (access.Decision, error)
}

type Service struct {
	repo     Repository
	games    GameFinder
	access   AccessChecker
	origin   string
	maxScore int64
}

func NewService(
	repo Repository,
	games GameFinder,
	checker AccessChecker,
	origin string,
	maxScore int64,
) *Service {
	return &Service{
		repo:     repo,
		games:    games,
		access:   checker,
		origin:   origin,
		maxScore: maxScore,
	}
}

// Submit validates and stores one score. Checks run cheapest first: origin,
// value range, game, then a fresh access decision.
func (s *Service) Submit(
	ctx context.Context,
	userID string,
	gameSlug string,
	value float64,
	origin string,
) (*Score, error) {
	if !protocol.SameOrigin(s.origin, origin) {
		return nil, core.ForbiddenError("invalid origin")
	}

	if math.IsNaN(value) || math.IsInf(value, 0) || value != math.Trunc(value) {
		return nil, core.ValidationError("score must be a whole number")
	}
	if value < 0 || value > float64(s.maxScore) {
		return nil, core.ValidationError("score value out of valid range")
	}

	g, err := s.games.GetActive(ctx, gameSlug)
	if err != nil {
		return nil, err
	}

	d, err := s.access.Check(ctx, userID, access.Capability(g.Slug))
	if err != nil {
		return nil, fmt.Errorf("submit score: %w", err)
	}
	if !d.Granted {
		return nil, d.Err()
	}

	sc := &Score{
		ID:       uuid.New().String(),
		UserID:   userID,
		GameID:   g.ID,
		GameName: g.Name,
		GameSlug: g.Slug,
		Score:    int64(value),
	}
	if err := s.repo.Create(ctx, sc); err != nil {
		return nil, err
	}

	core.AddSpanEvent(ctx, "score.recorded",
		attribute.String("game_slug", g.Slug),
		attribute.Int64("score", sc.Score),
	)
	slog.InfoContext(ctx, "score recorded",
		"user_id", userID,
		"game_slug", g.Slug,
		"score", sc.Score,
	)

	return sc, nil
}

// Record stores a score forwarded by a game session host.
func (s *Service) Record(ctx context.Context, userID string, sub protocol.Submission) error {
	_, err := s.Submit(ctx, userID, sub.GameSlug, sub.Score, sub.Origin)
	return err
}

func (s *Service) Mine(
	ctx context.Context,
	userID string,
	page, pageSize int,
) ([]Score, int, error) {
	offset := (page - 1) * pageSize

	scores, err := s.repo.ListByUser(ctx, userID, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.repo.CountByUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	return scores, total, nil
}

func (s *Service) Leaderboard(ctx context.Context, gameSlug string) ([]LeaderboardEntry, error) {
	g, err := s.games.GetActive(ctx, gameSlug)
	if err != nil {
		return nil, err
	}
	return s.repo.TopForGame(ctx, g.ID, LeaderboardSize)
}

func (s *Service) Stats(ctx context.Context, userID string) (*Stats, error) {
	return s.repo.Stats(ctx, userID)
}
