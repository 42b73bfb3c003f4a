// AngelaMos | 2026
// repository.go

package game

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/carterperez-dev/playvault/internal/core"
)

type Repository interface {
	ListActive(ctx context.Context) ([]Game, error)
	ListAll(ctx context.Context) ([]Game, error)
	GetBySlug(ctx context.Context, slug string) (*Game, error)
	Create(ctx context.Context, g *Game) error
	Update(ctx context.Context, g *Game) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const gameSelect = `
	SELECT g.id, g.name, g.slug, g.description, g.thumbnail_url, g.game_path,
	       g.required_tier_id, t.name AS required_tier_name, g.is_active, g.created_at
	FROM games g
	JOIN tiers t ON t.id = g.required_tier_id`

func (r *repository) ListActive(ctx context.Context) ([]Game, error) {
	query := gameSelect + ` WHERE g.is_active = TRUE ORDER BY t.price_cents, g.name`

	var games []Game
	if err := r.db.SelectContext(ctx, &games, query); err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	return games, nil
}

func (r *repository) ListAll(ctx context.Context) ([]Game, error) {
	query := gameSelect + ` ORDER BY g.name`

	var games []Game
	if err := r.db.SelectContext(ctx, &games, query); err != nil {
		return nil, fmt.Errorf("list all games: %w", err)
	}
	return games, nil
}

// GetBySlug returns inactive games too; callers decide whether that counts.
func (r *repository) GetBySlug(ctx context.Context, slug string) (*Game, error) {
	query := gameSelect + ` WHERE g.slug = $1`

	var g Game
	err := r.db.GetContext(ctx, &g, query, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get game: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get game: %w", err)
	}
	return &g, nil
}

func (r *repository) Create(ctx context.Context, g *Game) error {
	query := `
		INSERT INTO games (id, name, slug, description, thumbnail_url, game_path, required_tier_id, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &g.CreatedAt, query,
		g.ID,
		g.Name,
		g.Slug,
		g.Description,
		g.ThumbnailURL,
		g.GamePath,
		g.RequiredTierID,
		g.IsActive,
	)
	return classifyWriteError("create game", err)
}

func (r *repository) Update(ctx context.Context, g *Game) error {
	query := `
		UPDATE games
		SET name = $2, description = $3, thumbnail_url = $4, game_path = $5,
		    required_tier_id = $6, is_active = $7
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		g.ID,
		g.Name,
		g.Description,
		g.ThumbnailURL,
		g.GamePath,
		g.RequiredTierID,
		g.IsActive,
	)
	if err != nil {
		return classifyWriteError("update game", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update game: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("update game: %w", core.ErrNotFound)
	}
	return nil
}

func classifyWriteError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case core.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w", op, core.ErrDuplicateKey)
	case core.IsForeignKeyViolation(err):
		return fmt.Errorf("%s: unknown tier: %w", op, core.ErrInvalidInput)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
