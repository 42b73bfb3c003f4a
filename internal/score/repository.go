// AngelaMos | 2026
// repository.go

package score

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/carterperez-dev/playvault/internal/core"
)

const (
	LeaderboardSize = 10
	RecentSize      = 10
)

type Repository interface {
	Create(ctx context.Context, s *Score) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Score, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	TopForGame(ctx context.Context, gameID string, limit int) ([]LeaderboardEntry, error)
	Stats(ctx context.Context, userID string) (*Stats, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, s *Score) error {
	query := `
		INSERT INTO scores (id, user_id, game_id, score)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	if err := r.db.GetContext(ctx, &s.CreatedAt, query,
		s.ID,
		s.UserID,
		s.GameID,
		s.Score,
	); err != nil {
		if core.IsForeignKeyViolation(err) {
			return fmt.Errorf("create score: %w", core.ErrNotFound)
		}
		return fmt.Errorf("create score: %w", err)
	}
	return nil
}

const scoreSelect = `
	SELECT s.id, s.user_id, s.game_id, g.name AS game_name, g.slug AS game_slug,
	       s.score, s.created_at
	FROM scores s
	JOIN games g ON g.id = s.game_id`

func (r *repository) ListByUser(
	ctx context.Context,
	userID string,
	limit, offset int,
) ([]Score, error) {
	query := scoreSelect + `
		WHERE s.user_id = $1
		ORDER BY s.created_at DESC
		LIMIT $2 OFFSET $3`

	var scores []Score
	if err := r.db.SelectContext(ctx, &scores, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	return scores, nil
}

func (r *repository) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM scores WHERE user_id = $1`, userID); err != nil {
		return 0, fmt.Errorf("count scores: %w", err)
	}
	return n, nil
}

// TopForGame orders by score, and the earliest score wins a tie.
func (r *repository) TopForGame(
	ctx context.Context,
	gameID string,
	limit int,
) ([]LeaderboardEntry, error) {
	query := `
		SELECT s.user_id, u.name AS user_name, s.score, s.created_at
		FROM scores s
		JOIN users u ON u.id = s.user_id
		WHERE s.game_id = $1 AND u.deleted_at IS NULL
		ORDER BY s.score DESC, s.created_at ASC
		LIMIT $2`

	var entries []LeaderboardEntry
	if err := r.db.SelectContext(ctx, &entries, query, gameID, limit); err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	return entries, nil
}

func (r *repository) Stats(ctx context.Context, userID string) (*Stats, error) {
	st := &Stats{}

	if err := r.db.GetContext(ctx, &st.TotalGamesPlayed,
		`SELECT COUNT(DISTINCT game_id) FROM scores WHERE user_id = $1`,
		userID,
	); err != nil {
		return nil, fmt.Errorf("stats total: %w", err)
	}

	var favorite string
	err := r.db.GetContext(ctx, &favorite, `
		SELECT g.name
		FROM scores s
		JOIN games g ON g.id = s.game_id
		WHERE s.user_id = $1
		GROUP BY g.id, g.name
		ORDER BY COUNT(*) DESC, g.name
		LIMIT 1`, userID)
	switch {
	case err == nil:
		st.FavoriteGame = &favorite
	case errors.Is(err, sql.ErrNoRows):
	default:
		return nil, fmt.Errorf("stats favorite: %w", err)
	}

	if err := r.db.SelectContext(ctx, &st.PerGame, `
		SELECT g.name AS game_name,
		       MAX(s.score) AS best,
		       AVG(s.score)::float8 AS average,
		       COUNT(*) AS plays
		FROM scores s
		JOIN games g ON g.id = s.game_id
		WHERE s.user_id = $1 AND g.is_active = TRUE
		GROUP BY g.id, g.name
		ORDER BY g.name`, userID); err != nil {
		return nil, fmt.Errorf("stats per game: %w", err)
	}

	recent, err := r.ListByUser(ctx, userID, RecentSize, 0)
	if err != nil {
		return nil, fmt.Errorf("stats recent: %w", err)
	}
	st.Recent = recent

	return st, nil
}
