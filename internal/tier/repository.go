// AngelaMos | 2026
// repository.go

package tier

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/carterperez-dev/playvault/internal/core"
)

type Repository interface {
	List(ctx context.Context) ([]Tier, error)
	GetByID(ctx context.Context, id string) (*Tier, error)
	GetByName(ctx context.Context, name string) (*Tier, error)
	GetForUser(ctx context.Context, userID string) (*Tier, error)
	Create(ctx context.Context, t *Tier) error
	Update(ctx context.Context, t *Tier) error
	Delete(ctx context.Context, id string) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const tierColumns = `id, name, price_cents, features, created_at, updated_at`

func (r *repository) List(ctx context.Context) ([]Tier, error) {
	query := `SELECT ` + tierColumns + ` FROM tiers ORDER BY price_cents, name`

	var tiers []Tier
	if err := r.db.SelectContext(ctx, &tiers, query); err != nil {
		return nil, fmt.Errorf("list tiers: %w", err)
	}
	return tiers, nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Tier, error) {
	query := `SELECT ` + tierColumns + ` FROM tiers WHERE id = $1`
	return r.getOne(ctx, "get tier", query, id)
}

func (r *repository) GetByName(ctx context.Context, name string) (*Tier, error) {
	query := `SELECT ` + tierColumns + ` FROM tiers WHERE name = $1`
	return r.getOne(ctx, "get tier by name", query, name)
}

// GetForUser returns ErrNotFound both for unknown users and for users with
// no tier assigned.
func (r *repository) GetForUser(ctx context.Context, userID string) (*Tier, error) {
	query := `
		SELECT t.id, t.name, t.price_cents, t.features, t.created_at, t.updated_at
		FROM users u
		JOIN tiers t ON t.id = u.tier_id
		WHERE u.id = $1 AND u.deleted_at IS NULL`
	return r.getOne(ctx, "get tier for user", query, userID)
}

func (r *repository) getOne(
	ctx context.Context,
	op, query string,
	arg any,
) (*Tier, error) {
	var t Tier
	err := r.db.GetContext(ctx, &t, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &t, nil
}

func (r *repository) Create(ctx context.Context, t *Tier) error {
	query := `
		INSERT INTO tiers (id, name, price_cents, features)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`

	row := r.db.QueryRowxContext(ctx, query, t.ID, t.Name, t.PriceCents, t.Features)
	if err := row.Scan(&t.CreatedAt, &t.UpdatedAt); err != nil {
		if core.IsDuplicateKeyError(err) {
			return fmt.Errorf("create tier: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create tier: %w", err)
	}
	return nil
}

func (r *repository) Update(ctx context.Context, t *Tier) error {
	query := `
		UPDATE tiers
		SET name = $2, price_cents = $3, features = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &t.UpdatedAt, query,
		t.ID,
		t.Name,
		t.PriceCents,
		t.Features,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update tier: %w", core.ErrNotFound)
	}
	if err != nil {
		if core.IsDuplicateKeyError(err) {
			return fmt.Errorf("update tier: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("update tier: %w", err)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tiers WHERE id = $1`, id)
	if err != nil {
		if core.IsForeignKeyViolation(err) {
			return fmt.Errorf("delete tier: %w", core.ErrConflict)
		}
		return fmt.Errorf("delete tier: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete tier: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("delete tier: %w", core.ErrNotFound)
	}
	return nil
}
