// AngelaMos | 2026
// repository.go

package feature

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/carterperez-dev/playvault/internal/core"
)

type Repository interface {
	List(ctx context.Context) ([]Flag, error)
	GetByName(ctx context.Context, name string) (*Flag, error)
	Create(ctx context.Context, f *Flag) error
	SetEnabled(ctx context.Context, name string, enabled bool) (*Flag, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) List(ctx context.Context) ([]Flag, error) {
	query := `
		SELECT id, name, enabled, description, updated_at
		FROM feature_flags
		ORDER BY name`

	var flags []Flag
	if err := r.db.SelectContext(ctx, &flags, query); err != nil {
		return nil, fmt.Errorf("list feature flags: %w", err)
	}
	return flags, nil
}

func (r *repository) GetByName(ctx context.Context, name string) (*Flag, error) {
	query := `
		SELECT id, name, enabled, description, updated_at
		FROM feature_flags
		WHERE name = $1`

	var f Flag
	err := r.db.GetContext(ctx, &f, query, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get feature flag: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get feature flag: %w", err)
	}
	return &f, nil
}

func (r *repository) Create(ctx context.Context, f *Flag) error {
	query := `
		INSERT INTO feature_flags (id, name, enabled, description)
		VALUES ($1, $2, $3, $4)
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &f.UpdatedAt, query, f.ID, f.Name, f.Enabled, f.Description)
	if err != nil {
		if core.IsDuplicateKeyError(err) {
			return fmt.Errorf("create feature flag: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create feature flag: %w", err)
	}
	return nil
}

func (r *repository) SetEnabled(
	ctx context.Context,
	name string,
	enabled bool,
) (*Flag, error) {
	query := `
		UPDATE feature_flags
		SET enabled = $2, updated_at = NOW()
		WHERE name = $1
		RETURNING id, name, enabled, description, updated_at`

	var f Flag
	err := r.db.GetContext(ctx, &f, query, name, enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("set feature flag: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("set feature flag: %w", err)
	}
	return &f, nil
}
