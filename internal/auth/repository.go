// AngelaMos | 2026
// repository.go

package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/carterperez-dev/playvault/internal/core"
)

// Repository stores sessions in the refresh_tokens table.
type Repository interface {
	Create(ctx context.Context, s *Session) error
	FindByHash(ctx context.Context, tokenHash string) (*Session, error)
	FindByID(ctx context.Context, id string) (*Session, error)
	Rotate(ctx context.Context, id, replacedByID string) error
	Revoke(ctx context.Context, id string, reason RevokeReason) error
	RevokeFamily(ctx context.Context, familyID string, reason RevokeReason) (int64, error)
	RevokeAllForUser(ctx context.Context, userID string, reason RevokeReason) (int64, error)
	ListActive(ctx context.Context, userID string) ([]Session, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

const sessionColumns = `
	id, user_id, token_hash, family_id, tier, issued_via, expires_at,
	created_at, used_at, replaced_by_id, revoked_at, revoked_reason,
	user_agent, ip_address`

// sessionRetention keeps dead rows around long enough for reuse
// detection to recognise a replayed token.
const sessionRetention = 24 * time.Hour

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, s *Session) error {
	query := `
		INSERT INTO refresh_tokens (
			id, user_id, token_hash, family_id, tier, issued_via,
			expires_at, user_agent, ip_address
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &s.CreatedAt, query,
		s.ID,
		s.UserID,
		s.TokenHash,
		s.FamilyID,
		s.Tier,
		s.IssuedVia,
		s.ExpiresAt,
		s.UserAgent,
		s.IPAddress,
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *repository) FindByHash(ctx context.Context, tokenHash string) (*Session, error) {
	return r.findOne(ctx, "token_hash = $1", tokenHash)
}

func (r *repository) FindByID(ctx context.Context, id string) (*Session, error) {
	return r.findOne(ctx, "id = $1", id)
}

func (r *repository) findOne(ctx context.Context, where string, arg any) (*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM refresh_tokens WHERE ` + where

	var s Session
	err := r.db.GetContext(ctx, &s, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find session: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	return &s, nil
}

// Rotate marks id as used. Only the first rotation wins; a concurrent
// second one gets ErrNotFound.
func (r *repository) Rotate(ctx context.Context, id, replacedByID string) error {
	query := `
		UPDATE refresh_tokens
		SET used_at = NOW(), replaced_by_id = $2
		WHERE id = $1 AND used_at IS NULL`

	n, err := r.exec(ctx, query, id, replacedByID)
	if err != nil {
		return fmt.Errorf("rotate session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("rotate session: %w", core.ErrNotFound)
	}
	return nil
}

func (r *repository) Revoke(ctx context.Context, id string, reason RevokeReason) error {
	n, err := r.revokeWhere(ctx, "id = $2", reason, id)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("revoke session: %w", core.ErrNotFound)
	}
	return nil
}

func (r *repository) RevokeFamily(
	ctx context.Context,
	familyID string,
	reason RevokeReason,
) (int64, error) {
	n, err := r.revokeWhere(ctx, "family_id = $2", reason, familyID)
	if err != nil {
		return 0, fmt.Errorf("revoke session family: %w", err)
	}
	return n, nil
}

func (r *repository) RevokeAllForUser(
	ctx context.Context,
	userID string,
	reason RevokeReason,
) (int64, error) {
	n, err := r.revokeWhere(ctx, "user_id = $2", reason, userID)
	if err != nil {
		return 0, fmt.Errorf("revoke user sessions: %w", err)
	}
	return n, nil
}

// revokeWhere only touches rows that are not already revoked, so the first
// reason recorded for a row is the one kept.
func (r *repository) revokeWhere(
	ctx context.Context,
	where string,
	reason RevokeReason,
	arg any,
) (int64, error) {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = NOW(), revoked_reason = $1
		WHERE revoked_at IS NULL AND ` + where

	return r.exec(ctx, query, reason, arg)
}

func (r *repository) ListActive(ctx context.Context, userID string) ([]Session, error) {
	query := `SELECT ` + sessionColumns + `
		FROM refresh_tokens
		WHERE user_id = $1
			AND revoked_at IS NULL
			AND used_at IS NULL
			AND expires_at > NOW()
		ORDER BY created_at DESC`

	var sessions []Session
	if err := r.db.SelectContext(ctx, &sessions, query, userID); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

func (r *repository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `
		DELETE FROM refresh_tokens
		WHERE expires_at < $1 OR revoked_at < $1 OR used_at < $1`

	n, err := r.exec(ctx, query, time.Now().Add(-sessionRetention))
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return n, nil
}

func (r *repository) exec(ctx context.Context, query string, args ...any) (int64, error) {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
