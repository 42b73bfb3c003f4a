// AngelaMos | 2026
// repository.go

package document

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/carterperez-dev/playvault/internal/core"
)

type Repository interface {
	Create(ctx context.Context, d *Document) error
	GetByID(ctx context.Context, id string) (*Document, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Document, error)
	Delete(ctx context.Context, id string) error
	Transition(ctx context.Context, id string, from, to Status) error
	Complete(ctx context.Context, id, text string, wordCount int) error
	Fail(ctx context.Context, id, message string) error
	ResetStale(ctx context.Context, before time.Time) ([]string, error)
	CountByStatus(ctx context.Context) (map[Status]int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const documentColumns = `
	id, user_id, filename, object_key, status, word_count,
	extracted_text, error_message, upload_date, updated_at`

func (r *repository) Create(ctx context.Context, d *Document) error {
	query := `
		INSERT INTO documents (id, user_id, filename, object_key, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING upload_date, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		d.ID,
		d.UserID,
		d.Filename,
		d.ObjectKey,
		d.Status,
	).Scan(&d.UploadDate, &d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`

	var d Document
	if err := r.db.GetContext(ctx, &d, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("document %s: %w", id, core.ErrNotFound)
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &d, nil
}

// ListByUser returns the newest uploads first. A non-positive limit means
// no limit.
func (r *repository) ListByUser(
	ctx context.Context,
	userID string,
	limit, offset int,
) ([]Document, error) {
	query := `SELECT ` + documentColumns + `
		FROM documents
		WHERE user_id = $1
		ORDER BY upload_date DESC, id
		OFFSET $2`
	args := []any{userID, offset}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	var docs []Document
	if err := r.db.SelectContext(ctx, &docs, query, args...); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete document rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("document %s: %w", id, core.ErrNotFound)
	}
	return nil
}

// Transition moves a document only if it is still in from. A lost race
// reports ErrInvalidStatus.
func (r *repository) Transition(ctx context.Context, id string, from, to Status) error {
	if !from.CanTransition(to) {
		return fmt.Errorf("%s -> %s: %w", from, to, core.ErrInvalidStatus)
	}

	query := `
		UPDATE documents
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2`

	return r.conditional(ctx, "transition document", query, id, from, to)
}

func (r *repository) Complete(ctx context.Context, id, text string, wordCount int) error {
	query := `
		UPDATE documents
		SET status = $2, extracted_text = $3, word_count = $4,
		    error_message = NULL, updated_at = NOW()
		WHERE id = $1 AND status = $5`

	return r.conditional(ctx, "complete document", query,
		id, StatusCompleted, text, wordCount, StatusProcessing)
}

func (r *repository) Fail(ctx context.Context, id, message string) error {
	query := `
		UPDATE documents
		SET status = $2, error_message = $3, updated_at = NOW()
		WHERE id = $1 AND status = $4`

	return r.conditional(ctx, "fail document", query,
		id, StatusFailed, message, StatusProcessing)
}

func (r *repository) conditional(ctx context.Context, op, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrInvalidStatus)
	}
	return nil
}

// ResetStale puts documents that sat in pending or processing since before
// back to pending and returns their ids for re-enqueueing.
func (r *repository) ResetStale(ctx context.Context, before time.Time) ([]string, error) {
	query := `
		UPDATE documents
		SET status = 'pending', updated_at = NOW()
		WHERE status IN ('pending', 'processing') AND updated_at < $1
		RETURNING id`

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, before); err != nil {
		return nil, fmt.Errorf("reset stale documents: %w", err)
	}
	return ids, nil
}

func (r *repository) CountByStatus(ctx context.Context) (map[Status]int, error) {
	var rows []struct {
		Status Status `db:"status"`
		Count  int    `db:"count"`
	}
	query := `SELECT status, COUNT(*) AS count FROM documents GROUP BY status`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}

	counts := make(map[Status]int, len(Statuses))
	for _, s := range Statuses {
		counts[s] = 0
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
