// AngelaMos | 2026
// service.go

package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/playvault/internal/access"
	"github.com/carterperez-dev/playvault/internal/core"
)

// CapabilityUpload gates uploads.
const CapabilityUpload access.Capability = "pdf_upload"

const pdfContentType = "application/pdf"

type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
}

type AccessChecker interface {
	Check(ctx context.Context, userID string, c access.Capability) (access.Decision, error)
}

type Service struct {
	repo     Repository
	blobs    BlobStore
	queue    Queue
	access   AccessChecker
	maxBytes int64
	now      func() time.Time
}

func NewService(
	repo Repository,
	blobs BlobStore,
	queue Queue,
	checker AccessChecker,
	maxBytes int64,
) *Service {
	return &Service{
		repo:     repo,
		blobs:    blobs,
		queue:    queue,
		access:   checker,
		maxBytes: maxBytes,
		now:      time.Now,
	}
}

func invalidFile(message string) *core.AppError {
	return core.NewAppError(core.ErrInvalidInput, message, http.StatusBadRequest, "INVALID_FILE")
}

// Upload stores a PDF and queues it for extraction. The record is removed
// again if the blob cannot be written.
func (s *Service) Upload(
	ctx context.Context,
	userID string,
	filename string,
	body io.Reader,
	size int64,
) (*Document, error) {
	filename = filepath.Base(strings.TrimSpace(filename))
	if filename == "" || filename == "." || filename == "/" {
		return nil, invalidFile("no filename provided")
	}
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return nil, invalidFile("invalid file type, only PDF files are allowed")
	}
	if size > s.maxBytes {
		return nil, core.TooLargeError(
			fmt.Sprintf("file too large, maximum size is %dMB", s.maxBytes>>20),
		)
	}
	if size <= 0 {
		return nil, invalidFile("file is empty")
	}

	d, err := s.access.Check(ctx, userID, CapabilityUpload)
	if err != nil {
		return nil, fmt.Errorf("upload document: %w", err)
	}
	if !d.Granted {
		return nil, d.Err()
	}

	doc := &Document{
		ID:       uuid.New().String(),
		UserID:   userID,
		Filename: filename,
		Status:   StatusPending,
	}
	doc.ObjectKey = ObjectKey(userID, doc.ID)

	if err := s.repo.Create(ctx, doc); err != nil {
		return nil, err
	}

	if err := s.blobs.Put(ctx, doc.ObjectKey, body, size, pdfContentType); err != nil {
		if delErr := s.repo.Delete(ctx, doc.ID); delErr != nil {
			slog.ErrorContext(ctx, "remove document after failed upload",
				"document_id", doc.ID,
				"error", delErr,
			)
		}
		return nil, fmt.Errorf("store document: %w", err)
	}

	if err := s.queue.Enqueue(ctx, doc.ID); err != nil {
		// stays pending; the requeue job picks it up
		slog.WarnContext(ctx, "enqueue document failed",
			"document_id", doc.ID,
			"error", err,
		)
	}

	core.AddSpanEvent(ctx, "document.uploaded",
		attribute.String("document_id", doc.ID),
		attribute.Int64("size", size),
	)
	slog.InfoContext(ctx, "document uploaded",
		"user_id", userID,
		"document_id", doc.ID,
		"size", size,
	)

	return doc, nil
}

func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Document, error) {
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// Get returns a document only to its owner.
func (s *Service) Get(ctx context.Context, userID, id string) (*Document, error) {
	return s.owned(ctx, userID, id, "access")
}

func (s *Service) owned(ctx context.Context, userID, id, verb string) (*Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("document %q: %w", id, core.ErrNotFound)
	}

	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.UserID != userID {
		return nil, core.ForbiddenError("you do not have permission to " + verb + " this document")
	}
	return doc, nil
}

// Delete removes the record. A missing or undeletable blob does not stop it.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	doc, err := s.owned(ctx, userID, id, "delete")
	if err != nil {
		return err
	}

	if doc.ObjectKey != "" {
		if err := s.blobs.Delete(ctx, doc.ObjectKey); err != nil {
			slog.WarnContext(ctx, "delete document blob failed",
				"document_id", doc.ID,
				"object_key", doc.ObjectKey,
				"error", err,
			)
		}
	}

	return s.repo.Delete(ctx, doc.ID)
}

// RequeueStale re-enqueues documents that have not progressed for
// stuckAfter. It returns how many were queued.
func (s *Service) RequeueStale(ctx context.Context, stuckAfter time.Duration) (int, error) {
	ids, err := s.repo.ResetStale(ctx, s.now().Add(-stuckAfter))
	if err != nil {
		return 0, err
	}

	var errs []error
	queued := 0
	for _, id := range ids {
		if err := s.queue.Enqueue(ctx, id); err != nil {
			errs = append(errs, err)
			continue
		}
		queued++
	}

	if queued > 0 {
		slog.InfoContext(ctx, "requeued stale documents", "count", queued)
	}
	return queued, errors.Join(errs...)
}

func (s *Service) StatusCounts(ctx context.Context) (map[Status]int, error) {
	return s.repo.CountByStatus(ctx)
}
