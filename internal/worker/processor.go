// AngelaMos | 2026
// processor.go

package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/playvault/internal/access"
	"github.com/carterperez-dev/playvault/internal/core"
	"github.com/carterperez-dev/playvault/internal/document"
)

// CapabilityWordLimit is the numeric tier entitlement capping extracted
// words.
const CapabilityWordLimit access.Capability = "pdf_word_limit"

const (
	statusAttempts     = 3
	statusInitialDelay = 100 * time.Millisecond
)

type DocumentStore interface {
	GetByID(ctx context.Context, id string) (*document.Document, error)
	Transition(ctx context.Context, id string, from, to document.Status) error
	Complete(ctx context.Context, id, text string, wordCount int) error
	Fail(ctx context.Context, id, message string) error
}

type BlobReader interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

type CeilingSource interface {
	Ceiling(ctx context.Context, userID string, c access.Capability) (access.Ceiling, bool, error)
}

type Processor struct {
	docs       DocumentStore
	blobs      BlobReader
	extractor  Extractor
	ceilings   CeilingSource
	logger     *slog.Logger
	newBackOff func() backoff.BackOff
}

func NewProcessor(
	docs DocumentStore,
	blobs BlobReader,
	extractor Extractor,
	ceilings CeilingSource,
	logger *slog.Logger,
) *Processor {
	return &Processor{
		docs:      docs,
		blobs:     blobs,
		extractor: extractor,
		ceilings:  ceilings,
		logger:    logger,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = statusInitialDelay
			return b
		},
	}
}

// Handle implements MessageHandler for document stream entries.
func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	id, err := document.JobDocumentID(msg)
	if err != nil {
		p.logger.Warn("dropping malformed job", "message_id", msg.ID, "error", err)
		return nil
	}
	return p.Process(ctx, id)
}

// Process runs one document through extraction. Extraction problems end in
// the failed status and are not returned; only a status write that keeps
// failing is, so the job stays pending in the stream.
func (p *Processor) Process(ctx context.Context, id string) error {
	ctx, span := core.StartSpan(ctx, "worker.process_document",
		attribute.String("document_id", id),
	)
	defer span.End()

	err := p.retry(ctx, func() error {
		return p.docs.Transition(ctx, id, document.StatusPending, document.StatusProcessing)
	})
	if errors.Is(err, core.ErrInvalidStatus) || errors.Is(err, core.ErrNotFound) {
		p.logger.Info("skipping document", "document_id", id, "reason", err)
		return nil
	}
	if err != nil {
		core.SetSpanError(ctx, err)
		return fmt.Errorf("start processing %s: %w", id, err)
	}

	text, words, procErr := p.extract(ctx, id)
	if procErr != nil {
		p.logger.Warn("document processing failed", "document_id", id, "error", procErr)
		core.SetSpanError(ctx, procErr)

		err := p.retry(ctx, func() error {
			return p.docs.Fail(ctx, id, procErr.Error())
		})
		if err != nil && !errors.Is(err, core.ErrInvalidStatus) {
			return fmt.Errorf("mark %s failed: %w", id, err)
		}
		return nil
	}

	err = p.retry(ctx, func() error {
		return p.docs.Complete(ctx, id, text, words)
	})
	if errors.Is(err, core.ErrInvalidStatus) {
		p.logger.Info("document changed while processing", "document_id", id)
		return nil
	}
	if err != nil {
		core.SetSpanError(ctx, err)
		return fmt.Errorf("complete %s: %w", id, err)
	}

	p.logger.Info("document processed", "document_id", id, "word_count", words)
	return nil
}

func (p *Processor) extract(ctx context.Context, id string) (string, int, error) {
	doc, err := p.docs.GetByID(ctx, id)
	if err != nil {
		return "", 0, fmt.Errorf("load document: %w", err)
	}

	data, err := p.blobs.Get(ctx, doc.ObjectKey)
	if err != nil {
		return "", 0, fmt.Errorf("read document: %w", err)
	}

	paragraphs, err := p.extractor.Extract(ctx, data)
	if err != nil {
		return "", 0, err
	}

	ceiling, ok, err := p.ceilings.Ceiling(ctx, doc.UserID, CapabilityWordLimit)
	if errors.Is(err, access.ErrNoTier) {
		return "", 0, err
	}
	if err != nil {
		return "", 0, fmt.Errorf("resolve word limit: %w", err)
	}
	if !ok {
		ceiling = access.Ceiling{Unlimited: true}
	}

	text := LimitWords(paragraphs, ceiling)
	return text, CountWords(text), nil
}

// retry runs a status write up to statusAttempts times. Lost races are not
// retried.
func (p *Processor) retry(ctx context.Context, op func() error) error {
	b := backoff.WithContext(backoff.WithMaxRetries(p.newBackOff(), statusAttempts-1), ctx)

	return backoff.Retry(func() error {
		err := op()
		if errors.Is(err, core.ErrInvalidStatus) || errors.Is(err, core.ErrNotFound) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}
