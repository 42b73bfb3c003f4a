// AngelaMos | 2026
// queue.go

package document

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// JobField is the stream entry field carrying the document id.
const JobField = "document_id"

type Queue interface {
	Enqueue(ctx context.Context, documentID string) error
}

// StreamQueue appends processing jobs to a Redis stream read by the worker
// consumer group.
type StreamQueue struct {
	client *redis.Client
	stream string
}

func NewStreamQueue(client *redis.Client, stream string) *StreamQueue {
	return &StreamQueue{client: client, stream: stream}
}

func (q *StreamQueue) Enqueue(ctx context.Context, documentID string) error {
	err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		Values: map[string]any{JobField: documentID},
	}).Err()
	if err != nil {
		return fmt.Errorf("enqueue document %s: %w", documentID, err)
	}
	return nil
}

// JobDocumentID extracts the document id from a stream entry.
func JobDocumentID(msg redis.XMessage) (string, error) {
	raw, ok := msg.Values[JobField]
	if !ok {
		return "", fmt.Errorf("message %s: missing %s", msg.ID, JobField)
	}
	id, ok := raw.(string)
	if !ok || id == "" {
		return "", fmt.Errorf("message %s: invalid %s", msg.ID, JobField)
	}
	return id, nil
}
