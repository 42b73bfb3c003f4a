// AngelaMos | 2026
// poll.go

package client

import (
	"context"
	"time"

	"github.com/carterperez-dev/playvault/internal/document"
)

const DefaultPollInterval = 5 * time.Second

// WaitForDocument polls a document on a fixed interval until it reaches a
// terminal status. Cancelling ctx stops the loop before the next request
// and returns ctx.Err(). A failed poll ends the wait; there is no retry.
func (c *Client) WaitForDocument(
	ctx context.Context,
	id string,
	interval time.Duration,
) (*document.DetailResponse, error) {
	return c.WatchDocument(ctx, id, interval, nil)
}

// WatchDocument is WaitForDocument with a callback for every observed
// status, including the terminal one.
func (c *Client) WatchDocument(
	ctx context.Context,
	id string,
	interval time.Duration,
	onStatus func(*document.DetailResponse),
) (*document.DetailResponse, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		doc, err := c.Document(ctx, id)
		if err != nil {
			return nil, err
		}
		if onStatus != nil {
			onStatus(doc)
		}
		if doc.Status.Terminal() {
			return doc, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
