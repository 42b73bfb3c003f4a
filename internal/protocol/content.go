// AngelaMos | 2026
// content.go

package protocol

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

var ErrAlreadyReported = errors.New("score already reported")

// Controller is the game behind a ContentEndpoint. Pause must suspend every
// pending timer and Resume must reissue them.
type Controller interface {
	Pause()
	Resume()
}

// ContentEndpoint is the embedded side. It trusts only messages from its
// own origin and emits at most one GAME_SCORE for its lifetime.
type ContentEndpoint struct {
	mu         sync.Mutex
	origin     string
	poster     Poster
	controller Controller
	logger     *slog.Logger
	now        func() time.Time

	platformReady bool
	reported      bool
}

func NewContentEndpoint(
	origin string,
	poster Poster,
	controller Controller,
	logger *slog.Logger,
) *ContentEndpoint {
	if logger == nil {
		logger = slog.Default()
	}

	return &ContentEndpoint{
		origin:     origin,
		poster:     poster,
		controller: controller,
		logger:     logger,
		now:        time.Now,
	}
}

// Announce tells the host the content has loaded.
func (c *ContentEndpoint) Announce() error {
	return c.poster.Post(GameReady{}, c.origin)
}

func (c *ContentEndpoint) PlatformReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.platformReady
}

func (c *ContentEndpoint) Receive(env Envelope) {
	if !SameOrigin(c.origin, env.Origin) {
		return
	}

	msg, err := Decode(env.Data)
	if err != nil {
		c.logger.Warn("content dropped malformed message", "error", err)
		return
	}

	c.mu.Lock()
	if _, ok := msg.(PlatformReady); ok {
		c.platformReady = true
	}
	finished := c.reported
	c.mu.Unlock()

	// c.mu must not be held here: games report scores under their own lock.
	if c.controller == nil || finished {
		return
	}

	switch msg.(type) {
	case PauseGame:
		c.controller.Pause()
	case ResumeGame:
		c.controller.Resume()
	}
}

// ReportScore emits the session's GAME_SCORE. Any later call fails with
// ErrAlreadyReported and sends nothing.
func (c *ContentEndpoint) ReportScore(score float64) error {
	c.mu.Lock()
	if c.reported {
		c.mu.Unlock()
		return ErrAlreadyReported
	}
	c.reported = true
	ts := float64(c.now().UnixMilli())
	c.mu.Unlock()

	return c.poster.Post(GameScore{Score: score, Timestamp: ts}, c.origin)
}
