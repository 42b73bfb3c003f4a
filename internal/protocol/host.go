// AngelaMos | 2026
// host.go

package protocol

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/playvault/internal/core"
)

type State int

const (
	StateIdle State = iota
	StateAwaitingReady
	StateReady
	StatePaused
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingReady:
		return "awaiting_ready"
	case StateReady:
		return "ready"
	case StatePaused:
		return "paused"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var ErrInvalidTransition = errors.New("invalid session transition")

// Poster delivers a message to the other side, addressed to targetOrigin.
type Poster interface {
	Post(msg Message, targetOrigin string) error
}

// Submission is what the host forwards to the scoring backend.
type Submission struct {
	GameSlug string  `json:"game_slug"`
	Score    float64 `json:"score"`
	Origin   string  `json:"origin"`
}

type ScoreSubmitter interface {
	SubmitScore(ctx context.Context, sub Submission) error
}

type DropReason string

const (
	DropNone      DropReason = ""
	DropOrigin    DropReason = "origin"
	DropMalformed DropReason = "malformed"
	DropIgnored   DropReason = "ignored"
)

// Outcome describes what one Receive call did. It is for the caller and
// its tests only and must never be echoed back to the sender.
type Outcome struct {
	State     State
	Message   Message
	Dropped   DropReason
	Submitted bool
	SubmitErr error
}

type HostConfig struct {
	Origin    string
	GameSlug  string
	Poster    Poster
	Submitter ScoreSubmitter
	Logger    *slog.Logger
}

// HostSession is the host side of one embedded game. Calls are serialised,
// so messages from one sender are handled in the order they are received.
type HostSession struct {
	mu        sync.Mutex
	origin    string
	gameSlug  string
	poster    Poster
	submitter ScoreSubmitter
	logger    *slog.Logger

	state     State
	final     *GameScore
	submitErr error
	done      chan struct{}
}

func NewHostSession(cfg HostConfig) *HostSession {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &HostSession{
		origin:    cfg.Origin,
		gameSlug:  cfg.GameSlug,
		poster:    cfg.Poster,
		submitter: cfg.Submitter,
		logger:    logger.With("game_slug", cfg.GameSlug),
		state:     StateIdle,
		done:      make(chan struct{}),
	}
}

func (h *HostSession) Origin() string {
	return h.origin
}

func (h *HostSession) GameSlug() string {
	return h.gameSlug
}

func (h *HostSession) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Done is closed once the session reaches Finished.
func (h *HostSession) Done() <-chan struct{} {
	return h.done
}

// Result returns the accepted score and the submission error, if any. The
// score is nil until the session has finished.
func (h *HostSession) Result() (*GameScore, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.final, h.submitErr
}

// Open marks the content as loading.
func (h *HostSession) Open() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != StateIdle {
		return fmt.Errorf("%w: open from %s", ErrInvalidTransition, h.state)
	}
	h.state = StateAwaitingReady
	return nil
}

func (h *HostSession) Pause() error {
	return h.control(StateReady, StatePaused, PauseGame{})
}

func (h *HostSession) Resume() error {
	return h.control(StatePaused, StateReady, ResumeGame{})
}

func (h *HostSession) control(from, to State, msg Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != from {
		return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, msg.Type(), h.state)
	}

	if err := h.poster.Post(msg, h.origin); err != nil {
		return fmt.Errorf("post %s: %w", msg.Type(), err)
	}

	h.state = to
	return nil
}

// Receive handles one inbound envelope. The origin is checked before the
// body is looked at; a mismatch leaves no trace beyond a debug log.
func (h *HostSession) Receive(ctx context.Context, env Envelope) Outcome {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !SameOrigin(h.origin, env.Origin) {
		h.logger.DebugContext(ctx, "dropped message from foreign origin",
			"origin", env.Origin,
		)
		return Outcome{State: h.state, Dropped: DropOrigin}
	}

	msg, err := Decode(env.Data)
	if err != nil {
		h.logger.WarnContext(ctx, "dropped malformed message",
			"error", err,
			"state", h.state.String(),
		)
		return Outcome{State: h.state, Dropped: DropMalformed}
	}

	switch m := msg.(type) {
	case GameReady:
		if h.state != StateAwaitingReady {
			return h.ignored(msg)
		}
		if err := h.poster.Post(PlatformReady{}, h.origin); err != nil {
			h.logger.WarnContext(ctx, "failed to reply platform ready", "error", err)
			return Outcome{State: h.state, Message: msg}
		}
		h.state = StateReady
		return Outcome{State: h.state, Message: msg}

	case GameScore:
		if h.state != StateReady {
			return h.ignored(msg)
		}
		return h.finish(ctx, m)

	default:
		return h.ignored(msg)
	}
}

func (h *HostSession) ignored(msg Message) Outcome {
	h.logger.Debug("ignored message",
		"type", string(msg.Type()),
		"state", h.state.String(),
	)
	return Outcome{State: h.state, Message: msg, Dropped: DropIgnored}
}

// finish moves to Finished before submitting, so a failed submission never
// rolls the session back and a retried GAME_SCORE is ignored.
func (h *HostSession) finish(ctx context.Context, score GameScore) Outcome {
	h.state = StateFinished
	h.final = &score
	defer close(h.done)

	sub := Submission{
		GameSlug: h.gameSlug,
		Score:    score.Score,
		Origin:   h.origin,
	}

	ctx, span := core.StartSpan(ctx, "protocol.submit_score",
		attribute.String("game_slug", h.gameSlug),
		attribute.Float64("score", score.Score),
	)
	defer span.End()

	err := h.submitter.SubmitScore(ctx, sub)
	if err != nil {
		core.SetSpanError(ctx, err)
		h.submitErr = err
		h.logger.ErrorContext(ctx, "score submission failed",
			"error", err,
			"score", score.Score,
		)
	} else {
		h.logger.InfoContext(ctx, "score submitted", "score", score.Score)
	}

	return Outcome{
		State:     h.state,
		Message:   score,
		Submitted: true,
		SubmitErr: err,
	}
}
