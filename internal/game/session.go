// AngelaMos | 2026
// session.go

package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/ksuid"

	"github.com/carterperez-dev/playvault/internal/core"
	"github.com/carterperez-dev/playvault/internal/protocol"
)

const (
	EventMessage     = "message"
	EventScoreResult = "score_result"

	submitFailedNotice = "Failed to submit score. Please try again."
)

var ErrEventBufferFull = errors.New("session event buffer full")

// ScoreRecorder persists a score on behalf of a user.
type ScoreRecorder interface {
	Record(ctx context.Context, userID string, sub protocol.Submission) error
}

// Event is one server-sent event for the content side of a session.
type Event struct {
	Name string
	Data []byte
}

type ScoreResult struct {
	Submitted bool    `json:"submitted"`
	Score     float64 `json:"score"`
	Notice    string  `json:"notice,omitempty"`
}

// Session binds one protocol host to one user and one SSE stream.
type Session struct {
	ID       string
	UserID   string
	GameSlug string
	Host     *protocol.HostSession

	events    chan Event
	closed    chan struct{}
	closeOnce sync.Once

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) Events() <-chan Event {
	return s.events
}

// Closed is closed when the session is swept or removed.
func (s *Session) Closed() <-chan struct{} {
	return s.closed
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) close() {
	s.closeOnce.Do(func() { close(s.closed) })
}

func (s *Session) emit(ev Event) error {
	select {
	case <-s.closed:
		return protocol.ErrPipeClosed
	case s.events <- ev:
		return nil
	default:
		return ErrEventBufferFull
	}
}

// ssePoster addresses host messages to the content behind the SSE stream.
type ssePoster struct {
	session *Session
	origin  string
}

func (p *ssePoster) Post(msg protocol.Message, targetOrigin string) error {
	if targetOrigin == protocol.WildcardOrigin {
		return protocol.ErrWildcardTarget
	}
	if targetOrigin != p.origin {
		return nil
	}

	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	return p.session.emit(Event{Name: EventMessage, Data: data})
}

type sessionSubmitter struct {
	userID   string
	recorder ScoreRecorder
}

func (s *sessionSubmitter) SubmitScore(ctx context.Context, sub protocol.Submission) error {
	return s.recorder.Record(ctx, s.userID, sub)
}

type SessionConfig struct {
	Origin      string
	IdleTTL     time.Duration
	EventBuffer int
	Recorder    ScoreRecorder
	Logger      *slog.Logger
}

// Sessions is the in-memory registry of live host sessions.
type Sessions struct {
	mu       sync.Mutex
	byID     map[string]*Session
	origin   string
	idleTTL  time.Duration
	buffer   int
	recorder ScoreRecorder
	logger   *slog.Logger
	now      func() time.Time
}

func NewSessions(cfg SessionConfig) *Sessions {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	buffer := cfg.EventBuffer
	if buffer <= 0 {
		buffer = 16
	}
	ttl := cfg.IdleTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}

	return &Sessions{
		byID:     make(map[string]*Session),
		origin:   cfg.Origin,
		idleTTL:  ttl,
		buffer:   buffer,
		recorder: cfg.Recorder,
		logger:   logger,
		now:      time.Now,
	}
}

func (m *Sessions) Origin() string {
	return m.origin
}

// Open creates a session in AwaitingReady. Access must already have been
// checked by the caller.
func (m *Sessions) Open(userID, gameSlug string) (*Session, error) {
	s := &Session{
		ID:       ksuid.New().String(),
		UserID:   userID,
		GameSlug: gameSlug,
		events:   make(chan Event, m.buffer),
		closed:   make(chan struct{}),
		lastSeen: m.now(),
	}

	s.Host = protocol.NewHostSession(protocol.HostConfig{
		Origin:    m.origin,
		GameSlug:  gameSlug,
		Poster:    &ssePoster{session: s, origin: m.origin},
		Submitter: &sessionSubmitter{userID: userID, recorder: m.recorder},
		Logger:    m.logger.With("session_id", s.ID),
	})
	if err := s.Host.Open(); err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}

	m.mu.Lock()
	m.byID[s.ID] = s
	m.mu.Unlock()

	return s, nil
}

// Get returns the session only to its owner. Any other caller gets
// ErrNotFound so session ids cannot be probed.
func (m *Sessions) Get(userID, gameSlug, id string) (*Session, error) {
	m.mu.Lock()
	s, ok := m.byID[id]
	m.mu.Unlock()

	if !ok || s.UserID != userID || s.GameSlug != gameSlug {
		return nil, fmt.Errorf("session %s: %w", id, core.ErrNotFound)
	}
	return s, nil
}

// Deliver hands one inbound content message to the session's host. Nothing
// about the outcome is returned to the sender.
func (m *Sessions) Deliver(ctx context.Context, s *Session, env protocol.Envelope) protocol.Outcome {
	s.touch(m.now())

	out := s.Host.Receive(ctx, env)
	if !out.Submitted {
		return out
	}

	result := ScoreResult{Submitted: out.SubmitErr == nil}
	if score, ok := out.Message.(protocol.GameScore); ok {
		result.Score = score.Score
	}
	if out.SubmitErr != nil {
		result.Notice = submitFailedNotice
	}

	data, err := json.Marshal(result)
	if err == nil {
		err = s.emit(Event{Name: EventScoreResult, Data: data})
	}
	if err != nil {
		m.logger.WarnContext(ctx, "could not emit score result",
			"session_id", s.ID,
			"error", err,
		)
	}

	return out
}

func (m *Sessions) Pause(s *Session) error {
	s.touch(m.now())
	return s.Host.Pause()
}

func (m *Sessions) Resume(s *Session) error {
	s.touch(m.now())
	return s.Host.Resume()
}

func (m *Sessions) Remove(id string) {
	m.mu.Lock()
	s, ok := m.byID[id]
	delete(m.byID, id)
	m.mu.Unlock()

	if ok {
		s.close()
	}
}

func (m *Sessions) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

// Sweep drops sessions idle for longer than the TTL and returns how many
// were removed.
func (m *Sessions) Sweep(ctx context.Context) int {
	cutoff := m.now().Add(-m.idleTTL)

	var stale []*Session
	m.mu.Lock()
	for id, s := range m.byID {
		if s.idleSince().Before(cutoff) {
			stale = append(stale, s)
			delete(m.byID, id)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		s.close()
	}

	if len(stale) > 0 {
		m.logger.InfoContext(ctx, "swept idle game sessions", "count", len(stale))
	}
	return len(stale)
}
