// AngelaMos | 2026
// session_test.go

package game

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/playvault/internal/access"
	"github.com/carterperez-dev/playvault/internal/core"
	"github.com/carterperez-dev/playvault/internal/middleware"
	"github.com/carterperez-dev/playvault/internal/protocol"
)

const hostOrigin = "https://app.example"

type fakeRecorder struct {
	mu    sync.Mutex
	calls []protocol.Submission
	users []string
	err   error
}

func (f *fakeRecorder) Record(ctx context.Context, userID string, sub protocol.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, sub)
	f.users = append(f.users, userID)
	return f.err
}

func newTestSessions(rec ScoreRecorder) *Sessions {
	return NewSessions(SessionConfig{
		Origin:      hostOrigin,
		IdleTTL:     time.Minute,
		EventBuffer: 8,
		Recorder:    rec,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func nextEvent(t *testing.T, s *Session) Event {
	t.Helper()
	select {
	case ev := <-s.Events():
		return ev
	default:
		t.Fatal("expected an event")
		return Event{}
	}
}

func noEvent(t *testing.T, s *Session) {
	t.Helper()
	select {
	case ev := <-s.Events():
		t.Fatalf("expected no event, got %s %s", ev.Name, ev.Data)
	default:
	}
}

func deliver(m *Sessions, s *Session, origin, body string) protocol.Outcome {
	return m.Deliver(context.Background(), s, protocol.Envelope{Origin: origin, Data: []byte(body)})
}

func TestSessionLifecycle(t *testing.T) {
	rec := &fakeRecorder{}
	m := newTestSessions(rec)

	s, err := m.Open("user-1", "tic_tac_toe")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if len(s.ID) != 27 {
		t.Fatalf("expected a ksuid session id, got %q", s.ID)
	}
	if s.Host.State() != protocol.StateAwaitingReady {
		t.Fatalf("expected awaiting_ready, got %s", s.Host.State())
	}

	deliver(m, s, "https://evil.example", `{"type":"GAME_READY"}`)
	noEvent(t, s)

	deliver(m, s, hostOrigin, `{"type":"GAME_READY"}`)
	ev := nextEvent(t, s)
	if ev.Name != EventMessage || string(ev.Data) != `{"type":"PLATFORM_READY"}` {
		t.Fatalf("expected PLATFORM_READY event, got %s %s", ev.Name, ev.Data)
	}

	if err := m.Pause(s); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if ev := nextEvent(t, s); string(ev.Data) != `{"type":"PAUSE_GAME"}` {
		t.Fatalf("expected PAUSE_GAME, got %s", ev.Data)
	}
	if err := m.Resume(s); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if ev := nextEvent(t, s); string(ev.Data) != `{"type":"RESUME_GAME"}` {
		t.Fatalf("expected RESUME_GAME, got %s", ev.Data)
	}

	deliver(m, s, hostOrigin, `{"type":"GAME_SCORE","score":"75","timestamp":1}`)
	noEvent(t, s)

	out := deliver(m, s, hostOrigin, `{"type":"GAME_SCORE","score":75,"timestamp":1}`)
	if !out.Submitted || out.State != protocol.StateFinished {
		t.Fatalf("expected submission, got %+v", out)
	}

	ev = nextEvent(t, s)
	var result ScoreResult
	if err := json.Unmarshal(ev.Data, &result); err != nil {
		t.Fatalf("decode score result: %v", err)
	}
	if ev.Name != EventScoreResult || !result.Submitted || result.Score != 75 || result.Notice != "" {
		t.Fatalf("unexpected score result %s %+v", ev.Name, result)
	}

	if len(rec.calls) != 1 || rec.users[0] != "user-1" {
		t.Fatalf("expected one recorded score for user-1, got %+v", rec.calls)
	}
	want := protocol.Submission{GameSlug: "tic_tac_toe", Score: 75, Origin: hostOrigin}
	if rec.calls[0] != want {
		t.Fatalf("expected %+v, got %+v", want, rec.calls[0])
	}
}

func TestSessionSubmitFailureNotice(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("db down")}
	m := newTestSessions(rec)
	s, _ := m.Open("user-1", "tic_tac_toe")

	deliver(m, s, hostOrigin, `{"type":"GAME_READY"}`)
	nextEvent(t, s)

	out := deliver(m, s, hostOrigin, `{"type":"GAME_SCORE","score":10,"timestamp":1}`)
	if out.State != protocol.StateFinished || out.SubmitErr == nil {
		t.Fatalf("expected finished with error, got %+v", out)
	}

	var result ScoreResult
	if err := json.Unmarshal(nextEvent(t, s).Data, &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Submitted || result.Notice != submitFailedNotice {
		t.Fatalf("expected failure notice, got %+v", result)
	}
}

func TestSessionOwnership(t *testing.T) {
	m := newTestSessions(&fakeRecorder{})
	s, _ := m.Open("owner", "tic_tac_toe")

	if _, err := m.Get("owner", "tic_tac_toe", s.ID); err != nil {
		t.Fatalf("expected owner to see session, got %v", err)
	}
	if _, err := m.Get("intruder", "tic_tac_toe", s.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found for other user, got %v", err)
	}
	if _, err := m.Get("owner", "whack_a_mole", s.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found under another game, got %v", err)
	}
}

func TestSweepRemovesIdleSessions(t *testing.T) {
	m := newTestSessions(&fakeRecorder{})
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	idle, _ := m.Open("u", "tic_tac_toe")
	now = now.Add(50 * time.Second)
	busy, _ := m.Open("u", "tic_tac_toe")

	now = now.Add(20 * time.Second)
	if n := m.Sweep(context.Background()); n != 1 {
		t.Fatalf("expected one session swept, got %d", n)
	}

	select {
	case <-idle.Closed():
	default:
		t.Fatal("expected swept session to be closed")
	}
	if _, err := m.Get("u", "tic_tac_toe", busy.ID); err != nil {
		t.Fatalf("expected recent session kept, got %v", err)
	}
	if m.Len() != 1 {
		t.Fatalf("expected 1 session left, got %d", m.Len())
	}
}

func TestDeliverHandlerAlwaysAccepts(t *testing.T) {
	rec := &fakeRecorder{}
	m := newTestSessions(rec)
	h := NewHandler(NewService(newFakeRepo(seedGames()...), freeAccess()), m)

	pass := func(next http.Handler) http.Handler { return next }
	r := chi.NewRouter()
	h.RegisterRoutes(r, pass, pass, pass, pass)

	s, _ := m.Open("user-1", "tic_tac_toe")
	path := "/games/tic_tac_toe/sessions/" + s.ID + "/messages"

	tests := []struct {
		name   string
		user   string
		origin string
		body   string
		status int
	}{
		{name: "forged origin", user: "user-1", origin: "https://evil.example", body: `{"type":"GAME_READY"}`, status: http.StatusAccepted},
		{name: "malformed", user: "user-1", origin: hostOrigin, body: `{"type":`, status: http.StatusAccepted},
		{name: "no origin", user: "user-1", body: `{"type":"GAME_READY"}`, status: http.StatusAccepted},
		{name: "other user", user: "user-2", origin: hostOrigin, body: `{"type":"GAME_READY"}`, status: http.StatusNotFound},
		{name: "valid", user: "user-1", origin: hostOrigin, body: `{"type":"GAME_READY"}`, status: http.StatusAccepted},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(tc.body))
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			req = req.WithContext(middleware.WithUser(req.Context(), tc.user, "user", "Free"))

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
		})
	}

	if s.Host.State() != protocol.StateReady {
		t.Fatalf("expected only the valid message to advance the session, got %s", s.Host.State())
	}
	ev := nextEvent(t, s)
	if string(ev.Data) != `{"type":"PLATFORM_READY"}` {
		t.Fatalf("expected a single PLATFORM_READY, got %s", ev.Data)
	}
	noEvent(t, s)
}

func TestControlHandlerConflict(t *testing.T) {
	m := newTestSessions(&fakeRecorder{})
	h := NewHandler(NewService(newFakeRepo(seedGames()...), freeAccess()), m)

	pass := func(next http.Handler) http.Handler { return next }
	r := chi.NewRouter()
	h.RegisterRoutes(r, pass, pass, pass, pass)

	s, _ := m.Open("user-1", "tic_tac_toe")

	req := httptest.NewRequest(http.MethodPost, "/games/tic_tac_toe/sessions/"+s.ID+"/pause", nil)
	req = req.WithContext(middleware.WithUser(req.Context(), "user-1", "user", "Free"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 pausing before ready, got %d", rec.Code)
	}
}

func TestOpenSessionHandler(t *testing.T) {
	m := newTestSessions(&fakeRecorder{})
	h := NewHandler(NewService(newFakeRepo(seedGames()...), freeAccess()), m)

	pass := func(next http.Handler) http.Handler { return next }
	r := chi.NewRouter()
	h.RegisterRoutes(r, pass, pass, pass, pass)

	req := httptest.NewRequest(http.MethodPost, "/games/tic_tac_toe/sessions", nil)
	req = req.WithContext(middleware.WithUser(req.Context(), "user-1", "user", "Free"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Data OpenSessionResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.Origin != hostOrigin || body.Data.State != "awaiting_ready" {
		t.Fatalf("unexpected response %+v", body.Data)
	}
	if m.Len() != 1 {
		t.Fatalf("expected session registered, got %d", m.Len())
	}
}

func TestAnonymousCatalogueIsLocked(t *testing.T) {
	m := newTestSessions(&fakeRecorder{})
	h := NewHandler(NewService(newFakeRepo(seedGames()...), freeAccess()), m)

	pass := func(next http.Handler) http.Handler { return next }
	deny := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			core.Unauthorized(w, "")
		})
	}
	r := chi.NewRouter()
	h.RegisterRoutes(r, deny, pass, pass, pass)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/games", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected anonymous catalogue, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Data []GameResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Data) != 2 {
		t.Fatalf("expected 2 active games, got %d", len(body.Data))
	}
	for _, g := range body.Data {
		if g.HasAccess || g.Reason != access.ReasonNoTier || !g.Affordance.Locked {
			t.Fatalf("expected %s locked for anonymous caller, got %+v", g.Slug, g)
		}
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/games/tic_tac_toe/sessions", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected sessions to need authentication, got %d", rec.Code)
	}
}

func TestCloseSessionHandler(t *testing.T) {
	m := newTestSessions(&fakeRecorder{})
	h := NewHandler(NewService(newFakeRepo(seedGames()...), freeAccess()), m)

	pass := func(next http.Handler) http.Handler { return next }
	r := chi.NewRouter()
	h.RegisterRoutes(r, pass, pass, pass, pass)

	s, _ := m.Open("user-1", "tic_tac_toe")
	path := "/games/tic_tac_toe/sessions/" + s.ID

	req := httptest.NewRequest(http.MethodDelete, path, nil)
	req = req.WithContext(middleware.WithUser(req.Context(), "user-2", "user", "Free"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for another user's session, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, path, nil)
	req = req.WithContext(middleware.WithUser(req.Context(), "user-1", "user", "Free"))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	select {
	case <-s.Closed():
	default:
		t.Fatal("expected session closed")
	}
	if m.Len() != 0 {
		t.Fatalf("expected no live sessions, got %d", m.Len())
	}
}
