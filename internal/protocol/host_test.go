// AngelaMos | 2026
// host_test.go

package protocol

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
)

const (
	appOrigin  = "https://app.example"
	evilOrigin = "https://evil.example"
)

type posted struct {
	msg    Message
	target string
}

type recordingPoster struct {
	mu    sync.Mutex
	posts []posted
	err   error
}

func (p *recordingPoster) Post(msg Message, target string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.posts = append(p.posts, posted{msg: msg, target: target})
	return nil
}

func (p *recordingPoster) sent() []posted {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]posted(nil), p.posts...)
}

type countingSubmitter struct {
	mu   sync.Mutex
	subs []Submission
	err  error
}

func (s *countingSubmitter) SubmitScore(ctx context.Context, sub Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, sub)
	return s.err
}

func (s *countingSubmitter) calls() []Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Submission(nil), s.subs...)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHost(t *testing.T) (*HostSession, *recordingPoster, *countingSubmitter) {
	t.Helper()

	poster := &recordingPoster{}
	submitter := &countingSubmitter{}
	h := NewHostSession(HostConfig{
		Origin:    appOrigin,
		GameSlug:  "tic_tac_toe",
		Poster:    poster,
		Submitter: submitter,
		Logger:    quietLogger(),
	})
	if err := h.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}
	return h, poster, submitter
}

func env(origin, body string) Envelope {
	return Envelope{Origin: origin, Data: []byte(body)}
}

func TestHostHandshake(t *testing.T) {
	h, poster, _ := newTestHost(t)
	ctx := context.Background()

	out := h.Receive(ctx, env(appOrigin, `{"type":"GAME_READY"}`))
	if out.State != StateReady || out.Dropped != DropNone {
		t.Fatalf("expected ready, got %+v", out)
	}

	posts := poster.sent()
	if len(posts) != 1 {
		t.Fatalf("expected one reply, got %d", len(posts))
	}
	if posts[0].msg != (PlatformReady{}) {
		t.Fatalf("expected PLATFORM_READY, got %+v", posts[0].msg)
	}
	if posts[0].target != appOrigin {
		t.Fatalf("expected reply addressed to %s, got %q", appOrigin, posts[0].target)
	}

	out = h.Receive(ctx, env(appOrigin, `{"type":"GAME_READY"}`))
	if out.Dropped != DropIgnored || len(poster.sent()) != 1 {
		t.Fatalf("expected duplicate GAME_READY to be ignored, got %+v", out)
	}
}

func TestHostDropsForeignOrigins(t *testing.T) {
	origins := []string{
		evilOrigin,
		"http://app.example",
		"https://app.example:8443",
		"https://app.example/",
		"",
		"*",
		"null",
	}

	for _, origin := range origins {
		t.Run(origin, func(t *testing.T) {
			h, poster, submitter := newTestHost(t)
			ctx := context.Background()

			out := h.Receive(ctx, env(origin, `{"type":"GAME_READY"}`))
			if out.Dropped != DropOrigin || out.State != StateAwaitingReady {
				t.Fatalf("expected forged GAME_READY dropped, got %+v", out)
			}
			if out.Message != nil {
				t.Fatalf("expected body not to be decoded, got %+v", out.Message)
			}
			if len(poster.sent()) != 0 {
				t.Fatal("expected no reply to forged origin")
			}

			h.Receive(ctx, env(appOrigin, `{"type":"GAME_READY"}`))

			out = h.Receive(ctx, env(origin, `{"type":"GAME_SCORE","score":999,"timestamp":1}`))
			if out.Dropped != DropOrigin || out.State != StateReady {
				t.Fatalf("expected forged score dropped, got %+v", out)
			}
			if len(submitter.calls()) != 0 {
				t.Fatal("expected forged score not to be submitted")
			}
		})
	}
}

func TestHostMalformedScoreKeepsState(t *testing.T) {
	h, _, submitter := newTestHost(t)
	ctx := context.Background()
	h.Receive(ctx, env(appOrigin, `{"type":"GAME_READY"}`))

	out := h.Receive(ctx, env(appOrigin, `{"type":"GAME_SCORE","score":"100","timestamp":123}`))
	if out.Dropped != DropMalformed || out.State != StateReady {
		t.Fatalf("expected malformed score dropped in ready, got %+v", out)
	}
	if len(submitter.calls()) != 0 {
		t.Fatal("expected nothing submitted")
	}

	out = h.Receive(ctx, env(appOrigin, `{"type":"GAME_SCORE","score":100,"timestamp":123}`))
	if out.State != StateFinished || !out.Submitted {
		t.Fatalf("expected retry with a valid body to finish, got %+v", out)
	}

	calls := submitter.calls()
	if len(calls) != 1 {
		t.Fatalf("expected one submission, got %d", len(calls))
	}
	want := Submission{GameSlug: "tic_tac_toe", Score: 100, Origin: appOrigin}
	if calls[0] != want {
		t.Fatalf("expected %+v, got %+v", want, calls[0])
	}
}

func TestHostSubmitsOnce(t *testing.T) {
	h, _, submitter := newTestHost(t)
	ctx := context.Background()
	h.Receive(ctx, env(appOrigin, `{"type":"GAME_READY"}`))

	h.Receive(ctx, env(appOrigin, `{"type":"GAME_SCORE","score":75,"timestamp":1}`))
	out := h.Receive(ctx, env(appOrigin, `{"type":"GAME_SCORE","score":90,"timestamp":2}`))

	if out.Dropped != DropIgnored || out.Submitted {
		t.Fatalf("expected second score ignored, got %+v", out)
	}
	if n := len(submitter.calls()); n != 1 {
		t.Fatalf("expected exactly one submission, got %d", n)
	}

	select {
	case <-h.Done():
	default:
		t.Fatal("expected Done to be closed")
	}

	score, err := h.Result()
	if err != nil || score == nil || score.Score != 75 {
		t.Fatalf("expected final score 75, got %+v, %v", score, err)
	}
}

func TestHostScoreBeforeReadyIgnored(t *testing.T) {
	h, _, submitter := newTestHost(t)

	out := h.Receive(context.Background(), env(appOrigin, `{"type":"GAME_SCORE","score":75,"timestamp":1}`))
	if out.Dropped != DropIgnored || out.State != StateAwaitingReady {
		t.Fatalf("expected score before handshake ignored, got %+v", out)
	}
	if len(submitter.calls()) != 0 {
		t.Fatal("expected nothing submitted")
	}
}

func TestHostSubmitFailureDoesNotRollBack(t *testing.T) {
	h, _, submitter := newTestHost(t)
	submitter.err = errors.New("connection refused")
	ctx := context.Background()
	h.Receive(ctx, env(appOrigin, `{"type":"GAME_READY"}`))

	out := h.Receive(ctx, env(appOrigin, `{"type":"GAME_SCORE","score":75,"timestamp":1}`))
	if out.State != StateFinished {
		t.Fatalf("expected finished despite failure, got %s", out.State)
	}
	if out.SubmitErr == nil {
		t.Fatal("expected submission error to be reported")
	}

	out = h.Receive(ctx, env(appOrigin, `{"type":"GAME_SCORE","score":75,"timestamp":2}`))
	if out.Submitted || len(submitter.calls()) != 1 {
		t.Fatalf("expected no automatic retry, got %+v", out)
	}

	if _, err := h.Result(); err == nil {
		t.Fatal("expected Result to carry the submission error")
	}
}

func TestHostPauseResume(t *testing.T) {
	h, poster, submitter := newTestHost(t)
	ctx := context.Background()

	if err := h.Pause(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected pause before ready to fail, got %v", err)
	}

	h.Receive(ctx, env(appOrigin, `{"type":"GAME_READY"}`))

	if err := h.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if h.State() != StatePaused {
		t.Fatalf("expected paused, got %s", h.State())
	}

	out := h.Receive(ctx, env(appOrigin, `{"type":"GAME_SCORE","score":75,"timestamp":1}`))
	if out.Dropped != DropIgnored || len(submitter.calls()) != 0 {
		t.Fatalf("expected score while paused ignored, got %+v", out)
	}

	if err := h.Pause(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected double pause to fail, got %v", err)
	}

	if err := h.Resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if h.State() != StateReady {
		t.Fatalf("expected ready, got %s", h.State())
	}

	posts := poster.sent()
	want := []Message{PlatformReady{}, PauseGame{}, ResumeGame{}}
	if len(posts) != len(want) {
		t.Fatalf("expected %d posts, got %d", len(want), len(posts))
	}
	for i, p := range posts {
		if p.msg != want[i] || p.target != appOrigin {
			t.Fatalf("post %d: expected %s to %s, got %+v", i, want[i].Type(), appOrigin, p)
		}
	}
}

func TestHostPauseKeepsStateWhenPostFails(t *testing.T) {
	h, poster, _ := newTestHost(t)
	h.Receive(context.Background(), env(appOrigin, `{"type":"GAME_READY"}`))

	poster.err = ErrPipeClosed
	if err := h.Pause(); err == nil {
		t.Fatal("expected pause to fail")
	}
	if h.State() != StateReady {
		t.Fatalf("expected ready, got %s", h.State())
	}
}

func TestHostOpenOnlyFromIdle(t *testing.T) {
	h, _, _ := newTestHost(t)
	if err := h.Open(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected second open to fail, got %v", err)
	}
}
