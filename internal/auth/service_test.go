// AngelaMos | 2026
// service_test.go

package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/playvault/internal/config"
	"github.com/carterperez-dev/playvault/internal/core"
	"github.com/carterperez-dev/playvault/internal/middleware"
)

type memSessions struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: map[string]*Session{}}
}

func (m *memSessions) Create(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	cp.CreatedAt = time.Now()
	m.sessions[s.ID] = &cp
	return nil
}

func (m *memSessions) find(match func(*Session) bool) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if match(s) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (m *memSessions) FindByHash(ctx context.Context, hash string) (*Session, error) {
	return m.find(func(s *Session) bool { return s.TokenHash == hash })
}

func (m *memSessions) FindByID(ctx context.Context, id string) (*Session, error) {
	return m.find(func(s *Session) bool { return s.ID == id })
}

func (m *memSessions) Rotate(ctx context.Context, id, replacedByID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.UsedAt != nil {
		return core.ErrNotFound
	}
	now := time.Now()
	s.UsedAt = &now
	s.ReplacedByID = &replacedByID
	return nil
}

func (m *memSessions) revokeWhere(reason RevokeReason, match func(*Session) bool) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	now := time.Now()
	for _, s := range m.sessions {
		if s.RevokedAt == nil && match(s) {
			s.RevokedAt = &now
			s.RevokedReason = &reason
			n++
		}
	}
	return n
}

func (m *memSessions) Revoke(ctx context.Context, id string, reason RevokeReason) error {
	if m.revokeWhere(reason, func(s *Session) bool { return s.ID == id }) == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (m *memSessions) RevokeFamily(ctx context.Context, familyID string, reason RevokeReason) (int64, error) {
	return m.revokeWhere(reason, func(s *Session) bool { return s.FamilyID == familyID }), nil
}

func (m *memSessions) RevokeAllForUser(ctx context.Context, userID string, reason RevokeReason) (int64, error) {
	return m.revokeWhere(reason, func(s *Session) bool { return s.UserID == userID }), nil
}

func (m *memSessions) ListActive(ctx context.Context, userID string) ([]Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Session
	for _, s := range m.sessions {
		if s.UserID == userID && s.State(time.Now()) == SessionActive {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memSessions) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

func (m *memSessions) reasonFor(id string) RevokeReason {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok && s.RevokedReason != nil {
		return *s.RevokedReason
	}
	return ""
}

type memUsers struct {
	mu    sync.Mutex
	users map[string]*UserInfo
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*UserInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (m *memUsers) GetByID(ctx context.Context, id string) (*UserInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) Create(ctx context.Context, email, hash, name string) (*UserInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return nil, core.ErrDuplicateKey
		}
	}
	u := &UserInfo{
		ID:           "user-" + name,
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         "user",
		Tier:         "Free",
		CreatedAt:    time.Now(),
	}
	m.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (m *memUsers) IncrementTokenVersion(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[userID].TokenVersion++
	return nil
}

func (m *memUsers) UpdatePassword(ctx context.Context, userID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[userID].PasswordHash = hash
	return nil
}

type memBlacklist struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
	down    bool
}

func (b *memBlacklist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.down {
		return errors.New("redis: connection refused")
	}
	b.revoked[jti] = ttl
	return nil
}

func (b *memBlacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.down {
		return false, errors.New("redis: connection refused")
	}
	_, ok := b.revoked[jti]
	return ok, nil
}

type fixture struct {
	svc       *Service
	sessions  *memSessions
	users     *memUsers
	blacklist *memBlacklist
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dir := t.TempDir()
	priv := filepath.Join(dir, "private.pem")
	pub := filepath.Join(dir, "public.pem")
	if err := GenerateKeyPair(priv, pub); err != nil {
		t.Fatalf("generate keys: %v", err)
	}

	jwtManager, err := NewJWTManager(config.JWTConfig{
		PrivateKeyPath:     priv,
		PublicKeyPath:      pub,
		AccessTokenExpire:  15 * time.Minute,
		RefreshTokenExpire: 24 * time.Hour,
		Issuer:             "playvault-test",
		Audience:           "playvault-test",
	})
	if err != nil {
		t.Fatalf("jwt manager: %v", err)
	}

	f := &fixture{
		sessions:  newMemSessions(),
		users:     &memUsers{users: map[string]*UserInfo{}},
		blacklist: &memBlacklist{revoked: map[string]time.Duration{}},
	}
	f.svc = NewService(
		f.sessions,
		jwtManager,
		f.users,
		f.blacklist,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return f
}

func (f *fixture) register(t *testing.T) *AuthResponse {
	t.Helper()
	resp, err := f.svc.Register(context.Background(), RegisterRequest{
		Email:    "ada@example.com",
		Password: "correct-horse-battery",
		Name:     "ada",
	}, ClientInfo{UserAgent: "test-agent", IPAddress: "127.0.0.1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return resp
}

func TestRegisterIssuesVerifiableTokens(t *testing.T) {
	f := newFixture(t)
	resp := f.register(t)

	if resp.Tokens.ExpiresIn != int((15*time.Minute)/time.Second) {
		t.Fatalf("expected expires_in from config, got %d", resp.Tokens.ExpiresIn)
	}
	if resp.User.Tier != "Free" {
		t.Fatalf("expected tier name in response, got %q", resp.User.Tier)
	}

	claims, err := f.svc.VerifyAccessToken(context.Background(), resp.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != resp.User.ID || claims.JTI == "" || claims.Tier != "Free" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if time.Until(claims.ExpiresAt) <= 0 {
		t.Fatal("expected expiry in the future")
	}
}

func TestLogoutBlacklistsAccessToken(t *testing.T) {
	f := newFixture(t)
	resp := f.register(t)
	ctx := context.Background()

	claims, err := f.svc.VerifyAccessToken(ctx, resp.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	if err := f.svc.Logout(ctx, resp.Tokens.RefreshToken, claims); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if _, err := f.svc.VerifyAccessToken(ctx, resp.Tokens.AccessToken); !errors.Is(err, core.ErrTokenRevoked) {
		t.Fatalf("expected revoked access token, got %v", err)
	}
	if _, err := f.svc.Refresh(ctx, resp.Tokens.RefreshToken, IssuedBodyRefresh, ClientInfo{}); !errors.Is(err, core.ErrTokenRevoked) {
		t.Fatalf("expected revoked refresh token, got %v", err)
	}
}

func TestVerifyFailsOpenWhenBlacklistDown(t *testing.T) {
	f := newFixture(t)
	resp := f.register(t)
	f.blacklist.down = true

	if _, err := f.svc.VerifyAccessToken(context.Background(), resp.Tokens.AccessToken); err != nil {
		t.Fatalf("expected token accepted while blacklist is down, got %v", err)
	}
}

func TestLogoutAllInvalidatesTokenVersion(t *testing.T) {
	f := newFixture(t)
	resp := f.register(t)
	ctx := context.Background()

	if err := f.svc.LogoutAll(ctx, resp.User.ID); err != nil {
		t.Fatalf("logout all: %v", err)
	}

	if _, err := f.svc.VerifyAccessToken(ctx, resp.Tokens.AccessToken); !errors.Is(err, core.ErrTokenRevoked) {
		t.Fatalf("expected stale token version rejected, got %v", err)
	}
}

func TestRefreshReuseRevokesFamily(t *testing.T) {
	f := newFixture(t)
	resp := f.register(t)
	ctx := context.Background()

	rotated, err := f.svc.Refresh(ctx, resp.Tokens.RefreshToken, IssuedBodyRefresh, ClientInfo{})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if _, err := f.svc.Refresh(ctx, resp.Tokens.RefreshToken, IssuedBodyRefresh, ClientInfo{}); !errors.Is(err, ErrTokenReuse) {
		t.Fatalf("expected reuse detection, got %v", err)
	}

	if _, err := f.svc.Refresh(ctx, rotated.Tokens.RefreshToken, IssuedBodyRefresh, ClientInfo{}); !errors.Is(err, ErrTokenReuse) {
		t.Fatalf("expected the rest of the family refused as reuse, got %v", err)
	}

	sessions, err := f.svc.ListSessions(ctx, resp.User.ID, "")
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatalf("expected no live sessions after reuse, got %+v", sessions)
	}
}

func TestSessionsCarryTierAndIssue(t *testing.T) {
	f := newFixture(t)
	resp := f.register(t)
	ctx := context.Background()

	f.users.mu.Lock()
	f.users.users[resp.User.ID].Tier = "Pro"
	f.users.mu.Unlock()

	rotated, err := f.svc.Refresh(ctx, resp.Tokens.RefreshToken, IssuedCookieRefresh, ClientInfo{UserAgent: "browser"})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if rotated.User.Tier != "Pro" {
		t.Fatalf("expected refreshed user on the new tier, got %q", rotated.User.Tier)
	}

	second, err := f.svc.Login(ctx, LoginRequest{
		Email:    "ada@example.com",
		Password: "correct-horse-battery",
	}, ClientInfo{UserAgent: "platformctl"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	sessions, err := f.svc.ListSessions(ctx, resp.User.ID, rotated.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected two live sessions, got %+v", sessions)
	}

	byAgent := map[string]SessionInfo{}
	for _, s := range sessions {
		byAgent[s.UserAgent] = s
	}
	browser, cli := byAgent["browser"], byAgent["platformctl"]
	if !browser.Current || cli.Current {
		t.Fatalf("expected only the browser session current, got %+v", sessions)
	}
	if browser.Tier != "Pro" || browser.IssuedVia != IssuedCookieRefresh {
		t.Fatalf("unexpected browser session %+v", browser)
	}
	if cli.IssuedVia != IssuedLogin {
		t.Fatalf("unexpected cli session %+v", cli)
	}

	claims, err := f.svc.VerifyAccessToken(ctx, second.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := f.svc.RevokeSession(ctx, resp.User.ID, cli.ID); err != nil {
		t.Fatalf("revoke session: %v", err)
	}
	if got := f.sessions.reasonFor(cli.ID); got != RevokedByUser {
		t.Fatalf("expected revoked_by_user, got %q", got)
	}
	if err := f.svc.RevokeSession(ctx, "someone-else", browser.ID); !errors.Is(err, core.ErrForbidden) {
		t.Fatalf("expected forbidden for a foreign session, got %v", err)
	}
	if claims.Tier != "Pro" {
		t.Fatalf("expected login after tier change to carry Pro, got %q", claims.Tier)
	}
}

func TestChangePasswordEndsSessions(t *testing.T) {
	f := newFixture(t)
	resp := f.register(t)
	ctx := context.Background()

	err := f.svc.ChangePassword(ctx, resp.User.ID, "correct-horse-battery", "staple-battery-horse")
	if err != nil {
		t.Fatalf("change password: %v", err)
	}

	if _, err := f.svc.Refresh(ctx, resp.Tokens.RefreshToken, IssuedBodyRefresh, ClientInfo{}); !errors.Is(err, core.ErrTokenRevoked) {
		t.Fatalf("expected revoked session, got %v", err)
	}

	stored, err := f.sessions.FindByHash(ctx, core.HashToken(resp.Tokens.RefreshToken))
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got := f.sessions.reasonFor(stored.ID); got != RevokedPasswordChanged {
		t.Fatalf("expected password_changed, got %q", got)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	f := newFixture(t)
	f.register(t)

	_, err := f.svc.Login(context.Background(), LoginRequest{
		Email:    "ada@example.com",
		Password: "wrong-password-here",
	}, ClientInfo{})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
}

func TestHandlerCookieSession(t *testing.T) {
	f := newFixture(t)
	cookies := config.CookieConfig{AccessName: "access_token", RefreshName: "refresh_token"}
	h := NewHandler(f.svc, cookies)

	r := chi.NewRouter()
	h.RegisterRoutes(r, middleware.Authenticator(f.svc, cookies.AccessName))

	body := `{"email":"ada@example.com","password":"correct-horse-battery","name":"ada"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	set := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		set[c.Name] = c
	}
	access, refresh := set["access_token"], set["refresh_token"]
	if access == nil || refresh == nil {
		t.Fatalf("expected both session cookies, got %v", rec.Result().Cookies())
	}
	if !access.HttpOnly || !refresh.HttpOnly {
		t.Fatal("expected HttpOnly cookies")
	}

	req = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(access)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("me via cookie: expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(refresh)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh via cookie: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(access)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout: expected 204, got %d", rec.Code)
	}
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge >= 0 {
			t.Fatalf("expected cookie %s cleared, got max-age %d", c.Name, c.MaxAge)
		}
	}

	req = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(access)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("me after logout: expected 401, got %d", rec.Code)
	}
}
