// AngelaMos | 2026
// service_test.go

package user

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/playvault/internal/core"
	"github.com/carterperez-dev/playvault/internal/middleware"
	"github.com/carterperez-dev/playvault/internal/tier"
)

type memRepo struct {
	users map[string]*User
	names map[string]string
}

func newMemRepo() *memRepo {
	return &memRepo{users: map[string]*User{}, names: map[string]string{}}
}

func (m *memRepo) Create(ctx context.Context, u *User) error {
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return core.ErrDuplicateKey
		}
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memRepo) GetByID(ctx context.Context, id string) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *u
	if cp.TierID != nil {
		name := m.names[*cp.TierID]
		cp.TierName = &name
	}
	return &cp, nil
}

func (m *memRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	for id, u := range m.users {
		if u.Email == email {
			return m.GetByID(ctx, id)
		}
	}
	return nil, core.ErrNotFound
}

func (m *memRepo) Update(ctx context.Context, u *User) error {
	existing, ok := m.users[u.ID]
	if !ok {
		return core.ErrNotFound
	}
	existing.Name = u.Name
	existing.Role = u.Role
	return nil
}

func (m *memRepo) UpdatePassword(ctx context.Context, id, hash string) error {
	m.users[id].PasswordHash = hash
	return nil
}

func (m *memRepo) IncrementTokenVersion(ctx context.Context, id string) error {
	m.users[id].TokenVersion++
	return nil
}

func (m *memRepo) SoftDelete(ctx context.Context, id string) error {
	delete(m.users, id)
	return nil
}

func (m *memRepo) List(ctx context.Context, params ListUsersParams) ([]User, int, error) {
	var out []User
	for id := range m.users {
		u, _ := m.GetByID(ctx, id)
		switch {
		case params.Untiered:
			if u.TierID != nil {
				continue
			}
		case params.TierID != "":
			if u.TierID == nil || *u.TierID != params.TierID {
				continue
			}
		case params.Tier != "":
			if u.Tier() != params.Tier {
				continue
			}
		}
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (m *memRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := m.GetByEmail(ctx, email)
	return err == nil, nil
}

func (m *memRepo) AssignTier(ctx context.Context, id, tierID string) error {
	u, ok := m.users[id]
	if !ok {
		return core.ErrNotFound
	}
	u.TierID = &tierID
	u.TokenVersion++
	return nil
}

func (m *memRepo) CountByTier(ctx context.Context) ([]TierAssignment, error) {
	counts := map[string]*TierAssignment{}
	var out []TierAssignment
	for id := range m.users {
		u, _ := m.GetByID(ctx, id)
		key := ""
		if u.TierID != nil {
			key = *u.TierID
		}
		if counts[key] == nil {
			counts[key] = &TierAssignment{TierID: u.TierID, TierName: u.Tier()}
		}
		counts[key].Users++
	}
	for _, c := range counts {
		out = append(out, *c)
	}
	return out, nil
}

type tierNames map[string]*tier.Tier

func (t tierNames) GetByName(ctx context.Context, name string) (*tier.Tier, error) {
	found, ok := t[name]
	if !ok {
		return nil, core.ErrNotFound
	}
	return found, nil
}

const (
	freeTierID = "00000000-0000-0000-0000-0000000000f1"
	proTierID  = "00000000-0000-0000-0000-0000000000f2"
)

func seededTiers(repo *memRepo) tierNames {
	repo.names[freeTierID] = "Free"
	repo.names[proTierID] = "Pro"
	return tierNames{
		"Free": {ID: freeTierID, Name: "Free"},
		"Pro":  {ID: proTierID, Name: "Pro"},
	}
}

func TestCreateAssignsDefaultTier(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, seededTiers(repo), "Free")

	info, err := svc.Create(context.Background(), "Ada@Example.com", "hash", "Ada")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if info.Tier != "Free" {
		t.Fatalf("expected Free tier, got %q", info.Tier)
	}
	if info.Email != "ada@example.com" {
		t.Fatalf("expected lowercased email, got %q", info.Email)
	}

	stored, _ := repo.GetByID(context.Background(), info.ID)
	if stored.TierID == nil || *stored.TierID != freeTierID {
		t.Fatalf("expected tier_id %s stored, got %v", freeTierID, stored.TierID)
	}
}

func TestCreateRejectsTakenEmail(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, seededTiers(repo), "Free")

	if _, err := svc.Create(context.Background(), "ada@example.com", "hash", "Ada"); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := svc.Create(context.Background(), "ADA@example.com", "hash", "Other")
	if !errors.Is(err, core.ErrDuplicateKey) {
		t.Fatalf("expected duplicate key, got %v", err)
	}
}

func TestCreateWithoutDefaultTier(t *testing.T) {
	tests := []struct {
		name        string
		defaultTier string
	}{
		{name: "unset", defaultTier: ""},
		{name: "missing from catalog", defaultTier: "Gold"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := newMemRepo()
			svc := NewService(repo, seededTiers(repo), tc.defaultTier)

			info, err := svc.Create(context.Background(), "a@example.com", "hash", "A")
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			if info.Tier != "" {
				t.Fatalf("expected no tier, got %q", info.Tier)
			}
		})
	}
}

func TestAssignTierBumpsTokenVersion(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, seededTiers(repo), "Free")
	ctx := context.Background()

	info, err := svc.Create(ctx, "a@example.com", "hash", "A")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.AssignTier(ctx, info.ID, proTierID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	after, err := svc.GetByID(ctx, info.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if after.Tier != "Pro" {
		t.Fatalf("expected Pro, got %q", after.Tier)
	}
	if after.TokenVersion != info.TokenVersion+1 {
		t.Fatalf("expected token version bump, got %d", after.TokenVersion)
	}

	if err := svc.AssignTier(ctx, "nobody", proTierID); err == nil {
		t.Fatal("expected error for unknown user")
	}
}

func TestGetMeShowsTierName(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, seededTiers(repo), "Free")
	info, err := svc.Create(context.Background(), "a@example.com", "hash", "A")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	r := chi.NewRouter()
	NewHandler(svc).RegisterRoutes(r, func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := middleware.WithUser(req.Context(), info.ID, RoleUser, info.Tier)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/me", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Data UserResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.Tier != "Free" || body.Data.TierID == nil {
		t.Fatalf("unexpected tier in response: %+v", body.Data)
	}
}

func adminRouter(svc *Service, adminID string) http.Handler {
	r := chi.NewRouter()
	asAdmin := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := middleware.WithUser(req.Context(), adminID, RoleAdmin, "")
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
	pass := func(next http.Handler) http.Handler { return next }
	NewHandler(svc).RegisterAdminRoutes(r, asAdmin, pass)
	return r
}

func seedUsers(t *testing.T) (*Service, map[string]string) {
	t.Helper()
	repo := newMemRepo()
	svc := NewService(repo, seededTiers(repo), "Free")
	ctx := context.Background()

	ids := map[string]string{}
	for _, name := range []string{"free", "pro", "none"} {
		info, err := svc.Create(ctx, name+"@example.com", "hash", name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		ids[name] = info.ID
	}
	if err := svc.AssignTier(ctx, ids["pro"], proTierID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	repo.users[ids["none"]].TierID = nil
	return svc, ids
}

func TestAdminListFiltersByTier(t *testing.T) {
	svc, ids := seedUsers(t)
	router := adminRouter(svc, "admin")

	tests := []struct {
		name  string
		query string
		code  int
		want  string
	}{
		{name: "by tier id", query: "?tier_id=" + proTierID, code: http.StatusOK, want: ids["pro"]},
		{name: "by tier name", query: "?tier=Free", code: http.StatusOK, want: ids["free"]},
		{name: "untiered", query: "?untiered=true&tier_id=" + proTierID, code: http.StatusOK, want: ids["none"]},
		{name: "malformed tier id", query: "?tier_id=pro", code: http.StatusBadRequest},
		{name: "unknown role", query: "?role=owner", code: http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/users"+tc.query, nil))
			if rec.Code != tc.code {
				t.Fatalf("expected %d, got %d: %s", tc.code, rec.Code, rec.Body.String())
			}
			if tc.want == "" {
				return
			}

			var body struct {
				Data []UserResponse `json:"data"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(body.Data) != 1 || body.Data[0].ID != tc.want {
				t.Fatalf("expected only %s, got %+v", tc.want, body.Data)
			}
		})
	}
}

func TestAdminTierAssignmentViews(t *testing.T) {
	svc, ids := seedUsers(t)
	router := adminRouter(svc, "admin")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/users/tiers", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var counts struct {
		Data []TierAssignment `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&counts); err != nil {
		t.Fatalf("decode: %v", err)
	}
	byName := map[string]TierAssignment{}
	for _, c := range counts.Data {
		byName[c.TierName] = c
	}
	if byName["Free"].Users != 1 || byName["Pro"].Users != 1 {
		t.Fatalf("unexpected counts %+v", counts.Data)
	}
	if none, ok := byName[""]; !ok || none.TierID != nil || none.Users != 1 {
		t.Fatalf("expected one untiered user, got %+v", counts.Data)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/users/"+ids["pro"]+"/tier", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var view struct {
		Data UserTierResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.Data.Tier != "Pro" || view.Data.TierID == nil || *view.Data.TierID != proTierID {
		t.Fatalf("unexpected assignment %+v", view.Data)
	}
	if view.Data.TokenVersion != 1 {
		t.Fatalf("expected token version bumped by assignment, got %d", view.Data.TokenVersion)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/users/nobody/tier", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown user, got %d", rec.Code)
	}
}
