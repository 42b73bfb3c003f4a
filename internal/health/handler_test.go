// AngelaMos | 2026
// handler_test.go

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type pinger struct {
	err error
}

func (p pinger) Ping(ctx context.Context) error {
	return p.err
}

func TestReadiness(t *testing.T) {
	tests := []struct {
		name     string
		deps     []Dependency
		wantCode int
		wantBad  string
	}{
		{
			name: "all healthy",
			deps: []Dependency{
				{Name: "database", Checker: pinger{}},
				{Name: "redis", Checker: pinger{}},
				{Name: "storage", Checker: pinger{}},
			},
			wantCode: http.StatusOK,
		},
		{
			name: "storage down",
			deps: []Dependency{
				{Name: "database", Checker: pinger{}},
				{Name: "storage", Checker: pinger{err: errors.New("bucket missing")}},
			},
			wantCode: http.StatusServiceUnavailable,
			wantBad:  "storage",
		},
		{
			name:     "unconfigured",
			deps:     []Dependency{{Name: "redis"}},
			wantCode: http.StatusServiceUnavailable,
			wantBad:  "redis",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHandler(tc.deps...)
			rec := httptest.NewRecorder()
			h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			if rec.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d", tc.wantCode, rec.Code)
			}

			var body ReadinessResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(body.Checks) != len(tc.deps) {
				t.Fatalf("expected %d checks, got %d", len(tc.deps), len(body.Checks))
			}
			for i, c := range body.Checks {
				if c.Name != tc.deps[i].Name {
					t.Fatalf("expected checks in dependency order, got %s at %d", c.Name, i)
				}
				if (c.Name == tc.wantBad) == c.Healthy {
					t.Fatalf("unexpected health for %s: %+v", c.Name, c)
				}
			}
		})
	}
}

func TestShutdownFailsLiveness(t *testing.T) {
	h := NewHandler()
	h.SetShutdown(true)

	rec := httptest.NewRecorder()
	h.Liveness(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
