// AngelaMos | 2026
// middleware.go

package access

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/playvault/internal/core"
	"github.com/carterperez-dev/playvault/internal/middleware"
)

// Require rejects the request with 403 unless the authenticated user is
// granted c. It must run after the authenticator.
func (s *Service) Require(c Capability) func(http.Handler) http.Handler {
	return s.requireFunc(func(*http.Request) Capability { return c })
}

// RequireURLParam gates on the capability named by a route parameter, such
// as a game slug.
func (s *Service) RequireURLParam(param string) func(http.Handler) http.Handler {
	return s.requireFunc(func(r *http.Request) Capability {
		return Capability(chi.URLParam(r, param))
	})
}

func (s *Service) requireFunc(
	capability func(*http.Request) Capability,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := middleware.GetUserID(r.Context())
			if userID == "" {
				core.Unauthorized(w, "")
				return
			}

			d, err := s.Check(r.Context(), userID, capability(r))
			if err != nil {
				core.InternalServerError(w, err)
				return
			}

			if !d.Granted {
				core.JSONError(w, d.Err())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
