// AngelaMos | 2026
// handler.go

package access

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/playvault/internal/core"
	"github.com/carterperez-dev/playvault/internal/middleware"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Group(func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/access/{capability}", h.Check)

		r.With(h.service.Require("advanced_reports")).
			Get("/features/example/advanced-feature", h.AdvancedFeature)
	})
}

type CheckResponse struct {
	Capability string     `json:"capability"`
	Decision   Decision   `json:"decision"`
	Affordance Affordance `json:"affordance"`
	Ceiling    *Ceiling   `json:"ceiling,omitempty"`
}

// Check reports a decision without enforcing it, so clients can render
// locked states. Enforcement still happens on the gated endpoints. An
// optional consumed query parameter is compared against numeric ceilings.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	c := Capability(chi.URLParam(r, "capability"))

	snap, err := h.service.Snapshot(r.Context(), userID)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	d := snap.Resolve(c)
	if raw := r.URL.Query().Get("consumed"); raw != "" {
		consumed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || consumed < 0 {
			core.BadRequest(w, "consumed must be a non-negative integer")
			return
		}
		d = ResolveWithUsage(snap.Tier, c, snap.Flags, consumed)
	}

	resp := CheckResponse{
		Capability: string(c),
		Decision:   d,
		Affordance: AffordanceFor(d, ""),
	}
	if ceiling, ok := ResolveCeiling(snap.Tier, c); ok {
		resp.Ceiling = &ceiling
	}

	core.OK(w, resp)
}

func (h *Handler) AdvancedFeature(w http.ResponseWriter, r *http.Request) {
	core.OK(w, map[string]any{
		"feature": "advanced_reports",
		"message": "advanced reports are available on your plan",
	})
}
