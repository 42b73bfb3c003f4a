// AngelaMos | 2026
// handler.go

package tier

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/playvault/internal/core"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/tiers", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{tierID}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			r.Use(adminOnly)

			r.Post("/", h.Create)
			r.Put("/{tierID}", h.Update)
			r.Delete("/{tierID}", h.Delete)
			r.Post("/users/{userID}/tier", h.AssignToUser)
		})
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	tiers, err := h.service.List(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToTierResponseList(tiers))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.Get(r.Context(), chi.URLParam(r, "tierID"))
	if err != nil {
		writeTierError(w, err)
		return
	}

	core.OK(w, ToTierResponse(t))
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTierRequest
	if !h.decode(w, r, &req) {
		return
	}

	t, err := h.service.Create(r.Context(), req)
	if err != nil {
		writeTierError(w, err)
		return
	}

	core.Created(w, ToTierResponse(t))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateTierRequest
	if !h.decode(w, r, &req) {
		return
	}

	t, err := h.service.Update(r.Context(), chi.URLParam(r, "tierID"), req)
	if err != nil {
		writeTierError(w, err)
		return
	}

	core.OK(w, ToTierResponse(t))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "tierID")); err != nil {
		writeTierError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) AssignToUser(w http.ResponseWriter, r *http.Request) {
	var req AssignTierRequest
	if !h.decode(w, r, &req) {
		return
	}

	userID := chi.URLParam(r, "userID")

	t, err := h.service.AssignToUser(r.Context(), userID, req.TierID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "user or tier")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, map[string]any{
		"user_id": userID,
		"tier":    ToTierResponse(t),
	})
}

// decode maps malformed feature maps to 422 and every other body problem
// to 400.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var fmErr *FeatureMapError
		if errors.As(err, &fmErr) {
			core.JSONError(w, core.ValidationError(fmErr.Error()))
			return false
		}
		core.BadRequest(w, "invalid request body")
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		core.JSONError(w, core.ValidationError(core.FormatValidationError(err)))
		return false
	}

	return true
}

func writeTierError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "tier")
	case errors.Is(err, core.ErrDuplicateKey):
		core.JSONError(w, core.DuplicateError("tier name"))
	case errors.Is(err, core.ErrConflict):
		core.JSONError(w, core.ConflictError("tier is still assigned to users or games"))
	case errors.Is(err, core.ErrInvalidInput):
		core.JSONError(w, core.ValidationError(err.Error()))
	default:
		core.InternalServerError(w, err)
	}
}
