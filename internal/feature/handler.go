// AngelaMos | 2026
// handler.go

package feature

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

// RegisterRoutes mounts the admin flag endpoints. The gated example route
// under /features/example lives with the access handler.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Group(func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/features", h.List)
		r.Post("/features", h.Create)
		r.Put("/features/{name}", h.Update)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	flags, err := h.service.List(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}
	if flags == nil {
		flags = []Flag{}
	}

	core.OK(w, flags)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateFlagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.JSONError(w, core.ValidationError(core.FormatValidationError(err)))
		return
	}

	f, err := h.service.Create(r.Context(), req)
	if err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			core.JSONError(w, core.DuplicateError("feature flag"))
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.Created(w, f)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateFlagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.JSONError(w, core.ValidationError(core.FormatValidationError(err)))
		return
	}

	f, err := h.service.SetEnabled(r.Context(), chi.URLParam(r, "name"), *req.Enabled)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "feature flag")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, f)
}
