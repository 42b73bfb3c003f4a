// AngelaMos | 2026
// handler.go

package score

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/playvault/internal/core"
	"github.com/carterperez-dev/playvault/internal/middleware"
)

const maxPageSize = 100

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

func (h *Handler) RegisterRoutes(r chi.Router, authenticator func(http.Handler) http.Handler) {
	r.Route("/scores", func(r chi.Router) {
		r.Use(authenticator)

		r.Post("/", h.Submit)
		r.Get("/my", h.Mine)
		r.Get("/stats", h.Stats)
		r.Get("/game/{slug}", h.Leaderboard)
	})
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.JSONError(w, core.ValidationError(core.FormatValidationError(err)))
		return
	}

	sc, err := h.service.Submit(
		r.Context(),
		middleware.GetUserID(r.Context()),
		req.GameSlug,
		*req.Score,
		req.Origin,
	)
	if err != nil {
		writeScoreError(w, err)
		return
	}

	core.Created(w, ToScoreResponse(sc))
}

func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	page := max(parseIntQuery(r, "page", 1), 1)
	pageSize := min(max(parseIntQuery(r, "page_size", 20), 1), maxPageSize)

	scores, total, err := h.service.Mine(
		r.Context(),
		middleware.GetUserID(r.Context()),
		page,
		pageSize,
	)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(w, ToScoreResponseList(scores), page, pageSize, total)
}

func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.Leaderboard(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeScoreError(w, err)
		return
	}

	out := make([]LeaderboardResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, LeaderboardResponse(e))
	}
	core.OK(w, out)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.Stats(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToStatsResponse(st))
}

func writeScoreError(w http.ResponseWriter, err error) {
	if core.IsAppError(err) {
		core.JSONError(w, err)
		return
	}

	if errors.Is(err, core.ErrNotFound) {
		core.NotFound(w, "game")
		return
	}
	core.InternalServerError(w, err)
}

func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}

	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return parsed
}
