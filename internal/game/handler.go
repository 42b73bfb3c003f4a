// AngelaMos | 2026
// handler.go

package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/playvault/internal/core"
	"github.com/carterperez-dev/playvault/internal/middleware"
	"github.com/carterperez-dev/playvault/internal/protocol"
)

const (
	maxMessageBytes   = 4 << 10
	heartbeatInterval = 25 * time.Second
)

type Handler struct {
	service   *Service
	sessions  *Sessions
	validator *validator.Validate
}

func NewHandler(service *Service, sessions *Sessions) *Handler {
	return &Handler{
		service:   service,
		sessions:  sessions,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// RegisterRoutes mounts the catalogue and the session transport. The
// catalogue is readable anonymously, with every game locked. requireGame
// re-validates access for the {slug} route parameter.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, optionalAuth, adminOnly, requireGame func(http.Handler) http.Handler,
) {
	r.Route("/games", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(optionalAuth)

			r.Get("/", h.List)
			r.Get("/{slug}", h.Get)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticator)

			r.Route("/{slug}/sessions", func(r chi.Router) {
				r.Use(requireGame)

				r.Post("/", h.OpenSession)
				r.Post("/{sessionID}/messages", h.Deliver)
				r.Get("/{sessionID}/events", h.Events)
				r.Post("/{sessionID}/pause", h.Pause)
				r.Post("/{sessionID}/resume", h.Resume)
				r.Delete("/{sessionID}", h.Close)
			})

			r.Group(func(r chi.Router) {
				r.Use(adminOnly)

				r.Get("/admin/all", h.ListAll)
				r.Post("/", h.Create)
				r.Put("/{slug}", h.Update)
				r.Delete("/{slug}", h.Deactivate)
			})
		})
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	listings, err := h.service.List(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToGameResponseList(listings))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	l, err := h.service.Get(
		r.Context(),
		middleware.GetUserID(r.Context()),
		chi.URLParam(r, "slug"),
	)
	if err != nil {
		writeGameError(w, err)
		return
	}

	core.OK(w, ToGameResponse(*l))
}

func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	g, err := h.service.GetActive(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeGameError(w, err)
		return
	}

	s, err := h.sessions.Open(middleware.GetUserID(r.Context()), g.Slug)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Created(w, OpenSessionResponse{
		SessionID: s.ID,
		GameSlug:  g.Slug,
		GamePath:  g.GamePath,
		Origin:    h.sessions.Origin(),
		State:     s.Host.State().String(),
	})
}

// Deliver accepts a message posted by the embedded content. The sender's
// origin is the Origin header. The reply is 202 whatever happened to the
// message, so a forger cannot tell a drop from a success.
func (h *Handler) Deliver(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxMessageBytes))
	if err != nil {
		body = nil
	}

	h.sessions.Deliver(r.Context(), s, protocol.Envelope{
		Origin: r.Header.Get("Origin"),
		Data:   body,
	})

	core.Accepted(w, nil)
}

// Events streams host messages to the content as server-sent events until
// the client goes away or the session is swept.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	rc := http.NewResponseController(w)
	//nolint:errcheck // not every writer supports deadlines
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.Closed():
			return
		case <-heartbeat.C:
			if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
				return
			}
		case ev := <-s.Events():
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, ev.Data); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func (h *Handler) Pause(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, h.sessions.Pause)
}

func (h *Handler) Resume(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, h.sessions.Resume)
}

// Close ends a session the player has navigated away from. Its event
// stream returns and the score, if not yet sent, is discarded.
func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	h.sessions.Remove(s.ID)
	core.NoContent(w)
}

func (h *Handler) control(
	w http.ResponseWriter,
	r *http.Request,
	apply func(*Session) error,
) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := apply(s); err != nil {
		if errors.Is(err, protocol.ErrInvalidTransition) {
			core.JSONError(w, core.ConflictError(
				"session is "+s.Host.State().String(),
			))
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, SessionStateResponse{
		SessionID: s.ID,
		State:     s.Host.State().String(),
	})
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	s, err := h.sessions.Get(
		middleware.GetUserID(r.Context()),
		chi.URLParam(r, "slug"),
		chi.URLParam(r, "sessionID"),
	)
	if err != nil {
		core.NotFound(w, "session")
		return nil, false
	}
	return s, true
}

func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	games, err := h.service.ListAll(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	out := make([]AdminGameResponse, 0, len(games))
	for i := range games {
		out = append(out, ToAdminGameResponse(&games[i]))
	}
	core.OK(w, out)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateGameRequest
	if !h.decode(w, r, &req) {
		return
	}

	g, err := h.service.Create(r.Context(), req)
	if err != nil {
		writeGameError(w, err)
		return
	}

	core.Created(w, ToAdminGameResponse(g))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateGameRequest
	if !h.decode(w, r, &req) {
		return
	}

	g, err := h.service.Update(r.Context(), chi.URLParam(r, "slug"), req)
	if err != nil {
		writeGameError(w, err)
		return
	}

	core.OK(w, ToAdminGameResponse(g))
}

func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Deactivate(r.Context(), chi.URLParam(r, "slug")); err != nil {
		writeGameError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		core.BadRequest(w, "invalid request body")
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		core.JSONError(w, core.ValidationError(core.FormatValidationError(err)))
		return false
	}

	return true
}

func writeGameError(w http.ResponseWriter, err error) {
	if core.IsAppError(err) {
		core.JSONError(w, err)
		return
	}

	switch {
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "game")
	case errors.Is(err, core.ErrDuplicateKey):
		core.JSONError(w, core.DuplicateError("game name or slug"))
	case errors.Is(err, core.ErrInvalidInput):
		core.JSONError(w, core.ValidationError(err.Error()))
	default:
		core.InternalServerError(w, err)
	}
}
