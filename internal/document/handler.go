// AngelaMos | 2026
// handler.go

package document

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/playvault/internal/core"
	"github.com/carterperez-dev/playvault/internal/middleware"
)

const (
	formField       = "file"
	multipartMemory = 8 << 20
	multipartSlack  = 1 << 20
	maxListLimit    = 100
)

type Handler struct {
	service  *Service
	maxBytes int64
}

func NewHandler(service *Service, maxBytes int64) *Handler {
	return &Handler{service: service, maxBytes: maxBytes}
}

// RegisterRoutes mounts the document endpoints. uploadLimit runs after the
// authenticator and applies to uploads only.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, uploadLimit func(http.Handler) http.Handler,
) {
	r.Route("/documents", func(r chi.Router) {
		r.Use(authenticator)

		r.With(uploadLimit).Post("/upload", h.Upload)
		r.Get("/", h.List)
		r.Get("/{documentID}", h.Get)
		r.Delete("/{documentID}", h.Delete)
	})
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartSlack)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			core.JSONError(w, core.TooLargeError("file too large"))
			return
		}
		core.BadRequest(w, "expected multipart form with a file field")
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck // temp files only

	file, header, err := r.FormFile(formField)
	if err != nil {
		core.BadRequest(w, "expected multipart form with a file field")
		return
	}
	defer file.Close() //nolint:errcheck // read-only handle

	doc, err := h.service.Upload(
		r.Context(),
		middleware.GetUserID(r.Context()),
		header.Filename,
		file,
		header.Size,
	)
	if err != nil {
		writeDocumentError(w, err)
		return
	}

	core.Accepted(w, UploadResponse{
		DocumentID: doc.ID,
		Status:     doc.Status,
		Message:    "document uploaded and queued for processing",
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit := min(max(parseIntQuery(r, "limit", maxListLimit), 1), maxListLimit)
	offset := max(parseIntQuery(r, "offset", 0), 0)

	docs, err := h.service.List(r.Context(), middleware.GetUserID(r.Context()), limit, offset)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToListResponse(docs))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.Get(
		r.Context(),
		middleware.GetUserID(r.Context()),
		chi.URLParam(r, "documentID"),
	)
	if err != nil {
		writeDocumentError(w, err)
		return
	}

	core.OK(w, ToDetailResponse(doc))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.service.Delete(
		r.Context(),
		middleware.GetUserID(r.Context()),
		chi.URLParam(r, "documentID"),
	)
	if err != nil {
		writeDocumentError(w, err)
		return
	}

	core.NoContent(w)
}

func writeDocumentError(w http.ResponseWriter, err error) {
	if core.IsAppError(err) {
		core.JSONError(w, err)
		return
	}

	if errors.Is(err, core.ErrNotFound) {
		core.NotFound(w, "document")
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
