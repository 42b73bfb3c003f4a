// AngelaMos | 2026
// service_test.go

package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/carterperez-dev/playvault/internal/access"
	"github.com/carterperez-dev/playvault/internal/core"
	"github.com/carterperez-dev/playvault/internal/middleware"
)

const testMaxBytes = 1 << 20

func pass(next http.Handler) http.Handler { return next }

type memRepo struct {
	mu   sync.Mutex
	docs map[string]*Document
}

func newMemRepo() *memRepo {
	return &memRepo{docs: make(map[string]*Document)}
}

func (m *memRepo) Create(ctx context.Context, d *Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.UploadDate = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	d.UpdatedAt = d.UploadDate
	cp := *d
	m.docs[d.ID] = &cp
	return nil
}

func (m *memRepo) GetByID(ctx context.Context, id string) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *memRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Document
	for _, d := range m.docs {
		if d.UserID == userID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *memRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return core.ErrNotFound
	}
	delete(m.docs, id)
	return nil
}

func (m *memRepo) Transition(ctx context.Context, id string, from, to Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok || d.Status != from || !from.CanTransition(to) {
		return core.ErrInvalidStatus
	}
	d.Status = to
	return nil
}

func (m *memRepo) Complete(ctx context.Context, id, text string, wordCount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok || d.Status != StatusProcessing {
		return core.ErrInvalidStatus
	}
	d.Status = StatusCompleted
	d.ExtractedText = &text
	d.WordCount = wordCount
	return nil
}

func (m *memRepo) Fail(ctx context.Context, id, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok || d.Status != StatusProcessing {
		return core.ErrInvalidStatus
	}
	d.Status = StatusFailed
	d.ErrorMessage = &message
	return nil
}

func (m *memRepo) ResetStale(ctx context.Context, before time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, d := range m.docs {
		if (d.Status == StatusPending || d.Status == StatusProcessing) && d.UpdatedAt.Before(before) {
			d.Status = StatusPending
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *memRepo) CountByStatus(ctx context.Context) (map[Status]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[Status]int)
	for _, d := range m.docs {
		counts[d.Status]++
	}
	return counts, nil
}

type memBlobs struct {
	objects map[string][]byte
	putErr  error
	delErr  error
}

func (b *memBlobs) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if b.putErr != nil {
		return b.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b.objects[key] = data
	return nil
}

func (b *memBlobs) Delete(ctx context.Context, key string) error {
	if b.delErr != nil {
		return b.delErr
	}
	delete(b.objects, key)
	return nil
}

type memQueue struct {
	ids []string
	err error
}

func (q *memQueue) Enqueue(ctx context.Context, id string) error {
	if q.err != nil {
		return q.err
	}
	q.ids = append(q.ids, id)
	return nil
}

type stubChecker struct {
	decision access.Decision
}

func (s stubChecker) Check(ctx context.Context, userID string, c access.Capability) (access.Decision, error) {
	return s.decision, nil
}

type fixture struct {
	svc   *Service
	repo  *memRepo
	blobs *memBlobs
	queue *memQueue
}

func newFixture(granted bool) *fixture {
	f := &fixture{
		repo:  newMemRepo(),
		blobs: &memBlobs{objects: make(map[string][]byte)},
		queue: &memQueue{},
	}
	checker := stubChecker{decision: access.Decision{Granted: true}}
	if !granted {
		checker.decision = access.Decision{Reason: access.ReasonFlagDisabled}
	}
	f.svc = NewService(f.repo, f.blobs, f.queue, checker, testMaxBytes)
	return f
}

func upload(f *fixture, name string, size int) (*Document, error) {
	return f.svc.Upload(context.Background(), "user-1", name, bytes.NewReader(make([]byte, size)), int64(size))
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusCompleted, false},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusFailed, true},
		{StatusProcessing, StatusPending, true},
		{StatusCompleted, StatusProcessing, false},
		{StatusFailed, StatusPending, false},
	}

	for _, tc := range tests {
		t.Run(fmt.Sprintf("%s_to_%s", tc.from, tc.to), func(t *testing.T) {
			if got := tc.from.CanTransition(tc.to); got != tc.ok {
				t.Fatalf("expected %v, got %v", tc.ok, got)
			}
		})
	}
}

func TestUploadValidation(t *testing.T) {
	tests := []struct {
		name    string
		granted bool
		file    string
		size    int
		status  int
	}{
		{name: "not pdf", granted: true, file: "notes.txt", size: 10, status: http.StatusBadRequest},
		{name: "no name", granted: true, file: "", size: 10, status: http.StatusBadRequest},
		{name: "empty", granted: true, file: "a.pdf", size: 0, status: http.StatusBadRequest},
		{name: "too large", granted: true, file: "a.pdf", size: testMaxBytes + 1, status: http.StatusRequestEntityTooLarge},
		{name: "flag disabled", granted: false, file: "a.pdf", size: 10, status: http.StatusForbidden},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(tc.granted)

			_, err := upload(f, tc.file, tc.size)
			appErr, ok := core.AsAppError(err)
			if !ok {
				t.Fatalf("expected app error, got %v", err)
			}
			if appErr.StatusCode != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, appErr.StatusCode)
			}
			if len(f.repo.docs) != 0 || len(f.queue.ids) != 0 {
				t.Fatal("expected nothing stored or queued")
			}
		})
	}
}

func TestUploadStoresAndQueues(t *testing.T) {
	f := newFixture(true)

	doc, err := upload(f, "Report.PDF", 42)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if doc.Status != StatusPending {
		t.Fatalf("expected pending, got %s", doc.Status)
	}
	if doc.ObjectKey != "user-1/"+doc.ID+".pdf" {
		t.Fatalf("unexpected object key %q", doc.ObjectKey)
	}
	if len(f.blobs.objects[doc.ObjectKey]) != 42 {
		t.Fatal("expected blob stored")
	}
	if len(f.queue.ids) != 1 || f.queue.ids[0] != doc.ID {
		t.Fatalf("expected document queued, got %v", f.queue.ids)
	}
}

func TestUploadBlobFailureRemovesRecord(t *testing.T) {
	f := newFixture(true)
	f.blobs.putErr = errors.New("bucket gone")

	if _, err := upload(f, "a.pdf", 10); err == nil {
		t.Fatal("expected error")
	}
	if len(f.repo.docs) != 0 {
		t.Fatalf("expected record removed, got %d", len(f.repo.docs))
	}
	if len(f.queue.ids) != 0 {
		t.Fatal("expected nothing queued")
	}
}

func TestUploadQueueFailureKeepsPending(t *testing.T) {
	f := newFixture(true)
	f.queue.err = errors.New("redis down")

	doc, err := upload(f, "a.pdf", 10)
	if err != nil {
		t.Fatalf("expected upload to succeed, got %v", err)
	}
	if stored := f.repo.docs[doc.ID]; stored == nil || stored.Status != StatusPending {
		t.Fatal("expected pending record kept for requeue")
	}
}

func TestOwnerOnly(t *testing.T) {
	f := newFixture(true)
	doc, _ := upload(f, "a.pdf", 10)

	if _, err := f.svc.Get(context.Background(), "user-2", doc.ID); !errors.Is(err, core.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := f.svc.Delete(context.Background(), "user-2", doc.ID); !errors.Is(err, core.ErrForbidden) {
		t.Fatalf("expected forbidden delete, got %v", err)
	}
	if _, err := f.svc.Get(context.Background(), "user-1", "not-a-uuid"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found for malformed id, got %v", err)
	}
	if _, err := f.svc.Get(context.Background(), "user-1", uuid.NewString()); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteIgnoresBlobErrors(t *testing.T) {
	f := newFixture(true)
	doc, _ := upload(f, "a.pdf", 10)
	f.blobs.delErr = errors.New("no such key")

	if err := f.svc.Delete(context.Background(), "user-1", doc.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(f.repo.docs) != 0 {
		t.Fatal("expected record deleted")
	}
}

func TestRequeueStale(t *testing.T) {
	f := newFixture(true)
	doc, _ := upload(f, "a.pdf", 10)
	f.queue.ids = nil
	_ = f.repo.Transition(context.Background(), doc.ID, StatusPending, StatusProcessing)

	f.svc.now = func() time.Time { return time.Date(2026, 1, 1, 0, 30, 0, 0, time.UTC) }

	n, err := f.svc.RequeueStale(context.Background(), 15*time.Minute)
	if err != nil {
		t.Fatalf("requeue: %v", err)
	}
	if n != 1 || len(f.queue.ids) != 1 || f.queue.ids[0] != doc.ID {
		t.Fatalf("expected one document requeued, got %d %v", n, f.queue.ids)
	}
	if f.repo.docs[doc.ID].Status != StatusPending {
		t.Fatalf("expected pending, got %s", f.repo.docs[doc.ID].Status)
	}
}

func multipartBody(t *testing.T, field, name string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, name)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestUploadHandler(t *testing.T) {
	tests := []struct {
		name   string
		field  string
		file   string
		size   int
		status int
	}{
		{name: "accepted", field: "file", file: "doc.pdf", size: 100, status: http.StatusAccepted},
		{name: "wrong field", field: "upload", file: "doc.pdf", size: 100, status: http.StatusBadRequest},
		{name: "too large", field: "file", file: "doc.pdf", size: testMaxBytes + 2<<20, status: http.StatusRequestEntityTooLarge},
		{name: "wrong type", field: "file", file: "doc.docx", size: 100, status: http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(true)
			r := chi.NewRouter()
			NewHandler(f.svc, testMaxBytes).RegisterRoutes(r, pass, pass)

			body, contentType := multipartBody(t, tc.field, tc.file, make([]byte, tc.size))
			req := httptest.NewRequest(http.MethodPost, "/documents/upload", body)
			req.Header.Set("Content-Type", contentType)
			req = req.WithContext(middleware.WithUser(req.Context(), "user-1", "user", "Free"))

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestGetHandlerForbidsOtherUsers(t *testing.T) {
	f := newFixture(true)
	doc, _ := upload(f, "a.pdf", 10)

	r := chi.NewRouter()
	NewHandler(f.svc, testMaxBytes).RegisterRoutes(r, pass, pass)

	tests := []struct {
		user   string
		status int
	}{
		{user: "user-1", status: http.StatusOK},
		{user: "user-2", status: http.StatusForbidden},
	}

	for _, tc := range tests {
		t.Run(tc.user, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/documents/"+doc.ID, nil)
			req = req.WithContext(middleware.WithUser(req.Context(), tc.user, "user", "Free"))
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
		})
	}
}

func TestUploadLimitOnlyGuardsUploads(t *testing.T) {
	f := newFixture(true)
	limited := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})
	}

	r := chi.NewRouter()
	NewHandler(f.svc, testMaxBytes).RegisterRoutes(r, pass, limited)

	body, contentType := multipartBody(t, "file", "doc.pdf", make([]byte, 10))
	req := httptest.NewRequest(http.MethodPost, "/documents/upload", body)
	req.Header.Set("Content-Type", contentType)
	req = req.WithContext(middleware.WithUser(req.Context(), "user-1", "user", "Free"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected upload to be limited, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/documents", nil)
	req = req.WithContext(middleware.WithUser(req.Context(), "user-1", "user", "Free"))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected listing to bypass the upload limit, got %d", rec.Code)
	}
}
