package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/marmos91/asyncload/pkg/loader"
)

// fakeLoader implements LoaderService for handler tests.
type fakeLoader struct {
	status    loader.Status
	queued    []string
	infos     map[string]loader.PackageInfo
	pending   map[int32]bool
	queueErr  error
	resumeErr error
	cancelErr error

	lastQueued QueueRequest
	suspends   int
	cancels    int
}

func (f *fakeLoader) Status() loader.Status           { return f.status }
func (f *fakeLoader) QueuedPackages() []string        { return f.queued }
func (f *fakeLoader) History() []loader.HistoryEntry  { return nil }
func (f *fakeLoader) ContainsRequestID(id int32) bool { return f.pending[id] }
func (f *fakeLoader) SuspendLoading()                 { f.suspends++; f.status.Suspended = true }
func (f *fakeLoader) ResumeLoading() error            { return f.resumeErr }
func (f *fakeLoader) CancelAsyncLoading(context.Context) error {
	f.cancels++
	return f.cancelErr
}

func (f *fakeLoader) PackageInfo(name string) (loader.PackageInfo, bool) {
	info, ok := f.infos[name]
	return info, ok
}

func (f *fakeLoader) QueuePackage(name string, priority int32, cb loader.Callback) (int32, error) {
	if f.queueErr != nil {
		return 0, f.queueErr
	}
	f.lastQueued = QueueRequest{Name: name, Priority: priority}
	return 7, nil
}

type fakeStore struct{ err error }

func (s fakeStore) HealthCheck(context.Context) error { return s.err }

// route serves a single request through a chi router so URL params resolve.
func route(method, pattern string, h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Method(method, pattern, h)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeProblem(t *testing.T, w *httptest.ResponseRecorder) Problem {
	t.Helper()
	if ct := w.Header().Get("Content-Type"); ct != ContentTypeProblemJSON {
		t.Fatalf("Expected problem content type, got %q", ct)
	}
	var p Problem
	if err := json.NewDecoder(w.Body).Decode(&p); err != nil {
		t.Fatalf("Failed to decode problem: %v", err)
	}
	return p
}

func TestLiveness_ReturnsOK(t *testing.T) {
	handler := NewHealthHandler(nil, "", nil)
	w := httptest.NewRecorder()
	handler.Liveness(w, httptest.NewRequest("GET", "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp Response
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("Expected status 'healthy', got '%s'", resp.Status)
	}
	data, ok := resp.Data.(map[string]any)
	if !ok {
		t.Fatalf("Expected Data to be a map, got %T", resp.Data)
	}
	if data["service"] != "asyncload" {
		t.Errorf("Expected service 'asyncload', got %v", data["service"])
	}
	id, _ := data["instance_id"].(string)
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("Expected instance_id to be a UUID, got %q", id)
	}
}

func TestReadiness(t *testing.T) {
	tests := []struct {
		name   string
		store  HealthChecker
		loader StatusReporter
		want   int
	}{
		{"not initialized", nil, nil, http.StatusServiceUnavailable},
		{"healthy", fakeStore{}, &fakeLoader{}, http.StatusOK},
		{"store unhealthy", fakeStore{err: errors.New("disk gone")}, &fakeLoader{}, http.StatusServiceUnavailable},
		{"loader stopped", fakeStore{}, &fakeLoader{status: loader.Status{Closed: true}}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHealthHandler(tt.store, "memory", tt.loader)
			w := httptest.NewRecorder()
			handler.Readiness(w, httptest.NewRequest("GET", "/health/ready", nil))

			if w.Code != tt.want {
				t.Fatalf("Expected status %d, got %d", tt.want, w.Code)
			}
			var resp Response
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			wantStatus := "healthy"
			if tt.want != http.StatusOK {
				wantStatus = "unhealthy"
			}
			if resp.Status != wantStatus {
				t.Errorf("Expected status %q, got %q", wantStatus, resp.Status)
			}
		})
	}
}

func TestLoaderHandler_Status(t *testing.T) {
	fl := &fakeLoader{status: loader.Status{Strategy: "worker", Queued: 2}, queued: []string{"/A", "/B"}}
	w := httptest.NewRecorder()
	NewLoaderHandler(fl).Status(w, httptest.NewRequest("GET", "/api/v1/loader/status", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	var resp StatusResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Strategy != "worker" || resp.Queued != 2 {
		t.Errorf("Unexpected status: %+v", resp.Status)
	}
	if len(resp.QueuedPackages) != 2 || resp.QueuedPackages[0] != "/A" {
		t.Errorf("Unexpected queued packages: %v", resp.QueuedPackages)
	}
	if resp.History == nil {
		t.Error("Expected empty history, got nil")
	}
}

func TestLoaderHandler_Package(t *testing.T) {
	fl := &fakeLoader{infos: map[string]loader.PackageInfo{
		"/Game/Hero": {Name: "/Game/Hero", State: "loading", Percent: 42},
	}}
	h := NewLoaderHandler(fl)

	w := route("GET", "/packages/*", h.Package, httptest.NewRequest("GET", "/packages/Game/Hero", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	var info loader.PackageInfo
	if err := json.NewDecoder(w.Body).Decode(&info); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if info.State != "loading" || info.Percent != 42 {
		t.Errorf("Unexpected info: %+v", info)
	}

	w = route("GET", "/packages/*", h.Package, httptest.NewRequest("GET", "/packages/Game/Villain", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected status %d, got %d", http.StatusNotFound, w.Code)
	}
	if p := decodeProblem(t, w); p.Status != http.StatusNotFound {
		t.Errorf("Expected problem status 404, got %d", p.Status)
	}
}

func TestLoaderHandler_Queue(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		queueErr error
		want     int
	}{
		{"accepted", `{"name":"Game/Hero","priority":5}`, nil, http.StatusAccepted},
		{"invalid body", `{`, nil, http.StatusBadRequest},
		{"missing name", `{"priority":5}`, nil, http.StatusBadRequest},
		{"loader closed", `{"name":"/A"}`, loader.ErrLoaderClosed, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fl := &fakeLoader{queueErr: tt.queueErr}
			w := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/api/v1/loader/packages", bytes.NewBufferString(tt.body))
			NewLoaderHandler(fl).Queue(w, req)

			if w.Code != tt.want {
				t.Fatalf("Expected status %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
			if tt.want != http.StatusAccepted {
				return
			}
			var resp QueueResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if resp.RequestID != 7 || resp.Name != "/Game/Hero" || resp.Priority != 5 {
				t.Errorf("Unexpected response: %+v", resp)
			}
			if fl.lastQueued.Name != "/Game/Hero" {
				t.Errorf("Expected normalized name, got %q", fl.lastQueued.Name)
			}
		})
	}
}

func TestLoaderHandler_Request(t *testing.T) {
	h := NewLoaderHandler(&fakeLoader{pending: map[int32]bool{3: true}})

	w := route("GET", "/requests/{id}", h.Request, httptest.NewRequest("GET", "/requests/3", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	var resp RequestResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !resp.Pending || resp.RequestID != 3 {
		t.Errorf("Unexpected response: %+v", resp)
	}

	w = route("GET", "/requests/{id}", h.Request, httptest.NewRequest("GET", "/requests/abc", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestLoaderHandler_Control(t *testing.T) {
	fl := &fakeLoader{}
	h := NewLoaderHandler(fl)

	w := httptest.NewRecorder()
	h.Suspend(w, httptest.NewRequest("POST", "/api/v1/loader/suspend", nil))
	if w.Code != http.StatusOK || fl.suspends != 1 {
		t.Fatalf("Suspend: status %d, suspends %d", w.Code, fl.suspends)
	}

	fl.resumeErr = loader.ErrNotSuspended
	w = httptest.NewRecorder()
	h.Resume(w, httptest.NewRequest("POST", "/api/v1/loader/resume", nil))
	if w.Code != http.StatusConflict {
		t.Fatalf("Resume: expected status %d, got %d", http.StatusConflict, w.Code)
	}

	fl.resumeErr = nil
	w = httptest.NewRecorder()
	h.Resume(w, httptest.NewRequest("POST", "/api/v1/loader/resume", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Resume: expected status %d, got %d", http.StatusOK, w.Code)
	}

	w = httptest.NewRecorder()
	h.Cancel(w, httptest.NewRequest("POST", "/api/v1/loader/cancel", nil))
	if w.Code != http.StatusOK || fl.cancels != 1 {
		t.Fatalf("Cancel: status %d, cancels %d", w.Code, fl.cancels)
	}

	fl.cancelErr = context.DeadlineExceeded
	w = httptest.NewRecorder()
	h.Cancel(w, httptest.NewRequest("POST", "/api/v1/loader/cancel", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("Cancel: expected status %d, got %d", http.StatusServiceUnavailable, w.Code)
	}
}

func TestWriteLoaderError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{loader.ErrInvalidName, http.StatusBadRequest},
		{fmt.Errorf("flush: %w", loader.ErrSuspended), http.StatusConflict},
		{context.DeadlineExceeded, http.StatusServiceUnavailable},
		{errors.New("linker exploded"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		writeLoaderError(w, tt.err)

		p := decodeProblem(t, w)
		if w.Code != tt.want || p.Status != tt.want {
			t.Errorf("%v: expected status %d, got %d (problem %d)", tt.err, tt.want, w.Code, p.Status)
		}
		if p.Title != http.StatusText(tt.want) {
			t.Errorf("%v: unexpected title %q", tt.err, p.Title)
		}
	}
}
