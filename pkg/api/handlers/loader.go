package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/asyncload/internal/logger"
	"github.com/marmos91/asyncload/pkg/loader"
)

// LoaderService is the part of *loader.Loader the API drives.
type LoaderService interface {
	StatusReporter
	QueuedPackages() []string
	History() []loader.HistoryEntry
	PackageInfo(name string) (loader.PackageInfo, bool)
	QueuePackage(name string, priority int32, cb loader.Callback) (int32, error)
	ContainsRequestID(id int32) bool
	SuspendLoading()
	ResumeLoading() error
	CancelAsyncLoading(ctx context.Context) error
}

// LoaderHandler handles /api/v1/loader endpoints.
type LoaderHandler struct {
	loader LoaderService
}

// NewLoaderHandler creates a new loader handler.
func NewLoaderHandler(ld LoaderService) *LoaderHandler {
	return &LoaderHandler{loader: ld}
}

// StatusResponse is returned by GET /api/v1/loader/status.
type StatusResponse struct {
	loader.Status
	QueuedPackages []string              `json:"queued_packages"`
	History        []loader.HistoryEntry `json:"history"`
}

// QueueRequest is the body of POST /api/v1/loader/packages.
type QueueRequest struct {
	Name     string `json:"name"`
	Priority int32  `json:"priority"`
}

// QueueResponse is returned when a package is queued.
type QueueResponse struct {
	RequestID int32  `json:"request_id"`
	Name      string `json:"name"`
	Priority  int32  `json:"priority"`
}

// Status handles GET /api/v1/loader/status.
func (h *LoaderHandler) Status(w http.ResponseWriter, r *http.Request) {
	queued := h.loader.QueuedPackages()
	if queued == nil {
		queued = []string{}
	}
	history := h.loader.History()
	if history == nil {
		history = []loader.HistoryEntry{}
	}
	WriteJSONOK(w, StatusResponse{
		Status:         h.loader.Status(),
		QueuedPackages: queued,
		History:        history,
	})
}

// Package handles GET /api/v1/loader/packages/*.
//
// The wildcard holds the package name with or without its leading slash.
func (h *LoaderHandler) Package(w http.ResponseWriter, r *http.Request) {
	name := packageName(chi.URLParam(r, "*"))
	if name == "" {
		BadRequest(w, "Package name is required")
		return
	}

	info, ok := h.loader.PackageInfo(name)
	if !ok {
		NotFound(w, "Package not known to the loader: "+name)
		return
	}
	WriteJSONOK(w, info)
}

// Queue handles POST /api/v1/loader/packages.
//
// The package is queued and the request id returned immediately with
// 202 Accepted. The completion is logged.
func (h *LoaderHandler) Queue(w http.ResponseWriter, r *http.Request) {
	var req QueueRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	req.Name = packageName(req.Name)
	if req.Name == "" {
		BadRequest(w, "Package name is required")
		return
	}

	id, err := h.loader.QueuePackage(req.Name, req.Priority, func(name string, result loader.Result, err error) {
		if err != nil {
			logger.Warn("Queued package finished", logger.KeyPackage, name, logger.KeyResult, result.String(), logger.KeyError, err)
			return
		}
		logger.Info("Queued package finished", logger.KeyPackage, name, logger.KeyResult, result.String())
	})
	if err != nil {
		writeLoaderError(w, err)
		return
	}

	logger.Debug("Package queued via API", logger.KeyPackage, req.Name, logger.KeyPriority, req.Priority, logger.KeyRequestID, id)
	WriteJSON(w, http.StatusAccepted, QueueResponse{RequestID: id, Name: req.Name, Priority: req.Priority})
}

// RequestResponse is returned by GET /api/v1/loader/requests/{id}.
type RequestResponse struct {
	RequestID int32 `json:"request_id"`
	Pending   bool  `json:"pending"`
}

// Request handles GET /api/v1/loader/requests/{id}.
func (h *LoaderHandler) Request(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 32)
	if err != nil || id <= 0 {
		BadRequest(w, "Invalid request id")
		return
	}
	WriteJSONOK(w, RequestResponse{
		RequestID: int32(id),
		Pending:   h.loader.ContainsRequestID(int32(id)),
	})
}

// Suspend handles POST /api/v1/loader/suspend.
func (h *LoaderHandler) Suspend(w http.ResponseWriter, r *http.Request) {
	h.loader.SuspendLoading()
	WriteJSONOK(w, h.loader.Status())
}

// Resume handles POST /api/v1/loader/resume.
func (h *LoaderHandler) Resume(w http.ResponseWriter, r *http.Request) {
	if err := h.loader.ResumeLoading(); err != nil {
		writeLoaderError(w, err)
		return
	}
	WriteJSONOK(w, h.loader.Status())
}

// Cancel handles POST /api/v1/loader/cancel.
func (h *LoaderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.loader.CancelAsyncLoading(r.Context()); err != nil {
		writeLoaderError(w, err)
		return
	}
	WriteJSONOK(w, h.loader.Status())
}

// packageName normalizes a name taken from a URL or a request body.
func packageName(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.Trim(raw, "/") == "" {
		return ""
	}
	return "/" + strings.TrimPrefix(raw, "/")
}
