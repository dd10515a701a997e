// Package handlers provides HTTP handlers for the asyncload status API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/marmos91/asyncload/pkg/loader"
)

// ContentTypeProblemJSON is the Content-Type of error responses.
const ContentTypeProblemJSON = "application/problem+json"

// maxBodyBytes bounds request bodies. Queue requests are a few hundred bytes.
const maxBodyBytes = 64 << 10

// Problem is an RFC 7807 problem details body.
type Problem struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func writeBody(w http.ResponseWriter, status int, contentType string, body any) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteProblem writes a problem response titled after status.
func WriteProblem(w http.ResponseWriter, status int, detail string) {
	writeBody(w, status, ContentTypeProblemJSON, Problem{
		Type:   "about:blank",
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	})
}

func BadRequest(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusBadRequest, detail)
}

func NotFound(w http.ResponseWriter, detail string) {
	WriteProblem(w, http.StatusNotFound, detail)
}

// WriteJSON writes data as a JSON body.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	writeBody(w, status, "application/json", data)
}

func WriteJSONOK(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, data)
}

// loaderErrorStatus maps loader errors to HTTP statuses. Errors not listed
// are internal.
var loaderErrorStatus = []struct {
	err    error
	status int
}{
	{loader.ErrInvalidName, http.StatusBadRequest},
	{loader.ErrNotSuspended, http.StatusConflict},
	{loader.ErrSuspended, http.StatusConflict},
	{loader.ErrLoaderClosed, http.StatusServiceUnavailable},
	{context.Canceled, http.StatusServiceUnavailable},
	{context.DeadlineExceeded, http.StatusServiceUnavailable},
}

func writeLoaderError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	for _, m := range loaderErrorStatus {
		if errors.Is(err, m.err) {
			status = m.status
			break
		}
	}
	WriteProblem(w, status, err.Error())
}

// decodeJSONBody decodes the request body into v. On failure it writes a
// 400 response and returns false.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		BadRequest(w, "Invalid request body")
		return false
	}
	return true
}
