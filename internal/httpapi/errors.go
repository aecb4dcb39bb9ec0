package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/a3tai/pdf-excel-mapper/internal/pipeline"
)

var errBadRequest = errors.New("malformed upload")

// ErrorResponse is the JSON error envelope
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	Stage            string `json:"stage,omitempty"`
	RequestID        string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// headers are sent; an encoding error cannot change the status
	_ = json.NewEncoder(w).Encode(response)
}

// errorStatus translates pipeline and upload errors to HTTP status and code
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, pipeline.ErrMissingDocument), errors.Is(err, pipeline.ErrMissingTemplate):
		return http.StatusBadRequest, "missing_part"
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, errTooLarge):
		return http.StatusRequestEntityTooLarge, "too_large"
	}

	switch pipeline.StageOf(err) {
	case pipeline.StagePDF:
		return http.StatusUnprocessableEntity, "unreadable_document"
	case pipeline.StageTemplate:
		return http.StatusUnprocessableEntity, "unreadable_template"
	}
	return http.StatusInternalServerError, "internal_error"
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)
	requestID := middleware.GetReqID(r.Context())

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "request_id", requestID, "path", r.URL.Path, "error", err)
		writeJSON(w, status, ErrorResponse{Error: code, RequestID: requestID})
		return
	}

	h.logger.Warn("request rejected", "request_id", requestID, "path", r.URL.Path, "status", status, "error", err)
	writeJSON(w, status, ErrorResponse{
		Error:            code,
		ErrorDescription: err.Error(),
		Stage:            pipeline.StageOf(err),
		RequestID:        requestID,
	})
}
