// Package httpapi serves the upload API: a PDF and a template in, the
// filled workbook out.
package httpapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/a3tai/pdf-excel-mapper/internal/pipeline"
)

const (
	// OutputFilename is the attachment name of the filled workbook
	OutputFilename = "updated_template.xlsx"

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	HeaderRequestID = "X-Request-ID"
	HeaderFieldMap  = "X-Field-Map"

	partDocument = "document"
	partTemplate = "template"
)

var errTooLarge = errors.New("upload too large")

// Runner is the pipeline as seen by the handlers
type Runner interface {
	Run(ctx context.Context, in pipeline.Input) (*pipeline.Result, error)
	Extract(ctx context.Context, document []byte) (*pipeline.Result, error)
}

// Handler handles upload requests
type Handler struct {
	runner    Runner
	maxUpload int64
	logger    *slog.Logger
}

// New creates a handler. maxUpload bounds each uploaded part.
func New(runner Runner, maxUpload int64, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{
		runner:    runner,
		maxUpload: maxUpload,
		logger:    logger,
	}
}

// Register mounts the handler routes on the given router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/fill", h.HandleFill)
	r.Post("/v1/extract", h.HandleExtract)
	r.Get("/healthz", h.HandleHealth)
}

// HandleFill handles POST /v1/fill: multipart document + template in,
// filled workbook out.
func (h *Handler) HandleFill(w http.ResponseWriter, r *http.Request) {
	parts, err := h.readParts(w, r, partDocument, partTemplate)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.runner.Run(runContext(r), pipeline.Input{
		Document: parts[partDocument],
		Template: parts[partTemplate],
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	fieldMap, err := json.Marshal(res.Fields)
	if err != nil {
		h.writeError(w, r, fmt.Errorf("failed to encode field map: %w", err))
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", OutputFilename))
	w.Header().Set(HeaderRequestID, res.RequestID)
	w.Header().Set(HeaderFieldMap, base64.StdEncoding.EncodeToString(fieldMap))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Workbook)
}

// HandleExtract handles POST /v1/extract: multipart document in, enriched
// fields and summary out.
func (h *Handler) HandleExtract(w http.ResponseWriter, r *http.Request) {
	parts, err := h.readParts(w, r, partDocument)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.runner.Extract(runContext(r), parts[partDocument])
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set(HeaderRequestID, res.RequestID)
	writeJSON(w, http.StatusOK, res)
}

// HandleHealth is the liveness probe
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// runContext carries the HTTP request id into the pipeline run
func runContext(r *http.Request) context.Context {
	return pipeline.ContextWithRequestID(r.Context(), middleware.GetReqID(r.Context()))
}

// readParts reads the named file parts. A missing part maps to the
// pipeline's missing-input errors so the response matches a direct call.
func (h *Handler) readParts(w http.ResponseWriter, r *http.Request, names ...string) (map[string][]byte, error) {
	// all parts plus multipart framing
	r.Body = http.MaxBytesReader(w, r.Body, int64(len(names))*h.maxUpload+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, errTooLarge
		}
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	parts := make(map[string][]byte, len(names))
	for _, name := range names {
		data, err := h.readPart(r, name)
		if err != nil {
			return nil, err
		}
		parts[name] = data
	}
	return parts, nil
}

func (h *Handler) readPart(r *http.Request, name string) ([]byte, error) {
	file, _, err := r.FormFile(name)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: part %s: %v", errBadRequest, name, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUpload+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read part %s: %w", name, err)
	}
	if int64(len(data)) > h.maxUpload {
		return nil, errTooLarge
	}
	return data, nil
}
