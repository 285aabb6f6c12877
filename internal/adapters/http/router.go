package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/sme-health/internal/config"
	"github.com/kirillkom/sme-health/internal/core/domain"
	"github.com/kirillkom/sme-health/internal/core/ports"
	"github.com/kirillkom/sme-health/internal/observability/metrics"
)

const (
	serviceName      = "api"
	multipartMemory  = 8 << 20
	defaultMaxUpload = 25
)

type Router struct {
	cfg       config.Config
	submitter ports.AssessmentSubmitter
	reader    ports.AssessmentReader
	metrics   *metrics.HTTPServerMetrics
}

// NewRouter builds the API. m may be nil, in which case /metrics is not
// served and nothing is recorded.
func NewRouter(
	cfg config.Config,
	submitter ports.AssessmentSubmitter,
	reader ports.AssessmentReader,
	m *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		cfg:       cfg,
		submitter: submitter,
		reader:    reader,
		metrics:   m,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("GET /openapi.yaml", rt.openAPISpec)
	mux.HandleFunc("POST /v1/assessments", rt.createAssessment)
	mux.HandleFunc("GET /v1/assessments/{id}", rt.getAssessment)
	mux.HandleFunc("GET /v1/assessments/{id}/report", rt.getReport)
	mux.HandleFunc("GET /v1/assessments/{id}/ai", rt.getNarrative)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	handler := openAPIValidationMiddleware(mux)
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, rt.cfg.APIBackpressureWait)
	handler = rateLimitMiddleware(rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst, rt.onRateLimited, handler)
	handler = corsMiddleware(rt.cfg.CORSOrigins, handler)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) createAssessment(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	maxMB := rt.cfg.MaxUploadMB
	if maxMB <= 0 {
		maxMB = defaultMaxUpload
	}
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxMB)<<20)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		rt.recordAssessment(start, err)
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeJSONError(w, r, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d MB", maxMB))
			return
		}
		writeJSONError(w, r, http.StatusBadRequest, "multipart/form-data body is required")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	req, closeFiles, err := rt.assessmentRequestFromForm(r.MultipartForm)
	defer closeFiles()
	if err != nil {
		rt.recordAssessment(start, err)
		writeJSONError(w, r, mapErrorToHTTPStatus(err), err.Error())
		return
	}

	rec, err := rt.submitter.Submit(r.Context(), req)
	rt.recordAssessment(start, err)
	if err != nil {
		rt.writeDomainError(w, r, "submit assessment", err)
		return
	}

	status := http.StatusOK
	if rec.Status == domain.StatusQueued {
		status = http.StatusAccepted
	}
	writeJSON(w, status, rec)
}

func (rt *Router) assessmentRequestFromForm(form *multipart.Form) (domain.AssessmentRequest, func(), error) {
	req := domain.AssessmentRequest{
		Company:  formValue(form, "company"),
		Industry: formValue(form, "industry"),
		Lang:     formValue(form, "lang"),
		Options: domain.AssessmentOptions{
			MapWithAI: formBool(form, "map_ai", rt.cfg.MapWithAI),
			Narrative: formBool(form, "ai", rt.cfg.NarrativeEnabled),
		},
	}
	if req.Lang == "" {
		req.Lang = rt.cfg.NarrativeLang
	}

	var opened []io.Closer
	closeFiles := func() {
		for _, c := range opened {
			_ = c.Close()
		}
	}

	for _, kind := range domain.DatasetKinds {
		headers := form.File[string(kind)]
		if len(headers) == 0 {
			continue
		}
		if len(headers) > 1 {
			return req, closeFiles, domain.WrapError(domain.ErrInvalidInput, "parse upload", fmt.Errorf("only one %s file is allowed", kind))
		}
		file, err := headers[0].Open()
		if err != nil {
			return req, closeFiles, domain.WrapError(domain.ErrInvalidInput, "parse upload", fmt.Errorf("open %s file: %w", kind, err))
		}
		opened = append(opened, file)
		req.Uploads = append(req.Uploads, domain.Upload{
			Kind:     kind,
			Filename: headers[0].Filename,
			Body:     file,
		})
	}
	return req, closeFiles, nil
}

func (rt *Router) getAssessment(w http.ResponseWriter, r *http.Request) {
	rec, ok := rt.loadAssessment(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (rt *Router) getReport(w http.ResponseWriter, r *http.Request) {
	rec, ok := rt.loadReadyAssessment(w, r)
	if !ok {
		return
	}
	writeMarkdown(w, rec.ReportMD)
}

func (rt *Router) getNarrative(w http.ResponseWriter, r *http.Request) {
	rec, ok := rt.loadReadyAssessment(w, r)
	if !ok {
		return
	}
	if rec.AIMD == "" {
		writeJSONError(w, r, http.StatusNotFound, "AI insights were not requested for this assessment")
		return
	}
	writeMarkdown(w, rec.AIMD)
}

func (rt *Router) loadAssessment(w http.ResponseWriter, r *http.Request) (*domain.AssessmentRecord, bool) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeJSONError(w, r, http.StatusBadRequest, "assessment id is required")
		return nil, false
	}
	rec, err := rt.reader.GetByID(r.Context(), id)
	if err != nil {
		rt.writeDomainError(w, r, "get assessment", err)
		return nil, false
	}
	return rec, true
}

func (rt *Router) loadReadyAssessment(w http.ResponseWriter, r *http.Request) (*domain.AssessmentRecord, bool) {
	rec, ok := rt.loadAssessment(w, r)
	if !ok {
		return nil, false
	}
	if rec.Status != domain.StatusReady {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error":      "assessment is not ready",
			"status":     string(rec.Status),
			"request_id": requestIDFromContext(r.Context()),
		})
		return nil, false
	}
	return rec, true
}

func (rt *Router) writeDomainError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("http_handler_failed",
			"request_id", requestIDFromContext(r.Context()),
			"operation", operation,
			"error", err.Error(),
		)
	}
	writeJSONError(w, r, status, err.Error())
}

func (rt *Router) recordAssessment(start time.Time, err error) {
	if rt.metrics == nil {
		return
	}
	mode := "sync"
	if rt.cfg.AsyncMode {
		mode = "async"
	}
	rt.metrics.RecordAssessment(serviceName, mode, time.Since(start), err)
}

func (rt *Router) onRateLimited() {
	if rt.metrics != nil {
		rt.metrics.RecordRateLimited(serviceName)
	}
}

func formValue(form *multipart.Form, key string) string {
	if values := form.Value[key]; len(values) > 0 {
		return strings.TrimSpace(values[0])
	}
	return ""
}

func formBool(form *multipart.Form, key string, fallback bool) bool {
	raw := strings.ToLower(formValue(form, key))
	switch raw {
	case "":
		return fallback
	case "on", "yes":
		return true
	case "off", "no":
		return false
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error":      message,
		"request_id": requestIDFromContext(r.Context()),
	})
}

func writeMarkdown(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)
}
