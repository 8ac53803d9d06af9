package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"netdash/internal/dataset"
	apierrors "netdash/internal/errors"
	"netdash/internal/loader"
	"netdash/internal/middleware"
	"netdash/internal/services"
	"netdash/internal/session"
)

// Content types of downloads
const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// multipartMemory is kept in memory before ParseMultipartForm spills to disk
const multipartMemory = 32 << 20

// DashboardHandler serves the dataset JSON API
type DashboardHandler struct {
	service      DashboardService
	validator    *middleware.Validator
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
	maxFileBytes int64
	now          func() time.Time
}

// NewDashboardHandler creates the API handler. maxFileBytes is the per
// file upload limit.
func NewDashboardHandler(service DashboardService, validator *middleware.Validator, errorHandler *apierrors.ErrorHandler, maxFileBytes int64, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		service:      service,
		validator:    validator,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("component", "dashboard_handler")),
		maxFileBytes: maxFileBytes,
		now:          time.Now,
	}
}

// Routes returns the /api/datasets routes. They need the Sessions
// middleware upstream.
func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.Overview)
	r.Delete("/", h.Clear)
	r.With(middleware.ContentTypeValidator("multipart/form-data")).Post("/", h.Upload)

	r.Get("/alarms/active.xlsx", h.ExportActiveAlarms)

	r.Route("/{kind}", func(r chi.Router) {
		r.Use(h.KindCtx)
		r.Delete("/", h.Remove)
		r.Get("/filters", h.Filters)
		r.Get("/view", h.View)
		r.Get("/export", h.Export)
	})

	return r
}

type kindKey struct{}

// KindCtx validates the {kind} parameter and stores the kind in context
func (h *DashboardHandler) KindCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		kind, err := kindParam(chi.URLParam(r, "kind"))
		if err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), kindKey{}, kind)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func kindFrom(r *http.Request) dataset.Kind {
	kind, _ := r.Context().Value(kindKey{}).(dataset.Kind)
	return kind
}

// sessionFrom returns the request's session or writes a 500
func (h *DashboardHandler) sessionFrom(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		h.errorHandler.HandleError(w, r, errors.New("no session on request"))
		return nil, false
	}
	return sess, true
}

// Overview handles GET /api/datasets
func (h *DashboardHandler) Overview(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionFrom(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status":    "success",
		"data":      h.service.Overview(r.Context(), sess),
		"selection": sess.Selection(),
	})
}

// Clear handles DELETE /api/datasets
func (h *DashboardHandler) Clear(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionFrom(w, r)
	if !ok {
		return
	}
	n := h.service.Clear(r.Context(), sess)
	render.JSON(w, r, map[string]interface{}{
		"status":  "success",
		"removed": n,
	})
}

// uploadOutcome is the result of one file of a multipart upload
type uploadOutcome struct {
	Filename string                 `json:"filename"`
	Result   *services.UploadResult `json:"result,omitempty"`
	Error    *apierrors.APIError    `json:"error,omitempty"`
}

// Upload handles POST /api/datasets. Every file is loaded independently,
// so one bad file does not discard the others.
func (h *DashboardHandler) Upload(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionFrom(w, r)
	if !ok {
		return
	}

	outcomes, err := uploadFiles(w, r, h.service, sess, h.maxFileBytes)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	failed := 0
	for _, o := range outcomes {
		if o.Error != nil {
			failed++
		}
	}
	h.logger.InfoContext(r.Context(), "upload processed",
		slog.String("request_id", middleware.GetRequestID(r.Context())),
		slog.Int("files", len(outcomes)),
		slog.Int("failed", failed),
	)

	// A single file keeps the plain error semantics
	if len(outcomes) == 1 && outcomes[0].Error != nil {
		h.errorHandler.HandleError(w, r, outcomes[0].Error)
		return
	}

	status := http.StatusCreated
	switch {
	case failed == len(outcomes):
		status = http.StatusUnprocessableEntity
	case failed > 0:
		status = http.StatusMultiStatus
	}
	render.Status(r, status)
	render.JSON(w, r, map[string]interface{}{
		"status": statusWord(failed, len(outcomes)),
		"data":   outcomes,
		"count":  len(outcomes) - failed,
	})
}

// Problem is the failure of the file as a sentence
func (o uploadOutcome) Problem() string {
	if o.Error == nil {
		return ""
	}
	switch d := o.Error.Details.(type) {
	case map[string]string:
		if msg := d["error"]; msg != "" {
			return msg
		}
	case error:
		return d.Error()
	case string:
		return d
	}
	return o.Error.Message
}

func statusWord(failed, total int) string {
	switch {
	case failed == 0:
		return "success"
	case failed == total:
		return "error"
	default:
		return "partial"
	}
}

// uploadFiles parses the multipart form of r and loads every file under
// the "files" or "file" field. The optional "kind" field applies to all
// files; otherwise each kind is detected from its file name.
func uploadFiles(w http.ResponseWriter, r *http.Request, svc DashboardService, sess *session.Session, maxFileBytes int64) ([]uploadOutcome, error) {
	if maxFileBytes > 0 {
		limit := maxFileBytes*int64(len(dataset.AllKinds)) + multipartMemory
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, apierrors.PayloadTooLarge(maxFileBytes)
		}
		return nil, apierrors.InvalidRequestWithError(err)
	}
	defer r.MultipartForm.RemoveAll()

	var declared dataset.Kind
	if s := strings.TrimSpace(r.FormValue("kind")); s != "" && !strings.EqualFold(s, "auto") {
		kind, err := kindParam(s)
		if err != nil {
			return nil, err
		}
		declared = kind
	}

	var headers []*multipart.FileHeader
	headers = append(headers, r.MultipartForm.File["files"]...)
	headers = append(headers, r.MultipartForm.File["file"]...)
	if len(headers) == 0 {
		return nil, apierrors.ErrValidation("files", "at least one file is required")
	}

	outcomes := make([]uploadOutcome, 0, len(headers))
	for _, fh := range headers {
		outcomes = append(outcomes, uploadOne(r.Context(), svc, sess, fh, declared, maxFileBytes))
	}
	return outcomes, nil
}

func uploadOne(ctx context.Context, svc DashboardService, sess *session.Session, fh *multipart.FileHeader, kind dataset.Kind, maxFileBytes int64) uploadOutcome {
	out := uploadOutcome{Filename: fh.Filename}

	if kind == "" {
		detected, err := services.ResolveKind("", fh.Filename)
		if err != nil {
			out.Error = uploadError(err, "", fh.Filename, maxFileBytes)
			return out
		}
		kind = detected
	}

	f, err := fh.Open()
	if err != nil {
		out.Error = apierrors.UploadRejected(fh.Filename, err.Error())
		return out
	}
	defer f.Close()

	res, err := svc.Upload(ctx, sess, loader.Upload{Filename: fh.Filename, Kind: kind, Body: f})
	if err != nil {
		out.Error = uploadError(err, kind, fh.Filename, maxFileBytes)
		return out
	}
	out.Result = res
	return out
}

// uploadError maps a load failure to an API error. Unclassified failures
// are reported as rejected files rather than server errors.
func uploadError(err error, kind dataset.Kind, filename string, maxFileBytes int64) *apierrors.APIError {
	var apiErr *apierrors.APIError
	if errors.As(toAPIError(err, kind, filename, maxFileBytes), &apiErr) {
		return apiErr
	}
	return apierrors.UploadRejected(filename, map[string]string{"reason": loader.Reason(err), "error": err.Error()})
}

// Remove handles DELETE /api/datasets/{kind}
func (h *DashboardHandler) Remove(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionFrom(w, r)
	if !ok {
		return
	}
	kind := kindFrom(r)
	if err := h.service.Remove(r.Context(), sess, kind); err != nil {
		h.errorHandler.HandleError(w, r, toAPIError(err, kind, "", h.maxFileBytes))
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"kind":   kind,
	})
}

// Filters handles GET /api/datasets/{kind}/filters
func (h *DashboardHandler) Filters(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionFrom(w, r)
	if !ok {
		return
	}
	kind := kindFrom(r)
	controls, err := h.service.Controls(r.Context(), sess, kind)
	if err != nil {
		h.errorHandler.HandleError(w, r, toAPIError(err, kind, "", h.maxFileBytes))
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status":    "success",
		"data":      controls,
		"selection": sess.Selection(),
	})
}

// View handles GET /api/datasets/{kind}/view
func (h *DashboardHandler) View(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionFrom(w, r)
	if !ok {
		return
	}
	kind := kindFrom(r)
	if kind == dataset.Projects {
		h.errorHandler.HandleError(w, r, apierrors.New(http.StatusNotFound, apierrors.CodeNotFound,
			"The projects table has no view; it only supplies departments to the other datasets"))
		return
	}

	q, err := parseViewQuery(h.validator, r.URL.Query())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	req := q.request(sess, h.now())

	v, err := h.service.View(r.Context(), sess, kind, req)
	if err != nil {
		h.errorHandler.HandleError(w, r, toAPIError(err, kind, "", h.maxFileBytes))
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status":    "success",
		"data":      v,
		"selection": req.Selection,
	})
}

// Export handles GET /api/datasets/{kind}/export
func (h *DashboardHandler) Export(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionFrom(w, r)
	if !ok {
		return
	}
	kind := kindFrom(r)

	values := r.URL.Query()
	eq := exportQuery{Format: strings.ToLower(strings.TrimSpace(values.Get("format")))}
	if eq.Format == "" {
		eq.Format = services.FormatCSV
	}
	if err := h.validator.Struct(eq); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	q, err := parseViewQuery(h.validator, values)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	req := q.request(sess, h.now())

	// Buffer so a failed export can still answer with a problem document
	var buf bytes.Buffer
	if err := h.service.Export(r.Context(), sess, kind, req, eq.Format, &buf); err != nil {
		h.errorHandler.HandleError(w, r, toAPIError(err, kind, "", h.maxFileBytes))
		return
	}
	writeDownload(w, h.service.ExportFilename(kind, eq.Format), eq.Format, buf.Bytes())
}

// ExportActiveAlarms handles GET /api/datasets/alarms/active.xlsx
func (h *DashboardHandler) ExportActiveAlarms(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessionFrom(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := h.service.ExportActiveAlarms(r.Context(), sess, &buf); err != nil {
		h.errorHandler.HandleError(w, r, toAPIError(err, dataset.Alarms, "", h.maxFileBytes))
		return
	}
	name := strings.Replace(h.service.ExportFilename(dataset.Alarms, services.FormatXLSX), "alarms", "active_alarms", 1)
	writeDownload(w, name, services.FormatXLSX, buf.Bytes())
}

func writeDownload(w http.ResponseWriter, filename, format string, body []byte) {
	contentType := contentTypeCSV
	if format == services.FormatXLSX {
		contentType = contentTypeXLSX
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", fmt.Sprint(len(body)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
