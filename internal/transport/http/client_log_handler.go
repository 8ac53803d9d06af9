package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	apierrors "netdash/internal/errors"
	"netdash/internal/middleware"
)

// maxClientLogBytes bounds a client log body
const maxClientLogBytes = 16 << 10

// ClientLogHandler records problems the dashboard page reports, such as
// charts that failed to render
type ClientLogHandler struct {
	validator    *middleware.Validator
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewClientLogHandler creates a new client log handler
func NewClientLogHandler(validator *middleware.Validator, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *ClientLogHandler {
	return &ClientLogHandler{
		validator:    validator,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "client_log")),
	}
}

// LogRequest represents a client log entry
type LogRequest struct {
	Level   string                 `json:"level" validate:"omitempty,oneof=debug info warn error"`
	Message string                 `json:"message" validate:"required,max=1000"`
	Data    map[string]interface{} `json:"data,omitempty" validate:"max=20"`
	Source  string                 `json:"source,omitempty" validate:"max=200"`
}

// Handle handles POST /api/client-logs
func (h *ClientLogHandler) Handle(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxClientLogBytes)

	var req LogRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	level := slog.LevelInfo
	switch req.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	attrs := []slog.Attr{
		slog.String("client_source", req.Source),
		slog.String("request_id", middleware.GetRequestID(r.Context())),
	}
	if sess, ok := middleware.SessionFromContext(r.Context()); ok {
		attrs = append(attrs, slog.String("session_id", sess.ID))
	}
	if req.Data != nil {
		attrs = append(attrs, slog.Any("data", req.Data))
	}
	h.logger.LogAttrs(r.Context(), level, req.Message, attrs...)

	render.JSON(w, r, map[string]interface{}{
		"success": true,
	})
}
