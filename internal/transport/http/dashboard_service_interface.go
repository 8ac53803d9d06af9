package http

import (
	"context"
	"io"

	"netdash/internal/dataset"
	"netdash/internal/filter"
	"netdash/internal/loader"
	"netdash/internal/services"
	"netdash/internal/session"
	"netdash/internal/views"
)

// DashboardService is what the handlers need from the dashboard service
type DashboardService interface {
	Upload(ctx context.Context, sess *session.Session, up loader.Upload) (*services.UploadResult, error)
	View(ctx context.Context, sess *session.Session, kind dataset.Kind, req services.ViewRequest) (*views.View, error)
	Controls(ctx context.Context, sess *session.Session, kind dataset.Kind) (filter.Controls, error)
	Overview(ctx context.Context, sess *session.Session) *views.View
	Export(ctx context.Context, sess *session.Session, kind dataset.Kind, req services.ViewRequest, format string, w io.Writer) error
	ExportActiveAlarms(ctx context.Context, sess *session.Session, w io.Writer) error
	Remove(ctx context.Context, sess *session.Session, kind dataset.Kind) error
	Clear(ctx context.Context, sess *session.Session) int
	ExportFilename(kind dataset.Kind, format string) string
}

var _ DashboardService = (*services.DashboardService)(nil)
