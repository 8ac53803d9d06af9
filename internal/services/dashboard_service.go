package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"netdash/internal/dataset"
	"netdash/internal/exporter"
	"netdash/internal/filter"
	"netdash/internal/infrastructure"
	"netdash/internal/loader"
	"netdash/internal/session"
	"netdash/internal/views"
)

// Export formats
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// ViewRequest carries everything that shapes a rendered view
type ViewRequest struct {
	Selection filter.Selection
	Range     filter.Range
	From      time.Time
	To        time.Time
	Options   views.Options
}

// UploadResult describes an accepted upload
type UploadResult struct {
	Kind     dataset.Kind `json:"kind"`
	Filename string       `json:"filename"`
	Rows     int          `json:"rows"`
	Columns  int          `json:"columns"`
	Warnings []string     `json:"warnings,omitempty"`
	Replaced bool         `json:"replaced"`
}

// DashboardService runs uploads, views and exports against a session
type DashboardService struct {
	loader   *loader.Loader
	registry *views.Registry
	metrics  *infrastructure.DashboardMetrics
	csv      *exporter.CSVWriter
	xlsx     *exporter.XLSXWriter
	logger   *slog.Logger
	now      func() time.Time
}

// NewDashboardService creates the service. metrics may be nil.
func NewDashboardService(ld *loader.Loader, registry *views.Registry, metrics *infrastructure.DashboardMetrics, logger *slog.Logger) *DashboardService {
	if logger == nil {
		logger = slog.Default()
	}
	if registry == nil {
		registry = views.NewRegistry()
	}
	return &DashboardService{
		loader:   ld,
		registry: registry,
		metrics:  metrics,
		csv:      exporter.NewCSVWriter(),
		xlsx:     exporter.NewXLSXWriter(),
		logger:   logger.With(slog.String("component", "dashboard_service")),
		now:      time.Now,
	}
}

// ResolveKind returns declared when set, otherwise the kind detected from
// filename
func ResolveKind(declared, filename string) (dataset.Kind, error) {
	if strings.TrimSpace(declared) != "" {
		return dataset.ParseKind(declared)
	}
	kind, ok := dataset.DetectKind(filename)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrKindNotDetected, filename)
	}
	return kind, nil
}

// Upload loads up into the session. The slot of the kind is replaced only
// when the file is accepted.
func (s *DashboardService) Upload(ctx context.Context, sess *session.Session, up loader.Upload) (result *UploadResult, err error) {
	if up.Kind == "" {
		kind, err := ResolveKind("", up.Filename)
		if err != nil {
			return nil, err
		}
		up.Kind = kind
	} else if !up.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, up.Kind)
	}

	ctx, span := startSpan(ctx, "dashboard.upload",
		attribute.String("dataset.kind", string(up.Kind)),
		attribute.String("dataset.file", up.Filename),
	)
	defer func() { endSpan(span, err) }()

	started := s.now()
	tbl, err := s.loader.Load(ctx, up)
	elapsed := s.now().Sub(started)
	if err != nil {
		reason := loader.Reason(err)
		s.metrics.RecordUpload(ctx, string(up.Kind), 0, elapsed, reason)
		s.logger.WarnContext(ctx, "upload rejected",
			slog.String("kind", string(up.Kind)),
			slog.String("file", up.Filename),
			slog.String("reason", reason),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", up.Filename, err)
	}

	infrastructure.AddSpanEvent(ctx, "dataset.parsed", map[string]interface{}{
		"rows":     tbl.Len(),
		"columns":  len(tbl.Columns),
		"warnings": len(tbl.Warnings),
	})

	prev := sess.Put(tbl)
	s.metrics.RecordUpload(ctx, string(up.Kind), tbl.Len(), elapsed, "")
	span.SetAttributes(attribute.Int("dataset.rows", tbl.Len()))

	s.logger.InfoContext(ctx, "dataset stored",
		slog.String("session_id", sess.ID),
		slog.String("kind", string(up.Kind)),
		slog.Int("rows", tbl.Len()),
		slog.Bool("replaced", prev != nil),
		slog.Duration("duration", elapsed),
	)
	return &UploadResult{
		Kind:     up.Kind,
		Filename: up.Filename,
		Rows:     tbl.Len(),
		Columns:  len(tbl.Columns),
		Warnings: tbl.Warnings,
		Replaced: prev != nil,
	}, nil
}

// loaded returns the session's table of kind joined with the projects
// table for department lookups
func (s *DashboardService) loaded(sess *session.Session, kind dataset.Kind) (*dataset.Table, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	tbl, ok := sess.Table(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotLoaded, kind)
	}
	if kind != dataset.Projects {
		if projects, ok := sess.Table(dataset.Projects); ok {
			tbl = dataset.WithGeography(tbl, projects)
		}
	}
	return tbl, nil
}

// filtered applies the selection and time window of req to the table of
// kind. The returned strings are warnings about ignored filters.
func (s *DashboardService) filtered(ctx context.Context, sess *session.Session, kind dataset.Kind, req ViewRequest) (*dataset.Table, []string, error) {
	tbl, err := s.loaded(sess, kind)
	if err != nil {
		return nil, nil, err
	}

	window, err := filter.WindowFor(tbl, req.Range, req.From, req.To)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}

	out, ignored := filter.ApplySelection(tbl, req.Selection)
	out = filter.ApplyWindow(out, window)
	infrastructure.AddSpanEvent(ctx, "dataset.filtered", map[string]interface{}{
		"rows_in":  tbl.Len(),
		"rows_out": out.Len(),
	})

	var warnings []string
	for _, dim := range ignored {
		warnings = append(warnings, fmt.Sprintf("the %s filter does not apply to this dataset", dim))
	}
	return out, warnings, nil
}

// View renders the tab of kind for the session
func (s *DashboardService) View(ctx context.Context, sess *session.Session, kind dataset.Kind, req ViewRequest) (v *views.View, err error) {
	ctx, span := startSpan(ctx, "dashboard.view", attribute.String("dataset.kind", string(kind)))
	defer func() { endSpan(span, err) }()

	started := s.now()
	tbl, warnings, err := s.filtered(ctx, sess, kind, req)
	if err != nil {
		return nil, err
	}
	v, err = s.registry.Render(kind, tbl, req.Options)
	if err != nil {
		return nil, err
	}
	v.Warnings = append(v.Warnings, warnings...)

	elapsed := s.now().Sub(started)
	s.metrics.RecordView(ctx, string(kind), elapsed)
	span.SetAttributes(attribute.Int("dataset.rows", v.RowCount))
	s.logger.DebugContext(ctx, "view rendered",
		slog.String("kind", string(kind)),
		slog.Int("rows", v.RowCount),
		slog.Int("charts", len(v.Charts)),
		slog.Duration("duration", elapsed),
	)
	return v, nil
}

// Controls returns the filter choices for the table of kind. Geography
// levels are narrowed by the session's selection of the levels above.
func (s *DashboardService) Controls(ctx context.Context, sess *session.Session, kind dataset.Kind) (filter.Controls, error) {
	tbl, err := s.loaded(sess, kind)
	if err != nil {
		return filter.Controls{}, err
	}
	return filter.OptionsFor(tbl, sess.Selection()), nil
}

// Overview summarises every slot of the session
func (s *DashboardService) Overview(ctx context.Context, sess *session.Session) *views.View {
	return views.Overview(sess.Tables())
}

// Export writes the filtered table of kind to w as CSV or XLSX
func (s *DashboardService) Export(ctx context.Context, sess *session.Session, kind dataset.Kind, req ViewRequest, format string, w io.Writer) (err error) {
	ctx, span := startSpan(ctx, "dashboard.export",
		attribute.String("dataset.kind", string(kind)),
		attribute.String("export.format", format),
	)
	defer func() { endSpan(span, err) }()

	if format != FormatCSV && format != FormatXLSX {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	tbl, _, err := s.filtered(ctx, sess, kind, req)
	if err != nil {
		return err
	}

	var rows int
	switch format {
	case FormatCSV:
		rows, err = s.csv.WriteTable(w, tbl, nil)
	case FormatXLSX:
		headers, records := exporter.TableRecords(tbl, nil)
		rows = len(records)
		err = s.xlsx.Write(w, kind.Title(), headers, records)
	}
	if err != nil {
		return fmt.Errorf("export %s: %w", kind, err)
	}
	infrastructure.AddSpanEvent(ctx, "export.written", map[string]interface{}{
		"rows": rows,
	})

	s.metrics.RecordExport(ctx, string(kind), format)
	s.logger.InfoContext(ctx, "dataset exported",
		slog.String("kind", string(kind)),
		slog.String("format", format),
		slog.Int("rows", rows),
	)
	return nil
}

// ExportActiveAlarms writes the session's active alarms, oldest first, as
// an XLSX workbook
func (s *DashboardService) ExportActiveAlarms(ctx context.Context, sess *session.Session, w io.Writer) (err error) {
	ctx, span := startSpan(ctx, "dashboard.export_active_alarms")
	defer func() { endSpan(span, err) }()

	tbl, err := s.loaded(sess, dataset.Alarms)
	if err != nil {
		return err
	}
	active := views.ActiveAlarms(tbl)

	site, hasSite := active.SiteColumn()
	columns := make([]string, 0, len(views.ActiveAlarmColumns))
	for _, c := range views.ActiveAlarmColumns {
		if c == "site" && hasSite {
			c = site
		}
		columns = append(columns, c)
	}
	headers, records := exporter.TableRecords(active, columns)
	for i, h := range headers {
		if hasSite && h == site {
			headers[i] = "site"
		}
	}

	if err := s.xlsx.Write(w, "Active Alarms", headers, records); err != nil {
		return fmt.Errorf("export active alarms: %w", err)
	}
	s.metrics.RecordExport(ctx, string(dataset.Alarms)+"_active", FormatXLSX)
	return nil
}

// Remove empties the slot of kind
func (s *DashboardService) Remove(ctx context.Context, sess *session.Session, kind dataset.Kind) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if !sess.Remove(kind) {
		return fmt.Errorf("%w: %s", ErrDatasetNotLoaded, kind)
	}
	s.logger.InfoContext(ctx, "dataset removed",
		slog.String("session_id", sess.ID),
		slog.String("kind", string(kind)))
	return nil
}

// Clear empties every slot of the session
func (s *DashboardService) Clear(ctx context.Context, sess *session.Session) int {
	n := sess.Clear()
	s.logger.InfoContext(ctx, "session cleared",
		slog.String("session_id", sess.ID),
		slog.Int("datasets", n))
	return n
}

// ExportFilename names a download of kind in format
func (s *DashboardService) ExportFilename(kind dataset.Kind, format string) string {
	return fmt.Sprintf("netdash_%s_%s.%s", kind, s.now().Format("20060102_150405"), format)
}
