package http

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"netdash/internal/dataset"
	apierrors "netdash/internal/errors"
	"netdash/internal/filter"
	"netdash/internal/middleware"
	"netdash/internal/services"
	"netdash/internal/session"
	"netdash/internal/views"
)

//go:embed templates/*.html
var templateFS embed.FS

// ChartLibraryURL is the client side chart library loaded by the page
const ChartLibraryURL = middleware.ChartCDN + "/npm/chart.js@4.4.1/dist/chart.umd.min.js"

const overviewTab = "overview"

// HTMLHandler serves the dashboard page and its form posts
type HTMLHandler struct {
	service      DashboardService
	validator    *middleware.Validator
	templates    *template.Template
	logger       *slog.Logger
	maxFileBytes int64
	version      string
	now          func() time.Time
}

// NewHTMLHandler parses the embedded templates and creates the handler
func NewHTMLHandler(service DashboardService, validator *middleware.Validator, maxFileBytes int64, version string, logger *slog.Logger) (*HTMLHandler, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"add":    func(a, b int) int { return a + b },
		"has":    hasValue,
		"active": func(v filter.Values) bool { return v.Active() },
		"dict":   dict,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &HTMLHandler{
		service:      service,
		validator:    validator,
		templates:    tmpl,
		logger:       logger.With(slog.String("component", "html_handler")),
		maxFileBytes: maxFileBytes,
		version:      version,
		now:          time.Now,
	}, nil
}

// Routes returns the page routes. They need the Sessions middleware
// upstream.
func (h *HTMLHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Page)
	r.With(middleware.ContentTypeValidator("multipart/form-data")).Post("/upload", h.Upload)
	r.Post("/clear", h.Clear)
	r.Post("/datasets/{kind}/remove", h.Remove)
	return r
}

type tabItem struct {
	Name   string
	Title  string
	Active bool
	Loaded bool
	Rows   int
}

type loadedItem struct {
	Kind   string
	Title  string
	Source string
	Rows   int
}

// tableView is a summary table with optional drill-down links per row
type tableView struct {
	views.SummaryTable
	Links []string
}

type pageData struct {
	Version     string
	Tab         string
	TabTitle    string
	Tabs        []tabItem
	Loaded      []loadedItem
	Kinds       []tabItem
	View        *views.View
	Tables      []tableView
	Charts      []views.ChartSpec
	Controls    *filter.Controls
	Selection   filter.Selection
	Query       viewQuery
	Metrics     []string
	Path        []string
	PathLinks   []string
	ExportCSV   string
	ExportXLSX  string
	ActiveXLSX  string
	Uploads     []uploadOutcome
	Notice      string
	Error       string
	ChartScript string
	MaxUploadMB int64
}

// Page handles GET /
func (h *HTMLHandler) Page(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}
	data := h.build(r, sess, r.URL.Query())
	h.render(w, r, http.StatusOK, data)
}

// build assembles the page for the tab and filters in values
func (h *HTMLHandler) build(r *http.Request, sess *session.Session, values url.Values) *pageData {
	ctx := r.Context()
	data := h.frame(sess)

	tab := strings.ToLower(strings.TrimSpace(values.Get("tab")))
	if tab == "" {
		tab = overviewTab
	}
	var kind dataset.Kind
	if tab != overviewTab {
		k, err := dataset.ParseKind(tab)
		if err != nil || k == dataset.Projects {
			data.Error = fmt.Sprintf("Unknown tab %q", tab)
			tab = overviewTab
		} else {
			kind = k
		}
	}
	data.Tab = tab
	for i := range data.Tabs {
		data.Tabs[i].Active = data.Tabs[i].Name == tab
		if data.Tabs[i].Active {
			data.TabTitle = data.Tabs[i].Title
		}
	}

	q, err := parseViewQuery(h.validator, values)
	if err != nil {
		data.Error = describe(err)
		q = viewQuery{}
	}
	data.Query = q
	req := q.request(sess, h.now())
	data.Selection = req.Selection

	if kind == "" {
		data.TabTitle = "Overview"
		data.View = h.service.Overview(ctx, sess)
		data.Tables = plainTables(data.View.Tables)
		data.Charts = data.View.Charts
		return data
	}

	controls, err := h.service.Controls(ctx, sess, kind)
	if err != nil {
		if errors.Is(err, services.ErrDatasetNotLoaded) {
			data.Notice = fmt.Sprintf("No %s data loaded. Upload a file to see this tab.", kind.Title())
		} else {
			data.Error = describe(err)
		}
		return data
	}
	data.Controls = &controls

	v, err := h.service.View(ctx, sess, kind, req)
	if err != nil {
		data.Error = describe(err)
		return data
	}
	data.View = v
	data.Charts = v.Charts
	data.Path = q.Path
	if kind == dataset.Provision {
		data.Tables, data.PathLinks = drillTables(v.Tables, q, req.Selection)
	} else {
		data.Tables = plainTables(v.Tables)
	}
	if stats, ok := v.Table("metric_stats"); ok {
		for _, row := range stats.Rows {
			data.Metrics = append(data.Metrics, row[0])
		}
	}

	qs := q.encode(req.Selection)
	data.ExportCSV = exportLink(kind, services.FormatCSV, qs)
	data.ExportXLSX = exportLink(kind, services.FormatXLSX, qs)
	if kind == dataset.Alarms {
		data.ActiveXLSX = "/api/datasets/alarms/active.xlsx"
	}
	return data
}

// frame fills the parts of the page that do not depend on the tab
func (h *HTMLHandler) frame(sess *session.Session) *pageData {
	data := &pageData{
		Version:     h.version,
		ChartScript: ChartLibraryURL,
		MaxUploadMB: h.maxFileBytes >> 20,
		Tabs:        []tabItem{{Name: overviewTab, Title: "Overview"}},
	}
	tables := sess.Tables()
	for _, k := range dataset.DashboardKinds {
		item := tabItem{Name: string(k), Title: k.Title()}
		if t, ok := tables[k]; ok {
			item.Loaded, item.Rows = true, t.Len()
		}
		data.Tabs = append(data.Tabs, item)
	}
	for _, k := range dataset.AllKinds {
		data.Kinds = append(data.Kinds, tabItem{Name: string(k), Title: k.Title()})
		if t, ok := tables[k]; ok {
			data.Loaded = append(data.Loaded, loadedItem{Kind: string(k), Title: k.Title(), Source: t.Source, Rows: t.Len()})
		}
	}
	return data
}

// hasValue reports whether list holds s, ignoring case
func hasValue(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(strings.TrimSpace(v), s) {
			return true
		}
	}
	return false
}

// dict builds a map from alternating keys and values for sub-templates
func dict(pairs ...interface{}) (map[string]interface{}, error) {
	if len(pairs)%2 != 0 {
		return nil, errors.New("dict needs key and value pairs")
	}
	m := make(map[string]interface{}, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		k, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict key %v is not a string", pairs[i])
		}
		m[k] = pairs[i+1]
	}
	return m, nil
}

func plainTables(in []views.SummaryTable) []tableView {
	out := make([]tableView, 0, len(in))
	for _, t := range in {
		out = append(out, tableView{SummaryTable: t})
	}
	return out
}

// drillTables links each row of the provision level tables to the next
// level. The returned links lead back to each step of the current path.
func drillTables(in []views.SummaryTable, q viewQuery, sel filter.Selection) ([]tableView, []string) {
	out := make([]tableView, 0, len(in))
	depth := 0
	for _, t := range in {
		tv := tableView{SummaryTable: t}
		if strings.HasPrefix(t.ID, "level_") {
			prefix := q.Path
			if depth < len(prefix) {
				prefix = prefix[:depth]
			}
			for _, row := range t.Rows {
				next := q
				next.Path = append(append([]string{}, prefix...), row[0])
				tv.Links = append(tv.Links, pageLink(dataset.Provision, next.encode(sel)))
			}
			depth++
		}
		out = append(out, tv)
	}

	crumbs := make([]string, 0, len(q.Path)+1)
	for i := 0; i <= len(q.Path); i++ {
		step := q
		step.Path = append([]string{}, q.Path[:i]...)
		crumbs = append(crumbs, pageLink(dataset.Provision, step.encode(sel)))
	}
	return out, crumbs
}

func pageLink(kind dataset.Kind, qs url.Values) string {
	qs.Set("tab", string(kind))
	return "/?" + qs.Encode()
}

func exportLink(kind dataset.Kind, format string, qs url.Values) string {
	v := url.Values{}
	for k, vals := range qs {
		v[k] = vals
	}
	v.Set("format", format)
	return "/api/datasets/" + string(kind) + "/export?" + v.Encode()
}

// Upload handles POST /upload. Accepted files are stored; when every file
// is accepted the browser is sent to the tab of the last one, otherwise
// the page shows the outcome of each file.
func (h *HTMLHandler) Upload(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}

	outcomes, err := uploadFiles(w, r, h.service, sess, h.maxFileBytes)
	if err != nil {
		data := h.build(r, sess, url.Values{"tab": {r.FormValue("tab")}})
		data.Error = describe(err)
		h.render(w, r, statusOf(err), data)
		return
	}

	failed := 0
	last := ""
	for _, o := range outcomes {
		if o.Error != nil {
			failed++
			continue
		}
		if o.Result.Kind != dataset.Projects {
			last = string(o.Result.Kind)
		}
	}
	if failed == 0 {
		target := "/"
		if last != "" {
			target = "/?tab=" + url.QueryEscape(last)
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}

	tab := last
	if tab == "" {
		tab = r.FormValue("tab")
	}
	data := h.build(r, sess, url.Values{"tab": {tab}})
	data.Uploads = outcomes
	status := http.StatusOK
	if failed == len(outcomes) {
		status = http.StatusUnprocessableEntity
	}
	h.render(w, r, status, data)
}

// Clear handles POST /clear
func (h *HTMLHandler) Clear(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}
	h.service.Clear(r.Context(), sess)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Remove handles POST /datasets/{kind}/remove
func (h *HTMLHandler) Remove(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}
	kind, err := kindParam(chi.URLParam(r, "kind"))
	if err == nil {
		err = h.service.Remove(r.Context(), sess, kind)
	}
	if err != nil && !errors.Is(err, services.ErrDatasetNotLoaded) {
		data := h.build(r, sess, url.Values{})
		data.Error = describe(err)
		h.render(w, r, statusOf(err), data)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *HTMLHandler) render(w http.ResponseWriter, r *http.Request, status int, data *pageData) {
	var buf bytes.Buffer
	if err := h.templates.ExecuteTemplate(&buf, "page.html", data); err != nil {
		h.logger.ErrorContext(r.Context(), "template execution failed",
			slog.String("error", err.Error()),
			slog.String("request_id", middleware.GetRequestID(r.Context())))
		http.Error(w, "Error rendering page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// describe turns an error into a message for the page
func describe(err error) string {
	var apiErr *apierrors.APIError
	if !errors.As(toAPIError(err, "", "", 0), &apiErr) {
		return "Something went wrong. Please try again."
	}
	if ve, ok := apiErr.Details.(apierrors.ValidationErrors); ok {
		msgs := make([]string, 0, len(ve.Errors))
		for _, e := range ve.Errors {
			msgs = append(msgs, e.Message)
		}
		return strings.Join(msgs, "; ")
	}
	if fe, ok := apiErr.Details.(apierrors.ValidationError); ok {
		return fe.Message
	}
	return apiErr.Message
}

func statusOf(err error) int {
	var apiErr *apierrors.APIError
	if errors.As(toAPIError(err, "", "", 0), &apiErr) {
		return apiErr.StatusCode
	}
	return http.StatusInternalServerError
}
