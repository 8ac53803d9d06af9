package http

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"netdash/internal/dataset"
	apierrors "netdash/internal/errors"
	"netdash/internal/filter"
	"netdash/internal/loader"
	"netdash/internal/middleware"
	"netdash/internal/services"
	"netdash/internal/session"
	"netdash/internal/views"
)

const dateLayout = "2006-01-02"

// viewQuery is the query string shared by views and exports. Filter
// dimensions and metrics may repeat; each repetition adds a value.
type viewQuery struct {
	Year       []string `query:"year" validate:"max=32,dive,max=16"`
	Month      []string `query:"month" validate:"max=13,dive,month"`
	Site       []string `query:"site" validate:"max=500,dive,max=256"`
	Department []string `query:"department" validate:"max=100,dive,max=256"`
	Province   []string `query:"province" validate:"max=500,dive,max=256"`
	District   []string `query:"district" validate:"max=500,dive,max=256"`
	Locality   []string `query:"locality" validate:"max=500,dive,max=256"`
	Range      string   `query:"range" validate:"omitempty,oneof=all 1d 3d 7d custom"`
	From       string   `query:"from" validate:"required_if=Range custom,isodate"`
	To         string   `query:"to" validate:"required_if=Range custom,isodate"`
	Metrics    []string `query:"metric" validate:"max=16,dive,max=128"`
	Chart      string   `query:"chart" validate:"omitempty,oneof=line bar area"`
	Normalize  bool     `query:"normalize"`
	Limit      int      `query:"limit" validate:"min=0"`
	AllColumns bool     `query:"all_columns"`
	Path       []string `query:"path" validate:"max=4,dive,max=256"`

	// hasSelection is set when any filter dimension appears in the query
	hasSelection bool
}

// dims addresses the dimension fields of q by name
func (q *viewQuery) dims() map[string]*[]string {
	return map[string]*[]string{
		filter.DimYear:       &q.Year,
		filter.DimMonth:      &q.Month,
		filter.DimSite:       &q.Site,
		filter.DimDepartment: &q.Department,
		filter.DimProvince:   &q.Province,
		filter.DimDistrict:   &q.District,
		filter.DimLocality:   &q.Locality,
	}
}

// exportQuery adds the download format to a view query
type exportQuery struct {
	Format string `query:"format" validate:"required,oneof=csv xlsx"`
}

// parseViewQuery binds and validates the view parameters of r
func parseViewQuery(v *middleware.Validator, values url.Values) (viewQuery, error) {
	q := viewQuery{
		Range:   strings.ToLower(strings.TrimSpace(values.Get("range"))),
		From:    strings.TrimSpace(values.Get("from")),
		To:      strings.TrimSpace(values.Get("to")),
		Metrics: multi(values, "metric"),
		Chart:   strings.ToLower(strings.TrimSpace(values.Get("chart"))),
		Path:    multi(values, "path"),
	}
	for dim, field := range q.dims() {
		if _, ok := values[dim]; ok {
			q.hasSelection = true
		}
		*field = multi(values, dim)
	}

	var err error
	if q.Normalize, err = parseBool(values, "normalize"); err != nil {
		return q, err
	}
	if q.AllColumns, err = parseBool(values, "all_columns"); err != nil {
		return q, err
	}
	if s := strings.TrimSpace(values.Get("limit")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return q, apierrors.ErrValidation("limit", "limit must be a whole number")
		}
		q.Limit = n
	}

	return q, v.Struct(q)
}

// multi returns the trimmed, non-blank values of key in query order
func multi(values url.Values, key string) []string {
	var out []string
	for _, s := range values[key] {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseBool(values url.Values, key string) (bool, error) {
	s := strings.TrimSpace(values.Get(key))
	if s == "" {
		return false, nil
	}
	if s == "on" {
		return true, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, apierrors.ErrValidation(key, key+" must be true or false")
	}
	return b, nil
}

// selection returns the query's selection when it names any dimension,
// otherwise the one stored in the session
func (q viewQuery) selection(stored filter.Selection) filter.Selection {
	if !q.hasSelection {
		return stored
	}
	sel := filter.AllSelection()
	for dim, field := range q.dims() {
		if len(*field) > 0 {
			sel.Set(dim, filter.Values(*field))
		}
	}
	return sel
}

// request resolves q against sess. A selection in the query becomes the
// session's selection.
func (q viewQuery) request(sess *session.Session, now time.Time) services.ViewRequest {
	sel := q.selection(sess.Selection())
	if q.hasSelection {
		sess.SetSelection(sel)
	}
	req := services.ViewRequest{
		Selection: sel,
		Range:     filter.Range(q.Range),
		Options: views.Options{
			Metrics:    q.Metrics,
			Chart:      q.Chart,
			Normalize:  q.Normalize,
			RowLimit:   q.Limit,
			AllColumns: q.AllColumns,
			Now:        now,
			Path:       q.Path,
		},
	}
	// Both dates were validated as isodate
	req.From, _ = time.Parse(dateLayout, q.From)
	req.To, _ = time.Parse(dateLayout, q.To)
	return req
}

// encode renders q back into a query string for links. Dimensions that
// select everything are omitted.
func (q viewQuery) encode(sel filter.Selection) url.Values {
	v := url.Values{}
	set := func(k, s string) {
		if s != "" {
			v.Set(k, s)
		}
	}
	for _, dim := range filter.Dimensions {
		values := sel.Get(dim)
		if !values.Active() {
			continue
		}
		for _, s := range values {
			v.Add(dim, s)
		}
	}
	set("range", q.Range)
	set("from", q.From)
	set("to", q.To)
	for _, m := range q.Metrics {
		v.Add("metric", m)
	}
	set("chart", q.Chart)
	if q.Normalize {
		v.Set("normalize", "true")
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.AllColumns {
		v.Set("all_columns", "true")
	}
	for _, p := range q.Path {
		v.Add("path", p)
	}
	return v
}

// kindParam resolves the {kind} URL parameter
func kindParam(s string) (dataset.Kind, error) {
	kind, err := dataset.ParseKind(s)
	if err != nil {
		return "", apierrors.UnknownKind(s)
	}
	return kind, nil
}

// toAPIError maps service and loader errors onto API errors. Errors that
// are already API errors, and unknown ones, are returned unchanged.
func toAPIError(err error, kind dataset.Kind, filename string, maxBytes int64) error {
	var apiErr *apierrors.APIError
	var schemaErr *dataset.SchemaError
	var parseErr *dataset.ParseError
	var tooBig *http.MaxBytesError

	switch {
	case err == nil:
		return nil
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, services.ErrDatasetNotLoaded):
		return apierrors.DatasetNotLoaded(string(kind))
	case errors.Is(err, services.ErrUnknownKind):
		return apierrors.UnknownKind(string(kind))
	case errors.Is(err, services.ErrKindNotDetected):
		return apierrors.NewWithDetails(http.StatusBadRequest, apierrors.CodeKindNotDetected,
			"The dataset kind could not be detected from the file name; choose one explicitly",
			map[string]string{"filename": filename})
	case errors.Is(err, services.ErrUnsupportedFormat):
		return apierrors.New(http.StatusBadRequest, apierrors.CodeUnsupportedFormat, err.Error())
	case errors.Is(err, services.ErrInvalidRange):
		return apierrors.ErrValidation("range", err.Error())
	case errors.Is(err, loader.ErrFileTooLarge), errors.As(err, &tooBig):
		return apierrors.PayloadTooLarge(maxBytes)
	case errors.As(err, &schemaErr):
		return apierrors.NewWithDetails(http.StatusUnprocessableEntity, apierrors.CodeSchemaRejected,
			schemaErr.Error(), schemaErr)
	case errors.As(err, &parseErr):
		return apierrors.UploadRejected(filename, parseErr)
	case errors.Is(err, loader.ErrEncoding), errors.Is(err, loader.ErrEmptyFile),
		errors.Is(err, loader.ErrMissingHeader), errors.Is(err, loader.ErrNoRows):
		return apierrors.UploadRejected(filename, map[string]string{"reason": loader.Reason(err), "error": err.Error()})
	default:
		return err
	}
}
