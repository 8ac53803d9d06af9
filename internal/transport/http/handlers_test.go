package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"netdash/internal/config"
	apierrors "netdash/internal/errors"
	"netdash/internal/loader"
	"netdash/internal/middleware"
	"netdash/internal/services"
	"netdash/internal/session"
	"netdash/internal/shared/testutil"
	"netdash/internal/views"
)

type testServer struct {
	*httptest.Server
	store *session.Store
	logs  *testutil.LogRecorder
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger, logs := testutil.NewTestLogger(t)

	cfg := config.SessionConfig{CookieName: "netdash_session", IdleTTL: time.Hour, MaxSessions: 20}
	store := session.NewStore(cfg, logger)
	codec, err := session.NewCodec("handler-tests")
	require.NoError(t, err)

	ld := loader.New(logger, loader.Limits{MaxFileBytes: 1 << 20, Separator: ';', MaxConcurrentParses: 2})
	svc := services.NewDashboardService(ld, views.NewRegistry(), nil, logger)
	validator := middleware.NewValidator()
	errorHandler := apierrors.NewErrorHandler(logger, false)

	dashboard := NewDashboardHandler(svc, validator, errorHandler, 1<<20, logger)
	html, err := NewHTMLHandler(svc, validator, 1<<20, "test", logger)
	require.NoError(t, err)
	clientLogs := NewClientLogHandler(validator, errorHandler, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.NewSessions(store, codec, cfg, false, logger).Handler)
	r.Mount("/", html.Routes())
	r.Route("/api", func(r chi.Router) {
		r.Mount("/datasets", dashboard.Routes())
		r.Post("/client-logs", clientLogs.Handle)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, store: store, logs: logs}
}

// client returns a browser-like client with its own cookie jar
func (s *testServer) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

type upload struct {
	name string
	body string
}

func multipartBody(t *testing.T, fields map[string]string, files ...upload) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile("files", f.name)
		require.NoError(t, err)
		_, err = io.WriteString(fw, f.body)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func postFiles(t *testing.T, c *http.Client, target string, fields map[string]string, files ...upload) *http.Response {
	t.Helper()
	body, ct := multipartBody(t, fields, files...)
	resp, err := c.Post(target, ct, body)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, c *http.Client, target string) *http.Response {
	t.Helper()
	resp, err := c.Get(target)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func do(t *testing.T, c *http.Client, method, target string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, target, nil)
	require.NoError(t, err)
	resp, err := c.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestAPIUploadAndView(t *testing.T) {
	s := newTestServer(t)
	c := s.client(t)

	resp := postFiles(t, c, s.URL+"/api/datasets", nil, upload{"disponibilidad_2025.csv", testutil.AvailabilityCSV})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, "success", body["status"])
	results := body["data"].([]interface{})
	require.Len(t, results, 1)
	result := results[0].(map[string]interface{})["result"].(map[string]interface{})
	assert.Equal(t, "availability", result["kind"])
	assert.Equal(t, float64(4), result["rows"])

	resp = get(t, c, s.URL+"/api/datasets/availability/view?month=1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = decode(t, resp)
	view := body["data"].(map[string]interface{})
	assert.Equal(t, float64(2), view["row_count"])
	assert.Equal(t, "Availability", view["title"])
	assert.Equal(t, []interface{}{"1"}, body["selection"].(map[string]interface{})["month"])

	// The selection sticks to the session
	resp = get(t, c, s.URL+"/api/datasets/availability/view")
	body = decode(t, resp)
	assert.Equal(t, float64(2), body["data"].(map[string]interface{})["row_count"])

	resp = get(t, c, s.URL+"/api/datasets/availability/view?month=all")
	body = decode(t, resp)
	assert.Equal(t, float64(4), body["data"].(map[string]interface{})["row_count"])

	resp = get(t, c, s.URL+"/api/datasets/availability/filters")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	controls := decode(t, resp)["data"].(map[string]interface{})
	assert.Equal(t, []interface{}{"2025"}, controls["years"])
	assert.Equal(t, []interface{}{"A", "B"}, controls["sites"])

	resp = get(t, c, s.URL+"/api/datasets")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	overview := decode(t, resp)["data"].(map[string]interface{})
	assert.Equal(t, "Overview", overview["title"])
}

func chartByID(t *testing.T, view map[string]interface{}, id string) map[string]interface{} {
	t.Helper()
	for _, c := range view["charts"].([]interface{}) {
		chart := c.(map[string]interface{})
		if chart["id"] == id {
			return chart
		}
	}
	t.Fatalf("chart %q not found", id)
	return nil
}

func TestAPIRepeatedQueryValues(t *testing.T) {
	s := newTestServer(t)
	c := s.client(t)
	postFiles(t, c, s.URL+"/api/datasets", nil,
		upload{"disponibilidad.csv", testutil.AvailabilityCSV},
		upload{"desempeno.csv", testutil.PerformanceCSV},
	)

	rows := func(query string) float64 {
		t.Helper()
		resp := get(t, c, s.URL+"/api/datasets/availability/view?"+query)
		require.Equal(t, http.StatusOK, resp.StatusCode, query)
		return decode(t, resp)["data"].(map[string]interface{})["row_count"].(float64)
	}
	assert.Equal(t, float64(4), rows("site=A&site=B"))
	assert.Equal(t, float64(2), rows("site=A&site=B&month=2"))
	assert.Equal(t, float64(2), rows("site=A&month=1&month=February"))
	assert.Equal(t, float64(1), rows("site=A&site=Z&month=jan"))

	resp := get(t, c, s.URL+"/api/datasets/availability/view?site=A&site=B&month=2")
	sel := decode(t, resp)["selection"].(map[string]interface{})
	assert.Equal(t, []interface{}{"A", "B"}, sel["site"])
	assert.Equal(t, []interface{}{"all"}, sel["department"])

	resp = get(t, c, s.URL+"/api/datasets/availability/view?month=jan&month=13")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = get(t, c, s.URL+"/api/datasets/performance/view?site=all&metric=DL_Data_Traffic_MB&metric=UL_Data_Traffic_MB")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decode(t, resp)["data"].(map[string]interface{})
	over := chartByID(t, view, "metric_over_time")
	assert.Len(t, over["series"], 4)
	assert.Len(t, chartByID(t, view, "site_means")["series"], 2)
}

func TestAPIUploadErrors(t *testing.T) {
	tests := []struct {
		name    string
		fields  map[string]string
		file    upload
		status  int
		code    string
		problem string
	}{
		{
			name:    "kind not detected",
			file:    upload{"export.csv", testutil.AvailabilityCSV},
			status:  http.StatusBadRequest,
			code:    apierrors.CodeKindNotDetected,
			problem: apierrors.TypeDatasetUndetected,
		},
		{
			name:    "unknown declared kind",
			fields:  map[string]string{"kind": "weather"},
			file:    upload{"x.csv", testutil.AvailabilityCSV},
			status:  http.StatusBadRequest,
			code:    apierrors.CodeUnknownKind,
			problem: apierrors.TypeDatasetUnknown,
		},
		{
			name:    "header only",
			file:    upload{"calidad.csv", "start_time;Site_Name;LTE_RRC_SR\n"},
			status:  http.StatusUnprocessableEntity,
			code:    apierrors.CodeUploadRejected,
			problem: apierrors.TypeUploadRejected,
		},
		{
			name:    "missing required column",
			fields:  map[string]string{"kind": "alarms"},
			file:    upload{"data.csv", "Site_Name;alarm_id\nLIM001;1\n"},
			status:  http.StatusUnprocessableEntity,
			code:    apierrors.CodeSchemaRejected,
			problem: apierrors.TypeSchemaRejected,
		},
		{
			name:    "too large",
			file:    upload{"calidad.csv", "start_time;x\n" + strings.Repeat("2025-01-01 00:00:00;1\n", 60000)},
			status:  http.StatusRequestEntityTooLarge,
			code:    apierrors.CodePayloadTooLarge,
			problem: apierrors.TypePayloadTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			c := s.client(t)

			resp := postFiles(t, c, s.URL+"/api/datasets", tt.fields, tt.file)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))
			body := decode(t, resp)
			assert.Equal(t, tt.code, body["error_code"])
			assert.Equal(t, tt.problem, body["type"])

			resp = get(t, c, s.URL+"/api/datasets")
			overview := decode(t, resp)["data"].(map[string]interface{})
			assert.Equal(t, "0 / 7", overview["metrics"].([]interface{})[0].(map[string]interface{})["value"])
		})
	}
}

func TestAPIUploadPartial(t *testing.T) {
	s := newTestServer(t)
	c := s.client(t)

	resp := postFiles(t, c, s.URL+"/api/datasets", nil,
		upload{"calidad.csv", testutil.QualityCSV},
		upload{"unknown.csv", testutil.QualityCSV},
	)
	assert.Equal(t, http.StatusMultiStatus, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, "partial", body["status"])
	assert.Equal(t, float64(1), body["count"])

	outcomes := body["data"].([]interface{})
	require.Len(t, outcomes, 2)
	assert.Contains(t, outcomes[0], "result")
	assert.Contains(t, outcomes[1], "error")
}

func TestAPIUploadNeedsMultipart(t *testing.T) {
	s := newTestServer(t)
	resp, err := s.client(t).Post(s.URL+"/api/datasets", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestAPIViewErrors(t *testing.T) {
	s := newTestServer(t)
	c := s.client(t)
	postFiles(t, c, s.URL+"/api/datasets", nil, upload{"disponibilidad.csv", testutil.AvailabilityCSV})

	tests := []struct {
		name   string
		path   string
		status int
		code   string
	}{
		{"not loaded", "/api/datasets/alarms/view", http.StatusNotFound, apierrors.CodeDatasetNotLoaded},
		{"unknown kind", "/api/datasets/weather/view", http.StatusBadRequest, apierrors.CodeUnknownKind},
		{"projects have no view", "/api/datasets/projects/view", http.StatusNotFound, apierrors.CodeNotFound},
		{"bad month", "/api/datasets/availability/view?month=13", http.StatusBadRequest, apierrors.CodeValidationFailed},
		{"bad limit", "/api/datasets/availability/view?limit=ten", http.StatusBadRequest, apierrors.CodeValidationFailed},
		{"custom range without dates", "/api/datasets/availability/view?range=custom", http.StatusBadRequest, apierrors.CodeValidationFailed},
		{"bad range", "/api/datasets/availability/view?range=2w", http.StatusBadRequest, apierrors.CodeValidationFailed},
		{"custom range reversed", "/api/datasets/availability/view?range=custom&from=2025-02-01&to=2025-01-01", http.StatusBadRequest, apierrors.CodeValidationFailed},
		{"bad export format", "/api/datasets/availability/export?format=pdf", http.StatusBadRequest, apierrors.CodeValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := get(t, c, s.URL+tt.path)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.code, decode(t, resp)["error_code"])
		})
	}
}

func TestAPICustomRange(t *testing.T) {
	s := newTestServer(t)
	c := s.client(t)
	postFiles(t, c, s.URL+"/api/datasets", nil, upload{"disponibilidad.csv", testutil.AvailabilityCSV})

	resp := get(t, c, s.URL+"/api/datasets/availability/view?range=custom&from=2025-02-10&to=2025-02-10")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), decode(t, resp)["data"].(map[string]interface{})["row_count"])
}

func TestAPIExportCSV(t *testing.T) {
	s := newTestServer(t)
	c := s.client(t)
	postFiles(t, c, s.URL+"/api/datasets", nil, upload{"disponibilidad.csv", testutil.AvailabilityCSV})

	resp := get(t, c, s.URL+"/api/datasets/availability/export?format=csv&month=2")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, contentTypeCSV, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), `attachment; filename="netdash_availability_`)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.HasPrefix(text, "\ufeff"))
	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(text, "\ufeff")), "\n")
	assert.Len(t, lines, 3, "header and the two February rows")
}

func TestAPIExportDefaultsToCSV(t *testing.T) {
	s := newTestServer(t)
	c := s.client(t)
	postFiles(t, c, s.URL+"/api/datasets", nil, upload{"calidad.csv", testutil.QualityCSV})

	resp := get(t, c, s.URL+"/api/datasets/quality/export")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, contentTypeCSV, resp.Header.Get("Content-Type"))
}

func TestAPIExportActiveAlarms(t *testing.T) {
	s := newTestServer(t)
	c := s.client(t)

	resp := get(t, c, s.URL+"/api/datasets/alarms/active.xlsx")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	postFiles(t, c, s.URL+"/api/datasets", nil, upload{"averias.csv", testutil.AlarmsCSV})
	resp = get(t, c, s.URL+"/api/datasets/alarms/active.xlsx")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, contentTypeXLSX, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "netdash_active_alarms_")

	f, err := excelize.OpenReader(resp.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Active Alarms")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Contains(t, rows[0], "site")
	assert.Contains(t, rows[1], "CUS002")
}

func TestAPIRemoveAndClear(t *testing.T) {
	s := newTestServer(t)
	c := s.client(t)
	postFiles(t, c, s.URL+"/api/datasets", nil,
		upload{"disponibilidad.csv", testutil.AvailabilityCSV},
		upload{"calidad.csv", testutil.QualityCSV},
	)

	resp := do(t, c, http.MethodDelete, s.URL+"/api/datasets/availability")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, c, http.MethodDelete, s.URL+"/api/datasets/availability")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, c, http.MethodDelete, s.URL+"/api/datasets")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), decode(t, resp)["removed"])

	resp = get(t, c, s.URL+"/api/datasets/quality/view")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSessionsAreIsolated(t *testing.T) {
	s := newTestServer(t)
	alice, bob := s.client(t), s.client(t)

	postFiles(t, alice, s.URL+"/api/datasets", nil, upload{"calidad.csv", testutil.QualityCSV})

	resp := get(t, alice, s.URL+"/api/datasets/quality/view")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = get(t, bob, s.URL+"/api/datasets/quality/view")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, 2, s.store.Len())
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func TestPage(t *testing.T) {
	s := newTestServer(t)
	c := s.client(t)

	resp := get(t, c, s.URL+"/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
	page := readBody(t, resp)
	assert.Contains(t, page, "Network Dashboard")
	assert.Contains(t, page, ChartLibraryURL)
	for _, tab := range []string{"Overview", "Alarms", "Performance", "Configuration", "Provision", "Availability", "Quality"} {
		assert.Contains(t, page, ">"+tab)
	}

	resp = get(t, c, s.URL+"/?tab=alarms")
	assert.Contains(t, readBody(t, resp), "No Alarms data loaded")

	resp = get(t, c, s.URL+"/?tab=nonsense")
	assert.Contains(t, readBody(t, resp), "Unknown tab")
}

func TestPageUploadRedirectsToTab(t *testing.T) {
	s := newTestServer(t)
	c := s.client(t)

	resp := postFiles(t, c, s.URL+"/upload", map[string]string{"kind": "auto"}, upload{"disponibilidad.csv", testutil.AvailabilityCSV})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/?tab=availability", resp.Header.Get("Location"))

	resp = get(t, c, s.URL+"/?tab=availability&month=all")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := readBody(t, resp)
	assert.Contains(t, page, `id="chart-availability_by_site"`)
	assert.Contains(t, page, "Download CSV")
	assert.Contains(t, page, "/api/datasets/availability/export?format=csv")
	assert.NotContains(t, page, "month=all")
	assert.Contains(t, page, `"labels"`)
}

func TestPageMultipleSelections(t *testing.T) {
	s := newTestServer(t)
	c := s.client(t)
	postFiles(t, c, s.URL+"/upload", nil, upload{"disponibilidad.csv", testutil.AvailabilityCSV})

	resp := get(t, c, s.URL+"/?tab=availability&site=A&site=B&month=2")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := readBody(t, resp)
	assert.Contains(t, page, `<select id="site" name="site" multiple`)
	assert.Contains(t, page, `<option value="A" selected>A</option>`)
	assert.Contains(t, page, `<option value="B" selected>B</option>`)
	assert.Contains(t, page, `<option value="2" selected>2</option>`)
	assert.Contains(t, page, `<option value="1" >1</option>`)
	assert.Contains(t, page, "site=B")
}

func TestPageUploadShowsErrors(t *testing.T) {
	s := newTestServer(t)
	c := s.client(t)

	resp := postFiles(t, c, s.URL+"/upload", nil,
		upload{"calidad.csv", testutil.QualityCSV},
		upload{"mystery.csv", testutil.QualityCSV},
	)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := readBody(t, resp)
	assert.Contains(t, page, "calidad.csv: loaded as Quality")
	assert.Contains(t, page, "mystery.csv: rejected")

	resp = postFiles(t, c, s.URL+"/upload", nil, upload{"mystery.csv", testutil.QualityCSV})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestPageProvisionDrillDown(t *testing.T) {
	s := newTestServer(t)
	c := s.client(t)
	postFiles(t, c, s.URL+"/api/datasets", nil, upload{"provision.csv", testutil.ProvisionCSV})

	resp := get(t, c, s.URL+"/?tab=provision")
	page := readBody(t, resp)
	link := "/?" + url.Values{"path": {"LIMA"}, "tab": {"provision"}}.Encode()
	assert.Contains(t, page, strings.ReplaceAll(link, "&", "&amp;"))

	resp = get(t, c, s.URL+"/?tab=provision&path=LIMA")
	page = readBody(t, resp)
	assert.Contains(t, page, "HUARAL")
}

func TestPageRemoveAndClear(t *testing.T) {
	s := newTestServer(t)
	c := s.client(t)
	postFiles(t, c, s.URL+"/api/datasets", nil,
		upload{"disponibilidad.csv", testutil.AvailabilityCSV},
		upload{"calidad.csv", testutil.QualityCSV},
	)

	resp, err := c.PostForm(s.URL+"/datasets/availability/remove", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, http.StatusNotFound, get(t, c, s.URL+"/api/datasets/availability/view").StatusCode)

	resp, err = c.PostForm(s.URL+"/clear", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, http.StatusNotFound, get(t, c, s.URL+"/api/datasets/quality/view").StatusCode)
}

func TestClientLogs(t *testing.T) {
	s := newTestServer(t)
	c := s.client(t)

	resp, err := c.Post(s.URL+"/api/client-logs", "application/json",
		strings.NewReader(`{"level":"error","message":"chart render failed","source":"charts","data":{"chart":"top_sites"}}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	testutil.AssertLogged(t, s.logs, slog.LevelError, "chart render failed")

	for _, body := range []string{`{"level":"fatal","message":"x"}`, `{"level":"info"}`, `not json`} {
		resp, err := c.Post(s.URL+"/api/client-logs", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}
}
