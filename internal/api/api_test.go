package api

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/reorder-planner/internal/domain"
	"github.com/andresuchdata/reorder-planner/internal/forecast"
	"github.com/andresuchdata/reorder-planner/internal/generator"
	"github.com/andresuchdata/reorder-planner/internal/ingest"
	"github.com/andresuchdata/reorder-planner/internal/service"
	"github.com/andresuchdata/reorder-planner/internal/state"
	"github.com/andresuchdata/reorder-planner/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const usPath = "/api/v1/inventory/FRAME-10x10/US"

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()

	gen := generator.New(77, nil)
	store, err := state.NewStore(
		forecast.NewCalculator(domain.DefaultRegionConfig()),
		gen.Generate(),
		domain.SimulationParameters{Month: 9, Day: 1, GrowthPct: 20, SafetyPct: 50},
		state.Options{Generator: gen},
	)
	require.NoError(t, err)

	svc := service.NewPlannerService(store, nil, nil, storage.NewLocalStorage(t.TempDir()), service.Options{})
	t.Cleanup(svc.Close)
	return NewRouter(&Services{Planner: svc}, []string{"*"})
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestHealth(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)
	w := do(t, r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestGetInventory(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)

	var view struct {
		Items  []map[string]any           `json:"items"`
		KPIs   domain.KPISummary          `json:"kpis"`
		Params domain.SimulationParameters `json:"params"`
	}
	w := do(t, r, http.MethodGet, "/api/v1/inventory?region=DE&search=10x", "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &view)

	// FRAME-10x10 only
	require.Len(t, view.Items, 1)
	assert.Equal(t, "DE", view.Items[0]["region"])
	assert.Contains(t, view.Items[0], "suggested_order")
	assert.Contains(t, view.Items[0], "recent_history")
	assert.Equal(t, 1, view.KPIs.Total)
	assert.Equal(t, 9, view.Params.Month)

	var kpis domain.KPISummary
	w = do(t, r, http.MethodGet, "/api/v1/inventory/kpis", "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &kpis)
	assert.Equal(t, len(generator.FrameSizes)*3, kpis.Total)
	assert.Equal(t, kpis.Total, kpis.StockoutRisk+kpis.Warning+kpis.Healthy)
}

func TestRecordRoutes(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)

	w := do(t, r, http.MethodGet, usPath, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodGet, "/api/v1/inventory/NOPE/US", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	var rec map[string]any
	w = do(t, r, http.MethodPatch, usPath, `{"current_stock": 100000, "active_orders": -5}`)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &rec)
	assert.EqualValues(t, 100000, rec["current_stock"])
	assert.EqualValues(t, 0, rec["active_orders"])
	assert.Equal(t, "HEALTHY", rec["status"])
	assert.EqualValues(t, 0, rec["suggested_order"])

	w = do(t, r, http.MethodPatch, usPath, `{"current_stock": "lots"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPatch, "/api/v1/inventory/FRAME-10x10/FR", `{"current_stock": 1}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateHistoryRoute(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)

	var rec struct {
		History       []float64 `json:"history"`
		RecentHistory []float64 `json:"recent_history"`
	}
	w := do(t, r, http.MethodPut, usPath+"/history/10", `{"value": 999}`)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &rec)
	assert.Equal(t, 999.0, rec.History[10])

	w = do(t, r, http.MethodPut, usPath+"/history/10?series=recent", `{"value": 5}`)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &rec)
	assert.Equal(t, 5.0, rec.RecentHistory[10])

	tests := []struct {
		name string
		path string
		body string
		code int
	}{
		{name: "month out of range", path: usPath + "/history/12", body: `{"value": 1}`, code: http.StatusUnprocessableEntity},
		{name: "month not a number", path: usPath + "/history/oct", body: `{"value": 1}`, code: http.StatusBadRequest},
		{name: "missing value", path: usPath + "/history/1", body: `{}`, code: http.StatusBadRequest},
		{name: "unknown series", path: usPath + "/history/1?series=next", body: `{"value": 1}`, code: http.StatusBadRequest},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, http.MethodPut, tt.path, tt.body)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
		})
	}
}

func TestSeasonalityRoute(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)

	var resp struct {
		Data []domain.SeasonalityPoint `json:"data"`
	}
	w := do(t, r, http.MethodGet, usPath+"/seasonality", "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	require.Len(t, resp.Data, 12)
	assert.Equal(t, "Oct", resp.Data[9].Name)
	assert.True(t, resp.Data[9].InWindow)
}

func TestSimulationRoutes(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)

	var params domain.SimulationParameters
	w := do(t, r, http.MethodPut, "/api/v1/simulation", `{"month": 1, "day": 30}`)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &params)
	assert.Equal(t, domain.SimulationParameters{Month: 1, Day: 28, GrowthPct: 20, SafetyPct: 50}, params)

	w = do(t, r, http.MethodGet, "/api/v1/simulation", "")
	decode(t, w, &params)
	assert.Equal(t, 28, params.Day)

	w = do(t, r, http.MethodPut, "/api/v1/simulation", `{"month": "feb"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var regions struct {
		Data []struct {
			Region   string `json:"region"`
			LeadTime int    `json:"lead_time"`
		} `json:"data"`
	}
	w = do(t, r, http.MethodGet, "/api/v1/regions", "")
	decode(t, w, &regions)
	require.Len(t, regions.Data, 3)
	assert.Equal(t, "DE", regions.Data[0].Region)
	assert.Equal(t, 40, regions.Data[2].LeadTime)
}

func TestSKUAndResetRoutes(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)

	var sku domain.SKU
	w := do(t, r, http.MethodPatch, "/api/v1/skus/FRAME-10x10", `{"moq": 5000, "unit_cost": 2.5}`)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &sku)
	assert.Equal(t, 5000, sku.MOQ)
	require.NotNil(t, sku.UnitCost)

	w = do(t, r, http.MethodPatch, "/api/v1/skus/NOPE", `{"moq": 1}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodPost, "/api/v1/reset", "")
	require.Equal(t, http.StatusOK, w.Code)

	var rec map[string]any
	w = do(t, r, http.MethodGet, usPath, "")
	decode(t, w, &rec)
	assert.NotEqualValues(t, 5000, rec["moq"])
}

func TestExportRoute(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)

	w := do(t, r, http.MethodGet, "/api/v1/export?format=csv&region=UK", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".csv")
	lines, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	assert.Len(t, lines, len(generator.FrameSizes)+1)

	w = do(t, r, http.MethodGet, "/api/v1/export?format=xlsx", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "spreadsheetml")

	w = do(t, r, http.MethodGet, "/api/v1/export?format=pdf", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var published struct {
		Key string `json:"key"`
	}
	w = do(t, r, http.MethodPost, "/api/v1/reports?format=csv", "")
	require.Equal(t, http.StatusCreated, w.Code)
	decode(t, w, &published)
	assert.True(t, strings.HasPrefix(published.Key, "reports/"))
}

func TestInventoryStatusFilter(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)

	var all struct {
		Items []map[string]any `json:"items"`
	}
	w := do(t, r, http.MethodGet, "/api/v1/inventory", "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &all)

	healthy := 0
	for _, item := range all.Items {
		if item["status"] == string(domain.StatusHealthy) {
			healthy++
		}
	}

	var view struct {
		Items []map[string]any  `json:"items"`
		KPIs  domain.KPISummary `json:"kpis"`
	}
	w = do(t, r, http.MethodGet, "/api/v1/inventory?status=healthy", "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &view)
	assert.Len(t, view.Items, healthy)
	for _, item := range view.Items {
		assert.Equal(t, string(domain.StatusHealthy), item["status"])
	}
	assert.Equal(t, healthy, view.KPIs.Total)

	var kpis domain.KPISummary
	w = do(t, r, http.MethodGet, "/api/v1/inventory/kpis?status=healthy", "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &kpis)
	assert.Equal(t, healthy, kpis.Healthy)
	assert.Equal(t, healthy, kpis.Total)

	w = do(t, r, http.MethodGet, "/api/v1/inventory?status=warning,stockout&status=critical&status=healthy", "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &view)
	assert.Len(t, view.Items, len(all.Items))

	w = do(t, r, http.MethodGet, "/api/v1/inventory?status=late", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(t, r, http.MethodGet, "/api/v1/inventory/kpis?status=late", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportListAndDownload(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)

	var listed struct {
		Data []storage.ObjectInfo `json:"data"`
	}
	w := do(t, r, http.MethodGet, "/api/v1/reports", "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &listed)
	assert.Empty(t, listed.Data)

	var published struct {
		Key string `json:"key"`
	}
	w = do(t, r, http.MethodPost, "/api/v1/reports?format=csv&region=US", "")
	require.Equal(t, http.StatusCreated, w.Code)
	decode(t, w, &published)

	w = do(t, r, http.MethodGet, "/api/v1/reports", "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &listed)
	require.Len(t, listed.Data, 1)
	assert.Equal(t, published.Key, listed.Data[0].Key)
	assert.Positive(t, listed.Data[0].Size)

	w = do(t, r, http.MethodGet, "/api/v1/"+published.Key, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), path.Base(published.Key))
	lines, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	assert.Len(t, lines, len(generator.FrameSizes)+1)

	w = do(t, r, http.MethodGet, "/api/v1/reports/2026-10-14/missing.csv", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReportRoutesWithoutStorage(t *testing.T) {
	t.Parallel()

	gen := generator.New(5, nil)
	store, err := state.NewStore(
		forecast.NewCalculator(domain.DefaultRegionConfig()),
		gen.Generate(),
		domain.SimulationParameters{Month: 9, Day: 1},
		state.Options{Generator: gen},
	)
	require.NoError(t, err)
	svc := service.NewPlannerService(store, nil, nil, nil, service.Options{})
	t.Cleanup(svc.Close)
	r := NewRouter(&Services{Planner: svc}, []string{"*"})

	assert.Equal(t, http.StatusServiceUnavailable, do(t, r, http.MethodGet, "/api/v1/reports", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, r, http.MethodPost, "/api/v1/reports?format=csv", "").Code)
}

func TestImportRoute(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)

	history := make([]float64, domain.MonthsPerYear)
	ds := domain.Dataset{
		SKUs:    []domain.SKU{{ID: "IMP-1", MOQ: 5}},
		Records: []domain.InventoryRecord{{SKUID: "IMP-1", Region: "UK", CurrentStock: 3, History: history}},
	}
	var body bytes.Buffer
	require.NoError(t, ingest.WriteCSV(&body, ds))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/import", &body)
	req.Header.Set("Content-Type", "text/csv")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var view struct {
		Items []map[string]any `json:"items"`
	}
	decode(t, w, &view)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "IMP-1", view.Items[0]["sku_id"])

	bad := "sku,region,h_jan\nA,US,1\n"
	req = httptest.NewRequest(http.MethodPost, "/api/v1/import", strings.NewReader(bad))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// form-encoded bodies are still read as raw csv
	body.Reset()
	require.NoError(t, ingest.WriteCSV(&body, ds))
	req = httptest.NewRequest(http.MethodPost, "/api/v1/import", bytes.NewReader(body.Bytes()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &view)
	require.Len(t, view.Items, 1)

	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	part, err := mw.CreateFormFile("file", "records.csv")
	require.NoError(t, err)
	require.NoError(t, ingest.WriteCSV(part, ds))
	require.NoError(t, mw.Close())
	req = httptest.NewRequest(http.MethodPost, "/api/v1/import", &form)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	form.Reset()
	mw = multipart.NewWriter(&form)
	require.NoError(t, mw.WriteField("note", "no file"))
	require.NoError(t, mw.Close())
	req = httptest.NewRequest(http.MethodPost, "/api/v1/import", &form)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// a header without rows is an empty dataset
	body.Reset()
	require.NoError(t, ingest.WriteCSV(&body, domain.Dataset{}))
	req = httptest.NewRequest(http.MethodPost, "/api/v1/import", &body)
	req.Header.Set("Content-Type", "text/csv")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	// unknown region rejects the import and keeps the data
	ds.Records[0].Region = "JP"
	body.Reset()
	require.NoError(t, ingest.WriteCSV(&body, ds))
	req = httptest.NewRequest(http.MethodPost, "/api/v1/import", &body)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestNormalizeAllowedOrigins(t *testing.T) {
	t.Parallel()

	origins, all := normalizeAllowedOrigins([]string{"http://a.test, http://b.test", " "})
	assert.False(t, all)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, origins)

	_, all = normalizeAllowedOrigins([]string{"*"})
	assert.True(t, all)
}
