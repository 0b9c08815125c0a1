package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gradeshop_api/internal/service"
	"github.com/GTDGit/gradeshop_api/internal/sse"
	"github.com/GTDGit/gradeshop_api/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string                 `json:"code"`
		Message string                 `json:"message"`
		Details map[string]interface{} `json:"details"`
	} `json:"error"`
	Meta struct {
		Pagination *struct {
			Page       int `json:"page"`
			Limit      int `json:"limit"`
			TotalItems int `json:"totalItems"`
			TotalPages int `json:"totalPages"`
		} `json:"pagination"`
	} `json:"meta"`
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

// testServer wires the catalog handlers over an in-memory store.
type testServer struct {
	store  *testutil.MemStore
	hub    *sse.Hub
	router *gin.Engine
}

func newTestServer(cache AvailabilityCache) *testServer {
	store := testutil.NewMemStore()
	catalog := service.NewCatalogService(store)
	invalidator, _ := cache.(service.StockInvalidator)
	stock := service.NewStockService(store, invalidator)

	hub := sse.NewHub()
	events := sse.NewHubNotifier(hub)

	imports := NewImportHandler(service.NewImportService(store, nil, nil, 10).WithInvalidator(invalidator), events)
	products := NewProductHandler(catalog, stock, events)
	grades := NewGradeHandler(catalog)
	availability := NewAvailabilityHandler(service.NewInventoryService(store), cache)

	r := gin.New()
	admin := r.Group("/v1/admin")
	admin.POST("/import/products", imports.ImportProducts)
	admin.POST("/import/products/single", imports.ImportSingle)
	admin.POST("/import/products/xlsx", imports.ImportWorkbook)
	admin.GET("/import/template", imports.DownloadTemplate)
	admin.GET("/products", products.ListProducts)
	admin.GET("/products/:id", products.GetProduct)
	admin.GET("/products/:id/stock", products.GetStock)
	admin.PUT("/products/:id/stock/sizes", products.UpdateSizeStock)
	admin.PUT("/products/:id/stock/grades", products.UpdateGradeStock)
	admin.PUT("/products/:id/stock-strategy", products.SetStockStrategy)
	admin.GET("/grades", grades.ListGrades)
	admin.GET("/grades/:id/templates", grades.ListTemplates)
	admin.PUT("/grades/:id/templates", grades.UpdateTemplates)
	admin.GET("/lookups/:kind", grades.ListLookups)
	r.GET("/v1/products/:id/availability", availability.GetAvailability)

	return &testServer{store: store, hub: hub, router: r}
}

func sku1Body(color string) gin.H {
	return gin.H{"products": []gin.H{{
		"codigo":    "SKU1",
		"nome":      "X",
		"categoria": "Chinelos",
		"tipo":      "Casual",
		"variantes": []gin.H{{"cor": color, "preco": 39.9, "grade": "Grade Masculina"}},
	}}}
}

func (s *testServer) seed(t *testing.T) service.BatchReport {
	t.Helper()
	w, env := doJSON(t, s.router, http.MethodPost, "/v1/admin/import/products", sku1Body("Azul"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var report service.BatchReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	return report
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

func newRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func jsonUnmarshal(data json.RawMessage, v interface{}) error {
	return json.Unmarshal(data, v)
}
