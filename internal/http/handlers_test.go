package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/inventory-pos-service/internal/config"
	"github.com/fairyhunter13/inventory-pos-service/internal/model"
	"github.com/fairyhunter13/inventory-pos-service/internal/obs"
	"github.com/fairyhunter13/inventory-pos-service/internal/queue"
	"github.com/fairyhunter13/inventory-pos-service/internal/sales"
	"github.com/fairyhunter13/inventory-pos-service/internal/store"
)

type errResp struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

func setupApp(t *testing.T) (*App, store.Store, *queue.Manager, http.Handler) {
	t.Helper()
	cfg := config.Load()
	obs.InitLogger("error")
	st := store.NewMemory()
	return setupAppWithStore(t, cfg, st)
}

func setupAppWithStore(t *testing.T, cfg config.Config, st store.Store) (*App, store.Store, *queue.Manager, http.Handler) {
	t.Helper()
	mgr := queue.NewManager(cfg, queue.New(128), queue.LogPublisher{})
	ctx, cancel := context.WithCancel(context.Background())
	mgr.Start(ctx)
	t.Cleanup(func() { cancel(); mgr.Stop() })
	sp := sales.New(st, sales.WithAlertSink(mgr))
	app := NewApp(cfg, st, sp, mgr)
	return app, st, mgr, NewRouter(app)
}

func seedProduct(t *testing.T, st store.Store, name, price string, stock, reorder int64) model.Product {
	t.Helper()
	p := model.Product{Name: name, Category: "Tools", Price: decimal.RequireFromString(price), StockQuantity: stock, ReorderLevel: reorder}
	if err := st.CreateProduct(context.Background(), &p); err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p
}

func doJSON(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func decodeErr(t *testing.T, rr *httptest.ResponseRecorder) errResp {
	t.Helper()
	var e errResp
	if err := json.Unmarshal(rr.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode error body %q: %v", rr.Body.String(), err)
	}
	return e
}

func TestOpenAPIServed(t *testing.T) {
	_, _, _, mux := setupApp(t)
	rr := doJSON(mux, http.MethodGet, "/openapi.yaml", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !bytes.Contains(rr.Body.Bytes(), []byte("openapi:")) || !bytes.Contains(rr.Body.Bytes(), []byte("/sales")) {
		t.Fatalf("expected openapi content")
	}
}

func TestDocsServed(t *testing.T) {
	_, _, _, mux := setupApp(t)
	rr := doJSON(mux, http.MethodGet, "/docs", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "swagger-ui") {
		t.Fatalf("expected swagger-ui docs, got %d", rr.Code)
	}
}

func TestHealthzOK(t *testing.T) {
	_, _, _, mux := setupApp(t)
	rr := doJSON(mux, http.MethodGet, "/healthz", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected generated request id")
	}
}

func TestPostSale_HappyPathRaisesNotification(t *testing.T) {
	_, st, _, mux := setupApp(t)
	p := seedProduct(t, st, "Widget", "9.99", 10, 5)

	rr := doJSON(mux, http.MethodPost, "/sales", `{"items":[{"product_id":`+itoa(p.ID)+`,"quantity":6}]}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"total_price":"59.94"`) {
		t.Fatalf("expected decimal string total, got %s", rr.Body.String())
	}
	var res model.SaleResult
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode sale: %v", err)
	}
	if res.Status != "ok" || len(res.Sales) != 1 || res.Sales[0].ProductName != "Widget" || res.Sales[0].Quantity != 6 {
		t.Fatalf("unexpected result: %+v", res)
	}

	rr = doJSON(mux, http.MethodGet, "/notifications", "")
	var ns []model.Notification
	if err := json.Unmarshal(rr.Body.Bytes(), &ns); err != nil {
		t.Fatalf("decode notifications: %v", err)
	}
	if len(ns) != 1 || ns[0].Message != "Low stock: Widget (qty: 4)" || ns[0].Seen {
		t.Fatalf("unexpected notifications: %+v", ns)
	}

	rr = doJSON(mux, http.MethodPost, "/notifications/"+itoa(ns[0].ID)+"/seen", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var seen seenResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &seen)
	if seen.ID != ns[0].ID || !seen.Seen {
		t.Fatalf("unexpected seen response: %+v", seen)
	}

	rr = doJSON(mux, http.MethodGet, "/sales", "")
	var views []model.SaleView
	if err := json.Unmarshal(rr.Body.Bytes(), &views); err != nil {
		t.Fatalf("decode sales: %v", err)
	}
	if len(views) != 1 || views[0].QuantitySold != 6 || !views[0].TotalPrice.Equal(decimal.RequireFromString("59.94")) {
		t.Fatalf("unexpected sales: %+v", views)
	}
}

func TestPostSale_ErrorMapping(t *testing.T) {
	_, st, _, mux := setupApp(t)
	p := seedProduct(t, st, "Bolt", "0.50", 3, 1)

	cases := []struct {
		name   string
		body   string
		status int
		msg    string
	}{
		{"empty items", `{"items":[]}`, http.StatusBadRequest, "No items in sale"},
		{"missing items", `{}`, http.StatusBadRequest, "No items in sale"},
		{"not enough stock", `{"items":[{"product_id":` + itoa(p.ID) + `,"quantity":4}]}`, http.StatusBadRequest, "Not enough stock for Bolt"},
		{"unknown product", `{"items":[{"product_id":999,"quantity":1}]}`, http.StatusNotFound, "product 999 not found"},
		{"negative product id", `{"items":[{"product_id":-1,"quantity":1}]}`, http.StatusNotFound, "product -1 not found"},
		{"unknown field", `{"items":[],"coupon":"x"}`, http.StatusBadRequest, "invalid_json"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := doJSON(mux, http.MethodPost, "/sales", tc.body)
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rr.Code, rr.Body.String())
			}
			if e := decodeErr(t, rr); e.Error != tc.msg {
				t.Fatalf("expected %q, got %q", tc.msg, e.Error)
			}
		})
	}

	prods, _ := st.ListProducts(context.Background())
	if prods[0].StockQuantity != 3 {
		t.Fatalf("rejected batches must not change stock, got %d", prods[0].StockQuantity)
	}
}

func TestPostSale_LenientSkipsMalformedItems(t *testing.T) {
	_, st, _, mux := setupApp(t)
	p := seedProduct(t, st, "Nut", "1.00", 10, 0)
	body := `{"items":[{"quantity":2},{"product_id":` + itoa(p.ID) + `,"quantity":0},{"product_id":` + itoa(p.ID) + `,"quantity":2}]}`
	rr := doJSON(mux, http.MethodPost, "/sales", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	var res model.SaleResult
	_ = json.Unmarshal(rr.Body.Bytes(), &res)
	if len(res.Sales) != 1 {
		t.Fatalf("expected only the well-formed item, got %+v", res.Sales)
	}
}

type brokenStore struct {
	store.Store
}

func (brokenStore) WithinTx(context.Context, func(store.Tx) error) error {
	return errors.New("connection refused")
}

func TestPostSale_StorageFailure(t *testing.T) {
	obs.InitLogger("error")
	_, _, _, mux := setupAppWithStore(t, config.Load(), brokenStore{Store: store.NewMemory()})
	rr := doJSON(mux, http.MethodPost, "/sales", `{"items":[{"product_id":1,"quantity":1}]}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	e := decodeErr(t, rr)
	if e.Error != "db error" || !strings.Contains(e.Detail, "connection refused") {
		t.Fatalf("unexpected error body: %+v", e)
	}
}

func TestPostSale_UnsupportedMediaType(t *testing.T) {
	_, _, _, mux := setupApp(t)
	req := httptest.NewRequest(http.MethodPost, "/sales", bytes.NewBufferString("{}"))
	req.Header.Set("Content-Type", "text/plain")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", rr.Code)
	}
}

func TestMarkSeen_NotFound(t *testing.T) {
	_, _, _, mux := setupApp(t)
	for _, path := range []string{"/notifications/42/seen", "/notifications/abc/seen"} {
		if rr := doJSON(mux, http.MethodPost, path, ""); rr.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, rr.Code)
		}
	}
}

func TestAPIPrefix(t *testing.T) {
	_, st, _, mux := setupApp(t)
	p := seedProduct(t, st, "Saw", "12.00", 2, 0)
	rr := doJSON(mux, http.MethodPost, "/api/sales", `{"items":[{"product_id":`+itoa(p.ID)+`,"quantity":1}]}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 under /api, got %d", rr.Code)
	}
	if rr := doJSON(mux, http.MethodGet, "/api/dashboard-summary", ""); rr.Code != http.StatusOK {
		t.Fatalf("expected 200 under /api, got %d", rr.Code)
	}
}

func TestDashboardSummary(t *testing.T) {
	_, st, _, mux := setupApp(t)
	seedProduct(t, st, "Hammer", "10.00", 3, 5)
	seedProduct(t, st, "Drill", "50.00", 20, 5)
	rr := doJSON(mux, http.MethodGet, "/dashboard-summary", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var sum model.DashboardSummary
	if err := json.Unmarshal(rr.Body.Bytes(), &sum); err != nil {
		t.Fatalf("decode dashboard: %v", err)
	}
	if sum.ProductCount != 2 || sum.LowStockCount != 1 || !sum.StockValue.Equal(decimal.NewFromInt(1030)) {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if rr := doJSON(mux, http.MethodPost, "/dashboard-summary", "{}"); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}

func TestProductsCRUD(t *testing.T) {
	_, _, _, mux := setupApp(t)

	if rr := doJSON(mux, http.MethodPost, "/products", `{"category":"Tools"}`); rr.Code != http.StatusBadRequest || decodeErr(t, rr).Error != "Product name is required" {
		t.Fatalf("expected name validation, got %d %s", rr.Code, rr.Body.String())
	}
	if rr := doJSON(mux, http.MethodPost, "/products", `{"name":"X","price":-1}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on negative price, got %d", rr.Code)
	}
	if rr := doJSON(mux, http.MethodPost, "/products", `{"name":"X","supplier_id":77}`); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on unknown supplier, got %d", rr.Code)
	}

	rr := doJSON(mux, http.MethodPost, "/products", `{"name":" Pliers ","price":"4.25","stock_quantity":8}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var p model.Product
	_ = json.Unmarshal(rr.Body.Bytes(), &p)
	if p.ID == 0 || p.Name != "Pliers" || p.ReorderLevel != 5 || !p.Price.Equal(decimal.RequireFromString("4.25")) {
		t.Fatalf("unexpected product: %+v", p)
	}

	rr = doJSON(mux, http.MethodPut, "/products/"+itoa(p.ID), `{"stock_quantity":2,"reorder_level":0}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	_ = json.Unmarshal(rr.Body.Bytes(), &p)
	if p.StockQuantity != 2 || p.ReorderLevel != 0 || p.Name != "Pliers" {
		t.Fatalf("unexpected updated product: %+v", p)
	}
	if rr := doJSON(mux, http.MethodPut, "/products/9999", `{"stock_quantity":1}`); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if rr := doJSON(mux, http.MethodPut, "/products/"+itoa(p.ID), `{"name":"  "}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on blank name, got %d", rr.Code)
	}

	rr = doJSON(mux, http.MethodGet, "/products", "")
	var list []model.Product
	_ = json.Unmarshal(rr.Body.Bytes(), &list)
	if len(list) != 1 {
		t.Fatalf("expected 1 product, got %d", len(list))
	}
}

func TestSuppliers(t *testing.T) {
	_, _, _, mux := setupApp(t)
	if rr := doJSON(mux, http.MethodPost, "/suppliers", `{"name":"   "}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	rr := doJSON(mux, http.MethodPost, "/suppliers", `{"name":"Acme","contact":" "}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	var s model.Supplier
	_ = json.Unmarshal(rr.Body.Bytes(), &s)
	if s.ID == 0 || s.Contact != nil {
		t.Fatalf("unexpected supplier: %+v", s)
	}
	rr = doJSON(mux, http.MethodPost, "/products", `{"name":"Rope","supplier_id":`+itoa(s.ID)+`}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected product with known supplier, got %d", rr.Code)
	}
	rr = doJSON(mux, http.MethodGet, "/suppliers", "")
	var list []model.Supplier
	_ = json.Unmarshal(rr.Body.Bytes(), &list)
	if len(list) != 1 || list[0].Name != "Acme" {
		t.Fatalf("unexpected suppliers: %+v", list)
	}
}

func TestMetricsHandler(t *testing.T) {
	_, st, mgr, mux := setupApp(t)
	p := seedProduct(t, st, "Tape", "2.00", 5, 5)
	for i := 0; i < 3; i++ {
		if rr := doJSON(mux, http.MethodPost, "/sales", `{"items":[{"product_id":`+itoa(p.ID)+`,"quantity":1}]}`); rr.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", rr.Code)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if ok := mgr.DrainUntil(ctx); !ok {
		t.Fatalf("drain timeout")
	}
	rr := doJSON(mux, http.MethodGet, "/debug/metrics", "")
	var m struct {
		Sales       sales.Stats   `json:"sales"`
		Alerts      queue.Metrics `json:"alerts"`
		WorkerCount int           `json:"worker_count"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &m); err != nil {
		t.Fatalf("metrics json decode: %v", err)
	}
	if m.Sales.BatchesCommitted != 3 || m.Sales.NotificationsRaised != 3 {
		t.Fatalf("unexpected sales stats: %+v", m.Sales)
	}
	if m.Alerts.Enqueued != 3 || m.Alerts.Processed != 3 || m.WorkerCount < 1 {
		t.Fatalf("unexpected alert metrics: %+v worker_count=%d", m.Alerts, m.WorkerCount)
	}
}

func TestShutdownBehavior(t *testing.T) {
	app, _, _, mux := setupApp(t)
	app.StartShutdown()
	if rr := doJSON(mux, http.MethodPost, "/sales", `{"items":[{"product_id":1,"quantity":1}]}`); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	if rr := doJSON(mux, http.MethodGet, "/sales", ""); rr.Code != http.StatusOK {
		t.Fatalf("reads stay available during shutdown, got %d", rr.Code)
	}
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
