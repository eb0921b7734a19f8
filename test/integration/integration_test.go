// Package integration runs black-box tests against a running service at
// BASE_URL. The tests are skipped when BASE_URL is not set.
package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"
)

func baseURL() string { return os.Getenv("BASE_URL") }

func waitReady(t testing.TB) {
	t.Helper()
	if baseURL() == "" {
		t.Skip("BASE_URL not set")
	}
	deadline := time.Now().Add(20 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(baseURL() + "/healthz")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("service not ready")
}

func postJSON(t testing.TB, path, body string) (int, []byte) {
	t.Helper()
	r, err := http.NewRequest(http.MethodPost, baseURL()+path, bytes.NewBufferString(body))
	if err != nil {
		t.Fatal(err)
	}
	r.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(r)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b
}

func getJSON(t testing.TB, path string, dst any) {
	t.Helper()
	resp, err := http.Get(baseURL() + path)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: expected 200, got %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatal(err)
	}
}

type product struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	StockQuantity int64  `json:"stock_quantity"`
	ReorderLevel  int64  `json:"reorder_level"`
}

type notification struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
	Seen    bool   `json:"seen"`
}

// createProduct adds a uniquely named product and returns it.
func createProduct(t testing.TB, stock, reorder int64) product {
	t.Helper()
	name := fmt.Sprintf("it-%d", time.Now().UnixNano())
	code, body := postJSON(t, "/products", fmt.Sprintf(`{"name":%q,"price":"2.50","stock_quantity":%d,"reorder_level":%d}`, name, stock, reorder))
	if code != http.StatusCreated {
		t.Fatalf("create product: expected 201, got %d: %s", code, body)
	}
	var p product
	if err := json.Unmarshal(body, &p); err != nil {
		t.Fatal(err)
	}
	return p
}

func stockOf(t testing.TB, id int64) int64 {
	t.Helper()
	var ps []product
	getJSON(t, "/products", &ps)
	for _, p := range ps {
		if p.ID == id {
			return p.StockQuantity
		}
	}
	t.Fatalf("product %d not listed", id)
	return 0
}

func TestIntegration_OpenAPIAndDocsServed(t *testing.T) {
	waitReady(t)
	for _, path := range []string{"/openapi.yaml", "/docs", "/api/docs"} {
		resp, err := http.Get(baseURL() + path)
		if err != nil {
			t.Fatal(err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, resp.StatusCode)
		}
	}
}

func TestIntegration_SaleRaisesNotification(t *testing.T) {
	waitReady(t)
	p := createProduct(t, 10, 5)
	code, body := postJSON(t, "/sales", fmt.Sprintf(`{"items":[{"product_id":%d,"quantity":6}]}`, p.ID))
	if code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", code, body)
	}
	if !strings.Contains(string(body), `"total_price":"15"`) {
		t.Fatalf("unexpected sale body: %s", body)
	}
	if got := stockOf(t, p.ID); got != 4 {
		t.Fatalf("expected stock 4, got %d", got)
	}
	var ns []notification
	getJSON(t, "/notifications", &ns)
	want := fmt.Sprintf("Low stock: %s (qty: 4)", p.Name)
	for _, n := range ns {
		if n.Message == want {
			code, _ := postJSON(t, fmt.Sprintf("/notifications/%d/seen", n.ID), "{}")
			if code != http.StatusOK {
				t.Fatalf("mark seen: expected 200, got %d", code)
			}
			return
		}
	}
	t.Fatalf("notification %q not found", want)
}

func TestIntegration_InsufficientStockLeavesStock(t *testing.T) {
	waitReady(t)
	a := createProduct(t, 5, 0)
	b := createProduct(t, 1, 0)
	code, body := postJSON(t, "/sales", fmt.Sprintf(`{"items":[{"product_id":%d,"quantity":2},{"product_id":%d,"quantity":3}]}`, a.ID, b.ID))
	if code != http.StatusBadRequest || !strings.Contains(string(body), "Not enough stock for "+b.Name) {
		t.Fatalf("expected 400 not enough stock, got %d: %s", code, body)
	}
	if got := stockOf(t, a.ID); got != 5 {
		t.Fatalf("earlier line must roll back, stock=%d", got)
	}
}

func TestIntegration_StrictDecoding_UnknownField(t *testing.T) {
	waitReady(t)
	if code, _ := postJSON(t, "/sales", `{"items":[],"unknown":"x"}`); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestIntegration_UnsupportedMediaType(t *testing.T) {
	waitReady(t)
	r, _ := http.NewRequest(http.MethodPost, baseURL()+"/sales", bytes.NewBufferString("{}"))
	r.Header.Set("Content-Type", "text/plain")
	resp, err := http.DefaultClient.Do(r)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", resp.StatusCode)
	}
}
