package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"go-pos-invoice/internal/middleware"
	"go-pos-invoice/internal/model"
	"go-pos-invoice/internal/repository"
	"go-pos-invoice/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var saleTime = time.Date(2026, 4, 10, 15, 0, 0, 0, time.UTC)

type testApp struct {
	app     *fiber.App
	product *model.Product
}

// withActor stands in for RequireAuth.
func withActor(id uuid.UUID, privileges ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(middleware.LocalUserID, id.String())
		c.Locals(middleware.LocalUserName, "Test Cashier")
		c.Locals(middleware.LocalUserPrivileges, privileges)
		return c.Next()
	}
}

func newTestApp(t *testing.T, privileges ...string) *testApp {
	t.Helper()
	repos, _ := repository.NewMemoryRepositories()
	ctx := context.Background()
	_ = repos.Counters.Ensure(ctx, service.InvoiceCounterName, service.InvoiceCounterStart)
	p := &model.Product{SKU: "tea-1", Name: "Green Tea", SellingPrice: decimal.RequireFromString("3.00"), Stock: 5}
	if err := repos.Products.Create(ctx, p); err != nil {
		t.Fatal(err)
	}

	invoices := NewInvoiceHandler(service.NewInvoiceService(repos, service.InvoiceServiceConfig{
		Timeout: time.Second,
		Now:     func() time.Time { return saleTime },
		Logger:  zap.NewNop(),
	}))
	products := NewProductHandler(service.NewCatalogService(repos.Products))

	app := fiber.New()
	api := app.Group("/api/v1", withActor(uuid.New(), privileges...))
	api.Get("/products", products.GetProducts)
	api.Get("/products/:id", products.GetProduct)
	api.Post("/invoices", invoices.CreateInvoice)
	api.Get("/invoices", invoices.GetInvoices)
	api.Get("/invoices/:id", invoices.GetInvoice)
	return &testApp{app: app, product: p}
}

func (a *testApp) do(t *testing.T, method, path string, body any) (int, map[string]any, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	raw, _ := io.ReadAll(resp.Body)
	var decoded map[string]any
	_ = json.Unmarshal(raw, &decoded)
	return resp.StatusCode, decoded, raw
}

func (a *testApp) sale(qty int) map[string]any {
	return map[string]any{
		"customerName": "Rosa",
		"taxRate":      "10",
		"items": []map[string]any{
			{"product": a.product.ID.String(), "quantity": qty, "price": "2.50", "name": "Tea promo"},
		},
	}
}

func TestCreateInvoiceEndpoint(t *testing.T) {
	a := newTestApp(t, model.PrivilegeInvoiceCreate, model.PrivilegeInvoiceView)

	status, body, raw := a.do(t, "POST", "/api/v1/invoices", a.sale(2))
	if status != 201 {
		t.Fatalf("status = %d body = %s", status, raw)
	}
	data := body["data"].(map[string]any)
	if data["invoice_number"] != "INV-1001" || data["grand_total"] != "5.5" {
		t.Fatalf("data = %v", data)
	}
	creator := data["creator"].(map[string]any)
	if creator["name"] != "Test Cashier" {
		t.Fatalf("creator = %v", creator)
	}

	status, body, _ = a.do(t, "GET", "/api/v1/invoices/"+data["id"].(string), nil)
	if status != 200 || body["invoice_number"] != "INV-1001" {
		t.Fatalf("get = %d %v", status, body)
	}
	items := body["items"].([]any)
	if items[0].(map[string]any)["sku"] != "TEA-1" {
		t.Fatalf("items = %v", items)
	}
}

func TestCreateInvoiceErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		privileges []string
		body       func(a *testApp) any
		status     int
		code       string
	}{
		{"empty", []string{model.PrivilegeInvoiceCreate}, func(*testApp) any {
			return map[string]any{"customerName": "x", "items": []any{}}
		}, 400, "EMPTY_INVOICE"},
		{"unknown product", []string{model.PrivilegeInvoiceCreate}, func(*testApp) any {
			return map[string]any{"customerName": "x", "items": []map[string]any{{"product": uuid.NewString(), "quantity": 1}}}
		}, 404, "PRODUCT_NOT_FOUND"},
		{"insufficient", []string{model.PrivilegeInvoiceCreate}, func(a *testApp) any { return a.sale(6) }, 409, "INSUFFICIENT_STOCK"},
		{"bad quantity", []string{model.PrivilegeInvoiceCreate}, func(a *testApp) any { return a.sale(0) }, 400, "INVALID_LINE_ITEM"},
		{"no privilege", nil, func(a *testApp) any { return a.sale(1) }, 403, "FORBIDDEN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestApp(t, tt.privileges...)
			status, body, raw := a.do(t, "POST", "/api/v1/invoices", tt.body(a))
			if status != tt.status || body["code"] != tt.code {
				t.Fatalf("got %d %s", status, raw)
			}
			if tt.code == "INSUFFICIENT_STOCK" && body["available"] != float64(5) {
				t.Fatalf("available = %v", body["available"])
			}
		})
	}
}

func TestListInvoicesEndpoint(t *testing.T) {
	a := newTestApp(t, model.PrivilegeInvoiceCreate, model.PrivilegeInvoiceView)
	if status, _, raw := a.do(t, "POST", "/api/v1/invoices", a.sale(1)); status != 201 {
		t.Fatalf("create: %s", raw)
	}

	count := func(query string) int {
		status, _, raw := a.do(t, "GET", "/api/v1/invoices"+query, nil)
		if status != 200 {
			t.Fatalf("list %s: %d %s", query, status, raw)
		}
		var list []map[string]any
		if err := json.Unmarshal(raw, &list); err != nil {
			t.Fatal(err)
		}
		return len(list)
	}

	if n := count(""); n != 1 {
		t.Fatalf("all = %d", n)
	}
	if n := count("?startDate=2026-04-10&endDate=2026-04-10"); n != 1 {
		t.Fatalf("same-day range = %d", n)
	}
	if n := count("?startDate=2026-04-11"); n != 0 {
		t.Fatalf("later range = %d", n)
	}
	if n := count("?customerName=ROS"); n != 1 {
		t.Fatalf("name filter = %d", n)
	}

	for _, q := range []string{"?startDate=yesterday", "?startDate=2026-04-12&endDate=2026-04-10"} {
		if status, _, _ := a.do(t, "GET", "/api/v1/invoices"+q, nil); status != 400 {
			t.Fatalf("%s: status = %d", q, status)
		}
	}
	if status, _, _ := a.do(t, "GET", "/api/v1/invoices/not-a-uuid", nil); status != 400 {
		t.Fatalf("bad id status = %d", status)
	}
	if status, body, _ := a.do(t, "GET", "/api/v1/invoices/"+uuid.NewString(), nil); status != 404 || body["code"] != "INVOICE_NOT_FOUND" {
		t.Fatalf("missing invoice = %d %v", status, body)
	}
}

func TestProductEndpoints(t *testing.T) {
	a := newTestApp(t, model.PrivilegeProductView)
	status, body, raw := a.do(t, "GET", "/api/v1/products", nil)
	if status != 200 || !bytes.Contains(raw, []byte("TEA-1")) {
		t.Fatalf("list = %d %s", status, raw)
	}
	if body["page"] != float64(1) || body["pages"] != float64(1) || len(body["products"].([]any)) != 1 {
		t.Fatalf("page envelope = %v", body)
	}

	pages := []struct {
		query    string
		page     float64
		pages    float64
		products int
	}{
		{"?keyword=GREEN", 1, 1, 1},
		{"?keyword=tea-", 1, 1, 1},
		{"?keyword=coffee", 1, 0, 0},
		{"?pageNumber=2", 2, 1, 0},
		{"?pageNumber=-3", 1, 1, 1},
	}
	for _, tt := range pages {
		status, body, raw := a.do(t, "GET", "/api/v1/products"+tt.query, nil)
		if status != 200 {
			t.Fatalf("%s: status %d %s", tt.query, status, raw)
		}
		if body["page"] != tt.page || body["pages"] != tt.pages || len(body["products"].([]any)) != tt.products {
			t.Fatalf("%s: got %s", tt.query, raw)
		}
	}
	if status, _, _ := a.do(t, "GET", "/api/v1/products/"+a.product.ID.String(), nil); status != 200 {
		t.Fatalf("get = %d", status)
	}
	if status, body, _ := a.do(t, "GET", "/api/v1/products/"+uuid.NewString(), nil); status != 404 || body["code"] != "PRODUCT_NOT_FOUND" {
		t.Fatalf("missing = %d %v", status, body)
	}
}
