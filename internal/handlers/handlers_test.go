package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/diewo77/facturacion/internal/db"
	"github.com/diewo77/facturacion/internal/models"
	"github.com/diewo77/facturacion/internal/services"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Use a unique in-memory database per test to avoid cross-test collisions.
	conn, err := db.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), false)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestProductCreateListAndLookup(t *testing.T) {
	conn := setupTestDB(t)
	h := NewProductHandler(services.NewProductService(conn), services.NewBillingService(conn, t.TempDir()))

	w := httptest.NewRecorder()
	h.Create(w, jsonRequest(http.MethodPost, "/products", `{"code":"SKU1","name":"Martillo","unit_price":12.555,"quantity":4}`))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", w.Code, w.Body.String())
	}
	var created models.Product
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !created.UnitPrice.Equal(decimal.RequireFromString("12.56")) {
		t.Fatalf("price not rounded to cents: %s", created.UnitPrice)
	}

	w = httptest.NewRecorder()
	h.Create(w, jsonRequest(http.MethodPost, "/products", `{"code":"SKU1","name":"Otro","unit_price":1,"quantity":1}`))
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate code: expected 409 got %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/products", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	var payload struct {
		Items []models.Product `json:"items"`
		Total int              `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Total != 1 || len(payload.Items) != 1 {
		t.Fatalf("expected 1 product, got %+v", payload)
	}

	w = httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/products?code=NOPE", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown code: expected 404 got %d", w.Code)
	}
}

func TestProductCreateRejectsBadInput(t *testing.T) {
	conn := setupTestDB(t)
	h := NewProductHandler(services.NewProductService(conn), services.NewBillingService(conn, t.TempDir()))

	tests := []struct {
		name string
		body string
		want string
	}{
		{"malformed json", `{"code":`, "invalid_json"},
		{"unknown field", `{"code":"X","vat_rate":0.2}`, "invalid_json"},
		{"validation", `{"code":"","name":"","unit_price":0,"quantity":-1}`, "validation_failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.Create(w, jsonRequest(http.MethodPost, "/products", tt.body))
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400 got %d", w.Code)
			}
			if !strings.Contains(w.Body.String(), tt.want) {
				t.Fatalf("expected %q in %s", tt.want, w.Body.String())
			}
		})
	}
}

func TestPathIDValidation(t *testing.T) {
	conn := setupTestDB(t)
	h := NewCustomerHandler(services.NewCustomerService(conn))

	for _, raw := range []string{"abc", "0", "-1"} {
		req := httptest.NewRequest(http.MethodGet, "/customers/"+raw, nil)
		req.SetPathValue("id", raw)
		w := httptest.NewRecorder()
		h.View(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("id %q: expected 400 got %d", raw, w.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/customers/7", nil)
	req.SetPathValue("id", "7")
	w := httptest.NewRecorder()
	h.View(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing customer: expected 404 got %d", w.Code)
	}
}

func TestCustomerCreateUpdateDelete(t *testing.T) {
	conn := setupTestDB(t)
	h := NewCustomerHandler(services.NewCustomerService(conn))

	w := httptest.NewRecorder()
	h.Create(w, jsonRequest(http.MethodPost, "/customers", `{"name":"Ferretería Sur","email":"not-an-email"}`))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad email: expected 400 got %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.Create(w, jsonRequest(http.MethodPost, "/customers", `{"name":"Ferretería Sur","tax_id":"76.000.000-1"}`))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", w.Code, w.Body.String())
	}
	var c models.Customer
	if err := json.Unmarshal(w.Body.Bytes(), &c); err != nil {
		t.Fatalf("decode: %v", err)
	}

	req := jsonRequest(http.MethodPut, "/customers/x", `{"name":"Ferretería Norte"}`)
	req.SetPathValue("id", "1")
	w = httptest.NewRecorder()
	h.Update(w, req)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Ferretería Norte") {
		t.Fatalf("update: %d %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodDelete, "/customers/1", nil)
	req.SetPathValue("id", "1")
	w = httptest.NewRecorder()
	h.Delete(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204 got %d", w.Code)
	}
}

func TestInvoiceCreateKeepsInvoiceWhenReceiptFails(t *testing.T) {
	conn := setupTestDB(t)
	// A regular file where the receipts directory should be makes every write fail.
	blocked := filepath.Join(t.TempDir(), "facturas")
	if err := os.WriteFile(blocked, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	billing := services.NewBillingService(conn, blocked)
	h := NewInvoiceHandler(billing, services.NewReportService(billing))

	customer := models.Customer{Name: "Cliente"}
	product := models.Product{Code: "P1", Name: "Pala", UnitPrice: decimal.NewFromInt(100), Quantity: 3}
	if err := conn.Create(&customer).Error; err != nil {
		t.Fatalf("customer: %v", err)
	}
	if err := conn.Create(&product).Error; err != nil {
		t.Fatalf("product: %v", err)
	}

	w := httptest.NewRecorder()
	h.Create(w, jsonRequest(http.MethodPost, "/invoices", `{"customer_id":1,"lines":[{"code":"P1","quantity":2}]}`))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"pdf_error":"pdf_write_failed"`) {
		t.Fatalf("missing pdf_error: %s", w.Body.String())
	}

	var stock models.Product
	if err := conn.First(&stock, product.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stock.Quantity != 1 {
		t.Fatalf("expected stock 1 got %d", stock.Quantity)
	}
}

func TestInvoicePreviewDoesNotWrite(t *testing.T) {
	conn := setupTestDB(t)
	billing := services.NewBillingService(conn, t.TempDir())
	h := NewInvoiceHandler(billing, services.NewReportService(billing))

	product := models.Product{Code: "P1", Name: "Pala", UnitPrice: decimal.NewFromInt(1000), Quantity: 3}
	if err := conn.Create(&product).Error; err != nil {
		t.Fatalf("product: %v", err)
	}

	w := httptest.NewRecorder()
	h.Preview(w, jsonRequest(http.MethodPost, "/invoices/preview", `{"lines":[{"code":"P1","quantity":1},{"product_id":1,"quantity":1}]}`))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Lines []services.LineItem `json:"lines"`
		Total decimal.Decimal     `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Lines) != 1 || resp.Lines[0].Quantity != 2 {
		t.Fatalf("lines not merged: %+v", resp.Lines)
	}
	if !resp.Total.Equal(decimal.NewFromInt(2380)) {
		t.Fatalf("expected total 2380 got %s", resp.Total)
	}

	w = httptest.NewRecorder()
	h.Preview(w, jsonRequest(http.MethodPost, "/invoices/preview", `{"lines":[{"code":"P1","quantity":4}]}`))
	if w.Code != http.StatusConflict {
		t.Fatalf("over stock: expected 409 got %d", w.Code)
	}

	var count int64
	conn.Model(&models.Invoice{}).Count(&count)
	if count != 0 {
		t.Fatalf("preview wrote %d invoices", count)
	}
}

func TestInvoicePDFUsesCanonicalFileName(t *testing.T) {
	conn := setupTestDB(t)
	billing := services.NewBillingService(conn, t.TempDir())
	h := NewInvoiceHandler(billing, services.NewReportService(billing))

	customer := models.Customer{Name: "Cliente"}
	product := models.Product{Code: "P1", Name: "Pala", UnitPrice: decimal.NewFromInt(100), Quantity: 3}
	if err := conn.Create(&customer).Error; err != nil {
		t.Fatalf("customer: %v", err)
	}
	if err := conn.Create(&product).Error; err != nil {
		t.Fatalf("product: %v", err)
	}
	w := httptest.NewRecorder()
	h.Create(w, jsonRequest(http.MethodPost, "/invoices", `{"customer_id":1,"lines":[{"code":"P1","quantity":1}]}`))
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201 got %d: %s", w.Code, w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/invoices/001/pdf", nil)
	req.SetPathValue("id", "001")
	w = httptest.NewRecorder()
	h.PDF(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("pdf: expected 200 got %d", w.Code)
	}
	cd := w.Header().Get("Content-Disposition")
	if !strings.Contains(cd, "factura_1.pdf") {
		t.Fatalf("download name should match the stored receipt, got %q", cd)
	}
}

func TestInvoiceCreateReturnsIDWhenReloadFails(t *testing.T) {
	conn := setupTestDB(t)
	billing := services.NewBillingService(conn, t.TempDir())
	h := NewInvoiceHandler(billing, services.NewReportService(billing))

	customer := models.Customer{Name: "Cliente"}
	product := models.Product{Code: "P1", Name: "Pala", UnitPrice: decimal.NewFromInt(100), Quantity: 3}
	if err := conn.Create(&customer).Error; err != nil {
		t.Fatalf("customer: %v", err)
	}
	if err := conn.Create(&product).Error; err != nil {
		t.Fatalf("product: %v", err)
	}
	err := conn.Callback().Query().Before("gorm:query").Register("fail_invoice_reads", func(tx *gorm.DB) {
		if tx.Statement.Table == "facturas" {
			_ = tx.AddError(errors.New("connection lost"))
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	w := httptest.NewRecorder()
	h.Create(w, jsonRequest(http.MethodPost, "/invoices", `{"customer_id":1,"lines":[{"code":"P1","quantity":1}]}`))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		ID       uint   `json:"id"`
		PDFError string `json:"pdf_error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ID == 0 || resp.PDFError != "pdf_render_failed" {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}
