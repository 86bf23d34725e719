package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/diewo77/facturacion/internal/models"
	"github.com/diewo77/facturacion/pdf"
	"github.com/diewo77/facturacion/validation"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// searchLimit caps product search results.
const searchLimit = 10

// BillingService creates invoices and serves invoice lookups and receipts.
type BillingService struct {
	db          *gorm.DB
	invoicesDir string
	now         func() time.Time
}

func NewBillingService(db *gorm.DB, invoicesDir string) *BillingService {
	return &BillingService{db: db, invoicesDir: invoicesDir, now: time.Now}
}

// LineRequest selects a product, by id or by code, and a quantity.
type LineRequest struct {
	ProductID uint   `json:"product_id,omitempty"`
	Code      string `json:"code,omitempty"`
	Quantity  int    `json:"quantity"`
}

// InvoiceRequest is the input of CreateInvoice.
type InvoiceRequest struct {
	CustomerID   uint       `json:"customer_id"`
	Lines        []LineItem `json:"lines"`
	Observations string     `json:"observations,omitempty"`
}

// IssuedInvoice is the outcome of Issue.
type IssuedInvoice struct {
	ID      uint   `json:"id"`
	Totals
	PDFPath string `json:"pdf_path,omitempty"`
}

// InvoiceSummary is one row of the invoice listing.
type InvoiceSummary struct {
	ID           uint            `json:"id"`
	Date         time.Time       `json:"date"`
	CustomerName string          `json:"customer_name"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Tax          decimal.Decimal `json:"tax"`
	Total        decimal.Decimal `json:"total"`
}

// BuildDraft loads the requested products and adds them to a new draft,
// applying the same stock checks as interactive drafting.
func (s *BillingService) BuildDraft(ctx context.Context, reqs []LineRequest) (*Draft, error) {
	d := NewDraft()
	for i, lr := range reqs {
		var p models.Product
		q := s.db.WithContext(ctx)
		var err error
		switch {
		case lr.ProductID != 0:
			err = q.First(&p, lr.ProductID).Error
		case strings.TrimSpace(lr.Code) != "":
			err = q.Where("code = ?", strings.TrimSpace(lr.Code)).First(&p).Error
		default:
			return nil, invalid(validation.Violations{fmt.Sprintf("lines[%d].product_id", i): "required"})
		}
		if err != nil {
			return nil, notFoundOr(ErrProductNotFound, "load product", err)
		}
		if err := d.AddLine(&p, lr.Quantity); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// CreateInvoice validates req against current customers and stock, then
// inserts the header and lines and decrements stock in one transaction.
// Line totals and invoice totals are recomputed from quantity and unit price.
func (s *BillingService) CreateInvoice(ctx context.Context, req InvoiceRequest) (uint, error) {
	inv, lines, requested, err := s.prepare(ctx, req)
	if err != nil {
		return 0, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(inv).Error; err != nil {
			return internal("insert invoice", err)
		}
		for i := range lines {
			lines[i].InvoiceID = inv.ID
		}
		if err := tx.Omit(clause.Associations).Create(&lines).Error; err != nil {
			return internal("insert invoice lines", err)
		}

		// Stable order keeps row locks acquired in the same sequence across requests.
		ids := make([]uint, 0, len(requested))
		for id := range requested {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			qty := requested[id]
			res := tx.Model(&models.Product{}).
				Where("id = ? AND quantity >= ?", id, qty).
				UpdateColumn("quantity", gorm.Expr("quantity - ?", qty))
			if res.Error != nil {
				return internal("decrement stock", res.Error)
			}
			if res.RowsAffected == 0 {
				return ErrInsufficientStock.with(fmt.Errorf("product %d: stock changed while invoicing", id), nil)
			}
		}
		return nil
	})
	if err != nil {
		var se *Error
		if !errors.As(err, &se) {
			err = internal("create invoice", err)
		}
		return 0, err
	}
	log.Printf("invoice %d created customer=%d lines=%d total=%s", inv.ID, inv.CustomerID, len(lines), inv.Total.StringFixed(2))
	return inv.ID, nil
}

func (s *BillingService) prepare(ctx context.Context, req InvoiceRequest) (*models.Invoice, []models.InvoiceLine, map[uint]int, error) {
	v := make(validation.Violations)
	if req.CustomerID == 0 {
		v.Add("customer_id", "required")
	}
	if len(req.Lines) == 0 && v.Empty() {
		return nil, nil, nil, ErrEmptyInvoice
	}
	if len(req.Lines) == 0 {
		v.Add("lines", "required")
	}
	for i, l := range req.Lines {
		if l.ProductID == 0 {
			v.Add(fmt.Sprintf("lines[%d].product_id", i), "required")
		}
		validation.PositiveInt(fmt.Sprintf("lines[%d].quantity", i), l.Quantity, v)
		if l.UnitPrice.IsNegative() {
			v.Add(fmt.Sprintf("lines[%d].unit_price", i), "must_not_be_negative")
		}
	}
	if !v.Empty() {
		return nil, nil, nil, invalid(v)
	}

	db := s.db.WithContext(ctx)
	var customer models.Customer
	if err := db.First(&customer, req.CustomerID).Error; err != nil {
		return nil, nil, nil, notFoundOr(ErrCustomerNotFound, "load customer", err)
	}

	ids := make([]uint, 0, len(req.Lines))
	requested := make(map[uint]int, len(req.Lines))
	for _, l := range req.Lines {
		if _, seen := requested[l.ProductID]; !seen {
			ids = append(ids, l.ProductID)
		}
		requested[l.ProductID] += l.Quantity
	}
	var products []models.Product
	if err := db.Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, nil, nil, internal("load products", err)
	}
	byID := make(map[uint]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			return nil, nil, nil, ErrProductNotFound.with(fmt.Errorf("product %d", id), nil)
		}
		if !p.InStock(requested[id]) {
			return nil, nil, nil, ErrInsufficientStock.with(
				fmt.Errorf("%s: requested %d, available %d", p.Code, requested[id], p.Quantity),
				validation.Violations{p.Code: "insufficient_stock"},
			)
		}
	}

	lines := make([]models.InvoiceLine, len(req.Lines))
	totals := make([]decimal.Decimal, len(req.Lines))
	for i, l := range req.Lines {
		price := l.UnitPrice
		if price.IsZero() {
			price = byID[l.ProductID].UnitPrice
		}
		total := LineTotal(price, l.Quantity)
		lines[i] = models.InvoiceLine{ProductID: l.ProductID, Quantity: l.Quantity, UnitPrice: price, Total: total}
		totals[i] = total
	}
	t := ComputeTotals(totals...)
	inv := &models.Invoice{
		Date:         s.now(),
		CustomerID:   customer.ID,
		Subtotal:     t.Subtotal,
		Tax:          t.Tax,
		Total:        t.Total,
		Observations: strings.TrimSpace(req.Observations),
	}
	return inv, lines, requested, nil
}

// Issue creates the invoice and writes its receipt to the invoices directory.
// Once the invoice is committed a later failure never hides it: the returned
// IssuedInvoice carries the id together with ErrPDFRender (reload failed) or
// ErrPDFWrite (receipt not written).
func (s *BillingService) Issue(ctx context.Context, req InvoiceRequest) (*IssuedInvoice, error) {
	id, err := s.CreateInvoice(ctx, req)
	if err != nil {
		return nil, err
	}
	inv, err := s.GetInvoiceDetails(ctx, id)
	if err != nil {
		log.Printf("invoice %d: reload for receipt failed: %v", id, err)
		return &IssuedInvoice{ID: id}, ErrPDFRender.with(err, nil)
	}
	out := &IssuedInvoice{ID: id, Totals: Totals{Subtotal: inv.Subtotal, Tax: inv.Tax, Total: inv.Total}}
	path, err := pdf.WriteFile(s.invoicesDir, receiptData(inv))
	if err != nil {
		log.Printf("invoice %d: receipt not written: %v", id, err)
		return out, ErrPDFWrite.with(err, nil)
	}
	out.PDFPath = path
	return out, nil
}

// GetInvoiceDetails returns the invoice with its customer and lines, each
// line carrying its product.
func (s *BillingService) GetInvoiceDetails(ctx context.Context, id uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.WithContext(ctx).
		Preload("Customer").
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Lines.Product").
		First(&inv, id).Error
	if err != nil {
		return nil, notFoundOr(ErrInvoiceNotFound, "load invoice", err)
	}
	return &inv, nil
}

// ListInvoices returns all invoices, newest first.
func (s *BillingService) ListInvoices(ctx context.Context) ([]InvoiceSummary, error) {
	var invoices []models.Invoice
	if err := s.db.WithContext(ctx).Preload("Customer").Order("date DESC, id DESC").Find(&invoices).Error; err != nil {
		return nil, internal("list invoices", err)
	}
	out := make([]InvoiceSummary, len(invoices))
	for i, inv := range invoices {
		out[i] = InvoiceSummary{ID: inv.ID, Date: inv.Date, Subtotal: inv.Subtotal, Tax: inv.Tax, Total: inv.Total}
		if inv.Customer != nil {
			out[i].CustomerName = inv.Customer.Name
		}
	}
	return out, nil
}

// NextInvoiceNumber is max(id)+1. It is for display only; the real number is
// assigned by the database on insert.
func (s *BillingService) NextInvoiceNumber(ctx context.Context) (uint, error) {
	var maxID int64
	if err := s.db.WithContext(ctx).Model(&models.Invoice{}).Select("COALESCE(MAX(id), 0)").Scan(&maxID).Error; err != nil {
		return 0, internal("next invoice number", err)
	}
	return uint(maxID) + 1, nil
}

// SearchProducts matches term against code, name and description, case
// insensitively. Terms shorter than two characters return no products.
func (s *BillingService) SearchProducts(ctx context.Context, term string) ([]models.Product, error) {
	term = strings.TrimSpace(term)
	products := []models.Product{}
	if len([]rune(term)) < 2 {
		return products, nil
	}
	like := "%" + strings.ToLower(term) + "%"
	err := s.db.WithContext(ctx).
		Where("LOWER(code) LIKE ? OR LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like, like).
		Order("code").
		Limit(searchLimit).
		Find(&products).Error
	if err != nil {
		return nil, internal("search products", err)
	}
	return products, nil
}

func (s *BillingService) GetProductByCode(ctx context.Context, code string) (*models.Product, error) {
	return productByCode(s.db.WithContext(ctx), code)
}

// RenderReceipt renders the PDF receipt of an existing invoice.
func (s *BillingService) RenderReceipt(ctx context.Context, id uint) ([]byte, error) {
	inv, err := s.GetInvoiceDetails(ctx, id)
	if err != nil {
		return nil, err
	}
	b, err := pdf.InvoicePDF(receiptData(inv))
	if err != nil {
		return nil, ErrPDFRender.with(err, nil)
	}
	return b, nil
}

// Reprint writes the receipt of an existing invoice again.
func (s *BillingService) Reprint(ctx context.Context, id uint) (string, error) {
	inv, err := s.GetInvoiceDetails(ctx, id)
	if err != nil {
		return "", err
	}
	path, err := pdf.WriteFile(s.invoicesDir, receiptData(inv))
	if err != nil {
		return "", ErrPDFWrite.with(err, nil)
	}
	return path, nil
}

func receiptData(inv *models.Invoice) pdf.InvoiceData {
	d := pdf.InvoiceData{
		Number:       inv.Folio(),
		Date:         inv.Date,
		Observations: inv.Observations,
		Subtotal:     inv.Subtotal,
		Tax:          inv.Tax,
		Total:        inv.Total,
	}
	if c := inv.Customer; c != nil {
		d.Customer = pdf.Party{Name: c.Name, TaxID: c.TaxID, Address: c.FullAddress()}
	}
	for _, l := range inv.Lines {
		it := pdf.Item{Quantity: l.Quantity, UnitPrice: l.UnitPrice, Total: l.Total}
		if p := l.Product; p != nil {
			it.Code = p.Code
			it.Description = p.Label()
		}
		d.Items = append(d.Items, it)
	}
	return d
}
