package services

import (
	"fmt"

	"github.com/diewo77/facturacion/internal/models"
	"github.com/diewo77/facturacion/validation"
	"github.com/shopspring/decimal"
)

// LineItem is one invoice line as drafted or submitted for creation.
type LineItem struct {
	ProductID   uint            `json:"product_id"`
	Code        string          `json:"code,omitempty"`
	Description string          `json:"description,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

// Draft is the in-memory list of products being billed. It snapshots price
// and stock when a product is first added. A Draft is not safe for
// concurrent use.
type Draft struct {
	lines []LineItem
	stock map[uint]int
}

func NewDraft() *Draft {
	return &Draft{stock: make(map[uint]int)}
}

// AddLine adds qty units of p, merging with an existing line for the same
// product. The merged quantity must not exceed the stock snapshot.
func (d *Draft) AddLine(p *models.Product, qty int) error {
	if qty <= 0 {
		return invalid(validation.Violations{"quantity": "must_be_positive"})
	}
	if _, ok := d.stock[p.ID]; !ok {
		d.stock[p.ID] = p.Quantity
	}
	idx := d.index(p.ID)
	want := qty
	if idx >= 0 {
		want += d.lines[idx].Quantity
	}
	if avail := d.stock[p.ID]; want > avail {
		return ErrInsufficientStock.with(
			fmt.Errorf("%s: requested %d, available %d", p.Code, want, avail),
			validation.Violations{p.Code: "insufficient_stock"},
		)
	}
	if idx >= 0 {
		l := &d.lines[idx]
		l.Quantity = want
		l.Total = LineTotal(l.UnitPrice, want)
		return nil
	}
	d.lines = append(d.lines, LineItem{
		ProductID:   p.ID,
		Code:        p.Code,
		Description: p.Label(),
		Quantity:    qty,
		UnitPrice:   p.UnitPrice,
		Total:       LineTotal(p.UnitPrice, qty),
	})
	return nil
}

// RemoveLine drops the line for productID and reports whether it existed.
func (d *Draft) RemoveLine(productID uint) bool {
	idx := d.index(productID)
	if idx < 0 {
		return false
	}
	d.lines = append(d.lines[:idx], d.lines[idx+1:]...)
	delete(d.stock, productID)
	return true
}

// Lines returns a copy of the drafted lines in insertion order.
func (d *Draft) Lines() []LineItem {
	out := make([]LineItem, len(d.lines))
	copy(out, d.lines)
	return out
}

func (d *Draft) Clear() {
	d.lines = nil
	d.stock = make(map[uint]int)
}

func (d *Draft) Empty() bool { return len(d.lines) == 0 }

func (d *Draft) Totals() Totals {
	lt := make([]decimal.Decimal, len(d.lines))
	for i, l := range d.lines {
		lt[i] = l.Total
	}
	return ComputeTotals(lt...)
}

func (d *Draft) index(productID uint) int {
	for i, l := range d.lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}
