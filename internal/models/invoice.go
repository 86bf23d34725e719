package models

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is an issued invoice header. Stored in the facturas table.
// Rows are written once together with their lines and never updated.
type Invoice struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Date       time.Time `gorm:"not null;index" json:"date"`
	CustomerID uint      `gorm:"not null;index" json:"customer_id"`
	Customer   *Customer `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`

	Subtotal decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	Tax      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"tax"`
	Total    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`

	Observations string `gorm:"type:text" json:"observations,omitempty"`

	Lines []InvoiceLine `gorm:"foreignKey:InvoiceID" json:"lines,omitempty"`
}

func (Invoice) TableName() string { return "facturas" }

// Folio is the printable invoice number.
func (i *Invoice) Folio() string {
	return strconv.FormatUint(uint64(i.ID), 10)
}

// LinesTotal sums the stored line totals.
func (i *Invoice) LinesTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range i.Lines {
		sum = sum.Add(l.Total)
	}
	return sum
}

// InvoiceLine is one product row of an invoice. Stored in the detalle_facturas table.
// UnitPrice is the price at invoicing time, not the current product price.
type InvoiceLine struct {
	ID        uint     `gorm:"primaryKey" json:"id"`
	InvoiceID uint     `gorm:"not null;index" json:"invoice_id"`
	ProductID uint     `gorm:"not null;index" json:"product_id"`
	Product   *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`

	Quantity  int             `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	Total     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
}

func (InvoiceLine) TableName() string { return "detalle_facturas" }
