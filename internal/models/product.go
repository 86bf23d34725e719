package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a sellable item with its stock on hand. Stored in the productos table.
type Product struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Code        string          `gorm:"size:50;not null;uniqueIndex" json:"code"`
	Name        string          `gorm:"size:255;not null" json:"name"`
	Description string          `gorm:"type:text" json:"description,omitempty"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	// Quantity is the stock on hand and never drops below zero.
	Quantity int `gorm:"not null;default:0" json:"quantity"`
}

func (Product) TableName() string { return "productos" }

// InStock reports whether qty units can be taken from the current stock.
func (p *Product) InStock(qty int) bool {
	return qty > 0 && qty <= p.Quantity
}

// Label is the text printed on invoice lines: the description when set, else the name.
func (p *Product) Label() string {
	if p.Description != "" {
		return p.Description
	}
	return p.Name
}
