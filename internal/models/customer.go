package models

import (
	"strings"
	"time"
)

// Customer is a billed party. Stored in the clientes table.
type Customer struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name  string `gorm:"size:255;not null;index" json:"name"`
	Email string `gorm:"size:255" json:"email,omitempty"`
	Phone string `gorm:"size:50" json:"phone,omitempty"`

	// Address
	Address string `gorm:"size:500" json:"address,omitempty"`
	City    string `gorm:"size:100" json:"city,omitempty"`
	Commune string `gorm:"size:100" json:"commune,omitempty"`

	// TaxID holds the RUT.
	TaxID string `gorm:"size:20;index" json:"tax_id,omitempty"`
}

// TableName keeps the historical table name.
func (Customer) TableName() string { return "clientes" }

// FullAddress returns the street address followed by commune and city,
// skipping empty parts.
func (c *Customer) FullAddress() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{c.Address, c.Commune, c.City} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
