package db

import (
	"errors"
	"fmt"

	"github.com/diewo77/facturacion/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Seed inserts demo customers and products. Existing rows, matched by tax id
// and product code, are left untouched, so Seed can run on every start.
func Seed(conn *gorm.DB) error {
	customers := []models.Customer{
		{Name: "Comercial Los Andes Ltda.", Email: "compras@losandes.cl", Phone: "+56 2 2345 6789", Address: "Av. Providencia 1234", Commune: "Providencia", City: "Santiago", TaxID: "76.123.456-7"},
		{Name: "Ferretería El Roble SpA", Email: "contacto@elroble.cl", Phone: "+56 41 222 3344", Address: "Barros Arana 560", Commune: "Concepción", City: "Concepción", TaxID: "77.987.654-3"},
	}
	for _, c := range customers {
		var existing models.Customer
		err := conn.Where("tax_id = ?", c.TaxID).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := conn.Create(&c).Error; err != nil {
				return fmt.Errorf("seed customer %s: %w", c.TaxID, err)
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("seed customer %s: %w", c.TaxID, err)
		}
	}

	products := []models.Product{
		{Code: "TAL-001", Name: "Taladro percutor", Description: "Taladro percutor 650W", UnitPrice: decimal.NewFromInt(45990), Quantity: 12},
		{Code: "MAR-002", Name: "Martillo", Description: "Martillo carpintero 16oz", UnitPrice: decimal.NewFromInt(8990), Quantity: 40},
		{Code: "TOR-003", Name: "Tornillos", Description: "Caja tornillos 3/8 x100", UnitPrice: decimal.NewFromInt(3490), Quantity: 150},
		{Code: "PIN-004", Name: "Pintura", Description: "Pintura látex blanco 1 galón", UnitPrice: decimal.NewFromInt(15990), Quantity: 25},
	}
	for _, p := range products {
		var existing models.Product
		err := conn.Where("code = ?", p.Code).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := conn.Create(&p).Error; err != nil {
				return fmt.Errorf("seed product %s: %w", p.Code, err)
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("seed product %s: %w", p.Code, err)
		}
	}
	return nil
}
