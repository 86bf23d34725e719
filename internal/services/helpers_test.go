package services

import (
	"context"
	"testing"

	"github.com/diewo77/facturacion/internal/models"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Use a unique in-memory database per test to avoid cross-test collisions.
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedCustomer(t *testing.T, db *gorm.DB) *models.Customer {
	t.Helper()
	c := models.Customer{Name: "Ferretería Los Andes", TaxID: "76.543.210-K", Address: "Av. Matta 100", Commune: "Santiago", City: "Santiago"}
	if err := db.Create(&c).Error; err != nil {
		t.Fatalf("customer: %v", err)
	}
	return &c
}

func seedProduct(t *testing.T, db *gorm.DB, code string, price int64, stock int) *models.Product {
	t.Helper()
	p := models.Product{Code: code, Name: "Producto " + code, Description: "Descripción " + code, UnitPrice: decimal.NewFromInt(price), Quantity: stock}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("product: %v", err)
	}
	return &p
}

func stockOf(t *testing.T, db *gorm.DB, id uint) int {
	t.Helper()
	var p models.Product
	if err := db.First(&p, id).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	return p.Quantity
}

func newTestAuth(db *gorm.DB) *AuthService {
	s := NewAuthService(db)
	s.cost = bcrypt.MinCost
	return s
}

var ctx = context.Background()
