package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/diewo77/facturacion/internal/models"
	"github.com/diewo77/facturacion/validation"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductService manages the product catalogue and its stock.
type ProductService struct {
	db *gorm.DB
}

func NewProductService(db *gorm.DB) *ProductService {
	return &ProductService{db: db}
}

// ProductInput carries the editable product fields.
type ProductInput struct {
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
}

func (in *ProductInput) normalize() {
	in.Code = strings.TrimSpace(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
}

func (in ProductInput) validate() validation.Violations {
	v := make(validation.Violations)
	validation.Required("code", in.Code, v)
	validation.MaxLen("code", in.Code, 50, v)
	validation.Required("name", in.Name, v)
	validation.MaxLen("name", in.Name, 255, v)
	validation.PositiveDecimal("unit_price", in.UnitPrice, v)
	validation.NonNegativeInt("quantity", in.Quantity, v)
	return v
}

func (s *ProductService) List(ctx context.Context) ([]models.Product, error) {
	products := []models.Product{}
	if err := s.db.WithContext(ctx).Order("code").Find(&products).Error; err != nil {
		return nil, internal("list products", err)
	}
	return products, nil
}

func (s *ProductService) Get(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, notFoundOr(ErrProductNotFound, "load product", err)
	}
	return &p, nil
}

func (s *ProductService) GetByCode(ctx context.Context, code string) (*models.Product, error) {
	return productByCode(s.db.WithContext(ctx), code)
}

func (s *ProductService) Create(ctx context.Context, in ProductInput) (*models.Product, error) {
	in.normalize()
	if v := in.validate(); !v.Empty() {
		return nil, invalid(v)
	}
	db := s.db.WithContext(ctx)
	if err := s.ensureCodeFree(db, in.Code, 0); err != nil {
		return nil, err
	}
	p := models.Product{Code: in.Code, Name: in.Name, Description: in.Description, UnitPrice: RoundCents(in.UnitPrice), Quantity: in.Quantity}
	if err := db.Create(&p).Error; err != nil {
		return nil, translateWrite("create product", err)
	}
	log.Printf("product %d created code=%s stock=%d", p.ID, p.Code, p.Quantity)
	return &p, nil
}

func (s *ProductService) Update(ctx context.Context, id uint, in ProductInput) (*models.Product, error) {
	in.normalize()
	if v := in.validate(); !v.Empty() {
		return nil, invalid(v)
	}
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	if err := s.ensureCodeFree(db, in.Code, id); err != nil {
		return nil, err
	}
	p.Code, p.Name, p.Description = in.Code, in.Name, in.Description
	p.UnitPrice = RoundCents(in.UnitPrice)
	p.Quantity = in.Quantity
	if err := db.Save(p).Error; err != nil {
		return nil, translateWrite("update product", err)
	}
	return p, nil
}

// InUse reports whether any invoice line references the product.
func (s *ProductService) InUse(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.InvoiceLine{}).Where("product_id = ?", id).Limit(1).Count(&count).Error; err != nil {
		return false, internal("check product usage", err)
	}
	return count > 0, nil
}

// Delete removes a product that no invoice line references.
func (s *ProductService) Delete(ctx context.Context, id uint) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	used, err := s.InUse(ctx, id)
	if err != nil {
		return err
	}
	if used {
		return ErrProductInUse.with(fmt.Errorf("product %d is referenced by invoices", id), nil)
	}
	if err := s.db.WithContext(ctx).Delete(&models.Product{}, id).Error; err != nil {
		return internal("delete product", err)
	}
	log.Printf("product %d deleted", id)
	return nil
}

func (s *ProductService) ensureCodeFree(db *gorm.DB, code string, exceptID uint) error {
	var count int64
	q := db.Model(&models.Product{}).Where("code = ?", code)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return internal("check product code", err)
	}
	if count > 0 {
		return ErrDuplicateCode.with(fmt.Errorf("code %q already exists", code), validation.Violations{"code": "duplicate"})
	}
	return nil
}

func productByCode(db *gorm.DB, code string) (*models.Product, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, invalid(validation.Violations{"code": "required"})
	}
	var p models.Product
	if err := db.Where("code = ?", code).First(&p).Error; err != nil {
		return nil, notFoundOr(ErrProductNotFound, "load product by code", err)
	}
	return &p, nil
}

// translateWrite maps unique violations that slipped past the pre-checks
// to ErrDuplicateCode.
func translateWrite(op string, err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateCode.with(err, validation.Violations{"code": "duplicate"})
	}
	return internal(op, err)
}
