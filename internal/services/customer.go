package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/diewo77/facturacion/internal/models"
	"github.com/diewo77/facturacion/validation"
	"gorm.io/gorm"
)

// CustomerEventKind names the mutation that produced a CustomerEvent.
type CustomerEventKind string

const (
	CustomerCreated CustomerEventKind = "created"
	CustomerUpdated CustomerEventKind = "updated"
	CustomerDeleted CustomerEventKind = "deleted"
)

// CustomerEvent is delivered to subscribers after a successful mutation.
type CustomerEvent struct {
	Kind     CustomerEventKind
	Customer models.Customer
}

// CustomerService manages customers and notifies subscribers of changes.
type CustomerService struct {
	db *gorm.DB

	mu          sync.RWMutex
	subscribers []func(CustomerEvent)
}

func NewCustomerService(db *gorm.DB) *CustomerService {
	return &CustomerService{db: db}
}

// CustomerInput carries the editable customer fields.
type CustomerInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
	Commune string `json:"commune"`
	TaxID   string `json:"tax_id"`
}

func (in *CustomerInput) normalize() {
	for _, f := range []*string{&in.Name, &in.Email, &in.Phone, &in.Address, &in.City, &in.Commune, &in.TaxID} {
		*f = strings.TrimSpace(*f)
	}
}

func (in CustomerInput) validate() validation.Violations {
	v := make(validation.Violations)
	validation.Required("name", in.Name, v)
	validation.MaxLen("name", in.Name, 255, v)
	validation.Email("email", in.Email, v)
	validation.MaxLen("tax_id", in.TaxID, 20, v)
	return v
}

func (in CustomerInput) apply(c *models.Customer) {
	c.Name, c.Email, c.Phone = in.Name, in.Email, in.Phone
	c.Address, c.City, c.Commune, c.TaxID = in.Address, in.City, in.Commune, in.TaxID
}

// Subscribe registers fn to be called synchronously after each successful
// create, update or delete.
func (s *CustomerService) Subscribe(fn func(CustomerEvent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

func (s *CustomerService) notify(kind CustomerEventKind, c models.Customer) {
	s.mu.RLock()
	subs := append([]func(CustomerEvent){}, s.subscribers...)
	s.mu.RUnlock()
	ev := CustomerEvent{Kind: kind, Customer: c}
	for _, fn := range subs {
		fn(ev)
	}
}

func (s *CustomerService) List(ctx context.Context, query string) ([]models.Customer, error) {
	customers := []models.Customer{}
	db := s.db.WithContext(ctx)
	if q := strings.ToLower(strings.TrimSpace(query)); q != "" {
		like := "%" + q + "%"
		db = db.Where("LOWER(name) LIKE ? OR LOWER(tax_id) LIKE ?", like, like)
	}
	if err := db.Order("name").Find(&customers).Error; err != nil {
		return nil, internal("list customers", err)
	}
	return customers, nil
}

func (s *CustomerService) Get(ctx context.Context, id uint) (*models.Customer, error) {
	var c models.Customer
	if err := s.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, notFoundOr(ErrCustomerNotFound, "load customer", err)
	}
	return &c, nil
}

func (s *CustomerService) Create(ctx context.Context, in CustomerInput) (*models.Customer, error) {
	in.normalize()
	if v := in.validate(); !v.Empty() {
		return nil, invalid(v)
	}
	var c models.Customer
	in.apply(&c)
	if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
		return nil, internal("create customer", err)
	}
	log.Printf("customer %d created", c.ID)
	s.notify(CustomerCreated, c)
	return &c, nil
}

func (s *CustomerService) Update(ctx context.Context, id uint, in CustomerInput) (*models.Customer, error) {
	in.normalize()
	if v := in.validate(); !v.Empty() {
		return nil, invalid(v)
	}
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(c)
	if err := s.db.WithContext(ctx).Save(c).Error; err != nil {
		return nil, internal("update customer", err)
	}
	s.notify(CustomerUpdated, *c)
	return c, nil
}

// Delete removes a customer that no invoice references.
func (s *CustomerService) Delete(ctx context.Context, id uint) error {
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	var count int64
	db := s.db.WithContext(ctx)
	if err := db.Model(&models.Invoice{}).Where("customer_id = ?", id).Limit(1).Count(&count).Error; err != nil {
		return internal("check customer usage", err)
	}
	if count > 0 {
		return ErrCustomerInUse.with(fmt.Errorf("customer %d has invoices", id), nil)
	}
	if err := db.Delete(&models.Customer{}, id).Error; err != nil {
		return internal("delete customer", err)
	}
	log.Printf("customer %d deleted", id)
	s.notify(CustomerDeleted, *c)
	return nil
}
