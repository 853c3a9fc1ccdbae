package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/diewo77/facturas/internal/models"
)

// gormStore backs Store with a relational database (sqlite or postgres).
type gormStore struct {
	db *gorm.DB
}

// NewGorm wraps an open gorm handle. The handle should be opened with
// TranslateError enabled so unique violations surface as ErrDuplicatedKey.
func NewGorm(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// wrap translates gorm errors into the store taxonomy. The string fallback
// covers drivers that predate gorm's error translation.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey),
		strings.Contains(err.Error(), "UNIQUE constraint failed"),
		strings.Contains(err.Error(), "duplicate key"):
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func (s *gormStore) Ping(ctx context.Context) error {
	return wrap("ping", s.db.WithContext(ctx).Exec("SELECT 1").Error)
}

func (s *gormStore) ClientByNameAndTaxID(ctx context.Context, name, taxID string) (*models.Client, error) {
	var c models.Client
	err := s.db.WithContext(ctx).
		Where("UPPER(name) = ? AND UPPER(tax_id) = ?", strings.ToUpper(name), strings.ToUpper(taxID)).
		First(&c).Error
	if err != nil {
		return nil, wrap("client by name and tax id", err)
	}
	return &c, nil
}

func (s *gormStore) CreateClient(ctx context.Context, c *models.Client) error {
	return wrap("create client", s.db.WithContext(ctx).Create(c).Error)
}

func (s *gormStore) SearchClients(ctx context.Context, search string, limit int) ([]models.Client, error) {
	var clients []models.Client
	q := s.db.WithContext(ctx).Model(&models.Client{})
	if search != "" {
		q = q.Where("UPPER(name) LIKE ?", "%"+strings.ToUpper(search)+"%")
	}
	if err := q.Order("name").Limit(limit).Find(&clients).Error; err != nil {
		return nil, wrap("search clients", err)
	}
	return clients, nil
}

func (s *gormStore) ActiveProductByName(ctx context.Context, name string) (*models.Product, error) {
	var p models.Product
	err := s.db.WithContext(ctx).
		Where("UPPER(name) = ? AND active = ?", strings.ToUpper(name), true).
		First(&p).Error
	if err != nil {
		return nil, wrap("active product by name", err)
	}
	return &p, nil
}

func (s *gormStore) CreateProduct(ctx context.Context, p *models.Product) error {
	return wrap("create product", s.db.WithContext(ctx).Create(p).Error)
}

func (s *gormStore) DeactivateProduct(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Update("active", false)
	if res.Error != nil {
		return wrap("deactivate product", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("deactivate product %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *gormStore) SearchProducts(ctx context.Context, search string, limit int) ([]models.Product, error) {
	var products []models.Product
	q := s.db.WithContext(ctx).Where("active = ?", true)
	if search != "" {
		q = q.Where("UPPER(name) LIKE ?", "%"+strings.ToUpper(search)+"%")
	}
	if err := q.Order("name").Limit(limit).Find(&products).Error; err != nil {
		return nil, wrap("search products", err)
	}
	return products, nil
}

func (s *gormStore) ProductHistory(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.WithContext(ctx).
		Order("active desc").Order("name").Order("id desc").
		Find(&products).Error
	if err != nil {
		return nil, wrap("product history", err)
	}
	return products, nil
}

func (s *gormStore) LatestInvoice(ctx context.Context) (*models.Invoice, error) {
	var inv models.Invoice
	if err := s.db.WithContext(ctx).Order("id desc").First(&inv).Error; err != nil {
		return nil, wrap("latest invoice", err)
	}
	return &inv, nil
}

func (s *gormStore) InvoiceNumberExists(ctx context.Context, number string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Invoice{}).Where("number = ?", number).Count(&count).Error
	if err != nil {
		return false, wrap("invoice number exists", err)
	}
	return count > 0, nil
}

func (s *gormStore) CreateInvoice(ctx context.Context, inv *models.Invoice) error {
	return wrap("create invoice", s.db.WithContext(ctx).Create(inv).Error)
}

func (s *gormStore) CreateInvoiceLine(ctx context.Context, line *models.InvoiceLine) error {
	return wrap("create invoice line", s.db.WithContext(ctx).Create(line).Error)
}

func (s *gormStore) InvoiceByID(ctx context.Context, id uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.WithContext(ctx).
		Preload("Client").Preload("Lines").Preload("Lines.Product").
		First(&inv, id).Error
	if err != nil {
		return nil, wrap("invoice by id", err)
	}
	return &inv, nil
}

func (s *gormStore) ListInvoices(ctx context.Context) ([]InvoiceSummary, error) {
	var rows []InvoiceSummary
	err := s.db.WithContext(ctx).Model(&models.Invoice{}).
		Select("invoices.id, invoices.number, invoices.date, clients.name as client").
		Joins("JOIN clients ON clients.id = invoices.client_id").
		Order("invoices.id desc").
		Scan(&rows).Error
	if err != nil {
		return nil, wrap("list invoices", err)
	}
	return rows, nil
}

func (s *gormStore) Transaction(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}
