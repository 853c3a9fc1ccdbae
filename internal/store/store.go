package store

import (
	"context"
	"errors"

	"github.com/diewo77/facturas/internal/models"
)

// Sentinel errors returned by Store implementations. Callers match with
// errors.Is; everything else is an underlying storage fault.
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// InvoiceSummary is the read model for the invoice listing (header joined
// with the client name).
type InvoiceSummary struct {
	ID     uint   `json:"id"`
	Number string `json:"number"`
	Date   string `json:"date"`
	Client string `json:"client"`
}

// Store is the persistence boundary consumed by the services layer. It is
// always passed explicitly, never held as a process-wide singleton, so the
// core stays testable against MemStore.
type Store interface {
	// Ping verifies connectivity for health checks.
	Ping(ctx context.Context) error

	// Clients. Name/tax-id matching is case-insensitive on the stored value.
	ClientByNameAndTaxID(ctx context.Context, name, taxID string) (*models.Client, error)
	CreateClient(ctx context.Context, c *models.Client) error
	SearchClients(ctx context.Context, search string, limit int) ([]models.Client, error)

	// Products.
	ActiveProductByName(ctx context.Context, name string) (*models.Product, error)
	CreateProduct(ctx context.Context, p *models.Product) error
	DeactivateProduct(ctx context.Context, id uint) error
	SearchProducts(ctx context.Context, search string, limit int) ([]models.Product, error)
	ProductHistory(ctx context.Context) ([]models.Product, error)

	// Invoices.
	LatestInvoice(ctx context.Context) (*models.Invoice, error) // by insertion order, not numeric value
	InvoiceNumberExists(ctx context.Context, number string) (bool, error)
	CreateInvoice(ctx context.Context, inv *models.Invoice) error
	CreateInvoiceLine(ctx context.Context, line *models.InvoiceLine) error
	InvoiceByID(ctx context.Context, id uint) (*models.Invoice, error)
	ListInvoices(ctx context.Context) ([]InvoiceSummary, error)

	// Transaction runs fn against a transaction-scoped Store and commits on
	// nil, rolls back otherwise. The returned error is fn's error unchanged.
	Transaction(ctx context.Context, fn func(Store) error) error
}
