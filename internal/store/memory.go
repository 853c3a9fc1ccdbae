package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/diewo77/facturas/internal/models"
)

// MemStore is an in-memory Store used by service-level tests. It mirrors the
// relational semantics that matter to the core: case-insensitive name
// lookups, insertion-order latest invoice, and the unique constraint on
// invoice numbers. Transaction runs fn directly without rollback; tests that
// exercise retry paths rely on the find-or-create operations being
// idempotent rather than on undo.
type MemStore struct {
	mu       sync.Mutex
	clients  []models.Client
	products []models.Product
	invoices []models.Invoice
	lines    []models.InvoiceLine
	nextID   map[string]uint
}

func NewMem() *MemStore {
	return &MemStore{nextID: map[string]uint{}}
}

func (s *MemStore) id(entity string) uint {
	s.nextID[entity]++
	return s.nextID[entity]
}

func upper(v string) string { return strings.ToUpper(strings.TrimSpace(v)) }

func (s *MemStore) Ping(_ context.Context) error { return nil }

func (s *MemStore) ClientByNameAndTaxID(_ context.Context, name, taxID string) (*models.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.clients {
		if upper(s.clients[i].Name) == upper(name) && upper(s.clients[i].TaxID) == upper(taxID) {
			c := s.clients[i]
			return &c, nil
		}
	}
	return nil, fmt.Errorf("client by name and tax id: %w", ErrNotFound)
}

func (s *MemStore) CreateClient(_ context.Context, c *models.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id("client")
	s.clients = append(s.clients, *c)
	return nil
}

func (s *MemStore) SearchClients(_ context.Context, search string, limit int) ([]models.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Client
	for _, c := range s.clients {
		if search == "" || strings.Contains(upper(c.Name), upper(search)) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemStore) ActiveProductByName(_ context.Context, name string) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.products {
		if s.products[i].Active && upper(s.products[i].Name) == upper(name) {
			p := s.products[i]
			return &p, nil
		}
	}
	return nil, fmt.Errorf("active product by name: %w", ErrNotFound)
}

func (s *MemStore) CreateProduct(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.id("product")
	s.products = append(s.products, *p)
	return nil
}

func (s *MemStore) DeactivateProduct(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.products {
		if s.products[i].ID == id {
			s.products[i].Active = false
			return nil
		}
	}
	return fmt.Errorf("deactivate product %d: %w", id, ErrNotFound)
}

func (s *MemStore) SearchProducts(_ context.Context, search string, limit int) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Product
	for _, p := range s.products {
		if !p.Active {
			continue
		}
		if search == "" || strings.Contains(upper(p.Name), upper(search)) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemStore) ProductHistory(_ context.Context) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]models.Product(nil), s.products...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Active != out[j].Active {
			return out[i].Active
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *MemStore) LatestInvoice(_ context.Context) (*models.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.invoices) == 0 {
		return nil, fmt.Errorf("latest invoice: %w", ErrNotFound)
	}
	inv := s.invoices[len(s.invoices)-1]
	return &inv, nil
}

func (s *MemStore) InvoiceNumberExists(_ context.Context, number string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inv := range s.invoices {
		if inv.Number == number {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemStore) CreateInvoice(_ context.Context, inv *models.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.invoices {
		if existing.Number == inv.Number {
			return fmt.Errorf("create invoice: %w", ErrDuplicate)
		}
	}
	inv.ID = s.id("invoice")
	stored := *inv
	stored.Client = nil
	stored.Lines = nil
	s.invoices = append(s.invoices, stored)
	return nil
}

func (s *MemStore) CreateInvoiceLine(_ context.Context, line *models.InvoiceLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	line.ID = s.id("line")
	s.lines = append(s.lines, *line)
	return nil
}

func (s *MemStore) InvoiceByID(_ context.Context, id uint) (*models.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inv := range s.invoices {
		if inv.ID != id {
			continue
		}
		out := inv
		for i := range s.clients {
			if s.clients[i].ID == inv.ClientID {
				c := s.clients[i]
				out.Client = &c
			}
		}
		for _, l := range s.lines {
			if l.InvoiceID == id {
				line := l
				for i := range s.products {
					if s.products[i].ID == l.ProductID {
						p := s.products[i]
						line.Product = &p
					}
				}
				out.Lines = append(out.Lines, line)
			}
		}
		return &out, nil
	}
	return nil, fmt.Errorf("invoice by id %d: %w", id, ErrNotFound)
}

func (s *MemStore) ListInvoices(_ context.Context) ([]InvoiceSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]InvoiceSummary, 0, len(s.invoices))
	for i := len(s.invoices) - 1; i >= 0; i-- {
		inv := s.invoices[i]
		row := InvoiceSummary{ID: inv.ID, Number: inv.Number, Date: inv.Date}
		for j := range s.clients {
			if s.clients[j].ID == inv.ClientID {
				row.Client = s.clients[j].Name
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *MemStore) Transaction(_ context.Context, fn func(Store) error) error {
	return fn(s)
}

// Counts reports row counts per entity, for test assertions.
func (s *MemStore) Counts() (clients, products, invoices, lines int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients), len(s.products), len(s.invoices), len(s.lines)
}

// Products returns a copy of all product rows in insertion order.
func (s *MemStore) Products() []models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Product(nil), s.products...)
}
