package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/diewo77/facturas/internal/models"
	"github.com/diewo77/facturas/internal/store"
)

// ClientInput is the client part of an invoice request. Only Name and TaxID
// participate in reconciliation; the remaining fields are stored on first
// creation and never updated afterwards (first-write-wins).
type ClientInput struct {
	Name       string `json:"name"`
	Address    string `json:"address,omitempty"`
	Locality   string `json:"locality,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Region     string `json:"region,omitempty"`
	TaxID      string `json:"taxId"`
}

// ProductInput describes a product as named on an invoice line. AllowReplace
// acknowledges a price or tax-rate divergence: without it the reconciler
// refuses to touch an existing active product whose values differ.
type ProductInput struct {
	Name         string
	Description  string
	UnitPrice    float64
	TaxRate      float64
	AllowReplace bool
}

// Reconciler resolves clients and products against existing rows, creating
// them when absent.
type Reconciler struct {
	store store.Store
}

func NewReconciler(st store.Store) *Reconciler {
	return &Reconciler{store: st}
}

// WithStore returns a copy bound to another store, typically a
// transaction-scoped one.
func (r *Reconciler) WithStore(st store.Store) *Reconciler {
	return &Reconciler{store: st}
}

// ResolveClient returns the id of the client matching (name, taxId)
// case-insensitively, inserting a new row when no match exists. An existing
// client is returned as-is even when the input carries different address
// fields.
func (r *Reconciler) ResolveClient(ctx context.Context, in ClientInput) (uint, error) {
	name := strings.TrimSpace(in.Name)
	taxID := strings.TrimSpace(in.TaxID)
	existing, err := r.store.ClientByNameAndTaxID(ctx, name, taxID)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return 0, storageErr("client lookup", err)
	}
	c := models.Client{
		Name:       name,
		Address:    strings.TrimSpace(in.Address),
		Locality:   strings.TrimSpace(in.Locality),
		PostalCode: strings.TrimSpace(in.PostalCode),
		Region:     strings.TrimSpace(in.Region),
		TaxID:      taxID,
	}
	if err := r.store.CreateClient(ctx, &c); err != nil {
		return 0, storageErr("client insert", err)
	}
	return c.ID, nil
}

// ResolveProduct returns the id of the active product for the input's name.
// A missing product is created; an exact match on unit price and tax rate is
// reused without writes; a diverging match is replaced (deactivate old row,
// insert new active row) only when AllowReplace is set.
func (r *Reconciler) ResolveProduct(ctx context.Context, in ProductInput) (uint, error) {
	name := strings.TrimSpace(in.Name)
	existing, err := r.store.ActiveProductByName(ctx, name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return r.createProduct(ctx, in)
		}
		return 0, storageErr("product lookup", err)
	}
	// Exact equality is intentional: any drift counts as a new price point.
	if existing.UnitPrice == in.UnitPrice && existing.TaxRate == in.TaxRate {
		return existing.ID, nil
	}
	if !in.AllowReplace {
		return 0, fmt.Errorf("%w: %q is registered at price %.2f / rate %.2f", ErrProductDiverged, name, existing.UnitPrice, existing.TaxRate)
	}
	if err := r.store.DeactivateProduct(ctx, existing.ID); err != nil {
		return 0, storageErr("product deactivate", err)
	}
	return r.createProduct(ctx, in)
}

func (r *Reconciler) createProduct(ctx context.Context, in ProductInput) (uint, error) {
	p := models.Product{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		UnitPrice:   in.UnitPrice,
		TaxRate:     in.TaxRate,
		Active:      true,
	}
	if err := r.store.CreateProduct(ctx, &p); err != nil {
		return 0, storageErr("product insert", err)
	}
	return p.ID, nil
}
