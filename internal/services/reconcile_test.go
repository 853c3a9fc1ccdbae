package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diewo77/facturas/internal/store"
)

func TestResolveClientCreatesThenReuses(t *testing.T) {
	st := store.NewMem()
	r := NewReconciler(st)
	ctx := context.Background()

	first, err := r.ResolveClient(ctx, ClientInput{Name: "ACME", TaxID: "B123", Address: "Calle Mayor 1"})
	require.NoError(t, err)
	require.NotZero(t, first)

	// same pair, different casing and whitespace, different address
	second, err := r.ResolveClient(ctx, ClientInput{Name: "  acme ", TaxID: "b123", Address: "Otra calle 99"})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	clients, _, _, _ := st.Counts()
	assert.Equal(t, 1, clients)

	// first-write-wins: the stored address is the original one
	stored, err := st.ClientByNameAndTaxID(ctx, "ACME", "B123")
	require.NoError(t, err)
	assert.Equal(t, "Calle Mayor 1", stored.Address)
}

func TestResolveClientDifferentTaxIDIsDifferentClient(t *testing.T) {
	st := store.NewMem()
	r := NewReconciler(st)
	ctx := context.Background()

	first, err := r.ResolveClient(ctx, ClientInput{Name: "ACME", TaxID: "B123"})
	require.NoError(t, err)
	second, err := r.ResolveClient(ctx, ClientInput{Name: "ACME", TaxID: "B999"})
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestResolveProductCreatesWhenAbsent(t *testing.T) {
	st := store.NewMem()
	r := NewReconciler(st)

	id, err := r.ResolveProduct(context.Background(), ProductInput{Name: "Widget", UnitPrice: 10, TaxRate: 21})
	require.NoError(t, err)
	require.NotZero(t, id)

	products := st.Products()
	require.Len(t, products, 1)
	assert.True(t, products[0].Active)
}

func TestResolveProductReusesExactMatch(t *testing.T) {
	st := store.NewMem()
	r := NewReconciler(st)
	ctx := context.Background()

	first, err := r.ResolveProduct(ctx, ProductInput{Name: "Widget", UnitPrice: 10, TaxRate: 21})
	require.NoError(t, err)
	second, err := r.ResolveProduct(ctx, ProductInput{Name: "widget", UnitPrice: 10, TaxRate: 21})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, st.Products(), 1)
}

func TestResolveProductDivergenceWithoutConsent(t *testing.T) {
	st := store.NewMem()
	r := NewReconciler(st)
	ctx := context.Background()

	_, err := r.ResolveProduct(ctx, ProductInput{Name: "Widget", UnitPrice: 10, TaxRate: 21})
	require.NoError(t, err)

	_, err = r.ResolveProduct(ctx, ProductInput{Name: "Widget", UnitPrice: 12, TaxRate: 21})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProductDiverged))
	// nothing changed
	products := st.Products()
	require.Len(t, products, 1)
	assert.True(t, products[0].Active)
}

func TestResolveProductReplaceOnDivergence(t *testing.T) {
	st := store.NewMem()
	r := NewReconciler(st)
	ctx := context.Background()

	first, err := r.ResolveProduct(ctx, ProductInput{Name: "Widget", UnitPrice: 10, TaxRate: 21})
	require.NoError(t, err)

	second, err := r.ResolveProduct(ctx, ProductInput{Name: "Widget", UnitPrice: 12, TaxRate: 21, AllowReplace: true})
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	products := st.Products()
	require.Len(t, products, 2)
	assert.False(t, products[0].Active) // superseded row retained for history
	assert.True(t, products[1].Active)
	assert.Equal(t, 12.0, products[1].UnitPrice)

	// subsequent resolution returns the replacement
	third, err := r.ResolveProduct(ctx, ProductInput{Name: "Widget", UnitPrice: 12, TaxRate: 21})
	require.NoError(t, err)
	assert.Equal(t, second, third)
}

func TestResolveProductTaxRateChangeAloneDiverges(t *testing.T) {
	st := store.NewMem()
	r := NewReconciler(st)
	ctx := context.Background()

	_, err := r.ResolveProduct(ctx, ProductInput{Name: "Widget", UnitPrice: 10, TaxRate: 21})
	require.NoError(t, err)
	_, err = r.ResolveProduct(ctx, ProductInput{Name: "Widget", UnitPrice: 10, TaxRate: 10})
	assert.True(t, errors.Is(err, ErrProductDiverged))
}
