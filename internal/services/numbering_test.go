package services

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diewo77/facturas/internal/models"
	"github.com/diewo77/facturas/internal/store"
)

func seedInvoice(t *testing.T, st *store.MemStore, number string) {
	t.Helper()
	ctx := context.Background()
	c := models.Client{Name: "Seed", TaxID: "X"}
	require.NoError(t, st.CreateClient(ctx, &c))
	require.NoError(t, st.CreateInvoice(ctx, &models.Invoice{Number: number, Date: "2024-01-01", ClientID: c.ID}))
}

func TestAllocateEmptyLedgerStartsFromDefaultBase(t *testing.T) {
	st := store.NewMem()
	a := NewNumberAllocator(st)
	for i := 0; i < 20; i++ {
		got, err := a.Allocate(context.Background(), "")
		require.NoError(t, err)
		n, err := strconv.Atoi(got)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 1003)
		assert.LessOrEqual(t, n, 1005)
	}
}

func TestAllocateFollowsLatestInvoice(t *testing.T) {
	st := store.NewMem()
	seedInvoice(t, st, "2000")
	a := NewNumberAllocator(st)
	for i := 0; i < 20; i++ {
		got, err := a.Allocate(context.Background(), "")
		require.NoError(t, err)
		n, err := strconv.Atoi(got)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 2003)
		assert.LessOrEqual(t, n, 2005)
	}
}

func TestAllocateUsesInsertionOrderNotNumericMax(t *testing.T) {
	st := store.NewMem()
	seedInvoice(t, st, "9000")
	seedInvoice(t, st, "150")
	a := NewNumberAllocator(st)
	got, err := a.Allocate(context.Background(), "")
	require.NoError(t, err)
	n, err := strconv.Atoi(got)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 153)
	assert.LessOrEqual(t, n, 155)
}

func TestAllocateNonNumericLatestFallsBack(t *testing.T) {
	st := store.NewMem()
	seedInvoice(t, st, "FAC-77")
	a := NewNumberAllocator(st)
	got, err := a.Allocate(context.Background(), "")
	require.NoError(t, err)
	n, err := strconv.Atoi(got)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 1003)
	assert.LessOrEqual(t, n, 1005)
}

func TestAllocateProposedFreeNumber(t *testing.T) {
	st := store.NewMem()
	a := NewNumberAllocator(st)
	got, err := a.Allocate(context.Background(), "100")
	require.NoError(t, err)
	assert.Equal(t, "100", got)
}

func TestAllocateProposedTakenAdvances(t *testing.T) {
	st := store.NewMem()
	seedInvoice(t, st, "100")
	a := NewNumberAllocator(st)
	got, err := a.Allocate(context.Background(), "100")
	require.NoError(t, err)
	assert.Equal(t, "101", got)

	seedInvoice(t, st, "101")
	got, err = a.Allocate(context.Background(), "100")
	require.NoError(t, err)
	assert.Equal(t, "102", got)
}

func TestAllocateProposedNonNumeric(t *testing.T) {
	st := store.NewMem()
	a := NewNumberAllocator(st)
	for _, proposed := range []string{"abc", "12x", "-5", "1.5"} {
		_, err := a.Allocate(context.Background(), proposed)
		assert.True(t, errors.Is(err, ErrInvalidInput), "proposed %q", proposed)
	}
}

// saturatedLedger reports every number as taken.
type saturatedLedger struct{}

func (saturatedLedger) LatestInvoice(context.Context) (*models.Invoice, error) {
	return nil, store.ErrNotFound
}

func (saturatedLedger) InvoiceNumberExists(context.Context, string) (bool, error) {
	return true, nil
}

func TestAllocateProbeIsBounded(t *testing.T) {
	a := NewNumberAllocator(saturatedLedger{})
	a.maxAttempts = 5
	_, err := a.Allocate(context.Background(), "100")
	assert.True(t, errors.Is(err, ErrNumberExhausted))
}

type failingLedger struct{ saturatedLedger }

func (failingLedger) InvoiceNumberExists(context.Context, string) (bool, error) {
	return false, errors.New("connection reset")
}

func TestAllocateStoreFaultSurfacesAsStorageError(t *testing.T) {
	a := NewNumberAllocator(failingLedger{})
	_, err := a.Allocate(context.Background(), "100")
	assert.True(t, errors.Is(err, ErrStorage))
}
