package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/diewo77/facturas/internal/models"
	"github.com/diewo77/facturas/internal/store"
)

// Ledger is the read-side of the invoice store needed for number allocation.
// store.Store satisfies it.
type Ledger interface {
	LatestInvoice(ctx context.Context) (*models.Invoice, error)
	InvoiceNumberExists(ctx context.Context, number string) (bool, error)
}

const (
	// defaultBase seeds the sequence when no invoice exists yet.
	defaultBase = 1000
	// defaultMaxAttempts bounds the linear existence probe.
	defaultMaxAttempts = 1000
)

// NumberAllocator determines a free invoice number. A proposed number is
// validated and advanced past collisions with a bounded linear probe; without
// a proposal the number of the most recently created invoice (insertion
// order, not numeric maximum) is taken as base and a small random increment
// is added, leaving gaps between consecutive invoices.
//
// The allocator alone cannot exclude two concurrent requests settling on the
// same candidate; the unique constraint on invoice numbers plus the
// assembler's retry close that race.
type NumberAllocator struct {
	ledger      Ledger
	maxAttempts int
	rng         *rand.Rand
}

func NewNumberAllocator(ledger Ledger) *NumberAllocator {
	return &NumberAllocator{
		ledger:      ledger,
		maxAttempts: defaultMaxAttempts,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithLedger returns a copy of the allocator bound to another ledger,
// typically a transaction-scoped store.
func (a *NumberAllocator) WithLedger(ledger Ledger) *NumberAllocator {
	cp := *a
	cp.ledger = ledger
	return &cp
}

// Allocate returns a free invoice number. proposed may be empty.
func (a *NumberAllocator) Allocate(ctx context.Context, proposed string) (string, error) {
	if proposed != "" {
		return a.probe(ctx, proposed)
	}
	return a.next(ctx)
}

// probe parses the proposed number and walks forward until a free number is
// found or maxAttempts is exhausted.
func (a *NumberAllocator) probe(ctx context.Context, proposed string) (string, error) {
	n, err := strconv.ParseInt(proposed, 10, 64)
	if err != nil || n < 0 {
		return "", invalidInput("number", "must_be_a_non_negative_integer")
	}
	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		candidate := strconv.FormatInt(n, 10)
		taken, err := a.ledger.InvoiceNumberExists(ctx, candidate)
		if err != nil {
			return "", storageErr("invoice number exists", err)
		}
		if !taken {
			return candidate, nil
		}
		n++
	}
	return "", fmt.Errorf("%w: gave up after %d attempts from %s", ErrNumberExhausted, a.maxAttempts, proposed)
}

// next derives a fresh number from the latest invoice plus a random increment
// in [3,5], leaving gaps between consecutive invoices.
func (a *NumberAllocator) next(ctx context.Context) (string, error) {
	base := int64(defaultBase)
	latest, err := a.ledger.LatestInvoice(ctx)
	switch {
	case errors.Is(err, store.ErrNotFound):
		// empty ledger, start from the default base
	case err != nil:
		return "", storageErr("latest invoice", err)
	default:
		if n, perr := strconv.ParseInt(latest.Number, 10, 64); perr == nil {
			base = n
		}
		// a non-numeric stored number falls back to the default base
	}
	increment := int64(3 + a.rng.Intn(3))
	return strconv.FormatInt(base+increment, 10), nil
}
