package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/diewo77/facturas/internal/models"
	"github.com/diewo77/facturas/internal/store"
	"github.com/diewo77/facturas/internal/validation"
)

// LineInput is one requested invoice line. Price and rate are snapshotted
// onto the line at creation time, independent of later product changes.
type LineInput struct {
	Name         string  `json:"name"`
	Description  string  `json:"description,omitempty"`
	UnitPrice    float64 `json:"unitPrice"` // tax-inclusive
	TaxRate      float64 `json:"taxRate"`   // percent
	Quantity     int     `json:"quantity"`
	AllowReplace bool    `json:"allowReplace,omitempty"`
}

// CreateInvoiceRequest is the boundary contract for invoice creation.
type CreateInvoiceRequest struct {
	Date   string      `json:"date"`
	Number string      `json:"number,omitempty"` // optional proposed number
	Client ClientInput `json:"client"`
	Lines  []LineInput `json:"lines"`
}

// CreateInvoiceResult identifies the persisted invoice and its document.
// DocumentRef is empty when rendering failed after the data writes succeeded.
type CreateInvoiceResult struct {
	InvoiceID   uint   `json:"invoiceId"`
	Number      string `json:"invoiceNumber"`
	DocumentRef string `json:"documentReference,omitempty"`
}

// DocumentLine is one line of the invoice view model handed to the renderer.
type DocumentLine struct {
	Name        string
	Description string
	UnitPrice   float64
	TaxRate     float64
	Quantity    int
	LineTotal   float64
}

// InvoiceDocument is the fully-populated view model the renderer consumes.
type InvoiceDocument struct {
	Number    string
	Date      string
	Client    models.Client
	Lines     []DocumentLine
	Breakdown TaxBreakdown
}

// DocumentRenderer turns an assembled invoice into a document and returns a
// reference to it (a file name in the default implementation).
type DocumentRenderer interface {
	Render(ctx context.Context, doc InvoiceDocument) (string, error)
}

// maxCreateAttempts bounds the retry-on-duplicate-number loop. Each retry
// reruns the whole transaction with a freshly allocated number.
const maxCreateAttempts = 3

// InvoiceService orchestrates the invoice-creation workflow: reconcile
// client, allocate number, persist header and line snapshots inside one
// transaction, then compute the tax breakdown and render the document.
type InvoiceService struct {
	store    store.Store
	renderer DocumentRenderer
	alloc    *NumberAllocator
	rec      *Reconciler
	log      zerolog.Logger
}

func NewInvoiceService(st store.Store, renderer DocumentRenderer, log zerolog.Logger) *InvoiceService {
	return &InvoiceService{
		store:    st,
		renderer: renderer,
		alloc:    NewNumberAllocator(st),
		rec:      NewReconciler(st),
		log:      log,
	}
}

// Create runs the full creation workflow. On a rendering failure the
// returned result still carries the persisted invoice id and number together
// with an error wrapping ErrRenderer, so the caller can retry rendering via
// RenderDocument instead of re-creating the invoice.
func (s *InvoiceService) Create(ctx context.Context, req CreateInvoiceRequest) (CreateInvoiceResult, error) {
	if err := validateRequest(req); err != nil {
		return CreateInvoiceResult{}, err
	}

	var (
		inv      models.Invoice
		docLines []DocumentLine
		client   models.Client
	)
	attempt := 0
	for {
		attempt++
		inv = models.Invoice{}
		docLines = docLines[:0]
		err := s.store.Transaction(ctx, func(tx store.Store) error {
			rec := s.rec.WithStore(tx)
			clientID, err := rec.ResolveClient(ctx, req.Client)
			if err != nil {
				return err
			}
			number, err := s.alloc.WithLedger(tx).Allocate(ctx, req.Number)
			if err != nil {
				return err
			}
			inv = models.Invoice{Number: number, Date: strings.TrimSpace(req.Date), ClientID: clientID}
			if err := tx.CreateInvoice(ctx, &inv); err != nil {
				return err // a duplicate here aborts the tx and triggers a retry
			}
			for _, l := range req.Lines {
				productID, err := rec.ResolveProduct(ctx, ProductInput{
					Name:         l.Name,
					Description:  l.Description,
					UnitPrice:    l.UnitPrice,
					TaxRate:      l.TaxRate,
					AllowReplace: l.AllowReplace,
				})
				if err != nil {
					return err
				}
				line := models.InvoiceLine{
					InvoiceID: inv.ID,
					ProductID: productID,
					Quantity:  l.Quantity,
					UnitPrice: l.UnitPrice,
					TaxRate:   l.TaxRate,
				}
				if err := tx.CreateInvoiceLine(ctx, &line); err != nil {
					return err
				}
				docLines = append(docLines, DocumentLine{
					Name:        strings.TrimSpace(l.Name),
					Description: strings.TrimSpace(l.Description),
					UnitPrice:   l.UnitPrice,
					TaxRate:     l.TaxRate,
					Quantity:    l.Quantity,
					LineTotal:   round2(l.UnitPrice * float64(l.Quantity)),
				})
			}
			c, err := tx.InvoiceByID(ctx, inv.ID)
			if err != nil {
				return err
			}
			if c.Client != nil {
				client = *c.Client
			}
			return nil
		})
		if err == nil {
			break
		}
		if errors.Is(err, store.ErrDuplicate) {
			if attempt < maxCreateAttempts {
				s.log.Warn().Str("number", inv.Number).Int("attempt", attempt).
					Msg("invoice number taken, reallocating")
				continue
			}
			return CreateInvoiceResult{}, fmt.Errorf("%w: number still taken after %d attempts", ErrNumberExhausted, attempt)
		}
		return CreateInvoiceResult{}, classify(err)
	}

	s.log.Info().Uint("invoice_id", inv.ID).Str("number", inv.Number).
		Int("lines", len(docLines)).Msg("invoice created")

	ref, err := s.renderDocument(ctx, inv.Number, inv.Date, client, docLines)
	result := CreateInvoiceResult{InvoiceID: inv.ID, Number: inv.Number, DocumentRef: ref}
	if err != nil {
		return result, err
	}
	return result, nil
}

// RenderDocument re-renders the document for an already persisted invoice,
// rebuilding the view model from the stored line snapshots.
func (s *InvoiceService) RenderDocument(ctx context.Context, invoiceID uint) (CreateInvoiceResult, error) {
	inv, err := s.store.InvoiceByID(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return CreateInvoiceResult{}, fmt.Errorf("invoice %d: %w", invoiceID, store.ErrNotFound)
		}
		return CreateInvoiceResult{}, storageErr("invoice load", err)
	}
	var client models.Client
	if inv.Client != nil {
		client = *inv.Client
	}
	lines := make([]DocumentLine, 0, len(inv.Lines))
	for _, l := range inv.Lines {
		dl := DocumentLine{
			UnitPrice: l.UnitPrice,
			TaxRate:   l.TaxRate,
			Quantity:  l.Quantity,
			LineTotal: round2(l.LineTotal()),
		}
		if l.Product != nil {
			dl.Name = l.Product.Name
			dl.Description = l.Product.Description
		}
		lines = append(lines, dl)
	}
	ref, err := s.renderDocument(ctx, inv.Number, inv.Date, client, lines)
	result := CreateInvoiceResult{InvoiceID: inv.ID, Number: inv.Number, DocumentRef: ref}
	if err != nil {
		return result, err
	}
	return result, nil
}

func (s *InvoiceService) renderDocument(ctx context.Context, number, date string, client models.Client, lines []DocumentLine) (string, error) {
	taxLines := make([]TaxLine, 0, len(lines))
	for _, l := range lines {
		taxLines = append(taxLines, TaxLine{UnitPrice: l.UnitPrice, Quantity: l.Quantity, TaxRate: l.TaxRate})
	}
	breakdown, err := ComputeTaxBreakdown(taxLines)
	if err != nil {
		return "", err
	}
	ref, err := s.renderer.Render(ctx, InvoiceDocument{
		Number:    number,
		Date:      date,
		Client:    client,
		Lines:     lines,
		Breakdown: breakdown,
	})
	if err != nil {
		s.log.Error().Err(err).Str("number", number).Msg("document rendering failed")
		return "", fmt.Errorf("%w: %v", ErrRenderer, err)
	}
	return ref, nil
}

// validateRequest rejects incomplete requests before any write happens.
func validateRequest(req CreateInvoiceRequest) error {
	v := make(validation.Violations)
	validation.Required("date", req.Date, v)
	validation.Required("client.name", req.Client.Name, v)
	validation.Required("client.taxId", req.Client.TaxID, v)
	if len(req.Lines) == 0 {
		v["lines"] = "required"
	}
	if req.Number != "" {
		if n, err := strconv.ParseInt(req.Number, 10, 64); err != nil || n < 0 {
			v["number"] = "must_be_a_non_negative_integer"
		}
	}
	for i, l := range req.Lines {
		prefix := "lines[" + strconv.Itoa(i) + "]."
		validation.Required(prefix+"name", l.Name, v)
		validation.PositiveInt(prefix+"quantity", l.Quantity, v)
		validation.NonNegativeFloat(prefix+"unitPrice", l.UnitPrice, v)
		validation.NonNegativeFloat(prefix+"taxRate", l.TaxRate, v)
	}
	if !v.Empty() {
		return &InputError{Violations: v}
	}
	return nil
}

// classify maps raw workflow errors onto the service taxonomy; errors that
// already carry a taxonomy sentinel pass through unchanged.
func classify(err error) error {
	switch {
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrProductDiverged),
		errors.Is(err, ErrNumberExhausted),
		errors.Is(err, ErrStorage),
		errors.Is(err, ErrRenderer):
		return err
	default:
		return storageErr("invoice creation", err)
	}
}
