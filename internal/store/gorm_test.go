package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/diewo77/facturas/internal/models"
)

func setupTestDB(t *testing.T) Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewGorm(db)
}

func mustCreateClient(t *testing.T, st Store, name, taxID string) *models.Client {
	t.Helper()
	c := &models.Client{Name: name, TaxID: taxID}
	if err := st.CreateClient(context.Background(), c); err != nil {
		t.Fatalf("create client: %v", err)
	}
	return c
}

func TestClientLookupIsCaseInsensitive(t *testing.T) {
	st := setupTestDB(t)
	ctx := context.Background()
	created := mustCreateClient(t, st, "Acme Tools", "b123")

	got, err := st.ClientByNameAndTaxID(ctx, "ACME TOOLS", "B123")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.ID != created.ID {
		t.Fatalf("expected id %d got %d", created.ID, got.ID)
	}

	if _, err := st.ClientByNameAndTaxID(ctx, "ACME TOOLS", "OTHER"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound got %v", err)
	}
}

func TestActiveProductByNameIgnoresInactive(t *testing.T) {
	st := setupTestDB(t)
	ctx := context.Background()

	old := &models.Product{Name: "Widget", UnitPrice: 10, TaxRate: 21, Active: true}
	if err := st.CreateProduct(ctx, old); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := st.DeactivateProduct(ctx, old.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	current := &models.Product{Name: "Widget", UnitPrice: 12, TaxRate: 21, Active: true}
	if err := st.CreateProduct(ctx, current); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := st.ActiveProductByName(ctx, "widget")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.ID != current.ID {
		t.Fatalf("expected active row %d got %d", current.ID, got.ID)
	}
	if got.UnitPrice != 12 {
		t.Fatalf("expected price 12 got %v", got.UnitPrice)
	}
}

func TestDeactivateMissingProduct(t *testing.T) {
	st := setupTestDB(t)
	if err := st.DeactivateProduct(context.Background(), 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound got %v", err)
	}
}

func TestDuplicateInvoiceNumberRejected(t *testing.T) {
	st := setupTestDB(t)
	ctx := context.Background()
	client := mustCreateClient(t, st, "ACME", "B123")

	first := &models.Invoice{Number: "1003", Date: "2024-01-01", ClientID: client.ID}
	if err := st.CreateInvoice(ctx, first); err != nil {
		t.Fatalf("create: %v", err)
	}
	dup := &models.Invoice{Number: "1003", Date: "2024-01-02", ClientID: client.ID}
	if err := st.CreateInvoice(ctx, dup); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate got %v", err)
	}
}

func TestLatestInvoiceIsInsertionOrder(t *testing.T) {
	st := setupTestDB(t)
	ctx := context.Background()
	client := mustCreateClient(t, st, "ACME", "B123")

	if _, err := st.LatestInvoice(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty ledger got %v", err)
	}

	for _, n := range []string{"9000", "150"} {
		inv := &models.Invoice{Number: n, Date: "2024-01-01", ClientID: client.ID}
		if err := st.CreateInvoice(ctx, inv); err != nil {
			t.Fatalf("create %s: %v", n, err)
		}
	}
	latest, err := st.LatestInvoice(ctx)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.Number != "150" {
		t.Fatalf("expected most recently created invoice, got %s", latest.Number)
	}

	exists, err := st.InvoiceNumberExists(ctx, "9000")
	if err != nil || !exists {
		t.Fatalf("expected 9000 to exist (err=%v)", err)
	}
	exists, err = st.InvoiceNumberExists(ctx, "9001")
	if err != nil || exists {
		t.Fatalf("expected 9001 to be free (err=%v)", err)
	}
}

func TestListInvoicesJoinsClientName(t *testing.T) {
	st := setupTestDB(t)
	ctx := context.Background()
	client := mustCreateClient(t, st, "ACME", "B123")

	for _, n := range []string{"1003", "1007"} {
		inv := &models.Invoice{Number: n, Date: "2024-01-01", ClientID: client.ID}
		if err := st.CreateInvoice(ctx, inv); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	rows, err := st.ListInvoices(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows got %d", len(rows))
	}
	// newest first
	if rows[0].Number != "1007" || rows[0].Client != "ACME" {
		t.Fatalf("unexpected first row: %+v", rows[0])
	}
}

func TestInvoiceByIDPreloadsLines(t *testing.T) {
	st := setupTestDB(t)
	ctx := context.Background()
	client := mustCreateClient(t, st, "ACME", "B123")
	product := &models.Product{Name: "Bolt", UnitPrice: 1.21, TaxRate: 21, Active: true}
	if err := st.CreateProduct(ctx, product); err != nil {
		t.Fatalf("product: %v", err)
	}
	inv := &models.Invoice{Number: "1003", Date: "2024-01-01", ClientID: client.ID}
	if err := st.CreateInvoice(ctx, inv); err != nil {
		t.Fatalf("invoice: %v", err)
	}
	line := &models.InvoiceLine{InvoiceID: inv.ID, ProductID: product.ID, Quantity: 10, UnitPrice: 1.21, TaxRate: 21}
	if err := st.CreateInvoiceLine(ctx, line); err != nil {
		t.Fatalf("line: %v", err)
	}

	got, err := st.InvoiceByID(ctx, inv.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Client == nil || got.Client.Name != "ACME" {
		t.Fatalf("client not preloaded: %+v", got.Client)
	}
	if len(got.Lines) != 1 || got.Lines[0].Product == nil || got.Lines[0].Product.Name != "Bolt" {
		t.Fatalf("lines not preloaded: %+v", got.Lines)
	}
}

func TestTransactionRollsBackOnError(t *testing.T) {
	st := setupTestDB(t)
	ctx := context.Background()

	sentinel := errors.New("abort")
	err := st.Transaction(ctx, func(tx Store) error {
		if err := tx.CreateClient(ctx, &models.Client{Name: "Ghost", TaxID: "X1"}); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error got %v", err)
	}
	if _, err := st.ClientByNameAndTaxID(ctx, "Ghost", "X1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected rollback, client still present (err=%v)", err)
	}
}

func TestProductHistoryOrdersActiveFirst(t *testing.T) {
	st := setupTestDB(t)
	ctx := context.Background()

	old := &models.Product{Name: "Widget", UnitPrice: 10, TaxRate: 21, Active: true}
	if err := st.CreateProduct(ctx, old); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := st.DeactivateProduct(ctx, old.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	current := &models.Product{Name: "Widget", UnitPrice: 12, TaxRate: 21, Active: true}
	if err := st.CreateProduct(ctx, current); err != nil {
		t.Fatalf("create: %v", err)
	}

	history, err := st.ProductHistory(ctx)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 rows got %d", len(history))
	}
	if !history[0].Active || history[1].Active {
		t.Fatalf("expected active row first: %+v", history)
	}
}
