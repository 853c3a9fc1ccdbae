package models

import "time"

// Client is a billing recipient. Reconciliation matches on the uppercased
// trimmed (Name, TaxID) pair; the pair is a lookup predicate, not a DB
// constraint, and the first stored version of the address fields wins.
type Client struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"size:255;not null;index" json:"name"`
	Address    string    `gorm:"size:500" json:"address,omitempty"`
	Locality   string    `gorm:"size:100" json:"locality,omitempty"`
	PostalCode string    `gorm:"size:20" json:"postalCode,omitempty"`
	Region     string    `gorm:"size:100" json:"region,omitempty"`
	TaxID      string    `gorm:"size:20;index" json:"taxId"`
	CreatedAt  time.Time `json:"-"`
}

// Product keeps full price history: at most one active row per uppercased
// name, superseded rows are deactivated rather than deleted so old invoice
// lines keep a valid reference.
type Product struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:255;not null;index" json:"name"`
	Description string    `gorm:"size:500" json:"description,omitempty"`
	UnitPrice   float64   `gorm:"type:decimal(10,2);not null" json:"unitPrice"` // tax-inclusive
	TaxRate     float64   `gorm:"type:decimal(5,2);not null" json:"taxRate"`    // percent, e.g. 21 for 21%
	Active      bool      `gorm:"not null;default:true;index" json:"active"`
	CreatedAt   time.Time `json:"-"`
}

// Invoice is immutable once created. Number is human-facing and unique at
// the store level; allocation conflicts are retried by the assembler.
type Invoice struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	Number    string        `gorm:"size:50;not null;uniqueIndex" json:"number"`
	Date      string        `gorm:"size:20;not null" json:"date"`
	ClientID  uint          `gorm:"not null;index" json:"clientId"`
	Client    *Client       `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Lines     []InvoiceLine `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"lines,omitempty"`
	CreatedAt time.Time     `json:"-"`
}

// InvoiceLine snapshots UnitPrice and TaxRate at invoice time so a later
// product re-registration cannot rewrite history.
type InvoiceLine struct {
	ID        uint     `gorm:"primaryKey" json:"id"`
	InvoiceID uint     `gorm:"not null;index" json:"invoiceId"`
	ProductID uint     `gorm:"not null" json:"productId"`
	Product   *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity  int      `gorm:"not null" json:"quantity"`
	UnitPrice float64  `gorm:"type:decimal(10,2);not null" json:"unitPrice"`
	TaxRate   float64  `gorm:"type:decimal(5,2);not null" json:"taxRate"`
}

// LineTotal is the tax-inclusive amount for the line.
func (l *InvoiceLine) LineTotal() float64 {
	return l.UnitPrice * float64(l.Quantity)
}

// All returns every model in migration order.
func All() []any {
	return []any{&Client{}, &Product{}, &Invoice{}, &InvoiceLine{}}
}
