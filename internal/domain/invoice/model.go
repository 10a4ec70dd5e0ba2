// Package invoice provides invoices and their numbering.
package invoice

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"

	"invoicedesk/internal/domain/audit"
)

// CollectionName is where invoices are stored.
const CollectionName = "invoices"

var hundred = decimal.NewFromInt(100)

// LineItem is one product line of an invoice.
type LineItem struct {
	ProductID   string          `json:"product_id,omitempty"`
	ProductCode string          `json:"product_code,omitempty"`
	Description string          `json:"description"`
	HSNCode     string          `json:"hsn_code,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxRate     decimal.Decimal `json:"tax_rate"`

	// Computed by Recalculate.
	Amount    decimal.Decimal `json:"amount"`
	TaxAmount decimal.Decimal `json:"tax_amount"`
}

// Validate implements validation.Validatable.
func (l LineItem) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Description, validation.Required),
		validation.Field(&l.Quantity, validation.By(positive)),
		validation.Field(&l.UnitPrice, validation.By(nonNegative)),
		validation.Field(&l.TaxRate, validation.By(nonNegative)),
	)
}

// Invoice is an issued bill. InvoiceNumber and Sequence are assigned from the
// invoice sequence unless the client reserved a number beforehand.
type Invoice struct {
	ID            string     `json:"_id,omitempty"`
	InvoiceNumber string     `json:"invoice_number,omitempty"`
	Sequence      int64      `json:"sequence,omitempty"`
	CustomerID    string     `json:"customer_id,omitempty"`
	CustomerName  string     `json:"customer_name"`
	CustomerGSTIN string     `json:"customer_gstin,omitempty"`
	Items         []LineItem `json:"items"`
	Notes         string     `json:"notes,omitempty"`

	Subtotal decimal.Decimal `json:"subtotal"`
	TaxTotal decimal.Decimal `json:"tax_total"`
	Total    decimal.Decimal `json:"total"`

	audit.Fields

	// numberAssigned marks a number taken from the sequence for this create call.
	numberAssigned bool
}

// GetID implements domain.Entity.
func (i *Invoice) GetID() string { return i.ID }

// SetID implements domain.Entity.
func (i *Invoice) SetID(id string) { i.ID = id }

// Validate implements domain.Entity.
func (i *Invoice) Validate(ctx context.Context) error {
	return validation.ValidateStructWithContext(ctx, i,
		validation.Field(&i.CustomerName, validation.Required, validation.Length(1, 200)),
		validation.Field(&i.Items, validation.Required),
		validation.Field(&i.Sequence, validation.Min(int64(0))),
	)
}

// Recalculate derives line amounts and invoice totals from quantities, prices and rates.
func (i *Invoice) Recalculate() {
	subtotal := decimal.Zero
	tax := decimal.Zero
	for n := range i.Items {
		line := &i.Items[n]
		line.Amount = line.Quantity.Mul(line.UnitPrice).Round(2)
		line.TaxAmount = line.Amount.Mul(line.TaxRate).Div(hundred).Round(2)
		subtotal = subtotal.Add(line.Amount)
		tax = tax.Add(line.TaxAmount)
	}
	i.Subtotal = subtotal
	i.TaxTotal = tax
	i.Total = subtotal.Add(tax)
}

func positive(value any) error {
	d, _ := value.(decimal.Decimal)
	if !d.IsPositive() {
		return validation.NewError("validation_positive", "must be greater than zero")
	}
	return nil
}

func nonNegative(value any) error {
	d, _ := value.(decimal.Decimal)
	if d.IsNegative() {
		return validation.NewError("validation_negative", "must not be negative")
	}
	return nil
}
