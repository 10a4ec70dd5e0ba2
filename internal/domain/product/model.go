// Package product provides the product catalog used for invoice lines.
package product

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"

	"invoicedesk/internal/domain/audit"
)

// CollectionName is where products are stored.
const CollectionName = "products"

// Product is a sellable item.
type Product struct {
	ID          string          `json:"_id,omitempty"`
	ProductCode string          `json:"product_code"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	HSNCode     string          `json:"hsn_code,omitempty"`
	Unit        string          `json:"unit,omitempty"`
	Price       decimal.Decimal `json:"price"`
	// TaxRate is a percentage, e.g. 18 for 18%.
	TaxRate decimal.Decimal `json:"tax_rate"`

	audit.Fields
}

// GetID implements domain.Entity.
func (p *Product) GetID() string { return p.ID }

// SetID implements domain.Entity.
func (p *Product) SetID(id string) { p.ID = id }

// Validate implements domain.Entity.
func (p *Product) Validate(ctx context.Context) error {
	return validation.ValidateStructWithContext(ctx, p,
		validation.Field(&p.ProductCode, validation.Required, validation.Length(1, 64)),
		validation.Field(&p.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&p.Price, validation.By(nonNegative)),
		validation.Field(&p.TaxRate, validation.By(percentage)),
	)
}

func nonNegative(value any) error {
	d, _ := value.(decimal.Decimal)
	if d.IsNegative() {
		return validation.NewError("validation_negative", "must not be negative")
	}
	return nil
}

func percentage(value any) error {
	d, _ := value.(decimal.Decimal)
	if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(100)) {
		return validation.NewError("validation_percentage", "must be between 0 and 100")
	}
	return nil
}
