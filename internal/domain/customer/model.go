// Package customer provides the customer directory.
// Customers are looked up by phone or GSTIN when an invoice is being drafted.
package customer

import (
	"context"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"invoicedesk/internal/domain/audit"
)

// CollectionName is where customers are stored.
const CollectionName = "customers"

// gstinRE matches the 15-character Indian GST identification number.
var gstinRE = regexp.MustCompile(`^[0-9]{2}[A-Z0-9]{10}[0-9A-Z]Z[0-9A-Z]$`)

// SearchType selects the field used by Search.
type SearchType string

const (
	SearchByPhone SearchType = "phone"
	SearchByGSTIN SearchType = "gstin"
)

// Field returns the stored field name for the search type.
func (t SearchType) Field() (string, bool) {
	switch t {
	case SearchByPhone:
		return "phone", true
	case SearchByGSTIN:
		return "gstin", true
	}
	return "", false
}

// Customer is a buyer that invoices are issued to.
type Customer struct {
	ID      string `json:"_id,omitempty"`
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	GSTIN   string `json:"gstin,omitempty"`
	Address string `json:"address,omitempty"`
	State   string `json:"state,omitempty"`

	audit.Fields
}

// GetID implements domain.Entity.
func (c *Customer) GetID() string { return c.ID }

// SetID implements domain.Entity.
func (c *Customer) SetID(id string) { c.ID = id }

// Validate implements domain.Entity.
func (c *Customer) Validate(ctx context.Context) error {
	return validation.ValidateStructWithContext(ctx, c,
		validation.Field(&c.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&c.Phone, validation.Length(5, 20)),
		validation.Field(&c.Email, is.EmailFormat),
		validation.Field(&c.GSTIN, validation.Match(gstinRE).Error("must be a valid 15-character GSTIN")),
	)
}
