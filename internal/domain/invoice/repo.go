package invoice

import (
	"invoicedesk/internal/domain"
)

// Repository defines data access for invoices.
type Repository = domain.Repository[*Invoice]
