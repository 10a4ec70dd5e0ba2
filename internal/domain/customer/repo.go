package customer

import (
	"invoicedesk/internal/domain"
)

// Repository defines data access for customers.
type Repository = domain.Repository[*Customer]
