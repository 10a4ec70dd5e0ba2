package product

import (
	"invoicedesk/internal/domain"
)

// Repository defines data access for products.
type Repository = domain.Repository[*Product]
