package customer

import (
	"context"
	"strings"

	"invoicedesk/internal/core/apperror"
	"invoicedesk/internal/domain"
	"invoicedesk/internal/domain/audit"
)

// Service provides business logic for customers.
type Service struct {
	*domain.Service[*Customer]
}

// NewService creates a new customer service.
func NewService(repo Repository) *Service {
	base := domain.NewService(domain.ServiceConfig[*Customer]{
		Repo:       repo,
		EntityName: "customer",
	})

	svc := &Service{Service: base}
	base.Hooks().OnBeforeValidate(svc.normalize)
	audit.Register(base.Hooks())
	return svc
}

// normalize keeps lookup keys in the form Search expects.
func (s *Service) normalize(_ context.Context, c *Customer) error {
	c.Phone = strings.TrimSpace(c.Phone)
	c.GSTIN = strings.ToUpper(strings.TrimSpace(c.GSTIN))
	return nil
}

// Search finds a customer by phone number or GSTIN.
func (s *Service) Search(ctx context.Context, searchType SearchType, value string) (*Customer, error) {
	value = strings.TrimSpace(value)
	if value == "" || searchType == "" {
		return nil, apperror.NewInvalidInput("missing required parameters: value and type")
	}
	field, ok := searchType.Field()
	if !ok {
		return nil, apperror.NewInvalidInput(`type must be either "phone" or "gstin"`).
			WithDetail("type", string(searchType))
	}
	if searchType == SearchByGSTIN {
		value = strings.ToUpper(value)
	}
	return s.FindBy(ctx, field, value)
}
