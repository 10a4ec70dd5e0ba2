package product

import (
	"context"
	"strings"

	"invoicedesk/internal/core/apperror"
	"invoicedesk/internal/domain"
	"invoicedesk/internal/domain/audit"
)

// Service provides business logic for products.
type Service struct {
	*domain.Service[*Product]
	repo Repository
}

// NewService creates a new product service.
func NewService(repo Repository) *Service {
	base := domain.NewService(domain.ServiceConfig[*Product]{
		Repo:       repo,
		EntityName: "product",
	})

	svc := &Service{Service: base, repo: repo}
	base.Hooks().OnBeforeCreate(svc.checkCodeUnique)
	base.Hooks().OnBeforeUpdate(svc.checkCodeUnique)
	audit.Register(base.Hooks())
	return svc
}

// checkCodeUnique rejects a product code already used by another product.
func (s *Service) checkCodeUnique(ctx context.Context, p *Product) error {
	p.ProductCode = strings.TrimSpace(p.ProductCode)

	existing, err := s.repo.FindOne(ctx, "product_code", p.ProductCode)
	if apperror.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != p.ID {
		return apperror.NewDuplicate("product", "product_code", p.ProductCode)
	}
	return nil
}

// GetByCode retrieves a product by its code.
func (s *Service) GetByCode(ctx context.Context, code string) (*Product, error) {
	if strings.TrimSpace(code) == "" {
		return nil, apperror.NewInvalidInput("product code is required")
	}
	return s.FindBy(ctx, "product_code", strings.TrimSpace(code))
}
