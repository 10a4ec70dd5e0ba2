package invoice

import (
	"context"
	"strings"

	"invoicedesk/internal/core/numerator"
	"invoicedesk/internal/domain"
	"invoicedesk/internal/domain/audit"
	"invoicedesk/pkg/logger"
)

// Config controls invoice numbering.
type Config struct {
	// AutoNumber assigns the next sequence number to invoices created without one.
	AutoNumber bool
	Format     numerator.Config
}

// Service provides business logic for invoices.
type Service struct {
	*domain.Service[*Invoice]
	sequence numerator.Sequencer
	cfg      Config
}

// NewService creates a new invoice service.
func NewService(repo Repository, sequence numerator.Sequencer, cfg Config) *Service {
	base := domain.NewService(domain.ServiceConfig[*Invoice]{
		Repo:       repo,
		EntityName: "invoice",
	})

	svc := &Service{
		Service:  base,
		sequence: sequence,
		cfg:      cfg,
	}
	base.Hooks().OnBeforeCreate(svc.prepareForCreate)
	base.Hooks().OnBeforeUpdate(svc.prepareForUpdate)
	audit.Register(base.Hooks())
	return svc
}

// Create stores a new invoice, numbering it first when needed.
// A number consumed for an invoice that then fails to store is not reused.
func (s *Service) Create(ctx context.Context, inv *Invoice) error {
	err := s.Service.Create(ctx, inv)
	if err != nil && inv.numberAssigned {
		logger.Warn(ctx, "invoice not stored, sequence number left unused",
			"sequence", inv.Sequence,
			"invoice_number", inv.InvoiceNumber,
			"error", err,
		)
	}
	return err
}

func (s *Service) prepareForCreate(ctx context.Context, inv *Invoice) error {
	inv.Recalculate()

	inv.InvoiceNumber = strings.TrimSpace(inv.InvoiceNumber)
	if inv.InvoiceNumber != "" {
		if inv.Sequence == 0 {
			if n := numerator.ParseNumber(inv.InvoiceNumber); n > 0 {
				inv.Sequence = n
			}
		}
		return nil
	}
	if !s.cfg.AutoNumber {
		return nil
	}

	seq, err := s.sequence.GetNext(ctx)
	if err != nil {
		return numerator.AsAppError(err)
	}
	inv.Sequence = seq
	inv.InvoiceNumber = s.cfg.Format.Format(seq)
	inv.numberAssigned = true
	return nil
}

func (s *Service) prepareForUpdate(_ context.Context, inv *Invoice) error {
	inv.Recalculate()
	return nil
}
