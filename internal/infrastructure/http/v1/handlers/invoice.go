package handlers

import (
	"invoicedesk/internal/domain/invoice"
	"invoicedesk/internal/infrastructure/http/v1/dto"
)

// InvoiceHTTPHandler serves /api/invoices.
type InvoiceHTTPHandler = EntityHandler[*invoice.Invoice]

// NewInvoiceHandler creates an invoice handler. The create response carries the
// number the invoice was stamped with.
func NewInvoiceHandler(base *BaseHandler, service *invoice.Service) *InvoiceHTTPHandler {
	return NewEntityHandler(base, EntityHandlerConfig[*invoice.Invoice]{
		Service:   service,
		NewEntity: func() *invoice.Invoice { return &invoice.Invoice{} },
		MapCreated: func(inv *invoice.Invoice) any {
			return dto.InvoiceCreatedResponse{
				InsertResponse: dto.NewInsertResponse(inv.ID),
				InvoiceNumber:  inv.InvoiceNumber,
				Sequence:       inv.Sequence,
			}
		},
	})
}
