package handlers

import (
	"github.com/gin-gonic/gin"

	"invoicedesk/internal/domain/customer"
)

// CustomerHandler serves /api/customers.
type CustomerHandler struct {
	*EntityHandler[*customer.Customer]
	service *customer.Service
}

// NewCustomerHandler creates a customer handler.
func NewCustomerHandler(base *BaseHandler, service *customer.Service) *CustomerHandler {
	return &CustomerHandler{
		EntityHandler: NewEntityHandler(base, EntityHandlerConfig[*customer.Customer]{
			Service:   service,
			NewEntity: func() *customer.Customer { return &customer.Customer{} },
		}),
		service: service,
	}
}

// Search handles GET /api/customers/search?type=phone|gstin&value=...
func (h *CustomerHandler) Search(c *gin.Context) {
	found, err := h.service.Search(c.Request.Context(),
		customer.SearchType(c.Query("type")),
		c.Query("value"),
	)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, found)
}
