package handlers

import (
	"github.com/gin-gonic/gin"

	"invoicedesk/internal/domain/product"
)

// ProductHandler serves /api/products.
type ProductHandler struct {
	*EntityHandler[*product.Product]
	service *product.Service
}

// NewProductHandler creates a product handler.
func NewProductHandler(base *BaseHandler, service *product.Service) *ProductHandler {
	return &ProductHandler{
		EntityHandler: NewEntityHandler(base, EntityHandlerConfig[*product.Product]{
			Service:   service,
			NewEntity: func() *product.Product { return &product.Product{} },
		}),
		service: service,
	}
}

// GetByCode handles GET /api/products/code?code=...
func (h *ProductHandler) GetByCode(c *gin.Context) {
	found, err := h.service.GetByCode(c.Request.Context(), c.Query("code"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, found)
}
