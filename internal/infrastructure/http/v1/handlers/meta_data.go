package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"invoicedesk/internal/core/numerator"
	"invoicedesk/internal/infrastructure/http/v1/dto"
)

// SequenceService is what the meta data endpoints need from the invoice sequence.
type SequenceService interface {
	Get(ctx context.Context, increment bool) (int64, error)
	Snapshot(ctx context.Context) numerator.Record
}

// MetaDataHandler serves /api/meta_data.
type MetaDataHandler struct {
	*BaseHandler
	sequence SequenceService
}

// NewMetaDataHandler creates a meta data handler.
func NewMetaDataHandler(base *BaseHandler, sequence SequenceService) *MetaDataHandler {
	return &MetaDataHandler{BaseHandler: base, sequence: sequence}
}

// Get handles GET /api/meta_data and returns the counter document.
func (h *MetaDataHandler) Get(c *gin.Context) {
	h.OK(c, dto.FromRecord(h.sequence.Snapshot(c.Request.Context())))
}

// Sequence handles POST /api/meta_data.
// Body {"increment": true} consumes the next number; anything else, including
// no body or a malformed one, only reads the current value.
func (h *MetaDataHandler) Sequence(c *gin.Context) {
	var req dto.SequenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		req = dto.SequenceRequest{}
	}

	seq, err := h.sequence.Get(c.Request.Context(), req.Increment)
	if err != nil {
		h.Error(c, numerator.AsAppError(err))
		return
	}
	h.OK(c, dto.SequenceResponse{LastInvoiceSequence: seq})
}
