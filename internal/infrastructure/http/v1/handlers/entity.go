package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"invoicedesk/internal/domain"
	"invoicedesk/internal/infrastructure/http/v1/dto"
)

// EntityService is the part of a domain service the generic handler drives.
type EntityService[T domain.Entity] interface {
	Create(ctx context.Context, entity T) error
	GetByID(ctx context.Context, id string) (T, error)
	Update(ctx context.Context, entity T) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[T], error)
}

// EntityHandler provides generic CRUD handlers for document-backed entities.
type EntityHandler[T domain.Entity] struct {
	*BaseHandler
	service   EntityService[T]
	newEntity func() T

	// mapCreated builds the 201 body; defaults to an insert acknowledgement.
	mapCreated func(entity T) any
}

// EntityHandlerConfig configures the entity handler.
type EntityHandlerConfig[T domain.Entity] struct {
	Service    EntityService[T]
	NewEntity  func() T
	MapCreated func(entity T) any
}

// NewEntityHandler creates a new entity handler.
func NewEntityHandler[T domain.Entity](base *BaseHandler, cfg EntityHandlerConfig[T]) *EntityHandler[T] {
	mapCreated := cfg.MapCreated
	if mapCreated == nil {
		mapCreated = func(entity T) any {
			return dto.NewInsertResponse(entity.GetID())
		}
	}
	return &EntityHandler[T]{
		BaseHandler: base,
		service:     cfg.Service,
		newEntity:   cfg.NewEntity,
		mapCreated:  mapCreated,
	}
}

// List handles GET /{entity}.
// Query: limit, offset, sort ("field" or "-field"). The body is a bare array.
func (h *EntityHandler[T]) List(c *gin.Context) {
	filter := domain.DefaultListFilter()
	filter.Limit = h.ParseIntQuery(c, "limit", 0)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)
	filter.OrderBy = c.Query("sort")

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.Header("X-Total-Count", strconv.FormatInt(result.TotalCount, 10))
	c.JSON(http.StatusOK, result.Items)
}

// Get handles GET /{entity}/:id.
func (h *EntityHandler[T]) Get(c *gin.Context) {
	entity, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, entity)
}

// Create handles POST /{entity}.
func (h *EntityHandler[T]) Create(c *gin.Context) {
	entity := h.newEntity()
	if !h.BindJSON(c, entity) {
		return
	}

	if err := h.service.Create(c.Request.Context(), entity); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, h.mapCreated(entity))
}

// Update handles PUT /{entity}/:id.
// Fields present in the body overwrite the stored ones; absent fields are kept.
func (h *EntityHandler[T]) Update(c *gin.Context) {
	ctx := c.Request.Context()
	entityID := c.Param("id")

	existing, err := h.service.GetByID(ctx, entityID)
	if err != nil {
		h.Error(c, err)
		return
	}

	if !h.BindJSON(c, existing) {
		return
	}
	existing.SetID(entityID)

	if err := h.service.Update(ctx, existing); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c)
}

// Delete handles DELETE /{entity}/:id.
func (h *EntityHandler[T]) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c)
}
