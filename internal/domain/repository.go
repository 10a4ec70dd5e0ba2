// Package domain provides core business logic interfaces and types.
package domain

import (
	"context"
)

// Entity is a document-backed domain object.
type Entity interface {
	GetID() string
	SetID(id string)
	Validate(ctx context.Context) error
}

// --- Filter & Pagination ---

// ListFilter contains common options for list operations.
type ListFilter struct {
	// OrderBy specifies sorting (e.g., "name", "-created_at")
	OrderBy string

	// Pagination; Limit 0 returns everything
	Limit  int
	Offset int
}

// DefaultListFilter returns the natural-order, unpaginated listing.
func DefaultListFilter() ListFilter {
	return ListFilter{}
}

// ListResult contains paginated results.
type ListResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// --- Repository Interfaces ---

// Repository defines CRUD operations for document-backed entities.
type Repository[T Entity] interface {
	// Create inserts a new entity and assigns its ID when empty
	Create(ctx context.Context, entity T) error

	// GetByID retrieves entity by ID
	GetByID(ctx context.Context, id string) (T, error)

	// FindOne retrieves the first entity whose field equals value
	FindOne(ctx context.Context, field string, value any) (T, error)

	// Update overwrites the stored fields of entity; false when nothing matched
	Update(ctx context.Context, entity T) (bool, error)

	// Delete removes the entity; false when nothing was deleted
	Delete(ctx context.Context, id string) (bool, error)

	// List retrieves entities with pagination
	List(ctx context.Context, filter ListFilter) (ListResult[T], error)
}
