// Package docrepo implements domain repositories on top of a docstore collection.
// One generic repository serves every entity; entities map to documents through
// their json tags.
package docrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"invoicedesk/internal/core/apperror"
	"invoicedesk/internal/core/docstore"
	"invoicedesk/internal/domain"
)

// Repo is a generic document repository.
type Repo[T domain.Entity] struct {
	coll       docstore.Collection
	entityName string
	newEntity  func() T
}

// New creates a repository. newEntity must return a fresh pointer to decode into.
func New[T domain.Entity](coll docstore.Collection, entityName string, newEntity func() T) *Repo[T] {
	return &Repo[T]{
		coll:       coll,
		entityName: entityName,
		newEntity:  newEntity,
	}
}

var _ domain.Repository[domain.Entity] = (*Repo[domain.Entity])(nil)

func (r *Repo[T]) decode(doc docstore.Document) (T, error) {
	entity := r.newEntity()
	if err := docstore.Decode(doc, entity); err != nil {
		var zero T
		return zero, fmt.Errorf("decode %s: %w", r.entityName, err)
	}
	return entity, nil
}

// Create implements domain.Repository.
func (r *Repo[T]) Create(ctx context.Context, entity T) error {
	doc, err := docstore.Encode(entity)
	if err != nil {
		return err
	}

	newID, err := r.coll.InsertOne(ctx, doc)
	if errors.Is(err, docstore.ErrDuplicateKey) {
		return apperror.NewDuplicate(r.entityName, docstore.IDField, entity.GetID())
	}
	if err != nil {
		return fmt.Errorf("insert %s: %w", r.entityName, err)
	}
	entity.SetID(newID)
	return nil
}

// GetByID implements domain.Repository.
func (r *Repo[T]) GetByID(ctx context.Context, id string) (T, error) {
	return r.FindOne(ctx, docstore.IDField, id)
}

// FindOne implements domain.Repository.
func (r *Repo[T]) FindOne(ctx context.Context, field string, value any) (T, error) {
	doc, err := r.coll.FindOne(ctx, docstore.Filter{field: value})
	if errors.Is(err, docstore.ErrNotFound) {
		var zero T
		return zero, apperror.NewNotFound(r.entityName, value)
	}
	if err != nil {
		var zero T
		return zero, fmt.Errorf("find %s: %w", r.entityName, err)
	}
	return r.decode(doc)
}

// Update implements domain.Repository.
func (r *Repo[T]) Update(ctx context.Context, entity T) (bool, error) {
	doc, err := docstore.Encode(entity)
	if err != nil {
		return false, err
	}
	delete(doc, docstore.IDField)

	matched, err := r.coll.UpdateOne(ctx, docstore.Filter{docstore.IDField: entity.GetID()}, doc)
	if err != nil {
		return false, fmt.Errorf("update %s: %w", r.entityName, err)
	}
	return matched > 0, nil
}

// Delete implements domain.Repository.
func (r *Repo[T]) Delete(ctx context.Context, id string) (bool, error) {
	deleted, err := r.coll.DeleteOne(ctx, docstore.Filter{docstore.IDField: id})
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", r.entityName, err)
	}
	return deleted > 0, nil
}

// List implements domain.Repository.
func (r *Repo[T]) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[T], error) {
	result := domain.ListResult[T]{
		Items:  []T{},
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	opts := docstore.FindOptions{Limit: filter.Limit, Offset: filter.Offset}
	if filter.OrderBy != "" {
		opts.SortBy = strings.TrimPrefix(filter.OrderBy, "-")
		opts.Descending = strings.HasPrefix(filter.OrderBy, "-")
	}

	docs, err := r.coll.Find(ctx, docstore.Filter{}, opts)
	if err != nil {
		return result, fmt.Errorf("list %s: %w", r.entityName, err)
	}
	total, err := r.coll.Count(ctx, docstore.Filter{})
	if err != nil {
		return result, fmt.Errorf("count %s: %w", r.entityName, err)
	}

	for _, doc := range docs {
		entity, err := r.decode(doc)
		if err != nil {
			return result, err
		}
		result.Items = append(result.Items, entity)
	}
	result.TotalCount = total
	return result, nil
}
