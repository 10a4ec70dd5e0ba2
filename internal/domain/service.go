package domain

import (
	"context"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"invoicedesk/internal/core/apperror"
	"invoicedesk/pkg/logger"
)

// Service provides the common CRUD flow for an entity: validation, hooks,
// repository call, error normalization.
type Service[T Entity] struct {
	repo  Repository[T]
	hooks *HookRegistry[T]

	// entityName for error messages
	entityName string
}

// ServiceConfig configures the service.
type ServiceConfig[T Entity] struct {
	Repo       Repository[T]
	EntityName string
}

// NewService creates a new entity service.
func NewService[T Entity](cfg ServiceConfig[T]) *Service[T] {
	return &Service[T]{
		repo:       cfg.Repo,
		hooks:      NewHookRegistry[T](),
		entityName: cfg.EntityName,
	}
}

// Hooks returns the hook registry for external registration.
func (s *Service[T]) Hooks() *HookRegistry[T] {
	return s.hooks
}

// EntityName returns the name used in errors.
func (s *Service[T]) EntityName() string {
	return s.entityName
}

// ValidationError converts ozzo-validation output into a 400 AppError with
// per-field messages under details.fields.
func ValidationError(err error) error {
	if err == nil {
		return nil
	}
	if apperror.IsAppError(err) {
		return err
	}

	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		fields := make(map[string]string, len(fieldErrs))
		for name, fe := range fieldErrs {
			fields[name] = fe.Error()
		}
		return apperror.NewValidation("validation failed").WithDetail("fields", fields)
	}
	return apperror.NewValidation(err.Error())
}

func (s *Service[T]) normalizeGetErr(err error, key any) error {
	if err == nil {
		return nil
	}
	// Preserve existing AppError, but ensure not-found names the right entity.
	if apperror.IsNotFound(err) {
		return apperror.NewNotFound(s.entityName, key)
	}
	if apperror.IsAppError(err) {
		return err
	}
	return apperror.NewInternal(err).WithDetail("entity", s.entityName).WithDetail("id", key)
}

func (s *Service[T]) normalizeWriteErr(err error, op string) error {
	if apperror.IsAppError(err) {
		return err
	}
	return apperror.NewInternal(fmt.Errorf("%s %s: %w", op, s.entityName, err))
}

// Create validates and stores a new entity. Before-validate hooks normalize
// input; before-create hooks run after validation, so they may fill in derived fields.
func (s *Service[T]) Create(ctx context.Context, entity T) error {
	if err := s.validate(ctx, entity); err != nil {
		return err
	}

	if err := s.hooks.Run(ctx, BeforeCreate, entity); err != nil {
		return err
	}

	if err := s.repo.Create(ctx, entity); err != nil {
		return s.normalizeWriteErr(err, "create")
	}

	if err := s.hooks.Run(ctx, AfterCreate, entity); err != nil {
		// Entity is already stored.
		logger.Warn(ctx, "after-create hook failed", "entity", s.entityName, "id", entity.GetID(), "error", err)
	}
	return nil
}

func (s *Service[T]) validate(ctx context.Context, entity T) error {
	if err := s.hooks.Run(ctx, BeforeValidate, entity); err != nil {
		return err
	}
	if err := entity.Validate(ctx); err != nil {
		return ValidationError(err)
	}
	return nil
}

// GetByID retrieves entity by ID.
func (s *Service[T]) GetByID(ctx context.Context, entityID string) (T, error) {
	entity, err := s.repo.GetByID(ctx, entityID)
	if err != nil {
		return entity, s.normalizeGetErr(err, entityID)
	}
	return entity, nil
}

// FindBy retrieves the first entity whose field equals value.
func (s *Service[T]) FindBy(ctx context.Context, field string, value any) (T, error) {
	entity, err := s.repo.FindOne(ctx, field, value)
	if err != nil {
		return entity, s.normalizeGetErr(err, value)
	}
	return entity, nil
}

// Update validates and stores an existing entity.
func (s *Service[T]) Update(ctx context.Context, entity T) error {
	if err := s.validate(ctx, entity); err != nil {
		return err
	}

	if err := s.hooks.Run(ctx, BeforeUpdate, entity); err != nil {
		return err
	}

	matched, err := s.repo.Update(ctx, entity)
	if err != nil {
		return s.normalizeWriteErr(err, "update")
	}
	if !matched {
		return apperror.NewNotFound(s.entityName, entity.GetID())
	}

	if err := s.hooks.Run(ctx, AfterUpdate, entity); err != nil {
		logger.Warn(ctx, "after-update hook failed", "entity", s.entityName, "id", entity.GetID(), "error", err)
	}
	return nil
}

// Delete removes an entity.
func (s *Service[T]) Delete(ctx context.Context, entityID string) error {
	entity, err := s.repo.GetByID(ctx, entityID)
	if err != nil {
		return s.normalizeGetErr(err, entityID)
	}

	if err := s.hooks.Run(ctx, BeforeDelete, entity); err != nil {
		return err
	}

	deleted, err := s.repo.Delete(ctx, entityID)
	if err != nil {
		return s.normalizeWriteErr(err, "delete")
	}
	if !deleted {
		return apperror.NewNotFound(s.entityName, entityID)
	}

	if err := s.hooks.Run(ctx, AfterDelete, entity); err != nil {
		logger.Warn(ctx, "after-delete hook failed", "entity", s.entityName, "id", entityID, "error", err)
	}
	return nil
}

// List retrieves entities.
func (s *Service[T]) List(ctx context.Context, filter ListFilter) (ListResult[T], error) {
	result, err := s.repo.List(ctx, filter)
	if err != nil {
		return result, s.normalizeWriteErr(err, "list")
	}
	return result, nil
}
