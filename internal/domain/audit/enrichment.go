// Package audit provides utilities for audit field enrichment in domain entities.
package audit

import (
	"context"
	"time"

	appctx "invoicedesk/internal/core/context"
	"invoicedesk/internal/domain"
)

// Fields are the audit stamps embedded in every entity.
type Fields struct {
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
	CreatedBy string     `json:"created_by,omitempty"`
	UpdatedBy string     `json:"updated_by,omitempty"`
}

// AuditFields exposes the embedded stamps to the hooks below.
func (f *Fields) AuditFields() *Fields { return f }

// Audited is implemented by entities embedding Fields.
type Audited interface {
	AuditFields() *Fields
}

// EnrichCreated sets CreatedAt when the client did not supply it, and
// CreatedBy from the authenticated user if any.
func EnrichCreated(ctx context.Context, f *Fields, now time.Time) {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now.UTC()
	}
	if userID := appctx.GetUserID(ctx); userID != "" {
		f.CreatedBy = userID
	}
}

// EnrichUpdated sets UpdatedAt and UpdatedBy.
func EnrichUpdated(ctx context.Context, f *Fields, now time.Time) {
	ts := now.UTC()
	f.UpdatedAt = &ts
	if userID := appctx.GetUserID(ctx); userID != "" {
		f.UpdatedBy = userID
	}
}

// Register attaches create/update stamping to a service's hooks.
func Register[T interface {
	domain.Entity
	Audited
}](hooks *domain.HookRegistry[T]) {
	hooks.OnBeforeCreate(func(ctx context.Context, e T) error {
		EnrichCreated(ctx, e.AuditFields(), time.Now())
		return nil
	})
	hooks.OnBeforeUpdate(func(ctx context.Context, e T) error {
		EnrichUpdated(ctx, e.AuditFields(), time.Now())
		return nil
	})
}
