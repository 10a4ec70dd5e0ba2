// Package docstore defines the persistent collection capability the service is built on.
// Backends (in-memory, PostgreSQL JSONB, MongoDB) live in infrastructure/storage.
package docstore

import (
	"context"
	"errors"
)

// IDField is the primary key field of every document.
const IDField = "_id"

var (
	// ErrNotFound is returned by FindOne when no document matches.
	ErrNotFound = errors.New("document not found")

	// ErrDuplicateKey is returned by InsertOne when the _id is already taken.
	ErrDuplicateKey = errors.New("duplicate document key")

	// ErrTypeMismatch is returned when an update cannot be applied to the stored
	// value, e.g. incrementing a non-integer field.
	ErrTypeMismatch = errors.New("field type mismatch")
)

// Document is a schemaless record. Values are JSON-compatible.
type Document map[string]any

// ID returns the document primary key or empty string.
func (d Document) ID() string {
	if v, ok := d[IDField].(string); ok {
		return v
	}
	return ""
}

// Filter selects documents by field equality. An empty filter matches every
// document; single-document operations then act on the first one in natural order.
type Filter map[string]any

// Update describes a single-document modification applied atomically by the store.
type Update struct {
	// Inc adds the given amounts to integer fields (missing fields count as 0).
	Inc map[string]int64
	// Set overwrites fields.
	Set map[string]any
}

// UpdateOptions controls FindOneAndUpdate.
type UpdateOptions struct {
	// Upsert inserts a new document built from the filter and the update when nothing matches.
	Upsert bool
	// ReturnUpdated asks for the post-update document instead of the original one.
	ReturnUpdated bool
}

// FindOptions controls Find.
type FindOptions struct {
	Limit      int
	Offset     int
	SortBy     string
	Descending bool
}

// Collection is a named set of documents.
type Collection interface {
	// Name returns the collection name.
	Name() string

	// FindOne returns the first matching document or ErrNotFound.
	FindOne(ctx context.Context, filter Filter) (Document, error)

	// Find returns matching documents.
	Find(ctx context.Context, filter Filter, opts FindOptions) ([]Document, error)

	// Count returns the number of matching documents.
	Count(ctx context.Context, filter Filter) (int64, error)

	// InsertOne stores doc, generating an _id when missing, and returns the _id.
	InsertOne(ctx context.Context, doc Document) (string, error)

	// UpdateOne sets fields on the first matching document and returns the matched count.
	UpdateOne(ctx context.Context, filter Filter, set map[string]any) (int64, error)

	// DeleteOne removes the first matching document and returns the deleted count.
	DeleteOne(ctx context.Context, filter Filter) (int64, error)

	// DeleteMany removes every matching document and returns the deleted count.
	DeleteMany(ctx context.Context, filter Filter) (int64, error)

	// FindOneAndUpdate atomically modifies one document. The shape of the result
	// depends on the backend; see UpdateResult.
	FindOneAndUpdate(ctx context.Context, filter Filter, update Update, opts UpdateOptions) (UpdateResult, error)
}

// Store hands out collections and reports backend health.
type Store interface {
	Collection(name string) Collection
	Ping(ctx context.Context) error
	Close()
}
