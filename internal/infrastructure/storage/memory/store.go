// Package memory provides an in-process docstore backend.
// Every operation holds the collection lock, so FindOneAndUpdate is atomic the same
// way a single-document update is in a real document database.
package memory

import (
	"context"
	"sort"
	"sync"

	"invoicedesk/internal/core/docstore"
	"invoicedesk/internal/core/id"
)

// Store holds named in-memory collections.
type Store struct {
	mu          sync.Mutex
	collections map[string]*Collection
	shape       docstore.Shape
}

// Option configures a Store.
type Option func(*Store)

// WithUpdateShape makes FindOneAndUpdate reply with the given shape.
// Used to exercise callers against drivers that wrap or omit the updated document.
func WithUpdateShape(shape docstore.Shape) Option {
	return func(s *Store) { s.shape = shape }
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		collections: make(map[string]*Collection),
		shape:       docstore.ShapeRecord,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Collection returns the named collection, creating it on first use.
func (s *Store) Collection(name string) docstore.Collection {
	return s.collection(name)
}

func (s *Store) collection(name string) *Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		c = &Collection{name: name, shape: s.shape}
		s.collections[name] = c
	}
	return c
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() {}

var _ docstore.Store = (*Store)(nil)

// Collection is an ordered list of documents guarded by a mutex.
type Collection struct {
	name  string
	shape docstore.Shape

	mu   sync.Mutex
	docs []docstore.Document
}

var _ docstore.Collection = (*Collection)(nil)

// Name implements docstore.Collection.
func (c *Collection) Name() string { return c.name }

// SetUpdateShape changes the reply shape of FindOneAndUpdate.
func (c *Collection) SetUpdateShape(shape docstore.Shape) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shape = shape
}

func (c *Collection) indexOf(filter docstore.Filter) int {
	for i, doc := range c.docs {
		if docstore.Matches(doc, filter) {
			return i
		}
	}
	return -1
}

// FindOne implements docstore.Collection.
func (c *Collection) FindOne(ctx context.Context, filter docstore.Filter) (docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(filter)
	if i < 0 {
		return nil, docstore.ErrNotFound
	}
	return docstore.Clone(c.docs[i]), nil
}

// Find implements docstore.Collection.
func (c *Collection) Find(ctx context.Context, filter docstore.Filter, opts docstore.FindOptions) ([]docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	matched := make([]docstore.Document, 0, len(c.docs))
	for _, doc := range c.docs {
		if docstore.Matches(doc, filter) {
			matched = append(matched, docstore.Clone(doc))
		}
	}
	c.mu.Unlock()

	if opts.SortBy != "" {
		sort.SliceStable(matched, func(i, j int) bool {
			a, b := matched[i][opts.SortBy], matched[j][opts.SortBy]
			if opts.Descending {
				a, b = b, a
			}
			return lessValue(a, b)
		})
	}

	if opts.Offset > 0 {
		if opts.Offset >= len(matched) {
			return []docstore.Document{}, nil
		}
		matched = matched[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(matched) {
		matched = matched[:opts.Limit]
	}
	return matched, nil
}

// Count implements docstore.Collection.
func (c *Collection) Count(ctx context.Context, filter docstore.Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	var n int64
	for _, doc := range c.docs {
		if docstore.Matches(doc, filter) {
			n++
		}
	}
	return n, nil
}

// InsertOne implements docstore.Collection.
func (c *Collection) InsertOne(ctx context.Context, doc docstore.Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	stored := docstore.Clone(doc)
	if stored == nil {
		stored = docstore.Document{}
	}
	if stored.ID() == "" {
		stored[docstore.IDField] = id.New()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.indexOf(docstore.Filter{docstore.IDField: stored.ID()}) >= 0 {
		return "", docstore.ErrDuplicateKey
	}
	c.docs = append(c.docs, stored)
	return stored.ID(), nil
}

// UpdateOne implements docstore.Collection.
func (c *Collection) UpdateOne(ctx context.Context, filter docstore.Filter, set map[string]any) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(filter)
	if i < 0 {
		return 0, nil
	}
	updated, err := docstore.Apply(c.docs[i], docstore.Update{Set: withoutID(set)})
	if err != nil {
		return 0, err
	}
	c.docs[i] = updated
	return 1, nil
}

// DeleteOne implements docstore.Collection.
func (c *Collection) DeleteOne(ctx context.Context, filter docstore.Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(filter)
	if i < 0 {
		return 0, nil
	}
	c.docs = append(c.docs[:i], c.docs[i+1:]...)
	return 1, nil
}

// DeleteMany implements docstore.Collection.
func (c *Collection) DeleteMany(ctx context.Context, filter docstore.Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.docs[:0]
	var removed int64
	for _, doc := range c.docs {
		if docstore.Matches(doc, filter) {
			removed++
			continue
		}
		kept = append(kept, doc)
	}
	c.docs = kept
	return removed, nil
}

// FindOneAndUpdate implements docstore.Collection.
func (c *Collection) FindOneAndUpdate(ctx context.Context, filter docstore.Filter, update docstore.Update, opts docstore.UpdateOptions) (docstore.UpdateResult, error) {
	if err := ctx.Err(); err != nil {
		return docstore.UpdateResult{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(filter)
	if i < 0 {
		if !opts.Upsert {
			return c.reply(nil, 0, ""), nil
		}
		seed := docstore.Document{}
		for k, v := range filter {
			seed[k] = v
		}
		if seed.ID() == "" {
			seed[docstore.IDField] = id.New()
		}
		inserted, err := docstore.Apply(seed, update)
		if err != nil {
			return docstore.UpdateResult{}, err
		}
		c.docs = append(c.docs, inserted)

		var returned docstore.Document
		if opts.ReturnUpdated {
			returned = inserted
		}
		return c.reply(returned, 0, inserted.ID()), nil
	}

	before := c.docs[i]
	after, err := docstore.Apply(before, update)
	if err != nil {
		return docstore.UpdateResult{}, err
	}
	c.docs[i] = after

	returned := before
	if opts.ReturnUpdated {
		returned = after
	}
	return c.reply(returned, 1, ""), nil
}

func (c *Collection) reply(doc docstore.Document, matched int64, upsertedID string) docstore.UpdateResult {
	var res docstore.UpdateResult
	switch {
	case doc == nil || c.shape == docstore.ShapeAck:
		res = docstore.AckResult(matched, upsertedID)
	case c.shape == docstore.ShapeWrapped:
		res = docstore.WrappedResult(docstore.Clone(doc))
	default:
		res = docstore.RecordResult(docstore.Clone(doc))
	}
	res.Matched = matched
	res.UpsertedID = upsertedID
	return res
}

func withoutID(set map[string]any) map[string]any {
	if _, ok := set[docstore.IDField]; !ok {
		return set
	}
	out := make(map[string]any, len(set))
	for k, v := range set {
		if k != docstore.IDField {
			out[k] = v
		}
	}
	return out
}

func lessValue(a, b any) bool {
	if ai, ok := docstore.Int64(a); ok {
		if bi, ok := docstore.Int64(b); ok {
			return ai < bi
		}
	}
	as, _ := a.(string)
	bs, _ := b.(string)
	return as < bs
}
