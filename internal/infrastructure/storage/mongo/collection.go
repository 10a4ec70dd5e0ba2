package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/juju/mgo/v3"
	"github.com/juju/mgo/v3/bson"

	"invoicedesk/internal/core/docstore"
	"invoicedesk/internal/core/id"
)

// typeMismatch is the server error code for operators applied to the wrong BSON type.
const typeMismatch = 14

// Collection implements docstore.Collection.
type Collection struct {
	store *Store
	name  string
}

var _ docstore.Collection = (*Collection)(nil)

// Name implements docstore.Collection.
func (c *Collection) Name() string { return c.name }

// FindOne implements docstore.Collection.
func (c *Collection) FindOne(ctx context.Context, filter docstore.Filter) (docstore.Document, error) {
	var raw bson.M
	err := c.store.with(ctx, c.name, func(coll *mgo.Collection) error {
		return coll.Find(bson.M(filter)).Sort("$natural").One(&raw)
	})
	if errors.Is(err, mgo.ErrNotFound) {
		return nil, docstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", c.name, err)
	}
	return toDocument(raw), nil
}

// Find implements docstore.Collection.
func (c *Collection) Find(ctx context.Context, filter docstore.Filter, opts docstore.FindOptions) ([]docstore.Document, error) {
	var raw []bson.M
	err := c.store.with(ctx, c.name, func(coll *mgo.Collection) error {
		q := coll.Find(bson.M(filter))
		switch {
		case opts.SortBy != "" && opts.Descending:
			q = q.Sort("-" + opts.SortBy)
		case opts.SortBy != "":
			q = q.Sort(opts.SortBy)
		}
		if opts.Offset > 0 {
			q = q.Skip(opts.Offset)
		}
		if opts.Limit > 0 {
			q = q.Limit(opts.Limit)
		}
		return q.All(&raw)
	})
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", c.name, err)
	}

	docs := make([]docstore.Document, 0, len(raw))
	for _, m := range raw {
		docs = append(docs, toDocument(m))
	}
	return docs, nil
}

// Count implements docstore.Collection.
func (c *Collection) Count(ctx context.Context, filter docstore.Filter) (int64, error) {
	var n int
	err := c.store.with(ctx, c.name, func(coll *mgo.Collection) error {
		var err error
		n, err = coll.Find(bson.M(filter)).Count()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", c.name, err)
	}
	return int64(n), nil
}

// InsertOne implements docstore.Collection.
func (c *Collection) InsertOne(ctx context.Context, doc docstore.Document) (string, error) {
	stored := bson.M{}
	for k, v := range doc {
		stored[k] = v
	}
	docID := doc.ID()
	if docID == "" {
		docID = id.New()
	}
	stored[docstore.IDField] = docID

	err := c.store.with(ctx, c.name, func(coll *mgo.Collection) error {
		return coll.Insert(stored)
	})
	if mgo.IsDup(err) {
		return "", docstore.ErrDuplicateKey
	}
	if err != nil {
		return "", fmt.Errorf("insert into %s: %w", c.name, err)
	}
	return docID, nil
}

// UpdateOne implements docstore.Collection.
func (c *Collection) UpdateOne(ctx context.Context, filter docstore.Filter, set map[string]any) (int64, error) {
	fields := bson.M{}
	for k, v := range set {
		if k != docstore.IDField {
			fields[k] = v
		}
	}
	if len(fields) == 0 {
		n, err := c.Count(ctx, filter)
		return min(n, 1), err
	}

	err := c.store.with(ctx, c.name, func(coll *mgo.Collection) error {
		return coll.Update(bson.M(filter), bson.M{"$set": fields})
	})
	if errors.Is(err, mgo.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", c.name, err)
	}
	return 1, nil
}

// DeleteOne implements docstore.Collection.
func (c *Collection) DeleteOne(ctx context.Context, filter docstore.Filter) (int64, error) {
	err := c.store.with(ctx, c.name, func(coll *mgo.Collection) error {
		return coll.Remove(bson.M(filter))
	})
	if errors.Is(err, mgo.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", c.name, err)
	}
	return 1, nil
}

// DeleteMany implements docstore.Collection.
func (c *Collection) DeleteMany(ctx context.Context, filter docstore.Filter) (int64, error) {
	var info *mgo.ChangeInfo
	err := c.store.with(ctx, c.name, func(coll *mgo.Collection) error {
		var err error
		info, err = coll.RemoveAll(bson.M(filter))
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", c.name, err)
	}
	return int64(info.Removed), nil
}

// FindOneAndUpdate implements docstore.Collection with findAndModify.
// A reply without a decodable document is reported as an acknowledgement.
func (c *Collection) FindOneAndUpdate(ctx context.Context, filter docstore.Filter, update docstore.Update, opts docstore.UpdateOptions) (docstore.UpdateResult, error) {
	change := mgo.Change{
		Update:    buildUpdate(filter, update, opts.Upsert),
		Upsert:    opts.Upsert,
		ReturnNew: opts.ReturnUpdated,
	}

	var (
		raw  bson.M
		info *mgo.ChangeInfo
	)
	err := c.store.with(ctx, c.name, func(coll *mgo.Collection) error {
		var err error
		info, err = coll.Find(bson.M(filter)).Sort("$natural").Apply(change, &raw)
		return err
	})
	switch {
	case errors.Is(err, mgo.ErrNotFound):
		return docstore.AckResult(0, ""), nil
	case isTypeMismatch(err):
		return docstore.UpdateResult{}, fmt.Errorf("%w: %v", docstore.ErrTypeMismatch, err)
	case err != nil:
		return docstore.UpdateResult{}, fmt.Errorf("find and modify %s: %w", c.name, err)
	}

	var (
		matched    int64
		upsertedID string
	)
	if info != nil {
		matched = int64(info.Matched)
		if s, ok := info.UpsertedId.(string); ok {
			upsertedID = s
		}
	}

	if len(raw) == 0 {
		return docstore.AckResult(matched, upsertedID), nil
	}
	res := docstore.RecordResult(toDocument(raw))
	res.Matched = matched
	res.UpsertedID = upsertedID
	return res, nil
}

func buildUpdate(filter docstore.Filter, update docstore.Update, upsert bool) bson.M {
	doc := bson.M{}
	if len(update.Inc) > 0 {
		inc := bson.M{}
		for k, v := range update.Inc {
			inc[k] = v
		}
		doc["$inc"] = inc
	}
	if len(update.Set) > 0 {
		set := bson.M{}
		for k, v := range update.Set {
			if k != docstore.IDField {
				set[k] = v
			}
		}
		doc["$set"] = set
	}
	// Upserted documents get string ids like every other document.
	if _, hasID := filter[docstore.IDField]; upsert && !hasID {
		doc["$setOnInsert"] = bson.M{docstore.IDField: id.New()}
	}
	return doc
}

func isTypeMismatch(err error) bool {
	var qe *mgo.QueryError
	if errors.As(err, &qe) {
		return qe.Code == typeMismatch
	}
	var le *mgo.LastError
	if errors.As(err, &le) {
		return le.Code == typeMismatch
	}
	return false
}

// toDocument converts decoded BSON into plain Go values.
func toDocument(m bson.M) docstore.Document {
	doc := make(docstore.Document, len(m))
	for k, v := range m {
		doc[k] = plain(v)
	}
	if oid, ok := m[docstore.IDField].(bson.ObjectId); ok {
		doc[docstore.IDField] = oid.Hex()
	}
	return doc
}

func plain(v any) any {
	switch t := v.(type) {
	case bson.M:
		return map[string]any(toDocument(t))
	case map[string]any:
		return map[string]any(toDocument(bson.M(t)))
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = plain(e)
		}
		return out
	default:
		return v
	}
}
