package postgres

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"invoicedesk/internal/core/docstore"
	"invoicedesk/internal/core/id"
)

const (
	documentsTable = "documents"

	// uniqueViolation is the SQLSTATE for unique_violation.
	uniqueViolation = "23505"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// documentRow is one stored document.
type documentRow struct {
	ID   string `db:"id"`
	Body []byte `db:"body"`
}

// Collection implements docstore.Collection over the documents table.
type Collection struct {
	name string
	txm  *TxManager
}

var _ docstore.Collection = (*Collection)(nil)

// NewCollection creates a collection bound to name.
func NewCollection(name string, txm *TxManager) *Collection {
	return &Collection{name: name, txm: txm}
}

// Name implements docstore.Collection.
func (c *Collection) Name() string { return c.name }

// conditions turns an equality filter into WHERE parts. _id maps to the id
// column, everything else to JSONB containment.
func (c *Collection) conditions(filter docstore.Filter) ([]sq.Sqlizer, error) {
	conds := []sq.Sqlizer{sq.Eq{"collection": c.name}}

	body := make(map[string]any, len(filter))
	for k, v := range filter {
		if k == docstore.IDField {
			conds = append(conds, sq.Eq{"id": v})
			continue
		}
		body[k] = v
	}
	if len(body) > 0 {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode filter: %w", err)
		}
		conds = append(conds, sq.Expr("body @> ?::jsonb", string(raw)))
	}
	return conds, nil
}

func (c *Collection) selectQuery(filter docstore.Filter, opts docstore.FindOptions) (sq.SelectBuilder, error) {
	conds, err := c.conditions(filter)
	if err != nil {
		return sq.SelectBuilder{}, err
	}

	q := psql.Select("id", "body").From(documentsTable)
	for _, cond := range conds {
		q = q.Where(cond)
	}

	if opts.SortBy != "" {
		dir := "ASC"
		if opts.Descending {
			dir = "DESC"
		}
		q = q.OrderByClause("body -> ? "+dir+", seq", opts.SortBy)
	} else {
		q = q.OrderBy("seq")
	}
	if opts.Limit > 0 {
		q = q.Limit(uint64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Offset(uint64(opts.Offset))
	}
	return q, nil
}

func (c *Collection) find(ctx context.Context, q Querier, query sq.SelectBuilder) ([]docstore.Document, error) {
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []documentRow
	if err := pgxscan.Select(ctx, q, &rows, sqlStr, args...); err != nil {
		return nil, fmt.Errorf("select %s: %w", c.name, err)
	}

	docs := make([]docstore.Document, 0, len(rows))
	for _, row := range rows {
		doc, err := decodeRow(row)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// first returns the first matching document, locking its row when forUpdate is set.
func (c *Collection) first(ctx context.Context, filter docstore.Filter, forUpdate bool) (docstore.Document, error) {
	query, err := c.selectQuery(filter, docstore.FindOptions{Limit: 1})
	if err != nil {
		return nil, err
	}
	if forUpdate {
		query = query.Suffix("FOR UPDATE")
	}

	docs, err := c.find(ctx, c.txm.GetQuerier(ctx), query)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, docstore.ErrNotFound
	}
	return docs[0], nil
}

// FindOne implements docstore.Collection.
func (c *Collection) FindOne(ctx context.Context, filter docstore.Filter) (docstore.Document, error) {
	return c.first(ctx, filter, false)
}

// Find implements docstore.Collection.
func (c *Collection) Find(ctx context.Context, filter docstore.Filter, opts docstore.FindOptions) ([]docstore.Document, error) {
	query, err := c.selectQuery(filter, opts)
	if err != nil {
		return nil, err
	}
	return c.find(ctx, c.txm.GetQuerier(ctx), query)
}

// Count implements docstore.Collection.
func (c *Collection) Count(ctx context.Context, filter docstore.Filter) (int64, error) {
	conds, err := c.conditions(filter)
	if err != nil {
		return 0, err
	}
	q := psql.Select("count(*)").From(documentsTable)
	for _, cond := range conds {
		q = q.Where(cond)
	}
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var n int64
	if err := c.txm.GetQuerier(ctx).QueryRow(ctx, sqlStr, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", c.name, err)
	}
	return n, nil
}

// InsertOne implements docstore.Collection.
func (c *Collection) InsertOne(ctx context.Context, doc docstore.Document) (string, error) {
	docID := doc.ID()
	if docID == "" {
		docID = id.New()
	}
	if err := c.insert(ctx, docID, doc); err != nil {
		return "", err
	}
	return docID, nil
}

func (c *Collection) insert(ctx context.Context, docID string, doc docstore.Document) error {
	raw, err := encodeBody(doc)
	if err != nil {
		return err
	}
	sqlStr, args, err := psql.Insert(documentsTable).
		Columns("collection", "id", "body").
		Values(c.name, docID, raw).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if _, err := c.txm.GetQuerier(ctx).Exec(ctx, sqlStr, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return docstore.ErrDuplicateKey
		}
		return fmt.Errorf("insert into %s: %w", c.name, err)
	}
	return nil
}

func (c *Collection) replace(ctx context.Context, doc docstore.Document) error {
	raw, err := encodeBody(doc)
	if err != nil {
		return err
	}
	sqlStr, args, err := psql.Update(documentsTable).
		Set("body", raw).
		Where(sq.Eq{"collection": c.name}).
		Where(sq.Eq{"id": doc.ID()}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if _, err := c.txm.GetQuerier(ctx).Exec(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("update %s: %w", c.name, err)
	}
	return nil
}

// UpdateOne implements docstore.Collection.
func (c *Collection) UpdateOne(ctx context.Context, filter docstore.Filter, set map[string]any) (int64, error) {
	var matched int64
	err := c.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		doc, err := c.first(ctx, filter, true)
		if errors.Is(err, docstore.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		fields := make(map[string]any, len(set))
		for k, v := range set {
			if k != docstore.IDField {
				fields[k] = v
			}
		}
		updated, err := docstore.Apply(doc, docstore.Update{Set: fields})
		if err != nil {
			return err
		}
		matched = 1
		return c.replace(ctx, updated)
	})
	return matched, err
}

// DeleteOne implements docstore.Collection.
func (c *Collection) DeleteOne(ctx context.Context, filter docstore.Filter) (int64, error) {
	var deleted int64
	err := c.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		doc, err := c.first(ctx, filter, true)
		if errors.Is(err, docstore.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		deleted, err = c.DeleteMany(ctx, docstore.Filter{docstore.IDField: doc.ID()})
		return err
	})
	return deleted, err
}

// DeleteMany implements docstore.Collection.
func (c *Collection) DeleteMany(ctx context.Context, filter docstore.Filter) (int64, error) {
	query, err := c.deleteQuery(filter)
	if err != nil {
		return 0, err
	}
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}
	tag, err := c.txm.GetQuerier(ctx).Exec(ctx, sqlStr, args...)
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", c.name, err)
	}
	return tag.RowsAffected(), nil
}

func (c *Collection) deleteQuery(filter docstore.Filter) (sq.DeleteBuilder, error) {
	conds, err := c.conditions(filter)
	if err != nil {
		return sq.DeleteBuilder{}, err
	}
	q := psql.Delete(documentsTable)
	for _, cond := range conds {
		q = q.Where(cond)
	}
	return q, nil
}

// FindOneAndUpdate implements docstore.Collection. A transaction-scoped advisory
// lock on the collection serialises concurrent upserts, so an empty-filter
// upsert never creates two documents.
func (c *Collection) FindOneAndUpdate(ctx context.Context, filter docstore.Filter, update docstore.Update, opts docstore.UpdateOptions) (docstore.UpdateResult, error) {
	var res docstore.UpdateResult
	err := c.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := c.txm.GetQuerier(ctx).Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", c.name); err != nil {
			return fmt.Errorf("lock %s: %w", c.name, err)
		}

		before, err := c.first(ctx, filter, true)
		switch {
		case errors.Is(err, docstore.ErrNotFound):
			if !opts.Upsert {
				res = docstore.AckResult(0, "")
				return nil
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
				return err
			}
			if err := c.insert(ctx, inserted.ID(), inserted); err != nil {
				return err
			}
			if opts.ReturnUpdated {
				res = docstore.RecordResult(inserted)
			} else {
				res = docstore.AckResult(0, "")
			}
			res.UpsertedID = inserted.ID()
			return nil

		case err != nil:
			return err
		}

		after, err := docstore.Apply(before, update)
		if err != nil {
			return err
		}
		if err := c.replace(ctx, after); err != nil {
			return err
		}
		if opts.ReturnUpdated {
			res = docstore.RecordResult(after)
		} else {
			res = docstore.RecordResult(before)
		}
		res.Matched = 1
		return nil
	})
	if err != nil {
		return docstore.UpdateResult{}, err
	}
	return res, nil
}

// encodeBody serialises doc without its _id, which lives in the id column.
func encodeBody(doc docstore.Document) ([]byte, error) {
	body := make(map[string]any, len(doc))
	for k, v := range doc {
		if k != docstore.IDField {
			body[k] = v
		}
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return raw, nil
}

// decodeRow keeps numbers as json.Number so integer counters survive intact.
func decodeRow(row documentRow) (docstore.Document, error) {
	dec := json.NewDecoder(bytes.NewReader(row.Body))
	dec.UseNumber()

	doc := docstore.Document{}
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", row.ID, err)
	}
	doc[docstore.IDField] = row.ID
	return doc, nil
}
