// Package numerator implements the invoice sequence on top of a docstore collection.
// This is the infrastructure layer - it implements core/numerator.Sequencer.
package numerator

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"invoicedesk/internal/core/docstore"
	corenumerator "invoicedesk/internal/core/numerator"
	"invoicedesk/pkg/logger"
)

// CollectionName is where the sequence document lives.
const CollectionName = "meta_data"

var tracer = otel.Tracer("invoicedesk/numerator")

// Store owns the single sequence document. All increments go through the
// collection's atomic FindOneAndUpdate; the store is the only synchronization point.
type Store struct {
	coll docstore.Collection
}

// NewStore creates a sequence store over coll.
func NewStore(coll docstore.Collection) *Store {
	return &Store{coll: coll}
}

// Peek returns the last issued number without changing it. A missing document
// is created with 0. Store errors are logged and reported as 0.
func (s *Store) Peek(ctx context.Context) int64 {
	return s.Snapshot(ctx).LastSequence
}

// Snapshot returns the sequence document the same way Peek reads it.
func (s *Store) Snapshot(ctx context.Context) corenumerator.Record {
	ctx, span := tracer.Start(ctx, "sequence.peek")
	defer span.End()

	doc, err := s.coll.FindOne(ctx, docstore.Filter{})
	switch {
	case err == nil:
		seq, ok := sequenceOf(doc)
		if !ok {
			logger.Warn(ctx, "sequence document has no usable counter, reporting 0",
				"collection", s.coll.Name(), "document_id", doc.ID())
		}
		span.SetAttributes(attribute.Int64("sequence.value", seq))
		return corenumerator.Record{ID: doc.ID(), LastSequence: seq}

	case errors.Is(err, docstore.ErrNotFound):
		// Create through the atomic upsert so a concurrent Advance cannot race
		// a plain insert into a second document.
		res, err := s.coll.FindOneAndUpdate(ctx, docstore.Filter{},
			docstore.Update{Inc: map[string]int64{SequenceField: 0}},
			docstore.UpdateOptions{Upsert: true, ReturnUpdated: true},
		)
		if err != nil {
			span.RecordError(err)
			logger.Warn(ctx, "failed to create sequence document, reporting 0", "error", err)
			return corenumerator.Record{}
		}
		logger.Info(ctx, "sequence document created", "collection", s.coll.Name())
		return corenumerator.Record{ID: createdID(res)}

	default:
		span.RecordError(err)
		logger.Warn(ctx, "failed to read sequence, reporting 0", "error", err)
		return corenumerator.Record{}
	}
}

// Advance atomically increments the counter and returns the new value.
// It either returns a number no other caller has received or an error.
func (s *Store) Advance(ctx context.Context) (int64, error) {
	ctx, span := tracer.Start(ctx, "sequence.advance")
	defer span.End()

	seq, err := s.advance(ctx, span)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	span.SetAttributes(attribute.Int64("sequence.value", seq))
	return seq, nil
}

func (s *Store) advance(ctx context.Context, span trace.Span) (int64, error) {
	// The documents seen here are the only ones a reseed may remove. Anything
	// created later belongs to a concurrent caller and must survive.
	seen, err := s.coll.Find(ctx, docstore.Filter{}, docstore.FindOptions{})
	if err != nil {
		return 0, fmt.Errorf("%w: scan: %w", corenumerator.ErrStoreUnavailable, err)
	}
	// More than one document breaks the single-record invariant: the empty-filter
	// update would silently pick one of them.
	if len(seen) > 1 {
		return s.reseed(ctx, span, seen, fmt.Sprintf("%d sequence documents found", len(seen)))
	}

	res, err := s.coll.FindOneAndUpdate(ctx, docstore.Filter{},
		docstore.Update{Inc: map[string]int64{SequenceField: 1}},
		docstore.UpdateOptions{Upsert: true, ReturnUpdated: true},
	)
	if errors.Is(err, docstore.ErrTypeMismatch) {
		return s.reseed(ctx, span, seen, "sequence counter is not an integer")
	}
	if err != nil {
		// Includes timeouts: the increment may or may not have happened, so no
		// number can be handed out.
		return 0, fmt.Errorf("%w: increment: %w", corenumerator.ErrStoreUnavailable, err)
	}

	if seq, ok := resolveUpdate(res); ok {
		return seq, nil
	}

	span.SetAttributes(attribute.String("sequence.reply_shape", res.Shape.String()))
	logger.Warn(ctx, "increment reply carried no sequence, reading document back",
		"shape", res.Shape.String(),
		"matched", res.Matched,
	)

	// Not atomic with the increment above: a concurrent Advance landing in
	// between makes this read return its number too.
	doc, err := s.coll.FindOne(ctx, docstore.Filter{})
	switch {
	case err == nil:
		if seq, ok := sequenceOf(doc); ok {
			return seq, nil
		}
		return s.reseed(ctx, span, seen, "sequence document has no usable counter")
	case errors.Is(err, docstore.ErrNotFound):
		return s.reseed(ctx, span, seen, "sequence document missing after increment")
	default:
		return 0, fmt.Errorf("%w: read back: %w", corenumerator.ErrStoreUnavailable, err)
	}
}

// reseed removes the documents seen before the failed increment and restarts
// numbering through the same atomic upsert Advance uses. A lone caller gets 1.
// Callers healing concurrently delete by _id, so none of them can remove the
// document another one restarted; they increment it instead.
// Numbering continuity is lost, which is why this is logged as critical.
func (s *Store) reseed(ctx context.Context, span trace.Span, seen []docstore.Document, reason string) (int64, error) {
	span.SetAttributes(attribute.Bool("sequence.reseeded", true))

	var removed int64
	for _, doc := range seen {
		n, err := s.coll.DeleteOne(ctx, docstore.Filter{docstore.IDField: doc[docstore.IDField]})
		if err != nil {
			return 0, fmt.Errorf("%w: %s: delete: %w", corenumerator.ErrCorruptedState, reason, err)
		}
		removed += n
	}

	res, err := s.coll.FindOneAndUpdate(ctx, docstore.Filter{},
		docstore.Update{Inc: map[string]int64{SequenceField: 1}},
		docstore.UpdateOptions{Upsert: true, ReturnUpdated: true},
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: restart: %w", corenumerator.ErrCorruptedState, reason, err)
	}
	seq, ok := resolveUpdate(res)
	if !ok {
		if doc, err := s.coll.FindOne(ctx, docstore.Filter{}); err == nil {
			seq, ok = sequenceOf(doc)
		}
	}
	if !ok {
		return 0, fmt.Errorf("%w: %s: restarted counter is unreadable", corenumerator.ErrCorruptedState, reason)
	}

	logger.Critical(ctx, "invoice sequence reseeded, numbering restarted",
		"reason", reason,
		"collection", s.coll.Name(),
		"removed_documents", removed,
		"sequence", seq,
	)
	return seq, nil
}

func createdID(res docstore.UpdateResult) string {
	if res.UpsertedID != "" {
		return res.UpsertedID
	}
	if res.Shape == docstore.ShapeRecord {
		return res.Document.ID()
	}
	if inner, ok := nested(res.Document); ok {
		return inner.ID()
	}
	return ""
}
