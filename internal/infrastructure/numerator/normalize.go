package numerator

import (
	"invoicedesk/internal/core/docstore"
)

// SequenceField is the counter field of the sequence document.
const SequenceField = "last_invoice_sequence"

// resolveUpdate turns whatever FindOneAndUpdate replied into a sequence number.
// ok=false means the reply carried no usable value and a recovery read is needed.
//
// Regardless of the declared shape, the document is tried as the record itself
// first and then one level down under "value": drivers have been seen to tag a
// command reply as a record.
func resolveUpdate(res docstore.UpdateResult) (seq int64, ok bool) {
	switch res.Shape {
	case docstore.ShapeRecord, docstore.ShapeWrapped:
		if seq, ok := sequenceOf(res.Document); ok {
			return seq, true
		}
		if inner, ok := nested(res.Document); ok {
			return sequenceOf(inner)
		}
	}
	// ShapeAck: the caller falls back to a plain read, which is only exact
	// when no other Advance lands between the two calls.
	return 0, false
}

// sequenceOf reads the counter from a record. Negative values are rejected,
// the counter starts at 0 and only grows.
func sequenceOf(doc docstore.Document) (int64, bool) {
	if doc == nil {
		return 0, false
	}
	raw, present := doc[SequenceField]
	if !present {
		return 0, false
	}
	seq, ok := docstore.Int64(raw)
	if !ok || seq < 0 {
		return 0, false
	}
	return seq, true
}

func nested(doc docstore.Document) (docstore.Document, bool) {
	if doc == nil {
		return nil, false
	}
	switch v := doc[docstore.WrappedField].(type) {
	case docstore.Document:
		return v, true
	case map[string]any:
		return docstore.Document(v), true
	default:
		return nil, false
	}
}
