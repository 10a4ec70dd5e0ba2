package docstore

// Shape tags what a FindOneAndUpdate reply actually carries.
// Drivers disagree here: some return the document, some a command reply with the
// document under "value", some only an acknowledgement.
type Shape int

const (
	// ShapeAck means only an acknowledgement came back.
	ShapeAck Shape = iota
	// ShapeRecord means Document holds the document itself.
	ShapeRecord
	// ShapeWrapped means Document is a command reply with the document under WrappedField.
	ShapeWrapped
)

// WrappedField is where command-style replies nest the affected document.
const WrappedField = "value"

func (s Shape) String() string {
	switch s {
	case ShapeRecord:
		return "record"
	case ShapeWrapped:
		return "wrapped"
	default:
		return "ack"
	}
}

// UpdateResult is the reply of FindOneAndUpdate.
type UpdateResult struct {
	Shape    Shape
	Document Document
	// Matched is the number of existing documents the update applied to.
	Matched int64
	// UpsertedID is set when the update inserted a new document.
	UpsertedID string
}

// RecordResult wraps a returned document.
func RecordResult(doc Document) UpdateResult {
	return UpdateResult{Shape: ShapeRecord, Document: doc}
}

// WrappedResult builds a command-style reply around doc.
func WrappedResult(doc Document) UpdateResult {
	return UpdateResult{
		Shape:    ShapeWrapped,
		Document: Document{"ok": 1, WrappedField: doc},
	}
}

// AckResult is a reply without a document.
func AckResult(matched int64, upsertedID string) UpdateResult {
	return UpdateResult{Shape: ShapeAck, Matched: matched, UpsertedID: upsertedID}
}
