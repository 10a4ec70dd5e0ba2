package mongo

import (
	"testing"

	"github.com/juju/mgo/v3/bson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicedesk/internal/core/docstore"
)

func TestBuildUpdate(t *testing.T) {
	t.Run("increment with upsert assigns string id", func(t *testing.T) {
		doc := buildUpdate(docstore.Filter{}, docstore.Update{
			Inc: map[string]int64{"last_invoice_sequence": 1},
		}, true)

		assert.Equal(t, bson.M{"last_invoice_sequence": int64(1)}, doc["$inc"])
		onInsert, ok := doc["$setOnInsert"].(bson.M)
		require.True(t, ok)
		assert.NotEmpty(t, onInsert[docstore.IDField])
	})

	t.Run("set never touches id", func(t *testing.T) {
		doc := buildUpdate(docstore.Filter{docstore.IDField: "x"}, docstore.Update{
			Set: map[string]any{"name": "n", docstore.IDField: "y"},
		}, true)

		assert.Equal(t, bson.M{"name": "n"}, doc["$set"])
		assert.NotContains(t, doc, "$setOnInsert")
	})
}

func TestToDocument(t *testing.T) {
	oid := bson.NewObjectId()
	doc := toDocument(bson.M{
		docstore.IDField: oid,
		"nested":         bson.M{"qty": 2},
		"items":          []any{bson.M{"sku": "a"}},
	})

	assert.Equal(t, oid.Hex(), doc.ID())
	assert.Equal(t, map[string]any{"qty": 2}, doc["nested"])
	assert.Equal(t, []any{map[string]any{"sku": "a"}}, doc["items"])
}
