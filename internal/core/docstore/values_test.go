package docstore

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInt64(t *testing.T) {
	tests := []struct {
		name   string
		in     any
		want   int64
		wantOK bool
	}{
		{"int", 7, 7, true},
		{"int32", int32(7), 7, true},
		{"int64", int64(7), 7, true},
		{"whole float", float64(42), 42, true},
		{"json number", json.Number("12"), 12, true},
		{"fraction", 1.5, 0, false},
		{"nan", math.NaN(), 0, false},
		{"too large float", math.Pow(2, 60), 0, false},
		{"string", "7", 0, false},
		{"nil", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Int64(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatches(t *testing.T) {
	doc := Document{"phone": "555", "n": float64(3)}

	assert.True(t, Matches(doc, Filter{}))
	assert.True(t, Matches(doc, Filter{"phone": "555"}))
	assert.True(t, Matches(doc, Filter{"n": 3}), "numbers compare across types")
	assert.False(t, Matches(doc, Filter{"phone": "556"}))
	assert.False(t, Matches(doc, Filter{"missing": "x"}))
}

func TestApply(t *testing.T) {
	orig := Document{"count": 2, "name": "a"}

	out, err := Apply(orig, Update{
		Inc: map[string]int64{"count": 1, "fresh": 5},
		Set: map[string]any{"name": "b"},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(3), out["count"])
	assert.Equal(t, int64(5), out["fresh"])
	assert.Equal(t, "b", out["name"])
	assert.Equal(t, 2, orig["count"], "input must not change")

	_, err = Apply(Document{"count": "x"}, Update{Inc: map[string]int64{"count": 1}})
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestClone_IsDeep(t *testing.T) {
	orig := Document{
		"items": []any{map[string]any{"qty": 1}},
		"meta":  map[string]any{"k": "v"},
	}
	cp := Clone(orig)

	cp["items"].([]any)[0].(map[string]any)["qty"] = 2
	cp["meta"].(map[string]any)["k"] = "changed"

	assert.Equal(t, 1, orig["items"].([]any)[0].(map[string]any)["qty"])
	assert.Equal(t, "v", orig["meta"].(map[string]any)["k"])
	assert.Nil(t, Clone(nil))
}

func TestEncodeDecode(t *testing.T) {
	type record struct {
		ID   string `json:"_id"`
		Name string `json:"name"`
		Qty  int    `json:"qty"`
	}

	doc, err := Encode(record{ID: "x1", Name: "bolt", Qty: 3})
	require.NoError(t, err)
	assert.Equal(t, "x1", doc.ID())
	assert.Equal(t, "bolt", doc["name"])

	var back record
	require.NoError(t, Decode(doc, &back))
	assert.Equal(t, record{ID: "x1", Name: "bolt", Qty: 3}, back)
}
