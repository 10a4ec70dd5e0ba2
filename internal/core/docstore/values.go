package docstore

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
)

// Int64 coerces a stored numeric value to int64. Backends hand numbers back as
// int, int32, int64, float64 or json.Number depending on the driver.
// Fractional, NaN or out-of-range values are rejected.
func Int64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) || math.Abs(n) > 1<<53 {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

// Matches reports whether doc satisfies every equality in filter.
func Matches(doc Document, filter Filter) bool {
	for k, want := range filter {
		got, ok := doc[k]
		if !ok || !equalValues(got, want) {
			return false
		}
	}
	return true
}

func equalValues(a, b any) bool {
	if ai, ok := Int64(a); ok {
		if bi, ok := Int64(b); ok {
			return ai == bi
		}
	}
	return reflect.DeepEqual(a, b)
}

// Apply performs update on a copy of doc and returns it.
func Apply(doc Document, update Update) (Document, error) {
	out := Clone(doc)
	if out == nil {
		out = Document{}
	}
	for field, delta := range update.Inc {
		current := int64(0)
		if raw, ok := out[field]; ok && raw != nil {
			n, ok := Int64(raw)
			if !ok {
				return nil, fmt.Errorf("%w: cannot increment field %q holding %T", ErrTypeMismatch, field, raw)
			}
			current = n
		}
		out[field] = current + delta
	}
	for field, value := range update.Set {
		out[field] = value
	}
	return out, nil
}

// Clone deep-copies nested maps and slices so callers cannot alias stored state.
func Clone(doc Document) Document {
	if doc == nil {
		return nil
	}
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Document:
		return Clone(t)
	case map[string]any:
		return map[string]any(Clone(Document(t)))
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// Encode converts a tagged struct into a Document using its json tags.
func Encode(v any) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return doc, nil
}

// Decode fills out (a pointer to a tagged struct) from doc.
func Decode(doc Document, out any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}
