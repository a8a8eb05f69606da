// Package normalize turns arbitrary decoded JSON into the tabular
// model. Real-world APIs mix several record-collection shapes; an
// explicit classifier resolves the shape once, and one normalization
// path per shape does the rest.
package normalize

import (
	"encoding/json"
	"strconv"

	"github.com/gaurav-prasanna/tablepipe/core"
	"github.com/gaurav-prasanna/tablepipe/core/parse"
)

// Shape tags the resolved record-collection shape of a JSON document.
type Shape int

const (
	// ShapePrimitive is a bare string/number/bool/null document.
	ShapePrimitive Shape = iota
	// ShapeArrayOfRecords is a top-level array.
	ShapeArrayOfRecords
	// ShapeObjectWithArrayField is an object whose first array-valued
	// field holds the records; sibling fields are ignored.
	ShapeObjectWithArrayField
	// ShapeObjectOfObjects is an object whose first object-valued field
	// is a map keyed by ID; its values are the records.
	ShapeObjectOfObjects
	// ShapeSingleRecord is a flat object treated as one row.
	ShapeSingleRecord
)

// Classified is the tagged variant a document resolves to.
type Classified struct {
	Shape  Shape
	Items  []any         // record collection, for the three list shapes
	Record *parse.Object // the row, for ShapeSingleRecord
	Value  any           // the primitive, for ShapePrimitive
}

// Classify resolves the shape of a decoded JSON value. Resolution
// order matches how loosely structured APIs are best guessed: array
// first, then an embedded array field, then an ID-keyed object field,
// then the object itself as a single record.
func Classify(v any) Classified {
	switch val := v.(type) {
	case []any:
		return Classified{Shape: ShapeArrayOfRecords, Items: val}
	case *parse.Object:
		for _, key := range val.Keys {
			if arr, ok := val.Fields[key].([]any); ok {
				return Classified{Shape: ShapeObjectWithArrayField, Items: arr}
			}
		}
		for _, key := range val.Keys {
			if nested, ok := val.Fields[key].(*parse.Object); ok {
				items := make([]any, 0, len(nested.Keys))
				for _, k := range nested.Keys {
					items = append(items, nested.Fields[k])
				}
				return Classified{Shape: ShapeObjectOfObjects, Items: items}
			}
		}
		return Classified{Shape: ShapeSingleRecord, Record: val}
	default:
		return Classified{Shape: ShapePrimitive, Value: v}
	}
}

// Table normalizes a decoded JSON value into (columns, rows).
// truncated reports whether the row cap dropped input.
func Table(v any) (columns []string, rows []core.Row, truncated bool) {
	c := Classify(v)
	switch c.Shape {
	case ShapeSingleRecord:
		columns = append(columns, c.Record.Keys...)
		if len(columns) == 0 {
			columns = []string{"value"}
		}
		return columns, []core.Row{Pick(c.Record, columns)}, false
	case ShapePrimitive:
		return []string{"value"}, []core.Row{{"value": Text(c.Value)}}, false
	default:
		return FromItems(c.Items)
	}
}

// FromItems discovers columns over a record collection and projects
// every item onto them, up to core.MaxRows items.
func FromItems(items []any) (columns []string, rows []core.Row, truncated bool) {
	columns = Discover(items)
	if len(items) > core.MaxRows {
		items = items[:core.MaxRows]
		truncated = true
	}
	rows = make([]core.Row, 0, len(items))
	for _, item := range items {
		rows = append(rows, Pick(item, columns))
	}
	return columns, rows, truncated
}

// Discover unions the own-keys of non-array objects across the first
// core.DiscoverSample items, in first-seen order. When the sample holds
// no keys at all the column set degenerates to the synthetic "value".
func Discover(items []any) []string {
	var columns []string
	seen := make(map[string]bool)

	sample := items
	if len(sample) > core.DiscoverSample {
		sample = sample[:core.DiscoverSample]
	}
	for _, item := range sample {
		obj, ok := item.(*parse.Object)
		if !ok {
			continue
		}
		for _, key := range obj.Keys {
			if !seen[key] {
				seen[key] = true
				columns = append(columns, key)
			}
		}
	}
	if len(columns) == 0 {
		return []string{"value"}
	}
	return columns
}

// Pick projects an arbitrary value onto a fixed column set. Absent
// fields become the empty-string sentinel; nested structures are kept
// as their compact JSON encoding. A primitive item fills the synthetic
// "value" column when present.
func Pick(item any, columns []string) core.Row {
	row := make(core.Row, len(columns))
	obj, isObject := item.(*parse.Object)
	for _, col := range columns {
		if !isObject {
			if col == "value" {
				row[col] = Text(item)
			} else {
				row[col] = ""
			}
			continue
		}
		if !obj.Has(col) {
			row[col] = ""
			continue
		}
		row[col] = cell(obj.Fields[col])
	}
	return row
}

// cell flattens one projected value into the row value domain.
func cell(v any) any {
	switch v.(type) {
	case string, float64, bool, nil:
		return v
	default:
		// *parse.Object or []any.
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// Text renders a primitive the way a display layer would.
func Text(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case nil:
		return ""
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
