package parse

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/gaurav-prasanna/tablepipe/core"
)

// Object is a decoded JSON object with first-seen key order preserved.
// Column discovery depends on key order, which map decoding would lose.
type Object struct {
	Keys   []string
	Fields map[string]any
}

// Get returns the value for key, or nil when absent.
func (o *Object) Get(key string) any {
	if o == nil {
		return nil
	}
	return o.Fields[key]
}

// Has reports whether key was present in the source document.
func (o *Object) Has(key string) bool {
	if o == nil {
		return false
	}
	_, ok := o.Fields[key]
	return ok
}

// MarshalJSON writes the object with its original key order.
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf strings.Builder
	buf.WriteByte('{')
	for i, key := range o.Keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(o.Fields[key])
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return []byte(buf.String()), nil
}

// JSONValue decodes an arbitrary JSON document. Objects decode to
// *Object, arrays to []any, and primitives to string/float64/bool/nil.
// A syntactically invalid document is an error: pasted JSON that does
// not parse is fatal to its ingestion. The document must be exactly one
// value; trailing content is invalid.
func JSONValue(text string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	v, err := decodeValue(dec)
	if err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("parsing JSON: trailing content after document")
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		// string, float64, bool, or nil.
		return tok, nil
	}
	switch delim {
	case '{':
		obj := &Object{Fields: make(map[string]any)}
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, _ := keyTok.(string)
			val, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			if _, dup := obj.Fields[key]; !dup {
				obj.Keys = append(obj.Keys, key)
			}
			obj.Fields[key] = val
		}
		if _, err := dec.Token(); err != nil { // closing '}'
			return nil, err
		}
		return obj, nil
	case '[':
		arr := []any{}
		for dec.More() {
			val, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, val)
		}
		if _, err := dec.Token(); err != nil { // closing ']'
			return nil, err
		}
		return arr, nil
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

// NDJSON decodes newline-delimited JSON into a slice of values, one per
// parseable line. Blank and malformed lines are skipped; at most
// core.MaxRows items are kept.
func NDJSON(text string) (items []any, truncated bool) {
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		v, err := JSONValue(line)
		if err != nil {
			continue
		}
		if len(items) >= core.MaxRows {
			truncated = true
			break
		}
		items = append(items, v)
	}
	return items, truncated
}
