// Package workflow defines the workflow document model: the original content exactly as
// it was received, and the derived metadata record that travels beside it.
package workflow

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MetadataKey is the top-level key under which the metadata record is serialized.
const MetadataKey = "_metadata"

// ErrNotObject indicates the raw bytes are not a single JSON object.
var ErrNotObject = errors.New("workflow document is not a JSON object")

// Field is one top-level key of an original workflow document.
type Field struct {
	Key   string
	Value json.RawMessage
}

// Content holds the original top-level fields of a workflow document in their
// original order. Values are kept as the exact bytes that were parsed.
type Content struct {
	fields []Field
}

// Parse splits raw JSON into the original content and the metadata record.
//
// A metadata record that does not decode is dropped (nil) so that it can be
// re-derived; it never causes Parse to fail.
func Parse(raw []byte) (Content, *Metadata, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return Content{}, nil, fmt.Errorf("%w: %v", ErrNotObject, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return Content{}, nil, ErrNotObject
	}

	var (
		c    Content
		meta *Metadata
	)
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return Content{}, nil, fmt.Errorf("%w: %v", ErrNotObject, err)
		}
		key, ok := kt.(string)
		if !ok {
			return Content{}, nil, ErrNotObject
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return Content{}, nil, fmt.Errorf("%w: field %q: %v", ErrNotObject, key, err)
		}
		if key == MetadataKey {
			var m Metadata
			if err := json.Unmarshal(v, &m); err == nil {
				meta = &m
			}
			continue
		}
		c.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return Content{}, nil, fmt.Errorf("%w: %v", ErrNotObject, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return Content{}, nil, fmt.Errorf("%w: trailing data after object", ErrNotObject)
	}
	return c, meta, nil
}

// Get returns the raw value of key.
func (c Content) Get(key string) (json.RawMessage, bool) {
	for _, f := range c.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Set replaces the value of key in place, or appends it.
func (c *Content) Set(key string, value json.RawMessage) {
	for i := range c.fields {
		if c.fields[i].Key == key {
			c.fields[i].Value = value
			return
		}
	}
	c.fields = append(c.fields, Field{Key: key, Value: value})
}

// Fields returns a copy of the top-level fields in document order.
func (c Content) Fields() []Field {
	out := make([]Field, len(c.fields))
	copy(out, c.fields)
	return out
}

// Len returns the number of top-level fields.
func (c Content) Len() int {
	return len(c.fields)
}

// Text returns the compact JSON serialization of the original content. It is the
// haystack for substring-based detection and never includes the metadata record.
func (c Content) Text() string {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range c.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, _ := json.Marshal(f.Key)
		buf.Write(kb)
		buf.WriteByte(':')
		if err := json.Compact(&buf, f.Value); err != nil {
			buf.Write(f.Value)
		}
	}
	buf.WriteByte('}')
	return buf.String()
}

// Fingerprint returns an md5 hex digest of Text, used to recognize identical content.
func (c Content) Fingerprint() string {
	sum := md5.Sum([]byte(c.Text()))
	return hex.EncodeToString(sum[:])
}

// Encode serializes the metadata record followed by the original fields. Original
// values are written verbatim so that they survive a write/read cycle byte-for-byte.
func Encode(c Content, meta *Metadata) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("{\n")
	n := 0
	if meta != nil {
		mb, err := json.MarshalIndent(meta, "  ", "  ")
		if err != nil {
			return nil, fmt.Errorf("cannot marshal metadata: %w", err)
		}
		buf.WriteString(`  "` + MetadataKey + `": `)
		buf.Write(mb)
		n++
	}
	for _, f := range c.fields {
		if n > 0 {
			buf.WriteString(",\n")
		}
		kb, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		buf.WriteString("  ")
		buf.Write(kb)
		buf.WriteString(": ")
		buf.Write(f.Value)
		n++
	}
	if n == 0 {
		return []byte("{}\n"), nil
	}
	buf.WriteString("\n}\n")
	return buf.Bytes(), nil
}
