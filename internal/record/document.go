package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// Member is one key/value pair of an ordered JSON object.
type Member struct {
	Key   string
	Value json.RawMessage
}

// Object is a JSON object that keeps member order.
// Duplicate keys collapse onto the first position; the last value wins.
type Object []Member

// Get returns the raw value stored under key.
func (o Object) Get(key string) (json.RawMessage, bool) {
	for _, m := range o {
		if m.Key == key {
			return m.Value, true
		}
	}
	return nil, false
}

// Set replaces the value under key in place, or appends it.
func (o *Object) Set(key string, value json.RawMessage) {
	for i := range *o {
		if (*o)[i].Key == key {
			(*o)[i].Value = value
			return
		}
	}
	*o = append(*o, Member{Key: key, Value: value})
}

// SetValue marshals v and stores it under key.
func (o *Object) SetValue(key string, v any) error {
	raw, err := marshalCompact(v)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	o.Set(key, raw)
	return nil
}

// Clone returns a copy that shares no member slice with o.
func (o Object) Clone() Object {
	out := make(Object, len(o))
	copy(out, o)
	return out
}

// MarshalJSON writes members in order.
func (o Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalCompact(m.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if len(m.Value) == 0 {
			buf.WriteString("null")
			continue
		}
		buf.Write(m.Value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, keeping member order.
func (o *Object) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}
	out := Object{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("value for %q: %w", key, err)
		}
		out.Set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*o = out
	return nil
}

// Document is a JSON object mapping test ids to per-test objects.
// Specification files and result files share this shape.
type Document struct {
	IDs     []string
	Entries map[string]Object
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{Entries: make(map[string]Object)}
}

// ParseDocument decodes a specification or result file.
// Every top-level value must itself be an object.
func ParseDocument(data []byte) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("empty document")
	}
	var top Object
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, err
	}
	doc := NewDocument()
	for _, m := range top {
		var entry Object
		if err := json.Unmarshal(m.Value, &entry); err != nil {
			return nil, fmt.Errorf("entry %q: %w", m.Key, err)
		}
		doc.Put(m.Key, entry)
	}
	return doc, nil
}

// ReadDocument reads and decodes a document from disk.
func ReadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Len returns the number of entries.
func (d *Document) Len() int {
	return len(d.IDs)
}

// Has reports whether id is present.
func (d *Document) Has(id string) bool {
	_, ok := d.Entries[id]
	return ok
}

// Put stores entry under id, keeping the first position of a repeated id.
func (d *Document) Put(id string, entry Object) {
	if _, ok := d.Entries[id]; !ok {
		d.IDs = append(d.IDs, id)
	}
	d.Entries[id] = entry
}

// BitPosition returns the bit_position of id, when present and integral.
func (d *Document) BitPosition(id string) *int {
	entry, ok := d.Entries[id]
	if !ok {
		return nil
	}
	return bitPosition(entry)
}

// Write encodes the document with two-space indentation, ids in order.
func (d *Document) Write(w io.Writer) error {
	top := make(Object, 0, len(d.IDs))
	for _, id := range d.IDs {
		raw, err := d.Entries[id].MarshalJSON()
		if err != nil {
			return fmt.Errorf("entry %q: %w", id, err)
		}
		top = append(top, Member{Key: id, Value: raw})
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(top)
}

// WriteFile writes the document to path.
func (d *Document) WriteFile(path string) error {
	var buf bytes.Buffer
	if err := d.Write(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func marshalCompact(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func bitPosition(entry Object) *int {
	raw, ok := entry.Get("bit_position")
	if !ok {
		return nil
	}
	var n *int
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil
	}
	return n
}
