// Package record holds decoded entries and the ordered collections that
// group them per directory type.
package record

import "maps"

// Record is one decoded entry.
type Record struct {
	key    string
	fields map[string]any
	owner  string
}

// New builds a record. A nil mapping becomes empty.
func New(key string, fields map[string]any, owner string) *Record {
	if fields == nil {
		fields = map[string]any{}
	}
	return &Record{key: key, fields: fields, owner: owner}
}

// Key returns the record key.
func (r *Record) Key() string { return r.key }

// Owner returns the name of the directory type the record belongs to.
func (r *Record) Owner() string { return r.owner }

// Fields returns a shallow copy of the field mapping.
func (r *Record) Fields() map[string]any {
	return maps.Clone(r.fields)
}

// Get returns one field value.
func (r *Record) Get(name string) (any, bool) {
	v, ok := r.fields[name]
	return v, ok
}

// Len returns the number of fields.
func (r *Record) Len() int { return len(r.fields) }
