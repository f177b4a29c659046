package record

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Collection is an insertion-ordered key → Record mapping.
type Collection struct {
	owner   string
	records *orderedmap.OrderedMap[string, *Record]
}

// NewCollection returns an empty collection for the named type.
func NewCollection(owner string) *Collection {
	return &Collection{owner: owner, records: orderedmap.New[string, *Record]()}
}

// Owner returns the owning type name.
func (c *Collection) Owner() string { return c.owner }

// Get returns the record stored under key, or nil.
func (c *Collection) Get(key string) *Record {
	r, _ := c.records.Get(key)
	return r
}

// Set stores r under key. An existing key keeps its position.
func (c *Collection) Set(key string, r *Record) {
	c.records.Set(key, r)
}

// Remove deletes key and returns the removed record, or nil.
func (c *Collection) Remove(key string) *Record {
	r, _ := c.records.Delete(key)
	return r
}

// ContainsKey reports whether key is present.
func (c *Collection) ContainsKey(key string) bool {
	_, ok := c.records.Get(key)
	return ok
}

// Len returns the number of records.
func (c *Collection) Len() int { return c.records.Len() }

// Keys returns the keys in insertion order.
func (c *Collection) Keys() []string {
	out := make([]string, 0, c.records.Len())
	for pair := c.records.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

// Records returns the records in insertion order.
func (c *Collection) Records() []*Record {
	out := make([]*Record, 0, c.records.Len())
	for pair := c.records.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// Serialize returns the plain key → fields structure written by the
// whole-file backend.
func (c *Collection) Serialize() map[string]map[string]any {
	out := make(map[string]map[string]any, c.records.Len())
	for pair := c.records.Oldest(); pair != nil; pair = pair.Next() {
		out[pair.Key] = pair.Value.Fields()
	}
	return out
}
