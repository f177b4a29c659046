package directory

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Action is a pending storage operation for one key.
type Action string

const (
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Change is one journal entry.
type Change struct {
	Key    string `json:"key"`
	Action Action `json:"action"`
}

// Journal records the last pending action per key since the previous
// save. A key keeps the position of its first insertion.
type Journal struct {
	entries *orderedmap.OrderedMap[string, Action]
}

// NewJournal returns an empty journal.
func NewJournal() *Journal {
	return &Journal{entries: orderedmap.New[string, Action]()}
}

// Record sets the pending action for key, replacing any earlier one.
func (j *Journal) Record(key string, a Action) {
	j.entries.Set(key, a)
}

// Action returns the pending action for key.
func (j *Journal) Action(key string) (Action, bool) {
	return j.entries.Get(key)
}

// Entries returns the pending changes in journal order.
func (j *Journal) Entries() []Change {
	out := make([]Change, 0, j.entries.Len())
	for pair := j.entries.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, Change{Key: pair.Key, Action: pair.Value})
	}
	return out
}

// Len returns the number of pending keys.
func (j *Journal) Len() int { return j.entries.Len() }

// Clear drops every pending change.
func (j *Journal) Clear() {
	j.entries = orderedmap.New[string, Action]()
}
