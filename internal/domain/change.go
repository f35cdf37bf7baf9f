package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Collection names a table whose row changes are published on the feed.
type Collection string

const (
	Notifications Collection = "notifications"
	Conversations Collection = "conversations"
	Messages      Collection = "messages"
)

// Op is the kind of row change.
type Op string

const (
	Insert Op = "insert"
	Update Op = "update"
	Delete Op = "delete"
)

// Change is a row change delivered by the feed. Old is empty for inserts and
// New is empty for deletes. Delivery is at-least-once; ID identifies the change.
type Change struct {
	ID         string          `json:"id"`
	Collection Collection      `json:"collection"`
	Op         Op              `json:"op"`
	Old        json.RawMessage `json:"old,omitempty"`
	New        json.RawMessage `json:"new,omitempty"`
	At         time.Time       `json:"at"`
}

// Kind returns the bus event kind for the change, e.g. "db.messages.insert".
func (c Change) Kind() string {
	return "db." + string(c.Collection) + "." + string(c.Op)
}

// DecodeNew unmarshals the new row into v.
func (c Change) DecodeNew(v any) error {
	if len(c.New) == 0 {
		return fmt.Errorf("%s change has no new row", c.Op)
	}
	return json.Unmarshal(c.New, v)
}

// DecodeOld unmarshals the old row into v.
func (c Change) DecodeOld(v any) error {
	if len(c.Old) == 0 {
		return fmt.Errorf("%s change has no old row", c.Op)
	}
	return json.Unmarshal(c.Old, v)
}

// NewChange builds a change from typed rows. Either row may be nil.
func NewChange(id string, coll Collection, op Op, old, new any) (Change, error) {
	ch := Change{ID: id, Collection: coll, Op: op, At: time.Now()}
	var err error
	if old != nil {
		if ch.Old, err = json.Marshal(old); err != nil {
			return Change{}, fmt.Errorf("marshal old row: %w", err)
		}
	}
	if new != nil {
		if ch.New, err = json.Marshal(new); err != nil {
			return Change{}, fmt.Errorf("marshal new row: %w", err)
		}
	}
	return ch, nil
}

// Topic selects changes of one collection, optionally filtered by a single
// top-level field equality (e.g. receiver_id = "u1").
type Topic struct {
	Collection Collection `json:"collection"`
	Field      string     `json:"field,omitempty"`
	Value      string     `json:"value,omitempty"`
}

func (t Topic) String() string {
	if t.Field == "" {
		return string(t.Collection)
	}
	return string(t.Collection) + "?" + t.Field + "=eq." + t.Value
}

// Match reports whether the change belongs to the topic. The filter is tested
// against the new row, or the old row when there is no new row.
func (t Topic) Match(c Change) bool {
	if c.Collection != t.Collection {
		return false
	}
	if t.Field == "" {
		return true
	}
	row := c.New
	if len(row) == 0 {
		row = c.Old
	}
	var fields map[string]any
	if err := json.Unmarshal(row, &fields); err != nil {
		return false
	}
	v, ok := fields[t.Field]
	if !ok || v == nil {
		return false
	}
	return fmt.Sprint(v) == t.Value
}
