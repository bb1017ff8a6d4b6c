// Package models provides data model definitions for the poscore engine.
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// UUID is a wrapper around string for UUID v4 type safety.
type UUID string

// Value implements driver.Valuer for UUID.
func (u UUID) Value() (driver.Value, error) {
	return string(u), nil
}

// Scan implements sql.Scanner for UUID.
func (u *UUID) Scan(value interface{}) error {
	if value == nil {
		*u = ""
		return nil
	}
	switch v := value.(type) {
	case []byte:
		*u = UUID(v)
	case string:
		*u = UUID(v)
	}
	return nil
}

// String returns the string representation of the UUID.
func (u UUID) String() string {
	return string(u)
}

// System-managed record fields. Every persisted record carries all three.
const (
	FieldID        = "id"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

// Record is one persisted item within a table: an opaque JSON document
// uniquely keyed by its "id" field. The storage, queue and log machinery
// operate on Records; consumers that want static shapes decode them into
// the typed structs in this package.
type Record map[string]interface{}

// Record timestamps are unix milliseconds: second granularity is too
// coarse to order rapid successive edits to the same record.

// ID returns the record's unique key, or "" if unset.
func (r Record) ID() string {
	id, _ := r[FieldID].(string)
	return id
}

// SetID assigns the record's unique key.
func (r Record) SetID(id string) {
	r[FieldID] = id
}

// CreatedAt returns the creation timestamp in unix milliseconds, 0 if unset.
func (r Record) CreatedAt() int64 {
	return asInt64(r[FieldCreatedAt])
}

// UpdatedAt returns the last-modified timestamp in unix milliseconds, 0 if unset.
func (r Record) UpdatedAt() int64 {
	return asInt64(r[FieldUpdatedAt])
}

// Stamp sets both system timestamps to now. Used on create.
func (r Record) Stamp() {
	now := time.Now().UnixMilli()
	r[FieldCreatedAt] = now
	r[FieldUpdatedAt] = now
}

// Touch advances the UpdatedAt timestamp.
func (r Record) Touch() {
	r[FieldUpdatedAt] = time.Now().UnixMilli()
}

// Clone returns a deep copy of the record via a JSON round trip.
// Mutating the copy never affects the original.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		// A Record always originates from JSON, so this is unreachable
		// for stored records; fall back to a shallow copy.
		out := make(Record, len(r))
		for k, v := range r {
			out[k] = v
		}
		return out
	}
	var out Record
	if err := json.Unmarshal(data, &out); err != nil {
		out = make(Record, len(r))
		for k, v := range r {
			out[k] = v
		}
	}
	return out
}

// asInt64 normalizes the numeric types a JSON round trip can produce.
func asInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case json.Number:
		i, _ := n.Int64()
		return i
	}
	return 0
}
