// Package models provides data model definitions for the poscore engine.
package models

import "time"

// QueueOp is the kind of mutation a queued operation carries.
type QueueOp string

const (
	QueueOpCreate QueueOp = "create"
	QueueOpUpdate QueueOp = "update"
	QueueOpDelete QueueOp = "delete"
)

// QueuedOperation is a durable-intent description of one mutation
// awaiting transmission to the remote peer. Operations are appended in
// the order the engine issues them and removed only after a drain
// attempt completes.
type QueuedOperation struct {
	ID        UUID        `json:"id"`
	Op        QueueOp     `json:"op"`
	Table     string      `json:"table"`
	Payload   interface{} `json:"payload,omitempty"`
	Key       string      `json:"key,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// Time returns the Timestamp as time.Time.
func (q *QueuedOperation) Time() time.Time {
	return time.Unix(q.Timestamp, 0)
}
