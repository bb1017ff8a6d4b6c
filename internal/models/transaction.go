// Package models provides data model definitions for the poscore engine.
package models

import "time"

// Operation is the kind of mutation a transaction entry records.
type Operation string

const (
	OpCreate      Operation = "CREATE"
	OpUpdate      Operation = "UPDATE"
	OpDelete      Operation = "DELETE"
	OpBulkReplace Operation = "BULK_REPLACE"
)

// TransactionStatus is the lifecycle state of a transaction entry.
type TransactionStatus string

const (
	TxPending    TransactionStatus = "PENDING"
	TxCompleted  TransactionStatus = "COMPLETED"
	TxFailed     TransactionStatus = "FAILED"
	TxRolledBack TransactionStatus = "ROLLED_BACK"
)

// TransactionEntry is one immutable audit record of a mutation attempt.
// Previous holds the pre-mutation snapshot for UPDATE and DELETE entries,
// which is what makes rollback possible.
type TransactionEntry struct {
	ID        UUID              `json:"id"`
	Operation Operation         `json:"operation"`
	Table     string            `json:"table"`
	Key       string            `json:"key,omitempty"`
	Previous  Record            `json:"previous,omitempty"`
	Value     interface{}       `json:"value,omitempty"`
	Status    TransactionStatus `json:"status"`
	Reason    string            `json:"reason,omitempty"`
	Timestamp int64             `json:"timestamp"`
}

// Time returns the Timestamp as time.Time.
func (t *TransactionEntry) Time() time.Time {
	return time.Unix(t.Timestamp, 0)
}

// CanRollback reports whether the entry holds enough prior state to be
// rolled back. CREATE entries have no previous value by definition.
func (t *TransactionEntry) CanRollback() bool {
	return (t.Operation == OpUpdate || t.Operation == OpDelete) && t.Previous != nil
}
