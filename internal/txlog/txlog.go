// Package txlog provides the append-only transaction audit log.
//
// Every mutation attempt is recorded with a PENDING entry up front and
// marked completed or failed afterwards. Entries for UPDATE and DELETE
// carry the pre-mutation snapshot, which makes them rollback-capable.
package txlog

import (
	"sync"
	"time"

	apperrors "github.com/tablewise/poscore/internal/errors"
	"github.com/tablewise/poscore/internal/logging"
	"github.com/tablewise/poscore/internal/models"
	"github.com/tablewise/poscore/internal/store"
	"github.com/tablewise/poscore/internal/uuid"
)

// DefaultMaxEntries bounds the retained history.
const DefaultMaxEntries = 1000

// Log is the bounded in-memory transaction log.
type Log struct {
	mu         sync.Mutex
	entries    []*models.TransactionEntry // oldest first
	byID       map[string]*models.TransactionEntry
	maxEntries int
	store      *store.Store
	logger     *logging.Logger
}

// New creates a Log that applies rollbacks through the given store.
func New(st *store.Store, maxEntries int) *Log {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Log{
		byID:       make(map[string]*models.TransactionEntry),
		maxEntries: maxEntries,
		store:      st,
		logger:     logging.Get().WithComponent("txlog"),
	}
}

// Begin appends a PENDING entry and returns its transaction id.
// Callers must eventually call Complete or Fail.
func (l *Log) Begin(op models.Operation, table string, value interface{}, key string, previous models.Record) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := &models.TransactionEntry{
		ID:        models.UUID(uuid.New()),
		Operation: op,
		Table:     table,
		Key:       key,
		Previous:  previous.Clone(),
		Value:     value,
		Status:    models.TxPending,
		Timestamp: time.Now().Unix(),
	}

	l.entries = append(l.entries, entry)
	l.byID[entry.ID.String()] = entry
	l.evictLocked()

	return entry.ID.String()
}

// Complete marks a pending entry COMPLETED.
func (l *Log) Complete(txID string) error {
	return l.setStatus(txID, models.TxCompleted, "")
}

// Fail marks a pending entry FAILED with a reason.
func (l *Log) Fail(txID string, reason string) error {
	return l.setStatus(txID, models.TxFailed, reason)
}

func (l *Log) setStatus(txID string, status models.TransactionStatus, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.byID[txID]
	if !ok {
		return apperrors.Newf(apperrors.ErrTransactionNotFound, "transaction %s not found", txID)
	}
	entry.Status = status
	entry.Reason = reason
	return nil
}

// Rollback restores the pre-transaction snapshot for an UPDATE or DELETE
// entry and marks it ROLLED_BACK. CREATE entries have no prior state, so
// rollback reports false instead of failing. The snapshot bypasses
// validation on the way back in; it was valid when captured.
func (l *Log) Rollback(txID string) (bool, error) {
	l.mu.Lock()
	entry, ok := l.byID[txID]
	if !ok {
		l.mu.Unlock()
		return false, apperrors.Newf(apperrors.ErrTransactionNotFound, "transaction %s not found", txID)
	}
	if !entry.CanRollback() {
		l.mu.Unlock()
		return false, nil
	}
	table := entry.Table
	snapshot := entry.Previous.Clone()
	l.mu.Unlock()

	if err := l.store.Put(table, snapshot); err != nil {
		return false, err
	}

	l.mu.Lock()
	entry.Status = models.TxRolledBack
	l.mu.Unlock()

	l.logger.Info("Transaction rolled back", map[string]interface{}{
		"transaction_id": txID,
		"table":          table,
		"key":            snapshot.ID(),
	})
	return true, nil
}

// History returns entries most-recent-first, optionally filtered by
// table. A limit of 0 means no limit.
func (l *Log) History(table string, limit int) []models.TransactionEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []models.TransactionEntry
	for i := len(l.entries) - 1; i >= 0; i-- {
		entry := l.entries[i]
		if table != "" && entry.Table != table {
			continue
		}
		out = append(out, *entry)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// Get returns a copy of one entry by transaction id.
func (l *Log) Get(txID string) (models.TransactionEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.byID[txID]
	if !ok {
		return models.TransactionEntry{}, false
	}
	return *entry, true
}

// Size returns the number of retained entries.
func (l *Log) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// evictLocked drops the oldest entries once the cap is exceeded,
// regardless of their status. Entries are appended in timestamp order,
// so the front of the slice is always the oldest.
func (l *Log) evictLocked() {
	for len(l.entries) > l.maxEntries {
		oldest := l.entries[0]
		l.entries = l.entries[1:]
		delete(l.byID, oldest.ID.String())
	}
}
