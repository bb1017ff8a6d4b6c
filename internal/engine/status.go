// Package engine provides the data facade for the poscore data layer.
package engine

import (
	"context"
	"time"

	"github.com/tablewise/poscore/internal/conflict"
	"github.com/tablewise/poscore/internal/models"
)

// SyncState summarizes the change queue for status consumers.
type SyncState struct {
	Online       bool       `json:"online"`
	PendingOps   int        `json:"pendingOps"`
	LastSyncTime *time.Time `json:"lastSyncTime,omitempty"`
}

// SetOnline flips connectivity to the remote peer. Coming online
// triggers an automatic drain of the change queue.
func (e *Engine) SetOnline(ctx context.Context, online bool) {
	e.queue.SetOnline(ctx, online)
}

// Drain attempts to flush the change queue to the remote peer.
func (e *Engine) Drain(ctx context.Context) error {
	return e.queue.Drain(ctx)
}

// SyncStatus reports the current queue state.
func (e *Engine) SyncStatus() SyncState {
	return SyncState{
		Online:       e.queue.Online(),
		PendingOps:   e.queue.Pending(),
		LastSyncTime: e.queue.LastSyncTime(),
	}
}

// TransactionHistory returns audit entries most-recent-first, optionally
// filtered by table. A limit of 0 means no limit.
func (e *Engine) TransactionHistory(table string, limit int) []models.TransactionEntry {
	if err := e.ensureInitialized(); err != nil {
		return nil
	}
	return e.txlog.History(table, limit)
}

// Rollback restores the pre-transaction snapshot of an UPDATE or DELETE
// entry. It reports false for entries without prior state (CREATE).
// Subscribers of the affected table are notified when the snapshot is
// re-applied.
func (e *Engine) Rollback(txID string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ensureInitialized(); err != nil {
		return false, err
	}

	entry, found := e.txlog.Get(txID)
	ok, err := e.txlog.Rollback(txID)
	if err != nil {
		return false, err
	}
	if ok && found {
		e.notify(entry.Table)
	}
	return ok, nil
}

// DetectConflict compares a locally-held record against a remote-reported
// version and registers a pending conflict when they meaningfully
// diverge. Nil means no conflict.
func (e *Engine) DetectConflict(table, key string, local, remote models.Record) *conflict.Conflict {
	return e.resolver.Detect(table, key, local, remote)
}

// ResolveConflict resolves a pending conflict and returns the resolved
// value. Applying the value is the caller's decision; routing it through
// Update keeps it validated, queued, logged and fanned out.
func (e *Engine) ResolveConflict(conflictID string, choice conflict.Choice, merged models.Record) (models.Record, error) {
	return e.resolver.Resolve(conflictID, choice, merged)
}

// PendingConflicts returns unresolved conflicts, newest first.
func (e *Engine) PendingConflicts() []conflict.Conflict {
	return e.resolver.Pending()
}

// IgnoreConflict marks a pending conflict ignored without producing a
// value.
func (e *Engine) IgnoreConflict(conflictID string) error {
	return e.resolver.Ignore(conflictID)
}

// PurgeResolvedConflicts drops resolved and ignored conflicts.
func (e *Engine) PurgeResolvedConflicts() int {
	return e.resolver.PurgeResolved()
}
