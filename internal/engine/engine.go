// Package engine provides the data facade: the single entry point the
// rest of the application uses for persistence, offline queueing,
// conflict handling, transaction audit and change subscriptions.
//
// Every mutating call runs validation, storage, queueing, audit logging
// and subscriber notification as one unit of work. Rejected writes
// (validation failures, missing keys) leave storage, the queue and the
// log untouched.
package engine

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tablewise/poscore/internal/conflict"
	apperrors "github.com/tablewise/poscore/internal/errors"
	"github.com/tablewise/poscore/internal/hub"
	"github.com/tablewise/poscore/internal/logging"
	"github.com/tablewise/poscore/internal/models"
	"github.com/tablewise/poscore/internal/peer"
	"github.com/tablewise/poscore/internal/queue"
	"github.com/tablewise/poscore/internal/store"
	"github.com/tablewise/poscore/internal/txlog"
	"github.com/tablewise/poscore/internal/uuid"
	"github.com/tablewise/poscore/internal/validate"
)

// Options configures an Engine. The zero value plus DataDir is usable.
type Options struct {
	// DataDir is where the SQLite database lives.
	DataDir string
	// Peer receives drained queue batches. Nil means an in-memory stub.
	Peer peer.Peer
	// MaxLogEntries bounds the transaction log (default 1000).
	MaxLogEntries int
	// QueueMaxSize bounds the change queue (default 10000).
	QueueMaxSize int
	// Conflict tunes conflict detection and automatic merging.
	Conflict conflict.Config
	// InitAttempts bounds initialization retries (default 3).
	InitAttempts int
}

// Engine is an explicitly constructed instance of the data layer.
// Multiple isolated instances can coexist (one per test, for example);
// nothing is shared globally.
type Engine struct {
	// mu serializes the write path, which is what guarantees that
	// subscribers observe same-table writes in issue order.
	mu sync.Mutex

	opts     Options
	store    *store.Store
	gate     *validate.Gate
	txlog    *txlog.Log
	queue    *queue.ChangeQueue
	resolver *conflict.Resolver
	hub      *hub.Hub
	log      *logging.Logger

	// initialized is atomic because Read, ExportAll and the status
	// getters check it without taking the write-path mutex.
	initialized atomic.Bool
}

// New creates an Engine. Initialize must be called before use.
func New(opts Options) *Engine {
	remote := opts.Peer
	if remote == nil {
		remote = peer.NewStubPeer()
	}

	return &Engine{
		opts:     opts,
		gate:     validate.NewGate(),
		queue:    queue.New(remote, opts.QueueMaxSize),
		resolver: conflict.NewResolver(opts.Conflict),
		hub:      hub.New(),
		log:      logging.Get().WithComponent("engine"),
	}
}

// Initialize opens the store, creates missing tables without data loss
// and seeds the default settings baseline when the settings table is
// empty. It is idempotent and retries with increasing backoff before
// surfacing a fatal initialization error.
func (e *Engine) Initialize() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized.Load() {
		return nil
	}

	attempts := e.opts.InitAttempts
	if attempts <= 0 {
		attempts = 3
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			time.Sleep(time.Duration(attempt-1) * 500 * time.Millisecond)
		}

		st, err := store.Open(e.opts.DataDir)
		if err != nil {
			lastErr = err
			e.log.Warn("Initialization attempt failed", map[string]interface{}{
				"attempt": attempt,
				"error":   err.Error(),
			})
			continue
		}

		if err := e.seedSettings(st); err != nil {
			st.Close()
			lastErr = err
			continue
		}

		e.store = st
		e.txlog = txlog.New(st, e.opts.MaxLogEntries)
		e.initialized.Store(true)

		e.log.Info("Engine initialized", map[string]interface{}{
			"data_dir": e.opts.DataDir,
			"attempt":  attempt,
		})
		return nil
	}

	return apperrors.Wrap(apperrors.ErrInitializationFailed,
		"initialization failed after retries", lastErr)
}

// seedSettings writes the default settings baseline when the table is
// empty. Existing settings are never touched.
func (e *Engine) seedSettings(st *store.Store) error {
	n, err := st.Count(models.TableSettings)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	defaults := models.Record{
		"name":            "general",
		"businessName":    "",
		"currency":        "USD",
		"taxRate":         0.0,
		"serviceCharge":   0.0,
		"receiptFooter":   "",
		"openingTime":     "09:00",
		"closingTime":     "22:00",
		"tableCount":      0,
		"lowStockAlert":   true,
		"autoPrintOrders": false,
	}
	defaults.SetID(uuid.New())
	defaults.Stamp()
	return st.Put(models.TableSettings, defaults)
}

// Close shuts the engine down. Pending queue items stay in memory only;
// callers that need them delivered should drain first.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized.Load() {
		return nil
	}
	e.initialized.Store(false)
	return e.store.Close()
}

// ensureInitialized guards every data operation. It reads only the
// atomic flag, so the lock-free read paths can call it safely. The
// atomic store in Initialize publishes e.store and e.txlog: a caller
// that observes the flag as true also observes both fields.
func (e *Engine) ensureInitialized() error {
	if !e.initialized.Load() {
		return apperrors.New(apperrors.ErrStorageUnavailable, "engine is not initialized")
	}
	return nil
}

// Read returns the full contents of a table. It never fails: internal
// read errors are logged and an empty slice is returned.
// Read does not take the write-path mutex, so subscriber callbacks may
// safely read other tables while a notification is in flight.
func (e *Engine) Read(table string) []models.Record {
	if err := e.ensureInitialized(); err != nil {
		e.log.Error("Read on uninitialized engine", err, map[string]interface{}{"table": table})
		return []models.Record{}
	}

	records, err := e.store.GetAll(table)
	if err != nil {
		e.log.Error("Read failed", err, map[string]interface{}{"table": table})
		return []models.Record{}
	}
	if records == nil {
		records = []models.Record{}
	}
	return records
}

// Write atomically replaces the full contents of a table. Every item is
// validated first; if any item is invalid the call fails without
// touching storage, the queue or the log.
func (e *Engine) Write(table string, records []models.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ensureInitialized(); err != nil {
		return err
	}

	var allErrs []string
	prepared := make([]models.Record, 0, len(records))
	for _, rec := range records {
		result := e.gate.Validate(table, rec)
		if !result.Valid {
			allErrs = append(allErrs, result.Errors...)
			continue
		}
		item := rec.Clone()
		if item.ID() == "" {
			item.SetID(uuid.New())
		}
		// Records arriving with timestamps keep them, so restoring a
		// snapshot through ImportAll reproduces the backup exactly.
		if item.CreatedAt() == 0 {
			item.Stamp()
		}
		prepared = append(prepared, item)
	}
	if len(allErrs) > 0 {
		return apperrors.Newf(apperrors.ErrValidationFailed,
			"invalid records for %s: %s", table, strings.Join(allErrs, "; "))
	}

	txID := e.txlog.Begin(models.OpBulkReplace, table, prepared, "", nil)

	if err := e.store.ReplaceAll(table, prepared); err != nil {
		e.failTx(txID, err)
		return err
	}

	e.enqueue(models.QueueOpUpdate, table, "", prepared)
	e.completeTx(txID)
	e.hub.Notify(table, prepared)
	return nil
}

// Create validates a partial record, assigns a generated key and both
// system timestamps, persists it, queues a create operation, logs a
// CREATE entry and notifies subscribers with the full table contents.
// It returns the assigned key.
func (e *Engine) Create(table string, partial models.Record) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ensureInitialized(); err != nil {
		return "", err
	}

	result := e.gate.Validate(table, partial)
	if !result.Valid {
		return "", apperrors.Newf(apperrors.ErrValidationFailed,
			"invalid record for %s: %s", table, strings.Join(result.Errors, "; "))
	}

	rec := partial.Clone()
	rec.SetID(uuid.New())
	rec.Stamp()

	txID := e.txlog.Begin(models.OpCreate, table, rec, rec.ID(), nil)

	if err := e.store.Put(table, rec); err != nil {
		e.failTx(txID, err)
		return "", err
	}

	e.enqueue(models.QueueOpCreate, table, rec.ID(), rec)
	e.completeTx(txID)
	e.notify(table)
	return rec.ID(), nil
}

// Update merges partial updates onto an existing record, re-validates
// the merged result and persists it. A missing key fails with NotFound
// and produces no queue entry, log entry or notification.
func (e *Engine) Update(table, key string, updates models.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ensureInitialized(); err != nil {
		return err
	}

	existing, found, err := e.store.Get(table, key)
	if err != nil {
		return err
	}
	if !found {
		return apperrors.Newf(apperrors.ErrNotFound, "record %s not found in %s", key, table)
	}

	merged := existing.Clone()
	for k, v := range updates {
		// Identity and creation time never change across updates.
		if k == models.FieldID || k == models.FieldCreatedAt {
			continue
		}
		merged[k] = v
	}
	merged.Touch()

	result := e.gate.Validate(table, merged)
	if !result.Valid {
		return apperrors.Newf(apperrors.ErrValidationFailed,
			"invalid record for %s: %s", table, strings.Join(result.Errors, "; "))
	}

	txID := e.txlog.Begin(models.OpUpdate, table, merged, key, existing)

	if err := e.store.Put(table, merged); err != nil {
		e.failTx(txID, err)
		return err
	}

	e.enqueue(models.QueueOpUpdate, table, key, merged)
	e.completeTx(txID)
	e.notify(table)
	return nil
}

// Remove deletes a record by key. The existing value is fetched
// best-effort for the audit snapshot; removal of an absent key succeeds.
func (e *Engine) Remove(table, key string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ensureInitialized(); err != nil {
		return err
	}

	existing, _, err := e.store.Get(table, key)
	if err != nil {
		e.log.Warn("Could not snapshot record before removal", map[string]interface{}{
			"table": table,
			"key":   key,
			"error": err.Error(),
		})
	}

	txID := e.txlog.Begin(models.OpDelete, table, nil, key, existing)

	if err := e.store.Delete(table, key); err != nil {
		e.failTx(txID, err)
		return err
	}

	e.enqueue(models.QueueOpDelete, table, key, nil)
	e.completeTx(txID)
	e.notify(table)
	return nil
}

// Subscribe registers a callback for a table's changes and returns its
// unsubscribe function.
func (e *Engine) Subscribe(table string, cb hub.Callback) func() {
	return e.hub.Subscribe(table, cb)
}

// enqueue adds a queued operation. Queue failures (capacity) are
// reported but never abort a write whose storage result is already
// committed.
func (e *Engine) enqueue(op models.QueueOp, table, key string, payload interface{}) {
	if _, err := e.queue.Enqueue(op, table, key, payload); err != nil {
		e.log.Error("Failed to queue operation for sync", err, map[string]interface{}{
			"op":    string(op),
			"table": table,
			"key":   key,
		})
	}
}

// completeTx marks a transaction completed; log failures are non-fatal.
func (e *Engine) completeTx(txID string) {
	if err := e.txlog.Complete(txID); err != nil {
		e.log.Error("Failed to complete transaction entry", err, map[string]interface{}{
			"transaction_id": txID,
		})
	}
}

// failTx marks a transaction failed; log failures are non-fatal.
func (e *Engine) failTx(txID string, cause error) {
	if err := e.txlog.Fail(txID, cause.Error()); err != nil {
		e.log.Error("Failed to fail transaction entry", err, map[string]interface{}{
			"transaction_id": txID,
		})
	}
}

// notify fans out the table's full current contents to subscribers.
func (e *Engine) notify(table string) {
	records, err := e.store.GetAll(table)
	if err != nil {
		e.log.Error("Failed to read table for notification", err, map[string]interface{}{
			"table": table,
		})
		return
	}
	if records == nil {
		records = []models.Record{}
	}
	e.hub.Notify(table, records)
}
