// Package queue provides the ordered change queue for offline mutations.
//
// Mutations are appended in the order the engine issues them and drained
// to the remote peer in FIFO order. A drain operates on a snapshot taken
// at drain start: on success the whole snapshot is removed, on failure
// nothing is, so delivery is at-least-once. Operations enqueued while a
// drain is in flight belong to the next drain.
package queue

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/tablewise/poscore/internal/errors"
	"github.com/tablewise/poscore/internal/logging"
	"github.com/tablewise/poscore/internal/models"
	"github.com/tablewise/poscore/internal/peer"
	"github.com/tablewise/poscore/internal/uuid"
)

// DefaultMaxSize bounds the number of queued operations.
const DefaultMaxSize = 10000

// Backoff constants for failed drains: base doubles per consecutive
// failure up to the cap. Going online resets the schedule.
const (
	backoffBase = time.Second
	backoffCap  = 60 * time.Second
)

// ChangeQueue holds pending mutations destined for the remote peer.
type ChangeQueue struct {
	mu          sync.Mutex
	ops         []models.QueuedOperation // FIFO, oldest first
	remote      peer.Peer
	online      bool
	draining    bool
	maxSize     int
	lastSync    *time.Time
	failures    int
	nextDrainAt time.Time
	log         *logging.Logger
}

// New creates a ChangeQueue draining to the given peer. The queue starts
// offline; callers flip it online once connectivity is known.
func New(remote peer.Peer, maxSize int) *ChangeQueue {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &ChangeQueue{
		remote:  remote,
		maxSize: maxSize,
		log:     logging.Get().WithComponent("queue"),
	}
}

// Enqueue appends one operation to the tail. When the queue is online an
// immediate drain attempt follows.
func (q *ChangeQueue) Enqueue(op models.QueueOp, table string, key string, payload interface{}) (models.QueuedOperation, error) {
	q.mu.Lock()

	if len(q.ops) >= q.maxSize {
		q.mu.Unlock()
		return models.QueuedOperation{}, apperrors.Newf(apperrors.ErrQueueFull,
			"change queue is full (max size: %d)", q.maxSize)
	}

	item := models.QueuedOperation{
		ID:        models.UUID(uuid.New()),
		Op:        op,
		Table:     table,
		Key:       key,
		Payload:   payload,
		Timestamp: time.Now().Unix(),
	}
	q.ops = append(q.ops, item)
	online := q.online
	q.mu.Unlock()

	q.log.Debug("Enqueued operation", map[string]interface{}{
		"op":    string(op),
		"table": table,
		"key":   key,
	})

	if online {
		q.Drain(context.Background())
	}
	return item, nil
}

// Drain attempts to flush all currently queued operations to the peer as
// one logical attempt. It is a no-op when offline, when a drain is
// already in flight, when the failure backoff deadline has not passed,
// or when the queue is empty. A failed drain leaves every operation
// queued for the next attempt.
func (q *ChangeQueue) Drain(ctx context.Context) error {
	q.mu.Lock()
	if !q.online || q.draining || len(q.ops) == 0 || time.Now().Before(q.nextDrainAt) {
		q.mu.Unlock()
		return nil
	}

	// Snapshot the drain set; ops enqueued from here on ride the next drain.
	snapshot := make([]models.QueuedOperation, len(q.ops))
	copy(snapshot, q.ops)
	q.draining = true
	q.mu.Unlock()

	err := q.remote.Send(ctx, snapshot)

	q.mu.Lock()
	q.draining = false
	if err != nil {
		q.failures++
		delay := backoffDelay(q.failures)
		q.nextDrainAt = time.Now().Add(delay)
		q.mu.Unlock()

		q.log.Warn("Drain failed, operations remain queued", map[string]interface{}{
			"operations": len(snapshot),
			"failures":   q.failures,
			"retry_in":   delay.String(),
			"error":      err.Error(),
		})
		return apperrors.Wrap(apperrors.ErrSyncFailed, "drain failed", err)
	}

	// The snapshot is a prefix of ops; drop exactly what was delivered.
	q.ops = q.ops[len(snapshot):]
	now := time.Now()
	q.lastSync = &now
	q.failures = 0
	q.nextDrainAt = time.Time{}
	remaining := len(q.ops)
	q.mu.Unlock()

	q.log.Info("Drain completed", map[string]interface{}{
		"delivered": len(snapshot),
		"remaining": remaining,
	})
	return nil
}

// backoffDelay computes the exponential backoff after n consecutive
// failures, capped at backoffCap.
func backoffDelay(n int) time.Duration {
	delay := backoffBase
	for i := 1; i < n; i++ {
		delay *= 2
		if delay >= backoffCap {
			return backoffCap
		}
	}
	if delay > backoffCap {
		return backoffCap
	}
	return delay
}

// SetOnline flips connectivity. The offline-to-online transition resets
// the failure backoff and triggers an automatic drain.
func (q *ChangeQueue) SetOnline(ctx context.Context, online bool) {
	q.mu.Lock()
	wasOnline := q.online
	q.online = online
	if online && !wasOnline {
		q.failures = 0
		q.nextDrainAt = time.Time{}
	}
	q.mu.Unlock()

	if online && !wasOnline {
		q.log.Info("Connectivity restored, draining queue")
		q.Drain(ctx)
	}
}

// Online reports whether the peer is considered reachable.
func (q *ChangeQueue) Online() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.online
}

// Pending returns the number of queued operations.
func (q *ChangeQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

// Operations returns a copy of the queued operations in FIFO order.
func (q *ChangeQueue) Operations() []models.QueuedOperation {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]models.QueuedOperation, len(q.ops))
	copy(out, q.ops)
	return out
}

// LastSyncTime returns the completion time of the last successful drain,
// or nil if none has succeeded yet.
func (q *ChangeQueue) LastSyncTime() *time.Time {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.lastSync == nil {
		return nil
	}
	t := *q.lastSync
	return &t
}

// Clear drops every queued operation.
func (q *ChangeQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ops = nil
}
