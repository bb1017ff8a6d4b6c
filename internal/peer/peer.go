// Package peer abstracts the remote system that eventually receives
// queued mutations. The engine only depends on the Send contract; what
// sits behind it (a websocket, an HTTP API, a test double) is up to the
// caller.
package peer

import (
	"context"
	"sync"

	apperrors "github.com/tablewise/poscore/internal/errors"
	"github.com/tablewise/poscore/internal/models"
)

// Peer accepts one batch of queued operations per drain call. A nil
// error means the whole batch was accepted; any error means none of it
// was (delivery is at-least-once, idempotency is the peer's problem).
type Peer interface {
	Send(ctx context.Context, batch []models.QueuedOperation) error
}

// StubPeer is an in-memory peer for tests and offline development.
// It records every batch it accepts and can be told to fail.
type StubPeer struct {
	mu       sync.Mutex
	batches  [][]models.QueuedOperation
	failWith error
}

// NewStubPeer creates a StubPeer that accepts everything.
func NewStubPeer() *StubPeer {
	return &StubPeer{}
}

// Send records the batch, or returns the configured failure.
func (p *StubPeer) Send(ctx context.Context, batch []models.QueuedOperation) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failWith != nil {
		return p.failWith
	}

	copied := make([]models.QueuedOperation, len(batch))
	copy(copied, batch)
	p.batches = append(p.batches, copied)
	return nil
}

// FailWith makes subsequent Send calls return err. Pass nil to recover.
func (p *StubPeer) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failWith = err
}

// Fail makes subsequent Send calls fail with a generic peer error.
func (p *StubPeer) Fail() {
	p.FailWith(apperrors.New(apperrors.ErrPeerUnavailable, "peer unreachable"))
}

// Batches returns every batch accepted so far.
func (p *StubPeer) Batches() [][]models.QueuedOperation {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([][]models.QueuedOperation, len(p.batches))
	copy(out, p.batches)
	return out
}

// Received returns the total number of operations accepted.
func (p *StubPeer) Received() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for _, b := range p.batches {
		n += len(b)
	}
	return n
}
