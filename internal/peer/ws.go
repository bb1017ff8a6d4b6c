// Package peer abstracts the remote system that receives queued mutations.
package peer

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	apperrors "github.com/tablewise/poscore/internal/errors"
	"github.com/tablewise/poscore/internal/logging"
	"github.com/tablewise/poscore/internal/models"
)

// Envelope wraps one drained batch on the wire.
type Envelope struct {
	Type       string                   `json:"type"`
	Operations []models.QueuedOperation `json:"operations"`
	Timestamp  int64                    `json:"timestamp"`
}

// TypeOpsBatch is the envelope type for operation batches.
const TypeOpsBatch = "ops.batch"

// ack is the peer's per-batch response.
type ack struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// WSPeer delivers batches over a websocket connection. Each Send writes
// one JSON envelope and waits for a single ack message.
type WSPeer struct {
	mu           sync.Mutex
	url          string
	conn         *websocket.Conn
	writeTimeout time.Duration
	log          *logging.Logger
}

// NewWSPeer creates a WSPeer for the given websocket URL. The connection
// is established lazily on the first Send.
func NewWSPeer(url string) *WSPeer {
	return &WSPeer{
		url:          url,
		writeTimeout: 10 * time.Second,
		log:          logging.Get().WithComponent("peer"),
	}
}

// Send delivers one batch and waits for the ack.
func (p *WSPeer) Send(ctx context.Context, batch []models.QueuedOperation) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.connectLocked(ctx); err != nil {
		return err
	}

	envelope := Envelope{
		Type:       TypeOpsBatch,
		Operations: batch,
		Timestamp:  time.Now().Unix(),
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrSyncFailed, "failed to marshal batch", err)
	}

	deadline := time.Now().Add(p.writeTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	p.conn.SetWriteDeadline(deadline)
	if err := p.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		p.dropLocked()
		return apperrors.Wrap(apperrors.ErrPeerUnavailable, "failed to send batch", err)
	}

	p.conn.SetReadDeadline(deadline)
	var response ack
	if err := p.conn.ReadJSON(&response); err != nil {
		p.dropLocked()
		return apperrors.Wrap(apperrors.ErrPeerUnavailable, "no ack from peer", err)
	}
	if !response.OK {
		return apperrors.Newf(apperrors.ErrSyncFailed, "peer rejected batch: %s", response.Error)
	}

	p.log.Debug("Batch delivered", map[string]interface{}{
		"operations": len(batch),
	})
	return nil
}

// connectLocked dials the peer if no connection is live.
func (p *WSPeer) connectLocked(ctx context.Context) error {
	if p.conn != nil {
		return nil
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, p.url, nil)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrPeerUnavailable, "failed to dial peer", err)
	}
	p.conn = conn

	p.log.Info("Connected to remote peer", map[string]interface{}{
		"url": p.url,
	})
	return nil
}

// dropLocked discards a broken connection so the next Send redials.
func (p *WSPeer) dropLocked() {
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
}

// Close closes the connection if open.
func (p *WSPeer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}
