// Package conflict provides detection and resolution of concurrent edits
// between a locally-held record and a remote-reported version of it.
package conflict

import (
	"reflect"
	"sync"
	"time"

	apperrors "github.com/tablewise/poscore/internal/errors"
	"github.com/tablewise/poscore/internal/logging"
	"github.com/tablewise/poscore/internal/models"
	"github.com/tablewise/poscore/internal/uuid"
)

// DefaultTolerance is the timestamp-difference window below which two
// divergent values are treated as the same logical write.
const DefaultTolerance = time.Second

// DefaultLocalFields is the allow-list of operationally-local fields the
// automatic merge keeps from the local side.
var DefaultLocalFields = []string{"assignedStaff", "specialInstructions", "priority"}

// Status is the lifecycle state of a conflict.
type Status string

const (
	StatusPending  Status = "pending"
	StatusResolved Status = "resolved"
	StatusIgnored  Status = "ignored"
)

// Choice is the resolution strategy picked for a conflict.
type Choice string

const (
	ChoiceLocal  Choice = "local"
	ChoiceRemote Choice = "remote"
	ChoiceMerge  Choice = "merge"
)

// Conflict records one meaningful divergence between a local and a
// remote version of the same record.
type Conflict struct {
	ID         string        `json:"id"`
	Table      string        `json:"table"`
	Key        string        `json:"key"`
	Local      models.Record `json:"local"`
	Remote     models.Record `json:"remote"`
	Status     Status        `json:"status"`
	Resolution Choice        `json:"resolution,omitempty"`
	DetectedAt int64         `json:"detectedAt"`
}

// Config tunes detection and automatic merging.
type Config struct {
	// Tolerance is the timestamp window treated as the same write.
	// Zero means DefaultTolerance.
	Tolerance time.Duration
	// LocalFields is the allow-list the automatic merge keeps from the
	// local side. Nil means DefaultLocalFields.
	LocalFields []string
}

// Resolver detects and resolves conflicts.
type Resolver struct {
	mu          sync.Mutex
	conflicts   map[string]*Conflict
	order       []string // detection order, oldest first
	tolerance   time.Duration
	localFields []string
	log         *logging.Logger
}

// NewResolver creates a Resolver with the given configuration.
func NewResolver(cfg Config) *Resolver {
	tolerance := cfg.Tolerance
	if tolerance == 0 {
		tolerance = DefaultTolerance
	}
	localFields := cfg.LocalFields
	if localFields == nil {
		localFields = DefaultLocalFields
	}
	return &Resolver{
		conflicts:   make(map[string]*Conflict),
		tolerance:   tolerance,
		localFields: localFields,
		log:         logging.Get().WithComponent("conflict"),
	}
}

// Detect compares a local and a remote version of the same record.
// It returns nil when the values are structurally identical, or when
// their modification timestamps fall within the tolerance window (the
// same logical write seen twice). Otherwise a pending Conflict is
// registered and returned.
func (r *Resolver) Detect(table, key string, local, remote models.Record) *Conflict {
	if local == nil || remote == nil {
		return nil
	}
	if reflect.DeepEqual(map[string]interface{}(local), map[string]interface{}(remote)) {
		return nil
	}

	diff := local.UpdatedAt() - remote.UpdatedAt()
	if diff < 0 {
		diff = -diff
	}
	if time.Duration(diff)*time.Millisecond <= r.tolerance {
		return nil
	}

	c := &Conflict{
		ID:         uuid.New(),
		Table:      table,
		Key:        key,
		Local:      local.Clone(),
		Remote:     remote.Clone(),
		Status:     StatusPending,
		DetectedAt: time.Now().Unix(),
	}

	r.mu.Lock()
	r.conflicts[c.ID] = c
	r.order = append(r.order, c.ID)
	r.mu.Unlock()

	r.log.Warn("Concurrent edit conflict detected", map[string]interface{}{
		"conflict_id":      c.ID,
		"table":            table,
		"key":              key,
		"local_timestamp":  local.UpdatedAt(),
		"remote_timestamp": remote.UpdatedAt(),
	})
	return c
}

// Resolve picks a resolution for a pending conflict and returns the
// resolved value. For ChoiceMerge, merged is used when non-nil; otherwise
// an automatic merge is performed.
func (r *Resolver) Resolve(conflictID string, choice Choice, merged models.Record) (models.Record, error) {
	r.mu.Lock()
	c, ok := r.conflicts[conflictID]
	if !ok {
		r.mu.Unlock()
		return nil, apperrors.Newf(apperrors.ErrConflictNotFound, "conflict %s not found", conflictID)
	}
	if c.Status != StatusPending {
		r.mu.Unlock()
		return nil, apperrors.Newf(apperrors.ErrConflictResolved, "conflict %s is already %s", conflictID, c.Status)
	}

	var resolved models.Record
	switch choice {
	case ChoiceLocal:
		resolved = c.Local.Clone()
	case ChoiceRemote:
		resolved = c.Remote.Clone()
	case ChoiceMerge:
		if merged != nil {
			resolved = merged.Clone()
		} else {
			resolved = r.autoMerge(c.Local, c.Remote)
		}
	default:
		r.mu.Unlock()
		return nil, apperrors.Newf(apperrors.ErrInvalid, "unknown resolution choice %q", choice)
	}

	c.Status = StatusResolved
	c.Resolution = choice
	r.mu.Unlock()

	r.log.Info("Conflict resolved", map[string]interface{}{
		"conflict_id": conflictID,
		"table":       c.Table,
		"key":         c.Key,
		"resolution":  string(choice),
	})
	return resolved, nil
}

// Ignore transitions a pending conflict to ignored without producing a
// value.
func (r *Resolver) Ignore(conflictID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conflicts[conflictID]
	if !ok {
		return apperrors.Newf(apperrors.ErrConflictNotFound, "conflict %s not found", conflictID)
	}
	if c.Status != StatusPending {
		return apperrors.Newf(apperrors.ErrConflictResolved, "conflict %s is already %s", conflictID, c.Status)
	}
	c.Status = StatusIgnored
	return nil
}

// Pending returns pending conflicts, newest first.
func (r *Resolver) Pending() []Conflict {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Conflict
	for i := len(r.order) - 1; i >= 0; i-- {
		c := r.conflicts[r.order[i]]
		if c.Status == StatusPending {
			out = append(out, *c)
		}
	}
	return out
}

// PurgeResolved drops resolved and ignored conflicts, returning how many
// were removed.
func (r *Resolver) PurgeResolved() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	kept := r.order[:0]
	for _, id := range r.order {
		c := r.conflicts[id]
		if c.Status == StatusPending {
			kept = append(kept, id)
			continue
		}
		delete(r.conflicts, id)
		removed++
	}
	r.order = kept
	return removed
}

// autoMerge starts from the remote value, overlays the allow-listed
// operationally-local fields from the local value, and keeps the newer
// of the two modification timestamps.
func (r *Resolver) autoMerge(local, remote models.Record) models.Record {
	merged := remote.Clone()
	for _, field := range r.localFields {
		if v, ok := local[field]; ok {
			merged[field] = v
		}
	}
	if local.UpdatedAt() > remote.UpdatedAt() {
		merged[models.FieldUpdatedAt] = local.UpdatedAt()
	}
	return merged
}
