// Package conflict provides unit tests for the conflict resolver.
package conflict

import (
	"testing"
	"time"

	apperrors "github.com/tablewise/poscore/internal/errors"
	"github.com/tablewise/poscore/internal/models"
)

// versioned builds a record with an explicit updatedAt in unix
// milliseconds.
func versioned(updatedAt int64, fields map[string]interface{}) models.Record {
	rec := models.Record{}
	for k, v := range fields {
		rec[k] = v
	}
	rec.SetID("k1")
	rec[models.FieldCreatedAt] = int64(1000)
	rec[models.FieldUpdatedAt] = updatedAt
	return rec
}

// TestDetectIdenticalValues tests that equal records never conflict.
func TestDetectIdenticalValues(t *testing.T) {
	r := NewResolver(Config{})

	local := versioned(5000, map[string]interface{}{"status": "occupied"})
	remote := versioned(5000, map[string]interface{}{"status": "occupied"})

	if c := r.Detect(models.TableTables, "k1", local, remote); c != nil {
		t.Errorf("Expected no conflict for identical records, got %+v", c)
	}
}

// TestDetectWithinTolerance tests that near-simultaneous divergence is
// treated as the same logical write.
func TestDetectWithinTolerance(t *testing.T) {
	r := NewResolver(Config{})

	local := versioned(5000, map[string]interface{}{"status": "occupied"})
	remote := versioned(5800, map[string]interface{}{"status": "cleaning"})

	if c := r.Detect(models.TableTables, "k1", local, remote); c != nil {
		t.Errorf("Expected no conflict within the tolerance window, got %+v", c)
	}
}

// TestDetectOutsideTolerance tests that divergence past the window is
// registered as a pending conflict.
func TestDetectOutsideTolerance(t *testing.T) {
	r := NewResolver(Config{})

	local := versioned(5000, map[string]interface{}{"status": "occupied"})
	remote := versioned(10000, map[string]interface{}{"status": "cleaning"})

	c := r.Detect(models.TableTables, "k1", local, remote)
	if c == nil {
		t.Fatal("Expected a conflict for a 5s divergence")
	}
	if c.Status != StatusPending {
		t.Errorf("Expected pending status, got %s", c.Status)
	}
	if c.Table != models.TableTables || c.Key != "k1" {
		t.Errorf("Unexpected conflict identity: %s/%s", c.Table, c.Key)
	}
}

// TestDetectCopiesVersions tests that the stored conflict is isolated
// from later mutation of the inputs.
func TestDetectCopiesVersions(t *testing.T) {
	r := NewResolver(Config{})

	local := versioned(5000, map[string]interface{}{"status": "occupied"})
	remote := versioned(10000, map[string]interface{}{"status": "cleaning"})
	c := r.Detect(models.TableTables, "k1", local, remote)

	local["status"] = "mutated"

	if c.Local["status"] != "occupied" {
		t.Errorf("Expected stored local snapshot, got %v", c.Local["status"])
	}
}

// TestResolveChoices tests local, remote, and caller-supplied merge.
func TestResolveChoices(t *testing.T) {
	local := versioned(5000, map[string]interface{}{"status": "occupied"})
	remote := versioned(10000, map[string]interface{}{"status": "cleaning"})

	t.Run("local", func(t *testing.T) {
		r := NewResolver(Config{})
		c := r.Detect(models.TableTables, "k1", local, remote)

		resolved, err := r.Resolve(c.ID, ChoiceLocal, nil)
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if resolved["status"] != "occupied" {
			t.Errorf("Expected local value, got %v", resolved["status"])
		}
	})

	t.Run("remote", func(t *testing.T) {
		r := NewResolver(Config{})
		c := r.Detect(models.TableTables, "k1", local, remote)

		resolved, err := r.Resolve(c.ID, ChoiceRemote, nil)
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if resolved["status"] != "cleaning" {
			t.Errorf("Expected remote value, got %v", resolved["status"])
		}
	})

	t.Run("explicit merge", func(t *testing.T) {
		r := NewResolver(Config{})
		c := r.Detect(models.TableTables, "k1", local, remote)

		merged := versioned(10000, map[string]interface{}{"status": "reserved"})
		resolved, err := r.Resolve(c.ID, ChoiceMerge, merged)
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if resolved["status"] != "reserved" {
			t.Errorf("Expected supplied merge value, got %v", resolved["status"])
		}
	})
}

// TestAutoMerge tests the remote-base merge with the local allow-list
// overlay and the newer timestamp.
func TestAutoMerge(t *testing.T) {
	r := NewResolver(Config{})

	local := versioned(20000, map[string]interface{}{
		"status":              "preparing",
		"assignedStaff":       "dana",
		"specialInstructions": "no onions",
	})
	remote := versioned(10000, map[string]interface{}{
		"status": "ready",
		"total":  42.0,
	})

	c := r.Detect(models.TableOrders, "k1", local, remote)
	resolved, err := r.Resolve(c.ID, ChoiceMerge, nil)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if resolved["status"] != "ready" {
		t.Errorf("Expected remote base status, got %v", resolved["status"])
	}
	if resolved["total"] != 42.0 {
		t.Errorf("Expected remote total, got %v", resolved["total"])
	}
	if resolved["assignedStaff"] != "dana" {
		t.Errorf("Expected local assignedStaff, got %v", resolved["assignedStaff"])
	}
	if resolved["specialInstructions"] != "no onions" {
		t.Errorf("Expected local specialInstructions, got %v", resolved["specialInstructions"])
	}
	if resolved.UpdatedAt() != 20000 {
		t.Errorf("Expected newer timestamp 20000, got %d", resolved.UpdatedAt())
	}
}

// TestConfiguredLocalFields tests a custom merge allow-list.
func TestConfiguredLocalFields(t *testing.T) {
	r := NewResolver(Config{LocalFields: []string{"notes"}})

	local := versioned(20000, map[string]interface{}{
		"notes":         "window seat",
		"assignedStaff": "dana",
	})
	remote := versioned(10000, map[string]interface{}{"status": "ready"})

	c := r.Detect(models.TableOrders, "k1", local, remote)
	resolved, err := r.Resolve(c.ID, ChoiceMerge, nil)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if resolved["notes"] != "window seat" {
		t.Errorf("Expected allow-listed field, got %v", resolved["notes"])
	}
	if _, ok := resolved["assignedStaff"]; ok {
		t.Error("Expected non-listed local field to be dropped")
	}
}

// TestResolveTwice tests double resolution and unknown ids.
func TestResolveTwice(t *testing.T) {
	r := NewResolver(Config{})

	local := versioned(5000, map[string]interface{}{"status": "occupied"})
	remote := versioned(10000, map[string]interface{}{"status": "cleaning"})
	c := r.Detect(models.TableTables, "k1", local, remote)

	if _, err := r.Resolve(c.ID, ChoiceLocal, nil); err != nil {
		t.Fatalf("First resolve failed: %v", err)
	}
	if _, err := r.Resolve(c.ID, ChoiceRemote, nil); !apperrors.Is(err, apperrors.ErrConflictResolved) {
		t.Errorf("Expected CONFLICT_RESOLVED, got %v", err)
	}
	if _, err := r.Resolve("nope", ChoiceLocal, nil); !apperrors.Is(err, apperrors.ErrConflictNotFound) {
		t.Errorf("Expected CONFLICT_NOT_FOUND, got %v", err)
	}
}

// TestIgnore tests dismissing a conflict without resolving it.
func TestIgnore(t *testing.T) {
	r := NewResolver(Config{})

	local := versioned(5000, map[string]interface{}{"status": "occupied"})
	remote := versioned(10000, map[string]interface{}{"status": "cleaning"})
	c := r.Detect(models.TableTables, "k1", local, remote)

	if err := r.Ignore(c.ID); err != nil {
		t.Fatalf("Ignore failed: %v", err)
	}
	if len(r.Pending()) != 0 {
		t.Error("Expected no pending conflicts after ignore")
	}
	if err := r.Ignore(c.ID); !apperrors.Is(err, apperrors.ErrConflictResolved) {
		t.Errorf("Expected CONFLICT_RESOLVED on double ignore, got %v", err)
	}
}

// TestPendingOrder tests newest-first listing of open conflicts.
func TestPendingOrder(t *testing.T) {
	r := NewResolver(Config{})

	first := r.Detect(models.TableTables, "a",
		versioned(5000, map[string]interface{}{"v": 1.0}),
		versioned(10000, map[string]interface{}{"v": 2.0}))
	second := r.Detect(models.TableTables, "b",
		versioned(5000, map[string]interface{}{"v": 3.0}),
		versioned(10000, map[string]interface{}{"v": 4.0}))

	pending := r.Pending()
	if len(pending) != 2 {
		t.Fatalf("Expected 2 pending conflicts, got %d", len(pending))
	}
	if pending[0].ID != second.ID || pending[1].ID != first.ID {
		t.Error("Expected newest-first ordering")
	}
}

// TestPurgeResolved tests removing settled conflicts.
func TestPurgeResolved(t *testing.T) {
	r := NewResolver(Config{})

	a := r.Detect(models.TableTables, "a",
		versioned(5000, map[string]interface{}{"v": 1.0}),
		versioned(10000, map[string]interface{}{"v": 2.0}))
	b := r.Detect(models.TableTables, "b",
		versioned(5000, map[string]interface{}{"v": 3.0}),
		versioned(10000, map[string]interface{}{"v": 4.0}))

	r.Resolve(a.ID, ChoiceLocal, nil)
	r.Ignore(b.ID)

	if removed := r.PurgeResolved(); removed != 2 {
		t.Errorf("Expected 2 purged conflicts, got %d", removed)
	}
	if removed := r.PurgeResolved(); removed != 0 {
		t.Errorf("Expected nothing left to purge, got %d", removed)
	}
}

// TestCustomTolerance tests widening the detection window.
func TestCustomTolerance(t *testing.T) {
	r := NewResolver(Config{Tolerance: 10 * time.Second})

	local := versioned(5000, map[string]interface{}{"status": "occupied"})
	remote := versioned(10000, map[string]interface{}{"status": "cleaning"})

	if c := r.Detect(models.TableTables, "k1", local, remote); c != nil {
		t.Errorf("Expected no conflict within the widened window, got %+v", c)
	}
}
