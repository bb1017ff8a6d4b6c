// Package hub provides unit tests for the subscription hub.
package hub

import (
	"testing"

	"github.com/tablewise/poscore/internal/models"
)

// TestNotifyInRegistrationOrder tests callback ordering and payload.
func TestNotifyInRegistrationOrder(t *testing.T) {
	h := New()

	var calls []string
	h.Subscribe(models.TableOrders, func(records []models.Record) {
		calls = append(calls, "first")
		if len(records) != 1 {
			t.Errorf("Expected 1 record, got %d", len(records))
		}
	})
	h.Subscribe(models.TableOrders, func(records []models.Record) {
		calls = append(calls, "second")
	})

	h.Notify(models.TableOrders, []models.Record{{"id": "k1"}})

	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
		t.Errorf("Expected [first second], got %v", calls)
	}
}

// TestNotifyIsPerTable tests that other tables' subscribers stay quiet.
func TestNotifyIsPerTable(t *testing.T) {
	h := New()

	called := false
	h.Subscribe(models.TableMenuItems, func([]models.Record) { called = true })

	h.Notify(models.TableOrders, nil)

	if called {
		t.Error("Expected menuItems subscriber to stay quiet on orders")
	}
}

// TestClosuresFromOneLiteral tests that closures created from the same
// function literal are independent registrations: each captures its own
// state and each must be notified.
func TestClosuresFromOneLiteral(t *testing.T) {
	h := New()

	calls := make([]int, 2)
	for i := 0; i < 2; i++ {
		i := i
		h.Subscribe(models.TableOrders, func([]models.Record) {
			calls[i]++
		})
	}

	if h.Count(models.TableOrders) != 2 {
		t.Fatalf("Expected 2 subscribers, got %d", h.Count(models.TableOrders))
	}

	h.Notify(models.TableOrders, nil)

	if calls[0] != 1 || calls[1] != 1 {
		t.Errorf("Expected both subscribers invoked once, got %v", calls)
	}
}

// TestRepeatedSubscribeIsDistinct tests that registering the same
// callback value twice yields two registrations, each with its own
// unsubscribe handle.
func TestRepeatedSubscribeIsDistinct(t *testing.T) {
	h := New()

	count := 0
	cb := func([]models.Record) { count++ }

	h.Subscribe(models.TableOrders, cb)
	second := h.Subscribe(models.TableOrders, cb)

	if h.Count(models.TableOrders) != 2 {
		t.Fatalf("Expected 2 subscribers, got %d", h.Count(models.TableOrders))
	}

	h.Notify(models.TableOrders, nil)
	if count != 2 {
		t.Errorf("Expected 2 invocations, got %d", count)
	}

	second()
	h.Notify(models.TableOrders, nil)
	if count != 3 {
		t.Errorf("Expected only the first registration to remain, got %d total invocations", count)
	}
}

// TestUnsubscribeIsIdempotent tests calling the unsubscribe closure
// more than once.
func TestUnsubscribeIsIdempotent(t *testing.T) {
	h := New()

	count := 0
	unsubscribe := h.Subscribe(models.TableOrders, func([]models.Record) { count++ })

	unsubscribe()
	unsubscribe()

	h.Notify(models.TableOrders, nil)

	if count != 0 {
		t.Errorf("Expected no invocations after unsubscribe, got %d", count)
	}
	if h.Count(models.TableOrders) != 0 {
		t.Errorf("Expected 0 subscribers, got %d", h.Count(models.TableOrders))
	}
}

// TestResubscribeAfterUnsubscribe tests that an unsubscribed callback
// can register again.
func TestResubscribeAfterUnsubscribe(t *testing.T) {
	h := New()

	count := 0
	cb := func([]models.Record) { count++ }

	unsubscribe := h.Subscribe(models.TableOrders, cb)
	unsubscribe()
	h.Subscribe(models.TableOrders, cb)

	h.Notify(models.TableOrders, nil)

	if count != 1 {
		t.Errorf("Expected 1 invocation after resubscribe, got %d", count)
	}
}

// TestUnsubscribeFromCallback tests deactivating a later subscriber
// during the notification that would have reached it.
func TestUnsubscribeFromCallback(t *testing.T) {
	h := New()

	secondCalls := 0
	var unsubscribeSecond func()

	h.Subscribe(models.TableOrders, func([]models.Record) {
		unsubscribeSecond()
	})
	unsubscribeSecond = h.Subscribe(models.TableOrders, func([]models.Record) {
		secondCalls++
	})

	h.Notify(models.TableOrders, nil)

	if secondCalls != 0 {
		t.Errorf("Expected the unsubscribed callback to be skipped, got %d calls", secondCalls)
	}
}

// TestPanicIsolation tests that one panicking callback does not stop
// the rest.
func TestPanicIsolation(t *testing.T) {
	h := New()

	h.Subscribe(models.TableOrders, func([]models.Record) {
		panic("boom")
	})

	survived := false
	h.Subscribe(models.TableOrders, func([]models.Record) {
		survived = true
	})

	h.Notify(models.TableOrders, nil)

	if !survived {
		t.Error("Expected the second callback to run despite the panic")
	}
}
