package engine

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jra3/itemfs/internal/control"
)

func openTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := Open(t.TempDir(), "")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func TestDispatchCreatesItem(t *testing.T) {
	e := openTestEngine(t)

	payload, _ := json.Marshal(control.CreateItemRequest{Name: "widget"})
	body, _ := json.Marshal(control.Envelope{Type: control.TypeCreateItem, Data: payload})

	resp, err := e.Dispatch(body)
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if resp == nil {
		t.Fatal("expected a response for create_item")
	}

	items, err := e.Store().GetItems()
	if err != nil {
		t.Fatalf("GetItems failed: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("expected 1 item, got %d", len(items))
	}
}

func TestLockSerializesConcurrentCallers(t *testing.T) {
	e := openTestEngine(t)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var order []int
	var active atomic.Int32
	var overlapped atomic.Bool

	for i := 0; i < 10; i++ {
		wg.Add(1)
		i := i
		go func() {
			defer wg.Done()
			e.Lock(func() error {
				if active.Add(1) > 1 {
					overlapped.Store(true)
				}
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				active.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()

	if len(order) != 10 {
		t.Errorf("expected 10 recorded entries, got %d", len(order))
	}
	if overlapped.Load() {
		t.Error("two callers ran inside Lock at the same time")
	}
}
