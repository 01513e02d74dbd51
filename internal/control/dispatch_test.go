package control

import (
	"encoding/json"
	"testing"

	"github.com/jra3/itemfs/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func encodeRequest(t *testing.T, reqType string, data any) []byte {
	t.Helper()
	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal request data: %v", err)
	}
	body, err := json.Marshal(Envelope{Type: reqType, Data: payload})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return body
}

func TestDispatchCreateItem(t *testing.T) {
	s := openTestStore(t)

	body := encodeRequest(t, TypeCreateItem, CreateItemRequest{Name: "widget"})
	resp, err := Dispatch(s, body)
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	var env Envelope
	if err := json.Unmarshal(resp, &env); err != nil {
		t.Fatalf("unmarshal response envelope: %v", err)
	}
	if env.Type != TypeCreateItem {
		t.Errorf("response type = %q, want %q", env.Type, TypeCreateItem)
	}

	var createResp CreateItemResponse
	if err := json.Unmarshal(env.Data, &createResp); err != nil {
		t.Fatalf("unmarshal response data: %v", err)
	}
	if createResp.Path != "/items/1" {
		t.Errorf("path = %q, want /items/1", createResp.Path)
	}

	items, err := s.GetItems()
	if err != nil {
		t.Fatalf("GetItems failed: %v", err)
	}
	if len(items) != 1 || items[0].Name != "widget" {
		t.Errorf("items = %+v, want one item named widget", items)
	}
}

func TestDispatchCreateRelationship(t *testing.T) {
	s := openTestStore(t)

	body := encodeRequest(t, TypeCreateRelationship, CreateRelationshipRequest{FromName: "parent", ToName: "child"})
	resp, err := Dispatch(s, body)
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	var env Envelope
	if err := json.Unmarshal(resp, &env); err != nil {
		t.Fatalf("unmarshal response envelope: %v", err)
	}
	var createResp CreateRelationshipResponse
	if err := json.Unmarshal(env.Data, &createResp); err != nil {
		t.Fatalf("unmarshal response data: %v", err)
	}
	if createResp.Path != "/relationships/1" {
		t.Errorf("path = %q, want /relationships/1", createResp.Path)
	}
}

func TestDispatchCreateRelationshipCollisionFails(t *testing.T) {
	s := openTestStore(t)

	if _, err := Dispatch(s, encodeRequest(t, TypeCreateRelationship, CreateRelationshipRequest{FromName: "parent", ToName: "child"})); err != nil {
		t.Fatalf("first Dispatch failed: %v", err)
	}

	_, err := Dispatch(s, encodeRequest(t, TypeCreateRelationship, CreateRelationshipRequest{FromName: "parent", ToName: "sibling"}))
	if err == nil {
		t.Fatal("expected error from colliding relationship name, got nil")
	}
}

func TestDispatchCreateItemRelationshipProducesNoResponse(t *testing.T) {
	s := openTestStore(t)

	from, err := s.CreateItem("a")
	if err != nil {
		t.Fatalf("CreateItem failed: %v", err)
	}
	to, err := s.CreateItem("b")
	if err != nil {
		t.Fatalf("CreateItem failed: %v", err)
	}
	rel, err := s.AddRelationship("parent", "child")
	if err != nil {
		t.Fatalf("AddRelationship failed: %v", err)
	}

	body := encodeRequest(t, TypeCreateItemRelationship, CreateItemRelationshipRequest{
		RelationshipID: int64(rel),
		FromID:         int64(from),
		ToID:           int64(to),
	})
	resp, err := Dispatch(s, body)
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if resp != nil {
		t.Errorf("expected nil response, got %q", resp)
	}

	item, err := s.GetItemByID(from)
	if err != nil {
		t.Fatalf("GetItemByID failed: %v", err)
	}
	if len(item.Relationships) != 1 {
		t.Errorf("expected item relationship to be recorded, got %+v", item.Relationships)
	}
}

func TestDispatchCreateFilterProducesNoResponse(t *testing.T) {
	s := openTestStore(t)

	rel, err := s.AddRelationship("parent", "child")
	if err != nil {
		t.Fatalf("AddRelationship failed: %v", err)
	}

	body := encodeRequest(t, TypeCreateFilter, CreateFilterRequest{
		Name: "orphans",
		Filters: []ConditionWire{
			{Type: conditionTypeNoRelationship, Side: "dest", RelationshipID: int64(rel)},
		},
	})
	resp, err := Dispatch(s, body)
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if resp != nil {
		t.Errorf("expected nil response, got %q", resp)
	}

	filters, err := s.GetRootFilters()
	if err != nil {
		t.Fatalf("GetRootFilters failed: %v", err)
	}
	if len(filters) != 1 || filters[0].Name != "orphans" {
		t.Errorf("filters = %+v, want one filter named orphans", filters)
	}
}

func TestDispatchUnknownTypeFails(t *testing.T) {
	s := openTestStore(t)

	_, err := Dispatch(s, encodeRequest(t, "not_a_real_type", struct{}{}))
	if err == nil {
		t.Fatal("expected error for unknown request type, got nil")
	}
}

func TestHandlesWriteThenReadOrdering(t *testing.T) {
	h := NewHandles()

	id := h.Open()
	h.SetResponse(id, []byte(`{"type":"create_item","data":{"path":"/items/1"}}`))

	got := h.Read(id)
	if string(got) != `{"type":"create_item","data":{"path":"/items/1"}}` {
		t.Errorf("Read returned %q", got)
	}

	// A second read without an intervening write sees an empty buffer.
	if got := h.Read(id); got != nil {
		t.Errorf("expected empty buffer after drain, got %q", got)
	}
}

func TestHandlesIndependentAcrossOpens(t *testing.T) {
	h := NewHandles()

	a := h.Open()
	b := h.Open()
	if a == b {
		t.Fatal("expected distinct handle ids")
	}

	h.SetResponse(a, []byte("for-a"))
	if got := h.Read(b); got != nil {
		t.Errorf("handle b should not see handle a's response, got %q", got)
	}
	if got := h.Read(a); string(got) != "for-a" {
		t.Errorf("handle a response = %q, want for-a", got)
	}
}
