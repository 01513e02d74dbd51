package control

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"

	"github.com/google/uuid"
	"github.com/jra3/itemfs/internal/store"
)

// Dispatch decodes a single request envelope, applies it to s, and returns
// the raw bytes to enqueue into the handle's response buffer — nil for
// request types that produce no response (spec §4.4).
//
// Each call is tagged with a short correlation id purely for the log line;
// it never leaves this function.
func Dispatch(s *store.Store, body []byte) ([]byte, error) {
	reqID := uuid.NewString()[:8]

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode request envelope: %w", err)
	}

	log.Printf("[control %s] %s", reqID, env.Type)

	switch env.Type {
	case TypeCreateItem:
		return dispatchCreateItem(s, env.Data)
	case TypeCreateRelationship:
		return dispatchCreateRelationship(s, env.Data)
	case TypeCreateItemRelationship:
		return nil, dispatchCreateItemRelationship(s, env.Data)
	case TypeCreateFilter:
		return nil, dispatchCreateFilter(s, env.Data)
	default:
		return nil, fmt.Errorf("unknown request type %q", env.Type)
	}
}

func dispatchCreateItem(s *store.Store, data json.RawMessage) ([]byte, error) {
	var req CreateItemRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("decode create_item request: %w", err)
	}

	id, err := s.CreateItem(req.Name)
	if err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}

	return encodeResponse(TypeCreateItem, CreateItemResponse{Path: "/items/" + strconv.FormatInt(int64(id), 10)})
}

func dispatchCreateRelationship(s *store.Store, data json.RawMessage) ([]byte, error) {
	var req CreateRelationshipRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("decode create_relationship request: %w", err)
	}

	id, err := s.AddRelationship(req.FromName, req.ToName)
	if err != nil {
		return nil, fmt.Errorf("create relationship: %w", err)
	}

	return encodeResponse(TypeCreateRelationship, CreateRelationshipResponse{Path: "/relationships/" + strconv.FormatInt(int64(id), 10)})
}

func dispatchCreateItemRelationship(s *store.Store, data json.RawMessage) error {
	var req CreateItemRelationshipRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("decode create_item_relationship request: %w", err)
	}

	err := s.AddItemRelationship(
		store.RelationshipID(req.RelationshipID),
		store.ItemID(req.FromID),
		store.ItemID(req.ToID),
	)
	if err != nil {
		return fmt.Errorf("create item relationship: %w", err)
	}
	return nil
}

func dispatchCreateFilter(s *store.Store, data json.RawMessage) error {
	var req CreateFilterRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("decode create_filter request: %w", err)
	}

	conditions := make([]store.Condition, 0, len(req.Filters))
	for _, wire := range req.Filters {
		cond, err := wire.ToCondition()
		if err != nil {
			return fmt.Errorf("decode condition: %w", err)
		}
		conditions = append(conditions, cond)
	}

	if _, err := s.AddRootFilter(req.Name, conditions); err != nil {
		return fmt.Errorf("create filter: %w", err)
	}
	return nil
}

func encodeResponse(responseType string, data any) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s response: %w", responseType, err)
	}
	return json.Marshal(Envelope{Type: responseType, Data: payload})
}
