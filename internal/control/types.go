// Package control implements the control channel (spec §4.4): the tagged
// JSON request/response protocol carried over the ".api_handle" virtual
// file, and the per-open-handle response buffering that lets a client
// write a request and read back its response on the same handle.
package control

import (
	"encoding/json"
	"fmt"

	"github.com/jra3/itemfs/internal/store"
)

// Request type tags, matching the control channel's {"type": "...",
// "data": {...}} envelope.
const (
	TypeCreateItem             = "create_item"
	TypeCreateRelationship     = "create_relationship"
	TypeCreateItemRelationship = "create_item_relationship"
	TypeCreateFilter           = "create_filter"
)

// Envelope is the outer tagged-union shape every request and response is
// wrapped in.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// CreateItemRequest creates a new item.
type CreateItemRequest struct {
	Name string `json:"name"`
}

// CreateItemResponse carries the mount-relative path of the new item.
type CreateItemResponse struct {
	Path string `json:"path"`
}

// CreateRelationshipRequest creates a new relationship type.
type CreateRelationshipRequest struct {
	FromName string `json:"from_name"`
	ToName   string `json:"to_name"`
}

// CreateRelationshipResponse carries the mount-relative path of the new
// relationship.
type CreateRelationshipResponse struct {
	Path string `json:"path"`
}

// CreateItemRelationshipRequest links two existing items by an existing
// relationship type. It produces no response body.
type CreateItemRelationshipRequest struct {
	RelationshipID int64 `json:"relationship_id"`
	FromID         int64 `json:"from_id"`
	ToID           int64 `json:"to_id"`
}

// ConditionWire is the wire representation of a store.Condition.
type ConditionWire struct {
	Type           string `json:"type"`
	Side           string `json:"side"`
	RelationshipID int64  `json:"relationship_id"`
	ItemID         *int64 `json:"item_id,omitempty"`
}

const (
	conditionTypeNoRelationship                 = "no_relationship"
	conditionTypeHasRelationshipWithVariableItem = "has_relationship_with_variable_item"
	conditionTypeNoRelationshipWithSpecificItem  = "no_relationship_with_specific_item"
)

// ToCondition decodes a wire condition into a store.Condition.
func (c ConditionWire) ToCondition() (store.Condition, error) {
	side, err := store.ParseSide(c.Side)
	if err != nil {
		return store.Condition{}, err
	}
	rel := store.RelationshipID(c.RelationshipID)

	switch c.Type {
	case conditionTypeNoRelationship:
		return store.CondNoRelationship(side, rel), nil
	case conditionTypeHasRelationshipWithVariableItem:
		return store.CondHasRelationshipWithVariableItem(side, rel), nil
	case conditionTypeNoRelationshipWithSpecificItem:
		if c.ItemID == nil {
			return store.Condition{}, fmt.Errorf("condition %q requires item_id", c.Type)
		}
		return store.CondNoRelationshipWithSpecificItem(store.ItemID(*c.ItemID), side, rel), nil
	default:
		return store.Condition{}, fmt.Errorf("unknown condition type %q", c.Type)
	}
}

// CreateFilterRequest creates a root filter named Name from the conjunction
// of Filters. It produces no response body.
type CreateFilterRequest struct {
	Name    string          `json:"name"`
	Filters []ConditionWire `json:"filters"`
}
