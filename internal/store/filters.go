package store

import "database/sql"

// AddRootFilter creates a condition set and registers it as a root filter:
// a named view mounted directly under the filesystem root, listing every
// item that satisfies rules.
func (s *Store) AddRootFilter(name string, rules []Condition) (ConditionSetID, error) {
	var id ConditionSetID
	err := s.withTx(func(tx *sql.Tx) error {
		setID, err := insertConditionSet(tx, name, rules)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`INSERT INTO root_filters(id) VALUES (?)`, setID); err != nil {
			return wrapTx("insert root filter", err)
		}
		id = setID
		return nil
	})
	return id, err
}

// AddItemFilter creates two condition sets, context and filter, and
// registers them as a paired item filter: inside any item I matching
// context, a view named name lists every item matching filter relative to
// I.
func (s *Store) AddItemFilter(name string, contextRules, filterRules []Condition) (ItemFilter, error) {
	var out ItemFilter
	err := s.withTx(func(tx *sql.Tx) error {
		contextID, err := insertConditionSet(tx, name, contextRules)
		if err != nil {
			return err
		}
		filterID, err := insertConditionSet(tx, name, filterRules)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`INSERT INTO item_filters(condition, filter) VALUES (?, ?)`, contextID, filterID); err != nil {
			return wrapTx("insert item filter", err)
		}
		out = ItemFilter{Name: name, Context: contextID, Filter: filterID}
		return nil
	})
	return out, err
}

// GetConditionSets loads every condition set in the store.
func (s *Store) GetConditionSets() ([]ConditionSet, error) {
	rows, err := s.db.Query(`SELECT id FROM condition_sets`)
	if err != nil {
		return nil, err
	}
	var ids []ConditionSetID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, ConditionSetID(id))
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]ConditionSet, 0, len(ids))
	for _, id := range ids {
		set, err := s.loadConditionSet(id)
		if err != nil {
			return nil, err
		}
		out = append(out, set)
	}
	return out, nil
}

// GetRootFilters loads every condition set registered as a root filter.
func (s *Store) GetRootFilters() ([]ConditionSet, error) {
	rows, err := s.db.Query(`SELECT id FROM root_filters`)
	if err != nil {
		return nil, err
	}
	var ids []ConditionSetID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, ConditionSetID(id))
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]ConditionSet, 0, len(ids))
	for _, id := range ids {
		set, err := s.loadConditionSet(id)
		if err != nil {
			return nil, err
		}
		out = append(out, set)
	}
	return out, nil
}

// GetItemFilters loads every registered item filter, with both its context
// and filter condition sets resolved by id — not, as a superficial reading
// of the name columns might suggest, by name.
func (s *Store) GetItemFilters() ([]ItemFilter, error) {
	rows, err := s.db.Query(`SELECT condition, filter FROM item_filters`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ItemFilter
	for rows.Next() {
		var contextID, filterID int64
		if err := rows.Scan(&contextID, &filterID); err != nil {
			return nil, err
		}
		contextSet, err := s.loadConditionSet(ConditionSetID(contextID))
		if err != nil {
			return nil, err
		}
		out = append(out, ItemFilter{
			Name:    contextSet.Name,
			Context: ConditionSetID(contextID),
			Filter:  ConditionSetID(filterID),
		})
	}
	return out, rows.Err()
}

// RunRootFilter returns every item matching a root filter's condition set.
// Root filters evaluate with no context item; HasRelationshipWithVariableItem
// rules are not expected to appear in a root filter's rule set.
func (s *Store) RunRootFilter(id ConditionSetID) ([]ItemID, error) {
	set, err := s.loadConditionSet(id)
	if err != nil {
		return nil, err
	}
	return s.evaluateConditionSet(set, 0)
}

// RunItemFilter returns the children an item filter produces when viewed
// from inside contextItem: first contextItem must satisfy the filter's
// context condition set, then the result is every item satisfying the
// filter condition set with contextItem bound as the variable item.
func (s *Store) RunItemFilter(filter ItemFilter, contextItem ItemID) ([]ItemID, error) {
	contextSet, err := s.loadConditionSet(filter.Context)
	if err != nil {
		return nil, err
	}
	matches, err := s.evaluateConditionSet(contextSet, contextItem)
	if err != nil {
		return nil, err
	}
	if !containsItemID(matches, contextItem) {
		return nil, nil
	}

	filterSet, err := s.loadConditionSet(filter.Filter)
	if err != nil {
		return nil, err
	}
	return s.evaluateConditionSet(filterSet, contextItem)
}

func containsItemID(ids []ItemID, target ItemID) bool {
	for _, id := range ids {
		if id == target {
			return true
		}
	}
	return false
}
