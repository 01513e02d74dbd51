package store

import (
	"database/sql"
	"fmt"
	"strings"
)

// buildConditionSQL renders a single condition into a boolean SQL fragment
// over the files row aliased "f", plus the bound arguments the fragment's
// placeholders consume, in order.
//
// The original's ConditionSqlGenerator interpolates relationship and item
// ids directly into the SQL string it builds. Every id here is instead
// passed as a bound parameter: ids ultimately trace back to control-channel
// request bodies, and string interpolation of user-supplied numbers into
// SQL is the kind of thing that stops being safe the moment the wire format
// changes.
func buildConditionSQL(c Condition, contextItem ItemID) (string, []any) {
	switch c.Kind {
	case NoRelationship:
		col := sideColumn(c.Side)
		return fmt.Sprintf(
			`NOT EXISTS (SELECT 1 FROM item_relationships WHERE %s = f.id AND relationship_id = ?)`,
			col,
		), []any{c.RelationshipID}

	case HasRelationshipWithVariableItem:
		col, otherCol := sideColumn(c.Side), sideColumn(c.Side.other())
		return fmt.Sprintf(
			`EXISTS (SELECT 1 FROM item_relationships WHERE %s = f.id AND relationship_id = ? AND %s = ?)`,
			col, otherCol,
		), []any{c.RelationshipID, contextItem}

	case NoRelationshipWithSpecificItem:
		col, otherCol := sideColumn(c.Side), sideColumn(c.Side.other())
		return fmt.Sprintf(
			`NOT EXISTS (SELECT 1 FROM item_relationships WHERE %s = f.id AND relationship_id = ? AND %s = ?)`,
			col, otherCol,
		), []any{c.RelationshipID, c.ItemID}

	default:
		panic(fmt.Sprintf("unknown condition kind %d", c.Kind))
	}
}

func sideColumn(s Side) string {
	switch s {
	case Source:
		return "from_id"
	case Dest:
		return "to_id"
	default:
		panic(fmt.Sprintf("invalid side %d", int(s)))
	}
}

func (s Side) other() Side {
	if s == Source {
		return Dest
	}
	return Source
}

// evaluateConditionSet returns the ids of every item satisfying every rule
// in set, ANDed together, with HasRelationshipWithVariableItem rules bound
// to contextItem. An empty rule set matches every item, mirroring a filter
// with zero conditions passing everything through.
func (s *Store) evaluateConditionSet(set ConditionSet, contextItem ItemID) ([]ItemID, error) {
	query := `SELECT f.id FROM files f`
	var args []any

	if len(set.Rules) > 0 {
		clauses := make([]string, len(set.Rules))
		for i, rule := range set.Rules {
			frag, fragArgs := buildConditionSQL(rule, contextItem)
			clauses[i] = frag
			args = append(args, fragArgs...)
		}
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("evaluate condition set %d: %w", set.ID, err)
	}
	defer rows.Close()

	var out []ItemID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan matched item row: %w", err)
		}
		out = append(out, ItemID(id))
	}
	return out, rows.Err()
}

// loadConditionSet reads a condition_sets row and every rule attached to it
// across the three condition tables, mirroring the original's
// get_condition_sets join.
func (s *Store) loadConditionSet(id ConditionSetID) (ConditionSet, error) {
	row := s.db.QueryRow(`SELECT id, name FROM condition_sets WHERE id = ?`, id)
	var set ConditionSet
	var rawID int64
	if err := row.Scan(&rawID, &set.Name); err != nil {
		return ConditionSet{}, fmt.Errorf("load condition set %d: %w", id, err)
	}
	set.ID = ConditionSetID(rawID)

	noRel, err := s.loadNoRelationshipConditions(id)
	if err != nil {
		return ConditionSet{}, err
	}
	hasVar, err := s.loadHasRelationshipWithVariableItemConditions(id)
	if err != nil {
		return ConditionSet{}, err
	}
	noSpecific, err := s.loadNoRelationshipWithSpecificItemConditions(id)
	if err != nil {
		return ConditionSet{}, err
	}

	set.Rules = append(set.Rules, noRel...)
	set.Rules = append(set.Rules, hasVar...)
	set.Rules = append(set.Rules, noSpecific...)
	return set, nil
}

func (s *Store) loadNoRelationshipConditions(setID ConditionSetID) ([]Condition, error) {
	rows, err := s.db.Query(
		`SELECT side, relationship_id FROM no_relationship_conditions WHERE condition_id = ?`, setID,
	)
	if err != nil {
		return nil, fmt.Errorf("load no-relationship conditions: %w", err)
	}
	defer rows.Close()

	var out []Condition
	for rows.Next() {
		var rawSide, relID int64
		if err := rows.Scan(&rawSide, &relID); err != nil {
			return nil, err
		}
		side, err := sideFromInt(rawSide)
		if err != nil {
			return nil, err
		}
		out = append(out, CondNoRelationship(side, RelationshipID(relID)))
	}
	return out, rows.Err()
}

func (s *Store) loadHasRelationshipWithVariableItemConditions(setID ConditionSetID) ([]Condition, error) {
	rows, err := s.db.Query(
		`SELECT side, relationship_id FROM has_relationship_with_variable_item_conditions WHERE condition_id = ?`, setID,
	)
	if err != nil {
		return nil, fmt.Errorf("load has-relationship-with-variable-item conditions: %w", err)
	}
	defer rows.Close()

	var out []Condition
	for rows.Next() {
		var rawSide, relID int64
		if err := rows.Scan(&rawSide, &relID); err != nil {
			return nil, err
		}
		side, err := sideFromInt(rawSide)
		if err != nil {
			return nil, err
		}
		out = append(out, CondHasRelationshipWithVariableItem(side, RelationshipID(relID)))
	}
	return out, rows.Err()
}

func (s *Store) loadNoRelationshipWithSpecificItemConditions(setID ConditionSetID) ([]Condition, error) {
	rows, err := s.db.Query(
		`SELECT item_id, side, relationship_id FROM no_relationship_with_specific_item_conditions WHERE condition_id = ?`, setID,
	)
	if err != nil {
		return nil, fmt.Errorf("load no-relationship-with-specific-item conditions: %w", err)
	}
	defer rows.Close()

	var out []Condition
	for rows.Next() {
		var itemID, rawSide, relID int64
		if err := rows.Scan(&itemID, &rawSide, &relID); err != nil {
			return nil, err
		}
		side, err := sideFromInt(rawSide)
		if err != nil {
			return nil, err
		}
		out = append(out, CondNoRelationshipWithSpecificItem(ItemID(itemID), side, RelationshipID(relID)))
	}
	return out, rows.Err()
}

// insertConditionSet creates a condition_sets row and its rules inside an
// existing transaction.
func insertConditionSet(tx *sql.Tx, name string, rules []Condition) (ConditionSetID, error) {
	res, err := tx.Exec(`INSERT INTO condition_sets(name) VALUES (?)`, name)
	if err != nil {
		return 0, wrapTx("insert condition set", err)
	}
	rawID, err := res.LastInsertId()
	if err != nil {
		return 0, wrapTx("read inserted condition set id", err)
	}
	setID := ConditionSetID(rawID)

	for _, rule := range rules {
		var err error
		switch rule.Kind {
		case NoRelationship:
			_, err = tx.Exec(
				`INSERT INTO no_relationship_conditions(condition_id, side, relationship_id) VALUES (?, ?, ?)`,
				setID, rule.Side.asInt(), rule.RelationshipID,
			)
		case HasRelationshipWithVariableItem:
			_, err = tx.Exec(
				`INSERT INTO has_relationship_with_variable_item_conditions(condition_id, side, relationship_id) VALUES (?, ?, ?)`,
				setID, rule.Side.asInt(), rule.RelationshipID,
			)
		case NoRelationshipWithSpecificItem:
			_, err = tx.Exec(
				`INSERT INTO no_relationship_with_specific_item_conditions(condition_id, item_id, side, relationship_id) VALUES (?, ?, ?, ?)`,
				setID, rule.ItemID, rule.Side.asInt(), rule.RelationshipID,
			)
		default:
			err = fmt.Errorf("unknown condition kind %d", rule.Kind)
		}
		if err != nil {
			return 0, wrapTx("insert condition rule", err)
		}
	}

	return setID, nil
}
