package store

import (
	"database/sql"
	"fmt"
)

// itemRelationshipsFor loads every item_relationships row touching id,
// translated into the item's own-side view: a row with from_id = id gives
// Side=Source and Sibling=to_id; a row with to_id = id gives Side=Dest and
// Sibling=from_id.
func (s *Store) itemRelationshipsFor(id ItemID) ([]ItemRelationship, error) {
	rows, err := s.db.Query(
		`SELECT relationship_id, from_id, to_id FROM item_relationships WHERE from_id = ? OR to_id = ?`,
		id, id,
	)
	if err != nil {
		return nil, fmt.Errorf("list item relationships for %d: %w", id, err)
	}
	defer rows.Close()

	var out []ItemRelationship
	for rows.Next() {
		var relID, fromID, toID int64
		if err := rows.Scan(&relID, &fromID, &toID); err != nil {
			return nil, fmt.Errorf("scan item relationship row: %w", err)
		}
		if ItemID(fromID) == id {
			out = append(out, ItemRelationship{RelationshipID: RelationshipID(relID), Side: Source, Sibling: ItemID(toID)})
		}
		if ItemID(toID) == id {
			out = append(out, ItemRelationship{RelationshipID: RelationshipID(relID), Side: Dest, Sibling: ItemID(fromID)})
		}
	}
	return out, rows.Err()
}

// AddItemRelationship links from and to by relationship rel. from sits on
// the Source side, to on the Dest side, matching the original's
// add_item_relationship(relationship_id, from, to).
func (s *Store) AddItemRelationship(rel RelationshipID, from, to ItemID) error {
	return s.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO item_relationships(from_id, to_id, relationship_id) VALUES (?, ?, ?)`,
			from, to, rel,
		)
		if err != nil {
			return wrapTx("insert item relationship", err)
		}
		return nil
	})
}

// GetSiblingID resolves the single symlink name name to an item on the
// other side of rel/side from item, mirroring the original's
// get_sibling_id(item, side, relationship_id, name). It panics only when
// two distinct siblings share name on the same side of the same
// relationship from item. Neither CreateItem nor AddItemRelationship
// rejects such a pair; the panic treats the duplicate as store corruption
// rather than as a caller error.
func (s *Store) GetSiblingID(item ItemID, side Side, rel RelationshipID, name string) (ItemID, bool, error) {
	var query string
	switch side {
	case Source:
		// item occupies the Source side; the sibling is on the Dest side.
		query = `SELECT f.id FROM item_relationships ir JOIN files f ON f.id = ir.to_id
			WHERE ir.from_id = ? AND ir.relationship_id = ? AND f.name = ?`
	case Dest:
		query = `SELECT f.id FROM item_relationships ir JOIN files f ON f.id = ir.from_id
			WHERE ir.to_id = ? AND ir.relationship_id = ? AND f.name = ?`
	default:
		return 0, false, fmt.Errorf("invalid side %v", side)
	}

	rows, err := s.db.Query(query, item, rel, name)
	if err != nil {
		return 0, false, fmt.Errorf("query sibling: %w", err)
	}
	defer rows.Close()

	var siblings []ItemID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return 0, false, fmt.Errorf("scan sibling row: %w", err)
		}
		siblings = append(siblings, ItemID(id))
	}
	if err := rows.Err(); err != nil {
		return 0, false, err
	}

	switch len(siblings) {
	case 0:
		return 0, false, nil
	case 1:
		return siblings[0], true, nil
	default:
		panic("get sibling id: two siblings share the same name on the same relationship side")
	}
}
