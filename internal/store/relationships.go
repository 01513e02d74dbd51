package store

import (
	"database/sql"
	"fmt"
)

// FindRelationship returns the relationship, if any, that already occupies
// one of from/to's four name slots (its own from/to against every existing
// relationship's from/to). It is a plain read outside any transaction,
// matching the original's non-transactional collision probe — safe only
// because the caller serializes all store mutations behind a single
// process-wide lock.
func (s *Store) FindRelationship(from, to string) (Relationship, bool, error) {
	row := s.db.QueryRow(
		`SELECT id, from_name, to_name FROM relationships
		 WHERE from_name = ? OR to_name = ? OR from_name = ? OR to_name = ?
		 LIMIT 1`,
		from, from, to, to,
	)
	var rel Relationship
	var rawID int64
	err := row.Scan(&rawID, &rel.From, &rel.To)
	if err == sql.ErrNoRows {
		return Relationship{}, false, nil
	}
	if err != nil {
		return Relationship{}, false, fmt.Errorf("find relationship: %w", err)
	}
	rel.ID = RelationshipID(rawID)
	return rel, true, nil
}

// AddRelationship creates a new relationship type named from/to. It first
// checks, outside any transaction, that neither name collides with any of
// the four name slots of an existing relationship.
func (s *Store) AddRelationship(from, to string) (RelationshipID, error) {
	if existing, found, err := s.FindRelationship(from, to); err != nil {
		return 0, err
	} else if found {
		return 0, &ErrRelationshipExists{Existing: existing.ID}
	}

	var id RelationshipID
	err := s.withTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`INSERT INTO relationships(from_name, to_name) VALUES (?, ?)`, from, to)
		if err != nil {
			return wrapTx("insert relationship", err)
		}
		rowID, err := res.LastInsertId()
		if err != nil {
			return wrapTx("read inserted relationship id", err)
		}
		id = RelationshipID(rowID)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetRelationship loads a single relationship by id.
func (s *Store) GetRelationship(id RelationshipID) (Relationship, error) {
	row := s.db.QueryRow(`SELECT id, from_name, to_name FROM relationships WHERE id = ?`, id)
	var rel Relationship
	var rawID int64
	if err := row.Scan(&rawID, &rel.From, &rel.To); err != nil {
		return Relationship{}, fmt.Errorf("load relationship %d: %w", id, err)
	}
	rel.ID = RelationshipID(rawID)
	return rel, nil
}

// GetRelationships loads every relationship type.
func (s *Store) GetRelationships() ([]Relationship, error) {
	rows, err := s.db.Query(`SELECT id, from_name, to_name FROM relationships`)
	if err != nil {
		return nil, fmt.Errorf("list relationships: %w", err)
	}
	defer rows.Close()

	var out []Relationship
	for rows.Next() {
		var rel Relationship
		var rawID int64
		if err := rows.Scan(&rawID, &rel.From, &rel.To); err != nil {
			return nil, fmt.Errorf("scan relationship row: %w", err)
		}
		rel.ID = RelationshipID(rawID)
		out = append(out, rel)
	}
	return out, rows.Err()
}
