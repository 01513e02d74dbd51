package store

import (
	"database/sql"
	"fmt"
	"os"
)

// CreateItem inserts a new item row and creates its content directory in
// the same operation: the row and the directory must come into existence
// together, or neither does.
func (s *Store) CreateItem(name string) (ItemID, error) {
	var id ItemID
	err := s.withTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`INSERT INTO files(name) VALUES (?)`, name)
		if err != nil {
			return wrapTx("insert item", err)
		}
		rowID, err := res.LastInsertId()
		if err != nil {
			return wrapTx("read inserted item id", err)
		}
		id = ItemID(rowID)

		path := s.contentPath(id)
		if _, err := os.Stat(path); err == nil {
			return ErrItemExists
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			return wrapTx("create item content directory", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// DeleteItem removes an item's row, its content directory, and every
// item_relationships row naming it on either side. item_relationships rows
// are deleted explicitly rather than relied on to cascade, mirroring the
// original's delete_item which issues both DELETE statements itself.
func (s *Store) DeleteItem(id ItemID) error {
	return s.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM item_relationships WHERE from_id = ? OR to_id = ?`, id, id); err != nil {
			return wrapTx("delete item relationships", err)
		}
		if _, err := tx.Exec(`DELETE FROM files WHERE id = ?`, id); err != nil {
			return wrapTx("delete item row", err)
		}
		path := s.contentPath(id)
		if err := os.RemoveAll(path); err != nil {
			return wrapTx("remove item content directory", err)
		}
		return nil
	})
}

// GetItemByID loads a single item and its item-relationships.
func (s *Store) GetItemByID(id ItemID) (Item, error) {
	var item Item
	row := s.db.QueryRow(`SELECT id, name FROM files WHERE id = ?`, id)
	var rawID int64
	if err := row.Scan(&rawID, &item.Name); err != nil {
		if err == sql.ErrNoRows {
			return Item{}, fmt.Errorf("item %d: %w", id, err)
		}
		return Item{}, fmt.Errorf("load item %d: %w", id, err)
	}
	item.ID = ItemID(rawID)

	path, err := s.ContentFolderForID(id)
	if err != nil {
		return Item{}, fmt.Errorf("resolve content folder for item %d: %w", id, err)
	}
	item.ContentPath = path

	rels, err := s.itemRelationshipsFor(id)
	if err != nil {
		return Item{}, err
	}
	item.Relationships = rels

	return item, nil
}

// GetItems loads every item in the store.
func (s *Store) GetItems() ([]Item, error) {
	rows, err := s.db.Query(`SELECT id, name FROM files`)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var ids []ItemID
	names := map[ItemID]string{}
	for rows.Next() {
		var rawID int64
		var name string
		if err := rows.Scan(&rawID, &name); err != nil {
			return nil, fmt.Errorf("scan item row: %w", err)
		}
		id := ItemID(rawID)
		ids = append(ids, id)
		names[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(ids))
	for _, id := range ids {
		path, err := s.ContentFolderForID(id)
		if err != nil {
			return nil, fmt.Errorf("resolve content folder for item %d: %w", id, err)
		}
		rels, err := s.itemRelationshipsFor(id)
		if err != nil {
			return nil, err
		}
		items = append(items, Item{ID: id, Name: names[id], ContentPath: path, Relationships: rels})
	}
	return items, nil
}
