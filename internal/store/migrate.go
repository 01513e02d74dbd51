package store

import (
	"database/sql"
	_ "embed"
	"fmt"
)

//go:embed schema_v1.sql
var schemaV1SQL string

//go:embed schema_v1_to_v2.sql
var schemaV1ToV2SQL string

const latestSchemaVersion = 2

type migration func(db *sql.DB) error

// migrations is the ordered list of upgrade steps, mirroring the original's
// [generate_v1_db, upgrade_v1_v2] array: migrations[i] takes the store from
// version i to version i+1, and upgrade runs each step at most once per
// store, skipping those user_version shows as applied.
var migrations = []migration{
	func(db *sql.DB) error {
		if _, err := db.Exec(schemaV1SQL); err != nil {
			return fmt.Errorf("create v1 schema: %w", err)
		}
		if _, err := db.Exec("PRAGMA user_version = 1"); err != nil {
			return fmt.Errorf("set user_version=1: %w", err)
		}
		return nil
	},
	func(db *sql.DB) error {
		if _, err := db.Exec(schemaV1ToV2SQL); err != nil {
			return fmt.Errorf("upgrade v1 to v2 schema: %w", err)
		}
		if _, err := db.Exec("PRAGMA user_version = 2"); err != nil {
			return fmt.Errorf("set user_version=2: %w", err)
		}
		return nil
	},
}

func getVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

// upgrade runs every migration the store hasn't applied yet and asserts the
// final version matches latestSchemaVersion. Opening an up-to-date store
// runs zero migrations.
func upgrade(db *sql.DB) error {
	current, err := getVersion(db)
	if err != nil {
		return err
	}

	for i := current; i < len(migrations); i++ {
		if err := migrations[i](db); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}

	updated, err := getVersion(db)
	if err != nil {
		return err
	}
	if updated != latestSchemaVersion {
		panic(fmt.Sprintf("post-upgrade schema version %d does not match expected %d", updated, latestSchemaVersion))
	}
	return nil
}
