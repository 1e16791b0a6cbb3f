// Package database is the sqlite persistence layer: conversation sessions
// keyed by phone number and webhook event ids for deduplication.
package database

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// DB wraps the sqlite connection.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at path and applies the schema.
func New(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.applySchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}

func (db *DB) applySchema() error {
	_, err := db.conn.Exec(schemaSQL)
	return err
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
