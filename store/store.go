// Package store is the persistence layer for the prescription system,
// built on bun over the pure-Go sqlite driver. It exposes typed CRUD
// operations per entity and maps driver-level failures to the domain
// error types in internal/errors.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite" // pure Go SQLite driver
)

// Store bundles the bun handle and owns the schema.
type Store struct {
	db *bun.DB
}

// Open opens (or creates) the database at dsn and ensures the schema
// exists. Use ":memory:" for an ephemeral store in tests.
func Open(dsn string) (*Store, error) {
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", dsn, err)
	}
	// sqlite serializes writers anyway; a single connection avoids
	// SQLITE_BUSY under concurrent sessions and keeps ":memory:" stores
	// on one shared database.
	sqlDB.SetMaxOpenConns(1)

	s := &Store{db: bun.NewDB(sqlDB, sqlitedialect.New())}
	if err := s.migrate(context.Background()); err != nil {
		_ = s.db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	tables := []interface{}{
		(*userRow)(nil),
		(*patientRow)(nil),
		(*medicationRow)(nil),
		(*prescriptionRow)(nil),
		(*prescriptionItemRow)(nil),
		(*messageRow)(nil),
		(*activeUserRow)(nil),
	}
	for _, t := range tables {
		if _, err := s.db.NewCreateTable().Model(t).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", t, err)
		}
	}
	return nil
}
