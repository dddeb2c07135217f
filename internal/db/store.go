// Package db is Profecia's Postgres persistence layer: schema
// migrations plus the CRUD and upsert operations every core package
// composes into its own transactions.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/lib/pq"
)

// Queryer is satisfied by both *sql.DB and *sql.Tx so every function
// below can run standalone or as part of a caller's own transaction
// (§9 "Polymorphic persistence") — C4's matching transaction and C5's
// resolution transaction call straight into these with their *sql.Tx.
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// IsSerializationFailure reports whether err is a Postgres 40001
// serialization-failure SQLSTATE, the retry signal for C4/C5's
// serializable transactions (spec.md §5).
func IsSerializationFailure(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001"
	}
	return false
}

type Store struct{ DB *sql.DB }

func Open(dsn string) (*Store, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(20)
	conn.SetConnMaxLifetime(5 * time.Minute)
	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{DB: conn}, nil
}

func (s *Store) Migrate(dir string) error {
	driver, err := postgres.WithInstance(s.DB, &postgres.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "postgres", driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func (s *Store) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	return s.DB.BeginTx(ctx, opts)
}

// BeginSerializable starts the SERIALIZABLE transaction C4 and C5 run
// their matching/resolution logic inside (§5, §9 Open Question 1).
func (s *Store) BeginSerializable(ctx context.Context) (*sql.Tx, error) {
	return s.DB.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
}
