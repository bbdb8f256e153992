// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"

	"github.com/danielhkuo/forum-polls/db"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// ErrStale is returned when a guarded update finds the row changed since it
// was read.
var ErrStale = errors.New("record changed concurrently")

// Table and column names
const (
	AccountTableName            = "account"
	ReputationTableName         = "reputation"
	ExpertCredentialTableName   = "expert_credential"
	PostTableName               = "post"
	PollTableName               = "poll"
	PollOptionTableName         = "poll_option"
	PollResponseTableName       = "poll_response"
	PollResponseOptionTableName = "poll_response_option"

	colID        = "id"
	colDeletedAt = "deleted_at"
	colUpdatedAt = "updated_at"
)

var (
	AccountTable            = goqu.T(AccountTableName)
	ReputationTable         = goqu.T(ReputationTableName)
	ExpertCredentialTable   = goqu.T(ExpertCredentialTableName)
	PostTable               = goqu.T(PostTableName)
	PollTable               = goqu.T(PollTableName)
	PollOptionTable         = goqu.T(PollOptionTableName)
	PollResponseTable       = goqu.T(PollResponseTableName)
	PollResponseOptionTable = goqu.T(PollResponseOptionTableName)
)

// Store runs poll queries against one database.
type Store struct {
	db      *sql.DB
	dialect goqu.DialectWrapper
}

// New returns a Store that builds SQL for the given database type.
func New(conn *sql.DB, dbType string) *Store {
	return &Store{db: conn, dialect: goqu.Dialect(goquDialect(dbType))}
}

func goquDialect(dbType string) string {
	if dbType == db.TypeSQLite {
		return "sqlite3"
	}
	return "postgres"
}

// Queries is a set of queries bound to a connection or a transaction.
type Queries struct {
	q       db.Querier
	dialect goqu.DialectWrapper
}

// Read returns queries that run outside any transaction.
func (s *Store) Read() *Queries {
	return &Queries{q: s.db, dialect: s.dialect}
}

// InTx runs fn in one transaction. Any error from fn rolls everything back.
func (s *Store) InTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Queries{q: tx, dialect: s.dialect}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type sqlBuilder interface {
	ToSQL() (string, []interface{}, error)
}

type scanner interface {
	Scan(dest ...any) error
}

func (q *Queries) exec(ctx context.Context, b sqlBuilder) (sql.Result, error) {
	query, args, err := b.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	return q.q.ExecContext(ctx, query, args...)
}

func (q *Queries) queryRow(ctx context.Context, b sqlBuilder) (*sql.Row, error) {
	query, args, err := b.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	return q.q.QueryRowContext(ctx, query, args...), nil
}

func (q *Queries) query(ctx context.Context, b sqlBuilder) (*sql.Rows, error) {
	query, args, err := b.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	return q.q.QueryContext(ctx, query, args...)
}

// execOne runs an update and reports ErrNotFound when no row matched.
func (q *Queries) execOne(ctx context.Context, b sqlBuilder) error {
	res, err := q.exec(ctx, b)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// nullable turns a nil pointer into SQL NULL and dereferences the rest.
func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func active() goqu.Ex {
	return goqu.Ex{colDeletedAt: nil}
}
