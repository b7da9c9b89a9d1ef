// internal/repository/postgres/db.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	xerrors "routedesk-service/internal/pkg/errors"
	"routedesk-service/internal/ports"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is satisfied by both the pool and a transaction, so every repository can run
// inside or outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type DB struct {
	pool *pgxpool.Pool
}

func NewDB(pool *pgxpool.Pool) *DB {
	return &DB{pool: pool}
}

func (db *DB) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return db.pool.Begin(ctx)
}

func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

type repos struct {
	customers *CustomerRepository
	groupings *GroupingRepository
	routes    *RouteRepository
	visits    *VisitRepository
	calls     *CallRepository
	users     *UserRepository
}

func newRepos(db DBTX) repos {
	return repos{
		customers: NewCustomerRepository(db),
		groupings: NewGroupingRepository(db),
		routes:    NewRouteRepository(db),
		visits:    NewVisitRepository(db),
		calls:     NewCallRepository(db),
		users:     NewUserRepository(db),
	}
}

func (r repos) Customers() ports.CustomerRepository { return r.customers }
func (r repos) Groupings() ports.GroupingRepository { return r.groupings }
func (r repos) Routes() ports.RouteRepository       { return r.routes }
func (r repos) Visits() ports.VisitRepository       { return r.visits }
func (r repos) Calls() ports.CallRepository         { return r.calls }
func (r repos) Users() ports.UserRepository         { return r.users }

// Store is the PostgreSQL implementation of ports.Store.
type Store struct {
	repos
	db *DB
}

func NewStore(db *DB) *Store {
	return &Store{repos: newRepos(db.Pool()), db: db}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ports.Tx) error) error {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &txRepos{repos: newRepos(tx), tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type txRepos struct {
	repos
	tx pgx.Tx
}

// Savepoint relies on pgx turning a nested Begin into SAVEPOINT / RELEASE.
func (t *txRepos) Savepoint(ctx context.Context, fn func(ctx context.Context, tx ports.Tx) error) error {
	sp, err := t.tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to create savepoint: %w", err)
	}
	defer sp.Rollback(ctx)

	if err := fn(ctx, &txRepos{repos: newRepos(sp), tx: sp}); err != nil {
		return err
	}
	if err := sp.Commit(ctx); err != nil {
		return fmt.Errorf("failed to release savepoint: %w", err)
	}
	return nil
}

var (
	_ ports.Store = (*Store)(nil)
	_ ports.Tx    = (*txRepos)(nil)
)

// scanner is satisfied by pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// translate maps driver errors onto application sentinels.
func translate(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, xerrors.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%s: %w", what, xerrors.ErrConflict)
		case "23503":
			return fmt.Errorf("%s: referenced row missing: %w", what, xerrors.ErrNotFound)
		case "23514":
			return fmt.Errorf("%s: %s violated: %w", what, pgErr.ConstraintName, xerrors.ErrInvalidInput)
		}
	}
	return fmt.Errorf("failed to %s: %w", what, err)
}
