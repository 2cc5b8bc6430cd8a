// Package transaction provides the transaction strategies an environment is
// built with.
package transaction

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/leapstack-labs/leapmapper/pkg/core"
	"github.com/leapstack-labs/leapmapper/pkg/reflection"
)

// Conn is the part of *sql.DB, *sql.Conn and *sql.Tx statements run on.
type Conn interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Transaction owns the connection of one unit of work.
type Transaction interface {
	// Conn returns the connection to run statements on, acquiring it on
	// first use.
	Conn(ctx context.Context) (Conn, error)
	Commit() error
	Rollback() error
	// Close releases the connection.
	Close() error
	// Timeout is the remaining time budget, zero when unbounded.
	Timeout() time.Duration
}

// Factory creates transactions.
type Factory interface {
	SetProperties(props core.Properties) error
	NewTransaction(db *sql.DB, level sql.IsolationLevel, autoCommit bool) Transaction
}

// ErrClosed is returned when a closed transaction is used.
var ErrClosed = errors.New("transaction is closed")

func init() {
	reflection.Register(
		reflection.InterfaceType[Factory](),
		reflection.NewType[JDBCFactory](reflection.WithAlias("JDBC")),
		reflection.NewType[ManagedFactory](
			reflection.WithAlias("MANAGED"),
			reflection.WithConstructor(reflection.NoArg(NewManagedFactory)),
		),
	)
}
