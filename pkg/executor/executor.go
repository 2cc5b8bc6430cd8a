// Package executor defines the extension points statements run through
// and their default implementations over database/sql.
//
// Executor, StatementHandler, ParameterHandler and ResultSetHandler are
// registered with the plugin package, so interceptors can declare
// signatures such as:
//
//	plugin.On[executor.StatementHandler](executor.StatementHandlerPrepare)
package executor

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/leapstack-labs/leapmapper/pkg/mapping"
	"github.com/leapstack-labs/leapmapper/pkg/plugin"
	"github.com/leapstack-labs/leapmapper/pkg/transaction"
)

// Conn is the connection statements are prepared on.
type Conn = transaction.Conn

// Row is one result row keyed by column label.
type Row = map[string]any

// ErrExecutorClosed is returned by a closed executor.
var ErrExecutorClosed = errors.New("executor was closed")

// Statement is a statement prepared on a connection.
type Statement struct {
	Conn Conn
	// Stmt is nil for plain (unprepared) statements.
	Stmt      *sql.Stmt
	SQL       string
	Args      []any
	Timeout   time.Duration
	FetchSize int
}

// Close releases the prepared statement.
func (s *Statement) Close() error {
	if s == nil || s.Stmt == nil {
		return nil
	}
	return s.Stmt.Close()
}

// Executor runs mapped statements inside one transaction.
type Executor interface {
	Update(ctx context.Context, ms *mapping.MappedStatement, param any) (int64, error)
	Query(ctx context.Context, ms *mapping.MappedStatement, param any) ([]Row, error)
	Commit(required bool) error
	Rollback(required bool) error
	Transaction() transaction.Transaction
	Close(forceRollback bool) error
}

// StatementHandler prepares and runs one statement.
type StatementHandler interface {
	Prepare(ctx context.Context, conn Conn, timeout time.Duration) (*Statement, error)
	Parameterize(stmt *Statement) error
	Update(ctx context.Context, stmt *Statement) (int64, error)
	Query(ctx context.Context, stmt *Statement) ([]Row, error)
	BoundSQL() *mapping.BoundSQL
	ParameterHandler() ParameterHandler
	MappedStatement() *mapping.MappedStatement
}

// ParameterHandler binds the parameter object to a statement.
type ParameterHandler interface {
	ParameterObject() any
	SetParameters(stmt *Statement) error
}

// ResultSetHandler turns rows into results.
type ResultSetHandler interface {
	HandleResultSets(rows *sql.Rows) ([]Row, error)
}

// Factory creates the per-statement handlers. A configuration implements
// it and applies its interceptors to every handler it returns.
type Factory interface {
	NewStatementHandler(exec Executor, ms *mapping.MappedStatement, param any) (StatementHandler, error)
	NewParameterHandler(ms *mapping.MappedStatement, param any, bound *mapping.BoundSQL) (ParameterHandler, error)
	NewResultSetHandler(exec Executor, ms *mapping.MappedStatement, bound *mapping.BoundSQL) (ResultSetHandler, error)
}

// Interceptable methods.
var (
	ExecutorUpdate      = plugin.Method{Name: "Update", Args: []string{"*mapping.MappedStatement", "any"}}
	ExecutorQuery       = plugin.Method{Name: "Query", Args: []string{"*mapping.MappedStatement", "any"}}
	ExecutorCommit      = plugin.Method{Name: "Commit", Args: []string{"bool"}}
	ExecutorRollback    = plugin.Method{Name: "Rollback", Args: []string{"bool"}}
	ExecutorTransaction = plugin.Method{Name: "Transaction"}
	ExecutorClose       = plugin.Method{Name: "Close", Args: []string{"bool"}}

	StatementHandlerPrepare          = plugin.Method{Name: "Prepare", Args: []string{"executor.Conn", "time.Duration"}}
	StatementHandlerParameterize     = plugin.Method{Name: "Parameterize", Args: []string{"*executor.Statement"}}
	StatementHandlerUpdate           = plugin.Method{Name: "Update", Args: []string{"*executor.Statement"}}
	StatementHandlerQuery            = plugin.Method{Name: "Query", Args: []string{"*executor.Statement"}}
	StatementHandlerBoundSQL         = plugin.Method{Name: "BoundSQL"}
	StatementHandlerParameterHandler = plugin.Method{Name: "ParameterHandler"}
	StatementHandlerMappedStatement  = plugin.Method{Name: "MappedStatement"}

	ParameterHandlerParameterObject = plugin.Method{Name: "ParameterObject"}
	ParameterHandlerSetParameters   = plugin.Method{Name: "SetParameters", Args: []string{"*executor.Statement"}}

	ResultSetHandlerHandleResultSets = plugin.Method{Name: "HandleResultSets", Args: []string{"*sql.Rows"}}
)
