package executor

import (
	"context"
	"database/sql"
	"time"

	"github.com/leapstack-labs/leapmapper/pkg/core"
	"github.com/leapstack-labs/leapmapper/pkg/mapping"
)

// StatementOptions are the configuration values a statement handler needs.
type StatementOptions struct {
	Placeholder      core.PlaceholderStyle
	DefaultTimeout   time.Duration
	DefaultFetchSize int
}

// PreparedStatementHandler runs a mapped statement through database/sql.
type PreparedStatementHandler struct {
	ms    *mapping.MappedStatement
	bound *mapping.BoundSQL
	ph    ParameterHandler
	rh    ResultSetHandler
	opts  StatementOptions
}

// NewPreparedStatementHandler binds ms to param and creates its parameter
// and result handlers through factory.
func NewPreparedStatementHandler(factory Factory, exec Executor, ms *mapping.MappedStatement, param any, opts StatementOptions) (*PreparedStatementHandler, error) {
	bound, err := ms.BoundSQL(param)
	if err != nil {
		return nil, err
	}
	ph, err := factory.NewParameterHandler(ms, param, bound)
	if err != nil {
		return nil, err
	}
	rh, err := factory.NewResultSetHandler(exec, ms, bound)
	if err != nil {
		return nil, err
	}
	return &PreparedStatementHandler{ms: ms, bound: bound, ph: ph, rh: rh, opts: opts}, nil
}

// Prepare prepares the bound SQL on conn, rewriting "?" markers for the
// driver's placeholder style. Plain statements are not prepared.
func (h *PreparedStatementHandler) Prepare(ctx context.Context, conn Conn, timeout time.Duration) (*Statement, error) {
	stmt := &Statement{
		Conn:      conn,
		SQL:       RewritePlaceholders(h.bound.SQL, h.opts.Placeholder),
		Timeout:   h.timeout(timeout),
		FetchSize: h.ms.FetchSize,
	}
	if stmt.FetchSize == 0 {
		stmt.FetchSize = h.opts.DefaultFetchSize
	}
	if h.ms.StatementType == core.StatementPlain {
		return stmt, nil
	}
	s, err := conn.PrepareContext(ctx, stmt.SQL)
	if err != nil {
		return nil, err
	}
	stmt.Stmt = s
	return stmt, nil
}

// timeout picks the smallest of the statement, default and transaction
// timeouts that is set.
func (h *PreparedStatementHandler) timeout(txTimeout time.Duration) time.Duration {
	t := h.ms.Timeout
	if t == 0 {
		t = h.opts.DefaultTimeout
	}
	if txTimeout > 0 && (t == 0 || txTimeout < t) {
		t = txTimeout
	}
	return t
}

func (h *PreparedStatementHandler) Parameterize(stmt *Statement) error {
	return h.ph.SetParameters(stmt)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

func (h *PreparedStatementHandler) Update(ctx context.Context, stmt *Statement) (int64, error) {
	ctx, cancel := withTimeout(ctx, stmt.Timeout)
	defer cancel()
	var (
		res sql.Result
		err error
	)
	if stmt.Stmt != nil {
		res, err = stmt.Stmt.ExecContext(ctx, stmt.Args...)
	} else {
		res, err = stmt.Conn.ExecContext(ctx, stmt.SQL, stmt.Args...)
	}
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (h *PreparedStatementHandler) Query(ctx context.Context, stmt *Statement) ([]Row, error) {
	ctx, cancel := withTimeout(ctx, stmt.Timeout)
	defer cancel()
	var (
		rows *sql.Rows
		err  error
	)
	if stmt.Stmt != nil {
		rows, err = stmt.Stmt.QueryContext(ctx, stmt.Args...)
	} else {
		rows, err = stmt.Conn.QueryContext(ctx, stmt.SQL, stmt.Args...)
	}
	if err != nil {
		return nil, err
	}
	return h.rh.HandleResultSets(rows)
}

func (h *PreparedStatementHandler) BoundSQL() *mapping.BoundSQL { return h.bound }

func (h *PreparedStatementHandler) ParameterHandler() ParameterHandler { return h.ph }

func (h *PreparedStatementHandler) MappedStatement() *mapping.MappedStatement { return h.ms }
