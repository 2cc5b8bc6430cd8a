package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapmapper/pkg/core"
	"github.com/leapstack-labs/leapmapper/pkg/mapping"
	"github.com/leapstack-labs/leapmapper/pkg/transaction"
)

// ErrBatchUnsupported is returned when a BATCH executor is requested.
var ErrBatchUnsupported = errors.New("the BATCH executor type is not supported")

// SimpleExecutor prepares a statement per call. In REUSE mode prepared
// statements are kept per SQL text until the executor is closed.
type SimpleExecutor struct {
	factory Factory
	tx      transaction.Transaction
	reuse   bool
	logger  *slog.Logger

	cache  map[string]*Statement
	closed bool
}

// NewSimpleExecutor returns an executor of type typ (SIMPLE or REUSE).
func NewSimpleExecutor(factory Factory, tx transaction.Transaction, typ core.ExecutorType, logger *slog.Logger) (*SimpleExecutor, error) {
	if typ == core.ExecutorBatch {
		return nil, ErrBatchUnsupported
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SimpleExecutor{
		factory: factory,
		tx:      tx,
		reuse:   typ == core.ExecutorReuse,
		logger:  logger,
		cache:   make(map[string]*Statement),
	}, nil
}

func (e *SimpleExecutor) prepare(ctx context.Context, sh StatementHandler) (*Statement, func(), error) {
	key := ""
	if e.reuse {
		if b := sh.BoundSQL(); b != nil {
			key = b.SQL
			if stmt, ok := e.cache[key]; ok {
				e.logger.Debug("reusing prepared statement", slog.String("sql", stmt.SQL))
				reused := *stmt
				reused.Args = nil
				return &reused, func() {}, nil
			}
		}
	}
	conn, err := e.tx.Conn(ctx)
	if err != nil {
		return nil, nil, err
	}
	stmt, err := sh.Prepare(ctx, conn, e.tx.Timeout())
	if err != nil {
		return nil, nil, err
	}
	if e.reuse && key != "" && stmt.Stmt != nil {
		e.cache[key] = stmt
		return stmt, func() {}, nil
	}
	return stmt, func() { _ = stmt.Close() }, nil
}

func (e *SimpleExecutor) run(ctx context.Context, ms *mapping.MappedStatement, param any) (StatementHandler, *Statement, func(), error) {
	if e.closed {
		return nil, nil, nil, ErrExecutorClosed
	}
	sh, err := e.factory.NewStatementHandler(e, ms, param)
	if err != nil {
		return nil, nil, nil, err
	}
	stmt, release, err := e.prepare(ctx, sh)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("error preparing %s: %w", ms.ID, err)
	}
	if err := sh.Parameterize(stmt); err != nil {
		release()
		return nil, nil, nil, fmt.Errorf("error setting parameters of %s: %w", ms.ID, err)
	}
	return sh, stmt, release, nil
}

// Update runs an insert, update or delete and returns the affected rows.
func (e *SimpleExecutor) Update(ctx context.Context, ms *mapping.MappedStatement, param any) (int64, error) {
	sh, stmt, release, err := e.run(ctx, ms, param)
	if err != nil {
		return 0, err
	}
	defer release()
	return sh.Update(ctx, stmt)
}

// Query runs a select.
func (e *SimpleExecutor) Query(ctx context.Context, ms *mapping.MappedStatement, param any) ([]Row, error) {
	sh, stmt, release, err := e.run(ctx, ms, param)
	if err != nil {
		return nil, err
	}
	defer release()
	return sh.Query(ctx, stmt)
}

// Commit commits the transaction when required.
func (e *SimpleExecutor) Commit(required bool) error {
	if e.closed {
		return fmt.Errorf("cannot commit: %w", ErrExecutorClosed)
	}
	if required {
		return e.tx.Commit()
	}
	return nil
}

// Rollback rolls the transaction back when required.
func (e *SimpleExecutor) Rollback(required bool) error {
	if e.closed || !required {
		return nil
	}
	return e.tx.Rollback()
}

func (e *SimpleExecutor) Transaction() transaction.Transaction { return e.tx }

// Close releases cached statements and the transaction.
func (e *SimpleExecutor) Close(forceRollback bool) error {
	if e.closed {
		return nil
	}
	var errs []error
	if forceRollback {
		errs = append(errs, e.tx.Rollback())
	}
	for _, stmt := range e.cache {
		errs = append(errs, stmt.Close())
	}
	e.cache = nil
	errs = append(errs, e.tx.Close())
	e.closed = true
	return errors.Join(errs...)
}
