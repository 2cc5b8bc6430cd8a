package executor

import (
	"context"
	"database/sql"
	"reflect"
	"time"

	"github.com/leapstack-labs/leapmapper/pkg/mapping"
	"github.com/leapstack-labs/leapmapper/pkg/plugin"
	"github.com/leapstack-labs/leapmapper/pkg/transaction"
)

type executorWrapper struct {
	target Executor
	h      plugin.Handler
}

func (w *executorWrapper) Update(ctx context.Context, ms *mapping.MappedStatement, param any) (int64, error) {
	return plugin.Call(ctx, w.h, ExecutorUpdate, []any{ms, param}, func(a []any) (int64, error) {
		m, err := plugin.Arg[*mapping.MappedStatement](a, 0, ExecutorUpdate)
		if err != nil {
			return 0, err
		}
		p, err := plugin.Arg[any](a, 1, ExecutorUpdate)
		if err != nil {
			return 0, err
		}
		return w.target.Update(ctx, m, p)
	})
}

func (w *executorWrapper) Query(ctx context.Context, ms *mapping.MappedStatement, param any) ([]Row, error) {
	return plugin.Call(ctx, w.h, ExecutorQuery, []any{ms, param}, func(a []any) ([]Row, error) {
		m, err := plugin.Arg[*mapping.MappedStatement](a, 0, ExecutorQuery)
		if err != nil {
			return nil, err
		}
		p, err := plugin.Arg[any](a, 1, ExecutorQuery)
		if err != nil {
			return nil, err
		}
		return w.target.Query(ctx, m, p)
	})
}

func (w *executorWrapper) Commit(required bool) error {
	return plugin.CallErr(context.Background(), w.h, ExecutorCommit, []any{required}, func(a []any) error {
		r, err := plugin.Arg[bool](a, 0, ExecutorCommit)
		if err != nil {
			return err
		}
		return w.target.Commit(r)
	})
}

func (w *executorWrapper) Rollback(required bool) error {
	return plugin.CallErr(context.Background(), w.h, ExecutorRollback, []any{required}, func(a []any) error {
		r, err := plugin.Arg[bool](a, 0, ExecutorRollback)
		if err != nil {
			return err
		}
		return w.target.Rollback(r)
	})
}

func (w *executorWrapper) Transaction() transaction.Transaction {
	tx, _ := plugin.Call(context.Background(), w.h, ExecutorTransaction, nil, func([]any) (transaction.Transaction, error) {
		return w.target.Transaction(), nil
	})
	return tx
}

func (w *executorWrapper) Close(forceRollback bool) error {
	return plugin.CallErr(context.Background(), w.h, ExecutorClose, []any{forceRollback}, func(a []any) error {
		force, err := plugin.Arg[bool](a, 0, ExecutorClose)
		if err != nil {
			return err
		}
		return w.target.Close(force)
	})
}

type statementHandlerWrapper struct {
	target StatementHandler
	h      plugin.Handler
}

func (w *statementHandlerWrapper) Prepare(ctx context.Context, conn Conn, timeout time.Duration) (*Statement, error) {
	return plugin.Call(ctx, w.h, StatementHandlerPrepare, []any{conn, timeout}, func(a []any) (*Statement, error) {
		c, err := plugin.Arg[Conn](a, 0, StatementHandlerPrepare)
		if err != nil {
			return nil, err
		}
		d, err := plugin.Arg[time.Duration](a, 1, StatementHandlerPrepare)
		if err != nil {
			return nil, err
		}
		return w.target.Prepare(ctx, c, d)
	})
}

func (w *statementHandlerWrapper) Parameterize(stmt *Statement) error {
	return plugin.CallErr(context.Background(), w.h, StatementHandlerParameterize, []any{stmt}, func(a []any) error {
		st, err := plugin.Arg[*Statement](a, 0, StatementHandlerParameterize)
		if err != nil {
			return err
		}
		return w.target.Parameterize(st)
	})
}

func (w *statementHandlerWrapper) Update(ctx context.Context, stmt *Statement) (int64, error) {
	return plugin.Call(ctx, w.h, StatementHandlerUpdate, []any{stmt}, func(a []any) (int64, error) {
		st, err := plugin.Arg[*Statement](a, 0, StatementHandlerUpdate)
		if err != nil {
			return 0, err
		}
		return w.target.Update(ctx, st)
	})
}

func (w *statementHandlerWrapper) Query(ctx context.Context, stmt *Statement) ([]Row, error) {
	return plugin.Call(ctx, w.h, StatementHandlerQuery, []any{stmt}, func(a []any) ([]Row, error) {
		st, err := plugin.Arg[*Statement](a, 0, StatementHandlerQuery)
		if err != nil {
			return nil, err
		}
		return w.target.Query(ctx, st)
	})
}

func (w *statementHandlerWrapper) BoundSQL() *mapping.BoundSQL {
	b, _ := plugin.Call(context.Background(), w.h, StatementHandlerBoundSQL, nil, func([]any) (*mapping.BoundSQL, error) {
		return w.target.BoundSQL(), nil
	})
	return b
}

func (w *statementHandlerWrapper) ParameterHandler() ParameterHandler {
	p, _ := plugin.Call(context.Background(), w.h, StatementHandlerParameterHandler, nil, func([]any) (ParameterHandler, error) {
		return w.target.ParameterHandler(), nil
	})
	return p
}

func (w *statementHandlerWrapper) MappedStatement() *mapping.MappedStatement {
	ms, _ := plugin.Call(context.Background(), w.h, StatementHandlerMappedStatement, nil, func([]any) (*mapping.MappedStatement, error) {
		return w.target.MappedStatement(), nil
	})
	return ms
}

type parameterHandlerWrapper struct {
	target ParameterHandler
	h      plugin.Handler
}

func (w *parameterHandlerWrapper) ParameterObject() any {
	v, _ := plugin.Call(context.Background(), w.h, ParameterHandlerParameterObject, nil, func([]any) (any, error) {
		return w.target.ParameterObject(), nil
	})
	return v
}

func (w *parameterHandlerWrapper) SetParameters(stmt *Statement) error {
	return plugin.CallErr(context.Background(), w.h, ParameterHandlerSetParameters, []any{stmt}, func(a []any) error {
		st, err := plugin.Arg[*Statement](a, 0, ParameterHandlerSetParameters)
		if err != nil {
			return err
		}
		return w.target.SetParameters(st)
	})
}

type resultSetHandlerWrapper struct {
	target ResultSetHandler
	h      plugin.Handler
}

func (w *resultSetHandlerWrapper) HandleResultSets(rows *sql.Rows) ([]Row, error) {
	return plugin.Call(context.Background(), w.h, ResultSetHandlerHandleResultSets, []any{rows}, func(a []any) ([]Row, error) {
		rs, err := plugin.Arg[*sql.Rows](a, 0, ResultSetHandlerHandleResultSets)
		if err != nil {
			return nil, err
		}
		return w.target.HandleResultSets(rs)
	})
}

func init() {
	plugin.RegisterExtensionPoint(plugin.ExtensionPoint{
		Name:    "Executor",
		Type:    reflect.TypeFor[Executor](),
		Methods: []plugin.Method{ExecutorUpdate, ExecutorQuery, ExecutorCommit, ExecutorRollback, ExecutorTransaction, ExecutorClose},
		Wrap: func(target any, h plugin.Handler) any {
			return &executorWrapper{target: target.(Executor), h: h}
		},
	})
	plugin.RegisterExtensionPoint(plugin.ExtensionPoint{
		Name:    "StatementHandler",
		Type:    reflect.TypeFor[StatementHandler](),
		Methods: []plugin.Method{
			StatementHandlerPrepare, StatementHandlerParameterize, StatementHandlerUpdate, StatementHandlerQuery,
			StatementHandlerBoundSQL, StatementHandlerParameterHandler, StatementHandlerMappedStatement,
		},
		Wrap: func(target any, h plugin.Handler) any {
			return &statementHandlerWrapper{target: target.(StatementHandler), h: h}
		},
	})
	plugin.RegisterExtensionPoint(plugin.ExtensionPoint{
		Name:    "ParameterHandler",
		Type:    reflect.TypeFor[ParameterHandler](),
		Methods: []plugin.Method{ParameterHandlerParameterObject, ParameterHandlerSetParameters},
		Wrap: func(target any, h plugin.Handler) any {
			return &parameterHandlerWrapper{target: target.(ParameterHandler), h: h}
		},
	})
	plugin.RegisterExtensionPoint(plugin.ExtensionPoint{
		Name:    "ResultSetHandler",
		Type:    reflect.TypeFor[ResultSetHandler](),
		Methods: []plugin.Method{ResultSetHandlerHandleResultSets},
		Wrap: func(target any, h plugin.Handler) any {
			return &resultSetHandlerWrapper{target: target.(ResultSetHandler), h: h}
		},
	})
}
