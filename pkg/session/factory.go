package session

import (
	"database/sql"
	"errors"

	"github.com/leapstack-labs/leapmapper/pkg/core"
	"github.com/leapstack-labs/leapmapper/pkg/executor"
	"github.com/leapstack-labs/leapmapper/pkg/mapping"
	"github.com/leapstack-labs/leapmapper/pkg/plugin"
	"github.com/leapstack-labs/leapmapper/pkg/transaction"
)

// ErrNoEnvironment is returned when an executor is opened on a
// configuration without an active environment.
var ErrNoEnvironment = errors.New("configuration has no environment")

var _ executor.Factory = (*Configuration)(nil)

// NewExecutor creates an executor of type typ over tx, wrapped by the
// interceptor chain.
func (c *Configuration) NewExecutor(tx transaction.Transaction, typ core.ExecutorType) (executor.Executor, error) {
	exec, err := executor.NewSimpleExecutor(c, tx, typ, c.logger)
	if err != nil {
		return nil, err
	}
	return plugin.Apply[executor.Executor](&c.chain, exec)
}

// OpenExecutor starts a transaction on the active environment and returns
// an executor of the default type over it.
func (c *Configuration) OpenExecutor(autoCommit bool) (executor.Executor, error) {
	if c.env == nil {
		return nil, ErrNoEnvironment
	}
	tx := c.env.TransactionFactory.NewTransaction(c.env.DataSource, sql.LevelDefault, autoCommit)
	exec, err := c.NewExecutor(tx, c.Settings.DefaultExecutorType)
	if err != nil {
		return nil, errors.Join(err, tx.Close())
	}
	return exec, nil
}

// NewStatementHandler creates the handler running ms with param.
func (c *Configuration) NewStatementHandler(exec executor.Executor, ms *mapping.MappedStatement, param any) (executor.StatementHandler, error) {
	opts := executor.StatementOptions{Placeholder: core.PlaceholderQuestion}
	if c.env != nil {
		opts.Placeholder = c.env.Placeholder
	}
	if c.Settings.DefaultStatementTimeout != nil {
		opts.DefaultTimeout = *c.Settings.DefaultStatementTimeout
	}
	if c.Settings.DefaultFetchSize != nil {
		opts.DefaultFetchSize = *c.Settings.DefaultFetchSize
	}
	h, err := executor.NewPreparedStatementHandler(c, exec, ms, param, opts)
	if err != nil {
		return nil, err
	}
	return plugin.Apply[executor.StatementHandler](&c.chain, h)
}

// NewParameterHandler creates the handler binding param to bound.
func (c *Configuration) NewParameterHandler(ms *mapping.MappedStatement, param any, bound *mapping.BoundSQL) (executor.ParameterHandler, error) {
	h := executor.NewDefaultParameterHandler(ms, param, bound, c.handlers, c.wrapperFactory, c.Settings.JdbcTypeForNull)
	return plugin.Apply[executor.ParameterHandler](&c.chain, h)
}

// NewResultSetHandler creates the handler reading the rows of ms.
func (c *Configuration) NewResultSetHandler(_ executor.Executor, ms *mapping.MappedStatement, _ *mapping.BoundSQL) (executor.ResultSetHandler, error) {
	h := executor.NewDefaultResultSetHandler(ms, executor.ResultOptions{
		MapUnderscoreToCamelCase:  c.Settings.MapUnderscoreToCamelCase,
		CallSettersOnNulls:        c.Settings.CallSettersOnNulls,
		ReturnInstanceForEmptyRow: c.Settings.ReturnInstanceForEmptyRow,
	})
	return plugin.Apply[executor.ResultSetHandler](&c.chain, h)
}
