package executor

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leapstack-labs/leapmapper/pkg/core"
	"github.com/leapstack-labs/leapmapper/pkg/mapping"
	"github.com/leapstack-labs/leapmapper/pkg/plugin"
	"github.com/leapstack-labs/leapmapper/pkg/reflection"
	"github.com/leapstack-labs/leapmapper/pkg/scripting"
	"github.com/leapstack-labs/leapmapper/pkg/transaction"
	"github.com/leapstack-labs/leapmapper/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testFactory struct {
	chain    plugin.InterceptorChain
	opts     StatementOptions
	results  ResultOptions
	handlers *types.TypeHandlerRegistry
}

func newTestFactory() *testFactory {
	return &testFactory{handlers: types.NewTypeHandlerRegistry()}
}

func (f *testFactory) NewStatementHandler(exec Executor, ms *mapping.MappedStatement, param any) (StatementHandler, error) {
	h, err := NewPreparedStatementHandler(f, exec, ms, param, f.opts)
	if err != nil {
		return nil, err
	}
	return plugin.Apply[StatementHandler](&f.chain, h)
}

func (f *testFactory) NewParameterHandler(ms *mapping.MappedStatement, param any, bound *mapping.BoundSQL) (ParameterHandler, error) {
	h := NewDefaultParameterHandler(ms, param, bound, f.handlers, reflection.DefaultObjectWrapperFactory{}, core.SQLTypeOther)
	return plugin.Apply[ParameterHandler](&f.chain, h)
}

func (f *testFactory) NewResultSetHandler(_ Executor, ms *mapping.MappedStatement, _ *mapping.BoundSQL) (ResultSetHandler, error) {
	return plugin.Apply[ResultSetHandler](&f.chain, NewDefaultResultSetHandler(ms, f.results))
}

func statement(t *testing.T, id, script string) *mapping.MappedStatement {
	t.Helper()
	src, err := scripting.XMLDriver{}.CreateSQLSource(script, nil)
	require.NoError(t, err)
	return &mapping.MappedStatement{ID: id, SQLSource: src, StatementType: core.StatementPrepared}
}

func newExecutor(t *testing.T, f Factory, typ core.ExecutorType) (*SimpleExecutor, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	tx := (&transaction.JDBCFactory{}).NewTransaction(db, sql.LevelDefault, true)
	exec, err := NewSimpleExecutor(f, tx, typ, nil)
	require.NoError(t, err)
	return exec, mock
}

func TestSimpleExecutor_Query(t *testing.T) {
	f := newTestFactory()
	f.opts.Placeholder = core.PlaceholderDollar
	f.results.MapUnderscoreToCamelCase = true
	exec, mock := newExecutor(t, f, core.ExecutorSimple)

	mock.ExpectPrepare("select user_id, user_name from users where user_id = $1 and status = $2").
		ExpectQuery().
		WithArgs(7, "active").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "user_name"}).AddRow(int64(7), "ann"))

	ms := statement(t, "users.find", "select user_id, user_name from users where user_id = #{id} and status = #{status}")
	rows, err := exec.Query(t.Context(), ms, map[string]any{"id": 7, "status": "active"})
	require.NoError(t, err)
	assert.Equal(t, []Row{{"userId": int64(7), "userName": "ann"}}, rows)
	require.NoError(t, exec.Close(false))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSimpleExecutor_Reuse(t *testing.T) {
	exec, mock := newExecutor(t, newTestFactory(), core.ExecutorReuse)

	prep := mock.ExpectPrepare("update users set name = ? where id = ?")
	prep.ExpectExec().WithArgs("a", 1).WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs("b", 2).WillReturnResult(sqlmock.NewResult(0, 1))
	prep.WillBeClosed()

	ms := statement(t, "users.rename", "update users set name = #{name} where id = #{id}")
	type rename struct {
		ID   int
		Name string
	}
	n, err := exec.Update(t.Context(), ms, rename{ID: 1, Name: "a"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, err = exec.Update(t.Context(), ms, &rename{ID: 2, Name: "b"})
	require.NoError(t, err)

	require.NoError(t, exec.Close(false))
	assert.NoError(t, mock.ExpectationsWereMet())

	_, err = exec.Update(t.Context(), ms, rename{})
	assert.ErrorIs(t, err, ErrExecutorClosed)
}

func TestSimpleExecutor_ScalarParameterAndNull(t *testing.T) {
	exec, mock := newExecutor(t, newTestFactory(), core.ExecutorSimple)
	mock.ExpectPrepare("delete from users where id = ?").
		ExpectExec().WithArgs(42).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectPrepare("update users set note = ? where id = ?").
		ExpectExec().WithArgs(nil, 1).WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := exec.Update(t.Context(), statement(t, "users.delete", "delete from users where id = #{id}"), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	_, err = exec.Update(t.Context(), statement(t, "users.note", "update users set note = #{note} where id = #{id}"),
		map[string]any{"id": 1, "note": nil})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewSimpleExecutor_Batch(t *testing.T) {
	_, err := NewSimpleExecutor(newTestFactory(), nil, core.ExecutorBatch, nil)
	assert.ErrorIs(t, err, ErrBatchUnsupported)
}

type prepareSpy struct {
	timeouts []time.Duration
	sqls     []string
}

func (s *prepareSpy) Signatures() []plugin.Signature {
	return []plugin.Signature{plugin.On[StatementHandler](StatementHandlerPrepare)}
}

func (s *prepareSpy) Intercept(inv *plugin.Invocation) (any, error) {
	timeout, err := plugin.Arg[time.Duration](inv.Args, 1, inv.Method)
	if err != nil {
		return nil, err
	}
	s.timeouts = append(s.timeouts, timeout)
	sh := inv.Target.(StatementHandler)
	s.sqls = append(s.sqls, sh.BoundSQL().SQL)
	return inv.Proceed()
}

func TestStatementHandler_Intercepted(t *testing.T) {
	f := newTestFactory()
	spy := &prepareSpy{}
	f.chain.AddInterceptor(spy)
	exec, mock := newExecutor(t, f, core.ExecutorSimple)

	mock.ExpectPrepare("select 1").ExpectQuery().WillReturnRows(sqlmock.NewRows([]string{"one"}).AddRow(1))
	ms := statement(t, "misc.one", "select 1")
	ms.Timeout = 2 * time.Second

	_, err := exec.Query(t.Context(), ms, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"select 1"}, spy.sqls)
	assert.Equal(t, []time.Duration{0}, spy.timeouts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecutorWrapper(t *testing.T) {
	var seen []string
	ic := recordAll{seen: &seen}
	var chain plugin.InterceptorChain
	chain.AddInterceptor(ic)

	exec, mock := newExecutor(t, newTestFactory(), core.ExecutorSimple)
	wrapped, err := plugin.Apply[Executor](&chain, exec)
	require.NoError(t, err)
	assert.NotSame(t, exec, wrapped)

	mock.ExpectPrepare("select 1").ExpectQuery().WillReturnRows(sqlmock.NewRows([]string{"one"}))
	_, err = wrapped.Query(t.Context(), statement(t, "misc.one", "select 1"), nil)
	require.NoError(t, err)
	require.NoError(t, wrapped.Commit(false))
	assert.NotNil(t, wrapped.Transaction())
	require.NoError(t, wrapped.Close(false))
	assert.Equal(t, []string{"Query", "Commit", "Close"}, seen)
}

type argsReplacer struct {
	sig  plugin.Signature
	args []any
}

func (r argsReplacer) Signatures() []plugin.Signature { return []plugin.Signature{r.sig} }

func (r argsReplacer) Intercept(inv *plugin.Invocation) (any, error) {
	inv.Args = r.args
	return inv.Proceed()
}

func TestWrappers_ReplacedArguments(t *testing.T) {
	tests := []struct {
		name    string
		sig     plugin.Signature
		args    []any
		call    func(t *testing.T, exec Executor) error
		wantErr string
	}{
		{
			name:    "commit without arguments",
			sig:     plugin.On[Executor](ExecutorCommit),
			args:    nil,
			call:    func(_ *testing.T, exec Executor) error { return exec.Commit(true) },
			wantErr: "Commit(bool) needs argument 0 of type bool, got 0 argument(s)",
		},
		{
			name:    "commit with a string",
			sig:     plugin.On[Executor](ExecutorCommit),
			args:    []any{"yes"},
			call:    func(_ *testing.T, exec Executor) error { return exec.Commit(true) },
			wantErr: "argument 0 of Commit(bool) is string, want bool",
		},
		{
			name:    "close with nil",
			sig:     plugin.On[Executor](ExecutorClose),
			args:    []any{nil},
			call:    func(_ *testing.T, exec Executor) error { return exec.Close(false) },
			wantErr: "argument 0 of Close(bool) is nil, want bool",
		},
		{
			name: "query with a wrong statement",
			sig:  plugin.On[Executor](ExecutorQuery),
			args: []any{"users.all", nil},
			call: func(t *testing.T, exec Executor) error {
				_, err := exec.Query(t.Context(), statement(t, "misc.one", "select 1"), nil)
				return err
			},
			wantErr: "argument 0 of Query(*mapping.MappedStatement, any) is string",
		},
		{
			name: "prepare with a short list",
			sig:  plugin.On[StatementHandler](StatementHandlerPrepare),
			args: []any{nil},
			call: func(t *testing.T, exec Executor) error {
				_, err := exec.Query(t.Context(), statement(t, "misc.one", "select 1"), nil)
				return err
			},
			wantErr: "needs argument 1 of type time.Duration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestFactory()
			f.chain.AddInterceptor(argsReplacer{sig: tt.sig, args: tt.args})
			exec, _ := newExecutor(t, f, core.ExecutorSimple)
			wrapped, err := plugin.Apply[Executor](&f.chain, exec)
			require.NoError(t, err)

			var callErr error
			require.NotPanics(t, func() { callErr = tt.call(t, wrapped) })
			require.ErrorIs(t, callErr, plugin.ErrInvalidArgument)
			assert.Contains(t, callErr.Error(), tt.wantErr)
		})
	}
}

type recordAll struct{ seen *[]string }

func (r recordAll) Signatures() []plugin.Signature {
	return []plugin.Signature{
		plugin.On[Executor](ExecutorQuery),
		plugin.On[Executor](ExecutorCommit),
		plugin.On[Executor](ExecutorClose),
	}
}

func (r recordAll) Intercept(inv *plugin.Invocation) (any, error) {
	*r.seen = append(*r.seen, inv.Method.Name)
	return inv.Proceed()
}

func TestRewritePlaceholders(t *testing.T) {
	tests := []struct {
		name  string
		sql   string
		style core.PlaceholderStyle
		want  string
	}{
		{"question unchanged", "a = ? and b = ?", core.PlaceholderQuestion, "a = ? and b = ?"},
		{"dollar", "a = ? and b = ?", core.PlaceholderDollar, "a = $1 and b = $2"},
		{"quoted kept", "a = '?' and b = \"?\" and c = ?", core.PlaceholderDollar, "a = '?' and b = \"?\" and c = $1"},
		{"none", "select 1", core.PlaceholderDollar, "select 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RewritePlaceholders(tt.sql, tt.style))
		})
	}
}

func TestDefaultResultSetHandler_Nulls(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	tests := []struct {
		name string
		opts ResultOptions
		want []Row
	}{
		{"defaults", ResultOptions{}, []Row{{"a": int64(1)}}},
		{"setters on nulls", ResultOptions{CallSettersOnNulls: true}, []Row{{"a": int64(1), "b": nil}}},
		{"empty rows kept", ResultOptions{ReturnInstanceForEmptyRow: true}, []Row{{"a": int64(1)}, {}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock.ExpectQuery("select").WillReturnRows(
				sqlmock.NewRows([]string{"a", "b"}).AddRow(int64(1), nil).AddRow(nil, nil))
			rows, err := db.Query("select a, b from t")
			require.NoError(t, err)
			got, err := NewDefaultResultSetHandler(nil, tt.opts).HandleResultSets(rows)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCamelCase(t *testing.T) {
	for in, want := range map[string]string{
		"user_name":  "userName",
		"USER_NAME":  "userName",
		"_leading":   "leading",
		"plain":      "plain",
		"a__b":       "aB",
		"created_at": "createdAt",
	} {
		assert.Equal(t, want, camelCase(in), in)
	}
}
