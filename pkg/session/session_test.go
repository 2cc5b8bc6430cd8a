package session

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leapstack-labs/leapmapper/pkg/core"
	"github.com/leapstack-labs/leapmapper/pkg/executor"
	"github.com/leapstack-labs/leapmapper/pkg/logging"
	"github.com/leapstack-labs/leapmapper/pkg/mapping"
	"github.com/leapstack-labs/leapmapper/pkg/plugin"
	"github.com/leapstack-labs/leapmapper/pkg/reflection"
	"github.com/leapstack-labs/leapmapper/pkg/scripting"
	"github.com/leapstack-labs/leapmapper/pkg/transaction"
	"github.com/leapstack-labs/leapmapper/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, core.AutoMappingPartial, s.AutoMappingBehavior)
	assert.Equal(t, core.UnknownColumnNone, s.AutoMappingUnknownColumnBehavior)
	assert.True(t, s.CacheEnabled)
	assert.False(t, s.LazyLoadingEnabled)
	assert.True(t, s.MultipleResultSetsEnabled)
	assert.True(t, s.UseColumnLabel)
	assert.Equal(t, core.ExecutorSimple, s.DefaultExecutorType)
	assert.Equal(t, core.LocalCacheSession, s.LocalCacheScope)
	assert.Equal(t, core.SQLTypeOther, s.JdbcTypeForNull)
	assert.Equal(t, []string{"equals", "clone", "hashCode", "toString"}, s.LazyLoadTriggerMethods)
	assert.True(t, s.SafeResultHandlerEnabled)
	assert.True(t, s.UseActualParamName)
	assert.False(t, s.ReturnInstanceForEmptyRow)
	assert.Nil(t, s.DefaultStatementTimeout)
	assert.Nil(t, s.DefaultFetchSize)
	assert.Nil(t, s.DefaultResultSetType)
	assert.Nil(t, s.LogImpl)
	assert.Empty(t, s.VFSImpl)
}

func TestSettingKeys(t *testing.T) {
	keys := Keys()
	assert.Len(t, keys, 28)
	assert.Contains(t, keys, "mapUnderscoreToCamelCase")
	assert.Contains(t, keys, "vfsImpl")

	assert.True(t, IsKey("cacheEnabled"))
	assert.False(t, IsKey("CacheEnabled"))
	assert.False(t, IsKey("cacheEnable"))
}

func TestSettings_Values(t *testing.T) {
	s := DefaultSettings()
	timeout := 25 * time.Second
	fetch := 100
	s.DefaultStatementTimeout = &timeout
	s.DefaultFetchSize = &fetch
	s.LogImpl = reflection.NewType[logging.Text]()

	values := s.Values()
	assert.Len(t, values, len(Keys()))
	assert.Equal(t, "true", values["cacheEnabled"])
	assert.Equal(t, "PARTIAL", values["autoMappingBehavior"])
	assert.Equal(t, "OTHER", values["jdbcTypeForNull"])
	assert.Equal(t, "equals,clone,hashCode,toString", values["lazyLoadTriggerMethods"])
	assert.Equal(t, "25s", values["defaultStatementTimeout"])
	assert.Equal(t, "100", values["defaultFetchSize"])
	assert.Equal(t, "", values["defaultResultSetType"])
	assert.Equal(t, "", values["proxyFactory"])
	assert.Equal(t, "github.com/leapstack-labs/leapmapper/pkg/logging.Text", values["logImpl"])
	assert.Equal(t, "", values["vfsImpl"])
}

func TestConfiguration_BuiltinAliases(t *testing.T) {
	c := NewConfiguration(nil, nil)
	tests := []struct {
		alias string
		want  reflect.Type
	}{
		{"JDBC", reflect.TypeFor[transaction.JDBCFactory]()},
		{"managed", reflect.TypeFor[transaction.ManagedFactory]()},
		{"DB_VENDOR", reflect.TypeFor[mapping.VendorDatabaseIDProvider]()},
		{"XML", reflect.TypeFor[scripting.XMLDriver]()},
		{"Starlark", reflect.TypeFor[scripting.StarlarkDriver]()},
		{"SLOG_JSON", reflect.TypeFor[logging.JSON]()},
		{"DIRECT", reflect.TypeFor[DirectProxyFactory]()},
		{"string", reflect.TypeFor[string]()},
	}
	for _, tt := range tests {
		t.Run(tt.alias, func(t *testing.T) {
			typ, err := c.ResolveType(tt.alias)
			require.NoError(t, err)
			assert.Equal(t, tt.want, typ.GoType)
		})
	}

	typ, err := c.ResolveType("")
	require.NoError(t, err)
	assert.Nil(t, typ)

	_, err = c.ResolveType("example.com/missing.Type")
	assert.ErrorIs(t, err, reflection.ErrTypeNotFound)
}

type shout struct{}

func (shout) CreateSQLSource(script string, _ *reflection.Type) (mapping.SQLSource, error) {
	return &mapping.StaticSQLSource{SQL: script + "!"}, nil
}

func TestConfiguration_LanguageDrivers(t *testing.T) {
	reg := reflection.NewTypeRegistry()
	reg.Register(reflection.Default().Types()...)
	shoutType := reflection.NewType[shout](reflection.WithAlias("SHOUT"))
	reg.Register(shoutType)
	c := NewConfiguration(reg, nil)

	d, ok := c.LanguageDriver("")
	require.True(t, ok)
	assert.IsType(t, &scripting.XMLDriver{}, d)

	d, ok = c.LanguageDriver("STARLARK")
	require.True(t, ok)
	assert.IsType(t, &scripting.StarlarkDriver{}, d)

	_, ok = c.LanguageDriver("nope")
	assert.False(t, ok)

	require.NoError(t, c.SetDefaultScriptingLanguage(shoutType))
	d, ok = c.LanguageDriver("")
	require.True(t, ok)
	src, err := d.CreateSQLSource("select 1", nil)
	require.NoError(t, err)
	b, err := src.BoundSQL(nil)
	require.NoError(t, err)
	assert.Equal(t, "select 1!", b.SQL)

	jdbc, err := c.ResolveType("JDBC")
	require.NoError(t, err)
	assert.ErrorContains(t, c.SetDefaultScriptingLanguage(jdbc), "is not a language driver")
}

func staticStatement(id string) *mapping.MappedStatement {
	return &mapping.MappedStatement{ID: id, SQLSource: &mapping.StaticSQLSource{SQL: "select 1"}}
}

func TestConfiguration_MappedStatements(t *testing.T) {
	c := NewConfiguration(nil, nil)
	require.NoError(t, c.AddMappedStatement(staticStatement("users.find")))
	require.NoError(t, c.AddMappedStatement(staticStatement("users.count")))
	require.NoError(t, c.AddMappedStatement(staticStatement("orders.count")))

	err := c.AddMappedStatement(staticStatement("users.find"))
	assert.ErrorContains(t, err, "already contains value for users.find")

	ms, err := c.MappedStatement("find")
	require.NoError(t, err)
	assert.Equal(t, "users.find", ms.ID)

	_, err = c.MappedStatement("count")
	assert.ErrorContains(t, err, "ambiguous")
	ms, err = c.MappedStatement("orders.count")
	require.NoError(t, err)
	assert.Equal(t, "orders.count", ms.ID)

	assert.False(t, c.HasStatement("users.missing"))

	var ids []string
	for _, ms := range c.MappedStatements() {
		ids = append(ids, ms.ID)
	}
	assert.Equal(t, []string{"orders.count", "users.count", "users.find"}, ids)
}

type pendingStatement struct {
	c     *Configuration
	ref   string
	id    string
	fails error
}

func (p *pendingStatement) Resolve() error {
	if p.fails != nil {
		return p.fails
	}
	if _, ok := p.c.SQLFragment(p.ref); !ok {
		return fmt.Errorf("could not find SQL fragment %s: %w", p.ref, ErrIncomplete)
	}
	return p.c.AddMappedStatement(staticStatement(p.id))
}

func TestConfiguration_Pending(t *testing.T) {
	c := NewConfiguration(nil, nil)
	c.AddPending(&pendingStatement{c: c, ref: "shared.columns", id: "users.list"})

	assert.False(t, c.HasStatement("users.list"))
	assert.Equal(t, 1, c.PendingCount())

	c.SetSQLFragment("shared.columns", nil)
	ms, err := c.MappedStatement("users.list")
	require.NoError(t, err)
	assert.Equal(t, "users.list", ms.ID)
	assert.Equal(t, 0, c.PendingCount())

	c.AddPending(&pendingStatement{fails: assert.AnError})
	_, err = c.MappedStatement("users.list")
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 0, c.PendingCount())
}

func TestConfiguration_MappedStatementsLogsDroppedPending(t *testing.T) {
	var buf bytes.Buffer
	c := NewConfiguration(nil, slog.New(slog.NewJSONHandler(&buf, nil)))
	require.NoError(t, c.AddMappedStatement(staticStatement("users.get")))
	c.AddPending(&pendingStatement{fails: errors.New("unknown result type example.com/missing.Type")})
	c.AddPending(&pendingStatement{c: c, ref: "shared.columns", id: "users.list"})

	got := c.MappedStatements()
	require.Len(t, got, 1)
	assert.Equal(t, "users.get", got[0].ID)
	assert.Equal(t, 1, c.PendingCount(), "incomplete statements stay pending")
	assert.Contains(t, buf.String(), `"level":"ERROR"`)
	assert.Contains(t, buf.String(), "dropping unresolvable statements")
	assert.Contains(t, buf.String(), "example.com/missing.Type")
}

func TestConfiguration_LoadedResources(t *testing.T) {
	c := NewConfiguration(nil, nil)
	c.AddLoadedResource("mappers/b.xml")
	c.AddLoadedResource("mappers/a.xml")
	assert.True(t, c.IsResourceLoaded("mappers/a.xml"))
	assert.False(t, c.IsResourceLoaded("mappers/c.xml"))
	assert.Equal(t, []string{"mappers/a.xml", "mappers/b.xml"}, c.LoadedResources())
}

func TestConfiguration_Logger(t *testing.T) {
	var buf bytes.Buffer
	c := NewConfiguration(nil, nil)
	c.SetLogImpl(&logging.JSON{Out: &buf, Level: slog.LevelDebug})
	c.SetLogPrefix("orders")
	c.Logger().Debug("hello")
	assert.Contains(t, buf.String(), `"prefix":"orders"`)
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	buf.Reset()
	c.SetLogImpl(nil)
	c.Logger().Info("discarded")
	assert.Empty(t, buf.String())
}

type color int

func (c color) String() string { return [...]string{"red", "green"}[c] }

func TestConfiguration_EnumTypeHandler(t *testing.T) {
	c := NewConfiguration(nil, nil)
	h, err := c.EnumTypeHandler(reflection.NewType[color]())
	require.NoError(t, err)
	require.IsType(t, &types.EnumHandler{}, h)
	v, err := h.Bind(color(1), core.SQLTypeUnset)
	require.NoError(t, err)
	assert.Equal(t, "green", v)
}

type prepareCounter struct{ calls int }

func (p *prepareCounter) Signatures() []plugin.Signature {
	return []plugin.Signature{plugin.On[executor.StatementHandler](executor.StatementHandlerPrepare)}
}

func (p *prepareCounter) Intercept(inv *plugin.Invocation) (any, error) {
	p.calls++
	return inv.Proceed()
}

func TestConfiguration_OpenExecutor(t *testing.T) {
	c := NewConfiguration(nil, nil)
	_, err := c.OpenExecutor(true)
	require.ErrorIs(t, err, ErrNoEnvironment)

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	env, err := mapping.NewEnvironment("dev", &transaction.JDBCFactory{}, db)
	require.NoError(t, err)
	c.SetEnvironment(env)
	c.Settings.MapUnderscoreToCamelCase = true

	counter := &prepareCounter{}
	c.AddInterceptor(counter)

	src, err := scripting.XMLDriver{}.CreateSQLSource("select user_name from users where id = #{id}", nil)
	require.NoError(t, err)
	require.NoError(t, c.AddMappedStatement(&mapping.MappedStatement{ID: "users.find", SQLSource: src}))

	mock.ExpectPrepare("select user_name from users where id = ?").
		ExpectQuery().WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"user_name"}).AddRow("cy"))

	exec, err := c.OpenExecutor(true)
	require.NoError(t, err)
	ms, err := c.MappedStatement("find")
	require.NoError(t, err)
	rows, err := exec.Query(t.Context(), ms, map[string]any{"id": 3})
	require.NoError(t, err)
	assert.Equal(t, []executor.Row{{"userName": "cy"}}, rows)
	assert.Equal(t, 1, counter.calls)

	require.NoError(t, exec.Close(false))
	assert.NoError(t, mock.ExpectationsWereMet())
}
