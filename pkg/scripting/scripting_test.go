package scripting

import (
	"testing"

	"github.com/leapstack-labs/leapmapper/pkg/core"
	"github.com/leapstack-labs/leapmapper/pkg/mapping"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXMLDriver_Static(t *testing.T) {
	src, err := XMLDriver{}.CreateSQLSource(
		"select * from users where id = #{id} and name = #{ name , sqlType=VARCHAR } and note = '\\#{kept}'", nil)
	require.NoError(t, err)
	require.IsType(t, &mapping.StaticSQLSource{}, src)

	b, err := src.BoundSQL(map[string]any{"id": 1})
	require.NoError(t, err)
	assert.Equal(t, "select * from users where id = ? and name = ? and note = '#{kept}'", b.SQL)
	assert.Equal(t, []mapping.ParameterMapping{
		{Property: "id"},
		{Property: "name", SQLType: core.SQLTypeVarchar},
	}, b.ParameterMappings)
}

func TestXMLDriver_Dynamic(t *testing.T) {
	src, err := XMLDriver{}.CreateSQLSource("select * from ${table} where id = #{id} order by ${order}", nil)
	require.NoError(t, err)
	require.IsType(t, &DynamicSQLSource{}, src)

	b, err := src.BoundSQL(map[string]any{"table": "users", "id": 3, "order": "name"})
	require.NoError(t, err)
	assert.Equal(t, "select * from users where id = ? order by name", b.SQL)
	assert.Len(t, b.ParameterMappings, 1)

	b, err = src.BoundSQL("accounts")
	require.NoError(t, err)
	assert.Equal(t, "select * from accounts where id = ? order by accounts", b.SQL)
}

func TestXMLDriver_Errors(t *testing.T) {
	tests := []struct {
		name   string
		script string
	}{
		{"empty property", "select #{}"},
		{"unknown sql type", "select #{id,sqlType=WIDE}"},
		{"unknown attribute", "select #{id,mode=IN}"},
		{"malformed attribute", "select #{id,VARCHAR}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := XMLDriver{}.CreateSQLSource(tt.script, nil)
			assert.Error(t, err)
		})
	}
}

func TestRawDriver(t *testing.T) {
	_, err := RawDriver{}.CreateSQLSource("select * from ${t}", nil)
	assert.ErrorIs(t, err, ErrDynamicRaw)

	src, err := RawDriver{}.CreateSQLSource("select '\\${x}' from t where a = #{a}", nil)
	require.NoError(t, err)
	b, err := src.BoundSQL(nil)
	require.NoError(t, err)
	assert.Equal(t, "select '${x}' from t where a = ?", b.SQL)
}

func TestStarlarkDriver(t *testing.T) {
	script := `
sql = "select * from users"
if params.get("name"):
    sql += " where name = #{name}"
`
	src, err := StarlarkDriver{}.CreateSQLSource(script, nil)
	require.NoError(t, err)

	b, err := src.BoundSQL(map[string]any{"name": "ann"})
	require.NoError(t, err)
	assert.Equal(t, "select * from users where name = ?", b.SQL)
	assert.Equal(t, "name", b.ParameterMappings[0].Property)

	b, err = src.BoundSQL(map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "select * from users", b.SQL)
	assert.Empty(t, b.ParameterMappings)

	_, err = StarlarkDriver{}.CreateSQLSource("sql = (", nil)
	assert.Error(t, err)

	src, err = StarlarkDriver{}.CreateSQLSource("x = 1", nil)
	require.NoError(t, err)
	_, err = src.BoundSQL(nil)
	assert.ErrorContains(t, err, "did not assign sql")
}

func TestGoToStarlark_Struct(t *testing.T) {
	type filter struct {
		Name  string
		Limit int32
		Tags  []string
		note  string
	}
	v, err := goToStarlark(&filter{Name: "a", Limit: 5, Tags: []string{"x"}, note: "hidden"})
	require.NoError(t, err)
	assert.Equal(t, `{"Name": "a", "Limit": 5, "Tags": ["x"]}`, v.String())
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.IsType(t, &XMLDriver{}, r.Default())

	require.Error(t, r.SetDefault("RAW"))
	r.Register("raw", RawDriver{})
	require.NoError(t, r.SetDefault("raw"))
	assert.Equal(t, "raw", r.DefaultName())
	assert.IsType(t, RawDriver{}, r.Default())
	assert.Len(t, r.Names(), 2)
}
