package builder

import (
	"strings"
	"testing"

	"github.com/leapstack-labs/leapmapper/internal/testutil"
	"github.com/leapstack-labs/leapmapper/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMapperConfig(t *testing.T, databaseID string) *session.Configuration {
	t.Helper()
	cfg := session.NewConfiguration(testRegistry(), testutil.NewTestLogger(t))
	cfg.SetDatabaseID(databaseID)
	return cfg
}

func parseMapper(cfg *session.Configuration, resource, xml string) error {
	return NewMapperBuilder(cfg, strings.NewReader(xml), resource).Parse()
}

func TestMapperBuilder_ForwardInclude(t *testing.T) {
	cfg := newMapperConfig(t, "")

	require.NoError(t, parseMapper(cfg, "orders.xml", `<mapper namespace="orders">
  <select id="all">select <include refid="columns.order"/> from orders</select>
</mapper>`))
	assert.Equal(t, 1, cfg.PendingCount())
	_, ok := cfg.LookupStatement("orders.all")
	assert.False(t, ok)

	require.NoError(t, parseMapper(cfg, "columns.xml", `<mapper namespace="columns">
  <sql id="order">id, total</sql>
</mapper>`))
	assert.Equal(t, 0, cfg.PendingCount())
	assert.Equal(t, "select id, total from orders", boundSQL(t, cfg, "orders.all", nil))
}

func TestMapperBuilder_DatabaseIDSelection(t *testing.T) {
	const xml = `<mapper namespace="clock">
  <sql id="fn">now()</sql>
  <sql id="fn" databaseId="sqlite">datetime('now')</sql>
  <select id="now">select <include refid="fn"/></select>
  <select id="now" databaseId="duckdb">select current_timestamp</select>
  <select id="today" databaseId="sqlite">select date('now')</select>
</mapper>`

	tests := []struct {
		name       string
		databaseID string
		wantNow    string
		wantToday  bool
	}{
		{name: "no database id", databaseID: "", wantNow: "select now()"},
		{name: "sqlite fragment", databaseID: "sqlite", wantNow: "select datetime('now')", wantToday: true},
		{name: "duckdb statement", databaseID: "duckdb", wantNow: "select current_timestamp"},
		{name: "unmatched vendor", databaseID: "oracle", wantNow: "select now()"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newMapperConfig(t, tt.databaseID)
			require.NoError(t, parseMapper(cfg, "clock.xml", xml))

			assert.Equal(t, tt.wantNow, boundSQL(t, cfg, "clock.now", nil))
			assert.Equal(t, tt.wantToday, cfg.HasStatement("clock.today"))
		})
	}
}

func TestMapperBuilder_ShortNames(t *testing.T) {
	cfg := newMapperConfig(t, "")
	require.NoError(t, parseMapper(cfg, "a.xml", `<mapper namespace="a">
  <select id="list">select 1</select>
  <select id="count">select count(*) from a</select>
</mapper>`))
	require.NoError(t, parseMapper(cfg, "b.xml", `<mapper namespace="b">
  <select id="list">select 2</select>
</mapper>`))

	ms, err := cfg.MappedStatement("count")
	require.NoError(t, err)
	assert.Equal(t, "a.count", ms.ID)

	_, err = cfg.MappedStatement("list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ambiguous")
}

func TestMapperBuilder_ResourceParsedOnce(t *testing.T) {
	cfg := newMapperConfig(t, "")
	const xml = `<mapper namespace="once"><select id="one">select 1</select></mapper>`

	require.NoError(t, parseMapper(cfg, "once.xml", xml))
	require.NoError(t, parseMapper(cfg, "once.xml", xml))
	assert.Equal(t, []string{"once.xml"}, cfg.LoadedResources())
}

func TestMapperBuilder_Failures(t *testing.T) {
	tests := []struct {
		name    string
		xml     string
		wantErr string
	}{
		{
			name:    "empty namespace",
			xml:     `<mapper><select id="a">select 1</select></mapper>`,
			wantErr: "namespace cannot be empty",
		},
		{
			name:    "unknown element",
			xml:     `<mapper namespace="n"><resultMap id="r"/></mapper>`,
			wantErr: "resultMap",
		},
		{
			name:    "dotted statement id",
			xml:     `<mapper namespace="n"><select id="other.a">select 1</select></mapper>`,
			wantErr: "dots are not allowed",
		},
		{
			name:    "missing statement id",
			xml:     `<mapper namespace="n"><select>select 1</select></mapper>`,
			wantErr: "id",
		},
		{
			name: "circular include",
			xml: `<mapper namespace="n">
  <sql id="a">x <include refid="b"/></sql>
  <sql id="b">y <include refid="a"/></sql>
  <select id="loop">select <include refid="a"/></select>
</mapper>`,
			wantErr: "circular include of n.a",
		},
		{
			name:    "dynamic element",
			xml:     `<mapper namespace="n"><select id="a">select 1 <if test="x">and 1</if></select></mapper>`,
			wantErr: "unsupported element <if>",
		},
		{
			name: "duplicate statement",
			xml: `<mapper namespace="n">
  <select id="a">select 1</select>
  <select id="a">select 2</select>
</mapper>`,
			wantErr: "already contains value for n.a",
		},
		{
			name:    "unknown result type",
			xml:     `<mapper namespace="n"><select id="a" resultType="example.com/missing.Type">select 1</select></mapper>`,
			wantErr: "statement n.a",
		},
		{
			name:    "wrong root",
			xml:     `<configuration/>`,
			wantErr: "mapper",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newMapperConfig(t, "")
			err := parseMapper(cfg, "bad.xml", tt.xml)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.NotContains(t, cfg.LoadedResources(), "bad.xml")
		})
	}
}
