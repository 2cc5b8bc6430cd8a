package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/leapstack-labs/leapmapper/internal/cli/config"
	"github.com/leapstack-labs/leapmapper/internal/cli/output"
	clitest "github.com/leapstack-labs/leapmapper/internal/cli/testutil"
	"github.com/leapstack-labs/leapmapper/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/leapstack-labs/leapmapper/pkg/datasource/drivers"
	_ "github.com/leapstack-labs/leapmapper/pkg/plugins/pagination"
)

const checkDescription = `<?xml version="1.0" encoding="UTF-8"?>
<configuration>
  <properties>
    <property name="table" value="users"/>
  </properties>
  <settings>
    <setting name="defaultFetchSize" value="50"/>
  </settings>
  <typeAliases>
    <typeAlias alias="pager" type="github.com/leapstack-labs/leapmapper/pkg/plugins/pagination.Interceptor"/>
  </typeAliases>
  <plugins>
    <plugin interceptor="pager">
      <property name="sqlType" value="mysql"/>
    </plugin>
  </plugins>
  <mappers>
    <mapper resource="mappers/users.xml"/>
  </mappers>
</configuration>
`

const checkMapper = `<?xml version="1.0" encoding="UTF-8"?>
<mapper namespace="users">
  <select id="listByPage" resultType="map">select id, name from ${table}</select>
  <insert id="insert">insert into ${table} (name) values (#{name})</insert>
</mapper>
`

// writeProject lays out a description and its mapper under a temp dir.
func writeProject(t *testing.T, description string) *config.Config {
	t.Helper()
	dir := clitest.SetupTestProject(t, description, map[string]string{"mappers/users.xml": checkMapper})
	return &config.Config{
		Description: filepath.Join(dir, clitest.DescriptionFile),
		Resources:   dir,
		Format:      config.DefaultFormat,
		Variables:   map[string]string{},
	}
}

// syncBuffer is written by the watch loop while the test reads it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestContext(t *testing.T, mode output.OutputMode) (*CommandContext, *clitest.TestRenderer) {
	t.Helper()
	tr := clitest.NewTestRenderer(mode, false)
	return &CommandContext{
		Logger:   testutil.NewTestLogger(t),
		Renderer: tr.Renderer,
	}, tr
}

// runCheck checks a single description.
func runCheck(cmdCtx *CommandContext, cfg *config.Config) error {
	return checkAll(cmdCtx, []*config.Config{cfg})
}

func TestRunCheck_JSON(t *testing.T) {
	cfg := writeProject(t, checkDescription)
	cmdCtx, tr := newTestContext(t, output.ModeJSON)

	require.NoError(t, runCheck(cmdCtx, cfg))

	var got Summary
	require.NoError(t, json.Unmarshal(tr.Out.Bytes(), &got))

	assert.Equal(t, cfg.Description, got.Description)
	assert.Empty(t, got.Environment)
	assert.Equal(t, map[string]string{"defaultFetchSize": "50"}, got.Settings)
	assert.Equal(t, "github.com/leapstack-labs/leapmapper/pkg/plugins/pagination.Interceptor", got.Aliases["pager"])
	assert.Equal(t, []string{"*pagination.Interceptor"}, got.Interceptors)
	assert.Equal(t, []string{"mappers/users.xml"}, got.Resources)
	assert.Zero(t, got.Pending)

	require.Len(t, got.Statements, 2)
	assert.Equal(t, StatementInfo{ID: "users.insert", Command: "INSERT", Resource: "mappers/users.xml"}, got.Statements[0])
	assert.Equal(t, StatementInfo{ID: "users.listByPage", Command: "SELECT", Resource: "mappers/users.xml"}, got.Statements[1])
}

func TestRunCheck_Markdown(t *testing.T) {
	cfg := writeProject(t, checkDescription)
	cmdCtx, tr := newTestContext(t, output.ModeMarkdown)

	require.NoError(t, runCheck(cmdCtx, cfg))

	got := tr.Output()
	clitest.AssertValidMarkdown(t, got)
	clitest.AssertNoANSI(t, got)
	assert.Contains(t, got, "# Configuration "+cfg.Description)
	assert.Contains(t, got, "## Statements")
	assert.Contains(t, got, "| users.listByPage | SELECT |")
	assert.Contains(t, got, "| defaultFetchSize | 50 |")
	assert.Contains(t, got, "*pagination.Interceptor")
	assert.Contains(t, got, "2 statement(s) from 1 resource(s)")
}

func TestRunCheck_Variables(t *testing.T) {
	description := `<configuration>
  <mappers><mapper resource="${dir}/users.xml"/></mappers>
</configuration>`
	cfg := writeProject(t, description)
	cfg.Variables = map[string]string{"dir": "mappers", "table": "people"}
	cmdCtx, tr := newTestContext(t, output.ModeJSON)

	require.NoError(t, runCheck(cmdCtx, cfg))

	var got Summary
	require.NoError(t, json.Unmarshal(tr.Out.Bytes(), &got))
	assert.Len(t, got.Statements, 2)
	assert.Empty(t, got.Interceptors)
}

func TestRunCheck_Failure(t *testing.T) {
	tests := []struct {
		name        string
		description string
		wantErr     string
	}{
		{
			name:        "unknown setting",
			description: `<configuration><settings><setting name="noSuchSetting" value="1"/></settings></configuration>`,
			wantErr:     "noSuchSetting",
		},
		{
			name:        "missing mapper resource",
			description: `<configuration><mappers><mapper resource="mappers/missing.xml"/></mappers></configuration>`,
			wantErr:     "mappers/missing.xml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := writeProject(t, tt.description)
			cmdCtx, tr := newTestContext(t, output.ModeText)

			err := runCheck(cmdCtx, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Contains(t, tr.ErrorOutput(), tt.wantErr)
			assert.Empty(t, tr.Output())
		})
	}
}

func TestCheckAll_Several(t *testing.T) {
	good := writeProject(t, checkDescription)
	bad := writeProject(t, `<configuration><settings><setting name="noSuchSetting" value="1"/></settings></configuration>`)
	other := writeProject(t, `<configuration><mappers><mapper resource="mappers/users.xml"/></mappers></configuration>`)
	cmdCtx, tr := newTestContext(t, output.ModeJSON)

	err := checkAll(cmdCtx, []*config.Config{good, bad, other})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "noSuchSetting")
	assert.Contains(t, tr.ErrorOutput(), "noSuchSetting")

	var got []Summary
	require.NoError(t, json.Unmarshal(tr.Out.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, good.Description, got[0].Description)
	assert.Equal(t, other.Description, got[1].Description)
	assert.Len(t, got[0].Interceptors, 1)
	assert.Empty(t, got[1].Interceptors)
}

const sqliteDescription = `<configuration>
  <environments default="dev">
    <environment id="dev">
      <transactionManager type="JDBC"/>
      <dataSource type="POOLED">
        <property name="driver" value="sqlite"/>
        <property name="url" value="${dbfile}"/>
      </dataSource>
    </environment>
  </environments>
  <mappers><mapper resource="mappers/users.xml"/></mappers>
</configuration>`

func TestCheckAll_ReleasesDataSources(t *testing.T) {
	good := writeProject(t, sqliteDescription)
	good.Variables = map[string]string{"dbfile": filepath.Join(t.TempDir(), "app.db"), "table": "users"}
	// The mapper resource is missing, so assembly fails after the environment is open.
	bad := writeProject(t, strings.Replace(sqliteDescription, "mappers/users.xml", "mappers/missing.xml", 1))
	bad.Variables = good.Variables
	cmdCtx, tr := newTestContext(t, output.ModeJSON)

	before := runtime.NumGoroutine()
	for range 10 {
		tr.Out.Reset()
		require.Error(t, checkAll(cmdCtx, []*config.Config{good, bad}))
	}

	var got []Summary
	require.NoError(t, json.Unmarshal(tr.Out.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "dev", got[0].Environment)

	assert.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before+2
	}, 2*time.Second, 20*time.Millisecond, "goroutines before=%d after=%d", before, runtime.NumGoroutine())
}

func TestRunCheck_MissingDescription(t *testing.T) {
	cmdCtx, _ := newTestContext(t, output.ModeText)
	cfg := &config.Config{Description: filepath.Join(t.TempDir(), "absent.xml"), Format: "auto"}

	err := runCheck(cmdCtx, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opening description")
}

func TestRunCheck_BadFormat(t *testing.T) {
	cfg := writeProject(t, checkDescription)
	cfg.Format = "toml"
	cmdCtx, _ := newTestContext(t, output.ModeText)

	require.Error(t, runCheck(cmdCtx, cfg))
}

func TestWatchCheck_RerunsOnChange(t *testing.T) {
	cfg := writeProject(t, checkDescription)
	out := &syncBuffer{}
	cmdCtx := &CommandContext{
		Logger:   testutil.NewTestLogger(t),
		Renderer: output.NewRendererWithTTY(out, out, false, output.ModeMarkdown),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- watchCheck(ctx, cmdCtx, cfg) }()

	mapper := filepath.Join(cfg.Resources, "mappers", "users.xml")
	require.Eventually(t, func() bool {
		// Touch the mapper until the watcher is registered and a rerun lands.
		_ = os.WriteFile(mapper, []byte(checkMapper), 0o600)
		return strings.Count(out.String(), "## Statements") >= 2
	}, 5*time.Second, 200*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch loop did not stop")
	}
}

func TestWatchCheck_StopsWhenCancelled(t *testing.T) {
	cfg := writeProject(t, checkDescription)
	cmdCtx, tr := newTestContext(t, output.ModeMarkdown)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, watchCheck(ctx, cmdCtx, cfg))
	assert.Contains(t, tr.Output(), "## Statements")
}

func TestWatchCheck_MissingDir(t *testing.T) {
	cmdCtx, _ := newTestContext(t, output.ModeText)
	cfg := &config.Config{Description: filepath.Join(t.TempDir(), "absent", "config.xml")}

	err := watchCheck(context.Background(), cmdCtx, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to watch")
}
