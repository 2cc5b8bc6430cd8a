package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/leapmapper/internal/cli/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeRoot(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	config.ResetConfig()
	cfgFile = ""
	t.Cleanup(config.ResetConfig)

	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	cmd := NewRootCmd()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	cmd := NewRootCmd()
	for _, name := range []string{"check", "version", "completion"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}

	for _, flag := range []string{"config", "description", "env", "format", "var", "resources", "verbose", "output"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestRootCmd_Version(t *testing.T) {
	out, _, err := executeRoot(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "leapmapper v"+Version)
}

func TestRootCmd_Completion(t *testing.T) {
	out, _, err := executeRoot(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "leapmapper")

	_, _, err = executeRoot(t, "completion", "tcsh")
	require.Error(t, err)
}

func TestRootCmd_Check(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "conf", "mappers"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "conf", "app.xml"), []byte(`<configuration>
  <mappers><mapper resource="mappers/items.xml"/></mappers>
</configuration>`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "conf", "mappers", "items.xml"), []byte(`<mapper namespace="items">
  <select id="${name}" resultType="map">select * from items</select>
</mapper>`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "leapmapper.yaml"), []byte("description: conf/app.xml\noutput: json\n"), 0o600))

	out, _, err := executeRoot(t, "check", "--var", "name=listAll")
	require.NoError(t, err)

	var got struct {
		Statements []struct {
			ID string `json:"id"`
		} `json:"statements"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Statements, 1)
	assert.Equal(t, "items.listAll", got.Statements[0].ID)
}

func TestRootCmd_CheckFailure(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.xml"), []byte(`<configuration><settings><setting name="cacheenabled" value="true"/></settings></configuration>`), 0o600))

	_, errOut, err := executeRoot(t, "check", "broken.xml", "-o", "text")
	require.Error(t, err)
	assert.Contains(t, errOut, "error:")
	assert.Contains(t, err.Error(), "cacheenabled")
}

func TestGetConfig_Default(t *testing.T) {
	cfg := GetConfig(context.Background())
	assert.Equal(t, config.DefaultDescription, cfg.Description)
	assert.Equal(t, config.DefaultFormat, cfg.Format)
	assert.NotNil(t, GetRenderer(context.Background()))
}
