package parsing

import (
	"strings"
	"testing"

	"github.com/leapstack-labs/leapmapper/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVariables_Replace(t *testing.T) {
	tests := []struct {
		name  string
		props core.Properties
		in    string
		want  string
	}{
		{"known key", core.Properties{"user": "sa"}, "u=${user}", "u=sa"},
		{"unknown key kept", core.Properties{}, "u=${user}", "u=${user}"},
		{"several keys", core.Properties{"a": "1", "b": "2"}, "${a}-${b}", "1-2"},
		{"escaped", core.Properties{"a": "1"}, `\${a}`, "${a}"},
		{"unterminated", core.Properties{"a": "1"}, "x ${a", "x ${a"},
		{"default disabled", core.Properties{}, "${a:z}", "${a:z}"},
		{"default enabled", core.Properties{KeyEnableDefaultValue: "true"}, "${a:z}", "z"},
		{"default enabled known", core.Properties{KeyEnableDefaultValue: "true", "a": "1"}, "${a:z}", "1"},
		{
			"custom separator",
			core.Properties{KeyEnableDefaultValue: "true", KeyDefaultValueSeparator: "?:"},
			"${a?:z}",
			"z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewVariables(tt.props).Replace(tt.in))
		})
	}
}

const sampleXML = `<?xml version="1.0" encoding="UTF-8" ?>
<!DOCTYPE configuration>
<configuration>
  <!-- comment -->
  <properties resource="db.properties">
    <property name="driver" value="pgx"/>
  </properties>
  <environments default="dev">
    <environment id="dev">
      <dataSource type="POOLED">
        <property name="driver" value="${driver}"/>
      </dataSource>
    </environment>
  </environments>
</configuration>`

const sampleYAML = `
configuration:
  properties:
    resource: db.properties
    property:
      - name: driver
        value: pgx
  environments:
    default: dev
    environment:
      - id: dev
        dataSource:
          type: POOLED
          property:
            - name: driver
              value: ${driver}
`

func TestDecode_Formats(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		format Format
	}{
		{"xml explicit", sampleXML, FormatXML},
		{"xml sniffed", sampleXML, FormatAuto},
		{"yaml explicit", sampleYAML, FormatYAML},
		{"yaml sniffed", sampleYAML, FormatAuto},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Decode(strings.NewReader(tt.input), tt.format, nil)
			require.NoError(t, err)

			root, err := doc.Root("configuration")
			require.NoError(t, err)

			props := root.Child("properties")
			require.NotNil(t, props)
			assert.Equal(t, "db.properties", props.StringAttr("resource"))
			assert.Equal(t, core.Properties{"driver": "pgx"}, props.ChildrenAsProperties())

			envs := root.Child("environments")
			assert.Equal(t, "dev", envs.StringAttr("default"))
			require.Len(t, envs.Elements(), 1)

			ds := envs.Elements()[0].Child("dataSource")
			assert.Equal(t, core.Properties{"driver": "${driver}"}, ds.ChildrenAsProperties())

			// Variables installed later are seen by later reads.
			doc.SetVariables(core.Properties{"driver": "sqlite"})
			assert.Equal(t, core.Properties{"driver": "sqlite"}, ds.ChildrenAsProperties())
		})
	}
}

func TestDecode_RootMismatch(t *testing.T) {
	doc, err := Decode(strings.NewReader(`<mapper namespace="x"/>`), FormatAuto, nil)
	require.NoError(t, err)

	_, err = doc.Root("configuration")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "<mapper>")
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		format Format
	}{
		{"broken xml", "<configuration><settings></configuration>", FormatXML},
		{"empty xml", "   ", FormatXML},
		{"yaml with two roots", "a: {}\nb: {}\n", FormatYAML},
		{"yaml broken", "a: [\n", FormatYAML},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input), tt.format, nil)
			assert.Error(t, err)
		})
	}
}

func TestNode_MixedContent(t *testing.T) {
	xmlDoc := `<mapper namespace="m"><select id="s">select * from t <include refid="where"/> order by id</select></mapper>`
	yamlDoc := `
mapper:
  namespace: m
  select:
    - id: s
      _body:
        - "select * from t "
        - include: {refid: where}
        - " order by id"
`
	for name, input := range map[string]string{"xml": xmlDoc, "yaml": yamlDoc} {
		t.Run(name, func(t *testing.T) {
			doc, err := Decode(strings.NewReader(input), FormatAuto, nil)
			require.NoError(t, err)
			root, err := doc.Root("mapper")
			require.NoError(t, err)

			sel := root.Child("select")
			require.NotNil(t, sel)
			children := sel.Children()
			require.Len(t, children, 3)
			assert.True(t, children[0].IsText())
			assert.Equal(t, "include", children[1].Name())
			assert.Equal(t, "where", children[1].StringAttr("refid"))
			assert.Equal(t, "select * from t  order by id", sel.Body())
		})
	}
}

func TestNode_TypedAttrs(t *testing.T) {
	doc, err := Decode(strings.NewReader(`<x flag="true" n="12" bad="x"/>`), FormatXML, nil)
	require.NoError(t, err)
	root, err := doc.Root("x")
	require.NoError(t, err)

	b, err := root.BoolAttr("flag", false)
	require.NoError(t, err)
	assert.True(t, b)

	n, err := root.IntAttr("n")
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, 12, *n)

	missing, err := root.IntAttr("missing")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = root.IntAttr("bad")
	assert.Error(t, err)
	assert.Equal(t, "def", root.StringAttrOr("missing", "def"))
	assert.Equal(t, []string{"flag", "n", "bad"}, root.AttrNames())
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("YAML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	_, err = ParseFormat("toml")
	assert.Error(t, err)
}
