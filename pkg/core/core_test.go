package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProperties_MergeOverwrites(t *testing.T) {
	p := Properties{"a": "1", "b": "2"}
	p.Merge(Properties{"b": "3", "c": "4"})

	assert.Equal(t, Properties{"a": "1", "b": "3", "c": "4"}, p)
	assert.Equal(t, []string{"a", "b", "c"}, p.Keys())
}

func TestProperties_Accessors(t *testing.T) {
	var nilProps Properties
	_, ok := nilProps.Get("x")
	assert.False(t, ok)
	assert.Equal(t, "def", nilProps.GetOr("x", "def"))
	assert.NotNil(t, nilProps.Clone())

	p := Properties{"flag": "true", "bad": "maybe"}
	assert.True(t, p.Bool("flag", false))
	assert.True(t, p.Bool("bad", true))
	assert.False(t, p.Bool("missing", false))
}

func TestParseEnums(t *testing.T) {
	tests := []struct {
		name    string
		parse   func() (string, error)
		want    string
		wantErr bool
	}{
		{"auto mapping", func() (string, error) { v, err := ParseAutoMappingBehavior("FULL"); return v.String(), err }, "FULL", false},
		{"auto mapping lower case", func() (string, error) { v, err := ParseAutoMappingBehavior("full"); return v.String(), err }, "", true},
		{"executor", func() (string, error) { v, err := ParseExecutorType("REUSE"); return v.String(), err }, "REUSE", false},
		{"cache scope", func() (string, error) { v, err := ParseLocalCacheScope("STATEMENT"); return v.String(), err }, "STATEMENT", false},
		{"result set", func() (string, error) { v, err := ParseResultSetType("SCROLL_SENSITIVE"); return v.String(), err }, "SCROLL_SENSITIVE", false},
		{"unknown column", func() (string, error) {
			v, err := ParseAutoMappingUnknownColumnBehavior("WARNING")
			return v.String(), err
		}, "WARNING", false},
		{"sql type", func() (string, error) { v, err := ParseSQLType("VARCHAR"); return v.String(), err }, "VARCHAR", false},
		{"sql type empty", func() (string, error) { v, err := ParseSQLType(""); return v.String(), err }, "", true},
		{"sql type unknown", func() (string, error) { v, err := ParseSQLType("TEXTISH"); return v.String(), err }, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.parse()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrUnknownEnumValue))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlaceholderStyle_Format(t *testing.T) {
	assert.Equal(t, "?", PlaceholderQuestion.Format(3))
	assert.Equal(t, "$3", PlaceholderDollar.Format(3))
}
