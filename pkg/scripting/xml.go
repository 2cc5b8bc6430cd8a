package scripting

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/leapmapper/pkg/mapping"
	"github.com/leapstack-labs/leapmapper/pkg/reflection"
)

// XMLDriver is the default language driver. Text with ${} tokens becomes a
// dynamic source substituted from the parameter at bind time.
type XMLDriver struct{}

func (XMLDriver) CreateSQLSource(script string, _ *reflection.Type) (mapping.SQLSource, error) {
	if hasToken(script, "${") {
		return &DynamicSQLSource{Script: script}, nil
	}
	return newStaticSource(script)
}

// RawDriver accepts static text only.
type RawDriver struct{}

// ErrDynamicRaw is returned when RAW text contains ${} tokens.
var ErrDynamicRaw = errors.New("dynamic SQL is not supported by the RAW language driver")

func (RawDriver) CreateSQLSource(script string, _ *reflection.Type) (mapping.SQLSource, error) {
	if hasToken(script, "${") {
		return nil, ErrDynamicRaw
	}
	return newStaticSource(script)
}

func newStaticSource(script string) (mapping.SQLSource, error) {
	sql, mappings, err := parseParameters(script)
	if err != nil {
		return nil, err
	}
	return &mapping.StaticSQLSource{SQL: sql, Mappings: mappings}, nil
}

// DynamicSQLSource substitutes ${} tokens from the parameter, then binds
// #{} tokens.
type DynamicSQLSource struct {
	Script string
}

func (s *DynamicSQLSource) BoundSQL(param any) (*mapping.BoundSQL, error) {
	text, err := replaceTokens(s.Script, "${", "}", func(name string) (string, error) {
		v, err := lookup(param, name)
		if err != nil {
			return "", err
		}
		if v == nil {
			return "", nil
		}
		return fmt.Sprint(v), nil
	})
	if err != nil {
		return nil, err
	}
	sql, mappings, err := parseParameters(text)
	if err != nil {
		return nil, err
	}
	return &mapping.BoundSQL{SQL: sql, ParameterMappings: mappings, Parameter: param}, nil
}

// lookup reads name from a map or struct parameter; any other parameter is
// its own value.
func lookup(param any, name string) (any, error) {
	if !IsComplex(param) {
		return param, nil
	}
	return reflection.GetProperty(param, name, nil)
}
