package scripting

import (
	"fmt"
	"reflect"

	"github.com/leapstack-labs/leapmapper/pkg/mapping"
	"github.com/leapstack-labs/leapmapper/pkg/reflection"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// StarlarkDriver runs statement text as a Starlark program. The program
// sees the parameter as the global "params" and must assign the global
// "sql"; the resulting text may use #{} tokens.
//
//	sql = "select * from users"
//	if params.get("name"):
//	    sql += " where name = #{name}"
type StarlarkDriver struct{}

var fileOptions = &syntax.FileOptions{
	TopLevelControl: true,
	GlobalReassign:  true,
}

func (StarlarkDriver) CreateSQLSource(script string, _ *reflection.Type) (mapping.SQLSource, error) {
	_, prog, err := starlark.SourceProgramOptions(fileOptions, "statement.star", script, func(name string) bool {
		return name == "params"
	})
	if err != nil {
		return nil, fmt.Errorf("invalid starlark statement: %w", err)
	}
	return &StarlarkSQLSource{prog: prog}, nil
}

// StarlarkSQLSource evaluates a compiled program per binding.
type StarlarkSQLSource struct {
	prog *starlark.Program
}

func (s *StarlarkSQLSource) BoundSQL(param any) (*mapping.BoundSQL, error) {
	params, err := goToStarlark(param)
	if err != nil {
		return nil, fmt.Errorf("params: %w", err)
	}
	thread := &starlark.Thread{
		Name:  "statement",
		Print: func(*starlark.Thread, string) {},
	}
	globals, err := s.prog.Init(thread, starlark.StringDict{"params": params})
	if err != nil {
		return nil, fmt.Errorf("starlark statement failed: %w", err)
	}
	v, ok := globals["sql"]
	if !ok {
		return nil, fmt.Errorf("starlark statement did not assign sql")
	}
	text, ok := starlark.AsString(v)
	if !ok {
		return nil, fmt.Errorf("starlark sql must be a string, got %s", v.Type())
	}
	sql, mappings, err := parseParameters(text)
	if err != nil {
		return nil, err
	}
	return &mapping.BoundSQL{SQL: sql, ParameterMappings: mappings, Parameter: param}, nil
}

// goToStarlark converts parameter values. Structs become dicts keyed by
// field name.
func goToStarlark(v any) (starlark.Value, error) {
	switch val := v.(type) {
	case nil:
		return starlark.None, nil
	case starlark.Value:
		return val, nil
	case string:
		return starlark.String(val), nil
	case bool:
		return starlark.Bool(val), nil
	case int:
		return starlark.MakeInt(val), nil
	case int64:
		return starlark.MakeInt64(val), nil
	case float64:
		return starlark.Float(val), nil
	case fmt.Stringer:
		return starlark.String(val.String()), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return starlark.None, nil
		}
		return goToStarlark(rv.Elem().Interface())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return starlark.MakeInt64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return starlark.MakeUint64(rv.Uint()), nil
	case reflect.Float32:
		return starlark.Float(rv.Float()), nil
	case reflect.Slice, reflect.Array:
		list := make([]starlark.Value, rv.Len())
		for i := range rv.Len() {
			sv, err := goToStarlark(rv.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("list index %d: %w", i, err)
			}
			list[i] = sv
		}
		return starlark.NewList(list), nil
	case reflect.Map:
		dict := starlark.NewDict(rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := fmt.Sprint(iter.Key().Interface())
			sv, err := goToStarlark(iter.Value().Interface())
			if err != nil {
				return nil, fmt.Errorf("dict key %q: %w", k, err)
			}
			if err := dict.SetKey(starlark.String(k), sv); err != nil {
				return nil, err
			}
		}
		return dict, nil
	case reflect.Struct:
		t := rv.Type()
		dict := starlark.NewDict(t.NumField())
		for i := range t.NumField() {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			sv, err := goToStarlark(rv.Field(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", f.Name, err)
			}
			if err := dict.SetKey(starlark.String(f.Name), sv); err != nil {
				return nil, err
			}
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}
