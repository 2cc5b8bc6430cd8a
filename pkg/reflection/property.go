package reflection

import (
	"fmt"
	"reflect"
	"strings"
)

// GetProperty reads a dotted property path from obj. Maps are indexed by
// key; struct fields match by name case-insensitively or by `db` tag. A
// wrapper factory, when given, handles objects it claims.
func GetProperty(obj any, path string, wf ObjectWrapperFactory) (any, error) {
	cur := obj
	for _, name := range strings.Split(path, ".") {
		if cur == nil {
			return nil, nil
		}
		if wf != nil && wf.HasWrapperFor(cur) {
			w, err := wf.WrapperFor(cur)
			if err != nil {
				return nil, err
			}
			v, err := w.Get(name)
			if err != nil {
				return nil, err
			}
			cur = v
			continue
		}
		v, err := getOne(cur, name)
		if err != nil {
			return nil, fmt.Errorf("property '%s' of %T: %w", path, obj, err)
		}
		cur = v
	}
	return cur, nil
}

func getOne(obj any, name string) (any, error) {
	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("map key type %s is not a string", rv.Type().Key())
		}
		v := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil, nil
		}
		return v.Interface(), nil
	case reflect.Struct:
		t := rv.Type()
		for i := range t.NumField() {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			if f.Tag.Get("db") == name || strings.EqualFold(f.Name, name) {
				return rv.Field(i).Interface(), nil
			}
		}
		return nil, fmt.Errorf("there is no getter for property named '%s' in '%s'", name, t)
	default:
		return nil, fmt.Errorf("cannot read '%s' from %s", name, rv.Kind())
	}
}
