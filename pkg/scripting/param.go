package scripting

import "reflect"

// IsComplex reports whether param holds named properties (a map or a
// struct, possibly behind pointers) rather than being a single value.
func IsComplex(param any) bool {
	if param == nil {
		return false
	}
	t := reflect.TypeOf(param)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() == reflect.Map {
		return true
	}
	return t.Kind() == reflect.Struct && t.PkgPath() != "time"
}
