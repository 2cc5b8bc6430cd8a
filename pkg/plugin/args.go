package plugin

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrInvalidArgument is returned when the arguments an interceptor passed
// on do not fit the intercepted method.
var ErrInvalidArgument = errors.New("invalid argument")

// Arg returns args[i] as a T. A nil value is accepted for pointer, interface
// and other nilable types. Interceptors may replace Invocation.Args, so
// wrappers read their arguments through Arg instead of asserting directly.
func Arg[T any](args []any, i int, m Method) (T, error) {
	var zero T
	want := reflect.TypeFor[T]()
	if i < 0 || i >= len(args) {
		return zero, fmt.Errorf("%w: %s needs argument %d of type %s, got %d argument(s)", ErrInvalidArgument, m, i, want, len(args))
	}
	v := args[i]
	if v == nil {
		if nilable(want.Kind()) {
			return zero, nil
		}
		return zero, fmt.Errorf("%w: argument %d of %s is nil, want %s", ErrInvalidArgument, i, m, want)
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: argument %d of %s is %T, want %s", ErrInvalidArgument, i, m, v, want)
	}
	return t, nil
}

func nilable(k reflect.Kind) bool {
	switch k {
	case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return true
	}
	return false
}
