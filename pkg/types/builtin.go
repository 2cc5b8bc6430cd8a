package types

import (
	"encoding"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/leapstack-labs/leapmapper/pkg/core"
	"github.com/leapstack-labs/leapmapper/pkg/reflection"
)

// StringHandler converts text columns.
type StringHandler struct{ BaseTypeHandler[string] }

func (StringHandler) Bind(v any, _ core.SQLType) (any, error) { return v, nil }

func (StringHandler) Scan(src any) (any, error) {
	switch s := src.(type) {
	case nil:
		return nil, nil
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	default:
		return fmt.Sprint(s), nil
	}
}

func scanInt64(src any) (int64, bool, error) {
	switch v := src.(type) {
	case nil:
		return 0, false, nil
	case int64:
		return v, true, nil
	case int:
		return int64(v), true, nil
	case int32:
		return int64(v), true, nil
	case float64:
		return int64(v), true, nil
	case bool:
		if v {
			return 1, true, nil
		}
		return 0, true, nil
	case []byte:
		n, err := strconv.ParseInt(string(v), 10, 64)
		return n, true, err
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, true, err
	default:
		return 0, false, fmt.Errorf("cannot convert %T to an integer", src)
	}
}

// IntHandler converts integer columns to int.
type IntHandler struct{ BaseTypeHandler[int] }

func (IntHandler) Bind(v any, _ core.SQLType) (any, error) { return v, nil }

func (IntHandler) Scan(src any) (any, error) {
	n, ok, err := scanInt64(src)
	if err != nil || !ok {
		return nil, err
	}
	return int(n), nil
}

// Int64Handler converts integer columns to int64.
type Int64Handler struct{ BaseTypeHandler[int64] }

func (Int64Handler) Bind(v any, _ core.SQLType) (any, error) { return v, nil }

func (Int64Handler) Scan(src any) (any, error) {
	n, ok, err := scanInt64(src)
	if err != nil || !ok {
		return nil, err
	}
	return n, nil
}

// Int32Handler converts integer columns to int32.
type Int32Handler struct{ BaseTypeHandler[int32] }

func (Int32Handler) Bind(v any, _ core.SQLType) (any, error) { return v, nil }

func (Int32Handler) Scan(src any) (any, error) {
	n, ok, err := scanInt64(src)
	if err != nil || !ok {
		return nil, err
	}
	return int32(n), nil //nolint:gosec // narrowing is the point of the handler
}

// Float64Handler converts floating point columns.
type Float64Handler struct{ BaseTypeHandler[float64] }

func (Float64Handler) Bind(v any, _ core.SQLType) (any, error) { return v, nil }

func (Float64Handler) Scan(src any) (any, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case []byte:
		return strconv.ParseFloat(string(v), 64)
	case string:
		return strconv.ParseFloat(v, 64)
	default:
		return nil, fmt.Errorf("cannot convert %T to float64", src)
	}
}

// BoolHandler converts boolean columns.
type BoolHandler struct{ BaseTypeHandler[bool] }

func (BoolHandler) Bind(v any, _ core.SQLType) (any, error) { return v, nil }

func (BoolHandler) Scan(src any) (any, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case bool:
		return v, nil
	case int64:
		return v != 0, nil
	case []byte:
		return strconv.ParseBool(string(v))
	case string:
		return strconv.ParseBool(v)
	default:
		return nil, fmt.Errorf("cannot convert %T to bool", src)
	}
}

// BytesHandler converts binary columns.
type BytesHandler struct{ BaseTypeHandler[[]byte] }

func (BytesHandler) Bind(v any, _ core.SQLType) (any, error) { return v, nil }

func (BytesHandler) Scan(src any) (any, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case []byte:
		return append([]byte(nil), v...), nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("cannot convert %T to []byte", src)
	}
}

// TimeHandler converts timestamp columns. Text values are parsed as RFC 3339.
type TimeHandler struct{ BaseTypeHandler[time.Time] }

func (TimeHandler) Bind(v any, _ core.SQLType) (any, error) { return v, nil }

func (TimeHandler) Scan(src any) (any, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return v, nil
	case []byte:
		return time.Parse(time.RFC3339Nano, string(v))
	case string:
		return time.Parse(time.RFC3339Nano, v)
	default:
		return nil, fmt.Errorf("cannot convert %T to time.Time", src)
	}
}

// ObjectHandler passes values through unchanged.
type ObjectHandler struct{ BaseTypeHandler[any] }

func (ObjectHandler) Bind(v any, _ core.SQLType) (any, error) { return v, nil }

func (ObjectHandler) Scan(src any) (any, error) {
	if b, ok := src.([]byte); ok {
		return string(b), nil
	}
	return src, nil
}

// EnumHandler stores enum-like values by name. Values are written with
// MarshalText or String and read back with UnmarshalText when the Go type
// supports it.
type EnumHandler struct {
	goType reflect.Type
}

// NewEnumHandler returns a handler for the Go type t describes.
func NewEnumHandler(t *reflection.Type) *EnumHandler {
	return &EnumHandler{goType: t.GoType}
}

func (h *EnumHandler) HandledType() reflect.Type { return h.goType }

func (h *EnumHandler) Bind(v any, _ core.SQLType) (any, error) {
	switch e := v.(type) {
	case nil:
		return nil, nil
	case encoding.TextMarshaler:
		b, err := e.MarshalText()
		if err != nil {
			return nil, err
		}
		return string(b), nil
	case fmt.Stringer:
		return e.String(), nil
	default:
		return fmt.Sprint(v), nil
	}
}

func (h *EnumHandler) Scan(src any) (any, error) {
	var text string
	switch v := src.(type) {
	case nil:
		return nil, nil
	case string:
		text = v
	case []byte:
		text = string(v)
	default:
		return nil, fmt.Errorf("cannot convert %T to %s", src, h.goType)
	}
	if h.goType == nil {
		return text, nil
	}
	ptr := reflect.New(h.goType)
	u, ok := ptr.Interface().(encoding.TextUnmarshaler)
	if !ok {
		return text, nil
	}
	if err := u.UnmarshalText([]byte(text)); err != nil {
		return nil, err
	}
	return ptr.Elem().Interface(), nil
}

func init() {
	reflection.Register(
		reflection.InterfaceType[TypeHandler](),
		reflection.NewType[StringHandler](),
		reflection.NewType[IntHandler](),
		reflection.NewType[Int64Handler](),
		reflection.NewType[Int32Handler](),
		reflection.NewType[Float64Handler](),
		reflection.NewType[BoolHandler](),
		reflection.NewType[BytesHandler](),
		reflection.NewType[TimeHandler](),
		reflection.NewType[ObjectHandler](),
		reflection.NewType[EnumHandler](
			reflection.WithoutDefaultConstructor(),
			reflection.WithConstructor(reflection.OneArg(NewEnumHandler)),
		),
	)
}
