package types

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/leapstack-labs/leapmapper/pkg/core"
	"github.com/leapstack-labs/leapmapper/pkg/reflection"
)

// ErrNoTypeHandler is returned when no handler converts the requested pair.
var ErrNoTypeHandler = errors.New("no type handler")

// TypeHandler converts between a Go value and the value exchanged with the
// database driver.
type TypeHandler interface {
	// Bind converts a parameter value into a driver argument.
	Bind(value any, sqlType core.SQLType) (any, error)
	// Scan converts a value read from the driver.
	Scan(src any) (any, error)
}

// MappedTypes is implemented by handlers that name the Go types they convert.
type MappedTypes interface {
	MappedTypes() []reflect.Type
}

// MappedSQLTypes is implemented by handlers that name the SQL types they
// convert when registered for a Go type without an explicit SQL type.
type MappedSQLTypes interface {
	MappedSQLTypes() []core.SQLType
}

// HandledType is implemented by handlers that know their own Go type,
// typically by embedding BaseTypeHandler.
type HandledType interface {
	HandledType() reflect.Type
}

// BaseTypeHandler reports T as the handled type.
type BaseTypeHandler[T any] struct{}

// HandledType returns the reflect.Type of T.
func (BaseTypeHandler[T]) HandledType() reflect.Type { return reflect.TypeFor[T]() }

// HandlerEntry is one registration of a TypeHandlerRegistry.
type HandlerEntry struct {
	GoType  reflect.Type
	SQLType core.SQLType
	Handler TypeHandler
}

// TypeHandlerRegistry maps (Go type, SQL type) pairs to handlers. A handler
// registered with SQLTypeUnset applies to every SQL type of its Go type; an
// exact pair takes precedence. Re-registering a pair replaces it.
type TypeHandlerRegistry struct {
	mu        sync.RWMutex
	handlers  map[reflect.Type]map[core.SQLType]TypeHandler
	bySQLType map[core.SQLType]TypeHandler
	all       map[reflect.Type]TypeHandler
}

var typeHandlerType = reflect.TypeFor[TypeHandler]()

// NewTypeHandlerRegistry returns a registry holding the built-in handlers.
func NewTypeHandlerRegistry() *TypeHandlerRegistry {
	r := &TypeHandlerRegistry{
		handlers:  make(map[reflect.Type]map[core.SQLType]TypeHandler),
		bySQLType: make(map[core.SQLType]TypeHandler),
		all:       make(map[reflect.Type]TypeHandler),
	}
	r.RegisterHandler(StringHandler{})
	r.RegisterHandler(IntHandler{})
	r.RegisterHandler(Int64Handler{})
	r.RegisterHandler(Int32Handler{})
	r.RegisterHandler(Float64Handler{})
	r.RegisterHandler(BoolHandler{})
	r.RegisterHandler(BytesHandler{})
	r.RegisterHandler(TimeHandler{})
	r.RegisterHandler(ObjectHandler{})

	r.RegisterSQLType(core.SQLTypeVarchar, StringHandler{})
	r.RegisterSQLType(core.SQLTypeChar, StringHandler{})
	r.RegisterSQLType(core.SQLTypeBigint, Int64Handler{})
	r.RegisterSQLType(core.SQLTypeInteger, IntHandler{})
	r.RegisterSQLType(core.SQLTypeDouble, Float64Handler{})
	r.RegisterSQLType(core.SQLTypeBoolean, BoolHandler{})
	r.RegisterSQLType(core.SQLTypeBlob, BytesHandler{})
	r.RegisterSQLType(core.SQLTypeTimestamp, TimeHandler{})
	r.RegisterSQLType(core.SQLTypeOther, ObjectHandler{})
	return r
}

// Register maps (goType, sqlType) to h. SQLTypeUnset registers the wildcard
// for goType. A nil goType only records the handler.
func (r *TypeHandlerRegistry) Register(goType reflect.Type, sqlType core.SQLType, h TypeHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if goType != nil {
		m := r.handlers[goType]
		if m == nil {
			m = make(map[core.SQLType]TypeHandler)
			r.handlers[goType] = m
		}
		m[sqlType] = h
	}
	r.all[reflect.TypeOf(h)] = h
}

// RegisterForType registers h for goType, once per SQL type the handler
// declares through MappedSQLTypes, or as the wildcard otherwise.
func (r *TypeHandlerRegistry) RegisterForType(goType reflect.Type, h TypeHandler) {
	if m, ok := h.(MappedSQLTypes); ok {
		if sqlTypes := m.MappedSQLTypes(); len(sqlTypes) > 0 {
			for _, st := range sqlTypes {
				r.Register(goType, st, h)
			}
			return
		}
	}
	r.Register(goType, core.SQLTypeUnset, h)
}

// RegisterHandler registers h for the Go types it reports through
// MappedTypes, or for its own HandledType.
func (r *TypeHandlerRegistry) RegisterHandler(h TypeHandler) {
	if m, ok := h.(MappedTypes); ok {
		if goTypes := m.MappedTypes(); len(goTypes) > 0 {
			for _, gt := range goTypes {
				r.RegisterForType(gt, h)
			}
			return
		}
	}
	if ht, ok := h.(HandledType); ok {
		r.RegisterForType(ht.HandledType(), h)
		return
	}
	r.Register(nil, core.SQLTypeUnset, h)
}

// RegisterSQLType makes h the handler for values of sqlType whose Go type is
// unknown.
func (r *TypeHandlerRegistry) RegisterSQLType(sqlType core.SQLType, h TypeHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bySQLType[sqlType] = h
	r.all[reflect.TypeOf(h)] = h
}

// RegisterType instantiates handlerType and registers it. The handler is
// built with a constructor taking the Go type description when it has one,
// else with its no-argument constructor. A nil goType falls back to
// RegisterHandler.
func (r *TypeHandlerRegistry) RegisterType(goType *reflection.Type, sqlType core.SQLType, handlerType *reflection.Type, reg *reflection.TypeRegistry) error {
	h, err := newHandler(goType, handlerType, reg)
	if err != nil {
		return err
	}
	switch {
	case goType == nil:
		r.RegisterHandler(h)
	case sqlType.IsSet():
		r.Register(goType.GoType, sqlType, h)
	default:
		r.RegisterForType(goType.GoType, h)
	}
	return nil
}

var typeArg = []string{reflection.TypeName(reflect.TypeFor[*reflection.Type]())}

func newHandler(goType, handlerType *reflection.Type, reg *reflection.TypeRegistry) (TypeHandler, error) {
	var (
		v   any
		err error
	)
	if _, ok := handlerType.Constructor(typeArg); ok && goType != nil {
		v, err = reg.Instantiate(handlerType, typeArg, []any{goType})
	} else {
		v, err = reg.New(handlerType)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to find a usable constructor for %s: %w", handlerType.Name, err)
	}
	h, ok := v.(TypeHandler)
	if !ok {
		return nil, fmt.Errorf("%s is not a type handler", handlerType.Name)
	}
	return h, nil
}

// RegisterPackage instantiates and registers every type handler declared in
// pkg (and its sub-packages) of reg. Handlers that need constructor
// arguments are skipped.
func (r *TypeHandlerRegistry) RegisterPackage(reg *reflection.TypeRegistry, pkg string) (int, error) {
	n := 0
	for _, t := range reg.TypesInPackage(pkg) {
		if !t.Instantiable() || !t.Implements(typeHandlerType) {
			continue
		}
		if _, ok := t.Constructor(nil); !ok {
			continue
		}
		if err := r.RegisterType(nil, core.SQLTypeUnset, t, reg); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Handler returns the handler for the exact pair, else the wildcard for
// goType, else nil.
func (r *TypeHandlerRegistry) Handler(goType reflect.Type, sqlType core.SQLType) TypeHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m := r.handlers[goType]
	if m == nil {
		return nil
	}
	if h, ok := m[sqlType]; ok {
		return h
	}
	return m[core.SQLTypeUnset]
}

// HasHandler reports whether Handler would find one.
func (r *TypeHandlerRegistry) HasHandler(goType reflect.Type, sqlType core.SQLType) bool {
	return r.Handler(goType, sqlType) != nil
}

// Lookup is Handler with an error naming the pair when nothing matches.
func (r *TypeHandlerRegistry) Lookup(goType reflect.Type, sqlType core.SQLType) (TypeHandler, error) {
	if h := r.Handler(goType, sqlType); h != nil {
		return h, nil
	}
	return nil, fmt.Errorf("%w for %v / %s", ErrNoTypeHandler, goType, sqlType)
}

// HandlerForSQLType returns the handler registered for sqlType alone.
func (r *TypeHandlerRegistry) HandlerForSQLType(sqlType core.SQLType) TypeHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bySQLType[sqlType]
}

// HandlerForValue picks a handler for a parameter value: by its dynamic
// type (pointers dereferenced), then by sqlType, then the object handler.
func (r *TypeHandlerRegistry) HandlerForValue(v any, sqlType core.SQLType) TypeHandler {
	if v != nil {
		t := reflect.TypeOf(v)
		for t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		if h := r.Handler(t, sqlType); h != nil {
			return h
		}
	}
	if h := r.HandlerForSQLType(sqlType); h != nil {
		return h
	}
	return r.Handler(reflect.TypeFor[any](), core.SQLTypeUnset)
}

// Entries returns the (Go type, SQL type) registrations sorted for display.
func (r *TypeHandlerRegistry) Entries() []HandlerEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []HandlerEntry
	for gt, m := range r.handlers {
		for st, h := range m {
			out = append(out, HandlerEntry{GoType: gt, SQLType: st, Handler: h})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].GoType.String(), out[j].GoType.String()
		if a != b {
			return a < b
		}
		return out[i].SQLType < out[j].SQLType
	})
	return out
}

// Handlers returns every handler instance seen, one per concrete type.
func (r *TypeHandlerRegistry) Handlers() []TypeHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]TypeHandler, 0, len(r.all))
	for _, h := range r.all {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		return reflect.TypeOf(out[i]).String() < reflect.TypeOf(out[j]).String()
	})
	return out
}
