package reflection

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/leapstack-labs/leapmapper/pkg/core"
)

// ObjectFactory creates result objects.
type ObjectFactory interface {
	SetProperties(props core.Properties) error
	Create(t *Type) (any, error)
	CreateWith(t *Type, argTypes []string, args []any) (any, error)
	IsCollection(t *Type) bool
}

// DefaultObjectFactory instantiates through a TypeRegistry.
type DefaultObjectFactory struct {
	Registry *TypeRegistry
}

// NewDefaultObjectFactory returns a factory over the default registry.
func NewDefaultObjectFactory() *DefaultObjectFactory {
	return &DefaultObjectFactory{Registry: defaultRegistry}
}

// SetProperties accepts and ignores properties.
func (f *DefaultObjectFactory) SetProperties(core.Properties) error { return nil }

// Create uses the no-argument constructor.
func (f *DefaultObjectFactory) Create(t *Type) (any, error) {
	return f.CreateWith(t, nil, nil)
}

// CreateWith uses the constructor matching argTypes. Collection interfaces
// get their natural Go representation.
func (f *DefaultObjectFactory) CreateWith(t *Type, argTypes []string, args []any) (any, error) {
	if t != nil && t.GoType != nil && len(argTypes) == 0 {
		switch t.GoType.Kind() {
		case reflect.Map:
			return reflect.MakeMap(t.GoType).Interface(), nil
		case reflect.Slice:
			return reflect.MakeSlice(t.GoType, 0, 0).Interface(), nil
		}
	}
	reg := f.Registry
	if reg == nil {
		reg = defaultRegistry
	}
	return reg.Instantiate(t, argTypes, args)
}

// IsCollection reports whether t is a slice, array or map.
func (f *DefaultObjectFactory) IsCollection(t *Type) bool {
	if t == nil || t.GoType == nil {
		return false
	}
	switch t.GoType.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return true
	}
	return false
}

// ObjectWrapper exposes the properties of an object that has no Go
// struct representation.
type ObjectWrapper interface {
	Get(name string) (any, error)
	Set(name string, value any) error
}

// ObjectWrapperFactory supplies wrappers for objects the default
// introspection cannot handle.
type ObjectWrapperFactory interface {
	HasWrapperFor(obj any) bool
	WrapperFor(obj any) (ObjectWrapper, error)
}

// DefaultObjectWrapperFactory never wraps.
type DefaultObjectWrapperFactory struct{}

// HasWrapperFor always returns false.
func (DefaultObjectWrapperFactory) HasWrapperFor(any) bool { return false }

// WrapperFor always fails.
func (DefaultObjectWrapperFactory) WrapperFor(obj any) (ObjectWrapper, error) {
	return nil, fmt.Errorf("the default object wrapper factory should never be asked to wrap %T", obj)
}

// Reflector exposes the settable properties of a struct type. A property is a
// field carrying a `setting:"name"` tag; embedded structs are flattened.
type Reflector struct {
	typ     reflect.Type
	setters map[string][]int
}

// HasSetter reports whether name is a settable property (case-sensitive).
func (r *Reflector) HasSetter(name string) bool {
	_, ok := r.setters[name]
	return ok
}

// SetterNames returns the settable property names.
func (r *Reflector) SetterNames() []string {
	out := make([]string, 0, len(r.setters))
	for name := range r.setters {
		out = append(out, name)
	}
	return out
}

// Field returns the addressable field for name in v, a pointer to the
// reflected struct.
func (r *Reflector) Field(v any, name string) (reflect.Value, error) {
	idx, ok := r.setters[name]
	if !ok {
		return reflect.Value{}, fmt.Errorf("there is no setter for property named '%s' in '%s'", name, r.typ)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.Elem().Type() != r.typ {
		return reflect.Value{}, fmt.Errorf("expected *%s, got %T", r.typ, v)
	}
	return rv.Elem().FieldByIndex(idx), nil
}

func newReflector(t reflect.Type) *Reflector {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	r := &Reflector{typ: t, setters: make(map[string][]int)}
	if t.Kind() == reflect.Struct {
		collectSetters(t, nil, r.setters)
	}
	return r
}

func collectSetters(t reflect.Type, prefix []int, out map[string][]int) {
	for i := range t.NumField() {
		f := t.Field(i)
		idx := append(append([]int(nil), prefix...), i)
		if f.Anonymous && f.Type.Kind() == reflect.Struct {
			collectSetters(f.Type, idx, out)
			continue
		}
		if name, ok := f.Tag.Lookup("setting"); ok && name != "" && name != "-" && f.IsExported() {
			out[name] = idx
		}
	}
}

// ReflectorFactory caches Reflectors per type.
type ReflectorFactory interface {
	ClassCacheEnabled() bool
	SetClassCacheEnabled(enabled bool)
	FindForType(t reflect.Type) *Reflector
}

// DefaultReflectorFactory caches by reflect.Type unless caching is disabled.
type DefaultReflectorFactory struct {
	disabled bool
	cache    sync.Map
}

// NewDefaultReflectorFactory returns a caching factory.
func NewDefaultReflectorFactory() *DefaultReflectorFactory {
	return &DefaultReflectorFactory{}
}

func (f *DefaultReflectorFactory) ClassCacheEnabled() bool { return !f.disabled }

func (f *DefaultReflectorFactory) SetClassCacheEnabled(enabled bool) { f.disabled = !enabled }

// FindForType returns the Reflector of t.
func (f *DefaultReflectorFactory) FindForType(t reflect.Type) *Reflector {
	if f.disabled {
		return newReflector(t)
	}
	if r, ok := f.cache.Load(t); ok {
		return r.(*Reflector)
	}
	r, _ := f.cache.LoadOrStore(t, newReflector(t))
	return r.(*Reflector)
}

func init() {
	Register(
		NewType[DefaultObjectFactory](WithConstructor(NoArg(NewDefaultObjectFactory))),
		NewType[DefaultObjectWrapperFactory](),
		NewType[DefaultReflectorFactory](WithConstructor(NoArg(NewDefaultReflectorFactory))),
		InterfaceType[ObjectFactory](),
		InterfaceType[ObjectWrapperFactory](),
		InterfaceType[ReflectorFactory](),
	)
}
