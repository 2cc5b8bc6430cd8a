package reflection

import (
	"fmt"
	"reflect"
)

// Option customises a Type built by NewType or InterfaceType.
type Option func(*Type)

// WithAlias overrides the derived alias.
func WithAlias(alias string) Option {
	return func(t *Type) { t.Alias = alias }
}

// WithName overrides the registered name. Used for types that are addressed
// by a short well-known name rather than their import path.
func WithName(name string) Option {
	return func(t *Type) {
		t.Name = name
		t.Package, t.Simple = splitName(name)
	}
}

// WithConstructor adds a constructor.
func WithConstructor(c Constructor) Option {
	return func(t *Type) { t.Constructors = append(t.Constructors, c) }
}

// WithAnnotations attaches annotation values.
func WithAnnotations(annotations ...any) Option {
	return func(t *Type) { t.Annotations = append(t.Annotations, annotations...) }
}

// Anonymous marks the type as a local or anonymous type that bulk
// registration must skip.
func Anonymous() Option {
	return func(t *Type) { t.Anonymous = true }
}

// WithoutDefaultConstructor suppresses the implicit no-argument constructor.
func WithoutDefaultConstructor() Option {
	return func(t *Type) { t.noDefaultCtor = true }
}

// NewType describes the concrete type T. Unless other constructors are
// given, the type gets a no-argument constructor returning a new *T.
func NewType[T any](opts ...Option) *Type {
	rt := reflect.TypeFor[T]()
	t := describe(rt, KindStruct)
	for _, o := range opts {
		o(t)
	}
	hasCtor := t.noDefaultCtor
	for _, c := range t.Constructors {
		if len(c.ArgTypes) == 0 {
			hasCtor = true
		}
	}
	if !hasCtor {
		t.Constructors = append(t.Constructors, NoArg(func() *T { return new(T) }))
	}
	return t
}

// InterfaceType describes the interface type T.
func InterfaceType[T any](opts ...Option) *Type {
	rt := reflect.TypeFor[T]()
	if rt.Kind() != reflect.Interface {
		panic(fmt.Sprintf("reflection: %s is not an interface", rt))
	}
	t := describe(rt, KindInterface)
	for _, o := range opts {
		o(t)
	}
	return t
}

func describe(rt reflect.Type, kind Kind) *Type {
	name := TypeName(rt)
	pkg, simple := splitName(name)
	return &Type{
		Name:    name,
		Simple:  simple,
		Package: pkg,
		Kind:    kind,
		GoType:  rt,
	}
}

// NoArg adapts a no-argument constructor function.
func NoArg[T any](fn func() T) Constructor {
	return Constructor{
		New: func([]any) (any, error) { return fn(), nil },
	}
}

// OneArg adapts a single-argument constructor function.
func OneArg[A, T any](fn func(A) T) Constructor {
	return Constructor{
		ArgTypes: []string{TypeName(reflect.TypeFor[A]())},
		New: func(args []any) (any, error) {
			a, ok := args[0].(A)
			if !ok {
				return nil, fmt.Errorf("argument 0: expected %s, got %T", TypeName(reflect.TypeFor[A]()), args[0])
			}
			return fn(a), nil
		},
	}
}
