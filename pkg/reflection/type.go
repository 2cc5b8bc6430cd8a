// Package reflection resolves type names to registered types and creates
// instances of them.
//
// Go has no class loader, so every type that can be named from a
// configuration description must be registered up front, usually from the
// owning package's init():
//
//	func init() {
//		reflection.Register(reflection.NewType[ExamplePlugin]())
//	}
//
// Registered names are fully qualified (import path plus type name). The
// package grouping of those names is the manifest bulk registrations walk.
package reflection

import (
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Kind distinguishes concrete types from interfaces.
type Kind int

const (
	KindStruct Kind = iota
	KindInterface
)

func (k Kind) String() string {
	if k == KindInterface {
		return "interface"
	}
	return "struct"
}

// Constructor creates an instance from positional arguments.
// ArgTypes holds the TypeName of each parameter; nil means no arguments.
type Constructor struct {
	ArgTypes []string
	New      func(args []any) (any, error)
}

// Type describes a registered type.
type Type struct {
	Name         string
	Simple       string
	Package      string
	Kind         Kind
	Anonymous    bool
	Alias        string
	Constructors []Constructor
	Annotations  []any
	GoType       reflect.Type

	noDefaultCtor bool
}

func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	return t.Name
}

// IsInterface reports whether t describes an interface.
func (t *Type) IsInterface() bool { return t.Kind == KindInterface }

// Instantiable reports whether t is an ordinary concrete type.
func (t *Type) Instantiable() bool {
	return t.Kind != KindInterface && !t.Anonymous
}

// Implements reports whether values of t, or pointers to them, implement iface.
func (t *Type) Implements(iface reflect.Type) bool {
	if t.GoType == nil || iface == nil || iface.Kind() != reflect.Interface {
		return false
	}
	if t.GoType.Implements(iface) {
		return true
	}
	return t.GoType.Kind() != reflect.Pointer && t.GoType.Kind() != reflect.Interface &&
		reflect.PointerTo(t.GoType).Implements(iface)
}

// Constructor returns the constructor whose argument types match exactly.
func (t *Type) Constructor(argTypes []string) (Constructor, bool) {
	for _, c := range t.Constructors {
		if sameArgs(c.ArgTypes, argTypes) {
			return c, true
		}
	}
	return Constructor{}, false
}

func sameArgs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Annotation returns the first annotation of type A carried by t.
func Annotation[A any](t *Type) (A, bool) {
	var zero A
	if t == nil {
		return zero, false
	}
	for _, a := range t.Annotations {
		if v, ok := a.(A); ok {
			return v, true
		}
	}
	return zero, false
}

// TypeName returns the fully qualified name of rt.
// Pointers are prefixed with "*"; unnamed and builtin types use rt.String().
func TypeName(rt reflect.Type) string {
	if rt == nil {
		return ""
	}
	if rt.Kind() == reflect.Pointer {
		return "*" + TypeName(rt.Elem())
	}
	if rt.Name() == "" || rt.PkgPath() == "" {
		return rt.String()
	}
	return rt.PkgPath() + "." + rt.Name()
}

// SimpleAlias derives the default alias of t: the explicit Alias when set,
// otherwise the simple name with only its first character lower-cased.
func SimpleAlias(t *Type) string {
	if t.Alias != "" {
		return t.Alias
	}
	r, size := utf8.DecodeRuneInString(t.Simple)
	if r == utf8.RuneError {
		return t.Simple
	}
	return string(unicode.ToLower(r)) + t.Simple[size:]
}

// splitName splits "a/b/pkg.Name" into package and simple name.
func splitName(name string) (pkg, simple string) {
	slash := strings.LastIndex(name, "/")
	dot := strings.LastIndex(name, ".")
	if dot <= slash {
		return "", name
	}
	return name[:dot], name[dot+1:]
}
