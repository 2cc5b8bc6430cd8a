package reflection

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrTypeNotFound is returned when a name resolves to no registered type.
	ErrTypeNotFound = errors.New("type not found")
	// ErrNoConstructor is returned when no constructor matches the requested argument types.
	ErrNoConstructor = errors.New("no matching constructor")
	// ErrNotInstantiable is returned for interfaces and nil types.
	ErrNotInstantiable = errors.New("type cannot be instantiated")
)

// TypeNotFoundError names the unresolved type.
type TypeNotFoundError struct {
	Name string
}

func (e *TypeNotFoundError) Error() string {
	return fmt.Sprintf("cannot find class: %s", e.Name)
}

func (e *TypeNotFoundError) Is(target error) bool { return target == ErrTypeNotFound }

// NoConstructorError names the type and the argument types that were asked for.
type NoConstructorError struct {
	Type     string
	ArgTypes []string
}

func (e *NoConstructorError) Error() string {
	return fmt.Sprintf("no constructor of %s accepts (%s)", e.Type, strings.Join(e.ArgTypes, ", "))
}

func (e *NoConstructorError) Is(target error) bool { return target == ErrNoConstructor }

// TypeRegistry maps fully qualified names to types.
type TypeRegistry struct {
	mu    sync.RWMutex
	types map[string]*Type
}

// NewTypeRegistry returns an empty registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{types: make(map[string]*Type)}
}

// Register adds types, replacing any previous registration of the same name.
func (r *TypeRegistry) Register(types ...*Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range types {
		r.types[t.Name] = t
	}
}

// ForName looks a type up by its exact registered name.
func (r *TypeRegistry) ForName(name string) (*Type, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	if !ok {
		return nil, &TypeNotFoundError{Name: name}
	}
	return t, nil
}

// Types returns every registered type sorted by name.
func (r *TypeRegistry) Types() []*Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Type, 0, len(r.types))
	for _, t := range r.types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// TypesInPackage returns the types registered in pkg or any package below it,
// sorted by name.
func (r *TypeRegistry) TypesInPackage(pkg string) []*Type {
	var out []*Type
	for _, t := range r.Types() {
		if t.Package == pkg || strings.HasPrefix(t.Package, pkg+"/") {
			out = append(out, t)
		}
	}
	return out
}

// Instantiate calls the constructor of t whose argument types equal argTypes.
// Matching is positional and exact; nil argTypes selects the no-argument
// constructor.
func (r *TypeRegistry) Instantiate(t *Type, argTypes []string, args []any) (any, error) {
	if t == nil {
		return nil, ErrNotInstantiable
	}
	if t.IsInterface() {
		return nil, fmt.Errorf("%s is an interface: %w", t.Name, ErrNotInstantiable)
	}
	if len(argTypes) != len(args) {
		return nil, fmt.Errorf("instantiating %s: %d argument types for %d arguments", t.Name, len(argTypes), len(args))
	}
	c, ok := t.Constructor(argTypes)
	if !ok {
		return nil, &NoConstructorError{Type: t.Name, ArgTypes: argTypes}
	}
	v, err := c.New(args)
	if err != nil {
		return nil, fmt.Errorf("error instantiating %s: %w", t.Name, err)
	}
	return v, nil
}

// New instantiates t with its no-argument constructor.
func (r *TypeRegistry) New(t *Type) (any, error) {
	return r.Instantiate(t, nil, nil)
}

var defaultRegistry = NewTypeRegistry()

// Default returns the process-wide registry populated from init() functions.
func Default() *TypeRegistry { return defaultRegistry }

// Register adds types to the default registry.
// Called by type owners in their init() functions.
func Register(types ...*Type) {
	defaultRegistry.Register(types...)
}

// ForName looks a type up in the default registry.
func ForName(name string) (*Type, error) {
	return defaultRegistry.ForName(name)
}
